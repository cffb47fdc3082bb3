package tickets

import (
	"context"

	"github.com/Jacobbrewer1/ticketbot/pkg/entities"
)

// OverwriteKind is what a permission overwrite targets.
type OverwriteKind int

const (
	// OverwriteRole targets a role. The guild ID is the default role.
	OverwriteRole OverwriteKind = iota

	// OverwriteMember targets a single member.
	OverwriteMember
)

// Overwrite grants or denies access to a ticket channel.
type Overwrite struct {
	ID    string
	Kind  OverwriteKind
	Allow bool
}

// ChannelRequest describes the private channel to create for a ticket.
type ChannelRequest struct {
	GuildID string
	Name    string
	Topic   string

	// ParentID is the category to create the channel in. Empty for none.
	ParentID string

	Overwrites []Overwrite
}

// ChannelProvisioner creates and deletes ticket channels.
type ChannelProvisioner interface {
	// CreateChannel creates the channel and returns its ID.
	CreateChannel(ctx context.Context, req *ChannelRequest) (string, error)

	DeleteChannel(ctx context.Context, channelID string) error
}

// Transcript is an archived channel history.
type Transcript struct {
	Name        string
	ContentType string
	Data        []byte
}

// TranscriptExporter renders a channel's history.
type TranscriptExporter interface {
	Export(ctx context.Context, channelID string) (*Transcript, error)
}

// AuditKind is the kind of an audit entry.
type AuditKind string

const (
	AuditKindCreated      AuditKind = "created"
	AuditKindClosed       AuditKind = "closed"
	AuditKindDeleteFailed AuditKind = "delete_failed"
	AuditKindOrphan       AuditKind = "orphan"
)

// AuditEntry is posted to a guild's logs channel. Rendering it is up to the Notifier.
type AuditEntry struct {
	Kind   AuditKind
	Ticket *entities.Ticket

	// ActorID is the user that caused the entry.
	ActorID string

	// Transcript is attached to closed entries when the export succeeded.
	Transcript *Transcript

	// Err is the failure behind the entry, if any. For a closed entry it is the export failure.
	Err error
}

// Notifier posts messages into channels.
type Notifier interface {
	// SendWelcome posts the rendered ticket message into a new ticket channel, together with a close button.
	SendWelcome(ctx context.Context, channelID, content string) error

	// SendAudit posts an entry into a logs channel.
	SendAudit(ctx context.Context, channelID string, entry *AuditEntry) error
}

// Directory resolves roles and mention syntax.
type Directory interface {
	RoleExists(ctx context.Context, guildID, roleID string) (bool, error)
	UserMention(userID string) string
	RoleMention(roleID string) string
}
