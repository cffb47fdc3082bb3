package entities

import (
	"strings"
	"unicode"

	"github.com/Jacobbrewer1/ticketbot/pkg/custom"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	// TicketStatusPending is a reservation that has not yet been bound to a channel.
	TicketStatusPending TicketStatus = "pending"

	// TicketStatusOpen is a ticket with a live channel.
	TicketStatusOpen TicketStatus = "open"

	// TicketStatusClosed is terminal.
	TicketStatusClosed TicketStatus = "closed"
)

// Active reports whether the status counts towards the per-user and per-guild limits.
func (s TicketStatus) Active() bool {
	return s == TicketStatusPending || s == TicketStatusOpen
}

// Ticket is a ticket.
type Ticket struct {
	// ID is assigned by the store when the reservation is made.
	ID string `json:"id" bson:"id"`

	// GuildID is the ID of the guild that the ticket is in.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// UserID is the ID of the user that created the ticket.
	UserID string `json:"user_id" bson:"user_id"`

	// Username is the display name of the user that created the ticket.
	Username string `json:"username" bson:"username"`

	// ChannelID is the ID of the channel that the ticket is in. Empty while pending.
	ChannelID string `json:"channel_id,omitempty" bson:"channel_id,omitempty"`

	// Status is the lifecycle state of the ticket.
	Status TicketStatus `json:"status" bson:"status"`

	// ClosedBy is the ID of the user that closed the ticket.
	ClosedBy string `json:"closed_by,omitempty" bson:"closed_by,omitempty"`

	// CreatedAt is the time that the ticket was reserved.
	CreatedAt custom.Datetime `json:"created_at" bson:"created_at"`

	// ClosedAt is the time that the ticket was closed.
	ClosedAt custom.Datetime `json:"closed_at" bson:"closed_at"`
}

// Name is the name of the channel for the ticket. For example, "ticket-rosa".
func (t *Ticket) Name() string {
	return ChannelName(t.Username)
}

// ChannelName builds a channel name from a display name. Discord channel names are lowercase and
// may only contain letters, digits, dashes and underscores.
func ChannelName(displayName string) string {
	b := new(strings.Builder)
	b.WriteString("ticket-")

	dash := true
	for _, r := range strings.ToLower(displayName) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			dash = false
		case !dash:
			b.WriteRune('-')
			dash = true
		}
	}

	name := strings.TrimRight(b.String(), "-")
	if name == "ticket" {
		return "ticket-user"
	}

	// Discord caps channel names at 100 characters.
	if r := []rune(name); len(r) > 100 {
		name = string(r[:100])
	}
	return name
}
