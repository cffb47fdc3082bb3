package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Jacobbrewer1/ticketbot/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketbot/pkg/entities"
	"github.com/Jacobbrewer1/ticketbot/pkg/events"
	"github.com/Jacobbrewer1/ticketbot/pkg/logging"
	"github.com/Jacobbrewer1/ticketbot/pkg/template"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrInvalidLimit is returned when a ticket limit below one is configured.
var ErrInvalidLimit = errors.New("ticket limit must be at least 1")

// Service runs the ticket lifecycle. It is safe for concurrent use, the stores provide all of the atomicity.
type Service struct {
	// l is the logger.
	l *slog.Logger

	settings dataaccess.SettingsStore
	tickets  dataaccess.TicketStore

	provisioner ChannelProvisioner
	exporter    TranscriptExporter
	notifier    Notifier
	directory   Directory
	publisher   events.Publisher

	opts Options

	// deletions tracks the channel deletions started by CloseTicket.
	deletions sync.WaitGroup
}

// NewService creates a new ticket service.
func NewService(
	l *slog.Logger,
	settings dataaccess.SettingsStore,
	tickets dataaccess.TicketStore,
	provisioner ChannelProvisioner,
	exporter TranscriptExporter,
	notifier Notifier,
	directory Directory,
	publisher events.Publisher,
	opts Options,
) *Service {
	if publisher == nil {
		publisher = events.NewNoop()
	}

	return &Service{
		l:           l,
		settings:    settings,
		tickets:     tickets,
		provisioner: provisioner,
		exporter:    exporter,
		notifier:    notifier,
		directory:   directory,
		publisher:   publisher,
		opts:        opts.withDefaults(),
	}
}

// Settings returns the effective settings of a guild.
func (s *Service) Settings(ctx context.Context, guildID string) (*entities.GuildSettings, error) {
	stored, err := s.settings.GetSettings(ctx, guildID)
	if err != nil && !errors.Is(err, dataaccess.ErrNotFound) {
		return nil, fmt.Errorf("error getting guild settings: %w", err)
	}
	return entities.EffectiveSettings(guildID, stored), nil
}

// UpdateSettings sets the non-nil fields of the update.
func (s *Service) UpdateSettings(ctx context.Context, guildID string, update *entities.SettingsUpdate) error {
	if update.TicketLimit != nil && *update.TicketLimit < 1 {
		return ErrInvalidLimit
	}

	if err := s.settings.UpsertSettings(ctx, guildID, update); err != nil {
		return fmt.Errorf("error updating guild settings: %w", err)
	}
	return nil
}

// OpenTickets lists the open tickets of a guild, oldest first.
func (s *Service) OpenTickets(ctx context.Context, guildID string) ([]*entities.Ticket, error) {
	tickets, err := s.tickets.ListOpenTickets(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error listing open tickets: %w", err)
	}
	return tickets, nil
}

// Wipe deletes every ticket record of a guild. Live channels are left alone.
func (s *Service) Wipe(ctx context.Context, guildID string) (int64, error) {
	n, err := s.tickets.DeleteAllTickets(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("error wiping tickets: %w", err)
	}

	s.l.Info("Wiped tickets",
		slog.String(logging.KeyGuildID, guildID),
		slog.Int64("count", n),
	)
	return n, nil
}

// CreateTicket opens a ticket for the user. Refusals and provisioning failures are reported in the result,
// the error is only set when something unexpected went wrong.
func (s *Service) CreateTicket(ctx context.Context, guildID, userID, displayName string) (*CreateResult, error) {
	l := s.l.With(
		slog.String(logging.KeyGuildID, guildID),
		slog.String(logging.KeyUserID, userID),
	)

	settings, err := s.Settings(ctx, guildID)
	if err != nil {
		return nil, err
	}

	res, err := s.tickets.Reserve(ctx, guildID, userID, displayName, settings.TicketLimit)
	switch {
	case errors.Is(err, dataaccess.ErrAlreadyOpen):
		return s.createResult(&CreateResult{Outcome: CreateOutcomeAlreadyOpen}), nil
	case errors.Is(err, dataaccess.ErrLimitReached):
		return s.createResult(&CreateResult{Outcome: CreateOutcomeLimitReached}), nil
	case err != nil:
		return nil, fmt.Errorf("error reserving ticket: %w", err)
	}

	roleID := s.supportRole(ctx, l, settings)

	req := &ChannelRequest{
		GuildID:    guildID,
		Name:       entities.ChannelName(displayName),
		Topic:      "ticket " + res.TicketID,
		ParentID:   settings.TicketCategoryID,
		Overwrites: overwrites(guildID, userID, roleID),
	}

	channelID, err := s.createChannel(ctx, req)
	if err != nil {
		l.Warn("Error provisioning ticket channel", slog.String(logging.KeyError, err.Error()))

		relErr := s.tickets.Release(context.WithoutCancel(ctx), res)
		observeCompensation("release", relErr)
		if relErr != nil {
			l.Error("Error releasing reservation", slog.String(logging.KeyError, relErr.Error()))
		}
		return s.createResult(&CreateResult{Outcome: CreateOutcomeProvisioningFailed, Err: err}), nil
	}

	l = l.With(slog.String(logging.KeyChannelID, channelID))

	ticket, err := s.tickets.Finalize(ctx, res, channelID)
	if err != nil {
		return nil, s.compensate(ctx, l, settings, res, displayName, channelID, err)
	}

	roleMention := ""
	if roleID != "" {
		roleMention = s.directory.RoleMention(roleID)
	}
	content := template.Render(settings.TicketMessageTemplate, s.directory.UserMention(userID), roleMention)
	if err := s.notifier.SendWelcome(ctx, channelID, content); err != nil {
		l.Error("Error sending welcome message", slog.String(logging.KeyError, err.Error()))
	}

	s.audit(ctx, l, settings, &AuditEntry{
		Kind:    AuditKindCreated,
		Ticket:  ticket,
		ActorID: userID,
	})
	s.publish(ctx, l, events.TicketCreated(ticket))

	l.Info("Ticket created", slog.String("ticket_id", ticket.ID))
	return s.createResult(&CreateResult{
		Outcome:   CreateOutcomeCreated,
		ChannelID: channelID,
		Ticket:    ticket,
	}), nil
}

// CloseTicket closes the open ticket of a channel. The channel is deleted in the background after the
// configured delay, use Wait to block until that has happened.
func (s *Service) CloseTicket(ctx context.Context, channelID, closerID string) (*CloseResult, error) {
	l := s.l.With(
		slog.String(logging.KeyChannelID, channelID),
		slog.String(logging.KeyUserID, closerID),
	)

	ticket, prior, err := s.tickets.TransitionToClosed(ctx, channelID, closerID)
	if errors.Is(err, dataaccess.ErrNotOpen) {
		return s.closeResult(&CloseResult{Outcome: CloseOutcomeNotOpenOrNotFound, PriorStatus: prior}), nil
	} else if err != nil {
		return nil, fmt.Errorf("error closing ticket: %w", err)
	}

	l = l.With(slog.String(logging.KeyGuildID, ticket.GuildID))

	settings, err := s.Settings(ctx, ticket.GuildID)
	if err != nil {
		// The ticket is already closed, carry on without a logs channel.
		l.Error("Error getting settings for closed ticket", slog.String(logging.KeyError, err.Error()))
		settings = entities.EffectiveSettings(ticket.GuildID, nil)
	}

	transcript, exportErr := s.export(ctx, channelID)
	if exportErr != nil {
		l.Warn("Error exporting transcript", slog.String(logging.KeyError, exportErr.Error()))
	}

	s.audit(ctx, l, settings, &AuditEntry{
		Kind:       AuditKindClosed,
		Ticket:     ticket,
		ActorID:    closerID,
		Transcript: transcript,
		Err:        exportErr,
	})

	if s.opts.Retention == RetentionDelete {
		if err := s.tickets.DeleteTicket(ctx, channelID); err != nil {
			l.Error("Error deleting closed ticket record", slog.String(logging.KeyError, err.Error()))
		}
	}

	s.publish(ctx, l, events.TicketClosed(ticket))
	s.deleteLater(l, settings, ticket)

	l.Info("Ticket closed", slog.String("ticket_id", ticket.ID))
	return s.closeResult(&CloseResult{
		Outcome:   CloseOutcomeClosed,
		Ticket:    ticket,
		ExportErr: exportErr,
	}), nil
}

// Wait blocks until every channel deletion started by CloseTicket has finished.
func (s *Service) Wait() {
	s.deletions.Wait()
}

// supportRole returns the configured support role if it still exists in the guild.
func (s *Service) supportRole(ctx context.Context, l *slog.Logger, settings *entities.GuildSettings) string {
	if settings.SupportRoleID == "" {
		return ""
	}

	ok, err := s.directory.RoleExists(ctx, settings.GuildID, settings.SupportRoleID)
	if err != nil {
		l.Warn("Error looking up support role, continuing without it",
			slog.String(logging.KeyError, err.Error()),
			slog.String("role_id", settings.SupportRoleID),
		)
		return ""
	} else if !ok {
		l.Warn("Configured support role does not exist", slog.String("role_id", settings.SupportRoleID))
		return ""
	}
	return settings.SupportRoleID
}

func overwrites(guildID, userID, roleID string) []Overwrite {
	o := []Overwrite{
		{ID: guildID, Kind: OverwriteRole, Allow: false},
		{ID: userID, Kind: OverwriteMember, Allow: true},
	}
	if roleID != "" {
		o = append(o, Overwrite{ID: roleID, Kind: OverwriteRole, Allow: true})
	}
	return o
}

func (s *Service) createChannel(ctx context.Context, req *ChannelRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ProvisionTimeout)
	defer cancel()

	t := prometheus.NewTimer(CollaboratorDuration.WithLabelValues("create_channel"))
	defer t.ObserveDuration()

	channelID, err := s.provisioner.CreateChannel(ctx, req)
	if err != nil {
		return "", fmt.Errorf("error creating channel: %w", err)
	}
	return channelID, nil
}

// compensate undoes a provisioned channel whose ticket could not be recorded.
func (s *Service) compensate(
	ctx context.Context,
	l *slog.Logger,
	settings *entities.GuildSettings,
	res *dataaccess.Reservation,
	displayName, channelID string,
	cause error,
) error {
	ctx = context.WithoutCancel(ctx)
	l.Error("Error finalizing ticket, removing channel", slog.String(logging.KeyError, cause.Error()))

	dctx, cancel := context.WithTimeout(ctx, s.opts.ProvisionTimeout)
	delErr := s.provisioner.DeleteChannel(dctx, channelID)
	cancel()
	observeCompensation("delete_channel", delErr)

	relErr := s.tickets.Release(ctx, res)
	observeCompensation("release", relErr)
	if relErr != nil {
		l.Error("Error releasing reservation", slog.String(logging.KeyError, relErr.Error()))
	}

	if delErr == nil {
		return fmt.Errorf("error finalizing ticket: %w", cause)
	}

	orphan := &OrphanChannelError{
		GuildID:   res.GuildID,
		ChannelID: channelID,
		Cause:     cause,
		DeleteErr: delErr,
	}
	l.Error("Orphaned ticket channel", slog.String(logging.KeyError, orphan.Error()))

	s.audit(ctx, l, settings, &AuditEntry{
		Kind: AuditKindOrphan,
		Ticket: &entities.Ticket{
			ID:        res.TicketID,
			GuildID:   res.GuildID,
			UserID:    res.UserID,
			Username:  displayName,
			ChannelID: channelID,
		},
		ActorID: res.UserID,
		Err:     orphan,
	})
	return orphan
}

func (s *Service) export(ctx context.Context, channelID string) (*Transcript, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ExportTimeout)
	defer cancel()

	t := prometheus.NewTimer(CollaboratorDuration.WithLabelValues("export"))
	defer t.ObserveDuration()

	transcript, err := s.exporter.Export(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return transcript, nil
}

func (s *Service) deleteLater(l *slog.Logger, settings *entities.GuildSettings, ticket *entities.Ticket) {
	s.deletions.Add(1)
	go func() {
		defer s.deletions.Done()

		time.Sleep(s.opts.DeleteDelay)

		ctx, cancel := context.WithTimeout(context.Background(), s.opts.ProvisionTimeout)
		err := s.provisioner.DeleteChannel(ctx, ticket.ChannelID)
		cancel()
		if err == nil {
			return
		}

		l.Error("Error deleting closed ticket channel", slog.String(logging.KeyError, err.Error()))

		ctx, cancel = context.WithTimeout(context.Background(), s.opts.ProvisionTimeout)
		defer cancel()
		s.audit(ctx, l, settings, &AuditEntry{
			Kind:    AuditKindDeleteFailed,
			Ticket:  ticket,
			ActorID: ticket.ClosedBy,
			Err:     err,
		})
	}()
}

func (s *Service) audit(ctx context.Context, l *slog.Logger, settings *entities.GuildSettings, entry *AuditEntry) {
	if settings.LogsChannelID == "" {
		return
	}

	if err := s.notifier.SendAudit(ctx, settings.LogsChannelID, entry); err != nil {
		l.Error("Error sending audit entry",
			slog.String(logging.KeyError, err.Error()),
			slog.String("kind", string(entry.Kind)),
		)
	}
}

func (s *Service) publish(ctx context.Context, l *slog.Logger, e *events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		l.Warn("Error publishing event",
			slog.String(logging.KeyError, err.Error()),
			slog.String("type", string(e.Type)),
		)
	}
}

func (s *Service) createResult(r *CreateResult) *CreateResult {
	TicketOutcomes.WithLabelValues("create", r.Outcome.String()).Inc()
	return r
}

func (s *Service) closeResult(r *CloseResult) *CloseResult {
	TicketOutcomes.WithLabelValues("close", r.Outcome.String()).Inc()
	return r
}
