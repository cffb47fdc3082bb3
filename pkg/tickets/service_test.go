package tickets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Jacobbrewer1/ticketbot/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketbot/pkg/entities"
	"github.com/Jacobbrewer1/ticketbot/pkg/events"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestCreateTicket_LimitReached(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.UpdateSettings(ctx, "g1", &entities.SettingsUpdate{TicketLimit: ptr(1)}))

	res, err := svc.CreateTicket(ctx, "g1", "u1", "User One")
	require.NoError(t, err)
	require.Equal(t, CreateOutcomeCreated, res.Outcome)
	require.Equal(t, "c1", res.ChannelID)

	res, err = svc.CreateTicket(ctx, "g1", "u2", "User Two")
	require.NoError(t, err)
	require.Equal(t, CreateOutcomeLimitReached, res.Outcome)
	require.Len(t, f.provisioner.created, 1)

	// The limit is per guild.
	res, err = svc.CreateTicket(ctx, "g2", "u2", "User Two")
	require.NoError(t, err)
	require.Equal(t, CreateOutcomeCreated, res.Outcome)
}

func TestCreateTicket_AlreadyOpen(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	res, err := svc.CreateTicket(ctx, "g1", "u1", "User One")
	require.NoError(t, err)
	require.Equal(t, CreateOutcomeCreated, res.Outcome)

	res, err = svc.CreateTicket(ctx, "g1", "u1", "User One")
	require.NoError(t, err)
	require.Equal(t, CreateOutcomeAlreadyOpen, res.Outcome)
	require.Empty(t, res.ChannelID)
	require.Len(t, f.provisioner.created, 1)
}

func TestCreateTicket_Channel(t *testing.T) {
	tests := []struct {
		name           string
		update         *entities.SettingsUpdate
		roles          map[string]bool
		wantOverwrites []Overwrite
		wantParent     string
		wantWelcome    string
	}{
		{
			name:   "no support role",
			update: &entities.SettingsUpdate{TicketMessageTemplate: ptr("@User welcome, ask @SupportRole")},
			wantOverwrites: []Overwrite{
				{ID: "g1", Kind: OverwriteRole, Allow: false},
				{ID: "u1", Kind: OverwriteMember, Allow: true},
			},
			wantWelcome: "<@u1> welcome, ask",
		},
		{
			name: "support role and category",
			update: &entities.SettingsUpdate{
				SupportRoleID:         ptr("r1"),
				TicketCategoryID:      ptr("cat"),
				TicketMessageTemplate: ptr("@User welcome, ask @SupportRole"),
			},
			roles: map[string]bool{"r1": true},
			wantOverwrites: []Overwrite{
				{ID: "g1", Kind: OverwriteRole, Allow: false},
				{ID: "u1", Kind: OverwriteMember, Allow: true},
				{ID: "r1", Kind: OverwriteRole, Allow: true},
			},
			wantParent:  "cat",
			wantWelcome: "<@u1> welcome, ask <@&r1>",
		},
		{
			name: "support role deleted from guild",
			update: &entities.SettingsUpdate{
				SupportRoleID:         ptr("gone"),
				TicketMessageTemplate: ptr("@User welcome, ask @SupportRole"),
			},
			wantOverwrites: []Overwrite{
				{ID: "g1", Kind: OverwriteRole, Allow: false},
				{ID: "u1", Kind: OverwriteMember, Allow: true},
			},
			wantWelcome: "<@u1> welcome, ask",
		},
		{
			name:   "default message",
			update: &entities.SettingsUpdate{},
			wantOverwrites: []Overwrite{
				{ID: "g1", Kind: OverwriteRole, Allow: false},
				{ID: "u1", Kind: OverwriteMember, Allow: true},
			},
			wantWelcome: "<@u1> your ticket has been created. will be with you shortly.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.roles != nil {
				f.directory.roles = tt.roles
			}
			svc := f.service()
			ctx := context.Background()

			require.NoError(t, svc.UpdateSettings(ctx, "g1", tt.update))

			res, err := svc.CreateTicket(ctx, "g1", "u1", "User One")
			require.NoError(t, err)
			require.Equal(t, CreateOutcomeCreated, res.Outcome)

			require.Len(t, f.provisioner.created, 1)
			req := f.provisioner.created[0]
			require.Equal(t, "g1", req.GuildID)
			require.Equal(t, "ticket-user-one", req.Name)
			require.Equal(t, tt.wantParent, req.ParentID)
			require.Equal(t, tt.wantOverwrites, req.Overwrites)

			require.Equal(t, tt.wantWelcome, f.notifier.welcomes[res.ChannelID])
		})
	}
}

func TestCreateTicket_Audit(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	// No logs channel, no audit.
	_, err := svc.CreateTicket(ctx, "g1", "u1", "User One")
	require.NoError(t, err)
	require.Empty(t, f.notifier.audits)

	require.NoError(t, svc.UpdateSettings(ctx, "g1", &entities.SettingsUpdate{LogsChannelID: ptr("logs")}))

	res, err := svc.CreateTicket(ctx, "g1", "u2", "User Two")
	require.NoError(t, err)

	created := f.notifier.auditsOf(AuditKindCreated)
	require.Len(t, created, 1)
	require.Equal(t, "logs", created[0].channelID)
	require.Equal(t, res.ChannelID, created[0].entry.Ticket.ChannelID)
	require.Equal(t, "u2", created[0].entry.ActorID)

	require.Equal(t, []events.Type{events.TypeTicketCreated, events.TypeTicketCreated}, f.publisher.types())
}

func TestCreateTicket_WelcomeFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.notifier.welcomeErr = errBoom
	svc := f.service()

	res, err := svc.CreateTicket(context.Background(), "g1", "u1", "User One")
	require.NoError(t, err)
	require.Equal(t, CreateOutcomeCreated, res.Outcome)
}

func TestCreateTicket_ProvisioningFailed(t *testing.T) {
	f := newFixture()
	f.provisioner.createErr = errBoom
	svc := f.service()
	ctx := context.Background()

	res, err := svc.CreateTicket(ctx, "g1", "u1", "User One")
	require.NoError(t, err)
	require.Equal(t, CreateOutcomeProvisioningFailed, res.Outcome)
	require.ErrorIs(t, res.Err, errBoom)

	open, err := svc.OpenTickets(ctx, "g1")
	require.NoError(t, err)
	require.Empty(t, open)

	// The reservation was released, so the user can try again.
	f.provisioner.createErr = nil
	res, err = svc.CreateTicket(ctx, "g1", "u1", "User One")
	require.NoError(t, err)
	require.Equal(t, CreateOutcomeCreated, res.Outcome)
}

func TestCreateTicket_ProvisioningTimeout(t *testing.T) {
	f := newFixture()
	f.provisioner.block = true
	f.opts.ProvisionTimeout = 10 * time.Millisecond
	svc := f.service()

	res, err := svc.CreateTicket(context.Background(), "g1", "u1", "User One")
	require.NoError(t, err)
	require.Equal(t, CreateOutcomeProvisioningFailed, res.Outcome)
	require.ErrorIs(t, res.Err, context.DeadlineExceeded)

	_, err = f.store.Reserve(context.Background(), "g1", "u1", "User One", 1)
	require.NoError(t, err)
}

func TestCreateTicket_FinalizeFailure(t *testing.T) {
	f := newFixture()
	f.tickets = &failingFinalizeStore{MemoryStore: f.store}
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.UpdateSettings(ctx, "g1", &entities.SettingsUpdate{LogsChannelID: ptr("logs")}))

	res, err := svc.CreateTicket(ctx, "g1", "u1", "User One")
	require.ErrorIs(t, err, errBoom)
	require.Nil(t, res)

	orphan := new(OrphanChannelError)
	require.False(t, errors.As(err, &orphan))

	// The channel was removed and nothing was recorded.
	require.Equal(t, []string{"c1"}, f.provisioner.deletedChannels())
	_, err = f.store.GetTicket(ctx, "c1")
	require.ErrorIs(t, err, dataaccess.ErrNotFound)
	_, err = f.store.Reserve(ctx, "g1", "u1", "User One", 1)
	require.NoError(t, err)

	require.Empty(t, f.notifier.audits)
	require.Empty(t, f.publisher.types())
}

func TestCreateTicket_OrphanChannel(t *testing.T) {
	f := newFixture()
	f.tickets = &failingFinalizeStore{MemoryStore: f.store}
	f.provisioner.deleteErr = errors.New("missing access")
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.UpdateSettings(ctx, "g1", &entities.SettingsUpdate{LogsChannelID: ptr("logs")}))

	_, err := svc.CreateTicket(ctx, "g1", "u1", "User One")
	require.Error(t, err)

	orphan := new(OrphanChannelError)
	require.ErrorAs(t, err, &orphan)
	require.Equal(t, "c1", orphan.ChannelID)
	require.Equal(t, "g1", orphan.GuildID)
	require.ErrorIs(t, err, errBoom)

	audits := f.notifier.auditsOf(AuditKindOrphan)
	require.Len(t, audits, 1)
	require.Equal(t, "logs", audits[0].channelID)
	require.Equal(t, "c1", audits[0].entry.Ticket.ChannelID)
	require.Equal(t, "u1", audits[0].entry.Ticket.UserID)

	// No record survives either way.
	_, err = f.store.GetTicket(ctx, "c1")
	require.ErrorIs(t, err, dataaccess.ErrNotFound)
}

func TestCloseTicket(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.UpdateSettings(ctx, "g1", &entities.SettingsUpdate{LogsChannelID: ptr("logs")}))

	created, err := svc.CreateTicket(ctx, "g1", "u1", "User One")
	require.NoError(t, err)

	res, err := svc.CloseTicket(ctx, created.ChannelID, "staff")
	require.NoError(t, err)
	require.Equal(t, CloseOutcomeClosed, res.Outcome)
	require.NoError(t, res.ExportErr)
	require.Equal(t, entities.TicketStatusClosed, res.Ticket.Status)
	require.Equal(t, "staff", res.Ticket.ClosedBy)

	got, err := f.store.GetTicket(ctx, created.ChannelID)
	require.NoError(t, err)
	require.Equal(t, entities.TicketStatusClosed, got.Status)

	closed := f.notifier.auditsOf(AuditKindClosed)
	require.Len(t, closed, 1)
	require.Equal(t, "logs", closed[0].channelID)
	require.NotNil(t, closed[0].entry.Transcript)
	require.NoError(t, closed[0].entry.Err)

	svc.Wait()
	require.Equal(t, []string{created.ChannelID}, f.provisioner.deletedChannels())
	require.Empty(t, f.notifier.auditsOf(AuditKindDeleteFailed))

	require.Equal(t, []events.Type{events.TypeTicketCreated, events.TypeTicketClosed}, f.publisher.types())

	// Closing again is refused and changes nothing.
	res, err = svc.CloseTicket(ctx, created.ChannelID, "staff")
	require.NoError(t, err)
	require.Equal(t, CloseOutcomeNotOpenOrNotFound, res.Outcome)
	require.Equal(t, entities.TicketStatusClosed, res.PriorStatus)
	require.Len(t, f.notifier.auditsOf(AuditKindClosed), 1)

	svc.Wait()
	require.Len(t, f.provisioner.deletedChannels(), 1)
}

func TestCloseTicket_Unknown(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.UpdateSettings(ctx, "g1", &entities.SettingsUpdate{LogsChannelID: ptr("logs")}))
	created, err := svc.CreateTicket(ctx, "g1", "u1", "User One")
	require.NoError(t, err)

	res, err := svc.CloseTicket(ctx, "c_unknown", "staff")
	require.NoError(t, err)
	require.Equal(t, CloseOutcomeNotOpenOrNotFound, res.Outcome)
	require.Empty(t, res.PriorStatus)

	svc.Wait()
	require.Empty(t, f.provisioner.deletedChannels())
	require.Empty(t, f.notifier.auditsOf(AuditKindClosed))

	got, err := f.store.GetTicket(ctx, created.ChannelID)
	require.NoError(t, err)
	require.Equal(t, entities.TicketStatusOpen, got.Status)
}

func TestCloseTicket_ExportFailed(t *testing.T) {
	f := newFixture()
	f.exporter.err = errBoom
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.UpdateSettings(ctx, "g1", &entities.SettingsUpdate{LogsChannelID: ptr("logs")}))
	created, err := svc.CreateTicket(ctx, "g1", "u1", "User One")
	require.NoError(t, err)

	res, err := svc.CloseTicket(ctx, created.ChannelID, "staff")
	require.NoError(t, err)
	require.Equal(t, CloseOutcomeClosed, res.Outcome)
	require.ErrorIs(t, res.ExportErr, ErrExportFailed)
	require.ErrorIs(t, res.ExportErr, errBoom)

	closed := f.notifier.auditsOf(AuditKindClosed)
	require.Len(t, closed, 1)
	require.Nil(t, closed[0].entry.Transcript)
	require.ErrorIs(t, closed[0].entry.Err, ErrExportFailed)

	got, err := f.store.GetTicket(ctx, created.ChannelID)
	require.NoError(t, err)
	require.Equal(t, entities.TicketStatusClosed, got.Status)

	svc.Wait()
}

func TestCloseTicket_DeleteFailed(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.UpdateSettings(ctx, "g1", &entities.SettingsUpdate{LogsChannelID: ptr("logs")}))
	created, err := svc.CreateTicket(ctx, "g1", "u1", "User One")
	require.NoError(t, err)

	f.provisioner.mu.Lock()
	f.provisioner.deleteErr = errBoom
	f.provisioner.mu.Unlock()

	res, err := svc.CloseTicket(ctx, created.ChannelID, "staff")
	require.NoError(t, err)
	require.Equal(t, CloseOutcomeClosed, res.Outcome)

	svc.Wait()

	failed := f.notifier.auditsOf(AuditKindDeleteFailed)
	require.Len(t, failed, 1)
	require.ErrorIs(t, failed[0].entry.Err, errBoom)
	require.Equal(t, created.ChannelID, failed[0].entry.Ticket.ChannelID)

	// The ticket stays closed.
	got, err := f.store.GetTicket(ctx, created.ChannelID)
	require.NoError(t, err)
	require.Equal(t, entities.TicketStatusClosed, got.Status)
}

func TestCloseTicket_RetentionDelete(t *testing.T) {
	f := newFixture()
	f.opts.Retention = RetentionDelete
	svc := f.service()
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, "g1", "u1", "User One")
	require.NoError(t, err)

	res, err := svc.CloseTicket(ctx, created.ChannelID, "staff")
	require.NoError(t, err)
	require.Equal(t, CloseOutcomeClosed, res.Outcome)

	_, err = f.store.GetTicket(ctx, created.ChannelID)
	require.ErrorIs(t, err, dataaccess.ErrNotFound)

	res, err = svc.CloseTicket(ctx, created.ChannelID, "staff")
	require.NoError(t, err)
	require.Equal(t, CloseOutcomeNotOpenOrNotFound, res.Outcome)

	svc.Wait()
}

func TestCreateTicket_ConcurrentSameUser(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	const workers = 25
	outcomes := make(chan CreateOutcome, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.CreateTicket(ctx, "g1", "u1", "User One")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			outcomes <- res.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	counts := make(map[CreateOutcome]int)
	for o := range outcomes {
		counts[o]++
	}
	require.Equal(t, 1, counts[CreateOutcomeCreated])
	require.Equal(t, workers-1, counts[CreateOutcomeAlreadyOpen])

	open, err := svc.OpenTickets(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, open, 1)
}

func TestCreateTicket_ConcurrentLimit(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	const (
		workers = 25
		limit   = 5
	)
	require.NoError(t, svc.UpdateSettings(ctx, "g1", &entities.SettingsUpdate{TicketLimit: ptr(limit)}))

	outcomes := make(chan CreateOutcome, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.CreateTicket(ctx, "g1", fmt.Sprintf("u%d", i), "user")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			outcomes <- res.Outcome
		}(i)
	}
	wg.Wait()
	close(outcomes)

	counts := make(map[CreateOutcome]int)
	for o := range outcomes {
		counts[o]++
	}
	require.Equal(t, limit, counts[CreateOutcomeCreated])
	require.Equal(t, workers-limit, counts[CreateOutcomeLimitReached])

	open, err := svc.OpenTickets(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, open, limit)
}

func TestCreateAndCloseRace(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, "g1", "u1", "User One")
	require.NoError(t, err)

	const closers = 10
	outcomes := make(chan CloseOutcome, closers)

	var wg sync.WaitGroup
	for i := 0; i < closers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.CloseTicket(ctx, created.ChannelID, "staff")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			outcomes <- res.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)
	svc.Wait()

	closedCount := 0
	for o := range outcomes {
		if o == CloseOutcomeClosed {
			closedCount++
		}
	}
	require.Equal(t, 1, closedCount)
	require.Len(t, f.provisioner.deletedChannels(), 1)
}

func TestSettings(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	got, err := svc.Settings(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, entities.EffectiveSettings("g1", nil), got)
	require.Equal(t, entities.DefaultTicketLimit, got.TicketLimit)

	require.ErrorIs(t, svc.UpdateSettings(ctx, "g1", &entities.SettingsUpdate{TicketLimit: ptr(0)}), ErrInvalidLimit)

	require.NoError(t, svc.UpdateSettings(ctx, "g1", &entities.SettingsUpdate{PanelDescription: ptr("Need help?")}))
	require.NoError(t, svc.UpdateSettings(ctx, "g1", &entities.SettingsUpdate{LogsChannelID: ptr("logs")}))

	got, err = svc.Settings(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, "Need help?", got.PanelDescription)
	require.Equal(t, "logs", got.LogsChannelID)
	require.Equal(t, entities.DefaultTicketMessageTemplate, got.TicketMessageTemplate)
}

func TestWipe(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	for _, u := range []string{"u1", "u2"} {
		res, err := svc.CreateTicket(ctx, "g1", u, u)
		require.NoError(t, err)
		require.Equal(t, CreateOutcomeCreated, res.Outcome)
	}

	n, err := svc.Wipe(ctx, "g1")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	open, err := svc.OpenTickets(ctx, "g1")
	require.NoError(t, err)
	require.Empty(t, open)

	// Live channels are left alone.
	require.Empty(t, f.provisioner.deletedChannels())

	res, err := svc.CreateTicket(ctx, "g1", "u1", "u1")
	require.NoError(t, err)
	require.Equal(t, CreateOutcomeCreated, res.Outcome)
}

func TestParseRetention(t *testing.T) {
	tests := []struct {
		in      string
		want    Retention
		wantErr bool
	}{
		{in: "", want: RetentionRetain},
		{in: "retain", want: RetentionRetain},
		{in: "delete", want: RetentionDelete},
		{in: "forever", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRetention(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
