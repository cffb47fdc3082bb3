package events

import (
	"context"
	"time"

	"github.com/Jacobbrewer1/ticketbot/pkg/entities"
)

// Type is the type of a lifecycle event. It doubles as the routing key.
type Type string

const (
	// TypeTicketCreated is published when a ticket channel has been provisioned and recorded.
	TypeTicketCreated Type = "ticket.created"

	// TypeTicketClosed is published when a ticket has been closed.
	TypeTicketClosed Type = "ticket.closed"
)

// Event is a ticket lifecycle event.
type Event struct {
	Type       Type      `json:"type"`
	TicketID   string    `json:"ticket_id"`
	GuildID    string    `json:"guild_id"`
	ChannelID  string    `json:"channel_id"`
	UserID     string    `json:"user_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher publishes lifecycle events. Publishing is best effort, callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
}

// TicketCreated builds the event for a newly opened ticket.
func TicketCreated(t *entities.Ticket) *Event {
	return newEvent(TypeTicketCreated, t, t.UserID)
}

// TicketClosed builds the event for a closed ticket.
func TicketClosed(t *entities.Ticket) *Event {
	e := newEvent(TypeTicketClosed, t, t.ClosedBy)
	if !t.ClosedAt.IsZero() {
		e.OccurredAt = t.ClosedAt.Time()
	}
	return e
}

func newEvent(typ Type, t *entities.Ticket, actorID string) *Event {
	return &Event{
		Type:       typ,
		TicketID:   t.ID,
		GuildID:    t.GuildID,
		ChannelID:  t.ChannelID,
		UserID:     t.UserID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

type noop struct{}

// NewNoop returns a publisher that drops every event.
func NewNoop() Publisher {
	return noop{}
}

func (noop) Publish(context.Context, *Event) error {
	return nil
}
