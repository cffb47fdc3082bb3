package dataaccess

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Jacobbrewer1/ticketbot/pkg/custom"
	"github.com/Jacobbrewer1/ticketbot/pkg/entities"
	"github.com/google/uuid"
)

// MemoryStore keeps settings and tickets in memory. A single mutex guards every operation, which makes each
// of them atomic.
type MemoryStore struct {
	mu sync.Mutex

	// settings is keyed by guild ID.
	settings map[string]*entities.GuildSettings

	// tickets is keyed by ticket ID.
	tickets map[string]*entities.Ticket

	// channels maps a channel ID to the ID of the ticket bound to it.
	channels map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		settings: make(map[string]*entities.GuildSettings),
		tickets:  make(map[string]*entities.Ticket),
		channels: make(map[string]string),
	}
}

func (m *MemoryStore) GetSettings(_ context.Context, guildID string) (*entities.GuildSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.settings[guildID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) UpsertSettings(_ context.Context, guildID string, update *entities.SettingsUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.settings[guildID]
	if !ok {
		s = &entities.GuildSettings{GuildID: guildID}
		m.settings[guildID] = s
	}
	update.Apply(s)
	return nil
}

func (m *MemoryStore) GetTicket(_ context.Context, channelID string) (*entities.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.byChannel(channelID)
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) Reserve(_ context.Context, guildID, userID, username string, limit int) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := 0
	for _, t := range m.tickets {
		if t.GuildID != guildID || !t.Status.Active() {
			continue
		}
		if t.UserID == userID {
			return nil, ErrAlreadyOpen
		}
		active++
	}
	if active >= limit {
		return nil, ErrLimitReached
	}

	t := &entities.Ticket{
		ID:        uuid.NewString(),
		GuildID:   guildID,
		UserID:    userID,
		Username:  username,
		Status:    entities.TicketStatusPending,
		CreatedAt: custom.Now(),
	}
	m.tickets[t.ID] = t

	return &Reservation{
		TicketID: t.ID,
		GuildID:  guildID,
		UserID:   userID,
	}, nil
}

func (m *MemoryStore) Finalize(_ context.Context, res *Reservation, channelID string) (*entities.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[res.TicketID]
	if !ok || t.Status != entities.TicketStatusPending {
		return nil, ErrNotPending
	}
	if _, taken := m.channels[channelID]; taken {
		return nil, fmt.Errorf("channel %s is already bound to a ticket", channelID)
	}

	t.ChannelID = channelID
	t.Status = entities.TicketStatusOpen
	m.channels[channelID] = t.ID

	cp := *t
	return &cp, nil
}

func (m *MemoryStore) Release(_ context.Context, res *Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.tickets[res.TicketID]; ok && t.Status == entities.TicketStatusPending {
		delete(m.tickets, res.TicketID)
	}
	return nil
}

func (m *MemoryStore) TransitionToClosed(_ context.Context, channelID, closedBy string) (*entities.Ticket, entities.TicketStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.byChannel(channelID)
	if !ok {
		return nil, "", ErrNotOpen
	}
	if t.Status != entities.TicketStatusOpen {
		return nil, t.Status, ErrNotOpen
	}

	t.Status = entities.TicketStatusClosed
	t.ClosedBy = closedBy
	t.ClosedAt = custom.Now()

	cp := *t
	return &cp, entities.TicketStatusOpen, nil
}

func (m *MemoryStore) ListOpenTickets(_ context.Context, guildID string) ([]*entities.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	open := make([]*entities.Ticket, 0)
	for _, t := range m.tickets {
		if t.GuildID == guildID && t.Status == entities.TicketStatusOpen {
			cp := *t
			open = append(open, &cp)
		}
	}

	sort.Slice(open, func(i, j int) bool {
		if open[i].CreatedAt.Time().Equal(open[j].CreatedAt.Time()) {
			return open[i].ID < open[j].ID
		}
		return open[i].CreatedAt.Time().Before(open[j].CreatedAt.Time())
	})
	return open, nil
}

func (m *MemoryStore) DeleteTicket(_ context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.channels[channelID]
	if !ok {
		return ErrNotFound
	}
	delete(m.channels, channelID)
	delete(m.tickets, id)
	return nil
}

func (m *MemoryStore) DeleteAllTickets(_ context.Context, guildID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, t := range m.tickets {
		if t.GuildID != guildID {
			continue
		}
		if t.ChannelID != "" {
			delete(m.channels, t.ChannelID)
		}
		delete(m.tickets, id)
		n++
	}
	return n, nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryStore) Close(_ context.Context) error {
	return nil
}

// byChannel must be called with the lock held.
func (m *MemoryStore) byChannel(channelID string) (*entities.Ticket, bool) {
	id, ok := m.channels[channelID]
	if !ok {
		return nil, false
	}
	t, ok := m.tickets[id]
	return t, ok
}
