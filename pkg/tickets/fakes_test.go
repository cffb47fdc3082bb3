package tickets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Jacobbrewer1/ticketbot/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketbot/pkg/entities"
	"github.com/Jacobbrewer1/ticketbot/pkg/events"
)

var errBoom = errors.New("boom")

type fakeProvisioner struct {
	mu sync.Mutex

	next      int
	createErr error
	deleteErr error

	// block makes CreateChannel wait for the context to end.
	block bool

	created []*ChannelRequest
	deleted []string
}

func (p *fakeProvisioner) CreateChannel(ctx context.Context, req *ChannelRequest) (string, error) {
	if p.block {
		<-ctx.Done()
		return "", ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.createErr != nil {
		return "", p.createErr
	}
	p.next++
	p.created = append(p.created, req)
	return fmt.Sprintf("c%d", p.next), nil
}

func (p *fakeProvisioner) DeleteChannel(_ context.Context, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleteErr != nil {
		return p.deleteErr
	}
	p.deleted = append(p.deleted, channelID)
	return nil
}

func (p *fakeProvisioner) deletedChannels() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.deleted...)
}

type fakeExporter struct {
	err error
}

func (e *fakeExporter) Export(_ context.Context, channelID string) (*Transcript, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &Transcript{
		Name:        channelID + ".txt",
		ContentType: "text/plain",
		Data:        []byte("transcript of " + channelID),
	}, nil
}

type sentAudit struct {
	channelID string
	entry     *AuditEntry
}

type fakeNotifier struct {
	mu sync.Mutex

	welcomeErr error

	welcomes map[string]string
	audits   []sentAudit
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{welcomes: make(map[string]string)}
}

func (n *fakeNotifier) SendWelcome(_ context.Context, channelID, content string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.welcomeErr != nil {
		return n.welcomeErr
	}
	n.welcomes[channelID] = content
	return nil
}

func (n *fakeNotifier) SendAudit(_ context.Context, channelID string, entry *AuditEntry) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.audits = append(n.audits, sentAudit{channelID: channelID, entry: entry})
	return nil
}

func (n *fakeNotifier) auditsOf(kind AuditKind) []sentAudit {
	n.mu.Lock()
	defer n.mu.Unlock()

	found := make([]sentAudit, 0)
	for _, a := range n.audits {
		if a.entry.Kind == kind {
			found = append(found, a)
		}
	}
	return found
}

type fakeDirectory struct {
	roles map[string]bool
	err   error
}

func (d *fakeDirectory) RoleExists(_ context.Context, _, roleID string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.roles[roleID], nil
}

func (d *fakeDirectory) UserMention(userID string) string {
	return "<@" + userID + ">"
}

func (d *fakeDirectory) RoleMention(roleID string) string {
	return "<@&" + roleID + ">"
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*events.Event
}

func (p *fakePublisher) Publish(_ context.Context, e *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]events.Type, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

// failingFinalizeStore fails every Finalize.
type failingFinalizeStore struct {
	*dataaccess.MemoryStore
}

func (s *failingFinalizeStore) Finalize(context.Context, *dataaccess.Reservation, string) (*entities.Ticket, error) {
	return nil, errBoom
}

type fixture struct {
	store       *dataaccess.MemoryStore
	provisioner *fakeProvisioner
	exporter    *fakeExporter
	notifier    *fakeNotifier
	directory   *fakeDirectory
	publisher   *fakePublisher
	opts        Options

	// tickets overrides the ticket store.
	tickets dataaccess.TicketStore
}

func newFixture() *fixture {
	return &fixture{
		store:       dataaccess.NewMemoryStore(),
		provisioner: new(fakeProvisioner),
		exporter:    new(fakeExporter),
		notifier:    newFakeNotifier(),
		directory:   &fakeDirectory{roles: map[string]bool{}},
		publisher:   new(fakePublisher),
		opts:        Options{DeleteDelay: time.Millisecond},
	}
}

func (f *fixture) service() *Service {
	var tickets dataaccess.TicketStore = f.store
	if f.tickets != nil {
		tickets = f.tickets
	}

	return NewService(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		f.store,
		tickets,
		f.provisioner,
		f.exporter,
		f.notifier,
		f.directory,
		f.publisher,
		f.opts,
	)
}
