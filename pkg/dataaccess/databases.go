package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/ticketbot/pkg/dataaccess/connection"
	"github.com/Jacobbrewer1/ticketbot/pkg/entities"
)

const (
	// BackendMemory keeps everything in process memory.
	BackendMemory = "memory"

	// BackendMongo stores in MongoDB.
	BackendMongo = "mongo"

	// BackendSqlite stores in a SQLite file.
	BackendSqlite = "sqlite"
)

// defaultDatabase is the database (or file stem) used when none is configured.
const defaultDatabase = "ticketbot"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyOpen is returned by Reserve when the user already has a pending or open ticket.
	ErrAlreadyOpen = errors.New("user already has an open ticket")

	// ErrLimitReached is returned by Reserve when the guild is at its open ticket limit.
	ErrLimitReached = errors.New("open ticket limit reached")

	// ErrNotOpen is returned by TransitionToClosed when the channel has no open ticket.
	ErrNotOpen = errors.New("no open ticket for channel")

	// ErrNotPending is returned by Finalize when the reservation no longer exists.
	ErrNotPending = errors.New("reservation is not pending")
)

// Reservation is a claimed slot for a ticket that has not yet been bound to a channel.
type Reservation struct {
	// TicketID is the ID of the pending ticket record.
	TicketID string

	// GuildID is the guild the slot was claimed in.
	GuildID string

	// UserID is the user the slot was claimed for.
	UserID string
}

// SettingsStore stores the ticketing settings of guilds.
type SettingsStore interface {
	// GetSettings gets the stored settings of a guild. Returns ErrNotFound if the guild has none.
	GetSettings(ctx context.Context, guildID string) (*entities.GuildSettings, error)

	// UpsertSettings atomically sets the non-nil fields of the update, creating the record if needed.
	UpsertSettings(ctx context.Context, guildID string, update *entities.SettingsUpdate) error
}

// TicketStore stores tickets. All mutations are atomic with respect to each other.
type TicketStore interface {
	// GetTicket gets the ticket bound to a channel. Returns ErrNotFound if there is none.
	GetTicket(ctx context.Context, channelID string) (*entities.Ticket, error)

	// Reserve claims a ticket slot for the user in a single atomic step. It returns ErrAlreadyOpen if the
	// user already has a pending or open ticket in the guild, and ErrLimitReached if the guild already has
	// limit pending or open tickets.
	Reserve(ctx context.Context, guildID, userID, username string, limit int) (*Reservation, error)

	// Finalize binds a reservation to its channel and opens the ticket.
	Finalize(ctx context.Context, res *Reservation, channelID string) (*entities.Ticket, error)

	// Release drops a reservation that was never finalized. Releasing twice is a no-op.
	Release(ctx context.Context, res *Reservation) error

	// TransitionToClosed atomically closes the open ticket of a channel. It returns ErrNotOpen, along with
	// the status the channel's ticket had (empty if there is none), when there is no open ticket.
	TransitionToClosed(ctx context.Context, channelID, closedBy string) (*entities.Ticket, entities.TicketStatus, error)

	// ListOpenTickets lists the open tickets of a guild, oldest first.
	ListOpenTickets(ctx context.Context, guildID string) ([]*entities.Ticket, error)

	// DeleteTicket deletes the ticket record of a channel.
	DeleteTicket(ctx context.Context, channelID string) error

	// DeleteAllTickets deletes every ticket record of a guild and returns how many were removed.
	DeleteAllTickets(ctx context.Context, guildID string) (int64, error)
}

// Pinger checks that the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is a complete storage backend.
type Store interface {
	SettingsStore
	TicketStore
	Pinger

	// Close releases the resources of the store.
	Close(ctx context.Context) error
}

// Config selects and configures a storage backend.
type Config struct {
	// Backend is one of BackendMemory, BackendMongo or BackendSqlite.
	Backend string `yaml:"backend"`

	// MongoURI is the connection string for BackendMongo.
	MongoURI string `yaml:"mongo_uri"`

	// Database is the Mongo database name.
	Database string `yaml:"database"`

	// SqlitePath is the database file for BackendSqlite.
	SqlitePath string `yaml:"sqlite_path"`
}

// NewStore opens the configured storage backend.
func NewStore(ctx context.Context, l *slog.Logger, cfg *Config) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		l.Warn("Using the in-memory store, tickets will not survive a restart")
		return NewMemoryStore(), nil
	case BackendMongo, "mongodb":
		conn := new(connection.MongoDB)
		conn.ConnectionString = cfg.MongoURI

		client, err := conn.Connect(ctx)
		if err != nil {
			return nil, fmt.Errorf("error connecting to mongo: %w", err)
		}

		db := cfg.Database
		if db == "" {
			db = defaultDatabase
		}
		return NewMongoStore(ctx, l, client, db)
	case BackendSqlite:
		path := cfg.SqlitePath
		if path == "" {
			path = defaultDatabase + ".db"
		}

		db, err := connection.OpenSqlite(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("error opening sqlite: %w", err)
		}
		return NewSqliteStore(ctx, l, db)
	default:
		return nil, fmt.Errorf("unsupported store backend %q (use %q, %q or %q)", cfg.Backend, BackendMongo, BackendSqlite, BackendMemory)
	}
}
