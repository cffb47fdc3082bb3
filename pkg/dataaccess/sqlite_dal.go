package dataaccess

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Jacobbrewer1/ticketbot/pkg/custom"
	"github.com/Jacobbrewer1/ticketbot/pkg/dataaccess/monitoring"
	"github.com/Jacobbrewer1/ticketbot/pkg/entities"
	"github.com/Jacobbrewer1/ticketbot/pkg/logging"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteDalName = "sqlite_dal"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tickets (
	id          TEXT PRIMARY KEY,
	guild_id    TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	username    TEXT NOT NULL DEFAULT '',
	channel_id  TEXT,
	status      TEXT NOT NULL,
	closed_by   TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	closed_at   TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_channel ON tickets(channel_id) WHERE channel_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_active_user ON tickets(guild_id, user_id) WHERE status IN ('pending', 'open');
CREATE INDEX IF NOT EXISTS idx_tickets_guild_status ON tickets(guild_id, status);

CREATE TABLE IF NOT EXISTS settings (
	guild_id                TEXT PRIMARY KEY,
	logs_channel_id         TEXT NOT NULL DEFAULT '',
	support_role_id         TEXT NOT NULL DEFAULT '',
	ticket_category_id      TEXT NOT NULL DEFAULT '',
	ticket_limit            INTEGER NOT NULL DEFAULT 0,
	panel_description       TEXT NOT NULL DEFAULT '',
	ticket_message_template TEXT NOT NULL DEFAULT ''
);
`

const ticketColumns = `id, guild_id, user_id, username, COALESCE(channel_id, ''), status, closed_by, created_at, closed_at`

// SqliteStore is a Store backed by a SQLite database.
type SqliteStore struct {
	// l is the logger.
	l *slog.Logger

	// db is the database.
	db *sql.DB
}

// NewSqliteStore creates the store on an open database and creates the schema if it does not exist.
func NewSqliteStore(ctx context.Context, l *slog.Logger, db *sql.DB) (*SqliteStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("error creating sqlite schema: %w", err)
	}

	return &SqliteStore{
		l:  l.With(slog.String(logging.KeyDal, sqliteDalName)),
		db: db,
	}, nil
}

func (s *SqliteStore) GetSettings(ctx context.Context, guildID string) (settings *entities.GuildSettings, err error) {
	done := monitoring.Track(sqliteDalName, "get_settings", BackendSqlite)
	defer func() { done(ignoreExpected(err)) }()

	settings = new(entities.GuildSettings)
	err = s.db.QueryRowContext(ctx, `
		SELECT guild_id, logs_channel_id, support_role_id, ticket_category_id, ticket_limit, panel_description, ticket_message_template
		FROM settings WHERE guild_id = ?`, guildID).Scan(
		&settings.GuildID,
		&settings.LogsChannelID,
		&settings.SupportRoleID,
		&settings.TicketCategoryID,
		&settings.TicketLimit,
		&settings.PanelDescription,
		&settings.TicketMessageTemplate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting settings: %w", err)
	}
	return settings, nil
}

// UpsertSettings only touches the columns present in the update, unlike INSERT OR REPLACE which resets the
// rest of the row.
func (s *SqliteStore) UpsertSettings(ctx context.Context, guildID string, update *entities.SettingsUpdate) (err error) {
	if update.IsEmpty() {
		return nil
	}

	done := monitoring.Track(sqliteDalName, "upsert_settings", BackendSqlite)
	defer func() { done(err) }()

	cols := []string{"guild_id"}
	args := []any{guildID}
	add := func(col string, v any) {
		cols = append(cols, col)
		args = append(args, v)
	}

	if update.LogsChannelID != nil {
		add("logs_channel_id", *update.LogsChannelID)
	}
	if update.SupportRoleID != nil {
		add("support_role_id", *update.SupportRoleID)
	}
	if update.TicketCategoryID != nil {
		add("ticket_category_id", *update.TicketCategoryID)
	}
	if update.TicketLimit != nil {
		add("ticket_limit", *update.TicketLimit)
	}
	if update.PanelDescription != nil {
		add("panel_description", *update.PanelDescription)
	}
	if update.TicketMessageTemplate != nil {
		add("ticket_message_template", *update.TicketMessageTemplate)
	}

	sets := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		sets = append(sets, c+" = excluded."+c)
	}

	query := fmt.Sprintf(`INSERT INTO settings (%s) VALUES (%s) ON CONFLICT (guild_id) DO UPDATE SET %s`,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(sets, ", "),
	)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("error upserting settings: %w", err)
	}
	return nil
}

func (s *SqliteStore) GetTicket(ctx context.Context, channelID string) (t *entities.Ticket, err error) {
	done := monitoring.Track(sqliteDalName, "get_ticket", BackendSqlite)
	defer func() { done(ignoreExpected(err)) }()

	t, err = scanTicket(s.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE channel_id = ?`, channelID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}
	return t, nil
}

// Reserve inserts the pending ticket with a single conditional statement, so both checks and the insert see
// the same snapshot. The surrounding transaction is only there to explain a refusal consistently.
func (s *SqliteStore) Reserve(ctx context.Context, guildID, userID, username string, limit int) (res *Reservation, err error) {
	done := monitoring.Track(sqliteDalName, "reserve", BackendSqlite)
	defer func() { done(ignoreExpected(err)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	r, err := tx.ExecContext(ctx, `
		INSERT INTO tickets (id, guild_id, user_id, username, status, created_at)
		SELECT ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM tickets WHERE guild_id = ? AND user_id = ? AND status IN ('pending', 'open')
		)
		AND (SELECT COUNT(*) FROM tickets WHERE guild_id = ? AND status IN ('pending', 'open')) < ?`,
		id, guildID, userID, username, string(entities.TicketStatusPending), custom.Now().String(),
		guildID, userID,
		guildID, limit,
	)
	if isUniqueViolation(err) {
		return nil, ErrAlreadyOpen
	} else if err != nil {
		return nil, fmt.Errorf("error inserting reservation: %w", err)
	}

	n, err := r.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error reading affected rows: %w", err)
	}

	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM tickets WHERE guild_id = ? AND user_id = ? AND status IN ('pending', 'open'))`,
			guildID, userID,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("error checking existing ticket: %w", err)
		}
		if exists {
			return nil, ErrAlreadyOpen
		}
		return nil, ErrLimitReached
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing reservation: %w", err)
	}

	return &Reservation{
		TicketID: id,
		GuildID:  guildID,
		UserID:   userID,
	}, nil
}

func (s *SqliteStore) Finalize(ctx context.Context, res *Reservation, channelID string) (t *entities.Ticket, err error) {
	done := monitoring.Track(sqliteDalName, "finalize", BackendSqlite)
	defer func() { done(err) }()

	t, err = scanTicket(s.db.QueryRowContext(ctx, `
		UPDATE tickets SET status = ?, channel_id = ?
		WHERE id = ? AND status = ?
		RETURNING `+ticketColumns,
		string(entities.TicketStatusOpen), channelID, res.TicketID, string(entities.TicketStatusPending),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotPending
	} else if err != nil {
		return nil, fmt.Errorf("error finalizing ticket: %w", err)
	}
	return t, nil
}

func (s *SqliteStore) Release(ctx context.Context, res *Reservation) (err error) {
	done := monitoring.Track(sqliteDalName, "release", BackendSqlite)
	defer func() { done(err) }()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ? AND status = ?`,
		res.TicketID, string(entities.TicketStatusPending)); err != nil {
		return fmt.Errorf("error releasing reservation: %w", err)
	}
	return nil
}

func (s *SqliteStore) TransitionToClosed(ctx context.Context, channelID, closedBy string) (t *entities.Ticket, prior entities.TicketStatus, err error) {
	done := monitoring.Track(sqliteDalName, "transition_to_closed", BackendSqlite)
	defer func() { done(ignoreExpected(err)) }()

	t, err = scanTicket(s.db.QueryRowContext(ctx, `
		UPDATE tickets SET status = ?, closed_by = ?, closed_at = ?
		WHERE channel_id = ? AND status = ?
		RETURNING `+ticketColumns,
		string(entities.TicketStatusClosed), closedBy, custom.Now().String(), channelID, string(entities.TicketStatusOpen),
	))
	if errors.Is(err, sql.ErrNoRows) {
		var status string
		if err := s.db.QueryRowContext(ctx, `SELECT status FROM tickets WHERE channel_id = ?`, channelID).Scan(&status); err != nil {
			return nil, "", ErrNotOpen
		}
		return nil, entities.TicketStatus(status), ErrNotOpen
	} else if err != nil {
		return nil, "", fmt.Errorf("error closing ticket: %w", err)
	}
	return t, entities.TicketStatusOpen, nil
}

func (s *SqliteStore) ListOpenTickets(ctx context.Context, guildID string) (tickets []*entities.Ticket, err error) {
	done := monitoring.Track(sqliteDalName, "list_open_tickets", BackendSqlite)
	defer func() { done(err) }()

	rows, err := s.db.QueryContext(ctx, `SELECT `+ticketColumns+` FROM tickets
		WHERE guild_id = ? AND status = ? ORDER BY created_at, id`, guildID, string(entities.TicketStatusOpen))
	if err != nil {
		return nil, fmt.Errorf("error listing tickets: %w", err)
	}
	defer rows.Close()

	tickets = make([]*entities.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}
	return tickets, nil
}

func (s *SqliteStore) DeleteTicket(ctx context.Context, channelID string) (err error) {
	done := monitoring.Track(sqliteDalName, "delete_ticket", BackendSqlite)
	defer func() { done(ignoreExpected(err)) }()

	r, err := s.db.ExecContext(ctx, `DELETE FROM tickets WHERE channel_id = ?`, channelID)
	if err != nil {
		return fmt.Errorf("error deleting ticket: %w", err)
	}
	if n, err := r.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SqliteStore) DeleteAllTickets(ctx context.Context, guildID string) (n int64, err error) {
	done := monitoring.Track(sqliteDalName, "delete_all_tickets", BackendSqlite)
	defer func() { done(err) }()

	r, err := s.db.ExecContext(ctx, `DELETE FROM tickets WHERE guild_id = ?`, guildID)
	if err != nil {
		return 0, fmt.Errorf("error deleting tickets: %w", err)
	}
	n, err = r.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n, nil
}

func (s *SqliteStore) Ping(ctx context.Context) error {
	done := monitoring.Track("health_check", "ping", BackendSqlite)
	err := s.db.PingContext(ctx)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}
	return nil
}

func (s *SqliteStore) Close(_ context.Context) error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*entities.Ticket, error) {
	t := new(entities.Ticket)
	var status string
	if err := row.Scan(
		&t.ID,
		&t.GuildID,
		&t.UserID,
		&t.Username,
		&t.ChannelID,
		&status,
		&t.ClosedBy,
		&t.CreatedAt,
		&t.ClosedAt,
	); err != nil {
		return nil, err
	}
	t.Status = entities.TicketStatus(status)
	return t, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
