package connection

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

// SqliteDSN builds the data source name for a database file. Transactions take the write lock when they
// begin, so a check-and-insert inside one cannot interleave with another writer.
func SqliteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + q.Encode()
}

// OpenSqlite opens the database file at path, creating its directory if needed.
func OpenSqlite(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", SqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite: %w", err)
	}

	// SQLite allows a single writer, one connection keeps writers queued in Go rather than in busy loops.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error pinging sqlite: %w", err)
	}
	return db, nil
}
