package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/compresr/sherlock/internal/monitoring"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS requests (
	id TEXT PRIMARY KEY,
	request_id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	tokens INTEGER NOT NULL,
	path TEXT NOT NULL,
	body TEXT
);

CREATE INDEX IF NOT EXISTS idx_requests_timestamp ON requests(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_requests_provider ON requests(provider);

CREATE TABLE IF NOT EXISTS messages (
	request_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	PRIMARY KEY (request_id, position),
	FOREIGN KEY (request_id) REFERENCES requests(id) ON DELETE CASCADE
);
`

// SQLiteSink stores requests and their messages in a local database.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteSink{db: db, path: path}, nil
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) Write(ctx context.Context, ev *monitoring.RequestEvent) error {
	id := ulid.MustNew(ulid.Timestamp(ev.Timestamp), ulid.DefaultEntropy()).String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO requests (id, request_id, timestamp, provider, model, tokens, path, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, ev.RequestID, ev.Timestamp.UTC().Format(time.RFC3339Nano), ev.Provider, ev.Model, ev.Tokens, ev.Path, string(ev.RawBody))
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	for i, msg := range ev.Messages {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (request_id, position, role, content)
			VALUES (?, ?, ?, ?)
		`, id, i, msg.Role, msg.Content)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
