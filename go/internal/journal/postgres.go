package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/mcdev12/slotsync/go/internal/models"
	"github.com/mcdev12/slotsync/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS screen_action_journal (
    id          UUID PRIMARY KEY,
    screen      TEXT NOT NULL,
    action      TEXT NOT NULL,
    token       INTEGER,
    payload     JSONB,
    outcome     TEXT NOT NULL,
    error       TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const indexSQL = `
CREATE INDEX IF NOT EXISTS screen_action_journal_screen_created_idx
    ON screen_action_journal (screen, created_at DESC)`

const insertSQL = `
INSERT INTO screen_action_journal (id, screen, action, token, payload, outcome, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const recentSQL = `
SELECT id, action, token, payload, outcome, error, created_at
FROM screen_action_journal
WHERE screen = $1
ORDER BY created_at DESC
LIMIT $2`

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// queries holds the journal statements bound to a connection or transaction.
type queries struct {
	db DBTX
}

func newQueries(db DBTX) *queries {
	return &queries{db: db}
}

func (q *queries) WithTx(tx *sql.Tx) *queries {
	return &queries{db: tx}
}

func (q *queries) createSchema(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, indexSQL)
	return err
}

func (q *queries) insertEntry(ctx context.Context, screen string, entry Entry) error {
	errText := sqlutil.ToSqlString(nil)
	if entry.Error != "" {
		errText = sqlutil.ToSqlString(&entry.Error)
	}

	_, err := q.db.ExecContext(ctx, insertSQL,
		entry.ID,
		screen,
		string(entry.Action),
		sqlutil.ToSqlInt32(entry.Token),
		sqlutil.ToNullRawMessage(entry.Payload),
		string(entry.Outcome),
		errText,
		entry.CreatedAt,
	)
	return err
}

func (q *queries) recentEntries(ctx context.Context, screen string, limit int) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, recentSQL, screen, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			id      uuid.UUID
			action  string
			token   sql.NullInt32
			payload pqtype.NullRawMessage
			outcome string
			errText sql.NullString
			entry   Entry
		)
		if err := rows.Scan(&id, &action, &token, &payload, &outcome, &errText, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entry.ID = id
		entry.Action = models.Action(action)
		entry.Token = sqlutil.FromSqlInt32(token)
		entry.Payload = sqlutil.FromNullRawMessage(payload)
		entry.Outcome = Outcome(outcome)
		entry.Error = sqlutil.FromSqlString(errText, "")
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// PostgresJournal stores entries in screen_action_journal, keyed by screen name
// so several screens can share one database.
type PostgresJournal struct {
	db      *sql.DB
	queries *queries
	screen  string
}

// OpenPostgres connects with lib/pq and makes sure the table exists.
func OpenPostgres(ctx context.Context, dsn, screen string) (*PostgresJournal, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	j := NewPostgresJournal(db, screen)
	if err := j.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func NewPostgresJournal(db *sql.DB, screen string) *PostgresJournal {
	return &PostgresJournal{db: db, queries: newQueries(db), screen: screen}
}

// EnsureSchema creates the journal table and its index in one transaction.
func (j *PostgresJournal) EnsureSchema(ctx context.Context) error {
	err := sqlutil.Run(ctx, j.db, j.queries.WithTx, func(q *queries) error {
		return q.createSchema(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

func (j *PostgresJournal) Record(ctx context.Context, entry Entry) error {
	if err := j.queries.insertEntry(ctx, j.screen, entry); err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}
	return nil
}

func (j *PostgresJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	entries, err := j.queries.recentEntries(ctx, j.screen, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	return entries, nil
}

func (j *PostgresJournal) Close() error {
	return j.db.Close()
}
