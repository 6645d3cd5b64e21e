package journal

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/mcdev12/slotsync/go/internal/models"
	"github.com/sqlc-dev/pqtype"
)

type execCall struct {
	query string
	args  []interface{}
}

// recordingDB captures statements instead of talking to Postgres.
type recordingDB struct {
	execs []execCall
}

func (d *recordingDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	d.execs = append(d.execs, execCall{query: query, args: args})
	return nil, nil
}

func (d *recordingDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("not supported")
}

func TestQueriesCreateSchema(t *testing.T) {
	db := &recordingDB{}
	if err := newQueries(db).createSchema(context.Background()); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	if len(db.execs) != 2 {
		t.Fatalf("expected table and index statements, got %d", len(db.execs))
	}
	if !strings.Contains(db.execs[0].query, "CREATE TABLE") || !strings.Contains(db.execs[1].query, "CREATE INDEX") {
		t.Fatalf("unexpected statements %+v", db.execs)
	}
}

func TestQueriesInsertEntryNullables(t *testing.T) {
	db := &recordingDB{}
	q := newQueries(db)
	ctx := context.Background()

	bare := NewEntry(models.ActionNext, nil, nil, OutcomeOK, nil)
	if err := q.insertEntry(ctx, "front-desk", bare); err != nil {
		t.Fatalf("insert: %v", err)
	}
	token := 7
	failed := NewEntry(models.ActionDelete, &token, map[string]any{"confirm": true}, OutcomeFailed, errors.New("boom"))
	if err := q.insertEntry(ctx, "front-desk", failed); err != nil {
		t.Fatalf("insert: %v", err)
	}

	args := db.execs[0].args
	if args[1] != "front-desk" || args[2] != "next" {
		t.Fatalf("unexpected screen/action args %v", args[1:3])
	}
	if tok := args[3].(sql.NullInt32); tok.Valid {
		t.Fatalf("nil token stored as %v", tok)
	}
	if payload := args[4].(pqtype.NullRawMessage); payload.Valid {
		t.Fatalf("empty payload stored as %s", payload.RawMessage)
	}
	if errText := args[6].(sql.NullString); errText.Valid {
		t.Fatalf("empty error stored as %q", errText.String)
	}

	args = db.execs[1].args
	if tok := args[3].(sql.NullInt32); !tok.Valid || tok.Int32 != 7 {
		t.Fatalf("token not stored: %v", tok)
	}
	if payload := args[4].(pqtype.NullRawMessage); !payload.Valid || string(payload.RawMessage) != `{"confirm":true}` {
		t.Fatalf("payload not stored: %+v", payload)
	}
	if errText := args[6].(sql.NullString); !errText.Valid || errText.String != "boom" {
		t.Fatalf("error not stored: %+v", errText)
	}
}

func TestMemoryJournalKeepsNewestFirst(t *testing.T) {
	j := NewMemoryJournal(3)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		token := i
		if err := j.Record(ctx, NewEntry(models.ActionServeNow, &token, nil, OutcomeOK, nil)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 3 || *entries[0].Token != 5 || *entries[2].Token != 3 {
		t.Fatalf("unexpected entries %+v", entries)
	}
}
