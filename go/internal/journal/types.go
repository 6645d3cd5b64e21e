package journal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/slotsync/go/internal/models"
)

// Outcome is how a dispatched action ended.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeFailed   Outcome = "failed"
	OutcomeRejected Outcome = "rejected"
)

// Entry is one action the screen dispatched (or refused to dispatch).
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	Action    models.Action   `json:"action"`
	Token     *int            `json:"token,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Outcome   Outcome         `json:"outcome"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Journal appends entries and reads back the most recent ones, newest first.
type Journal interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// NewEntry stamps an entry with a fresh id and the current time.
func NewEntry(action models.Action, token *int, payload any, outcome Outcome, err error) Entry {
	entry := Entry{
		ID:        uuid.New(),
		Action:    action,
		Token:     token,
		Outcome:   outcome,
		CreatedAt: time.Now().UTC(),
	}
	if payload != nil {
		if data, mErr := json.Marshal(payload); mErr == nil {
			entry.Payload = data
		}
	}
	if err != nil {
		entry.Error = err.Error()
	}
	return entry
}
