package models

import (
	"bytes"
	"encoding/json"
	"slices"
)

// ShopStatus is the open/closed flag some servers report alongside the queue.
type ShopStatus string

const (
	ShopStatusOpen   ShopStatus = "Open"
	ShopStatusClosed ShopStatus = "Closed"
)

// Snapshot is one complete, point-in-time copy of the server's queue state.
// Fields that only some server variants send are pointers; use the accessor
// methods to read them with their derived fallbacks.
type Snapshot struct {
	ShopStatus           ShopStatus      `json:"shop_status,omitempty"`
	Queue                []Customer      `json:"queue"`
	PeopleAhead          *int            `json:"people_ahead,omitempty"`
	SecondsLeft          *int            `json:"seconds_left,omitempty"`
	EstimatedWaitMinutes *int            `json:"estimated_wait_minutes,omitempty"`
	ElapsedSeconds       int             `json:"elapsed_seconds"`
	DailyStats           json.RawMessage `json:"daily_stats,omitempty"`
	History              []Customer      `json:"history,omitempty"`
}

// UnmarshalJSON accepts both the status object and the bare customer array
// returned by the oldest admin endpoint.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var queue []Customer
		if err := json.Unmarshal(trimmed, &queue); err != nil {
			return err
		}
		*s = Snapshot{Queue: queue}
		return nil
	}

	type plain Snapshot
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*s = Snapshot(p)
	if s.Queue == nil {
		s.Queue = []Customer{}
	}
	return nil
}

// WaitingCount returns people_ahead when the server sent it, else the queue length.
func (s *Snapshot) WaitingCount() int {
	if s.PeopleAhead != nil {
		return *s.PeopleAhead
	}
	return len(s.Queue)
}

// RemainingSeconds returns the server's authoritative remaining time for the
// head of the queue. ok is false when the server sent neither variant.
func (s *Snapshot) RemainingSeconds() (seconds int, ok bool) {
	switch {
	case s.SecondsLeft != nil:
		seconds = *s.SecondsLeft
	case s.EstimatedWaitMinutes != nil:
		seconds = *s.EstimatedWaitMinutes * 60
	default:
		return 0, false
	}
	if seconds < 0 {
		seconds = 0
	}
	return seconds, true
}

// IndexOf returns the queue position of token, or -1.
func (s *Snapshot) IndexOf(token int) int {
	for i, c := range s.Queue {
		if c.Token == token {
			return i
		}
	}
	return -1
}

// Contains reports whether token is currently in the queue.
func (s *Snapshot) Contains(token int) bool {
	return s.IndexOf(token) >= 0
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Queue = CloneQueue(s.Queue)
	out.History = CloneQueue(s.History)
	out.PeopleAhead = cloneInt(s.PeopleAhead)
	out.SecondsLeft = cloneInt(s.SecondsLeft)
	out.EstimatedWaitMinutes = cloneInt(s.EstimatedWaitMinutes)
	out.DailyStats = slices.Clone(s.DailyStats)
	return &out
}

// CloneQueue deep-copies an ordered customer list.
func CloneQueue(queue []Customer) []Customer {
	if queue == nil {
		return nil
	}
	out := make([]Customer, len(queue))
	for i, c := range queue {
		out[i] = c.Clone()
	}
	return out
}

// QueuesEqual compares two orderings element by element.
func QueuesEqual(a, b []Customer) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// IntPtr is a small helper for building snapshots with optional fields.
func IntPtr(v int) *int {
	return &v
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	return IntPtr(*v)
}
