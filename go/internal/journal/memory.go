package journal

import (
	"context"
	"sync"
)

// MemoryJournal keeps the last capacity entries in a ring.
type MemoryJournal struct {
	mu       sync.Mutex
	entries  []Entry
	next     int
	full     bool
	capacity int
}

func NewMemoryJournal(capacity int) *MemoryJournal {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryJournal{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

func (j *MemoryJournal) Record(ctx context.Context, entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries[j.next] = entry
	j.next = (j.next + 1) % j.capacity
	if j.next == 0 {
		j.full = true
	}
	return nil
}

func (j *MemoryJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	size := j.next
	if j.full {
		size = j.capacity
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (j.next - i + j.capacity) % j.capacity
		out = append(out, j.entries[idx])
	}
	return out, nil
}
