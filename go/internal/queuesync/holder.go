package queuesync

import (
	"sync"

	"github.com/mcdev12/slotsync/go/internal/models"
)

// ApplyResult reports what Holder.Apply did with one poll response.
type ApplyResult struct {
	Change
	// Stale is set when the response was older than one already applied, or
	// was issued before an optimistic patch; it was dropped untouched.
	Stale bool
	// PatchSuperseded is set when an optimistic patch was replaced by truth.
	PatchSuperseded bool
	Seq             uint64
	Version         uint64
	// Snapshot is a copy of what this response left held; nil when Stale.
	Snapshot *models.Snapshot
}

// Holder owns the one held snapshot. Every replacement of the queue bumps
// Version; every poll draws a sequence number from NextSeq so late responses
// can be recognised and dropped.
type Holder struct {
	mu      sync.RWMutex
	snap    *models.Snapshot
	version uint64
	issued  uint64
	applied uint64
	fence   uint64
	patched bool
}

func NewHolder() *Holder {
	return &Holder{}
}

// NextSeq issues the sequence number for a poll about to be sent.
func (h *Holder) NextSeq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.issued++
	return h.issued
}

// Fence makes every poll issued so far unappliable and returns the last
// fenced sequence. Used after a local change the in-flight responses cannot
// know about yet.
func (h *Holder) Fence() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fence = h.issued
	return h.fence
}

// Apply runs the update gate for the response to poll seq. The queue is only
// replaced when it structurally differs; other fields are always taken.
func (h *Holder) Apply(seq uint64, next *models.Snapshot) ApplyResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	if seq <= h.applied || seq <= h.fence || next == nil {
		return ApplyResult{Stale: true, Seq: seq, Version: h.version}
	}
	h.applied = seq

	next = next.Clone()
	if next.Queue == nil {
		next.Queue = []models.Customer{}
	}
	change := Diff(h.snap, next)
	res := ApplyResult{Change: change, Seq: seq}

	if change.QueueChanged {
		h.version++
		res.PatchSuperseded = h.patched
	} else {
		// keep the held queue so readers holding it see no churn
		next.Queue = h.snap.Queue
	}
	h.patched = false
	h.snap = next
	res.Version = h.version
	res.Snapshot = next.Clone()
	return res
}

// Patch applies an optimistic edit to the held queue. fn receives a private
// copy; on error nothing changes. The patch lives until the next applied poll.
func (h *Holder) Patch(fn func(queue []models.Customer) ([]models.Customer, error)) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.snap == nil {
		return h.version, ErrNoSnapshot
	}
	queue, err := fn(models.CloneQueue(h.snap.Queue))
	if err != nil {
		return h.version, err
	}

	h.fence = h.issued
	patched := h.snap.Clone()
	patched.Queue = queue
	h.snap = patched
	h.version++
	h.patched = true
	return h.version, nil
}

// Snapshot returns a copy of the held snapshot (nil before the first fetch)
// and its version.
func (h *Holder) Snapshot() (*models.Snapshot, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap.Clone(), h.version
}

// Patched reports whether an optimistic patch is currently displayed.
func (h *Holder) Patched() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.patched
}
