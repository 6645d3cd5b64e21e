package queuesync

import (
	"bytes"

	"github.com/mcdev12/slotsync/go/internal/models"
)

// Change describes how a freshly fetched snapshot relates to the held one.
type Change struct {
	// First is set when nothing was held before; the first fetch always replaces.
	First bool
	// QueueChanged is set when the ordered customer sequence differs.
	QueueChanged bool
	// FieldsChanged is set when anything outside the queue differs.
	FieldsChanged bool
}

// Diff compares prev and next. Queue equality is structural over the whole
// ordered sequence, so a reorder or an edited service list both count.
func Diff(prev, next *models.Snapshot) Change {
	if prev == nil {
		return Change{First: true, QueueChanged: true, FieldsChanged: true}
	}
	return Change{
		QueueChanged:  !models.QueuesEqual(prev.Queue, next.Queue),
		FieldsChanged: !fieldsEqual(prev, next),
	}
}

func fieldsEqual(a, b *models.Snapshot) bool {
	return a.ShopStatus == b.ShopStatus &&
		a.ElapsedSeconds == b.ElapsedSeconds &&
		intPtrEqual(a.PeopleAhead, b.PeopleAhead) &&
		intPtrEqual(a.SecondsLeft, b.SecondsLeft) &&
		intPtrEqual(a.EstimatedWaitMinutes, b.EstimatedWaitMinutes) &&
		bytes.Equal(a.DailyStats, b.DailyStats) &&
		models.QueuesEqual(a.History, b.History)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
