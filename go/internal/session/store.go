// Package session provides the key-value backends a screen persists its
// viewer's identity to.
package session

import "github.com/mcdev12/slotsync/go/internal/queuesync"

var (
	_ queuesync.SessionStore = (*MemoryStore)(nil)
	_ queuesync.SessionStore = (*FileStore)(nil)
	_ queuesync.SessionStore = (*RedisStore)(nil)
	_ queuesync.SessionStore = (*PostgresStore)(nil)
)
