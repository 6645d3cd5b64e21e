package queuesync

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clickGuard rate limits actions per key so a double click on the same
// customer does not send two mutations.
type clickGuard struct {
	mu       sync.Mutex
	limiters map[string]*guardEntry
	every    time.Duration
	idle     time.Duration
	now      func() time.Time
}

type guardEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClickGuard(every time.Duration, now func() time.Time) *clickGuard {
	if now == nil {
		now = time.Now
	}
	return &clickGuard{
		limiters: make(map[string]*guardEntry),
		every:    every,
		idle:     10 * time.Minute,
		now:      now,
	}
}

// Allow reports whether an action for key may go out now. A zero interval
// disables the guard.
func (g *clickGuard) Allow(key string) bool {
	if g == nil || g.every <= 0 {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	entry, ok := g.limiters[key]
	if !ok {
		g.prune(now)
		entry = &guardEntry{limiter: rate.NewLimiter(rate.Every(g.every), 1)}
		g.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (g *clickGuard) prune(now time.Time) {
	for key, entry := range g.limiters {
		if now.Sub(entry.lastSeen) > g.idle {
			delete(g.limiters, key)
		}
	}
}
