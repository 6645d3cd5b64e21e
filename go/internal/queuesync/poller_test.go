package queuesync

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/slotsync/go/internal/models"
)

type statusLog struct {
	mu       sync.Mutex
	statuses []ConnStatus
}

func (l *statusLog) add(s ConnStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, s)
}

func (l *statusLog) all() []ConnStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.statuses)
}

func TestPollerKeepsSnapshotOnFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	server := newFakeServer(queueOf(1, 2))
	holder := NewHolder()
	statuses := &statusLog{}
	p := NewPoller(server, holder, clock, PollerConfig{Interval: 3 * time.Second, Timeout: time.Second}, PollerHooks{
		OnStatus: statuses.add,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitFor(t, "first poll", func() bool {
		snap, _ := holder.Snapshot()
		return snap != nil
	})
	if p.Status() != ConnStatusConnected {
		t.Fatalf("expected connected after first poll, got %s", p.Status())
	}

	server.setStatusErr(errServerDown)
	advanceUntil(t, clock, 3*time.Second, "reconnecting status", func() bool {
		return p.Status() == ConnStatusReconnecting
	})
	snap, version := holder.Snapshot()
	if !slices.Equal(tokensOf(snap), []int{1, 2}) || version != 1 {
		t.Fatalf("failed poll changed the held snapshot: v%d %v", version, tokensOf(snap))
	}

	server.setStatusErr(nil)
	server.setSnapshot(queueOf(2))
	advanceUntil(t, clock, 3*time.Second, "recovery", func() bool {
		snap, _ := holder.Snapshot()
		return p.Status() == ConnStatusConnected && slices.Equal(tokensOf(snap), []int{2})
	})

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []ConnStatus{ConnStatusConnected, ConnStatusReconnecting, ConnStatusConnected}
	if got := statuses.all(); !slices.Equal(got, want) {
		t.Fatalf("status transitions %v, want %v", got, want)
	}
}

func TestPollerResyncPollsImmediately(t *testing.T) {
	clock := clockwork.NewFakeClock()
	server := newFakeServer(queueOf(1))
	holder := NewHolder()
	p := NewPoller(server, holder, clock, PollerConfig{Interval: time.Hour, Timeout: time.Second}, PollerHooks{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitFor(t, "first poll", func() bool { return server.statusCount() == 1 })

	server.setSnapshot(queueOf(1, 5))
	p.Resync()
	waitFor(t, "resync poll", func() bool {
		snap, _ := holder.Snapshot()
		return slices.Equal(tokensOf(snap), []int{1, 5})
	})

	cancel()
	<-done
}

// gatedFetcher answers each call with its own snapshot once released.
type gatedFetcher struct {
	mu      sync.Mutex
	calls   int
	answers []*models.Snapshot
	gates   []chan struct{}
	started chan int
}

func (g *gatedFetcher) Status(ctx context.Context) (*models.Snapshot, error) {
	g.mu.Lock()
	i := g.calls
	g.calls++
	g.mu.Unlock()

	g.started <- i
	select {
	case <-g.gates[i]:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.answers[i].Clone(), nil
}

func TestPollerDropsLateResponse(t *testing.T) {
	fetcher := &gatedFetcher{
		answers: []*models.Snapshot{queueOf(1, 2, 3), queueOf(2, 3)},
		gates:   []chan struct{}{make(chan struct{}), make(chan struct{})},
		started: make(chan int, 2),
	}
	holder := NewHolder()
	p := NewPoller(fetcher, holder, clockwork.NewFakeClock(), PollerConfig{Interval: time.Hour, Timeout: 5 * time.Second}, PollerHooks{})
	ctx := context.Background()

	slow := make(chan ApplyResult, 1)
	go func() {
		res, _ := p.PollOnce(ctx)
		slow <- res
	}()
	<-fetcher.started

	fast := make(chan ApplyResult, 1)
	go func() {
		res, _ := p.PollOnce(ctx)
		fast <- res
	}()
	<-fetcher.started

	close(fetcher.gates[1])
	if res := <-fast; res.Stale {
		t.Fatal("newer response dropped")
	}
	close(fetcher.gates[0])
	if res := <-slow; !res.Stale {
		t.Fatal("late response applied over a newer snapshot")
	}

	snap, _ := holder.Snapshot()
	if got := tokensOf(snap); !slices.Equal(got, []int{2, 3}) {
		t.Fatalf("late response leaked into the held snapshot: %v", got)
	}
}

func TestPollerSkipsTicksWhilePollOutstanding(t *testing.T) {
	fetcher := &gatedFetcher{
		answers: []*models.Snapshot{queueOf(1), queueOf(1, 2)},
		gates:   []chan struct{}{make(chan struct{}), make(chan struct{})},
		started: make(chan int, 4),
	}
	clock := clockwork.NewFakeClock()
	holder := NewHolder()
	p := NewPoller(fetcher, holder, clock, PollerConfig{Interval: 3 * time.Second, Timeout: time.Minute}, PollerHooks{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	if i := <-fetcher.started; i != 0 {
		t.Fatalf("expected the first fetch, got %d", i)
	}
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("waiting for the poll ticker: %v", err)
	}
	for range 4 {
		clock.Advance(3 * time.Second)
		time.Sleep(10 * time.Millisecond)
	}
	if n := len(fetcher.started); n != 0 {
		t.Fatalf("%d fetches started while the first was outstanding", n)
	}

	close(fetcher.gates[0])
	waitFor(t, "first snapshot", func() bool {
		snap, _ := holder.Snapshot()
		return snap != nil
	})
	advanceUntil(t, clock, 3*time.Second, "second fetch", func() bool {
		return len(fetcher.started) > 0
	})
	if i := <-fetcher.started; i != 1 {
		t.Fatalf("expected the second fetch, got %d", i)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}
