package queuesync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/slotsync/go/internal/models"
)

var errServerDown = errors.New("server down")

// fakeServer is an in-process queue server. Writes mutate the snapshot it
// serves so a following poll observes them.
type fakeServer struct {
	mu          sync.Mutex
	snap        *models.Snapshot
	statusErr   error
	writeErr    error
	statusCalls int
	calls       []string
	joins       []models.JoinRequest
	nextToken   int
}

func newFakeServer(snap *models.Snapshot) *fakeServer {
	return &fakeServer{snap: snap, nextToken: 100}
}

func (f *fakeServer) Status(ctx context.Context) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.snap.Clone(), nil
}

func (f *fakeServer) setSnapshot(snap *models.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
}

func (f *fakeServer) setStatusErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusErr = err
}

func (f *fakeServer) statusCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

func (f *fakeServer) joinRequests() []models.JoinRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.joins)
}

func (f *fakeServer) writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// write records the call and, unless writeErr is set, applies mutate.
func (f *fakeServer) write(call string, mutate func(q []models.Customer) []models.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.snap != nil && mutate != nil {
		f.snap.Queue = mutate(f.snap.Queue)
	}
	return nil
}

func (f *fakeServer) Join(ctx context.Context, req models.JoinRequest) (*models.Session, error) {
	var sess *models.Session
	err := f.write("join", func(q []models.Customer) []models.Customer {
		f.joins = append(f.joins, req)
		f.nextToken++
		sess = &models.Session{Token: f.nextToken, Name: req.Name}
		return append(q, models.Customer{Token: f.nextToken, Name: req.Name, Services: req.Services})
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (f *fakeServer) Leave(ctx context.Context, token int) error {
	return f.write(fmt.Sprintf("leave %d", token), removeToken(token))
}

func (f *fakeServer) Next(ctx context.Context) error {
	return f.write("next", func(q []models.Customer) []models.Customer {
		if len(q) == 0 {
			return q
		}
		return q[1:]
	})
}

func (f *fakeServer) Reset(ctx context.Context) error {
	return f.write("reset", func([]models.Customer) []models.Customer { return []models.Customer{} })
}

func (f *fakeServer) Move(ctx context.Context, token int, direction models.Direction) error {
	return f.write(fmt.Sprintf("move %d %s", token, direction), func(q []models.Customer) []models.Customer {
		if out, err := SwapAdjacent(models.CloneQueue(q), token, direction); err == nil {
			return out
		}
		return q
	})
}

func (f *fakeServer) Delete(ctx context.Context, token int) error {
	return f.write(fmt.Sprintf("delete %d", token), removeToken(token))
}

func (f *fakeServer) ServeNow(ctx context.Context, token int) error {
	return f.write(fmt.Sprintf("serve-now %d", token), func(q []models.Customer) []models.Customer {
		for i, c := range q {
			if c.Token == token {
				out := append([]models.Customer{c}, q[:i]...)
				return append(out, q[i+1:]...)
			}
		}
		return q
	})
}

func (f *fakeServer) Edit(ctx context.Context, token int, services []string) error {
	return f.write(fmt.Sprintf("edit %d", token), func(q []models.Customer) []models.Customer {
		for i := range q {
			if q[i].Token == token {
				q[i].Services = services
			}
		}
		return q
	})
}

func removeToken(token int) func(q []models.Customer) []models.Customer {
	return func(q []models.Customer) []models.Customer {
		return slices.DeleteFunc(q, func(c models.Customer) bool { return c.Token == token })
	}
}

type countingResyncer struct {
	mu    sync.Mutex
	count int
}

func (r *countingResyncer) Resync() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
}

func (r *countingResyncer) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

type memStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
}

func (m *memStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// eventRecorder collects sink events.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Publish(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) has(typ EventType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func customer(token int, name string, minutes int) models.Customer {
	return models.Customer{Token: token, Name: name, Services: []string{"Haircut"}, TotalDuration: minutes}
}

func queueOf(tokens ...int) *models.Snapshot {
	snap := &models.Snapshot{Queue: []models.Customer{}}
	for _, tok := range tokens {
		snap.Queue = append(snap.Queue, customer(tok, fmt.Sprintf("c%d", tok), 10))
	}
	return snap
}

func tokensOf(snap *models.Snapshot) []int {
	if snap == nil {
		return nil
	}
	out := make([]int, 0, len(snap.Queue))
	for _, c := range snap.Queue {
		out = append(out, c.Token)
	}
	return out
}

// primedHolder returns a holder that already applied snap.
func primedHolder(snap *models.Snapshot) *Holder {
	h := NewHolder()
	h.Apply(h.NextSeq(), snap)
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// advanceUntil steps the fake clock until cond holds. Ticks that land while a
// poll is outstanding are skipped, so a single Advance is not enough.
func advanceUntil(t *testing.T, clock *clockwork.FakeClock, step time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		clock.Advance(step)
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
