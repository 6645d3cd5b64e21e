package queuesync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/slotsync/go/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Mode selects which of the two screens is being driven.
type Mode string

const (
	ModeCustomer Mode = "customer"
	ModeAdmin    Mode = "admin"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCustomer, ModeAdmin:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid mode %q: want customer or admin", s)
}

var errScreenRunning = errors.New("screen already started")

// ScreenConfig carries everything tunable about one screen.
type ScreenConfig struct {
	Mode           Mode
	Poller         PollerConfig
	DriftTolerance int
	Catalog        map[string]int
	AverageMinutes int
	Dispatcher     DispatcherConfig
}

func DefaultScreenConfig() ScreenConfig {
	return ScreenConfig{
		Mode:           ModeCustomer,
		Poller:         DefaultPollerConfig(),
		DriftTolerance: DefaultDriftTolerance,
		Catalog:        DefaultServiceCatalog,
		AverageMinutes: DefaultAverageMinutes,
		Dispatcher:     DispatcherConfig{DefaultService: "Haircut"},
	}
}

// ScreenDeps are the external capabilities a screen talks to. Recorder and
// Clock are optional.
type ScreenDeps struct {
	Fetcher  SnapshotFetcher
	Writer   QueueWriter
	Store    SessionStore
	Recorder Recorder
	Clock    clockwork.Clock
}

// Screen is one active queue view: a poller and a countdown sharing a held
// snapshot, plus the dispatcher for its actions.
type Screen struct {
	config     ScreenConfig
	holder     *Holder
	countdown  *Countdown
	projector  *Projector
	sessions   *SessionManager
	poller     *Poller
	dispatcher *Dispatcher
	sinks      sinkSet

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	runErr error
}

func NewScreen(config ScreenConfig, deps ScreenDeps) *Screen {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if config.Mode == "" {
		config.Mode = ModeCustomer
	}

	s := &Screen{
		config:    config,
		holder:    NewHolder(),
		countdown: NewCountdown(deps.Clock, config.DriftTolerance),
		projector: NewProjector(config.Catalog, config.AverageMinutes),
		sessions:  NewSessionManager(deps.Store),
	}
	s.poller = NewPoller(deps.Fetcher, s.holder, deps.Clock, config.Poller, PollerHooks{
		OnResult: s.handleResult,
		OnStatus: s.handleStatus,
	})
	s.dispatcher = NewDispatcher(deps.Writer, s.holder, s.sessions, s.poller, deps.Recorder, deps.Clock, config.Dispatcher, DispatcherHooks{
		OnPatched:        s.handlePatched,
		OnSessionChanged: s.handleSession,
	})
	return s
}

// AddSink registers a receiver for screen events. Call before Start.
func (s *Screen) AddSink(sink Sink) {
	s.sinks.add(sink)
}

func (s *Screen) Mode() Mode                           { return s.config.Mode }
func (s *Screen) Dispatcher() *Dispatcher              { return s.dispatcher }
func (s *Screen) Projector() *Projector                { return s.projector }
func (s *Screen) Sessions() *SessionManager            { return s.sessions }
func (s *Screen) Status() ConnStatus                   { return s.poller.Status() }
func (s *Screen) Resync()                              { s.poller.Resync() }
func (s *Screen) Snapshot() (*models.Snapshot, uint64) { return s.holder.Snapshot() }

// Allowed reports whether this screen may dispatch action.
func (s *Screen) Allowed(action models.Action) error {
	if s.config.Mode == ModeCustomer && action.AdminOnly() {
		return fmt.Errorf("%s: %w", action, ErrAdminOnly)
	}
	return nil
}

// Refresh polls once outside the schedulers, for callers that never Start.
func (s *Screen) Refresh(ctx context.Context) error {
	_, err := s.poller.PollOnce(ctx)
	return err
}

// Run restores the session and drives both schedulers until ctx is done.
func (s *Screen) Run(ctx context.Context) error {
	if _, err := s.sessions.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to restore session, starting without one")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.poller.Run(gctx)
	})
	g.Go(func() error {
		return s.countdown.Run(gctx, s.handleTick)
	})
	return g.Wait()
}

// Start runs the screen in the background until Stop.
func (s *Screen) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil {
		return errScreenRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		err := s.Run(ctx)
		s.runMu.Lock()
		s.runErr = err
		s.runMu.Unlock()
	}()

	log.Info().Str("mode", string(s.config.Mode)).Msg("screen started")
	return nil
}

// Stop cancels both schedulers and waits until every goroutine they started
// has returned. Stopping a screen that is not running is a no-op.
func (s *Screen) Stop() error {
	s.runMu.Lock()
	cancel, done := s.cancel, s.done
	s.runMu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	<-done

	s.runMu.Lock()
	defer s.runMu.Unlock()
	err := s.runErr
	s.cancel, s.done, s.runErr = nil, nil, nil
	log.Info().Str("mode", string(s.config.Mode)).Msg("screen stopped")
	return err
}

func (s *Screen) handleResult(res ApplyResult) {
	snap, version := res.Snapshot, res.Version
	if snap == nil {
		return
	}

	if remaining, ok := snap.RemainingSeconds(); ok {
		if s.countdown.Resync(remaining) {
			log.Debug().Int("seconds_left", remaining).Msg("countdown resynced to server")
		}
	}

	if s.sessions.Reconcile(context.Background(), snap, res.Seq) {
		s.handleSession(nil)
	}

	switch {
	case res.QueueChanged:
		s.publish(Event{Type: EventQueueChanged, Version: version, Snapshot: snap})
	case res.FieldsChanged:
		s.publish(Event{Type: EventSnapshotRefreshed, Version: version, Snapshot: snap})
	}
}

func (s *Screen) handleStatus(status ConnStatus) {
	_, version := s.holder.Snapshot()
	s.publish(Event{Type: EventConnectionStatus, Version: version, Status: status})
}

func (s *Screen) handleTick(secondsLeft int) {
	s.publish(Event{Type: EventCountdownTick, SecondsLeft: secondsLeft})
}

func (s *Screen) handlePatched(version uint64) {
	snap, _ := s.holder.Snapshot()
	s.publish(Event{Type: EventQueueChanged, Version: version, Snapshot: snap, Optimistic: true})
}

func (s *Screen) handleSession(sess *models.Session) {
	s.publish(Event{Type: EventSessionChanged, Session: sess})
}

func (s *Screen) publish(evt Event) {
	if evt.SecondsLeft == 0 {
		evt.SecondsLeft = s.countdown.SecondsLeft()
	}
	evt.At = s.countdown.clock.Now().UTC()
	s.sinks.publish(evt)
}

// CustomerView is one queue row as a screen renders it.
type CustomerView struct {
	Customer        models.Customer `json:"customer"`
	Position        int             `json:"position"`
	DurationMinutes int             `json:"duration_minutes"`
	WaitMinutes     int             `json:"wait_minutes"`
	Mine            bool            `json:"mine"`
}

// View is everything a screen needs to render, derived from the held snapshot.
type View struct {
	Mode            Mode              `json:"mode"`
	Status          ConnStatus        `json:"status"`
	Ready           bool              `json:"ready"`
	Version         uint64            `json:"version"`
	Optimistic      bool              `json:"optimistic"`
	ShopStatus      models.ShopStatus `json:"shop_status,omitempty"`
	Queue           []CustomerView    `json:"queue"`
	Waiting         int               `json:"waiting"`
	SecondsLeft     int               `json:"seconds_left"`
	JoinWaitMinutes int               `json:"join_wait_minutes"`
	Session         *models.Session   `json:"session,omitempty"`
	InQueue         bool              `json:"in_queue"`
	MyWaitMinutes   *int              `json:"my_wait_minutes,omitempty"`
	Actions         []models.Action   `json:"actions"`
}

// View derives the current render state.
func (s *Screen) View() View {
	snap, version := s.holder.Snapshot()
	sess := s.sessions.Current()

	v := View{
		Mode:        s.config.Mode,
		Status:      s.poller.Status(),
		Ready:       snap != nil,
		Version:     version,
		Optimistic:  s.holder.Patched(),
		Queue:       []CustomerView{},
		SecondsLeft: s.countdown.SecondsLeft(),
		Session:     sess,
		InQueue:     sess.InQueue(snap),
	}

	if snap != nil {
		v.ShopStatus = snap.ShopStatus
		v.Waiting = snap.WaitingCount()
		v.JoinWaitMinutes = s.projector.WaitMinutes(snap, len(snap.Queue))
		waits := s.projector.WaitAll(snap)
		for i, c := range snap.Queue {
			mine := sess != nil && c.Token == sess.Token
			v.Queue = append(v.Queue, CustomerView{
				Customer:        c,
				Position:        i + 1,
				DurationMinutes: s.projector.DurationMinutes(c),
				WaitMinutes:     waits[i],
				Mine:            mine,
			})
			if mine {
				wait := waits[i]
				v.MyWaitMinutes = &wait
			}
		}
	}

	v.Actions = s.actions(snap, v.InQueue)
	return v
}

func (s *Screen) actions(snap *models.Snapshot, inQueue bool) []models.Action {
	if s.config.Mode == ModeCustomer {
		if inQueue {
			return []models.Action{models.ActionLeave}
		}
		return []models.Action{models.ActionJoin}
	}

	actions := []models.Action{models.ActionJoin, models.ActionReset}
	if snap != nil && len(snap.Queue) > 0 {
		actions = append(actions,
			models.ActionNext,
			models.ActionMove,
			models.ActionServeNow,
			models.ActionEdit,
			models.ActionDelete,
		)
	}
	return actions
}
