package queuesync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/slotsync/go/internal/journal"
	"github.com/mcdev12/slotsync/go/internal/models"
	"github.com/rs/zerolog/log"
)

// QueueWriter is the write side of the queue server.
type QueueWriter interface {
	Join(ctx context.Context, req models.JoinRequest) (*models.Session, error)
	Leave(ctx context.Context, token int) error
	Next(ctx context.Context) error
	Reset(ctx context.Context) error
	Move(ctx context.Context, token int, direction models.Direction) error
	Delete(ctx context.Context, token int) error
	ServeNow(ctx context.Context, token int) error
	Edit(ctx context.Context, token int, services []string) error
}

// Resyncer forces an authoritative poll.
type Resyncer interface {
	Resync()
}

// Recorder receives one entry per dispatched or rejected action.
type Recorder interface {
	Record(ctx context.Context, entry journal.Entry) error
}

// ConfirmRequest describes the destructive action awaiting confirmation.
type ConfirmRequest struct {
	Action models.Action
	Token  int
	Prompt string
}

// Confirmer is the explicit confirmation step destructive actions must pass.
type Confirmer interface {
	Confirm(ctx context.Context, req ConfirmRequest) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, req ConfirmRequest) bool

func (f ConfirmFunc) Confirm(ctx context.Context, req ConfirmRequest) bool {
	return f(ctx, req)
}

// Confirmed turns an already collected yes/no signal into a Confirmer.
func Confirmed(yes bool) Confirmer {
	return ConfirmFunc(func(context.Context, ConfirmRequest) bool { return yes })
}

// DispatcherConfig tunes client-side validation.
type DispatcherConfig struct {
	// DefaultService is used for a join that names no service. Empty means
	// such a join is rejected.
	DefaultService string
	// RepeatInterval is the minimum spacing between actions on the same
	// customer. Zero disables the guard.
	RepeatInterval time.Duration
}

// DispatcherHooks lets the owning screen react to local changes.
type DispatcherHooks struct {
	OnPatched        func(version uint64)
	OnSessionChanged func(sess *models.Session)
}

// Dispatcher validates, sends and reconciles queue mutations. Every request
// that reaches the server is followed by a resync whatever its outcome.
type Dispatcher struct {
	writer   QueueWriter
	holder   *Holder
	sessions *SessionManager
	resync   Resyncer
	recorder Recorder
	guard    *clickGuard
	config   DispatcherConfig
	hooks    DispatcherHooks
}

func NewDispatcher(writer QueueWriter, holder *Holder, sessions *SessionManager, resync Resyncer, recorder Recorder, clock clockwork.Clock, config DispatcherConfig, hooks DispatcherHooks) *Dispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Dispatcher{
		writer:   writer,
		holder:   holder,
		sessions: sessions,
		resync:   resync,
		recorder: recorder,
		guard:    newClickGuard(config.RepeatInterval, clock.Now),
		config:   config,
		hooks:    hooks,
	}
}

// Join adds the viewer to the queue and remembers the assigned identity.
func (d *Dispatcher) Join(ctx context.Context, req models.JoinRequest) (*models.Session, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Services = models.NormalizeServices(req.Services)
	if len(req.Services) == 0 {
		// older clients name a single service_type instead of a list
		req.Services = models.NormalizeServices([]string{req.ServiceType})
	}
	if len(req.Services) == 0 && d.config.DefaultService != "" {
		req.Services = []string{d.config.DefaultService}
	}
	req.ServiceType = ""
	if len(req.Services) > 0 {
		req.ServiceType = req.Services[0]
	}

	switch {
	case req.Name == "":
		return nil, d.reject(ctx, models.ActionJoin, nil, req, ErrNameRequired)
	case len(req.Services) == 0:
		return nil, d.reject(ctx, models.ActionJoin, nil, req, ErrNoServices)
	}
	if sess := d.sessions.Current(); sess != nil {
		if snap, _ := d.holder.Snapshot(); snap == nil || snap.Contains(sess.Token) {
			return nil, d.reject(ctx, models.ActionJoin, &sess.Token, req, ErrAlreadyQueued)
		}
	}
	if !d.guard.Allow(string(models.ActionJoin)) {
		return nil, d.reject(ctx, models.ActionJoin, nil, req, ErrThrottled)
	}

	var joined *models.Session
	err := d.send(ctx, models.ActionJoin, nil, req, func(ctx context.Context) error {
		sess, err := d.writer.Join(ctx, req)
		if err != nil {
			return err
		}
		// polls already in flight predate the join and must not clear it
		fence := d.holder.Fence()
		if err := d.sessions.Save(ctx, *sess, fence); err != nil {
			log.Error().Err(err).Int("token", sess.Token).Msg("failed to persist session")
		}
		joined = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.sessionChanged()
	return joined, nil
}

// Leave removes the viewer's own customer after confirmation.
func (d *Dispatcher) Leave(ctx context.Context, confirm Confirmer) error {
	sess := d.sessions.Current()
	if sess == nil {
		return d.reject(ctx, models.ActionLeave, nil, nil, ErrNoSession)
	}
	token := sess.Token
	if snap, _ := d.holder.Snapshot(); snap != nil && !snap.Contains(token) {
		if err := d.sessions.Clear(ctx); err != nil {
			log.Error().Err(err).Int("token", token).Msg("failed to clear stale session")
		}
		d.sessionChanged()
		return d.reject(ctx, models.ActionLeave, &token, nil, ErrNotQueued)
	}
	if err := d.confirm(ctx, confirm, models.ActionLeave, token, "Are you sure you want to leave the queue?"); err != nil {
		return err
	}
	if !d.guard.Allow(tokenKey(token)) {
		return d.reject(ctx, models.ActionLeave, &token, nil, ErrThrottled)
	}

	err := d.send(ctx, models.ActionLeave, &token, nil, func(ctx context.Context) error {
		return d.writer.Leave(ctx, token)
	})
	if err != nil {
		return err
	}
	if err := d.sessions.Clear(ctx); err != nil {
		log.Error().Err(err).Int("token", token).Msg("failed to clear session after leaving")
	}
	d.sessionChanged()
	return nil
}

// Next marks the head of the queue served.
func (d *Dispatcher) Next(ctx context.Context) error {
	if snap, _ := d.holder.Snapshot(); snap == nil || len(snap.Queue) == 0 {
		return d.reject(ctx, models.ActionNext, nil, nil, ErrQueueEmpty)
	}
	if !d.guard.Allow(string(models.ActionNext)) {
		return d.reject(ctx, models.ActionNext, nil, nil, ErrThrottled)
	}
	return d.send(ctx, models.ActionNext, nil, nil, d.writer.Next)
}

// Reset clears the whole queue after confirmation.
func (d *Dispatcher) Reset(ctx context.Context, confirm Confirmer) error {
	if err := d.confirm(ctx, confirm, models.ActionReset, 0, "Reset the queue? Everyone waiting will be removed."); err != nil {
		return err
	}
	if !d.guard.Allow(string(models.ActionReset)) {
		return d.reject(ctx, models.ActionReset, nil, nil, ErrThrottled)
	}
	return d.send(ctx, models.ActionReset, nil, nil, d.writer.Reset)
}

// Move swaps token with its neighbour locally, then asks the server to do the
// same. Moves past either end are refused before any request.
func (d *Dispatcher) Move(ctx context.Context, token int, direction models.Direction) error {
	payload := map[string]any{"direction": direction}
	if _, err := models.ParseDirection(string(direction)); err != nil {
		return d.reject(ctx, models.ActionMove, &token, payload, fmt.Errorf("%w: %v", ErrBadDirection, err))
	}

	version, err := d.holder.Patch(func(queue []models.Customer) ([]models.Customer, error) {
		swapped, err := SwapAdjacent(queue, token, direction)
		if err != nil {
			return nil, err
		}
		// only a move that would change the queue spends the token's slot
		if !d.guard.Allow(tokenKey(token)) {
			return nil, ErrThrottled
		}
		return swapped, nil
	})
	if err != nil {
		return d.reject(ctx, models.ActionMove, &token, payload, err)
	}
	if d.hooks.OnPatched != nil {
		d.hooks.OnPatched(version)
	}

	return d.send(ctx, models.ActionMove, &token, payload, func(ctx context.Context) error {
		return d.writer.Move(ctx, token, direction)
	})
}

// Delete removes any customer after confirmation.
func (d *Dispatcher) Delete(ctx context.Context, token int, confirm Confirmer) error {
	if err := d.requireQueued(ctx, models.ActionDelete, token, nil); err != nil {
		return err
	}
	if err := d.confirm(ctx, confirm, models.ActionDelete, token, fmt.Sprintf("Remove #%d from the queue?", token)); err != nil {
		return err
	}
	if !d.guard.Allow(tokenKey(token)) {
		return d.reject(ctx, models.ActionDelete, &token, nil, ErrThrottled)
	}
	return d.send(ctx, models.ActionDelete, &token, nil, func(ctx context.Context) error {
		return d.writer.Delete(ctx, token)
	})
}

// ServeNow moves token to the head of the queue out of order.
func (d *Dispatcher) ServeNow(ctx context.Context, token int) error {
	if err := d.requireQueued(ctx, models.ActionServeNow, token, nil); err != nil {
		return err
	}
	if snap, _ := d.holder.Snapshot(); snap != nil && snap.IndexOf(token) == 0 {
		return d.reject(ctx, models.ActionServeNow, &token, nil, ErrAtEdge)
	}
	if !d.guard.Allow(tokenKey(token)) {
		return d.reject(ctx, models.ActionServeNow, &token, nil, ErrThrottled)
	}
	return d.send(ctx, models.ActionServeNow, &token, nil, func(ctx context.Context) error {
		return d.writer.ServeNow(ctx, token)
	})
}

// Edit replaces a customer's services; the new set may not be empty.
func (d *Dispatcher) Edit(ctx context.Context, token int, services []string) error {
	services = models.NormalizeServices(services)
	payload := map[string]any{"services": services}
	if len(services) == 0 {
		return d.reject(ctx, models.ActionEdit, &token, payload, ErrNoServices)
	}
	if err := d.requireQueued(ctx, models.ActionEdit, token, payload); err != nil {
		return err
	}
	if !d.guard.Allow(tokenKey(token)) {
		return d.reject(ctx, models.ActionEdit, &token, payload, ErrThrottled)
	}
	return d.send(ctx, models.ActionEdit, &token, payload, func(ctx context.Context) error {
		return d.writer.Edit(ctx, token, services)
	})
}

// requireQueued rejects actions on tokens the held snapshot does not contain.
// Before the first snapshot the server is left to decide.
func (d *Dispatcher) requireQueued(ctx context.Context, action models.Action, token int, payload any) error {
	snap, _ := d.holder.Snapshot()
	if snap != nil && !snap.Contains(token) {
		return d.reject(ctx, action, &token, payload, fmt.Errorf("%s token %d: %w", action, token, ErrTokenNotFound))
	}
	return nil
}

func (d *Dispatcher) confirm(ctx context.Context, confirm Confirmer, action models.Action, token int, prompt string) error {
	if confirm != nil && confirm.Confirm(ctx, ConfirmRequest{Action: action, Token: token, Prompt: prompt}) {
		return nil
	}
	var tokenPtr *int
	if token != 0 {
		tokenPtr = &token
	}
	return d.reject(ctx, action, tokenPtr, nil, ErrNotConfirmed)
}

// send issues exactly one request and always resyncs afterwards.
func (d *Dispatcher) send(ctx context.Context, action models.Action, token *int, payload any, call func(ctx context.Context) error) error {
	defer d.resync.Resync()

	err := call(ctx)
	outcome := journal.OutcomeOK
	evt := log.Info()
	if err != nil {
		outcome = journal.OutcomeFailed
		evt = log.Warn().Err(err)
	}
	if token != nil {
		evt = evt.Int("token", *token)
	}
	evt.Str("action", string(action)).Msg("queue action dispatched")

	d.record(ctx, journal.NewEntry(action, token, payload, outcome, err))
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

func (d *Dispatcher) reject(ctx context.Context, action models.Action, token *int, payload any, err error) error {
	evt := log.Debug().Err(err).Str("action", string(action))
	if token != nil {
		evt = evt.Int("token", *token)
	}
	evt.Msg("queue action rejected before dispatch")

	d.record(ctx, journal.NewEntry(action, token, payload, journal.OutcomeRejected, err))
	return err
}

func (d *Dispatcher) record(ctx context.Context, entry journal.Entry) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.Record(ctx, entry); err != nil {
		log.Error().Err(err).Str("action", string(entry.Action)).Msg("failed to record journal entry")
	}
}

func (d *Dispatcher) sessionChanged() {
	if d.hooks.OnSessionChanged != nil {
		d.hooks.OnSessionChanged(d.sessions.Current())
	}
}

func tokenKey(token int) string {
	return fmt.Sprintf("token:%d", token)
}

// IsPrecondition reports whether err was a client-side rejection, as opposed
// to a failed request.
func IsPrecondition(err error) bool {
	for _, target := range []error{
		ErrNoSnapshot, ErrTokenNotFound, ErrAtEdge, ErrNoServices, ErrNameRequired,
		ErrQueueEmpty, ErrNotConfirmed, ErrNoSession, ErrNotQueued, ErrAlreadyQueued,
		ErrThrottled, ErrAdminOnly, ErrBadDirection,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
