package queuesync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/slotsync/go/internal/models"
	"github.com/rs/zerolog/log"
)

// SnapshotFetcher is the read side of the queue server.
type SnapshotFetcher interface {
	Status(ctx context.Context) (*models.Snapshot, error)
}

// ConnStatus is the soft connectivity signal shown on a screen.
type ConnStatus string

const (
	ConnStatusConnecting   ConnStatus = "connecting"
	ConnStatusConnected    ConnStatus = "connected"
	ConnStatusReconnecting ConnStatus = "reconnecting"
)

// PollerConfig holds the cadence of the snapshot poller.
type PollerConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultPollerConfig polls every 3 seconds.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval: 3 * time.Second,
		Timeout:  5 * time.Second,
	}
}

// PollerHooks receive the poller's output. Both run on poll goroutines and
// must not block.
type PollerHooks struct {
	OnResult func(res ApplyResult)
	OnStatus func(status ConnStatus)
}

// Poller fetches a snapshot on a fixed cadence and hands it to the Holder.
// A tick that fires while a poll is outstanding is skipped; Resync polls run
// regardless and rely on the Holder's sequence check to drop late answers.
type Poller struct {
	fetcher SnapshotFetcher
	holder  *Holder
	clock   clockwork.Clock
	config  PollerConfig
	hooks   PollerHooks

	resyncCh chan struct{}
	inFlight atomic.Int32
	wg       sync.WaitGroup

	statusMu sync.Mutex
	status   ConnStatus
	failures int
}

func NewPoller(fetcher SnapshotFetcher, holder *Holder, clock clockwork.Clock, config PollerConfig, hooks PollerHooks) *Poller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultPollerConfig().Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultPollerConfig().Timeout
	}
	return &Poller{
		fetcher:  fetcher,
		holder:   holder,
		clock:    clock,
		config:   config,
		hooks:    hooks,
		resyncCh: make(chan struct{}, 1),
		status:   ConnStatusConnecting,
	}
}

// Run polls immediately and then on every interval until ctx is done. It
// returns only after every poll it started has finished.
func (p *Poller) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.config.Interval)
	defer ticker.Stop()
	defer p.wg.Wait()

	select {
	case <-p.resyncCh:
	default:
	}

	log.Info().Dur("interval", p.config.Interval).Msg("snapshot poller started")
	p.spawn(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("snapshot poller stopping")
			return nil
		case <-ticker.Chan():
			if p.inFlight.Load() > 0 {
				log.Debug().Msg("previous poll still outstanding, skipping tick")
				continue
			}
			p.spawn(ctx)
		case <-p.resyncCh:
			p.spawn(ctx)
		}
	}
}

// Resync asks for an out-of-band poll. It never blocks; repeated requests
// before the poll starts collapse into one.
func (p *Poller) Resync() {
	select {
	case p.resyncCh <- struct{}{}:
	default:
	}
}

// PollOnce fetches and applies one snapshot synchronously.
func (p *Poller) PollOnce(ctx context.Context) (ApplyResult, error) {
	return p.poll(ctx)
}

// Status returns the current connectivity signal.
func (p *Poller) Status() ConnStatus {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	return p.status
}

func (p *Poller) spawn(ctx context.Context) {
	p.inFlight.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Add(-1)
		_, _ = p.poll(ctx)
	}()
}

func (p *Poller) poll(ctx context.Context) (ApplyResult, error) {
	seq := p.holder.NextSeq()

	reqCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	snap, err := p.fetcher.Status(reqCtx)
	if err != nil {
		if ctx.Err() != nil {
			return ApplyResult{Seq: seq, Stale: true}, ctx.Err()
		}
		failures := p.setStatus(ConnStatusReconnecting)
		log.Warn().
			Err(err).
			Uint64("seq", seq).
			Int("consecutive_failures", failures).
			Msg("queue status poll failed, keeping held snapshot")
		return ApplyResult{Seq: seq, Stale: true}, fmt.Errorf("poll %d: %w", seq, err)
	}

	p.setStatus(ConnStatusConnected)
	res := p.holder.Apply(seq, snap)
	if res.Stale {
		log.Debug().Uint64("seq", seq).Msg("dropping stale snapshot response")
		return res, nil
	}

	if res.QueueChanged {
		log.Debug().
			Uint64("seq", seq).
			Uint64("version", res.Version).
			Int("queue_len", len(snap.Queue)).
			Bool("patch_superseded", res.PatchSuperseded).
			Msg("queue snapshot replaced")
	}
	if p.hooks.OnResult != nil {
		p.hooks.OnResult(res)
	}
	return res, nil
}

// setStatus records a status and returns the consecutive failure count.
func (p *Poller) setStatus(status ConnStatus) int {
	p.statusMu.Lock()
	if status == ConnStatusReconnecting {
		p.failures++
	} else {
		p.failures = 0
	}
	failures := p.failures
	changed := p.status != status
	p.status = status
	p.statusMu.Unlock()

	if changed {
		log.Info().Str("status", string(status)).Msg("queue server connection status changed")
		if p.hooks.OnStatus != nil {
			p.hooks.OnStatus(status)
		}
	}
	return failures
}
