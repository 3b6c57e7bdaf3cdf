// Package daemon schedules sync work: a periodic inbound pull, manual
// outbound pushes, and a throttled full sync, all serialized behind one
// non-blocking lock. A lightweight probe keeps an online flag current
// without ever touching the lock.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/bigtime/bigtime/internal/model"
	"github.com/bigtime/bigtime/internal/sync"
)

const (
	probeInterval    = 500 * time.Millisecond
	probeTimeout     = 3 * time.Second
	fullSyncThrottle = 5 * time.Second
)

// ErrSyncInProgress is returned when a sync request finds the lock held.
// The request is abandoned, not queued.
var ErrSyncInProgress = errors.New("sync already in progress")

// ErrThrottled is returned when a full sync arrives inside the 5 second
// throttle window or the backoff quiet period.
var ErrThrottled = errors.New("sync throttled")

// Daemon coordinates the sync engine's passes.
type Daemon struct {
	engine   *sync.Engine
	log      *slog.Logger
	interval time.Duration

	// syncMu serializes sync cycles; callers TryLock and give up
	// immediately if another cycle is running.
	syncMu  gosync.Mutex
	syncing atomic.Bool
	online  atomic.Bool
	backoff *Backoff

	throttleMu gosync.Mutex
	lastFull   time.Time

	cancel context.CancelFunc
	wg     gosync.WaitGroup

	now        func() time.Time
	probeEvery time.Duration
}

// New builds a daemon around an engine. interval is the periodic inbound
// pull cadence.
func New(engine *sync.Engine, interval time.Duration, log *slog.Logger) *Daemon {
	if log == nil {
		log = slog.Default()
	}
	return &Daemon{
		engine:     engine,
		log:        log.With("component", "daemon"),
		interval:   interval,
		backoff:    NewBackoff(),
		now:        time.Now,
		probeEvery: probeInterval,
	}
}

// Start launches the periodic pull and the connectivity probe. Call Stop
// to shut both down.
func (d *Daemon) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(2)
	go d.pullLoop(ctx)
	go d.probeLoop(ctx)
	d.log.Info("daemon started", "interval", d.interval)
}

// Stop shuts the daemon down and waits for in-flight work.
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.log.Info("daemon stopped")
}

func (d *Daemon) pullLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.PullNow(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
				d.log.Warn("periodic pull failed", "error", err)
			}
		}
	}
}

func (d *Daemon) probeLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.probeEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Each tick gets its own goroutine so a stalled server never
			// slows the cadence. Overlap is bounded by the probe timeout.
			d.wg.Add(1)
			go d.probe(ctx)
		}
	}
}

func (d *Daemon) probe(ctx context.Context) {
	defer d.wg.Done()
	online := d.engine.Online(ctx, probeTimeout)
	if ctx.Err() != nil {
		// Shutdown cancelled this probe; its verdict is noise, not a real
		// connectivity change.
		return
	}
	if d.online.Swap(online) != online {
		d.log.Info("connectivity changed", "online", online)
		d.engine.PublishStatus(ctx, online)
	}
}

// Online reports the probe's latest verdict.
func (d *Daemon) Online() bool {
	return d.online.Load()
}

// Syncing reports whether a sync cycle is currently running.
func (d *Daemon) Syncing() bool {
	return d.syncing.Load()
}

// Status overlays the daemon's live flags on the engine's stored counts.
func (d *Daemon) Status(ctx context.Context) (model.SyncStatus, error) {
	s, err := d.engine.Status(ctx)
	if err != nil {
		return s, err
	}
	s.Online = d.online.Load()
	s.Syncing = d.syncing.Load()
	return s, nil
}

// PullNow runs one inbound pass. Used by the periodic timer and available
// to callers who want a fresh roster immediately.
func (d *Daemon) PullNow(ctx context.Context) error {
	if !d.syncMu.TryLock() {
		return ErrSyncInProgress
	}
	defer d.syncMu.Unlock()
	d.syncing.Store(true)
	defer d.syncing.Store(false)

	ok, err := d.engine.SyncInbound(ctx)
	if err != nil {
		return err
	}
	if !ok {
		d.log.Debug("inbound pull incomplete, server unreachable")
	}
	return nil
}

// SyncNow runs one outbound pass, pushing pending local changes. Failures
// feed the backoff consulted by FullSync.
func (d *Daemon) SyncNow(ctx context.Context) error {
	if !d.syncMu.TryLock() {
		return ErrSyncInProgress
	}
	defer d.syncMu.Unlock()
	d.syncing.Store(true)
	defer d.syncing.Store(false)

	ok, err := d.engine.SyncOutbound(ctx)
	if err != nil {
		return err
	}
	if !ok {
		d.backoff.Failure()
		d.log.Warn("outbound sync incomplete",
			"failures", d.backoff.Failures(), "backoff", d.backoff.Window())
		return nil
	}
	d.backoff.Reset()
	return nil
}

// FullSync runs outbound then inbound. Attempts are throttled to one per
// five seconds and suppressed inside the backoff window; on overall
// success the ledger is cleared wholesale and the backoff reset.
func (d *Daemon) FullSync(ctx context.Context) error {
	if !d.syncMu.TryLock() {
		return ErrSyncInProgress
	}
	defer d.syncMu.Unlock()

	d.throttleMu.Lock()
	since := d.now().Sub(d.lastFull)
	if !d.lastFull.IsZero() && since < fullSyncThrottle {
		d.throttleMu.Unlock()
		d.log.Debug("full sync throttled", "since_last", since)
		return ErrThrottled
	}
	if !d.backoff.Ready() {
		d.throttleMu.Unlock()
		d.log.Debug("full sync suppressed by backoff",
			"failures", d.backoff.Failures(), "window", d.backoff.Window())
		return ErrThrottled
	}
	d.lastFull = d.now()
	d.throttleMu.Unlock()

	d.syncing.Store(true)
	defer d.syncing.Store(false)

	// Rows stuck in FAILED get one more chance each full sync, and rows
	// predating the sync columns get their identity backfilled.
	if _, err := d.engine.RetryFailed(ctx); err != nil {
		return err
	}
	if _, err := d.engine.Repair(ctx); err != nil {
		return err
	}

	outOK, err := d.engine.SyncOutbound(ctx)
	if err != nil {
		return err
	}
	inOK, err := d.engine.SyncInbound(ctx)
	if err != nil {
		return err
	}

	if !outOK || !inOK {
		d.backoff.Failure()
		d.log.Warn("full sync incomplete",
			"outbound_ok", outOK, "inbound_ok", inOK,
			"failures", d.backoff.Failures(), "backoff", d.backoff.Window())
		return nil
	}
	if err := d.engine.CompleteFullSync(ctx); err != nil {
		return err
	}
	d.backoff.Reset()
	d.log.Info("full sync complete")
	return nil
}
