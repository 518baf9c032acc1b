// Package engine schedules tracker checks and runs the fetch, persist and
// notify pipeline for each of them.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/donaldgifford/pricely/internal/metrics"
	"github.com/donaldgifford/pricely/internal/notify"
	"github.com/donaldgifford/pricely/internal/source"
	"github.com/donaldgifford/pricely/internal/store"
	domain "github.com/donaldgifford/pricely/pkg/types"
)

const (
	defaultWorkers         = 10
	defaultTickInterval    = time.Second
	defaultFetchTimeout    = 30 * time.Second
	defaultStopGrace       = 30 * time.Second
	defaultJitter          = 0.1
	defaultDeliveryTimeout = 15 * time.Second
	defaultCheckInterval   = time.Hour

	tracerName = "github.com/donaldgifford/pricely/internal/engine"
)

// Resolver maps a product URL to the adapter that can fetch it.
type Resolver interface {
	Resolve(rawURL string) (source.Adapter, error)
}

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopping
	stateStopped
)

// Engine owns the schedule of active trackers and dispatches checks onto a
// bounded worker pool. At most one check per tracker is in flight at a time.
type Engine struct {
	store      store.Store
	resolver   Resolver
	dispatcher notify.Dispatcher
	log        *slog.Logger
	tracer     trace.Tracer

	workers         int
	tickInterval    time.Duration
	fetchTimeout    time.Duration
	stopGrace       time.Duration
	jitter          float64
	deliveryTimeout time.Duration
	defaultInterval time.Duration
	now             func() time.Time
	randFloat       func() float64

	sem *semaphore.Weighted

	mu       sync.Mutex
	state    state
	schedule map[string]*entry
	inflight map[string]*run
	wg       *sync.WaitGroup

	// acqCtx is cancelled when Stop begins; queued runs waiting for a
	// worker slot give up. workCtx is cancelled when the grace period ends.
	acqCtx     context.Context
	cancelAcq  context.CancelFunc
	workCtx    context.Context
	cancelWork context.CancelFunc

	stopCh   chan struct{}
	loopDone chan struct{}
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithWorkers caps the number of checks running at once.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithTickInterval sets how often the schedule is scanned for due trackers.
func WithTickInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.tickInterval = d
		}
	}
}

// WithFetchTimeout bounds every adapter fetch.
func WithFetchTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.fetchTimeout = d
		}
	}
}

// WithStopGrace sets how long Stop waits for in-flight checks.
func WithStopGrace(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.stopGrace = d
	}
}

// WithJitter offsets each next-due time by a random fraction of the
// interval in [0, f). Zero disables jitter.
func WithJitter(f float64) EngineOption {
	return func(e *Engine) {
		if f >= 0 {
			e.jitter = f
		}
	}
}

// WithDeliveryTimeout bounds a single notification delivery.
func WithDeliveryTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.deliveryTimeout = d
		}
	}
}

// WithDefaultInterval is used for trackers stored without an interval.
func WithDefaultInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.defaultInterval = d
		}
	}
}

// WithNowFunc overrides the clock.
func WithNowFunc(f func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = f
	}
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(
	s store.Store,
	r Resolver,
	d notify.Dispatcher,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		store:           s,
		resolver:        r,
		dispatcher:      d,
		log:             slog.Default(),
		tracer:          otel.Tracer(tracerName),
		workers:         defaultWorkers,
		tickInterval:    defaultTickInterval,
		fetchTimeout:    defaultFetchTimeout,
		stopGrace:       defaultStopGrace,
		jitter:          defaultJitter,
		deliveryTimeout: defaultDeliveryTimeout,
		defaultInterval: defaultCheckInterval,
		now:             time.Now,
		randFloat:       rand.Float64,
		schedule:        make(map[string]*entry),
		inflight:        make(map[string]*run),
	}
	for _, opt := range opts {
		opt(eng)
	}
	eng.sem = semaphore.NewWeighted(int64(eng.workers))
	eng.resetContexts()
	return eng
}

func (e *Engine) resetContexts() {
	e.acqCtx, e.cancelAcq = context.WithCancel(context.Background())
	e.workCtx, e.cancelWork = context.WithCancel(context.Background())
	e.wg = &sync.WaitGroup{}
}

// Start loads the active trackers and begins the tick loop in the
// background. Calling Start on a running engine is a no-op. A stopped
// engine may be started again.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case stateRunning:
		e.mu.Unlock()
		return nil
	case stateStopping:
		e.mu.Unlock()
		return ErrStopping
	}
	e.mu.Unlock()

	trackers, err := e.store.ListTrackers(ctx, true)
	if err != nil {
		return fmt.Errorf("loading trackers: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case stateRunning:
		return nil
	case stateStopping:
		return ErrStopping
	case stateStopped:
		e.resetContexts()
	}

	for i := range trackers {
		e.trackLocked(trackers[i])
	}
	e.syncScheduledGauge()

	e.state = stateRunning
	e.stopCh = make(chan struct{})
	e.loopDone = make(chan struct{})
	go e.loop(e.stopCh, e.loopDone)

	e.log.Info("engine started",
		"trackers", len(e.schedule),
		"workers", e.workers,
		"tick", e.tickInterval,
	)
	return nil
}

// Stop halts the tick loop, abandons runs still waiting for a worker slot
// and waits for in-flight runs until they finish, the grace period elapses
// or ctx is done, whichever comes first.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	if e.state == stateStopping || e.state == stateStopped {
		e.mu.Unlock()
		return
	}
	e.state = stateStopping
	if e.stopCh != nil {
		close(e.stopCh)
	}
	loopDone := e.loopDone
	wg := e.wg
	cancelWork := e.cancelWork
	e.cancelAcq()
	e.mu.Unlock()

	e.log.Info("engine stopping")

	if loopDone != nil {
		<-loopDone
	}

	quiet := make(chan struct{})
	go func() {
		wg.Wait()
		close(quiet)
	}()

	grace := time.NewTimer(e.stopGrace)
	defer grace.Stop()

	select {
	case <-quiet:
	case <-grace.C:
		e.log.Warn("stop grace period elapsed with checks in flight")
	case <-ctx.Done():
		e.log.Warn("stop interrupted", "error", ctx.Err())
	}
	cancelWork()

	e.mu.Lock()
	e.state = stateStopped
	e.stopCh = nil
	e.loopDone = nil
	e.mu.Unlock()

	e.log.Info("engine stopped")
}

// CheckNow forces a synchronous check of one tracker and reports whether
// the fetch and persist steps completed. If a check of the same tracker is
// already running it waits for that one instead of starting another.
func (e *Engine) CheckNow(ctx context.Context, trackerID string) bool {
	res, err := e.CheckNowResult(ctx, trackerID)
	if err != nil {
		e.log.Warn("forced check failed",
			"tracker", trackerID,
			"outcome", res.Outcome,
			"error", err,
		)
	}
	return res.Success()
}

// CheckNowResult is CheckNow with the full outcome and error.
func (e *Engine) CheckNowResult(ctx context.Context, trackerID string) (CheckResult, error) {
	e.mu.Lock()
	if e.state == stateStopping || e.state == stateStopped {
		e.mu.Unlock()
		return CheckResult{TrackerID: trackerID, Outcome: outcomeFor(errAbandoned)}, ErrStopping
	}
	r, joined := e.inflight[trackerID]
	if !joined {
		r = e.launchLocked(trackerID, true)
	}
	e.mu.Unlock()

	if joined {
		metrics.CheckNowJoinedTotal.Inc()
	}

	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		return CheckResult{TrackerID: trackerID, Outcome: outcomeFor(errAbandoned)}, ctx.Err()
	}
}

// Track adds a tracker to the schedule or refreshes its entry. Inactive
// trackers are removed.
func (e *Engine) Track(t domain.Tracker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trackLocked(t)
	e.syncScheduledGauge()
}

// Forget drops a tracker from the schedule. A check already in flight is
// not waited for.
func (e *Engine) Forget(trackerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.schedule, trackerID)
	e.syncScheduledGauge()
}
