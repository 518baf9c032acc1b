package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/donaldgifford/pricely/internal/metrics"
	domain "github.com/donaldgifford/pricely/pkg/types"
)

// entry is one tracker in the schedule.
type entry struct {
	tracker domain.Tracker
	next    time.Time
}

// run is the in-flight marker for one tracker. done is closed once result
// and err are set.
type run struct {
	done   chan struct{}
	result CheckResult
	err    error
}

func (e *Engine) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	e.tick()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// tick dispatches every due tracker that has no check in flight. It holds
// the schedule lock throughout and performs no I/O.
func (e *Engine) tick() {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != stateRunning {
		return
	}

	for id, ent := range e.schedule {
		if !ent.tracker.Active {
			delete(e.schedule, id)
			continue
		}
		if ent.next.After(now) {
			continue
		}
		if _, busy := e.inflight[id]; busy {
			continue
		}
		e.launchLocked(id, false)
	}
	e.syncScheduledGauge()
}

// launchLocked marks trackerID in flight and starts its check. The caller
// holds e.mu.
func (e *Engine) launchLocked(trackerID string, forced bool) *run {
	r := &run{done: make(chan struct{})}
	e.inflight[trackerID] = r

	wg := e.wg
	wg.Add(1)
	go e.execute(r, trackerID, forced, e.acqCtx, e.workCtx, wg)
	return r
}

func (e *Engine) execute(
	r *run,
	trackerID string,
	forced bool,
	acqCtx, workCtx context.Context,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	if err := e.sem.Acquire(acqCtx, 1); err != nil {
		err = fmt.Errorf("%w: %w", errAbandoned, err)
		e.finish(r, trackerID, CheckResult{TrackerID: trackerID, Outcome: outcomeFor(err)}, err)
		return
	}
	defer e.sem.Release(1)

	metrics.ChecksInFlight.Inc()
	start := time.Now()

	res, err := e.check(workCtx, trackerID, forced)

	metrics.ChecksInFlight.Dec()
	metrics.CheckDuration.Observe(time.Since(start).Seconds())
	metrics.ChecksTotal.WithLabelValues(res.Outcome).Inc()

	if err != nil {
		e.log.Warn("check failed",
			"tracker", trackerID,
			"outcome", res.Outcome,
			"error", err,
		)
	} else {
		e.log.Debug("check complete",
			"tracker", trackerID,
			"price", res.Price,
			"notified", res.Notified,
		)
	}

	e.finish(r, trackerID, res, err)
}

// finish clears the in-flight marker, reschedules the tracker and wakes
// every waiter.
func (e *Engine) finish(r *run, trackerID string, res CheckResult, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r.result = res
	r.err = err
	if e.inflight[trackerID] == r {
		delete(e.inflight, trackerID)
	}

	ent, ok := e.schedule[trackerID]
	switch {
	case !ok:
	case res.Outcome == metrics.OutcomeGone:
		delete(e.schedule, trackerID)
		e.syncScheduledGauge()
	case res.Outcome == metrics.OutcomeAbandoned:
	case !res.CheckedAt.IsZero():
		at := res.CheckedAt
		ent.tracker.LastCheckedAt = &at
		ent.next = at.Add(ent.tracker.CheckInterval + e.jitterFor(ent.tracker.CheckInterval))
	default:
		// Nothing was recorded; retry one interval from now.
		ent.next = e.now().Add(ent.tracker.CheckInterval)
	}

	close(r.done)
}

// trackLocked adds or refreshes a schedule entry. An existing entry keeps
// its next-due time unless the interval or last check time changed.
func (e *Engine) trackLocked(t domain.Tracker) {
	if !t.Active {
		delete(e.schedule, t.ID)
		return
	}
	if t.CheckInterval <= 0 {
		t.CheckInterval = e.defaultInterval
	}

	if ent, ok := e.schedule[t.ID]; ok &&
		ent.tracker.CheckInterval == t.CheckInterval &&
		sameTime(ent.tracker.LastCheckedAt, t.LastCheckedAt) {
		ent.tracker = t
		return
	}
	e.schedule[t.ID] = &entry{tracker: t, next: e.nextDue(&t)}
}

// nextDue is last check + interval + jitter, or now for a tracker that was
// never checked.
func (e *Engine) nextDue(t *domain.Tracker) time.Time {
	now := e.now()
	if t.LastCheckedAt == nil {
		return now
	}
	return t.NextDue(now).Add(e.jitterFor(t.CheckInterval))
}

func (e *Engine) jitterFor(interval time.Duration) time.Duration {
	if e.jitter <= 0 || interval <= 0 {
		return 0
	}
	return time.Duration(e.randFloat() * e.jitter * float64(interval))
}

func (e *Engine) syncScheduledGauge() {
	metrics.ScheduledTrackers.Set(float64(len(e.schedule)))
}

// Resync reloads active trackers from the store and reconciles the
// schedule with them: new trackers are added, changed ones refreshed and
// trackers no longer active or present are dropped.
func (e *Engine) Resync(ctx context.Context) error {
	trackers, err := e.store.ListTrackers(ctx, true)
	if err != nil {
		metrics.ResyncTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("listing trackers: %w", err)
	}

	seen := make(map[string]struct{}, len(trackers))

	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range trackers {
		seen[trackers[i].ID] = struct{}{}
		e.trackLocked(trackers[i])
	}
	for id := range e.schedule {
		if _, ok := seen[id]; !ok {
			delete(e.schedule, id)
		}
	}
	e.syncScheduledGauge()
	metrics.ResyncTotal.WithLabelValues("ok").Inc()
	return nil
}

// Scheduled returns the number of trackers in the schedule.
func (e *Engine) Scheduled() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.schedule)
}

// sameTime compares at microsecond precision, the resolution of timestamptz.
func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Truncate(time.Microsecond).Equal(b.Truncate(time.Microsecond))
}
