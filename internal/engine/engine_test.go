package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/pricely/internal/metrics"
	"github.com/donaldgifford/pricely/internal/notify"
	notifyMocks "github.com/donaldgifford/pricely/internal/notify/mocks"
	"github.com/donaldgifford/pricely/internal/source"
	sourceMocks "github.com/donaldgifford/pricely/internal/source/mocks"
	"github.com/donaldgifford/pricely/internal/store"
	domain "github.com/donaldgifford/pricely/pkg/types"
)

const shopPrefix = "https://shop.example.com/"

// quietLogger returns a logger that discards output for tests.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store      *store.MemoryStore
	adapter    *sourceMocks.MockAdapter
	dispatcher *notifyMocks.MockDispatcher
	engine     *Engine
}

func newFixture(t *testing.T, opts ...EngineOption) *fixture {
	t.Helper()

	ms := store.NewMemoryStore()
	ma := sourceMocks.NewMockAdapter(t)
	ma.EXPECT().Name().Return("shop").Maybe()
	ma.EXPECT().Supports(mock.Anything).RunAndReturn(func(u string) bool {
		return len(u) > len(shopPrefix) && u[:len(shopPrefix)] == shopPrefix
	}).Maybe()
	md := notifyMocks.NewMockDispatcher(t)

	base := []EngineOption{
		WithLogger(quietLogger()),
		WithJitter(0),
		WithTickInterval(10 * time.Millisecond),
		WithStopGrace(time.Second),
	}
	eng := NewEngine(ms, source.NewRegistry(ma), md, append(base, opts...)...)

	// Runs before the mocks assert their expectations, so deliveries still
	// in flight are counted.
	t.Cleanup(func() { eng.Stop(context.Background()) })

	return &fixture{store: ms, adapter: ma, dispatcher: md, engine: eng}
}

// drain waits for every run and delivery started so far.
func (f *fixture) drain() {
	f.engine.mu.Lock()
	wg := f.engine.wg
	f.engine.mu.Unlock()
	wg.Wait()
}

// seed creates a user, product and active tracker for rawURL.
func (f *fixture) seed(t *testing.T, rawURL string, target int64) *domain.Tracker {
	t.Helper()
	ctx := context.Background()

	name := "user-" + uuid.NewString()[:8]
	u := &domain.User{Username: name, Email: name + "@example.com"}
	require.NoError(t, f.store.CreateUser(ctx, u))

	p := &domain.Product{URL: rawURL, Website: "shop", Name: "Widget"}
	_, err := f.store.GetOrCreateProduct(ctx, p)
	require.NoError(t, err)

	tr := &domain.Tracker{
		UserID:        u.ID,
		ProductID:     p.ID,
		TargetPrice:   decimal.NewFromInt(target),
		Active:        true,
		CheckInterval: time.Hour,
	}
	require.NoError(t, f.store.CreateTracker(ctx, tr))
	return tr
}

func (f *fixture) observations(t *testing.T, tr *domain.Tracker) []domain.PriceObservation {
	t.Helper()
	obs, err := f.store.ListObservations(context.Background(), tr.ProductID, 100)
	require.NoError(t, err)
	return obs
}

func (f *fixture) notifications(t *testing.T, tr *domain.Tracker) []domain.Notification {
	t.Helper()
	ns, err := f.store.ListNotifications(context.Background(), tr.UserID, false)
	require.NoError(t, err)
	return ns
}

func snap(price string) *source.Snapshot {
	return &source.Snapshot{
		Name:      "Widget",
		Price:     decimal.RequireFromString(price),
		Currency:  "USD",
		Available: true,
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	t.Parallel()

	eng := NewEngine(store.NewMemoryStore(), source.NewRegistry(), notify.NewNoOpDispatcher(quietLogger()))
	assert.Equal(t, defaultWorkers, eng.workers)
	assert.Equal(t, defaultTickInterval, eng.tickInterval)
	assert.Equal(t, defaultFetchTimeout, eng.fetchTimeout)
	assert.Equal(t, defaultStopGrace, eng.stopGrace)
	assert.InDelta(t, defaultJitter, eng.jitter, 1e-9)
	assert.Equal(t, defaultDeliveryTimeout, eng.deliveryTimeout)
	assert.Equal(t, defaultCheckInterval, eng.defaultInterval)
	assert.NotNil(t, eng.log)
}

func TestNewEngine_WithOptions(t *testing.T) {
	t.Parallel()

	l := quietLogger()
	eng := NewEngine(store.NewMemoryStore(), source.NewRegistry(), notify.NewNoOpDispatcher(l),
		WithLogger(l),
		WithWorkers(3),
		WithTickInterval(5*time.Second),
		WithFetchTimeout(2*time.Second),
		WithStopGrace(time.Minute),
		WithJitter(0),
		WithDeliveryTimeout(time.Second),
		WithDefaultInterval(10*time.Minute),
	)

	assert.Same(t, l, eng.log)
	assert.Equal(t, 3, eng.workers)
	assert.Equal(t, 5*time.Second, eng.tickInterval)
	assert.Equal(t, 2*time.Second, eng.fetchTimeout)
	assert.Equal(t, time.Minute, eng.stopGrace)
	assert.Zero(t, eng.jitter)
	assert.Equal(t, time.Second, eng.deliveryTimeout)
	assert.Equal(t, 10*time.Minute, eng.defaultInterval)

	// Non-positive values keep the defaults.
	eng = NewEngine(nil, nil, nil, WithWorkers(0), WithTickInterval(-1), WithJitter(-0.5))
	assert.Equal(t, defaultWorkers, eng.workers)
	assert.Equal(t, defaultTickInterval, eng.tickInterval)
	assert.InDelta(t, defaultJitter, eng.jitter, 1e-9)
}

func TestCheckNow_CrossingSequences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		target       int64
		prices       []string
		wantNotified []bool
	}{
		{
			name:         "fires once when price reaches target",
			target:       115,
			prices:       []string{"120", "115", "110"},
			wantNotified: []bool{false, true, false},
		},
		{
			name:         "first observation already below target",
			target:       115,
			prices:       []string{"110", "105"},
			wantNotified: []bool{true, false},
		},
		{
			name:         "re-arms after rising above target",
			target:       100,
			prices:       []string{"90", "110", "95"},
			wantNotified: []bool{true, false, true},
		},
		{
			name:         "equal to target re-armed by one cent above",
			target:       100,
			prices:       []string{"100", "100.01", "100"},
			wantNotified: []bool{true, false, true},
		},
		{
			name:         "never below target",
			target:       100,
			prices:       []string{"150", "120"},
			wantNotified: []bool{false, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			tr := f.seed(t, shopPrefix+"p/1", tt.target)
			ctx := context.Background()

			for _, p := range tt.prices {
				f.adapter.EXPECT().Fetch(mock.Anything, shopPrefix+"p/1").Return(snap(p), nil).Once()
			}

			want := 0
			for _, n := range tt.wantNotified {
				if n {
					want++
				}
			}
			if want > 0 {
				f.dispatcher.EXPECT().Deliver(mock.Anything, mock.Anything).Return(nil).Times(want)
			}

			for i := range tt.prices {
				res, err := f.engine.CheckNowResult(ctx, tr.ID)
				require.NoError(t, err)
				assert.Equal(t, metrics.OutcomeSuccess, res.Outcome)
				assert.Equal(t, tt.wantNotified[i], res.Notified, "check %d at %s", i, tt.prices[i])
			}

			assert.Len(t, f.observations(t, tr), len(tt.prices))
			assert.Len(t, f.notifications(t, tr), want)
		})
	}
}

func TestCheckNow_DeliveryMessage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.seed(t, shopPrefix+"p/msg", 100)

	f.adapter.EXPECT().Fetch(mock.Anything, mock.Anything).Return(snap("95"), nil).Once()

	var got *notify.Message
	f.dispatcher.EXPECT().Deliver(mock.Anything, mock.Anything).
		Run(func(_ context.Context, msg *notify.Message) { got = msg }).
		Return(nil).Once()

	require.True(t, f.engine.CheckNow(context.Background(), tr.ID))
	f.drain()
	require.NotNil(t, got)

	ns := f.notifications(t, tr)
	require.Len(t, ns, 1)

	assert.Equal(t, "Price alert: Widget", got.Subject)
	assert.Equal(t, ns[0].ID, got.NotificationID)
	assert.Equal(t, ns[0].Message, got.Body)
	assert.Contains(t, got.Body, "95.00 USD")
	assert.Contains(t, got.Body, "target 100.00 USD")
	assert.Equal(t, "95.00", got.Price)
	assert.Equal(t, "100.00", got.TargetPrice)
	assert.Equal(t, tr.UserID, got.Recipient.UserID)
	assert.NotEmpty(t, got.Recipient.Email)
}

func TestCheckNow_DeliveryFailureKeepsRecords(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.seed(t, shopPrefix+"p/2", 100)

	f.adapter.EXPECT().Fetch(mock.Anything, mock.Anything).Return(snap("80"), nil).Once()
	f.dispatcher.EXPECT().Deliver(mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

	res, err := f.engine.CheckNowResult(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.True(t, res.Notified)

	assert.Len(t, f.observations(t, tr), 1)
	assert.Len(t, f.notifications(t, tr), 1)

	stored, err := f.store.GetTracker(context.Background(), tr.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastNotifiedPrice)
	assert.True(t, stored.LastNotifiedPrice.Equal(decimal.NewFromInt(80)))
}

func TestCheckNow_FailuresBeforePersist(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		url         string
		snapshot    *source.Snapshot
		fetchErr    error
		wantOutcome string
		wantErr     error
		errContains string
	}{
		{
			name:        "unsupported url is an adapter error",
			url:         "https://elsewhere.example.com/p/1",
			wantOutcome: metrics.OutcomeAdapter,
			wantErr:     source.ErrUnsupportedSource,
			errContains: "unsupported source",
		},
		{
			name:        "fetch failure",
			url:         shopPrefix + "p/fetch",
			fetchErr:    errors.New("connection reset"),
			wantOutcome: metrics.OutcomeFetch,
			wantErr:     ErrFetch,
			errContains: "connection reset",
		},
		{
			name:        "nil snapshot",
			url:         shopPrefix + "p/nil",
			wantOutcome: metrics.OutcomeFetch,
			wantErr:     source.ErrNoPrice,
			errContains: "price not found",
		},
		{
			name:        "negative price",
			url:         shopPrefix + "p/neg",
			snapshot:    snap("-1"),
			wantOutcome: metrics.OutcomeValidation,
			wantErr:     ErrValidation,
			errContains: "negative price",
		},
		{
			name:        "malformed currency",
			url:         shopPrefix + "p/cur",
			snapshot:    &source.Snapshot{Price: decimal.NewFromInt(5), Currency: "US$"},
			wantOutcome: metrics.OutcomeValidation,
			wantErr:     ErrValidation,
			errContains: "unknown currency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			tr := f.seed(t, tt.url, 100)
			ctx := context.Background()

			if tt.wantOutcome != metrics.OutcomeAdapter {
				f.adapter.EXPECT().Fetch(mock.Anything, tt.url).Return(tt.snapshot, tt.fetchErr).Once()
			}

			res, err := f.engine.CheckNowResult(ctx, tr.ID)
			require.Error(t, err)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantOutcome, res.Outcome)
			assert.False(t, res.Success())
			assert.False(t, res.CheckedAt.IsZero())

			stored, err := f.store.GetTracker(ctx, tr.ID)
			require.NoError(t, err)
			require.NotNil(t, stored.LastCheckedAt)
			assert.Contains(t, stored.LastError, tt.errContains)
			assert.True(t, stored.Active)

			assert.Empty(t, f.observations(t, tr))
			assert.Empty(t, f.notifications(t, tr))
		})
	}
}

func TestCheckNow_SuccessClearsLastError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.seed(t, shopPrefix+"p/recover", 10)
	ctx := context.Background()

	f.adapter.EXPECT().Fetch(mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()
	f.adapter.EXPECT().Fetch(mock.Anything, mock.Anything).Return(&source.Snapshot{Price: decimal.NewFromInt(20)}, nil).Once()

	assert.False(t, f.engine.CheckNow(ctx, tr.ID))
	assert.True(t, f.engine.CheckNow(ctx, tr.ID))

	stored, err := f.store.GetTracker(ctx, tr.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.LastError)

	obs := f.observations(t, tr)
	require.Len(t, obs, 1)
	assert.Equal(t, domain.DefaultCurrency, obs[0].Currency)
}

func TestCheckNow_RefreshesProductDetails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.seed(t, shopPrefix+"p/refresh", 10)
	ctx := context.Background()

	s := snap("50")
	s.Name = "Widget Pro"
	s.ImageURL = "https://cdn.example.com/w.png"
	f.adapter.EXPECT().Fetch(mock.Anything, mock.Anything).Return(s, nil).Once()

	require.True(t, f.engine.CheckNow(ctx, tr.ID))

	p, err := f.store.GetProduct(ctx, tr.ProductID)
	require.NoError(t, err)
	assert.Equal(t, "Widget Pro", p.Name)
	assert.Equal(t, "https://cdn.example.com/w.png", p.ImageURL)
}

// appendFailingStore fails every observation write.
type appendFailingStore struct {
	store.Store
}

func (appendFailingStore) AppendObservation(context.Context, *domain.PriceObservation) error {
	return errors.New("disk full")
}

func TestCheckNow_PersistenceFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t)
	tr := f.seed(t, shopPrefix+"p/persist", 100)

	eng := NewEngine(appendFailingStore{f.store}, f.engine.resolver, f.dispatcher,
		WithLogger(quietLogger()),
		WithJitter(0),
		WithNowFunc(func() time.Time { return now }),
	)
	eng.Track(*tr)

	f.adapter.EXPECT().Fetch(mock.Anything, mock.Anything).Return(snap("50"), nil).Once()

	res, err := eng.CheckNowResult(context.Background(), tr.ID)
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, metrics.OutcomePersistence, res.Outcome)

	stored, err := f.store.GetTracker(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastCheckedAt)
	assert.Empty(t, f.notifications(t, tr))

	eng.mu.Lock()
	next := eng.schedule[tr.ID].next
	eng.mu.Unlock()
	assert.Equal(t, now.Add(time.Hour), next)

	// A resync with the unchanged stored row keeps the advanced due time.
	require.NoError(t, eng.Resync(context.Background()))
	eng.mu.Lock()
	assert.Equal(t, now.Add(time.Hour), eng.schedule[tr.ID].next)
	eng.mu.Unlock()
}

func TestCheckNow_JoinsInFlightRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.seed(t, shopPrefix+"p/join", 100)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	f.adapter.EXPECT().Fetch(mock.Anything, mock.Anything).
		RunAndReturn(func(context.Context, string) (*source.Snapshot, error) {
			close(started)
			<-release
			return snap("50"), nil
		}).Once()
	f.dispatcher.EXPECT().Deliver(mock.Anything, mock.Anything).Return(nil).Once()

	joinedBefore := ptestutil.ToFloat64(metrics.CheckNowJoinedTotal)

	results := make(chan bool, 2)
	go func() { results <- f.engine.CheckNow(ctx, tr.ID) }()
	<-started
	go func() { results <- f.engine.CheckNow(ctx, tr.ID) }()

	require.Eventually(t, func() bool {
		return ptestutil.ToFloat64(metrics.CheckNowJoinedTotal) > joinedBefore
	}, time.Second, 5*time.Millisecond)
	close(release)

	assert.True(t, <-results)
	assert.True(t, <-results)
	assert.Len(t, f.observations(t, tr), 1)
	assert.Len(t, f.notifications(t, tr), 1)
}

func TestCheckNow_TrackerDeletedMidFlight(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.seed(t, shopPrefix+"p/gone", 100)
	ctx := context.Background()
	f.engine.Track(*tr)

	started := make(chan struct{})
	release := make(chan struct{})
	f.adapter.EXPECT().Fetch(mock.Anything, mock.Anything).
		RunAndReturn(func(context.Context, string) (*source.Snapshot, error) {
			close(started)
			<-release
			return snap("50"), nil
		}).Once()

	type outcome struct {
		res CheckResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := f.engine.CheckNowResult(ctx, tr.ID)
		done <- outcome{res, err}
	}()

	<-started
	require.NoError(t, f.store.DeleteTracker(ctx, tr.ID))
	f.engine.Forget(tr.ID)
	close(release)

	got := <-done
	require.ErrorIs(t, got.err, ErrTrackerGone)
	assert.Equal(t, metrics.OutcomeGone, got.res.Outcome)
	assert.Zero(t, f.engine.Scheduled())

	f.engine.mu.Lock()
	assert.Empty(t, f.engine.inflight)
	f.engine.mu.Unlock()
}

func TestCheckNow_MissingTracker(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res, err := f.engine.CheckNowResult(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, ErrTrackerGone)
	assert.Equal(t, metrics.OutcomeGone, res.Outcome)
}

func TestCheckNow_CallerContextDone(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.seed(t, shopPrefix+"p/ctx", 100)

	release := make(chan struct{})
	f.adapter.EXPECT().Fetch(mock.Anything, mock.Anything).
		RunAndReturn(func(context.Context, string) (*source.Snapshot, error) {
			<-release
			return snap("150"), nil
		}).Once()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := f.engine.CheckNowResult(ctx, tr.ID)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, res.Success())

	close(release)
	require.Eventually(t, func() bool { return len(f.observations(t, tr)) == 1 }, time.Second, 5*time.Millisecond)
}

func TestEngine_StartStopLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Start(ctx))
	require.NoError(t, f.engine.Start(ctx))

	f.engine.Stop(ctx)
	f.engine.Stop(ctx)

	res, err := f.engine.CheckNowResult(ctx, "any")
	require.ErrorIs(t, err, ErrStopping)
	assert.Equal(t, metrics.OutcomeAbandoned, res.Outcome)
	assert.False(t, f.engine.CheckNow(ctx, "any"))

	// Restart after stop is allowed and forced checks work again.
	require.NoError(t, f.engine.Start(ctx))
	_, err = f.engine.CheckNowResult(ctx, uuid.NewString())
	require.ErrorIs(t, err, ErrTrackerGone)
	f.engine.Stop(ctx)
}

func TestEngine_StartLoadError(t *testing.T) {
	t.Parallel()

	eng := NewEngine(listFailingStore{store.NewMemoryStore()}, source.NewRegistry(), nil,
		WithLogger(quietLogger()))
	err := eng.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading trackers")
}

type listFailingStore struct {
	store.Store
}

func (listFailingStore) ListTrackers(context.Context, bool) ([]domain.Tracker, error) {
	return nil, errors.New("connection refused")
}

func TestEngine_ScheduledCheckRuns(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.seed(t, shopPrefix+"p/tick", 100)
	ctx := context.Background()

	f.adapter.EXPECT().Fetch(mock.Anything, shopPrefix+"p/tick").Return(snap("150"), nil).Once()

	require.NoError(t, f.engine.Start(ctx))
	defer f.engine.Stop(ctx)

	assert.Equal(t, 1, f.engine.Scheduled())
	require.Eventually(t, func() bool {
		return len(f.observations(t, tr)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Once the run finishes the next one is an interval away.
	require.Eventually(t, func() bool {
		f.engine.mu.Lock()
		defer f.engine.mu.Unlock()
		_, busy := f.engine.inflight[tr.ID]
		return !busy && f.engine.schedule[tr.ID].next.After(time.Now().Add(50*time.Minute))
	}, time.Second, 10*time.Millisecond)

	stored, err := f.store.GetTracker(ctx, tr.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastCheckedAt)
}

func TestEngine_SlowTrackerDoesNotDelayOthers(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	slow := f.seed(t, shopPrefix+"p/slow", 100)
	fast := f.seed(t, shopPrefix+"p/fast", 100)
	ctx := context.Background()

	release := make(chan struct{})
	f.adapter.EXPECT().Fetch(mock.Anything, shopPrefix+"p/slow").
		RunAndReturn(func(ctx context.Context, _ string) (*source.Snapshot, error) {
			select {
			case <-release:
				return snap("150"), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}).Once()
	f.adapter.EXPECT().Fetch(mock.Anything, shopPrefix+"p/fast").Return(snap("150"), nil).Once()

	require.NoError(t, f.engine.Start(ctx))

	require.Eventually(t, func() bool {
		return len(f.observations(t, fast)) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, f.observations(t, slow))

	close(release)
	require.Eventually(t, func() bool {
		return len(f.observations(t, slow)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	f.engine.Stop(ctx)
}

func TestEngine_StopAbandonsQueuedRuns(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithWorkers(1), WithStopGrace(50*time.Millisecond))
	busy := f.seed(t, shopPrefix+"p/busy", 100)
	queued := f.seed(t, shopPrefix+"p/queued", 100)
	ctx := context.Background()

	started := make(chan struct{})
	f.adapter.EXPECT().Fetch(mock.Anything, shopPrefix+"p/busy").
		RunAndReturn(func(ctx context.Context, _ string) (*source.Snapshot, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}).Once()

	type outcome struct {
		res CheckResult
		err error
	}
	busyDone := make(chan outcome, 1)
	queuedDone := make(chan outcome, 1)

	go func() {
		res, err := f.engine.CheckNowResult(ctx, busy.ID)
		busyDone <- outcome{res, err}
	}()
	<-started
	go func() {
		res, err := f.engine.CheckNowResult(ctx, queued.ID)
		queuedDone <- outcome{res, err}
	}()

	require.Eventually(t, func() bool {
		f.engine.mu.Lock()
		defer f.engine.mu.Unlock()
		_, ok := f.engine.inflight[queued.ID]
		return ok
	}, time.Second, 5*time.Millisecond)

	f.engine.Stop(ctx)

	q := <-queuedDone
	assert.Equal(t, metrics.OutcomeAbandoned, q.res.Outcome)
	require.ErrorIs(t, q.err, errAbandoned)

	b := <-busyDone
	assert.Equal(t, metrics.OutcomeFetch, b.res.Outcome)
	assert.Empty(t, f.observations(t, queued))
}

func TestEngine_TrackAndForget(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.seed(t, shopPrefix+"p/track", 100)

	f.engine.Track(*tr)
	assert.Equal(t, 1, f.engine.Scheduled())

	inactive := *tr
	inactive.Active = false
	f.engine.Track(inactive)
	assert.Zero(t, f.engine.Scheduled())

	f.engine.Track(*tr)
	f.engine.Forget(tr.ID)
	assert.Zero(t, f.engine.Scheduled())

	noInterval := *tr
	noInterval.CheckInterval = 0
	f.engine.Track(noInterval)
	f.engine.mu.Lock()
	assert.Equal(t, defaultCheckInterval, f.engine.schedule[tr.ID].tracker.CheckInterval)
	f.engine.mu.Unlock()
}

func TestEngine_ScheduledRunSkipsDeactivated(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.seed(t, shopPrefix+"p/off", 100)
	ctx := context.Background()
	f.engine.Track(*tr)

	off := *tr
	off.Active = false
	require.NoError(t, f.store.UpdateTracker(ctx, &off))

	res, err := f.engine.check(ctx, tr.ID, false)
	require.ErrorIs(t, err, ErrTrackerGone)
	assert.Equal(t, metrics.OutcomeGone, res.Outcome)

	// A forced check of the same inactive tracker still runs.
	f.adapter.EXPECT().Fetch(mock.Anything, mock.Anything).Return(snap("150"), nil).Once()
	assert.True(t, f.engine.CheckNow(ctx, tr.ID))
}

func TestEngine_Resync(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	keep := f.seed(t, shopPrefix+"p/keep", 100)
	drop := f.seed(t, shopPrefix+"p/drop", 100)
	ctx := context.Background()

	f.engine.Track(*keep)
	f.engine.Track(*drop)
	require.Equal(t, 2, f.engine.Scheduled())

	require.NoError(t, f.store.DeleteTracker(ctx, drop.ID))
	added := f.seed(t, shopPrefix+"p/added", 100)

	okBefore := ptestutil.ToFloat64(metrics.ResyncTotal.WithLabelValues("ok"))
	require.NoError(t, f.engine.Resync(ctx))
	assert.InDelta(t, okBefore+1, ptestutil.ToFloat64(metrics.ResyncTotal.WithLabelValues("ok")), 1e-9)

	f.engine.mu.Lock()
	defer f.engine.mu.Unlock()
	assert.Len(t, f.engine.schedule, 2)
	assert.Contains(t, f.engine.schedule, keep.ID)
	assert.Contains(t, f.engine.schedule, added.ID)
	assert.NotContains(t, f.engine.schedule, drop.ID)
}

func TestEngine_NextDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-10 * time.Minute)

	tests := []struct {
		name   string
		jitter float64
		last   *time.Time
		want   time.Time
	}{
		{name: "never checked is due now", jitter: 0.1, want: now},
		{name: "no jitter", jitter: 0, last: &last, want: last.Add(time.Hour)},
		{name: "half of ten percent jitter", jitter: 0.1, last: &last, want: last.Add(time.Hour + 3*time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			eng := NewEngine(nil, nil, nil,
				WithJitter(tt.jitter),
				WithNowFunc(func() time.Time { return now }),
			)
			eng.randFloat = func() float64 { return 0.5 }

			tr := &domain.Tracker{CheckInterval: time.Hour, LastCheckedAt: tt.last}
			assert.Equal(t, tt.want, eng.nextDue(tr))
		})
	}
}

func TestEngine_JitterStaysInRange(t *testing.T) {
	t.Parallel()

	eng := NewEngine(nil, nil, nil, WithJitter(0.2))
	for range 1000 {
		j := eng.jitterFor(time.Hour)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, 12*time.Minute)
	}
}

func TestCheckNow_ConcurrentTrackersShareUserProduct(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	a := f.seed(t, shopPrefix+"p/shared", 100)

	// A second user tracking the same product with its own crossing state.
	u := &domain.User{Username: "second", Email: "second@example.com"}
	require.NoError(t, f.store.CreateUser(ctx, u))
	b := &domain.Tracker{
		UserID:        u.ID,
		ProductID:     a.ProductID,
		TargetPrice:   decimal.NewFromInt(100),
		Active:        true,
		CheckInterval: time.Hour,
	}
	require.NoError(t, f.store.CreateTracker(ctx, b))

	f.adapter.EXPECT().Fetch(mock.Anything, mock.Anything).Return(snap("90"), nil).Times(2)
	f.dispatcher.EXPECT().Deliver(mock.Anything, mock.Anything).Return(nil).Times(2)

	var wg sync.WaitGroup
	for _, id := range []string{a.ID, b.ID} {
		wg.Go(func() {
			assert.True(t, f.engine.CheckNow(ctx, id))
		})
	}
	wg.Wait()

	assert.Len(t, f.notifications(t, a), 1)
	bn, err := f.store.ListNotifications(ctx, u.ID, false)
	require.NoError(t, err)
	assert.Len(t, bn, 1)
}

func TestCheckNow_SlowDeliveryDoesNotHoldWorker(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		WithWorkers(1),
		WithDeliveryTimeout(2*time.Second),
		WithStopGrace(5*time.Second),
	)
	a := f.seed(t, shopPrefix+"p/a", 100)
	b := f.seed(t, shopPrefix+"p/b", 100)
	ctx := context.Background()

	f.adapter.EXPECT().Fetch(mock.Anything, shopPrefix+"p/a").Return(snap("90"), nil).Once()
	f.adapter.EXPECT().Fetch(mock.Anything, shopPrefix+"p/b").Return(snap("150"), nil).Once()

	delivering := make(chan struct{})
	var deliveryErr error
	f.dispatcher.EXPECT().Deliver(mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, _ *notify.Message) error {
			close(delivering)
			<-ctx.Done()
			deliveryErr = ctx.Err()
			return deliveryErr
		}).Once()

	start := time.Now()
	res, err := f.engine.CheckNowResult(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, res.Notified)
	<-delivering

	// The only worker slot is free while a's delivery hangs.
	require.True(t, f.engine.CheckNow(ctx, b.ID))
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, f.observations(t, b), 1)

	f.engine.mu.Lock()
	assert.Empty(t, f.engine.inflight)
	f.engine.mu.Unlock()

	// Stop drains the pending delivery, which ends at its own timeout.
	f.engine.Stop(ctx)
	require.ErrorIs(t, deliveryErr, context.DeadlineExceeded)
	assert.Len(t, f.notifications(t, a), 1)
}

func TestEngine_CheckNowJoinsTickDispatchedRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.seed(t, shopPrefix+"p/tick-join", 100)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	f.adapter.EXPECT().Fetch(mock.Anything, shopPrefix+"p/tick-join").
		RunAndReturn(func(context.Context, string) (*source.Snapshot, error) {
			close(started)
			<-release
			return snap("150"), nil
		}).Once()

	joinedBefore := ptestutil.ToFloat64(metrics.CheckNowJoinedTotal)

	require.NoError(t, f.engine.Start(ctx))
	<-started

	type outcome struct {
		res CheckResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := f.engine.CheckNowResult(ctx, tr.ID)
		done <- outcome{res, err}
	}()

	require.Eventually(t, func() bool {
		return ptestutil.ToFloat64(metrics.CheckNowJoinedTotal) > joinedBefore
	}, time.Second, 5*time.Millisecond)
	close(release)

	got := <-done
	require.NoError(t, got.err)
	assert.True(t, got.res.Success())

	f.engine.Stop(ctx)
	assert.Len(t, f.observations(t, tr), 1)
}

// testClock is a settable clock safe for the tick loop to read.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestEngine_FailingSourceKeepsTrackerScheduled(t *testing.T) {
	t.Parallel()

	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	f := newFixture(t, WithNowFunc(clock.Now))
	tr := f.seed(t, shopPrefix+"p/down", 100)
	ctx := context.Background()

	const ticks = 3
	f.adapter.EXPECT().Fetch(mock.Anything, shopPrefix+"p/down").
		Return(nil, errors.New("503 service unavailable")).Times(ticks)

	require.NoError(t, f.engine.Start(ctx))

	for i := range ticks {
		want := clock.Now()
		require.Eventually(t, func() bool {
			stored, err := f.store.GetTracker(ctx, tr.ID)
			return err == nil && stored.LastCheckedAt != nil && stored.LastCheckedAt.Equal(want)
		}, 2*time.Second, 5*time.Millisecond, "tick %d", i)

		if i < ticks-1 {
			clock.Advance(tr.CheckInterval)
		}
	}
	f.engine.Stop(ctx)

	stored, err := f.store.GetTracker(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)
	assert.Contains(t, stored.LastError, "503 service unavailable")
	assert.Empty(t, f.observations(t, tr))
	assert.Empty(t, f.notifications(t, tr))
	assert.Equal(t, 1, f.engine.Scheduled())
}

func TestEngine_ResyncKeepsNextDueOfCheckedTracker(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 9, 0, 0, 123456789, time.UTC)
	f := newFixture(t, WithNowFunc(func() time.Time { return now }), WithJitter(0.5))
	f.engine.randFloat = func() float64 { return 0.1 }
	tr := f.seed(t, shopPrefix+"p/precision", 100)
	ctx := context.Background()

	f.adapter.EXPECT().Fetch(mock.Anything, mock.Anything).Return(snap("150"), nil).Once()

	f.engine.Track(*tr)
	require.True(t, f.engine.CheckNow(ctx, tr.ID))

	stored, err := f.store.GetTracker(ctx, tr.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastCheckedAt)
	assert.Equal(t, now.Truncate(time.Microsecond), *stored.LastCheckedAt)

	f.engine.mu.Lock()
	before := f.engine.schedule[tr.ID].next
	f.engine.randFloat = func() float64 { return 0.9 }
	f.engine.mu.Unlock()

	require.NoError(t, f.engine.Resync(ctx))

	f.engine.mu.Lock()
	defer f.engine.mu.Unlock()
	assert.Equal(t, before, f.engine.schedule[tr.ID].next)
}

func TestSameTime(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 5, 1, 9, 0, 0, 123456789, time.UTC)
	stored := at.Truncate(time.Microsecond)
	later := at.Add(time.Microsecond)

	tests := []struct {
		name string
		a, b *time.Time
		want bool
	}{
		{name: "both nil", want: true},
		{name: "one nil", a: &at, want: false},
		{name: "nanoseconds dropped by the store", a: &at, b: &stored, want: true},
		{name: "a microsecond apart", a: &at, b: &later, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sameTime(tt.a, tt.b))
		})
	}
}
