package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/pricely/internal/store"
	domain "github.com/donaldgifford/pricely/pkg/types"
)

// storeContract exercises behavior every Store backend must share.
// Each subtest gets a fresh store from newStore.
func storeContract(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("user uniqueness", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		u := &domain.User{Username: "alice", Email: "alice@example.com"}
		require.NoError(t, s.CreateUser(ctx, u))
		assert.NotEmpty(t, u.ID)

		got, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)

		err = s.CreateUser(ctx, &domain.User{Username: "alice", Email: "other@example.com"})
		require.ErrorIs(t, err, store.ErrConflict)
	})

	t.Run("product url is unique", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p1 := &domain.Product{URL: "https://shop.example.com/p/1", Website: "shop", Name: "Widget"}
		created, err := s.GetOrCreateProduct(ctx, p1)
		require.NoError(t, err)
		assert.True(t, created)

		p2 := &domain.Product{URL: "https://shop.example.com/p/1", Website: "shop", Name: "Other"}
		created, err = s.GetOrCreateProduct(ctx, p2)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, p1.ID, p2.ID)
		assert.Equal(t, "Widget", p2.Name)

		byURL, err := s.GetProductByURL(ctx, p1.URL)
		require.NoError(t, err)
		assert.Equal(t, p1.ID, byURL.ID)
	})

	t.Run("concurrent get or create yields one product", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const n = 8
		ids := make([]string, n)
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p := &domain.Product{URL: "https://shop.example.com/race", Website: "shop"}
				_, err := s.GetOrCreateProduct(ctx, p)
				assert.NoError(t, err)
				ids[i] = p.ID
			}()
		}
		wg.Wait()

		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
	})

	t.Run("update product details", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p := &domain.Product{URL: "https://shop.example.com/p/2", Website: "shop"}
		_, err := s.GetOrCreateProduct(ctx, p)
		require.NoError(t, err)

		p.Name = "Renamed"
		p.ImageURL = "https://cdn.example.com/r.png"
		require.NoError(t, s.UpdateProductDetails(ctx, p))

		got, err := s.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		assert.Equal(t, "https://cdn.example.com/r.png", got.ImageURL)
	})

	t.Run("observations newest first", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p := &domain.Product{URL: "https://shop.example.com/p/3", Website: "shop"}
		_, err := s.GetOrCreateProduct(ctx, p)
		require.NoError(t, err)

		_, err = s.LatestObservation(ctx, p.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, price := range []int64{120, 115, 110} {
			require.NoError(t, s.AppendObservation(ctx, &domain.PriceObservation{
				ProductID:  p.ID,
				Price:      decimal.NewFromInt(price),
				Currency:   "USD",
				Available:  true,
				ObservedAt: base.Add(time.Duration(i) * time.Hour),
			}))
		}

		latest, err := s.LatestObservation(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, latest.Price.Equal(decimal.NewFromInt(110)))

		history, err := s.ListObservations(ctx, p.ID, 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.True(t, history[0].Price.Equal(decimal.NewFromInt(110)))
		assert.True(t, history[1].Price.Equal(decimal.NewFromInt(115)))
	})

	t.Run("tracker lifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		tr := seedTracker(t, s, 100)

		got, err := s.GetTracker(ctx, tr.ID)
		require.NoError(t, err)
		assert.True(t, got.Active)
		assert.Equal(t, time.Hour, got.CheckInterval)
		assert.Nil(t, got.LastCheckedAt)
		assert.True(t, got.Armed())

		checked := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
		require.NoError(t, s.RecordTrackerCheck(ctx, tr.ID, checked, "fetch failed"))
		got, err = s.GetTracker(ctx, tr.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastCheckedAt)
		assert.True(t, checked.Equal(*got.LastCheckedAt))
		assert.Equal(t, "fetch failed", got.LastError)

		got.Active = false
		got.TargetPrice = decimal.NewFromInt(80)
		require.NoError(t, s.UpdateTracker(ctx, got))

		active, err := s.ListTrackers(ctx, true)
		require.NoError(t, err)
		assert.Empty(t, active)

		all, err := s.ListTrackers(ctx, false)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.True(t, all[0].TargetPrice.Equal(decimal.NewFromInt(80)))

		byUser, err := s.ListTrackersByUser(ctx, tr.UserID)
		require.NoError(t, err)
		assert.Len(t, byUser, 1)

		require.NoError(t, s.DeleteTracker(ctx, tr.ID))
		_, err = s.GetTracker(ctx, tr.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, s.DeleteTracker(ctx, tr.ID), store.ErrNotFound)
		require.ErrorIs(t, s.RecordTrackerCheck(ctx, tr.ID, checked, ""), store.ErrNotFound)
	})

	t.Run("claim crossing once until rearmed", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		tr := seedTracker(t, s, 100)

		n1 := &domain.Notification{TrackerID: tr.ID, Message: "dropped"}
		claimed, err := s.ClaimCrossing(ctx, n1, decimal.NewFromInt(95))
		require.NoError(t, err)
		assert.True(t, claimed)
		assert.Equal(t, tr.UserID, n1.UserID)

		claimed, err = s.ClaimCrossing(ctx, &domain.Notification{TrackerID: tr.ID, Message: "again"}, decimal.NewFromInt(90))
		require.NoError(t, err)
		assert.False(t, claimed)

		got, err := s.GetTracker(ctx, tr.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastNotifiedPrice)
		assert.True(t, got.LastNotifiedPrice.Equal(decimal.NewFromInt(95)))

		require.NoError(t, s.RearmTracker(ctx, tr.ID))
		claimed, err = s.ClaimCrossing(ctx, &domain.Notification{TrackerID: tr.ID, Message: "third"}, decimal.NewFromInt(99))
		require.NoError(t, err)
		assert.True(t, claimed)

		ns, err := s.ListNotifications(ctx, tr.UserID, false)
		require.NoError(t, err)
		assert.Len(t, ns, 2)

		_, err = s.ClaimCrossing(ctx, &domain.Notification{TrackerID: "00000000-0000-0000-0000-000000000000"}, decimal.Zero)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("update keeps crossing state unless target changes", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		tr := seedTracker(t, s, 100)

		// Read before the claim, written after it.
		stale, err := s.GetTracker(ctx, tr.ID)
		require.NoError(t, err)
		require.True(t, stale.Armed())

		claimed, err := s.ClaimCrossing(ctx, &domain.Notification{TrackerID: tr.ID, Message: "dropped"}, decimal.NewFromInt(95))
		require.NoError(t, err)
		require.True(t, claimed)

		stale.CheckInterval = 2 * time.Hour
		require.NoError(t, s.UpdateTracker(ctx, stale))
		assert.False(t, stale.Armed())

		got, err := s.GetTracker(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Hour, got.CheckInterval)
		require.NotNil(t, got.LastNotifiedPrice)
		assert.True(t, got.LastNotifiedPrice.Equal(decimal.NewFromInt(95)))

		got.TargetPrice = decimal.NewFromInt(90)
		require.NoError(t, s.UpdateTracker(ctx, got))
		assert.True(t, got.Armed())

		got, err = s.GetTracker(ctx, tr.ID)
		require.NoError(t, err)
		assert.True(t, got.Armed())
	})

	t.Run("notifications read state", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		tr := seedTracker(t, s, 100)

		n := &domain.Notification{TrackerID: tr.ID, Message: "dropped"}
		_, err := s.ClaimCrossing(ctx, n, decimal.NewFromInt(50))
		require.NoError(t, err)

		unread, err := s.ListNotifications(ctx, tr.UserID, true)
		require.NoError(t, err)
		require.Len(t, unread, 1)
		assert.False(t, unread[0].Read)

		require.NoError(t, s.MarkNotificationRead(ctx, n.ID))

		unread, err = s.ListNotifications(ctx, tr.UserID, true)
		require.NoError(t, err)
		assert.Empty(t, unread)

		require.ErrorIs(t,
			s.MarkNotificationRead(ctx, "00000000-0000-0000-0000-000000000000"),
			store.ErrNotFound,
		)
	})
}

func seedTracker(t *testing.T, s store.Store, target int64) *domain.Tracker {
	t.Helper()
	ctx := context.Background()

	u := &domain.User{Username: "seed", Email: "seed@example.com"}
	require.NoError(t, s.CreateUser(ctx, u))

	p := &domain.Product{URL: "https://shop.example.com/seed", Website: "shop", Name: "Seed"}
	_, err := s.GetOrCreateProduct(ctx, p)
	require.NoError(t, err)

	tr := &domain.Tracker{
		UserID:        u.ID,
		ProductID:     p.ID,
		TargetPrice:   decimal.NewFromInt(target),
		Active:        true,
		CheckInterval: time.Hour,
	}
	require.NoError(t, s.CreateTracker(ctx, tr))
	return tr
}
