package handlers_test

import (
	"context"

	"github.com/donaldgifford/pricely/internal/engine"
	"github.com/donaldgifford/pricely/internal/tracking"
	domain "github.com/donaldgifford/pricely/pkg/types"
)

// mockPinger is a test double for Pinger.
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

// mockUserProvider is a test double for UserProvider.
type mockUserProvider struct {
	user *domain.User
	err  error

	gotUsername, gotEmail string
}

func (m *mockUserProvider) CreateUser(_ context.Context, username, email string) (*domain.User, error) {
	m.gotUsername, m.gotEmail = username, email
	return m.user, m.err
}

func (m *mockUserProvider) GetUser(context.Context, string) (*domain.User, error) {
	return m.user, m.err
}

// mockTrackerProvider is a test double for TrackerProvider. Calls record
// their arguments so tests can assert on request parsing.
type mockTrackerProvider struct {
	detail   *domain.TrackerDetail
	tracker  *domain.Tracker
	trackers []domain.Tracker
	history  []domain.PriceObservation
	result   engine.CheckResult
	err      error

	gotAdd     tracking.AddTrackerInput
	gotPatch   tracking.TrackerPatch
	gotUserID  string
	gotLimit   int
	gotID      string
	deleteCall bool
}

func (m *mockTrackerProvider) AddTracker(_ context.Context, in tracking.AddTrackerInput) (*domain.TrackerDetail, error) {
	m.gotAdd = in
	return m.detail, m.err
}

func (m *mockTrackerProvider) GetTracker(_ context.Context, id string) (*domain.TrackerDetail, error) {
	m.gotID = id
	return m.detail, m.err
}

func (m *mockTrackerProvider) ListTrackers(_ context.Context, userID string) ([]domain.Tracker, error) {
	m.gotUserID = userID
	return m.trackers, m.err
}

func (m *mockTrackerProvider) UpdateTracker(
	_ context.Context,
	id string,
	patch tracking.TrackerPatch,
) (*domain.Tracker, error) {
	m.gotID = id
	m.gotPatch = patch
	return m.tracker, m.err
}

func (m *mockTrackerProvider) DeleteTracker(_ context.Context, id string) error {
	m.gotID = id
	m.deleteCall = true
	return m.err
}

func (m *mockTrackerProvider) CheckNow(_ context.Context, id string) (engine.CheckResult, error) {
	m.gotID = id
	return m.result, m.err
}

func (m *mockTrackerProvider) History(_ context.Context, id string, limit int) ([]domain.PriceObservation, error) {
	m.gotID = id
	m.gotLimit = limit
	return m.history, m.err
}

// mockNotificationProvider is a test double for NotificationProvider.
type mockNotificationProvider struct {
	notifications []domain.Notification
	err           error

	gotUnread bool
	gotID     string
}

func (m *mockNotificationProvider) Notifications(
	_ context.Context,
	userID string,
	unreadOnly bool,
) ([]domain.Notification, error) {
	m.gotID = userID
	m.gotUnread = unreadOnly
	return m.notifications, m.err
}

func (m *mockNotificationProvider) MarkNotificationRead(_ context.Context, id string) error {
	m.gotID = id
	return m.err
}
