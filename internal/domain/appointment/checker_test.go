package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byigitt/visa-checker/internal/domain/notification"
)

type fakeSource struct {
	appointments []Appointment
	err          error
}

func (f *fakeSource) List(context.Context) ([]Appointment, error) {
	return f.appointments, f.err
}

type fakeSeen struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeSeen) Touch(_ context.Context, key string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[string]int64)
	}
	f.counts[key]++
	return f.counts[key], nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []*notification.Event
	ok     bool
	err    error
}

func (f *fakeNotifier) Notify(_ context.Context, ev *notification.Event) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.ok, f.err
}

func (f *fakeNotifier) notified() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func openAppointment() Appointment {
	return Appointment{
		ID:                7,
		CountryCode:       "tr",
		MissionCode:       "de",
		Center:            "Istanbul Beyoglu VAC",
		Status:            StatusOpen,
		VisaCategory:      "tourism",
		VisaType:          "short-stay",
		LastAvailableDate: "2024-06-01",
		TrackingCount:     12,
		LastCheckedAt:     time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
	}
}

func trFilters() Filters {
	return Filters{Country: "tr", MissionCodes: []string{"de", "nl"}}
}

func TestCheckOnce_NotifiesNewMatch(t *testing.T) {
	source := &fakeSource{appointments: []Appointment{openAppointment()}}
	notifier := &fakeNotifier{ok: true}
	c := NewChecker(source, &fakeSeen{}, notifier, trFilters(), time.Minute)

	c.checkOnce(context.Background())

	require.Equal(t, 1, notifier.notified())
	ev := notifier.events[0]
	assert.Equal(t, "open", ev.Status)
	assert.Equal(t, "Istanbul Beyoglu VAC", ev.Center)
	assert.Equal(t, int64(12), ev.TrackingCount)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Runs)
	assert.Equal(t, int64(1), stats.Matched)
	assert.Equal(t, int64(1), stats.Notified)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestCheckOnce_SkipsAlreadySeenState(t *testing.T) {
	source := &fakeSource{appointments: []Appointment{openAppointment()}}
	notifier := &fakeNotifier{ok: true}
	c := NewChecker(source, &fakeSeen{}, notifier, trFilters(), time.Minute)

	c.checkOnce(context.Background())
	c.checkOnce(context.Background())

	assert.Equal(t, 1, notifier.notified(), "same state must not re-alert")
}

func TestCheckOnce_DateChangeReAlerts(t *testing.T) {
	first := openAppointment()
	source := &fakeSource{appointments: []Appointment{first}}
	notifier := &fakeNotifier{ok: true}
	c := NewChecker(source, &fakeSeen{}, notifier, trFilters(), time.Minute)

	c.checkOnce(context.Background())

	changed := first
	changed.LastAvailableDate = "2024-06-15"
	source.appointments = []Appointment{changed}
	c.checkOnce(context.Background())

	assert.Equal(t, 2, notifier.notified(), "a new available date is a new alert")
}

func TestCheckOnce_Filtering(t *testing.T) {
	base := openAppointment()

	closed := base
	closed.Status = StatusClosed

	wrongCountry := base
	wrongCountry.ID = 8
	wrongCountry.CountryCode = "az"

	wrongMission := base
	wrongMission.ID = 9
	wrongMission.MissionCode = "us"

	waitlist := base
	waitlist.ID = 10
	waitlist.Status = StatusWaitlistOpen

	source := &fakeSource{appointments: []Appointment{closed, wrongCountry, wrongMission, waitlist}}
	notifier := &fakeNotifier{ok: true}
	c := NewChecker(source, &fakeSeen{}, notifier, trFilters(), time.Minute)

	c.checkOnce(context.Background())

	require.Equal(t, 1, notifier.notified())
	assert.Equal(t, "waitlist_open", notifier.events[0].Status)
}

func TestCheckOnce_CityAndSubcategoryFilters(t *testing.T) {
	ankara := openAppointment()
	ankara.ID = 20
	ankara.Center = "Ankara VAC"

	longTerm := openAppointment()
	longTerm.ID = 21
	longTerm.VisaType = "long-stay work"

	source := &fakeSource{appointments: []Appointment{ankara, longTerm, openAppointment()}}
	notifier := &fakeNotifier{ok: true}
	filters := trFilters()
	filters.Cities = []string{"istanbul"}
	filters.VisaSubcategory = "short"
	c := NewChecker(source, &fakeSeen{}, notifier, filters, time.Minute)

	c.checkOnce(context.Background())

	require.Equal(t, 1, notifier.notified())
	assert.Equal(t, "short-stay", notifier.events[0].VisaType)
}

func TestCheckOnce_SeenStoreErrorFailsOpen(t *testing.T) {
	source := &fakeSource{appointments: []Appointment{openAppointment()}}
	notifier := &fakeNotifier{ok: true}
	c := NewChecker(source, &fakeSeen{err: errors.New("redis down")}, notifier, trFilters(), time.Minute)

	c.checkOnce(context.Background())

	assert.Equal(t, 1, notifier.notified(), "a broken seen store must not silence alerts")
}

func TestCheckOnce_SourceErrorCountsAsFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("api down")}
	notifier := &fakeNotifier{ok: true}
	c := NewChecker(source, &fakeSeen{}, notifier, trFilters(), time.Minute)

	c.checkOnce(context.Background())

	assert.Equal(t, 0, notifier.notified())
	assert.Equal(t, int64(1), c.Stats().Failed)
}

func TestCheckOnce_FailedDeliveryCounted(t *testing.T) {
	source := &fakeSource{appointments: []Appointment{openAppointment()}}
	notifier := &fakeNotifier{ok: false}
	c := NewChecker(source, &fakeSeen{}, notifier, trFilters(), time.Minute)

	c.checkOnce(context.Background())

	stats := c.Stats()
	assert.Equal(t, int64(0), stats.Notified)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	source := &fakeSource{}
	notifier := &fakeNotifier{ok: true}
	c := NewChecker(source, &fakeSeen{}, notifier, trFilters(), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()

	time.Sleep(120 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("checker did not stop after cancel")
	}

	assert.GreaterOrEqual(t, c.Stats().Runs, int64(2), "immediate run plus at least one tick")
}
