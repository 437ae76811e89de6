package appointment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/byigitt/visa-checker/internal/domain/notification"
)

// Filters narrow the upstream appointment list to slots worth alerting on.
// Empty fields match everything.
type Filters struct {
	// Country is the applicant's country code (lower-case, e.g. "tr").
	Country string
	// MissionCodes limits which destination missions to watch.
	MissionCodes []string
	// Cities limits matches to centers whose name contains one of these.
	Cities []string
	// VisaSubcategory limits matches to visa types containing this substring.
	VisaSubcategory string
}

// Stats are the checker's runtime counters, exposed by the status API.
type Stats struct {
	Runs      int64 `json:"runs"`
	Fetched   int64 `json:"fetched"`
	Matched   int64 `json:"matched"`
	Notified  int64 `json:"notified"`
	Failed    int64 `json:"failed"`
	LastRunAt int64 `json:"last_run_at"` // unix seconds, 0 before first run
}

// Checker polls the appointment source on an interval, filters slots, and
// dispatches a notification for each newly seen matching state.
type Checker struct {
	source   Source
	seen     SeenStore
	notifier Notifier
	filters  Filters
	interval time.Duration

	runs     atomic.Int64
	fetched  atomic.Int64
	matched  atomic.Int64
	notified atomic.Int64
	failed   atomic.Int64
	lastRun  atomic.Int64
}

// NewChecker creates a new appointment checker.
func NewChecker(source Source, seen SeenStore, notifier Notifier, filters Filters, interval time.Duration) *Checker {
	return &Checker{
		source:   source,
		seen:     seen,
		notifier: notifier,
		filters:  filters,
		interval: interval,
	}
}

// Run starts the polling loop. It performs one check immediately, then one
// per interval, and blocks until the context is cancelled.
func (c *Checker) Run(ctx context.Context) {
	slog.Info("checker started",
		"interval", c.interval,
		"country", c.filters.Country,
		"missions", c.filters.MissionCodes,
	)

	c.checkOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("checker stopped")
			return
		case <-ticker.C:
			c.checkOnce(ctx)
		}
	}
}

// checkOnce performs one poll cycle: fetch, filter, dedupe, notify.
func (c *Checker) checkOnce(ctx context.Context) {
	c.runs.Add(1)
	c.lastRun.Store(time.Now().Unix())

	appointments, err := c.source.List(ctx)
	if err != nil {
		c.failed.Add(1)
		slog.Error("fetching appointments failed", "error", err)
		return
	}
	c.fetched.Add(int64(len(appointments)))

	for i := range appointments {
		appt := &appointments[i]
		if !c.matches(appt) {
			continue
		}
		c.matched.Add(1)

		count, err := c.seen.Touch(ctx, seenKey(appt))
		if err != nil {
			// Fail open: a broken seen store must not silence alerts.
			slog.Error("seen store check failed, notifying anyway", "appointment_id", appt.ID, "error", err)
			count = 1
		}
		if count > 1 {
			continue // already alerted on this exact state
		}

		ok, err := c.notifier.Notify(ctx, eventFor(appt))
		if err != nil {
			c.failed.Add(1)
			slog.Error("notify failed", "appointment_id", appt.ID, "error", err)
			continue
		}
		if !ok {
			c.failed.Add(1)
			continue
		}
		c.notified.Add(1)
	}
}

// matches applies the configured filters plus the notifiable-status check.
func (c *Checker) matches(appt *Appointment) bool {
	if !appt.Notifiable() {
		return false
	}
	if c.filters.Country != "" && !strings.EqualFold(appt.CountryCode, c.filters.Country) {
		return false
	}
	if len(c.filters.MissionCodes) > 0 && !containsFold(c.filters.MissionCodes, appt.MissionCode) {
		return false
	}
	if len(c.filters.Cities) > 0 {
		found := false
		for _, city := range c.filters.Cities {
			if strings.Contains(strings.ToLower(appt.Center), strings.ToLower(city)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.filters.VisaSubcategory != "" &&
		!strings.Contains(strings.ToLower(appt.VisaType), strings.ToLower(c.filters.VisaSubcategory)) {
		return false
	}
	return true
}

// Stats returns a snapshot of the runtime counters.
func (c *Checker) Stats() Stats {
	return Stats{
		Runs:      c.runs.Load(),
		Fetched:   c.fetched.Load(),
		Matched:   c.matched.Load(),
		Notified:  c.notified.Load(),
		Failed:    c.failed.Load(),
		LastRunAt: c.lastRun.Load(),
	}
}

// seenKey identifies one alert-worthy appointment state. Including status and
// date means a reopened slot or a new available date alerts again.
func seenKey(appt *Appointment) string {
	return fmt.Sprintf("%d:%s:%s", appt.ID, appt.Status, appt.LastAvailableDate)
}

// eventFor maps an appointment onto the notification event shape.
func eventFor(appt *Appointment) *notification.Event {
	return &notification.Event{
		Status:            appt.Status,
		Center:            appt.Center,
		CountryCode:       appt.CountryCode,
		MissionCode:       appt.MissionCode,
		VisaCategory:      appt.VisaCategory,
		VisaType:          appt.VisaType,
		LastAvailableDate: appt.LastAvailableDate,
		TrackingCount:     appt.TrackingCount,
		LastCheckedAt:     appt.LastCheckedAt,
	}
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
