// Package jobs runs the periodic work of the scheduler: creating next
// week's ServiceWeek for opted-in tenants and warming the calendar cache.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"feastsched/internal/localdate"
	appLog "feastsched/internal/log"
	"feastsched/internal/model"
	"feastsched/internal/schedule"
)

// Tenants lists tenants and their existing weeks.
type Tenants interface {
	ListTenants(ctx context.Context, autoOnly bool) ([]model.Tenant, error)
	WeekExists(ctx context.Context, tenantID uuid.UUID, start localdate.Date) (bool, error)
}

// WeekCreator creates and generates a ServiceWeek.
type WeekCreator interface {
	CreateWeek(ctx context.Context, draft model.ServiceWeek) (model.ServiceWeek, schedule.Report, error)
}

// YearLoader loads one calendar year, usually through a cache.
type YearLoader interface {
	Year(ctx context.Context, year int) ([]model.Feast, error)
}

// Runner holds the job bodies. Each method is safe to call directly.
type Runner struct {
	Tenants  Tenants
	Weeks    WeekCreator
	Calendar YearLoader
	// Fallback zone for tenants without one.
	Fallback *time.Location
	Now      func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// NextWeekStart returns the first Monday strictly after the local day of now.
func NextWeekStart(now time.Time, loc *time.Location) localdate.Date {
	tomorrow := localdate.Of(now, loc).AddDays(1)
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rrule.MO},
		Dtstart:   tomorrow.Midnight(time.UTC),
		Count:     1,
	})
	if err != nil {
		// Unreachable with a static rule; fall back to arithmetic.
		offset := (int(time.Monday) - int(tomorrow.Weekday()) + 7) % 7
		return tomorrow.AddDays(offset)
	}
	return localdate.Of(rule.All()[0], time.UTC)
}

// AutoWeeks creates next week's ServiceWeek for every tenant with automatic
// generation enabled, unless the tenant already has a week starting that
// Monday. A failure for one tenant does not stop the others.
func (r *Runner) AutoWeeks(ctx context.Context) (int, error) {
	tenants, err := r.Tenants.ListTenants(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("auto weeks: %w", err)
	}

	created := 0
	for _, t := range tenants {
		start := NextWeekStart(r.now(), t.Location(r.Fallback))

		exists, err := r.Tenants.WeekExists(ctx, t.ID, start)
		if err != nil {
			appLog.Error("auto week lookup failed", err, "tenant", t.ID, "start", start)
			continue
		}
		if exists {
			appLog.Debug("auto week already present", "tenant", t.ID, "start", start)
			continue
		}

		week, report, err := r.Weeks.CreateWeek(ctx, model.ServiceWeek{TenantID: t.ID, Start: start})
		if err != nil {
			appLog.Error("auto week create failed", err, "tenant", t.ID, "start", start)
			continue
		}
		created++
		appLog.Info("auto week created",
			"tenant", t.ID, "week", week.ID, "start", week.Start, "end", week.End,
			"services", report.Created, "aborted", report.Aborted)
	}
	return created, nil
}

// Prefetch loads the current and the next calendar year.
func (r *Runner) Prefetch(ctx context.Context) error {
	year := r.now().Year()
	for _, y := range []int{year, year + 1} {
		feasts, err := r.Calendar.Year(ctx, y)
		if err != nil {
			return fmt.Errorf("prefetch %d: %w", y, err)
		}
		appLog.Info("calendar year prefetched", "year", y, "feasts", len(feasts))
	}
	return nil
}
