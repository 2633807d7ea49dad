package ics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	appLog "feastsched/internal/log"
	"feastsched/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ImportOptions controls how an iCalendar feed becomes services.
type ImportOptions struct {
	TenantID uuid.UUID
	// Location reads floating times and all-day dates. Nil means UTC.
	Location *time.Location
	// From and To bound occurrence starts, half-open.
	From time.Time
	To   time.Time
	// MaxOccurrencesPerEvent caps recurrence expansion per UID.
	MaxOccurrencesPerEvent int
}

// Import converts the timed VEVENTs of an iCalendar payload into manual
// services starting within [From, To). Recurring events are expanded with
// their RRULE and EXDATEs; RECURRENCE-ID overrides replace the matching
// instance. All-day events carry no service time and are skipped.
func Import(body []byte, opts ImportOptions) ([]model.Service, error) {
	if !opts.From.Before(opts.To) {
		return nil, errors.New("import: empty time window")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxOccurrencesPerEvent <= 0 {
		opts.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	events, err := parseCalendar(body, opts.Location)
	if err != nil {
		return nil, err
	}

	baseByUID := make(map[string][]event)
	overridesByUID := make(map[string][]event)
	for _, ev := range events {
		if ev.AllDay {
			appLog.Debug("ics all-day event skipped", "uid", ev.UID, "summary", ev.Summary)
			continue
		}
		if ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		} else {
			baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
		}
	}

	var out []model.Service
	for uid, bases := range baseByUID {
		for _, ev := range bases {
			starts, truncated := occurrences(ev, opts)
			if truncated {
				appLog.Warn("ics occurrences truncated", "uid", uid, "cap", opts.MaxOccurrencesPerEvent)
			}
			for _, start := range starts {
				inst := ev
				if o, ok := findOverride(overridesByUID[uid], start); ok {
					inst, start = o, o.Start
				}
				if start.Before(opts.From) || !start.Before(opts.To) {
					continue
				}
				out = append(out, toService(inst, start, opts.TenantID))
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	appLog.Info("ics import completed", "tenant", opts.TenantID, "events", len(events), "services", len(out))
	return out, nil
}

// occurrences lists the instance starts of ev that fall in the window.
func occurrences(ev event, opts ImportOptions) ([]time.Time, bool) {
	if ev.RawRRule == "" {
		return []time.Time{ev.Start}, false
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Warn("ics rrule unparseable; using first instance", "err", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return []time.Time{ev.Start}, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Overrides may move an instance into the window; widen by one day.
	from := opts.From.Add(-24 * time.Hour).In(ev.Start.Location())
	to := opts.To.Add(24 * time.Hour).In(ev.Start.Location())
	starts := set.Between(from, to, true)
	if len(starts) > opts.MaxOccurrencesPerEvent {
		return starts[:opts.MaxOccurrencesPerEvent], true
	}
	return starts, false
}

func findOverride(overrides []event, start time.Time) (event, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return event{}, false
}

func toService(ev event, start time.Time, tenant uuid.UUID) model.Service {
	svc := model.Service{
		TenantID: tenant,
		Date:     start.UTC(),
		Category: ev.Category,
		MassType: ev.MassType,
		Notes:    ev.Description,
	}
	if ev.Category == model.CategoryOther {
		svc.CustomTitle = ev.Summary
		if svc.CustomTitle == "" {
			svc.CustomTitle = fmt.Sprintf("Imported %s", ev.UID)
		}
	}
	return svc
}
