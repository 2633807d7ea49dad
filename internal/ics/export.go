// Package ics converts services to and from iCalendar.
package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"feastsched/internal/model"
)

// PropertyMassType carries the mass type of a mass service.
const PropertyMassType = ical.ComponentProperty("X-FEASTSCHED-MASS-TYPE")

const defaultDuration = time.Hour

// ExportOptions controls calendar-level metadata of an export.
type ExportOptions struct {
	Name     string
	Timezone string
	// Duration of each VEVENT; services have no end of their own.
	Duration time.Duration
	// Stamp is written as DTSTAMP; zero means now.
	Stamp time.Time
}

// Export renders services as a VCALENDAR with one VEVENT per service.
func Export(services []model.Service, opts ExportOptions) string {
	if opts.Duration <= 0 {
		opts.Duration = defaultDuration
	}
	if opts.Stamp.IsZero() {
		opts.Stamp = time.Now()
	}

	cal := ical.NewCalendarFor("feastsched")
	cal.SetMethod(ical.MethodPublish)
	if opts.Name != "" {
		cal.SetName(opts.Name)
		cal.SetXWRCalName(opts.Name)
	}
	if opts.Timezone != "" {
		cal.SetXWRTimezone(opts.Timezone)
	}

	for _, svc := range services {
		ev := cal.AddEvent(svc.ID.String() + "@feastsched")
		ev.SetDtStampTime(opts.Stamp.UTC())
		ev.SetStartAt(svc.Date.UTC())
		ev.SetEndAt(svc.Date.Add(opts.Duration).UTC())
		ev.SetSummary(svc.Title())
		ev.AddCategory(string(svc.Category))
		if svc.MassType != "" {
			ev.SetProperty(PropertyMassType, string(svc.MassType))
		}
		if svc.Notes != "" {
			ev.SetDescription(svc.Notes)
		}
	}
	return cal.Serialize()
}
