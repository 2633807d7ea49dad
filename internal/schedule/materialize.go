package schedule

import (
	"fmt"
	"time"

	"feastsched/internal/localdate"
	"feastsched/internal/model"
)

// EntryError reports one template entry that could not be materialized.
type EntryError struct {
	Tab   model.DayTab
	Index int
	Time  string
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s[%d] time %q: %v", e.Tab, e.Index, e.Time, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// Materialize builds synthetic service drafts for date from the template's
// day tab, in template order. Each entry's time of day is combined with
// date in loc. Entries whose time cannot be parsed are skipped and returned
// as *EntryError values alongside the drafts.
func Materialize(tpl model.FeastTemplate, tenant model.Tenant, date localdate.Date, loc *time.Location) ([]model.Service, []error) {
	if loc == nil {
		loc = time.UTC
	}
	tab := model.TabOfDate(date)
	entries := tpl.ServicesFor(tab)
	if len(entries) == 0 {
		return nil, nil
	}

	drafts := make([]model.Service, 0, len(entries))
	var errs []error
	for i, e := range entries {
		clock, err := localdate.ParseClock(e.Time, loc)
		if err != nil {
			errs = append(errs, &EntryError{Tab: tab, Index: i, Time: e.Time, Err: err})
			continue
		}

		svc := model.Service{
			TenantID:  tenant.ID,
			Date:      clock.On(date, loc),
			Category:  e.Category,
			MassType:  e.MassType,
			Notes:     e.Notes,
			Synthetic: true,
		}
		if e.Category == model.CategoryOther {
			svc.CustomTitle = e.CustomTitle
		}
		drafts = append(drafts, svc)
	}
	return drafts, errs
}
