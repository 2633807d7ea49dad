package schedule

import (
	"bytes"

	"feastsched/internal/localdate"
	"feastsched/internal/model"
)

// SelectTemplate returns the template that applies to date.
//
// Only templates with services on the date's day tab are candidates. A
// period template whose inclusive range contains the date beats any generic
// template, and among those the shortest period wins. Without a period
// match the generic candidate is used. Remaining ties resolve to the lowest
// template id so the result does not depend on store ordering.
func SelectTemplate(templates []model.FeastTemplate, date localdate.Date) (model.FeastTemplate, bool) {
	tab := model.TabOfDate(date)

	var (
		period     *model.FeastTemplate
		periodSpan int
		generic    *model.FeastTemplate
	)
	for i := range templates {
		t := &templates[i]
		if len(t.ServicesFor(tab)) == 0 {
			continue
		}

		if start, end, ok := t.Period(); ok {
			if !date.Within(start, end) {
				continue
			}
			span := start.DaysUntil(end)
			if period == nil || span < periodSpan || (span == periodSpan && lowerID(t, period)) {
				period, periodSpan = t, span
			}
			continue
		}

		if t.IsGeneric && (generic == nil || lowerID(t, generic)) {
			generic = t
		}
	}

	switch {
	case period != nil:
		return *period, true
	case generic != nil:
		return *generic, true
	default:
		return model.FeastTemplate{}, false
	}
}

func lowerID(a, b *model.FeastTemplate) bool {
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}
