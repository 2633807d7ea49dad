package schedule

import (
	"sort"
	"time"

	"feastsched/internal/localdate"
	"feastsched/internal/model"
)

// GroupByLocalDay buckets items by the civil date of their instant in loc.
// Item order inside a bucket follows the input.
func GroupByLocalDay[T any](items []T, instant func(T) time.Time, loc *time.Location) map[localdate.Date][]T {
	out := make(map[localdate.Date][]T)
	for _, it := range items {
		day := localdate.Of(instant(it), loc)
		out[day] = append(out[day], it)
	}
	return out
}

// daysByTab lists the grouped days per day tab in chronological order.
func daysByTab[T any](byDay map[localdate.Date][]T) model.Week[[]localdate.Date] {
	var w model.Week[[]localdate.Date]
	for day := range byDay {
		tab := model.TabOfDate(day)
		w[tab] = append(w[tab], day)
	}
	for _, tab := range model.Tabs {
		days := w[tab]
		sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	}
	return w
}
