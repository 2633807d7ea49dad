// Package schedule turns a tenant's weekly feast templates and the
// liturgical calendar into concrete, dated services.
//
// The pieces are layered leaves first:
//
//   - SelectTemplate picks the single template that applies to a date:
//     the narrowest period template containing the date, otherwise a
//     generic template, considering only templates with services on that
//     weekday. Ties go to the lowest template id.
//   - Materialize combines a date with each template entry's time of day
//     in the tenant's zone, producing synthetic service drafts in template
//     order. Bad entries are reported and skipped.
//   - GroupByLocalDay buckets instants by their civil date in a zone.
//   - Generator.Generate is the before-create hook of a ServiceWeek: it
//     fetches feasts, groups them by local day, and fills every day tab
//     the caller has not pre-filled, Monday through Sunday.
package schedule
