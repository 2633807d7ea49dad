package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"feastsched/internal/localdate"
	appLog "feastsched/internal/log"
	"feastsched/internal/model"
)

const (
	DefaultTemplateLimit = 1000
	DefaultConcurrency   = 4
)

// Store is the persistence the generator needs.
type Store interface {
	GetTenant(ctx context.Context, id uuid.UUID) (model.Tenant, error)
	ListTemplates(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.FeastTemplate, error)
	CreateService(ctx context.Context, svc model.Service) (uuid.UUID, error)
	CreateServiceWeek(ctx context.Context, w model.ServiceWeek) (uuid.UUID, error)
}

// FeastSource supplies liturgical calendar entries for an inclusive range.
type FeastSource interface {
	FetchFeasts(ctx context.Context, start, end localdate.Date) ([]model.Feast, error)
}

// Options tunes a Generator. Zero values select the defaults.
type Options struct {
	TemplateLimit int
	Concurrency   int
	// Fallback is used for tenants without a usable timezone.
	Fallback *time.Location
}

// Generator fills ServiceWeek drafts with services materialized from the
// tenant's templates.
type Generator struct {
	store  Store
	feasts FeastSource
	opts   Options
}

func NewGenerator(store Store, feasts FeastSource, opts Options) *Generator {
	if opts.TemplateLimit <= 0 {
		opts.TemplateLimit = DefaultTemplateLimit
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Fallback == nil {
		opts.Fallback = time.UTC
	}
	return &Generator{store: store, feasts: feasts, opts: opts}
}

// DayReport summarizes generation for one local day.
type DayReport struct {
	Date     localdate.Date `json:"date"`
	Tab      string         `json:"tab"`
	Template *uuid.UUID     `json:"template,omitempty"`
	Feasts   []string       `json:"feasts"`
	Created  int            `json:"created"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
}

// Report describes one generation run.
type Report struct {
	Aborted     bool        `json:"aborted"`
	Reason      string      `json:"reason,omitempty"`
	Days        []DayReport `json:"days,omitempty"`
	Prefilled   []string    `json:"prefilled,omitempty"`
	Created     int         `json:"created"`
	EntryErrors int         `json:"entryErrors"`
	StoreErrors int         `json:"storeErrors"`
}

func (r *Report) abort(reason string, err error) {
	r.Aborted = true
	r.Reason = fmt.Sprintf("%s: %v", reason, err)
}

// Generate is the before-create hook of a ServiceWeek. It returns the draft
// with generated service ids set on every tab that was empty and produced at
// least one service. Tabs the caller pre-filled are left untouched and not
// generated. When the tenant or the calendar cannot be loaded, the draft is
// returned unchanged and the report is marked aborted.
func (g *Generator) Generate(ctx context.Context, draft model.ServiceWeek) (model.ServiceWeek, Report) {
	var report Report

	tenant, err := g.store.GetTenant(ctx, draft.TenantID)
	if err != nil {
		appLog.Error("generation aborted: tenant not resolved", err, "tenant", draft.TenantID)
		report.abort("tenant", err)
		return draft, report
	}
	loc := tenant.Location(g.opts.Fallback)

	templates, err := g.store.ListTemplates(ctx, tenant.ID, g.opts.TemplateLimit)
	if err != nil {
		appLog.Error("generation aborted: templates not loaded", err, "tenant", tenant.ID)
		report.abort("templates", err)
		return draft, report
	}

	feasts, err := g.feasts.FetchFeasts(ctx, draft.Start, draft.End)
	if err != nil {
		appLog.Error("generation aborted: calendar unavailable", err,
			"tenant", tenant.ID, "start", draft.Start, "end", draft.End)
		report.abort("calendar", err)
		return draft, report
	}

	byDay := GroupByLocalDay(feasts, func(f model.Feast) time.Time { return f.Instant(loc) }, loc)
	for day := range byDay {
		if !day.Within(draft.Start, draft.End) {
			delete(byDay, day)
		}
	}
	tabs := daysByTab(byDay)

	appLog.Info("generation start",
		"tenant", tenant.ID, "start", draft.Start, "end", draft.End,
		"templates", len(templates), "feasts", len(feasts), "days", len(byDay))

	out := draft
	for _, tab := range model.Tabs {
		days := tabs[tab]
		if len(days) == 0 {
			continue
		}
		if draft.Prefilled(tab) {
			appLog.Debug("tab pre-filled; skipping generation", "tenant", tenant.ID, "tab", tab)
			report.Prefilled = append(report.Prefilled, tab.String())
			continue
		}

		results := g.generateTab(ctx, tenant, loc, templates, days, byDay)

		var ids []uuid.UUID
		for _, r := range results {
			ids = append(ids, r.ids...)
			report.Days = append(report.Days, r.report)
			report.Created += r.report.Created
			report.EntryErrors += r.report.Skipped
			report.StoreErrors += r.report.Failed
		}
		if len(ids) > 0 {
			out.Days.Set(tab, model.DayRefs{Services: ids})
		}
	}

	appLog.Info("generation done",
		"tenant", tenant.ID, "start", draft.Start, "end", draft.End,
		"created", report.Created, "entry_errors", report.EntryErrors, "store_errors", report.StoreErrors)
	return out, report
}

type dayResult struct {
	ids    []uuid.UUID
	report DayReport
}

// generateTab materializes and persists every day of one tab. Days run
// concurrently; results keep chronological order.
func (g *Generator) generateTab(
	ctx context.Context,
	tenant model.Tenant,
	loc *time.Location,
	templates []model.FeastTemplate,
	days []localdate.Date,
	byDay map[localdate.Date][]model.Feast,
) []dayResult {
	results := make([]dayResult, len(days))

	var eg errgroup.Group
	eg.SetLimit(g.opts.Concurrency)
	for i, day := range days {
		eg.Go(func() error {
			results[i] = g.generateDay(ctx, tenant, loc, templates, day, byDay[day])
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func (g *Generator) generateDay(
	ctx context.Context,
	tenant model.Tenant,
	loc *time.Location,
	templates []model.FeastTemplate,
	day localdate.Date,
	feasts []model.Feast,
) dayResult {
	tab := model.TabOfDate(day)
	res := dayResult{report: DayReport{Date: day, Tab: tab.String(), Feasts: feastIDs(feasts)}}

	tpl, ok := SelectTemplate(templates, day)
	if !ok {
		appLog.Debug("no template applies", "tenant", tenant.ID, "day", day, "tab", tab)
		return res
	}
	tplID := tpl.ID
	res.report.Template = &tplID

	drafts, errs := Materialize(tpl, tenant, day, loc)
	for _, err := range errs {
		kv := []any{"err", err, "tenant", tenant.ID, "day", day, "tab", tab, "feast", res.report.Feasts, "template", tpl.ID}
		var ee *EntryError
		if errors.As(err, &ee) {
			kv = append(kv, "entry_index", ee.Index, "time", ee.Time)
		}
		appLog.Warn("template entry skipped", kv...)
	}
	res.report.Skipped = len(errs)

	for i, svc := range drafts {
		id, err := g.store.CreateService(ctx, svc)
		if err != nil {
			appLog.Error("service not persisted; dropping draft", err,
				"tenant", tenant.ID, "day", day, "tab", tab, "template", tpl.ID, "draft_index", i)
			res.report.Failed++
			continue
		}
		res.ids = append(res.ids, id)
		res.report.Created++
	}
	return res
}

func feastIDs(feasts []model.Feast) []string {
	ids := make([]string, 0, len(feasts))
	for _, f := range feasts {
		ids = append(ids, f.ID)
	}
	return ids
}
