package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"feastsched/internal/localdate"
	"feastsched/internal/model"
)

func warsaw(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	return loc
}

func id(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
}

func date(s string) localdate.Date { return localdate.MustParse(s) }

func datePtr(s string) *localdate.Date {
	d := date(s)
	return &d
}

func mass(at string) model.TemplateService {
	return model.TemplateService{Time: at, Category: model.CategoryMass, MassType: model.MassRead}
}

type templateOpt func(*model.FeastTemplate)

func generic() templateOpt {
	return func(t *model.FeastTemplate) { t.IsGeneric = true }
}

func period(start, end string) templateOpt {
	return func(t *model.FeastTemplate) {
		t.PeriodStart = datePtr(start)
		t.PeriodEnd = datePtr(end)
	}
}

func on(tab model.DayTab, services ...model.TemplateService) templateOpt {
	return func(t *model.FeastTemplate) {
		t.Days.Set(tab, model.DayServices{Services: services})
	}
}

func everyDay(services ...model.TemplateService) templateOpt {
	return func(t *model.FeastTemplate) {
		for _, tab := range model.Tabs {
			t.Days.Set(tab, model.DayServices{Services: services})
		}
	}
}

func template(n int, opts ...templateOpt) model.FeastTemplate {
	t := model.FeastTemplate{ID: id(n), TenantID: id(900), Title: fmt.Sprintf("template %d", n)}
	for _, o := range opts {
		o(&t)
	}
	return t
}

func feast(day string) model.Feast {
	return model.Feast{ID: day, Title: "feria", Rank: 4, Date: date(day)}
}

func feastsBetween(start, end string) []model.Feast {
	var out []model.Feast
	for _, d := range localdate.Range(date(start), date(end)) {
		out = append(out, feast(d.String()))
	}
	return out
}

var errStore = errors.New("store failure")

type fakeStore struct {
	mu        sync.Mutex
	tenants   map[uuid.UUID]model.Tenant
	templates []model.FeastTemplate
	next      int
	services  []model.Service
	weeks     []model.ServiceWeek
	failOn    func(model.Service) bool
	listErr   error
}

func newFakeStore(tenant model.Tenant, templates ...model.FeastTemplate) *fakeStore {
	return &fakeStore{
		tenants:   map[uuid.UUID]model.Tenant{tenant.ID: tenant},
		templates: templates,
		next:      1000,
	}
}

func (s *fakeStore) GetTenant(_ context.Context, tid uuid.UUID) (model.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tid]
	if !ok {
		return model.Tenant{}, fmt.Errorf("tenant %s: not found", tid)
	}
	return t, nil
}

func (s *fakeStore) ListTemplates(_ context.Context, tid uuid.UUID, limit int) ([]model.FeastTemplate, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.FeastTemplate
	for _, t := range s.templates {
		if t.TenantID == tid && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateService(_ context.Context, svc model.Service) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != nil && s.failOn(svc) {
		return uuid.Nil, errStore
	}
	s.next++
	svc.ID = id(s.next)
	s.services = append(s.services, svc)
	return svc.ID, nil
}

func (s *fakeStore) CreateServiceWeek(_ context.Context, w model.ServiceWeek) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.ID = id(500 + len(s.weeks))
	s.weeks = append(s.weeks, w)
	return w.ID, nil
}

func (s *fakeStore) serviceByID(sid uuid.UUID) (model.Service, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, svc := range s.services {
		if svc.ID == sid {
			return svc, true
		}
	}
	return model.Service{}, false
}

type fakeFeasts struct {
	feasts []model.Feast
	err    error
	calls  int
}

func (f *fakeFeasts) FetchFeasts(_ context.Context, start, end localdate.Date) ([]model.Feast, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Feast
	for _, fe := range f.feasts {
		if fe.Date.Within(start, end) {
			out = append(out, fe)
		}
	}
	return out, nil
}
