package web

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"feastsched/internal/ics"
	"feastsched/internal/localdate"
	appLog "feastsched/internal/log"
	"feastsched/internal/model"
	"feastsched/internal/schedule"
)

const (
	maxFeastDays   = 366
	maxServiceDays = 92
)

// GET /api/feasts?from=yyyy-mm-dd&to=yyyy-mm-dd
func (s *Server) handleFeasts(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r, s.fallbackLocation(), 7, maxFeastDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	feasts, err := s.feasts.FetchFeasts(r.Context(), from, to)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if feasts == nil {
		feasts = []model.Feast{}
	}
	writeJSON(w, http.StatusOK, feasts)
}

func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.store.ListTenants(r.Context(), false)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenants)
}

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var in model.Tenant
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if in.Timezone != "" {
		if _, err := time.LoadLocation(in.Timezone); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown timezone %q", in.Timezone))
			return
		}
	}
	in.ID = uuid.Nil
	t, err := s.store.CreateTenant(r.Context(), in)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// tenant resolves the {tenant} path value, writing the error response itself
// when it fails.
func (s *Server) tenant(w http.ResponseWriter, r *http.Request) (model.Tenant, bool) {
	id, err := pathUUID(r, "tenant")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return model.Tenant{}, false
	}
	t, err := s.store.GetTenant(r.Context(), id)
	if err != nil {
		writeFailure(w, r, err)
		return model.Tenant{}, false
	}
	return t, true
}

func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tenant(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tenant(w, r)
	if !ok {
		return
	}
	templates, err := s.store.ListTemplates(r.Context(), t.ID, s.templateLimit)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// POST /api/tenants/{tenant}/templates
//
// The body is a FeastTemplate; id and tenant are taken from the server.
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tenant(w, r)
	if !ok {
		return
	}
	var in model.FeastTemplate
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.ID = uuid.Nil
	in.TenantID = t.ID

	created, err := s.store.CreateTemplate(r.Context(), in)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	appLog.Info("template created", "tenant", t.ID, "template", created.ID, "generic", created.IsGeneric)
	writeJSON(w, http.StatusCreated, created)
}

type selectResponse struct {
	Date     localdate.Date          `json:"date"`
	Tab      string                  `json:"tab"`
	Template *model.FeastTemplate    `json:"template"`
	Services []model.TemplateService `json:"services"`
}

// GET /api/tenants/{tenant}/templates/select?date=yyyy-mm-dd
func (s *Server) handleSelectTemplate(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tenant(w, r)
	if !ok {
		return
	}
	date, err := localdate.Parse(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	templates, err := s.store.ListTemplates(r.Context(), t.ID, s.templateLimit)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	tab := model.TabOfDate(date)
	resp := selectResponse{Date: date, Tab: tab.String(), Services: []model.TemplateService{}}
	if tpl, found := schedule.SelectTemplate(templates, date); found {
		resp.Template = &tpl
		resp.Services = tpl.ServicesFor(tab)
	}
	writeJSON(w, http.StatusOK, resp)
}

type weekResponse struct {
	Week   model.ServiceWeek `json:"week"`
	Report schedule.Report   `json:"report"`
}

// POST /api/tenants/{tenant}/weeks
//
// The body carries start, optional end and optional pre-filled days.
func (s *Server) handleCreateWeek(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tenant(w, r)
	if !ok {
		return
	}
	var in model.ServiceWeek
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.ID = uuid.Nil
	in.TenantID = t.ID

	week, report, err := s.weeks.CreateWeek(r.Context(), in)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, weekResponse{Week: week, Report: report})
}

func (s *Server) handleGetWeek(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tenant(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "week")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid week id")
		return
	}
	week, err := s.store.GetServiceWeek(r.Context(), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if week.TenantID != t.ID {
		writeError(w, http.StatusNotFound, "service week not found")
		return
	}
	writeJSON(w, http.StatusOK, week)
}

type dayDTO struct {
	Date     localdate.Date  `json:"date"`
	Tab      string          `json:"tab"`
	Services []model.Service `json:"services"`
}

type servicesResponse struct {
	Tenant   uuid.UUID      `json:"tenant"`
	Timezone string         `json:"timezone"`
	From     localdate.Date `json:"from"`
	To       localdate.Date `json:"to"`
	Days     []dayDTO       `json:"days"`
}

// tenantServices loads the services of the requested local-day range.
func (s *Server) tenantServices(w http.ResponseWriter, r *http.Request) (model.Tenant, *time.Location, localdate.Date, localdate.Date, []model.Service, bool) {
	t, ok := s.tenant(w, r)
	if !ok {
		return t, nil, localdate.Date{}, localdate.Date{}, nil, false
	}
	loc := t.Location(s.fallbackLocation())
	from, to, err := dateRange(r, loc, 7, maxServiceDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return t, nil, from, to, nil, false
	}
	services, err := s.store.ListServices(r.Context(), t.ID, from.Midnight(loc), to.AddDays(1).Midnight(loc))
	if err != nil {
		writeFailure(w, r, err)
		return t, nil, from, to, nil, false
	}
	return t, loc, from, to, services, true
}

// GET /api/tenants/{tenant}/services?from=&to=
//
// Services are grouped by local day in the tenant's zone; every day of the
// range is present.
func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	t, loc, from, to, services, ok := s.tenantServices(w, r)
	if !ok {
		return
	}
	byDay := schedule.GroupByLocalDay(services, func(svc model.Service) time.Time { return svc.Date }, loc)

	resp := servicesResponse{Tenant: t.ID, Timezone: loc.String(), From: from, To: to}
	for _, day := range localdate.Range(from, to) {
		list := byDay[day]
		if list == nil {
			list = []model.Service{}
		}
		resp.Days = append(resp.Days, dayDTO{Date: day, Tab: model.TabOfDate(day).String(), Services: list})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/tenants/{tenant}/services.ics?from=&to=
func (s *Server) handleServicesICS(w http.ResponseWriter, r *http.Request) {
	t, loc, _, _, services, ok := s.tenantServices(w, r)
	if !ok {
		return
	}
	body := ics.Export(services, ics.ExportOptions{Name: t.Name, Timezone: loc.String()})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

type importResponse struct {
	Imported int         `json:"imported"`
	Failed   int         `json:"failed"`
	IDs      []uuid.UUID `json:"ids"`
}

// POST /api/tenants/{tenant}/services/import?from=&to=
//
// The body is an iCalendar feed; its timed events in the range become
// manual services.
func (s *Server) handleImportICS(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tenant(w, r)
	if !ok {
		return
	}
	loc := t.Location(s.fallbackLocation())
	from, to, err := dateRange(r, loc, 7, maxServiceDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	services, err := ics.Import(body, ics.ImportOptions{
		TenantID: t.ID,
		Location: loc,
		From:     from.Midnight(loc),
		To:       to.AddDays(1).Midnight(loc),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := importResponse{IDs: []uuid.UUID{}}
	for _, svc := range services {
		id, err := s.store.CreateService(r.Context(), svc)
		if err != nil {
			appLog.Error("imported service not persisted", err, "tenant", t.ID, "date", svc.Date)
			resp.Failed++
			continue
		}
		resp.IDs = append(resp.IDs, id)
		resp.Imported++
	}
	writeJSON(w, http.StatusOK, resp)
}
