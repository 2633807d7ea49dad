package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"feastsched/internal/calendar"
	"feastsched/internal/config"
	"feastsched/internal/localdate"
	appLog "feastsched/internal/log"
	"feastsched/internal/model"
	"feastsched/internal/schedule"
	"feastsched/internal/store"
)

// Store is the persistence used by the HTTP API.
type Store interface {
	CreateTenant(ctx context.Context, t model.Tenant) (model.Tenant, error)
	GetTenant(ctx context.Context, id uuid.UUID) (model.Tenant, error)
	ListTenants(ctx context.Context, autoOnly bool) ([]model.Tenant, error)

	CreateTemplate(ctx context.Context, t model.FeastTemplate) (model.FeastTemplate, error)
	ListTemplates(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.FeastTemplate, error)

	CreateService(ctx context.Context, svc model.Service) (uuid.UUID, error)
	ListServices(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]model.Service, error)
	GetServiceWeek(ctx context.Context, id uuid.UUID) (model.ServiceWeek, error)
}

// WeekCreator runs generation for a new ServiceWeek and persists it.
type WeekCreator interface {
	CreateWeek(ctx context.Context, draft model.ServiceWeek) (model.ServiceWeek, schedule.Report, error)
}

// Server provides the HTTP API around the generation engine.
type Server struct {
	cfg    *config.Config
	store  Store
	weeks  WeekCreator
	feasts schedule.FeastSource
	mux    *http.ServeMux

	templateLimit int
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, st Store, weeks WeekCreator, feasts schedule.FeastSource) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		weeks:  weeks,
		feasts: feasts,
		mux:    http.NewServeMux(),

		templateLimit: schedule.DefaultTemplateLimit,
	}
	if cfg != nil && cfg.Generation.TemplateLimit > 0 {
		s.templateLimit = cfg.Generation.TemplateLimit
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="feastsched", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	appLog.Info("stopping HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/feasts", s.handleFeasts)

	s.mux.HandleFunc("GET /api/tenants", s.handleListTenants)
	s.mux.HandleFunc("POST /api/tenants", s.handleCreateTenant)
	s.mux.HandleFunc("GET /api/tenants/{tenant}", s.handleGetTenant)

	s.mux.HandleFunc("GET /api/tenants/{tenant}/templates", s.handleListTemplates)
	s.mux.HandleFunc("POST /api/tenants/{tenant}/templates", s.handleCreateTemplate)
	s.mux.HandleFunc("GET /api/tenants/{tenant}/templates/select", s.handleSelectTemplate)

	s.mux.HandleFunc("POST /api/tenants/{tenant}/weeks", s.handleCreateWeek)
	s.mux.HandleFunc("GET /api/tenants/{tenant}/weeks/{week}", s.handleGetWeek)

	s.mux.HandleFunc("GET /api/tenants/{tenant}/services", s.handleServices)
	s.mux.HandleFunc("GET /api/tenants/{tenant}/services.ics", s.handleServicesICS)
	s.mux.HandleFunc("POST /api/tenants/{tenant}/services/import", s.handleImportICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) fallbackLocation() *time.Location {
	if s.cfg == nil {
		return time.UTC
	}
	return s.cfg.Location()
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidTemplate), errors.Is(err, model.ErrInvalidWeek):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, calendar.ErrUnavailable), errors.Is(err, calendar.ErrMalformed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// writeFailure logs err and writes it with the mapped status.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		appLog.Error("api request failed", err, "method", r.Method, "path", r.URL.Path)
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue(name))
}

// dateRange reads ?from=&to= as local dates. Missing from is today in loc;
// missing to is from plus defaultDays-1.
func dateRange(r *http.Request, loc *time.Location, defaultDays, maxDays int) (localdate.Date, localdate.Date, error) {
	q := r.URL.Query()
	from := localdate.Today(loc)
	if v := q.Get("from"); v != "" {
		d, err := localdate.Parse(v)
		if err != nil {
			return from, from, err
		}
		from = d
	}
	to := from.AddDays(defaultDays - 1)
	if v := q.Get("to"); v != "" {
		d, err := localdate.Parse(v)
		if err != nil {
			return from, to, err
		}
		to = d
	}
	if to.Before(from) {
		return from, to, errors.New("to is before from")
	}
	if from.DaysUntil(to)+1 > maxDays {
		return from, to, errors.New("range too long")
	}
	return from, to, nil
}
