package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mealcal/internal/config"
	"mealcal/internal/extract"
	"mealcal/internal/ics"
	appLog "mealcal/internal/log"
	"mealcal/internal/model"
	"mealcal/internal/store"
)

// maxUploadBytes bounds the HTML snapshot accepted by POST /api/plans.
const maxUploadBytes = 16 << 20

// Server provides HTTP APIs for meal plans and their calendars.
type Server struct {
	cfg     *config.Config
	store   *store.Store
	emitter *ics.Emitter
	router  chi.Router
	now     func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, st *store.Store) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		emitter: cfg.Emitter(),
		now:     time.Now,
	}
	s.router = s.routes()
	return s
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Blank credentials disable auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware guards everything mounted below it with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="mealcal", charset="UTF-8"`)
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

// StartServer serves the API on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, st *store.Store) error {
	s := NewServer(cfg, st)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen, "basic_auth", s.basicAuthEnabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// /health is always unauthenticated.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.basicAuthEnabled() {
			r.Use(s.basicAuthMiddleware)
		}
		r.Route("/api/plans", func(r chi.Router) {
			r.Get("/", s.handleListPlans)
			r.Post("/", s.handleCreatePlan)
			r.Get("/{name}", s.handleGetPlan)
			r.Get("/{name}/calendar.ics", s.handleCalendar)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// plansResponse is the JSON response shape for GET /api/plans.
type plansResponse struct {
	Plans []string `json:"plans"`
}

func (s *Server) handleListPlans(w http.ResponseWriter, _ *http.Request) {
	names, err := s.store.List()
	if err != nil {
		appLog.Error("api plans: list failed", err, "dir", s.store.PlansDir())
		writeError(w, http.StatusInternalServerError, "failed to list meal plans")
		return
	}
	writeJSON(w, http.StatusOK, plansResponse{Plans: names})
}

// handleGetPlan returns a stored plan in the interchange format.
func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.loadPlan(w, chi.URLParam(r, "name"))
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := model.Encode(&buf, plan); err != nil {
		appLog.Error("api plans: encode failed", err)
		writeError(w, http.StatusInternalServerError, "failed to encode meal plan")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleCalendar renders a stored plan as an iCalendar attachment.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	plan, ok := s.loadPlan(w, name)
	if !ok {
		return
	}
	data, doc, err := s.emitter.Emit(plan)
	if err != nil {
		appLog.Error("api calendar: emit failed", err, "plan", name)
		writeError(w, http.StatusInternalServerError, "failed to generate calendar")
		return
	}
	appLog.Info("api calendar request", "plan", name, "events", len(doc.Events), "fallback_dates", len(doc.Notices))

	w.Header().Set("Content-Type", ics.ContentType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+store.CalendarName(name)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// createResponse is the JSON response shape for POST /api/plans.
type createResponse struct {
	Name          string            `json:"name"`
	Sections      []string          `json:"sections"`
	EmptySections []string          `json:"empty_sections,omitempty"`
	Meals         int               `json:"meals"`
	Warnings      []extract.Warning `json:"warnings,omitempty"`
}

// noDataResponse is returned with 422 when the page carries no date
// sections, listing the classes it does carry.
type noDataResponse struct {
	Error   string   `json:"error"`
	Classes []string `json:"classes"`
}

// handleCreatePlan extracts a plan from an uploaded HTML snapshot and saves it.
//
// POST /api/plans?name=week22&structured=true
//   - name:       plan name (default: timestamped)
//   - structured: keep recipe links as a name → URL mapping
func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		name = store.DefaultPlanName(s.now())
	}
	structured := s.cfg.Structured
	if v := q.Get("structured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "structured must be a boolean")
			return
		}
		structured = b
	}

	doc, err := extract.Parse(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "snapshot too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read HTML body")
		return
	}

	res, err := extract.New(s.cfg.Signatures, structured).Extract(doc)
	if errors.Is(err, extract.ErrNoDateSections) {
		writeJSON(w, http.StatusUnprocessableEntity, noDataResponse{
			Error:   "no date sections found",
			Classes: extract.ClassInventory(doc),
		})
		return
	}
	if err != nil {
		appLog.Error("api plans: extraction failed", err)
		writeError(w, http.StatusInternalServerError, "extraction failed")
		return
	}

	path, err := s.store.Save(name, res.Plan)
	if err != nil {
		if errors.Is(err, store.ErrInvalidName) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		appLog.Error("api plans: save failed", err, "name", name)
		writeError(w, http.StatusInternalServerError, "failed to save meal plan")
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{
		Name:          filepath.Base(path),
		Sections:      res.Sections,
		EmptySections: res.EmptySections,
		Meals:         res.Plan.MealCount(),
		Warnings:      res.Warnings,
	})
}

// loadPlan writes the error response itself and reports false on failure.
func (s *Server) loadPlan(w http.ResponseWriter, name string) (model.MealPlan, bool) {
	plan, err := s.store.Load(name)
	switch {
	case err == nil:
		return plan, true
	case errors.Is(err, store.ErrPlanNotFound):
		writeError(w, http.StatusNotFound, "meal plan not found")
	case errors.Is(err, store.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		appLog.Error("api plans: load failed", err, "name", name)
		writeError(w, http.StatusInternalServerError, "failed to load meal plan")
	}
	return model.MealPlan{}, false
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
