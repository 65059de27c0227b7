// Package web serves the recorded QA results: a list of sessions, per-session
// check details and captured screenshots. The viewer is read-only, all writes
// happen through the probe and snapshot commands.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/dumontcloud/dumont-qa/app/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Storage provides read access to recorded runs, implemented by store.SQLiteStore
type Storage interface {
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	GetRun(ctx context.Context, id int64) (store.Run, error)
	GetChecks(ctx context.Context, runID int64) ([]store.Check, error)
}

// Server is the results viewer web server
type Server struct {
	Store          Storage
	ScreenshotsDir string // served under /screenshots/
	Version        string // shown in the footer and AppInfo header
	PasswordHash   string // bcrypt hash, empty disables auth
	ListLimit      int    // max runs shown on the index page

	templates map[string]*template.Template
}

// TemplateData holds data for the viewer templates
type TemplateData struct {
	Runs        []store.Run
	Run         store.Run
	Checks      []store.Check
	Version     string
	CurrentYear int
	AuthEnabled bool
	LoginError  string
}

// Run starts the server and blocks until ctx is canceled
func (s *Server) Run(ctx context.Context, address string) error {
	if err := s.loadTemplates(); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown results viewer: %v", err)
		}
	}()

	log.Printf("[INFO] starting results viewer on %s", address)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("results viewer failed: %w", err)
	}
	return nil
}

func (s *Server) loadTemplates() error {
	if s.templates != nil {
		return nil
	}
	s.templates = map[string]*template.Template{}
	for _, name := range []string{"index", "run", "login"} {
		tmpl, err := template.ParseFS(templatesFS, "templates/"+name+".html")
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		s.templates[name] = tmpl
	}
	return nil
}

func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	// global middleware, applied to all routes
	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(100),
		rest.AppInfo("dumont-qa", "dumontcloud", s.Version),
		rest.Ping,
		rest.Trace,
		rest.SizeLimit(64*1024), // 64KB max request size
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	// auth middleware must be installed before any routes are defined
	if s.PasswordHash != "" {
		log.Printf("[INFO] authentication enabled for results viewer")
		router.Use(s.authMiddleware)

		loginLimiter := tollbooth.NewLimiter(1, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
		router.HandleFunc("GET /login", s.handleLoginForm)
		router.With(tollbooth.HTTPMiddleware(loginLimiter)).HandleFunc("POST /login", s.handleLogin)
		router.HandleFunc("GET /logout", s.handleLogout)
	}

	router.HandleFunc("GET /{$}", s.handleIndex)
	router.HandleFunc("GET /runs/{id}", s.handleRun)

	// JSON API for programmatic access to recorded results
	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)
		api.HandleFunc("GET /status", s.handleAPIStatus)
		api.HandleFunc("GET /runs/{id}/checks", s.handleAPIChecks)
	})

	if s.ScreenshotsDir != "" {
		router.HandleFiles("/screenshots/", http.Dir(s.ScreenshotsDir))
	}

	return router
}

// handleIndex shows the list of recorded sessions
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	limit := s.ListLimit
	if limit <= 0 {
		limit = 50
	}
	runs, err := s.Store.ListRuns(r.Context(), limit)
	if err != nil {
		log.Printf("[WARN] failed to list runs: %v", err)
		http.Error(w, "Failed to load runs", http.StatusInternalServerError)
		return
	}

	s.render(w, "index", TemplateData{
		Runs:        runs,
		Version:     s.Version,
		CurrentYear: time.Now().Year(),
		AuthEnabled: s.PasswordHash != "",
	})
}

// handleRun shows the checks of a single session
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid run id", http.StatusBadRequest)
		return
	}

	run, err := s.Store.GetRun(r.Context(), id)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	checks, err := s.Store.GetChecks(r.Context(), id)
	if err != nil {
		log.Printf("[WARN] failed to load checks for run %d: %v", id, err)
		http.Error(w, "Failed to load checks", http.StatusInternalServerError)
		return
	}

	s.render(w, "run", TemplateData{
		Run:         run,
		Checks:      checks,
		Version:     s.Version,
		CurrentYear: time.Now().Year(),
		AuthEnabled: s.PasswordHash != "",
	})
}

// handleAPIStatus returns the latest runs as JSON
func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	runs, err := s.Store.ListRuns(r.Context(), 10)
	if err != nil {
		http.Error(w, "Failed to load runs", http.StatusInternalServerError)
		return
	}

	type runInfo struct {
		ID         int64     `json:"id"`
		Kind       string    `json:"kind"`
		Target     string    `json:"target"`
		StartedAt  time.Time `json:"started_at"`
		FinishedAt time.Time `json:"finished_at"`
		Passed     int       `json:"passed"`
		Failed     int       `json:"failed"`
		Skipped    int       `json:"skipped"`
	}
	res := struct {
		Runs []runInfo `json:"runs"`
	}{Runs: []runInfo{}}
	for _, run := range runs {
		res.Runs = append(res.Runs, runInfo{ID: run.ID, Kind: run.Kind, Target: run.Target,
			StartedAt: run.StartedAt, FinishedAt: run.FinishedAt,
			Passed: run.Passed, Failed: run.Failed, Skipped: run.Skipped})
	}
	rest.RenderJSON(w, res)
}

// handleAPIChecks returns the checks of a run as JSON
func (s *Server) handleAPIChecks(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid run id", http.StatusBadRequest)
		return
	}
	checks, err := s.Store.GetChecks(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to load checks", http.StatusInternalServerError)
		return
	}
	rest.RenderJSON(w, checks)
}

func (s *Server) render(w http.ResponseWriter, name string, data TemplateData) {
	tmpl, ok := s.templates[name]
	if !ok {
		log.Printf("[WARN] template %s not found", name)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	// render to a buffer first so a template error doesn't produce a half-written page
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, data); err != nil {
		log.Printf("[WARN] failed to execute template %s: %v", name, err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
