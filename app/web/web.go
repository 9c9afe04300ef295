// Package web implements the web UI and JSON API of jobbridge
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/jobbridge/app/assist"
	"github.com/umputun/jobbridge/app/catalog"
	"github.com/umputun/jobbridge/app/ocr"
	"github.com/umputun/jobbridge/app/pipeline"
	"github.com/umputun/jobbridge/app/web/enums"
)

//go:generate moq -out mocks/history.go -pkg mocks -skip-ensure -fmt goimports . History

//go:embed templates/*.html templates/partials/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

const (
	defaultMaxUpload    = 10 * 1024 * 1024
	defaultHistoryLimit = 20
	formSizeLimit       = 64 * 1024 // non-upload requests
)

// Analyzer runs user operations, implemented by pipeline.Pipeline
type Analyzer interface {
	Analyze(ctx context.Context, up *ocr.Upload) (pipeline.Analysis, error)
	Ask(ctx context.Context, question string) (assist.Reply, bool)
	Info() pipeline.Info
	Jobs() []catalog.Job
	Skills() []string
}

// History provides stored analyses and questions, implemented by persistence.SQLiteStore
type History interface {
	GetAnalysis(ctx context.Context, id string) (pipeline.Analysis, error)
	ListAnalyses(ctx context.Context, limit int) ([]pipeline.Analysis, error)
	ListQuestions(ctx context.Context, limit int) ([]pipeline.Question, error)
	Counts(ctx context.Context) (analyses, questions int, err error)
}

// Server represents the web server
type Server struct {
	analyzer       Analyzer
	history        History // nil if history disabled
	templates      map[string]*template.Template
	baseURL        string // base URL path for reverse proxy (e.g., /jobbridge), empty for root
	hostname       string // hostname to display in UI
	version        string
	passwordHash   string        // bcrypt hash for auth, empty disables auth
	loginTTL       time.Duration // session lifetime
	maxUpload      int64
	historyLimit   int
	dataPath       string // path reported in disk stats
	startTime      time.Time
	csrfProtection *http.CrossOriginProtection
	loginLimiter   *limiter.Limiter
	analyzeLimiter *limiter.Limiter
	sessions       map[string]session // active user sessions
	sessionsMu     sync.Mutex
}

// Config holds server configuration
type Config struct {
	Analyzer      Analyzer
	History       History // optional
	BaseURL       string  // base URL path for reverse proxy (e.g., /jobbridge), empty for root
	Hostname      string  // hostname to display in UI
	Version       string
	PasswordHash  string        // bcrypt hash for auth (empty to disable)
	LoginTTL      time.Duration // session lifetime, defaults to 24h
	MaxUploadSize int64         // max uploaded document size, defaults to 10MB
	AnalyzeRate   float64       // analyze requests per second per client, 0 disables limit
	HistoryLimit  int           // number of recent records shown, defaults to 20
	DataPath      string        // path for disk usage in status, defaults to "."
}

// TemplateData holds data for templates
type TemplateData struct {
	BaseURL     string
	Hostname    string
	Theme       enums.Theme
	AuthEnabled bool
	Version     string // application version (short form)
	FullVersion string
	CurrentYear int
	MaxUploadMB int64
	Info        pipeline.Info
	Skills      []string

	Analysis       *pipeline.Analysis // analysis shown in sections 2 and 3
	Analyses       []pipeline.Analysis
	Questions      []pipeline.Question
	HistoryEnabled bool

	Question string        // asked question
	Reply    *assist.Reply // nil if nothing answered
	Error    string        // user-facing error message
}

// newTemplateData creates a TemplateData with common fields populated from request
func (s *Server) newTemplateData(r *http.Request) TemplateData {
	return TemplateData{
		BaseURL:        s.baseURL,
		Hostname:       s.hostname,
		Theme:          s.getTheme(r),
		AuthEnabled:    s.passwordHash != "",
		Version:        shortVersion(s.version),
		FullVersion:    s.version,
		CurrentYear:    time.Now().Year(),
		MaxUploadMB:    s.maxUpload / (1024 * 1024),
		HistoryEnabled: s.history != nil,
	}
}

// New creates a new web server
func New(cfg Config) (*Server, error) {
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("web server initialization failed: analyzer is required")
	}

	s := &Server{
		analyzer:       cfg.Analyzer,
		history:        cfg.History,
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		hostname:       cfg.Hostname,
		version:        cfg.Version,
		passwordHash:   cfg.PasswordHash,
		loginTTL:       cfg.LoginTTL,
		maxUpload:      cfg.MaxUploadSize,
		historyLimit:   cfg.HistoryLimit,
		dataPath:       cfg.DataPath,
		startTime:      time.Now(),
		csrfProtection: http.NewCrossOriginProtection(),
		loginLimiter:   newLimiter(5),
		sessions:       make(map[string]session),
	}
	if s.loginTTL <= 0 {
		s.loginTTL = 24 * time.Hour
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUpload
	}
	if s.historyLimit <= 0 {
		s.historyLimit = defaultHistoryLimit
	}
	if s.dataPath == "" {
		s.dataPath = "."
	}
	if cfg.AnalyzeRate > 0 {
		s.analyzeLimiter = newLimiter(cfg.AnalyzeRate)
	}

	templates, err := s.parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("web server initialization failed: failed to parse HTML templates: %w", err)
	}
	s.templates = templates
	return s, nil
}

// newLimiter makes per-client rate limiter, client ip set by rest.RealIP
func newLimiter(rate float64) *limiter.Limiter {
	lmt := tollbooth.NewLimiter(rate, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})
	lmt.SetMessage(`{"error": "too many requests, try again later"}`)
	lmt.SetMessageContentType("application/json")
	return lmt
}

// Run starts the web server
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      2 * time.Minute, // ocr and embeddings can be slow
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting web server on %s", address)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// handler returns the http.Handler with base URL wrapping applied
func (s *Server) handler() http.Handler {
	routes := s.routes()
	if s.baseURL == "" {
		return routes
	}

	mux := http.NewServeMux()
	// handle base URL without trailing slash - redirect to with trailing slash
	mux.HandleFunc(s.baseURL, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.baseURL+"/", http.StatusMovedPermanently)
	})
	mux.Handle(s.baseURL+"/", http.StripPrefix(s.baseURL, routes))
	return mux
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	// global middleware - applied to all routes
	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("jobbridge", "umputun", s.version),
		rest.Ping,
		rest.Trace,
		rest.SizeLimit(s.maxUpload+formSizeLimit), // upload plus multipart overhead
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	// auth middleware must be set before any routes are defined
	if s.passwordHash != "" {
		log.Printf("[INFO] authentication enabled for web UI")
		router.Use(s.authMiddleware)
	}

	small := rest.SizeLimit(formSizeLimit)
	uploads := []func(http.Handler) http.Handler{}
	if s.analyzeLimiter != nil {
		uploads = append(uploads, tollbooth.HTTPMiddleware(s.analyzeLimiter))
	}

	if s.passwordHash != "" {
		router.HandleFunc("GET /login", s.handleLoginForm)
		router.With(small, s.csrfProtection.Handler, tollbooth.HTTPMiddleware(s.loginLimiter)).
			HandleFunc("POST /login", s.handleLogin)
		router.HandleFunc("GET /logout", s.handleLogout)
	}

	router.HandleFunc("GET /", s.handleDashboard)

	// HTMX endpoints
	router.Mount("/api").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)
		api.Use(s.csrfProtection.Handler)

		api.With(uploads...).HandleFunc("POST /analyze", s.handleAnalyze)
		api.With(small).HandleFunc("POST /ask", s.handleAsk)
		api.With(small).HandleFunc("POST /theme", s.handleThemeToggle)
		api.HandleFunc("GET /history", s.handleHistory)
		api.HandleFunc("GET /analyses/{id}", s.handleAnalysis)
	})

	// JSON API for CLI/programmatic access
	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)
		api.With(uploads...).HandleFunc("POST /analyze", s.handleAPIAnalyze)
		api.With(small).HandleFunc("POST /ask", s.handleAPIAsk)
		api.HandleFunc("GET /jobs", s.handleAPIJobs)
		api.HandleFunc("GET /skills", s.handleAPISkills)
		api.HandleFunc("GET /status", s.handleAPIStatus)
		api.HandleFunc("GET /analyses", s.handleAPIAnalyses)
		api.HandleFunc("GET /analyses/{id}", s.handleAPIAnalysis)
		api.HandleFunc("GET /analyses/{id}/matches.xlsx", s.handleAPIMatchesXLSX)
		api.HandleFunc("GET /catalog/schema", s.handleAPISchema)
	})

	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Printf("[ERROR] failed to create static file system: %v", err)
		router.Handle("GET /static/", http.FileServer(http.FS(staticFS)))
	} else {
		router.HandleFiles("/static/", http.FS(fsys))
	}

	return router
}

// render renders a template
func (s *Server) render(w http.ResponseWriter, page, tmplName string, data any) {
	tmpl, ok := s.templates[page]
	if !ok {
		log.Printf("[WARN] template %s not found", page)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, tmplName, data); err != nil {
		log.Printf("[WARN] failed to execute template: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[WARN] failed to write response: %v", err)
	}
}

// parseTemplates parses all templates
func (s *Server) parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)

	funcMap := template.FuncMap{
		"humanTime": s.humanTime,
		"score":     formatScore,
		"scoreBar":  scoreBar,
		"truncate":  s.truncate,
		"url":       s.url,
		"joinSkills": func(skills []string) string {
			return strings.Join(skills, ", ")
		},
	}

	// base template with all partials
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templatesFS,
		"templates/base.html", "templates/dashboard.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base template: %w", err)
	}
	templates["base.html"] = base

	// partials separately for HTMX requests
	partials, err := template.New("analysis.html").Funcs(funcMap).ParseFS(templatesFS, "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse partials: %w", err)
	}
	templates["partials"] = partials

	// login template is standalone, doesn't use base
	login, err := template.New("login.html").Funcs(funcMap).ParseFS(templatesFS, "templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse login template: %w", err)
	}
	templates["login"] = login

	return templates, nil
}

func (s *Server) getTheme(r *http.Request) enums.Theme {
	cookie, err := r.Cookie("theme")
	if err != nil {
		return enums.ThemeDark // default to dark when no cookie
	}
	theme, err := enums.ParseTheme(cookie.Value)
	if err != nil {
		log.Printf("[WARN] invalid theme %q: %v", cookie.Value, err)
		return enums.ThemeDark
	}
	return theme
}

// template helper functions

func (s *Server) humanTime(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.Local().Format("Jan 2, 15:04:05")
}

func (s *Server) truncate(str string, n int) string {
	r := []rune(str)
	if len(r) <= n {
		return str
	}
	return string(r[:n]) + "..."
}

// url prepends the base URL to a path for reverse proxy support
func (s *Server) url(path string) string {
	return s.baseURL + path
}

// cookiePath returns the cookie path with base URL support
func (s *Server) cookiePath() string {
	if s.baseURL == "" {
		return "/"
	}
	return s.baseURL + "/"
}

// formatScore shows similarity with 3 decimals
func formatScore(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// scoreBar maps similarity in [-1, 1] to bar width percent
func scoreBar(v float64) int {
	pct := int((v + 1) / 2 * 100)
	return max(0, min(100, pct))
}

// shortVersion extracts a short version string from full version,
// "v1.7.0-abc1234-20241225" -> "v1.7.0"
func shortVersion(fullVer string) string {
	if fullVer == "" || fullVer == "unknown" {
		return fullVer
	}
	if idx := strings.Index(fullVer, "-"); idx > 0 {
		return fullVer[:idx]
	}
	return fullVer
}
