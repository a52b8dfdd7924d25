// Package http serves the ledger: the entry form, JSON views for admins,
// CSV exports and the settings document.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"nomina/internal/auth"
	"nomina/internal/log"
	"nomina/internal/middleware/ratelimit"
	"nomina/internal/middleware/security"
	"nomina/internal/middleware/trace"
	"nomina/internal/services"
	appweb "nomina/web"
)

// storeTimeout bounds each handler's trip to the ledger store.
const storeTimeout = 10 * time.Second

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	http.Server
	templates *template.Template
	ledger    *services.LedgerService
	authn     *auth.Authenticator
	logger    *log.Logger

	rateLimiter     *ratelimit.Limiter
	detector        *security.Detector
	traceMiddleware *trace.Middleware
	appMetrics      *appMetrics

	checksMu sync.RWMutex
	checks   map[string]ReadinessCheck

	shutdownOnce sync.Once
}

type appMetrics struct {
	submissions int64
	deletions   int64
	logins      int64
	uptime      time.Time
}

// NewServer wires routes and middleware around the ledger service.
func NewServer(addr string, ledger *services.LedgerService, authn *auth.Authenticator, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector(logger)
	s := &Server{
		ledger:          ledger,
		authn:           authn,
		logger:          logger,
		rateLimiter:     ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:        detector,
		traceMiddleware: trace.NewMiddleware(detector.ExtractClientIP, logger),
		appMetrics:      &appMetrics{uptime: time.Now()},
		checks:          make(map[string]ReadinessCheck),
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.WithComponent(log.ComponentTemplate).Warn("Failed parsing templates",
			log.FieldError, err,
			"error_type", log.ErrorTypeConfiguration)
	} else {
		s.templates = t
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/session", s.handleSession)

	data := func(h http.HandlerFunc) http.Handler { return security.NoStore(h) }
	mux.Handle("/entries", data(s.handleEntries))
	mux.Handle("/entries/delete", data(s.handleDeleteEntries))
	mux.Handle("/summaries", data(s.handleSummaries))
	mux.Handle("/summaries/totals", data(s.handleMonthlyTotals))
	mux.Handle("/compliance", data(s.handleCompliance))
	mux.Handle("/compliance/daily", data(s.handleDailyCompliance))
	mux.Handle("/control", data(s.handleControl))
	mux.Handle("/export/entries.csv", data(s.handleExportEntries))
	mux.Handle("/export/summaries.csv", data(s.handleExportSummaries))
	mux.Handle("/settings", data(s.handleSettings))
	mux.Handle("/settings/rates", data(s.handleRates))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)

	var h http.Handler = mux
	h = log.ComponentMiddleware(log.ComponentHTTP)(h)
	h = limited(h)
	h = headers.Middleware(h)
	h = s.detector.Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	return h
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, try again later")
}

// AddReadinessCheck registers a dependency probed by /readyz.
func (s *Server) AddReadinessCheck(name string, check ReadinessCheck) {
	s.checksMu.Lock()
	defer s.checksMu.Unlock()
	s.checks[name] = check
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// session resolves the caller. Unknown or missing tokens fall back to the
// employee session.
func (s *Server) session(r *http.Request) auth.Session {
	return s.authn.Lookup(sessionToken(r))
}

// withStoreTimeout bounds store access for one request.
func withStoreTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), storeTimeout)
}
