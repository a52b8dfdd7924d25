package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"nomina/internal/auth"
	"nomina/internal/core"
	"nomina/internal/log"
	"nomina/internal/payroll"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady runs every registered readiness check under one deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	s.checksMu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	probes := make(map[string]ReadinessCheck, len(s.checks))
	for name, check := range s.checks {
		probes[name] = check
	}
	s.checksMu.RUnlock()

	for _, name := range names {
		if err := probes[name](ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	counters := []struct {
		name, help, kind string
		value            interface{}
	}{
		{"http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests},
		{"http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.TotalErrors},
		{"submissions_total", "Entry forms saved", "counter", atomic.LoadInt64(&s.appMetrics.submissions)},
		{"entries_deleted_total", "Entries removed by administrators", "counter", atomic.LoadInt64(&s.appMetrics.deletions)},
		{"admin_logins_total", "Successful administrator logins", "counter", atomic.LoadInt64(&s.appMetrics.logins)},
		{"rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits},
		{"suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests},
		{"active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount},
		{"uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.appMetrics.uptime).Seconds())},
	}

	w.WriteHeader(http.StatusOK)
	for _, c := range counters {
		fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", c.name, c.kind)
		fmt.Fprintf(w, "%s %v\n\n", c.name, c.value)
	}
}

type indexData struct {
	Session   auth.Session
	IsAdmin   bool
	Today     string
	Month     core.Month
	Options   payroll.Settings
	Summaries []core.MonthlySummary
}

// handleIndex renders the entry form, plus the month's summaries for admins.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Página no encontrada").Write(w)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			"error_type", log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	sess := s.session(r)
	ctx, cancel := withStoreTimeout(r)
	defer cancel()

	now := time.Now()
	month := core.NewMonth(now.Year(), now.Month())
	if f, err := ParseFilter(r.URL.Query()); err == nil && !f.Month.IsZero() {
		month = f.Month
	}

	data := indexData{
		Session: sess,
		IsAdmin: sess.Role == auth.RoleAdmin,
		Today:   core.NewDate(now.Year(), int(now.Month()), now.Day()).String(),
		Month:   month,
	}
	opts, err := s.ledger.FormOptions(ctx, sess)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	data.Options = opts
	if sess.Can(auth.ObjSummaries, auth.ActRead) {
		summaries, err := s.ledger.Summaries(ctx, sess, core.Filter{Month: month})
		if err != nil {
			s.writeError(w, r, log.OpRead, err)
			return
		}
		data.Summaries = summaries
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err,
			"template", "index.html")
	}
}
