package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"

	"nomina/internal/core"
	"nomina/internal/log"
	"nomina/internal/payroll"
)

// handleSettings reads (GET) or replaces (PUT) the settings document.
// PUT accepts the YAML document or its JSON equivalent.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead, http.MethodPut); resp != nil {
		resp.Write(w)
		return
	}
	ctx, cancel := withStoreTimeout(r)
	defer cancel()
	sess := s.session(r)

	if r.Method != http.MethodPut {
		settings, err := s.ledger.Settings(ctx, sess)
		if err != nil {
			s.writeError(w, r, log.OpRead, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
		return
	}

	p := NewRequestBodyParser(r)
	if p.err != nil {
		s.writeError(w, r, log.OpUpdate, core.NewValidationError("body", p.err.Error()))
		return
	}
	if len(bytes.TrimSpace(p.GetRaw())) == 0 {
		s.writeError(w, r, log.OpUpdate, core.NewValidationError("body", "settings document is empty"))
		return
	}
	next, err := payroll.ParseSettings(p.GetRaw())
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	saved, err := s.ledger.UpdateSettings(ctx, sess, next)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// handleRates exports the rate table as CSV (GET) or replaces it whole (PUT)
// from a Concepto,Tarifa CSV or a JSON object of category to price.
func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead, http.MethodPut); resp != nil {
		resp.Write(w)
		return
	}
	ctx, cancel := withStoreTimeout(r)
	defer cancel()
	sess := s.session(r)

	if r.Method != http.MethodPut {
		settings, err := s.ledger.Settings(ctx, sess)
		if err != nil {
			s.writeError(w, r, log.OpRead, err)
			return
		}
		var buf bytes.Buffer
		if err := payroll.WriteRatesCSV(&buf, settings.Rates); err != nil {
			s.writeError(w, r, log.OpRead, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil && !strings.Contains(p.ContentType(), "csv") {
		s.writeError(w, r, log.OpUpdate, core.NewValidationError("body", "malformed request body"))
		return
	}

	var (
		rates   payroll.RateTable
		skipped []string
	)
	if p.IsJSON() {
		var in map[string]float64
		if err := json.Unmarshal(p.GetRaw(), &in); err != nil {
			s.writeError(w, r, log.OpUpdate, core.NewValidationError("rates", "expected an object of category to price"))
			return
		}
		rates, skipped = payroll.ParseRatesMap(in)
	} else {
		var err error
		rates, skipped, err = payroll.ParseRatesCSV(bytes.NewReader(p.GetRaw()))
		if err != nil {
			s.writeError(w, r, log.OpUpdate, core.NewValidationError("rates", err.Error()))
			return
		}
	}

	saved, err := s.ledger.ReplaceRates(ctx, sess, rates)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	if skipped == nil {
		skipped = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rates":   saved.Rates,
		"skipped": skipped,
	})
}

// handleSession opens (POST), inspects (GET) or closes (DELETE) the caller's session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		writeJSON(w, http.StatusOK, s.session(r))
	case http.MethodPost:
		s.handleLogin(w, r)
	case http.MethodDelete:
		s.authn.Logout(r.Context(), sessionToken(r))
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		MethodNotAllowedError("GET, POST, DELETE").Write(w)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.writeError(w, r, log.OpLogin, core.NewValidationError("body", "malformed request body"))
		return
	}
	passphrase := p.Get("passphrase")
	if passphrase == "" {
		s.writeError(w, r, log.OpLogin, core.NewValidationError("passphrase", "is required"))
		return
	}

	sess, err := s.authn.Login(r.Context(), passphrase)
	if err != nil {
		s.writeError(w, r, log.OpLogin, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.logins, 1)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	if wantsHTML(r) {
		NewHTMXResponse().
			Refresh().
			TriggerSuccessNotification("Sesión de administrador iniciada").
			Write(w)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
