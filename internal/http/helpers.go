package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"nomina/internal/core"
)

const (
	// SessionCookie carries the admin session id.
	SessionCookie = "nomina_session"
	// SessionHeader is accepted from API clients instead of the cookie.
	SessionHeader = "X-Session-ID"
)

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// sessionToken reads the session id from the header, then the cookie.
func sessionToken(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(SessionHeader)); v != "" {
		return v
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// parseIDs accepts ids as repeated values or comma separated lists.
func parseIDs(values []string) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, core.NewValidationError("ids", "invalid id "+strconv.Quote(part))
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// wantsHTML reports whether the caller is the browser form rather than an API client.
func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

var templateFuncs = template.FuncMap{
	"cop":      core.FormatCOP,
	"quantity": core.FormatQuantity,
	"yesno": func(b bool) string {
		if b {
			return "Sí"
		}
		return "No"
	},
}
