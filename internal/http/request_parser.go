package http

// Request parsing shared by the handlers: view filters, the submission date
// and bodies that arrive either as JSON or as form posts from htmx.

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nomina/internal/core"
)

// maxBodyBytes caps request bodies; a rates table or a day's cases fit easily.
const maxBodyBytes = 1 << 20

// ParseFilter reads employee, leader and month from query parameters.
// month accepts YYYY-MM, or year and month as separate numbers.
func ParseFilter(query url.Values) (core.Filter, error) {
	f := core.Filter{
		Employee: sanitizeInput(query.Get("employee")),
		Leader:   sanitizeInput(query.Get("leader")),
	}
	month, err := parseMonth(query)
	if err != nil {
		return core.Filter{}, err
	}
	f.Month = month
	return f, nil
}

func parseMonth(values url.Values) (core.Month, error) {
	raw := strings.TrimSpace(values.Get("month"))
	year := strings.TrimSpace(values.Get("year"))
	if raw == "" {
		return core.Month{}, nil
	}
	if year == "" {
		m, err := core.ParseMonth(raw)
		if err != nil {
			return core.Month{}, core.NewValidationError("month", "expected YYYY-MM")
		}
		return m, nil
	}
	y, errY := strconv.Atoi(year)
	m, errM := strconv.Atoi(raw)
	if errY != nil || errM != nil || m < 1 || m > 12 || y < 1900 {
		return core.Month{}, core.NewValidationError("month", "invalid year or month")
	}
	return core.NewMonth(y, time.Month(m)), nil
}

// ParseDateParam reads a YYYY-MM-DD date. Empty values mean today.
func ParseDateParam(raw string, now time.Time) (core.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return core.NewDate(now.Year(), int(now.Month()), now.Day()), nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, core.NewValidationError("date", "expected YYYY-MM-DD")
	}
	return d, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, up to maxBodyBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Values returns every value of key: repeated form fields or a JSON array.
func (p *RequestBodyParser) Values(key string) []string {
	if p.jsonData != nil {
		switch val := p.jsonData[key].(type) {
		case []interface{}:
			out := make([]string, 0, len(val))
			for _, v := range val {
				out = append(out, stringValue(v))
			}
			return out
		case nil:
			return nil
		default:
			return []string{stringValue(val)}
		}
	}
	if p.formData != nil {
		return p.formData[key]
	}
	return nil
}

// Int parses key as a whole number; empty means 0.
func (p *RequestBodyParser) Int(key string) (int, error) {
	v := p.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.NewValidationError(key, "must be a whole number")
	}
	return n, nil
}

// Float parses key as a quantity; empty means 0. Decimal commas are accepted.
func (p *RequestBodyParser) Float(key string) (float64, error) {
	v := p.Get(key)
	if v == "" {
		return 0, nil
	}
	q, err := core.ParseQuantity(v)
	if err != nil {
		return 0, core.NewValidationError(key, "must be a number")
	}
	return q, nil
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequireGET is a convenience function for read-only handlers.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireDeleteOrPOST is a convenience function for DELETE/POST handlers.
func RequireDeleteOrPOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}
