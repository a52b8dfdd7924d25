package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Productividad Category = "Productividad"
	Variable      Category = "Variable"
	Adicional     Category = "Adicional"
	HorasExtra    Category = "HorasExtra"
	Sabado        Category = "Sabado"
)

// Categories lists every known category in display order.
var Categories = []Category{Productividad, Variable, Adicional, HorasExtra, Sabado}

type (
	Category string

	Date struct {
		time.Time
	}

	// Month identifies a calendar month. It is comparable and used as a map key.
	Month struct {
		Year  int
		Month time.Month
	}

	Entry struct {
		ID         int64
		Date       Date
		Employee   string
		Area       string
		Leader     string
		Category   Category
		CaseNumber string
		Status     string
		Quantity   float64
		// Duplicate is recomputed on every load and never persisted as ground truth.
		Duplicate bool
	}
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// ValidationError reports which input field was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

var categoryAliases = map[string]Category{
	"productividad":     Productividad,
	"productivity":      Productividad,
	"prod":              Productividad,
	"variable":          Variable,
	"adicional":         Adicional,
	"additional":        Adicional,
	"caso_adicional":    Adicional,
	"casos_adicionales": Adicional,
	"horasextra":        HorasExtra,
	"horas_extra":       HorasExtra,
	"hora_extra":        HorasExtra,
	"overtime":          HorasExtra,
	"overtime-hours":    HorasExtra,
	"overtime_hours":    HorasExtra,
	"sabado":            Sabado,
	"sábado":            Sabado,
	"saturday":          Sabado,
}

// ParseCategory accepts canonical names, English aliases and legacy keys, case-insensitive.
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// MonthOf returns the calendar month the date falls in.
func (d Date) MonthOf() Month {
	return Month{Year: d.Year(), Month: d.Time.Month()}
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON shadows time.Time's RFC 3339 encoding.
func (d Date) MarshalJSON() ([]byte, error) { return []byte(`"` + d.String() + `"`), nil }

func (d *Date) UnmarshalJSON(b []byte) error {
	return d.UnmarshalText([]byte(strings.Trim(string(b), `"`)))
}

func NewMonth(year int, month time.Month) Month {
	return Month{Year: year, Month: month}
}

// ParseMonth parses YYYY-MM.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Before reports whether m is earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// FirstDay returns the first day of the month.
func (m Month) FirstDay() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

// Next returns the following month.
func (m Month) Next() Month {
	t := time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (m Month) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Validate checks the invariants every persisted entry must hold.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Employee) == "" {
		return NewValidationError("employee", "employee name is required")
	}
	if err := e.Date.Validate(); err != nil {
		return NewValidationError("date", "date is required")
	}
	if !e.Category.Valid() {
		return NewValidationError("category", fmt.Sprintf("unknown category %q", e.Category))
	}
	if e.Quantity < 0 {
		return NewValidationError("quantity", "quantity must not be negative")
	}
	if len(e.CaseNumber) > 64 {
		return NewValidationError("case_number", "case number too long (max 64 characters)")
	}
	return nil
}

// Month returns the month the entry is attributed to.
func (e Entry) Month() Month {
	return e.Date.MonthOf()
}
