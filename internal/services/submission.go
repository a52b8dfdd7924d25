package services

import (
	"strings"
	"unicode"

	"nomina/internal/core"
)

// maxRowsPerSubmission bounds a single form post.
const maxRowsPerSubmission = 500

// Submission is one filled-in entry form: the day's work of one employee.
type Submission struct {
	Date     core.Date `json:"date"`
	Employee string    `json:"employee"`
	Area     string    `json:"area"`
	Leader   string    `json:"leader"`
	Status   string    `json:"status"`

	// ProductivityCases and VariableCases are pasted case numbers.
	ProductivityCases string `json:"productivity_cases"`
	VariableCases     string `json:"variable_cases"`

	AdditionalCases int     `json:"additional_cases"`
	SaturdayCases   int     `json:"saturday_cases"`
	OvertimeHours   float64 `json:"overtime_hours"`
}

// ParseCaseNumbers splits pasted case numbers on commas, semicolons and
// whitespace, dropping blanks and repeats while keeping the first order seen.
func ParseCaseNumbers(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Entries expands the submission into ledger rows. Counted categories
// become one row per case so the row-count strategy measures cases;
// overtime becomes a single row carrying the hours.
func (s Submission) Entries() ([]core.Entry, error) {
	employee := strings.TrimSpace(s.Employee)
	if employee == "" {
		return nil, core.NewValidationError("employee", "employee is required")
	}
	if err := s.Date.Validate(); err != nil {
		return nil, core.NewValidationError("date", "date is required")
	}
	if s.AdditionalCases < 0 {
		return nil, core.NewValidationError("additional_cases", "must not be negative")
	}
	if s.SaturdayCases < 0 {
		return nil, core.NewValidationError("saturday_cases", "must not be negative")
	}
	if s.OvertimeHours < 0 {
		return nil, core.NewValidationError("overtime_hours", "must not be negative")
	}

	productivity := ParseCaseNumbers(s.ProductivityCases)
	variable := ParseCaseNumbers(s.VariableCases)
	if rowsRequested(len(productivity), len(variable), s.AdditionalCases, s.SaturdayCases, s.OvertimeHours) > maxRowsPerSubmission {
		return nil, core.NewValidationError("entries", "too many rows in one submission")
	}

	base := core.Entry{
		Date:     s.Date,
		Employee: employee,
		Area:     strings.TrimSpace(s.Area),
		Leader:   strings.TrimSpace(s.Leader),
		Status:   strings.TrimSpace(s.Status),
	}
	row := func(c core.Category, caseNumber string, qty float64) core.Entry {
		e := base
		e.Category = c
		e.CaseNumber = caseNumber
		e.Quantity = qty
		return e
	}

	var entries []core.Entry
	for _, n := range productivity {
		entries = append(entries, row(core.Productividad, n, 1))
	}
	for _, n := range variable {
		entries = append(entries, row(core.Variable, n, 1))
	}
	for i := 0; i < s.AdditionalCases; i++ {
		entries = append(entries, row(core.Adicional, "", 1))
	}
	for i := 0; i < s.SaturdayCases; i++ {
		entries = append(entries, row(core.Sabado, "", 1))
	}
	if s.OvertimeHours > 0 {
		entries = append(entries, row(core.HorasExtra, "", s.OvertimeHours))
	}

	if len(entries) == 0 {
		return nil, core.NewValidationError("entries", "enter at least one case or overtime hours")
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// rowsRequested counts the rows a submission would expand to, saturating at
// maxRowsPerSubmission+1 so huge counts neither overflow nor get built.
func rowsRequested(productivity, variable, additional, saturday int, hours float64) int {
	total := 0
	for _, n := range []int{productivity, variable, additional, saturday} {
		if n > maxRowsPerSubmission-total {
			return maxRowsPerSubmission + 1
		}
		total += n
	}
	if hours > 0 {
		total++
	}
	return total
}
