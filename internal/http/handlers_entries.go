package http

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"nomina/internal/core"
	"nomina/internal/log"
	"nomina/internal/services"
)

// handleEntries lists entries (GET, admin) or saves a submission (POST).
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleListEntries(w, r)
	case http.MethodPost:
		s.handleSubmit(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	ctx, cancel := withStoreTimeout(r)
	defer cancel()

	entries, err := s.ledger.Entries(ctx, s.session(r), f)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entryViews(entries),
		"count":   len(entries),
	})
}

// entryView is the JSON shape of one ledger row.
type entryView struct {
	ID         int64         `json:"id"`
	Date       core.Date     `json:"date"`
	Employee   string        `json:"employee"`
	Area       string        `json:"area,omitempty"`
	Leader     string        `json:"leader,omitempty"`
	Category   core.Category `json:"category"`
	CaseNumber string        `json:"case_number,omitempty"`
	Status     string        `json:"status,omitempty"`
	Quantity   float64       `json:"quantity"`
	Duplicate  bool          `json:"duplicate"`
}

func entryViews(entries []core.Entry) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryView{
			ID:         e.ID,
			Date:       e.Date,
			Employee:   e.Employee,
			Area:       e.Area,
			Leader:     e.Leader,
			Category:   e.Category,
			CaseNumber: e.CaseNumber,
			Status:     e.Status,
			Quantity:   e.Quantity,
			Duplicate:  e.Duplicate,
		})
	}
	return out
}

// parseSubmission reads the entry form. Case numbers may arrive as one
// pasted text or, from JSON clients, as an array.
func parseSubmission(p *RequestBodyParser, now time.Time) (services.Submission, error) {
	date, err := ParseDateParam(p.Get("date"), now)
	if err != nil {
		return services.Submission{}, err
	}
	sub := services.Submission{
		Date:              date,
		Employee:          p.Get("employee"),
		Area:              p.Get("area"),
		Leader:            p.Get("leader"),
		Status:            p.Get("status"),
		ProductivityCases: strings.Join(p.Values("productivity_cases"), ","),
		VariableCases:     strings.Join(p.Values("variable_cases"), ","),
	}
	if sub.AdditionalCases, err = p.Int("additional_cases"); err != nil {
		return services.Submission{}, err
	}
	if sub.SaturdayCases, err = p.Int("saturday_cases"); err != nil {
		return services.Submission{}, err
	}
	if sub.OvertimeHours, err = p.Float("overtime_hours"); err != nil {
		return services.Submission{}, err
	}
	return sub, nil
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.writeError(w, r, log.OpSubmit, core.NewValidationError("body", "malformed request body"))
		return
	}
	sub, err := parseSubmission(p, time.Now())
	if err != nil {
		s.writeError(w, r, log.OpSubmit, err)
		return
	}

	ctx, cancel := withStoreTimeout(r)
	defer cancel()
	ids, err := s.ledger.Submit(ctx, s.session(r), sub)
	if err != nil {
		s.writeError(w, r, log.OpSubmit, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.submissions, 1)

	if wantsHTML(r) {
		month := sub.Date.MonthOf()
		msg := fmt.Sprintf("Registro guardado: %d filas para %s (%s)", len(ids), sub.Employee, sub.Date)
		NewHTMXResponse().
			TriggerEntriesSubmitted(month, len(ids)).
			TriggerSummaryRefresh(month).
			TriggerFormReset().
			TriggerSuccessNotification(msg).
			Notice(NotificationSuccess, msg).
			Write(w)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"ids":   ids,
		"count": len(ids),
	})
}

// handleDeleteEntries tombstones the posted ids.
func (s *Server) handleDeleteEntries(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.writeError(w, r, log.OpDelete, core.NewValidationError("body", "malformed request body"))
		return
	}
	ids, err := parseIDs(append(p.Values("ids"), r.URL.Query()["ids"]...))
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}

	ctx, cancel := withStoreTimeout(r)
	defer cancel()
	removed, err := s.ledger.Delete(ctx, s.session(r), ids)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.deletions, int64(removed))

	if wantsHTML(r) {
		msg := fmt.Sprintf("%d registros eliminados", removed)
		NewHTMXResponse().
			TriggerEntriesDeleted(removed).
			TriggerSuccessNotification(msg).
			Notice(NotificationSuccess, msg).
			Write(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requested": len(ids),
		"deleted":   removed,
	})
}
