package http

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nomina/internal/auth"
	"nomina/internal/core"
	"nomina/internal/log"
)

// viewHandler parses the filter and bounds the store call for read-only views.
func (s *Server) viewHandler(op string, view func(r *http.Request, sess auth.Session, f core.Filter) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp := RequireGET(r); resp != nil {
			resp.Write(w)
			return
		}
		f, err := ParseFilter(r.URL.Query())
		if err != nil {
			s.writeError(w, r, op, err)
			return
		}
		ctx, cancel := withStoreTimeout(r)
		defer cancel()

		out, err := view(r.WithContext(ctx), s.session(r), f)
		if err != nil {
			s.writeError(w, r, op, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	s.viewHandler(log.OpRead, func(r *http.Request, sess auth.Session, f core.Filter) (interface{}, error) {
		summaries, err := s.ledger.Summaries(r.Context(), sess, f)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"summaries": summaries, "count": len(summaries)}, nil
	})(w, r)
}

func (s *Server) handleMonthlyTotals(w http.ResponseWriter, r *http.Request) {
	s.viewHandler(log.OpRead, func(r *http.Request, sess auth.Session, f core.Filter) (interface{}, error) {
		totals, err := s.ledger.MonthlyTotals(r.Context(), sess, f)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"totals": totals}, nil
	})(w, r)
}

func (s *Server) handleCompliance(w http.ResponseWriter, r *http.Request) {
	s.viewHandler(log.OpRead, func(r *http.Request, sess auth.Session, f core.Filter) (interface{}, error) {
		return s.ledger.Compliance(r.Context(), sess, f.Employee, f.Month)
	})(w, r)
}

func (s *Server) handleDailyCompliance(w http.ResponseWriter, r *http.Request) {
	s.viewHandler(log.OpRead, func(r *http.Request, sess auth.Session, f core.Filter) (interface{}, error) {
		days, err := s.ledger.DailyCompliance(r.Context(), sess, f)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"days": days}, nil
	})(w, r)
}

// handleControl is the category by status pivot used for follow-up.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	s.viewHandler(log.OpRead, func(r *http.Request, sess auth.Session, f core.Filter) (interface{}, error) {
		cells, err := s.ledger.StatusBreakdown(r.Context(), sess, f)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"breakdown": cells}, nil
	})(w, r)
}

func (s *Server) handleExportEntries(w http.ResponseWriter, r *http.Request) {
	s.exportCSV(w, r, "registros", func(r *http.Request, sess auth.Session, out io.Writer, f core.Filter) error {
		return s.ledger.ExportEntriesCSV(r.Context(), sess, out, f)
	})
}

func (s *Server) handleExportSummaries(w http.ResponseWriter, r *http.Request) {
	s.exportCSV(w, r, "resumen", func(r *http.Request, sess auth.Session, out io.Writer, f core.Filter) error {
		return s.ledger.ExportSummariesCSV(r.Context(), sess, out, f)
	})
}

// exportCSV renders into memory first so a failed export never sends a
// truncated file with a 200 status.
func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request, name string, export func(*http.Request, auth.Session, io.Writer, core.Filter) error) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, "export", err)
		return
	}
	ctx, cancel := withStoreTimeout(r)
	defer cancel()

	var buf strings.Builder
	if err := export(r.WithContext(ctx), s.session(r), &buf, f); err != nil {
		s.writeError(w, r, "export", err)
		return
	}

	suffix := time.Now().Format("20060102")
	if !f.Month.IsZero() {
		suffix = f.Month.String()
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_%s.csv"`, name, suffix))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, buf.String())
}
