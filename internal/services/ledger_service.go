package services

import (
	"context"
	"fmt"
	"sort"

	"nomina/internal/auth"
	"nomina/internal/core"
	"nomina/internal/log"
	"nomina/internal/payroll"
	"nomina/internal/records"
)

// Event reasons published after ledger writes.
const (
	ReasonSubmitted = "submitted"
	ReasonDeleted   = "deleted"
	ReasonSettings  = "settings"
)

// EventPublisher announces that ledger data for some months changed.
type EventPublisher interface {
	PublishRecordsChanged(ctx context.Context, months []core.Month, reason string) error
}

// ComplianceReport is the quota view of one employee in one month.
type ComplianceReport struct {
	Employee        string     `json:"employee"`
	Month           core.Month `json:"month"`
	DailyQuota      int        `json:"daily_quota"`
	MonthlyQuota    int        `json:"monthly_quota"`
	QualifyingCount int        `json:"qualifying_count"`
	PerfectStreak   bool       `json:"perfect_streak"`
	MonthlyQuotaMet bool       `json:"monthly_quota_met"`
}

// LedgerService orchestrates the record store, the settings document and
// change notifications. Every call is checked against the caller's session.
type LedgerService struct {
	records  *records.Store
	settings *payroll.SettingsStore
	events   EventPublisher
	logger   *log.Logger
	audit    *log.StructuredLogger
}

func NewLedgerService(store *records.Store, settings *payroll.SettingsStore, events EventPublisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentLedger)
	return &LedgerService{
		records:  store,
		settings: settings,
		events:   events,
		logger:   logger,
		audit:    log.NewStructuredLogger(logger),
	}
}

// Submit turns a form submission into ledger rows and appends them in one write.
func (s *LedgerService) Submit(ctx context.Context, sess auth.Session, sub Submission) ([]int64, error) {
	if err := sess.Require(auth.ObjEntries, auth.ActWrite); err != nil {
		return nil, err
	}
	entries, err := sub.Entries()
	if err != nil {
		return nil, err
	}
	ids, err := s.records.Append(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("save submission: %w", err)
	}
	s.audit.LogSubmission(ctx, sub.Employee, ids)
	s.publish(ctx, monthsOf(entries), ReasonSubmitted)
	return ids, nil
}

// Delete tombstones entries by id and returns how many were removed.
func (s *LedgerService) Delete(ctx context.Context, sess auth.Session, ids []int64) (int, error) {
	if err := sess.Require(auth.ObjEntries, auth.ActDelete); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, core.NewValidationError("ids", "select at least one entry")
	}

	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var affected []core.Entry
	for _, e := range s.records.List(ctx) {
		if want[e.ID] {
			affected = append(affected, e)
		}
	}

	removed, err := s.records.Delete(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete entries: %w", err)
	}
	if removed > 0 {
		s.publish(ctx, monthsOf(affected), ReasonDeleted)
	}
	return removed, nil
}

// Entries lists live entries matching f, duplicates flagged.
func (s *LedgerService) Entries(ctx context.Context, sess auth.Session, f core.Filter) ([]core.Entry, error) {
	if err := sess.Require(auth.ObjEntries, auth.ActRead); err != nil {
		return nil, err
	}
	return filterEntries(s.records.List(ctx), f), nil
}

// Summaries computes the monthly summaries matching f.
func (s *LedgerService) Summaries(ctx context.Context, sess auth.Session, f core.Filter) ([]core.MonthlySummary, error) {
	if err := sess.Require(auth.ObjSummaries, auth.ActRead); err != nil {
		return nil, err
	}
	return s.Recompute(ctx, f), nil
}

// Recompute builds summaries without a session check, for internal
// consumers such as the mirror worker.
func (s *LedgerService) Recompute(ctx context.Context, f core.Filter) []core.MonthlySummary {
	return payroll.Summarize(s.records.List(ctx), s.settings.Current(ctx), f)
}

// MonthlyTotals returns the payout series over the summaries matching f.
func (s *LedgerService) MonthlyTotals(ctx context.Context, sess auth.Session, f core.Filter) ([]core.MonthTotal, error) {
	summaries, err := s.Summaries(ctx, sess, f)
	if err != nil {
		return nil, err
	}
	return payroll.MonthlyTotals(summaries), nil
}

// Compliance evaluates the daily streak and monthly quota for one employee.
func (s *LedgerService) Compliance(ctx context.Context, sess auth.Session, employee string, month core.Month) (ComplianceReport, error) {
	if err := sess.Require(auth.ObjCompliance, auth.ActRead); err != nil {
		return ComplianceReport{}, err
	}
	if employee == "" {
		return ComplianceReport{}, core.NewValidationError("employee", "is required")
	}
	if month.IsZero() {
		return ComplianceReport{}, core.NewValidationError("month", "is required")
	}

	settings := s.settings.Current(ctx)
	ev := payroll.NewEvaluator(settings)
	entries := s.records.List(ctx)
	summary := payroll.Summary(entries, settings, employee, month)
	return ComplianceReport{
		Employee:        employee,
		Month:           month,
		DailyQuota:      ev.DailyQuota,
		MonthlyQuota:    ev.MonthlyQuota,
		QualifyingCount: summary.QualifyingCount,
		PerfectStreak:   ev.PerfectStreak(entries, employee, month),
		MonthlyQuotaMet: ev.MonthlyQuotaMet(entries, employee, month),
	}, nil
}

// DailyCompliance returns the per-day qualifying counts matching f.
func (s *LedgerService) DailyCompliance(ctx context.Context, sess auth.Session, f core.Filter) ([]core.DailyResult, error) {
	if err := sess.Require(auth.ObjCompliance, auth.ActRead); err != nil {
		return nil, err
	}
	ev := payroll.NewEvaluator(s.settings.Current(ctx))
	return ev.DailyCompliance(s.records.List(ctx), f), nil
}

// StatusBreakdown pivots entries matching f by category and status.
func (s *LedgerService) StatusBreakdown(ctx context.Context, sess auth.Session, f core.Filter) ([]core.StatusCount, error) {
	if err := sess.Require(auth.ObjSummaries, auth.ActRead); err != nil {
		return nil, err
	}
	return payroll.StatusBreakdown(s.records.List(ctx), f), nil
}

// Settings returns the current settings snapshot.
func (s *LedgerService) Settings(ctx context.Context, sess auth.Session) (payroll.Settings, error) {
	if err := sess.Require(auth.ObjSettings, auth.ActRead); err != nil {
		return payroll.Settings{}, err
	}
	return s.settings.Current(ctx), nil
}

// FormOptions returns what the entry form needs. Anyone who may submit may read it.
func (s *LedgerService) FormOptions(ctx context.Context, sess auth.Session) (payroll.Settings, error) {
	if err := sess.Require(auth.ObjEntries, auth.ActWrite); err != nil {
		return payroll.Settings{}, err
	}
	return s.settings.Current(ctx), nil
}

// UpdateSettings replaces the settings document.
func (s *LedgerService) UpdateSettings(ctx context.Context, sess auth.Session, next payroll.Settings) (payroll.Settings, error) {
	if err := sess.Require(auth.ObjSettings, auth.ActWrite); err != nil {
		return payroll.Settings{}, err
	}
	saved, err := s.settings.Save(ctx, next)
	if err != nil {
		return payroll.Settings{}, err
	}
	s.publish(ctx, nil, ReasonSettings)
	return saved, nil
}

// ReplaceRates swaps the whole rate table.
func (s *LedgerService) ReplaceRates(ctx context.Context, sess auth.Session, rates payroll.RateTable) (payroll.Settings, error) {
	if err := sess.Require(auth.ObjSettings, auth.ActWrite); err != nil {
		return payroll.Settings{}, err
	}
	saved, err := s.settings.ReplaceRates(ctx, rates)
	if err != nil {
		return payroll.Settings{}, err
	}
	s.publish(ctx, nil, ReasonSettings)
	return saved, nil
}

// publish is best effort: the write already succeeded.
func (s *LedgerService) publish(ctx context.Context, months []core.Month, reason string) {
	if s.events == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping notification", log.FieldReason, reason)
		return
	}
	if err := s.events.PublishRecordsChanged(ctx, months, reason); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish records changed event",
			log.FieldReason, reason,
			log.FieldError, err,
			log.FieldOperation, log.OpPublish)
	}
}

func filterEntries(entries []core.Entry, f core.Filter) []core.Entry {
	out := make([]core.Entry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

func monthsOf(entries []core.Entry) []core.Month {
	seen := make(map[core.Month]bool)
	var months []core.Month
	for _, e := range entries {
		m := e.Month()
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}
