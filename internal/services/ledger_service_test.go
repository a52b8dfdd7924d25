package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"nomina/internal/auth"
	"nomina/internal/blob/memory"
	"nomina/internal/core"
	"nomina/internal/log"
	"nomina/internal/payroll"
	"nomina/internal/records"
)

type recordedEvent struct {
	months []core.Month
	reason string
}

type fakePublisher struct {
	events []recordedEvent
	err    error
}

func (f *fakePublisher) PublishRecordsChanged(_ context.Context, months []core.Month, reason string) error {
	f.events = append(f.events, recordedEvent{months: months, reason: reason})
	return f.err
}

type fixture struct {
	svc      *LedgerService
	pub      *fakePublisher
	employee auth.Session
	admin    auth.Session
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	blobs := memory.NewStore()
	logger := log.Discard()
	pub := &fakePublisher{}
	svc := NewLedgerService(
		records.NewStore(blobs, "", logger),
		payroll.NewSettingsStore(blobs, "", logger),
		pub,
		logger,
	)

	authz, err := auth.NewAuthorizer("")
	if err != nil {
		t.Fatalf("NewAuthorizer: %v", err)
	}
	authn, err := auth.NewAuthenticator(auth.Config{Passphrase: "pw", Cost: bcrypt.MinCost}, authz, logger)
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	admin, err := authn.Login(context.Background(), "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return fixture{svc: svc, pub: pub, employee: authn.Employee(), admin: admin}
}

func sampleSubmission() Submission {
	return Submission{
		Date:              core.NewDate(2024, 5, 6),
		Employee:          "Ana",
		Area:              "Juridica",
		Leader:            "Luis",
		Status:            "Finalizado",
		ProductivityCases: "A1, A2 A2;A3",
		VariableCases:     "V1",
		AdditionalCases:   2,
		SaturdayCases:     1,
		OvertimeHours:     1.5,
	}
}

func TestParseCaseNumbers(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"  ", []string{}},
		{"123", []string{"123"}},
		{"1,2;3 4\n5\t6", []string{"1", "2", "3", "4", "5", "6"}},
		{"9, 8, 9 ,, 8;7", []string{"9", "8", "7"}},
	}
	for _, tc := range cases {
		if got := ParseCaseNumbers(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseCaseNumbers(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSubmissionEntries(t *testing.T) {
	entries, err := sampleSubmission().Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}

	counts := map[core.Category]int{}
	var hours float64
	for _, e := range entries {
		counts[e.Category]++
		if e.Category == core.HorasExtra {
			hours += e.Quantity
		} else if e.Quantity != 1 {
			t.Errorf("%s row has quantity %v, want 1", e.Category, e.Quantity)
		}
		if e.Employee != "Ana" || e.Leader != "Luis" || e.Status != "Finalizado" {
			t.Errorf("row lost form fields: %+v", e)
		}
	}
	want := map[core.Category]int{
		core.Productividad: 3,
		core.Variable:      1,
		core.Adicional:     2,
		core.Sabado:        1,
		core.HorasExtra:    1,
	}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("category counts = %v, want %v", counts, want)
	}
	if hours != 1.5 {
		t.Errorf("overtime hours = %v, want 1.5", hours)
	}
}

func TestSubmissionValidation(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Submission)
		field  string
	}{
		"blank employee": {func(s *Submission) { s.Employee = "  " }, "employee"},
		"no date":        {func(s *Submission) { s.Date = core.Date{} }, "date"},
		"negative additional": {
			func(s *Submission) { s.AdditionalCases = -1 }, "additional_cases",
		},
		"negative hours": {func(s *Submission) { s.OvertimeHours = -2 }, "overtime_hours"},
		"nothing to save": {
			func(s *Submission) { *s = Submission{Date: s.Date, Employee: s.Employee} }, "entries",
		},
		"huge additional count": {
			func(s *Submission) { s.AdditionalCases = 2_000_000_000 }, "entries",
		},
		"huge saturday count": {
			func(s *Submission) { s.SaturdayCases = math.MaxInt }, "entries",
		},
		"counts add up past the limit": {
			func(s *Submission) { s.AdditionalCases, s.SaturdayCases = 300, 300 }, "entries",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			sub := sampleSubmission()
			tc.mutate(&sub)
			_, err := sub.Entries()
			var verr *core.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("field = %q, want %q", verr.Field, tc.field)
			}
		})
	}
}

func TestSubmissionRowLimit(t *testing.T) {
	sub := Submission{Date: core.NewDate(2024, 5, 6), Employee: "Ana", AdditionalCases: maxRowsPerSubmission}
	entries, err := sub.Entries()
	if err != nil || len(entries) != maxRowsPerSubmission {
		t.Fatalf("Entries() at the limit = %d rows, %v", len(entries), err)
	}

	sub.OvertimeHours = 1
	if _, err := sub.Entries(); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("one row over the limit: expected validation error, got %v", err)
	}

	// Oversized counts are rejected before any row is built.
	sub = Submission{Date: core.NewDate(2024, 5, 6), Employee: "Ana", AdditionalCases: 3_000_000}
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	if _, err := sub.Entries(); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	runtime.ReadMemStats(&after)
	if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 1<<20 {
		t.Errorf("rejecting an oversized submission allocated %d bytes", allocated)
	}
}

func TestLedgerSubmitAndSummaries(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	ids, err := fx.svc.Submit(ctx, fx.employee, sampleSubmission())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(ids) != 8 || ids[0] != 1 || ids[7] != 8 {
		t.Fatalf("ids = %v", ids)
	}

	if len(fx.pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(fx.pub.events))
	}
	ev := fx.pub.events[0]
	if ev.reason != ReasonSubmitted || len(ev.months) != 1 || ev.months[0] != core.NewMonth(2024, time.May) {
		t.Errorf("unexpected event %+v", ev)
	}

	summaries, err := fx.svc.Summaries(ctx, fx.admin, core.Filter{})
	if err != nil {
		t.Fatalf("Summaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected one summary, got %d", len(summaries))
	}
	// Variable 1*10000 + Adicional 2*10000 + HorasExtra 1.5*8000; Productividad and Sabado unpriced.
	if got := summaries[0].Total; got != 42000 {
		t.Errorf("Total = %v, want 42000", got)
	}

	totals, err := fx.svc.MonthlyTotals(ctx, fx.admin, core.Filter{})
	if err != nil || len(totals) != 1 || totals[0].Total != 42000 {
		t.Errorf("MonthlyTotals = %v, %v", totals, err)
	}
}

func TestLedgerPermissions(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	if _, err := fx.svc.Entries(ctx, fx.employee, core.Filter{}); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("Entries: expected ErrForbidden, got %v", err)
	}
	if _, err := fx.svc.Summaries(ctx, fx.employee, core.Filter{}); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("Summaries: expected ErrForbidden, got %v", err)
	}
	if _, err := fx.svc.Delete(ctx, fx.employee, []int64{1}); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("Delete: expected ErrForbidden, got %v", err)
	}
	if _, err := fx.svc.ReplaceRates(ctx, fx.employee, payroll.DefaultRates()); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("ReplaceRates: expected ErrForbidden, got %v", err)
	}
	if err := fx.svc.ExportEntriesCSV(ctx, fx.employee, &bytes.Buffer{}, core.Filter{}); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("ExportEntriesCSV: expected ErrForbidden, got %v", err)
	}
	if _, err := fx.svc.FormOptions(ctx, fx.employee); err != nil {
		t.Errorf("FormOptions: %v", err)
	}
}

func TestLedgerDelete(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	if _, err := fx.svc.Submit(ctx, fx.employee, sampleSubmission()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	removed, err := fx.svc.Delete(ctx, fx.admin, []int64{1, 2, 99})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	entries, _ := fx.svc.Entries(ctx, fx.admin, core.Filter{})
	if len(entries) != 6 {
		t.Errorf("live entries = %d, want 6", len(entries))
	}
	if last := fx.pub.events[len(fx.pub.events)-1]; last.reason != ReasonDeleted {
		t.Errorf("last event reason = %q", last.reason)
	}

	events := len(fx.pub.events)
	if removed, err := fx.svc.Delete(ctx, fx.admin, []int64{1}); err != nil || removed != 0 {
		t.Errorf("repeat delete = %d, %v", removed, err)
	}
	if len(fx.pub.events) != events {
		t.Error("a no-op delete must not publish")
	}

	var verr *core.ValidationError
	if _, err := fx.svc.Delete(ctx, fx.admin, nil); !errors.As(err, &verr) {
		t.Errorf("empty delete: expected ValidationError, got %v", err)
	}
}

func TestLedgerPublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.pub.err = errors.New("broker down")

	if _, err := fx.svc.Submit(ctx, fx.employee, sampleSubmission()); err != nil {
		t.Fatalf("Submit should succeed when publishing fails: %v", err)
	}
	entries, _ := fx.svc.Entries(ctx, fx.admin, core.Filter{})
	if len(entries) != 8 {
		t.Errorf("live entries = %d, want 8", len(entries))
	}
}

func TestLedgerNilPublisher(t *testing.T) {
	blobs := memory.NewStore()
	svc := NewLedgerService(records.NewStore(blobs, "", nil), payroll.NewSettingsStore(blobs, "", nil), nil, log.Discard())
	authz, _ := auth.NewAuthorizer("")
	authn, _ := auth.NewAuthenticator(auth.Config{}, authz, log.Discard())
	if _, err := svc.Submit(context.Background(), authn.Employee(), sampleSubmission()); err != nil {
		t.Fatalf("Submit without publisher: %v", err)
	}
}

func TestLedgerCompliance(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	settings := payroll.DefaultSettings()
	settings.DailyQuota = 2
	settings.MonthlyQuota = 3
	if _, err := fx.svc.UpdateSettings(ctx, fx.admin, settings); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	for _, day := range []int{6, 7} {
		sub := Submission{Date: core.NewDate(2024, 5, day), Employee: "Ana", ProductivityCases: "1 2"}
		if _, err := fx.svc.Submit(ctx, fx.employee, sub); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	report, err := fx.svc.Compliance(ctx, fx.admin, "Ana", core.NewMonth(2024, time.May))
	if err != nil {
		t.Fatalf("Compliance: %v", err)
	}
	if !report.PerfectStreak || !report.MonthlyQuotaMet || report.QualifyingCount != 4 {
		t.Errorf("unexpected report %+v", report)
	}

	daily, err := fx.svc.DailyCompliance(ctx, fx.admin, core.Filter{Employee: "Ana"})
	if err != nil {
		t.Fatalf("DailyCompliance: %v", err)
	}
	if len(daily) != 2 || !daily[0].Met || !daily[1].Met {
		t.Errorf("daily = %+v", daily)
	}

	var verr *core.ValidationError
	if _, err := fx.svc.Compliance(ctx, fx.admin, "", core.NewMonth(2024, time.May)); !errors.As(err, &verr) {
		t.Errorf("missing employee: expected ValidationError, got %v", err)
	}
}

func TestLedgerReplaceRates(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	if _, err := fx.svc.Submit(ctx, fx.employee, sampleSubmission()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	saved, err := fx.svc.ReplaceRates(ctx, fx.admin, payroll.RateTable{core.Productividad: 1000})
	if err != nil {
		t.Fatalf("ReplaceRates: %v", err)
	}
	if saved.Rates.Rate(core.Adicional) != 0 {
		t.Error("replacing rates must drop categories not in the new table")
	}

	summaries, _ := fx.svc.Summaries(ctx, fx.admin, core.Filter{})
	if got := summaries[0].Total; got != 3000 {
		t.Errorf("Total = %v, want 3000", got)
	}
	if last := fx.pub.events[len(fx.pub.events)-1]; last.reason != ReasonSettings {
		t.Errorf("last event reason = %q", last.reason)
	}
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	if _, err := fx.svc.Submit(ctx, fx.employee, sampleSubmission()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	var buf bytes.Buffer
	if err := fx.svc.ExportEntriesCSV(ctx, fx.admin, &buf, core.Filter{}); err != nil {
		t.Fatalf("ExportEntriesCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(rows) != 9 || rows[0][0] != "ID" || rows[1][2] != "Ana" {
		t.Errorf("unexpected entries export: %v", rows)
	}

	buf.Reset()
	if err := fx.svc.ExportSummariesCSV(ctx, fx.admin, &buf, core.Filter{}); err != nil {
		t.Fatalf("ExportSummariesCSV: %v", err)
	}
	rows, err = csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d rows", len(rows))
	}
	header := strings.Join(rows[0], ",")
	if !strings.HasPrefix(header, "Mes,Empleado,Lider,") || !strings.Contains(header, "Total") {
		t.Errorf("header = %s", header)
	}
	if rows[1][0] != "2024-05" || rows[1][1] != "Ana" {
		t.Errorf("row = %v", rows[1])
	}
}
