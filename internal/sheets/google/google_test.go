package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"

	"nomina/internal/core"
	"nomina/internal/log"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, log.Discard())
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "sid"}, log.Discard())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentialsFile(t *testing.T) {
	cfg := Config{SpreadsheetID: "sid", ServiceAccountFile: "/does/not/exist.json"}
	_, err := New(context.Background(), cfg, log.Discard())
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Resumen", 2024, "2024 Resumen"},
		{"  Resumen  ", 2025, "2025 Resumen"},
		{"2023 Resumen", 2024, "2023 Resumen"},
		{"", 2024, ""},
		{"12345", 2024, "2024 12345"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestSummaryRows(t *testing.T) {
	rows := summaryRows([]core.MonthlySummary{{
		Employee:      "Ana",
		Month:         core.NewMonth(2024, time.May),
		CaseCount:     3,
		OvertimeHours: 1.5,
		Categories: []core.CategoryTotal{
			{Category: core.Variable, Measure: 1, Rate: 10000, Amount: 10000},
		},
		Total:         10000,
		PerfectStreak: true,
	}})

	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d", len(rows))
	}
	if len(rows[0]) != len(rows[1]) {
		t.Errorf("header has %d columns, row has %d", len(rows[0]), len(rows[1]))
	}
	row := rows[1]
	if row[0] != "2024-05" || row[1] != "Ana" || row[3] != 3 {
		t.Errorf("unexpected leading cells %v", row[:4])
	}
	for i, h := range rows[0] {
		switch h {
		case "Valor_Variable":
			if row[i] != float64(10000) {
				t.Errorf("Valor_Variable = %v", row[i])
			}
		case "Racha_Perfecta":
			if row[i] != "Si" {
				t.Errorf("Racha_Perfecta = %v", row[i])
			}
		}
	}
}

type sheetsRequest struct {
	method string
	path   string
	values [][]interface{}
}

func TestWriteSummaries(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []sheetsRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := sheetsRequest{method: r.Method, path: r.URL.Path}
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, ":clear") {
			mu.Lock()
			requests = append(requests, req)
			mu.Unlock()
			_, _ = w.Write([]byte(`{"spreadsheetId":"sid"}`))
			return
		}
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.values = body.Values
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"spreadsheetId":"sid","updatedRange":"range-` + r.Method + `"}`))
	}))
	defer srv.Close()

	client, err := New(context.Background(), Config{SpreadsheetID: "sid"}, log.Discard(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	summaries := []core.MonthlySummary{
		{Employee: "Ana", Month: core.NewMonth(2024, time.December), Total: 1},
		{Employee: "Ana", Month: core.NewMonth(2025, time.January), Total: 2},
		{Employee: "Luis", Month: core.NewMonth(2025, time.January), Total: 3},
	}
	ref, err := client.WriteSummaries(context.Background(), summaries)
	if err != nil {
		t.Fatalf("WriteSummaries: %v", err)
	}
	if ref != "range-PUT,range-PUT" {
		t.Errorf("ref = %q", ref)
	}

	if len(requests) != 4 {
		t.Fatalf("expected clear+update per year (4 requests), got %d", len(requests))
	}
	if !strings.Contains(requests[0].path, "2024 Resumen") || !strings.HasSuffix(requests[0].path, ":clear") {
		t.Errorf("first request should clear the 2024 sheet, got %s %s", requests[0].method, requests[0].path)
	}
	if requests[1].method != http.MethodPut || len(requests[1].values) != 2 {
		t.Errorf("2024 update: %s with %d rows", requests[1].method, len(requests[1].values))
	}
	if !strings.Contains(requests[3].path, "2025 Resumen") || len(requests[3].values) != 3 {
		t.Errorf("2025 update: %s with %d rows", requests[3].path, len(requests[3].values))
	}
	if requests[3].values[0][0] != "Mes" {
		t.Errorf("first row should be the header, got %v", requests[3].values[0])
	}
}

func TestWriteSummaries_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := New(context.Background(), Config{SpreadsheetID: "sid"}, log.Discard(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.WriteSummaries(context.Background(), []core.MonthlySummary{
		{Employee: "Ana", Month: core.NewMonth(2024, time.May)},
	})
	if err == nil || !strings.Contains(err.Error(), "clear") {
		t.Fatalf("expected clear error, got %v", err)
	}
}

func TestWriteSummaries_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "sid"}
	if _, err := c.WriteSummaries(context.Background(), nil); err == nil {
		t.Error("expected error without a service")
	}
}
