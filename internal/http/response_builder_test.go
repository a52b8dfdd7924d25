package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nomina/internal/core"
)

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()
	month := core.NewMonth(2024, time.May)

	NewHTMXResponse().
		TriggerEntriesSubmitted(month, 3).
		TriggerFormReset().
		TriggerSummaryRefresh(month).
		TriggerSuccessNotification("Registro guardado").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}
	for _, part := range []string{
		`"entries:submitted"`,
		`"form:reset"`,
		`"summary:refresh"`,
		`"show-notification"`,
		`"month":"2024-05"`,
		`"count":3`,
		`"type":"success"`,
	} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Errorf("unexpected response %d %q", w.Code, w.Body.String())
	}
}

func TestHTMXResponseBuilder_EntriesDeleted(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerEntriesDeleted(2).
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"entries:deleted":{"count":2}`) {
		t.Errorf("Missing entries:deleted trigger: %s", trigger)
	}
}

func TestHTMXResponseBuilder_NoticeAndRefresh(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusCreated).
		Refresh().
		Notice(NotificationSuccess, "3 filas para Ana & Luis").
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Header().Get("HX-Refresh") != "true" {
		t.Error("HX-Refresh header not set")
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if got, want := w.Body.String(), `<div class="success">3 filas para Ana &amp; Luis</div>`; got != want {
		t.Errorf("Body = %q, want %q", got, want)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *HTMXResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation",
			builder:    ErrorResponse(http.StatusUnprocessableEntity, "Empleado requerido"),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `<div class="error">Empleado requerido</div>`,
		},
		{
			name:       "not found",
			builder:    NotFoundError("Página no encontrada"),
			wantStatus: http.StatusNotFound,
			wantBody:   `<div class="error">Página no encontrada</div>`,
		},
		{
			name:       "escapes markup",
			builder:    ErrorResponse(http.StatusBadRequest, "<script>alert('x')</script>"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `<div class="error">&lt;script&gt;alert(&#39;x&#39;)&lt;/script&gt;</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestMethodNotAllowedError(t *testing.T) {
	w := httptest.NewRecorder()

	MethodNotAllowedError("GET, PUT").Write(w)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
	if w.Header().Get("Allow") != "GET, PUT" {
		t.Errorf("Allow header = %q, want %q", w.Header().Get("Allow"), "GET, PUT")
	}
}

func TestErrorNotification(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusConflict, "conflicto").
		TriggerErrorNotification("conflicto").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"type":"error"`) || !strings.Contains(trigger, `"duration":5000`) {
		t.Errorf("unexpected trigger: %s", trigger)
	}
}
