package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(cfg)
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllow_WindowResets(t *testing.T) {
	rl, now := newTestLimiter(t, Config{RequestsPerMinute: 2})

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("third request in the window should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other clients have their own window")
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Error("a new window should allow the client again")
	}
	if got := rl.GetMetrics(); got.TotalHits != 1 || got.ClientCount != 2 {
		t.Errorf("metrics = %+v", got)
	}
}

func TestAllow_SteadyTrafficStillLimited(t *testing.T) {
	rl, now := newTestLimiter(t, Config{RequestsPerMinute: 3})

	allowed := 0
	for i := 0; i < 6; i++ {
		if rl.Allow("ip") {
			allowed++
		}
		*now = now.Add(5 * time.Second)
	}
	if allowed != 3 {
		t.Errorf("allowed %d requests in one window, want 3", allowed)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, Config{RequestsPerMinute: 5})
	rl.Allow("old")
	*now = now.Add(11 * time.Minute)
	rl.Allow("new")

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients = %d", rl.ActiveClients())
	}
}

func TestMiddleware_OnlyLimitsConfiguredMethods(t *testing.T) {
	rl, _ := newTestLimiter(t, Config{RequestsPerMinute: 1, Methods: []string{http.MethodPost}})
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodPost, http.StatusNoContent},
		{http.MethodPost, http.StatusTooManyRequests},
		{http.MethodGet, http.StatusNoContent},
		{http.MethodGet, http.StatusNoContent},
	}
	for i, tt := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tt.method, "/entries", nil))
		if rr.Code != tt.want {
			t.Errorf("request %d (%s): status %d, want %d", i, tt.method, rr.Code, tt.want)
		}
		if rr.Code == http.StatusTooManyRequests && rr.Header().Get("Retry-After") != "60" {
			t.Errorf("missing Retry-After header")
		}
	}
}
