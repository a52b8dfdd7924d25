package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"nomina/internal/blob"
	"nomina/internal/config"
	"nomina/internal/log"
)

func TestCreateBackend(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer api.Close()

	dir := t.TempDir()
	tests := []struct {
		name   string
		config Config
	}{
		{"memory", Config{Type: MemoryBackend}},
		{"file", Config{Type: FileBackend, DataDirectory: dir}},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "db", "nomina.db")}},
		{"contentapi", Config{Type: ContentAPIBackend, ContentAPIURL: api.URL, ContentAPITimeout: time.Second}},
	}

	factory := NewFactory(log.Discard())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			result, err := factory.CreateBackend(ctx, tt.config)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer result.Close()

			if err := result.Ping(ctx); err != nil {
				t.Errorf("Ping() error = %v", err)
			}
			if tt.name == "contentapi" {
				return
			}

			// Local stores must honour the version contract.
			version, err := result.Store.Put(ctx, "data/probe.csv", []byte("a"), "")
			if err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if _, err := result.Store.Put(ctx, "data/probe.csv", []byte("b"), ""); !errors.Is(err, blob.ErrVersionConflict) {
				t.Errorf("Put() over existing document error = %v, want conflict", err)
			}
			data, got, err := result.Store.Get(ctx, "data/probe.csv")
			if err != nil || string(data) != "a" || got != version {
				t.Errorf("Get() = %q, %q, %v", data, got, err)
			}
		})
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	factory := NewFactory(nil)
	for _, cfg := range []Config{
		{Type: "postgres"},
		{Type: SQLiteBackend},
		{Type: ContentAPIBackend},
	} {
		if _, err := factory.CreateBackend(context.Background(), cfg); err == nil {
			t.Errorf("CreateBackend(%+v) succeeded", cfg)
		}
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) succeeded")
	}

	app := &config.Config{DataBackend: "contentapi", ContentAPIURL: "https://example.com", ContentAPIBranch: "main"}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != ContentAPIBackend || cfg.ContentAPIURL != app.ContentAPIURL || cfg.ContentAPIBranch != "main" {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("FromAppConfig accepted an unknown backend")
	}
}

func TestBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != len(config.Backends) {
		t.Fatalf("GetBackendTypeStrings() = %v, config accepts %v", got, config.Backends)
	}
	for i := range got {
		if got[i] != config.Backends[i] {
			t.Errorf("backend %d = %q, config has %q", i, got[i], config.Backends[i])
		}
	}
}
