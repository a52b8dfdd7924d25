package payroll

import (
	"context"
	"errors"
	"fmt"

	"nomina/internal/blob"
	"nomina/internal/log"
)

// DefaultSettingsPath is the settings document path used when none is configured.
const DefaultSettingsPath = "data/settings.yaml"

// SettingsStore keeps the Settings document in a blob.Store.
type SettingsStore struct {
	blobs  blob.Store
	path   string
	logger *log.Logger
}

func NewSettingsStore(blobs blob.Store, path string, logger *log.Logger) *SettingsStore {
	if path == "" {
		path = DefaultSettingsPath
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SettingsStore{blobs: blobs, path: path, logger: logger.WithComponent(log.ComponentSettings)}
}

func (s *SettingsStore) load(ctx context.Context) (Settings, string, error) {
	data, version, err := s.blobs.Get(ctx, s.path)
	if errors.Is(err, blob.ErrNotFound) {
		return DefaultSettings(), "", nil
	}
	if err != nil {
		return Settings{}, "", fmt.Errorf("read settings %s: %w", s.path, err)
	}
	settings, err := ParseSettings(data)
	if err != nil {
		return Settings{}, version, err
	}
	return settings, version, nil
}

// Current returns the settings snapshot for one request. Unreadable
// documents fall back to defaults with a warning.
func (s *SettingsStore) Current(ctx context.Context) Settings {
	settings, _, err := s.load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Settings unreadable, using defaults",
			log.FieldBlobPath, s.path,
			log.FieldError, err)
		return DefaultSettings()
	}
	return settings
}

// Save validates and replaces the whole settings document.
func (s *SettingsStore) Save(ctx context.Context, settings Settings) (Settings, error) {
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	_, version, err := s.load(ctx)
	if err != nil && !errors.Is(err, ErrInvalidSettings) {
		return Settings{}, err
	}
	return s.put(ctx, settings, version)
}

// ReplaceRates swaps the entire rate table in one versioned write. There is
// no partial update: categories missing from rates end up unpriced.
func (s *SettingsStore) ReplaceRates(ctx context.Context, rates RateTable) (Settings, error) {
	current, version, err := s.load(ctx)
	switch {
	case errors.Is(err, ErrInvalidSettings):
		current = DefaultSettings()
	case err != nil:
		return Settings{}, err
	}
	next := current.Clone()
	next.Rates = rates.Clone()
	if err := next.Validate(); err != nil {
		return Settings{}, err
	}
	return s.put(ctx, next, version)
}

func (s *SettingsStore) put(ctx context.Context, settings Settings, version string) (Settings, error) {
	data, err := EncodeSettings(settings)
	if err != nil {
		return Settings{}, fmt.Errorf("encode settings: %w", err)
	}
	newVersion, err := s.blobs.Put(ctx, s.path, data, version)
	if err != nil {
		return Settings{}, fmt.Errorf("write settings %s: %w", s.path, err)
	}
	s.logger.InfoContext(ctx, "Settings updated",
		log.NewFields().WithBlob(s.path, newVersion).WithOperation(log.OpUpdate).ToSlice()...)
	settings.Version = SettingsVersion
	return settings, nil
}
