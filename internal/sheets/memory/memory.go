package memory

import (
	"context"
	"fmt"
	"sync"

	"nomina/internal/core"
	ports "nomina/internal/sheets"
)

var _ ports.SummaryWriter = (*Store)(nil)

// Store keeps the last mirrored summaries in memory, for development and tests.
type Store struct {
	mu     sync.Mutex
	latest []core.MonthlySummary
	writes int
}

func New() *Store {
	return &Store{}
}

// WriteSummaries replaces the stored summaries and returns a synthetic reference.
func (s *Store) WriteSummaries(_ context.Context, summaries []core.MonthlySummary) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = append([]core.MonthlySummary(nil), summaries...)
	s.writes++
	return fmt.Sprintf("mem:%d", s.writes), nil
}

// Latest returns a copy of the last written summaries.
func (s *Store) Latest() []core.MonthlySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.MonthlySummary(nil), s.latest...)
}

// Writes returns how many times WriteSummaries was called.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
