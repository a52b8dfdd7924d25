// Package scheduler runs the periodic ledger jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"nomina/internal/core"
	"nomina/internal/log"
)

// DefaultMonthlyCloseSpec fires at 06:00 on the first day of each month.
const DefaultMonthlyCloseSpec = "0 6 1 * *"

// ReasonMonthlyClose marks the event published when a month closes.
const ReasonMonthlyClose = "monthly_close"

const jobTimeout = 2 * time.Minute

// Publisher announces ledger changes.
type Publisher interface {
	PublishRecordsChanged(ctx context.Context, months []core.Month, reason string) error
}

// Scheduler publishes a monthly-close event so consumers finalize the month
// that just ended.
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time
}

func New(spec string, publisher Publisher, logger *log.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultMonthlyCloseSpec
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Scheduler{
		cron:      cron.New(),
		spec:      spec,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentScheduler),
		now:       time.Now,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runMonthlyClose); err != nil {
		return fmt.Errorf("schedule monthly close %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", "monthly_close_spec", s.spec)
	return nil
}

// Run starts the scheduler and blocks until ctx ends, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop stops the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

// CloseMonth publishes the monthly-close event for the month before now.
func (s *Scheduler) CloseMonth(ctx context.Context) error {
	closed := core.Date{Time: s.now()}.MonthOf().FirstDay().AddDays(-1).MonthOf()
	if err := s.publisher.PublishRecordsChanged(ctx, []core.Month{closed}, ReasonMonthlyClose); err != nil {
		return fmt.Errorf("publish monthly close %s: %w", closed, err)
	}
	s.logger.InfoContext(ctx, "Month closed", log.FieldMonth, closed.String(), log.FieldOperation, log.OpClose)
	return nil
}

func (s *Scheduler) runMonthlyClose() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := s.CloseMonth(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Monthly close failed", log.FieldError, err, log.FieldOperation, log.OpClose)
	}
}
