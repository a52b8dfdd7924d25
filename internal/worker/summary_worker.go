package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nomina/internal/amqp"
	"nomina/internal/core"
	"nomina/internal/log"
	"nomina/internal/sheets"
)

// SummarySource recomputes monthly summaries from the ledger.
type SummarySource interface {
	Recompute(ctx context.Context, f core.Filter) []core.MonthlySummary
}

// SummaryWorker mirrors the computed summaries to an external sheet each
// time the ledger changes.
type SummaryWorker struct {
	source SummarySource
	writer sheets.SummaryWriter
	logger *log.Logger

	// mu serializes syncs so two events never interleave their writes.
	mu       sync.Mutex
	lastSync time.Time
}

func NewSummaryWorker(source SummarySource, writer sheets.SummaryWriter, logger *log.Logger) *SummaryWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SummaryWorker{
		source: source,
		writer: writer,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleRecordsChanged processes one records-changed message from AMQP.
func (w *SummaryWorker) HandleRecordsChanged(ctx context.Context, msg *amqp.RecordsChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing records changed message",
		log.FieldReason, msg.Reason,
		"months", len(msg.Months),
		"published_at", msg.Timestamp)
	return w.Sync(ctx, msg.Reason)
}

// StartupSync mirrors the current state once, covering events missed while
// the worker was down.
func (w *SummaryWorker) StartupSync(ctx context.Context) error {
	return w.Sync(ctx, "startup")
}

// Sync recomputes every summary and writes them out. The sheet always holds
// a full recomputation, so a lost event is repaired by the next one.
func (w *SummaryWorker) Sync(ctx context.Context, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	summaries := w.source.Recompute(ctx, core.Filter{})
	ref, err := w.writer.WriteSummaries(ctx, summaries)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to mirror summaries",
			log.FieldReason, reason,
			log.FieldError, err,
			log.FieldOperation, log.OpSync)
		return fmt.Errorf("write summaries: %w", err)
	}
	w.lastSync = time.Now()

	w.logger.InfoContext(ctx, "Summaries mirrored",
		log.FieldReason, reason,
		"summaries", len(summaries),
		"ref", ref,
		log.FieldDuration, time.Since(start).Milliseconds(),
		log.FieldOperation, log.OpSync)
	return nil
}

// LastSync returns when the last successful sync finished.
func (w *SummaryWorker) LastSync() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync
}
