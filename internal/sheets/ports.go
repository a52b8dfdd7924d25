package sheets

import (
	"context"

	"nomina/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter mirrors computed monthly summaries to an external sheet.
	// Each call replaces what was previously written for the years it covers.
	SummaryWriter interface {
		WriteSummaries(ctx context.Context, summaries []core.MonthlySummary) (ref string, err error)
	}
)
