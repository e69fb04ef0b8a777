package port

import (
	"context"

	"reid-service/internal/core/domain"
)

// OutcomeReporterPort publishes reconcile outcomes for downstream consumers
// (notification service, scrapers adjusting their schedules).
type OutcomeReporterPort interface {
	ReportOutcome(ctx context.Context, url string, outcome domain.ReconcileOutcome) error
}
