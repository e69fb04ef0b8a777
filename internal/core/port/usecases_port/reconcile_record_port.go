package usecases_port

import (
	"context"

	"reid-service/internal/core/domain"
)

type ReconcileRecordPort interface {
	Reconcile(ctx context.Context, record domain.ScrapedRecord) (domain.ReconcileOutcome, error)
}
