package usecases_port

import (
	"context"
	"time"

	"reid-service/internal/core/domain"
)

type SyncQueuePort interface {
	// Sync propagates queue statuses updated inside the calendar month of
	// period back into the canonical listings.
	Sync(ctx context.Context, period time.Time) (*domain.SyncStats, error)
}
