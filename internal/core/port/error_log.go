package port

import (
	"context"

	"reid-service/internal/core/domain"
)

// ReconcileErrorLogPort durably records rejected records keyed by URL.
type ReconcileErrorLogPort interface {
	Record(ctx context.Context, url, reason string) error

	// ClearForURL removes stale errors after the URL reconciles cleanly.
	ClearForURL(ctx context.Context, url string) error

	ListForURL(ctx context.Context, url string) ([]domain.ReconcileError, error)
}
