package usecases_port

import (
	"context"

	"reid-service/internal/core/domain"
)

type EnqueueURLsPort interface {
	Enqueue(ctx context.Context, candidates []domain.URLCandidate) (*domain.EnqueueResult, error)
}
