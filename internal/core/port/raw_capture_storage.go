package port

import (
	"context"

	"reid-service/internal/core/domain"

	"github.com/google/uuid"
)

// RawCaptureStoragePort is the append-only store of scrape payloads.
type RawCaptureStoragePort interface {
	Insert(ctx context.Context, capture *domain.RawCapture) error

	// Delete removes one capture. Used only when the downstream merge
	// rejected the record with a validation failure.
	Delete(ctx context.Context, id uuid.UUID) error
}
