package port

import (
	"context"
	"time"

	"reid-service/internal/core/domain"
)

// QueueListFilters narrows a queue page request.
type QueueListFilters struct {
	Status      domain.QueueStatus
	Domain      string
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
}

// QueueStoragePort is the store of URLs under active monitoring.
type QueueStoragePort interface {
	// FilterExisting returns the subset of urls already present in the
	// queue. Lookups are chunked internally to bound query size.
	FilterExisting(ctx context.Context, urls []string) (map[string]struct{}, error)

	// InsertChunked inserts the URLs in bounded chunks, one transaction
	// per chunk. A failed chunk is rolled back alone; the returned count
	// reflects only committed rows and errs collects per-chunk failures.
	InsertChunked(ctx context.Context, urls []string) (inserted int, errs []error)

	// PageByStatus returns up to limit entries with the given status
	// updated inside [from, to), with id > afterID, ordered by id.
	PageByStatus(ctx context.Context, status domain.QueueStatus, from, to time.Time, afterID int64, limit int) ([]domain.QueueEntry, error)

	// List returns a filtered page for the operational API.
	List(ctx context.Context, filters QueueListFilters, limit, offset int) ([]domain.QueueEntry, int64, error)

	// Stats returns per-status counts.
	Stats(ctx context.Context) (*domain.QueueStats, error)

	// UpdateStatusBulk sets the status of the given entries. Returns the
	// number of rows changed.
	UpdateStatusBulk(ctx context.Context, ids []int64, status domain.QueueStatus) (int, error)
}
