package postgres

import (
	"context"
	"fmt"
	"time"

	"reid-service/internal/constants"
	"reid-service/internal/contextkeys"
	"reid-service/internal/core/domain"
	"reid-service/internal/core/port"

	"github.com/jackc/pgx/v5/pgxpool"
)

// QueueStorageAdapter implements QueueStoragePort on PostgreSQL.
type QueueStorageAdapter struct {
	pool            *pgxpool.Pool
	lookupChunkSize int
	insertChunkSize int
}

func NewQueueStorageAdapter(pool *pgxpool.Pool) (*QueueStorageAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &QueueStorageAdapter{
		pool:            pool,
		lookupChunkSize: constants.QueueLookupChunkSize,
		insertChunkSize: constants.QueueInsertChunkSize,
	}, nil
}

// FilterExisting checks which of the urls are already queued, in bounded
// chunks so the query parameter never grows with the upload size.
func (a *QueueStorageAdapter) FilterExisting(ctx context.Context, urls []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	for start := 0; start < len(urls); start += a.lookupChunkSize {
		end := min(start+a.lookupChunkSize, len(urls))

		rows, err := a.pool.Query(ctx,
			`SELECT url FROM queue WHERE url = ANY($1);`, urls[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to check existing queue urls: %w", err)
		}
		for rows.Next() {
			var url string
			if err := rows.Scan(&url); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan queue url: %w", err)
			}
			existing[url] = struct{}{}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return existing, nil
}

// InsertChunked inserts the urls one transaction per chunk. A failed chunk
// rolls back alone and later chunks still run; the count covers only
// committed rows.
func (a *QueueStorageAdapter) InsertChunked(ctx context.Context, urls []string) (int, []error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "QueueStorageAdapter",
		"method":    "InsertChunked",
	})

	inserted := 0
	var errs []error
	for start := 0; start < len(urls); start += a.insertChunkSize {
		end := min(start+a.insertChunkSize, len(urls))
		chunk := urls[start:end]

		n, err := a.insertChunk(ctx, chunk)
		if err != nil {
			errs = append(errs, &domain.TransientStoreError{Op: "queue insert chunk", Err: err})
			logger.Error("Queue insert chunk rolled back", err, port.Fields{
				"chunk_start": start,
				"chunk_size":  len(chunk),
			})
			continue
		}
		inserted += n
	}
	return inserted, errs
}

func (a *QueueStorageAdapter) insertChunk(ctx context.Context, chunk []string) (int, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// ON CONFLICT DO NOTHING tolerates a concurrent upload of the same URL
	// landing between the existence check and this insert.
	tag, err := tx.Exec(ctx, `
		INSERT INTO queue (url, status, created_at, updated_at)
		SELECT u, $1, NOW(), NOW() FROM unnest($2::text[]) AS u
		ON CONFLICT (url) DO NOTHING;`,
		domain.QueueStatusAvailable, chunk)
	if err != nil {
		return 0, fmt.Errorf("failed to insert queue chunk: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit queue chunk: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// PageByStatus reads one keyset page of entries with the given status whose
// updated_at falls inside [from, to).
func (a *QueueStorageAdapter) PageByStatus(ctx context.Context, status domain.QueueStatus, from, to time.Time, afterID int64, limit int) ([]domain.QueueEntry, error) {
	query := `
		SELECT id, url, status, created_at, updated_at
		FROM queue
		WHERE status = $1
		  AND updated_at >= $2 AND updated_at < $3
		  AND id > $4
		ORDER BY id
		LIMIT $5;`

	rows, err := a.pool.Query(ctx, query, status, from, to, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to page queue by status %s: %w", status, err)
	}
	defer rows.Close()

	var entries []domain.QueueEntry
	for rows.Next() {
		var e domain.QueueEntry
		if err := rows.Scan(&e.ID, &e.URL, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// List returns a filtered, offset-paged slice of the queue plus the total
// match count, for the operational API.
func (a *QueueStorageAdapter) List(ctx context.Context, filters port.QueueListFilters, limit, offset int) ([]domain.QueueEntry, int64, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Status != "" {
		where += ` AND status = ` + arg(filters.Status)
	}
	if filters.Domain != "" {
		where += ` AND url ILIKE ` + arg("%"+filters.Domain+"%")
	}
	if filters.UpdatedFrom != nil {
		where += ` AND updated_at >= ` + arg(*filters.UpdatedFrom)
	}
	if filters.UpdatedTo != nil {
		where += ` AND updated_at < ` + arg(*filters.UpdatedTo)
	}

	var total int64
	if err := a.pool.QueryRow(ctx, `SELECT COUNT(*) FROM queue`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count queue entries: %w", err)
	}

	query := `SELECT id, url, status, created_at, updated_at FROM queue` + where +
		` ORDER BY updated_at DESC, id DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)
	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list queue entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.QueueEntry
	for rows.Next() {
		var e domain.QueueEntry
		if err := rows.Scan(&e.ID, &e.URL, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (a *QueueStorageAdapter) Stats(ctx context.Context) (*domain.QueueStats, error) {
	rows, err := a.pool.Query(ctx, `SELECT status, COUNT(*) FROM queue GROUP BY status;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue stats: %w", err)
	}
	defer rows.Close()

	stats := &domain.QueueStats{ByStatus: map[domain.QueueStatus]int64{}}
	for rows.Next() {
		var status domain.QueueStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan queue stats: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (a *QueueStorageAdapter) UpdateStatusBulk(ctx context.Context, ids []int64, status domain.QueueStatus) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := a.pool.Exec(ctx, `
		UPDATE queue SET status = $1, updated_at = NOW()
		WHERE id = ANY($2) AND status <> $1;`,
		status, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update queue status: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
