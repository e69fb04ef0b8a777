package postgres

import (
	"context"
	"fmt"

	"reid-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrorLogAdapter implements ReconcileErrorLogPort on PostgreSQL.
type ErrorLogAdapter struct {
	pool *pgxpool.Pool
}

func NewErrorLogAdapter(pool *pgxpool.Pool) (*ErrorLogAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &ErrorLogAdapter{pool: pool}, nil
}

func (a *ErrorLogAdapter) Record(ctx context.Context, url, reason string) error {
	_, err := a.pool.Exec(ctx, `
		INSERT INTO reconcile_errors (id, url, reason, created_at)
		VALUES ($1, $2, $3, NOW());`,
		uuid.New(), url, reason)
	if err != nil {
		return fmt.Errorf("failed to record reconcile error: %w", err)
	}
	return nil
}

func (a *ErrorLogAdapter) ClearForURL(ctx context.Context, url string) error {
	_, err := a.pool.Exec(ctx, `DELETE FROM reconcile_errors WHERE url = $1;`, url)
	if err != nil {
		return fmt.Errorf("failed to clear reconcile errors for %s: %w", url, err)
	}
	return nil
}

func (a *ErrorLogAdapter) ListForURL(ctx context.Context, url string) ([]domain.ReconcileError, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT id, url, reason, created_at
		FROM reconcile_errors
		WHERE url = $1
		ORDER BY created_at DESC;`, url)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconcile errors for %s: %w", url, err)
	}
	defer rows.Close()

	var out []domain.ReconcileError
	for rows.Next() {
		var e domain.ReconcileError
		if err := rows.Scan(&e.ID, &e.URL, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reconcile error: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
