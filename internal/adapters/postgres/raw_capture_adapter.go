package postgres

import (
	"context"
	"fmt"

	"reid-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RawCaptureAdapter implements RawCaptureStoragePort on PostgreSQL.
type RawCaptureAdapter struct {
	pool *pgxpool.Pool
}

func NewRawCaptureAdapter(pool *pgxpool.Pool) (*RawCaptureAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &RawCaptureAdapter{pool: pool}, nil
}

func (a *RawCaptureAdapter) Insert(ctx context.Context, capture *domain.RawCapture) error {
	_, err := a.pool.Exec(ctx, `
		INSERT INTO raw_data (id, url, html, json, created_at)
		VALUES ($1, $2, $3, $4, $5);`,
		capture.ID, capture.URL, capture.HTML, capture.JSON, capture.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert raw capture: %w", err)
	}
	return nil
}

func (a *RawCaptureAdapter) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := a.pool.Exec(ctx, `DELETE FROM raw_data WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete raw capture %s: %w", id, err)
	}
	return nil
}
