package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reid-service/internal/contextkeys"
	"reid-service/internal/core/domain"
	"reid-service/internal/core/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mmcloughlin/geohash"
)

const uniqueViolationCode = "23505"

// geohashPrecision of 7 resolves to roughly 150m, enough to group listings
// by neighbourhood without leaking exact coordinates.
const geohashPrecision = 7

// ListingStorageAdapter implements ListingStoragePort on PostgreSQL.
type ListingStorageAdapter struct {
	pool        *pgxpool.Pool
	sourceCodes map[string]string
	now         func() time.Time
}

func NewListingStorageAdapter(pool *pgxpool.Pool, sourceCodes map[string]string) (*ListingStorageAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	if len(sourceCodes) == 0 {
		return nil, fmt.Errorf("source code table cannot be empty")
	}
	return &ListingStorageAdapter{
		pool:        pool,
		sourceCodes: sourceCodes,
		now:         time.Now,
	}, nil
}

const listingColumns = `
	id, reid_id, url, source, scraped_at, created_at, updated_at,
	availability, site_status, is_available, sold_at, tier,
	property_id, listed_date, title, region, location, contract_type,
	property_type, leasehold_years, bedrooms, bathrooms, land_size,
	build_size, land_zoning, price, currency, image_url, description,
	is_off_plan, latitude, longitude`

func scanListing(row pgx.Row) (*domain.CanonicalListing, error) {
	var l domain.CanonicalListing
	err := row.Scan(
		&l.ID, &l.ReidID, &l.URL, &l.Source, &l.ScrapedAt, &l.CreatedAt, &l.UpdatedAt,
		&l.Availability, &l.SiteStatus, &l.IsAvailable, &l.SoldAt, &l.Tier,
		&l.PropertyID, &l.ListedDate, &l.Title, &l.Region, &l.Location, &l.ContractType,
		&l.PropertyType, &l.LeaseholdYears, &l.Bedrooms, &l.Bathrooms, &l.LandSize,
		&l.BuildSize, &l.LandZoning, &l.Price, &l.Currency, &l.ImageURL, &l.Description,
		&l.IsOffPlan, &l.Latitude, &l.Longitude,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (a *ListingStorageAdapter) GetByURL(ctx context.Context, url string) (*domain.CanonicalListing, error) {
	query := `SELECT ` + listingColumns + ` FROM listing WHERE url = $1;`

	listing, err := scanListing(a.pool.QueryRow(ctx, query, url))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query listing by url: %w", err)
	}
	return listing, nil
}

// Insert writes a new listing and assigns its REID identity in the same
// transaction. The sequence scan for a (source, year, month) prefix is
// serialized with an advisory lock on the prefix so two concurrent first
// sights cannot pick the same number; the unique index on reid_id backstops
// the lock.
func (a *ListingStorageAdapter) Insert(ctx context.Context, listing *domain.CanonicalListing) error {
	code, ok := a.sourceCodes[listing.Source]
	if !ok {
		return &domain.UnknownSourceError{Source: listing.Source}
	}
	prefix := domain.ReidPrefix(code, a.now())

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1));`, prefix); err != nil {
		return fmt.Errorf("failed to take identity lock for %s: %w", prefix, err)
	}

	var lastSeq int
	seqQuery := `
		SELECT COALESCE(MAX(split_part(reid_id, '_', 5)::int), 0)
		FROM listing
		WHERE reid_id LIKE $1 || '\_%';`
	if err := tx.QueryRow(ctx, seqQuery, prefix).Scan(&lastSeq); err != nil {
		return fmt.Errorf("failed to read last sequence for %s: %w", prefix, err)
	}
	listing.ReidID = domain.FormatReidID(prefix, lastSeq+1)

	insertQuery := `
		INSERT INTO listing (` + listingColumns + `, geohash)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23,
			$24, $25, $26, $27, $28, $29,
			$30, $31, $32, $33
		);`
	_, err = tx.Exec(ctx, insertQuery,
		listing.ID, listing.ReidID, listing.URL, listing.Source, listing.ScrapedAt, listing.CreatedAt, listing.UpdatedAt,
		listing.Availability, listing.SiteStatus, listing.IsAvailable, listing.SoldAt, listing.Tier,
		listing.PropertyID, listing.ListedDate, listing.Title, listing.Region, listing.Location, listing.ContractType,
		listing.PropertyType, listing.LeaseholdYears, listing.Bedrooms, listing.Bathrooms, listing.LandSize,
		listing.BuildSize, listing.LandZoning, listing.Price, listing.Currency, listing.ImageURL, listing.Description,
		listing.IsOffPlan, listing.Latitude, listing.Longitude, listingGeohash(listing),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return &domain.ConflictError{URL: listing.URL}
		}
		return fmt.Errorf("failed to insert listing: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit listing insert: %w", err)
	}
	return nil
}

// Update persists the mutable fields through an explicit column map; the
// identity columns (id, reid_id, url, source, created_at) are never touched.
// The updated_at guard makes the write conditional on the row still being in
// the state the caller merged against: a concurrent writer having bumped it
// affects zero rows, reported as ConflictError for a re-load and re-merge.
func (a *ListingStorageAdapter) Update(ctx context.Context, listing *domain.CanonicalListing, expectedUpdatedAt time.Time) error {
	query := `
		UPDATE listing SET
			scraped_at = $1, updated_at = $2,
			availability = $3, site_status = $4, is_available = $5, sold_at = $6, tier = $7,
			property_id = $8, listed_date = $9, title = $10, region = $11, location = $12,
			contract_type = $13, property_type = $14, leasehold_years = $15,
			bedrooms = $16, bathrooms = $17, land_size = $18, build_size = $19,
			land_zoning = $20, price = $21, currency = $22, image_url = $23,
			description = $24, is_off_plan = $25, latitude = $26, longitude = $27,
			geohash = $28
		WHERE url = $29 AND updated_at = $30;`

	tag, err := a.pool.Exec(ctx, query,
		listing.ScrapedAt, listing.UpdatedAt,
		listing.Availability, listing.SiteStatus, listing.IsAvailable, listing.SoldAt, listing.Tier,
		listing.PropertyID, listing.ListedDate, listing.Title, listing.Region, listing.Location,
		listing.ContractType, listing.PropertyType, listing.LeaseholdYears,
		listing.Bedrooms, listing.Bathrooms, listing.LandSize, listing.BuildSize,
		listing.LandZoning, listing.Price, listing.Currency, listing.ImageURL,
		listing.Description, listing.IsOffPlan, listing.Latitude, listing.Longitude,
		listingGeohash(listing),
		listing.URL, expectedUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update listing %s: %w", listing.ReidID, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ConflictError{URL: listing.URL}
	}
	return nil
}

// UpdateAvailabilityBulk flips listings whose is_available disagrees with the
// expected value, preserving an already-known sold_at when marking unavailable.
func (a *ListingStorageAdapter) UpdateAvailabilityBulk(ctx context.Context, urls []string, available bool, siteStatus domain.SiteStatus) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "ListingStorageAdapter",
		"method":    "UpdateAvailabilityBulk",
		"url_count": len(urls),
	})

	var tag pgconn.CommandTag
	var err error
	if available {
		query := `
			UPDATE listing SET
				availability = $1, is_available = TRUE, sold_at = NULL,
				site_status = $2, updated_at = $3
			WHERE url = ANY($4) AND is_available = FALSE;`
		tag, err = a.pool.Exec(ctx, query,
			domain.AvailabilityAvailable, domain.SiteStatusNone, a.now(), urls)
	} else {
		query := `
			UPDATE listing SET
				availability = $1, is_available = FALSE,
				sold_at = COALESCE(sold_at, $2),
				site_status = $3, updated_at = $4
			WHERE url = ANY($5) AND is_available = TRUE;`
		tag, err = a.pool.Exec(ctx, query,
			domain.AvailabilitySold, domain.InferredSoldAt(a.now()), siteStatus, a.now(), urls)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update availability: %w", err)
	}

	changed := int(tag.RowsAffected())
	logger.Debug("Bulk availability update applied", port.Fields{"changed": changed})
	return changed, nil
}

func listingGeohash(listing *domain.CanonicalListing) *string {
	if listing.Latitude == nil || listing.Longitude == nil {
		return nil
	}
	gh := geohash.EncodeWithPrecision(*listing.Latitude, *listing.Longitude, geohashPrecision)
	return &gh
}
