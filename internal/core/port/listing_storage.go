package port

import (
	"context"
	"time"

	"reid-service/internal/core/domain"
)

// ListingStoragePort is the canonical store of converged listings.
type ListingStoragePort interface {
	// GetByURL returns the listing for a URL or domain.ErrNotFound.
	GetByURL(ctx context.Context, url string) (*domain.CanonicalListing, error)

	// Insert writes a brand-new listing, assigning its REID identity inside
	// the same transaction. Returns domain.ConflictError when the URL
	// already exists (concurrent first sight) and domain.UnknownSourceError
	// when no REID code is registered for the listing's source.
	Insert(ctx context.Context, listing *domain.CanonicalListing) error

	// Update persists the mutable fields of an existing listing, but only
	// when the stored row still carries expectedUpdatedAt. A concurrent
	// writer having committed in between returns domain.ConflictError so the
	// caller can re-load and re-merge instead of erasing that write.
	Update(ctx context.Context, listing *domain.CanonicalListing, expectedUpdatedAt time.Time) error

	// UpdateAvailabilityBulk flips listings for the given URLs to the
	// expected availability, touching only rows whose is_available
	// currently differs. Returns the number of rows changed.
	UpdateAvailabilityBulk(ctx context.Context, urls []string, available bool, siteStatus domain.SiteStatus) (int, error)
}
