package domain

import (
	"time"

	"github.com/google/uuid"
)

// Availability is the canonical lifecycle state of a listing.
type Availability string

const (
	AvailabilityAvailable Availability = "Available"
	AvailabilitySold      Availability = "Sold"
)

// SiteStatus is an orthogonal tag distinguishing "confirmed sold" from
// "vanished from source". It can co-occur with Sold.
type SiteStatus string

const (
	SiteStatusNone     SiteStatus = ""
	SiteStatusDelisted SiteStatus = "Delisted"
)

// Tier is the coarse display classification derived from price, currency and
// property type.
type Tier string

const (
	TierStandard Tier = "Standard"
	TierLuxury   Tier = "Luxury"
	TierLand     Tier = "Land"
)

// CanonicalListing is the single converged row per unique URL.
//
// Invariants held after every write:
//  1. IsAvailable == (Availability == Available).
//  2. SoldAt is set iff Availability != Available.
//  3. ReidID is never reassigned once set.
//  4. Tier is consistent with the current Price/Currency/PropertyType.
type CanonicalListing struct {
	ID        uuid.UUID
	ReidID    string
	URL       string
	Source    string
	ScrapedAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time

	Availability Availability
	SiteStatus   SiteStatus
	IsAvailable  bool
	SoldAt       *time.Time
	Tier         Tier

	PropertyID     *string
	ListedDate     *string
	Title          *string
	Region         *string
	Location       *string
	ContractType   *string
	PropertyType   *string
	LeaseholdYears *float64
	Bedrooms       *float64
	Bathrooms      *float64
	LandSize       *float64
	BuildSize      *float64
	LandZoning     *string
	Price          int64
	Currency       string
	ImageURL       *string
	Description    *string
	IsOffPlan      *bool

	Latitude  *float64
	Longitude *float64
}
