package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScrapedRecord is a normalized record produced by one scrape of one URL.
// Optional fields are pointers; nil means the source did not provide a value,
// which the merge policy treats differently from an explicit empty value.
type ScrapedRecord struct {
	URL               string
	Source            string
	ScrapedAt         time.Time
	AvailabilityLabel string
	// Delisted is set upstream when a re-crawl found the listing
	// unreachable or redirected away from its canonical URL.
	Delisted bool
	// SoldAt is the explicit sold date, when the source supplies one.
	SoldAt *time.Time

	Price    int64
	Currency string

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
	ImageURL       *string
	Description    *string
	IsOffPlan      *bool

	Latitude  *float64
	Longitude *float64

	// RawCaptureID links the record back to the raw scrape payload so a
	// validation failure can discard it. Nil when ingestion was direct.
	RawCaptureID *uuid.UUID
}

// Validate checks the fields required before a first insert.
func (r ScrapedRecord) Validate() error {
	switch {
	case r.URL == "":
		return &ValidationError{Field: "url", Reason: "url is required"}
	case r.Source == "":
		return &ValidationError{Field: "source", Reason: "source is required"}
	case r.Price <= 0:
		return &ValidationError{Field: "price", Reason: "price must be positive"}
	case r.Currency == "":
		return &ValidationError{Field: "currency", Reason: "currency is required"}
	}
	return nil
}

// RawCapture is one captured scrape payload, append-only and not unique per
// URL. It is deleted only when the downstream merge fails validation.
type RawCapture struct {
	ID        uuid.UUID
	URL       string
	HTML      string
	JSON      []byte
	CreatedAt time.Time
}

// ReconcileError is the durable record of a rejected record, kept for manual
// or upstream re-scrape triage.
type ReconcileError struct {
	ID        uuid.UUID
	URL       string
	Reason    string
	CreatedAt time.Time
}

// ReconcileStatus is the outcome class of a single reconciliation.
type ReconcileStatus string

const (
	ReconcileInserted ReconcileStatus = "Inserted"
	ReconcileUpdated  ReconcileStatus = "Updated"
	ReconcileRejected ReconcileStatus = "Rejected"
)

// ReconcileOutcome reports what a reconcile call did.
type ReconcileOutcome struct {
	Status  ReconcileStatus
	Changed bool
	ReidID  string
	Reason  string
}
