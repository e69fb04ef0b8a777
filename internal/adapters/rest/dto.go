package rest

import (
	"encoding/json"
	"strings"
	"time"

	"reid-service/internal/core/domain"
)

// ReconcileRecordRequest is the wire shape of a normalized scraped record.
type ReconcileRecordRequest struct {
	URL          string     `json:"url"`
	Source       string     `json:"source"`
	ScrapedAt    *time.Time `json:"scraped_at,omitempty"`
	Availability string     `json:"availability"`
	Delisted     bool       `json:"delisted,omitempty"`
	SoldAt       *time.Time `json:"sold_at,omitempty"`

	Price    int64  `json:"price"`
	Currency string `json:"currency"`

	PropertyID     *string  `json:"property_id,omitempty"`
	ListedDate     *string  `json:"listed_date,omitempty"`
	Title          *string  `json:"title,omitempty"`
	Region         *string  `json:"region,omitempty"`
	Location       *string  `json:"location,omitempty"`
	ContractType   *string  `json:"contract_type,omitempty"`
	PropertyType   *string  `json:"property_type,omitempty"`
	LeaseholdYears *float64 `json:"leasehold_years,omitempty"`
	Bedrooms       *float64 `json:"bedrooms,omitempty"`
	Bathrooms      *float64 `json:"bathrooms,omitempty"`
	LandSize       *float64 `json:"land_size,omitempty"`
	BuildSize      *float64 `json:"build_size,omitempty"`
	LandZoning     *string  `json:"land_zoning,omitempty"`
	ImageURL       *string  `json:"image_url,omitempty"`
	Description    *string  `json:"description,omitempty"`
	IsOffPlan      *bool    `json:"is_off_plan,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
}

func (req ReconcileRecordRequest) ToDomain() domain.ScrapedRecord {
	rec := domain.ScrapedRecord{
		URL:               req.URL,
		Source:            req.Source,
		AvailabilityLabel: req.Availability,
		Delisted:          req.Delisted,
		SoldAt:            req.SoldAt,
		Price:             req.Price,
		Currency:          req.Currency,
		PropertyID:        req.PropertyID,
		ListedDate:        req.ListedDate,
		Title:             req.Title,
		Region:            req.Region,
		Location:          req.Location,
		ContractType:      req.ContractType,
		PropertyType:      req.PropertyType,
		LeaseholdYears:    req.LeaseholdYears,
		Bedrooms:          req.Bedrooms,
		Bathrooms:         req.Bathrooms,
		LandSize:          req.LandSize,
		BuildSize:         req.BuildSize,
		LandZoning:        req.LandZoning,
		ImageURL:          req.ImageURL,
		Description:       req.Description,
		IsOffPlan:         req.IsOffPlan,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
	}
	if req.ScrapedAt != nil {
		rec.ScrapedAt = *req.ScrapedAt
	}
	return rec
}

// ReconcileOutcomeResponse mirrors domain.ReconcileOutcome on the wire.
type ReconcileOutcomeResponse struct {
	Status  string `json:"status"`
	Changed bool   `json:"changed"`
	ReidID  string `json:"reid_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func toOutcomeResponse(outcome domain.ReconcileOutcome) ReconcileOutcomeResponse {
	return ReconcileOutcomeResponse{
		Status:  string(outcome.Status),
		Changed: outcome.Changed,
		ReidID:  outcome.ReidID,
		Reason:  outcome.Reason,
	}
}

// ExtractCandidates pulls the link and availability values out of arbitrary
// uploaded records using the caller-supplied field names. Field access by
// name happens only here, at the adapter boundary; the core works with typed
// candidates.
func ExtractCandidates(items []map[string]json.RawMessage, linkField, availabilityField string) []domain.URLCandidate {
	candidates := make([]domain.URLCandidate, 0, len(items))
	for _, item := range items {
		var c domain.URLCandidate

		if raw, ok := item[linkField]; ok {
			var link string
			if err := json.Unmarshal(raw, &link); err == nil {
				c.Link = link
			}
		}
		if raw, ok := item[availabilityField]; ok {
			c.Available = parseAvailabilityFlag(raw)
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// parseAvailabilityFlag accepts the flag shapes the scrapers actually send:
// a JSON boolean, or the strings "true"/"Available".
func parseAvailabilityFlag(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.EqualFold(s, "true") || s == string(domain.AvailabilityAvailable)
	}
	return false
}

// EnqueueResultResponse is the wire shape of an upload result.
type EnqueueResultResponse struct {
	ValidURLs      []string `json:"valid_urls"`
	NewURLs        []string `json:"new_urls"`
	InsertedCount  int      `json:"inserted_count"`
	TotalValid     int      `json:"total_valid"`
	AlreadyExisted int      `json:"already_existed"`
}

type SyncStatsResponse struct {
	Period          string         `json:"period"`
	ScannedEntries  int            `json:"scanned_entries"`
	UpdatedCount    int            `json:"updated_count"`
	UpdatedByStatus map[string]int `json:"updated_by_status"`
	FailedPages     int            `json:"failed_pages"`
}

type QueueEntryResponse struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type QueueListResponse struct {
	Items []QueueEntryResponse `json:"items"`
	Total int64                `json:"total"`
}

type QueueStatsResponse struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

type BulkStatusUpdateRequest struct {
	IDs    []int64 `json:"ids"`
	Status string  `json:"status"`
}

type ReconcileErrorResponse struct {
	URL       string    `json:"url"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
