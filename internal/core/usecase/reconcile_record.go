package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reid-service/internal/contextkeys"
	"reid-service/internal/core/domain"
	"reid-service/internal/core/port"

	"github.com/google/uuid"
)

// ReconcileRecordUseCase converges one scraped record into the canonical
// listing store: first sight inserts with a fresh REID identity, a re-scrape
// merges field by field.
type ReconcileRecordUseCase struct {
	listings    port.ListingStoragePort
	rawCaptures port.RawCaptureStoragePort
	errorLog    port.ReconcileErrorLogPort
	reporter    port.OutcomeReporterPort
	now         func() time.Time
}

func NewReconcileRecordUseCase(
	listings port.ListingStoragePort,
	rawCaptures port.RawCaptureStoragePort,
	errorLog port.ReconcileErrorLogPort,
	reporter port.OutcomeReporterPort,
) *ReconcileRecordUseCase {
	return &ReconcileRecordUseCase{
		listings:    listings,
		rawCaptures: rawCaptures,
		errorLog:    errorLog,
		reporter:    reporter,
		now:         time.Now,
	}
}

func (uc *ReconcileRecordUseCase) Reconcile(ctx context.Context, record domain.ScrapedRecord) (domain.ReconcileOutcome, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "ReconcileRecord",
		"url":      record.URL,
		"source":   record.Source,
	})

	ucLogger.Debug("Use case started: reconciling record", nil)

	outcome, err := uc.reconcile(ctx, ucLogger, record)
	if err != nil {
		return outcome, err
	}

	if uc.reporter != nil {
		if repErr := uc.reporter.ReportOutcome(ctx, record.URL, outcome); repErr != nil {
			// The reconciliation itself committed; failing the call now
			// would re-run it on redelivery.
			ucLogger.Error("Failed to report reconcile outcome", repErr, nil)
		}
	}
	return outcome, nil
}

func (uc *ReconcileRecordUseCase) reconcile(ctx context.Context, logger port.LoggerPort, record domain.ScrapedRecord) (domain.ReconcileOutcome, error) {
	existing, err := uc.listings.GetByURL(ctx, record.URL)
	switch {
	case err == nil:
		return uc.merge(ctx, logger, existing, record)
	case errors.Is(err, domain.ErrNotFound):
		return uc.insert(ctx, logger, record)
	default:
		return domain.ReconcileOutcome{}, fmt.Errorf("failed to look up listing for %s: %w", record.URL, err)
	}
}

func (uc *ReconcileRecordUseCase) insert(ctx context.Context, logger port.LoggerPort, record domain.ScrapedRecord) (domain.ReconcileOutcome, error) {
	if err := record.Validate(); err != nil {
		return uc.reject(ctx, logger, record, err)
	}

	now := uc.now()
	listing := &domain.CanonicalListing{
		ID:        uuid.New(),
		URL:       record.URL,
		Source:    record.Source,
		ScrapedAt: record.ScrapedAt,
		CreatedAt: now,
		UpdatedAt: now,

		Price:    record.Price,
		Currency: record.Currency,

		PropertyID:     record.PropertyID,
		ListedDate:     record.ListedDate,
		Title:          record.Title,
		Region:         record.Region,
		Location:       record.Location,
		ContractType:   record.ContractType,
		PropertyType:   record.PropertyType,
		LeaseholdYears: record.LeaseholdYears,
		Bedrooms:       record.Bedrooms,
		Bathrooms:      record.Bathrooms,
		LandSize:       record.LandSize,
		BuildSize:      record.BuildSize,
		LandZoning:     record.LandZoning,
		ImageURL:       record.ImageURL,
		Description:    record.Description,
		IsOffPlan:      record.IsOffPlan,
		Latitude:       record.Latitude,
		Longitude:      record.Longitude,
	}
	if listing.ScrapedAt.IsZero() {
		listing.ScrapedAt = now
	}
	listing.ApplyAvailability(domain.AvailabilitySignal{
		Label:    record.AvailabilityLabel,
		Delisted: record.Delisted,
		SoldAt:   record.SoldAt,
	}, now)
	listing.ReclassifyTier()

	err := uc.listings.Insert(ctx, listing)

	var srcErr *domain.UnknownSourceError
	var conflict *domain.ConflictError
	switch {
	case err == nil:
		if clearErr := uc.errorLog.ClearForURL(ctx, record.URL); clearErr != nil {
			logger.Warn("Failed to clear stale reconcile errors", port.Fields{"error": clearErr.Error()})
		}
		logger.Info("Inserted new listing", port.Fields{"reid_id": listing.ReidID, "tier": listing.Tier})
		return domain.ReconcileOutcome{Status: domain.ReconcileInserted, Changed: true, ReidID: listing.ReidID}, nil
	case errors.As(err, &srcErr):
		return uc.reject(ctx, logger, record, err)
	case errors.As(err, &conflict):
		// Lost the first-sight race; the other writer's row is now the
		// canonical one. Reload and merge against it.
		logger.Debug("Insert conflicted, falling through to merge", nil)
		existing, loadErr := uc.listings.GetByURL(ctx, record.URL)
		if loadErr != nil {
			return domain.ReconcileOutcome{}, fmt.Errorf("failed to reload listing after conflict on %s: %w", record.URL, loadErr)
		}
		return uc.merge(ctx, logger, existing, record)
	default:
		return domain.ReconcileOutcome{}, fmt.Errorf("failed to insert listing for %s: %w", record.URL, err)
	}
}

// maxMergeAttempts bounds the re-merge loop when concurrent writers keep
// racing on the same URL.
const maxMergeAttempts = 3

func (uc *ReconcileRecordUseCase) merge(ctx context.Context, logger port.LoggerPort, existing *domain.CanonicalListing, record domain.ScrapedRecord) (domain.ReconcileOutcome, error) {
	for attempt := 1; ; attempt++ {
		// The update below is conditional on the row still carrying this
		// timestamp, so a concurrent commit cannot be silently overwritten.
		mergedAgainst := existing.UpdatedAt

		changed := existing.MergeRecord(record, uc.now())
		if !changed {
			logger.Debug("Record carried no new information", nil)
			return domain.ReconcileOutcome{Status: domain.ReconcileUpdated, Changed: false, ReidID: existing.ReidID}, nil
		}

		err := uc.listings.Update(ctx, existing, mergedAgainst)
		var conflict *domain.ConflictError
		switch {
		case err == nil:
			if clearErr := uc.errorLog.ClearForURL(ctx, record.URL); clearErr != nil {
				logger.Warn("Failed to clear stale reconcile errors", port.Fields{"error": clearErr.Error()})
			}
			logger.Info("Updated listing", port.Fields{
				"reid_id":      existing.ReidID,
				"availability": existing.Availability,
				"tier":         existing.Tier,
			})
			return domain.ReconcileOutcome{Status: domain.ReconcileUpdated, Changed: true, ReidID: existing.ReidID}, nil
		case errors.As(err, &conflict):
			if attempt >= maxMergeAttempts {
				return domain.ReconcileOutcome{}, fmt.Errorf("gave up updating %s after %d concurrent write conflicts: %w", record.URL, attempt, err)
			}
			logger.Debug("Concurrent write committed first, re-merging against latest state", port.Fields{"attempt": attempt})
			reloaded, loadErr := uc.listings.GetByURL(ctx, record.URL)
			if errors.Is(loadErr, domain.ErrNotFound) {
				return uc.insert(ctx, logger, record)
			}
			if loadErr != nil {
				return domain.ReconcileOutcome{}, fmt.Errorf("failed to reload listing after merge conflict on %s: %w", record.URL, loadErr)
			}
			existing = reloaded
		default:
			return domain.ReconcileOutcome{}, fmt.Errorf("failed to update listing %s: %w", existing.ReidID, err)
		}
	}
}

// reject handles non-retryable failures: the record is dropped, its raw
// capture discarded and the reason durably logged for triage.
func (uc *ReconcileRecordUseCase) reject(ctx context.Context, logger port.LoggerPort, record domain.ScrapedRecord, cause error) (domain.ReconcileOutcome, error) {
	logger.Warn("Rejecting record", port.Fields{"reason": cause.Error()})

	if record.RawCaptureID != nil {
		if delErr := uc.rawCaptures.Delete(ctx, *record.RawCaptureID); delErr != nil {
			logger.Error("Failed to discard raw capture of rejected record", delErr, port.Fields{
				"raw_capture_id": record.RawCaptureID.String(),
			})
		}
	}
	if logErr := uc.errorLog.Record(ctx, record.URL, cause.Error()); logErr != nil {
		logger.Error("Failed to durably record rejection", logErr, nil)
	}
	return domain.ReconcileOutcome{Status: domain.ReconcileRejected, Reason: cause.Error()}, nil
}
