package usecase

import (
	"context"
	"fmt"
	"time"

	"reid-service/internal/constants"
	"reid-service/internal/contextkeys"
	"reid-service/internal/core/domain"
	"reid-service/internal/core/port"
)

// SyncQueueUseCase propagates queue status changes of one calendar month back
// into the canonical listings. Pages are committed independently so an
// interrupted run keeps its completed work.
type SyncQueueUseCase struct {
	queue    port.QueueStoragePort
	listings port.ListingStoragePort
	pageSize int
}

// syncedStatuses lists the queue statuses a sync propagates, with the
// availability each one implies on the listing side. Error means the URL
// stayed unreachable across rechecks, the same signal that marks a listing
// delisted.
var syncedStatuses = []struct {
	status     domain.QueueStatus
	available  bool
	siteStatus domain.SiteStatus
}{
	{domain.QueueStatusDelisted, false, domain.SiteStatusDelisted},
	{domain.QueueStatusError, false, domain.SiteStatusDelisted},
	{domain.QueueStatusAvailable, true, domain.SiteStatusNone},
}

func NewSyncQueueUseCase(queue port.QueueStoragePort, listings port.ListingStoragePort) *SyncQueueUseCase {
	return &SyncQueueUseCase{
		queue:    queue,
		listings: listings,
		pageSize: constants.QueueSyncPageSize,
	}
}

func (uc *SyncQueueUseCase) Sync(ctx context.Context, period time.Time) (*domain.SyncStats, error) {
	from := time.Date(period.Year(), period.Month(), 1, 0, 0, 0, 0, period.Location())
	to := from.AddDate(0, 1, 0)

	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "SyncQueue",
		"period":   from.Format("2006-01"),
	})
	ucLogger.Info("Use case started: syncing queue statuses into listings", nil)

	stats := &domain.SyncStats{
		Period:          from.Format("2006-01"),
		UpdatedByStatus: make(map[domain.QueueStatus]int, len(syncedStatuses)),
	}

	for _, mapping := range syncedStatuses {
		if err := uc.syncStatus(ctx, ucLogger, mapping.status, mapping.available, mapping.siteStatus, from, to, stats); err != nil {
			return stats, err
		}
	}

	ucLogger.Info("Use case finished", port.Fields{
		"scanned":           stats.ScannedEntries,
		"updated":           stats.UpdatedCount,
		"updated_by_status": stats.UpdatedByStatus,
		"failed_pages":      stats.FailedPages,
	})
	return stats, nil
}

func (uc *SyncQueueUseCase) syncStatus(
	ctx context.Context,
	logger port.LoggerPort,
	status domain.QueueStatus,
	available bool,
	siteStatus domain.SiteStatus,
	from, to time.Time,
	stats *domain.SyncStats,
) error {
	statusLogger := logger.WithFields(port.Fields{"queue_status": status})

	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		entries, err := uc.queue.PageByStatus(ctx, status, from, to, afterID, uc.pageSize)
		if err != nil {
			return fmt.Errorf("failed to page queue entries with status %s: %w", status, err)
		}
		if len(entries) == 0 {
			return nil
		}
		afterID = entries[len(entries)-1].ID
		stats.ScannedEntries += len(entries)

		urls := make([]string, 0, len(entries))
		for _, e := range entries {
			urls = append(urls, e.URL)
		}

		updated, err := uc.listings.UpdateAvailabilityBulk(ctx, urls, available, siteStatus)
		if err != nil {
			// This page rolled back alone; later pages still run.
			stats.FailedPages++
			statusLogger.Error("Sync page failed, continuing with next page",
				&domain.TransientStoreError{Op: "sync page", Err: err},
				port.Fields{"after_id": afterID, "page_size": len(entries)})
			continue
		}
		stats.UpdatedCount += updated
		stats.UpdatedByStatus[status] += updated

		if len(entries) < uc.pageSize {
			return nil
		}
	}
}
