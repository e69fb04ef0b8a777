package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"reid-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedListing(listings *fakeListingStorage, url string, available bool) {
	l := &domain.CanonicalListing{
		URL:          url,
		Source:       "Bali Realty",
		Price:        100,
		Currency:     "USD",
		Availability: domain.AvailabilityAvailable,
		IsAvailable:  true,
	}
	if !available {
		l.ApplyAvailability(domain.AvailabilitySignal{Label: "Sold"}, time.Now())
	}
	listings.byURL[url] = l
}

func TestSync_DelistedQueueEntryFlipsListing(t *testing.T) {
	queue := newFakeQueueStorage()
	listings := newFakeListingStorage()
	period := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	queue.add("http://c.example/3", domain.QueueStatusDelisted, period.AddDate(0, 0, 10))
	seedListing(listings, "http://c.example/3", true)

	uc := NewSyncQueueUseCase(queue, listings)
	stats, err := uc.Sync(context.Background(), period)

	require.NoError(t, err)
	assert.Equal(t, "2025-08", stats.Period)
	assert.Equal(t, 1, stats.ScannedEntries)
	assert.Equal(t, 1, stats.UpdatedCount)
	assert.Equal(t, map[domain.QueueStatus]int{domain.QueueStatusDelisted: 1}, stats.UpdatedByStatus)

	l, err := listings.GetByURL(context.Background(), "http://c.example/3")
	require.NoError(t, err)
	assert.False(t, l.IsAvailable)
	assert.Equal(t, domain.AvailabilitySold, l.Availability)
	assert.Equal(t, domain.SiteStatusDelisted, l.SiteStatus)
	assert.NotNil(t, l.SoldAt)
}

func TestSync_AvailableQueueEntryRestoresListing(t *testing.T) {
	queue := newFakeQueueStorage()
	listings := newFakeListingStorage()
	period := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	queue.add("http://c.example/4", domain.QueueStatusAvailable, period.AddDate(0, 0, 3))
	seedListing(listings, "http://c.example/4", false)

	uc := NewSyncQueueUseCase(queue, listings)
	stats, err := uc.Sync(context.Background(), period)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.UpdatedCount)

	l, err := listings.GetByURL(context.Background(), "http://c.example/4")
	require.NoError(t, err)
	assert.True(t, l.IsAvailable)
	assert.Nil(t, l.SoldAt)
	assert.Equal(t, domain.SiteStatusNone, l.SiteStatus)
}

func TestSync_AlreadyConsistentListingUntouched(t *testing.T) {
	queue := newFakeQueueStorage()
	listings := newFakeListingStorage()
	period := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	queue.add("http://c.example/5", domain.QueueStatusDelisted, period.AddDate(0, 0, 1))
	seedListing(listings, "http://c.example/5", false)

	uc := NewSyncQueueUseCase(queue, listings)
	stats, err := uc.Sync(context.Background(), period)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.ScannedEntries)
	assert.Equal(t, 0, stats.UpdatedCount)
}

func TestSync_OutsidePeriodIgnored(t *testing.T) {
	queue := newFakeQueueStorage()
	listings := newFakeListingStorage()
	period := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	queue.add("http://c.example/6", domain.QueueStatusDelisted, period.AddDate(0, -1, 10))
	queue.add("http://c.example/7", domain.QueueStatusDelisted, period.AddDate(0, 1, 0))
	seedListing(listings, "http://c.example/6", true)
	seedListing(listings, "http://c.example/7", true)

	uc := NewSyncQueueUseCase(queue, listings)
	stats, err := uc.Sync(context.Background(), period)

	require.NoError(t, err)
	assert.Zero(t, stats.ScannedEntries)
	assert.Zero(t, stats.UpdatedCount)
}

func TestSync_SoldAndExcludedStatusesNotSynced(t *testing.T) {
	queue := newFakeQueueStorage()
	listings := newFakeListingStorage()
	period := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	queue.add("http://c.example/8", domain.QueueStatusSold, period.AddDate(0, 0, 2))
	queue.add("http://c.example/9", domain.QueueStatusExcluded, period.AddDate(0, 0, 2))
	seedListing(listings, "http://c.example/8", true)
	seedListing(listings, "http://c.example/9", true)

	uc := NewSyncQueueUseCase(queue, listings)
	stats, err := uc.Sync(context.Background(), period)

	require.NoError(t, err)
	assert.Zero(t, stats.UpdatedCount)
	l, _ := listings.GetByURL(context.Background(), "http://c.example/8")
	assert.True(t, l.IsAvailable)
}

func TestSync_FailedPageCountedAndJobContinues(t *testing.T) {
	queue := newFakeQueueStorage()
	listings := newFakeListingStorage()
	period := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	queue.add("http://c.example/10", domain.QueueStatusDelisted, period.AddDate(0, 0, 1))
	queue.add("http://c.example/11", domain.QueueStatusAvailable, period.AddDate(0, 0, 1))
	seedListing(listings, "http://c.example/10", true)
	seedListing(listings, "http://c.example/11", false)

	failedOnce := false
	listings.bulkBy = func(urls []string, available bool) (int, error) {
		if !available && !failedOnce {
			failedOnce = true
			return 0, errors.New("connection reset")
		}
		return 0, nil
	}

	uc := NewSyncQueueUseCase(queue, listings)
	stats, err := uc.Sync(context.Background(), period)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.FailedPages)
	// The Available page still ran.
	assert.Equal(t, 1, stats.UpdatedCount)
	l, _ := listings.GetByURL(context.Background(), "http://c.example/11")
	assert.True(t, l.IsAvailable)
}

func TestSync_ReportsUpdateCountsPerStatus(t *testing.T) {
	queue := newFakeQueueStorage()
	listings := newFakeListingStorage()
	period := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	queue.add("http://c.example/20", domain.QueueStatusDelisted, period.AddDate(0, 0, 1))
	queue.add("http://c.example/21", domain.QueueStatusError, period.AddDate(0, 0, 2))
	queue.add("http://c.example/22", domain.QueueStatusAvailable, period.AddDate(0, 0, 3))
	queue.add("http://c.example/23", domain.QueueStatusAvailable, period.AddDate(0, 0, 4))
	seedListing(listings, "http://c.example/20", true)
	seedListing(listings, "http://c.example/21", true)
	seedListing(listings, "http://c.example/22", false)
	// already available, scanned but not counted as updated
	seedListing(listings, "http://c.example/23", true)

	uc := NewSyncQueueUseCase(queue, listings)
	stats, err := uc.Sync(context.Background(), period)

	require.NoError(t, err)
	assert.Equal(t, 4, stats.ScannedEntries)
	assert.Equal(t, 3, stats.UpdatedCount)
	assert.Equal(t, map[domain.QueueStatus]int{
		domain.QueueStatusDelisted:  1,
		domain.QueueStatusError:     1,
		domain.QueueStatusAvailable: 1,
	}, stats.UpdatedByStatus)
}

func TestSync_PagesThroughLargeStatusSet(t *testing.T) {
	queue := newFakeQueueStorage()
	listings := newFakeListingStorage()
	period := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		url := queueURL(i)
		queue.add(url, domain.QueueStatusDelisted, period.AddDate(0, 0, i))
		seedListing(listings, url, true)
	}

	uc := NewSyncQueueUseCase(queue, listings)
	uc.pageSize = 3
	stats, err := uc.Sync(context.Background(), period)

	require.NoError(t, err)
	assert.Equal(t, 7, stats.ScannedEntries)
	assert.Equal(t, 7, stats.UpdatedCount)
}

func queueURL(i int) string {
	return "http://paged.example/" + string(rune('a'+i))
}
