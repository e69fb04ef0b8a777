package usecase

import (
	"context"
	"testing"
	"time"

	"reid-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string    { return &s }
func floatPtr(f float64) *float64 { return &f }

func newReconcileFixture() (*ReconcileRecordUseCase, *fakeListingStorage, *fakeRawCaptures, *fakeErrorLog, *fakeReporter) {
	listings := newFakeListingStorage()
	captures := &fakeRawCaptures{}
	errLog := newFakeErrorLog()
	reporter := &fakeReporter{}
	uc := NewReconcileRecordUseCase(listings, captures, errLog, reporter)
	return uc, listings, captures, errLog, reporter
}

func validRecord() domain.ScrapedRecord {
	return domain.ScrapedRecord{
		URL:               "http://a.example/1",
		Source:            "Bali Realty",
		AvailabilityLabel: "Available",
		Price:             200_000_000,
		Currency:          "IDR",
		PropertyType:      strPtr("Villa"),
	}
}

func TestReconcile_InsertsNewListing(t *testing.T) {
	uc, listings, _, _, reporter := newReconcileFixture()

	outcome, err := uc.Reconcile(context.Background(), validRecord())

	require.NoError(t, err)
	assert.Equal(t, domain.ReconcileInserted, outcome.Status)
	assert.True(t, outcome.Changed)
	assert.NotEmpty(t, outcome.ReidID)

	stored, err := listings.GetByURL(context.Background(), "http://a.example/1")
	require.NoError(t, err)
	assert.Equal(t, domain.TierStandard, stored.Tier)
	assert.Equal(t, domain.AvailabilityAvailable, stored.Availability)
	assert.True(t, stored.IsAvailable)
	assert.Nil(t, stored.SoldAt)
	require.Len(t, reporter.outcomes, 1)
}

func TestReconcile_SoldReScrapeInfersSoldAt(t *testing.T) {
	uc, listings, _, _, _ := newReconcileFixture()
	uc.now = func() time.Time { return time.Date(2025, time.September, 5, 12, 0, 0, 0, time.UTC) }

	_, err := uc.Reconcile(context.Background(), validRecord())
	require.NoError(t, err)

	rescrape := domain.ScrapedRecord{URL: "http://a.example/1", AvailabilityLabel: "Sold"}
	outcome, err := uc.Reconcile(context.Background(), rescrape)

	require.NoError(t, err)
	assert.Equal(t, domain.ReconcileUpdated, outcome.Status)
	assert.True(t, outcome.Changed)

	stored, err := listings.GetByURL(context.Background(), "http://a.example/1")
	require.NoError(t, err)
	assert.False(t, stored.IsAvailable)
	require.NotNil(t, stored.SoldAt)
	assert.Equal(t, time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), *stored.SoldAt)
	assert.Equal(t, domain.TierStandard, stored.Tier)
}

func TestReconcile_UnchangedRecordIsIdempotent(t *testing.T) {
	uc, _, _, _, _ := newReconcileFixture()

	rec := validRecord()
	_, err := uc.Reconcile(context.Background(), rec)
	require.NoError(t, err)

	outcome, err := uc.Reconcile(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, domain.ReconcileUpdated, outcome.Status)
	assert.False(t, outcome.Changed)
}

func TestReconcile_ValidationFailureRejectsAndLogs(t *testing.T) {
	uc, listings, captures, errLog, _ := newReconcileFixture()

	captureID := uuid.New()
	rec := validRecord()
	rec.Price = 0
	rec.RawCaptureID = &captureID

	outcome, err := uc.Reconcile(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, domain.ReconcileRejected, outcome.Status)
	assert.Contains(t, outcome.Reason, "price")

	_, err = listings.GetByURL(context.Background(), rec.URL)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, []uuid.UUID{captureID}, captures.deleted)

	logged, err := errLog.ListForURL(context.Background(), rec.URL)
	require.NoError(t, err)
	require.Len(t, logged, 1)
}

func TestReconcile_UnknownSourceRejects(t *testing.T) {
	uc, _, _, errLog, _ := newReconcileFixture()

	rec := validRecord()
	rec.Source = "Nobody Heard Of Us"

	outcome, err := uc.Reconcile(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, domain.ReconcileRejected, outcome.Status)
	logged, _ := errLog.ListForURL(context.Background(), rec.URL)
	assert.Len(t, logged, 1)
}

func TestReconcile_SuccessClearsStaleErrors(t *testing.T) {
	uc, _, _, errLog, _ := newReconcileFixture()
	require.NoError(t, errLog.Record(context.Background(), "http://a.example/1", "old failure"))

	_, err := uc.Reconcile(context.Background(), validRecord())
	require.NoError(t, err)

	logged, _ := errLog.ListForURL(context.Background(), "http://a.example/1")
	assert.Empty(t, logged)
}

func TestReconcile_ConflictFallsThroughToMerge(t *testing.T) {
	uc, listings, _, _, _ := newReconcileFixture()

	// Another worker wins the insert race between our lookup and insert.
	listings.insertBy = func(l *domain.CanonicalListing) error {
		listings.insertBy = nil
		rival := &domain.CanonicalListing{
			ID:           uuid.New(),
			ReidID:       "REID_25_08_BREL_001",
			URL:          l.URL,
			Source:       l.Source,
			Availability: domain.AvailabilityAvailable,
			IsAvailable:  true,
			Price:        200_000_000,
			Currency:     "IDR",
			PropertyType: strPtr("Villa"),
			Tier:         domain.TierStandard,
		}
		listings.byURL[rival.URL] = rival
		return &domain.ConflictError{URL: l.URL}
	}

	rec := validRecord()
	rec.Bedrooms = floatPtr(4)
	outcome, err := uc.Reconcile(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, domain.ReconcileUpdated, outcome.Status)
	assert.True(t, outcome.Changed)

	stored, err := listings.GetByURL(context.Background(), rec.URL)
	require.NoError(t, err)
	require.NotNil(t, stored.Bedrooms)
	assert.Equal(t, 4.0, *stored.Bedrooms)
	// Identity assigned by the winning insert survives.
	assert.Equal(t, outcome.ReidID, stored.ReidID)
}

func TestReconcile_ConcurrentMergeKeepsBothWrites(t *testing.T) {
	uc, listings, _, _, _ := newReconcileFixture()

	_, err := uc.Reconcile(context.Background(), validRecord())
	require.NoError(t, err)

	// Another worker commits a Bedrooms change between our read and write.
	// The stale full-row update must not erase it.
	listings.updateBy = func(l *domain.CanonicalListing) error {
		listings.updateBy = nil
		rival := listings.byURL[l.URL]
		rival.Bedrooms = floatPtr(3)
		rival.UpdatedAt = rival.UpdatedAt.Add(time.Minute)
		return nil
	}

	rescrape := domain.ScrapedRecord{
		URL:               "http://a.example/1",
		AvailabilityLabel: "Available",
		Location:          strPtr("Canggu"),
	}
	outcome, err := uc.Reconcile(context.Background(), rescrape)

	require.NoError(t, err)
	assert.Equal(t, domain.ReconcileUpdated, outcome.Status)
	assert.True(t, outcome.Changed)

	stored, err := listings.GetByURL(context.Background(), "http://a.example/1")
	require.NoError(t, err)
	require.NotNil(t, stored.Bedrooms)
	assert.Equal(t, 3.0, *stored.Bedrooms)
	require.NotNil(t, stored.Location)
	assert.Equal(t, "Canggu", *stored.Location)
}

func TestReconcile_MergeGivesUpAfterRepeatedConflicts(t *testing.T) {
	uc, listings, _, _, _ := newReconcileFixture()

	_, err := uc.Reconcile(context.Background(), validRecord())
	require.NoError(t, err)

	// A writer that always sneaks in first exhausts the re-merge budget.
	listings.updateBy = func(l *domain.CanonicalListing) error {
		rival := listings.byURL[l.URL]
		rival.UpdatedAt = rival.UpdatedAt.Add(time.Second)
		return nil
	}

	rescrape := domain.ScrapedRecord{
		URL:               "http://a.example/1",
		AvailabilityLabel: "Available",
		Location:          strPtr("Canggu"),
	}
	_, err = uc.Reconcile(context.Background(), rescrape)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrent write conflicts")
}

func TestReconcile_SequentialMergePolicy(t *testing.T) {
	uc, listings, _, _, _ := newReconcileFixture()

	first := validRecord()
	first.Location = strPtr("Canggu")
	first.LeaseholdYears = floatPtr(25)
	_, err := uc.Reconcile(context.Background(), first)
	require.NoError(t, err)

	second := domain.ScrapedRecord{
		URL:               first.URL,
		AvailabilityLabel: "Available",
		Location:          strPtr("Pererenan"),
		LeaseholdYears:    floatPtr(22),
		Price:             domain.LuxuryThresholdIDR,
		Currency:          "IDR",
	}
	outcome, err := uc.Reconcile(context.Background(), second)
	require.NoError(t, err)
	assert.True(t, outcome.Changed)

	stored, err := listings.GetByURL(context.Background(), first.URL)
	require.NoError(t, err)
	assert.Equal(t, "Pererenan", *stored.Location)
	assert.Equal(t, 22.0, *stored.LeaseholdYears)
	assert.Equal(t, domain.TierLuxury, stored.Tier)
}
