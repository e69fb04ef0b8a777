package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferredSoldAt(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"mid month",
			time.Date(2025, time.August, 17, 14, 30, 5, 0, time.UTC),
			time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"january rolls into previous year",
			time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"first of month",
			time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferredSoldAt(tt.now))
		})
	}
}

func TestApplyAvailability_SoldWithoutDate(t *testing.T) {
	now := time.Date(2025, time.August, 17, 10, 0, 0, 0, time.UTC)
	l := &CanonicalListing{Availability: AvailabilityAvailable, IsAvailable: true}

	changed := l.ApplyAvailability(AvailabilitySignal{Label: "Sold"}, now)

	assert.True(t, changed)
	assert.Equal(t, AvailabilitySold, l.Availability)
	assert.False(t, l.IsAvailable)
	require.NotNil(t, l.SoldAt)
	assert.Equal(t, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), *l.SoldAt)
	assert.Equal(t, SiteStatusNone, l.SiteStatus)
}

func TestApplyAvailability_SoldWithExplicitDate(t *testing.T) {
	now := time.Now()
	soldAt := time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC)
	l := &CanonicalListing{Availability: AvailabilityAvailable, IsAvailable: true}

	changed := l.ApplyAvailability(AvailabilitySignal{Label: "Sold", SoldAt: &soldAt}, now)

	assert.True(t, changed)
	require.NotNil(t, l.SoldAt)
	assert.Equal(t, soldAt, *l.SoldAt)
}

func TestApplyAvailability_UnknownLabelDegradesToSold(t *testing.T) {
	now := time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC)
	l := &CanonicalListing{Availability: AvailabilityAvailable, IsAvailable: true}

	changed := l.ApplyAvailability(AvailabilitySignal{Label: "under offer"}, now)

	assert.True(t, changed)
	assert.Equal(t, AvailabilitySold, l.Availability)
	assert.False(t, l.IsAvailable)
	require.NotNil(t, l.SoldAt)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), *l.SoldAt)
}

func TestApplyAvailability_Delisted(t *testing.T) {
	now := time.Now()
	l := &CanonicalListing{Availability: AvailabilityAvailable, IsAvailable: true}

	changed := l.ApplyAvailability(AvailabilitySignal{Label: "Available", Delisted: true}, now)

	assert.True(t, changed)
	assert.Equal(t, AvailabilitySold, l.Availability)
	assert.Equal(t, SiteStatusDelisted, l.SiteStatus)
	assert.NotNil(t, l.SoldAt)
}

func TestApplyAvailability_ReappearClearsEverything(t *testing.T) {
	soldAt := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	l := &CanonicalListing{
		Availability: AvailabilitySold,
		IsAvailable:  false,
		SoldAt:       &soldAt,
		SiteStatus:   SiteStatusDelisted,
	}

	changed := l.ApplyAvailability(AvailabilitySignal{Label: "Available"}, time.Now())

	assert.True(t, changed)
	assert.Equal(t, AvailabilityAvailable, l.Availability)
	assert.True(t, l.IsAvailable)
	assert.Nil(t, l.SoldAt)
	assert.Equal(t, SiteStatusNone, l.SiteStatus)
}

func TestApplyAvailability_RepeatedSoldKeepsSoldAt(t *testing.T) {
	soldAt := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	l := &CanonicalListing{
		Availability: AvailabilitySold,
		IsAvailable:  false,
		SoldAt:       &soldAt,
	}

	changed := l.ApplyAvailability(AvailabilitySignal{Label: "Sold"}, time.Now())

	assert.False(t, changed)
	require.NotNil(t, l.SoldAt)
	assert.Equal(t, soldAt, *l.SoldAt)
}

func TestApplyAvailability_RepeatedAvailableIsNoop(t *testing.T) {
	l := &CanonicalListing{Availability: AvailabilityAvailable, IsAvailable: true}

	changed := l.ApplyAvailability(AvailabilitySignal{Label: "Available"}, time.Now())

	assert.False(t, changed)
	assert.True(t, l.IsAvailable)
}
