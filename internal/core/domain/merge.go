package domain

import "time"

// MergeRecord applies the field-merge policy of one incoming record onto the
// listing and reports whether anything changed.
//
// Policy, per field:
//   - availability goes through the state machine and counts as changed when
//     the resulting availability, sold date or site status differ;
//   - leasehold years is overridden whenever the new value differs, even by
//     a present-to-absent change (the latest crawl is authoritative there);
//   - every other allowed field is fill-if-missing or
//     override-if-both-present-and-different; a present value is never
//     overwritten with an empty one.
//
// Only the fields touched below are mutable through reconciliation; identity
// fields (URL, Source, ReidID) are never part of the merge. Tier is
// recomputed after any change and UpdatedAt is bumped.
func (l *CanonicalListing) MergeRecord(rec ScrapedRecord, now time.Time) bool {
	changed := l.ApplyAvailability(AvailabilitySignal{
		Label:    rec.AvailabilityLabel,
		Delisted: rec.Delisted,
		SoldAt:   rec.SoldAt,
	}, now)

	if rec.LeaseholdYears != nil || l.LeaseholdYears != nil {
		if !floatPtrEqual(l.LeaseholdYears, rec.LeaseholdYears) {
			l.LeaseholdYears = rec.LeaseholdYears
			changed = true
		}
	}

	if rec.Price > 0 && rec.Price != l.Price {
		l.Price = rec.Price
		changed = true
	}
	if rec.Currency != "" && rec.Currency != l.Currency {
		l.Currency = rec.Currency
		changed = true
	}

	changed = mergeString(&l.PropertyID, rec.PropertyID) || changed
	changed = mergeString(&l.ListedDate, rec.ListedDate) || changed
	changed = mergeString(&l.Title, rec.Title) || changed
	changed = mergeString(&l.Region, rec.Region) || changed
	changed = mergeString(&l.Location, rec.Location) || changed
	changed = mergeString(&l.ContractType, rec.ContractType) || changed
	changed = mergeString(&l.PropertyType, rec.PropertyType) || changed
	changed = mergeString(&l.LandZoning, rec.LandZoning) || changed
	changed = mergeString(&l.ImageURL, rec.ImageURL) || changed
	changed = mergeString(&l.Description, rec.Description) || changed

	changed = mergeFloat(&l.Bedrooms, rec.Bedrooms) || changed
	changed = mergeFloat(&l.Bathrooms, rec.Bathrooms) || changed
	changed = mergeFloat(&l.LandSize, rec.LandSize) || changed
	changed = mergeFloat(&l.BuildSize, rec.BuildSize) || changed
	changed = mergeFloat(&l.Latitude, rec.Latitude) || changed
	changed = mergeFloat(&l.Longitude, rec.Longitude) || changed

	changed = mergeBool(&l.IsOffPlan, rec.IsOffPlan) || changed

	if changed {
		l.ReclassifyTier()
		l.UpdatedAt = now
	}
	if !rec.ScrapedAt.IsZero() {
		l.ScrapedAt = rec.ScrapedAt
	}
	return changed
}

func mergeString(old **string, new *string) bool {
	if new == nil || *new == "" {
		return false
	}
	if *old == nil || **old != *new {
		*old = new
		return true
	}
	return false
}

func mergeFloat(old **float64, new *float64) bool {
	if new == nil {
		return false
	}
	if *old == nil || **old != *new {
		*old = new
		return true
	}
	return false
}

func mergeBool(old **bool, new *bool) bool {
	if new == nil {
		return false
	}
	if *old == nil || **old != *new {
		*old = new
		return true
	}
	return false
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
