package domain

import "time"

// AvailabilitySignal is the availability part of an incoming record, as fed
// to the state machine.
type AvailabilitySignal struct {
	Label    string
	Delisted bool
	SoldAt   *time.Time
}

// InferredSoldAt returns the first day of the calendar month before now,
// at midnight in now's location. Used when a source reports a listing gone
// without an explicit sold date; the listing was last seen available during
// the previous month at best.
func InferredSoldAt(now time.Time) time.Time {
	year, month := now.Year(), now.Month()
	if month == time.January {
		year, month = year-1, time.December
	} else {
		month--
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
}

// ApplyAvailability runs one state machine transition on the listing and
// reports whether availability, sold date or site status changed.
//
// Any label other than "Available" marks the listing Sold; a label outside
// the known vocabulary degrades softly to the same path. A delisted signal
// additionally tags the listing with SiteStatusDelisted. Every transition is
// reversible: a later Available label clears both SoldAt and the tag.
func (l *CanonicalListing) ApplyAvailability(sig AvailabilitySignal, now time.Time) bool {
	if sig.Label == string(AvailabilityAvailable) && !sig.Delisted {
		changed := l.Availability != AvailabilityAvailable ||
			l.SoldAt != nil || l.SiteStatus != SiteStatusNone
		l.Availability = AvailabilityAvailable
		l.IsAvailable = true
		l.SoldAt = nil
		l.SiteStatus = SiteStatusNone
		return changed
	}

	soldAt := sig.SoldAt
	if soldAt == nil {
		if l.SoldAt != nil {
			soldAt = l.SoldAt
		} else {
			t := InferredSoldAt(now)
			soldAt = &t
		}
	}

	status := SiteStatusDelisted
	if !sig.Delisted {
		status = l.SiteStatus
	}

	changed := l.Availability != AvailabilitySold ||
		!timePtrEqual(l.SoldAt, soldAt) || l.SiteStatus != status
	l.Availability = AvailabilitySold
	l.IsAvailable = false
	l.SoldAt = soldAt
	l.SiteStatus = status
	return changed
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
