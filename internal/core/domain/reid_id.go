package domain

import (
	"fmt"
	"time"
)

// REID identifiers look like REID_25_08_BOFS_042: two-digit year and month
// of first sight, the four-letter source code, and a per-prefix sequence
// starting at 1, zero-padded to three digits (it keeps counting past 999).

// ReidPrefix builds the year/month/source prefix for identifiers assigned at t.
func ReidPrefix(code string, t time.Time) string {
	return fmt.Sprintf("REID_%02d_%02d_%s", t.Year()%100, int(t.Month()), code)
}

// FormatReidID appends the sequence number to a prefix.
func FormatReidID(prefix string, seq int) string {
	return fmt.Sprintf("%s_%03d", prefix, seq)
}
