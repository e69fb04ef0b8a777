package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReidPrefix(t *testing.T) {
	at := time.Date(2025, time.August, 17, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "REID_25_08_BOFS", ReidPrefix("BOFS", at))

	january := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "REID_26_01_KIBR", ReidPrefix("KIBR", january))
}

func TestFormatReidID(t *testing.T) {
	assert.Equal(t, "REID_25_08_BOFS_001", FormatReidID("REID_25_08_BOFS", 1))
	assert.Equal(t, "REID_25_08_BOFS_042", FormatReidID("REID_25_08_BOFS", 42))
	// sequence keeps counting past three digits
	assert.Equal(t, "REID_25_08_BOFS_1000", FormatReidID("REID_25_08_BOFS", 1000))
}
