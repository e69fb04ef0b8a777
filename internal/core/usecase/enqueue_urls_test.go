package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"reid-service/internal/constants"
	"reid-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueue_FilterPipeline(t *testing.T) {
	queue := newFakeQueueStorage()
	queue.add("http://old.example/1", domain.QueueStatusAvailable, time.Now())
	uc := NewEnqueueURLsUseCase(queue, constants.BlacklistDomains)

	candidates := []domain.URLCandidate{
		{Link: "http://new.example/1", Available: true},
		{Link: "http://new.example/1", Available: true}, // in-batch duplicate
		{Link: "http://old.example/1", Available: true}, // already queued
		{Link: "http://gone.example/2", Available: false},
		{Link: "", Available: true},
		{Link: "ftp://files.example/3", Available: true},
		{Link: "not a url at all", Available: true},
		{Link: "https://www.propertia.com/villa-9", Available: true}, // blacklisted
		{Link: "https://new.example/2", Available: true},
	}

	result, err := uc.Enqueue(context.Background(), candidates)

	require.NoError(t, err)
	assert.Equal(t, []string{"http://new.example/1", "http://old.example/1", "https://new.example/2"}, result.ValidURLs)
	assert.Equal(t, []string{"http://new.example/1", "https://new.example/2"}, result.NewURLs)
	assert.Equal(t, 3, result.TotalValid)
	assert.Equal(t, 1, result.AlreadyExisted)
	assert.Equal(t, 2, result.InsertedCount)
}

func TestEnqueue_EmptyUpload(t *testing.T) {
	uc := NewEnqueueURLsUseCase(newFakeQueueStorage(), constants.BlacklistDomains)

	result, err := uc.Enqueue(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, result.NewURLs)
	assert.Zero(t, result.InsertedCount)
}

func TestEnqueue_FailedChunkDoesNotAbortJob(t *testing.T) {
	queue := newFakeQueueStorage()
	queue.chunkSize = 2
	failed := false
	queue.failChunk = func(chunk []string) error {
		if !failed {
			failed = true
			return errors.New("deadlock detected")
		}
		return nil
	}
	uc := NewEnqueueURLsUseCase(queue, constants.BlacklistDomains)

	var candidates []domain.URLCandidate
	for i := 0; i < 5; i++ {
		candidates = append(candidates, domain.URLCandidate{
			Link:      fmt.Sprintf("http://new.example/%d", i),
			Available: true,
		})
	}

	result, err := uc.Enqueue(context.Background(), candidates)

	require.NoError(t, err)
	// First chunk of two rolled back alone; the remaining three committed.
	assert.Equal(t, 3, result.InsertedCount)
	assert.Equal(t, 5, result.TotalValid)
}

func TestURLHost(t *testing.T) {
	tests := []struct {
		link   string
		host   string
		wantOK bool
	}{
		{"http://propertia.com/x", "propertia.com", true},
		{"https://www.kibarer.com/villa", "kibarer.com", true},
		{"ftp://example.com/x", "", false},
		{"example.com/no-scheme", "", false},
		{"", "", false},
		{"http://", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			host, ok := urlHost(tt.link)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.host, host)
		})
	}
}
