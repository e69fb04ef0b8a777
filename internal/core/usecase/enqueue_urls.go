package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"reid-service/internal/contextkeys"
	"reid-service/internal/core/domain"
	"reid-service/internal/core/port"
)

// EnqueueURLsUseCase admits uploaded URL candidates into the recheck queue:
// filter, blacklist, dedupe, then insert what the queue does not already hold.
type EnqueueURLsUseCase struct {
	queue     port.QueueStoragePort
	blacklist map[string]struct{}
}

func NewEnqueueURLsUseCase(queue port.QueueStoragePort, blacklist map[string]struct{}) *EnqueueURLsUseCase {
	return &EnqueueURLsUseCase{
		queue:     queue,
		blacklist: blacklist,
	}
}

func (uc *EnqueueURLsUseCase) Enqueue(ctx context.Context, candidates []domain.URLCandidate) (*domain.EnqueueResult, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":        "EnqueueURLs",
		"candidate_count": len(candidates),
	})

	ucLogger.Info("Use case started: filtering URL candidates", nil)

	validURLs := uc.filter(candidates)

	existing, err := uc.queue.FilterExisting(ctx, validURLs)
	if err != nil {
		ucLogger.Error("Queue existence check failed", err, nil)
		return nil, fmt.Errorf("failed to check existing queue urls: %w", err)
	}

	newURLs := make([]string, 0, len(validURLs))
	for _, u := range validURLs {
		if _, ok := existing[u]; !ok {
			newURLs = append(newURLs, u)
		}
	}

	inserted, chunkErrs := uc.queue.InsertChunked(ctx, newURLs)
	for _, chunkErr := range chunkErrs {
		ucLogger.Error("Queue insert chunk failed, continuing with remaining chunks", chunkErr, nil)
	}

	result := &domain.EnqueueResult{
		ValidURLs:      validURLs,
		NewURLs:        newURLs,
		InsertedCount:  inserted,
		TotalValid:     len(validURLs),
		AlreadyExisted: len(existing),
	}
	ucLogger.Info("Use case finished", port.Fields{
		"total_valid":     result.TotalValid,
		"already_existed": result.AlreadyExisted,
		"inserted":        result.InsertedCount,
		"failed_chunks":   len(chunkErrs),
	})
	return result, nil
}

// filter applies the admission pipeline in order: availability flag, link
// shape, blacklist, then in-batch set dedup preserving first-seen order.
func (uc *EnqueueURLsUseCase) filter(candidates []domain.URLCandidate) []string {
	seen := make(map[string]struct{}, len(candidates))
	valid := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !c.Available {
			continue
		}
		host, ok := urlHost(c.Link)
		if !ok {
			continue
		}
		if _, blocked := uc.blacklist[host]; blocked {
			continue
		}
		if _, dup := seen[c.Link]; dup {
			continue
		}
		seen[c.Link] = struct{}{}
		valid = append(valid, c.Link)
	}
	return valid
}

// urlHost parses the link and returns its registrable host. Anything that
// does not parse as an absolute http(s) URL is rejected outright.
func urlHost(link string) (string, bool) {
	if link == "" {
		return "", false
	}
	parsed, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	if host == "" {
		return "", false
	}
	return host, true
}
