package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"reid-service/internal/core/domain"
	"reid-service/internal/core/port"

	"github.com/google/uuid"
)

type fakeListingStorage struct {
	mu       sync.Mutex
	byURL    map[string]*domain.CanonicalListing
	seq      map[string]int
	codes    map[string]string
	insertBy func(*domain.CanonicalListing) error
	updateBy func(*domain.CanonicalListing) error
	bulkBy   func([]string, bool) (int, error)
}

func newFakeListingStorage() *fakeListingStorage {
	return &fakeListingStorage{
		byURL: map[string]*domain.CanonicalListing{},
		seq:   map[string]int{},
		codes: map[string]string{"Bali Realty": "BREL", "Kibarer": "KIBR"},
	}
}

func (f *fakeListingStorage) GetByURL(_ context.Context, url string) (*domain.CanonicalListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byURL[url]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeListingStorage) Insert(_ context.Context, listing *domain.CanonicalListing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertBy != nil {
		if err := f.insertBy(listing); err != nil {
			return err
		}
	}
	code, ok := f.codes[listing.Source]
	if !ok {
		return &domain.UnknownSourceError{Source: listing.Source}
	}
	if _, exists := f.byURL[listing.URL]; exists {
		return &domain.ConflictError{URL: listing.URL}
	}
	prefix := domain.ReidPrefix(code, time.Now())
	f.seq[prefix]++
	listing.ReidID = domain.FormatReidID(prefix, f.seq[prefix])
	cp := *listing
	f.byURL[listing.URL] = &cp
	return nil
}

func (f *fakeListingStorage) Update(_ context.Context, listing *domain.CanonicalListing, expectedUpdatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateBy != nil {
		if err := f.updateBy(listing); err != nil {
			return err
		}
	}
	stored, exists := f.byURL[listing.URL]
	if !exists {
		return domain.ErrNotFound
	}
	if !stored.UpdatedAt.Equal(expectedUpdatedAt) {
		return &domain.ConflictError{URL: listing.URL}
	}
	cp := *listing
	f.byURL[listing.URL] = &cp
	return nil
}

func (f *fakeListingStorage) UpdateAvailabilityBulk(_ context.Context, urls []string, available bool, siteStatus domain.SiteStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bulkBy != nil {
		if n, err := f.bulkBy(urls, available); err != nil {
			return n, err
		}
	}
	changed := 0
	for _, u := range urls {
		l, ok := f.byURL[u]
		if !ok || l.IsAvailable == available {
			continue
		}
		if available {
			l.ApplyAvailability(domain.AvailabilitySignal{Label: string(domain.AvailabilityAvailable)}, time.Now())
		} else {
			l.ApplyAvailability(domain.AvailabilitySignal{Label: "Sold", Delisted: siteStatus == domain.SiteStatusDelisted}, time.Now())
		}
		changed++
	}
	return changed, nil
}

type fakeRawCaptures struct {
	mu      sync.Mutex
	deleted []uuid.UUID
}

func (f *fakeRawCaptures) Insert(context.Context, *domain.RawCapture) error { return nil }

func (f *fakeRawCaptures) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeErrorLog struct {
	mu      sync.Mutex
	entries map[string][]string
}

func newFakeErrorLog() *fakeErrorLog {
	return &fakeErrorLog{entries: map[string][]string{}}
}

func (f *fakeErrorLog) Record(_ context.Context, url, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[url] = append(f.entries[url], reason)
	return nil
}

func (f *fakeErrorLog) ClearForURL(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, url)
	return nil
}

func (f *fakeErrorLog) ListForURL(_ context.Context, url string) ([]domain.ReconcileError, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ReconcileError
	for _, reason := range f.entries[url] {
		out = append(out, domain.ReconcileError{URL: url, Reason: reason})
	}
	return out, nil
}

type fakeReporter struct {
	mu       sync.Mutex
	outcomes []domain.ReconcileOutcome
}

func (f *fakeReporter) ReportOutcome(_ context.Context, _ string, outcome domain.ReconcileOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
	return nil
}

type fakeQueueStorage struct {
	mu        sync.Mutex
	entries   map[string]*domain.QueueEntry
	nextID    int64
	failChunk func(chunk []string) error
	pageErrAt int64
	chunkSize int
}

func newFakeQueueStorage() *fakeQueueStorage {
	return &fakeQueueStorage{entries: map[string]*domain.QueueEntry{}, chunkSize: 500}
}

func (f *fakeQueueStorage) add(url string, status domain.QueueStatus, updatedAt time.Time) *domain.QueueEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e := &domain.QueueEntry{ID: f.nextID, URL: url, Status: status, UpdatedAt: updatedAt}
	f.entries[url] = e
	return e
}

func (f *fakeQueueStorage) FilterExisting(_ context.Context, urls []string) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]struct{}{}
	for _, u := range urls {
		if _, ok := f.entries[u]; ok {
			out[u] = struct{}{}
		}
	}
	return out, nil
}

func (f *fakeQueueStorage) InsertChunked(_ context.Context, urls []string) (int, []error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	inserted := 0
	for start := 0; start < len(urls); start += f.chunkSize {
		end := start + f.chunkSize
		if end > len(urls) {
			end = len(urls)
		}
		chunk := urls[start:end]
		if f.failChunk != nil {
			if err := f.failChunk(chunk); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		for _, u := range chunk {
			f.nextID++
			f.entries[u] = &domain.QueueEntry{ID: f.nextID, URL: u, Status: domain.QueueStatusAvailable, UpdatedAt: time.Now()}
			inserted++
		}
	}
	return inserted, errs
}

func (f *fakeQueueStorage) PageByStatus(_ context.Context, status domain.QueueStatus, from, to time.Time, afterID int64, limit int) ([]domain.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pageErrAt > 0 && afterID >= f.pageErrAt {
		return nil, errors.New("page read failed")
	}
	var page []domain.QueueEntry
	for _, e := range f.entries {
		if e.Status != status || e.ID <= afterID {
			continue
		}
		if e.UpdatedAt.Before(from) || !e.UpdatedAt.Before(to) {
			continue
		}
		page = append(page, *e)
	}
	sort.Slice(page, func(i, j int) bool { return page[i].ID < page[j].ID })
	if len(page) > limit {
		page = page[:limit]
	}
	return page, nil
}

func (f *fakeQueueStorage) List(context.Context, port.QueueListFilters, int, int) ([]domain.QueueEntry, int64, error) {
	return nil, 0, fmt.Errorf("not implemented")
}

func (f *fakeQueueStorage) Stats(context.Context) (*domain.QueueStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &domain.QueueStats{ByStatus: map[domain.QueueStatus]int64{}}
	for _, e := range f.entries {
		stats.Total++
		stats.ByStatus[e.Status]++
	}
	return stats, nil
}

func (f *fakeQueueStorage) UpdateStatusBulk(_ context.Context, ids []int64, status domain.QueueStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	changed := 0
	for _, e := range f.entries {
		for _, id := range ids {
			if e.ID == id && e.Status != status {
				e.Status = status
				e.UpdatedAt = time.Now()
				changed++
			}
		}
	}
	return changed, nil
}
