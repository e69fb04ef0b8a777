package domain

import "time"

// QueueStatus is the monitoring state of a URL in the recheck queue.
type QueueStatus string

const (
	QueueStatusAvailable QueueStatus = "Available"
	QueueStatusSold      QueueStatus = "Sold"
	QueueStatusDelisted  QueueStatus = "Delisted"
	QueueStatusError     QueueStatus = "Error"
	QueueStatusExcluded  QueueStatus = "Excluded"
)

// KnownQueueStatus reports whether s belongs to the queue vocabulary.
func KnownQueueStatus(s QueueStatus) bool {
	switch s {
	case QueueStatusAvailable, QueueStatusSold, QueueStatusDelisted,
		QueueStatusError, QueueStatusExcluded:
		return true
	}
	return false
}

// QueueEntry is one URL under active monitoring.
type QueueEntry struct {
	ID        int64
	URL       string
	Status    QueueStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// URLCandidate is one uploaded row after the adapter extracted the link and
// availability values from the caller's arbitrary record shape.
type URLCandidate struct {
	Link      string
	Available bool
}

// EnqueueResult reports what an upload did. Counts reflect only committed
// rows; a chunk that failed to insert is absent from InsertedCount.
type EnqueueResult struct {
	ValidURLs      []string
	NewURLs        []string
	InsertedCount  int
	TotalValid     int
	AlreadyExisted int
}

// QueueStats is the per-status breakdown of the queue.
type QueueStats struct {
	Total    int64
	ByStatus map[QueueStatus]int64
}

// SyncStats reports one batch sync run over a period. UpdatedByStatus breaks
// the listing updates down by the queue status that drove them.
type SyncStats struct {
	Period          string
	ScannedEntries  int
	UpdatedCount    int
	UpdatedByStatus map[QueueStatus]int
	FailedPages     int
}
