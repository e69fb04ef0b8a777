package constants

// Batch sizes for queue storage operations. Existence checks go out as
// ANY($1) lookups and must stay well under the parameter/row limits; inserts
// are committed one transaction per chunk so a bad chunk cannot poison the
// whole upload.
const (
	QueueLookupChunkSize = 1000
	QueueInsertChunkSize = 500
	QueueSyncPageSize    = 500
)
