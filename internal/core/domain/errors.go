package domain

import (
	"errors"
	"fmt"
)

// ValidationError rejects a record before insert. It is not retried: the
// record's raw capture is discarded and the failure is durably logged.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

// UnknownSourceError means the record's source has no entry in the static
// source code table, so no REID identity can be assigned.
type UnknownSourceError struct {
	Source string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source %q: no REID code registered", e.Source)
}

// ConflictError signals that a URL assumed new already exists. It is resolved
// internally by re-loading and merging and is never surfaced to callers.
type ConflictError struct {
	URL string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("listing for %q already exists", e.URL)
}

// TransientStoreError wraps a storage failure that aborted one chunk or page
// of a batch job without aborting the job itself.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store failure in %s: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// ErrNotFound is returned by storage lookups that matched nothing.
var ErrNotFound = errors.New("not found")
