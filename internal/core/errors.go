package core

import (
	"errors"
	"fmt"
)

// Typed failure taxonomy for ingestion and search. Callers branch on these
// with errors.Is; nothing in this package panics on a failed operation.
var (
	// ErrInvalidJSON marks malformed pasted or uploaded JSON. No file is
	// written and no entry is created.
	ErrInvalidJSON = errors.New("invalid json")

	// ErrStorageProvision marks a failure to create a user's folder tree
	// or catalog.
	ErrStorageProvision = errors.New("storage provisioning failed")

	// ErrStorageWrite marks a failed file placement. Ingestion aborts
	// before any catalog row is written.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrCatalogWrite marks a catalog insert that failed after the file
	// was already placed. The file stays on disk; the caller can
	// distinguish "file saved, not indexed" from "nothing happened".
	ErrCatalogWrite = errors.New("catalog write failed")

	// ErrSchemaMismatch marks a catalog whose schema does not match this
	// binary. Fatal for that user's store; never auto-repaired.
	ErrSchemaMismatch = errors.New("catalog schema mismatch")

	// ErrInvalidFilter marks a search query with an unknown type: token.
	ErrInvalidFilter = errors.New("invalid type filter")

	// ErrMissingFile marks a stored path that no longer exists on disk.
	ErrMissingFile = errors.New("stored file missing")

	// ErrDispatcherClosed marks a task submitted after the dispatcher
	// stopped accepting work.
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

// OpError wraps a failure with the operation that produced it.
type OpError struct {
	Op  string // operation name, e.g. "IngestFile"
	Err error
}

func (e *OpError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("filedex: %v", e.Err)
	}
	return fmt.Sprintf("filedex: %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func (e *OpError) Is(target error) bool { return errors.Is(e.Err, target) }

// wrapOp wraps err with operation context, passing nil through.
func wrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}
