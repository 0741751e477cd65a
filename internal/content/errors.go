package content

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when an item does not exist.
var ErrNotFound = errors.New("item not found")

// ExtractionError indicates that a browsing context could not be built,
// e.g. no page loaded or content below the minimum length. Callers
// receive an empty zero-confidence context, never a propagated panic.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StorageError indicates the corpus or engine state could not be read or
// written. An unreadable corpus yields zero candidates, not a failed
// analysis.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ScoringError indicates a malformed stored item that cannot be scored.
// It is caught per item; one bad item never fails the batch.
type ScoringError struct {
	ItemID string
	Reason string
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("cannot score item %q: %s", e.ItemID, e.Reason)
}
