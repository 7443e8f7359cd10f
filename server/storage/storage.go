// Package storage defines the document store interface the rest of the
// server is written against. Backends live in subpackages; please use the
// error types provided.
package storage

import (
	"context"
	"fmt"
	"time"
)

// Document is a flat mapping of field names to values as held by the store.
// Temporal fields are time.Time internally; the wire layer converts them.
type Document map[string]any

// Collection identifies one of the independent entity collections.
type Collection string

const (
	Forms       Collection = "forms"
	Events      Collection = "events"
	Schedules   Collection = "schedules"
	Completions Collection = "completions"
	Checklist   Collection = "checklist"
)

// OwnerField is the field stamped with the authenticated caller's ID on
// every write. Ownership checks compare against it.
const OwnerField = "ownerID"

// IDField is the conventional key documents carry their store-assigned ID
// under when returned to callers. It is never persisted inside the document.
const IDField = "_id"

// ErrorType classifies storage errors.
type ErrorType string

const (
	ErrNotFound     ErrorType = "not_found"
	ErrConflict     ErrorType = "conflict"
	ErrUnavailable  ErrorType = "unavailable"
	ErrCommitFailed ErrorType = "commit_failed"
)

// Error represents a storage-related error.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a storage not-found error.
func IsNotFound(err error) bool {
	se, ok := err.(*Error)
	return ok && se.Type == ErrNotFound
}

// ListOptions narrows a List call. Owner equality is always applied; the
// rest is optional.
type ListOptions struct {
	// Start keeps documents whose endStamp is at or after this instant.
	Start *time.Time
	// End keeps documents whose startStamp is strictly before this instant.
	End *time.Time
	// Where adds field equality filters.
	Where map[string]any
}

// Batch stages writes for a single atomic commit. Staged operations are not
// visible to reads until Commit succeeds; a failed Commit applies nothing.
type Batch interface {
	// Set stages a write. With merge, fields are folded into the existing
	// document; without, the document is replaced.
	Set(col Collection, id string, doc Document, merge bool)
	// Delete stages a removal. Deleting an absent document is a no-op.
	Delete(col Collection, id string)
	// Len reports the number of staged operations.
	Len() int
	// Commit applies every staged operation or none of them.
	Commit(ctx context.Context) error
}

// Store is the interface that must be implemented by storage backends.
type Store interface {
	// Get retrieves one document by ID.
	Get(ctx context.Context, col Collection, id string) (Document, error)
	// List retrieves the documents owned by ownerID, narrowed by opts.
	// Returned documents carry their ID under IDField.
	List(ctx context.Context, col Collection, ownerID string, opts *ListOptions) ([]Document, error)
	// Set writes one document outside a batch.
	Set(ctx context.Context, col Collection, id string, doc Document, merge bool) error
	// Delete removes one document outside a batch.
	Delete(ctx context.Context, col Collection, id string) error
	// NewID allocates a fresh document ID. Allocation alone writes nothing.
	NewID() string
	// Batch starts a new atomic write batch.
	Batch() Batch
}

// Clone returns a shallow copy of doc. Staged and returned documents are
// always copies so callers cannot alias store state.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// WithID returns a copy of doc carrying id under IDField.
func WithID(id string, doc Document) Document {
	out := Clone(doc)
	if out == nil {
		out = Document{}
	}
	out[IDField] = id
	return out
}
