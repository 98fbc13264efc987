package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Document is one decoded record as it goes over the wire: plain JSON-able
// values, timestamps as time.Time, always carrying an "id" key.
type Document = map[string]any

// Backend is the minimal operation set the subscription layer needs from a
// data store. Anything that can resolve a path to a document or an
// equality-filtered, single-key-ordered collection can serve it.
type Backend interface {
	// GetDocument resolves a document path. A missing document is not an
	// error: it returns (nil, nil).
	GetDocument(ctx context.Context, path string) (Document, error)
	GetCollection(ctx context.Context, path string, query Query) ([]Document, error)
}

// Query carries at most one equality filter and at most one sort key.
// The domain never needs compound filters.
type Query struct {
	Equals  *EqualityFilter
	OrderBy *SortOrder
}

type EqualityFilter struct {
	Field string
	Value string
}

type SortOrder struct {
	Field      string
	Descending bool
}

// Key serializes the query for structural comparison, so that resubscribing
// with an equal-but-reallocated query is recognized as a no-op.
func (q Query) Key() string {
	var sb strings.Builder
	if q.Equals != nil {
		fmt.Fprintf(&sb, "eq:%s=%s", q.Equals.Field, q.Equals.Value)
	}
	if q.OrderBy != nil {
		if sb.Len() > 0 {
			sb.WriteByte('|')
		}
		dir := "asc"
		if q.OrderBy.Descending {
			dir = "desc"
		}
		fmt.Fprintf(&sb, "order:%s %s", q.OrderBy.Field, dir)
	}
	return sb.String()
}

var (
	ErrUnsupportedPath  = errors.New("unsupported path")
	ErrUnsupportedQuery = errors.New("unsupported query")
)

type viewerCtxKey struct{}

// WithViewer tags ctx with the identity reading through a subscription.
// Backends use it to decide what the subscriber is allowed to see; an
// untagged context is an anonymous viewer.
func WithViewer(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, userID)
}

// ViewerFrom reports the viewer identity carried by ctx, if any.
func ViewerFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(viewerCtxKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// Error is a backend failure tagged with the attempted operation and path,
// so denials are diagnosable instead of anonymous.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("realtime: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
