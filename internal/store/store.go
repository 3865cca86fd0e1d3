package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound occurs when no document matches the requested type and id.
	ErrNotFound = errors.New("document not found")

	// ErrConflict indicates a create attempt for an id that already exists.
	ErrConflict = errors.New("document already exists")

	// ErrETagMismatch indicates a conditional replace lost against a
	// concurrent writer; the caller should re-read and retry.
	ErrETagMismatch = errors.New("etag mismatch")
)

// Document is a stored record together with its concurrency token.
type Document struct {
	ID        string
	Type      string
	ETag      string
	Body      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Body, v)
}

// Filter restricts a query to documents whose named body field equals a value.
type Filter struct {
	Field string
	Value string
}

// Query describes a filtered, paginated lookup within one document type.
type Query struct {
	Type         string
	Filters      []Filter
	CreatedAfter time.Time
	NewestFirst  bool
	Offset       int
	Limit        int
}

// OpKind enumerates batch operation kinds.
type OpKind int

const (
	OpCreate OpKind = iota
	OpReplace
	OpUpsert
)

// Op is one operation within a best-effort batch.
type Op struct {
	Kind OpKind
	Type string
	ID   string
	Body any
	ETag string
}

// Store is the document persistence contract: point lookup, field-equality
// query, create, conditional replace (optimistic concurrency), last-write-wins
// upsert, and a best-effort multi-document batch. Backends that have a native
// transaction primitive apply batches atomically; others fall back to
// sequential application.
type Store interface {
	Get(ctx context.Context, docType, id string) (Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	Count(ctx context.Context, q Query) (int, error)
	Create(ctx context.Context, docType, id string, body any) (string, error)
	Replace(ctx context.Context, docType, id string, body any, etag string) (string, error)
	Upsert(ctx context.Context, docType, id string, body any) (string, error)
	Batch(ctx context.Context, ops []Op) error
}
