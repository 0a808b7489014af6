// Package docstore is the document database the storefront keeps all of its
// state in. Documents live in slash-separated collection paths such as
// "users/{id}/cart" and are JSON objects.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

var (
	ErrNotFound      = errors.New("docstore: document not found")
	ErrAlreadyExists = errors.New("docstore: document already exists")
	ErrInvalidPath   = errors.New("docstore: invalid collection path")
	ErrLimitExceeded = errors.New("docstore: increment would exceed limit")
)

type Document struct {
	ID        string
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("docstore: decode document %s: %w", d.ID, err)
	}
	return nil
}

// Filter is an equality match on a top-level field.
type Filter struct {
	Field string
	Value any
}

func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	// Query returns matching documents in insertion order.
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	// Create inserts a new document and fails with ErrAlreadyExists if the id
	// is taken. An empty id is replaced by a generated one.
	Create(ctx context.Context, collection, id string, doc any) (string, error)
	Set(ctx context.Context, collection, id string, doc any) error
	// Merge upserts fields into the top level of the document.
	Merge(ctx context.Context, collection, id string, fields map[string]any) error
	// Increment adds delta to a numeric top-level field of an existing document.
	// It fails with ErrLimitExceeded, leaving the field as it was, when the
	// result would be greater than limit.
	Increment(ctx context.Context, collection, id, field string, delta, limit int64) error
	// Delete is idempotent: deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
}

// Path joins collection path segments.
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

func validate(collection, id string) error {
	if collection == "" || strings.HasPrefix(collection, "/") || strings.HasSuffix(collection, "/") || strings.Contains(collection, "//") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, collection)
	}
	if strings.Contains(id, "/") {
		return fmt.Errorf("%w: document id %q contains a slash", ErrInvalidPath, id)
	}
	return nil
}

func newID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("docstore: generate document id: %w", err)
	}
	return id.String(), nil
}

func encode(doc any) (json.RawMessage, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode document: %w", err)
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("docstore: document must encode to a JSON object, got %s", raw)
	}
	return raw, nil
}
