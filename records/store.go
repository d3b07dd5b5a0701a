// Package records is the structured record store: named collections of loosely typed
// documents, addressed by id. Typed decoding happens in the packages that own each
// collection.
package records

import (
	"context"

	"github.com/lyfeumbria/manager/internal/errors"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.ErrNotFound

// Document is a record as stored: field name to JSON-compatible value.
type Document map[string]any

type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, doc Document) error
	Delete(ctx context.Context, collection, id string) error
	// List returns all documents of a collection keyed by id.
	List(ctx context.Context, collection string) (map[string]Document, error)
}
