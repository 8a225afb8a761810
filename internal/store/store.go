// Package store is the document-store boundary of the maintenance job.
//
// Documents are addressed by (database id, collection id, document id) and
// carry loosely typed fields exactly as the store returns them. Typed decoding
// happens one layer up, in the models package.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("store: document not found")
	ErrConflict        = errors.New("store: document already exists")
	ErrUnknownDatabase = errors.New("store: unknown database")
)

// IDField addresses the document id in filters.
const IDField = "id"

type Document struct {
	ID     string
	Fields map[string]any
}

// Get returns the raw value of a field, or nil.
func (d Document) Get(field string) any {
	if field == IDField {
		return d.ID
	}
	return d.Fields[field]
}

// Filter is an exact-equality condition on one field.
type Filter struct {
	Field string
	Value any
}

func Equal(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

type DocumentStore interface {
	List(ctx context.Context, databaseID, collectionID string, filters ...Filter) ([]Document, error)
	Get(ctx context.Context, databaseID, collectionID, id string) (Document, error)
	Create(ctx context.Context, databaseID, collectionID, id string, fields map[string]any) (Document, error)
	Update(ctx context.Context, databaseID, collectionID, id string, fields map[string]any) (Document, error)
	Delete(ctx context.Context, databaseID, collectionID, id string) error
}

// IsMissing reports whether err means the addressed document does not exist.
func IsMissing(err error) bool {
	return errors.Is(err, ErrNotFound)
}
