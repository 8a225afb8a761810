package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// PocketBaseStore serves one logical database backed by a PocketBase app.
// Collection ids are PocketBase collection names or ids.
type PocketBaseStore struct {
	app        core.App
	databaseID string
}

func NewPocketBaseStore(app core.App, databaseID string) *PocketBaseStore {
	return &PocketBaseStore{app: app, databaseID: databaseID}
}

func (s *PocketBaseStore) List(ctx context.Context, databaseID, collectionID string, filters ...Filter) ([]Document, error) {
	if err := s.check(ctx, databaseID); err != nil {
		return nil, err
	}

	exprs := make([]dbx.Expression, 0, len(filters))
	for _, f := range filters {
		exprs = append(exprs, dbx.HashExp{f.Field: f.Value})
	}

	records, err := s.app.FindAllRecords(collectionID, exprs...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collectionID, err)
	}

	docs := make([]Document, 0, len(records))
	for _, record := range records {
		docs = append(docs, recordToDocument(record))
	}
	return docs, nil
}

func (s *PocketBaseStore) Get(ctx context.Context, databaseID, collectionID, id string) (Document, error) {
	if err := s.check(ctx, databaseID); err != nil {
		return Document{}, err
	}

	record, err := s.findRecord(collectionID, id)
	if err != nil {
		return Document{}, err
	}
	return recordToDocument(record), nil
}

func (s *PocketBaseStore) Create(ctx context.Context, databaseID, collectionID, id string, fields map[string]any) (Document, error) {
	if err := s.check(ctx, databaseID); err != nil {
		return Document{}, err
	}

	collection, err := s.app.FindCollectionByNameOrId(collectionID)
	if err != nil {
		return Document{}, fmt.Errorf("find collection %s: %w", collectionID, err)
	}

	if id != "" {
		_, err := s.app.FindRecordById(collection, id)
		switch {
		case err == nil:
			return Document{}, fmt.Errorf("%w: %s/%s", ErrConflict, collectionID, id)
		case !errors.Is(err, sql.ErrNoRows):
			return Document{}, fmt.Errorf("create %s/%s: %w", collectionID, id, err)
		}
	}

	record := core.NewRecord(collection)
	if id != "" {
		record.Set(core.FieldNameId, id)
	}
	for key, value := range fields {
		record.Set(key, value)
	}

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return Document{}, fmt.Errorf("create %s/%s: %w", collectionID, id, err)
	}
	return recordToDocument(record), nil
}

func (s *PocketBaseStore) Update(ctx context.Context, databaseID, collectionID, id string, fields map[string]any) (Document, error) {
	if err := s.check(ctx, databaseID); err != nil {
		return Document{}, err
	}

	record, err := s.findRecord(collectionID, id)
	if err != nil {
		return Document{}, err
	}
	for key, value := range fields {
		record.Set(key, value)
	}

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return Document{}, fmt.Errorf("update %s/%s: %w", collectionID, id, err)
	}
	return recordToDocument(record), nil
}

func (s *PocketBaseStore) Delete(ctx context.Context, databaseID, collectionID, id string) error {
	if err := s.check(ctx, databaseID); err != nil {
		return err
	}

	record, err := s.findRecord(collectionID, id)
	if err != nil {
		return err
	}

	if err := s.app.DeleteWithContext(ctx, record); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collectionID, id, err)
	}
	return nil
}

func (s *PocketBaseStore) check(ctx context.Context, databaseID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if databaseID != s.databaseID {
		return fmt.Errorf("%w: %q", ErrUnknownDatabase, databaseID)
	}
	return nil
}

func (s *PocketBaseStore) findRecord(collectionID, id string) (*core.Record, error) {
	record, err := s.app.FindRecordById(collectionID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collectionID, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", collectionID, id, err)
	}
	return record, nil
}

func recordToDocument(record *core.Record) Document {
	fields := make(map[string]any)
	for _, field := range record.Collection().Fields {
		name := field.GetName()
		if name == core.FieldNameId {
			continue
		}
		fields[name] = plainValue(record.Get(name))
	}
	return Document{ID: record.Id, Fields: fields}
}

// plainValue unwraps PocketBase field types into values the models layer can coerce.
func plainValue(value any) any {
	switch v := value.(type) {
	case types.JSONRaw:
		if len(v) == 0 {
			return nil
		}
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return string(v)
		}
		return decoded
	case types.DateTime:
		if v.IsZero() {
			return ""
		}
		return v.String()
	default:
		return value
	}
}
