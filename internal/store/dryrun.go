package store

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"ticket-maintenance/pkg/logger"
)

type overlayKey struct {
	collection string
	id         string
}

// DryRunStore reads through to the wrapped store and keeps every write in a
// local overlay, so a full maintenance run can be rehearsed without mutating
// anything. Later reads in the same run observe the rehearsed writes.
type DryRunStore struct {
	next   DocumentStore
	logger logger.Logger

	mu      sync.Mutex
	created map[overlayKey]map[string]any
	updated map[overlayKey]map[string]any
	deleted map[overlayKey]bool
	order   []overlayKey
}

func NewDryRunStore(next DocumentStore, l logger.Logger) *DryRunStore {
	return &DryRunStore{
		next:    next,
		logger:  l,
		created: make(map[overlayKey]map[string]any),
		updated: make(map[overlayKey]map[string]any),
		deleted: make(map[overlayKey]bool),
	}
}

func (s *DryRunStore) List(ctx context.Context, databaseID, collectionID string, filters ...Filter) ([]Document, error) {
	docs, err := s.next.List(ctx, databaseID, collectionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		key := overlayKey{collectionID, doc.ID}
		if s.deleted[key] {
			continue
		}
		doc = s.applyUpdates(key, doc)
		if matches(doc, filters) {
			out = append(out, doc)
		}
	}
	for _, key := range s.order {
		fields, ok := s.created[key]
		if !ok || key.collection != collectionID || s.deleted[key] {
			continue
		}
		doc := s.applyUpdates(key, Document{ID: key.id, Fields: cloneFields(fields)})
		if matches(doc, filters) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *DryRunStore) Get(ctx context.Context, databaseID, collectionID, id string) (Document, error) {
	key := overlayKey{collectionID, id}

	s.mu.Lock()
	if s.deleted[key] {
		s.mu.Unlock()
		return Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, collectionID, id)
	}
	if fields, ok := s.created[key]; ok {
		doc := s.applyUpdates(key, Document{ID: id, Fields: cloneFields(fields)})
		s.mu.Unlock()
		return doc, nil
	}
	s.mu.Unlock()

	doc, err := s.next.Get(ctx, databaseID, collectionID, id)
	if err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyUpdates(key, doc), nil
}

func (s *DryRunStore) Create(ctx context.Context, databaseID, collectionID, id string, fields map[string]any) (Document, error) {
	if _, err := s.Get(ctx, databaseID, collectionID, id); err == nil {
		return Document{}, fmt.Errorf("%w: %s/%s", ErrConflict, collectionID, id)
	} else if !IsMissing(err) {
		return Document{}, err
	}

	s.logger.Infof(ctx, "[dry-run] would create %s/%s", collectionID, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	key := overlayKey{collectionID, id}
	delete(s.deleted, key)
	s.created[key] = cloneFields(fields)
	s.order = append(s.order, key)
	return Document{ID: id, Fields: cloneFields(fields)}, nil
}

func (s *DryRunStore) Update(ctx context.Context, databaseID, collectionID, id string, fields map[string]any) (Document, error) {
	doc, err := s.Get(ctx, databaseID, collectionID, id)
	if err != nil {
		return Document{}, err
	}

	s.logger.Infof(ctx, "[dry-run] would update %s/%s with %v", collectionID, id, fields)

	s.mu.Lock()
	defer s.mu.Unlock()
	key := overlayKey{collectionID, id}
	if s.updated[key] == nil {
		s.updated[key] = make(map[string]any)
	}
	maps.Copy(s.updated[key], fields)
	maps.Copy(doc.Fields, fields)
	return doc, nil
}

func (s *DryRunStore) Delete(ctx context.Context, databaseID, collectionID, id string) error {
	if _, err := s.Get(ctx, databaseID, collectionID, id); err != nil {
		return err
	}

	s.logger.Infof(ctx, "[dry-run] would delete %s/%s", collectionID, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted[overlayKey{collectionID, id}] = true
	return nil
}

// applyUpdates merges rehearsed updates into doc. Callers hold s.mu.
func (s *DryRunStore) applyUpdates(key overlayKey, doc Document) Document {
	if fields, ok := s.updated[key]; ok {
		doc.Fields = cloneFields(doc.Fields)
		maps.Copy(doc.Fields, fields)
	}
	return doc
}
