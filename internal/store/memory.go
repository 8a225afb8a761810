package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
)

type Op string

const (
	OpList   Op = "list"
	OpGet    Op = "get"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Fault makes matching calls on a MemoryStore fail with Err. An empty
// Collection or ID matches any value. Times limits how many calls fail;
// zero means every matching call.
type Fault struct {
	Op         Op
	Collection string
	ID         string
	Err        error
	Times      int
}

type memCollection struct {
	order []string
	docs  map[string]map[string]any
}

// MemoryStore is an in-process DocumentStore that keeps insertion order and
// supports fault injection.
type MemoryStore struct {
	mu     sync.Mutex
	dbs    map[string]map[string]*memCollection
	faults []*Fault
	calls  map[string]int
}

func NewMemoryStore(databaseIDs ...string) *MemoryStore {
	s := &MemoryStore{
		dbs:   make(map[string]map[string]*memCollection),
		calls: make(map[string]int),
	}
	for _, id := range databaseIDs {
		s.dbs[id] = make(map[string]*memCollection)
	}
	return s
}

// Seed inserts a document directly, bypassing faults and call counting.
func (s *MemoryStore) Seed(databaseID, collectionID, id string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collection(databaseID, collectionID, true)
	if _, exists := col.docs[id]; !exists {
		col.order = append(col.order, id)
	}
	col.docs[id] = cloneFields(fields)
}

// Snapshot returns a copy of a stored document without counting a call.
func (s *MemoryStore) Snapshot(databaseID, collectionID, id string) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collection(databaseID, collectionID, false)
	if col == nil {
		return Document{}, false
	}
	fields, ok := col.docs[id]
	if !ok {
		return Document{}, false
	}
	return Document{ID: id, Fields: cloneFields(fields)}, true
}

// Count returns the number of documents in a collection.
func (s *MemoryStore) Count(databaseID, collectionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collection(databaseID, collectionID, false)
	if col == nil {
		return 0
	}
	return len(col.docs)
}

func (s *MemoryStore) InjectFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fault := f
	s.faults = append(s.faults, &fault)
}

func (s *MemoryStore) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = nil
}

// Calls returns how many times op was invoked on collectionID.
func (s *MemoryStore) Calls(op Op, collectionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[callKey(op, collectionID)]
}

func callKey(op Op, collectionID string) string {
	return string(op) + ":" + collectionID
}

func (s *MemoryStore) List(ctx context.Context, databaseID, collectionID string, filters ...Filter) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter(ctx, OpList, databaseID, collectionID, ""); err != nil {
		return nil, err
	}

	col := s.collection(databaseID, collectionID, false)
	if col == nil {
		return []Document{}, nil
	}

	docs := make([]Document, 0, len(col.order))
	for _, id := range col.order {
		doc := Document{ID: id, Fields: cloneFields(col.docs[id])}
		if matches(doc, filters) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *MemoryStore) Get(ctx context.Context, databaseID, collectionID, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter(ctx, OpGet, databaseID, collectionID, id); err != nil {
		return Document{}, err
	}

	col := s.collection(databaseID, collectionID, false)
	if col == nil || col.docs[id] == nil {
		return Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, collectionID, id)
	}
	return Document{ID: id, Fields: cloneFields(col.docs[id])}, nil
}

func (s *MemoryStore) Create(ctx context.Context, databaseID, collectionID, id string, fields map[string]any) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter(ctx, OpCreate, databaseID, collectionID, id); err != nil {
		return Document{}, err
	}

	if id == "" {
		id = uuid.NewString()
	}

	col := s.collection(databaseID, collectionID, true)
	if _, exists := col.docs[id]; exists {
		return Document{}, fmt.Errorf("%w: %s/%s", ErrConflict, collectionID, id)
	}
	col.order = append(col.order, id)
	col.docs[id] = cloneFields(fields)

	return Document{ID: id, Fields: cloneFields(fields)}, nil
}

func (s *MemoryStore) Update(ctx context.Context, databaseID, collectionID, id string, fields map[string]any) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter(ctx, OpUpdate, databaseID, collectionID, id); err != nil {
		return Document{}, err
	}

	col := s.collection(databaseID, collectionID, false)
	if col == nil || col.docs[id] == nil {
		return Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, collectionID, id)
	}
	maps.Copy(col.docs[id], fields)

	return Document{ID: id, Fields: cloneFields(col.docs[id])}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, databaseID, collectionID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter(ctx, OpDelete, databaseID, collectionID, id); err != nil {
		return err
	}

	col := s.collection(databaseID, collectionID, false)
	if col == nil || col.docs[id] == nil {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collectionID, id)
	}
	delete(col.docs, id)
	col.order = slices.DeleteFunc(col.order, func(existing string) bool { return existing == id })

	return nil
}

// enter counts the call and applies context, database and fault checks. Callers hold s.mu.
func (s *MemoryStore) enter(ctx context.Context, op Op, databaseID, collectionID, id string) error {
	s.calls[callKey(op, collectionID)]++

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := s.dbs[databaseID]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDatabase, databaseID)
	}

	for _, f := range s.faults {
		if f.Op != op || (f.Collection != "" && f.Collection != collectionID) || (f.ID != "" && f.ID != id) {
			continue
		}
		if f.Times < 0 {
			continue
		}
		if f.Times > 0 {
			f.Times--
			if f.Times == 0 {
				f.Times = -1
			}
		}
		return f.Err
	}
	return nil
}

func (s *MemoryStore) collection(databaseID, collectionID string, create bool) *memCollection {
	db, ok := s.dbs[databaseID]
	if !ok {
		if !create {
			return nil
		}
		db = make(map[string]*memCollection)
		s.dbs[databaseID] = db
	}
	col, ok := db[collectionID]
	if !ok && create {
		col = &memCollection{docs: make(map[string]map[string]any)}
		db[collectionID] = col
	}
	return col
}

func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	return maps.Clone(fields)
}

func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if fmt.Sprint(doc.Get(f.Field)) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}
