package store

import (
	"context"
	"errors"

	"ticket-maintenance/utils"
)

// BreakerStore fails fast once the wrapped store keeps failing, so a pass
// stops issuing per-record calls against a store that is down. Missing and
// conflicting documents are answers, not failures.
type BreakerStore struct {
	next    DocumentStore
	breaker *utils.CircuitBreaker
}

func NewBreakerStore(next DocumentStore, breaker *utils.CircuitBreaker) *BreakerStore {
	breaker.IsSuccessful = func(err error) bool {
		return err == nil ||
			errors.Is(err, ErrNotFound) ||
			errors.Is(err, ErrConflict) ||
			errors.Is(err, context.Canceled)
	}
	return &BreakerStore{next: next, breaker: breaker}
}

func (s *BreakerStore) List(ctx context.Context, databaseID, collectionID string, filters ...Filter) ([]Document, error) {
	var docs []Document
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		docs, err = s.next.List(ctx, databaseID, collectionID, filters...)
		return err
	})
	return docs, err
}

func (s *BreakerStore) Get(ctx context.Context, databaseID, collectionID, id string) (Document, error) {
	var doc Document
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.next.Get(ctx, databaseID, collectionID, id)
		return err
	})
	return doc, err
}

func (s *BreakerStore) Create(ctx context.Context, databaseID, collectionID, id string, fields map[string]any) (Document, error) {
	var doc Document
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.next.Create(ctx, databaseID, collectionID, id, fields)
		return err
	})
	return doc, err
}

func (s *BreakerStore) Update(ctx context.Context, databaseID, collectionID, id string, fields map[string]any) (Document, error) {
	var doc Document
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.next.Update(ctx, databaseID, collectionID, id, fields)
		return err
	})
	return doc, err
}

func (s *BreakerStore) Delete(ctx context.Context, databaseID, collectionID, id string) error {
	return s.breaker.Do(ctx, func(ctx context.Context) error {
		return s.next.Delete(ctx, databaseID, collectionID, id)
	})
}
