// Package memory holds a map-backed storage.Store implementation, used for
// tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"almanac/server/storage"
)

// Store implements storage.Store using in-memory maps.
type Store struct {
	mu   sync.RWMutex
	docs map[storage.Collection]map[string]storage.Document
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		docs: make(map[storage.Collection]map[string]storage.Document),
	}
}

func (s *Store) collection(col storage.Collection) map[string]storage.Document {
	m, ok := s.docs[col]
	if !ok {
		m = make(map[string]storage.Document)
		s.docs[col] = m
	}
	return m
}

func (s *Store) Get(_ context.Context, col storage.Collection, id string) (storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[col][id]
	if !ok {
		return nil, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "document not found: " + string(col) + "/" + id,
		}
	}
	return storage.Clone(doc), nil
}

func (s *Store) List(_ context.Context, col storage.Collection, ownerID string, opts *storage.ListOptions) ([]storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.docs[col]))
	for id := range s.docs[col] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := []storage.Document{}
	for _, id := range ids {
		doc := s.docs[col][id]
		if storage.Matches(doc, ownerID, opts) {
			out = append(out, storage.WithID(id, doc))
		}
	}
	return out, nil
}

func (s *Store) Set(_ context.Context, col storage.Collection, id string, doc storage.Document, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(col, id, doc, merge)
	return nil
}

func (s *Store) Delete(_ context.Context, col storage.Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collection(col), id)
	return nil
}

func (s *Store) NewID() string {
	return uuid.NewString()
}

// apply assumes the write lock is held.
func (s *Store) apply(col storage.Collection, id string, doc storage.Document, merge bool) {
	m := s.collection(col)
	if merge {
		if existing, ok := m[id]; ok {
			merged := storage.Clone(existing)
			for k, v := range doc {
				merged[k] = v
			}
			m[id] = merged
			return
		}
	}
	m[id] = storage.Clone(doc)
}

// Len reports the number of documents currently held in a collection.
func (s *Store) Len(col storage.Collection) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[col])
}

type stagedOp struct {
	col    storage.Collection
	id     string
	doc    storage.Document
	merge  bool
	remove bool
}

type batch struct {
	store *Store
	ops   []stagedOp
}

func (s *Store) Batch() storage.Batch {
	return &batch{store: s}
}

func (b *batch) Set(col storage.Collection, id string, doc storage.Document, merge bool) {
	b.ops = append(b.ops, stagedOp{col: col, id: id, doc: storage.Clone(doc), merge: merge})
}

func (b *batch) Delete(col storage.Collection, id string) {
	b.ops = append(b.ops, stagedOp{col: col, id: id, remove: true})
}

func (b *batch) Len() int {
	return len(b.ops)
}

// Commit applies the staged operations under one write lock. Map mutation
// cannot fail mid-way, so the all-or-nothing guarantee holds trivially.
func (b *batch) Commit(_ context.Context) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	for _, op := range b.ops {
		if op.remove {
			delete(b.store.collection(op.col), op.id)
			continue
		}
		b.store.apply(op.col, op.id, op.doc, op.merge)
	}
	b.ops = nil
	return nil
}
