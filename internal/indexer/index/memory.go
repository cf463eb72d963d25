package index

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[int64]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]map[int64]struct{})}
}

func (m *MemoryStore) Postings(ctx context.Context, terms []string) (map[string][]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]int64, len(terms))
	for _, term := range terms {
		docs, ok := m.entries[term]
		if !ok {
			continue
		}
		out[term] = sortedIDs(docs)
	}
	return out, nil
}

func (m *MemoryStore) Add(ctx context.Context, term string, docID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, ok := m.entries[term]
	if !ok {
		docs = make(map[int64]struct{})
		m.entries[term] = docs
	}
	docs[docID] = struct{}{}
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, term string, docID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, ok := m.entries[term]
	if !ok {
		return nil
	}
	delete(docs, docID)
	if len(docs) == 0 {
		delete(m.entries, term)
	}
	return nil
}

func (m *MemoryStore) Replace(ctx context.Context, entries map[string][]int64) error {
	fresh := make(map[string]map[int64]struct{}, len(entries))
	for term, ids := range entries {
		if len(ids) == 0 {
			continue
		}
		docs := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			docs[id] = struct{}{}
		}
		fresh[term] = docs
	}
	m.mu.Lock()
	m.entries = fresh
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Scan(ctx context.Context, fn func(term string, postings []int64) error) error {
	m.mu.RLock()
	terms := make([]string, 0, len(m.entries))
	snapshot := make(map[string][]int64, len(m.entries))
	for term, docs := range m.entries {
		terms = append(terms, term)
		snapshot[term] = sortedIDs(docs)
	}
	m.mu.RUnlock()

	slices.Sort(terms)
	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(term, snapshot[term]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Len(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func sortedIDs(docs map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
