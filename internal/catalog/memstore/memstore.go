// Package memstore is an in-process catalog.Store used by tests, benchmarks
// and single-binary demos. Do serializes units of work and restores a
// snapshot when one fails.
package memstore

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/termfreq"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
)

type Store struct {
	txMu sync.Mutex

	mu          sync.RWMutex
	docs        map[int64]*catalog.Document
	tags        map[int64]catalog.Tag
	suggestions map[int64]catalog.Suggestion
	saved       map[string]map[int64]time.Time
	nextID      int64
	idx         *index.MemoryStore
	now         func() time.Time
}

func New() *Store {
	return &Store{
		docs:        make(map[int64]*catalog.Document),
		tags:        make(map[int64]catalog.Tag),
		suggestions: make(map[int64]catalog.Suggestion),
		saved:       make(map[string]map[int64]time.Time),
		idx:         index.NewMemoryStore(),
		now:         time.Now,
	}
}

func (s *Store) Documents() catalog.DocumentRepository     { return documents{s} }
func (s *Store) Tags() catalog.TagRepository               { return tags{s} }
func (s *Store) Suggestions() catalog.SuggestionRepository { return suggestions{s} }
func (s *Store) Saved() catalog.SavedRepository            { return saved{s} }
func (s *Store) Index() index.Store                        { return s.idx }

func (s *Store) Ping(ctx context.Context) error { return nil }

type snapshot struct {
	docs        map[int64]*catalog.Document
	tags        map[int64]catalog.Tag
	suggestions map[int64]catalog.Suggestion
	saved       map[string]map[int64]time.Time
	nextID      int64
	index       map[string][]int64
}

func (s *Store) Do(ctx context.Context, fn func(r catalog.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) snapshot(ctx context.Context) (*snapshot, error) {
	s.mu.RLock()
	snap := &snapshot{
		docs:        make(map[int64]*catalog.Document, len(s.docs)),
		tags:        maps.Clone(s.tags),
		suggestions: maps.Clone(s.suggestions),
		saved:       make(map[string]map[int64]time.Time, len(s.saved)),
		nextID:      s.nextID,
		index:       make(map[string][]int64),
	}
	for id, d := range s.docs {
		snap.docs[id] = d.Clone()
	}
	for user, m := range s.saved {
		snap.saved[user] = maps.Clone(m)
	}
	s.mu.RUnlock()

	err := s.idx.Scan(ctx, func(term string, ids []int64) error {
		snap.index[term] = ids
		return nil
	})
	return snap, err
}

func (s *Store) restore(snap *snapshot) {
	s.mu.Lock()
	s.docs = snap.docs
	s.tags = snap.tags
	s.suggestions = snap.suggestions
	s.saved = snap.saved
	s.nextID = snap.nextID
	s.mu.Unlock()
	s.idx.Replace(context.Background(), snap.index)
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

type documents struct{ s *Store }

func (r documents) Get(ctx context.Context, id int64) (*catalog.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.docs[id]
	if !ok {
		return nil, apperrors.NotFound(apperrors.ErrDocumentNotFound, id)
	}
	return d.Clone(), nil
}

func (r documents) GetForUpdate(ctx context.Context, id int64) (*catalog.Document, error) {
	return r.Get(ctx, id)
}

func (r documents) Create(ctx context.Context, d *catalog.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d.ID == 0 {
		d.ID = r.s.id()
	} else if _, taken := r.s.docs[d.ID]; taken {
		return apperrors.Invalid("document %d already exists", d.ID)
	} else if d.ID > r.s.nextID {
		r.s.nextID = d.ID
	}
	r.s.docs[d.ID] = d.Clone()
	return nil
}

func (r documents) Update(ctx context.Context, d *catalog.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.docs[d.ID]; !ok {
		return apperrors.NotFound(apperrors.ErrDocumentNotFound, d.ID)
	}
	r.s.docs[d.ID] = d.Clone()
	return nil
}

func (r documents) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.docs[id]; !ok {
		return apperrors.NotFound(apperrors.ErrDocumentNotFound, id)
	}
	delete(r.s.docs, id)
	for _, m := range r.s.saved {
		delete(m, id)
	}
	return nil
}

func (r documents) List(ctx context.Context, opts catalog.ListOptions) (catalog.Page, error) {
	r.s.mu.RLock()
	var ids map[int64]struct{}
	if opts.IDs != nil {
		ids = make(map[int64]struct{}, len(opts.IDs))
		for _, id := range opts.IDs {
			ids[id] = struct{}{}
		}
	}
	matched := make([]*catalog.Document, 0)
	for _, d := range r.s.docs {
		if ids != nil {
			if _, ok := ids[d.ID]; !ok {
				continue
			}
		}
		if opts.PostedBy != "" && d.PostedBy != opts.PostedBy {
			continue
		}
		if opts.Broken != nil && d.BrokenLink != *opts.Broken {
			continue
		}
		if !opts.Filters.Match(d) {
			continue
		}
		matched = append(matched, d.Clone())
	}
	r.s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *catalog.Document) int {
		if opts.Order == catalog.OrderRecent {
			if c := b.LastEditedDate.Compare(a.LastEditedDate); c != 0 {
				return c
			}
			return compareID(b.ID, a.ID)
		}
		return compareID(a.ID, b.ID)
	})
	page := catalog.Page{Total: len(matched)}
	start := min(max(opts.Offset, 0), len(matched))
	end := len(matched)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, len(matched))
	}
	page.Documents = matched[start:end]
	return page, nil
}

func compareID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (r documents) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.docs), nil
}

func (r documents) SetBrokenLink(ctx context.Context, id int64, state catalog.BrokenLink) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.docs[id]
	if !ok {
		return apperrors.NotFound(apperrors.ErrDocumentNotFound, id)
	}
	d.BrokenLink = state
	return nil
}

func (r documents) EachTermFrequencies(ctx context.Context, fn func(int64, termfreq.Frequencies) error) error {
	r.s.mu.RLock()
	type row struct {
		id    int64
		freqs termfreq.Frequencies
	}
	rows := make([]row, 0, len(r.s.docs))
	for id, d := range r.s.docs {
		rows = append(rows, row{id, maps.Clone(d.TermFrequencies)})
	}
	r.s.mu.RUnlock()
	slices.SortFunc(rows, func(a, b row) int { return compareID(a.id, b.id) })
	for _, rw := range rows {
		if err := fn(rw.id, rw.freqs); err != nil {
			return err
		}
	}
	return nil
}

type tags struct{ s *Store }

func (r tags) List(ctx context.Context) ([]catalog.Tag, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := slices.Collect(maps.Values(r.s.tags))
	slices.SortFunc(out, func(a, b catalog.Tag) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out, nil
}

func (r tags) Ensure(ctx context.Context, name string) (catalog.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.Tag{}, apperrors.Invalid("tag name is required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tags {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	t := catalog.Tag{ID: r.s.id(), Name: name}
	r.s.tags[t.ID] = t
	return t, nil
}

func (r tags) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tags[id]
	if !ok {
		return apperrors.NotFound(apperrors.ErrTagNotFound, id)
	}
	delete(r.s.tags, id)
	for _, d := range r.s.docs {
		d.Tags = slices.DeleteFunc(d.Tags, func(n string) bool { return strings.EqualFold(n, t.Name) })
	}
	return nil
}

type suggestions struct{ s *Store }

func (r suggestions) Create(ctx context.Context, sg *catalog.Suggestion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sg.ID = r.s.id()
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = r.s.now().UTC()
	}
	r.s.suggestions[sg.ID] = *sg
	return nil
}

func (r suggestions) Get(ctx context.Context, id int64) (*catalog.Suggestion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sg, ok := r.s.suggestions[id]
	if !ok {
		return nil, apperrors.NotFound(apperrors.ErrSuggestionNotFound, id)
	}
	return &sg, nil
}

func (r suggestions) List(ctx context.Context) ([]catalog.Suggestion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := slices.Collect(maps.Values(r.s.suggestions))
	slices.SortFunc(out, func(a, b catalog.Suggestion) int { return compareID(b.ID, a.ID) })
	return out, nil
}

func (r suggestions) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.suggestions[id]; !ok {
		return apperrors.NotFound(apperrors.ErrSuggestionNotFound, id)
	}
	delete(r.s.suggestions, id)
	return nil
}

type saved struct{ s *Store }

func (r saved) Save(ctx context.Context, userID string, docID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.docs[docID]; !ok {
		return apperrors.NotFound(apperrors.ErrDocumentNotFound, docID)
	}
	m, ok := r.s.saved[userID]
	if !ok {
		m = make(map[int64]time.Time)
		r.s.saved[userID] = m
	}
	if _, exists := m[docID]; !exists {
		m[docID] = r.s.now().UTC()
	}
	return nil
}

func (r saved) Unsave(ctx context.Context, userID string, docID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.saved[userID], docID)
	return nil
}

func (r saved) List(ctx context.Context, userID string) ([]catalog.SavedDocument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]catalog.SavedDocument, 0, len(r.s.saved[userID]))
	for id, at := range r.s.saved[userID] {
		if d, ok := r.s.docs[id]; ok {
			out = append(out, catalog.SavedDocument{Document: d.Clone(), SavedDate: at})
		}
	}
	slices.SortFunc(out, func(a, b catalog.SavedDocument) int {
		if c := b.SavedDate.Compare(a.SavedDate); c != 0 {
			return c
		}
		return compareID(a.Document.ID, b.Document.ID)
	})
	return out, nil
}
