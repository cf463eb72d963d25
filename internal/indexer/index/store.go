// Package index holds the inverted index: one entry per stem, mapping it to
// the set of document ids whose term frequencies contain it. Entries are
// created on first add and removed once their postings become empty.
package index

import (
	"context"
	"slices"
)

// Store is the persisted inverted index. Postings are returned sorted
// ascending with no duplicates.
type Store interface {
	// Postings returns the postings for each requested term that has an
	// entry. Unknown terms are absent from the result.
	Postings(ctx context.Context, terms []string) (map[string][]int64, error)
	// Add puts docID into term's postings, creating the entry if needed.
	// Adding an id that is already present is a no-op.
	Add(ctx context.Context, term string, docID int64) error
	// Remove takes docID out of term's postings. A missing entry or id is
	// not an error. An entry left empty is deleted.
	Remove(ctx context.Context, term string, docID int64) error
	// Replace discards every entry and installs entries in their place.
	Replace(ctx context.Context, entries map[string][]int64) error
	// Scan visits every entry in ascending term order.
	Scan(ctx context.Context, fn func(term string, postings []int64) error) error
	// Len returns the number of entries.
	Len(ctx context.Context) (int, error)
}

func normalizePostings(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
