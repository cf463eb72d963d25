package catalog

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/termfreq"
)

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Suggestion struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Link        string    `json:"link,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type SavedDocument struct {
	Document  *Document `json:"document"`
	SavedDate time.Time `json:"saved_date"`
}

// Order selects the sort of a listing.
type Order int

const (
	// OrderRecent sorts by last edit, newest first, then id descending.
	OrderRecent Order = iota
	// OrderID sorts by id ascending.
	OrderID
)

// ListOptions selects documents. Zero values do not constrain; Limit 0
// returns every match.
type ListOptions struct {
	Filters  Filters
	IDs      []int64
	PostedBy string
	Broken   *BrokenLink
	Order    Order
	Limit    int
	Offset   int
}

// Page is one slice of a listing plus the number of matches before paging.
type Page struct {
	Documents []*Document `json:"documents"`
	Total     int         `json:"total"`
}

// DocumentRepository persists documents together with their tag names and
// term frequencies.
type DocumentRepository interface {
	Get(ctx context.Context, id int64) (*Document, error)
	// GetForUpdate is Get plus a write lock held until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Document, error)
	Create(ctx context.Context, d *Document) error
	Update(ctx context.Context, d *Document) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, opts ListOptions) (Page, error)
	Count(ctx context.Context) (int, error)
	SetBrokenLink(ctx context.Context, id int64, state BrokenLink) error
	EachTermFrequencies(ctx context.Context, fn func(docID int64, freqs termfreq.Frequencies) error) error
}

type TagRepository interface {
	List(ctx context.Context) ([]Tag, error)
	// Ensure returns the tag with name, matched case-insensitively, creating
	// it if needed.
	Ensure(ctx context.Context, name string) (Tag, error)
	Delete(ctx context.Context, id int64) error
}

type SuggestionRepository interface {
	Create(ctx context.Context, s *Suggestion) error
	Get(ctx context.Context, id int64) (*Suggestion, error)
	List(ctx context.Context) ([]Suggestion, error)
	Delete(ctx context.Context, id int64) error
}

type SavedRepository interface {
	Save(ctx context.Context, userID string, docID int64) error
	Unsave(ctx context.Context, userID string, docID int64) error
	List(ctx context.Context, userID string) ([]SavedDocument, error)
}

// Repositories is the set of stores visible inside one unit of work.
type Repositories interface {
	Documents() DocumentRepository
	Tags() TagRepository
	Suggestions() SuggestionRepository
	Saved() SavedRepository
	Index() index.Store
}

// Store is a storage backend. Do runs fn atomically: a returned error
// discards every change fn made, including index changes.
type Store interface {
	Repositories
	Do(ctx context.Context, fn func(r Repositories) error) error
	Ping(ctx context.Context) error
}
