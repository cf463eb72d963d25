// Package catalog models the bibliographic documents held by the library,
// the corpus each one contributes to the search index, and the repository
// contracts the storage backends implement.
package catalog

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/termfreq"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
)

type DocType string

const (
	DocTypeBook           DocType = "book"
	DocTypeNewsArticle    DocType = "news_article"
	DocTypeJournalArticle DocType = "journal_article"
	DocTypeLaw            DocType = "law"
	DocTypeVideo          DocType = "video"
	DocTypeReport         DocType = "report"
	DocTypeOther          DocType = "other"
)

var DocTypes = []DocType{
	DocTypeBook, DocTypeNewsArticle, DocTypeJournalArticle, DocTypeLaw,
	DocTypeVideo, DocTypeReport, DocTypeOther,
}

func (t DocType) Valid() bool {
	return slices.Contains(DocTypes, t)
}

type Status string

const (
	StatusDraft       Status = "draft"
	StatusUnderReview Status = "under review"
	StatusPublished   Status = "published"
)

// ParseStatus accepts the stored spellings plus "needs review", which older
// records and CSV exports use for StatusUnderReview.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draft":
		return StatusDraft, nil
	case "under review", "needs review", "under_review", "needs_review":
		return StatusUnderReview, nil
	case "published":
		return StatusPublished, nil
	}
	return "", apperrors.Invalid("unknown document status %q", s)
}

// BrokenLink is the link checker state of a document.
type BrokenLink int

const (
	LinkBroken    BrokenLink = 0
	LinkNotBroken BrokenLink = 1
	// LinkIgnore is set by an admin and is never overwritten by the checker.
	LinkIgnore BrokenLink = 2
)

func (b BrokenLink) String() string {
	switch b {
	case LinkBroken:
		return "broken"
	case LinkNotBroken:
		return "ok"
	case LinkIgnore:
		return "ignored"
	}
	return fmt.Sprintf("BrokenLink(%d)", int(b))
}

// Document is one catalogued work. Which descriptive fields are meaningful
// depends on DocType; unused ones stay empty.
type Document struct {
	ID              int64                `json:"id"`
	DocType         DocType              `json:"doc_type"`
	Day             int                  `json:"day,omitempty"`
	Month           int                  `json:"month,omitempty"`
	Year            int                  `json:"year,omitempty"`
	PostedDate      time.Time            `json:"posted_date"`
	LastEditedDate  time.Time            `json:"last_edited_date"`
	PostedBy        string               `json:"posted_by"`
	LastEditedBy    string               `json:"last_edited_by"`
	Title           string               `json:"title"`
	Description     string               `json:"description,omitempty"`
	Link            string               `json:"link,omitempty"`
	File            string               `json:"file,omitempty"`
	Citation        string               `json:"citation,omitempty"`
	Status          Status               `json:"document_status"`
	Volume          string               `json:"volume,omitempty"`
	Edition         string               `json:"edition,omitempty"`
	Series          string               `json:"series,omitempty"`
	Publisher       string               `json:"publisher,omitempty"`
	EditorFirstName string               `json:"editor_first_name,omitempty"`
	EditorLastName  string               `json:"editor_last_name,omitempty"`
	AuthorFirstName string               `json:"author_first_name,omitempty"`
	AuthorLastName  string               `json:"author_last_name,omitempty"`
	PageStart       string               `json:"page_start,omitempty"`
	PageEnd         string               `json:"page_end,omitempty"`
	Issue           string               `json:"issue,omitempty"`
	GovtBody        string               `json:"govt_body,omitempty"`
	Section         string               `json:"section,omitempty"`
	Region          string               `json:"region,omitempty"`
	Country         string               `json:"country,omitempty"`
	OtherType       string               `json:"other_type,omitempty"`
	Source          string               `json:"source,omitempty"`
	Studio          string               `json:"studio,omitempty"`
	TermFrequencies termfreq.Frequencies `json:"-"`
	BrokenLink      BrokenLink           `json:"broken_link"`
	Tags            []string             `json:"tags"`
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := *d
	c.Tags = slices.Clone(d.Tags)
	if d.TermFrequencies != nil {
		c.TermFrequencies = make(termfreq.Frequencies, len(d.TermFrequencies))
		for k, v := range d.TermFrequencies {
			c.TermFrequencies[k] = v
		}
	}
	return &c
}

// Validate checks the fields every document type needs and normalizes tags.
func (d *Document) Validate() error {
	if !d.DocType.Valid() {
		return apperrors.Invalid("unknown document type %q", d.DocType)
	}
	if strings.TrimSpace(d.Title) == "" {
		return apperrors.Invalid("title is required")
	}
	if d.Month < 0 || d.Month > 12 {
		return apperrors.Invalid("month %d out of range", d.Month)
	}
	if d.Day < 0 || d.Day > 31 {
		return apperrors.Invalid("day %d out of range", d.Day)
	}
	if d.Year < 0 {
		return apperrors.Invalid("year %d out of range", d.Year)
	}
	if d.DocType == DocTypeOther && strings.TrimSpace(d.OtherType) == "" {
		return apperrors.Invalid("other_type is required for documents of type other")
	}
	d.Tags = NormalizeTags(d.Tags)
	return nil
}

// NormalizeTags trims names, drops blanks and removes case-insensitive
// duplicates, keeping the first spelling.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// ParseMonth accepts 1-12 or an English month name or abbreviation. Blank
// means unknown and returns 0.
func ParseMonth(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 12 {
			return 0, apperrors.Invalid("month %d out of range", n)
		}
		return n, nil
	}
	for i, name := range monthNames {
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return i + 1, nil
		}
	}
	return 0, apperrors.Invalid("unknown month %q", s)
}

// MonthName returns the English name for 1-12 and "" otherwise.
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	name := monthNames[m-1]
	return strings.ToUpper(name[:1]) + name[1:]
}
