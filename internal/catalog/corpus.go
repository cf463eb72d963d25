package catalog

import (
	"strconv"
	"strings"
)

type field struct {
	name  string
	value func(*Document) string
	// split, when set, breaks a multi-valued field into separate words.
	split string
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// fields lists every document field in corpus order.
var fields = []field{
	{name: "id", value: func(d *Document) string { return strconv.FormatInt(d.ID, 10) }},
	{name: "doc_type", value: func(d *Document) string { return string(d.DocType) }, split: "_"},
	{name: "day", value: func(d *Document) string { return itoa(d.Day) }},
	{name: "month", value: func(d *Document) string { return MonthName(d.Month) }},
	{name: "year", value: func(d *Document) string { return itoa(d.Year) }},
	{name: "posted_date", value: func(d *Document) string { return d.PostedDate.Format("2006-01-02") }},
	{name: "last_edited_date", value: func(d *Document) string { return d.LastEditedDate.Format("2006-01-02") }},
	{name: "posted_by", value: func(d *Document) string { return d.PostedBy }},
	{name: "last_edited_by", value: func(d *Document) string { return d.LastEditedBy }},
	{name: "title", value: func(d *Document) string { return d.Title }},
	{name: "description", value: func(d *Document) string { return d.Description }},
	{name: "link", value: func(d *Document) string { return d.Link }},
	{name: "file", value: func(d *Document) string { return d.File }},
	{name: "citation", value: func(d *Document) string { return d.Citation }},
	{name: "document_status", value: func(d *Document) string { return string(d.Status) }},
	{name: "volume", value: func(d *Document) string { return d.Volume }},
	{name: "edition", value: func(d *Document) string { return d.Edition }},
	{name: "series", value: func(d *Document) string { return d.Series }},
	{name: "publisher", value: func(d *Document) string { return d.Publisher }},
	{name: "editor_first_name", value: func(d *Document) string { return d.EditorFirstName }, split: ","},
	{name: "editor_last_name", value: func(d *Document) string { return d.EditorLastName }, split: ","},
	{name: "author_first_name", value: func(d *Document) string { return d.AuthorFirstName }, split: ","},
	{name: "author_last_name", value: func(d *Document) string { return d.AuthorLastName }, split: ","},
	{name: "page_start", value: func(d *Document) string { return d.PageStart }},
	{name: "page_end", value: func(d *Document) string { return d.PageEnd }},
	{name: "issue", value: func(d *Document) string { return d.Issue }},
	{name: "govt_body", value: func(d *Document) string { return d.GovtBody }},
	{name: "section", value: func(d *Document) string { return d.Section }},
	{name: "region", value: func(d *Document) string { return d.Region }},
	{name: "country", value: func(d *Document) string { return d.Country }},
	{name: "other_type", value: func(d *Document) string { return d.OtherType }},
	{name: "source", value: func(d *Document) string { return d.Source }},
	{name: "studio", value: func(d *Document) string { return d.Studio }},
	{name: "broken_link", value: func(d *Document) string { return d.BrokenLink.String() }},
	{name: "tags", value: func(d *Document) string { return strings.Join(d.Tags, ",") }, split: ","},
}

// FieldNames returns every name accepted in an exclusion list.
func FieldNames() []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	return names
}

// FieldSet is a set of document field names.
type FieldSet map[string]struct{}

// DefaultExcludedFields leaves out identifiers, dates, people recorded for
// auditing, workflow state, locators and the free-form tag list.
var DefaultExcludedFields = []string{
	"id", "day", "month", "year", "posted_date", "last_edited_date",
	"posted_by", "last_edited_by", "edition", "volume", "broken_link",
	"file", "document_status", "link", "page_start", "page_end", "tags",
}

// NewFieldSet builds an exclusion set. A nil slice yields the default
// exclusions; an empty non-nil slice excludes nothing. Unknown names are
// returned so configuration mistakes can be reported.
func NewFieldSet(names []string) (FieldSet, []string) {
	if names == nil {
		names = DefaultExcludedFields
	}
	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f.name] = struct{}{}
	}
	set := make(FieldSet, len(names))
	var unknown []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := known[n]; !ok {
			unknown = append(unknown, n)
			continue
		}
		set[n] = struct{}{}
	}
	return set, unknown
}

// Corpus concatenates the content-bearing fields not in excluded, single
// space separated. Multi-valued fields contribute each value separately.
func (d *Document) Corpus(excluded FieldSet) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := excluded[f.name]; skip {
			continue
		}
		v := f.value(d)
		if v == "" {
			continue
		}
		if f.split == "" {
			parts = append(parts, v)
			continue
		}
		for _, piece := range strings.Split(v, f.split) {
			if piece = strings.TrimSpace(piece); piece != "" {
				parts = append(parts, piece)
			}
		}
	}
	return strings.Join(parts, " ")
}
