// Package csvio reads and writes the per-type CSV layouts used for bulk
// import and export of documents. Each document type has its own column
// layout; headers are matched by label, ignoring case and column order.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
)

// ExampleTitle marks the sample row of a template file; such rows are skipped.
const ExampleTitle = "Example"

type column struct {
	label string
	field string
}

var (
	head = []column{{"Id", "id"}, {"Title", "title"}}
	tail = []column{{"Description", "description"}, {"Link", "link"}, {"File", "file"}, {"Document Status", "document_status"}, {"Tags", "tags"}}
)

func layout(cols ...column) []column {
	out := append([]column{}, head...)
	out = append(out, cols...)
	return append(out, tail...)
}

var layouts = map[catalog.DocType][]column{
	catalog.DocTypeBook: layout(
		column{"Author First Name", "author_first_name"}, column{"Author Last Name", "author_last_name"},
		column{"Editor First Name", "editor_first_name"}, column{"Editor Last Name", "editor_last_name"},
		column{"Volume", "volume"}, column{"Edition", "edition"}, column{"Series", "series"},
		column{"Publisher Name", "publisher"},
		column{"Publication Month", "month"}, column{"Publication Year", "year"},
	),
	catalog.DocTypeNewsArticle: layout(
		column{"Author First Name", "author_first_name"}, column{"Author Last Name", "author_last_name"},
		column{"Publication", "publisher"},
		column{"Publication Day", "day"}, column{"Publication Month", "month"}, column{"Publication Year", "year"},
	),
	catalog.DocTypeJournalArticle: layout(
		column{"Author First Name", "author_first_name"}, column{"Author Last Name", "author_last_name"},
		column{"Publication", "publisher"}, column{"Volume", "volume"},
		column{"Start Page", "page_start"}, column{"End Page", "page_end"},
		column{"Publication Day", "day"}, column{"Publication Month", "month"}, column{"Publication Year", "year"},
	),
	catalog.DocTypeLaw: layout(
		column{"Citation", "citation"}, column{"Government Body", "govt_body"}, column{"Section", "section"},
		column{"Region", "region"}, column{"Country", "country"},
		column{"Enactment Day", "day"}, column{"Enactment Month", "month"}, column{"Enactment Year", "year"},
	),
	catalog.DocTypeVideo: layout(
		column{"Series", "series"},
		column{"First Name", "author_first_name"}, column{"Last Name", "author_last_name"},
		column{"Release Day", "day"}, column{"Release Month", "month"}, column{"Release Year", "year"},
		column{"Network/Studio", "studio"}, column{"Published/Uploaded By", "publisher"},
		column{"Source", "source"}, column{"Country", "country"},
	),
	catalog.DocTypeReport: layout(
		column{"First Name", "author_first_name"}, column{"Last Name", "author_last_name"},
		column{"Publisher", "publisher"},
		column{"Day", "day"}, column{"Month", "month"}, column{"Year", "year"},
	),
	catalog.DocTypeOther: layout(
		column{"Author First Name", "author_first_name"}, column{"Author Last Name", "author_last_name"},
		column{"Other Document Type", "other_type"},
		column{"Publication Day", "day"}, column{"Publication Month", "month"}, column{"Publication Year", "year"},
	),
}

// FileName is the conventional export file name for a document type.
func FileName(t catalog.DocType) string {
	return string(t) + ".csv"
}

// TypeFromFileName derives the document type from a file named like
// FileName returns.
func TypeFromFileName(name string) (catalog.DocType, bool) {
	t := catalog.DocType(strings.TrimSuffix(strings.ToLower(filepath.Base(name)), ".csv"))
	return t, t.Valid()
}

// Header returns the column labels written for t.
func Header(t catalog.DocType) []string {
	cols := layouts[t]
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.label
	}
	return out
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "*"))
}

// Reader yields documents from a CSV file of one document type.
type Reader struct {
	csv     *csv.Reader
	docType catalog.DocType
	fields  []string
	line    int
}

// NewReader reads the header row. Every header must name a column of the
// type's layout or be a document field name.
func NewReader(r io.Reader, t catalog.DocType) (*Reader, error) {
	cols, ok := layouts[t]
	if !ok {
		return nil, apperrors.Invalid("unknown document type %q", t)
	}
	byLabel := make(map[string]string, len(cols))
	for _, c := range cols {
		byLabel[normalizeLabel(c.label)] = c.field
	}
	known := catalog.FieldSet{}
	for _, f := range catalog.FieldNames() {
		known[f] = struct{}{}
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.Invalid("csv file is empty")
		}
		return nil, apperrors.Invalid("reading csv header: %v", err)
	}
	fields := make([]string, len(header))
	for i, h := range header {
		label := normalizeLabel(h)
		if f, ok := byLabel[label]; ok {
			fields[i] = f
			continue
		}
		if _, ok := known[label]; ok {
			fields[i] = label
			continue
		}
		return nil, apperrors.Invalid("unknown column %q for %s", h, t)
	}
	return &Reader{csv: cr, docType: t, fields: fields, line: 1}, nil
}

// Read returns the next document, or io.EOF after the last row. Example
// rows and blank rows are skipped. A blank status reads as published.
func (r *Reader) Read() (*catalog.Document, error) {
	for {
		record, err := r.csv.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, apperrors.Invalid("line %d: %v", r.line+1, err)
		}
		r.line++
		if blank(record) {
			continue
		}
		d := &catalog.Document{DocType: r.docType, BrokenLink: catalog.LinkNotBroken}
		for i, value := range record {
			if i >= len(r.fields) {
				break
			}
			if err := set(d, r.fields[i], strings.TrimSpace(value)); err != nil {
				return nil, apperrors.Invalid("line %d: %v", r.line, err)
			}
		}
		if d.Title == ExampleTitle {
			continue
		}
		if d.Status == "" {
			d.Status = catalog.StatusPublished
		}
		return d, nil
	}
}

// Line is the number of the last line read.
func (r *Reader) Line() int { return r.line }

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func atoi(field, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", field, value)
	}
	return n, nil
}

func set(d *catalog.Document, field, value string) error {
	var err error
	switch field {
	case "id":
		var id int
		id, err = atoi(field, value)
		d.ID = int64(id)
	case "day":
		d.Day, err = atoi(field, value)
	case "month":
		d.Month, err = catalog.ParseMonth(value)
	case "year":
		d.Year, err = atoi(field, value)
	case "document_status":
		if value != "" {
			d.Status, err = catalog.ParseStatus(value)
		}
	case "tags":
		d.Tags = catalog.NormalizeTags(strings.Split(value, ","))
	case "doc_type":
		if value != "" && catalog.DocType(value) != d.DocType {
			err = fmt.Errorf("row of type %q in a %s file", value, d.DocType)
		}
	default:
		if p := textField(d, field); p != nil {
			*p = value
		}
	}
	return err
}

func textField(d *catalog.Document, field string) *string {
	switch field {
	case "title":
		return &d.Title
	case "description":
		return &d.Description
	case "link":
		return &d.Link
	case "file":
		return &d.File
	case "citation":
		return &d.Citation
	case "volume":
		return &d.Volume
	case "edition":
		return &d.Edition
	case "series":
		return &d.Series
	case "publisher":
		return &d.Publisher
	case "editor_first_name":
		return &d.EditorFirstName
	case "editor_last_name":
		return &d.EditorLastName
	case "author_first_name":
		return &d.AuthorFirstName
	case "author_last_name":
		return &d.AuthorLastName
	case "page_start":
		return &d.PageStart
	case "page_end":
		return &d.PageEnd
	case "issue":
		return &d.Issue
	case "govt_body":
		return &d.GovtBody
	case "section":
		return &d.Section
	case "region":
		return &d.Region
	case "country":
		return &d.Country
	case "other_type":
		return &d.OtherType
	case "source":
		return &d.Source
	case "studio":
		return &d.Studio
	}
	return nil
}

func get(d *catalog.Document, field string) string {
	switch field {
	case "id":
		return strconv.FormatInt(d.ID, 10)
	case "day":
		return itoa(d.Day)
	case "month":
		return catalog.MonthName(d.Month)
	case "year":
		return itoa(d.Year)
	case "document_status":
		return string(d.Status)
	case "tags":
		return strings.Join(d.Tags, ", ")
	}
	if p := textField(d, field); p != nil {
		return *p
	}
	return ""
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// Writer writes documents of one type in that type's layout.
type Writer struct {
	csv     *csv.Writer
	docType catalog.DocType
	cols    []column
}

// NewWriter writes the header row.
func NewWriter(w io.Writer, t catalog.DocType) (*Writer, error) {
	cols, ok := layouts[t]
	if !ok {
		return nil, apperrors.Invalid("unknown document type %q", t)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(t)); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	return &Writer{csv: cw, docType: t, cols: cols}, nil
}

// Write appends d. Documents of another type are rejected.
func (w *Writer) Write(d *catalog.Document) error {
	if d.DocType != w.docType {
		return fmt.Errorf("document %d is a %s, not a %s", d.ID, d.DocType, w.docType)
	}
	record := make([]string, len(w.cols))
	for i, c := range w.cols {
		record[i] = get(d, c.field)
	}
	return w.csv.Write(record)
}

func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}
