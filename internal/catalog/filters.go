package catalog

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
	"github.com/araddon/dateparse"
)

// DateBound is a (year, month, day) tuple compared lexicographically.
// Unknown parts of a document date are 0.
type DateBound struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (b DateBound) compare(o DateBound) int {
	if b.Year != o.Year {
		return b.Year - o.Year
	}
	if b.Month != o.Month {
		return b.Month - o.Month
	}
	return b.Day - o.Day
}

var (
	yearOnly  = regexp.MustCompile(`^\d{4}$`)
	yearMonth = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})$`)
)

// ParseDate reads a filter bound. "2019" and "2019-05" are accepted as
// partial dates; anything else goes through dateparse. Parts missing from an
// end bound are filled with their maximum so the bound stays inclusive.
func ParseDate(s string, end bool) (DateBound, error) {
	s = strings.TrimSpace(s)
	var b DateBound
	switch {
	case yearOnly.MatchString(s):
		b.Year, _ = strconv.Atoi(s)
		if end {
			b.Month, b.Day = 12, 31
		}
	case yearMonth.MatchString(s):
		m := yearMonth.FindStringSubmatch(s)
		b.Year, _ = strconv.Atoi(m[1])
		b.Month, _ = strconv.Atoi(m[2])
		if b.Month < 1 || b.Month > 12 {
			return DateBound{}, apperrors.Invalid("month %d out of range in %q", b.Month, s)
		}
		if end {
			b.Day = 31
		}
	default:
		t, err := dateparse.ParseAny(s)
		if err != nil {
			return DateBound{}, apperrors.Invalid("unrecognised date %q", s)
		}
		b = DateBound{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
	}
	return b, nil
}

// Filters are the structural constraints of a search. Empty slices and nil
// bounds do not constrain.
type Filters struct {
	DocTypes []DocType  `json:"doc_types,omitempty"`
	Statuses []Status   `json:"statuses,omitempty"`
	Tags     []string   `json:"tags,omitempty"`
	Start    *DateBound `json:"start,omitempty"`
	End      *DateBound `json:"end,omitempty"`
}

// Normalize sorts and de-duplicates every list and lower-cases tags, so two
// equivalent filters compare and serialize identically.
func (f Filters) Normalize() Filters {
	out := Filters{Start: f.Start, End: f.End}
	if len(f.DocTypes) > 0 {
		out.DocTypes = slices.Compact(slices.Sorted(slices.Values(f.DocTypes)))
	}
	if len(f.Statuses) > 0 {
		out.Statuses = slices.Compact(slices.Sorted(slices.Values(f.Statuses)))
	}
	if len(f.Tags) > 0 {
		tags := make([]string, 0, len(f.Tags))
		for _, t := range f.Tags {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				tags = append(tags, t)
			}
		}
		slices.Sort(tags)
		out.Tags = slices.Compact(tags)
	}
	return out
}

// Validate rejects unknown types and an inverted date range.
func (f Filters) Validate() error {
	for _, t := range f.DocTypes {
		if !t.Valid() {
			return apperrors.Invalid("unknown document type %q", t)
		}
	}
	if f.Start != nil && f.End != nil && f.Start.compare(*f.End) > 0 {
		return apperrors.Invalid("start date is after end date")
	}
	return nil
}

// Match reports whether d satisfies every filter. Tags match when the
// document carries at least one requested tag, ignoring case. A document
// with no year never matches a date bound.
func (f Filters) Match(d *Document) bool {
	if len(f.DocTypes) > 0 && !slices.Contains(f.DocTypes, d.DocType) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, d.Status) {
		return false
	}
	if len(f.Tags) > 0 && !hasAnyTag(d.Tags, f.Tags) {
		return false
	}
	if f.Start != nil || f.End != nil {
		if d.Year == 0 {
			return false
		}
		date := DateBound{Year: d.Year, Month: d.Month, Day: d.Day}
		if f.Start != nil && date.compare(*f.Start) < 0 {
			return false
		}
		if f.End != nil && date.compare(*f.End) > 0 {
			return false
		}
	}
	return true
}

func hasAnyTag(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}
