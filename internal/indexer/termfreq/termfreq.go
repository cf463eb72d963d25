// Package termfreq counts stems per document and provides the term-set
// arithmetic used by index maintenance.
package termfreq

import (
	"encoding/json"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/tokenizer"
)

// Frequencies maps a stem to its occurrence count in one document.
type Frequencies map[string]int

// Set is a set of stems.
type Set map[string]struct{}

// Compute tokenizes corpus and counts each stem.
func Compute(corpus string) Frequencies {
	return FromTerms(tokenizer.Normalize(corpus))
}

// FromTerms counts an already-normalized term sequence.
func FromTerms(terms []string) Frequencies {
	freqs := make(Frequencies, len(terms))
	for _, t := range terms {
		freqs[t]++
	}
	return freqs
}

// Decode reads a persisted mapping. Missing or malformed data yields an
// empty mapping and ok=false instead of an error; legacy rows imported
// without indexing must score zero rather than fail a search.
func Decode(raw []byte) (freqs Frequencies, ok bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return Frequencies{}, true
	}
	if err := json.Unmarshal(raw, &freqs); err != nil {
		return Frequencies{}, false
	}
	for term, n := range freqs {
		if n <= 0 {
			delete(freqs, term)
		}
	}
	return freqs, true
}

// Terms returns the key set. A nil mapping yields an empty set.
func (f Frequencies) Terms() Set {
	s := make(Set, len(f))
	for term := range f {
		s[term] = struct{}{}
	}
	return s
}

func NewSet(terms ...string) Set {
	s := make(Set, len(terms))
	for _, t := range terms {
		s[t] = struct{}{}
	}
	return s
}

func (s Set) Has(term string) bool {
	_, ok := s[term]
	return ok
}

// Difference returns the terms in s that are not in other.
func (s Set) Difference(other Set) Set {
	out := make(Set)
	for t := range s {
		if !other.Has(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
