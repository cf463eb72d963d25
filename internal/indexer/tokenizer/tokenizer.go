// Package tokenizer turns free text into the stemmed terms stored in the
// inverted index. Text is split on Unicode word boundaries, lower-cased,
// filtered against the English stop-word list and reduced with the Snowball
// English stemmer. Output order follows the input and duplicates are kept.
package tokenizer

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/segment"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kljensen/snowball/english"
)

const DefaultStemCacheSize = 4096

// Tokenizer normalizes text. The zero value is not usable; call New.
type Tokenizer struct {
	stems *lru.Cache[string, string]
}

// New returns a Tokenizer memoizing up to cacheSize word stems. The memo
// only saves work; it never changes output.
func New(cacheSize int) *Tokenizer {
	if cacheSize <= 0 {
		cacheSize = DefaultStemCacheSize
	}
	stems, err := lru.New[string, string](cacheSize)
	if err != nil {
		panic(err)
	}
	return &Tokenizer{stems: stems}
}

var defaultTokenizer = New(DefaultStemCacheSize)

// Normalize runs the package default Tokenizer.
func Normalize(text string) []string {
	return defaultTokenizer.Normalize(text)
}

func (t *Tokenizer) Normalize(text string) []string {
	if text == "" {
		return nil
	}
	terms := make([]string, 0, len(text)/6)
	// The direct segmenter works over the whole buffer, so input size is
	// unbounded. It halts at invalid UTF-8, which is replaced up front.
	data := []byte(strings.ToValidUTF8(text, " "))
	for len(data) > 0 {
		seg := segment.NewWordSegmenterDirect(data)
		consumed := 0
		for seg.Segment() {
			tok := seg.Bytes()
			consumed += len(tok)
			switch seg.Type() {
			case segment.Letter, segment.Number, segment.Kana, segment.Ideo:
			default:
				continue
			}
			word := strings.ToLower(string(tok))
			if IsStopWord(word) {
				continue
			}
			terms = append(terms, t.stem(word))
		}
		if err := seg.Err(); err != nil {
			slog.Warn("word segmentation stopped early", "error", err, "offset", consumed, "size", len(data))
		}
		if consumed >= len(data) {
			break
		}
		slog.Warn("word segmentation stalled, skipping one character", "offset", consumed, "size", len(data))
		_, size := utf8.DecodeRune(data[consumed:])
		data = data[consumed+size:]
	}
	return terms
}

func (t *Tokenizer) stem(word string) string {
	if s, ok := t.stems.Get(word); ok {
		return s
	}
	s := english.Stem(word, false)
	if s == "" {
		s = word
	}
	t.stems.Add(word, s)
	return s
}

// IsStopWord reports whether a lower-cased word is in the English stop list.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// stopWords is the NLTK English list.
var stopWords = map[string]struct{}{
	"i": {}, "me": {}, "my": {}, "myself": {}, "we": {}, "our": {}, "ours": {}, "ourselves": {},
	"you": {}, "you're": {}, "you've": {}, "you'll": {}, "you'd": {}, "your": {}, "yours": {},
	"yourself": {}, "yourselves": {}, "he": {}, "him": {}, "his": {}, "himself": {}, "she": {},
	"she's": {}, "her": {}, "hers": {}, "herself": {}, "it": {}, "it's": {}, "its": {}, "itself": {},
	"they": {}, "them": {}, "their": {}, "theirs": {}, "themselves": {}, "what": {}, "which": {},
	"who": {}, "whom": {}, "this": {}, "that": {}, "that'll": {}, "these": {}, "those": {},
	"am": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "having": {}, "do": {}, "does": {}, "did": {}, "doing": {},
	"a": {}, "an": {}, "the": {}, "and": {}, "but": {}, "if": {}, "or": {}, "because": {}, "as": {},
	"until": {}, "while": {}, "of": {}, "at": {}, "by": {}, "for": {}, "with": {}, "about": {},
	"against": {}, "between": {}, "into": {}, "through": {}, "during": {}, "before": {}, "after": {},
	"above": {}, "below": {}, "to": {}, "from": {}, "up": {}, "down": {}, "in": {}, "out": {},
	"on": {}, "off": {}, "over": {}, "under": {}, "again": {}, "further": {}, "then": {}, "once": {},
	"here": {}, "there": {}, "when": {}, "where": {}, "why": {}, "how": {}, "all": {}, "any": {},
	"both": {}, "each": {}, "few": {}, "more": {}, "most": {}, "other": {}, "some": {}, "such": {},
	"no": {}, "nor": {}, "not": {}, "only": {}, "own": {}, "same": {}, "so": {}, "than": {},
	"too": {}, "very": {}, "s": {}, "t": {}, "can": {}, "will": {}, "just": {}, "don": {},
	"don't": {}, "should": {}, "should've": {}, "now": {}, "d": {}, "ll": {}, "m": {}, "o": {},
	"re": {}, "ve": {}, "y": {}, "ain": {}, "aren": {}, "aren't": {}, "couldn": {}, "couldn't": {},
	"didn": {}, "didn't": {}, "doesn": {}, "doesn't": {}, "hadn": {}, "hadn't": {}, "hasn": {},
	"hasn't": {}, "haven": {}, "haven't": {}, "isn": {}, "isn't": {}, "ma": {}, "mightn": {},
	"mightn't": {}, "mustn": {}, "mustn't": {}, "needn": {}, "needn't": {}, "shan": {}, "shan't": {},
	"shouldn": {}, "shouldn't": {}, "wasn": {}, "wasn't": {}, "weren": {}, "weren't": {}, "won": {},
	"won't": {}, "wouldn": {}, "wouldn't": {},
}
