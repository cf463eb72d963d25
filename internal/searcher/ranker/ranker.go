// Package ranker scores documents against a query with plain TF-IDF: the
// sum over query terms of term frequency times inverse document frequency,
// without length normalization.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/termfreq"
)

type ScoredDoc struct {
	DocID int64   `json:"doc_id"`
	Score float64 `json:"score"`
}

// Params carries the corpus statistics scoring depends on.
type Params struct {
	// TotalDocs counts every stored document, ignoring query filters.
	TotalDocs int
	// DocFreq is the postings size per query term; absent terms count 0.
	DocFreq map[string]int
}

// IDF returns ln(N/(1+df)). It is negative when a term occurs in every
// document and 0 for an empty corpus.
func IDF(totalDocs, docFreq int) float64 {
	if totalDocs <= 0 {
		return 0
	}
	return math.Log(float64(totalDocs) / float64(1+docFreq))
}

// Rank scores each candidate and orders them by descending score, then by
// ascending id. A term repeated in the query counts once per repetition.
func Rank(queryTerms []string, candidates map[int64]termfreq.Frequencies, params Params) []ScoredDoc {
	weights := make(map[string]float64, len(queryTerms))
	for _, term := range queryTerms {
		if _, ok := weights[term]; !ok {
			weights[term] = IDF(params.TotalDocs, params.DocFreq[term])
		}
	}
	qtf := termfreq.FromTerms(queryTerms)
	distinct := qtf.Terms().Sorted()

	result := make([]ScoredDoc, 0, len(candidates))
	for docID, freqs := range candidates {
		var score float64
		for _, term := range distinct {
			score += float64(qtf[term]) * float64(freqs[term]) * weights[term]
		}
		// Scores are reported to 4 places; ties are decided on that value.
		result = append(result, ScoredDoc{DocID: docID, Score: math.Round(score*10000) / 10000})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	return result
}
