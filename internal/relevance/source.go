// Package relevance holds the per-request analysis of a source item shared
// by the scorer, the anchor extractor and the ranker.
package relevance

import (
	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/internal/indexer/tokenizer"
)

// Source is a source item tokenized once per request.
type Source struct {
	Item       content.Item
	Words      []tokenizer.Word
	TermFreq   map[string]int
	BodyTerms  map[string]struct{}
	TitleTerms map[string]struct{}
	// Keywords are the top-N most frequent body terms.
	Keywords   map[string]struct{}
	Categories map[string]struct{}
}

// Analyze tokenizes item. keywordLimit bounds the extracted keyword set.
func Analyze(item content.Item, keywordLimit int) *Source {
	words := tokenizer.Words(item.Body)
	freq := tokenizer.Frequencies(words)
	bodyTerms := make(map[string]struct{}, len(freq))
	for t := range freq {
		bodyTerms[t] = struct{}{}
	}
	keywords := make(map[string]struct{}, keywordLimit)
	for _, t := range tokenizer.TopTerms(freq, keywordLimit) {
		keywords[t] = struct{}{}
	}
	return &Source{
		Item:       item,
		Words:      words,
		TermFreq:   freq,
		BodyTerms:  bodyTerms,
		TitleTerms: tokenizer.TermSet(item.Title),
		Keywords:   keywords,
		Categories: content.TagSet(item.CategoryTags),
	}
}

// FirstWord returns the first body word whose stemmed term equals term.
func (s *Source) FirstWord(term string) (tokenizer.Word, bool) {
	for _, w := range s.Words {
		if w.Term == term {
			return w, true
		}
	}
	return tokenizer.Word{}, false
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Intersects reports whether a and b share at least one element.
func Intersects(a, b map[string]struct{}) bool {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	for t := range small {
		if _, ok := large[t]; ok {
			return true
		}
	}
	return false
}
