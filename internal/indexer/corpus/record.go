package corpus

import (
	"strings"
	"unicode/utf8"

	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/internal/indexer/tokenizer"
)

const summaryRunes = 200

// Record is the indexed projection of a catalog item. Its sets are built
// once per snapshot and must be treated as read-only.
type Record struct {
	ID       string
	Type     content.Type
	Title    string
	URL      string
	URLKey   string
	Summary  string
	Keywords []string

	TitleTerms   map[string]struct{}
	KeywordTerms map[string]struct{}
	Categories   map[string]struct{}
}

// newRecord tokenizes an item once. Items without declared keywords fall
// back to their most frequent body terms so they can still match.
func newRecord(item content.Item, policy content.LinkPolicy, keywordLimit int) Record {
	keywordTerms := make(map[string]struct{})
	for _, kw := range item.Keywords {
		for t := range tokenizer.TermSet(kw) {
			keywordTerms[t] = struct{}{}
		}
	}
	if len(keywordTerms) == 0 {
		freq := tokenizer.Frequencies(tokenizer.Words(item.Body))
		for _, t := range tokenizer.TopTerms(freq, keywordLimit) {
			keywordTerms[t] = struct{}{}
		}
	}
	keywords := make([]string, len(item.Keywords))
	copy(keywords, item.Keywords)

	return Record{
		ID:           item.ID,
		Type:         item.Type,
		Title:        strings.TrimSpace(item.Title),
		URL:          item.URL,
		URLKey:       policy.Normalize(item.URL),
		Summary:      summarize(item.Body, summaryRunes),
		Keywords:     keywords,
		TitleTerms:   tokenizer.TermSet(item.Title),
		KeywordTerms: keywordTerms,
		Categories:   content.TagSet(item.CategoryTags),
	}
}

// summarize returns the first n runes of body with whitespace collapsed,
// cut back to a word boundary.
func summarize(body string, n int) string {
	text := strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	cut := 0
	for i := range text {
		if n == 0 {
			cut = i
			break
		}
		n--
	}
	if sp := strings.LastIndexByte(text[:cut], ' '); sp > 0 {
		cut = sp
	}
	return text[:cut]
}
