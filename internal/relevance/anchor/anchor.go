// Package anchor locates the clickable text for a suggested link inside the
// source body. Anchors are always verbatim spans of the body; when no span
// can be found the candidate is dropped.
package anchor

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samherejoy-web/BTools-sub000/internal/indexer/corpus"
	"github.com/samherejoy-web/BTools-sub000/internal/indexer/tokenizer"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance"
	"github.com/samherejoy-web/BTools-sub000/pkg/config"
)

// Titles longer than this many words also contribute their two longest
// contiguous sub-phrases as anchor candidates.
const subPhraseMinWords = 4

// Anchor is a span of the source body with its preview context.
type Anchor struct {
	Text    string
	Start   int
	End     int
	Context string
}

// Extractor finds anchors. It is stateless and safe for concurrent use.
type Extractor struct {
	radius int
}

// New creates an Extractor with the configured context radius.
func New(cfg config.AnchorConfig) *Extractor {
	radius := cfg.ContextRadius
	if radius <= 0 {
		radius = config.DefaultEngine().Anchor.ContextRadius
	}
	return &Extractor{radius: radius}
}

// Extract returns the best anchor for candidate in the source body. The
// longest title-derived phrase found wins; otherwise the most frequent
// keyword term shared with the candidate is used.
func (e *Extractor) Extract(src *relevance.Source, candidate corpus.Record) (Anchor, bool) {
	body := src.Item.Body
	if body == "" {
		return Anchor{}, false
	}

	start, end, found := -1, -1, false
	for _, phrase := range Phrases(candidate.Title) {
		s, en, ok := tokenizer.IndexFold(body, phrase, 0)
		if !ok {
			continue
		}
		if !found || en-s > end-start || (en-s == end-start && s < start) {
			start, end, found = s, en, true
		}
	}

	if !found {
		term, ok := sharedKeyword(src, candidate)
		if !ok {
			return Anchor{}, false
		}
		w, ok := src.FirstWord(term)
		if !ok {
			return Anchor{}, false
		}
		start, end = w.Start, w.End
	}

	return Anchor{
		Text:    body[start:end],
		Start:   start,
		End:     end,
		Context: Context(body, start, end, e.radius),
	}, true
}

// Phrases returns the anchor candidates derived from a title: the full title
// and, for titles of four or more words, the leading and trailing phrases
// one word shorter.
func Phrases(title string) []string {
	words := strings.Fields(title)
	if len(words) == 0 {
		return nil
	}
	out := make([]string, 0, 3)
	add := func(ws []string) {
		p := strings.TrimFunc(strings.Join(ws, " "), isEdgePunct)
		if p != "" {
			out = append(out, p)
		}
	}
	add(words)
	if len(words) >= subPhraseMinWords {
		add(words[:len(words)-1])
		add(words[1:])
	}
	return out
}

func isEdgePunct(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
}

// sharedKeyword picks the candidate keyword term that occurs most often in
// the source body. Ties go to the lexically smaller term.
func sharedKeyword(src *relevance.Source, candidate corpus.Record) (string, bool) {
	shared := make([]string, 0, len(candidate.KeywordTerms))
	for t := range candidate.KeywordTerms {
		if src.TermFreq[t] > 0 {
			shared = append(shared, t)
		}
	}
	if len(shared) == 0 {
		return "", false
	}
	sort.Slice(shared, func(i, j int) bool {
		fi, fj := src.TermFreq[shared[i]], src.TermFreq[shared[j]]
		if fi != fj {
			return fi > fj
		}
		return shared[i] < shared[j]
	})
	return shared[0], true
}

// Context returns up to radius runes of body on each side of [start,end),
// trimmed inward to whole words.
func Context(body string, start, end, radius int) string {
	from := start
	for n := 0; n < radius && from > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(body[:from])
		from -= size
	}
	to := end
	for n := 0; n < radius && to < len(body); n++ {
		_, size := utf8.DecodeRuneInString(body[to:])
		to += size
	}

	if from > 0 && !isSpaceBefore(body, from) {
		if i := strings.IndexFunc(body[from:start], unicode.IsSpace); i >= 0 {
			from += i
		} else {
			from = start
		}
	}
	if to < len(body) && !isSpaceAt(body, to) {
		if i := strings.LastIndexFunc(body[end:to], unicode.IsSpace); i >= 0 {
			to = end + i
		} else {
			to = end
		}
	}
	return strings.TrimSpace(body[from:to])
}

func isSpaceBefore(s string, i int) bool {
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsSpace(r)
}

func isSpaceAt(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsSpace(r)
}
