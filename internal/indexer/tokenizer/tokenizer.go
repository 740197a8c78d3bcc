// Package tokenizer provides text tokenisation for the relevance engine.
// It lower-cases and accent-folds input, splits on non-alphanumeric
// boundaries, removes stop-words, and applies a simple suffix-based stemmer.
// Words keep their byte offsets so callers can cut verbatim substrings out
// of the original text.
package tokenizer

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
	"you": {}, "your": {}, "we": {}, "our": {}, "my": {}, "me": {},
	"how": {}, "why": {}, "all": {}, "about": {}, "into": {}, "than": {},
	"then": {}, "also": {}, "more": {}, "most": {}, "these": {}, "those": {},
	"there": {}, "here": {}, "been": {}, "would": {}, "should": {}, "could": {},
	"best": {}, "top": {}, "vs": {}, "very": {}, "just": {}, "any": {},
}

// Word is a kept token together with its verbatim span in the source text.
type Word struct {
	Text  string
	Term  string
	Start int
	End   int
}

// Words scans text for alphanumeric runs and returns the ones that survive
// stop-word and length filtering, with byte offsets into text.
func Words(text string) []Word {
	words := make([]Word, 0, len(text)/8)
	start := -1
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			words = appendWord(words, text, start, i)
			start = -1
		}
	}
	if start >= 0 {
		words = appendWord(words, text, start, len(text))
	}
	return words
}

func appendWord(words []Word, text string, start, end int) []Word {
	raw := text[start:end]
	term := Normalize(raw)
	if utf8.RuneCountInString(term) < 2 {
		return words
	}
	if _, isStop := stopWords[term]; isStop {
		return words
	}
	stemmed := stem(term)
	if stemmed == "" {
		return words
	}
	return append(words, Word{Text: raw, Term: stemmed, Start: start, End: end})
}

// TermSet returns the distinct stemmed terms of text.
func TermSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range Words(text) {
		set[w.Term] = struct{}{}
	}
	return set
}

// Frequencies counts stemmed term occurrences across words.
func Frequencies(words []Word) map[string]int {
	freq := make(map[string]int, len(words))
	for _, w := range words {
		freq[w.Term]++
	}
	return freq
}

// TopTerms returns up to n terms ordered by frequency descending, ties
// broken alphabetically.
func TopTerms(freq map[string]int, n int) []string {
	if n <= 0 || len(freq) == 0 {
		return nil
	}
	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases a word and strips diacritics.
func Normalize(word string) string {
	word = strings.ToLower(word)
	if isASCII(word) {
		return word
	}
	folded, _, err := transform.String(foldChain, word)
	if err != nil {
		return word
	}
	return folded
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// stem applies a simple suffix-stripping stemmer to the given word.
func stem(word string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}

var suffixRules = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}
