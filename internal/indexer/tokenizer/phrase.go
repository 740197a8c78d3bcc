package tokenizer

import (
	"unicode"
	"unicode/utf8"
)

// IndexFold finds the first case-insensitive, word-bounded occurrence of
// phrase in s at or after byte offset from. A run of whitespace in phrase
// matches any non-empty run of whitespace in s. It returns the byte span of
// the verbatim match in s.
func IndexFold(s, phrase string, from int) (start, end int, ok bool) {
	if phrase == "" || from < 0 || from >= len(s) {
		return -1, -1, false
	}
	first, _ := utf8.DecodeRuneInString(phrase)
	last, _ := utf8.DecodeLastRuneInString(phrase)
	needStartBoundary := isWordRune(first)
	needEndBoundary := isWordRune(last)

	for i := from; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if equalFold(r, first) && (!needStartBoundary || boundaryBefore(s, i)) {
			if e, matched := matchFoldAt(s, i, phrase); matched {
				if !needEndBoundary || boundaryAfter(s, e) {
					return i, e, true
				}
			}
		}
		i += size
	}
	return -1, -1, false
}

// ContainsFold reports whether phrase occurs in s as whole words.
func ContainsFold(s, phrase string) bool {
	_, _, ok := IndexFold(s, phrase, 0)
	return ok
}

func matchFoldAt(s string, i int, phrase string) (int, bool) {
	j := i
	for k := 0; k < len(phrase); {
		pr, psize := utf8.DecodeRuneInString(phrase[k:])
		if unicode.IsSpace(pr) {
			for k < len(phrase) {
				r, size := utf8.DecodeRuneInString(phrase[k:])
				if !unicode.IsSpace(r) {
					break
				}
				k += size
			}
			consumed := false
			for j < len(s) {
				r, size := utf8.DecodeRuneInString(s[j:])
				if !unicode.IsSpace(r) {
					break
				}
				j += size
				consumed = true
			}
			if !consumed {
				return 0, false
			}
			continue
		}
		if j >= len(s) {
			return 0, false
		}
		sr, ssize := utf8.DecodeRuneInString(s[j:])
		if !equalFold(sr, pr) {
			return 0, false
		}
		j += ssize
		k += psize
	}
	return j, true
}

func equalFold(a, b rune) bool {
	if a == b {
		return true
	}
	return unicode.ToLower(a) == unicode.ToLower(b) || unicode.ToUpper(a) == unicode.ToUpper(b)
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, e int) bool {
	if e >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[e:])
	return !isWordRune(r)
}
