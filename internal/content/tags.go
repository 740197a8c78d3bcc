package content

import "strings"

// NormalizeTag folds a category tag to its comparison form: lower-case,
// trimmed, inner whitespace and underscores replaced by single hyphens.
func NormalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	tag = strings.ReplaceAll(tag, "_", " ")
	return strings.Join(strings.Fields(tag), "-")
}

// TagSet normalizes tags into a set, dropping empties.
func TagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if n := NormalizeTag(t); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}
