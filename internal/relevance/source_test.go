package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samherejoy-web/BTools-sub000/internal/content"
)

func set(terms ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		s[t] = struct{}{}
	}
	return s
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 0.0, Jaccard(nil, set("a")))
	assert.Equal(t, 0.0, Jaccard(set("a"), set()))
	assert.Equal(t, 1.0, Jaccard(set("a", "b"), set("b", "a")))
	assert.InDelta(t, 1.0/3, Jaccard(set("a", "b"), set("b", "c")), 1e-9)
	assert.Equal(t, Jaccard(set("a", "b", "c"), set("c")), Jaccard(set("c"), set("a", "b", "c")))
}

func TestIntersects(t *testing.T) {
	assert.True(t, Intersects(set("a", "b"), set("b")))
	assert.False(t, Intersects(set("a"), set("b")))
	assert.False(t, Intersects(nil, set("b")))
}

func TestAnalyze(t *testing.T) {
	src := Analyze(content.Item{
		ID:           "s",
		Title:        "Kanban Boards",
		Body:         "Boards help. Kanban boards help teams.",
		CategoryTags: []string{"Project Management"},
	}, 2)

	assert.Equal(t, 3, src.TermFreq["board"]+src.TermFreq["kanban"])
	assert.Equal(t, set("board", "help"), src.Keywords)
	assert.Equal(t, set("kanban", "board"), src.TitleTerms)
	assert.Contains(t, src.BodyTerms, "team")
	assert.Contains(t, src.Categories, "project-management")

	w, ok := src.FirstWord("kanban")
	require.True(t, ok)
	assert.Equal(t, "Kanban", src.Item.Body[w.Start:w.End])

	_, ok = src.FirstWord("missing")
	assert.False(t, ok)
}
