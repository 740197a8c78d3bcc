package anchor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/internal/indexer/corpus"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance"
	"github.com/samherejoy-web/BTools-sub000/pkg/config"
)

func record(t *testing.T, item content.Item) corpus.Record {
	t.Helper()
	if item.ID == "" {
		item.ID = "candidate"
	}
	idx := corpus.New(config.DefaultEngine())
	idx.Rebuild([]content.Item{item})
	r, ok := idx.Current().Get(item.ID)
	require.True(t, ok)
	return r
}

func source(body string) *relevance.Source {
	return relevance.Analyze(content.Item{ID: "src", Title: "Source", Body: body}, 10)
}

func TestPhrases(t *testing.T) {
	assert.Equal(t, []string{"Notion"}, Phrases("Notion"))
	assert.Equal(t, []string{"Notion: A Review"}, Phrases(" Notion:  A Review! "))
	assert.Equal(t, []string{"C++ Guide"}, Phrases("C++ Guide"))
	assert.Equal(t, []string{
		"The Best Project Management Tool",
		"The Best Project Management",
		"Best Project Management Tool",
	}, Phrases("The Best Project Management Tool"))
	assert.Nil(t, Phrases("   "))
}

func TestExtractFullTitle(t *testing.T) {
	body := "Many teams pick a project management tool early. Our project management tool is great."
	a, ok := New(config.AnchorConfig{}).Extract(source(body), record(t, content.Item{Title: "Project Management Tool"}))

	require.True(t, ok)
	assert.Equal(t, "project management tool", a.Text)
	assert.Equal(t, strings.Index(body, "project management tool"), a.Start)
	assert.Equal(t, a.Text, body[a.Start:a.End])
}

func TestExtractPrefersLongestSubPhrase(t *testing.T) {
	body := "Here is our best project management tool list, with project notes."
	a, ok := New(config.AnchorConfig{}).Extract(source(body), record(t, content.Item{Title: "The Best Project Management Tool"}))

	require.True(t, ok)
	assert.Equal(t, "best project management tool", a.Text)
	assert.Equal(t, a.Text, body[a.Start:a.End])
}

func TestExtractFallsBackToSharedKeyword(t *testing.T) {
	body := "We use boards daily. Kanban boards keep kanban teams honest."
	a, ok := New(config.AnchorConfig{}).Extract(source(body), record(t, content.Item{
		Title:    "Trello",
		Keywords: []string{"kanban", "boards", "cards"},
	}))

	require.True(t, ok)
	// "board" and "kanban" both occur twice; the lexically smaller wins and
	// its first occurrence is used.
	assert.Equal(t, "boards", a.Text)
	assert.Equal(t, strings.Index(body, "boards"), a.Start)
}

func TestExtractNoAnchor(t *testing.T) {
	ex := New(config.AnchorConfig{})
	candidate := record(t, content.Item{Title: "Trello", Keywords: []string{"kanban"}})

	_, ok := ex.Extract(source("Nothing related is mentioned here."), candidate)
	assert.False(t, ok)

	_, ok = ex.Extract(source(""), candidate)
	assert.False(t, ok)
}

func TestExtractRespectsWordBoundaries(t *testing.T) {
	_, ok := New(config.AnchorConfig{}).Extract(source("Notions of productivity vary."), record(t, content.Item{Title: "Notion"}))
	assert.False(t, ok)
}

func TestExtractMultibyteOffsets(t *testing.T) {
	body := "Wir lieben Café Zürich sehr."
	a, ok := New(config.AnchorConfig{}).Extract(source(body), record(t, content.Item{Title: "café zürich"}))

	require.True(t, ok)
	assert.Equal(t, "Café Zürich", a.Text)
	assert.Equal(t, a.Text, body[a.Start:a.End])
}

func TestContext(t *testing.T) {
	body := "alpha beta gamma delta epsilon"
	start := strings.Index(body, "gamma")
	end := start + len("gamma")

	assert.Equal(t, "beta gamma delta", Context(body, start, end, 6))
	assert.Equal(t, "gamma", Context(body, start, end, 3))
	assert.Equal(t, body, Context(body, start, end, 100))
	assert.Equal(t, "alpha beta", Context(body, 0, 5, 6))
}

func TestExtractContextContainsAnchor(t *testing.T) {
	body := strings.Repeat("filler words here. ", 20) + "Try Notion for notes. " + strings.Repeat("more filler text. ", 20)
	a, ok := New(config.AnchorConfig{ContextRadius: 40}).Extract(source(body), record(t, content.Item{Title: "Notion"}))

	require.True(t, ok)
	assert.Contains(t, a.Context, "Try Notion for notes.")
	assert.Less(t, len(a.Context), len(body))
}
