package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/internal/indexer/corpus"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance"
	"github.com/samherejoy-web/BTools-sub000/pkg/config"
)

var notion = content.Item{
	ID:           "tool-notion",
	Type:         content.TypeTool,
	Title:        "Notion",
	Body:         "All-in-one workspace for notes.",
	Keywords:     []string{"notion", "workspace"},
	URL:          "/tools/notion",
	CategoryTags: []string{"productivity"},
}

func record(t *testing.T, item content.Item) corpus.Record {
	t.Helper()
	idx := corpus.New(config.DefaultEngine())
	idx.Rebuild([]content.Item{item})
	r, ok := idx.Current().Get(item.ID)
	require.True(t, ok)
	return r
}

func analyze(body string, categories ...string) *relevance.Source {
	return relevance.Analyze(content.Item{
		ID:           "src",
		Title:        "Guide to planning",
		Body:         body,
		CategoryTags: categories,
	}, config.DefaultEngine().Relevance.KeywordLimit)
}

func TestScoreCategoryOnly(t *testing.T) {
	s := New(config.DefaultEngine().Relevance)
	score, sig := s.Explain(analyze("We plan sprints every week.", "Productivity"), record(t, notion))

	assert.Equal(t, Signals{CategoryMatch: 1}, sig)
	assert.InDelta(t, 0.2, score, 1e-9)
}

func TestScoreBodyMention(t *testing.T) {
	s := New(config.DefaultEngine().Relevance)
	score, sig := s.Explain(analyze("We plan sprints in Notion every week.", "productivity"), record(t, notion))

	assert.Equal(t, 1.0, sig.BodyMention)
	assert.InDelta(t, 1.0/6, sig.KeywordOverlap, 1e-9)
	assert.InDelta(t, 0.4, score, 1e-9)
}

func TestScorePartialTitleMention(t *testing.T) {
	s := New(config.DefaultEngine().Relevance)
	candidate := record(t, content.Item{ID: "pm", Title: "Project Management Tools", URL: "/pm"})

	_, sig := s.Explain(analyze("Every project needs a plan."), candidate)
	assert.InDelta(t, 1.0/3, sig.BodyMention, 1e-9)
}

func TestScoreUnrelatedIsZero(t *testing.T) {
	s := New(config.DefaultEngine().Relevance)
	candidate := record(t, content.Item{ID: "jira", Title: "Jira", Keywords: []string{"jira"}, CategoryTags: []string{"developer"}})

	assert.Equal(t, 0.0, s.Score(analyze("We plan sprints every week.", "productivity"), candidate))
	assert.Equal(t, 0.0, s.Score(analyze(""), candidate))
}

func TestScoreBoundedAndRounded(t *testing.T) {
	s := New(config.DefaultEngine().Relevance)
	src := relevance.Analyze(notion, 10)
	score := s.Score(src, record(t, notion))

	// Title 0.35, keywords 0.3 * 1/4, category 0.2; the body never names it.
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
	assert.Equal(t, 0.625, score)
}

// More shared evidence never lowers the score.
func TestScoreMonotonicInEvidence(t *testing.T) {
	s := New(config.DefaultEngine().Relevance)
	candidate := record(t, notion)

	bodies := []string{
		"We plan sprints every week.",
		"We plan sprints in a workspace every week.",
		"We plan sprints in the Notion workspace every week.",
	}
	prev := -1.0
	for _, b := range bodies {
		got := s.Score(analyze(b, "productivity"), candidate)
		assert.GreaterOrEqual(t, got, prev, b)
		prev = got
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := New(config.DefaultEngine().Relevance)
	src := analyze("We plan sprints in Notion every week.", "productivity")
	candidate := record(t, notion)

	first := s.Score(src, candidate)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Score(src, candidate))
	}
}

func TestCustomWeights(t *testing.T) {
	s := New(config.RelevanceConfig{Weights: config.RelevanceWeights{CategoryMatch: 1}})
	score := s.Score(analyze("nothing shared here", "productivity"), record(t, notion))
	assert.Equal(t, 1.0, score)
}
