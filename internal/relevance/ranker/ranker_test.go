package ranker

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/internal/indexer/corpus"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance/anchor"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance/scorer"
	"github.com/samherejoy-web/BTools-sub000/pkg/config"
	apperrors "github.com/samherejoy-web/BTools-sub000/pkg/errors"
)

var sourceItem = content.Item{
	ID:           "article-1",
	Type:         content.TypeArticle,
	Title:        "Planning with Notion and Trello",
	Body:         "Our team plans in Notion and tracks tasks in Trello. Productivity matters.",
	URL:          "/blog/planning",
	CategoryTags: []string{"productivity"},
}

func catalog() []content.Item {
	return []content.Item{
		sourceItem,
		{ID: "tool-notion", Type: content.TypeTool, Title: "Notion", Keywords: []string{"notion", "workspace"}, URL: "/tools/notion", CategoryTags: []string{"productivity"}},
		{ID: "tool-trello", Type: content.TypeTool, Title: "Trello", Keywords: []string{"trello", "kanban"}, URL: "/tools/trello", CategoryTags: []string{"productivity"}},
		{ID: "tool-jira", Type: content.TypeTool, Title: "Jira", Keywords: []string{"jira"}, URL: "/tools/jira", CategoryTags: []string{"developer"}},
		{ID: "tool-asana", Type: content.TypeTool, Title: "Asana", Keywords: []string{"asana"}, URL: "/tools/asana", CategoryTags: []string{"productivity"}},
		{ID: "cat-productivity", Type: content.TypeCategory, Title: "Productivity", URL: "/categories/productivity", CategoryTags: []string{"productivity"}},
	}
}

type fixture struct {
	idx    *corpus.Index
	ranker *Ranker
	src    *relevance.Source
}

func newFixture(items []content.Item) fixture {
	cfg := config.DefaultEngine()
	idx := corpus.New(cfg)
	idx.Rebuild(items)
	return fixture{
		idx:    idx,
		ranker: New(scorer.New(cfg.Relevance), anchor.New(cfg.Anchor)),
		src:    relevance.Analyze(sourceItem, cfg.Relevance.KeywordLimit),
	}
}

func (f fixture) suggest(params Params, existing ...string) ([]content.LinkSuggestion, Stats) {
	ex := corpus.NewExclusions(f.idx.Policy(), sourceItem, existing)
	return f.ranker.Suggest(f.idx.Current(), f.src, ex, params)
}

func ids(s []content.LinkSuggestion) []string {
	out := make([]string, len(s))
	for i, x := range s {
		out[i] = x.TargetID
	}
	return out
}

func TestSuggestOrdering(t *testing.T) {
	got, stats := newFixture(catalog()).suggest(Params{MaxSuggestions: 10, MinRelevance: 0.3})

	// Notion and Trello tie at 0.5 and are ordered by id.
	assert.Equal(t, []string{"tool-notion", "tool-trello", "cat-productivity"}, ids(got))
	assert.Equal(t, 0.5, got[0].RelevanceScore)
	assert.Equal(t, 0.5, got[1].RelevanceScore)
	assert.Equal(t, 0.35, got[2].RelevanceScore)
	assert.Equal(t, Stats{Candidates: 5, Relevant: 3, Anchored: 3, Returned: 3}, stats)
}

func TestSuggestAnchorsAreVerbatimAndDisjoint(t *testing.T) {
	got, _ := newFixture(catalog()).suggest(Params{MaxSuggestions: 10, MinRelevance: 0})

	require.NotEmpty(t, got)
	for i, s := range got {
		assert.Equal(t, s.AnchorText, sourceItem.Body[s.AnchorStart:s.AnchorEnd])
		assert.Contains(t, s.Context, s.AnchorText)
		assert.NotEqual(t, sourceItem.ID, s.TargetID)
		for _, o := range got[i+1:] {
			overlap := s.AnchorStart < o.AnchorEnd && o.AnchorStart < s.AnchorEnd
			assert.False(t, overlap, "%s overlaps %s", s.TargetID, o.TargetID)
		}
	}
}

func TestSuggestDropsUnanchoredAndZeroScores(t *testing.T) {
	got, stats := newFixture(catalog()).suggest(Params{MaxSuggestions: 10, MinRelevance: 0})

	// Asana matches only on category and never appears in the body; Jira
	// shares nothing and scores zero.
	assert.NotContains(t, ids(got), "tool-asana")
	assert.NotContains(t, ids(got), "tool-jira")
	assert.Equal(t, 4, stats.Relevant)
	assert.Equal(t, 3, stats.Anchored)
}

func TestSuggestHonoursMax(t *testing.T) {
	got, stats := newFixture(catalog()).suggest(Params{MaxSuggestions: 2, MinRelevance: 0.3})

	assert.Equal(t, []string{"tool-notion", "tool-trello"}, ids(got))
	assert.Equal(t, 2, stats.Returned)
}

func TestSuggestHighThresholdIsEmpty(t *testing.T) {
	got, _ := newFixture(catalog()).suggest(Params{MaxSuggestions: 10, MinRelevance: 0.9})

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSuggestExcludesExistingLinks(t *testing.T) {
	got, _ := newFixture(catalog()).suggest(Params{MaxSuggestions: 10, MinRelevance: 0.3}, "/tools/notion", "tool-trello")

	assert.Equal(t, []string{"cat-productivity"}, ids(got))
}

func TestSuggestDropsOverlappingAnchor(t *testing.T) {
	items := append(catalog(), content.Item{
		ID: "tool-notion-ai", Type: content.TypeTool, Title: "Notion",
		Keywords: []string{"notion", "workspace"}, URL: "/tools/notion-ai", CategoryTags: []string{"productivity"},
	})
	got, stats := newFixture(items).suggest(Params{MaxSuggestions: 10, MinRelevance: 0.3})

	assert.Equal(t, []string{"tool-notion", "tool-trello", "cat-productivity"}, ids(got))
	assert.Equal(t, 4, stats.Anchored)
}

func TestSuggestDropsDuplicateTargetURL(t *testing.T) {
	items := append(catalog(), content.Item{
		ID: "tool-trello-mirror", Type: content.TypeTool, Title: "Productivity",
		Keywords: []string{"trello", "kanban"}, URL: "/tools/trello/", CategoryTags: []string{"productivity"},
	})
	got, _ := newFixture(items).suggest(Params{MaxSuggestions: 10, MinRelevance: 0.3})

	// The mirror outranks the category page but points at Trello's URL.
	assert.Equal(t, []string{"tool-notion", "tool-trello", "cat-productivity"}, ids(got))
}

func TestSuggestNilSnapshot(t *testing.T) {
	f := newFixture(catalog())
	got, stats := f.ranker.Suggest(nil, f.src, corpus.Exclusions{}, Params{MaxSuggestions: 5})

	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, Stats{}, stats)
}

func TestSuggestDeterministic(t *testing.T) {
	f := newFixture(catalog())
	first, _ := f.suggest(Params{MaxSuggestions: 10, MinRelevance: 0})
	for i := 0; i < 5; i++ {
		again, _ := f.suggest(Params{MaxSuggestions: 10, MinRelevance: 0})
		assert.Equal(t, first, again)
	}
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, Params{MaxSuggestions: 10, MinRelevance: 0.3}.Validate(50))
	require.NoError(t, Params{MaxSuggestions: 50, MinRelevance: 0}.Validate(50))
	require.NoError(t, Params{MaxSuggestions: 500, MinRelevance: 1}.Validate(0))

	bad := []Params{
		{MaxSuggestions: 0, MinRelevance: 0.3},
		{MaxSuggestions: -1, MinRelevance: 0.3},
		{MaxSuggestions: 51, MinRelevance: 0.3},
		{MaxSuggestions: 10, MinRelevance: -0.01},
		{MaxSuggestions: 10, MinRelevance: 1.01},
		{MaxSuggestions: 10, MinRelevance: math.NaN()},
	}
	for _, p := range bad {
		err := p.Validate(50)
		require.Error(t, err, "%+v", p)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidParameter))
	}
}
