package corpus

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/pkg/config"
	apperrors "github.com/samherejoy-web/BTools-sub000/pkg/errors"
)

func testItems() []content.Item {
	return []content.Item{
		{ID: "b-trello", Type: content.TypeTool, Title: "Trello", Body: "Kanban boards for teams.", URL: "/tools/trello", Keywords: []string{"kanban"}},
		{ID: "a-notion", Type: content.TypeTool, Title: "Notion", Body: "Notes and docs.", URL: "https://btools.io/tools/notion/", CategoryTags: []string{"Productivity"}},
		{ID: "c-pm", Type: content.TypeCategory, Title: "Project Management", Body: "planning planning boards", URL: "/categories/pm"},
	}
}

func newTestIndex() *Index {
	cfg := config.DefaultEngine()
	cfg.SiteHosts = []string{"btools.io"}
	return New(cfg)
}

func TestEmptyIndex(t *testing.T) {
	idx := newTestIndex()

	assert.Nil(t, idx.Current())
	got := idx.CandidatesFor(content.Item{ID: "x"}, Exclusions{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRebuildPublishesSortedSnapshot(t *testing.T) {
	idx := newTestIndex()
	info := idx.Rebuild(testItems())

	assert.Equal(t, uint64(1), info.Version)
	assert.Equal(t, 3, info.Records)
	assert.NotEmpty(t, info.SnapshotID)
	assert.Equal(t, 2, info.ByType[content.TypeTool])
	assert.Equal(t, 1, info.ByType[content.TypeCategory])

	snap := idx.Current()
	require.NotNil(t, snap)
	ids := make([]string, 0, snap.Len())
	for _, r := range snap.Records() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a-notion", "b-trello", "c-pm"}, ids)

	r, ok := snap.Get("a-notion")
	require.True(t, ok)
	assert.Equal(t, "/tools/notion", r.URLKey)
	assert.Contains(t, r.Categories, "productivity")
	assert.Contains(t, snap.URLKeys(), "/tools/notion")
}

func TestRebuildSkipsInvalidAndKeepsLastDuplicate(t *testing.T) {
	idx := newTestIndex()
	items := append(testItems(),
		content.Item{ID: "", Title: "no id"},
		content.Item{ID: "b-trello", Type: content.TypeTool, Title: "Trello v2", URL: "/tools/trello"},
	)
	info := idx.Rebuild(items)

	assert.Equal(t, 3, info.Records)
	assert.Equal(t, 1, info.Skipped)
	r, ok := idx.Current().Get("b-trello")
	require.True(t, ok)
	assert.Equal(t, "Trello v2", r.Title)
}

func TestRecordKeywordFallback(t *testing.T) {
	idx := newTestIndex()
	idx.Rebuild(testItems())

	declared, _ := idx.Current().Get("b-trello")
	assert.Equal(t, map[string]struct{}{"kanban": {}}, declared.KeywordTerms)

	derived, _ := idx.Current().Get("c-pm")
	assert.Contains(t, derived.KeywordTerms, "plann")
	assert.Contains(t, derived.KeywordTerms, "board")
}

func TestVersionsIncreaseAndEmptyRebuild(t *testing.T) {
	idx := newTestIndex()
	first := idx.Rebuild(testItems())
	second := idx.Rebuild(nil)

	assert.Equal(t, first.Version+1, second.Version)
	assert.NotEqual(t, first.SnapshotID, second.SnapshotID)
	assert.Equal(t, 0, second.Records)
	require.NotNil(t, idx.Current())
	assert.Empty(t, idx.CandidatesFor(content.Item{ID: "x"}, Exclusions{}))
}

func TestCandidatesForExcludesSourceAndExisting(t *testing.T) {
	idx := newTestIndex()
	idx.Rebuild(testItems())

	source := content.Item{ID: "a-notion", URL: "/tools/notion"}
	ex := NewExclusions(idx.Policy(), source, []string{"https://btools.io/tools/trello"})
	got := idx.CandidatesFor(source, ex)

	require.Len(t, got, 1)
	assert.Equal(t, "c-pm", got[0].ID)

	byID := NewExclusions(idx.Policy(), content.Item{ID: "zzz"}, []string{"c-pm"})
	got = idx.CandidatesFor(content.Item{ID: "zzz"}, byID)
	assert.Len(t, got, 2)
}

func TestSourceURLExcludedEvenWithDifferentID(t *testing.T) {
	idx := newTestIndex()
	idx.Rebuild(testItems())

	source := content.Item{ID: "draft-copy", URL: "/tools/trello/"}
	got := idx.CandidatesFor(source, NewExclusions(idx.Policy(), source, nil))
	for _, r := range got {
		assert.NotEqual(t, "b-trello", r.ID)
	}
}

func TestTryRebuildRejectsWhileRunning(t *testing.T) {
	idx := newTestIndex()
	idx.writeMu.Lock()
	_, err := idx.TryRebuild(testItems())
	idx.writeMu.Unlock()

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRebuildInProgress))

	info, err := idx.TryRebuild(testItems())
	require.NoError(t, err)
	assert.Equal(t, 3, info.Records)
}

// Readers must always observe a complete snapshot: either every record of
// one generation or every record of the next.
func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	idx := newTestIndex()
	generation := func(g, n int) []content.Item {
		items := make([]content.Item, n)
		for i := range items {
			items[i] = content.Item{
				ID:    fmt.Sprintf("item-%03d", i),
				Title: fmt.Sprintf("gen%d title %d", g, i),
				URL:   fmt.Sprintf("/items/%d", i),
			}
		}
		return items
	}
	idx.Rebuild(generation(0, 50))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 16)
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := idx.Current()
				recs := snap.Records()
				prefix := strings.Fields(recs[0].Title)[0]
				for _, rec := range recs {
					if !strings.HasPrefix(rec.Title, prefix+" ") {
						select {
						case errs <- fmt.Sprintf("mixed snapshot %s: %q", snap.ID(), rec.Title):
						default:
						}
						return
					}
				}
			}
		}()
	}
	for g := 1; g <= 20; g++ {
		idx.Rebuild(generation(g, 50))
	}
	close(stop)
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Error(e)
	}
	assert.Equal(t, uint64(21), idx.Current().Version())
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "short text", summarize("  short \n text ", 50))
	assert.Equal(t, "alpha beta", summarize("alpha beta gamma", 12))
}
