// Package engine exposes the link suggestion, content scoring and index
// rebuild operations over one shared corpus index.
package engine

import (
	"context"
	"log/slog"

	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/internal/indexer/corpus"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance/anchor"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance/ranker"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance/scorer"
	"github.com/samherejoy-web/BTools-sub000/internal/seo/recommend"
	"github.com/samherejoy-web/BTools-sub000/internal/seo/score"
	"github.com/samherejoy-web/BTools-sub000/pkg/config"
	"github.com/samherejoy-web/BTools-sub000/pkg/logger"
)

// SuggestResult is the outcome of one SuggestLinks call. SnapshotID is empty
// when no index has been built yet.
type SuggestResult struct {
	SnapshotID  string                   `json:"snapshotId"`
	Suggestions []content.LinkSuggestion `json:"suggestions"`
	Count       int                      `json:"count"`
	Stats       ranker.Stats             `json:"-"`
}

// Engine is safe for concurrent use. Only RebuildIndex mutates state, and
// it does so with a single pointer swap.
type Engine struct {
	cfg        config.EngineConfig
	index      *corpus.Index
	ranker     *ranker.Ranker
	aggregator *score.Aggregator
	generator  *recommend.Generator
	logger     *slog.Logger
}

// New wires the engine components from cfg. The index starts empty.
func New(cfg config.EngineConfig) *Engine {
	return &Engine{
		cfg:        cfg,
		index:      corpus.New(cfg),
		ranker:     ranker.New(scorer.New(cfg.Relevance), anchor.New(cfg.Anchor)),
		aggregator: score.New(cfg),
		generator:  recommend.New(cfg.Score.GoodThreshold),
		logger:     slog.Default().With("component", "engine"),
	}
}

// DefaultParams returns the configured request defaults.
func (e *Engine) DefaultParams() ranker.Params {
	return ranker.Params{
		MaxSuggestions: e.cfg.Suggest.DefaultMaxSuggestions,
		MinRelevance:   e.cfg.Suggest.DefaultMinRelevance,
	}
}

// Snapshot returns the current corpus snapshot, or nil.
func (e *Engine) Snapshot() *corpus.Snapshot {
	return e.index.Current()
}

// SuggestLinks proposes links from source to other catalog items. Targets
// listed in existingLinks, by id or URL, and links already in source.Links
// are never suggested. An empty index yields an empty result.
func (e *Engine) SuggestLinks(ctx context.Context, source content.Item, existingLinks []string, params ranker.Params) (*SuggestResult, error) {
	if err := content.Validate(source); err != nil {
		return nil, err
	}
	if err := params.Validate(e.cfg.Suggest.MaxSuggestionsCap); err != nil {
		return nil, err
	}

	snap := e.index.Current()
	if snap == nil {
		return &SuggestResult{Suggestions: []content.LinkSuggestion{}}, nil
	}

	entries := make([]string, 0, len(existingLinks)+len(source.Links))
	entries = append(entries, existingLinks...)
	entries = append(entries, source.Links...)
	exclude := corpus.NewExclusions(e.index.Policy(), source, entries)

	src := relevance.Analyze(source, e.cfg.Relevance.KeywordLimit)
	suggestions, stats := e.ranker.Suggest(snap, src, exclude, params)

	logger.FromContext(ctx).Debug("links suggested",
		"item_id", source.ID,
		"snapshot_id", snap.ID(),
		"candidates", stats.Candidates,
		"relevant", stats.Relevant,
		"anchored", stats.Anchored,
		"returned", stats.Returned,
	)
	return &SuggestResult{
		SnapshotID:  snap.ID(),
		Suggestions: suggestions,
		Count:       len(suggestions),
		Stats:       stats,
	}, nil
}

// ScoreContent computes the SEO report of item. It is idempotent for an
// unchanged item and snapshot.
func (e *Engine) ScoreContent(ctx context.Context, item content.Item) (*content.ScoreReport, error) {
	if err := content.Validate(item); err != nil {
		return nil, err
	}
	var known map[string]struct{}
	if snap := e.index.Current(); snap != nil {
		known = snap.URLKeys()
	}
	ev := e.aggregator.Evaluate(item, known)
	report := &content.ScoreReport{
		ItemID:            item.ID,
		OverallScore:      ev.Overall,
		Grade:             content.GradeFor(ev.Overall),
		ComponentScores:   ev.Scores,
		Recommendations:   e.generator.Generate(ev),
		WordCount:         ev.Measurements.WordCount,
		InternalLinkCount: ev.Measurements.InternalLinks,
	}
	logger.FromContext(ctx).Debug("content scored",
		"item_id", item.ID,
		"overall", report.OverallScore,
		"recommendations", len(report.Recommendations),
	)
	return report, nil
}

// RebuildIndex replaces the corpus with items. Concurrent calls are queued.
func (e *Engine) RebuildIndex(ctx context.Context, items []content.Item) (corpus.Info, error) {
	if err := ctx.Err(); err != nil {
		return corpus.Info{}, err
	}
	return e.index.Rebuild(items), nil
}

// TryRebuildIndex is RebuildIndex that fails with ErrRebuildInProgress
// instead of waiting for a running rebuild.
func (e *Engine) TryRebuildIndex(ctx context.Context, items []content.Item) (corpus.Info, error) {
	if err := ctx.Err(); err != nil {
		return corpus.Info{}, err
	}
	return e.index.TryRebuild(items)
}

// Stats describes the current snapshot. ok is false before the first build.
func (e *Engine) Stats() (info corpus.Info, ok bool) {
	snap := e.index.Current()
	if snap == nil {
		return corpus.Info{}, false
	}
	return snap.Info(), true
}
