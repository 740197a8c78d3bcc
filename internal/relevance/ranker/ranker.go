// Package ranker turns a corpus snapshot into the ordered link suggestions
// for one source item: it scores every candidate, drops those under the
// relevance floor or without an anchor, removes overlapping anchors and
// truncates to the requested size.
package ranker

import (
	"math"
	"sort"

	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/internal/indexer/corpus"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance/anchor"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance/scorer"
	apperrors "github.com/samherejoy-web/BTools-sub000/pkg/errors"
)

// Params bound one suggestion request.
type Params struct {
	MaxSuggestions int     `json:"maxSuggestions"`
	MinRelevance   float64 `json:"minRelevance"`
}

// Validate rejects a non-positive or over-cap MaxSuggestions and a
// MinRelevance outside [0,1]. maxCap <= 0 disables the upper bound.
func (p Params) Validate(maxCap int) error {
	if p.MaxSuggestions <= 0 {
		return apperrors.InvalidParameter("maxSuggestions must be positive, got %d", p.MaxSuggestions)
	}
	if maxCap > 0 && p.MaxSuggestions > maxCap {
		return apperrors.InvalidParameter("maxSuggestions must be at most %d, got %d", maxCap, p.MaxSuggestions)
	}
	if math.IsNaN(p.MinRelevance) || p.MinRelevance < 0 || p.MinRelevance > 1 {
		return apperrors.InvalidParameter("minRelevance must be within [0,1], got %v", p.MinRelevance)
	}
	return nil
}

// Stats counts how many candidates survived each stage.
type Stats struct {
	Candidates int `json:"candidates"`
	Relevant   int `json:"relevant"`
	Anchored   int `json:"anchored"`
	Returned   int `json:"returned"`
}

// Ranker is stateless and safe for concurrent use.
type Ranker struct {
	scorer    *scorer.Scorer
	extractor *anchor.Extractor
}

// New creates a Ranker.
func New(s *scorer.Scorer, e *anchor.Extractor) *Ranker {
	return &Ranker{scorer: s, extractor: e}
}

type scored struct {
	record corpus.Record
	score  float64
}

type span struct{ start, end int }

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

// Suggest ranks the candidates of snap for src. params must already be
// validated. A nil snapshot yields an empty result.
func (r *Ranker) Suggest(snap *corpus.Snapshot, src *relevance.Source, exclude corpus.Exclusions, params Params) ([]content.LinkSuggestion, Stats) {
	var stats Stats
	if snap == nil {
		return []content.LinkSuggestion{}, stats
	}
	candidates := snap.CandidatesFor(src.Item, exclude)
	stats.Candidates = len(candidates)

	relevant := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		score := r.scorer.Score(src, c)
		if score < params.MinRelevance || score == 0 {
			continue
		}
		relevant = append(relevant, scored{record: c, score: score})
	}
	stats.Relevant = len(relevant)
	sortScored(relevant)

	result := make([]content.LinkSuggestion, 0, min(params.MaxSuggestions, len(relevant)))
	taken := make([]span, 0, params.MaxSuggestions)
	seenURL := make(map[string]struct{}, params.MaxSuggestions)
	for _, c := range relevant {
		if len(result) == params.MaxSuggestions {
			break
		}
		a, ok := r.extractor.Extract(src, c.record)
		if !ok {
			continue
		}
		stats.Anchored++
		sp := span{a.Start, a.End}
		if overlapsAny(sp, taken) {
			continue
		}
		if c.record.URLKey != "" {
			if _, dup := seenURL[c.record.URLKey]; dup {
				continue
			}
			seenURL[c.record.URLKey] = struct{}{}
		}
		taken = append(taken, sp)
		result = append(result, content.LinkSuggestion{
			TargetID:       c.record.ID,
			TargetType:     c.record.Type,
			TargetURL:      c.record.URL,
			TargetTitle:    c.record.Title,
			AnchorText:     a.Text,
			AnchorStart:    a.Start,
			AnchorEnd:      a.End,
			Context:        a.Context,
			RelevanceScore: c.score,
		})
	}
	stats.Returned = len(result)
	return result, stats
}

// sortScored orders by score descending, then id ascending.
func sortScored(s []scored) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].score != s[j].score {
			return s[i].score > s[j].score
		}
		return s[i].record.ID < s[j].record.ID
	})
}

func overlapsAny(s span, taken []span) bool {
	for _, t := range taken {
		if s.overlaps(t) {
			return true
		}
	}
	return false
}
