// Package scorer computes the bounded lexical relevance of a candidate link
// target for a source item as a weighted sum of four signals, each
// normalized to [0,1].
package scorer

import (
	"math"

	"github.com/samherejoy-web/BTools-sub000/internal/indexer/corpus"
	"github.com/samherejoy-web/BTools-sub000/internal/indexer/tokenizer"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance"
	"github.com/samherejoy-web/BTools-sub000/pkg/config"
)

// Signals are the per-signal contributions before weighting.
type Signals struct {
	TitleOverlap   float64 `json:"titleOverlap"`
	KeywordOverlap float64 `json:"keywordOverlap"`
	CategoryMatch  float64 `json:"categoryMatch"`
	BodyMention    float64 `json:"bodyMention"`
}

// Scorer is stateless and safe for concurrent use.
type Scorer struct {
	weights config.RelevanceWeights
}

// New creates a Scorer with the configured weights.
func New(cfg config.RelevanceConfig) *Scorer {
	return &Scorer{weights: cfg.Weights}
}

// Score returns the relevance of candidate for src in [0,1], rounded to
// four decimals.
func (s *Scorer) Score(src *relevance.Source, candidate corpus.Record) float64 {
	score, _ := s.Explain(src, candidate)
	return score
}

// Explain returns the score together with its raw signals.
func (s *Scorer) Explain(src *relevance.Source, candidate corpus.Record) (float64, Signals) {
	sig := Signals{
		TitleOverlap:   relevance.Jaccard(src.TitleTerms, candidate.TitleTerms),
		KeywordOverlap: relevance.Jaccard(src.Keywords, candidate.KeywordTerms),
		CategoryMatch:  categoryMatch(src, candidate),
		BodyMention:    bodyMention(src, candidate),
	}
	total := s.weights.TitleOverlap*sig.TitleOverlap +
		s.weights.KeywordOverlap*sig.KeywordOverlap +
		s.weights.CategoryMatch*sig.CategoryMatch +
		s.weights.BodyMention*sig.BodyMention
	return clamp(math.Round(total*10000) / 10000), sig
}

func categoryMatch(src *relevance.Source, candidate corpus.Record) float64 {
	if len(src.Categories) == 0 || len(candidate.Categories) == 0 {
		return 0
	}
	if relevance.Intersects(src.Categories, candidate.Categories) {
		return 1
	}
	return 0
}

// bodyMention is 1 when the candidate title occurs verbatim in the source
// body, otherwise the fraction of candidate title terms the body contains.
func bodyMention(src *relevance.Source, candidate corpus.Record) float64 {
	if len(candidate.TitleTerms) == 0 || src.Item.Body == "" {
		return 0
	}
	if tokenizer.ContainsFold(src.Item.Body, candidate.Title) {
		return 1
	}
	found := 0
	for t := range candidate.TitleTerms {
		if _, ok := src.BodyTerms[t]; ok {
			found++
		}
	}
	return float64(found) / float64(len(candidate.TitleTerms))
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
