// Package recommend turns component score shortfalls into ordered,
// actionable advice.
package recommend

import (
	"fmt"
	"sort"

	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/internal/seo/score"
)

// wordsPerLink is the sparse end of the ideal link density.
const wordsPerLink = 300

// Priority breaks ties between equally weak components.
var Priority = []content.Component{
	content.ComponentTitle,
	content.ComponentContent,
	content.ComponentDescription,
	content.ComponentKeywords,
	content.ComponentInternalLinks,
}

// Generator emits one recommendation per component below the good
// threshold, weakest first.
type Generator struct {
	threshold int
}

// New creates a Generator. Components scoring at or above goodThreshold
// produce no advice.
func New(goodThreshold int) *Generator {
	return &Generator{threshold: goodThreshold}
}

// Generate returns the recommendations for ev. The list is empty, never
// nil, when every component meets the threshold.
func (g *Generator) Generate(ev score.Evaluation) []string {
	weak := make([]content.Component, 0, len(Priority))
	for _, c := range Priority {
		if ev.Scores.Get(c) < g.threshold {
			weak = append(weak, c)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool {
		return ev.Scores.Get(weak[i]) < ev.Scores.Get(weak[j])
	})

	out := make([]string, 0, len(weak))
	for _, c := range weak {
		out = append(out, advise(c, ev.Measurements))
	}
	return out
}

func advise(c content.Component, m score.Measurements) string {
	switch c {
	case content.ComponentTitle:
		return titleAdvice(m)
	case content.ComponentDescription:
		return descriptionAdvice(m)
	case content.ComponentKeywords:
		return keywordAdvice(m)
	case content.ComponentContent:
		return contentAdvice(m)
	case content.ComponentInternalLinks:
		return linkAdvice(m)
	default:
		return fmt.Sprintf("improve %s", c)
	}
}

func titleAdvice(m score.Measurements) string {
	r := score.TitleLength
	switch {
	case m.TitleLength < int(r.IdealLow):
		return fmt.Sprintf("title is %d characters; lengthen toward %s", m.TitleLength, band(r))
	case m.TitleLength > int(r.IdealHigh):
		return fmt.Sprintf("title is %d characters; shorten toward %s", m.TitleLength, band(r))
	default:
		return "title does not contain any of the item's keywords; work the primary keyword into it"
	}
}

func descriptionAdvice(m score.Measurements) string {
	r := score.DescriptionLength
	switch {
	case m.DescriptionLength == 0:
		return fmt.Sprintf("description is missing; add a %s character summary ending with a call to action", band(r))
	case m.DescriptionLength < int(r.IdealLow):
		return fmt.Sprintf("description is %d characters; expand toward %s", m.DescriptionLength, band(r))
	case m.DescriptionLength > int(r.IdealHigh):
		return fmt.Sprintf("description is %d characters; trim toward %s", m.DescriptionLength, band(r))
	default:
		return "description lacks a call to action; end it with a sentence such as \"Learn how to get started.\""
	}
}

func keywordAdvice(m score.Measurements) string {
	r := score.KeywordCount
	switch {
	case m.KeywordCount == 0:
		return fmt.Sprintf("no keywords declared; add %s focus keywords", band(r))
	case m.KeywordCount < int(r.IdealLow):
		return fmt.Sprintf("only %d keywords declared; add more toward %s", m.KeywordCount, band(r))
	case m.KeywordCount > int(r.IdealHigh):
		return fmt.Sprintf("%d keywords declared; narrow to the %s most relevant", m.KeywordCount, band(r))
	default:
		return fmt.Sprintf("only %d of %d keywords appear in the body; use them naturally in the text",
			m.KeywordsInBody, m.KeywordCount)
	}
}

func contentAdvice(m score.Measurements) string {
	r := m.ContentLengthRamp
	if float64(m.WordCount) < r.IdealLow {
		return fmt.Sprintf("content is %d words; %s pages should reach %d+ words", m.WordCount, m.Type, int(r.IdealLow))
	}
	switch {
	case !m.HasHeadings && !m.HasParagraphs:
		return "content has no headings or paragraph breaks; add section headings and split it into paragraphs"
	case !m.HasHeadings:
		return "content has no headings; add section headings"
	default:
		return "content has no paragraph breaks; split it into shorter paragraphs"
	}
}

func linkAdvice(m score.Measurements) string {
	target := (max(m.WordCount, wordsPerLink) + wordsPerLink - 1) / wordsPerLink
	if m.LinksPerThousand > score.LinkDensity.IdealHigh {
		return fmt.Sprintf("content has %d internal links in %d words; remove some to stay near one per 200-300 words",
			m.InternalLinks, m.WordCount)
	}
	return fmt.Sprintf("content has %d internal links in %d words; add links toward %d (about one per 200-300 words)",
		m.InternalLinks, m.WordCount, target)
}

func band(r score.Ramp) string {
	return fmt.Sprintf("%d-%d", int(r.IdealLow), int(r.IdealHigh))
}
