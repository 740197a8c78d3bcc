// Package score computes the SEO component scores of a content item and
// combines them into a weighted overall score.
package score

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/internal/indexer/tokenizer"
	"github.com/samherejoy-web/BTools-sub000/pkg/config"
)

// Breakpoints, in characters, words, counts or links per thousand words.
var (
	TitleLength       = Ramp{PoorLow: 15, AcceptableLow: 30, IdealLow: 40, IdealHigh: 60, AcceptableHigh: 70, PoorHigh: 100}
	DescriptionLength = Ramp{PoorLow: 50, AcceptableLow: 100, IdealLow: 120, IdealHigh: 160, AcceptableHigh: 180, PoorHigh: 250}
	KeywordCount      = Ramp{PoorLow: 0, AcceptableLow: 2, IdealLow: 3, IdealHigh: 7, AcceptableHigh: 10, PoorHigh: 15}
	LinkDensity       = Ramp{PoorLow: 0, AcceptableLow: 1.5, IdealLow: 1000.0 / 300, IdealHigh: 1000.0 / 200, AcceptableHigh: 8, PoorHigh: 15}

	// ContentLength holds the word-count floors per content type.
	ContentLength = map[content.Type]Ramp{
		content.TypeArticle:  upTo(100, 300, 600),
		content.TypeTool:     upTo(30, 80, 150),
		content.TypeCategory: upTo(20, 50, 100),
	}
)

// Sub-score shares within each component.
const (
	titleLengthShare       = 0.8
	titleKeywordShare      = 0.2
	descriptionLengthShare = 0.8
	descriptionCTAShare    = 0.2
	keywordCountShare      = 0.5
	keywordUsageShare      = 0.5
	contentLengthShare     = 0.7
	contentHeadingShare    = 0.15
	contentParagraphShare  = 0.15

	// Link density is measured over at least this many words so a short
	// body with one link does not read as over-linked.
	minDensityWords = 200
)

var ctaVerbs = map[string]struct{}{
	"learn": {}, "discover": {}, "read": {}, "try": {}, "explore": {}, "find": {},
	"get": {}, "start": {}, "see": {}, "compare": {}, "download": {}, "sign": {},
	"join": {}, "check": {}, "browse": {}, "shop": {}, "use": {}, "grab": {},
	"subscribe": {}, "click": {}, "visit": {}, "build": {}, "boost": {},
}

// Measurements are the raw facts behind the component scores.
type Measurements struct {
	Type              content.Type
	TitleLength       int
	TitleHasKeyword   bool
	DescriptionLength int
	DescriptionHasCTA bool
	KeywordCount      int
	KeywordsInBody    int
	WordCount         int
	HasHeadings       bool
	HasParagraphs     bool
	InternalLinks     int
	LinksPerThousand  float64
	ContentLengthRamp Ramp
}

// Evaluation is the result of scoring one item.
type Evaluation struct {
	Scores       content.ComponentScores
	Overall      int
	Measurements Measurements
}

// Aggregator is stateless and safe for concurrent use.
type Aggregator struct {
	weights      config.ScoreWeights
	keywordLimit int
	policy       content.LinkPolicy
}

// New creates an Aggregator from the engine configuration.
func New(cfg config.EngineConfig) *Aggregator {
	limit := cfg.Relevance.KeywordLimit
	if limit <= 0 {
		limit = config.DefaultEngine().Relevance.KeywordLimit
	}
	return &Aggregator{
		weights:      cfg.Score.Weights,
		keywordLimit: limit,
		policy:       content.NewLinkPolicy(cfg.SiteHosts),
	}
}

// Evaluate scores item. known holds the normalized URLs of catalog items,
// used to recognise absolute links into the catalog; it may be nil.
func (a *Aggregator) Evaluate(item content.Item, known map[string]struct{}) Evaluation {
	m := a.measure(item, known)
	scores := content.ComponentScores{
		Title:         a.titleScore(m),
		Description:   descriptionScore(m),
		Keywords:      keywordScore(m),
		Content:       contentScore(m),
		InternalLinks: round(LinkDensity.Score(m.LinksPerThousand)),
	}
	return Evaluation{Scores: scores, Overall: a.overall(scores), Measurements: m}
}

func (a *Aggregator) measure(item content.Item, known map[string]struct{}) Measurements {
	title := strings.TrimSpace(item.Title)
	desc := strings.TrimSpace(item.Description)
	words := WordCount(item.Body)
	links := len(a.policy.InternalLinks(item, known))

	keywords := distinctKeywords(item.Keywords)
	inBody := 0
	for _, kw := range keywords {
		if tokenizer.ContainsFold(item.Body, kw) {
			inBody++
		}
	}

	lengthRamp, ok := ContentLength[item.Type]
	if !ok {
		lengthRamp = ContentLength[content.TypeArticle]
	}

	return Measurements{
		Type:              item.Type,
		TitleLength:       utf8.RuneCountInString(title),
		TitleHasKeyword:   a.titleHasKeyword(title, item, keywords),
		DescriptionLength: utf8.RuneCountInString(desc),
		DescriptionHasCTA: hasCallToAction(desc),
		KeywordCount:      len(keywords),
		KeywordsInBody:    inBody,
		WordCount:         words,
		HasHeadings:       hasHeadings(item.Body),
		HasParagraphs:     strings.Contains(strings.ReplaceAll(item.Body, "\r\n", "\n"), "\n\n"),
		InternalLinks:     links,
		LinksPerThousand:  float64(links) * 1000 / float64(max(words, minDensityWords)),
		ContentLengthRamp: lengthRamp,
	}
}

// titleHasKeyword checks the declared keywords, or the most frequent body
// terms when none are declared.
func (a *Aggregator) titleHasKeyword(title string, item content.Item, keywords []string) bool {
	titleTerms := tokenizer.TermSet(title)
	if len(titleTerms) == 0 {
		return false
	}
	if len(keywords) > 0 {
		for _, kw := range keywords {
			if tokenizer.ContainsFold(title, kw) {
				return true
			}
		}
		return false
	}
	freq := tokenizer.Frequencies(tokenizer.Words(item.Body))
	for _, t := range tokenizer.TopTerms(freq, a.keywordLimit) {
		if _, ok := titleTerms[t]; ok {
			return true
		}
	}
	return false
}

func (a *Aggregator) titleScore(m Measurements) int {
	s := titleLengthShare * TitleLength.Score(float64(m.TitleLength))
	if m.TitleHasKeyword {
		s += titleKeywordShare * idealPoints
	}
	return round(s)
}

func descriptionScore(m Measurements) int {
	if m.DescriptionLength == 0 {
		return 0
	}
	s := descriptionLengthShare * DescriptionLength.Score(float64(m.DescriptionLength))
	if m.DescriptionHasCTA {
		s += descriptionCTAShare * idealPoints
	}
	return round(s)
}

func keywordScore(m Measurements) int {
	if m.KeywordCount == 0 {
		return 0
	}
	usage := float64(m.KeywordsInBody) / float64(m.KeywordCount)
	s := keywordCountShare*KeywordCount.Score(float64(m.KeywordCount)) +
		keywordUsageShare*usage*idealPoints
	return round(s)
}

func contentScore(m Measurements) int {
	s := contentLengthShare * m.ContentLengthRamp.Score(float64(m.WordCount))
	if m.HasHeadings {
		s += contentHeadingShare * idealPoints
	}
	if m.HasParagraphs {
		s += contentParagraphShare * idealPoints
	}
	return round(s)
}

func (a *Aggregator) overall(s content.ComponentScores) int {
	w := a.weights
	total := w.Title*float64(s.Title) +
		w.Description*float64(s.Description) +
		w.Keywords*float64(s.Keywords) +
		w.Content*float64(s.Content) +
		w.InternalLinks*float64(s.InternalLinks)
	if sum := w.Sum(); sum > 0 {
		total /= sum
	}
	return round(total)
}

// WordCount counts runs of letters and digits.
func WordCount(text string) int {
	return len(strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '’'
	}))
}

func distinctKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.Join(strings.Fields(kw), " ")
		key := strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// hasHeadings looks for markdown-style heading lines, which is also how
// HTML headings arrive after conversion.
func hasHeadings(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		rest := strings.TrimLeft(line, "#")
		if len(line)-len(rest) <= 6 && strings.HasPrefix(rest, " ") && strings.TrimSpace(rest) != "" {
			return true
		}
	}
	return false
}

// hasCallToAction reports whether the last sentence opens with an
// imperative verb within its first three words, or ends with '!'.
func hasCallToAction(desc string) bool {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return false
	}
	last := lastSentence(desc)
	if strings.HasSuffix(last, "!") {
		return true
	}
	words := strings.FieldsFunc(strings.ToLower(last), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for i, w := range words {
		if i >= 3 {
			break
		}
		if _, ok := ctaVerbs[w]; ok {
			return true
		}
	}
	return false
}

func lastSentence(text string) string {
	trimmed := strings.TrimRight(text, ".!? \t\n")
	i := strings.LastIndexAny(trimmed, ".!?")
	if i < 0 {
		return text
	}
	return strings.TrimSpace(text[i+1:])
}

func round(v float64) int {
	r := int(math.Round(v))
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}
