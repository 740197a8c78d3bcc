// Package content defines the catalog item handed to the engine by the
// content store and the value objects the engine returns.
package content

import (
	"fmt"
	"strings"
)

// Type is the closed set of catalog content kinds.
type Type int

const (
	TypeArticle Type = iota
	TypeTool
	TypeCategory
)

// Types lists every content type in declaration order.
var Types = []Type{TypeArticle, TypeTool, TypeCategory}

func (t Type) String() string {
	switch t {
	case TypeArticle:
		return "article"
	case TypeTool:
		return "tool"
	case TypeCategory:
		return "category"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Valid reports whether t is one of the declared types.
func (t Type) Valid() bool {
	return t >= TypeArticle && t <= TypeCategory
}

// ParseType maps a wire name to a Type. The empty string means article,
// which is the bulk of the catalog.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "article", "blog":
		return TypeArticle, nil
	case "tool":
		return TypeTool, nil
	case "category":
		return TypeCategory, nil
	default:
		return 0, fmt.Errorf("unknown content type %q", s)
	}
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown content type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Item is one unit of catalog content. Body is analysis text: HTML already
// stripped, paragraphs separated by blank lines and headings prefixed by '#'.
type Item struct {
	ID           string   `json:"id"`
	Type         Type     `json:"type"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Body         string   `json:"body"`
	Keywords     []string `json:"keywords,omitempty"`
	URL          string   `json:"url"`
	CategoryTags []string `json:"categoryTags,omitempty"`
	// Links holds hrefs already present in the body.
	Links []string `json:"links,omitempty"`
}

// LinkSuggestion is a ready-to-insert hyperlink proposal. AnchorText is
// always Body[AnchorStart:AnchorEnd] of the source item.
type LinkSuggestion struct {
	TargetID       string  `json:"targetId"`
	TargetType     Type    `json:"targetType"`
	TargetURL      string  `json:"targetUrl"`
	TargetTitle    string  `json:"targetTitle"`
	AnchorText     string  `json:"anchorText"`
	AnchorStart    int     `json:"anchorStart"`
	AnchorEnd      int     `json:"anchorEnd"`
	Context        string  `json:"context"`
	RelevanceScore float64 `json:"relevanceScore"`
}

// Component names one SEO score dimension.
type Component string

const (
	ComponentTitle         Component = "title"
	ComponentDescription   Component = "description"
	ComponentKeywords      Component = "keywords"
	ComponentContent       Component = "content"
	ComponentInternalLinks Component = "internalLinks"
)

// Components lists the score dimensions in their canonical order.
var Components = []Component{
	ComponentTitle,
	ComponentDescription,
	ComponentKeywords,
	ComponentContent,
	ComponentInternalLinks,
}

// ComponentScores holds the five 0-100 component scores.
type ComponentScores struct {
	Title         int `json:"title"`
	Description   int `json:"description"`
	Keywords      int `json:"keywords"`
	Content       int `json:"content"`
	InternalLinks int `json:"internalLinks"`
}

// Get returns the score of one component.
func (c ComponentScores) Get(comp Component) int {
	switch comp {
	case ComponentTitle:
		return c.Title
	case ComponentDescription:
		return c.Description
	case ComponentKeywords:
		return c.Keywords
	case ComponentContent:
		return c.Content
	case ComponentInternalLinks:
		return c.InternalLinks
	default:
		return 0
	}
}

// Grade is a presentation band for an overall score.
type Grade string

const (
	GradeExcellent Grade = "excellent"
	GradeGood      Grade = "good"
	GradeFair      Grade = "fair"
	GradePoor      Grade = "poor"
)

// Grade band lower bounds.
const (
	ExcellentFrom = 80
	GoodFrom      = 70
	FairFrom      = 50
)

// GradeFor maps an overall score to its band.
func GradeFor(score int) Grade {
	switch {
	case score >= ExcellentFrom:
		return GradeExcellent
	case score >= GoodFrom:
		return GradeGood
	case score >= FairFrom:
		return GradeFair
	default:
		return GradePoor
	}
}

// ScoreReport is the SEO health of one item with remediation advice, most
// impactful first.
type ScoreReport struct {
	ItemID            string          `json:"itemId"`
	OverallScore      int             `json:"overallScore"`
	Grade             Grade           `json:"grade"`
	ComponentScores   ComponentScores `json:"componentScores"`
	Recommendations   []string        `json:"recommendations"`
	WordCount         int             `json:"wordCount"`
	InternalLinkCount int             `json:"internalLinkCount"`
}
