// Package htmltext converts editor HTML into the plain analysis text the
// engine works on. Block elements become blank-line paragraph breaks,
// headings become '#'-prefixed lines, and anchor hrefs are collected.
package htmltext

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Result is the converted document.
type Result struct {
	Text  string
	Links []string
}

var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
	"svg":      true,
}

var blocks = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"header": true, "footer": true, "aside": true, "nav": true,
	"ul": true, "ol": true, "li": true, "table": true, "tr": true,
	"blockquote": true, "pre": true, "figure": true, "figcaption": true,
	"hr": true, "dl": true, "dt": true, "dd": true,
}

var headingLevel = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

// ConvertString is Convert over a string.
func ConvertString(s string) (Result, error) {
	return Convert(strings.NewReader(s))
}

// Convert parses r as an HTML fragment or document.
func Convert(r io.Reader) (Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Result{}, fmt.Errorf("parsing html: %w", err)
	}
	w := &textWriter{}
	var links []string
	seen := make(map[string]bool)

	var f func(*html.Node)
	f = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			w.text(n.Data)
			return
		case html.ElementNode:
			if skipped[n.Data] {
				return
			}
			if n.Data == "a" {
				for _, attr := range n.Attr {
					if attr.Key == "href" && attr.Val != "" {
						if !seen[attr.Val] {
							seen[attr.Val] = true
							links = append(links, attr.Val)
						}
						break
					}
				}
			}
			if n.Data == "br" {
				w.lineBreak()
				return
			}
			if level, ok := headingLevel[n.Data]; ok {
				w.paragraph()
				w.raw(strings.Repeat("#", level) + " ")
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					f(c)
				}
				w.paragraph()
				return
			}
			if blocks[n.Data] {
				w.paragraph()
				if n.Data == "li" {
					w.raw("- ")
				}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					f(c)
				}
				w.paragraph()
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(doc)
	return Result{Text: w.String(), Links: links}, nil
}

// textWriter accumulates text while collapsing whitespace. Pending breaks
// are only emitted once more text follows, so output never ends in one.
type textWriter struct {
	buf          strings.Builder
	pendingSpace bool
	pendingBreak string
}

func (w *textWriter) text(s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			w.pendingSpace = true
		}
		return
	}
	if startsWithSpace(s) {
		w.pendingSpace = true
	}
	w.raw(strings.Join(fields, " "))
	w.pendingSpace = endsWithSpace(s)
}

func (w *textWriter) raw(s string) {
	if w.buf.Len() > 0 {
		switch {
		case w.pendingBreak != "":
			w.buf.WriteString(w.pendingBreak)
		case w.pendingSpace && !strings.HasSuffix(w.buf.String(), " "):
			w.buf.WriteByte(' ')
		}
	}
	w.pendingBreak = ""
	w.pendingSpace = false
	w.buf.WriteString(s)
}

func (w *textWriter) paragraph() {
	w.pendingBreak = "\n\n"
}

func (w *textWriter) lineBreak() {
	if w.pendingBreak == "" {
		w.pendingBreak = "\n"
	}
}

func (w *textWriter) String() string {
	return w.buf.String()
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeft(s, " \t\r\n\f") != s
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRight(s, " \t\r\n\f") != s
}
