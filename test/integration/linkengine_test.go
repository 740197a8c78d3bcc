// Package integration contains tests that verify the interaction between
// the link engine components. These tests use an httptest server with the
// real handler, catalog and engine wiring; external dependencies (Kafka,
// PostgreSQL, Redis) are left out and the optional features they back are
// disabled.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/samherejoy-web/BTools-sub000/internal/catalog"
	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/internal/engine"
	"github.com/samherejoy-web/BTools-sub000/internal/linker/handler"
	"github.com/samherejoy-web/BTools-sub000/pkg/config"
	"github.com/samherejoy-web/BTools-sub000/pkg/metrics"
	"github.com/samherejoy-web/BTools-sub000/pkg/middleware"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// newEngineServer creates a test server with the full middleware chain.
func newEngineServer(t *testing.T) *httptest.Server {
	t.Helper()

	m := metrics.New(prometheus.NewRegistry())
	eng := engine.New(config.DefaultEngine())
	cat := catalog.New(eng, nil)

	h := handler.New(handler.Deps{
		Engine:  eng,
		Catalog: cat,
		Metrics: m,
	})
	mux := http.NewServeMux()
	h.Register(mux)

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(5 * time.Second)(chain)
	chain = middleware.RequestID(chain)

	srv := httptest.NewServer(chain)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("encoding request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	return resp, raw
}

func catalogItems() []content.Item {
	return []content.Item{
		{
			ID:           "tool-notion",
			Type:         content.TypeTool,
			Title:        "Notion",
			Description:  "All-in-one workspace for notes and projects.",
			Body:         "Notion is an all-in-one workspace for notes, docs and project management.",
			Keywords:     []string{"notion", "workspace", "notes"},
			URL:          "/tools/notion",
			CategoryTags: []string{"productivity"},
		},
		{
			ID:           "tool-trello",
			Type:         content.TypeTool,
			Title:        "Trello",
			Body:         "Trello organizes project management work on kanban boards.",
			Keywords:     []string{"trello", "kanban", "boards"},
			URL:          "/tools/trello",
			CategoryTags: []string{"productivity"},
		},
		{
			ID:           "cat-productivity",
			Type:         content.TypeCategory,
			Title:        "Productivity",
			Body:         "Tools that help teams get work done.",
			URL:          "/categories/productivity",
			CategoryTags: []string{"productivity"},
		},
	}
}

func sourceArticle() content.Item {
	return content.Item{
		ID:    "article-pm-guide",
		Type:  content.TypeArticle,
		Title: "A guide to project management for small teams",
		Body: "Small teams often start with Notion for notes and planning. " +
			"Others prefer Trello boards for day-to-day project management work.",
		Keywords:     []string{"project management"},
		URL:          "/blog/pm-guide",
		CategoryTags: []string{"productivity"},
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestSuggestBeforeRebuild verifies that an empty index answers with an
// empty suggestion list rather than an error.
func TestSuggestBeforeRebuild(t *testing.T) {
	srv := newEngineServer(t)

	resp, raw := postJSON(t, srv.URL+"/api/v1/links/suggest", map[string]any{"source": sourceArticle()})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
	}
	var result engine.SuggestResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.Count != 0 || len(result.Suggestions) != 0 {
		t.Errorf("expected no suggestions, got %d", result.Count)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}

// TestRebuildThenSuggest exercises rebuild → suggest → verify that every
// anchor is a verbatim span of the source body.
func TestRebuildThenSuggest(t *testing.T) {
	srv := newEngineServer(t)

	resp, raw := postJSON(t, srv.URL+"/api/v1/index/rebuild", map[string]any{"items": catalogItems()})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rebuild: expected 200, got %d: %s", resp.StatusCode, raw)
	}

	source := sourceArticle()
	resp, raw = postJSON(t, srv.URL+"/api/v1/links/suggest", map[string]any{
		"source":       source,
		"minRelevance": 0.2,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("suggest: expected 200, got %d: %s", resp.StatusCode, raw)
	}
	var result engine.SuggestResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.SnapshotID == "" {
		t.Error("expected a snapshot id after rebuild")
	}
	if result.Count == 0 {
		t.Fatal("expected at least one suggestion")
	}
	for _, s := range result.Suggestions {
		if got := source.Body[s.AnchorStart:s.AnchorEnd]; got != s.AnchorText {
			t.Errorf("anchor %q does not match body span %q", s.AnchorText, got)
		}
		if s.TargetID == source.ID {
			t.Error("source suggested as its own target")
		}
	}
}

// TestExistingLinksExcluded verifies that targets already linked, by id or
// by URL, are never suggested again.
func TestExistingLinksExcluded(t *testing.T) {
	srv := newEngineServer(t)
	postJSON(t, srv.URL+"/api/v1/index/rebuild", map[string]any{"items": catalogItems()})

	resp, raw := postJSON(t, srv.URL+"/api/v1/links/suggest", map[string]any{
		"source":        sourceArticle(),
		"existingLinks": []string{"tool-notion", "/tools/trello/"},
		"minRelevance":  0,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
	}
	var result engine.SuggestResult
	json.Unmarshal(raw, &result)
	for _, s := range result.Suggestions {
		if s.TargetID == "tool-notion" || s.TargetID == "tool-trello" {
			t.Errorf("excluded target %s suggested", s.TargetID)
		}
	}
}

// TestInvalidParametersRejected verifies that boundary validation fails
// with 400 and the InvalidParameter code.
func TestInvalidParametersRejected(t *testing.T) {
	srv := newEngineServer(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"zero max", map[string]any{"source": sourceArticle(), "maxSuggestions": 0}},
		{"negative relevance", map[string]any{"source": sourceArticle(), "minRelevance": -0.1}},
		{"relevance above one", map[string]any{"source": sourceArticle(), "minRelevance": 1.5}},
		{"missing title", map[string]any{"source": map[string]any{"id": "x", "body": "text"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, raw := postJSON(t, srv.URL+"/api/v1/links/suggest", tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", resp.StatusCode, raw)
			}
			var body map[string]string
			json.Unmarshal(raw, &body)
			if body["code"] != "InvalidParameter" {
				t.Errorf("expected code InvalidParameter, got %q", body["code"])
			}
		})
	}
}

// TestScoreShortTitle verifies the score endpoint on a thin item: a short
// title and an empty body put content advice first.
func TestScoreShortTitle(t *testing.T) {
	srv := newEngineServer(t)

	item := content.Item{
		ID:    "thin",
		Type:  content.TypeArticle,
		Title: strings.Repeat("a", 25),
		Body:  "",
	}
	resp, raw := postJSON(t, srv.URL+"/api/v1/content/score", map[string]any{"item": item})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
	}
	var report content.ScoreReport
	if err := json.Unmarshal(raw, &report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.ComponentScores.Title > 50 {
		t.Errorf("expected title score <= 50, got %d", report.ComponentScores.Title)
	}
	if report.ComponentScores.Content != 0 {
		t.Errorf("expected content score 0, got %d", report.ComponentScores.Content)
	}
	if len(report.Recommendations) == 0 || !strings.Contains(report.Recommendations[0], "content") {
		t.Errorf("expected content advice first, got %v", report.Recommendations)
	}
}

// TestScoreFromHTML verifies that an HTML body is converted before scoring.
func TestScoreFromHTML(t *testing.T) {
	srv := newEngineServer(t)

	resp, raw := postJSON(t, srv.URL+"/api/v1/content/score", map[string]any{"item": map[string]any{
		"id":       "html",
		"title":    "Project management basics for new team leads",
		"bodyHtml": `<h2>Planning</h2><p>Start small.</p><p>Read <a href="/tools/notion">Notion</a>.</p>`,
	}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
	}
	var report content.ScoreReport
	json.Unmarshal(raw, &report)
	if report.InternalLinkCount != 1 {
		t.Errorf("expected 1 internal link, got %d", report.InternalLinkCount)
	}
	if report.WordCount == 0 {
		t.Error("expected a non-zero word count")
	}
}

// TestIndexStats verifies the stats endpoint before and after a rebuild.
func TestIndexStats(t *testing.T) {
	srv := newEngineServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/index/stats")
	if err != nil {
		t.Fatalf("stats request failed: %v", err)
	}
	var empty map[string]any
	json.NewDecoder(resp.Body).Decode(&empty)
	resp.Body.Close()
	if empty["status"] != "empty" {
		t.Errorf("expected status=empty, got %v", empty["status"])
	}

	postJSON(t, srv.URL+"/api/v1/index/rebuild", map[string]any{"items": catalogItems()})

	resp, err = http.Get(srv.URL + "/api/v1/index/stats")
	if err != nil {
		t.Fatalf("stats request failed: %v", err)
	}
	defer resp.Body.Close()
	var stats map[string]any
	json.NewDecoder(resp.Body).Decode(&stats)
	if stats["records"] != float64(3) {
		t.Errorf("expected 3 records, got %v", stats["records"])
	}
}
