// Package handler exposes the engine over HTTP/JSON.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/samherejoy-web/BTools-sub000/internal/analytics"
	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/internal/content/htmltext"
	"github.com/samherejoy-web/BTools-sub000/internal/engine"
	"github.com/samherejoy-web/BTools-sub000/internal/indexer/corpus"
	"github.com/samherejoy-web/BTools-sub000/internal/linker/cache"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance/ranker"
	apperrors "github.com/samherejoy-web/BTools-sub000/pkg/errors"
	"github.com/samherejoy-web/BTools-sub000/pkg/logger"
	"github.com/samherejoy-web/BTools-sub000/pkg/metrics"
	"github.com/samherejoy-web/BTools-sub000/pkg/middleware"
)

const maxBodyBytes = 8 << 20

// Engine is the subset of the engine the handler calls.
type Engine interface {
	SuggestLinks(ctx context.Context, source content.Item, existingLinks []string, params ranker.Params) (*engine.SuggestResult, error)
	ScoreContent(ctx context.Context, item content.Item) (*content.ScoreReport, error)
	DefaultParams() ranker.Params
	Stats() (corpus.Info, bool)
}

// Catalog replaces the indexed catalog.
type Catalog interface {
	Load(ctx context.Context, items []content.Item) (corpus.Info, error)
}

// Store loads the catalog and persists suggestions.
type Store interface {
	LoadAll(ctx context.Context) ([]content.Item, error)
	SaveSuggestions(ctx context.Context, sourceID, snapshotID string, suggestions []content.LinkSuggestion) error
}

// Deps are the handler's collaborators. Cache, Store, Collector and
// Metrics are optional.
type Deps struct {
	Engine    Engine
	Catalog   Catalog
	Cache     *cache.Cache
	Store     Store
	Collector *analytics.Collector
	Metrics   *metrics.Metrics
}

// Handler serves the link engine API.
type Handler struct {
	Deps
	logger *slog.Logger
}

// New creates a Handler.
func New(d Deps) *Handler {
	return &Handler{
		Deps:   d,
		logger: slog.Default().With("component", "link-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/links/suggest", h.Suggest)
	mux.HandleFunc("POST /api/v1/content/score", h.Score)
	mux.HandleFunc("POST /api/v1/index/rebuild", h.Rebuild)
	mux.HandleFunc("POST /api/v1/index/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// ItemPayload is a content item on the wire. When BodyHTML is set and Body
// is empty, the body and its links are derived from the HTML.
type ItemPayload struct {
	content.Item
	BodyHTML string `json:"bodyHtml,omitempty"`
}

func (p ItemPayload) toItem() (content.Item, error) {
	item := p.Item
	if p.BodyHTML == "" || item.Body != "" {
		return item, nil
	}
	res, err := htmltext.ConvertString(p.BodyHTML)
	if err != nil {
		return content.Item{}, apperrors.InvalidParameter("bodyHtml: %v", err)
	}
	item.Body = res.Text
	item.Links = append(append([]string(nil), item.Links...), res.Links...)
	return item, nil
}

// SuggestRequest is the body of POST /api/v1/links/suggest. Absent numeric
// fields take the configured defaults.
type SuggestRequest struct {
	Source         ItemPayload `json:"source"`
	ExistingLinks  []string    `json:"existingLinks"`
	MaxSuggestions *int        `json:"maxSuggestions,omitempty"`
	MinRelevance   *float64    `json:"minRelevance,omitempty"`
	Persist        bool        `json:"persist,omitempty"`
}

// ScoreRequest is the body of POST /api/v1/content/score.
type ScoreRequest struct {
	Item ItemPayload `json:"item"`
}

// RebuildRequest is the body of POST /api/v1/index/rebuild.
type RebuildRequest struct {
	Items []ItemPayload `json:"items"`
}

// Suggest proposes links for the source item.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req SuggestRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err, "suggest")
		return
	}
	source, err := req.Source.toItem()
	if err != nil {
		h.fail(w, r, err, "suggest")
		return
	}
	params := h.Engine.DefaultParams()
	if req.MaxSuggestions != nil {
		params.MaxSuggestions = *req.MaxSuggestions
	}
	if req.MinRelevance != nil {
		params.MinRelevance = *req.MinRelevance
	}

	compute := func() (*engine.SuggestResult, error) {
		return h.Engine.SuggestLinks(ctx, source, req.ExistingLinks, params)
	}
	var (
		result   *engine.SuggestResult
		cacheHit bool
	)
	info, indexed := h.Engine.Stats()
	if h.Cache != nil && indexed {
		key := cache.SuggestKey(info.SnapshotID, source, req.ExistingLinks, params)
		result, cacheHit, err = h.Cache.GetSuggestions(ctx, key, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		h.fail(w, r, err, "suggest")
		return
	}

	if req.Persist && h.Store != nil {
		if err := h.Store.SaveSuggestions(ctx, source.ID, result.SnapshotID, result.Suggestions); err != nil {
			logger.FromContext(ctx).Error("persisting suggestions failed", "item_id", source.ID, "error", err)
			h.fail(w, r, apperrors.New(apperrors.ErrCatalogUnavailable, http.StatusServiceUnavailable, "persisting suggestions failed"), "suggest")
			return
		}
	}

	elapsed := time.Since(start)
	h.observeSuggest(result, cacheHit, elapsed)
	h.Collector.Track(suggestEvent(ctx, source.ID, result, cacheHit, elapsed))
	logger.FromContext(ctx).Info("suggest completed",
		"item_id", source.ID,
		"returned", result.Count,
		"cache_hit", cacheHit,
		"latency_ms", elapsed.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

// Score computes the SEO report of an item.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req ScoreRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err, "score")
		return
	}
	item, err := req.Item.toItem()
	if err != nil {
		h.fail(w, r, err, "score")
		return
	}

	compute := func() (*content.ScoreReport, error) {
		return h.Engine.ScoreContent(ctx, item)
	}
	var (
		report   *content.ScoreReport
		cacheHit bool
	)
	if h.Cache != nil {
		info, _ := h.Engine.Stats()
		report, cacheHit, err = h.Cache.GetReport(ctx, cache.ScoreKey(info.SnapshotID, item), compute)
	} else {
		report, err = compute()
	}
	if err != nil {
		h.fail(w, r, err, "score")
		return
	}

	elapsed := time.Since(start)
	if h.Metrics != nil {
		h.Metrics.ScoreRequestsTotal.WithLabelValues("ok").Inc()
		h.Metrics.OverallScore.Observe(float64(report.OverallScore))
	}
	ev := analytics.EngineEvent{
		Type:      analytics.EventScore,
		ItemID:    item.ID,
		Overall:   report.OverallScore,
		CacheHit:  cacheHit,
		LatencyMs: elapsed.Milliseconds(),
		RequestID: middleware.GetRequestID(ctx),
	}
	if weakest, ok := weakestComponent(report.ComponentScores); ok {
		ev.Weakest = string(weakest)
	}
	h.Collector.Track(ev)
	h.writeJSON(w, http.StatusOK, report)
}

// Rebuild replaces the catalog with the posted items.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	var req RebuildRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	items := make([]content.Item, 0, len(req.Items))
	for i, p := range req.Items {
		it, err := p.toItem()
		if err != nil {
			h.fail(w, r, fmt.Errorf("items[%d]: %w", i, err), "")
			return
		}
		items = append(items, it)
	}
	h.load(w, r, items)
}

// Reload re-reads the catalog from the store.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		h.writeError(w, http.StatusServiceUnavailable, "catalog store is not configured")
		return
	}
	items, err := h.Store.LoadAll(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.load(w, r, items)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, items []content.Item) {
	info, err := h.Catalog.Load(r.Context(), items)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// IndexStats describes the current snapshot.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	info, ok := h.Engine.Stats()
	if !ok {
		h.writeJSON(w, http.StatusOK, map[string]any{"status": "empty", "records": 0})
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// CacheStats reports cache hit and miss counts.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.Cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.Cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":    hits,
		"misses":  misses,
		"total":   total,
		"hitRate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate drops every cached result.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.Cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.Cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keysDeleted": deleted})
}

func (h *Handler) observeSuggest(result *engine.SuggestResult, cacheHit bool, elapsed time.Duration) {
	if h.Metrics == nil {
		return
	}
	outcome := "ok"
	if result.Count == 0 {
		outcome = "empty"
	}
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	h.Metrics.SuggestRequestsTotal.WithLabelValues(outcome).Inc()
	h.Metrics.SuggestLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
	h.Metrics.SuggestionsReturned.Observe(float64(result.Count))
}

func suggestEvent(ctx context.Context, itemID string, result *engine.SuggestResult, cacheHit bool, elapsed time.Duration) analytics.EngineEvent {
	ev := analytics.EngineEvent{
		Type:       analytics.EventSuggest,
		ItemID:     itemID,
		SnapshotID: result.SnapshotID,
		Candidates: result.Stats.Candidates,
		Returned:   result.Count,
		TargetIDs:  make([]string, 0, result.Count),
		CacheHit:   cacheHit,
		LatencyMs:  elapsed.Milliseconds(),
		RequestID:  middleware.GetRequestID(ctx),
	}
	for _, s := range result.Suggestions {
		ev.TargetIDs = append(ev.TargetIDs, s.TargetID)
	}
	if result.Count > 0 {
		ev.TopScore = result.Suggestions[0].RelevanceScore
	}
	return ev
}

func weakestComponent(s content.ComponentScores) (content.Component, bool) {
	var (
		weakest content.Component
		low     = 101
	)
	for _, c := range content.Components {
		if v := s.Get(c); v < low {
			weakest, low = c, v
		}
	}
	return weakest, weakest != ""
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid request body: %v", err)
	}
	return nil
}

// fail logs and writes err. op, when set, labels the failure metric.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	status := apperrors.HTTPStatusCode(err)
	if h.Metrics != nil && op != "" {
		outcome := "error"
		if status == http.StatusBadRequest {
			outcome = "invalid"
		}
		switch op {
		case "suggest":
			h.Metrics.SuggestRequestsTotal.WithLabelValues(outcome).Inc()
		case "score":
			h.Metrics.ScoreRequestsTotal.WithLabelValues(outcome).Inc()
		}
	}
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		log.Info("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
		if errors.Is(appErr.Err, apperrors.ErrInvalidParameter) {
			h.writeJSON(w, status, map[string]string{"error": msg, "code": "InvalidParameter"})
			return
		}
	}
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	h.writeError(w, status, msg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
