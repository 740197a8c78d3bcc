package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samherejoy-web/BTools-sub000/pkg/kafka"
)

const (
	maxLatencySamples = 10000
	topListSize       = 10
)

// Stats summarizes engine activity since the aggregator started.
type Stats struct {
	SuggestRequests   int64       `json:"suggestRequests"`
	ScoreRequests     int64       `json:"scoreRequests"`
	Rebuilds          int64       `json:"rebuilds"`
	CacheHits         int64       `json:"cacheHits"`
	CacheMisses       int64       `json:"cacheMisses"`
	EmptySuggestions  int64       `json:"emptySuggestions"`
	AvgSuggestions    float64     `json:"avgSuggestions"`
	AvgOverallScore   float64     `json:"avgOverallScore"`
	AvgLatencyMs      float64     `json:"avgLatencyMs"`
	P50LatencyMs      int64       `json:"p50LatencyMs"`
	P95LatencyMs      int64       `json:"p95LatencyMs"`
	P99LatencyMs      int64       `json:"p99LatencyMs"`
	LastSnapshotID    string      `json:"lastSnapshotId,omitempty"`
	LastRecords       int         `json:"lastRecords"`
	TopTargets        []NameCount `json:"topTargets"`
	ItemsWithoutLinks []NameCount `json:"itemsWithoutLinks"`
	WeakestComponents []NameCount `json:"weakestComponents"`
	RequestsPerMinute float64     `json:"requestsPerMinute"`
}

// NameCount is one entry of a ranked list.
type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Aggregator folds engine events into Stats. Safe for concurrent use.
type Aggregator struct {
	mu               sync.Mutex
	suggests         int64
	scores           int64
	rebuilds         int64
	cacheHits        int64
	cacheMisses      int64
	emptySuggestions int64
	returnedTotal    int64
	overallTotal     int64
	latencies        []int64
	latencyNext      int
	lastSnapshotID   string
	lastRecords      int
	targets          map[string]int64
	unlinked         map[string]int64
	weakest          map[string]int64
	startTime        time.Time
	now              func() time.Time
	logger           *slog.Logger
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies: make([]int64, 0, 1024),
		targets:   make(map[string]int64),
		unlinked:  make(map[string]int64),
		weakest:   make(map[string]int64),
		startTime: time.Now(),
		now:       time.Now,
		logger:    slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns a kafka.MessageHandler that records engine events.
// Undecodable events are skipped.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[EngineEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode engine event", "key", string(key), "error", err)
			return err
		}
		agg.Record(ev)
		return nil
	}
}

// Record folds one event into the running totals. Unknown types are ignored.
func (a *Aggregator) Record(ev EngineEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch ev.Type {
	case EventSuggest:
		a.suggests++
		a.returnedTotal += int64(ev.Returned)
		if ev.Returned == 0 && ev.ItemID != "" {
			a.emptySuggestions++
			a.unlinked[ev.ItemID]++
		}
		for _, id := range ev.TargetIDs {
			a.targets[id]++
		}
	case EventScore:
		a.scores++
		a.overallTotal += int64(ev.Overall)
		if ev.Weakest != "" {
			a.weakest[ev.Weakest]++
		}
	case EventRebuild:
		a.rebuilds++
		a.lastSnapshotID = ev.SnapshotID
		a.lastRecords = ev.Records
		return
	default:
		a.logger.Debug("ignoring engine event", "type", ev.Type)
		return
	}

	if ev.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	a.recordLatency(ev.LatencyMs)
}

// recordLatency keeps a bounded ring of the most recent samples.
func (a *Aggregator) recordLatency(ms int64) {
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, ms)
		return
	}
	a.latencies[a.latencyNext] = ms
	a.latencyNext = (a.latencyNext + 1) % maxLatencySamples
}

// Stats returns a consistent view of the totals.
func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := Stats{
		SuggestRequests:   a.suggests,
		ScoreRequests:     a.scores,
		Rebuilds:          a.rebuilds,
		CacheHits:         a.cacheHits,
		CacheMisses:       a.cacheMisses,
		EmptySuggestions:  a.emptySuggestions,
		LastSnapshotID:    a.lastSnapshotID,
		LastRecords:       a.lastRecords,
		TopTargets:        topN(a.targets, topListSize),
		ItemsWithoutLinks: topN(a.unlinked, topListSize),
		WeakestComponents: topN(a.weakest, topListSize),
	}
	if a.suggests > 0 {
		stats.AvgSuggestions = float64(a.returnedTotal) / float64(a.suggests)
	}
	if a.scores > 0 {
		stats.AvgOverallScore = float64(a.overallTotal) / float64(a.scores)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.RequestsPerMinute = float64(a.suggests+a.scores) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN ranks by count descending, then name ascending.
func topN(counts map[string]int64, n int) []NameCount {
	result := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, NameCount{Name: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
