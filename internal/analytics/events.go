// Package analytics publishes engine activity to Kafka for offline
// analysis of suggestion quality and content health.
package analytics

import "time"

// EventType names an engine operation.
type EventType string

const (
	EventSuggest EventType = "suggest"
	EventScore   EventType = "score"
	EventRebuild EventType = "rebuild"
)

// EngineEvent is one record on the engine-events topic. Fields that do not
// apply to the event type are omitted.
type EngineEvent struct {
	Type       EventType `json:"type"`
	ItemID     string    `json:"itemId,omitempty"`
	SnapshotID string    `json:"snapshotId,omitempty"`

	Candidates int       `json:"candidates,omitempty"`
	Returned   int       `json:"returned,omitempty"`
	TargetIDs  []string  `json:"targetIds,omitempty"`
	TopScore   float64   `json:"topScore,omitempty"`
	Overall    int       `json:"overallScore,omitempty"`
	Weakest    string    `json:"weakestComponent,omitempty"`
	Records    int       `json:"records,omitempty"`
	Trigger    string    `json:"trigger,omitempty"`
	CacheHit   bool      `json:"cacheHit"`
	LatencyMs  int64     `json:"latencyMs"`
	RequestID  string    `json:"requestId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Key returns the partition key: the item for per-item events, the type
// otherwise.
func (e EngineEvent) Key() string {
	if e.ItemID != "" {
		return e.ItemID
	}
	return string(e.Type)
}
