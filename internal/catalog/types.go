// Package catalog mirrors the external content store in memory and rebuilds
// the corpus index whenever the mirror changes.
package catalog

import (
	"time"

	"github.com/samherejoy-web/BTools-sub000/internal/content"
)

// Op is a catalog change operation.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Event is the payload of the catalog-changes topic. Upserts carry the full
// item; deletes carry only ItemID.
type Event struct {
	Op         Op            `json:"op"`
	Item       *content.Item `json:"item,omitempty"`
	ItemID     string        `json:"itemId,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// ID returns the id of the item the event refers to.
func (e Event) ID() string {
	if e.Item != nil && e.Item.ID != "" {
		return e.Item.ID
	}
	return e.ItemID
}
