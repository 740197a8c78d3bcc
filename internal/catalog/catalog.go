package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/internal/indexer/corpus"
	apperrors "github.com/samherejoy-web/BTools-sub000/pkg/errors"
)

// Rebuilder publishes a new corpus snapshot from a full item list.
type Rebuilder interface {
	RebuildIndex(ctx context.Context, items []content.Item) (corpus.Info, error)
}

// RebuildFunc observes every successful rebuild.
type RebuildFunc func(trigger string, info corpus.Info)

// Rebuild triggers.
const (
	TriggerLoad  = "load"
	TriggerEvent = "event"
)

// Catalog is the in-memory mirror. Mutations are serialized and each one
// ends with a full index rebuild.
type Catalog struct {
	mu        sync.Mutex
	items     map[string]content.Item
	rebuilder Rebuilder
	onRebuild RebuildFunc
	logger    *slog.Logger
}

// New creates an empty Catalog. onRebuild may be nil.
func New(r Rebuilder, onRebuild RebuildFunc) *Catalog {
	return &Catalog{
		items:     make(map[string]content.Item),
		rebuilder: r,
		onRebuild: onRebuild,
		logger:    slog.Default().With("component", "catalog"),
	}
}

// Load replaces the whole mirror with items and rebuilds.
func (c *Catalog) Load(ctx context.Context, items []content.Item) (corpus.Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]content.Item, len(items))
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c.rebuildLocked(ctx, TriggerLoad)
}

// Apply applies one change event and rebuilds. Malformed events are
// rejected with ErrInvalidInput and leave the mirror untouched.
func (c *Catalog) Apply(ctx context.Context, ev Event) (corpus.Info, error) {
	if err := validateEvent(ev); err != nil {
		return corpus.Info{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Op {
	case OpUpsert:
		c.items[ev.Item.ID] = *ev.Item
	case OpDelete:
		if _, ok := c.items[ev.ItemID]; !ok {
			c.logger.Debug("delete for unknown item ignored", "item_id", ev.ItemID)
			return corpus.Info{}, nil
		}
		delete(c.items, ev.ItemID)
	}
	return c.rebuildLocked(ctx, TriggerEvent)
}

// Items returns the mirrored items ordered by id.
func (c *Catalog) Items() []content.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortedLocked()
}

// Len returns the number of mirrored items.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Catalog) rebuildLocked(ctx context.Context, trigger string) (corpus.Info, error) {
	info, err := c.rebuilder.RebuildIndex(ctx, c.sortedLocked())
	if err != nil {
		return corpus.Info{}, fmt.Errorf("rebuilding index after %s: %w", trigger, err)
	}
	if c.onRebuild != nil {
		c.onRebuild(trigger, info)
	}
	return info, nil
}

func (c *Catalog) sortedLocked() []content.Item {
	out := make([]content.Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func validateEvent(ev Event) error {
	switch ev.Op {
	case OpUpsert:
		if ev.Item == nil {
			return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "upsert event without item")
		}
		if err := content.Validate(*ev.Item); err != nil {
			return fmt.Errorf("upsert event: %w", err)
		}
	case OpDelete:
		if ev.ItemID == "" {
			return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "delete event without itemId")
		}
	default:
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown catalog op %q", ev.Op)
	}
	return nil
}
