// Package corpus maintains the versioned, read-only view of link-target
// candidates. A rebuild constructs a new Snapshot off to the side and
// publishes it with a single atomic pointer swap, so readers see either the
// old or the new snapshot in full.
package corpus

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/pkg/config"
	apperrors "github.com/samherejoy-web/BTools-sub000/pkg/errors"
)

// Info summarizes a published snapshot.
type Info struct {
	SnapshotID string               `json:"snapshotId"`
	Version    uint64               `json:"version"`
	Records    int                  `json:"records"`
	Skipped    int                  `json:"skipped"`
	ByType     map[content.Type]int `json:"byType"`
	BuiltAt    time.Time            `json:"builtAt"`
}

// Snapshot is an immutable set of records.
type Snapshot struct {
	id      string
	version uint64
	builtAt time.Time
	skipped int
	records []Record
	byID    map[string]int
	urlKeys map[string]struct{}
}

// ID returns the snapshot's unique id.
func (s *Snapshot) ID() string { return s.id }

// Version returns the snapshot's monotonically increasing version.
func (s *Snapshot) Version() uint64 { return s.version }

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.records) }

// Records returns the records ordered by id. The slice must not be modified.
func (s *Snapshot) Records() []Record { return s.records }

// Get looks a record up by id.
func (s *Snapshot) Get(id string) (Record, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// URLKeys returns the normalized URLs of every record. Read-only.
func (s *Snapshot) URLKeys() map[string]struct{} { return s.urlKeys }

// Info describes the snapshot.
func (s *Snapshot) Info() Info {
	byType := make(map[content.Type]int, len(content.Types))
	for _, r := range s.records {
		byType[r.Type]++
	}
	return Info{
		SnapshotID: s.id,
		Version:    s.version,
		Records:    len(s.records),
		Skipped:    s.skipped,
		ByType:     byType,
		BuiltAt:    s.builtAt,
	}
}

// CandidatesFor returns every record except the source itself and those
// whose id or URL appears in exclude. No ranking happens here.
func (s *Snapshot) CandidatesFor(source content.Item, exclude Exclusions) []Record {
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if r.ID == source.ID || exclude.Has(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Exclusions is a set of target ids and normalized URLs.
type Exclusions struct {
	ids  map[string]struct{}
	urls map[string]struct{}
}

// NewExclusions builds the exclusion set for one request. Each entry may be
// an item id or a URL; the source's own URL is always excluded.
func NewExclusions(policy content.LinkPolicy, source content.Item, entries []string) Exclusions {
	ex := Exclusions{
		ids:  make(map[string]struct{}, len(entries)),
		urls: make(map[string]struct{}, len(entries)+1),
	}
	for _, e := range entries {
		if e == "" {
			continue
		}
		ex.ids[e] = struct{}{}
		if key := policy.Normalize(e); key != "" {
			ex.urls[key] = struct{}{}
		}
	}
	if key := policy.Normalize(source.URL); key != "" {
		ex.urls[key] = struct{}{}
	}
	return ex
}

// Has reports whether r is excluded.
func (e Exclusions) Has(r Record) bool {
	if _, ok := e.ids[r.ID]; ok {
		return true
	}
	if r.URLKey == "" {
		return false
	}
	_, ok := e.urls[r.URLKey]
	return ok
}

// Index publishes snapshots. Rebuilds are serialized; readers never block.
type Index struct {
	current      atomic.Pointer[Snapshot]
	writeMu      sync.Mutex
	version      uint64
	policy       content.LinkPolicy
	keywordLimit int
	logger       *slog.Logger
}

// New creates an Index with no snapshot.
func New(cfg config.EngineConfig) *Index {
	limit := cfg.Relevance.KeywordLimit
	if limit <= 0 {
		limit = config.DefaultEngine().Relevance.KeywordLimit
	}
	return &Index{
		policy:       content.NewLinkPolicy(cfg.SiteHosts),
		keywordLimit: limit,
		logger:       slog.Default().With("component", "corpus-index"),
	}
}

// Policy returns the link policy used to normalize record URLs.
func (ix *Index) Policy() content.LinkPolicy { return ix.policy }

// Current returns the published snapshot, or nil if none was ever built.
func (ix *Index) Current() *Snapshot {
	return ix.current.Load()
}

// CandidatesFor runs against the current snapshot. With no snapshot it
// returns an empty list.
func (ix *Index) CandidatesFor(source content.Item, exclude Exclusions) []Record {
	snap := ix.current.Load()
	if snap == nil {
		return []Record{}
	}
	return snap.CandidatesFor(source, exclude)
}

// Rebuild indexes items into a new snapshot and publishes it. A concurrent
// Rebuild waits for the one in progress to finish.
func (ix *Index) Rebuild(items []content.Item) Info {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	return ix.rebuildLocked(items)
}

// TryRebuild is Rebuild that fails with ErrRebuildInProgress instead of
// waiting.
func (ix *Index) TryRebuild(items []content.Item) (Info, error) {
	if !ix.writeMu.TryLock() {
		return Info{}, apperrors.ErrRebuildInProgress
	}
	defer ix.writeMu.Unlock()
	return ix.rebuildLocked(items), nil
}

func (ix *Index) rebuildLocked(items []content.Item) Info {
	start := time.Now()
	latest := make(map[string]content.Item, len(items))
	skipped := 0
	for _, item := range items {
		if err := content.Validate(item); err != nil {
			skipped++
			ix.logger.Warn("skipping invalid catalog item", "item_id", item.ID, "error", err)
			continue
		}
		latest[item.ID] = item
	}

	records := make([]Record, 0, len(latest))
	for _, item := range latest {
		records = append(records, newRecord(item, ix.policy, ix.keywordLimit))
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
	byID := make(map[string]int, len(records))
	urlKeys := make(map[string]struct{}, len(records))
	for i, r := range records {
		byID[r.ID] = i
		if r.URLKey != "" {
			urlKeys[r.URLKey] = struct{}{}
		}
	}

	ix.version++
	snap := &Snapshot{
		id:      uuid.NewString(),
		version: ix.version,
		builtAt: time.Now().UTC(),
		skipped: skipped,
		records: records,
		byID:    byID,
		urlKeys: urlKeys,
	}
	ix.current.Store(snap)

	info := snap.Info()
	ix.logger.Info("corpus snapshot published",
		"snapshot_id", info.SnapshotID,
		"version", info.Version,
		"records", info.Records,
		"skipped", info.Skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return info
}
