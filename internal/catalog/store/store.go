// Package store reads the link-target catalog from PostgreSQL and persists
// accepted link suggestions.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lib/pq"

	"github.com/samherejoy-web/BTools-sub000/internal/content"
	apperrors "github.com/samherejoy-web/BTools-sub000/pkg/errors"
	"github.com/samherejoy-web/BTools-sub000/pkg/postgres"
	"github.com/samherejoy-web/BTools-sub000/pkg/resilience"
)

// Store expects these tables:
//
//	CREATE TABLE catalog_items (
//	    id            TEXT PRIMARY KEY,
//	    type          TEXT NOT NULL,
//	    title         TEXT NOT NULL,
//	    description   TEXT NOT NULL DEFAULT '',
//	    body          TEXT NOT NULL DEFAULT '',
//	    keywords      TEXT[] NOT NULL DEFAULT '{}',
//	    url           TEXT NOT NULL DEFAULT '',
//	    category_tags TEXT[] NOT NULL DEFAULT '{}',
//	    links         TEXT[] NOT NULL DEFAULT '{}',
//	    published     BOOLEAN NOT NULL DEFAULT TRUE
//	);
//
//	CREATE TABLE link_suggestions (
//	    source_id       TEXT NOT NULL,
//	    target_id       TEXT NOT NULL,
//	    snapshot_id     TEXT NOT NULL,
//	    anchor_text     TEXT NOT NULL,
//	    anchor_start    INT NOT NULL,
//	    anchor_end      INT NOT NULL,
//	    context         TEXT NOT NULL,
//	    relevance_score DOUBLE PRECISION NOT NULL,
//	    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    PRIMARY KEY (source_id, target_id)
//	);
type Store struct {
	db     *postgres.Client
	retry  resilience.RetryConfig
	logger *slog.Logger
}

// New creates a Store.
func New(db *postgres.Client) *Store {
	return &Store{
		db: db,
		retry: resilience.RetryConfig{
			MaxAttempts:  5,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
		logger: slog.Default().With("component", "catalog-store"),
	}
}

const loadQuery = `
SELECT id, type, title, description, body, keywords, url, category_tags, links
FROM catalog_items
WHERE published
ORDER BY id`

// LoadAll returns every published catalog item, retrying transient
// failures. Rows with an unknown type are skipped.
func (s *Store) LoadAll(ctx context.Context) ([]content.Item, error) {
	items, err := resilience.RetryValue(ctx, "catalog-load", s.retry, s.loadOnce)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrCatalogUnavailable, http.StatusServiceUnavailable, "loading catalog: %v", err)
	}
	s.logger.Info("catalog loaded", "items", len(items))
	return items, nil
}

func (s *Store) loadOnce(ctx context.Context) ([]content.Item, error) {
	rows, err := s.db.DB.QueryContext(ctx, loadQuery)
	if err != nil {
		return nil, fmt.Errorf("querying catalog items: %w", err)
	}
	defer rows.Close()

	var items []content.Item
	for rows.Next() {
		var (
			item     content.Item
			typeName string
		)
		if err := rows.Scan(
			&item.ID,
			&typeName,
			&item.Title,
			&item.Description,
			&item.Body,
			pq.Array(&item.Keywords),
			&item.URL,
			pq.Array(&item.CategoryTags),
			pq.Array(&item.Links),
		); err != nil {
			return nil, fmt.Errorf("scanning catalog item: %w", err)
		}
		t, err := content.ParseType(typeName)
		if err != nil {
			s.logger.Warn("skipping catalog item with unknown type", "item_id", item.ID, "type", typeName)
			continue
		}
		item.Type = t
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating catalog items: %w", err)
	}
	return items, nil
}

// SaveSuggestions replaces the stored suggestions of sourceID with
// suggestions in one transaction.
func (s *Store) SaveSuggestions(ctx context.Context, sourceID, snapshotID string, suggestions []content.LinkSuggestion) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM link_suggestions WHERE source_id = $1`, sourceID); err != nil {
			return fmt.Errorf("clearing suggestions: %w", err)
		}
		if len(suggestions) == 0 {
			return nil
		}
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO link_suggestions
    (source_id, target_id, snapshot_id, anchor_text, anchor_start, anchor_end, context, relevance_score)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for _, sg := range suggestions {
			if _, err := stmt.ExecContext(ctx,
				sourceID, sg.TargetID, snapshotID,
				sg.AnchorText, sg.AnchorStart, sg.AnchorEnd, sg.Context, sg.RelevanceScore,
			); err != nil {
				return fmt.Errorf("inserting suggestion %s->%s: %w", sourceID, sg.TargetID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("suggestions saved", "source_id", sourceID, "count", len(suggestions))
	return nil
}
