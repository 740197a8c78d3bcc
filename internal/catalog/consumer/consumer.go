// Package consumer applies catalog change events from Kafka to the
// in-memory catalog.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samherejoy-web/BTools-sub000/internal/catalog"
	"github.com/samherejoy-web/BTools-sub000/internal/indexer/corpus"
	apperrors "github.com/samherejoy-web/BTools-sub000/pkg/errors"
	"github.com/samherejoy-web/BTools-sub000/pkg/kafka"
	"github.com/samherejoy-web/BTools-sub000/pkg/metrics"
)

// Applier applies one catalog event.
type Applier interface {
	Apply(ctx context.Context, ev catalog.Event) (corpus.Info, error)
}

// Event outcome labels.
const (
	statusApplied  = "applied"
	statusRejected = "rejected"
	statusFailed   = "failed"
)

// HandleMessage returns a kafka.MessageHandler that decodes catalog events
// and applies them. Undecodable or invalid events are skipped so they do not
// block the partition; other failures leave the offset uncommitted. m may be
// nil.
func HandleMessage(a Applier, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "catalog-consumer")
	count := func(op catalog.Op, status string) {
		if m != nil {
			m.CatalogEventsTotal.WithLabelValues(string(op), status).Inc()
		}
	}
	return func(ctx context.Context, key, value []byte) error {
		ev, err := kafka.DecodeJSON[catalog.Event](value)
		if err != nil {
			count("unknown", statusRejected)
			logger.Error("failed to decode catalog event", "key", string(key), "error", err)
			return err
		}

		info, err := a.Apply(ctx, ev)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, apperrors.ErrInvalidParameter):
			count(ev.Op, statusRejected)
			return fmt.Errorf("catalog event %s for %q: %w: %w", ev.Op, ev.ID(), kafka.ErrSkip, err)
		default:
			count(ev.Op, statusFailed)
			return fmt.Errorf("applying catalog event %s for %q: %w", ev.Op, ev.ID(), err)
		}

		count(ev.Op, statusApplied)
		logger.Info("catalog event applied",
			"op", ev.Op,
			"item_id", ev.ID(),
			"snapshot_id", info.SnapshotID,
			"records", info.Records,
		)
		return nil
	}
}
