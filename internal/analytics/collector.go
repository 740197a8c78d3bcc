package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samherejoy-web/BTools-sub000/pkg/kafka"
)

const (
	defaultBufferSize = 10000
	publishBatch      = 100
	flushInterval     = 500 * time.Millisecond
	drainTimeout      = 5 * time.Second
)

// Publisher writes a batch of keyed messages.
type Publisher interface {
	PublishBatch(ctx context.Context, messages []kafka.Message) error
}

// Collector buffers events and publishes them in batches from a single
// goroutine. Track never blocks; events are dropped when the buffer is full.
type Collector struct {
	publisher Publisher
	events    chan EngineEvent
	dropped   atomic.Int64
	started   atomic.Bool
	logger    *slog.Logger
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewCollector creates a Collector. bufferSize <= 0 uses the default.
func NewCollector(p Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Collector{
		publisher: p,
		events:    make(chan EngineEvent, bufferSize),
		logger:    slog.Default().With("component", "analytics-collector"),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the publish loop until ctx is cancelled or Close is called.
func (c *Collector) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.run(ctx)
	c.logger.Info("analytics collector started", "buffer_size", cap(c.events))
}

// Track enqueues ev. Safe to call on a nil Collector.
func (c *Collector) Track(ev EngineEvent) {
	if c == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case c.events <- ev:
	default:
		if n := c.dropped.Add(1); n%1000 == 1 {
			c.logger.Warn("analytics events dropped, buffer full", "dropped_total", n)
		}
	}
}

// Dropped returns how many events were discarded.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close publishes what is buffered and waits for the loop to exit. Events
// tracked afterwards stay in the buffer unpublished.
func (c *Collector) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
	if c.started.Load() {
		<-c.done
	}
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Message, 0, publishBatch)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := c.publisher.PublishBatch(ctx, batch); err != nil {
			c.logger.Error("failed to publish analytics events", "count", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-c.events:
			batch = append(batch, kafka.Message{Key: ev.Key(), Value: ev})
			if len(batch) == publishBatch {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-c.stop:
			c.drainWithTimeout(&batch, flush)
			return
		case <-ctx.Done():
			c.drainWithTimeout(&batch, flush)
			return
		}
	}
}

// drainWithTimeout publishes whatever is already buffered without waiting
// for more.
func (c *Collector) drainWithTimeout(batch *[]kafka.Message, flush func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case ev := <-c.events:
			*batch = append(*batch, kafka.Message{Key: ev.Key(), Value: ev})
			if len(*batch) == publishBatch {
				flush(ctx)
			}
		default:
			flush(ctx)
			return
		}
	}
}
