// Package stream tails the event log's change stream (the event_outbox
// table in internal/eventlog), shards the work across one worker per
// shard, and dispatches each record to the projection service in strict
// per-shard order, per spec.md §4.4.
package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eagleledger/ledger/internal/ledger"
)

// Record is one change-stream row. RecordType is always "INSERT" in this
// implementation (the log is append-only) but the field exists because
// spec.md §6 requires consumers to defensively ignore MODIFY/REMOVE
// records, which a differently-configured store could still emit.
type Record struct {
	Shard      int
	Seq        int64
	RecordType string
	Data       []byte
}

// OutboxReader is the change-stream transport: shard discovery plus
// cursor-bounded fetch, and the min/max sequence queries the three
// initial-iterator policies need.
type OutboxReader interface {
	DescribeShards(ctx context.Context) ([]int, error)
	Fetch(ctx context.Context, shard int, afterSeq int64, limit int) ([]Record, error)
	MaxSeq(ctx context.Context, shard int) (int64, error)
}

// CheckpointStore persists the last processed sequence number per shard.
type CheckpointStore interface {
	Load(ctx context.Context, shard int) (seq int64, ok bool, err error)
	Save(ctx context.Context, shard int, seq int64) error
}

// Projector is the subset of the projection service the stream consumer
// needs: apply one decoded event, idempotently, to both read targets.
// Apply's error is logged by the caller, never propagated further — a
// projection failure isolates to its own target (spec.md §4.5) and never
// halts the stream.
type Projector interface {
	Apply(ctx context.Context, event ledger.Event) error
}

// IteratorPolicy selects where a shard worker starts reading on
// Initializing, per spec.md §4.4.
type IteratorPolicy string

const (
	Latest          IteratorPolicy = "LATEST"
	TrimHorizon     IteratorPolicy = "TRIM_HORIZON"
	AfterCheckpoint IteratorPolicy = "AFTER_CHECKPOINT"
)

type Config struct {
	PollInterval     time.Duration
	BatchLimit       int
	InitPolicy       IteratorPolicy
	DescribeInterval time.Duration
	// CallTimeout bounds every individual outbox/checkpoint call, per
	// spec.md §5's requirement that log and store calls not block
	// unboundedly.
	CallTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = 100
	}
	if c.InitPolicy == "" {
		c.InitPolicy = AfterCheckpoint
	}
	if c.DescribeInterval <= 0 {
		c.DescribeInterval = 30 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 5 * time.Second
	}
	return c
}

// Consumer owns the set of active shard workers. Its only long-lived
// mutable in-process state is that set — each worker's cursor is private
// to the worker goroutine that owns it, per spec.md §9.
type Consumer struct {
	outbox      OutboxReader
	checkpoints CheckpointStore
	projector   Projector
	cfg         Config
	log         *slog.Logger

	mu      sync.Mutex
	workers map[int]context.CancelFunc
}

func NewConsumer(outbox OutboxReader, checkpoints CheckpointStore, projector Projector, cfg Config, log *slog.Logger) *Consumer {
	return &Consumer{
		outbox:      outbox,
		checkpoints: checkpoints,
		projector:   projector,
		cfg:         cfg.withDefaults(),
		log:         log,
		workers:     map[int]context.CancelFunc{},
	}
}

// Run blocks until ctx is canceled, periodically re-describing the shard
// set and starting a worker for every newly discovered shard, and
// canceling workers for shards that have disappeared (split/merge,
// spec.md §4.4). It returns once every worker has finished its in-flight
// batch and exited.
func (c *Consumer) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	reconcile := func() {
		describeCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		shards, err := c.outbox.DescribeShards(describeCtx)
		cancel()
		if err != nil {
			c.log.Error("describe shards failed", "err", err)
			return
		}
		active := map[int]bool{}
		for _, shard := range shards {
			active[shard] = true
		}

		c.mu.Lock()
		for _, shard := range shards {
			if _, ok := c.workers[shard]; ok {
				continue
			}
			workerCtx, cancel := context.WithCancel(ctx)
			c.workers[shard] = cancel
			w := &shardWorker{
				shard:       shard,
				outbox:      c.outbox,
				checkpoints: c.checkpoints,
				projector:   c.projector,
				cfg:         c.cfg,
				log:         c.log.With("shard", shard),
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.run(workerCtx)
			}()
		}
		for shard, cancel := range c.workers {
			if !active[shard] {
				cancel()
				delete(c.workers, shard)
			}
		}
		c.mu.Unlock()
	}

	reconcile()

	ticker := time.NewTicker(c.cfg.DescribeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			for _, cancel := range c.workers {
				cancel()
			}
			c.mu.Unlock()
			wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			reconcile()
		}
	}
}
