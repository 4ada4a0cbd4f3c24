package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/eagleledger/ledger/internal/eventlog"
)

// shardWorker owns exactly one shard's cursor — the only piece of
// long-lived mutable state in the process, confined to this goroutine per
// spec.md §9. It runs Initializing -> Polling -> (Recovering) -> Stopped.
type shardWorker struct {
	shard       int
	outbox      OutboxReader
	checkpoints CheckpointStore
	projector   Projector
	cfg         Config
	log         *slog.Logger
}

const maxRecoveryBackoff = 30 * time.Second

func (w *shardWorker) run(ctx context.Context) {
	cursor, err := w.initializeCursor(ctx)
	backoff := time.Second
	for err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.Error("initializing shard failed, recovering", "err", err)
		if !sleep(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
		cursor, err = w.initializeCursor(ctx)
	}
	w.log.Info("shard initialized", "cursor", cursor)

	backoff = time.Second
	for {
		if ctx.Err() != nil {
			w.log.Info("shard stopping")
			return
		}

		records, fetchErr := w.fetch(ctx, cursor)
		if fetchErr != nil {
			w.log.Error("fetch failed, recovering", "err", fetchErr)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = time.Second

		if len(records) == 0 {
			if !sleep(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		for _, rec := range records {
			if rec.RecordType != "INSERT" {
				// Configuration drift per spec.md §6: the log is
				// append-only, so MODIFY/REMOVE should never appear.
				cursor = rec.Seq
				continue
			}
			event, decodeErr := eventlog.Decode(rec.Data)
			if decodeErr != nil {
				w.log.Error("poison message, skipping", "seq", rec.Seq, "err", decodeErr)
				cursor = rec.Seq
				continue
			}
			if applyErr := w.projector.Apply(ctx, event); applyErr != nil {
				w.log.Error("projection apply failed", "event_id", event.EventID, "err", applyErr)
			}
			cursor = rec.Seq
		}

		if saveErr := w.saveCheckpoint(ctx, cursor); saveErr != nil {
			w.log.Error("checkpoint save failed", "cursor", cursor, "err", saveErr)
		}

		if !sleep(ctx, w.cfg.PollInterval) {
			return
		}
	}
}

func (w *shardWorker) initializeCursor(ctx context.Context) (int64, error) {
	switch w.cfg.InitPolicy {
	case Latest:
		ctx, cancel := context.WithTimeout(ctx, w.cfg.CallTimeout)
		defer cancel()
		return w.outbox.MaxSeq(ctx, w.shard)
	case TrimHorizon:
		return 0, nil
	case AfterCheckpoint:
		ctx, cancel := context.WithTimeout(ctx, w.cfg.CallTimeout)
		defer cancel()
		seq, ok, err := w.checkpoints.Load(ctx, w.shard)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, nil
		}
		return seq, nil
	default:
		return 0, nil
	}
}

func (w *shardWorker) fetch(ctx context.Context, cursor int64) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.CallTimeout)
	defer cancel()
	return w.outbox.Fetch(ctx, w.shard, cursor, w.cfg.BatchLimit)
}

func (w *shardWorker) saveCheckpoint(ctx context.Context, cursor int64) error {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.CallTimeout)
	defer cancel()
	return w.checkpoints.Save(ctx, w.shard, cursor)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxRecoveryBackoff {
		return maxRecoveryBackoff
	}
	return d
}
