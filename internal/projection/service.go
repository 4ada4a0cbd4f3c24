// Package projection applies committed ledger events to the two
// read-optimized stores from spec.md §4.5: a KV store for point lookups
// and a relational store for analytical queries. Both targets are
// attempted independently and a failure in one never blocks the other —
// grounded on the teacher's AccountCommandService.HandleTransactionEvent,
// whose event-id-keyed idempotency check is the same shape this package
// applies to both targets.
package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eagleledger/ledger/internal/ledger"
)

// Target is satisfied by both KVTarget and RelationalTarget.
type Target interface {
	Apply(ctx context.Context, event ledger.Event) error
}

// Service is the projection service the stream consumer dispatches every
// record to. It implements stream.Projector.
type Service struct {
	kv          Target
	relational  Target
	callTimeout time.Duration
	log         *slog.Logger
}

func NewService(kv, relational Target, callTimeout time.Duration, log *slog.Logger) *Service {
	if callTimeout <= 0 {
		callTimeout = 5 * time.Second
	}
	return &Service{kv: kv, relational: relational, callTimeout: callTimeout, log: log}
}

// Apply attempts the KV and relational targets concurrently and reports a
// combined error if either failed, without letting one target's failure
// prevent the other's attempt. The caller (internal/stream) logs and
// discards this error — per spec.md §4.5 the stream consumer checkpoints
// after both projections return regardless of outcome, relying on
// re-delivery to close any gap.
func (s *Service) Apply(ctx context.Context, event ledger.Event) error {
	var wg sync.WaitGroup
	var kvErr, relErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		kvCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
		kvErr = s.kv.Apply(kvCtx, event)
	}()
	go func() {
		defer wg.Done()
		relCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
		relErr = s.relational.Apply(relCtx, event)
	}()
	wg.Wait()

	if kvErr != nil {
		s.log.Error("kv projection failed", "event_id", event.EventID, "aggregate_id", event.AggregateID, "err", kvErr)
	}
	if relErr != nil {
		s.log.Error("relational projection failed", "event_id", event.EventID, "aggregate_id", event.AggregateID, "err", relErr)
	}
	if kvErr == nil && relErr == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrProjection, errors.Join(kvErr, relErr))
}
