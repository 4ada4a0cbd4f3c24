// Package command implements the write-side orchestration from spec.md
// §4.3: load each referenced aggregate's history, reconstitute, decide,
// assign versions, and atomically append — retrying on optimistic
// conflict, surfacing every other error verbatim. It performs no
// projection writes; those flow exclusively through the change stream
// (internal/stream, internal/projection).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eagleledger/ledger/internal/cqrs"
	"github.com/eagleledger/ledger/internal/eventlog"
	"github.com/eagleledger/ledger/internal/ledger"
)

// EventLog is the subset of eventlog.Store the command service needs,
// narrowed to an interface so tests can supply an in-memory fake —
// grounded on the teacher's handler tests, which mock the
// command/query-service interfaces rather than the database.
type EventLog interface {
	AppendAtomic(ctx context.Context, events []ledger.Event) error
	ReadStream(ctx context.Context, aggregateID string) ([]ledger.Event, error)
}

// Service is the command service. Clock is overridable for deterministic
// tests; it defaults to time.Now in NewService.
type Service struct {
	log         EventLog
	retryMax    int
	callTimeout time.Duration
	clock       func() time.Time
}

func NewService(log EventLog, retryMax int, callTimeout time.Duration) *Service {
	if retryMax < 1 {
		retryMax = 3
	}
	if callTimeout <= 0 {
		callTimeout = 5 * time.Second
	}
	return &Service{log: log, retryMax: retryMax, callTimeout: callTimeout, clock: func() time.Time { return time.Now().UTC() }}
}

// readStream and appendAtomic bound every event-log call to callTimeout, per
// spec.md §5's requirement that log and store calls not block unboundedly.
func (s *Service) readStream(ctx context.Context, accountID string) ([]ledger.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.log.ReadStream(ctx, accountID)
}

func (s *Service) appendAtomic(ctx context.Context, events []ledger.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.log.AppendAtomic(ctx, events)
}

func (s *Service) OpenAccount(ctx context.Context, cmd cqrs.OpenAccountCommand) (ledger.Account, error) {
	return s.executeSingle(ctx, cmd.AccountID, ledger.OpenAccount{
		AccountID:      cmd.AccountID,
		Holder:         cmd.Holder,
		AccountType:    ledger.AccountType(cmd.AccountType),
		OpeningBalance: cmd.OpeningBalance,
	})
}

func (s *Service) Deposit(ctx context.Context, cmd cqrs.DepositCommand) (ledger.Account, error) {
	return s.executeSingle(ctx, cmd.AccountID, ledger.Deposit{AccountID: cmd.AccountID, Amount: cmd.Amount})
}

func (s *Service) Withdraw(ctx context.Context, cmd cqrs.WithdrawCommand) (ledger.Account, error) {
	return s.executeSingle(ctx, cmd.AccountID, ledger.Withdraw{AccountID: cmd.AccountID, Amount: cmd.Amount})
}

func (s *Service) CloseAccount(ctx context.Context, cmd cqrs.CloseAccountCommand) (ledger.Account, error) {
	return s.executeSingle(ctx, cmd.AccountID, ledger.Close{AccountID: cmd.AccountID})
}

// executeSingle implements the single-aggregate load/decide/append/retry
// loop shared by OpenAccount/Deposit/Withdraw/CloseAccount.
func (s *Service) executeSingle(ctx context.Context, accountID string, cmd ledger.Command) (ledger.Account, error) {
	var lastErr error
	for attempt := 0; attempt < s.retryMax; attempt++ {
		history, err := s.readStream(ctx, accountID)
		if err != nil {
			return ledger.Account{}, err
		}
		acct := ledger.LoadFromHistory(history)

		newEvents, err := ledger.Decide(cmd, acct, s.clock())
		if err != nil {
			return ledger.Account{}, err
		}
		for i := range newEvents {
			newEvents[i].Version = acct.Version + int64(i) + 1
		}

		if err := s.appendAtomic(ctx, newEvents); err != nil {
			if errors.Is(err, eventlog.ErrConflict) {
				lastErr = err
				continue
			}
			return ledger.Account{}, err
		}

		return ledger.LoadFromHistory(append(history, newEvents...)), nil
	}
	return ledger.Account{}, fmt.Errorf("%w: exceeded %d retries for aggregate %s: %v", eventlog.ErrConflict, s.retryMax, accountID, lastErr)
}

// Transfer is the one command needing two aggregates. It reads both
// streams, decides against both, and commits the withdrawal and deposit
// events as a single append_atomic batch — the atomic path spec.md §9
// says is the only correct one.
func (s *Service) Transfer(ctx context.Context, cmd cqrs.TransferCommand) (from, to ledger.Account, err error) {
	var lastErr error
	for attempt := 0; attempt < s.retryMax; attempt++ {
		fromHistory, err := s.readStream(ctx, cmd.FromAccountID)
		if err != nil {
			return ledger.Account{}, ledger.Account{}, err
		}
		toHistory, err := s.readStream(ctx, cmd.ToAccountID)
		if err != nil {
			return ledger.Account{}, ledger.Account{}, err
		}
		fromAcct := ledger.LoadFromHistory(fromHistory)
		toAcct := ledger.LoadFromHistory(toHistory)

		fromEvent, toEvent, err := ledger.DecideTransfer(ledger.Transfer{
			From: cmd.FromAccountID, To: cmd.ToAccountID, Amount: cmd.Amount,
		}, fromAcct, toAcct, s.clock())
		if err != nil {
			return ledger.Account{}, ledger.Account{}, err
		}
		fromEvent.Version = fromAcct.Version + 1
		toEvent.Version = toAcct.Version + 1

		if err := s.appendAtomic(ctx, []ledger.Event{fromEvent, toEvent}); err != nil {
			if errors.Is(err, eventlog.ErrConflict) {
				lastErr = err
				continue
			}
			return ledger.Account{}, ledger.Account{}, err
		}

		return ledger.LoadFromHistory(append(fromHistory, fromEvent)),
			ledger.LoadFromHistory(append(toHistory, toEvent)), nil
	}
	return ledger.Account{}, ledger.Account{}, fmt.Errorf("%w: exceeded %d retries for transfer %s->%s: %v",
		eventlog.ErrConflict, s.retryMax, cmd.FromAccountID, cmd.ToAccountID, lastErr)
}
