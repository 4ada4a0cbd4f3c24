package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/eagleledger/ledger/internal/cqrs"
	"github.com/eagleledger/ledger/internal/eventlog"
	"github.com/eagleledger/ledger/internal/ledger"
	"github.com/eagleledger/ledger/internal/platform/money"
)

// fakeLog is an in-memory EventLog used the way the teacher's handler
// tests mock the command/query-service interfaces rather than a database.
type fakeLog struct {
	mu         sync.Mutex
	byAggID    map[string][]ledger.Event
	failConflictOnce map[string]bool
}

func newFakeLog() *fakeLog {
	return &fakeLog{byAggID: map[string][]ledger.Event{}, failConflictOnce: map[string]bool{}}
}

func (f *fakeLog) ReadStream(ctx context.Context, aggregateID string) ([]ledger.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ledger.Event, len(f.byAggID[aggregateID]))
	copy(out, f.byAggID[aggregateID])
	return out, nil
}

func (f *fakeLog) AppendAtomic(ctx context.Context, events []ledger.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, e := range events {
		if f.failConflictOnce[e.AggregateID] {
			delete(f.failConflictOnce, e.AggregateID)
			return eventlog.ErrConflict
		}
		existing := f.byAggID[e.AggregateID]
		wantVersion := int64(len(existing)) + 1
		if e.Version != wantVersion {
			return eventlog.ErrConflict
		}
	}
	for _, e := range events {
		f.byAggID[e.AggregateID] = append(f.byAggID[e.AggregateID], e)
	}
	return nil
}

func mustAmount(t *testing.T, s string) money.Amount {
	a, err := money.New(s)
	if err != nil {
		t.Fatalf("money.New(%q): %v", s, err)
	}
	return a
}

func TestOpenThenDeposit(t *testing.T) {
	log := newFakeLog()
	svc := NewService(log, 3, 0)
	ctx := context.Background()

	acct, err := svc.OpenAccount(ctx, cqrs.OpenAccountCommand{
		AccountID: "A", Holder: "Jane", AccountType: "checking", OpeningBalance: mustAmount(t, "100"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !acct.Balance.Decimal.Equal(mustAmount(t, "100").Decimal) {
		t.Fatalf("expected balance 100, got %s", acct.Balance)
	}

	acct, err = svc.Deposit(ctx, cqrs.DepositCommand{AccountID: "A", Amount: mustAmount(t, "30")})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !acct.Balance.Decimal.Equal(mustAmount(t, "130").Decimal) {
		t.Fatalf("expected balance 130, got %s", acct.Balance)
	}
}

func TestWithdrawInsufficientFundsSurfacesDomainError(t *testing.T) {
	log := newFakeLog()
	svc := NewService(log, 3, 0)
	ctx := context.Background()

	if _, err := svc.OpenAccount(ctx, cqrs.OpenAccountCommand{AccountID: "C", OpeningBalance: mustAmount(t, "10")}); err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err := svc.Withdraw(ctx, cqrs.WithdrawCommand{AccountID: "C", Amount: mustAmount(t, "20")})
	var domainErr *ledger.DomainError
	if !errors.As(err, &domainErr) || domainErr.Rule != ledger.RuleInsufficientFunds {
		t.Fatalf("expected RuleInsufficientFunds, got %v", err)
	}

	history, _ := log.ReadStream(ctx, "C")
	if len(history) != 1 {
		t.Fatalf("expected exactly one event on C's stream, got %d", len(history))
	}
}

func TestTransferAtomicity(t *testing.T) {
	log := newFakeLog()
	svc := NewService(log, 3, 0)
	ctx := context.Background()

	if _, err := svc.OpenAccount(ctx, cqrs.OpenAccountCommand{AccountID: "D", OpeningBalance: mustAmount(t, "100")}); err != nil {
		t.Fatalf("open D: %v", err)
	}
	if _, err := svc.OpenAccount(ctx, cqrs.OpenAccountCommand{AccountID: "E", OpeningBalance: mustAmount(t, "0")}); err != nil {
		t.Fatalf("open E: %v", err)
	}

	from, to, err := svc.Transfer(ctx, cqrs.TransferCommand{FromAccountID: "D", ToAccountID: "E", Amount: mustAmount(t, "40")})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !from.Balance.Decimal.Equal(mustAmount(t, "60").Decimal) {
		t.Fatalf("expected D balance 60, got %s", from.Balance)
	}
	if !to.Balance.Decimal.Equal(mustAmount(t, "40").Decimal) {
		t.Fatalf("expected E balance 40, got %s", to.Balance)
	}

	dHistory, _ := log.ReadStream(ctx, "D")
	eHistory, _ := log.ReadStream(ctx, "E")
	if len(dHistory) != 2 || len(eHistory) != 2 {
		t.Fatalf("expected two events on each side of the transfer, got D=%d E=%d", len(dHistory), len(eHistory))
	}
}

func TestRetriesOnConflictThenSucceeds(t *testing.T) {
	log := newFakeLog()
	svc := NewService(log, 3, 0)
	ctx := context.Background()

	if _, err := svc.OpenAccount(ctx, cqrs.OpenAccountCommand{AccountID: "F", OpeningBalance: mustAmount(t, "0")}); err != nil {
		t.Fatalf("open: %v", err)
	}

	log.mu.Lock()
	log.failConflictOnce["F"] = true
	log.mu.Unlock()

	acct, err := svc.Deposit(ctx, cqrs.DepositCommand{AccountID: "F", Amount: mustAmount(t, "10")})
	if err != nil {
		t.Fatalf("expected deposit to succeed after one retry, got %v", err)
	}
	if !acct.Balance.Decimal.Equal(mustAmount(t, "10").Decimal) {
		t.Fatalf("expected balance 10, got %s", acct.Balance)
	}
}

func TestCloseRequiresZeroBalance(t *testing.T) {
	log := newFakeLog()
	svc := NewService(log, 3, 0)
	ctx := context.Background()

	if _, err := svc.OpenAccount(ctx, cqrs.OpenAccountCommand{AccountID: "G", OpeningBalance: mustAmount(t, "5")}); err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err := svc.CloseAccount(ctx, cqrs.CloseAccountCommand{AccountID: "G"})
	var domainErr *ledger.DomainError
	if !errors.As(err, &domainErr) || domainErr.Rule != ledger.RuleCloseWithBalance {
		t.Fatalf("expected RuleCloseWithBalance, got %v", err)
	}

	if _, err := svc.Withdraw(ctx, cqrs.WithdrawCommand{AccountID: "G", Amount: mustAmount(t, "5")}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := svc.CloseAccount(ctx, cqrs.CloseAccountCommand{AccountID: "G"}); err != nil {
		t.Fatalf("close after zeroing balance: %v", err)
	}
}
