package query

import (
	"context"
	"errors"
	"testing"

	"github.com/eagleledger/ledger/internal/cqrs"
	"github.com/eagleledger/ledger/internal/platform/money"
	"github.com/eagleledger/ledger/internal/projection"
)

type fakeReader struct {
	balances     map[string]projection.AccountBalanceView
	transactions map[string][]projection.TransactionView
}

func (f *fakeReader) GetBalance(ctx context.Context, accountID string) (*projection.AccountBalanceView, bool, error) {
	v, ok := f.balances[accountID]
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

func (f *fakeReader) ListTransactions(ctx context.Context, accountID string, limit int64) ([]projection.TransactionView, error) {
	return f.transactions[accountID], nil
}

func TestGetAccountNotFound(t *testing.T) {
	svc := NewService(&fakeReader{balances: map[string]projection.AccountBalanceView{}})
	_, err := svc.GetAccount(context.Background(), cqrs.GetAccountQuery{AccountID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAccountFound(t *testing.T) {
	amount, _ := money.New("100.0000")
	reader := &fakeReader{balances: map[string]projection.AccountBalanceView{
		"A": {AccountID: "A", Balance: amount, Status: "active"},
	}}
	svc := NewService(reader)
	view, err := svc.GetAccount(context.Background(), cqrs.GetAccountQuery{AccountID: "A"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Status != "active" {
		t.Fatalf("expected active status, got %s", view.Status)
	}
}

func TestListTransactionsDefaultsLimit(t *testing.T) {
	reader := &fakeReader{transactions: map[string][]projection.TransactionView{"A": {{TransactionID: "1"}}}}
	svc := NewService(reader)
	txs, err := svc.ListTransactions(context.Background(), cqrs.ListTransactionsQuery{AccountID: "A"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
}
