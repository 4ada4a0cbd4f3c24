// Package query serves reads from the KV projection — the point-lookup
// side of spec.md §1's read path — grounded on the teacher's
// AccountQueryService, which reads exclusively from its read repository
// and never touches the write store.
package query

import (
	"context"
	"errors"

	"github.com/eagleledger/ledger/internal/cqrs"
	"github.com/eagleledger/ledger/internal/projection"
)

// ErrNotFound is returned when the KV projection has no row for the
// requested account — either it has never been opened, or the
// projection simply has not caught up yet (the read side is eventually
// consistent with the write side, per spec.md §2).
var ErrNotFound = errors.New("query: account not found")

// Reader is the subset of projection.Store the query service needs.
type Reader interface {
	GetBalance(ctx context.Context, accountID string) (*projection.AccountBalanceView, bool, error)
	ListTransactions(ctx context.Context, accountID string, limit int64) ([]projection.TransactionView, error)
}

type Service struct {
	reader Reader
}

func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

func (s *Service) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*projection.AccountBalanceView, error) {
	view, ok, err := s.reader.GetBalance(ctx, q.AccountID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return view, nil
}

func (s *Service) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]projection.TransactionView, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	return s.reader.ListTransactions(ctx, q.AccountID, int64(limit))
}
