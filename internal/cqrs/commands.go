// Package cqrs holds the request-shaped structs the HTTP ingress builds
// and hands to the command and query services — kept from the teacher's
// shared/cqrs package and narrowed to the ledger's own commands/queries.
package cqrs

import "github.com/eagleledger/ledger/internal/platform/money"

type OpenAccountCommand struct {
	AccountID      string
	Holder         string
	AccountType    string
	OpeningBalance money.Amount
}

type DepositCommand struct {
	AccountID string
	Amount    money.Amount
}

type WithdrawCommand struct {
	AccountID string
	Amount    money.Amount
}

type CloseAccountCommand struct {
	AccountID string
}

type TransferCommand struct {
	FromAccountID string
	ToAccountID   string
	Amount        money.Amount
}
