// Package ledger is the pure aggregate model: folding event history into
// account state, and validating commands against that state to produce new
// events. Nothing in this package talks to a database, a clock source
// other than the caller, or the network — it is safe to unit test in
// isolation and is the only place the money-movement rules live.
package ledger

import (
	"time"

	"github.com/eagleledger/ledger/internal/platform/money"
)

// AccountType distinguishes the two kinds of account this ledger supports.
type AccountType string

const (
	Checking AccountType = "checking"
	Savings  AccountType = "savings"
)

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// Account is the aggregate: reconstituted on demand from its event stream,
// never persisted as a first-class row anywhere.
type Account struct {
	ID        string
	Holder    string
	Type      AccountType
	Balance   money.Amount
	Status    Status
	CreatedAt time.Time
	Version   int64
}

// IsEmpty reports whether this Account has never had an event applied to
// it — the zero value returned by LoadFromHistory(nil).
func (a Account) IsEmpty() bool {
	return a.Version == 0 && a.Holder == "" && a.Status == ""
}

func (a Account) IsActive() bool {
	return !a.IsEmpty() && a.Status == StatusActive
}
