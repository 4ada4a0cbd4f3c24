package projection

import (
	"time"

	"github.com/eagleledger/ledger/internal/platform/money"
)

// AccountBalanceView is the KV projection's account_balance row, per
// spec.md §6. LastAppliedVersion is the idempotency guard spec.md §4.5
// allows as an alternative to checking transaction-row existence: a
// balance-changing event whose Version is not strictly greater than the
// stored one has already been applied and is skipped.
type AccountBalanceView struct {
	AccountID          string       `json:"account_id"`
	Balance            money.Amount `json:"balance"`
	Status             string       `json:"status"`
	Holder             string       `json:"holder"`
	Type               string       `json:"type"`
	LastUpdated        time.Time    `json:"last_updated"`
	LastAppliedVersion int64        `json:"last_applied_version"`
}

// TransactionView is one row of the KV projection's transaction_history
// index, keyed by TransactionID (the originating event's EventID) for
// idempotent inserts.
type TransactionView struct {
	TransactionID   string       `json:"transaction_id"`
	AccountID       string       `json:"account_id"`
	TransactionType string       `json:"transaction_type"`
	Amount          money.Amount `json:"amount"`
	Timestamp       time.Time    `json:"timestamp"`
}

const (
	TxOpeningDeposit = "OPENING_DEPOSIT"
	TxDeposit        = "DEPOSIT"
	TxWithdrawal     = "WITHDRAWAL"
)
