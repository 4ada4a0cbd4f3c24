package ledger

import "github.com/eagleledger/ledger/internal/platform/money"

// Command is the closed set of operations the command service can Decide
// against one or two reconstituted accounts.
type Command interface {
	command()
}

type OpenAccount struct {
	AccountID      string
	Holder         string
	AccountType    AccountType
	OpeningBalance money.Amount
}

type Deposit struct {
	AccountID string
	Amount    money.Amount
}

type Withdraw struct {
	AccountID string
	Amount    money.Amount
}

type Close struct {
	AccountID string
}

// Transfer is never represented in the event log itself — DecideTransfer
// expands it into a FundsWithdrawn on From and a FundsDeposited on To, per
// spec.md §9. It is the one command that needs two aggregates at once,
// which is why DecideTransfer (decide.go) takes both accounts explicitly;
// the single-aggregate Decide does not accept it.
type Transfer struct {
	From   string
	To     string
	Amount money.Amount
}

func (OpenAccount) command() {}
func (Deposit) command()     {}
func (Withdraw) command()    {}
func (Close) command()       {}
func (Transfer) command()    {}
