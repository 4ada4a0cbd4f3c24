package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Decide validates cmd against acct and returns the new events it
// produces. It never mutates acct. Versions are not assigned here — the
// command service assigns Version = acct.Version + position once it knows
// how many events the command will produce (DecideTransfer's two events
// each take their own account's next version); Decide always returns
// events with Version left at 0.
func Decide(cmd Command, acct Account, now time.Time) ([]Event, error) {
	switch c := cmd.(type) {
	case OpenAccount:
		return decideOpen(c, acct, now)
	case Deposit:
		return decideDeposit(c, acct, now)
	case Withdraw:
		return decideWithdraw(c, acct, now)
	case Close:
		return decideClose(c, acct, now)
	default:
		panic("ledger: Decide called with unsupported single-aggregate command")
	}
}

func decideOpen(c OpenAccount, acct Account, now time.Time) ([]Event, error) {
	if !acct.IsEmpty() {
		return nil, newDomainError(RuleAccountAlreadyExists, c.AccountID, nil)
	}
	if c.OpeningBalance.IsNegative() {
		return nil, newDomainError(RuleNegativeOpeningBalance, c.AccountID, map[string]string{
			"opening_balance": c.OpeningBalance.String(),
		})
	}
	return []Event{{
		EventID:       uuid.New(),
		AggregateID:   c.AccountID,
		AggregateType: AggregateTypeAccount,
		Type:          AccountOpened,
		Timestamp:     now,
		Payload: AccountOpenedPayload{
			Holder:         c.Holder,
			AccountType:    c.AccountType,
			OpeningBalance: c.OpeningBalance,
			CreatedAt:      now,
		},
	}}, nil
}

func decideDeposit(c Deposit, acct Account, now time.Time) ([]Event, error) {
	if err := requireActive(acct, c.AccountID); err != nil {
		return nil, err
	}
	if !c.Amount.IsPositive() {
		return nil, newDomainError(RuleNonPositiveAmount, c.AccountID, map[string]string{"amount": c.Amount.String()})
	}
	return []Event{{
		EventID:       uuid.New(),
		AggregateID:   c.AccountID,
		AggregateType: AggregateTypeAccount,
		Type:          FundsDeposited,
		Timestamp:     now,
		Payload:       FundsDepositedPayload{Amount: c.Amount},
	}}, nil
}

func decideWithdraw(c Withdraw, acct Account, now time.Time) ([]Event, error) {
	if err := requireActive(acct, c.AccountID); err != nil {
		return nil, err
	}
	if !c.Amount.IsPositive() {
		return nil, newDomainError(RuleNonPositiveAmount, c.AccountID, map[string]string{"amount": c.Amount.String()})
	}
	if acct.Balance.LessThan(c.Amount) {
		return nil, newDomainError(RuleInsufficientFunds, c.AccountID, map[string]string{
			"balance": acct.Balance.String(), "requested": c.Amount.String(),
		})
	}
	return []Event{{
		EventID:       uuid.New(),
		AggregateID:   c.AccountID,
		AggregateType: AggregateTypeAccount,
		Type:          FundsWithdrawn,
		Timestamp:     now,
		Payload:       FundsWithdrawnPayload{Amount: c.Amount},
	}}, nil
}

func decideClose(c Close, acct Account, now time.Time) ([]Event, error) {
	if err := requireActive(acct, c.AccountID); err != nil {
		return nil, err
	}
	if !acct.Balance.IsZero() {
		return nil, newDomainError(RuleCloseWithBalance, c.AccountID, map[string]string{"balance": acct.Balance.String()})
	}
	return []Event{{
		EventID:       uuid.New(),
		AggregateID:   c.AccountID,
		AggregateType: AggregateTypeAccount,
		Type:          AccountClosed,
		Timestamp:     now,
		Payload:       AccountClosedPayload{},
	}}, nil
}

// DecideTransfer is the two-aggregate counterpart to Decide: it validates
// a Transfer against both the source and destination accounts and returns
// the withdrawal event (for From) and the deposit event (for To) that the
// command service must commit together in a single append_atomic call.
func DecideTransfer(c Transfer, from, to Account, now time.Time) (fromEvent, toEvent Event, err error) {
	if c.From == c.To {
		return Event{}, Event{}, newDomainError(RuleSameAccountTransfer, c.From, nil)
	}
	if !c.Amount.IsPositive() {
		return Event{}, Event{}, newDomainError(RuleNonPositiveAmount, c.From, map[string]string{"amount": c.Amount.String()})
	}
	if err := requireActive(from, c.From); err != nil {
		return Event{}, Event{}, err
	}
	if err := requireActive(to, c.To); err != nil {
		return Event{}, Event{}, err
	}
	if from.Balance.LessThan(c.Amount) {
		return Event{}, Event{}, newDomainError(RuleInsufficientFunds, c.From, map[string]string{
			"balance": from.Balance.String(), "requested": c.Amount.String(),
		})
	}
	fromEvent = Event{
		EventID:       uuid.New(),
		AggregateID:   c.From,
		AggregateType: AggregateTypeAccount,
		Type:          FundsWithdrawn,
		Timestamp:     now,
		Payload:       FundsWithdrawnPayload{Amount: c.Amount},
	}
	toEvent = Event{
		EventID:       uuid.New(),
		AggregateID:   c.To,
		AggregateType: AggregateTypeAccount,
		Type:          FundsDeposited,
		Timestamp:     now,
		Payload:       FundsDepositedPayload{Amount: c.Amount},
	}
	return fromEvent, toEvent, nil
}

func requireActive(acct Account, accountID string) error {
	if acct.IsEmpty() {
		return newDomainError(RuleAccountNotFound, accountID, nil)
	}
	if acct.Status != StatusActive {
		return newDomainError(RuleAccountClosed, accountID, nil)
	}
	return nil
}
