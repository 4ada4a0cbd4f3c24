package ledger

// LoadFromHistory folds a version-ordered event list over an empty initial
// state. An empty slice yields the zero Account (IsEmpty() == true).
//
// Applying AccountOpened to a non-empty account is a programmer error: it
// cannot happen through Decide, which never emits a second AccountOpened
// for an existing aggregate, so apply panics rather than silently
// producing a nonsensical state.
func LoadFromHistory(events []Event) Account {
	var acct Account
	for _, e := range events {
		acct = apply(acct, e)
	}
	return acct
}

func apply(acct Account, e Event) Account {
	switch p := e.Payload.(type) {
	case AccountOpenedPayload:
		if !acct.IsEmpty() {
			panic("ledger: AccountOpened applied to a non-empty account")
		}
		acct = Account{
			ID:        e.AggregateID,
			Holder:    p.Holder,
			Type:      p.AccountType,
			Balance:   p.OpeningBalance,
			Status:    StatusActive,
			CreatedAt: p.CreatedAt,
		}
	case FundsDepositedPayload:
		acct.Balance = acct.Balance.Add(p.Amount)
	case FundsWithdrawnPayload:
		acct.Balance = acct.Balance.Sub(p.Amount)
	case AccountClosedPayload:
		acct.Status = StatusClosed
	}
	acct.Version = e.Version
	return acct
}
