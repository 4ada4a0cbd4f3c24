package ledger

import (
	"time"

	"github.com/eagleledger/ledger/internal/platform/money"
	"github.com/google/uuid"
)

// EventType tags the closed set of events this aggregate can produce.
// FundsTransferred is deliberately absent: a transfer is represented as a
// withdrawal on the source account and a deposit on the destination
// account, committed together by the command service. It is never stored
// as its own event type.
type EventType string

const (
	AccountOpened    EventType = "AccountOpened"
	FundsDeposited   EventType = "FundsDeposited"
	FundsWithdrawn   EventType = "FundsWithdrawn"
	AccountClosed    EventType = "AccountClosed"
)

// Event is the immutable, versioned fact recorded against one aggregate.
// Payload holds exactly one of the *Payload types below, selected by Type.
type Event struct {
	EventID       uuid.UUID
	AggregateID   string
	AggregateType string
	Version       int64
	Type          EventType
	Timestamp     time.Time
	Payload       EventPayload
}

// EventPayload is implemented by each of the four payload types. It exists
// so Event.Payload is statically narrower than any, while still letting
// serialization and projection code switch exhaustively on Event.Type.
type EventPayload interface {
	eventPayload()
}

type AccountOpenedPayload struct {
	Holder         string
	AccountType    AccountType
	OpeningBalance money.Amount
	CreatedAt      time.Time
}

type FundsDepositedPayload struct {
	Amount money.Amount
}

type FundsWithdrawnPayload struct {
	Amount money.Amount
}

type AccountClosedPayload struct{}

func (AccountOpenedPayload) eventPayload()  {}
func (FundsDepositedPayload) eventPayload() {}
func (FundsWithdrawnPayload) eventPayload() {}
func (AccountClosedPayload) eventPayload()  {}

const AggregateTypeAccount = "account"
