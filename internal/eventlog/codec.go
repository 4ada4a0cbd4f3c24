package eventlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/eagleledger/ledger/internal/ledger"
	"github.com/eagleledger/ledger/internal/platform/money"
	"github.com/google/uuid"
)

// envelope is the canonical wire/storage representation from spec.md §6:
// a tagged record with a fixed field order. Using a concrete struct (not a
// map[string]any) is what makes re-encoding deterministic — Go's
// encoding/json always emits struct fields in declaration order, so
// encode(decode(encode(e))) == encode(e) byte-for-byte.
type envelope struct {
	EventID       string         `json:"event_id"`
	Timestamp     int64          `json:"timestamp"`
	AggregateID   string         `json:"aggregate_id"`
	AggregateType string         `json:"aggregate_type"`
	Version       int64          `json:"version"`
	EventType     string         `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

type openedPayload struct {
	Holder         string       `json:"holder"`
	AccountType    string       `json:"account_type"`
	OpeningBalance money.Amount `json:"opening_balance"`
	CreatedAt      int64        `json:"created_at"`
}

type amountPayload struct {
	Amount money.Amount `json:"amount"`
}

type closedPayload struct{}

// Encode canonically serializes e for log storage and for change-stream
// records. The same bytes are produced regardless of how many times an
// equal event is re-encoded.
func Encode(e ledger.Event) ([]byte, error) {
	var rawPayload []byte
	var err error

	switch p := e.Payload.(type) {
	case ledger.AccountOpenedPayload:
		rawPayload, err = json.Marshal(openedPayload{
			Holder:         p.Holder,
			AccountType:    string(p.AccountType),
			OpeningBalance: p.OpeningBalance,
			CreatedAt:      p.CreatedAt.UnixMilli(),
		})
	case ledger.FundsDepositedPayload:
		rawPayload, err = json.Marshal(amountPayload{Amount: p.Amount})
	case ledger.FundsWithdrawnPayload:
		rawPayload, err = json.Marshal(amountPayload{Amount: p.Amount})
	case ledger.AccountClosedPayload:
		rawPayload, err = json.Marshal(closedPayload{})
	default:
		return nil, fmt.Errorf("eventlog: unknown payload type %T", e.Payload)
	}
	if err != nil {
		return nil, fmt.Errorf("eventlog: encode payload: %w", err)
	}

	env := envelope{
		EventID:       e.EventID.String(),
		Timestamp:     e.Timestamp.UnixMilli(),
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		Version:       e.Version,
		EventType:     string(e.Type),
		Payload:       rawPayload,
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("eventlog: encode envelope: %w", err)
	}
	return out, nil
}

// Decode is the inverse of Encode. A malformed record yields
// ErrSerialization, which the stream consumer treats as a poison message
// (spec.md §7): logged and skipped, never retried.
func Decode(data []byte) (ledger.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ledger.Event{}, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	id, err := uuid.Parse(env.EventID)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("%w: bad event_id: %v", ErrSerialization, err)
	}

	e := ledger.Event{
		EventID:       id,
		AggregateID:   env.AggregateID,
		AggregateType: env.AggregateType,
		Version:       env.Version,
		Type:          ledger.EventType(env.EventType),
		Timestamp:     time.UnixMilli(env.Timestamp).UTC(),
	}

	switch e.Type {
	case ledger.AccountOpened:
		var p openedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return ledger.Event{}, fmt.Errorf("%w: bad AccountOpened payload: %v", ErrSerialization, err)
		}
		e.Payload = ledger.AccountOpenedPayload{
			Holder:         p.Holder,
			AccountType:    ledger.AccountType(p.AccountType),
			OpeningBalance: p.OpeningBalance,
			CreatedAt:      time.UnixMilli(p.CreatedAt).UTC(),
		}
	case ledger.FundsDeposited:
		var p amountPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return ledger.Event{}, fmt.Errorf("%w: bad FundsDeposited payload: %v", ErrSerialization, err)
		}
		e.Payload = ledger.FundsDepositedPayload{Amount: p.Amount}
	case ledger.FundsWithdrawn:
		var p amountPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return ledger.Event{}, fmt.Errorf("%w: bad FundsWithdrawn payload: %v", ErrSerialization, err)
		}
		e.Payload = ledger.FundsWithdrawnPayload{Amount: p.Amount}
	case ledger.AccountClosed:
		e.Payload = ledger.AccountClosedPayload{}
	default:
		return ledger.Event{}, fmt.Errorf("%w: unknown event_type %q", ErrSerialization, env.EventType)
	}

	return e, nil
}
