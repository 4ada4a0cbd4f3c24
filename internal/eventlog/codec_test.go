package eventlog

import (
	"testing"
	"time"

	"github.com/eagleledger/ledger/internal/ledger"
	"github.com/eagleledger/ledger/internal/platform/money"
	"github.com/google/uuid"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	opening, _ := money.New("100.0000")
	e := ledger.Event{
		EventID:       uuid.New(),
		AggregateID:   "acct-1",
		AggregateType: ledger.AggregateTypeAccount,
		Version:       1,
		Type:          ledger.AccountOpened,
		Timestamp:     time.Now().UTC().Truncate(time.Millisecond),
		Payload: ledger.AccountOpenedPayload{
			Holder:         "Jane",
			AccountType:    ledger.Checking,
			OpeningBalance: opening,
			CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	data, err := Encode(e)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.EventID != e.EventID || got.AggregateID != e.AggregateID || got.Version != e.Version || got.Type != e.Type {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, e)
	}
	gotPayload, ok := got.Payload.(ledger.AccountOpenedPayload)
	if !ok {
		t.Fatalf("expected AccountOpenedPayload, got %T", got.Payload)
	}
	if !gotPayload.OpeningBalance.Decimal.Equal(opening.Decimal) {
		t.Fatalf("expected opening balance %s, got %s", opening, gotPayload.OpeningBalance)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	amount, _ := money.New("42.5000")
	e := ledger.Event{
		EventID:       uuid.New(),
		AggregateID:   "acct-2",
		AggregateType: ledger.AggregateTypeAccount,
		Version:       2,
		Type:          ledger.FundsDeposited,
		Timestamp:     time.Now().UTC().Truncate(time.Millisecond),
		Payload:       ledger.FundsDepositedPayload{Amount: amount},
	}

	first, err := Encode(e)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	second, err := Encode(e)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("expected identical encodings, got %q and %q", first, second)
	}
}

func TestDecodeRejectsUnknownEventType(t *testing.T) {
	_, err := Decode([]byte(`{"event_id":"` + uuid.New().String() + `","event_type":"NotARealEvent","payload":{}}`))
	if err == nil {
		t.Fatal("expected error decoding unknown event type")
	}
}

func TestShardForIsStablePerAggregate(t *testing.T) {
	a := ShardFor("acct-1", 8)
	b := ShardFor("acct-1", 8)
	if a != b {
		t.Fatalf("expected stable shard assignment, got %d and %d", a, b)
	}
}
