package projection

import (
	"context"
	"fmt"

	"github.com/eagleledger/ledger/internal/ledger"
	"github.com/eagleledger/ledger/internal/platform/money"
	platformredis "github.com/eagleledger/ledger/internal/platform/redis"
	goredis "github.com/redis/go-redis/v9"
)

// Store is the subset of Redis operations the KV projection needs,
// narrowed to an interface so KVTarget can be unit tested with an
// in-memory fake instead of a live Redis — the same narrowing the command
// service applies to eventlog.Store.
type Store interface {
	GetBalance(ctx context.Context, accountID string) (*AccountBalanceView, bool, error)
	SetBalance(ctx context.Context, view AccountBalanceView) error
	RecordTransaction(ctx context.Context, tx TransactionView) error
	ListTransactions(ctx context.Context, accountID string, limit int64) ([]TransactionView, error)
}

const (
	balanceKeyPrefix     = "account_balance:"
	transactionKeyPrefix = "transaction:"
	historyKeyPrefix     = "transaction_history:"
	maxHistoryLength     = 500
)

func balanceKey(accountID string) string   { return balanceKeyPrefix + accountID }
func transactionKey(eventID string) string { return transactionKeyPrefix + eventID }
func historyKey(accountID string) string   { return historyKeyPrefix + accountID }

// RedisStore implements Store against a live Redis, reusing the teacher's
// generic ViewCache (internal/platform/redis) for the two value types and
// the raw go-redis client for the sorted-set index that ViewCache has no
// vocabulary for.
type RedisStore struct {
	client       *goredis.Client
	balances     *platformredis.ViewCache[AccountBalanceView]
	transactions *platformredis.ViewCache[TransactionView]
}

func NewRedisStore(client *platformredis.Client, balances *platformredis.ViewCache[AccountBalanceView], transactions *platformredis.ViewCache[TransactionView]) *RedisStore {
	return &RedisStore{client: client.Client, balances: balances, transactions: transactions}
}

func (s *RedisStore) GetBalance(ctx context.Context, accountID string) (*AccountBalanceView, bool, error) {
	v, ok := s.balances.Get(ctx, balanceKey(accountID))
	return v, ok, nil
}

func (s *RedisStore) SetBalance(ctx context.Context, view AccountBalanceView) error {
	return s.balances.Set(ctx, balanceKey(view.AccountID), &view)
}

func (s *RedisStore) RecordTransaction(ctx context.Context, tx TransactionView) error {
	if err := s.transactions.Set(ctx, transactionKey(tx.TransactionID), &tx); err != nil {
		return fmt.Errorf("projection: record transaction: %w", err)
	}
	key := historyKey(tx.AccountID)
	if err := s.client.ZAdd(ctx, key, goredis.Z{
		Score:  float64(tx.Timestamp.UnixNano()),
		Member: tx.TransactionID,
	}).Err(); err != nil {
		return fmt.Errorf("projection: index transaction: %w", err)
	}
	// Bound the "recent transactions" index; analytical queries belong to
	// the relational projection, not this point-lookup store.
	s.client.ZRemRangeByRank(ctx, key, 0, -(maxHistoryLength + 1))
	return nil
}

func (s *RedisStore) ListTransactions(ctx context.Context, accountID string, limit int64) ([]TransactionView, error) {
	ids, err := s.client.ZRevRange(ctx, historyKey(accountID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("projection: list transactions: %w", err)
	}
	out := make([]TransactionView, 0, len(ids))
	for _, id := range ids {
		if v, ok := s.transactions.Get(ctx, transactionKey(id)); ok {
			out = append(out, *v)
		}
	}
	return out, nil
}

// KVTarget applies events to the Redis-backed point-lookup projection:
// one account_balance row per aggregate plus an append-only,
// newest-first transaction_history index, per spec.md §4.5's handler
// mapping table.
type KVTarget struct {
	store Store
}

func NewKVTarget(store Store) *KVTarget {
	return &KVTarget{store: store}
}

func (t *KVTarget) Apply(ctx context.Context, event ledger.Event) error {
	switch p := event.Payload.(type) {
	case ledger.AccountOpenedPayload:
		return t.applyOpened(ctx, event, p)
	case ledger.FundsDepositedPayload:
		return t.applyAmount(ctx, event, p.Amount, true, TxDeposit)
	case ledger.FundsWithdrawnPayload:
		return t.applyAmount(ctx, event, p.Amount, false, TxWithdrawal)
	case ledger.AccountClosedPayload:
		return t.applyClosed(ctx, event)
	default:
		return fmt.Errorf("projection: kv target: unknown payload type %T", event.Payload)
	}
}

// applyOpened is idempotent on event.Version alone: SetBalance is what
// durably advances LastAppliedVersion, and it runs before RecordTransaction.
// A failure between them leaves the opening deposit unrecorded in the
// transaction history, but never double-applies the balance: a redelivered
// event finds the version already advanced and returns without retrying
// the transaction write — the same trade applyAmount makes.
func (t *KVTarget) applyOpened(ctx context.Context, event ledger.Event, p ledger.AccountOpenedPayload) error {
	existing, ok, err := t.store.GetBalance(ctx, event.AggregateID)
	if err != nil {
		return err
	}
	if ok && existing.LastAppliedVersion >= event.Version {
		return nil
	}

	view := AccountBalanceView{
		AccountID:          event.AggregateID,
		Balance:            p.OpeningBalance,
		Status:             "active",
		Holder:             p.Holder,
		Type:               string(p.AccountType),
		LastUpdated:        event.Timestamp,
		LastAppliedVersion: event.Version,
	}
	if err := t.store.SetBalance(ctx, view); err != nil {
		return err
	}
	if !p.OpeningBalance.IsPositive() {
		return nil
	}
	return t.store.RecordTransaction(ctx, TransactionView{
		TransactionID:   event.EventID.String(),
		AccountID:       event.AggregateID,
		TransactionType: TxOpeningDeposit,
		Amount:          p.OpeningBalance,
		Timestamp:       event.Timestamp,
	})
}

// applyAmount gates solely on LastAppliedVersion, the way applyClosed does:
// a redelivered event finds the version already advanced and returns
// without touching the balance or the transaction log again.
func (t *KVTarget) applyAmount(ctx context.Context, event ledger.Event, amount money.Amount, credit bool, txType string) error {
	existing, ok, err := t.store.GetBalance(ctx, event.AggregateID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("projection: kv target: no balance row for account %s", event.AggregateID)
	}
	if existing.LastAppliedVersion >= event.Version {
		return nil
	}

	view := *existing
	if credit {
		view.Balance = view.Balance.Add(amount)
	} else {
		view.Balance = view.Balance.Sub(amount)
	}
	view.LastUpdated = event.Timestamp
	view.LastAppliedVersion = event.Version
	if err := t.store.SetBalance(ctx, view); err != nil {
		return err
	}

	return t.store.RecordTransaction(ctx, TransactionView{
		TransactionID:   event.EventID.String(),
		AccountID:       event.AggregateID,
		TransactionType: txType,
		Amount:          amount,
		Timestamp:       event.Timestamp,
	})
}

func (t *KVTarget) applyClosed(ctx context.Context, event ledger.Event) error {
	existing, ok, err := t.store.GetBalance(ctx, event.AggregateID)
	if err != nil {
		return err
	}
	if !ok || existing.LastAppliedVersion >= event.Version {
		return nil
	}
	view := *existing
	view.Status = "closed"
	view.LastUpdated = event.Timestamp
	view.LastAppliedVersion = event.Version
	return t.store.SetBalance(ctx, view)
}
