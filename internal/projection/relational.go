package projection

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/eagleledger/ledger/internal/ledger"
	"github.com/eagleledger/ledger/internal/platform/money"
)

// RelationalTarget applies events to the four analytical tables from
// spec.md §6 (accounts, transactions, account_summary, daily_balances),
// grounded on the teacher's raw database/sql + lib/pq repository style —
// every write is hand-written SQL inside one *sql.Tx, no ORM.
//
// Idempotency for the closed-account case is an UPDATE guarded by
// status, a no-op on re-delivery; balance-changing events follow
// spec.md §4.5's transaction-row-existence path:
// transactions.transaction_id is the event's EventID, so
// ON CONFLICT DO NOTHING tells this handler, on re-delivery, whether the
// event has already been fully applied before it touches any other table.
type RelationalTarget struct {
	db *sql.DB
}

func NewRelationalTarget(db *sql.DB) *RelationalTarget {
	return &RelationalTarget{db: db}
}

func (t *RelationalTarget) Apply(ctx context.Context, event ledger.Event) error {
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
		return fmt.Errorf("projection: relational target: unknown payload type %T", event.Payload)
	}
}

func (t *RelationalTarget) applyOpened(ctx context.Context, event ledger.Event, p ledger.AccountOpenedPayload) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("projection: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (account_id, holder, type, balance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'active', $5, $5)
		ON CONFLICT (account_id) DO NOTHING
	`, event.AggregateID, p.Holder, string(p.AccountType), p.OpeningBalance, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("projection: insert account: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO account_summary (account_id, holder, type, current_balance, status, last_applied_version)
		VALUES ($1, $2, $3, $4, 'active', 0)
		ON CONFLICT (account_id) DO NOTHING
	`, event.AggregateID, p.Holder, string(p.AccountType), p.OpeningBalance)
	if err != nil {
		return fmt.Errorf("projection: insert account_summary: %w", err)
	}

	if p.OpeningBalance.IsPositive() {
		inserted, err := t.insertTransaction(ctx, tx, event, event.AggregateID, TxOpeningDeposit, p.OpeningBalance, p.OpeningBalance)
		if err != nil {
			return err
		}
		if inserted {
			if err := t.accumulateSummary(ctx, tx, event.AggregateID, p.OpeningBalance, p.OpeningBalance, p.OpeningBalance, true, event.Timestamp, event.Version); err != nil {
				return err
			}
			if err := t.upsertDailyBalance(ctx, tx, event.AggregateID, p.OpeningBalance, p.OpeningBalance, true, event.Timestamp); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (t *RelationalTarget) applyAmount(ctx context.Context, event ledger.Event, amount money.Amount, credit bool, txType string) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("projection: begin tx: %w", err)
	}
	defer tx.Rollback()

	var current money.Amount
	row := tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE account_id = $1 FOR UPDATE`, event.AggregateID)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("projection: read account balance: %w", err)
	}

	newBalance := current.Add(amount)
	if !credit {
		newBalance = current.Sub(amount)
	}

	inserted, err := t.insertTransaction(ctx, tx, event, event.AggregateID, txType, amount, newBalance)
	if err != nil {
		return err
	}
	if !inserted {
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = $1, updated_at = $2 WHERE account_id = $3
	`, newBalance, event.Timestamp, event.AggregateID); err != nil {
		return fmt.Errorf("projection: update account balance: %w", err)
	}

	if err := t.accumulateSummary(ctx, tx, event.AggregateID, newBalance, amount, amount, credit, event.Timestamp, event.Version); err != nil {
		return err
	}
	if err := t.upsertDailyBalance(ctx, tx, event.AggregateID, newBalance, amount, credit, event.Timestamp); err != nil {
		return err
	}

	return tx.Commit()
}

func (t *RelationalTarget) applyClosed(ctx context.Context, event ledger.Event) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("projection: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE accounts SET status = 'closed', closed_at = $1, updated_at = $1
		WHERE account_id = $2 AND status <> 'closed'
	`, event.Timestamp, event.AggregateID); err != nil {
		return fmt.Errorf("projection: close account: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE account_summary SET status = 'closed'
		WHERE account_id = $1 AND status <> 'closed'
	`, event.AggregateID); err != nil {
		return fmt.Errorf("projection: close account_summary: %w", err)
	}

	return tx.Commit()
}

// insertTransaction is the idempotency gate for every balance-changing
// event: the transactions table's PK on transaction_id (the event's
// EventID) means a re-delivered event inserts zero rows here, and the
// caller uses that fact to skip every downstream accumulator update.
func (t *RelationalTarget) insertTransaction(ctx context.Context, tx *sql.Tx, event ledger.Event, accountID, txType string, amount, balanceAfter money.Amount) (bool, error) {
	var id string
	row := tx.QueryRowContext(ctx, `
		INSERT INTO transactions (transaction_id, account_id, type, amount, balance_after, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (transaction_id) DO NOTHING
		RETURNING transaction_id
	`, event.EventID.String(), accountID, txType, amount, balanceAfter, event.Timestamp)
	err := row.Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("projection: insert transaction: %w", err)
	}
	return true, nil
}

func (t *RelationalTarget) accumulateSummary(ctx context.Context, tx *sql.Tx, accountID string, newBalance, deposit, withdrawal money.Amount, credit bool, occurredAt time.Time, version int64) error {
	depositDelta, withdrawalDelta := money.Zero, money.Zero
	if credit {
		depositDelta = deposit
	} else {
		withdrawalDelta = withdrawal
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE account_summary SET
			current_balance = $1,
			total_deposits = total_deposits + $2,
			total_withdrawals = total_withdrawals + $3,
			transaction_count = transaction_count + 1,
			last_transaction_date = $4,
			last_applied_version = $5
		WHERE account_id = $6 AND last_applied_version < $5
	`, newBalance, depositDelta, withdrawalDelta, occurredAt, version, accountID)
	if err != nil {
		return fmt.Errorf("projection: accumulate summary: %w", err)
	}
	return nil
}

func (t *RelationalTarget) upsertDailyBalance(ctx context.Context, tx *sql.Tx, accountID string, closingBalance, amount money.Amount, credit bool, occurredAt time.Time) error {
	depositDelta, withdrawalDelta := money.Zero, money.Zero
	if credit {
		depositDelta = amount
	} else {
		withdrawalDelta = amount
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO daily_balances (account_id, balance_date, closing_balance, daily_deposits, daily_withdrawals, transaction_count)
		VALUES ($1, $2, $3, $4, $5, 1)
		ON CONFLICT (account_id, balance_date) DO UPDATE SET
			closing_balance = EXCLUDED.closing_balance,
			daily_deposits = daily_balances.daily_deposits + EXCLUDED.daily_deposits,
			daily_withdrawals = daily_balances.daily_withdrawals + EXCLUDED.daily_withdrawals,
			transaction_count = daily_balances.transaction_count + 1
	`, accountID, occurredAt.UTC().Format("2006-01-02"), closingBalance, depositDelta, withdrawalDelta)
	if err != nil {
		return fmt.Errorf("projection: upsert daily balance: %w", err)
	}
	return nil
}
