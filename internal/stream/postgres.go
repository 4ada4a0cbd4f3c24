package stream

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eagleledger/ledger/internal/eventlog"
)

// PostgresOutbox reads the event_outbox table eventlog.Store.AppendAtomic
// writes to, satisfying OutboxReader.
type PostgresOutbox struct {
	db *sql.DB
}

func NewPostgresOutbox(db *sql.DB) *PostgresOutbox {
	return &PostgresOutbox{db: db}
}

func (o *PostgresOutbox) DescribeShards(ctx context.Context) ([]int, error) {
	rows, err := o.db.QueryContext(ctx, `SELECT DISTINCT shard FROM event_outbox ORDER BY shard`)
	if err != nil {
		return nil, fmt.Errorf("%w: describe shards: %v", eventlog.ErrTransport, err)
	}
	defer rows.Close()

	var shards []int
	for rows.Next() {
		var shard int
		if err := rows.Scan(&shard); err != nil {
			return nil, fmt.Errorf("%w: describe shards scan: %v", eventlog.ErrTransport, err)
		}
		shards = append(shards, shard)
	}
	return shards, rows.Err()
}

func (o *PostgresOutbox) Fetch(ctx context.Context, shard int, afterSeq int64, limit int) ([]Record, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT seq, record_type, event_data FROM event_outbox
		WHERE shard = $1 AND seq > $2
		ORDER BY seq ASC
		LIMIT $3
	`, shard, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch: %v", eventlog.ErrTransport, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		rec.Shard = shard
		if err := rows.Scan(&rec.Seq, &rec.RecordType, &rec.Data); err != nil {
			return nil, fmt.Errorf("%w: fetch scan: %v", eventlog.ErrTransport, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (o *PostgresOutbox) MaxSeq(ctx context.Context, shard int) (int64, error) {
	var seq sql.NullInt64
	row := o.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM event_outbox WHERE shard = $1`, shard)
	if err := row.Scan(&seq); err != nil {
		return 0, fmt.Errorf("%w: max seq: %v", eventlog.ErrTransport, err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

// PostgresCheckpoints persists the per-shard checkpoint, satisfying
// CheckpointStore. One row per shard, upserted after every batch.
type PostgresCheckpoints struct {
	db *sql.DB
}

func NewPostgresCheckpoints(db *sql.DB) *PostgresCheckpoints {
	return &PostgresCheckpoints{db: db}
}

func (c *PostgresCheckpoints) Load(ctx context.Context, shard int) (int64, bool, error) {
	var seq int64
	row := c.db.QueryRowContext(ctx, `SELECT last_seq FROM stream_checkpoints WHERE shard = $1`, shard)
	err := row.Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: load checkpoint: %v", eventlog.ErrTransport, err)
	}
	return seq, true, nil
}

func (c *PostgresCheckpoints) Save(ctx context.Context, shard int, seq int64) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO stream_checkpoints (shard, last_seq) VALUES ($1, $2)
		ON CONFLICT (shard) DO UPDATE SET last_seq = EXCLUDED.last_seq
	`, shard, seq)
	if err != nil {
		return fmt.Errorf("%w: save checkpoint: %v", eventlog.ErrTransport, err)
	}
	return nil
}
