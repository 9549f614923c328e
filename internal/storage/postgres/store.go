package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ammCore/internal/model"
	"ammCore/internal/storage"
)

// Store provides Postgres persistence for pool snapshots and the operation journal.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects a pool to dsn.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Amounts are u64; NUMERIC(20,0) holds the full range.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS amm_pools (
		pool_id TEXT PRIMARY KEY,
		sequence BIGINT NOT NULL,
		total_shares NUMERIC(20,0) NOT NULL,
		fee_numerator NUMERIC(20,0) NOT NULL,
		fee_denominator NUMERIC(20,0) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS amm_balances (
		pool_id TEXT NOT NULL REFERENCES amm_pools (pool_id),
		account TEXT NOT NULL,
		asset TEXT NOT NULL,
		amount NUMERIC(20,0) NOT NULL,
		PRIMARY KEY (pool_id, account, asset)
	)`,
	`CREATE TABLE IF NOT EXISTS amm_operations (
		id UUID PRIMARY KEY,
		pool_id TEXT NOT NULL,
		sequence BIGINT NOT NULL,
		operation TEXT NOT NULL,
		account TEXT,
		request JSONB,
		result JSONB,
		instructions JSONB,
		total_shares NUMERIC(20,0) NOT NULL,
		reserve0 NUMERIC(20,0) NOT NULL,
		reserve1 NUMERIC(20,0) NOT NULL,
		committed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS amm_operations_pool_seq ON amm_operations (pool_id, sequence)`,
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// snapshotReadTx reads the pool row and its balances from one snapshot.
var snapshotReadTx = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// Load returns the pool row and its balances.
func (s *Store) Load(ctx context.Context, poolID string) (model.Snapshot, bool, error) {
	if poolID == "" {
		return model.Snapshot{}, false, fmt.Errorf("%w: pool id required", storage.ErrInvalidPoolID)
	}

	tx, err := s.pool.BeginTx(ctx, snapshotReadTx)
	if err != nil {
		return model.Snapshot{}, false, err
	}
	defer tx.Rollback(ctx)

	snap, found, err := loadSnapshot(ctx, tx, poolID)
	if err != nil || !found {
		return model.Snapshot{}, found, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Snapshot{}, false, err
	}
	return snap, true, nil
}

func loadSnapshot(ctx context.Context, tx pgx.Tx, poolID string) (model.Snapshot, bool, error) {
	var (
		seq                   int64
		total, feeNum, feeDen string
		updatedAt             time.Time
	)
	row := tx.QueryRow(ctx, `
		SELECT sequence, total_shares::text, fee_numerator::text, fee_denominator::text, updated_at
		FROM amm_pools WHERE pool_id=$1
	`, poolID)
	if err := row.Scan(&seq, &total, &feeNum, &feeDen, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Snapshot{}, false, nil
		}
		return model.Snapshot{}, false, err
	}

	snap := model.Snapshot{
		PoolID:    poolID,
		Sequence:  uint64(seq),
		Balances:  make(map[string]map[model.Asset]uint64),
		UpdatedAt: updatedAt.UTC().Format(time.RFC3339Nano),
	}
	var err error
	if snap.Pool.TotalShares, err = parseAmount("total_shares", total); err != nil {
		return model.Snapshot{}, false, err
	}
	if snap.Pool.FeeNumerator, err = parseAmount("fee_numerator", feeNum); err != nil {
		return model.Snapshot{}, false, err
	}
	if snap.Pool.FeeDenominator, err = parseAmount("fee_denominator", feeDen); err != nil {
		return model.Snapshot{}, false, err
	}

	rows, err := tx.Query(ctx, `SELECT account, asset, amount::text FROM amm_balances WHERE pool_id=$1`, poolID)
	if err != nil {
		return model.Snapshot{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var account, asset, amount string
		if err := rows.Scan(&account, &asset, &amount); err != nil {
			return model.Snapshot{}, false, err
		}
		value, err := parseAmount("amount", amount)
		if err != nil {
			return model.Snapshot{}, false, err
		}
		if snap.Balances[account] == nil {
			snap.Balances[account] = make(map[model.Asset]uint64)
		}
		snap.Balances[account][model.Asset(asset)] = value
	}
	if err := rows.Err(); err != nil {
		return model.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Save replaces the pool row and balances in one transaction. The row is only
// written when the stored sequence is snapshot.Sequence-1.
func (s *Store) Save(ctx context.Context, snapshot model.Snapshot) error {
	if snapshot.PoolID == "" {
		return fmt.Errorf("%w: pool id required", storage.ErrInvalidPoolID)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	p := snapshot.Pool
	var stmt string
	args := []any{
		snapshot.PoolID,
		int64(snapshot.Sequence),
		formatAmount(p.TotalShares),
		formatAmount(p.FeeNumerator),
		formatAmount(p.FeeDenominator),
	}
	if snapshot.Sequence == 1 {
		stmt = `
			INSERT INTO amm_pools (pool_id, sequence, total_shares, fee_numerator, fee_denominator, created_at, updated_at)
			VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, now(), now())
			ON CONFLICT (pool_id) DO NOTHING
		`
	} else {
		stmt = `
			UPDATE amm_pools SET
				sequence = $2,
				total_shares = $3::numeric,
				fee_numerator = $4::numeric,
				fee_denominator = $5::numeric,
				updated_at = now()
			WHERE pool_id = $1 AND sequence = $6
		`
		args = append(args, int64(snapshot.Sequence-1))
	}
	tag, err := tx.Exec(ctx, stmt, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: pool %s did not advance to sequence %d", storage.ErrStaleSnapshot, snapshot.PoolID, snapshot.Sequence)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM amm_balances WHERE pool_id=$1`, snapshot.PoolID); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for account, assets := range snapshot.Balances {
		for asset, amount := range assets {
			if amount == 0 {
				continue
			}
			batch.Queue(`
				INSERT INTO amm_balances (pool_id, account, asset, amount)
				VALUES ($1, $2, $3, $4::numeric)
			`, snapshot.PoolID, account, string(asset), formatAmount(amount))
		}
	}
	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// PutOperationBatch inserts operation records, skipping ids already stored.
func (s *Store) PutOperationBatch(ctx context.Context, records []model.OperationRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		instructions, err := json.Marshal(rec.Instructions)
		if err != nil {
			return fmt.Errorf("marshal instructions: %w", err)
		}
		batch.Queue(`
			INSERT INTO amm_operations (
				id, pool_id, sequence, operation, account, request, result, instructions,
				total_shares, reserve0, reserve1, committed_at
			) VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8::jsonb, $9::numeric, $10::numeric, $11::numeric, $12::timestamptz)
			ON CONFLICT (id) DO NOTHING
		`,
			rec.ID,
			rec.PoolID,
			int64(rec.Sequence),
			string(rec.Operation),
			nullString(rec.Account),
			nullJSON(rec.Request),
			nullJSON(rec.Result),
			string(instructions),
			formatAmount(rec.Pool.TotalShares),
			formatAmount(rec.Reserves.Reserve0),
			formatAmount(rec.Reserves.Reserve1),
			rec.CommittedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseAmount(column, raw string) (uint64, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s %q: %v", storage.ErrCorruptSnapshot, column, raw, err)
	}
	return v, nil
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullJSON(v json.RawMessage) any {
	if len(v) == 0 {
		return nil
	}
	return string(v)
}
