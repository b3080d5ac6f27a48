package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"landClaim/internal/model"
	"landClaim/internal/registry"
)

// Schema creates the tables used by Store. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS land_events (
	chain_id      BIGINT NOT NULL,
	contract      TEXT NOT NULL,
	block_number  BIGINT NOT NULL,
	log_index     BIGINT NOT NULL,
	tx_hash       TEXT NOT NULL,
	topics        TEXT[] NOT NULL,
	data          TEXT NOT NULL,
	block_ts      BIGINT NOT NULL,
	ingested_at   TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, contract, block_number, log_index)
);
CREATE TABLE IF NOT EXISTS lands (
	chain_id    BIGINT NOT NULL,
	contract    TEXT NOT NULL,
	land_id     TEXT NOT NULL,
	owner       TEXT NOT NULL,
	position    INT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, contract, land_id)
);
CREATE TABLE IF NOT EXISTS trades (
	chain_id        BIGINT NOT NULL,
	contract        TEXT NOT NULL,
	trade_id        BIGINT NOT NULL,
	proposer        TEXT NOT NULL,
	offered_land    TEXT NOT NULL,
	requested_land  TEXT NOT NULL,
	is_active       BOOLEAN NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, contract, trade_id)
);
CREATE TABLE IF NOT EXISTS indexer_state (
	name                  TEXT PRIMARY KEY,
	last_processed_block  BIGINT NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for the event log, the lands/trades
// projection and indexer checkpoints.
type Store struct {
	pool     *pgxpool.Pool
	chainID  uint64
	contract string
}

func NewStore(ctx context.Context, dsn string, chainID uint64, contract string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, chainID: chainID, contract: contract}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PutLogBatch inserts committed event records. Re-delivered records are ignored.
func (s *Store) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range logs {
		batch.Queue(`
			INSERT INTO land_events (
				chain_id, contract, block_number, log_index, tx_hash, topics, data, block_ts, ingested_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (chain_id, contract, block_number, log_index) DO NOTHING
		`,
			int64(record.ChainID),
			record.Address,
			int64(record.BlockNumber),
			int64(record.LogIndex),
			record.TxHash,
			record.Topics,
			record.Data,
			int64(record.Timestamp),
			record.IngestedAt,
		)
	}
	return s.sendBatch(ctx, batch, len(logs))
}

// SaveProjection replaces the lands and trades tables for this contract with
// the content of snap, in one transaction.
func (s *Store) SaveProjection(ctx context.Context, snap registry.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM lands WHERE chain_id=$1 AND contract=$2`, int64(s.chainID), s.contract); err != nil {
		return fmt.Errorf("clear lands: %w", err)
	}

	batch := &pgx.Batch{}
	queued := 0
	for _, holding := range snap.Holdings {
		for i, land := range holding.Lands {
			batch.Queue(`
				INSERT INTO lands (chain_id, contract, land_id, owner, position, updated_at)
				VALUES ($1, $2, $3, $4, $5, now())
			`, int64(s.chainID), s.contract, string(land), holding.Owner.Hex(), i)
			queued++
		}
	}
	for _, trade := range snap.Trades {
		batch.Queue(`
			INSERT INTO trades (
				chain_id, contract, trade_id, proposer, offered_land, requested_land, is_active, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (chain_id, contract, trade_id)
			DO UPDATE SET
				is_active = EXCLUDED.is_active,
				updated_at = now()
		`,
			int64(s.chainID),
			s.contract,
			int64(trade.ID),
			trade.Proposer.Hex(),
			string(trade.OfferedLand),
			string(trade.RequestedLand),
			trade.IsActive,
		)
		queued++
	}

	if queued > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < queued; i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("write projection: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit projection: %w", err)
	}
	return nil
}

// LoadState returns last_processed_block for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

// SaveState upserts last_processed_block for a name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, name, int64(block))
	return err
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
