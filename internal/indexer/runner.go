// Package indexer mirrors an on-chain LandClaim deployment into a local
// registry by replaying its logs.
package indexer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"landClaim/internal/model"
	"landClaim/internal/registry"
	"landClaim/internal/storage"
)

// LogSource is the chain access the runner needs. *chain.Client implements it.
type LogSource interface {
	ChainID(ctx context.Context) (uint64, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, contract common.Address, topic0s []common.Hash) ([]types.Log, error)
}

// Replayer applies decoded chain records. *registry.Registry implements it.
type Replayer interface {
	Replay(records []model.LogRecord) (int, error)
	Position() (model.Position, bool)
	Source() model.Source
}

// RunConfig holds runtime settings for a sync run.
type RunConfig struct {
	ChainID      uint64
	Contract     common.Address
	Topic0s      []common.Hash
	FromBlock    uint64
	ToBlock      uint64
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner pulls LandClaim logs batch by batch, applies them to the registry,
// appends them to the journal and then advances the checkpoint.
type Runner struct {
	cfg        RunConfig
	source     LogSource
	registry   Replayer
	journal    storage.Storage
	sinks      []registry.Sink
	checkpoint CheckpointStore
	logger     *zap.Logger
	seen       map[string]struct{}
	now        func() time.Time
}

func NewRunner(
	cfg RunConfig,
	source LogSource,
	reg Replayer,
	journal storage.Storage,
	checkpoint CheckpointStore,
	logger *zap.Logger,
	sinks ...registry.Sink,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		source:     source,
		registry:   reg,
		journal:    journal,
		sinks:      sinks,
		checkpoint: checkpoint,
		logger:     logger,
		seen:       make(map[string]struct{}),
		now:        time.Now,
	}
}

// Run syncs [FromBlock, ToBlock]; ToBlock 0 means the latest block.
// A log the registry cannot apply aborts the run before the checkpoint moves.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("log source is nil")
	}
	if r.registry == nil {
		return fmt.Errorf("registry is nil")
	}
	if r.journal == nil {
		return fmt.Errorf("journal is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if r.cfg.Contract == (common.Address{}) {
		return fmt.Errorf("contract address is required")
	}

	if r.registry.Source() == model.SourceLocal {
		return fmt.Errorf("journal holds locally committed operations; a chain mirror needs its own journal")
	}

	chainID, err := r.source.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if r.cfg.ChainID != 0 && chainID != r.cfg.ChainID {
		return fmt.Errorf("rpc chain id %d does not match configured chain id %d", chainID, r.cfg.ChainID)
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.source.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return err
		}
		if ok && last >= from {
			from = last + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.syncRange(ctx, chainID, blockRange); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) syncRange(ctx context.Context, chainID uint64, blockRange BlockRange) error {
	r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

	logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To)
	if err != nil {
		return fmt.Errorf("filter logs: %w", err)
	}
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	pos, applied := r.registry.Position()
	ingestedAt := r.now().UTC()
	records := make([]model.LogRecord, 0, len(logs))
	for _, log := range logs {
		if log.Address != r.cfg.Contract {
			r.logger.Warn("skip log from unexpected address", zap.String("address", log.Address.Hex()))
			continue
		}
		if r.isDuplicate(log) {
			continue
		}
		logPos := model.Position{Block: log.BlockNumber, LogIndex: uint64(log.Index)}
		// The log at the current position is passed on so the registry can
		// check it against the applied one; it is not journaled again.
		if applied && !logPos.After(pos) && logPos != pos {
			continue
		}

		ts, err := r.blockTimestampWithRetry(ctx, log.BlockNumber)
		if err != nil {
			return fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
		}
		records = append(records, toLogRecord(chainID, log, ts, ingestedAt))
	}

	if len(records) > 0 {
		n, err := r.registry.Replay(records)
		if err != nil {
			return fmt.Errorf("apply logs: %w", err)
		}
		r.logger.Debug("records applied", zap.Int("applied", n))
		if applied && records[0].Position() == pos {
			records = records[1:]
		}
	}
	if len(records) > 0 {
		if err := r.journal.PutLogBatch(ctx, records); err != nil {
			return fmt.Errorf("append journal: %w", err)
		}
		for _, sink := range r.sinks {
			if err := sink.Store.PutLogBatch(ctx, records); err != nil {
				r.logger.Warn("sink delivery failed", zap.String("sink", sink.Name), zap.Error(err))
			}
		}
	}

	if r.checkpoint != nil {
		if err := r.checkpoint.Save(ctx, blockRange.To); err != nil {
			return err
		}
	}

	r.logger.Info("batch complete", zap.Int("logs", len(records)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	return nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.source.FilterLogs(ctx, fromBlock, toBlock, r.cfg.Contract, r.cfg.Topic0s)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.source.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func (r *Runner) isDuplicate(log types.Log) bool {
	key := logKey(log)
	if _, ok := r.seen[key]; ok {
		return true
	}
	r.seen[key] = struct{}{}
	return false
}
