package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"landClaim/internal/config"
	"landClaim/internal/contract"
	"landClaim/internal/metrics"
	"landClaim/internal/model"
	"landClaim/internal/registry"
	"landClaim/internal/storage"
	"landClaim/internal/storage/kafka"
	"landClaim/internal/storage/postgres"
	"landClaim/internal/storage/snapshot"
)

const replayChunk = 1000

// app is the registry plus the stores it was built from.
type app struct {
	codec    *contract.Codec
	registry *registry.Registry
	journal  *storage.JsonlStorage
	pg       *postgres.Store
	kafka    *kafka.Publisher
	sinks    []registry.Sink
}

func (rt *app) Close() {
	if rt.kafka != nil {
		rt.kafka.Close()
	}
	if rt.pg != nil {
		rt.pg.Close()
	}
}

// openApp connects the optional sinks, restores the latest snapshot and
// replays the journal on top of it.
func openApp(ctx context.Context, cfg config.Common, reg prometheus.Registerer, logger *zap.Logger) (*app, error) {
	address, err := cfg.ContractAddress()
	if err != nil {
		return nil, err
	}
	codec, err := contract.NewCodec(cfg.ChainID, address)
	if err != nil {
		return nil, err
	}

	rt := &app{codec: codec, journal: storage.NewJsonlStorage(cfg.Journal)}

	if cfg.PGDSN != "" {
		rt.pg, err = postgres.NewStore(ctx, cfg.PGDSN, cfg.ChainID, address.Hex())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := rt.pg.Migrate(ctx); err != nil {
			rt.Close()
			return nil, err
		}
		rt.sinks = append(rt.sinks, registry.Sink{Name: "postgres", Store: rt.pg})
	}
	if len(cfg.KafkaBrokers) > 0 {
		rt.kafka, err = kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.sinks = append(rt.sinks, registry.Sink{Name: "kafka", Store: rt.kafka})
	}

	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}
	rt.registry, err = registry.New(registry.Options{
		Codec:   codec,
		Journal: rt.journal,
		Sinks:   rt.sinks,
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	if err := rt.restore(cfg, logger); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *app) restore(cfg config.Common, logger *zap.Logger) error {
	if cfg.Snapshot != "" {
		file, ok, err := snapshot.Load(cfg.Snapshot)
		if err != nil {
			return err
		}
		if ok {
			if file.ChainID != cfg.ChainID || !strings.EqualFold(file.Contract, rt.codec.Address().Hex()) {
				return fmt.Errorf("snapshot %s belongs to chain %d contract %s", cfg.Snapshot, file.ChainID, file.Contract)
			}
			if err := rt.registry.Restore(file.Registry); err != nil {
				return fmt.Errorf("restore snapshot: %w", err)
			}
			logger.Info("snapshot restored", zap.String("path", cfg.Snapshot), zap.String("saved_at", file.SavedAt))
		}
	}

	total := 0
	chunk := make([]model.LogRecord, 0, replayChunk)
	flush := func() error {
		n, err := rt.registry.Replay(chunk)
		total += n
		chunk = chunk[:0]
		return err
	}
	err := storage.ReadLogs(cfg.Journal, func(record model.LogRecord) error {
		if record.ChainID != cfg.ChainID || !strings.EqualFold(record.Address, rt.codec.Address().Hex()) {
			return fmt.Errorf("journal record %d:%d belongs to chain %d contract %s", record.BlockNumber, record.LogIndex, record.ChainID, record.Address)
		}
		chunk = append(chunk, record)
		if len(chunk) == replayChunk {
			return flush()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}
	if err := flush(); err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}

	if err := rt.registry.CheckInvariants(); err != nil {
		return fmt.Errorf("state check after replay: %w", err)
	}
	pos, _ := rt.registry.Position()
	logger.Info("state loaded",
		zap.String("journal", cfg.Journal),
		zap.Int("replayed", total),
		zap.Uint64("block", pos.Block),
		zap.Uint64("trade_counter", rt.registry.TradeCounter()),
		zap.String("source", string(rt.registry.Source())),
	)
	return nil
}

// persist writes the snapshot and, when project is set and Postgres is
// configured, the lands/trades projection.
func (rt *app) persist(ctx context.Context, cfg config.Common, project bool, logger *zap.Logger) error {
	snap := rt.registry.Snapshot()
	if cfg.Snapshot != "" {
		if err := snapshot.Save(cfg.Snapshot, cfg.ChainID, rt.codec.Address().Hex(), snap); err != nil {
			return err
		}
		logger.Info("snapshot written", zap.String("path", cfg.Snapshot))
	}
	if project && rt.pg != nil {
		if err := rt.pg.SaveProjection(ctx, snap); err != nil {
			return err
		}
		logger.Info("projection written", zap.Int("owners", len(snap.Holdings)), zap.Int("trades", len(snap.Trades)))
	}
	return nil
}
