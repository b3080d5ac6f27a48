package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"landClaim/internal/chain"
	"landClaim/internal/config"
	"landClaim/internal/indexer"
)

func runSync(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSync(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openApp(ctx, cfg.Common, nil, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	var checkpoint indexer.CheckpointStore = indexer.NewFileCheckpoint(cfg.Checkpoint)
	if rt.pg != nil {
		checkpoint = indexer.NewDBCheckpoint(rt.pg, cfg.CheckpointName)
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		ChainID:      cfg.ChainID,
		Contract:     rt.codec.Address(),
		Topic0s:      rt.codec.Topic0s(),
		FromBlock:    cfg.FromBlock,
		ToBlock:      cfg.ToBlock,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, rt.registry, rt.journal, checkpoint, logger, rt.sinks...)

	logger.Info("sync start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", rt.codec.Address().Hex()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("journal", cfg.Journal),
	)

	if err := runner.Run(ctx); err != nil {
		return err
	}
	if err := rt.registry.CheckInvariants(); err != nil {
		return fmt.Errorf("state check after sync: %w", err)
	}
	return rt.persist(ctx, cfg.Common, true, logger)
}
