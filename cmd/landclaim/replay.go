package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"landClaim/internal/config"
)

// runReplay rebuilds state from the journal alone, ignoring any existing
// snapshot, and writes a fresh one.
func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	load := cfg.Common
	load.Snapshot = ""
	rt, err := openApp(ctx, load, nil, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	pos, applied := rt.registry.Position()
	logger.Info("replay complete",
		zap.Bool("empty", !applied),
		zap.Uint64("block", pos.Block),
		zap.Uint64("log_index", pos.LogIndex),
		zap.Int("owners", len(rt.registry.Snapshot().Holdings)),
	)

	return rt.persist(ctx, cfg.Common, cfg.Project, logger)
}
