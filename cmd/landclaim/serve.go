package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"landClaim/internal/config"
	"landClaim/internal/server"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
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

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rt, err := openApp(ctx, cfg.Common, promReg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("serve start",
		zap.String("addr", cfg.Addr),
		zap.Uint64("chain_id", cfg.ChainID),
		zap.String("contract", rt.codec.Address().Hex()),
		zap.Int("sinks", len(rt.sinks)),
	)

	srv := server.New(rt.registry, promReg, logger)
	serveErr := srv.ListenAndServe(ctx, cfg.Addr, cfg.ShutdownTimeout)

	// The signal context is done by now; persist with a fresh one.
	if err := rt.persist(context.Background(), cfg.Common, true, logger); err != nil {
		logger.Error("persist on shutdown failed", zap.Error(err))
		if serveErr == nil {
			serveErr = err
		}
	}
	return serveErr
}
