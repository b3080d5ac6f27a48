package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "landclaim",
		Short:        "Land claim and trade registry",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry over HTTP",
		RunE:  runServe,
	}
	addCommonFlags(serveCmd, defaultJournal, defaultSnapshot)
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	root.AddCommand(serveCmd)

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror an on-chain LandClaim deployment into the journal",
		RunE:  runSync,
	}
	addCommonFlags(syncCmd, defaultMirrorJournal, defaultMirrorSnapshot)
	syncCmd.Flags().String("rpc", "", "Ethereum JSON-RPC URL")
	syncCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	syncCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	syncCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	syncCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path, ignored when pg-dsn is set")
	syncCmd.Flags().String("checkpoint-name", "", "indexer_state row name (default landclaim:<chain>:<contract>)")
	syncCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	syncCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	root.AddCommand(syncCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild state from the journal, verify it and write a snapshot",
		RunE:  runReplay,
	}
	addCommonFlags(replayCmd, defaultJournal, defaultSnapshot)
	replayCmd.Flags().Bool("project", false, "write the lands/trades projection to Postgres")
	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// A chain mirror and a locally served registry keep separate journals.
const (
	defaultJournal        = "./data/journal.jsonl"
	defaultSnapshot       = "./data/snapshot.json.zst"
	defaultMirrorJournal  = "./data/mirror.jsonl"
	defaultMirrorSnapshot = "./data/mirror.json.zst"
)

func addCommonFlags(cmd *cobra.Command, journal, snapshot string) {
	cmd.Flags().Uint64("chain-id", 80002, "chain id recorded in event records")
	cmd.Flags().String("contract", "", "LandClaim contract address")
	cmd.Flags().String("journal", journal, "journal JSONL path")
	cmd.Flags().String("snapshot", snapshot, "snapshot path, empty disables snapshots")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for the event table and projection")
	cmd.Flags().StringSlice("kafka-brokers", nil, "Kafka seed brokers (comma-separated)")
	cmd.Flags().String("kafka-topic", "landclaim-events", "Kafka topic for committed events")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
