package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

func TestLoadServeDefaultsAndFlags(t *testing.T) {
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.String("addr", ":8080", "listen address")
	flags.String("contract", "", "contract address")
	if err := flags.Parse([]string{"--addr", ":9090", "--contract", "0x9999999999999999999999999999999999999999"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadServe("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("addr mismatch: %s", cfg.Addr)
	}
	if cfg.ChainID != 80002 || cfg.Journal != "./data/journal.jsonl" || cfg.LogLevel != "info" {
		t.Fatalf("defaults mismatch: %+v", cfg.Common)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("shutdown timeout mismatch: %s", cfg.ShutdownTimeout)
	}
	addr, err := cfg.ContractAddress()
	if err != nil {
		t.Fatalf("contract: %v", err)
	}
	if addr != common.HexToAddress("0x9999999999999999999999999999999999999999") {
		t.Fatalf("contract mismatch: %s", addr.Hex())
	}
}

func TestLoadSyncFromEnv(t *testing.T) {
	t.Setenv("LANDCLAIM_RPC", "https://rpc.example")
	t.Setenv("LANDCLAIM_KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("LANDCLAIM_BATCH_SIZE", "50")
	t.Setenv("LANDCLAIM_CONTRACT", "0xABCDEFabcdefABCDEFabcdefABCDEFabcdefABCD")

	cfg, err := LoadSync("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "https://rpc.example" || cfg.BatchSize != 50 {
		t.Fatalf("env values not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.KafkaBrokers, []string{"a:9092", "b:9092"}) {
		t.Fatalf("brokers mismatch: %v", cfg.KafkaBrokers)
	}
	if cfg.Journal != "./data/mirror.jsonl" || cfg.Snapshot != "./data/mirror.json.zst" {
		t.Fatalf("mirror paths mismatch: %s %s", cfg.Journal, cfg.Snapshot)
	}
	if cfg.RetryBackoff != 500*time.Millisecond || cfg.MaxRetries != 5 {
		t.Fatalf("retry defaults mismatch: %+v", cfg)
	}
	if cfg.CheckpointName != "landclaim:80002:0xabcdefabcdefabcdefabcdefabcdefabcdefabcd" {
		t.Fatalf("checkpoint name mismatch: %s", cfg.CheckpointName)
	}
}

func TestLoadReplayFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "landclaim.yaml")
	content := "journal: /var/lib/landclaim/journal.jsonl\nproject: true\nchain-id: 137\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadReplay(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Journal != "/var/lib/landclaim/journal.jsonl" || !cfg.Project || cfg.ChainID != 137 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	if _, err := LoadReplay(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestContractAddressValidation(t *testing.T) {
	if _, err := (Common{}).ContractAddress(); err == nil {
		t.Fatalf("expected error for empty contract")
	}
	if _, err := (Common{Contract: "0x1234"}).ContractAddress(); err == nil {
		t.Fatalf("expected error for short contract")
	}
}
