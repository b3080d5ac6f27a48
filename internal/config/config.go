// Package config loads per-command settings from flags, LANDCLAIM_* environment
// variables and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Common holds settings shared by every command.
type Common struct {
	ChainID      uint64
	Contract     string
	Journal      string
	Snapshot     string
	PGDSN        string
	KafkaBrokers []string
	KafkaTopic   string
	LogLevel     string
}

// ContractAddress parses Contract. The contract address scopes journal
// records, so an empty value is rejected.
func (c Common) ContractAddress() (common.Address, error) {
	if strings.TrimSpace(c.Contract) == "" {
		return common.Address{}, fmt.Errorf("contract address is required")
	}
	if !common.IsHexAddress(strings.TrimSpace(c.Contract)) {
		return common.Address{}, fmt.Errorf("invalid contract address: %s", c.Contract)
	}
	return common.HexToAddress(strings.TrimSpace(c.Contract)), nil
}

// ServeConfig configures the HTTP service.
type ServeConfig struct {
	Common
	Addr            string
	ShutdownTimeout time.Duration
}

// SyncConfig configures the chain mirror.
type SyncConfig struct {
	Common
	RPCURL         string
	FromBlock      uint64
	ToBlock        uint64
	BatchSize      uint64
	Checkpoint     string
	CheckpointName string
	MaxRetries     int
	RetryBackoff   time.Duration
}

// ReplayConfig configures offline journal replay.
type ReplayConfig struct {
	Common
	Project bool
}

func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"addr":             ":8080",
		"shutdown-timeout": 10 * time.Second,
	})
	if err != nil {
		return ServeConfig{}, err
	}
	return ServeConfig{
		Common:          loadCommon(v),
		Addr:            v.GetString("addr"),
		ShutdownTimeout: v.GetDuration("shutdown-timeout"),
	}, nil
}

func LoadSync(cfgFile string, flags *pflag.FlagSet) (SyncConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"journal":       "./data/mirror.jsonl",
		"snapshot":      "./data/mirror.json.zst",
		"batch-size":    uint64(2000),
		"checkpoint":    "./data/checkpoint.json",
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
	})
	if err != nil {
		return SyncConfig{}, err
	}
	cfg := SyncConfig{
		Common:         loadCommon(v),
		RPCURL:         v.GetString("rpc"),
		FromBlock:      v.GetUint64("from"),
		ToBlock:        v.GetUint64("to"),
		BatchSize:      v.GetUint64("batch-size"),
		Checkpoint:     v.GetString("checkpoint"),
		CheckpointName: v.GetString("checkpoint-name"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
	}
	if cfg.CheckpointName == "" {
		cfg.CheckpointName = fmt.Sprintf("landclaim:%d:%s", cfg.ChainID, strings.ToLower(cfg.Contract))
	}
	return cfg, nil
}

func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"project": false,
	})
	if err != nil {
		return ReplayConfig{}, err
	}
	return ReplayConfig{
		Common:  loadCommon(v),
		Project: v.GetBool("project"),
	}, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("LANDCLAIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain-id", uint64(80002))
	v.SetDefault("journal", "./data/journal.jsonl")
	v.SetDefault("snapshot", "./data/snapshot.json.zst")
	v.SetDefault("kafka-topic", "landclaim-events")
	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadCommon(v *viper.Viper) Common {
	return Common{
		ChainID:      v.GetUint64("chain-id"),
		Contract:     v.GetString("contract"),
		Journal:      v.GetString("journal"),
		Snapshot:     v.GetString("snapshot"),
		PGDSN:        v.GetString("pg-dsn"),
		KafkaBrokers: getStringSlice(v, "kafka-brokers"),
		KafkaTopic:   v.GetString("kafka-topic"),
		LogLevel:     v.GetString("log-level"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	switch typed := v.Get(key).(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return cleanStrings(strings.Split(typed, ","))
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
