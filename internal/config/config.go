package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the loaders.
const EnvPrefix = "AMM"

// PoolConfig holds configuration for the pool commands.
type PoolConfig struct {
	Pool         string
	StateDir     string
	Journal      string
	PGDSN        string
	EnsureSchema bool
	NATSURL      string
	RateMode     string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
	LogFile      string
}

// ReservesConfig holds configuration for reading on-chain vault reserves.
type ReservesConfig struct {
	RPCURL   string
	Tokens   []string
	Vault    string
	Block    uint64
	LogLevel string
	LogFile  string
}

// LoadPool merges config file, environment variables, and flags into PoolConfig.
func LoadPool(cfgFile string, flags *pflag.FlagSet) (PoolConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"pool":          "main",
		"state-dir":     "./data/pools",
		"journal":       "./data/operations.jsonl",
		"ensure-schema": true,
		"rate-mode":     "truncated",
		"max-retries":   3,
		"retry-backoff": 200 * time.Millisecond,
		"log-level":     "info",
	})
	if err != nil {
		return PoolConfig{}, err
	}

	cfg := PoolConfig{
		Pool:         v.GetString("pool"),
		StateDir:     v.GetString("state-dir"),
		Journal:      v.GetString("journal"),
		PGDSN:        v.GetString("pg-dsn"),
		EnsureSchema: v.GetBool("ensure-schema"),
		NATSURL:      v.GetString("nats-url"),
		RateMode:     v.GetString("rate-mode"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
		LogFile:      v.GetString("log-file"),
	}

	return cfg, nil
}

// LoadReserves merges config file, environment variables, and flags into ReservesConfig.
func LoadReserves(cfgFile string, flags *pflag.FlagSet) (ReservesConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"log-level": "info",
	})
	if err != nil {
		return ReservesConfig{}, err
	}

	cfg := ReservesConfig{
		RPCURL:   v.GetString("rpc"),
		Tokens:   getStringSlice(v, "tokens"),
		Vault:    v.GetString("vault"),
		Block:    v.GetUint64("block"),
		LogLevel: v.GetString("log-level"),
		LogFile:  v.GetString("log-file"),
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

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

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
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

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
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
