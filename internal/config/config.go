// Package config loads the crosscall configuration file.
package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/crosscall/internal/runtime"
	"github.com/aretw0/crosscall/pkg/domain"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config is the shape of crosscall.yaml.
type Config struct {
	Self         domain.AccountID `yaml:"self" json:"self"`
	HelloAccount domain.AccountID `yaml:"hello_account" json:"hello_account"`
	Aggregation  string           `yaml:"aggregation" json:"aggregation"`
	Gas          GasConfig        `yaml:"gas" json:"gas"`
	Store        StoreConfig      `yaml:"store" json:"store"`
	HTTP         HTTPConfig       `yaml:"http" json:"http"`
	Log          LogConfig        `yaml:"log" json:"log"`
}

// GasConfig holds the call budgets and the host's gas schedule, in gas units.
type GasConfig struct {
	Light       domain.Gas `yaml:"light" json:"light"`
	Heavy       domain.Gas `yaml:"heavy" json:"heavy"`
	Base        domain.Gas `yaml:"base" json:"base"`
	PerByte     domain.Gas `yaml:"per_byte" json:"per_byte"`
	OutcomeRead domain.Gas `yaml:"outcome_read" json:"outcome_read"`
}

// StoreConfig selects where pending outcomes live.
type StoreConfig struct {
	Driver     string           `yaml:"driver" json:"driver"`
	Redis      RedisConfig      `yaml:"redis" json:"redis"`
	Encryption EncryptionConfig `yaml:"encryption" json:"encryption"`
}

// EncryptionConfig seals outcome payloads at rest. Keys are base64 encoded.
// An empty Key disables encryption.
type EncryptionConfig struct {
	Key          string   `yaml:"key" json:"key"`
	FallbackKeys []string `yaml:"fallback_keys" json:"fallback_keys"`
}

// RedisConfig configures the redis driver.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	TTL      string `yaml:"ttl" json:"ttl"`
	Lock     bool   `yaml:"lock" json:"lock"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Port int `yaml:"port" json:"port"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Self:         "orchestrator.test",
		HelloAccount: "hello.test",
		Aggregation:  runtime.StrictBatch.String(),
		Gas: GasConfig{
			Light:       domain.GasLight,
			Heavy:       domain.GasHeavy,
			Base:        domain.TGas,
			PerByte:     1_000_000,
			OutcomeRead: domain.TGas,
		},
		Store: StoreConfig{
			Driver: DriverMemory,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "crosscall:slots:",
				TTL:    "10m",
			},
		},
		HTTP: HTTPConfig{Port: 8080},
		Log:  LogConfig{Level: "info"},
	}
}

// Load reads a YAML or JSON file over the defaults.
// A missing file is not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the invariants the rest of the program relies on.
func (c Config) Validate() error {
	var errs []error
	if c.Self == "" {
		errs = append(errs, errors.New("self is required"))
	}
	if c.Gas.Light == 0 {
		errs = append(errs, errors.New("gas.light must be positive"))
	}
	if c.Gas.Heavy <= c.Gas.Light {
		errs = append(errs, fmt.Errorf("gas.heavy (%d) must exceed gas.light (%d)", c.Gas.Heavy, c.Gas.Light))
	}
	if _, err := runtime.ParsePolicy(c.Aggregation); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Driver {
	case DriverMemory, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if _, err := c.Store.Redis.Expiry(); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := c.Store.Encryption.Keys(); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Policy returns the parsed aggregation policy.
func (c Config) Policy() runtime.Policy {
	p, _ := runtime.ParsePolicy(c.Aggregation)
	return p
}

// Expiry parses TTL. An empty TTL means sets never expire.
func (r RedisConfig) Expiry() (time.Duration, error) {
	if r.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.TTL)
	if err != nil {
		return 0, fmt.Errorf("store.redis.ttl: %w", err)
	}
	return d, nil
}

// Keys decodes the configured keys. It returns a nil active key when
// encryption is disabled.
func (e EncryptionConfig) Keys() ([]byte, [][]byte, error) {
	if e.Key == "" {
		if len(e.FallbackKeys) > 0 {
			return nil, nil, errors.New("store.encryption.fallback_keys requires store.encryption.key")
		}
		return nil, nil, nil
	}

	active, err := decodeKey(e.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("store.encryption.key: %w", err)
	}
	var fallback [][]byte
	for i, k := range e.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("store.encryption.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("decoded key is %d bytes, want 32", len(key))
	}
	return key, nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
