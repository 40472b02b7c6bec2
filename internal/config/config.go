package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config top-level struct
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Ledger    LedgerConfig    `yaml:"ledger"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

// LedgerConfig carries the engine knobs. Tier limits are data, not code, so
// the engine stays testable with injected values.
type LedgerConfig struct {
	// TierLimits maps verification tier -> max aggregate send amount per
	// trailing 24h, as decimal strings. Missing tiers default to 0.00.
	TierLimits    map[int]string `yaml:"tier_limits"`
	FeeWalletName string         `yaml:"fee_wallet"`
	LockTimeoutMS int            `yaml:"lock_timeout_ms"`
}

// LockTimeout bounds the engine's unit of work.
func (lc LedgerConfig) LockTimeout() time.Duration {
	return time.Duration(lc.LockTimeoutMS) * time.Millisecond
}

// ParsedTierLimits converts the yaml string values to decimals.
func (lc LedgerConfig) ParsedTierLimits() (map[int]decimal.Decimal, error) {
	out := make(map[int]decimal.Decimal, len(lc.TierLimits))
	for tier, s := range lc.TierLimits {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("tier %d limit %q: %w", tier, s, err)
		}
		out[tier] = d
	}
	return out, nil
}

// Load reads yaml file
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	// override DSN password from env if present
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		cfg.Postgres.DSN = cfg.Postgres.DSN + " password=" + pw
	}
	if cfg.Ledger.FeeWalletName == "" {
		cfg.Ledger.FeeWalletName = "transaction_fees"
	}
	if cfg.Ledger.LockTimeoutMS <= 0 {
		cfg.Ledger.LockTimeoutMS = 10000
	}
	return &cfg, nil
}
