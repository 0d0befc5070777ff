// Package economy carries the top level configuration for the engine
// and its daemon.
package economy

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/runerogue/economy/economy/database"
)

type Config struct {
	Log      LogConfig         `toml:"log"`
	DB       database.DBConfig `toml:"database"`
	Exchange ExchangeConfig    `toml:"exchange"`
}

type LogConfig struct {
	Level  slog.Level `toml:"level" envconfig:"LOG_LEVEL"`
	Format string     `toml:"format" envconfig:"LOG_FORMAT"`
}

type ExchangeConfig struct {
	OfferTTL      Duration `toml:"offer_ttl" envconfig:"EXCHANGE_OFFER_TTL"`
	SweepInterval Duration `toml:"sweep_interval" envconfig:"EXCHANGE_SWEEP_INTERVAL"`
	SeedItemsPath string   `toml:"seed_items" envconfig:"EXCHANGE_SEED_ITEMS"`
}

// Duration is a time.Duration that decodes from strings like "24h", for both
// TOML keys and environment overrides.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LoadConfig reads the toml file at path, then applies RUNEROGUE_
// prefixed environment overrides on top.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Log: LogConfig{
			Level:  slog.LevelInfo,
			Format: "console",
		},
		DB: database.DBConfig{
			Driver:   database.DriverSQLite,
			Path:     "runerogue.db",
			Host:     "localhost",
			Port:     5432,
			PoolSize: 10,
		},
		Exchange: ExchangeConfig{
			OfferTTL:      Duration(48 * time.Hour),
			SweepInterval: Duration(5 * time.Minute),
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := envconfig.Process("RUNEROGUE", cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}
	return cfg, nil
}
