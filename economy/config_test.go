package economy

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/runerogue/economy/economy/database"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DB.Driver != database.DriverSQLite || cfg.DB.Path != "runerogue.db" {
		t.Errorf("db defaults = %s/%s, want sqlite/runerogue.db", cfg.DB.Driver, cfg.DB.Path)
	}
	if cfg.Exchange.OfferTTL.Std() != 48*time.Hour {
		t.Errorf("offer ttl = %s, want 48h", cfg.Exchange.OfferTTL.Std())
	}
	if cfg.Log.Level != slog.LevelInfo {
		t.Errorf("log level = %s, want info", cfg.Log.Level)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[log]
level = "DEBUG"
format = "json"

[database]
driver = "postgres"
host = "db.internal"
database = "runerogue"

[exchange]
offer_ttl = "24h"
sweep_interval = "90s"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Log.Level != slog.LevelDebug || cfg.Log.Format != "json" {
		t.Errorf("log = %s/%s, want DEBUG/json", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.DB.Driver != database.DriverPostgres || cfg.DB.Host != "db.internal" {
		t.Errorf("db = %s@%s, want postgres@db.internal", cfg.DB.Driver, cfg.DB.Host)
	}
	if cfg.Exchange.OfferTTL.Std() != 24*time.Hour {
		t.Errorf("offer ttl = %s, want 24h", cfg.Exchange.OfferTTL.Std())
	}
	if cfg.Exchange.SweepInterval.Std() != 90*time.Second {
		t.Errorf("sweep interval = %s, want 90s", cfg.Exchange.SweepInterval.Std())
	}
	// Untouched keys keep their defaults.
	if cfg.DB.PoolSize != 10 {
		t.Errorf("pool size = %d, want default 10", cfg.DB.PoolSize)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadConfig(missing) succeeded, want error")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("RUNEROGUE_DB_PATH", "override.db")
	t.Setenv("RUNEROGUE_EXCHANGE_OFFER_TTL", "12h")
	t.Setenv("RUNEROGUE_LOG_FORMAT", "json")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DB.Path != "override.db" {
		t.Errorf("db path = %q, want env override %q", cfg.DB.Path, "override.db")
	}
	if cfg.Exchange.OfferTTL.Std() != 12*time.Hour {
		t.Errorf("offer ttl = %s, want env override 12h", cfg.Exchange.OfferTTL.Std())
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format = %q, want env override %q", cfg.Log.Format, "json")
	}
}

func TestLoadConfigIgnoresAmbientEnv(t *testing.T) {
	// Common ambient variables must never leak into the config through
	// unprefixed tag-name fallbacks.
	t.Setenv("PATH", "/usr/bin:/bin")
	t.Setenv("USER", "nobody")
	t.Setenv("DATABASE", "ambient")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DB.Path != "runerogue.db" {
		t.Errorf("db path = %q, want default untouched by $PATH", cfg.DB.Path)
	}
	if cfg.DB.User != "" {
		t.Errorf("db user = %q, want empty untouched by $USER", cfg.DB.User)
	}
	if cfg.DB.Database != "" {
		t.Errorf("db name = %q, want empty untouched by $DATABASE", cfg.DB.Database)
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "24h", want: 24 * time.Hour},
		{in: "90s", want: 90 * time.Second},
		{in: "1h30m", want: 90 * time.Minute},
		{in: "", wantErr: true},
		{in: "soon", wantErr: true},
		{in: "10", wantErr: true}, // bare numbers need a unit
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalText(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && d.Std() != tt.want {
				t.Errorf("UnmarshalText(%q) = %s, want %s", tt.in, d.Std(), tt.want)
			}
		})
	}
}
