// Package database provides the SQL-backed ledger store: PostgreSQL for
// deployments, SQLite for single-node setups. Both run through bun; the
// storage.Store implementation lives in store.go.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"

	"github.com/runerogue/economy/economy/database/models"
)

const (
	defaultConnTimeout = 5 * time.Second
	defaultMaxRetries  = 3
	defaultPoolSize    = 10
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DBConfig env tags carry the DB_ prefix so unprefixed lookups never collide
// with ambient variables like $PATH or $USER.
type DBConfig struct {
	Driver   string `toml:"driver" envconfig:"DB_DRIVER"`
	Host     string `toml:"host" envconfig:"DB_HOST"`
	Port     int    `toml:"port" envconfig:"DB_PORT"`
	User     string `toml:"user" envconfig:"DB_USER"`
	Password string `toml:"password" envconfig:"DB_PASSWORD"`
	Database string `toml:"database" envconfig:"DB_NAME"`
	PoolSize int    `toml:"pool_size" envconfig:"DB_POOL_SIZE"`
	// Path is the SQLite database file, used only with the sqlite driver.
	Path string `toml:"path" envconfig:"DB_PATH"`
}

type DB struct {
	pool  *pgxpool.Pool // nil with the sqlite driver
	bunDB *bun.DB

	// lockingReads is set for backends that support SELECT ... FOR UPDATE.
	// SQLite serializes writers instead.
	lockingReads bool
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	switch cfg.Driver {
	case DriverPostgres, "":
		return newPostgres(ctx, cfg)
	case DriverSQLite:
		return newSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func newPostgres(ctx context.Context, cfg DBConfig) (*DB, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&connect_timeout=%d",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, int(defaultConnTimeout.Seconds()))

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}
	poolConfig.MaxConns = int32(poolSize)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// The first ping can race the server coming up; retry briefly.
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			break
		}
		if attempt >= defaultMaxRetries {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database after %d attempts: %w", attempt, err)
		}
		slog.Warn("Database ping failed, retrying",
			slog.Int("attempt", attempt),
			slog.Any("error", err))
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return &DB{
		pool:         pool,
		bunDB:        bun.NewDB(sqldb, pgdialect.New()),
		lockingReads: true,
	}, nil
}

func newSQLite(cfg DBConfig) (*DB, error) {
	path := cfg.Path
	if path == "" {
		path = "runerogue.db"
	}

	sqldb, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows one writer; confine bun to a single connection.
	sqldb.SetMaxOpenConns(1)

	return &DB{
		bunDB:        bun.NewDB(sqldb, sqlitedialect.New()),
		lockingReads: false,
	}, nil
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) Ping(ctx context.Context) error {
	if db.pool != nil {
		if err := db.pool.Ping(ctx); err != nil {
			return fmt.Errorf("pgxpool ping failed: %w", err)
		}
	}
	if err := db.bunDB.PingContext(ctx); err != nil {
		return fmt.Errorf("bun ping failed: %w", err)
	}
	return nil
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
	if db.bunDB != nil {
		db.bunDB.Close()
	}
}

// ExecWithLog runs DDL/DML with timing attached to the log line.
func (db *DB) ExecWithLog(ctx context.Context, query string, args ...any) error {
	start := time.Now()
	_, err := db.bunDB.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Error("Query failed",
			slog.String("type", "db"),
			slog.String("query", query),
			slog.Duration("took", time.Since(start)),
			slog.Any("error", err))
		return err
	}
	slog.Debug("Query executed",
		slog.String("type", "db"),
		slog.String("query", query),
		slog.Duration("took", time.Since(start)))
	return nil
}

// InitializeSchema creates all tables and indexes used by the engine.
func (db *DB) InitializeSchema(ctx context.Context) error {
	tables := []any{
		(*models.Player)(nil),
		(*models.Item)(nil),
		(*models.InventoryItem)(nil),
		(*models.Offer)(nil),
		(*models.Transaction)(nil),
		(*models.Trade)(nil),
		(*models.TradeItem)(nil),
		(*models.PriceHistory)(nil),
		(*models.AuditLog)(nil),
	}

	for _, model := range tables {
		if _, err := db.bunDB.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_inventory_player_item ON inventory_items(player_id, item_id);",
		"CREATE INDEX IF NOT EXISTS idx_ge_offers_item_side ON ge_offers(item_id, side);",
		"CREATE INDEX IF NOT EXISTS idx_ge_offers_status ON ge_offers(status);",
		"CREATE INDEX IF NOT EXISTS idx_ge_offers_price ON ge_offers(price_per_item);",
		"CREATE INDEX IF NOT EXISTS idx_ge_offers_expiry ON ge_offers(status, expires_at);",
		"CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status);",
		"CREATE INDEX IF NOT EXISTS idx_trades_players ON trades(initiator_id, receiver_id);",
		"CREATE INDEX IF NOT EXISTS idx_trade_items_trade ON trade_items(trade_id);",
		"CREATE INDEX IF NOT EXISTS idx_price_history_item_date ON price_history(item_id, recorded_at);",
		"CREATE INDEX IF NOT EXISTS idx_audit_player ON audit_logs(player_id);",
		"CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_logs(action);",
		"CREATE INDEX IF NOT EXISTS idx_audit_date ON audit_logs(created_at);",
	}
	for _, idx := range indexes {
		if err := db.ExecWithLog(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	slog.Info("Database schema initialized")
	return nil
}
