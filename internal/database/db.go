package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"drummond-geometry/internal/logging"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the keyword/value connection string for cfg
func (cfg Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)
}

// NewDB creates a new database connection
func NewDB(cfg Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logging.DatabaseContext("connect", "").Info("Connected to PostgreSQL", "database", cfg.Database)

	return &DB{Pool: pool}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		logging.DatabaseContext("close", "").Info("Database connection closed")
	}
}

// migrations are idempotent and run in order on every start
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS market_bars (
		symbol VARCHAR(32) NOT NULL,
		timeframe VARCHAR(8) NOT NULL,
		ts TIMESTAMPTZ NOT NULL,
		exchange VARCHAR(32) NOT NULL DEFAULT '',
		open NUMERIC(30, 10) NOT NULL,
		high NUMERIC(30, 10) NOT NULL,
		low NUMERIC(30, 10) NOT NULL,
		close NUMERIC(30, 10) NOT NULL,
		volume BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (symbol, timeframe, ts)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_market_bars_symbol_timeframe_ts ON market_bars(symbol, timeframe, ts DESC)`,

	`CREATE TABLE IF NOT EXISTS multi_timeframe_analyses (
		id BIGSERIAL PRIMARY KEY,
		run_id UUID NOT NULL UNIQUE,
		symbol VARCHAR(32) NOT NULL,
		analyzed_at TIMESTAMPTZ NOT NULL,
		htf_timeframe VARCHAR(8) NOT NULL,
		trading_timeframe VARCHAR(8) NOT NULL,
		signal_strength NUMERIC(10, 6) NOT NULL,
		risk_level VARCHAR(16) NOT NULL,
		recommended_action VARCHAR(16) NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mtf_analyses_symbol_created ON multi_timeframe_analyses(symbol, created_at DESC)`,
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	l := logging.DatabaseContext("migrate", "")
	l.Info("Running database migrations", "count", len(migrations))

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	l.Info("Database migrations completed successfully")
	return nil
}

// HealthCheck performs a database health check
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
