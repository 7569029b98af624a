package database

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"drummond-geometry/internal/confluence"
	"drummond-geometry/internal/market"
)

// ============================================================================
// UNIT TESTS (can run without database)
// ============================================================================

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5433, User: "u", Password: "p", Database: "drummond", SSLMode: "disable"}
	want := "host=db port=5433 user=u password=p dbname=drummond sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestParseBarRowKeepsExactDecimals(t *testing.T) {
	ts := time.Date(2024, 1, 1, 5, 0, 0, 0, time.FixedZone("X", 3600))
	bar, err := parseBarRow("BTCUSDT", market.TF1h, ts, "binance", "42000.1234567890", "42100", "41900.5", "42050.25", 12)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !bar.Open.Equal(decimal.RequireFromString("42000.123456789")) {
		t.Errorf("Open lost precision: %s", bar.Open)
	}
	if bar.Timestamp.Location() != time.UTC {
		t.Errorf("Expected UTC timestamp, got %s", bar.Timestamp.Location())
	}
	if bar.Interval != market.TF1h || bar.Volume != 12 || bar.Exchange != "binance" {
		t.Errorf("Metadata not propagated: %+v", bar)
	}

	if _, err := parseBarRow("BTCUSDT", market.TF1h, ts, "", "NaN?", "1", "1", "1", 0); err == nil {
		t.Error("Expected error for malformed numeric text")
	}
}

func TestReverseBars(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []market.Bar{{Timestamp: base.Add(2 * time.Hour)}, {Timestamp: base.Add(time.Hour)}, {Timestamp: base}}
	reverseBars(bars)
	for i := 1; i < len(bars); i++ {
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			t.Fatalf("Bars not ascending after reverse: %v", bars)
		}
	}
}

func TestMigrationsCreateDomainTables(t *testing.T) {
	joined := strings.Join(migrations, "\n")
	for _, table := range []string{"market_bars", "multi_timeframe_analyses"} {
		if !strings.Contains(joined, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("Missing migration for %s", table)
		}
	}
}

// ============================================================================
// INTEGRATION TESTS (require DB_HOST to point at a PostgreSQL instance)
// ============================================================================

func integrationDB(t *testing.T) *DB {
	t.Helper()
	host := os.Getenv("DB_HOST")
	if host == "" {
		t.Skip("DB_HOST not set, skipping integration test")
	}
	port, _ := strconv.Atoi(os.Getenv("DB_PORT"))
	if port == 0 {
		port = 5432
	}
	db, err := NewDB(Config{
		Host:     host,
		Port:     port,
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Database: os.Getenv("DB_NAME"),
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestRepositoryBarsRoundTrip(t *testing.T) {
	repo := NewRepository(integrationDB(t))
	ctx := context.Background()
	symbol := "IT" + strings.ToUpper(uuid.NewString()[:8])

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var bars []market.Bar
	for i := 0; i < 5; i++ {
		p := decimal.NewFromInt(int64(100 + i))
		bars = append(bars, market.Bar{
			Symbol: symbol, Interval: market.TF1h, Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open: p, High: p.Add(decimal.NewFromInt(1)), Low: p.Sub(decimal.NewFromInt(1)), Close: p, Volume: int64(i),
		})
	}
	if err := repo.SaveBars(ctx, bars); err != nil {
		t.Fatalf("SaveBars: %v", err)
	}

	got, err := repo.GetBars(ctx, symbol, market.TF1h, 3)
	if err != nil {
		t.Fatalf("GetBars: %v", err)
	}
	if len(got) != 3 || !got[0].Timestamp.Equal(bars[2].Timestamp) || !got[2].Close.Equal(bars[4].Close) {
		t.Errorf("Expected the latest 3 bars ascending, got %+v", got)
	}
}

func TestRepositoryLatestAnalysis(t *testing.T) {
	repo := NewRepository(integrationDB(t))
	ctx := context.Background()
	symbol := "IT" + strings.ToUpper(uuid.NewString()[:8])

	if _, err := repo.GetLatestAnalysis(ctx, symbol); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	a := &confluence.MultiTimeframeAnalysis{
		RunID:             uuid.NewString(),
		Timestamp:         time.Now().UTC().Truncate(time.Second),
		Symbol:            symbol,
		HTFTimeframe:      market.TF4h,
		TradingTimeframe:  market.TF1h,
		SignalStrength:    decimal.RequireFromString("0.812500"),
		RiskLevel:         confluence.RiskLow,
		RecommendedAction: confluence.ActionLong,
	}
	if err := repo.SaveAnalysis(ctx, a); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	got, err := repo.GetLatestAnalysis(ctx, symbol)
	if err != nil {
		t.Fatalf("GetLatestAnalysis: %v", err)
	}
	if got.RunID != a.RunID || !got.SignalStrength.Equal(a.SignalStrength) {
		t.Errorf("Round trip mismatch: %+v", got)
	}
}
