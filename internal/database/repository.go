package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"drummond-geometry/internal/confluence"
	"drummond-geometry/internal/market"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// ============================================================================
// BARS
// ============================================================================

// GetBars returns the latest limit bars of symbol/interval in ascending time order
func (r *Repository) GetBars(ctx context.Context, symbol string, interval market.Timeframe, limit int) ([]market.Bar, error) {
	query := `
		SELECT ts, exchange, open::text, high::text, low::text, close::text, volume
		FROM market_bars
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY ts DESC
		LIMIT $3
	`
	rows, err := r.db.Pool.Query(ctx, query, symbol, string(interval), limit)
	if err != nil {
		return nil, fmt.Errorf("query bars %s %s: %w", symbol, interval, err)
	}
	defer rows.Close()

	var bars []market.Bar
	for rows.Next() {
		var (
			ts                     time.Time
			exchange               string
			open, high, low, close string
			volume                 int64
		)
		if err := rows.Scan(&ts, &exchange, &open, &high, &low, &close, &volume); err != nil {
			return nil, err
		}
		bar, err := parseBarRow(symbol, interval, ts, exchange, open, high, low, close, volume)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reverseBars(bars)
	return bars, nil
}

// SaveBars upserts bars in one batch
func (r *Repository) SaveBars(ctx context.Context, bars []market.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	query := `
		INSERT INTO market_bars (symbol, timeframe, ts, exchange, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9)
		ON CONFLICT (symbol, timeframe, ts) DO UPDATE
		SET exchange = EXCLUDED.exchange, open = EXCLUDED.open, high = EXCLUDED.high,
		    low = EXCLUDED.low, close = EXCLUDED.close, volume = EXCLUDED.volume
	`
	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(query, b.Symbol, string(b.Interval), b.Timestamp.UTC(), b.Exchange,
			b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(), b.Volume)
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := range bars {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert bar %d: %w", i, err)
		}
	}
	return nil
}

// ============================================================================
// ANALYSES
// ============================================================================

// SaveAnalysis stores a coordinated analysis with its full JSON payload
func (r *Repository) SaveAnalysis(ctx context.Context, a *confluence.MultiTimeframeAnalysis) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	query := `
		INSERT INTO multi_timeframe_analyses
			(run_id, symbol, analyzed_at, htf_timeframe, trading_timeframe, signal_strength, risk_level, recommended_action, payload)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9)
		ON CONFLICT (run_id) DO NOTHING
	`
	_, err = r.db.Pool.Exec(ctx, query,
		a.RunID, a.Symbol, a.Timestamp.UTC(), string(a.HTFTimeframe), string(a.TradingTimeframe),
		a.SignalStrength.String(), string(a.RiskLevel), string(a.RecommendedAction), payload,
	)
	if err != nil {
		return fmt.Errorf("insert analysis %s: %w", a.Symbol, err)
	}
	return nil
}

// GetLatestAnalysis returns the most recently stored analysis of symbol
func (r *Repository) GetLatestAnalysis(ctx context.Context, symbol string) (*confluence.MultiTimeframeAnalysis, error) {
	query := `
		SELECT payload
		FROM multi_timeframe_analyses
		WHERE symbol = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var payload []byte
	err := r.db.Pool.QueryRow(ctx, query, symbol).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest analysis %s: %w", symbol, err)
	}

	var a confluence.MultiTimeframeAnalysis
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", symbol, err)
	}
	return &a, nil
}

func parseBarRow(symbol string, interval market.Timeframe, ts time.Time, exchange, open, high, low, close string, volume int64) (market.Bar, error) {
	bar := market.Bar{
		Symbol:    symbol,
		Exchange:  exchange,
		Timestamp: ts.UTC(),
		Interval:  interval,
		Volume:    volume,
	}
	fields := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{open, &bar.Open},
		{high, &bar.High},
		{low, &bar.Low},
		{close, &bar.Close},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return market.Bar{}, fmt.Errorf("bar %s %s at %s: %w", symbol, interval, ts.Format(time.RFC3339), err)
		}
		*f.dst = v
	}
	return bar, nil
}

func reverseBars(bars []market.Bar) {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}
