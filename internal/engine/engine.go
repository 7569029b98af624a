// Package engine loads bars for the configured timeframes, builds the
// per-timeframe bundles through the memoizer and coordinates them into a
// multi-timeframe analysis that is persisted and published.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"drummond-geometry/config"
	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/cache"
	"drummond-geometry/internal/confluence"
	"drummond-geometry/internal/logging"
	"drummond-geometry/internal/market"
)

// SLA is the soft per-analysis latency budget. Exceeding it is logged, never enforced.
const SLA = 200 * time.Millisecond

// ErrNotFound is returned by Latest when no analysis is known for a symbol
var ErrNotFound = errors.New("analysis not found")

// BarSource supplies historical bars
type BarSource interface {
	GetBars(ctx context.Context, symbol string, interval market.Timeframe, limit int) ([]market.Bar, error)
}

// AnalysisStore persists coordinated analyses
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, a *confluence.MultiTimeframeAnalysis) error
	GetLatestAnalysis(ctx context.Context, symbol string) (*confluence.MultiTimeframeAnalysis, error)
}

// Publisher receives every completed analysis
type Publisher interface {
	Publish(a *confluence.MultiTimeframeAnalysis)
}

// Option configures an Engine
type Option func(*Engine)

// WithStore persists each analysis to s
func WithStore(s AnalysisStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithPublisher broadcasts each analysis through p
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithCache memoizes bundles and the latest analysis per symbol in s
func WithCache(s cache.Store) Option {
	return func(e *Engine) { e.cache = s }
}

// WithLogger replaces the engine logger
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine runs multi-timeframe analyses. It is safe for concurrent use.
type Engine struct {
	source      BarSource
	store       AnalysisStore
	publisher   Publisher
	cache       cache.Store
	memo        *cache.Memoizer
	logger      *logging.Logger
	builder     *confluence.Builder
	coordinator *confluence.Coordinator
	paramsFP    string
	barLimit    int
	now         func() time.Time
}

// New validates cfg and creates an engine. source may be nil when only
// AnalyzeSeries is used.
func New(cfg config.AnalysisConfig, source BarSource, opts ...Option) (*Engine, error) {
	settings := cfg.Settings()
	builder, err := confluence.NewBuilder(settings)
	if err != nil {
		return nil, err
	}
	coordinator, err := confluence.NewCoordinator(cfg.Coordinator.ToCoordinatorConfig())
	if err != nil {
		return nil, err
	}
	if cfg.Coordinator.BarLimit <= 0 {
		return nil, fmt.Errorf("bar limit %d must be positive: %w", cfg.Coordinator.BarLimit, analysis.ErrInvalidConfiguration)
	}

	e := &Engine{
		source:      source,
		logger:      logging.WithComponent("engine"),
		builder:     builder,
		coordinator: coordinator,
		paramsFP:    cache.Fingerprint(settings),
		barLimit:    cfg.Coordinator.BarLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.memo = cache.NewMemoizer(e.cache)
	return e, nil
}

// Timeframes returns the configured higher, trading and optional lower timeframes
func (e *Engine) Timeframes() (htf, trading, ltf market.Timeframe) {
	c := e.coordinator.Config()
	return c.HTF, c.Trading, c.LTF
}

// Memoizer exposes cache hit statistics
func (e *Engine) Memoizer() *cache.Memoizer {
	return e.memo
}

// AnalyzeSymbol loads the latest bars of every configured timeframe from the
// bar source and analyzes them.
func (e *Engine) AnalyzeSymbol(ctx context.Context, symbol string) (*confluence.MultiTimeframeAnalysis, error) {
	if e.source == nil {
		return nil, fmt.Errorf("analyze %s: no bar source configured", symbol)
	}
	series, err := e.loadSeries(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return e.AnalyzeSeries(ctx, symbol, series)
}

// loadSeries fetches all timeframes in parallel
func (e *Engine) loadSeries(ctx context.Context, symbol string) (map[market.Timeframe][]market.Bar, error) {
	htf, trading, ltf := e.Timeframes()
	timeframes := []market.Timeframe{htf, trading}
	if ltf != "" {
		timeframes = append(timeframes, ltf)
	}

	result := make(map[market.Timeframe][]market.Bar, len(timeframes))
	var wg sync.WaitGroup
	var mu sync.Mutex
	errChan := make(chan error, len(timeframes))

	for _, tf := range timeframes {
		wg.Add(1)
		go func(timeframe market.Timeframe) {
			defer wg.Done()

			bars, err := e.source.GetBars(ctx, symbol, timeframe, e.barLimit)
			if err != nil {
				errChan <- fmt.Errorf("failed to fetch %s %s: %w", symbol, timeframe, err)
				return
			}

			mu.Lock()
			result[timeframe] = bars
			mu.Unlock()
		}(tf)
	}

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}
	return result, nil
}

// AnalyzeSeries analyzes caller-supplied bars keyed by timeframe. The higher
// and trading timeframes are required; the lower timeframe is used when
// configured and present.
func (e *Engine) AnalyzeSeries(ctx context.Context, symbol string, series map[market.Timeframe][]market.Bar) (*confluence.MultiTimeframeAnalysis, error) {
	start := e.now()
	runID := uuid.NewString()
	l := e.logger
	if traceID := logging.TraceIDFromContext(ctx); traceID != "" {
		l = l.WithTraceID(traceID)
	}
	l = l.WithFields(map[string]interface{}{"symbol": symbol, "run_id": runID})

	htfTF, tradingTF, ltfTF := e.Timeframes()
	for _, tf := range []market.Timeframe{htfTF, tradingTF} {
		if len(series[tf]) == 0 {
			return nil, fmt.Errorf("analyze %s: no %s bars: %w", symbol, tf, analysis.ErrInsufficientData)
		}
	}
	for tf, bars := range series {
		if err := market.ValidateSeries(bars); err != nil {
			return nil, fmt.Errorf("analyze %s %s: %w", symbol, tf, err)
		}
	}

	var htf, trading, ltf *confluence.TimeframeData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		htf, err = e.build(gctx, symbol, htfTF, market.RoleHigher, series[htfTF])
		return err
	})
	g.Go(func() (err error) {
		trading, err = e.build(gctx, symbol, tradingTF, market.RoleTrading, series[tradingTF])
		return err
	})
	if bars := series[ltfTF]; ltfTF != "" && len(bars) > 0 {
		g.Go(func() error {
			data, err := e.build(gctx, symbol, ltfTF, market.RoleLower, bars)
			if err != nil {
				// the lower timeframe is optional
				l.Warn("Lower timeframe skipped", "timeframe", ltfTF, "error", err)
				return nil
			}
			ltf = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result, err := e.coordinator.Analyze(htf, trading, ltf)
	if err != nil {
		return nil, fmt.Errorf("coordinate %s: %w", symbol, err)
	}
	result.RunID = runID

	if elapsed := e.now().Sub(start); elapsed > SLA {
		l.WithDuration(elapsed).Warn("Analysis exceeded latency budget", "budget", SLA.String())
	}

	e.persist(ctx, l, result)
	if e.publisher != nil {
		e.publisher.Publish(result)
	}

	l.Info("Analysis complete",
		"signal_strength", result.SignalStrength,
		"action", string(result.RecommendedAction),
		"alignment", string(result.Alignment.AlignmentType),
		"confluence_zones", len(result.ConfluenceZones))
	return result, nil
}

func (e *Engine) build(ctx context.Context, symbol string, tf market.Timeframe, role market.Role, bars []market.Bar) (*confluence.TimeframeData, error) {
	key := cache.BundleKey(symbol, tf, role, e.paramsFP, bars)
	return cache.Load(ctx, e.memo, key, cache.TTLFor(tf), func() (*confluence.TimeframeData, error) {
		return e.builder.Build(symbol, tf, role, bars)
	})
}

// persist stores the analysis and refreshes the cached latest copy. Failures are logged only.
func (e *Engine) persist(ctx context.Context, l *logging.Logger, a *confluence.MultiTimeframeAnalysis) {
	if e.store != nil {
		if err := e.store.SaveAnalysis(ctx, a); err != nil {
			l.Error("Failed to save analysis", "error", err)
		}
	}
	if e.cache != nil {
		if err := e.cache.SetJSON(ctx, cache.LatestAnalysisKey(a.Symbol), a, cache.LatestAnalysisTTL); err != nil {
			l.Debug("Failed to cache latest analysis", "error", err)
		}
	}
}

// Invalidate drops every cached bundle and the cached latest analysis of
// symbol. Stores that cannot delete are left untouched.
func (e *Engine) Invalidate(ctx context.Context, symbol string) error {
	inv, ok := e.cache.(cache.Invalidator)
	if !ok {
		return nil
	}
	if err := inv.DeletePattern(ctx, cache.SymbolBundlesPattern(symbol)); err != nil {
		return fmt.Errorf("invalidate %s bundles: %w", symbol, err)
	}
	if err := inv.Delete(ctx, cache.LatestAnalysisKey(symbol)); err != nil {
		return fmt.Errorf("invalidate %s latest: %w", symbol, err)
	}
	e.logger.Info("Cache invalidated", "symbol", symbol)
	return nil
}

// Latest returns the most recent analysis of symbol from the store, falling
// back to the cache.
func (e *Engine) Latest(ctx context.Context, symbol string) (*confluence.MultiTimeframeAnalysis, error) {
	if e.store != nil {
		a, err := e.store.GetLatestAnalysis(ctx, symbol)
		if err == nil {
			return a, nil
		}
		e.logger.Debug("Store lookup failed, trying cache", "symbol", symbol, "error", err)
	}
	if e.cache != nil {
		var a confluence.MultiTimeframeAnalysis
		if err := e.cache.GetJSON(ctx, cache.LatestAnalysisKey(symbol), &a); err == nil {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", symbol, ErrNotFound)
}
