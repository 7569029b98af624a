package confluence

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/market"
)

// CoordinatorConfig selects the timeframes and coordination thresholds
type CoordinatorConfig struct {
	HTF                    market.Timeframe
	Trading                market.Timeframe
	LTF                    market.Timeframe // optional
	ConfluenceTolerancePct decimal.Decimal
	AlignmentThreshold     decimal.Decimal
}

// DefaultCoordinatorConfig returns 4h/1h with 0.5% confluence tolerance and a 0.6 alignment threshold
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		HTF:                    market.TF4h,
		Trading:                market.TF1h,
		ConfluenceTolerancePct: decimal.RequireFromString("0.5"),
		AlignmentThreshold:     decimal.RequireFromString("0.6"),
	}
}

// Coordinator combines a higher and a trading timeframe bundle into one analysis.
// It keeps no state between calls.
type Coordinator struct {
	cfg    CoordinatorConfig
	scorer *SignalScorer
}

// NewCoordinator validates thresholds and creates a coordinator
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.ConfluenceTolerancePct.Sign() <= 0 {
		return nil, fmt.Errorf("confluence tolerance %s must be positive: %w", cfg.ConfluenceTolerancePct, analysis.ErrInvalidConfiguration)
	}
	if cfg.AlignmentThreshold.Sign() < 0 || cfg.AlignmentThreshold.GreaterThan(market.One) {
		return nil, fmt.Errorf("alignment threshold %s must be within [0, 1]: %w", cfg.AlignmentThreshold, analysis.ErrInvalidConfiguration)
	}
	if cfg.HTF == "" || cfg.Trading == "" {
		return nil, fmt.Errorf("htf and trading timeframes are required: %w", analysis.ErrInvalidConfiguration)
	}
	return &Coordinator{cfg: cfg, scorer: NewSignalScorer()}, nil
}

// Config returns the coordinator configuration
func (c *Coordinator) Config() CoordinatorConfig {
	return c.cfg
}

// Analyze coordinates the bundles at the latest timestamp both timeframes share.
// ltf may be nil.
func (c *Coordinator) Analyze(htf, trading, ltf *TimeframeData) (*MultiTimeframeAnalysis, error) {
	if htf == nil || trading == nil {
		return nil, fmt.Errorf("higher and trading timeframe bundles are required: %w", analysis.ErrInsufficientData)
	}
	target, ok := targetTimestamp(htf.States, trading.States)
	if !ok {
		return nil, fmt.Errorf("%s: no classified states to coordinate: %w", trading.Symbol, analysis.ErrInsufficientData)
	}

	htfState, okH := stateAt(htf.States, target)
	trState, okT := stateAt(trading.States, target)
	htfStrength := trendStrength(htfState)
	trStrength := trendStrength(trState)

	result := &MultiTimeframeAnalysis{
		Timestamp:        target,
		Symbol:           trading.Symbol,
		HTFTimeframe:     htf.Timeframe,
		TradingTimeframe: trading.Timeframe,
		HTFTrend:         htfState.TrendDirection,
		HTFStrength:      htfStrength,
		TradingTrend:     trState.TrendDirection,
		TradingStrength:  trStrength,
		Reasoning:        make([]string, 0),
	}
	if !okH || !okT {
		result.Reasoning = append(result.Reasoning, "Missing state at target, using neutral alignment")
	}

	result.Alignment = calculateAlignment(target, htfState, trState, okH && okT, c.cfg.AlignmentThreshold)
	result.Reasoning = append(result.Reasoning, fmt.Sprintf("%s alignment (%s): %s %s vs %s %s",
		result.Alignment.AlignmentType, result.Alignment.AlignmentScore,
		htf.Timeframe, htfState.TrendDirection, trading.Timeframe, trState.TrendDirection))

	result.PLDotOverlay = calculateOverlay(target, htf, trading)

	bundles := []*TimeframeData{htf, trading}
	if ltf != nil {
		result.LTFTimeframe = ltf.Timeframe
		if s, ok := analysis.StateAt(ltf.States, target); ok {
			result.LTFTrend = s.TrendDirection
		} else {
			result.LTFTrend = analysis.TrendNeutral
		}
		bundles = append(bundles, ltf)
	}

	result.ConfluenceZones = clusterCandidates(collectCandidates(bundles, target, c.cfg.ConfluenceTolerancePct))
	if result.ConfluenceZones == nil {
		result.ConfluenceZones = []ConfluenceZone{}
	}
	if bar, ok := barAt(trading.Bars, target); ok {
		support, resistance := nearestZones(result.ConfluenceZones, bar.Close)
		result.NearestSupport = copyZone(support)
		result.NearestResistance = copyZone(resistance)
	}

	result.HTFPatterns = recentEvents(htf.Patterns, target)
	result.TradingPatterns = recentEvents(trading.Patterns, target)
	result.PatternConfluence = PatternConfluence(result.HTFPatterns, result.TradingPatterns)

	result.SignalStrength = c.scorer.SignalStrength(result.Alignment, htfStrength, result.ConfluenceZones, result.PatternConfluence, &result.Reasoning)
	result.RiskLevel = c.scorer.RiskLevel(result.Alignment, result.SignalStrength, htfStrength)
	result.RecommendedAction = c.scorer.RecommendAction(result.Alignment, result.SignalStrength, htfState.TrendDirection, trState.TrendDirection)
	if !result.Alignment.TradePermitted {
		result.Reasoning = append(result.Reasoning, "Trade not permitted by higher timeframe")
	}
	return result, nil
}

// targetTimestamp is the latest state timestamp present in both series, else the
// latest trading state, else the latest higher timeframe state.
func targetTimestamp(htf, trading []analysis.StatePoint) (time.Time, bool) {
	htfTimes := make(map[int64]struct{}, len(htf))
	for _, s := range htf {
		htfTimes[s.Timestamp.UnixNano()] = struct{}{}
	}
	for i := len(trading) - 1; i >= 0; i-- {
		if _, ok := htfTimes[trading[i].Timestamp.UnixNano()]; ok {
			return trading[i].Timestamp, true
		}
	}
	if len(trading) > 0 {
		return trading[len(trading)-1].Timestamp, true
	}
	if len(htf) > 0 {
		return htf[len(htf)-1].Timestamp, true
	}
	return time.Time{}, false
}

func barAt(bars []market.Bar, ts time.Time) (market.Bar, bool) {
	for i := len(bars) - 1; i >= 0; i-- {
		if !bars[i].Timestamp.After(ts) {
			return bars[i], true
		}
	}
	return market.Bar{}, false
}

func copyZone(z *ConfluenceZone) *ConfluenceZone {
	if z == nil {
		return nil
	}
	cp := *z
	return &cp
}
