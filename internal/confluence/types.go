package confluence

import (
	"time"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/market"
	"drummond-geometry/internal/patterns"
)

// TimeframeData is the full analysis bundle for one symbol and timeframe
type TimeframeData struct {
	Symbol    string                   `json:"symbol"`
	Timeframe market.Timeframe         `json:"timeframe"`
	Role      market.Role              `json:"role"`
	Bars      []market.Bar             `json:"bars"`
	PLdot     []analysis.PLdotPoint    `json:"pldot"`
	Envelopes []analysis.EnvelopePoint `json:"envelopes"`
	States    []analysis.StatePoint    `json:"states"`
	Patterns  []patterns.PatternEvent  `json:"patterns"`
	Lines     []analysis.DrummondLine  `json:"lines"`
	Zones     []analysis.DrummondZone  `json:"zones"`
}

// SourceKind names where a confluence level came from
type SourceKind string

const (
	SourceEnvelopeUpper  SourceKind = "envelope_upper"
	SourceEnvelopeLower  SourceKind = "envelope_lower"
	SourceEnvelopeCenter SourceKind = "envelope_center"
	SourceDrummondZone   SourceKind = "drummond_zone"
)

// ConfluenceZone is a price band confirmed by at least two timeframes
type ConfluenceZone struct {
	Level            decimal.Decimal                 `json:"level"`
	UpperBound       decimal.Decimal                 `json:"upper_bound"`
	LowerBound       decimal.Decimal                 `json:"lower_bound"`
	Strength         int                             `json:"strength"`
	Timeframes       []market.Timeframe              `json:"timeframes"`
	ZoneType         analysis.ZoneType               `json:"zone_type"`
	FirstTouch       time.Time                       `json:"first_touch"`
	LastTouch        time.Time                       `json:"last_touch"`
	WeightedStrength decimal.Decimal                 `json:"weighted_strength"`
	Sources          map[market.Timeframe]SourceKind `json:"sources"`
	Volatility       decimal.Decimal                 `json:"volatility"`
}

// AlignmentType grades how well the higher and trading timeframes agree
type AlignmentType string

const (
	AlignmentPerfect     AlignmentType = "perfect"
	AlignmentPartial     AlignmentType = "partial"
	AlignmentDivergent   AlignmentType = "divergent"
	AlignmentConflicting AlignmentType = "conflicting"
)

// TimeframeAlignment compares the higher and trading timeframe states at one timestamp
type TimeframeAlignment struct {
	Timestamp         time.Time               `json:"timestamp"`
	HTFState          analysis.MarketState    `json:"htf_state"`
	HTFDirection      analysis.TrendDirection `json:"htf_direction"`
	HTFConfidence     decimal.Decimal         `json:"htf_confidence"`
	TradingState      analysis.MarketState    `json:"trading_state"`
	TradingDirection  analysis.TrendDirection `json:"trading_direction"`
	TradingConfidence decimal.Decimal         `json:"trading_confidence"`
	AlignmentScore    decimal.Decimal         `json:"alignment_score"`
	AlignmentType     AlignmentType           `json:"alignment_type"`
	TradePermitted    bool                    `json:"trade_permitted"`
}

// OverlayPosition is where the trading PLdot sits relative to the higher timeframe PLdot
type OverlayPosition string

const (
	AboveHTF OverlayPosition = "above_htf"
	BelowHTF OverlayPosition = "below_htf"
	AtHTF    OverlayPosition = "at_htf"
)

// PLDotOverlay projects the higher timeframe PLdot onto the trading timeframe
type PLDotOverlay struct {
	Timestamp       time.Time        `json:"timestamp"`
	HTFTimeframe    market.Timeframe `json:"htf_timeframe"`
	HTFValue        decimal.Decimal  `json:"htf_value"`
	HTFSlope        decimal.Decimal  `json:"htf_slope"`
	TradingValue    decimal.Decimal  `json:"trading_value"`
	DistancePercent decimal.Decimal  `json:"distance_percent"`
	Position        OverlayPosition  `json:"position"`
}

// RiskLevel is low, medium or high
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Action is the recommended trading action
type Action string

const (
	ActionLong   Action = "long"
	ActionShort  Action = "short"
	ActionWait   Action = "wait"
	ActionReduce Action = "reduce"
)

// MultiTimeframeAnalysis is the coordinator's result for one symbol
type MultiTimeframeAnalysis struct {
	RunID             string                  `json:"run_id,omitempty"`
	Timestamp         time.Time               `json:"timestamp"`
	Symbol            string                  `json:"symbol"`
	HTFTimeframe      market.Timeframe        `json:"htf_timeframe"`
	TradingTimeframe  market.Timeframe        `json:"trading_timeframe"`
	LTFTimeframe      market.Timeframe        `json:"ltf_timeframe,omitempty"`
	HTFTrend          analysis.TrendDirection `json:"htf_trend"`
	HTFStrength       decimal.Decimal         `json:"htf_strength"`
	TradingTrend      analysis.TrendDirection `json:"trading_trend"`
	TradingStrength   decimal.Decimal         `json:"trading_strength"`
	LTFTrend          analysis.TrendDirection `json:"ltf_trend,omitempty"`
	Alignment         TimeframeAlignment      `json:"alignment"`
	PLDotOverlay      PLDotOverlay            `json:"pldot_overlay"`
	ConfluenceZones   []ConfluenceZone        `json:"confluence_zones"`
	HTFPatterns       []patterns.PatternEvent `json:"htf_patterns"`
	TradingPatterns   []patterns.PatternEvent `json:"trading_patterns"`
	PatternConfluence bool                    `json:"pattern_confluence"`
	SignalStrength    decimal.Decimal         `json:"signal_strength"`
	RiskLevel         RiskLevel               `json:"risk_level"`
	RecommendedAction Action                  `json:"recommended_action"`
	NearestSupport    *ConfluenceZone         `json:"nearest_support,omitempty"`
	NearestResistance *ConfluenceZone         `json:"nearest_resistance,omitempty"`
	Reasoning         []string                `json:"reasoning"`
}
