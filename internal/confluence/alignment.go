package confluence

import (
	"time"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/market"
)

var (
	strengthPerBar      = decimal.RequireFromString("0.1")
	strengthDurationCap = decimal.RequireFromString("0.4")
	strengthConfidence  = decimal.RequireFromString("0.4")
	strengthSlopeBonus  = decimal.RequireFromString("0.2")

	directionMatch   = decimal.RequireFromString("0.5")
	directionPartial = decimal.RequireFromString("0.25")
	stateMatch       = decimal.RequireFromString("0.2")
	stateCompatible  = decimal.RequireFromString("0.1")
	confidenceWeight = decimal.RequireFromString("0.3")

	perfectThreshold   = decimal.RequireFromString("0.8")
	partialThreshold   = decimal.RequireFromString("0.6")
	divergentThreshold = decimal.RequireFromString("0.3")
)

// neutralState stands in when a timeframe has no state at or before the target
func neutralState(ts time.Time) analysis.StatePoint {
	return analysis.StatePoint{
		Timestamp:       ts,
		State:           analysis.StateCongestionAction,
		TrendDirection:  analysis.TrendNeutral,
		PLdotSlopeTrend: analysis.SlopeHorizontal,
		Confidence:      decimal.Zero,
	}
}

// stateAt returns the state at or before ts, or a neutral record and false
func stateAt(states []analysis.StatePoint, ts time.Time) (analysis.StatePoint, bool) {
	if s, ok := analysis.StateAt(states, ts); ok {
		return s, true
	}
	return neutralState(ts), false
}

// trendStrength is min(1, min(bars*0.1, 0.4) + confidence*0.4 + 0.2 for a trend the slope agrees with)
func trendStrength(s analysis.StatePoint) decimal.Decimal {
	strength := market.MinDecimal(decimal.NewFromInt(int64(s.BarsInState)).Mul(strengthPerBar), strengthDurationCap).
		Add(s.Confidence.Mul(strengthConfidence))
	if s.State == analysis.StateTrend && s.PLdotSlopeTrend.Matches(s.TrendDirection) {
		strength = strength.Add(strengthSlopeBonus)
	}
	return market.Round6(market.MinDecimal(strength, market.One))
}

func statesCompatible(a, b analysis.MarketState) bool {
	switch {
	case a == b:
		return true
	case a == analysis.StateTrend && b == analysis.StateCongestionExit,
		a == analysis.StateCongestionExit && b == analysis.StateTrend:
		return true
	case a.IsCongestion() && b.IsCongestion():
		return true
	default:
		return false
	}
}

// classifyAlignment maps a score to its alignment type; boundaries are inclusive
func classifyAlignment(score decimal.Decimal) AlignmentType {
	switch {
	case score.GreaterThanOrEqual(perfectThreshold):
		return AlignmentPerfect
	case score.GreaterThanOrEqual(partialThreshold):
		return AlignmentPartial
	case score.GreaterThanOrEqual(divergentThreshold):
		return AlignmentDivergent
	default:
		return AlignmentConflicting
	}
}

// calculateAlignment scores agreement between the higher and trading timeframe states.
// A missing state on either side forces a zero score and no trade.
func calculateAlignment(ts time.Time, htf, trading analysis.StatePoint, haveBoth bool, threshold decimal.Decimal) TimeframeAlignment {
	al := TimeframeAlignment{
		Timestamp:         ts,
		HTFState:          htf.State,
		HTFDirection:      htf.TrendDirection,
		HTFConfidence:     htf.Confidence,
		TradingState:      trading.State,
		TradingDirection:  trading.TrendDirection,
		TradingConfidence: trading.Confidence,
		AlignmentScore:    decimal.Zero,
	}
	if !haveBoth {
		al.AlignmentType = classifyAlignment(al.AlignmentScore)
		return al
	}

	score := decimal.Zero
	switch {
	case htf.TrendDirection == trading.TrendDirection:
		score = score.Add(directionMatch)
	case htf.TrendDirection == analysis.TrendNeutral || trading.TrendDirection == analysis.TrendNeutral:
		score = score.Add(directionPartial)
	}

	switch {
	case htf.State == trading.State:
		score = score.Add(stateMatch)
	case statesCompatible(htf.State, trading.State):
		score = score.Add(stateCompatible)
	}

	avgConfidence := htf.Confidence.Add(trading.Confidence).Div(decimal.NewFromInt(2))
	score = score.Add(avgConfidence.Mul(confidenceWeight))
	score = market.Round6(market.MinDecimal(score, market.One))

	al.AlignmentScore = score
	al.AlignmentType = classifyAlignment(score)
	directionsOK := htf.TrendDirection == trading.TrendDirection || htf.TrendDirection == analysis.TrendNeutral
	al.TradePermitted = directionsOK && score.GreaterThanOrEqual(threshold)
	return al
}
