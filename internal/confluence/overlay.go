package confluence

import (
	"time"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/market"
)

var (
	hundred          = decimal.NewFromInt(100)
	overlayThreshold = decimal.RequireFromString("0.1")
)

// calculateOverlay compares the PLdot values at or before ts. Missing values
// produce a zero overlay positioned at the higher timeframe.
func calculateOverlay(ts time.Time, htf, trading *TimeframeData) PLDotOverlay {
	ov := PLDotOverlay{
		Timestamp:       ts,
		HTFTimeframe:    htf.Timeframe,
		DistancePercent: decimal.Zero,
		Position:        AtHTF,
	}

	hp, okH := analysis.PLdotAt(htf.PLdot, ts)
	tp, okT := analysis.PLdotAt(trading.PLdot, ts)
	if !okH || !okT {
		return ov
	}

	ov.HTFValue = hp.Value
	ov.HTFSlope = hp.Slope
	ov.TradingValue = tp.Value
	if !hp.Value.IsZero() {
		ov.DistancePercent = market.Round6(tp.Value.Sub(hp.Value).Div(hp.Value).Mul(hundred))
	}

	switch {
	case ov.DistancePercent.GreaterThan(overlayThreshold):
		ov.Position = AboveHTF
	case ov.DistancePercent.LessThan(overlayThreshold.Neg()):
		ov.Position = BelowHTF
	}
	return ov
}
