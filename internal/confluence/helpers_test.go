package confluence

import (
	"time"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/market"
)

var testStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ts(i int) time.Time {
	return testStart.Add(time.Duration(i) * time.Hour)
}

func trendState(i int, dir analysis.TrendDirection, bars int, confidence string, slope analysis.SlopeTrend) analysis.StatePoint {
	return analysis.StatePoint{
		Timestamp:       ts(i),
		State:           analysis.StateTrend,
		TrendDirection:  dir,
		BarsInState:     bars,
		PLdotSlopeTrend: slope,
		Confidence:      d(confidence),
	}
}

func envelope(i int, center, halfWidth string) analysis.EnvelopePoint {
	c, h := d(center), d(halfWidth)
	return analysis.EnvelopePoint{
		Timestamp: ts(i),
		Center:    c,
		Upper:     c.Add(h),
		Lower:     c.Sub(h),
		Width:     h.Add(h),
		Position:  d("0.5"),
		Method:    analysis.EnvelopePLdotRange,
	}
}

func bundle(tf market.Timeframe, role market.Role) *TimeframeData {
	return &TimeframeData{Symbol: "BTCUSDT", Timeframe: tf, Role: role}
}

func zigzagBars(n int, tf market.Timeframe, step time.Duration) []market.Bar {
	bars := make([]market.Bar, n)
	for i := range bars {
		base := 100 + float64(i%7)*0.6 - float64(i%4)*0.45 + float64(i)*0.05
		bars[i] = market.Bar{
			Symbol:    "BTCUSDT",
			Interval:  tf,
			Timestamp: testStart.Add(time.Duration(i) * step),
			Open:      decimal.NewFromFloat(base),
			High:      decimal.NewFromFloat(base + 1.1),
			Low:       decimal.NewFromFloat(base - 0.9),
			Close:     decimal.NewFromFloat(base + 0.3),
			Volume:    int64(1000 + i*10),
		}
	}
	return bars
}
