package analysis

import (
	"time"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/market"
)

var testStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mkBar(i int, open, high, low, close float64) market.Bar {
	return market.Bar{
		Symbol:    "BTCUSDT",
		Interval:  market.TF1h,
		Timestamp: testStart.Add(time.Duration(i) * time.Hour),
		Open:      decimal.NewFromFloat(open),
		High:      decimal.NewFromFloat(high),
		Low:       decimal.NewFromFloat(low),
		Close:     decimal.NewFromFloat(close),
		Volume:    1000,
	}
}

// flatBar has typical price exactly p
func flatBar(i int, p float64) market.Bar {
	return mkBar(i, p, p, p, p)
}

// closesAround builds bars closing at the given prices and PLdot points fixed at 100
func closesAround(closes []float64) ([]market.Bar, []PLdotPoint) {
	bars := make([]market.Bar, len(closes))
	points := make([]PLdotPoint, len(closes))
	for i, c := range closes {
		bars[i] = mkBar(i, c, c+1, c-1, c)
		points[i] = PLdotPoint{
			Timestamp:    bars[i].Timestamp,
			Value:        decimal.NewFromInt(100),
			Slope:        decimal.Zero,
			Displacement: 1,
		}
	}
	return bars, points
}

func zigzagBars(n int) []market.Bar {
	bars := make([]market.Bar, n)
	for i := range bars {
		base := 100 + float64(i%5)*0.8 - float64(i%3)*0.5
		bars[i] = mkBar(i, base, base+1.25, base-0.75, base+0.4)
	}
	return bars
}
