package patterns

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

// fixture builds aligned bar/PLdot/envelope series by hand
type fixture struct {
	bars      []market.Bar
	pldot     []analysis.PLdotPoint
	envelopes []analysis.EnvelopePoint
}

func (f *fixture) add(close, slope float64) *fixture {
	i := len(f.bars)
	c := decimal.NewFromFloat(close)
	f.bars = append(f.bars, market.Bar{
		Symbol:    "ETHUSDT",
		Interval:  market.TF1h,
		Timestamp: ts(i),
		Open:      c,
		High:      c.Add(d("0.5")),
		Low:       c.Sub(d("0.5")),
		Close:     c,
		Volume:    1000,
	})
	f.pldot = append(f.pldot, analysis.PLdotPoint{
		Timestamp:    ts(i),
		Value:        d("100"),
		Slope:        decimal.NewFromFloat(slope),
		Displacement: 1,
	})
	return f
}

// addEnv appends a row with a 99..101 band around 100 and the given position
func (f *fixture) addEnv(close float64, position string) *fixture {
	f.add(close, 0)
	f.envelopes = append(f.envelopes, analysis.EnvelopePoint{
		Timestamp: ts(len(f.bars) - 1),
		Center:    d("100"),
		Upper:     d("101"),
		Lower:     d("99"),
		Width:     d("2"),
		Position:  d(position),
		Method:    analysis.EnvelopePLdotRange,
	})
	return f
}

func (f *fixture) inputs() Inputs {
	return Inputs{Bars: f.bars, PLdot: f.pldot, Envelopes: f.envelopes}
}

func defaultDetector() *PatternDetector {
	return NewPatternDetector(DefaultConfig())
}
