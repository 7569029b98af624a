package analysis

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/market"
)

// PLdotWindow is the number of typical prices averaged into one PLdot value
const PLdotWindow = 3

// PLdotPoint is one value of the PLdot reference line
type PLdotPoint struct {
	Timestamp          time.Time       `json:"timestamp"`
	Value              decimal.Decimal `json:"value"`
	ProjectedTimestamp time.Time       `json:"projected_timestamp"`
	ProjectedValue     decimal.Decimal `json:"projected_value"`
	Slope              decimal.Decimal `json:"slope"`
	Displacement       int             `json:"displacement"`
}

// PLdotCalculator computes the 3-bar smoothed typical price and projects it forward
type PLdotCalculator struct {
	displacement int
}

// NewPLdotCalculator creates a calculator projecting displacement bars ahead
func NewPLdotCalculator(displacement int) (*PLdotCalculator, error) {
	if displacement < 1 {
		return nil, fmt.Errorf("pldot displacement %d must be >= 1: %w", displacement, ErrInvalidConfiguration)
	}
	return &PLdotCalculator{displacement: displacement}, nil
}

// Displacement returns the configured projection distance in bars
func (c *PLdotCalculator) Displacement() int {
	return c.displacement
}

// Calculate returns one point per bar from the third bar on, stopping once the
// projection target would fall past the end of the series.
func (c *PLdotCalculator) Calculate(bars []market.Bar) ([]PLdotPoint, error) {
	n := len(bars)
	if n < PLdotWindow {
		return nil, fmt.Errorf("pldot needs %d bars, got %d: %w", PLdotWindow, n, ErrInsufficientData)
	}

	typical := make([]decimal.Decimal, n)
	for i, b := range bars {
		typical[i] = b.TypicalPrice()
	}

	window := decimal.NewFromInt(PLdotWindow)
	points := make([]PLdotPoint, 0, n)
	var prev decimal.Decimal
	for i := PLdotWindow - 1; i < n; i++ {
		target := i + c.displacement
		if target >= n {
			break
		}

		value := typical[i-2].Add(typical[i-1]).Add(typical[i]).Div(window)
		slope := decimal.Zero
		if i > PLdotWindow-1 {
			slope = value.Sub(prev)
		}
		prev = value

		rounded := market.Round6(value)
		points = append(points, PLdotPoint{
			Timestamp:          bars[i].Timestamp,
			Value:              rounded,
			ProjectedTimestamp: bars[target].Timestamp,
			ProjectedValue:     rounded,
			Slope:              market.Round6(slope),
			Displacement:       c.displacement,
		})
	}
	return points, nil
}

// PLdotAt returns the last point at or before ts
func PLdotAt(points []PLdotPoint, ts time.Time) (PLdotPoint, bool) {
	for i := len(points) - 1; i >= 0; i-- {
		if !points[i].Timestamp.After(ts) {
			return points[i], true
		}
	}
	return PLdotPoint{}, false
}
