package analysis

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/market"
)

// EnvelopeMethod selects how the band offset around PLdot is measured
type EnvelopeMethod string

const (
	EnvelopePLdotRange EnvelopeMethod = "pldot_range"
	EnvelopeHLCRange   EnvelopeMethod = "hlc_range"
	EnvelopeATR        EnvelopeMethod = "atr"
	EnvelopePercentage EnvelopeMethod = "percentage"
)

// EnvelopePoint is one volatility band around a PLdot value
type EnvelopePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Center    decimal.Decimal `json:"center"`
	Upper     decimal.Decimal `json:"upper"`
	Lower     decimal.Decimal `json:"lower"`
	Width     decimal.Decimal `json:"width"`
	Position  decimal.Decimal `json:"position"`
	Method    EnvelopeMethod  `json:"method"`
}

// EnvelopeConfig holds envelope parameters
type EnvelopeConfig struct {
	Method     EnvelopeMethod
	Period     int
	Multiplier decimal.Decimal
	Percent    decimal.Decimal
}

// DefaultEnvelopeConfig returns the pldot_range envelope with period 3 and multiplier 1.5
func DefaultEnvelopeConfig() EnvelopeConfig {
	return EnvelopeConfig{
		Method:     EnvelopePLdotRange,
		Period:     3,
		Multiplier: decimal.RequireFromString("1.5"),
		Percent:    decimal.RequireFromString("0.001"),
	}
}

// EnvelopeCalculator builds bands around a PLdot series
type EnvelopeCalculator struct {
	cfg EnvelopeConfig
}

// NewEnvelopeCalculator validates cfg and returns a calculator
func NewEnvelopeCalculator(cfg EnvelopeConfig) (*EnvelopeCalculator, error) {
	switch cfg.Method {
	case EnvelopePLdotRange, EnvelopeHLCRange, EnvelopeATR, EnvelopePercentage:
	default:
		return nil, fmt.Errorf("unknown envelope method %q: %w", cfg.Method, ErrInvalidConfiguration)
	}
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("envelope period %d must be positive: %w", cfg.Period, ErrInvalidConfiguration)
	}
	if cfg.Multiplier.Sign() <= 0 {
		return nil, fmt.Errorf("envelope multiplier %s must be positive: %w", cfg.Multiplier, ErrInvalidConfiguration)
	}
	if cfg.Percent.Sign() <= 0 {
		return nil, fmt.Errorf("envelope percent %s must be positive: %w", cfg.Percent, ErrInvalidConfiguration)
	}
	return &EnvelopeCalculator{cfg: cfg}, nil
}

// Calculate joins bars to PLdot points on timestamp and emits a band for every
// row whose offset is defined.
func (c *EnvelopeCalculator) Calculate(bars []market.Bar, pldot []PLdotPoint) ([]EnvelopePoint, error) {
	barIndex := market.IndexByTimestamp(bars)

	var barOffsets []decimal.Decimal
	var barDefined []bool
	switch c.cfg.Method {
	case EnvelopeHLCRange:
		barOffsets, barDefined = c.hlcOffsets(bars)
	case EnvelopeATR:
		barOffsets, barDefined = c.atrOffsets(bars)
	}

	points := make([]EnvelopePoint, 0, len(pldot))
	centers := make([]decimal.Decimal, 0, len(pldot))
	for _, p := range pldot {
		bi, ok := barIndex[p.Timestamp.UnixNano()]
		if !ok {
			continue
		}
		centers = append(centers, p.Value)

		var offset decimal.Decimal
		switch c.cfg.Method {
		case EnvelopePLdotRange:
			if len(centers) < c.cfg.Period {
				continue
			}
			offset = market.SampleStdDev(centers[len(centers)-c.cfg.Period:]).Mul(c.cfg.Multiplier)
		case EnvelopeHLCRange, EnvelopeATR:
			if !barDefined[bi] {
				continue
			}
			offset = barOffsets[bi]
		case EnvelopePercentage:
			offset = p.Value.Mul(c.cfg.Percent)
		}

		upper := market.Round6(p.Value.Add(offset))
		lower := market.Round6(p.Value.Sub(offset))
		width := upper.Sub(lower)
		position := decimal.RequireFromString("0.5")
		if width.Sign() > 0 {
			position = market.Round6(market.Clamp01(bars[bi].Close.Sub(lower).Div(width)))
		}

		points = append(points, EnvelopePoint{
			Timestamp: p.Timestamp,
			Center:    p.Value,
			Upper:     upper,
			Lower:     lower,
			Width:     width,
			Position:  position,
			Method:    c.cfg.Method,
		})
	}
	return points, nil
}

func (c *EnvelopeCalculator) hlcOffsets(bars []market.Bar) ([]decimal.Decimal, []bool) {
	offsets := make([]decimal.Decimal, len(bars))
	defined := make([]bool, len(bars))
	half := decimal.NewFromInt(2)
	for i := c.cfg.Period - 1; i < len(bars); i++ {
		hi, lo := bars[i].High, bars[i].Low
		for j := i - c.cfg.Period + 1; j < i; j++ {
			hi = decimal.Max(hi, bars[j].High)
			lo = decimal.Min(lo, bars[j].Low)
		}
		offsets[i] = hi.Sub(lo).Div(half).Mul(c.cfg.Multiplier)
		defined[i] = true
	}
	return offsets, defined
}

func (c *EnvelopeCalculator) atrOffsets(bars []market.Bar) ([]decimal.Decimal, []bool) {
	tr := make([]decimal.Decimal, len(bars))
	for i := range bars {
		tr[i] = TrueRange(bars, i)
	}
	offsets := make([]decimal.Decimal, len(bars))
	defined := make([]bool, len(bars))
	for i := range bars {
		start := i - c.cfg.Period + 1
		if start < 0 {
			start = 0
		}
		offsets[i] = market.Mean(tr[start : i+1]).Mul(c.cfg.Multiplier)
		defined[i] = true
	}
	return offsets, defined
}

// TrueRange is max(H-L, |H-prevClose|, |L-prevClose|); the first bar uses H-L
func TrueRange(bars []market.Bar, i int) decimal.Decimal {
	b := bars[i]
	tr := b.Range()
	if i == 0 {
		return tr
	}
	prevClose := bars[i-1].Close
	return decimal.Max(tr, b.High.Sub(prevClose).Abs(), b.Low.Sub(prevClose).Abs())
}

// EnvelopeAt returns the last envelope at or before ts
func EnvelopeAt(points []EnvelopePoint, ts time.Time) (EnvelopePoint, bool) {
	for i := len(points) - 1; i >= 0; i-- {
		if !points[i].Timestamp.After(ts) {
			return points[i], true
		}
	}
	return EnvelopePoint{}, false
}
