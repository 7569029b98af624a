package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/market"
)

// ZoneType classifies a price level
type ZoneType string

const (
	ZoneSupport    ZoneType = "support"
	ZoneResistance ZoneType = "resistance"
	ZonePivot      ZoneType = "pivot"
)

// DrummondLine is a two-bar trendline projected forward
type DrummondLine struct {
	StartTimestamp     time.Time       `json:"start_timestamp"`
	StartPrice         decimal.Decimal `json:"start_price"`
	EndTimestamp       time.Time       `json:"end_timestamp"`
	EndPrice           decimal.Decimal `json:"end_price"`
	ProjectedTimestamp time.Time       `json:"projected_timestamp"`
	ProjectedPrice     decimal.Decimal `json:"projected_price"`
	Slope              decimal.Decimal `json:"slope"`
	LineType           ZoneType        `json:"line_type"`
}

// DrummondZone is a cluster of same-type lines with nearby projected prices
type DrummondZone struct {
	CenterPrice    decimal.Decimal `json:"center_price"`
	LowerPrice     decimal.Decimal `json:"lower_price"`
	UpperPrice     decimal.Decimal `json:"upper_price"`
	LineType       ZoneType        `json:"line_type"`
	Strength       int             `json:"strength"`
	FirstTimestamp time.Time       `json:"first_timestamp"`
	LastTimestamp  time.Time       `json:"last_timestamp"`
}

// Width returns upper - lower
func (z DrummondZone) Width() decimal.Decimal {
	return z.UpperPrice.Sub(z.LowerPrice)
}

// DrummondLineProjector builds resistance lines through highs and support lines through lows
type DrummondLineProjector struct {
	projectionGap int
}

// NewDrummondLineProjector creates a projector; the gap must be at least 1
func NewDrummondLineProjector(projectionGap int) (*DrummondLineProjector, error) {
	if projectionGap < 1 {
		return nil, fmt.Errorf("projection gap %d must be >= 1: %w", projectionGap, ErrInvalidConfiguration)
	}
	return &DrummondLineProjector{projectionGap: projectionGap}, nil
}

// Project returns two lines per consecutive bar pair, resistance first
func (p *DrummondLineProjector) Project(bars []market.Bar) ([]DrummondLine, error) {
	n := len(bars)
	if n < 2 {
		return nil, fmt.Errorf("drummond lines need 2 bars, got %d: %w", n, ErrInsufficientData)
	}

	lines := make([]DrummondLine, 0, 2*(n-1))
	for i := 1; i < n; i++ {
		a, b := bars[i-1], bars[i]
		target := i + p.projectionGap
		if target > n-1 {
			target = n - 1
		}
		steps := decimal.NewFromInt(int64(target - i + 1))
		projectedTS := bars[target].Timestamp.Add(b.Timestamp.Sub(a.Timestamp))

		lines = append(lines,
			projectLine(a.Timestamp, a.High, b.Timestamp, b.High, projectedTS, steps, ZoneResistance),
			projectLine(a.Timestamp, a.Low, b.Timestamp, b.Low, projectedTS, steps, ZoneSupport),
		)
	}
	return lines, nil
}

func projectLine(startTS time.Time, start decimal.Decimal, endTS time.Time, end decimal.Decimal, projectedTS time.Time, steps decimal.Decimal, lineType ZoneType) DrummondLine {
	slope := end.Sub(start)
	return DrummondLine{
		StartTimestamp:     startTS,
		StartPrice:         start,
		EndTimestamp:       endTS,
		EndPrice:           end,
		ProjectedTimestamp: projectedTS,
		ProjectedPrice:     market.Round6(end.Add(slope.Mul(steps))),
		Slope:              market.Round6(slope),
		LineType:           lineType,
	}
}

var (
	zoneRangeFactor = decimal.RequireFromString("0.3")
	zoneWidthFactor = decimal.RequireFromString("0.25")
	zoneMinTol      = decimal.RequireFromString("0.05")
)

// ZoneTolerance is max(average bar range * 0.3, latest envelope width * 0.25, 0.05)
func ZoneTolerance(bars []market.Bar, envelopes []EnvelopePoint) decimal.Decimal {
	tol := zoneMinTol
	if len(bars) > 0 {
		ranges := make([]decimal.Decimal, len(bars))
		for i, b := range bars {
			ranges[i] = b.Range()
		}
		tol = decimal.Max(tol, market.Mean(ranges).Mul(zoneRangeFactor))
	}
	if len(envelopes) > 0 {
		tol = decimal.Max(tol, envelopes[len(envelopes)-1].Width.Mul(zoneWidthFactor))
	}
	return tol
}

// AggregateZones merges adjacent same-type lines whose projected prices are
// within tolerance. The result does not depend on the input order.
func AggregateZones(lines []DrummondLine, tolerance decimal.Decimal) []DrummondZone {
	sorted := make([]DrummondLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool {
		return lineLess(sorted[i], sorted[j])
	})

	var zones []DrummondZone
	for _, lineType := range []ZoneType{ZoneResistance, ZoneSupport} {
		var cluster []DrummondLine
		for _, l := range sorted {
			if l.LineType != lineType {
				continue
			}
			if len(cluster) > 0 && l.ProjectedPrice.Sub(cluster[len(cluster)-1].ProjectedPrice).GreaterThan(tolerance) {
				zones = append(zones, buildZone(cluster))
				cluster = nil
			}
			cluster = append(cluster, l)
		}
		if len(cluster) > 0 {
			zones = append(zones, buildZone(cluster))
		}
	}

	sort.SliceStable(zones, func(i, j int) bool {
		if c := zones[i].CenterPrice.Cmp(zones[j].CenterPrice); c != 0 {
			return c < 0
		}
		return zones[i].LineType < zones[j].LineType
	})
	return zones
}

func lineLess(a, b DrummondLine) bool {
	if c := a.ProjectedPrice.Cmp(b.ProjectedPrice); c != 0 {
		return c < 0
	}
	if a.LineType != b.LineType {
		return a.LineType < b.LineType
	}
	if !a.StartTimestamp.Equal(b.StartTimestamp) {
		return a.StartTimestamp.Before(b.StartTimestamp)
	}
	if !a.EndTimestamp.Equal(b.EndTimestamp) {
		return a.EndTimestamp.Before(b.EndTimestamp)
	}
	if c := a.StartPrice.Cmp(b.StartPrice); c != 0 {
		return c < 0
	}
	return a.EndPrice.LessThan(b.EndPrice)
}

func buildZone(cluster []DrummondLine) DrummondZone {
	lo, hi := cluster[0].ProjectedPrice, cluster[len(cluster)-1].ProjectedPrice
	first, last := cluster[0].StartTimestamp, cluster[0].EndTimestamp
	for _, l := range cluster[1:] {
		if l.StartTimestamp.Before(first) {
			first = l.StartTimestamp
		}
		if l.EndTimestamp.After(last) {
			last = l.EndTimestamp
		}
	}
	return DrummondZone{
		CenterPrice:    market.Round6(lo.Add(hi).Div(decimal.NewFromInt(2))),
		LowerPrice:     lo,
		UpperPrice:     hi,
		LineType:       cluster[0].LineType,
		Strength:       len(cluster),
		FirstTimestamp: first,
		LastTimestamp:  last,
	}
}
