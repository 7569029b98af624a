package confluence

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/market"
)

// recentEnvelopes is how many envelopes per timeframe feed the confluence scan
const recentEnvelopes = 20

var (
	centerWeight   = decimal.RequireFromString("0.5")
	minTolerance   = decimal.RequireFromString("0.0001")
	volatilityHalf = decimal.RequireFromString("0.5")
)

// candidate is one price level offered by one timeframe
type candidate struct {
	price      decimal.Decimal
	zoneType   analysis.ZoneType
	timeframe  market.Timeframe
	source     SourceKind
	weight     decimal.Decimal
	tolerance  decimal.Decimal
	volatility decimal.Decimal
	firstTouch time.Time
	lastTouch  time.Time
}

func newCandidate(price decimal.Decimal, zt analysis.ZoneType, td *TimeframeData, source SourceKind,
	baseWeight, componentStrength, volatility, tolerancePct decimal.Decimal, first, last time.Time) candidate {
	tol := decimal.Max(
		price.Mul(tolerancePct).Div(hundred),
		volatility.Mul(volatilityHalf),
		minTolerance,
	)
	return candidate{
		price:      price,
		zoneType:   zt,
		timeframe:  td.Timeframe,
		source:     source,
		weight:     baseWeight.Mul(td.Role.Weight()).Mul(componentStrength),
		tolerance:  tol,
		volatility: volatility,
		firstTouch: first,
		lastTouch:  last,
	}
}

// collectCandidates gathers envelope levels (last 20 at or before ts) and Drummond zones formed by ts
func collectCandidates(bundles []*TimeframeData, ts time.Time, tolerancePct decimal.Decimal) []candidate {
	var out []candidate
	for _, td := range bundles {
		end := len(td.Envelopes)
		for end > 0 && td.Envelopes[end-1].Timestamp.After(ts) {
			end--
		}
		start := end - recentEnvelopes
		if start < 0 {
			start = 0
		}
		for _, e := range td.Envelopes[start:end] {
			out = append(out,
				newCandidate(e.Upper, analysis.ZoneResistance, td, SourceEnvelopeUpper, market.One, market.One, e.Width, tolerancePct, e.Timestamp, e.Timestamp),
				newCandidate(e.Lower, analysis.ZoneSupport, td, SourceEnvelopeLower, market.One, market.One, e.Width, tolerancePct, e.Timestamp, e.Timestamp),
				newCandidate(e.Center, analysis.ZonePivot, td, SourceEnvelopeCenter, centerWeight, market.One, e.Width, tolerancePct, e.Timestamp, e.Timestamp),
			)
		}
		for _, z := range td.Zones {
			if z.FirstTimestamp.After(ts) {
				continue
			}
			out = append(out, newCandidate(z.CenterPrice, z.LineType, td, SourceDrummondZone,
				market.One, decimal.NewFromInt(int64(z.Strength)), z.Width(), tolerancePct, z.FirstTimestamp, z.LastTimestamp))
		}
	}
	return out
}

// clusterCandidates groups same-type levels within tolerance of a seed and keeps
// clusters confirmed by at least two distinct timeframes. Candidates are scanned
// in price order so the inner loop stops once no tolerance can reach further.
func clusterCandidates(cands []candidate) []ConfluenceZone {
	if len(cands) == 0 {
		return nil
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if c := cands[i].price.Cmp(cands[j].price); c != 0 {
			return c < 0
		}
		if cands[i].zoneType != cands[j].zoneType {
			return cands[i].zoneType < cands[j].zoneType
		}
		if cands[i].timeframe != cands[j].timeframe {
			return cands[i].timeframe < cands[j].timeframe
		}
		return cands[i].firstTouch.Before(cands[j].firstTouch)
	})

	maxTol := cands[0].tolerance
	for _, c := range cands[1:] {
		maxTol = decimal.Max(maxTol, c.tolerance)
	}

	used := make([]bool, len(cands))
	var zones []ConfluenceZone
	for i := range cands {
		if used[i] {
			continue
		}
		seed := cands[i]
		used[i] = true
		members := []int{i}
		for j := i + 1; j < len(cands); j++ {
			diff := cands[j].price.Sub(seed.price)
			if diff.GreaterThan(maxTol) {
				break
			}
			if used[j] || cands[j].zoneType != seed.zoneType {
				continue
			}
			if diff.LessThanOrEqual(decimal.Max(seed.tolerance, cands[j].tolerance)) {
				used[j] = true
				members = append(members, j)
			}
		}
		if z, ok := buildConfluenceZone(cands, members); ok {
			zones = append(zones, z)
		}
	}

	sort.SliceStable(zones, func(i, j int) bool {
		if zones[i].Strength != zones[j].Strength {
			return zones[i].Strength > zones[j].Strength
		}
		if c := zones[i].WeightedStrength.Cmp(zones[j].WeightedStrength); c != 0 {
			return c > 0
		}
		return zones[i].Level.LessThan(zones[j].Level)
	})
	return zones
}

func buildConfluenceZone(cands []candidate, members []int) (ConfluenceZone, bool) {
	best := map[market.Timeframe]candidate{}
	for _, m := range members {
		c := cands[m]
		if prev, ok := best[c.timeframe]; !ok || c.weight.GreaterThan(prev.weight) {
			best[c.timeframe] = c
		}
	}
	if len(best) < 2 {
		return ConfluenceZone{}, false
	}

	first := cands[members[0]]
	z := ConfluenceZone{
		LowerBound: first.price,
		UpperBound: first.price,
		Strength:   len(best),
		ZoneType:   first.zoneType,
		FirstTouch: first.firstTouch,
		LastTouch:  first.lastTouch,
		Sources:    make(map[market.Timeframe]SourceKind, len(best)),
	}
	prices := make([]decimal.Decimal, 0, len(members))
	vols := make([]decimal.Decimal, 0, len(members))
	weighted := decimal.Zero
	for _, m := range members {
		c := cands[m]
		prices = append(prices, c.price)
		vols = append(vols, c.volatility)
		weighted = weighted.Add(c.weight)
		z.LowerBound = decimal.Min(z.LowerBound, c.price)
		z.UpperBound = decimal.Max(z.UpperBound, c.price)
		if c.firstTouch.Before(z.FirstTouch) {
			z.FirstTouch = c.firstTouch
		}
		if c.lastTouch.After(z.LastTouch) {
			z.LastTouch = c.lastTouch
		}
	}
	for tf, c := range best {
		z.Timeframes = append(z.Timeframes, tf)
		z.Sources[tf] = c.source
	}
	sort.Slice(z.Timeframes, func(i, j int) bool { return z.Timeframes[i] < z.Timeframes[j] })

	z.Level = market.Round6(market.Mean(prices))
	z.WeightedStrength = market.Round6(weighted)
	z.Volatility = market.Round6(market.Mean(vols))
	return z, true
}

// nearestZones returns the closest support at or below price and resistance at or above it
func nearestZones(zones []ConfluenceZone, price decimal.Decimal) (support, resistance *ConfluenceZone) {
	for i := range zones {
		z := &zones[i]
		switch z.ZoneType {
		case analysis.ZoneSupport:
			if !z.Level.GreaterThan(price) && (support == nil || z.Level.GreaterThan(support.Level)) {
				support = z
			}
		case analysis.ZoneResistance:
			if !z.Level.LessThan(price) && (resistance == nil || z.Level.LessThan(resistance.Level)) {
				resistance = z
			}
		}
	}
	return support, resistance
}
