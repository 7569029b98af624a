package patterns

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/market"
)

type zoneProximity int

const (
	proximityNone zoneProximity = iota
	proximityApproach
	proximityTouch
)

type zoneTracker struct {
	zone          analysis.DrummondZone
	state         zoneProximity
	approachStart time.Time
}

// DetectTermination flags bars reaching strong Drummond zones established at
// or before the bar. A touch supersedes a pending approach; moving beyond
// approach distance re-arms the zone.
func (pd *PatternDetector) DetectTermination(bars []market.Bar, pldot []analysis.PLdotPoint, zones []analysis.DrummondZone) ([]PatternEvent, error) {
	cfg := pd.cfg.Termination
	rows := joinRows(bars, pldot, nil, false)
	if len(rows) < 2 {
		return nil, fmt.Errorf("termination needs 2 rows, got %d: %w", len(rows), analysis.ErrInsufficientData)
	}

	var trackers []*zoneTracker
	for _, z := range zones {
		if z.Strength >= cfg.MinZoneStrength {
			trackers = append(trackers, &zoneTracker{zone: z})
		}
	}
	if len(trackers) == 0 {
		return nil, nil
	}

	var events []PatternEvent
	for i, r := range rows {
		fading := !cfg.RequireMomentumFade || (i > 0 && r.pldot.Slope.Abs().LessThan(rows[i-1].pldot.Slope.Abs()))

		for _, t := range trackers {
			z := t.zone
			// zones first seen after this bar are not yet known
			if z.FirstTimestamp.After(r.bar.Timestamp) {
				continue
			}
			distance := bandDistance(r.bar, z)
			width := z.Width()
			touchDist := decimal.Max(z.CenterPrice.Mul(cfg.TouchPct), width.Mul(cfg.TouchWidthMultiple))
			approachDist := decimal.Max(z.CenterPrice.Mul(cfg.ApproachPct), width.Mul(cfg.ApproachWidthMultiple))

			switch {
			case distance.LessThanOrEqual(touchDist):
				if t.state == proximityTouch || !fading {
					continue
				}
				start := r.bar.Timestamp
				if t.state == proximityApproach {
					start = t.approachStart
				}
				events = append(events, terminationEvent(TerminationTouch, z, start, r.bar.Timestamp))
				t.state = proximityTouch
			case distance.LessThanOrEqual(approachDist):
				if t.state != proximityNone || !fading {
					continue
				}
				events = append(events, terminationEvent(TerminationApproach, z, r.bar.Timestamp, r.bar.Timestamp))
				t.state = proximityApproach
				t.approachStart = r.bar.Timestamp
			default:
				t.state = proximityNone
			}
		}
	}
	return events, nil
}

// bandDistance is the gap between the bar's range and the zone band, zero when they overlap
func bandDistance(b market.Bar, z analysis.DrummondZone) decimal.Decimal {
	switch {
	case b.High.LessThan(z.LowerPrice):
		return z.LowerPrice.Sub(b.High)
	case b.Low.GreaterThan(z.UpperPrice):
		return b.Low.Sub(z.UpperPrice)
	default:
		return decimal.Zero
	}
}

func terminationEvent(pt PatternType, z analysis.DrummondZone, start, end time.Time) PatternEvent {
	dir := 0
	switch z.LineType {
	case analysis.ZoneResistance:
		dir = -1
	case analysis.ZoneSupport:
		dir = 1
	}
	return PatternEvent{
		PatternType:    pt,
		Direction:      dir,
		StartTimestamp: start,
		EndTimestamp:   end,
		Strength:       z.Strength,
	}
}
