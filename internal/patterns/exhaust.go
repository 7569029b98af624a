package patterns

import (
	"fmt"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/market"
)

type extensionRun struct {
	start     int
	direction int
	peakClose decimal.Decimal
	peakSlope decimal.Decimal
}

// DetectExhaust finds closes stretched beyond the envelope that revert back
// inside the band within MaxRecoveryBars. The event points against the stretch.
func (pd *PatternDetector) DetectExhaust(bars []market.Bar, pldot []analysis.PLdotPoint, envelopes []analysis.EnvelopePoint) ([]PatternEvent, error) {
	cfg := pd.cfg.Exhaust
	rows := joinRows(bars, pldot, envelopes, true)
	if len(rows) < 2 {
		return nil, fmt.Errorf("exhaust needs 2 rows, got %d: %w", len(rows), analysis.ErrInsufficientData)
	}

	var events []PatternEvent
	var run *extensionRun
	for i, r := range rows {
		env := r.envelope
		close := r.bar.Close
		margin := env.Width.Mul(cfg.ExtensionThreshold)

		extended := 0
		switch {
		case close.GreaterThanOrEqual(env.Upper.Add(margin)):
			extended = 1
		case close.LessThanOrEqual(env.Lower.Sub(margin)):
			extended = -1
		}

		if extended != 0 {
			if run == nil || run.direction != extended {
				run = &extensionRun{start: i, direction: extended, peakClose: close, peakSlope: r.pldot.Slope}
				continue
			}
			if (extended > 0 && close.GreaterThan(run.peakClose)) || (extended < 0 && close.LessThan(run.peakClose)) {
				run.peakClose = close
				run.peakSlope = r.pldot.Slope
			}
			continue
		}

		if run == nil {
			continue
		}
		inside := !close.GreaterThan(env.Upper) && !close.LessThan(env.Lower)
		if !inside {
			if (run.direction > 0 && close.LessThan(env.Lower)) || (run.direction < 0 && close.GreaterThan(env.Upper)) {
				run = nil
			}
			continue
		}

		held := i - run.start
		if held <= cfg.MaxRecoveryBars && pd.reverted(run, close, env.Center) &&
			(!cfg.RequireSlopeFade || r.pldot.Slope.Abs().LessThan(run.peakSlope.Abs())) {
			events = append(events, PatternEvent{
				PatternType:    Exhaust,
				Direction:      -run.direction,
				StartTimestamp: rows[run.start].bar.Timestamp,
				EndTimestamp:   r.bar.Timestamp,
				Strength:       held,
			})
		}
		run = nil
	}
	return events, nil
}

// reverted checks |peak - close| / |peak - center| against MinReversionRatio
func (pd *PatternDetector) reverted(run *extensionRun, close, center decimal.Decimal) bool {
	span := run.peakClose.Sub(center).Abs()
	if span.IsZero() {
		return false
	}
	ratio := run.peakClose.Sub(close).Abs().Div(span)
	return ratio.GreaterThanOrEqual(pd.cfg.Exhaust.MinReversionRatio)
}
