package patterns

import (
	"fmt"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/market"
)

type farRun struct {
	start     int
	length    int
	direction int
	peak      decimal.Decimal // largest |close - pldot| / pldot seen in the run
}

// DetectRefresh finds excursions away from PLdot that snap back to it. The
// event direction is opposite to the excursion.
func (pd *PatternDetector) DetectRefresh(bars []market.Bar, pldot []analysis.PLdotPoint) ([]PatternEvent, error) {
	cfg := pd.cfg.Refresh
	rows := joinRows(bars, pldot, nil, false)
	minRows := cfg.MinFarBars + 1
	if cfg.VolatilityLookback > minRows {
		minRows = cfg.VolatilityLookback
	}
	if len(rows) < minRows {
		return nil, fmt.Errorf("refresh needs %d rows, got %d: %w", minRows, len(rows), analysis.ErrInsufficientData)
	}

	values := make([]decimal.Decimal, len(rows))
	for i, r := range rows {
		values[i] = r.pldot.Value
	}

	var events []PatternEvent
	var run farRun
	for i, r := range rows {
		start := i - cfg.VolatilityLookback + 1
		if start < 0 {
			start = 0
		}
		tolerance := r.pldot.Value.Mul(cfg.BaseTolerance).
			Add(cfg.VolatilityMultiplier.Mul(market.SampleStdDev(values[start : i+1])))

		dist := r.bar.Close.Sub(r.pldot.Value)
		if dist.Abs().GreaterThan(tolerance) {
			dir := dist.Sign()
			if run.length == 0 || run.direction != dir {
				run = farRun{start: i, direction: dir}
			}
			run.length++
			if r.pldot.Value.Sign() > 0 {
				if ext := dist.Abs().Div(r.pldot.Value); ext.GreaterThan(run.peak) {
					run.peak = ext
				}
			}
			continue
		}

		if run.length == 0 {
			continue
		}
		if run.length >= cfg.MinFarBars && run.length <= cfg.MaxReturnBars && run.peak.GreaterThanOrEqual(cfg.MinExtension) {
			ev := PatternEvent{
				PatternType:    PLdotRefresh,
				Direction:      -run.direction,
				StartTimestamp: rows[run.start].bar.Timestamp,
				EndTimestamp:   r.bar.Timestamp,
				Strength:       run.length,
			}
			if cfg.Confirm == nil || cfg.Confirm(ev) {
				events = append(events, ev)
			}
		}
		run = farRun{}
	}
	return events, nil
}
