package patterns

import (
	"fmt"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/market"
)

// DetectCongestion finds runs oscillating in the middle of the envelope without drifting
func (pd *PatternDetector) DetectCongestion(bars []market.Bar, pldot []analysis.PLdotPoint, envelopes []analysis.EnvelopePoint) ([]PatternEvent, error) {
	cfg := pd.cfg.Congestion
	rows := joinRows(bars, pldot, envelopes, true)
	if len(rows) < cfg.MinBars {
		return nil, fmt.Errorf("congestion needs %d rows, got %d: %w", cfg.MinBars, len(rows), analysis.ErrInsufficientData)
	}

	var events []PatternEvent
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start+1 >= cfg.MinBars && pd.oscillates(rows[start:end+1]) {
			events = append(events, PatternEvent{
				PatternType:    CongestionOscillation,
				Direction:      0,
				StartTimestamp: rows[start].bar.Timestamp,
				EndTimestamp:   rows[end].bar.Timestamp,
				Strength:       end - start + 1,
			})
		}
		start = -1
	}

	for i, r := range rows {
		pos := r.envelope.Position
		if pos.GreaterThanOrEqual(cfg.LowerBound) && pos.LessThanOrEqual(cfg.UpperBound) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i - 1)
	}
	flush(len(rows) - 1)
	return events, nil
}

// oscillates requires at least one turn in position movement and limited center drift
func (pd *PatternDetector) oscillates(run []row) bool {
	turns := 0
	lastMove := 0
	widths := make([]decimal.Decimal, len(run))
	for i, r := range run {
		widths[i] = r.envelope.Width
		if i == 0 {
			continue
		}
		move := r.envelope.Position.Cmp(run[i-1].envelope.Position)
		if move == 0 {
			continue
		}
		if lastMove != 0 && move != lastMove {
			turns++
		}
		lastMove = move
	}
	if turns == 0 {
		return false
	}

	drift := run[len(run)-1].envelope.Center.Sub(run[0].envelope.Center).Abs()
	return !drift.GreaterThan(market.Mean(widths).Mul(pd.cfg.Congestion.MaxDriftRatio))
}
