package patterns

import (
	"fmt"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/market"
)

// DetectCWave finds runs pinned to the edge of the envelope
func (pd *PatternDetector) DetectCWave(bars []market.Bar, pldot []analysis.PLdotPoint, envelopes []analysis.EnvelopePoint) ([]PatternEvent, error) {
	cfg := pd.cfg.CWave
	rows := joinRows(bars, pldot, envelopes, true)
	if len(rows) < cfg.MinBars {
		return nil, fmt.Errorf("c-wave needs %d rows, got %d: %w", cfg.MinBars, len(rows), analysis.ErrInsufficientData)
	}

	var events []PatternEvent
	var s streak
	flush := func(end int) {
		if s.length >= cfg.MinBars && pd.cwaveConfirmed(rows, s.start, end, s.direction) {
			events = append(events, PatternEvent{
				PatternType:    CWave,
				Direction:      s.direction,
				StartTimestamp: rows[s.start].bar.Timestamp,
				EndTimestamp:   rows[end].bar.Timestamp,
				Strength:       s.length,
			})
		}
		s.reset()
	}

	for i, r := range rows {
		dir := 0
		switch {
		case r.envelope.Position.GreaterThanOrEqual(cfg.UpperThreshold):
			dir = 1
		case r.envelope.Position.LessThanOrEqual(cfg.LowerThreshold):
			dir = -1
		}
		if s.active() && s.direction != dir {
			flush(i - 1)
		}
		if dir == 0 {
			continue
		}
		if !s.active() {
			s = streak{start: i, direction: dir}
		}
		s.length++
	}
	if s.active() {
		flush(len(rows) - 1)
	}
	return events, nil
}

func (pd *PatternDetector) cwaveConfirmed(rows []row, start, end, dir int) bool {
	cfg := pd.cfg.CWave
	first, last := rows[start], rows[end]

	if cfg.RequireSlope {
		for _, r := range rows[start : end+1] {
			if r.pldot.Slope.Sign() != dir {
				return false
			}
		}
	}
	if cfg.RequireAcceleration && !last.pldot.Slope.Abs().GreaterThan(first.pldot.Slope.Abs()) {
		return false
	}
	if cfg.RequireExpansion && !last.envelope.Width.GreaterThan(first.envelope.Width) {
		return false
	}
	if cfg.RequireVolume {
		from := start - cfg.VolumeLookback
		if from < 0 {
			from = 0
		}
		if from == start {
			return false
		}
		baseline := meanVolume(rows[from:start])
		if meanVolume(rows[start:end+1]).LessThan(baseline.Mul(cfg.VolumeFactor)) {
			return false
		}
	}
	return true
}

func meanVolume(rows []row) decimal.Decimal {
	vols := make([]decimal.Decimal, len(rows))
	for i, r := range rows {
		vols[i] = decimal.NewFromInt(r.bar.Volume)
	}
	return market.Mean(vols)
}
