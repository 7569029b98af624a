package patterns

import (
	"errors"
	"fmt"
	"sort"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/logging"
	"drummond-geometry/internal/market"
)

// PatternDetector runs the Drummond pattern scans over one timeframe
type PatternDetector struct {
	cfg Config
}

// NewPatternDetector creates a detector. Non-positive bar counts fall back to defaults.
func NewPatternDetector(cfg Config) *PatternDetector {
	def := DefaultConfig()
	if cfg.Push.MinBars <= 0 {
		cfg.Push.MinBars = def.Push.MinBars
	}
	if cfg.Refresh.VolatilityLookback <= 0 {
		cfg.Refresh.VolatilityLookback = def.Refresh.VolatilityLookback
	}
	if cfg.Refresh.MinFarBars <= 0 {
		cfg.Refresh.MinFarBars = def.Refresh.MinFarBars
	}
	if cfg.Refresh.MaxReturnBars <= 0 {
		cfg.Refresh.MaxReturnBars = def.Refresh.MaxReturnBars
	}
	if cfg.Exhaust.MaxRecoveryBars <= 0 {
		cfg.Exhaust.MaxRecoveryBars = def.Exhaust.MaxRecoveryBars
	}
	if cfg.CWave.MinBars <= 0 {
		cfg.CWave.MinBars = def.CWave.MinBars
	}
	if cfg.CWave.VolumeLookback <= 0 {
		cfg.CWave.VolumeLookback = def.CWave.VolumeLookback
	}
	if cfg.Congestion.MinBars <= 0 {
		cfg.Congestion.MinBars = def.Congestion.MinBars
	}
	if cfg.Termination.MinZoneStrength <= 0 {
		cfg.Termination.MinZoneStrength = def.Termination.MinZoneStrength
	}
	return &PatternDetector{cfg: cfg}
}

// Inputs is everything the detectors read for one timeframe
type Inputs struct {
	Bars      []market.Bar
	PLdot     []analysis.PLdotPoint
	Envelopes []analysis.EnvelopePoint
	Zones     []analysis.DrummondZone
}

// DetectAll runs every detector. A detector without enough rows contributes no
// events; any other error is returned. Events are ordered by end then start time.
func (pd *PatternDetector) DetectAll(in Inputs) ([]PatternEvent, error) {
	type detectFunc func() ([]PatternEvent, error)
	detectors := []struct {
		name string
		run  detectFunc
	}{
		{"push", func() ([]PatternEvent, error) { return pd.DetectPush(in.Bars, in.PLdot) }},
		{"refresh", func() ([]PatternEvent, error) { return pd.DetectRefresh(in.Bars, in.PLdot) }},
		{"exhaust", func() ([]PatternEvent, error) { return pd.DetectExhaust(in.Bars, in.PLdot, in.Envelopes) }},
		{"c-wave", func() ([]PatternEvent, error) { return pd.DetectCWave(in.Bars, in.PLdot, in.Envelopes) }},
		{"congestion", func() ([]PatternEvent, error) { return pd.DetectCongestion(in.Bars, in.PLdot, in.Envelopes) }},
		{"termination", func() ([]PatternEvent, error) { return pd.DetectTermination(in.Bars, in.PLdot, in.Zones) }},
	}

	var all []PatternEvent
	for _, d := range detectors {
		events, err := d.run()
		if errors.Is(err, analysis.ErrInsufficientData) {
			if len(in.Bars) > 0 {
				logging.PatternContext(in.Bars[0].Symbol, string(in.Bars[0].Interval), d.name).
					Debug("Detector skipped", "bars", len(in.Bars), "error", err)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s detector: %w", d.name, err)
		}
		all = append(all, events...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if !a.EndTimestamp.Equal(b.EndTimestamp) {
			return a.EndTimestamp.Before(b.EndTimestamp)
		}
		if !a.StartTimestamp.Equal(b.StartTimestamp) {
			return a.StartTimestamp.Before(b.StartTimestamp)
		}
		return a.PatternType < b.PatternType
	})
	return all, nil
}
