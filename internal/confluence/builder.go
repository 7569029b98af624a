package confluence

import (
	"fmt"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/logging"
	"drummond-geometry/internal/market"
	"drummond-geometry/internal/patterns"
)

// Settings configures every per-timeframe calculator
type Settings struct {
	Displacement   int
	Envelope       analysis.EnvelopeConfig
	SlopeThreshold decimal.Decimal
	ProjectionGap  int
	Patterns       patterns.Config
}

// DefaultSettings returns the standard calculator parameters
func DefaultSettings() Settings {
	return Settings{
		Displacement:   1,
		Envelope:       analysis.DefaultEnvelopeConfig(),
		SlopeThreshold: analysis.DefaultSlopeThreshold,
		ProjectionGap:  1,
		Patterns:       patterns.DefaultConfig(),
	}
}

// Builder assembles TimeframeData bundles. It holds no per-call state and is
// safe for concurrent use.
type Builder struct {
	pldot      *analysis.PLdotCalculator
	envelope   *analysis.EnvelopeCalculator
	classifier *analysis.MarketStateClassifier
	projector  *analysis.DrummondLineProjector
	detector   *patterns.PatternDetector
}

// NewBuilder validates settings and creates the calculators
func NewBuilder(s Settings) (*Builder, error) {
	pldot, err := analysis.NewPLdotCalculator(s.Displacement)
	if err != nil {
		return nil, err
	}
	envelope, err := analysis.NewEnvelopeCalculator(s.Envelope)
	if err != nil {
		return nil, err
	}
	projector, err := analysis.NewDrummondLineProjector(s.ProjectionGap)
	if err != nil {
		return nil, err
	}
	return &Builder{
		pldot:      pldot,
		envelope:   envelope,
		classifier: analysis.NewMarketStateClassifier(s.SlopeThreshold),
		projector:  projector,
		detector:   patterns.NewPatternDetector(s.Patterns),
	}, nil
}

// Build runs PLdot, envelopes, states, lines/zones and patterns over bars
func (b *Builder) Build(symbol string, tf market.Timeframe, role market.Role, bars []market.Bar) (*TimeframeData, error) {
	pldot, err := b.pldot.Calculate(bars)
	if err != nil {
		return nil, fmt.Errorf("%s %s pldot: %w", symbol, tf, err)
	}
	envelopes, err := b.envelope.Calculate(bars, pldot)
	if err != nil {
		return nil, fmt.Errorf("%s %s envelope: %w", symbol, tf, err)
	}
	states := b.classifier.Classify(bars, pldot)

	lines, err := b.projector.Project(bars)
	if err != nil {
		return nil, fmt.Errorf("%s %s drummond lines: %w", symbol, tf, err)
	}
	zones := analysis.AggregateZones(lines, analysis.ZoneTolerance(bars, envelopes))

	events, err := b.detector.DetectAll(patterns.Inputs{
		Bars:      bars,
		PLdot:     pldot,
		Envelopes: envelopes,
		Zones:     zones,
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s patterns: %w", symbol, tf, err)
	}
	logging.AnalysisContext(symbol, string(tf)).Debug("Timeframe built",
		"role", string(role), "bars", len(bars), "zones", len(zones), "patterns", len(events))

	return &TimeframeData{
		Symbol:    symbol,
		Timeframe: tf,
		Role:      role,
		Bars:      bars,
		PLdot:     pldot,
		Envelopes: envelopes,
		States:    states,
		Patterns:  events,
		Lines:     lines,
		Zones:     zones,
	}, nil
}
