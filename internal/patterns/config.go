package patterns

import "github.com/shopspring/decimal"

// PushConfig configures PLdot push detection
type PushConfig struct {
	MinBars int
}

// RefreshConfig configures PLdot refresh detection. Confirm, when set, must
// approve each candidate event before it is emitted.
type RefreshConfig struct {
	BaseTolerance        decimal.Decimal
	VolatilityMultiplier decimal.Decimal
	VolatilityLookback   int
	MinFarBars           int
	MaxReturnBars        int
	MinExtension         decimal.Decimal
	Confirm              func(PatternEvent) bool `json:"-"`
}

// ExhaustConfig configures exhaust detection
type ExhaustConfig struct {
	ExtensionThreshold decimal.Decimal
	MaxRecoveryBars    int
	MinReversionRatio  decimal.Decimal
	RequireSlopeFade   bool
}

// CWaveConfig configures C-wave detection
type CWaveConfig struct {
	UpperThreshold      decimal.Decimal
	LowerThreshold      decimal.Decimal
	MinBars             int
	RequireSlope        bool
	RequireAcceleration bool
	RequireExpansion    bool
	RequireVolume       bool
	VolumeLookback      int
	VolumeFactor        decimal.Decimal
}

// CongestionConfig configures congestion oscillation detection
type CongestionConfig struct {
	MinBars       int
	LowerBound    decimal.Decimal
	UpperBound    decimal.Decimal
	MaxDriftRatio decimal.Decimal
}

// TerminationConfig configures termination approach/touch detection
type TerminationConfig struct {
	MinZoneStrength       int
	ApproachPct           decimal.Decimal
	TouchPct              decimal.Decimal
	ApproachWidthMultiple decimal.Decimal
	TouchWidthMultiple    decimal.Decimal
	RequireMomentumFade   bool
}

// Config bundles all detector settings
type Config struct {
	Push        PushConfig
	Refresh     RefreshConfig
	Exhaust     ExhaustConfig
	CWave       CWaveConfig
	Congestion  CongestionConfig
	Termination TerminationConfig
}

// DefaultConfig returns the standard detector thresholds
func DefaultConfig() Config {
	return Config{
		Push: PushConfig{MinBars: 3},
		Refresh: RefreshConfig{
			BaseTolerance:        decimal.RequireFromString("0.001"),
			VolatilityMultiplier: decimal.RequireFromString("0.5"),
			VolatilityLookback:   5,
			MinFarBars:           2,
			MaxReturnBars:        8,
			MinExtension:         decimal.RequireFromString("0.002"),
		},
		Exhaust: ExhaustConfig{
			ExtensionThreshold: decimal.RequireFromString("0.1"),
			MaxRecoveryBars:    5,
			MinReversionRatio:  decimal.RequireFromString("0.5"),
		},
		CWave: CWaveConfig{
			UpperThreshold: decimal.RequireFromString("0.9"),
			LowerThreshold: decimal.RequireFromString("0.1"),
			MinBars:        3,
			VolumeLookback: 10,
			VolumeFactor:   decimal.RequireFromString("1.2"),
		},
		Congestion: CongestionConfig{
			MinBars:       4,
			LowerBound:    decimal.RequireFromString("0.2"),
			UpperBound:    decimal.RequireFromString("0.8"),
			MaxDriftRatio: decimal.RequireFromString("0.5"),
		},
		Termination: TerminationConfig{
			MinZoneStrength:       2,
			ApproachPct:           decimal.RequireFromString("0.005"),
			TouchPct:              decimal.RequireFromString("0.001"),
			ApproachWidthMultiple: decimal.RequireFromString("1.0"),
			TouchWidthMultiple:    decimal.RequireFromString("0.25"),
		},
	}
}
