package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/market"
)

func TestDefaultMatchesCalculatorDefaults(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}

	s := cfg.AnalysisConfig.Settings()
	if s.Displacement != 1 || s.ProjectionGap != 1 {
		t.Errorf("Unexpected displacement/gap: %d/%d", s.Displacement, s.ProjectionGap)
	}
	if s.Envelope.Method != analysis.EnvelopePLdotRange || s.Envelope.Period != 3 {
		t.Errorf("Unexpected envelope config: %+v", s.Envelope)
	}
	if !s.Envelope.Multiplier.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("Expected multiplier 1.5, got %s", s.Envelope.Multiplier)
	}
	if !s.Patterns.Refresh.BaseTolerance.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("Expected refresh base tolerance 0.001, got %s", s.Patterns.Refresh.BaseTolerance)
	}
	if !s.SlopeThreshold.Equal(analysis.DefaultSlopeThreshold) {
		t.Errorf("Expected slope threshold %s, got %s", analysis.DefaultSlopeThreshold, s.SlopeThreshold)
	}

	cc := cfg.AnalysisConfig.Coordinator.ToCoordinatorConfig()
	if cc.HTF != market.TF4h || cc.Trading != market.TF1h || cc.LTF != "" {
		t.Errorf("Unexpected timeframes: %+v", cc)
	}
	if !cc.AlignmentThreshold.Equal(decimal.RequireFromString("0.6")) {
		t.Errorf("Expected alignment threshold 0.6, got %s", cc.AlignmentThreshold)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
analysis:
  envelope:
    method: atr
    period: 14
    multiplier: 2
  coordinator:
    htf: 1d
    trading: 4h
    ltf: 1h
    confluence_tolerance_pct: 0.25
    alignment_threshold: 0.7
    bar_limit: 500
scanner:
  enabled: true
  symbols: [BTCUSDT, ETHUSDT]
  worker_count: 2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AnalysisConfig.Envelope.Method != "atr" || cfg.AnalysisConfig.Envelope.Period != 14 {
		t.Errorf("Envelope not loaded: %+v", cfg.AnalysisConfig.Envelope)
	}
	// untouched keys keep defaults
	if cfg.AnalysisConfig.PLdot.Displacement != 1 {
		t.Errorf("Expected default displacement, got %d", cfg.AnalysisConfig.PLdot.Displacement)
	}
	if cfg.AnalysisConfig.Coordinator.LTF != "1h" || cfg.AnalysisConfig.Coordinator.BarLimit != 500 {
		t.Errorf("Coordinator not loaded: %+v", cfg.AnalysisConfig.Coordinator)
	}
	if len(cfg.ScannerConfig.Symbols) != 2 || cfg.ScannerConfig.Schedule != "@every 5m" {
		t.Errorf("Scanner not loaded: %+v", cfg.ScannerConfig)
	}
}

func TestLoadJSONWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"analysis": {"pldot": {"displacement": 2}}, "redis": {"enabled": true, "address": "cache:6379"}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REDIS_ADDRESS", "override:6379")
	t.Setenv("SCANNER_SYMBOLS", "BTCUSDT, SOLUSDT ,")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AnalysisConfig.PLdot.Displacement != 2 {
		t.Errorf("Expected displacement 2, got %d", cfg.AnalysisConfig.PLdot.Displacement)
	}
	if !cfg.RedisConfig.Enabled {
		t.Error("Expected redis enabled from file")
	}
	if cfg.RedisConfig.Address != "override:6379" {
		t.Errorf("Expected env override, got %s", cfg.RedisConfig.Address)
	}
	if len(cfg.ScannerConfig.Symbols) != 2 || cfg.ScannerConfig.Symbols[1] != "SOLUSDT" {
		t.Errorf("Unexpected symbols: %v", cfg.ScannerConfig.Symbols)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got %v", err)
	}
	if cfg.AnalysisConfig.Coordinator.BarLimit != 300 {
		t.Errorf("Expected bar limit 300, got %d", cfg.AnalysisConfig.Coordinator.BarLimit)
	}
}

func TestValidateRejectsBadAnalysisParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero displacement", func(c *Config) { c.AnalysisConfig.PLdot.Displacement = 0 }},
		{"unknown envelope method", func(c *Config) { c.AnalysisConfig.Envelope.Method = "bollinger" }},
		{"alignment above one", func(c *Config) { c.AnalysisConfig.Coordinator.AlignmentThreshold = 1.5 }},
		{"zero bar limit", func(c *Config) { c.AnalysisConfig.Coordinator.BarLimit = 0 }},
		{"missing trading timeframe", func(c *Config) { c.AnalysisConfig.Coordinator.Trading = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, analysis.ErrInvalidConfiguration) {
				t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}
