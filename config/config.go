package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/confluence"
	"drummond-geometry/internal/market"
	"drummond-geometry/internal/patterns"
)

type Config struct {
	AnalysisConfig AnalysisConfig `json:"analysis" yaml:"analysis"`
	ScannerConfig  ScannerConfig  `json:"scanner" yaml:"scanner"`
	LoggingConfig  LoggingConfig  `json:"logging" yaml:"logging"`
	DatabaseConfig DatabaseConfig `json:"database" yaml:"database"`
	RedisConfig    RedisConfig    `json:"redis" yaml:"redis"`
	ServerConfig   ServerConfig   `json:"server" yaml:"server"`
	AuthConfig     AuthConfig     `json:"auth" yaml:"auth"`
	VaultConfig    VaultConfig    `json:"vault" yaml:"vault"`
}

// AnalysisConfig holds every calculator parameter. Values are plain floats in
// config files and converted to decimals at the boundary.
type AnalysisConfig struct {
	PLdot       PLdotConfig       `json:"pldot" yaml:"pldot"`
	Envelope    EnvelopeConfig    `json:"envelope" yaml:"envelope"`
	State       StateConfig       `json:"state" yaml:"state"`
	Patterns    PatternsConfig    `json:"patterns" yaml:"patterns"`
	Lines       LinesConfig       `json:"lines" yaml:"lines"`
	Coordinator CoordinatorConfig `json:"coordinator" yaml:"coordinator"`
}

type PLdotConfig struct {
	Displacement int `json:"displacement" yaml:"displacement"`
}

type EnvelopeConfig struct {
	Method     string  `json:"method" yaml:"method"` // pldot_range, hlc_range, atr, percentage
	Period     int     `json:"period" yaml:"period"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
	Percent    float64 `json:"percent" yaml:"percent"`
}

type StateConfig struct {
	SlopeThreshold float64 `json:"slope_threshold" yaml:"slope_threshold"`
}

type LinesConfig struct {
	ProjectionGap int `json:"projection_gap" yaml:"projection_gap"`
}

type CoordinatorConfig struct {
	HTF                    string  `json:"htf" yaml:"htf"`
	Trading                string  `json:"trading" yaml:"trading"`
	LTF                    string  `json:"ltf" yaml:"ltf"` // optional
	ConfluenceTolerancePct float64 `json:"confluence_tolerance_pct" yaml:"confluence_tolerance_pct"`
	AlignmentThreshold     float64 `json:"alignment_threshold" yaml:"alignment_threshold"`
	BarLimit               int     `json:"bar_limit" yaml:"bar_limit"` // bars loaded per timeframe
}

type PatternsConfig struct {
	Push        PushConfig        `json:"push" yaml:"push"`
	Refresh     RefreshConfig     `json:"refresh" yaml:"refresh"`
	Exhaust     ExhaustConfig     `json:"exhaust" yaml:"exhaust"`
	CWave       CWaveConfig       `json:"cwave" yaml:"cwave"`
	Congestion  CongestionConfig  `json:"congestion" yaml:"congestion"`
	Termination TerminationConfig `json:"termination" yaml:"termination"`
}

type PushConfig struct {
	MinBars int `json:"min_bars" yaml:"min_bars"`
}

type RefreshConfig struct {
	BaseTolerance        float64 `json:"base_tolerance" yaml:"base_tolerance"`
	VolatilityMultiplier float64 `json:"volatility_multiplier" yaml:"volatility_multiplier"`
	VolatilityLookback   int     `json:"volatility_lookback" yaml:"volatility_lookback"`
	MinFarBars           int     `json:"min_far_bars" yaml:"min_far_bars"`
	MaxReturnBars        int     `json:"max_return_bars" yaml:"max_return_bars"`
	MinExtension         float64 `json:"min_extension" yaml:"min_extension"`
}

type ExhaustConfig struct {
	ExtensionThreshold float64 `json:"extension_threshold" yaml:"extension_threshold"`
	MaxRecoveryBars    int     `json:"max_recovery_bars" yaml:"max_recovery_bars"`
	MinReversionRatio  float64 `json:"min_reversion_ratio" yaml:"min_reversion_ratio"`
	RequireSlopeFade   bool    `json:"require_slope_fade" yaml:"require_slope_fade"`
}

type CWaveConfig struct {
	Upper               float64 `json:"upper" yaml:"upper"`
	Lower               float64 `json:"lower" yaml:"lower"`
	MinBars             int     `json:"min_bars" yaml:"min_bars"`
	RequireSlope        bool    `json:"require_slope" yaml:"require_slope"`
	RequireAcceleration bool    `json:"require_acceleration" yaml:"require_acceleration"`
	RequireExpansion    bool    `json:"require_expansion" yaml:"require_expansion"`
	RequireVolume       bool    `json:"require_volume" yaml:"require_volume"`
	VolumeLookback      int     `json:"volume_lookback" yaml:"volume_lookback"`
	VolumeFactor        float64 `json:"volume_factor" yaml:"volume_factor"`
}

type CongestionConfig struct {
	MinBars       int     `json:"min_bars" yaml:"min_bars"`
	Lower         float64 `json:"lower" yaml:"lower"`
	Upper         float64 `json:"upper" yaml:"upper"`
	MaxDriftRatio float64 `json:"max_drift_ratio" yaml:"max_drift_ratio"`
}

type TerminationConfig struct {
	MinZoneStrength       int     `json:"min_zone_strength" yaml:"min_zone_strength"`
	ApproachPct           float64 `json:"approach_pct" yaml:"approach_pct"`
	TouchPct              float64 `json:"touch_pct" yaml:"touch_pct"`
	ApproachWidthMultiple float64 `json:"approach_width_multiple" yaml:"approach_width_multiple"`
	TouchWidthMultiple    float64 `json:"touch_width_multiple" yaml:"touch_width_multiple"`
	RequireMomentumFade   bool    `json:"require_momentum_fade" yaml:"require_momentum_fade"`
}

// ScannerConfig holds the periodic watchlist scan configuration
type ScannerConfig struct {
	Enabled     bool     `json:"enabled" yaml:"enabled"`
	Symbols     []string `json:"symbols" yaml:"symbols"`
	WorkerCount int      `json:"worker_count" yaml:"worker_count"`
	Schedule    string   `json:"schedule" yaml:"schedule"` // cron spec, e.g. "@every 5m"
}

type LoggingConfig struct {
	Level       string `json:"level" yaml:"level"`               // DEBUG, INFO, WARN, ERROR
	Output      string `json:"output" yaml:"output"`             // stdout, stderr, or file path
	JSONFormat  bool   `json:"json_format" yaml:"json_format"`   // Output as JSON
	IncludeFile bool   `json:"include_file" yaml:"include_file"` // Include file and line number
	MaxSizeMB   int    `json:"max_size_mb" yaml:"max_size_mb"`   // rotation, file output only
	MaxBackups  int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays  int    `json:"max_age_days" yaml:"max_age_days"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode"`
}

// RedisConfig holds Redis configuration for the analysis cache
type RedisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Address  string `json:"address" yaml:"address"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	PoolSize int    `json:"pool_size" yaml:"pool_size"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port" yaml:"port"`
	Host            string `json:"host" yaml:"host"`
	AllowedOrigins  string `json:"allowed_origins" yaml:"allowed_origins"` // CORS allowed origins
	ReadTimeout     int    `json:"read_timeout" yaml:"read_timeout"`       // Seconds
	WriteTimeout    int    `json:"write_timeout" yaml:"write_timeout"`     // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// AuthConfig holds API bearer token configuration
type AuthConfig struct {
	Enabled             bool          `json:"enabled" yaml:"enabled"`
	JWTSecret           string        `json:"jwt_secret" yaml:"jwt_secret"`
	Issuer              string        `json:"issuer" yaml:"issuer"`
	AccessTokenDuration time.Duration `json:"access_token_duration" yaml:"access_token_duration"`
}

// VaultConfig holds HashiCorp Vault configuration
type VaultConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Address    string `json:"address" yaml:"address"`
	Token      string `json:"token" yaml:"token"`
	MountPath  string `json:"mount_path" yaml:"mount_path"`   // KV v2 mount
	SecretPath string `json:"secret_path" yaml:"secret_path"` // path holding service secrets
}

// Default returns a configuration with every documented default filled in
func Default() *Config {
	return &Config{
		AnalysisConfig: AnalysisConfig{
			PLdot:    PLdotConfig{Displacement: 1},
			Envelope: EnvelopeConfig{Method: string(analysis.EnvelopePLdotRange), Period: 3, Multiplier: 1.5, Percent: 0.001},
			State:    StateConfig{SlopeThreshold: 0.0001},
			Patterns: PatternsConfig{
				Push: PushConfig{MinBars: 3},
				Refresh: RefreshConfig{
					BaseTolerance:        0.001,
					VolatilityMultiplier: 0.5,
					VolatilityLookback:   5,
					MinFarBars:           2,
					MaxReturnBars:        8,
					MinExtension:         0.002,
				},
				Exhaust: ExhaustConfig{ExtensionThreshold: 0.1, MaxRecoveryBars: 5, MinReversionRatio: 0.5},
				CWave:   CWaveConfig{Upper: 0.9, Lower: 0.1, MinBars: 3, VolumeLookback: 10, VolumeFactor: 1.2},
				Congestion: CongestionConfig{
					MinBars:       4,
					Lower:         0.2,
					Upper:         0.8,
					MaxDriftRatio: 0.5,
				},
				Termination: TerminationConfig{
					MinZoneStrength:       2,
					ApproachPct:           0.005,
					TouchPct:              0.001,
					ApproachWidthMultiple: 1.0,
					TouchWidthMultiple:    0.25,
				},
			},
			Lines: LinesConfig{ProjectionGap: 1},
			Coordinator: CoordinatorConfig{
				HTF:                    string(market.TF4h),
				Trading:                string(market.TF1h),
				ConfluenceTolerancePct: 0.5,
				AlignmentThreshold:     0.6,
				BarLimit:               300,
			},
		},
		ScannerConfig: ScannerConfig{WorkerCount: 4, Schedule: "@every 5m"},
		LoggingConfig: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		DatabaseConfig: DatabaseConfig{Host: "localhost", Port: 5432, User: "drummond", Database: "drummond", SSLMode: "disable"},
		RedisConfig:    RedisConfig{Address: "localhost:6379", PoolSize: 10},
		ServerConfig: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
		},
		AuthConfig:  AuthConfig{Issuer: "drummond-geometry", AccessTokenDuration: 15 * time.Minute},
		VaultConfig: VaultConfig{Address: "http://localhost:8200", MountPath: "secret", SecretPath: "drummond-geometry"},
	}
}

// Load reads path (JSON, or YAML for .yaml/.yml) over the defaults, applies
// environment overrides and validates the result. An empty path or a missing
// file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Environment variables take precedence over the file
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(filename string, cfg *Config) error {
	file, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(file, cfg)
	default:
		err = json.Unmarshal(file, cfg)
	}
	if err != nil {
		return fmt.Errorf("error parsing config file %s: %w", filename, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Unset variables keep the current value.
func applyEnvOverrides(cfg *Config) {
	// Coordinator
	coord := &cfg.AnalysisConfig.Coordinator
	coord.HTF = getEnvOrDefault("ANALYSIS_HTF", coord.HTF)
	coord.Trading = getEnvOrDefault("ANALYSIS_TRADING", coord.Trading)
	coord.LTF = getEnvOrDefault("ANALYSIS_LTF", coord.LTF)
	coord.BarLimit = getEnvIntOrDefault("ANALYSIS_BAR_LIMIT", coord.BarLimit)
	coord.ConfluenceTolerancePct = getEnvFloatOrDefault("ANALYSIS_CONFLUENCE_TOLERANCE_PCT", coord.ConfluenceTolerancePct)
	coord.AlignmentThreshold = getEnvFloatOrDefault("ANALYSIS_ALIGNMENT_THRESHOLD", coord.AlignmentThreshold)
	cfg.AnalysisConfig.Envelope.Method = getEnvOrDefault("ANALYSIS_ENVELOPE_METHOD", cfg.AnalysisConfig.Envelope.Method)

	// Scanner config
	cfg.ScannerConfig.Enabled = getEnvBoolOrDefault("SCANNER_ENABLED", cfg.ScannerConfig.Enabled)
	if symbols := os.Getenv("SCANNER_SYMBOLS"); symbols != "" {
		cfg.ScannerConfig.Symbols = splitList(symbols)
	}
	cfg.ScannerConfig.WorkerCount = getEnvIntOrDefault("SCANNER_WORKERS", cfg.ScannerConfig.WorkerCount)
	cfg.ScannerConfig.Schedule = getEnvOrDefault("SCANNER_SCHEDULE", cfg.ScannerConfig.Schedule)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	cfg.LoggingConfig.JSONFormat = getEnvBoolOrDefault("LOG_JSON", cfg.LoggingConfig.JSONFormat)
	cfg.LoggingConfig.IncludeFile = getEnvBoolOrDefault("LOG_INCLUDE_FILE", cfg.LoggingConfig.IncludeFile)

	// Database config
	cfg.DatabaseConfig.Enabled = getEnvBoolOrDefault("DB_ENABLED", cfg.DatabaseConfig.Enabled)
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.DatabaseConfig.SSLMode)

	// Redis config
	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", cfg.RedisConfig.PoolSize)

	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.ServerConfig.AllowedOrigins)
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", cfg.ServerConfig.ReadTimeout)
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", cfg.ServerConfig.WriteTimeout)
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", cfg.ServerConfig.ShutdownTimeout)

	// Auth config
	cfg.AuthConfig.Enabled = getEnvBoolOrDefault("AUTH_ENABLED", cfg.AuthConfig.Enabled)
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", cfg.AuthConfig.AccessTokenDuration)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvBoolOrDefault("VAULT_ENABLED", cfg.VaultConfig.Enabled)
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", cfg.VaultConfig.MountPath)
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", cfg.VaultConfig.SecretPath)
}

// Validate fails fast on analysis parameters the calculators would reject
func (c *Config) Validate() error {
	if _, err := confluence.NewBuilder(c.AnalysisConfig.Settings()); err != nil {
		return err
	}
	if _, err := confluence.NewCoordinator(c.AnalysisConfig.Coordinator.ToCoordinatorConfig()); err != nil {
		return err
	}
	if c.AnalysisConfig.Coordinator.BarLimit <= 0 {
		return fmt.Errorf("%w: bar_limit must be positive", analysis.ErrInvalidConfiguration)
	}
	if c.ScannerConfig.Enabled && c.ScannerConfig.WorkerCount <= 0 {
		return fmt.Errorf("%w: scanner worker_count must be positive", analysis.ErrInvalidConfiguration)
	}
	return nil
}

// Settings converts the analysis section to typed calculator settings
func (a AnalysisConfig) Settings() confluence.Settings {
	p := a.Patterns
	return confluence.Settings{
		Displacement: a.PLdot.Displacement,
		Envelope: analysis.EnvelopeConfig{
			Method:     analysis.EnvelopeMethod(a.Envelope.Method),
			Period:     a.Envelope.Period,
			Multiplier: dec(a.Envelope.Multiplier),
			Percent:    dec(a.Envelope.Percent),
		},
		SlopeThreshold: dec(a.State.SlopeThreshold),
		ProjectionGap:  a.Lines.ProjectionGap,
		Patterns: patterns.Config{
			Push: patterns.PushConfig{MinBars: p.Push.MinBars},
			Refresh: patterns.RefreshConfig{
				BaseTolerance:        dec(p.Refresh.BaseTolerance),
				VolatilityMultiplier: dec(p.Refresh.VolatilityMultiplier),
				VolatilityLookback:   p.Refresh.VolatilityLookback,
				MinFarBars:           p.Refresh.MinFarBars,
				MaxReturnBars:        p.Refresh.MaxReturnBars,
				MinExtension:         dec(p.Refresh.MinExtension),
			},
			Exhaust: patterns.ExhaustConfig{
				ExtensionThreshold: dec(p.Exhaust.ExtensionThreshold),
				MaxRecoveryBars:    p.Exhaust.MaxRecoveryBars,
				MinReversionRatio:  dec(p.Exhaust.MinReversionRatio),
				RequireSlopeFade:   p.Exhaust.RequireSlopeFade,
			},
			CWave: patterns.CWaveConfig{
				UpperThreshold:      dec(p.CWave.Upper),
				LowerThreshold:      dec(p.CWave.Lower),
				MinBars:             p.CWave.MinBars,
				RequireSlope:        p.CWave.RequireSlope,
				RequireAcceleration: p.CWave.RequireAcceleration,
				RequireExpansion:    p.CWave.RequireExpansion,
				RequireVolume:       p.CWave.RequireVolume,
				VolumeLookback:      p.CWave.VolumeLookback,
				VolumeFactor:        dec(p.CWave.VolumeFactor),
			},
			Congestion: patterns.CongestionConfig{
				MinBars:       p.Congestion.MinBars,
				LowerBound:    dec(p.Congestion.Lower),
				UpperBound:    dec(p.Congestion.Upper),
				MaxDriftRatio: dec(p.Congestion.MaxDriftRatio),
			},
			Termination: patterns.TerminationConfig{
				MinZoneStrength:       p.Termination.MinZoneStrength,
				ApproachPct:           dec(p.Termination.ApproachPct),
				TouchPct:              dec(p.Termination.TouchPct),
				ApproachWidthMultiple: dec(p.Termination.ApproachWidthMultiple),
				TouchWidthMultiple:    dec(p.Termination.TouchWidthMultiple),
				RequireMomentumFade:   p.Termination.RequireMomentumFade,
			},
		},
	}
}

// ToCoordinatorConfig converts the coordinator section
func (c CoordinatorConfig) ToCoordinatorConfig() confluence.CoordinatorConfig {
	return confluence.CoordinatorConfig{
		HTF:                    market.Timeframe(c.HTF),
		Trading:                market.Timeframe(c.Trading),
		LTF:                    market.Timeframe(c.LTF),
		ConfluenceTolerancePct: dec(c.ConfluenceTolerancePct),
		AlignmentThreshold:     dec(c.AlignmentThreshold),
	}
}

// Origins returns the configured CORS origins as a list
func (s ServerConfig) Origins() []string {
	return splitList(s.AllowedOrigins)
}

// dec converts a config float via its shortest decimal representation so
// 0.001 stays exactly 0.001.
func dec(f float64) decimal.Decimal {
	return decimal.RequireFromString(strconv.FormatFloat(f, 'f', -1, 64))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true"
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GenerateSampleConfig writes the default configuration to filename
func GenerateSampleConfig(filename string) error {
	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
