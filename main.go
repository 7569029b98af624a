package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"drummond-geometry/config"
	"drummond-geometry/internal/api"
	"drummond-geometry/internal/auth"
	"drummond-geometry/internal/cache"
	"drummond-geometry/internal/database"
	"drummond-geometry/internal/engine"
	"drummond-geometry/internal/logging"
	"drummond-geometry/internal/scanner"
	"drummond-geometry/internal/vault"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	configPath := flag.String("config", getEnv("CONFIG_PATH", "config.yaml"), "path to YAML or JSON config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
		MaxSizeMB:   cfg.LoggingConfig.MaxSizeMB,
		MaxBackups:  cfg.LoggingConfig.MaxBackups,
		MaxAgeDays:  cfg.LoggingConfig.MaxAgeDays,
		Component:   "main",
	})
	logging.SetDefault(logger)
	logger.Info("Structured logging initialized")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Resolve secrets before any service connects
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal("Failed to create vault client", "error", err)
	}
	if vaultClient.IsEnabled() {
		if err := vaultClient.Health(ctx); err != nil {
			logger.Fatal("Vault is not available", "error", err)
		}
		if err := vaultClient.Apply(ctx, cfg); err != nil {
			logger.Fatal("Failed to resolve secrets", "error", err)
		}
	} else {
		logger.Info("Vault disabled, using secrets from config and environment")
	}

	var opts []engine.Option
	var source engine.BarSource
	var dbHealth api.HealthChecker

	// Initialize database
	if cfg.DatabaseConfig.Enabled {
		db, err := database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatal("Failed to run migrations", "error", err)
		}

		repo := database.NewRepository(db)
		source = repo
		dbHealth = repo
		opts = append(opts, engine.WithStore(repo))
	} else {
		logger.Warn("Database disabled: live analysis and scanning need a bar source")
	}

	// Initialize cache
	if cfg.RedisConfig.Enabled {
		cacheService, err := cache.NewCacheService(cfg.RedisConfig)
		if err != nil {
			logger.Fatal("Failed to initialize cache", "error", err)
		}
		defer cacheService.Close()
		opts = append(opts, engine.WithCache(cacheService))
	} else {
		opts = append(opts, engine.WithCache(cache.NewMemoryStore()))
		logger.Info("Redis disabled, using in-process cache")
	}

	// WebSocket hub receives every completed analysis
	hub := api.NewWSHub(cfg.ServerConfig.Origins())
	go hub.Run(ctx)
	opts = append(opts, engine.WithPublisher(hub))

	eng, err := engine.New(cfg.AnalysisConfig, source, opts...)
	if err != nil {
		logger.Fatal("Failed to initialize analysis engine", "error", err)
	}
	htf, trading, ltf := eng.Timeframes()
	logger.Info("Analysis engine initialized", "htf", htf, "trading", trading, "ltf", ltf)

	// Start scanner
	var symbolScanner *scanner.Scanner
	if cfg.ScannerConfig.Enabled && source != nil {
		symbolScanner = scanner.NewScanner(eng, scanner.ScannerConfig{
			Enabled:     true,
			Symbols:     cfg.ScannerConfig.Symbols,
			WorkerCount: cfg.ScannerConfig.WorkerCount,
			Schedule:    cfg.ScannerConfig.Schedule,
		})
		if err := symbolScanner.Start(); err != nil {
			logger.Fatal("Failed to start scanner", "error", err)
		}
	} else if cfg.ScannerConfig.Enabled {
		logger.Warn("Scanner enabled but no bar source is available, not starting")
	}

	var jwtManager *auth.JWTManager
	if cfg.AuthConfig.Enabled {
		jwtManager, err = auth.NewJWTManager(auth.Config{
			JWTSecret:           cfg.AuthConfig.JWTSecret,
			Issuer:              cfg.AuthConfig.Issuer,
			AccessTokenDuration: cfg.AuthConfig.AccessTokenDuration,
		})
		if err != nil {
			logger.Fatal("Failed to initialize auth", "error", err)
		}
	}

	if !strings.EqualFold(cfg.LoggingConfig.Level, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	var scans api.ScanSource
	if symbolScanner != nil {
		scans = symbolScanner
	}
	server := api.NewServer(api.ServerConfig{
		Port:           cfg.ServerConfig.Port,
		Host:           cfg.ServerConfig.Host,
		AllowedOrigins: cfg.ServerConfig.Origins(),
		ReadTimeout:    time.Duration(cfg.ServerConfig.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.ServerConfig.WriteTimeout) * time.Second,
	}, eng, scans, dbHealth, jwtManager, hub)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("HTTP server stopped", "error", err)
			stop()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down web server", "error", err)
	}
	if symbolScanner != nil {
		symbolScanner.Stop()
	}
	stop()

	logger.Info("Shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
