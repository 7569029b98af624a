package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"drummond-geometry/config"
	"drummond-geometry/internal/database"
	"drummond-geometry/internal/engine"
	"drummond-geometry/internal/logging"
	"drummond-geometry/internal/market"
)

func main() {
	godotenv.Load()

	htfPath := flag.String("htf", "", "CSV file with higher timeframe bars (timestamp,open,high,low,close,volume)")
	tradingPath := flag.String("trading", "", "CSV file with trading timeframe bars")
	ltfPath := flag.String("ltf", "", "optional CSV file with lower timeframe bars")
	symbol := flag.String("symbol", "BTCUSDT", "symbol the bars belong to")
	configPath := flag.String("config", "", "optional YAML or JSON config file")
	save := flag.Bool("save", false, "store the loaded bars and the analysis in Postgres")
	flag.Parse()

	if *htfPath == "" || *tradingPath == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -htf htf.csv -trading trading.csv [-ltf ltf.csv] [-symbol BTCUSDT] [-config config.yaml] [-save]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout stays valid JSON
	logging.SetDefault(logging.New(&logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     "stderr",
		JSONFormat: cfg.LoggingConfig.JSONFormat,
		Component:  "analyze",
	}))

	htf, trading, ltf := market.Timeframe(cfg.AnalysisConfig.Coordinator.HTF),
		market.Timeframe(cfg.AnalysisConfig.Coordinator.Trading),
		market.Timeframe(cfg.AnalysisConfig.Coordinator.LTF)
	paths := map[market.Timeframe]string{htf: *htfPath, trading: *tradingPath}
	if *ltfPath != "" && ltf != "" {
		paths[ltf] = *ltfPath
	}

	sym := strings.ToUpper(*symbol)
	source := engine.CSVSource{Paths: paths}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var opts []engine.Option
	if *save {
		repo, closeDB, err := openRepository(ctx, cfg.DatabaseConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
			os.Exit(1)
		}
		defer closeDB()

		for tf := range paths {
			bars, err := source.GetBars(ctx, sym, tf, 0)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to load %s bars: %v\n", tf, err)
				os.Exit(1)
			}
			if err := repo.SaveBars(ctx, bars); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to save %s bars: %v\n", tf, err)
				os.Exit(1)
			}
		}
		opts = append(opts, engine.WithStore(repo))
	}

	eng, err := engine.New(cfg.AnalysisConfig, source, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize engine: %v\n", err)
		os.Exit(1)
	}

	result, err := eng.AnalyzeSymbol(ctx, sym)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analysis failed: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func openRepository(ctx context.Context, cfg config.DatabaseConfig) (*database.Repository, func(), error) {
	db, err := database.NewDB(database.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		SSLMode:  cfg.SSLMode,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return database.NewRepository(db), db.Close, nil
}
