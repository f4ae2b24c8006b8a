package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/grubsight/grubsight/internal/advisor"
	"github.com/grubsight/grubsight/internal/core/analysis"
	corecfg "github.com/grubsight/grubsight/internal/core/config"
	"github.com/grubsight/grubsight/internal/core/dataset"
	"github.com/grubsight/grubsight/internal/intent"
	"github.com/grubsight/grubsight/internal/loader"
	"github.com/grubsight/grubsight/internal/query"
	"github.com/grubsight/grubsight/internal/server"
)

func main() {
	configPath := flag.String("config", "grubsight.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration (.env first so env overrides pick it up)
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Load the dataset snapshot
	snap, err := loadSnapshot(ctx, cfg, logger)
	if err != nil {
		slog.Error("Failed to load dataset", "error", err)
		os.Exit(1)
	}
	store := dataset.NewStore(snap)

	// 3. Analysis engine
	engine := analysis.New(store, logger)

	// 4. Query API
	queryHandler := query.NewHandler(engine)

	// 5. Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), store, cfg.Server.Mode)
	queryHandler.RegisterRoutes(srv.Engine)

	// 6. Advisor (optional)
	if cfg.Advisor.Enabled {
		rules, err := intent.LoadRules(cfg.Intent.RulesPath)
		if err != nil {
			slog.Error("Failed to load intent rules", "error", err)
			os.Exit(1)
		}
		completer := advisor.NewOpenAIClient(advisor.OpenAIConfig{
			APIKey:      cfg.Advisor.APIKey,
			BaseURL:     cfg.Advisor.BaseURL,
			Model:       cfg.Advisor.Model,
			Temperature: float32(cfg.Advisor.Temperature),
		})
		advisorSvc := advisor.NewService(engine, store, intent.NewClassifier(rules), completer, advisor.Config{
			MerchantID: cfg.Analysis.DefaultMerchantID,
			CityID:     cfg.Analysis.DefaultCityID,
			CityNames:  cfg.Analysis.CityNames,
		}, logger)
		advisorSvc.RegisterRoutes(srv.Engine)
		slog.Info("Advisor enabled", "model", cfg.Advisor.Model)
	} else {
		slog.Info("Advisor disabled by config")
	}

	// Signal handler → triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func loadSnapshot(ctx context.Context, cfg *corecfg.Config, logger *slog.Logger) (*dataset.Snapshot, error) {
	switch cfg.Data.Source {
	case "postgres":
		db, err := loader.OpenPostgres(cfg.Data.DSN, cfg.Data.MaxOpenConns, cfg.Data.MaxIdleConns)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return loader.NewPostgresLoader(db, logger).Load(ctx)
	default:
		return loader.NewCSVLoader(cfg.Data.Dir, logger).Load(ctx)
	}
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
