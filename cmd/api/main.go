// Command api is the CiclismoPT Assist API server.
//
// Usage:
//
//	assist-api
//	API_PORT=8080 assist-api

// @title CiclismoPT Assist API
// @version 1.0.0
// @description Contextual assistant for the CiclismoPT fantasy game: proactive trigger suggestions, grounded chat, and one-tap action execution.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name CiclismoPT
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/ciclismopt/assist/internal/action"
	"github.com/ciclismopt/assist/internal/api"
	"github.com/ciclismopt/assist/internal/assist"
	"github.com/ciclismopt/assist/internal/cache"
	"github.com/ciclismopt/assist/internal/config"
	"github.com/ciclismopt/assist/internal/db"
	"github.com/ciclismopt/assist/internal/listener"
	"github.com/ciclismopt/assist/internal/llm"
	"github.com/ciclismopt/assist/internal/maintenance"
	"github.com/ciclismopt/assist/internal/parser"
	"github.com/ciclismopt/assist/internal/repo"
	"github.com/ciclismopt/assist/internal/trigger"

	_ "github.com/ciclismopt/assist/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Repositories
	teams := repo.NewPGTeamRepo(pool)
	riders := repo.NewPGRiderRepo(pool)
	races := repo.NewPGRaceRepo(pool)

	// Text generation: Gemini when a key is configured, canned replies
	// otherwise so the assistant keeps answering offline.
	var gen llm.Generator
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiDailyLimit, logger)
		if err != nil {
			logger.Error("Failed to create Gemini client", "error", err)
			os.Exit(1)
		}
		gen = gemini
		logger.Info("Gemini generation enabled", "model", cfg.GeminiModel, "daily_limit", cfg.GeminiDailyLimit)
	} else {
		gen = llm.Canned{}
		logger.Info("Gemini generation disabled (no GEMINI_API_KEY), using canned replies")
	}

	// Trigger engine with persisted dismissals
	dismissals := trigger.NewPGDismissalStore(pool)
	engine := trigger.NewEngine(dismissals, trigger.Config{
		Cooldown:      cfg.TriggerCooldown,
		DismissWindow: cfg.DismissWindow,
		IdleThreshold: cfg.IdleThreshold,
	}, logger)

	// Coordinator
	coord := assist.NewCoordinator(assist.Deps{
		Engine:    engine,
		Executor:  action.NewExecutor(teams, riders, logger),
		Parser:    parser.New(logger),
		Generator: gen,
		Teams:     teams,
		Races:     races,
	}, cfg, logger)

	// Start idle sweep loop
	go coord.StartIdleChecker(ctx)

	// Start LISTEN/NOTIFY consumer for team change events
	go listener.Start(ctx, cfg.DatabaseURL, coord, logger)

	// Start maintenance tickers (dismissal purge, session purge)
	mcfg := maintenance.DefaultConfig()
	mcfg.DismissWindow = cfg.DismissWindow
	mcfg.SessionTTL = cfg.SessionTTL
	go maintenance.Start(ctx, dismissals, coord, mcfg, logger)

	// Create router
	router := api.NewRouter(pool.Pool, appCache, coord, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting CiclismoPT Assist API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
