package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"

	"github.com/tahmidmalekzoha/rawjournal/config"
	"github.com/tahmidmalekzoha/rawjournal/internal/adapters/logger"
	"github.com/tahmidmalekzoha/rawjournal/internal/adapters/sqlite"
	"github.com/tahmidmalekzoha/rawjournal/internal/app"
	"github.com/tahmidmalekzoha/rawjournal/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
		return 1
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	if zl, ok := appLogger.(*logger.ZapLogger); ok {
		defer zl.Sync()
	}
	appLogger.Debug(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": cfg.LogFormat})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		return 1
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()

	// 4. Initialize Application Service (the repository also serves as the report cache)
	journal, err := app.NewJournalService(cfg, appLogger, repo, repo)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize journal service")
		return 1
	}

	// 5. Run the requested command
	if err := cli.NewRootCommand(cfg, journal).ExecuteContext(ctx); err != nil {
		appLogger.Debug(ctx, "Command failed", map[string]interface{}{"error": err.Error()})
		return 1
	}
	return 0
}
