// Command migrate applies the ledger schema to the configured database and
// exits.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/riteshkumar/core-ledger/internal/config"
	"github.com/riteshkumar/core-ledger/internal/repository"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Error("failed to load configuration", "error", err.Error())
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := repository.OpenPostgres(ctx, cfg.DSN(), cfg.DBConnectRetries, cfg.DBConnectRetryInterval, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.NewPostgresStore(db).Migrate(ctx); err != nil {
		logger.Error("migration failed", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("schema is up to date")
}
