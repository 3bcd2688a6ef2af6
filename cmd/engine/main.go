// cmd/engine/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/warestock/replenishd/internal/cache"
	"github.com/warestock/replenishd/internal/config"
	"github.com/warestock/replenishd/internal/domain"
	"github.com/warestock/replenishd/internal/engine"
	"github.com/warestock/replenishd/internal/export"
	"github.com/warestock/replenishd/internal/repository"
	"github.com/warestock/replenishd/internal/repository/postgres"
	"github.com/warestock/replenishd/internal/scheduler"
	"github.com/warestock/replenishd/internal/storage"
	"github.com/warestock/replenishd/pkg/logger"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func openDB(c *cli.Context) (*postgres.DB, error) {
	db, err := sqlx.Connect("pgx", c.String("db-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return postgres.Wrap(db), nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("could not load .env file")
	}

	app := &cli.App{
		Name:  "engine",
		Usage: "Replenishment engine operations",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Execute a full recompute run and commit it",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:  "warehouses",
						Usage: "Comma-separated warehouse IDs to scope the run (empty = full catalog)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Override the worker fan-out for this run",
					},
				},
				Action: runAction,
			},
			{
				Name:  "export",
				Usage: "Upload a committed run's recommendation CSV to object storage",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "run-id",
						Usage:    "Run to export",
						Required: true,
					},
				},
				Action: exportAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("engine command failed")
	}
}

func runAction(c *cli.Context) error {
	cfg := config.Load()

	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	workers := cfg.Engine.WorkerCount
	if c.Int("workers") > 0 {
		workers = c.Int("workers")
	}

	scope := domain.RunScope{}
	for _, raw := range strings.Split(c.String("warehouses"), ",") {
		if id := domain.NormalizeWarehouseID(raw); id != "" {
			scope.WarehouseIDs = append(scope.WarehouseIDs, id)
		}
	}

	factStore := postgres.NewFactStore(db)
	runStore := postgres.NewRunStore(db)
	configProvider := repository.StaticConfigProvider{Config: cfg.Engine.ReplenishmentPolicy()}
	runner := scheduler.NewRunner(runStore, configProvider, engine.New(factStore, workers), cache.NewNoopRecommendationCache())

	result, err := runner.TriggerRun(c.Context, scope)
	if err != nil {
		return err
	}

	logger.Log.Info().
		Str("run_id", result.RunID.String()).
		Str("status", string(result.Status)).
		Int("pairs", result.Counts.Pairs).
		Int("metrics", result.Counts.Metrics).
		Int("recommendations", result.Counts.Recommendations).
		Int("skipped", result.Counts.Skipped).
		Msg("run finished")
	return nil
}

func exportAction(c *cli.Context) error {
	cfg := config.Load()

	runID, err := uuid.Parse(c.String("run-id"))
	if err != nil {
		return fmt.Errorf("invalid run-id: %w", err)
	}

	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	objectStorage, err := storage.NewMinioClient(cfg.Storage)
	if err != nil {
		return err
	}

	exporter := export.NewExporter(postgres.NewRunStore(db), objectStorage)
	key, err := exporter.ExportRun(c.Context, runID)
	if err != nil {
		return err
	}

	logger.Log.Info().Str("run_id", runID.String()).Str("key", key).Msg("export finished")
	return nil
}
