package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/recipecost/internal/cache"
	"github.com/andresuchdata/recipecost/internal/config"
	"github.com/andresuchdata/recipecost/internal/metrics"
	"github.com/andresuchdata/recipecost/internal/propagation"
	"github.com/andresuchdata/recipecost/internal/repository/postgres"
	"github.com/andresuchdata/recipecost/internal/service"
	"github.com/andresuchdata/recipecost/pkg/logger"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) (*sql.DB, error) {
	db, ok := c.Context.Value(dbKey).(*sql.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database connection not initialised")
	}
	return db, nil
}

// services wires the same stack the HTTP server uses on top of the CLI
// connection. Caches follow the configuration so cached recipes are dropped
// after a CLI change.
type services struct {
	recipes     *service.RecipeService
	ingredients *service.IngredientService
}

func newServices(db *sql.DB, cfg *config.Config) (*services, error) {
	wrapped := postgres.Wrap(sqlx.NewDb(db, "pgx"))
	recipeRepo := postgres.NewRecipeRepository(wrapped)

	recipeCache, err := cache.NewRecipeCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create recipe cache: %w", err)
	}
	ingredientCache, err := cache.NewIngredientCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingredient cache: %w", err)
	}

	collector := metrics.NewCollector()
	propagator := propagation.NewPropagator(recipeRepo, propagation.ConfigFrom(cfg.Costing), collector)

	return &services{
		recipes: service.NewRecipeService(recipeRepo, recipeCache, cfg.Costing, collector),
		ingredients: service.NewIngredientService(
			postgres.NewIngredientRepository(wrapped),
			postgres.NewPriceHistoryRepository(wrapped),
			ingredientCache,
			recipeCache,
			propagator,
		),
	}, nil
}

func servicesFrom(c *cli.Context) (*services, error) {
	db, err := dbFrom(c)
	if err != nil {
		return nil, err
	}
	return newServices(db, config.Load())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)

	app := &cli.App{
		Name:  "costing",
		Usage: "Operate the recipe costing database",
		Commands: []*cli.Command{
			migrateCommand(),
			seedCommand(),
			{
				Name:   "recalc",
				Usage:  "Recompute and store the metrics of every recipe",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runRecalc,
			},
			{
				Name:  "propagate",
				Usage: "Set an ingredient price and push it into every recipe using it",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "ingredient",
						Usage:    "Ingredient id",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "price",
						Usage:    "New price per kg, '.' or ',' decimals",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "supplier",
						Usage: "Supplier recorded in the price history",
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runPropagate,
			},
			{
				Name:  "import-prices",
				Usage: "Apply a supplier price sheet (CSV or XLSX) and propagate every price",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path to the price sheet",
						Required: true,
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runImportPrices,
			},
			exportCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("command failed")
	}
}
