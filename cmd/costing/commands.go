package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/recipecost/internal/config"
	"github.com/andresuchdata/recipecost/internal/domain"
	"github.com/andresuchdata/recipecost/internal/migrations"
	"github.com/andresuchdata/recipecost/internal/normalize"
	"github.com/andresuchdata/recipecost/internal/pricelist"
	"github.com/andresuchdata/recipecost/internal/service"
	"github.com/andresuchdata/recipecost/internal/storage"
	"github.com/andresuchdata/recipecost/pkg/logger"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply or inspect the schema migrations",
		Subcommands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply every pending migration",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					db, err := dbFrom(c)
					if err != nil {
						return err
					}
					return migrations.Up(db)
				},
			},
			{
				Name:   "down",
				Usage:  "Roll back the latest migration",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					db, err := dbFrom(c)
					if err != nil {
						return err
					}
					return migrations.Down(db)
				},
			},
			{
				Name:   "status",
				Usage:  "Print the migration status",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					db, err := dbFrom(c)
					if err != nil {
						return err
					}
					return migrations.Status(db)
				},
			},
		},
	}
}

func runRecalc(c *cli.Context) error {
	svc, err := servicesFrom(c)
	if err != nil {
		return err
	}

	report, err := svc.recipes.RecalculateAll(c.Context)
	if err != nil {
		return fmt.Errorf("recalculation failed: %w", err)
	}

	if err := writeJSON(c.App.Writer, report); err != nil {
		return err
	}
	if len(report.Failures) > 0 {
		return cli.Exit(fmt.Sprintf("%d recipes could not be updated", len(report.Failures)), 1)
	}
	return nil
}

func runPropagate(c *cli.Context) error {
	price, ok := normalize.ParseNumber(c.String("price"))
	if !ok {
		return fmt.Errorf("invalid price %q", c.String("price"))
	}

	svc, err := servicesFrom(c)
	if err != nil {
		return err
	}

	update, err := svc.ingredients.UpdatePrice(c.Context, c.String("ingredient"), service.PriceChange{
		Price:    price,
		Source:   domain.PriceSourceCLI,
		Supplier: c.String("supplier"),
	})
	if update != nil {
		if werr := writeJSON(c.App.Writer, update); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}
	if update.Propagation != nil && update.Propagation.Failed() {
		return cli.Exit(fmt.Sprintf("%d recipes could not be updated", len(update.Propagation.Failures)), 1)
	}
	return nil
}

func runImportPrices(c *cli.Context) error {
	path := c.String("file")
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := pricelist.Read(path, f)
	if err != nil {
		return err
	}
	logger.Log.Info().Int("rows", len(rows)).Str("file", path).Msg("price list loaded")

	svc, err := servicesFrom(c)
	if err != nil {
		return err
	}

	report, err := svc.ingredients.ImportPrices(c.Context, rows)
	if report != nil {
		if werr := writeJSON(c.App.Writer, report); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}
	if len(report.Failures) > 0 {
		return cli.Exit(fmt.Sprintf("%d price rows could not be applied", len(report.Failures)), 1)
	}
	return nil
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write every recipe with its metrics to object storage",
		Flags: []cli.Flag{
			newDBURLFlag(),
			&cli.StringFlag{
				Name:    "bucket",
				Usage:   "S3-compatible bucket; the local --out-dir is used when empty",
				EnvVars: []string{"STORAGE_BUCKET"},
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "Key prefix for the export",
				Value: "exports",
			},
			&cli.StringFlag{
				Name:  "out-dir",
				Usage: "Local directory used without a bucket",
				Value: "./data/exports",
			},
		},
		Before: initDB,
		After:  closeDB,
		Action: runExport,
	}
}

func runExport(c *cli.Context) error {
	store, err := objectStorage(c, c.String("out-dir"))
	if err != nil {
		return err
	}

	svc, err := servicesFrom(c)
	if err != nil {
		return err
	}

	recipes, err := svc.recipes.List(c.Context, domain.RecipeFilter{})
	if err != nil {
		return fmt.Errorf("failed to list recipes: %w", err)
	}

	key, data, err := exportPayload(c.String("prefix"), recipes, time.Now())
	if err != nil {
		return err
	}
	if err := store.UploadObject(c.Context, key, data); err != nil {
		return err
	}

	logger.Log.Info().Str("key", key).Int("recipes", len(recipes)).Msg("recipes exported")
	return nil
}

// objectStorage returns the configured bucket when --bucket is set and a
// directory store rooted at localDir otherwise.
func objectStorage(c *cli.Context, localDir string) (storage.ObjectStorage, error) {
	bucket := c.String("bucket")
	if bucket == "" {
		return storage.NewLocalStorage(localDir), nil
	}

	storageCfg := config.Load().Storage
	storageCfg.Bucket = bucket
	return storage.NewS3Client(storageCfg)
}

func exportPayload(prefix string, recipes []*domain.Recipe, now time.Time) (string, []byte, error) {
	name := fmt.Sprintf("recipes-%s.json", now.UTC().Format("20060102T150405Z"))
	key := storage.ResolveObjectKey(prefix, name)

	var buf bytes.Buffer
	if err := writeJSON(&buf, recipes); err != nil {
		return "", nil, fmt.Errorf("failed to encode recipes: %w", err)
	}
	return key, buf.Bytes(), nil
}
