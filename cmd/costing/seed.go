package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/recipecost/internal/costing"
	"github.com/andresuchdata/recipecost/internal/domain"
	"github.com/andresuchdata/recipecost/internal/service"
	"github.com/andresuchdata/recipecost/internal/storage"
	"github.com/andresuchdata/recipecost/pkg/logger"
)

// seedBundle is the content of a seed directory: every ingredients*.json and
// recipes*.json file found below it, each holding a JSON array.
type seedBundle struct {
	Ingredients []*domain.Ingredient
	Recipes     []*domain.Recipe
}

type seedSummary struct {
	Ingredients int      `json:"ingredients"`
	Recipes     int      `json:"recipes"`
	Skipped     []string `json:"skipped"`
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load ingredients and recipes from a local directory or a storage bucket",
		Flags: []cli.Flag{
			newDBURLFlag(),
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Directory containing ingredients*.json and recipes*.json",
				Value:   "./data/seeds",
				EnvVars: []string{"SEED_DATA_DIR"},
			},
			&cli.StringFlag{
				Name:    "bucket",
				Usage:   "Download the seed bundle from this bucket instead of --data-dir",
				EnvVars: []string{"STORAGE_BUCKET"},
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "Object key prefix of the seed bundle",
				Value: "seeds",
			},
			&cli.StringFlag{
				Name:  "download-dir",
				Usage: "Where the bundle is downloaded to",
				Value: "./data/tmp/seeds",
			},
		},
		Before: initDB,
		After:  closeDB,
		Action: runSeed,
	}
}

func runSeed(c *cli.Context) error {
	dataDir := c.String("data-dir")

	if c.String("bucket") != "" {
		store, err := objectStorage(c, "")
		if err != nil {
			return err
		}
		dataDir = c.String("download-dir")
		paths, err := storage.Mirror(c.Context, store, c.String("prefix"), ".json", dataDir)
		if err != nil {
			return fmt.Errorf("failed to download seed bundle: %w", err)
		}
		logger.Log.Info().Int("files", len(paths)).Str("dir", dataDir).Msg("seed bundle downloaded")
	}

	bundle, err := loadSeedBundle(dataDir)
	if err != nil {
		return err
	}

	svc, err := servicesFrom(c)
	if err != nil {
		return err
	}

	summary, err := applySeed(c.Context, svc.ingredients, svc.recipes, bundle)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, summary)
}

func loadSeedBundle(root string) (*seedBundle, error) {
	files, err := collectJSONFiles(root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	bundle := &seedBundle{}
	for _, path := range files {
		base := strings.ToLower(filepath.Base(path))
		switch {
		case strings.HasPrefix(base, "ingredients"):
			var items []*domain.Ingredient
			if err := readJSONFile(path, &items); err != nil {
				return nil, err
			}
			bundle.Ingredients = append(bundle.Ingredients, items...)
		case strings.HasPrefix(base, "recipes"):
			var items []*domain.Recipe
			if err := readJSONFile(path, &items); err != nil {
				return nil, err
			}
			bundle.Recipes = append(bundle.Recipes, items...)
		default:
			logger.Log.Debug().Str("file", path).Msg("ignoring unrecognised seed file")
		}
	}

	if len(bundle.Ingredients) == 0 && len(bundle.Recipes) == 0 {
		return nil, fmt.Errorf("no seed data found in %s", root)
	}
	return bundle, nil
}

func collectJSONFiles(root string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

type ingredientCreator interface {
	Create(ctx context.Context, ingredient *domain.Ingredient) (*domain.Ingredient, error)
}

type recipeSaver interface {
	Save(ctx context.Context, recipe *domain.Recipe) (*domain.Recipe, costing.ValidationResult, error)
}

// applySeed stores ingredients before recipes. Recipes that fail validation
// are skipped and reported; any other error aborts the seed.
func applySeed(ctx context.Context, ingredients ingredientCreator, recipes recipeSaver, bundle *seedBundle) (*seedSummary, error) {
	summary := &seedSummary{Skipped: make([]string, 0)}

	for _, ing := range bundle.Ingredients {
		// seed files describe the current catalogue
		ing.Active = true
		if _, err := ingredients.Create(ctx, ing); err != nil {
			return summary, fmt.Errorf("failed to seed ingredient %q: %w", ing.Name, err)
		}
		summary.Ingredients++
	}

	for _, recipe := range bundle.Recipes {
		_, _, err := recipes.Save(ctx, recipe)
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			logger.Log.Warn().Str("recipe", recipe.Name).Strs("errors", verr.Result.Errors).Msg("skipping invalid recipe")
			summary.Skipped = append(summary.Skipped, recipe.Name)
		case err != nil:
			return summary, fmt.Errorf("failed to seed recipe %q: %w", recipe.Name, err)
		default:
			summary.Recipes++
		}
	}

	logger.Log.Info().
		Int("ingredients", summary.Ingredients).
		Int("recipes", summary.Recipes).
		Int("skipped", len(summary.Skipped)).
		Msg("seed completed")

	return summary, nil
}
