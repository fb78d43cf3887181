package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/recipecost/internal/costing"
	"github.com/andresuchdata/recipecost/internal/domain"
	"github.com/andresuchdata/recipecost/internal/service"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadSeedBundle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ingredients.json"), `[{"id":"ing1","name":"Salmon","price_per_kg":10}]`)
	writeFile(t, filepath.Join(root, "2026", "ingredients-extra.JSON"), `[{"id":"ing2","name":"Leek","price_per_kg":3}]`)
	writeFile(t, filepath.Join(root, "recipes.json"), `[{"name":"Salmon","category":"mains","preparations":[{"id":"p1","processes":["defrosting"],
		"ingredients":[{"id":"ing1_1","name":"salmon","current_price":"10","weight_frozen":"1","weight_thawed":"0,9"}]}]}]`)
	writeFile(t, filepath.Join(root, "notes.json"), `{}`)

	bundle, err := loadSeedBundle(root)

	require.NoError(t, err)
	require.Len(t, bundle.Ingredients, 2)
	assert.Equal(t, "ing2", bundle.Ingredients[0].ID)
	assert.Equal(t, "ing1", bundle.Ingredients[1].ID)
	require.Len(t, bundle.Recipes, 1)
	assert.Equal(t, 0.9, bundle.Recipes[0].Preparations[0].Ingredients[0].WeightThawed.Float())
}

func TestLoadSeedBundleErrors(t *testing.T) {
	_, err := loadSeedBundle(t.TempDir())
	assert.ErrorContains(t, err, "no seed data found")

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "recipes.json"), `{not json`)
	_, err = loadSeedBundle(root)
	assert.ErrorContains(t, err, "failed to decode")
}

type recordingCreator struct {
	created []*domain.Ingredient
}

func (r *recordingCreator) Create(_ context.Context, ing *domain.Ingredient) (*domain.Ingredient, error) {
	r.created = append(r.created, ing)
	return ing, nil
}

type scriptedSaver struct {
	errs map[string]error
}

func (s scriptedSaver) Save(_ context.Context, recipe *domain.Recipe) (*domain.Recipe, costing.ValidationResult, error) {
	if err := s.errs[recipe.Name]; err != nil {
		return nil, costing.ValidationResult{}, err
	}
	return recipe, costing.ValidationResult{IsValid: true}, nil
}

func TestApplySeed(t *testing.T) {
	creator := &recordingCreator{}
	invalid := &service.ValidationError{Result: costing.ValidationResult{Errors: []string{"recipe category is required"}}}
	saver := scriptedSaver{errs: map[string]error{"Broken": invalid}}

	bundle := &seedBundle{
		Ingredients: []*domain.Ingredient{{ID: "ing1", Name: "Salmon"}},
		Recipes:     []*domain.Recipe{{Name: "Stew"}, {Name: "Broken"}},
	}

	summary, err := applySeed(context.Background(), creator, saver, bundle)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Ingredients)
	assert.Equal(t, 1, summary.Recipes)
	assert.Equal(t, []string{"Broken"}, summary.Skipped)
	assert.True(t, creator.created[0].Active)
}

func TestApplySeedAbortsOnStoreError(t *testing.T) {
	saver := scriptedSaver{errs: map[string]error{"Stew": errors.New("connection refused")}}
	bundle := &seedBundle{Recipes: []*domain.Recipe{{Name: "Stew"}, {Name: "Soup"}}}

	summary, err := applySeed(context.Background(), &recordingCreator{}, saver, bundle)

	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 0, summary.Recipes)
}

func TestExportPayload(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	key, data, err := exportPayload("exports/", []*domain.Recipe{{ID: "r1", Name: "Stew"}}, now)

	require.NoError(t, err)
	assert.Equal(t, "exports/recipes-20260304T050607Z.json", key)
	var decoded []domain.Recipe
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "Stew", decoded[0].Name)
}
