package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/andresuchdata/recipecost/internal/cache"
	"github.com/andresuchdata/recipecost/internal/domain"
	"github.com/andresuchdata/recipecost/internal/normalize"
	"github.com/andresuchdata/recipecost/internal/pricelist"
	"github.com/andresuchdata/recipecost/internal/propagation"
	"github.com/andresuchdata/recipecost/internal/repository"
)

const defaultHistoryLimit = 50

// PricePropagator pushes a new ingredient price into the recipes using it.
type PricePropagator interface {
	OnIngredientPriceChange(ctx context.Context, ingredientID string, newPrice float64) (*propagation.Report, error)
}

// PriceChange describes a requested price update.
type PriceChange struct {
	Price    float64
	Source   domain.PriceSource
	Supplier string
	Brand    string
}

// PriceUpdate is the outcome of UpdatePrice.
type PriceUpdate struct {
	Ingredient  *domain.Ingredient   `json:"ingredient"`
	History     *domain.PriceHistory `json:"history"`
	Propagation *propagation.Report  `json:"propagation"`
}

type IngredientService struct {
	repo        repository.IngredientRepository
	history     repository.PriceHistoryRepository
	cache       cache.IngredientCache
	recipeCache cache.RecipeCache
	propagator  PricePropagator
}

func NewIngredientService(
	repo repository.IngredientRepository,
	history repository.PriceHistoryRepository,
	cacheImpl cache.IngredientCache,
	recipeCache cache.RecipeCache,
	propagator PricePropagator,
) *IngredientService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopIngredientCache()
	}
	if recipeCache == nil {
		recipeCache = cache.NewNoopRecipeCache()
	}
	return &IngredientService{
		repo:        repo,
		history:     history,
		cache:       cacheImpl,
		recipeCache: recipeCache,
		propagator:  propagator,
	}
}

// Create stores a new ingredient, assigning an id when none is given.
func (s *IngredientService) Create(ctx context.Context, ingredient *domain.Ingredient) (*domain.Ingredient, error) {
	if !validPrice(ingredient.PricePerKg) {
		return nil, domain.ErrInvalidPrice
	}
	ingredient.Name = strings.TrimSpace(ingredient.Name)
	if ingredient.ID == "" {
		ingredient.ID = uuid.NewString()
	}
	if ingredient.Unit == "" {
		ingredient.Unit = domain.UnitKilogram
	}

	if err := s.repo.Create(ctx, ingredient); err != nil {
		return nil, fmt.Errorf("failed to create ingredient %s: %w", ingredient.ID, err)
	}

	if err := s.cache.Invalidate(ctx, ingredient.ID); err != nil {
		log.Warn().Err(err).Str("ingredient_id", ingredient.ID).Msg("ingredient: cache invalidate failed")
	}

	return ingredient, nil
}

func (s *IngredientService) Get(ctx context.Context, id string) (*domain.Ingredient, error) {
	if ingredient, ok, err := s.cache.Get(ctx, id); err == nil && ok {
		return ingredient, nil
	} else if err != nil {
		log.Warn().Err(err).Str("ingredient_id", id).Msg("ingredient: cache get failed")
	}

	ingredient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, ingredient); err != nil {
		log.Warn().Err(err).Str("ingredient_id", id).Msg("ingredient: cache set failed")
	}

	return ingredient, nil
}

func (s *IngredientService) List(ctx context.Context, filter domain.IngredientFilter) ([]*domain.Ingredient, error) {
	if ingredients, ok, err := s.cache.GetList(ctx, filter); err == nil && ok {
		return ingredients, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("ingredient: cache get list failed")
	}

	ingredients, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if ingredients == nil {
		ingredients = make([]*domain.Ingredient, 0)
	}

	if err := s.cache.SetList(ctx, filter, ingredients); err != nil {
		log.Warn().Err(err).Msg("ingredient: cache set list failed")
	}

	return ingredients, nil
}

// UpdatePrice stores a new price with its history entry and propagates it to
// every recipe that uses the ingredient. When propagation cannot start the
// price stays saved and the update is returned together with the error.
func (s *IngredientService) UpdatePrice(ctx context.Context, id string, change PriceChange) (*PriceUpdate, error) {
	if !validPrice(change.Price) {
		return nil, domain.ErrInvalidPrice
	}

	// 1. Load the current price
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// 2. Persist price and history together
	source := change.Source
	if source == "" {
		source = domain.PriceSourceManual
	}
	entry := &domain.PriceHistory{
		IngredientID:  id,
		OldPrice:      current.PricePerKg,
		NewPrice:      change.Price,
		ChangePercent: ChangePercent(current.PricePerKg, change.Price),
		Supplier:      firstNonEmpty(change.Supplier, current.Supplier),
		Brand:         firstNonEmpty(change.Brand, current.Brand),
		Source:        source,
	}
	if err := s.repo.UpdatePrice(ctx, id, change.Price, entry); err != nil {
		return nil, fmt.Errorf("failed to update price of %s: %w", id, err)
	}

	current.PricePerKg = change.Price
	if err := s.cache.Invalidate(ctx, id); err != nil {
		log.Warn().Err(err).Str("ingredient_id", id).Msg("ingredient: cache invalidate failed")
	}

	update := &PriceUpdate{Ingredient: current, History: entry}

	// 3. Propagate into recipes
	report, err := s.propagator.OnIngredientPriceChange(ctx, id, change.Price)
	if err != nil {
		return update, fmt.Errorf("price saved but propagation failed: %w", err)
	}
	update.Propagation = report

	// 4. Drop stale recipe entries
	if len(report.Affected) > 0 {
		if err := s.recipeCache.Invalidate(ctx, report.Affected...); err != nil {
			log.Warn().Err(err).Str("ingredient_id", id).Msg("ingredient: recipe cache invalidate failed")
		}
	}

	log.Info().
		Str("ingredient_id", id).
		Float64("old_price", entry.OldPrice).
		Float64("new_price", entry.NewPrice).
		Float64("change_percent", entry.ChangePercent).
		Msg("ingredient price updated")

	return update, nil
}

// ImportFailure is a price list row that could not be applied.
type ImportFailure struct {
	Line         int    `json:"line"`
	IngredientID string `json:"ingredient_id"`
	Reason       string `json:"error"`
}

// ImportReport summarises a price list import.
type ImportReport struct {
	Updated         int             `json:"updated"`
	RecipesAffected int             `json:"recipes_affected"`
	Failures        []ImportFailure `json:"failures"`
}

// ImportPrices applies every row of a supplier price list in order. Rows the
// sheet reader rejected and rows whose update fails are recorded as failures
// and the import moves on to the next one.
func (s *IngredientService) ImportPrices(ctx context.Context, rows []pricelist.Row) (*ImportReport, error) {
	report := &ImportReport{Failures: make([]ImportFailure, 0)}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !row.Valid() {
			report.Failures = append(report.Failures, ImportFailure{
				Line:         row.Line,
				IngredientID: row.IngredientID,
				Reason:       row.Err.Error(),
			})
			continue
		}

		update, err := s.UpdatePrice(ctx, row.IngredientID, PriceChange{
			Price:    row.Price,
			Source:   domain.PriceSourceImport,
			Supplier: row.Supplier,
			Brand:    row.Brand,
		})
		if err != nil {
			log.Warn().Err(err).Int("line", row.Line).Str("ingredient_id", row.IngredientID).Msg("ingredient: price import row failed")
			report.Failures = append(report.Failures, ImportFailure{
				Line:         row.Line,
				IngredientID: row.IngredientID,
				Reason:       err.Error(),
			})
			continue
		}

		report.Updated++
		if update.Propagation != nil {
			report.RecipesAffected += len(update.Propagation.Affected)
		}
	}

	return report, nil
}

func (s *IngredientService) PriceHistory(ctx context.Context, id string, limit int) ([]*domain.PriceHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	entries, err := s.history.ListByIngredient(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = make([]*domain.PriceHistory, 0)
	}
	return entries, nil
}

// ChangePercent is the relative change from oldPrice to newPrice in percent,
// rounded to two decimals. A change from zero reports 0.
func ChangePercent(oldPrice, newPrice float64) float64 {
	if oldPrice == 0 {
		return 0
	}
	before := decimal.NewFromFloat(oldPrice)
	after := decimal.NewFromFloat(newPrice)
	pct, _ := after.Sub(before).Div(before).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return pct
}

func validPrice(p float64) bool {
	return p >= 0 && normalize.Finite(p) == p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
