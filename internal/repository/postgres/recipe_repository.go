package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/andresuchdata/recipecost/internal/domain"
)

const recipeColumns = `
	id, name, category, prep_time, portions, preparations, ingredient_ids,
	total_weight, yield_weight, cost_per_kg_raw, cost_per_kg_yield,
	cuba_weight, cuba_cost, total_cost, portion_cost,
	created_at, updated_at`

// recipeRow adds the text[] ingredient index, which the domain type keeps
// out of its db mapping.
type recipeRow struct {
	domain.Recipe
	IngredientIDs pq.StringArray `db:"ingredient_ids"`
}

func (row *recipeRow) toDomain() *domain.Recipe {
	recipe := row.Recipe
	recipe.IngredientIDs = []string(row.IngredientIDs)
	if recipe.IngredientIDs == nil {
		recipe.IngredientIDs = []string{}
	}
	return &recipe
}

type recipeRepository struct {
	db *DB
}

func NewRecipeRepository(db *DB) *recipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) Get(ctx context.Context, id string) (*domain.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE id = $1`

	var row recipeRow
	if err := sqlx.GetContext(ctx, r.db, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("recipe %s: %w", id, domain.ErrRecipeNotFound)
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	return row.toDomain(), nil
}

func (r *recipeRepository) List(ctx context.Context, filter domain.RecipeFilter) ([]*domain.Recipe, error) {
	where, args, idx := buildRecipeFilterClause(filter, 1)
	limit, limitArgs := paginate(filter.Page, filter.PageSize, idx)

	query := `SELECT ` + recipeColumns + ` FROM recipes` + where + ` ORDER BY name, id` + limit
	args = append(args, limitArgs...)

	return r.selectRecipes(ctx, "failed to list recipes", query, args...)
}

func (r *recipeRepository) ListByIngredient(ctx context.Context, ingredientID string) ([]*domain.Recipe, error) {
	// @> lets Postgres use the GIN index on ingredient_ids
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE ingredient_ids @> ARRAY[$1]::text[] ORDER BY id`

	return r.selectRecipes(ctx, "failed to list recipes by ingredient", query, ingredientID)
}

func (r *recipeRepository) selectRecipes(ctx context.Context, errMsg, query string, args ...interface{}) ([]*domain.Recipe, error) {
	var rows []recipeRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}

	recipes := make([]*domain.Recipe, 0, len(rows))
	for i := range rows {
		recipes = append(recipes, rows[i].toDomain())
	}
	return recipes, nil
}

func (r *recipeRepository) Save(ctx context.Context, recipe *domain.Recipe) error {
	query := `
		INSERT INTO recipes (
			id, name, category, prep_time, portions, preparations, ingredient_ids,
			total_weight, yield_weight, cost_per_kg_raw, cost_per_kg_yield,
			cuba_weight, cuba_cost, total_cost, portion_cost,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			prep_time = EXCLUDED.prep_time,
			portions = EXCLUDED.portions,
			preparations = EXCLUDED.preparations,
			ingredient_ids = EXCLUDED.ingredient_ids,
			total_weight = EXCLUDED.total_weight,
			yield_weight = EXCLUDED.yield_weight,
			cost_per_kg_raw = EXCLUDED.cost_per_kg_raw,
			cost_per_kg_yield = EXCLUDED.cost_per_kg_yield,
			cuba_weight = EXCLUDED.cuba_weight,
			cuba_cost = EXCLUDED.cuba_cost,
			total_cost = EXCLUDED.total_cost,
			portion_cost = EXCLUDED.portion_cost,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	ingredientIDs := recipe.IngredientIDs
	if ingredientIDs == nil {
		ingredientIDs = []string{}
	}

	m := recipe.RecipeMetrics
	err := r.db.QueryRowxContext(
		ctx,
		query,
		recipe.ID,
		recipe.Name,
		recipe.Category,
		recipe.PrepTime,
		recipe.Portions,
		recipe.Preparations,
		pq.Array(ingredientIDs),
		m.TotalWeight,
		m.YieldWeight,
		m.CostPerKgRaw,
		m.CostPerKgYield,
		m.CubaWeight,
		m.CubaCost,
		m.TotalCost,
		m.PortionCost,
	).Scan(&recipe.CreatedAt, &recipe.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}

	return nil
}

func (r *recipeRepository) SaveMetrics(ctx context.Context, id string, m domain.RecipeMetrics) error {
	query := `
		UPDATE recipes SET
			total_weight = $2,
			yield_weight = $3,
			cost_per_kg_raw = $4,
			cost_per_kg_yield = $5,
			cuba_weight = $6,
			cuba_cost = $7,
			total_cost = $8,
			portion_cost = $9,
			updated_at = NOW()
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, id,
		m.TotalWeight, m.YieldWeight, m.CostPerKgRaw, m.CostPerKgYield,
		m.CubaWeight, m.CubaCost, m.TotalCost, m.PortionCost)
	if err != nil {
		return fmt.Errorf("failed to save recipe metrics: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("recipe %s: %w", id, domain.ErrRecipeNotFound)
	}

	return nil
}
