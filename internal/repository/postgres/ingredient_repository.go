package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/recipecost/internal/domain"
)

const ingredientColumns = `
	id, name, unit, price_per_kg, brand, supplier, category, active,
	created_at, updated_at`

type ingredientRepository struct {
	db *DB
}

func NewIngredientRepository(db *DB) *ingredientRepository {
	return &ingredientRepository{db: db}
}

func (r *ingredientRepository) Get(ctx context.Context, id string) (*domain.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = $1`

	var ingredient domain.Ingredient
	if err := sqlx.GetContext(ctx, r.db, &ingredient, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ingredient %s: %w", id, domain.ErrIngredientNotFound)
		}
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}

	return &ingredient, nil
}

func (r *ingredientRepository) List(ctx context.Context, filter domain.IngredientFilter) ([]*domain.Ingredient, error) {
	where, args, _ := buildIngredientFilterClause(filter, 1)
	query := `SELECT ` + ingredientColumns + ` FROM ingredients` + where + ` ORDER BY name, id`

	var ingredients []*domain.Ingredient
	if err := sqlx.SelectContext(ctx, r.db, &ingredients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}

	return ingredients, nil
}

func (r *ingredientRepository) Create(ctx context.Context, ingredient *domain.Ingredient) error {
	query := `
		INSERT INTO ingredients (
			id, name, unit, price_per_kg, brand, supplier, category, active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			unit = EXCLUDED.unit,
			price_per_kg = EXCLUDED.price_per_kg,
			brand = EXCLUDED.brand,
			supplier = EXCLUDED.supplier,
			category = EXCLUDED.category,
			active = EXCLUDED.active,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		ingredient.ID,
		ingredient.Name,
		ingredient.Unit,
		ingredient.PricePerKg,
		ingredient.Brand,
		ingredient.Supplier,
		ingredient.Category,
		ingredient.Active,
	).Scan(&ingredient.CreatedAt, &ingredient.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ingredient: %w", err)
	}

	return nil
}

func (r *ingredientRepository) UpdatePrice(ctx context.Context, id string, price float64, entry *domain.PriceHistory) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// 1. Update the current price
		res, err := tx.ExecContext(ctx,
			`UPDATE ingredients SET price_per_kg = $2, updated_at = NOW() WHERE id = $1`,
			id, price)
		if err != nil {
			return fmt.Errorf("failed to update ingredient price: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("ingredient %s: %w", id, domain.ErrIngredientNotFound)
		}

		// 2. Append to the price history
		if entry == nil {
			return nil
		}
		return insertPriceHistory(ctx, tx, entry)
	})
}
