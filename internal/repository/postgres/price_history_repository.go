package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/recipecost/internal/domain"
)

const defaultHistoryLimit = 100

type priceHistoryRepository struct {
	db *DB
}

func NewPriceHistoryRepository(db *DB) *priceHistoryRepository {
	return &priceHistoryRepository{db: db}
}

func (r *priceHistoryRepository) Insert(ctx context.Context, entry *domain.PriceHistory) error {
	return insertPriceHistory(ctx, r.db, entry)
}

func (r *priceHistoryRepository) ListByIngredient(ctx context.Context, ingredientID string, limit int) ([]*domain.PriceHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := `
		SELECT id, ingredient_id, old_price, new_price, change_percent,
			supplier, brand, source, changed_at
		FROM price_history
		WHERE ingredient_id = $1
		ORDER BY changed_at DESC, id
		LIMIT $2
	`

	var entries []*domain.PriceHistory
	if err := sqlx.SelectContext(ctx, r.db, &entries, query, ingredientID, limit); err != nil {
		return nil, fmt.Errorf("failed to list price history: %w", err)
	}

	return entries, nil
}

// insertPriceHistory writes entry through any handle, inside a transaction
// or not. Missing ids and timestamps are filled in.
func insertPriceHistory(ctx context.Context, exec sqlx.ExecerContext, entry *domain.PriceHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO price_history (
			id, ingredient_id, old_price, new_price, change_percent,
			supplier, brand, source, changed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := exec.ExecContext(ctx, query,
		entry.ID,
		entry.IngredientID,
		entry.OldPrice,
		entry.NewPrice,
		entry.ChangePercent,
		entry.Supplier,
		entry.Brand,
		entry.Source,
		entry.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert price history: %w", err)
	}

	return nil
}
