package postgres

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/recipecost/internal/domain"
)

// buildRecipeFilterClause constructs the WHERE clause for recipe listings
func buildRecipeFilterClause(filter domain.RecipeFilter, startIndex int) (string, []interface{}, int) {
	var (
		clauses []string
		args    []interface{}
	)
	idx := startIndex

	if filter.Category != "" {
		clauses = append(clauses, fmt.Sprintf("category = $%d", idx))
		args = append(args, filter.Category)
		idx++
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		clauses = append(clauses, fmt.Sprintf("name ILIKE $%d", idx))
		args = append(args, "%"+search+"%")
		idx++
	}

	return whereClause(clauses), args, idx
}

// buildIngredientFilterClause constructs the WHERE clause for ingredient listings
func buildIngredientFilterClause(filter domain.IngredientFilter, startIndex int) (string, []interface{}, int) {
	var (
		clauses []string
		args    []interface{}
	)
	idx := startIndex

	if !filter.IncludeInactive {
		clauses = append(clauses, "active = TRUE")
	}

	if filter.Category != "" {
		clauses = append(clauses, fmt.Sprintf("category = $%d", idx))
		args = append(args, filter.Category)
		idx++
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR brand ILIKE $%d OR supplier ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+search+"%")
		idx++
	}

	return whereClause(clauses), args, idx
}

func whereClause(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

// paginate appends LIMIT/OFFSET when a page size is requested.
func paginate(page, pageSize, startIndex int) (string, []interface{}) {
	if pageSize <= 0 {
		return "", nil
	}
	if page < 1 {
		page = 1
	}
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", startIndex, startIndex+1), []interface{}{pageSize, (page - 1) * pageSize}
}
