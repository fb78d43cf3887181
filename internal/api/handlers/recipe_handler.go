package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/recipecost/internal/costing"
	"github.com/andresuchdata/recipecost/internal/domain"
	"github.com/andresuchdata/recipecost/internal/service"
)

// RecipeService is the recipe use case surface the handler needs.
type RecipeService interface {
	Preview(recipe *domain.Recipe) service.Preview
	Validate(recipe *domain.Recipe) costing.ValidationResult
	Get(ctx context.Context, id string) (*domain.Recipe, error)
	List(ctx context.Context, filter domain.RecipeFilter) ([]*domain.Recipe, error)
	Save(ctx context.Context, recipe *domain.Recipe) (*domain.Recipe, costing.ValidationResult, error)
	RecalculateAll(ctx context.Context) (*service.RecalcReport, error)
}

type RecipeHandler struct {
	service RecipeService
}

func NewRecipeHandler(service RecipeService) *RecipeHandler {
	return &RecipeHandler{service: service}
}

// Calculate returns live metrics for an unsaved recipe together with its
// validation result. Invalid recipes are still calculated.
func (h *RecipeHandler) Calculate(c *gin.Context) {
	var recipe domain.Recipe
	if err := c.ShouldBindJSON(&recipe); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid recipe body", err)
		return
	}

	c.JSON(http.StatusOK, h.service.Preview(&recipe))
}

func (h *RecipeHandler) Validate(c *gin.Context) {
	var recipe domain.Recipe
	if err := c.ShouldBindJSON(&recipe); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid recipe body", err)
		return
	}

	c.JSON(http.StatusOK, h.service.Validate(&recipe))
}

func (h *RecipeHandler) List(c *gin.Context) {
	filter := domain.RecipeFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Search:   strings.TrimSpace(c.Query("search")),
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil && size > 0 {
		filter.PageSize = size
	}

	recipes, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		errorResponse(c, statusFor(err), "failed to fetch recipes", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": recipes})
}

func (h *RecipeHandler) Get(c *gin.Context) {
	recipe, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, statusFor(err), "failed to fetch recipe", err)
		return
	}

	c.JSON(http.StatusOK, recipe)
}

// Create stores a new recipe; Update replaces the recipe at :id. Both
// recompute the metrics before persisting.
func (h *RecipeHandler) Create(c *gin.Context) {
	h.save(c, "", http.StatusCreated)
}

func (h *RecipeHandler) Update(c *gin.Context) {
	h.save(c, c.Param("id"), http.StatusOK)
}

func (h *RecipeHandler) save(c *gin.Context, id string, status int) {
	var recipe domain.Recipe
	if err := c.ShouldBindJSON(&recipe); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid recipe body", err)
		return
	}
	if id != "" {
		recipe.ID = id
	}

	saved, validation, err := h.service.Save(c.Request.Context(), &recipe)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":      "recipe is invalid",
				"details":    strings.Join(verr.Result.Errors, "; "),
				"validation": verr.Result,
			})
			return
		}
		errorResponse(c, statusFor(err), "failed to save recipe", err)
		return
	}

	c.JSON(status, gin.H{"recipe": saved, "validation": validation})
}

func (h *RecipeHandler) Recalculate(c *gin.Context) {
	report, err := h.service.RecalculateAll(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to recalculate recipes", err)
		return
	}

	c.JSON(http.StatusOK, report)
}
