package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/andresuchdata/recipecost/internal/domain"
	"github.com/andresuchdata/recipecost/internal/normalize"
	"github.com/andresuchdata/recipecost/internal/pricelist"
	"github.com/andresuchdata/recipecost/internal/service"
)

// IngredientService is the ingredient use case surface the handler needs.
type IngredientService interface {
	Create(ctx context.Context, ingredient *domain.Ingredient) (*domain.Ingredient, error)
	Get(ctx context.Context, id string) (*domain.Ingredient, error)
	List(ctx context.Context, filter domain.IngredientFilter) ([]*domain.Ingredient, error)
	UpdatePrice(ctx context.Context, id string, change service.PriceChange) (*service.PriceUpdate, error)
	PriceHistory(ctx context.Context, id string, limit int) ([]*domain.PriceHistory, error)
	ImportPrices(ctx context.Context, rows []pricelist.Row) (*service.ImportReport, error)
}

type createIngredientRequest struct {
	ID         string        `json:"id" validate:"omitempty,max=64"`
	Name       string        `json:"name" validate:"required,max=200"`
	Unit       domain.Unit   `json:"unit" validate:"omitempty,oneof=kg g l ml unit"`
	PricePerKg domain.Amount `json:"price_per_kg" validate:"gte=0"`
	Brand      string        `json:"brand" validate:"max=200"`
	Supplier   string        `json:"supplier" validate:"max=200"`
	Category   string        `json:"category" validate:"max=100"`
	Active     *bool         `json:"active"`
}

type updatePriceRequest struct {
	// Price is a JSON number or a numeric string ("12,50"). Unlike recipe
	// form fields it is never coerced: unparseable input is rejected.
	Price    any    `json:"price"`
	Source   string `json:"source" validate:"omitempty,oneof=manual import cli"`
	Supplier string `json:"supplier" validate:"max=200"`
	Brand    string `json:"brand" validate:"max=200"`
}

// strictPrice reads a price that must be present, parseable and non-negative.
func strictPrice(v any) (float64, error) {
	var (
		price float64
		ok    bool
	)
	switch p := v.(type) {
	case nil:
		return 0, errors.New("price is required")
	case float64:
		price, ok = p, true
	case string:
		price, ok = normalize.ParseNumber(p)
	}
	if !ok || normalize.Finite(price) != price {
		return 0, fmt.Errorf("price %v is not a number", v)
	}
	if price < 0 {
		return 0, errors.New("price must not be negative")
	}
	return price, nil
}

type IngredientHandler struct {
	service   IngredientService
	validator *validator.Validate
}

func NewIngredientHandler(service IngredientService, validate *validator.Validate) *IngredientHandler {
	if validate == nil {
		validate = NewValidator()
	}
	return &IngredientHandler{service: service, validator: validate}
}

func (h *IngredientHandler) List(c *gin.Context) {
	filter := domain.IngredientFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Search:   strings.TrimSpace(c.Query("search")),
	}
	if include, err := strconv.ParseBool(c.DefaultQuery("include_inactive", "false")); err == nil {
		filter.IncludeInactive = include
	}

	ingredients, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		errorResponse(c, statusFor(err), "failed to fetch ingredients", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ingredients})
}

func (h *IngredientHandler) Get(c *gin.Context) {
	ingredient, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, statusFor(err), "failed to fetch ingredient", err)
		return
	}

	c.JSON(http.StatusOK, ingredient)
}

func (h *IngredientHandler) Create(c *gin.Context) {
	var req createIngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid ingredient body", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid ingredient", err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	created, err := h.service.Create(c.Request.Context(), &domain.Ingredient{
		ID:         strings.TrimSpace(req.ID),
		Name:       req.Name,
		Unit:       req.Unit,
		PricePerKg: req.PricePerKg.Float(),
		Brand:      req.Brand,
		Supplier:   req.Supplier,
		Category:   req.Category,
		Active:     active,
	})
	if err != nil {
		errorResponse(c, statusFor(err), "failed to create ingredient", err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// UpdatePrice stores the new price and pushes it into every recipe using the
// ingredient. The response carries the propagation report.
func (h *IngredientHandler) UpdatePrice(c *gin.Context) {
	var req updatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid price body", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid price", err)
		return
	}
	price, err := strictPrice(req.Price)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid price", err)
		return
	}

	update, err := h.service.UpdatePrice(c.Request.Context(), c.Param("id"), service.PriceChange{
		Price:    price,
		Source:   domain.PriceSource(req.Source),
		Supplier: req.Supplier,
		Brand:    req.Brand,
	})
	if err != nil {
		if update != nil {
			// the price is stored, only propagation failed
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "price saved but recipes were not updated",
				"details": err.Error(),
				"update":  update,
			})
			return
		}
		errorResponse(c, statusFor(err), "failed to update price", err)
		return
	}

	c.JSON(http.StatusOK, update)
}

func (h *IngredientHandler) PriceHistory(c *gin.Context) {
	limit := 0
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}

	entries, err := h.service.PriceHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		errorResponse(c, statusFor(err), "failed to fetch price history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// ImportPrices applies a supplier price sheet uploaded as the "file" form
// field (CSV or XLSX).
func (h *IngredientHandler) ImportPrices(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "no file provided", err)
		return
	}

	file, err := header.Open()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "failed to open uploaded file", err)
		return
	}
	defer file.Close()

	rows, err := pricelist.Read(header.Filename, file)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid price list", err)
		return
	}

	report, err := h.service.ImportPrices(c.Request.Context(), rows)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "price import interrupted", err)
		return
	}

	c.JSON(http.StatusOK, report)
}
