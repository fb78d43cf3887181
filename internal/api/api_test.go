package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/recipecost/internal/config"
	"github.com/andresuchdata/recipecost/internal/metrics"
	"github.com/andresuchdata/recipecost/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouterHealthAndNoRoute(t *testing.T) {
	r := NewRouter(nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nothing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"route not found"}`, w.Body.String())
}

func TestRouterServesMetricsAndRecipes(t *testing.T) {
	collector := metrics.NewCollector()
	recipes := service.NewRecipeService(nil, nil, config.CostingConfig{PriceCeiling: 1000}, collector)
	r := NewRouter(&Services{RecipeService: recipes, Metrics: collector, MetricsPath: "/internal/metrics"}, []string{"*"})

	body := `{"name":"Stock","category":"base","preparations":[{"id":"p1","processes":["cooking"],
		"ingredients":[{"id":"bones","name":"bones","current_price":4,"weight_pre_cooking":2,"weight_cooked":1}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes/calculate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cost_per_kg_yield":8`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `recipecost_calculations_total{trigger="preview"} 1`)
}

func TestRouterCORS(t *testing.T) {
	r := NewRouter(nil, []string{"https://kitchen.example.com, https://ops.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "https://ops.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"a.com, b.com", " ", "*"})
	assert.Equal(t, []string{"a.com", "b.com"}, origins)
	assert.True(t, all)
}
