package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPropagation(t *testing.T) {
	c := NewCollector()

	c.RecordPropagation(3, 1, 20*time.Millisecond)
	c.RecordPropagation(2, 0, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.propagations))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.propagatedRecipes.WithLabelValues("updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.propagatedRecipes.WithLabelValues("failed")))
}

func TestRecordCalculationAndCache(t *testing.T) {
	c := NewCollector()

	c.RecordCalculation("preview")
	c.RecordCalculation("preview")
	c.RecordCalculation("save")
	c.RecordCacheLookup("recipe", true)
	c.RecordCacheLookup("recipe", false)
	c.RecordCacheLookup("recipe", false)
	c.RecordRecalculation(4, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.calculations.WithLabelValues("preview")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.calculations.WithLabelValues("save")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("recipe", "miss")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.recalculations.WithLabelValues("updated")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordCalculation("preview")
		c.RecordPropagation(1, 1, time.Second)
		c.RecordRecalculation(1, 0)
		c.RecordCacheLookup("recipe", true)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.RecordCalculation("save")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `recipecost_calculations_total{trigger="save"} 1`)
}
