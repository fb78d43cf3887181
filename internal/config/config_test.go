package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFreshDefaults(t *testing.T) {
	cfg := LoadFresh()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 1000.0, cfg.Costing.PriceCeiling)
	assert.Equal(t, 4, cfg.Costing.PropagationWorkers)
	assert.Equal(t, 10*time.Second, cfg.Costing.PersistTimeout)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadFreshReadsEnvironment(t *testing.T) {
	t.Setenv("COSTING_PRICE_CEILING", "250.5")
	t.Setenv("COSTING_PROPAGATION_WORKERS", "12")
	t.Setenv("COSTING_PERSIST_TIMEOUT", "3s")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("CACHE_RECIPE_TTL_SECONDS", "42")

	cfg := LoadFresh()

	assert.Equal(t, 250.5, cfg.Costing.PriceCeiling)
	assert.Equal(t, 12, cfg.Costing.PropagationWorkers)
	assert.Equal(t, 3*time.Second, cfg.Costing.PersistTimeout)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 42, cfg.Cache.RecipeTTLSeconds)
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "h", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", db.DSN())

	db.URL = "postgres://u:p@h/d"
	assert.Equal(t, "postgres://u:p@h/d", db.DSN())
}
