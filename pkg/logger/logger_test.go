package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")

	SetLevel("debug")
	assert.Equal(t, zerolog.DebugLevel, Log.GetLevel())

	SetLevel("release")
	assert.Equal(t, zerolog.InfoLevel, Log.GetLevel())

	SetLevel("not-a-level")
	assert.Equal(t, zerolog.InfoLevel, Log.GetLevel())
}

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Info().Str("recipe_id", "r1").Msg("recalculated")

	assert.Contains(t, buf.String(), `"recipe_id":"r1"`)
	assert.Contains(t, buf.String(), `"message":"recalculated"`)
}
