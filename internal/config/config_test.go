package config

import (
	"testing"
	"time"

	"scifig/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SCIFIG_ALPHA", "SCIFIG_TTEST_MIN_SAMPLE", "SCIFIG_MAX_ROWS", "SCIFIG_CONFIDENCE", "PORT", "DATABASE_URL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultEngineConfig(), cfg.Engine)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "", cfg.Database.URL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SCIFIG_ALPHA", "0.01")
	t.Setenv("SCIFIG_TTEST_MIN_SAMPLE", "20")
	t.Setenv("SCIFIG_MAX_ROWS", "500")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.01, cfg.Engine.Alpha)
	assert.Equal(t, 20, cfg.Engine.TTestMinSample)
	assert.Equal(t, 500, cfg.Engine.MaxRows)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("SCIFIG_ALPHA", "five percent")
	t.Setenv("SCIFIG_TTEST_MIN_SAMPLE", "thirty")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.05, cfg.Engine.Alpha)
	assert.Equal(t, 30, cfg.Engine.TTestMinSample)
}

func TestValidateEngine(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EngineConfig)
	}{
		{"alpha zero", func(c *EngineConfig) { c.Alpha = 0 }},
		{"alpha one", func(c *EngineConfig) { c.Alpha = 1 }},
		{"tiny t-test gate", func(c *EngineConfig) { c.TTestMinSample = 1 }},
		{"negative max rows", func(c *EngineConfig) { c.MaxRows = -1 }},
		{"confidence above one", func(c *EngineConfig) { c.Confidence = 1.2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEngineConfig()
			tt.mutate(&cfg)
			err := ValidateEngine(cfg)
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}

	assert.NoError(t, ValidateEngine(DefaultEngineConfig()))
}

func TestLoadRejectsInvalidAlpha(t *testing.T) {
	t.Setenv("SCIFIG_ALPHA", "1.5")
	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
