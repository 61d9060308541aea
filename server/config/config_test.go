package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)

	assert.Equal(t, 300, cfg.Analysis.HistoryCapacity)
	assert.Equal(t, 60, cfg.Analysis.DefaultDurationSeconds)
	assert.Equal(t, 5, cfg.Analysis.SmoothingWindow)
	assert.InDelta(t, 0.5, cfg.Analysis.VisibilityThreshold, 1e-9)
	assert.Equal(t, 10, cfg.Analysis.InsightsMinSamples)
	assert.Equal(t, 500*time.Millisecond, cfg.Analysis.CompletionPollInterval)

	assert.Equal(t, "pose-analyzer.db", cfg.Storage.DatabasePath)

	require.NoError(t, cfg.ValidateConfig(zap.NewNop()))
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ANALYSIS_SMOOTHING_WINDOW", "8")
	t.Setenv("ANALYSIS_VISIBILITY_THRESHOLD", "0.7")
	t.Setenv("ANALYSIS_COMPLETION_POLL", "250ms")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Analysis.SmoothingWindow)
	assert.InDelta(t, 0.7, cfg.Analysis.VisibilityThreshold, 1e-9)
	assert.Equal(t, 250*time.Millisecond, cfg.Analysis.CompletionPollInterval)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Security.AllowedOrigins)
}

func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("ANALYSIS_VISIBILITY_THRESHOLD", "high")

	cfg := LoadConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 0.5, cfg.Analysis.VisibilityThreshold, 1e-9)
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	logger := zap.NewNop()

	cfg := LoadConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.ValidateConfig(logger))

	cfg = LoadConfig()
	cfg.Analysis.SmoothingWindow = 1
	assert.Error(t, cfg.ValidateConfig(logger))

	cfg = LoadConfig()
	cfg.Analysis.HistoryCapacity = 3
	assert.Error(t, cfg.ValidateConfig(logger))

	cfg = LoadConfig()
	cfg.Analysis.VisibilityThreshold = 1.5
	assert.Error(t, cfg.ValidateConfig(logger))

	cfg = LoadConfig()
	cfg.Storage.DatabasePath = ""
	assert.Error(t, cfg.ValidateConfig(logger))
}
