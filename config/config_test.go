package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a69/fnkit.go/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	t.Setenv("K_SERVICE", "")
	t.Setenv("FUNCTION_TARGET", "")
	t.Setenv("SERVICE_NAME", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "function.definition", cfg.RoutingHeader)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "fnkit", cfg.Metrics.Namespace)
	assert.Zero(t, cfg.RateLimit.Limit)
	assert.Equal(t, "none", cfg.Breaker.Kind)
	assert.Equal(t, 30*time.Second, cfg.Breaker.Timeout)
	assert.Equal(t, "8000", cfg.Local.Port)
	assert.Equal(t, "fnkit", cfg.ServiceName)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("FUNCTION_DEFINITION", "uppercase")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "logfmt")
	t.Setenv("RATE_LIMIT", "2.5")
	t.Setenv("RATE_BURST", "5")
	t.Setenv("RATE_MODE", "wait")
	t.Setenv("BREAKER", "gobreaker")
	t.Setenv("BREAKER_TIMEOUT", "5s")
	t.Setenv("TRACING_OPENCENSUS", "true")
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "my-func")
	t.Setenv("SERVICE_NAME", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "uppercase", cfg.Definition)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "logfmt", cfg.Log.Format)
	assert.Equal(t, 2.5, cfg.RateLimit.Limit)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, "wait", cfg.RateLimit.Mode)
	assert.Equal(t, "gobreaker", cfg.Breaker.Kind)
	assert.Equal(t, 5*time.Second, cfg.Breaker.Timeout)
	assert.True(t, cfg.Tracing.OpenCensus)
	assert.Equal(t, "my-func", cfg.ServiceName)
	assert.True(t, config.IsLambda())
}

func TestLoadRejectsUnknownValues(t *testing.T) {
	for key, value := range map[string]string{
		"LOG_FORMAT": "xml",
		"LOG_LEVEL":  "chatty",
		"RATE_MODE":  "drop",
		"BREAKER":    "fuse",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := config.Load()
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestIsGCF(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	t.Setenv("K_SERVICE", "")
	t.Setenv("FUNCTION_TARGET", "")
	assert.False(t, config.IsGCF())
	t.Setenv("K_SERVICE", "svc")
	assert.True(t, config.IsGCF())
	assert.Equal(t, "svc", config.HostFunctionName())
}
