package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, time.Second, cfg.Timeout.Default)
	assert.Equal(t, "decor", cfg.Breaker.Name)
	assert.Equal(t, uint32(5), cfg.Breaker.MinRequests)
	assert.Equal(t, 0.8, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.Breaker.Timeout)
	assert.Equal(t, "decor", cfg.Metrics.Namespace)
	assert.Equal(t, "decor", cfg.Trace.ServiceName)
	assert.Empty(t, cfg.Trace.Endpoint)

	w := cfg.Breaker.Wrap()
	assert.Equal(t, cfg.Breaker.Name, w.Name)
	assert.Equal(t, cfg.Breaker.Interval, w.Interval)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
log:
  level: debug
  format: json
timeout:
  default: 250ms
breaker:
  min_requests: 2
  failure_threshold: 0.5
metrics:
  namespace: todos
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "decor.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout.Default)
	assert.Equal(t, uint32(2), cfg.Breaker.MinRequests)
	assert.Equal(t, 0.5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, "todos", cfg.Metrics.Namespace)
	assert.Equal(t, "decor", cfg.Breaker.Name)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DECOR_LOG_LEVEL", "error")
	t.Setenv("DECOR_TIMEOUT_DEFAULT", "3s")
	t.Setenv("DECOR_TRACE_ENDPOINT", "otel-collector:4317")

	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 3*time.Second, cfg.Timeout.Default)
	assert.Equal(t, "otel-collector:4317", cfg.Trace.Endpoint)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"format", "log:\n  format: xml\n", "log.format"},
		{"timeout", "timeout:\n  default: 0s\n", "timeout.default"},
		{"threshold", "breaker:\n  failure_threshold: 2\n", "breaker.failure_threshold"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "decor.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))

			_, err := Load("", path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
