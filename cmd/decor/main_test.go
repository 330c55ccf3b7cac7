package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sghaida/decor/examples"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--log-level", "error"))

	err := cmd.Execute()
	return stdout.String(), err
}

func TestList(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, len(examples.All()))
	assert.Contains(t, out, "singleton")
	assert.Contains(t, out, "one canonical instance")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "decor v"+Version+" ("+GitCommit+")\n", out)
}

func TestRun_NamedScenariosInOrder(t *testing.T) {
	out, err := execute(t, "run", "registry", "metadata")
	require.NoError(t, err)

	registry := strings.Index(out, "== registry:")
	metadata := strings.Index(out, "== metadata:")
	require.True(t, registry >= 0 && metadata > registry, out)
	assert.Contains(t, out, "table of examples.User: users")
	assert.NotContains(t, out, "== singleton:")
}

func TestRun_TimeoutFlagOverridesConfig(t *testing.T) {
	out, err := execute(t, "run", "timeout", "--timeout", "10ms")
	require.NoError(t, err)
	assert.Contains(t, out, "DoSlowly -> result=<nil> timeout=true")
}

func TestRun_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("breaker:\n  min_requests: 2\nmetrics:\n  namespace: cli\n"), 0o644))

	out, err := execute(t, "run", "breaker", "metrics", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "charge 3: circuit breaker is open (open=true)")
	assert.Contains(t, out, "gateway reached 2 times")
	assert.Contains(t, out, "cli_calls_total{member=examples.PaymentGateway.Refund,outcome=ok} 2")
}

func TestRun_Errors(t *testing.T) {
	_, err := execute(t, "run", "nope", "metadata", "other")
	require.Error(t, err)
	assert.Equal(t, "unknown scenario(s): nope, other (see decor list)", err.Error())

	_, err = execute(t, "list", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = execute(t, "list", "--log-format", "xml")
	assert.Error(t, err)
}

func TestRun_All(t *testing.T) {
	if testing.Short() {
		t.Skip("runs every scenario")
	}

	out, err := execute(t, "run", "--timeout", "10ms")
	require.NoError(t, err)
	for _, s := range examples.All() {
		assert.Contains(t, out, "== "+s.Name+": ")
	}
}
