package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.Equal(t, 7, cfg.MemoryCapacity)
	assert.Empty(t, cfg.JournalPath)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.MaxConcurrent = 0
	cfg.DecayRate = 1.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent")
	assert.Contains(t, err.Error(), "decay_rate")
}

func TestKernel_Mapping(t *testing.T) {
	cfg := Default()
	cfg.MaxConcurrent = 2
	cfg.DecayRate = 0.3
	cfg.Seed = 42

	kc := cfg.Kernel()
	assert.Equal(t, 2, kc.MaxConcurrent)
	assert.Equal(t, 0.3, kc.Stream.DecayRate)
	assert.Equal(t, uint64(42), kc.Stream.Seed)
	assert.Equal(t, cfg.TensorDim, kc.Stream.TensorDim)
}

func TestRetry_Mapping(t *testing.T) {
	cfg := Default()
	cfg.RetryAttempts = 5
	cfg.RetryBackoff = time.Second
	rp := cfg.Retry()
	assert.Equal(t, 5, rp.MaxAttempts)
	assert.Equal(t, time.Second, rp.Backoff.InitialDelay)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "triad.yaml", `
tick_interval: 250ms
max_concurrent: 2
decay_rate: 0.2
journal_path: " journal.db "
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 2, cfg.MaxConcurrent)
	assert.Equal(t, 0.2, cfg.DecayRate)
	assert.Equal(t, "journal.db", cfg.JournalPath)
	// Untouched keys keep defaults.
	assert.Equal(t, Default().ActivationSteps, cfg.ActivationSteps)
}

func TestLoad_YAMLEmpty(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLUnknownField(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "max_concurent: 2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurent")
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "triad.toml", `
tick_interval = "1s"
completion_cycles = 2
pattern_threshold = 0.75
seed = 9
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, 2, cfg.CompletionCycles)
	assert.Equal(t, 0.75, cfg.PatternThreshold)
	assert.Equal(t, uint64(9), cfg.Seed)
}

func TestLoad_TOMLUnknownKey(t *testing.T) {
	_, err := Load(writeFile(t, "bad.toml", "bogus = 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestLoad_CUE(t *testing.T) {
	path := writeFile(t, "triad.cue", `
max_concurrent: 8
activation_threshold: 0.05
tensor_dim: 16
retry_backoff: "50ms"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxConcurrent)
	assert.Equal(t, 0.05, cfg.ActivationThreshold)
	assert.Equal(t, 16, cfg.TensorDim)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryBackoff)
}

func TestLoad_CUEOutOfBounds(t *testing.T) {
	_, err := Load(writeFile(t, "bad.cue", "decay_rate: 2\n"))
	assert.Error(t, err)
}

func TestLoad_CUEUnknownField(t *testing.T) {
	_, err := Load(writeFile(t, "bad.cue", "unknown_field: 1\n"))
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "tick_interval: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick_interval")
}

func TestLoad_InvalidAfterOverlay(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "max_concurrent: 0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load(writeFile(t, "triad.json", "{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
