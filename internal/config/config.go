package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/triadic/internal/collab"
	"github.com/roach88/triadic/internal/kernel"
	"github.com/roach88/triadic/internal/stream"
)

//go:embed schema.cue
var schemaCUE string

// Config is the full engine configuration.
type Config struct {
	TickInterval time.Duration

	MaxConcurrent    int
	ActivationSteps  int
	CompletionCycles int
	LatencyWindow    int

	DecayRate           float64
	ActivationThreshold float64
	StrengthenRate      float64
	MemoryCapacity      int
	PatternThreshold    float64
	ConfidenceJitter    float64
	TensorDim           int
	Seed                uint64

	// JournalPath is the SQLite journal file. Empty disables the journal.
	JournalPath string
	// SnapshotEvery is the number of ticks between process table
	// snapshots. Zero disables snapshots.
	SnapshotEvery     int
	MemorySearchLimit int
	RetryAttempts     int
	RetryBackoff      time.Duration
}

// Default returns the stock configuration.
func Default() Config {
	kc := kernel.DefaultConfig()
	sp := stream.DefaultParams()
	rp := collab.DefaultRetryPolicy()
	return Config{
		TickInterval:        100 * time.Millisecond,
		MaxConcurrent:       kc.MaxConcurrent,
		ActivationSteps:     kc.ActivationSteps,
		CompletionCycles:    kc.CompletionCycles,
		LatencyWindow:       kc.LatencyWindow,
		DecayRate:           sp.DecayRate,
		ActivationThreshold: sp.ActivationThreshold,
		StrengthenRate:      sp.StrengthenRate,
		MemoryCapacity:      sp.MemoryCapacity,
		PatternThreshold:    sp.PatternThreshold,
		ConfidenceJitter:    sp.ConfidenceJitter,
		TensorDim:           sp.TensorDim,
		Seed:                sp.Seed,
		SnapshotEvery:       12,
		MemorySearchLimit:   5,
		RetryAttempts:       rp.MaxAttempts,
		RetryBackoff:        rp.Backoff.InitialDelay,
	}
}

// Kernel returns the kernel tuning described by c.
func (c Config) Kernel() kernel.Config {
	return kernel.Config{
		MaxConcurrent:    c.MaxConcurrent,
		ActivationSteps:  c.ActivationSteps,
		CompletionCycles: c.CompletionCycles,
		LatencyWindow:    c.LatencyWindow,
		Stream: stream.Params{
			DecayRate:           c.DecayRate,
			ActivationThreshold: c.ActivationThreshold,
			StrengthenRate:      c.StrengthenRate,
			MemoryCapacity:      c.MemoryCapacity,
			PatternThreshold:    c.PatternThreshold,
			ConfidenceJitter:    c.ConfidenceJitter,
			TensorDim:           c.TensorDim,
			Seed:                c.Seed,
		},
	}
}

// Retry returns the collaborator retry policy described by c.
func (c Config) Retry() collab.RetryPolicy {
	rp := collab.DefaultRetryPolicy()
	rp.MaxAttempts = c.RetryAttempts
	rp.Backoff.InitialDelay = c.RetryBackoff
	return rp
}

// Validate reports every out-of-range field.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	unit := func(v float64) bool { return v >= 0 && v <= 1 }

	check(c.TickInterval > 0, "tick_interval must be positive, got %s", c.TickInterval)
	check(c.MaxConcurrent >= 1, "max_concurrent must be >= 1, got %d", c.MaxConcurrent)
	check(c.ActivationSteps >= 1, "activation_steps must be >= 1, got %d", c.ActivationSteps)
	check(c.CompletionCycles >= 1, "completion_cycles must be >= 1, got %d", c.CompletionCycles)
	check(c.LatencyWindow >= 1, "latency_window must be >= 1, got %d", c.LatencyWindow)
	check(unit(c.DecayRate), "decay_rate must be in [0,1], got %v", c.DecayRate)
	check(unit(c.ActivationThreshold), "activation_threshold must be in [0,1], got %v", c.ActivationThreshold)
	check(unit(c.StrengthenRate), "strengthen_rate must be in [0,1], got %v", c.StrengthenRate)
	check(c.MemoryCapacity >= 1, "memory_capacity must be >= 1, got %d", c.MemoryCapacity)
	check(unit(c.PatternThreshold), "pattern_threshold must be in [0,1], got %v", c.PatternThreshold)
	check(unit(c.ConfidenceJitter), "confidence_jitter must be in [0,1], got %v", c.ConfidenceJitter)
	check(c.TensorDim >= 1, "tensor_dim must be >= 1, got %d", c.TensorDim)
	check(c.SnapshotEvery >= 0, "snapshot_every must be >= 0, got %d", c.SnapshotEvery)
	check(c.MemorySearchLimit >= 0, "memory_search_limit must be >= 0, got %d", c.MemorySearchLimit)
	check(c.RetryAttempts >= 1, "retry_attempts must be >= 1, got %d", c.RetryAttempts)
	check(c.RetryBackoff >= 0, "retry_backoff must be >= 0, got %s", c.RetryBackoff)
	return errors.Join(errs...)
}

// fileConfig is the on-disk shape shared by every format. Nil fields keep
// their defaults.
type fileConfig struct {
	TickInterval        *string  `json:"tick_interval" yaml:"tick_interval" toml:"tick_interval"`
	MaxConcurrent       *int     `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent"`
	ActivationSteps     *int     `json:"activation_steps" yaml:"activation_steps" toml:"activation_steps"`
	CompletionCycles    *int     `json:"completion_cycles" yaml:"completion_cycles" toml:"completion_cycles"`
	LatencyWindow       *int     `json:"latency_window" yaml:"latency_window" toml:"latency_window"`
	DecayRate           *float64 `json:"decay_rate" yaml:"decay_rate" toml:"decay_rate"`
	ActivationThreshold *float64 `json:"activation_threshold" yaml:"activation_threshold" toml:"activation_threshold"`
	StrengthenRate      *float64 `json:"strengthen_rate" yaml:"strengthen_rate" toml:"strengthen_rate"`
	MemoryCapacity      *int     `json:"memory_capacity" yaml:"memory_capacity" toml:"memory_capacity"`
	PatternThreshold    *float64 `json:"pattern_threshold" yaml:"pattern_threshold" toml:"pattern_threshold"`
	ConfidenceJitter    *float64 `json:"confidence_jitter" yaml:"confidence_jitter" toml:"confidence_jitter"`
	TensorDim           *int     `json:"tensor_dim" yaml:"tensor_dim" toml:"tensor_dim"`
	Seed                *uint64  `json:"seed" yaml:"seed" toml:"seed"`
	JournalPath         *string  `json:"journal_path" yaml:"journal_path" toml:"journal_path"`
	SnapshotEvery       *int     `json:"snapshot_every" yaml:"snapshot_every" toml:"snapshot_every"`
	MemorySearchLimit   *int     `json:"memory_search_limit" yaml:"memory_search_limit" toml:"memory_search_limit"`
	RetryAttempts       *int     `json:"retry_attempts" yaml:"retry_attempts" toml:"retry_attempts"`
	RetryBackoff        *string  `json:"retry_backoff" yaml:"retry_backoff" toml:"retry_backoff"`
}

func (f fileConfig) apply(c *Config) error {
	if f.TickInterval != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*f.TickInterval))
		if err != nil {
			return fmt.Errorf("parse tick_interval: %w", err)
		}
		c.TickInterval = d
	}
	if f.RetryBackoff != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*f.RetryBackoff))
		if err != nil {
			return fmt.Errorf("parse retry_backoff: %w", err)
		}
		c.RetryBackoff = d
	}
	setInt(&c.MaxConcurrent, f.MaxConcurrent)
	setInt(&c.ActivationSteps, f.ActivationSteps)
	setInt(&c.CompletionCycles, f.CompletionCycles)
	setInt(&c.LatencyWindow, f.LatencyWindow)
	setInt(&c.MemoryCapacity, f.MemoryCapacity)
	setInt(&c.TensorDim, f.TensorDim)
	setInt(&c.SnapshotEvery, f.SnapshotEvery)
	setInt(&c.MemorySearchLimit, f.MemorySearchLimit)
	setInt(&c.RetryAttempts, f.RetryAttempts)
	setFloat(&c.DecayRate, f.DecayRate)
	setFloat(&c.ActivationThreshold, f.ActivationThreshold)
	setFloat(&c.StrengthenRate, f.StrengthenRate)
	setFloat(&c.PatternThreshold, f.PatternThreshold)
	setFloat(&c.ConfidenceJitter, f.ConfidenceJitter)
	if f.Seed != nil {
		c.Seed = *f.Seed
	}
	if f.JournalPath != nil {
		c.JournalPath = strings.TrimSpace(*f.JournalPath)
	}
	return nil
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// Load reads path and overlays it on Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	var f fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		err = decodeCUE(path, data, &f)
	case ".yaml", ".yml":
		err = decodeYAML(data, &f)
	case ".toml":
		err = decodeTOML(data, &f)
	default:
		err = fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	cfg := Default()
	if err := f.apply(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeCUE(path string, data []byte, f *fileConfig) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	user := ctx.CompileBytes(data, cue.Filename(path))
	if err := user.Err(); err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if err := v.Decode(f); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func decodeYAML(data []byte, f *fileConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil {
		// An empty document leaves every default in place.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func decodeTOML(data []byte, f *fileConfig) error {
	meta, err := toml.Decode(string(data), f)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}
