package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/triadic/internal/collab"
	"github.com/roach88/triadic/internal/config"
	"github.com/roach88/triadic/internal/engine"
	"github.com/roach88/triadic/internal/event"
	"github.com/roach88/triadic/internal/kernel"
	"github.com/roach88/triadic/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath string
	Database   string
	Ticks      int64
	Interval   time.Duration
	Messages   []string
	Priority   int
	Remember   []string

	// IDGenerator allows overriding process ids (for testing).
	// If nil, the kernel mints UUIDv7 ids.
	IDGenerator kernel.IDGenerator
}

// ProcessSummary is one row of the run summary.
type ProcessSummary struct {
	ID       string       `json:"id"`
	Subject  string       `json:"subject"`
	State    kernel.State `json:"state"`
	Step     int          `json:"step"`
	Response string       `json:"response,omitempty"`
}

// RunSummary is printed when the engine stops.
type RunSummary struct {
	Ticks     int64            `json:"ticks"`
	Metrics   kernel.Metrics   `json:"metrics"`
	Processes []ProcessSummary `json:"processes"`
}

// RenderText implements textRenderer.
func (s RunSummary) RenderText(w io.Writer) error {
	m := s.Metrics
	fmt.Fprintf(w, "Stopped after %d ticks (%d cycles)\n", s.Ticks, m.TotalCycles)
	fmt.Fprintf(w, "Completed: %d  avg latency: %.2f ticks  load: %.2f  coherence: %.3f\n",
		m.ProcessesCompleted, m.AverageLatency, m.CognitiveLoad, m.StreamCoherence)
	if m.SkippedCombinations > 0 {
		fmt.Fprintf(w, "Skipped tensor combinations: %d\n", m.SkippedCombinations)
	}
	for _, p := range s.Processes {
		fmt.Fprintf(w, "  %-12s step %-2d %s", p.State, p.Step, p.Subject)
		if p.Response != "" {
			fmt.Fprintf(w, " -> %s", p.Response)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine",
		Long: `Run the cognitive cycle engine on its tick cadence.

Each --message admits one process before the first tick. With --db the
engine journals every notification and snapshots the process table into
a SQLite database, and memories are searched there. The engine stops after
--ticks ticks, or on Ctrl-C when --ticks is 0.

Examples:
  triad run --ticks 24 --message "hello" --message "status report"
  triad run --config triad.yaml --db ./triad.db
  triad run --db ./triad.db --remember "greetings are friendly" --message hello`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file (.yaml, .toml or .cue)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite journal path (overrides journal_path)")
	cmd.Flags().Int64Var(&opts.Ticks, "ticks", 0, "stop after N ticks (0 runs until interrupted)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "tick interval (overrides tick_interval)")
	cmd.Flags().StringArrayVarP(&opts.Messages, "message", "m", nil, "admit a process with this subject (repeatable)")
	cmd.Flags().IntVar(&opts.Priority, "priority", 0, "priority for admitted messages")
	cmd.Flags().StringArrayVar(&opts.Remember, "remember", nil, "store a memory before starting (repeatable)")

	return cmd
}

func runEngine(opts *RunOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}
	if opts.Database != "" {
		cfg.JournalPath = opts.Database
	}
	if opts.Interval > 0 {
		cfg.TickInterval = opts.Interval
	}
	if opts.Ticks < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--ticks must be >= 0, got %d", opts.Ticks))
	}

	engOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithCompleter(collab.EchoCompleter{}),
	}
	if opts.IDGenerator != nil {
		engOpts = append(engOpts, engine.WithIDGenerator(opts.IDGenerator))
	}

	var memories collab.MemoryStore = collab.NewInMemoryStore()
	if cfg.JournalPath != "" {
		slog.Info("opening journal", "path", cfg.JournalPath)
		st, err := store.Open(cfg.JournalPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		last, err := st.LastSeq(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		memories = st.Memories()
		engOpts = append(engOpts,
			engine.WithJournal(st),
			engine.WithClock(event.NewClockAt(last)),
		)
		slog.Info("journal ready", "last_seq", last)
	}
	for _, text := range opts.Remember {
		m := collab.Memory{ID: store.MemoryID(text), Content: text, CreatedAt: time.Now().UTC()}
		if err := memories.Store(ctx, m); err != nil {
			return WrapExitError(ExitCommandError, "failed to store memory", err)
		}
	}
	engOpts = append(engOpts, engine.WithMemoryStore(memories))

	eng := engine.New(cfg, engOpts...)
	for _, subject := range opts.Messages {
		eng.Admit(kernel.Request{From: "cli", Subject: subject, Priority: opts.Priority})
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := eng.Run(ctx, opts.Ticks)
	closeErr := eng.Close(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", runErr)
	}
	if closeErr != nil {
		return WrapExitError(ExitFailure, "failed to flush journal", closeErr)
	}
	slog.Info("engine stopped gracefully")

	return opts.formatter(cmd).Success(summarize(eng.Kernel()))
}

func summarize(k *kernel.Kernel) RunSummary {
	snap := k.Snapshot()
	out := RunSummary{
		Ticks:     snap.Tick,
		Metrics:   snap.Metrics,
		Processes: make([]ProcessSummary, 0, len(snap.Processes)),
	}
	for _, p := range snap.Processes {
		out.Processes = append(out.Processes, ProcessSummary{
			ID:       p.ID,
			Subject:  p.Subject,
			State:    p.State,
			Step:     p.CurrentStep,
			Response: p.Response,
		})
	}
	return out
}
