package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/triadic/internal/event"
	"github.com/roach88/triadic/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Kinds    []string
	Process  string
	After    int64
	Limit    int
	Verify   bool
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Events []event.Event `json:"events"`
	Stats  TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Total   int            `json:"total"`
	ByKind  map[string]int `json:"by_kind"`
	LastSeq int64          `json:"last_seq"`
	// Corrupted lists seqs whose stored hash no longer matches (--verify).
	Corrupted []int64 `json:"corrupted,omitempty"`
}

// RenderText implements textRenderer.
func (r TraceResult) RenderText(w io.Writer) error {
	if len(r.Events) == 0 {
		fmt.Fprintln(w, "No events found.")
	}
	for _, ev := range r.Events {
		fmt.Fprintf(w, "%6d  t=%-5d %-19s %s\n", ev.Seq, ev.Tick, ev.Kind, describeEvent(ev))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d events (journal last seq %d)\n", r.Stats.Total, r.Stats.LastSeq)
	for _, k := range event.Kinds {
		if n := r.Stats.ByKind[string(k)]; n > 0 {
			fmt.Fprintf(w, "  %-19s %d\n", k, n)
		}
	}
	if len(r.Stats.Corrupted) > 0 {
		fmt.Fprintf(w, "Corrupted rows: %v\n", r.Stats.Corrupted)
	}
	return nil
}

func describeEvent(ev event.Event) string {
	var parts []string
	add := func(format string, args ...any) {
		parts = append(parts, fmt.Sprintf(format, args...))
	}
	switch ev.Kind {
	case event.KindProcessCreated:
		add("process=%s priority=%d", ev.ProcessID, ev.Priority)
		if ev.ParentID != "" {
			add("parent=%s", ev.ParentID)
		}
	case event.KindStepAdvance:
		add("process=%s step=%d state=%s", ev.ProcessID, ev.Step, ev.State)
	case event.KindTriadConvergence:
		add("triad=%v", ev.Triad)
	case event.KindCycleComplete:
		add("cycle=%d", ev.Cycle)
	case event.KindCouplingActivated:
		add("process=%s coupling=%s", ev.ProcessID, ev.Coupling)
	case event.KindPatternRecognized:
		add("stream=%d pattern=%s confidence=%.3f", ev.StreamID, ev.Pattern, ev.Confidence)
	case event.KindAttentionShifted:
		add("stream=%d focus=%s", ev.StreamID, ev.Focus)
	}
	return strings.Join(parts, " ")
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Read the notification journal",
		Long: `Read notifications journaled by "triad run --db".

Events are listed in sequence order and can be narrowed by kind, process
and sequence number. --verify recomputes every row's content hash and
fails when any row was altered.

Examples:
  triad trace --db ./triad.db
  triad trace --db ./triad.db --kind step_advance --process 0190f3b2-...
  triad trace --db ./triad.db --kind triad_convergence --kind cycle_complete --limit 20
  triad trace --db ./triad.db --verify --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringArrayVar(&opts.Kinds, "kind", nil, "only this event kind (repeatable)")
	cmd.Flags().StringVar(&opts.Process, "process", "", "only events for this process id")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only events with seq greater than this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 for all)")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "verify journal content hashes")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	filter := store.EventFilter{ProcessID: opts.Process, AfterSeq: opts.After, Limit: opts.Limit}
	for _, name := range opts.Kinds {
		k, err := event.ParseKind(name)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --kind", err)
		}
		filter.Kinds = append(filter.Kinds, k)
	}

	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database), err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	events, err := st.ReadEvents(ctx, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	last, err := st.LastSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := TraceResult{
		Events: events,
		Stats: TraceStats{
			Total:   len(events),
			ByKind:  make(map[string]int),
			LastSeq: last,
		},
	}
	for _, ev := range events {
		result.Stats.ByKind[string(ev.Kind)]++
	}

	out := opts.formatter(cmd)
	if opts.Verify {
		bad, err := st.VerifyEvents(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to verify journal", err)
		}
		if len(bad) > 0 {
			result.Stats.Corrupted = bad
			msg := fmt.Sprintf("%d journal row(s) failed hash verification", len(bad))
			if err := out.Failure(ErrCodeCorrupted, msg, result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, msg)
		}
		out.VerboseLog("journal verified: %d rows", last)
	}
	return out.Success(result)
}
