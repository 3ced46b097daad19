package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/triadic/internal/stepclock"
)

// ClockRow describes one absolute step and everything derived from it.
type ClockRow struct {
	Address     stepclock.StepAddress          `json:"address"`
	Delay       stepclock.DoubleStepDelayState `json:"double_step_delay"`
	Primary     string                         `json:"primary_stream"`
	Pair        stepclock.ThreadPair           `json:"dyadic_pair"`
	Permutation stepclock.TriadicPermutation   `json:"triadic_permutation"`
	// StreamStep is the position on the 12-step stream cycle.
	StreamStep int                   `json:"stream_step"`
	Profile    stepclock.StepProfile `json:"profile"`
	Triad      stepclock.Triad       `json:"triad"`
}

// ClockTable is the full 30-step address table.
type ClockTable struct {
	Rows []ClockRow `json:"rows"`
}

// RenderText implements textRenderer.
func (t ClockTable) RenderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ABS\tPHASE\tSTAGE\tSTEP\tDELAY\tPRIMARY\tPAIR\tMP1\tMP2\tS12\tMODE\tTYPE\tTRIAD")
	for _, r := range t.Rows {
		d := r.Delay
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d%s/%d\t%s\t%d-%d\t%v\t%v\t%d\t%s\t%s\t%v\n",
			r.Address.Absolute, r.Address.Phase, r.Address.Stage, r.Address.Step,
			d.State, d.Dyad, d.Triad,
			r.Primary,
			r.Pair.A, r.Pair.B,
			r.Permutation.MP1, r.Permutation.MP2,
			r.StreamStep, r.Profile.Mode, r.Profile.StepType, r.Triad,
		)
	}
	return tw.Flush()
}

// NewClockCommand creates the clock command.
func NewClockCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clock",
		Short: "Print the step address table",
		Long: `Print the 30-step address table with the derived double step delay
state, primary stream, dyadic pair and triadic permutations of every step,
alongside its position on the 12-step stream cycle.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := BuildClockTable()
			if err != nil {
				return WrapExitError(ExitFailure, "failed to build clock table", err)
			}
			return rootOpts.formatter(cmd).Success(table)
		},
	}
	return cmd
}

// BuildClockTable derives every row of the 30-step table.
func BuildClockTable() (ClockTable, error) {
	rows := make([]ClockRow, 0, stepclock.AddressCycleLen)
	for abs := 1; abs <= stepclock.AddressCycleLen; abs++ {
		addr, err := stepclock.ToStepAddress(abs)
		if err != nil {
			return ClockTable{}, err
		}
		s12 := stepclock.Cycle12.Wrap(int64(abs))
		profile, err := stepclock.Cycle12.At(s12)
		if err != nil {
			return ClockTable{}, err
		}
		rows = append(rows, ClockRow{
			Address:     addr,
			Delay:       stepclock.DoubleStepDelay(abs),
			Primary:     stepclock.PrimaryStream(abs).String(),
			Pair:        stepclock.DyadicPair(abs),
			Permutation: stepclock.TriadicPermutations(abs),
			StreamStep:  s12,
			Profile:     profile,
			Triad:       stepclock.Triads[stepclock.TriadOf(s12)],
		})
	}
	return ClockTable{Rows: rows}, nil
}
