package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/randalmurphal/triggerflow/internal/simulate"
	"github.com/randalmurphal/triggerflow/pkg/triggerflow"
	"github.com/spf13/cobra"
)

// errSimulationFailed is returned when a top-level step failed, so the
// process exits non-zero after the report is printed.
var errSimulationFailed = errors.New("simulation had failing steps")

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	var failFast bool

	cmd := &cobra.Command{
		Use:   "simulate <script>",
		Short: "Run a scripted unit of work",
		Long: `Run the steps of a YAML simulation script in one unit of work and print
what happened to each: dispatched, suppressed, skipped, refused or failed.
The script's own settings section wins over --config.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := simulate.Load(args[0])
			if err != nil {
				return err
			}

			runOpts := []simulate.Option{
				simulate.WithLogger(opts.logger),
				simulate.WithFailFast(failFast),
			}
			if len(script.Settings) == 0 {
				settings, ok, err := opts.settings()
				if err != nil {
					return err
				}
				if ok {
					runOpts = append(runOpts, simulate.WithUnitOptions(triggerflow.WithSettings(settings)))
				}
			}

			runner, err := simulate.New(script, runOpts...)
			if err != nil {
				return err
			}
			report, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			if err := printReport(cmd, report); err != nil {
				return err
			}
			if report.Failed() {
				return errSimulationFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first failing step")
	return cmd
}

func printReport(cmd *cobra.Command, report simulate.Report) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Unit of work %s\n\n", report.UnitID)

	table := tablewriter.NewWriter(out)
	table.Header("Step", "Action", "Handler", "Phase", "Result")
	var failed []simulate.Result
	for _, res := range report.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
		step := strings.Repeat("  ", res.Depth) + res.Path
		if err := table.Append(step, res.Action, res.Handler, res.Phase, string(res.Outcome)); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	if len(failed) > 0 {
		fmt.Fprintln(out, "Errors:")
		for _, res := range failed {
			fmt.Fprintf(out, "  %s: error: %v\n", res.Path, res.Err)
		}
		fmt.Fprintln(out)
	}
	if len(report.LoopCounts) > 0 {
		counts := tablewriter.NewWriter(out)
		counts.Header("Handler", "Loop Count", "Max")
		for _, e := range report.LoopCounts {
			limit := "unlimited"
			if e.Max > 0 {
				limit = strconv.Itoa(e.Max)
			}
			if err := counts.Append(e.Identity, strconv.Itoa(e.Count), limit); err != nil {
				return err
			}
		}
		if err := counts.Render(); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	bypasses := "none"
	if len(report.Bypasses) > 0 {
		bypasses = strings.Join(report.Bypasses, ", ")
	}
	fmt.Fprintf(out, "Bypasses at end: %s\n", bypasses)
	return nil
}
