package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/randalmurphal/triggerflow/pkg/triggerflow"
	"github.com/spf13/cobra"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [settings-file]",
		Short: "Validate a settings file",
		Long: `Load a settings file and print the handler limits, the initial bypass
list and the diagnostics flag. Without an argument the --config file is
checked. Exits non-zero when the settings are invalid.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.config
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no settings file: pass one or set --config")
			}

			settings, err := triggerflow.LoadSettings(path)
			if err != nil {
				return err
			}
			return printSettings(cmd, path, settings)
		},
	}
}

func printSettings(cmd *cobra.Command, path string, s triggerflow.Settings) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: ok\n\n", path)

	if handlers := s.Handlers(); len(handlers) > 0 {
		table := tablewriter.NewWriter(out)
		table.Header("Handler", "Max Loop Count")
		for _, id := range handlers {
			n, _ := s.MaxLoopCount(id)
			limit := strconv.Itoa(n)
			if n == 0 {
				limit = "unlimited"
			}
			if err := table.Append(id, limit); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintln(out)
	} else {
		fmt.Fprintln(out, "No handler limits configured")
	}

	bypass := "none"
	if len(s.Bypass) > 0 {
		bypass = strings.Join(s.Bypass, ", ")
	}
	fmt.Fprintf(out, "Initial bypasses: %s\n", bypass)
	fmt.Fprintf(out, "Bypass all:       %t\n", s.BypassAll)
	fmt.Fprintf(out, "Diagnostics:      %t\n", s.Diagnostics)
	return nil
}
