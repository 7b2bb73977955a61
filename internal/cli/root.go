// Package cli implements the triggerflow command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/randalmurphal/triggerflow/pkg/triggerflow"
	"github.com/spf13/cobra"
)

// rootOptions holds the global flags.
type rootOptions struct {
	logFormat string
	logLevel  string
	config    string

	logger *slog.Logger
}

// NewRootCmd builds the triggerflow command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "triggerflow",
		Short: "Inspect and simulate trigger handler supervision",
		Long: `triggerflow checks settings files for the handler supervisor and runs
scripted units of work against recording handlers, so bypass and recursion
behaviour can be tried without a platform.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), opts.logFormat, opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = logger
			opts.logger.Debug("command started", slog.String("command", cmd.Name()))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&opts.config, "config", "", "settings file applied to the unit of work")

	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newSimulateCmd(opts))
	root.AddCommand(newPhasesCmd())

	return root
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: want text or json", format)
	}
}

// settings loads the --config file, if one was given.
func (o *rootOptions) settings() (triggerflow.Settings, bool, error) {
	if o.config == "" {
		return triggerflow.Settings{}, false, nil
	}
	s, err := triggerflow.LoadSettings(o.config)
	if err != nil {
		return triggerflow.Settings{}, false, err
	}
	return s, true, nil
}
