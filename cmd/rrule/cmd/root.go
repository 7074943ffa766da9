package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyp0633/librrule/internal/config"
	"github.com/cyp0633/librrule/rrule"
)

// rootOptions is shared by every subcommand. cfg and logger are filled in
// before a subcommand runs.
type rootOptions struct {
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd builds the rrule command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "rrule",
		Short: "Expand iCalendar recurrence rules",
		Long: `rrule expands RFC 5545 recurrence rules into occurrence times.

Commands:
  expand  - expand a single RRULE from a start time
  ics     - expand every event of an iCalendar file`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.cfgFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			opts.cfg = cfg
			opts.logger = cfg.Logging.NewLogger(cmd.ErrOrStderr(), opts.verbose)
			opts.logger.Debug("configuration loaded", "config_file", opts.cfgFile, "tzid", cfg.Expansion.TZID)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (TOML)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newExpandCmd(opts))
	root.AddCommand(newICSCmd(opts))
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// parseTime accepts RFC 3339, iCalendar DATE-TIME and plain dates. Values
// without an offset are wall clock times in zone.
func parseTime(value string, zone rrule.Zone) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("20060102T150405Z", value); err == nil {
		return t, nil
	}
	for _, layout := range []string{"20060102T150405", "2006-01-02T15:04:05", "2006-01-02T15:04", "20060102", time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return zone.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second()), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", value)
}

// parseDate accepts YYYY-MM-DD or YYYYMMDD.
func parseDate(value string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, "20060102"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", value)
}
