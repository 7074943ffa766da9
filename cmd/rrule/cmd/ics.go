package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/emersion/go-ical"
	"github.com/spf13/cobra"

	"github.com/cyp0633/librrule/internal/render"
	"github.com/cyp0633/librrule/recurrence"
	"github.com/cyp0633/librrule/rrule"
)

type icsOptions struct {
	from   string
	to     string
	limit  int
	format string
}

func newICSCmd(root *rootOptions) *cobra.Command {
	opts := &icsOptions{}

	cmd := &cobra.Command{
		Use:   "ics <file>",
		Short: "Expand the events of an iCalendar file",
		Long: `Expands every VEVENT of an iCalendar file within a time window.
Overriding instances (RECURRENCE-ID) replace the occurrences they name.
Use "-" to read from standard input.

Examples:
  rrule ics calendar.ics --from 2025-01-01 --to 2025-02-01
  rrule ics calendar.ics --from 2025-01-01 --to 2025-12-31 --format ics > expanded.ics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runICS(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "window start")
	cmd.Flags().StringVar(&opts.to, "to", "", "window end")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "maximum number of instances")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: text, json, xml or ics")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runICS(cmd *cobra.Command, root *rootOptions, opts *icsOptions, path string) error {
	cfg := root.cfg

	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format = opts.format
	}
	limit := cfg.Expansion.Limit
	if cmd.Flags().Changed("limit") {
		limit = opts.limit
	}

	zone, err := rrule.LoadZone(cfg.Expansion.TZID)
	if err != nil {
		return err
	}
	from, err := parseTime(opts.from, zone)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	to, err := parseTime(opts.to, zone)
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}

	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open calendar: %w", err)
		}
		defer f.Close()
		r = f
	}

	engine := recurrence.NewEngineWithConfig(cfg.EngineConfig(), recurrence.WithLogger(root.logger))
	expansion := recurrence.ExpansionOptions{
		MaxOccurrences:    limit,
		IncludeExceptions: true,
	}

	var instances []recurrence.Instance
	dec := ical.NewDecoder(r)
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to decode calendar: %w", err)
		}

		expanded, err := engine.ExpandCalendar(cal, from, to, expansion)
		if err != nil {
			return err
		}
		instances = append(instances, expanded...)
	}

	root.logger.Debug("calendar expanded", "path", path, "instances", len(instances))

	if format == "ics" {
		if err := ical.NewEncoder(cmd.OutOrStdout()).Encode(recurrence.InstancesToCalendar(instances)); err != nil {
			return fmt.Errorf("failed to encode calendar: %w", err)
		}
		return nil
	}

	write, ok := render.Writers[format]
	if !ok {
		return fmt.Errorf("unsupported output format: %s", format)
	}
	return write(cmd.OutOrStdout(), instances)
}
