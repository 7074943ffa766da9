package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyp0633/librrule/internal/render"
	"github.com/cyp0633/librrule/rrule"
)

type expandOptions struct {
	dtstart string
	date    string
	tz      string
	from    string
	to      string
	limit   int
	exdates []string
	maxYear int
	format  string
}

func newExpandCmd(root *rootOptions) *cobra.Command {
	opts := &expandOptions{}

	cmd := &cobra.Command{
		Use:   "expand <rrule>",
		Short: "Expand a recurrence rule",
		Long: `Expands a single RRULE and prints its occurrences.

Examples:
  rrule expand "FREQ=DAILY;COUNT=5" --dtstart 2024-01-01T09:00:00Z
  rrule expand "FREQ=MONTHLY;BYDAY=-1FR" --dtstart 20240105T170000 --tz Europe/Berlin --limit 12
  rrule expand "FREQ=YEARLY" --date 2024-02-29 --to 2040-01-01
  rrule expand "FREQ=WEEKLY;BYDAY=MO,WE" --from 2025-06-01 --to 2025-07-01 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.dtstart, "dtstart", "", "anchor time (default: now)")
	cmd.Flags().StringVar(&opts.date, "date", "", "anchor date; switches the rule to date-only mode")
	cmd.Flags().StringVar(&opts.tz, "tz", "", "time zone occurrences are resolved in")
	cmd.Flags().StringVar(&opts.from, "from", "", "first time to report")
	cmd.Flags().StringVar(&opts.to, "to", "", "last time to report")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "maximum number of occurrences")
	cmd.Flags().StringSliceVar(&opts.exdates, "exdate", nil, "excluded occurrence (repeatable)")
	cmd.Flags().IntVar(&opts.maxYear, "max-year", 0, "last year unbounded rules are iterated into")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: text, json or xml")
	cmd.MarkFlagsMutuallyExclusive("dtstart", "date")

	return cmd
}

func runExpand(cmd *cobra.Command, root *rootOptions, opts *expandOptions, raw string) error {
	cfg := root.cfg
	flags := cmd.Flags()

	tzid := cfg.Expansion.TZID
	if flags.Changed("tz") {
		tzid = opts.tz
	}
	maxYear := cfg.Expansion.MaxYear
	if flags.Changed("max-year") {
		maxYear = opts.maxYear
	}
	limit := cfg.Expansion.Limit
	if flags.Changed("limit") {
		limit = opts.limit
	}
	format := cfg.Output.Format
	if flags.Changed("format") {
		format = opts.format
	}

	write, ok := render.Writers[format]
	if !ok {
		return fmt.Errorf("unsupported output format for expand: %s", format)
	}

	zone, err := rrule.LoadZone(tzid)
	if err != nil {
		return err
	}

	ruleOpts := []rrule.Option{
		rrule.WithZone(zone),
		rrule.WithMaxYear(maxYear),
		rrule.WithLogger(root.logger),
	}
	switch {
	case opts.date != "":
		d, err := parseDate(opts.date)
		if err != nil {
			return err
		}
		ruleOpts = append(ruleOpts, rrule.WithDate(d.Year(), d.Month(), d.Day()))
	case opts.dtstart != "":
		t, err := parseTime(opts.dtstart, zone)
		if err != nil {
			return fmt.Errorf("invalid --dtstart: %w", err)
		}
		ruleOpts = append(ruleOpts, rrule.WithDTStart(t))
	}

	for _, value := range opts.exdates {
		t, err := parseTime(value, zone)
		if err != nil {
			return fmt.Errorf("invalid --exdate: %w", err)
		}
		ruleOpts = append(ruleOpts, rrule.WithExDates(t))
	}

	rule, err := rrule.New(raw, ruleOpts...)
	if err != nil {
		return err
	}

	var from, to time.Time
	if opts.from != "" {
		if from, err = parseTime(opts.from, rule.Zone()); err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
	}
	if opts.to != "" {
		if to, err = parseTime(opts.to, rule.Zone()); err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
	}

	var times []time.Time
	switch {
	case !to.IsZero():
		if from.IsZero() {
			from = rule.DTStart()
		}
		times = rule.Between(from, to, limit)
	case !from.IsZero():
		times = rule.From(from, limit)
	default:
		times = rule.All(limit)
	}

	root.logger.Debug("rule expanded", "rule", raw, "occurrences", len(times), "zone", rule.Zone().Name())
	return write(cmd.OutOrStdout(), render.Times(times))
}
