package rrule

import (
	"io"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/mo"
)

// DefaultMaxYear bounds iteration of rules without COUNT or UNTIL.
const DefaultMaxYear = 9999

// Option configures a Rule.
type Option func(*config)

type config struct {
	dtstart mo.Option[time.Time]
	date    mo.Option[time.Time]
	tzid    string
	zone    Zone
	exdates []time.Time
	maxYear int
	logger  *slog.Logger
}

// WithDTStart sets the anchor instant. It defaults to the current time.
func WithDTStart(t time.Time) Option {
	return func(c *config) {
		c.dtstart = mo.Some(t)
	}
}

// WithDate anchors the rule on a calendar date and switches it to
// date-only mode.
func WithDate(year int, month time.Month, day int) Option {
	return func(c *config) {
		c.date = mo.Some(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
	}
}

// WithTZID sets the zone occurrences are resolved in. It defaults to UTC.
func WithTZID(tzid string) Option {
	return func(c *config) {
		c.tzid = tzid
	}
}

// WithZone supplies a custom Zone. It takes precedence over WithTZID.
func WithZone(zone Zone) Option {
	return func(c *config) {
		c.zone = zone
	}
}

// WithExDates suppresses the given instants. Excluded instants still count
// towards COUNT.
func WithExDates(dates ...time.Time) Option {
	return func(c *config) {
		c.exdates = append(c.exdates, dates...)
	}
}

// WithMaxYear sets the last year iteration may reach.
func WithMaxYear(year int) Option {
	return func(c *config) {
		if year > 0 {
			c.maxYear = year
		}
	}
}

// WithLogger sets the logger for the rule.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Rule is a parsed recurrence rule bound to an anchor and a zone. A Rule is
// not safe for concurrent use through Next; iterators are independent.
type Rule struct {
	raw      string
	opts     RuleOptions
	dtstart  time.Time
	zone     Zone
	dateOnly bool
	exdates  []time.Time
	maxYear  int
	maxDate  time.Time
	logger   *slog.Logger

	cursor *Iterator
}

// New parses raw, with or without the "RRULE:" prefix, and binds it to the
// configured anchor.
func New(raw string, opts ...Option) (*Rule, error) {
	cfg := config{
		tzid:    "UTC",
		maxYear: DefaultMaxYear,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Rule{
		raw:     raw,
		exdates: cfg.exdates,
		maxYear: cfg.maxYear,
		maxDate: time.Date(cfg.maxYear, time.January, 1, 0, 0, 0, 0, time.UTC),
		logger:  cfg.logger,
	}

	if date, ok := cfg.date.Get(); ok {
		r.dateOnly = true
		r.zone = UTC
		r.dtstart = date
	} else {
		zone := cfg.zone
		if zone == nil {
			z, err := LoadZone(cfg.tzid)
			if err != nil {
				return nil, err
			}
			zone = z
		}
		r.zone = zone
		r.dtstart = zone.In(cfg.dtstart.OrElse(time.Now()).Truncate(time.Second))
	}

	parsed, err := parseOptions(raw, r.dtstart, r.dateOnly, r.zone)
	if err != nil {
		return nil, err
	}
	r.opts = parsed
	return r, nil
}

// String returns the rule text as given to New.
func (r *Rule) String() string {
	return r.raw
}

// Options returns the parsed rule parts.
func (r *Rule) Options() RuleOptions {
	return r.opts
}

// DTStart returns the anchor in the rule's zone.
func (r *Rule) DTStart() time.Time {
	return r.dtstart
}

func (r *Rule) Zone() Zone {
	return r.zone
}

// DateOnly reports whether the rule was anchored with WithDate.
func (r *Rule) DateOnly() bool {
	return r.dateOnly
}

func (r *Rule) HasEndLimit() bool {
	return r.opts.HasEndLimit()
}

// Iterator returns a fresh iterator starting at DTSTART.
func (r *Rule) Iterator() *Iterator {
	return r.IteratorFrom(time.Time{})
}

// IteratorFrom returns an iterator that starts enumerating at floor. A zero
// floor means DTSTART. Rules with COUNT or an INTERVAL above one ignore the
// floor and start at DTSTART, so their first results may precede it.
func (r *Rule) IteratorFrom(floor time.Time) *Iterator {
	return newIterator(r, floor)
}

// Seq returns every occurrence lazily.
func (r *Rule) Seq() iter.Seq[time.Time] {
	return r.SeqFrom(time.Time{})
}

// SeqFrom is the iter.Seq form of IteratorFrom and shares its floor rules.
func (r *Rule) SeqFrom(floor time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		it := r.IteratorFrom(floor)
		for {
			t, ok := it.Next()
			if !ok || !yield(t) {
				return
			}
		}
	}
}

// Next returns the occurrence after the one returned by the previous call.
func (r *Rule) Next() (time.Time, bool) {
	if r.cursor == nil {
		r.cursor = r.Iterator()
	}
	return r.cursor.Next()
}

// Reset restarts Next at DTSTART.
func (r *Rule) Reset() {
	r.cursor = nil
}

// All returns the occurrences up to January 1st of the ceiling year. A
// positive limit caps the result.
func (r *Rule) All(limit int) []time.Time {
	return r.collect(time.Time{}, r.maxDate, limit)
}

// Take returns at most n occurrences from DTSTART.
func (r *Rule) Take(n int) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	for t := range r.Seq() {
		out = append(out, t)
		if len(out) == n {
			break
		}
	}
	return out
}

// Between returns the occurrences in [start, end]. A positive limit caps the
// result and counts only occurrences inside the window.
func (r *Rule) Between(start, end time.Time, limit int) []time.Time {
	return r.collect(r.floor(start), r.floor(end), limit)
}

// From returns occurrences not before start, up to the ceiling date.
func (r *Rule) From(start time.Time, limit int) []time.Time {
	return r.collect(r.floor(start), r.maxDate, limit)
}

func (r *Rule) collect(start, end time.Time, limit int) []time.Time {
	var out []time.Time
	for t := range r.SeqFrom(start) {
		if t.After(end) {
			break
		}
		if t.Before(start) {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// floor drops sub-second precision and moves t into the rule's zone.
func (r *Rule) floor(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return r.zone.In(t.Truncate(time.Second))
}

func (r *Rule) excluded(t time.Time) bool {
	return slices.ContainsFunc(r.exdates, t.Equal)
}

// restartsAtDTStart reports whether the rule's periods are anchored to
// DTSTART, which rules out starting at a later floor.
func (r *Rule) restartsAtDTStart() bool {
	return r.opts.Count.IsPresent() || r.opts.Interval > 1
}
