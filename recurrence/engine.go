package recurrence

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/cyp0633/librrule/rrule"
)

const (
	opHasOccurrence = "has-occurrence"
	opExpand        = "expand"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for expansion diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine provides unified recurrence expansion and validation logic
type Engine struct {
	cache  *RecurrenceCache
	config EngineConfig
	logger *slog.Logger
}

// NewEngine creates a recurrence engine with DefaultEngineConfig.
func NewEngine(opts ...Option) *Engine {
	return NewEngineWithConfig(DefaultEngineConfig, opts...)
}

// Cache returns the engine's result cache, or nil when caching is disabled.
func (e *Engine) Cache() *RecurrenceCache {
	return e.cache
}

// HasOccurrenceInRange checks if a recurring event has any occurrence
// overlapping [rangeStart, rangeEnd]. It stops at the first match instead of
// expanding the whole range.
func (e *Engine) HasOccurrenceInRange(
	masterStart, masterEnd time.Time,
	recurrence RecurrenceInfo,
	rangeStart, rangeEnd time.Time,
) (bool, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(opHasOccurrence, masterStart, masterEnd, recurrence, rangeStart, rangeEnd).Get(); ok {
			if found, ok := cached.(bool); ok {
				e.logger.Debug("recurrence cache hit", "operation", opHasOccurrence, "rrule", recurrence.RRULE)
				return found, nil
			}
		}
	}

	found, err := e.hasOccurrenceInRange(masterStart, masterEnd, recurrence, rangeStart, rangeEnd)
	if err != nil {
		e.logger.Warn("recurrence check failed", "rrule", recurrence.RRULE, "error", err)
		return false, err
	}

	if e.cache != nil {
		e.cache.Set(opHasOccurrence, masterStart, masterEnd, recurrence, rangeStart, rangeEnd, found)
	}
	return found, nil
}

func (e *Engine) hasOccurrenceInRange(
	masterStart, masterEnd time.Time,
	recurrence RecurrenceInfo,
	rangeStart, rangeEnd time.Time,
) (bool, error) {
	// The master instance always counts, whether or not it matches the rule.
	if overlaps(masterStart, masterEnd, rangeStart, rangeEnd) && !isExcluded(masterStart, recurrence) {
		return true, nil
	}
	if recurrence.RecurrenceID != nil {
		return false, nil
	}

	duration := masterEnd.Sub(masterStart)

	if recurrence.RRULE != "" {
		rule, err := e.rule(masterStart, recurrence)
		if err != nil {
			return false, fmt.Errorf("failed to check RRULE occurrences: %w", err)
		}

		windowStart := rangeStart.Add(-duration)
		inspected := 0
		for start := range rule.SeqFrom(windowStart) {
			if start.After(rangeEnd) {
				break
			}
			if !overlaps(start, start.Add(duration), rangeStart, rangeEnd) {
				continue
			}
			if !isExcluded(start, recurrence) {
				return true, nil
			}
			inspected++
			if limit := e.config.MaxExpansionOccurrences; limit > 0 && inspected >= limit {
				break
			}
		}
	}

	for _, rdate := range recurrence.RDATE {
		if overlaps(rdate, rdate.Add(duration), rangeStart, rangeEnd) && !isExcluded(rdate, recurrence) {
			return true, nil
		}
	}

	return false, nil
}

// Expand returns the occurrences overlapping [rangeStart, rangeEnd] in start
// order. The master instance and RDATEs are merged with the RRULE instances,
// duplicates collapse and EXDATEs are removed.
func (e *Engine) Expand(
	masterStart, masterEnd time.Time,
	recurrence RecurrenceInfo,
	rangeStart, rangeEnd time.Time,
	opts ExpansionOptions,
) ([]TimeOccurrence, error) {
	if opts.MaxTimeSpan > 0 && rangeEnd.Sub(rangeStart) > opts.MaxTimeSpan {
		rangeEnd = rangeStart.Add(opts.MaxTimeSpan)
	}

	op := opExpand + ":" + strconv.Itoa(opts.MaxOccurrences)
	if e.cache != nil {
		if cached, ok := e.cache.Get(op, masterStart, masterEnd, recurrence, rangeStart, rangeEnd).Get(); ok {
			if occurrences, ok := cached.([]TimeOccurrence); ok {
				e.logger.Debug("recurrence cache hit", "operation", opExpand, "rrule", recurrence.RRULE)
				return cloneOccurrences(occurrences), nil
			}
		}
	}

	occurrences, err := e.expand(masterStart, masterEnd, recurrence, rangeStart, rangeEnd, opts)
	if err != nil {
		e.logger.Warn("recurrence expansion failed", "rrule", recurrence.RRULE, "error", err)
		return nil, err
	}

	if e.cache != nil {
		e.cache.Set(op, masterStart, masterEnd, recurrence, rangeStart, rangeEnd, cloneOccurrences(occurrences))
	}
	return occurrences, nil
}

func (e *Engine) expand(
	masterStart, masterEnd time.Time,
	recurrence RecurrenceInfo,
	rangeStart, rangeEnd time.Time,
	opts ExpansionOptions,
) ([]TimeOccurrence, error) {
	duration := masterEnd.Sub(masterStart)
	seen := make(map[int64]bool)
	var out []TimeOccurrence

	add := func(start time.Time) {
		if seen[start.Unix()] {
			return
		}
		seen[start.Unix()] = true
		if !overlaps(start, start.Add(duration), rangeStart, rangeEnd) || isExcluded(start, recurrence) {
			return
		}
		id := start
		out = append(out, TimeOccurrence{Start: start, End: start.Add(duration), RecurrenceID: &id})
	}

	if recurrence.RecurrenceID != nil {
		if overlaps(masterStart, masterEnd, rangeStart, rangeEnd) {
			id := *recurrence.RecurrenceID
			out = append(out, TimeOccurrence{Start: masterStart, End: masterEnd, IsException: true, RecurrenceID: &id})
		}
		return out, nil
	}

	add(masterStart)

	if recurrence.RRULE != "" {
		rule, err := e.rule(masterStart, recurrence)
		if err != nil {
			return nil, fmt.Errorf("failed to expand RRULE: %w", err)
		}

		windowStart := rangeStart.Add(-duration)
		for start := range rule.SeqFrom(windowStart) {
			if start.After(rangeEnd) {
				break
			}
			add(start)
			// Later rule instances cannot displace these once sorted.
			if opts.MaxOccurrences > 0 && len(out) > opts.MaxOccurrences {
				break
			}
		}
	}

	for _, rdate := range recurrence.RDATE {
		add(rdate)
	}

	slices.SortFunc(out, func(a, b TimeOccurrence) int {
		return a.Start.Compare(b.Start)
	})
	if opts.MaxOccurrences > 0 && len(out) > opts.MaxOccurrences {
		out = out[:opts.MaxOccurrences]
	}
	return out, nil
}

// rule binds the RRULE to the master start in the zone the event lives in.
func (e *Engine) rule(masterStart time.Time, info RecurrenceInfo) (*rrule.Rule, error) {
	opts := []rrule.Option{
		rrule.WithMaxYear(e.config.MaxYear),
		rrule.WithLogger(e.logger),
	}
	switch {
	case info.DateOnly:
		y, m, d := masterStart.Date()
		opts = append(opts, rrule.WithDate(y, m, d))
	case info.TZID != "":
		opts = append(opts, rrule.WithDTStart(masterStart), rrule.WithTZID(info.TZID))
	default:
		opts = append(opts, rrule.WithDTStart(masterStart), rrule.WithZone(rrule.ZoneFor(masterStart.Location())))
	}

	rule, err := rrule.New(info.RRULE, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE '%s': %w", info.RRULE, err)
	}
	return rule, nil
}

// overlaps reports whether [start, end] touches [rangeStart, rangeEnd].
func overlaps(start, end, rangeStart, rangeEnd time.Time) bool {
	return !start.After(rangeEnd) && !end.Before(rangeStart)
}

// isExcluded reports whether t is removed by an EXDATE. EXDATE entries match
// one instant; EXDATEDates entries match every occurrence on their calendar
// date, read in the occurrence's own zone.
func isExcluded(t time.Time, recurrence RecurrenceInfo) bool {
	for _, exdate := range recurrence.EXDATE {
		if t.Equal(exdate) {
			return true
		}
	}
	if len(recurrence.EXDATEDates) == 0 {
		return false
	}
	y, m, d := t.Date()
	for _, exdate := range recurrence.EXDATEDates {
		ey, em, ed := exdate.Date()
		if y == ey && m == em && d == ed {
			return true
		}
	}
	return false
}

// cloneOccurrences copies occurrences together with their RecurrenceID
// values, so cached results never share pointers with callers.
func cloneOccurrences(occurrences []TimeOccurrence) []TimeOccurrence {
	out := slices.Clone(occurrences)
	for i := range out {
		if id := out[i].RecurrenceID; id != nil {
			copied := *id
			out[i].RecurrenceID = &copied
		}
	}
	return out
}
