package rrule

import (
	"time"

	"github.com/samber/mo"
)

// Iterator pulls occurrences of a Rule one at a time. Each refill computes a
// single period, so stopping early wastes at most one period of work.
type Iterator struct {
	rule   *Rule
	period *period
	floor  time.Time

	remaining mo.Option[int]
	last      mo.Option[time.Time]

	buf  []time.Time
	pos  int
	done bool
}

func newIterator(r *Rule, floor time.Time) *Iterator {
	floor = r.floor(floor)
	switch {
	case floor.IsZero() || floor.Before(r.dtstart):
		floor = r.dtstart
	case r.restartsAtDTStart():
		r.logger.Debug("floor ignored, rule periods are anchored to dtstart",
			"rule", r.raw, "floor", floor, "dtstart", r.dtstart)
		floor = r.dtstart
	}

	// A date-only rule keeps the requested floor for clipping but walks
	// periods from the floor's calendar date.
	start := floor
	if r.dateOnly {
		y, m, d := floor.Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	ctx := NewContext(&r.opts, r.dtstart, r.zone)
	ctx.floating = r.dateOnly
	ctx.Rebuild(start.Year(), start.Month())

	return &Iterator{
		rule:      r,
		period:    newPeriod(&r.opts, ctx, start),
		floor:     floor,
		remaining: r.opts.Count,
	}
}

// Next returns the next occurrence, or false once the rule is exhausted.
func (it *Iterator) Next() (time.Time, bool) {
	for !it.done {
		for it.pos < len(it.buf) {
			t := it.buf[it.pos]
			it.pos++

			if t.Before(it.rule.dtstart) || t.Before(it.floor) {
				continue
			}
			if until, ok := it.rule.opts.Until.Get(); ok && t.After(until) {
				it.done = true
				return time.Time{}, false
			}
			// Wall clock times in a DST gap can resolve onto an instant that
			// was already produced.
			if last, ok := it.last.Get(); ok && !t.After(last) {
				continue
			}
			it.last = mo.Some(t)

			if n, ok := it.remaining.Get(); ok {
				if n == 0 {
					it.done = true
					return time.Time{}, false
				}
				it.remaining = mo.Some(n - 1)
			}
			if it.rule.excluded(t) {
				continue
			}
			return t, true
		}

		if it.period.year() > it.rule.maxYear {
			it.rule.logger.Debug("recurrence ceiling reached",
				"rule", it.rule.raw, "max_year", it.rule.maxYear)
			it.done = true
			break
		}
		it.buf = it.period.next(it.buf[:0])
		it.pos = 0
	}
	return time.Time{}, false
}
