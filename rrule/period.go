package rrule

import (
	"slices"
	"time"
)

// period walks a rule one frequency period at a time. Each call to next
// yields the instants of the current period and advances the cursor.
type period struct {
	opts    *RuleOptions
	ctx     *Context
	filters []filter
	gen     generator

	// base is the first cursor position. Daily, monthly and yearly cursors
	// are recomputed from it so that clamping never accumulates.
	base    time.Time
	current time.Time
	steps   int

	days []int
}

func newPeriod(opts *RuleOptions, ctx *Context, start time.Time) *period {
	return &period{
		opts:    opts,
		ctx:     ctx,
		filters: buildFilters(opts, ctx),
		gen:     newGenerator(opts, ctx),
		base:    start,
		current: start,
	}
}

// year is the cursor's year, used for the iteration ceiling.
func (p *period) year() int {
	return p.current.Year()
}

func (p *period) next(dst []time.Time) []time.Time {
	if p.opts.useSimpleWeekly() {
		return p.nextSimpleWeekly(dst)
	}

	days := p.possibleDays(p.days[:0])
	kept := days[:0]
	for _, day := range days {
		if !p.rejected(day) {
			kept = append(kept, day)
		}
	}
	p.days = kept

	dst = p.gen.combine(kept, p.timeset(), dst)
	p.advance()
	return dst
}

func (p *period) rejected(day int) bool {
	for _, f := range p.filters {
		if f.reject(day) {
			return true
		}
	}
	return false
}

// nextSimpleWeekly moves to the target weekday and emits that single day,
// bypassing the context and the filters.
func (p *period) nextSimpleWeekly(dst []time.Time) []time.Time {
	target := int(p.ctx.dtstart.Weekday())
	if days := p.opts.ByWeekDay.OrEmpty(); len(days) > 0 {
		target = days[0].Index
	}
	if shift := mod7(target - int(p.current.Weekday())); shift > 0 {
		p.current = addDays(p.current, shift)
	}

	y, m, d := p.current.Date()
	dst = appendTimes(dst, p.ctx.Zone(), y, m, d, p.opts.Timeset)
	p.current = addDays(p.current, 7*p.opts.Interval)
	return dst
}

// possibleDays lists the day-of-year indexes of the current period.
func (p *period) possibleDays(dst []int) []int {
	today := p.current.YearDay() - 1

	switch p.opts.Freq {
	case Yearly:
		for i := 0; i < p.ctx.YearLength(); i++ {
			dst = append(dst, i)
		}
	case Monthly:
		elapsed := p.ctx.ElapsedDaysInYearByMonth()
		m := p.current.Month()
		for i := elapsed[m-1]; i < elapsed[m]; i++ {
			dst = append(dst, i)
		}
	case Weekly:
		weekdays := p.ctx.WeekdayByDayOfYear()
		i := today
		for range 7 {
			dst = append(dst, i)
			i++
			if weekdays[i] == p.opts.Wkst {
				break
			}
		}
	case Daily, Hourly, Minutely, Secondly:
		dst = append(dst, today)
	}
	return dst
}

// timeset returns the times of day for this period. Sub-daily frequencies
// take their finer fields from the cursor, restricted by the matching BY part.
func (p *period) timeset() []TimeOfDay {
	if !p.opts.Freq.subDaily() || p.ctx.dateOnly() {
		return p.opts.Timeset
	}

	out := make([]TimeOfDay, len(p.opts.Timeset))
	for i, tod := range p.opts.Timeset {
		tod.Hours = overlay(p.opts.ByHour.OrEmpty(), p.current.Hour())
		if p.opts.Freq == Minutely || p.opts.Freq == Secondly {
			tod.Minutes = overlay(p.opts.ByMinute.OrEmpty(), p.current.Minute())
		}
		if p.opts.Freq == Secondly {
			tod.Seconds = overlay(p.opts.BySecond.OrEmpty(), p.current.Second())
		}
		out[i] = tod
	}
	return out
}

func overlay(allowed []int, value int) []int {
	if len(allowed) > 0 && !slices.Contains(allowed, value) {
		return nil
	}
	return []int{value}
}

// advance moves the cursor by one period and rebuilds the context when the
// month changes. Every step is O(1).
func (p *period) advance() {
	prevYear, prevMonth := p.current.Year(), p.current.Month()
	interval := p.opts.Interval

	switch p.opts.Freq {
	case Yearly:
		p.steps++
		p.current = addMonths(p.base, 12*interval*p.steps)
	case Monthly:
		p.steps++
		p.current = addMonths(p.base, interval*p.steps)
	case Weekly:
		p.current = addDays(p.current, p.weeklyAdvance())
	case Daily:
		p.steps++
		p.current = addDays(p.base, interval*p.steps)
	case Hourly:
		p.current = p.current.Add(time.Duration(interval) * time.Hour)
	case Minutely:
		p.current = p.current.Add(time.Duration(interval) * time.Minute)
	case Secondly:
		p.current = p.current.Add(time.Duration(interval) * time.Second)
	}

	if p.current.Year() != prevYear || p.current.Month() != prevMonth {
		p.ctx.Rebuild(p.current.Year(), p.current.Month())
	}
}

// weeklyAdvance is the day count to the week start INTERVAL weeks ahead.
func (p *period) weeklyAdvance() int {
	wday := int(p.current.Weekday())
	wkst := p.opts.Wkst
	if wkst > wday {
		return -(wday + 1 + (6 - wkst)) + p.opts.Interval*7
	}
	return -(wday - wkst) + p.opts.Interval*7
}

// addDays shifts the civil date, keeping the wall clock.
func addDays(t time.Time, days int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+days, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}

// addMonths shifts the civil month, clamping the day to the target month's
// length so that January 31st plus one month is in February.
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	ty, tm, _ := first.Date()
	return time.Date(ty, tm, min(d, daysIn(ty, tm)), t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}
