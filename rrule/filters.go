package rrule

import "slices"

// filter drops candidate days. A day survives when no filter rejects it.
type filter interface {
	reject(day int) bool
}

// buildFilters returns the filters named by opts in pipeline order.
func buildFilters(opts *RuleOptions, ctx *Context) []filter {
	var filters []filter
	if months, ok := opts.ByMonth.Get(); ok {
		filters = append(filters, byMonth{months: months, ctx: ctx})
	}
	if weeks, ok := opts.ByWeekNo.Get(); ok {
		filters = append(filters, byWeekNumber{weeks: weeks, ctx: ctx})
	}
	if days, ok := opts.ByWeekDay.Get(); ok {
		filters = append(filters, newByWeekDay(days, ctx))
	}
	if days, ok := opts.ByYearDay.Get(); ok {
		filters = append(filters, byYearDay{days: days, ctx: ctx})
	}
	if days, ok := opts.ByMonthDay.Get(); ok {
		filters = append(filters, newByMonthDay(days, ctx))
	}
	return filters
}

type byMonth struct {
	months []int
	ctx    *Context
}

func (f byMonth) reject(day int) bool {
	return !slices.Contains(f.months, f.ctx.MonthByDayOfYear()[day])
}

type byMonthDay struct {
	positive []int
	negative []int
	ctx      *Context
}

func newByMonthDay(days []int, ctx *Context) byMonthDay {
	f := byMonthDay{ctx: ctx}
	for _, d := range days {
		if d > 0 {
			f.positive = append(f.positive, d)
		} else {
			f.negative = append(f.negative, d)
		}
	}
	return f
}

func (f byMonthDay) reject(day int) bool {
	return !slices.Contains(f.positive, f.ctx.MonthDayByDayOfYear()[day]) &&
		!slices.Contains(f.negative, f.ctx.NegativeMonthDayByDayOfYear()[day])
}

type byWeekNumber struct {
	weeks []int
	ctx   *Context
}

func (f byWeekNumber) reject(day int) bool {
	return !slices.Contains(f.weeks, f.ctx.WeekNumberByDayOfYear()[day]) &&
		!slices.Contains(f.weeks, f.ctx.NegativeWeekNumberByDayOfYear()[day])
}

type byWeekDay struct {
	weekdays []int
	ctx      *Context
}

func newByWeekDay(days []Weekday, ctx *Context) byWeekDay {
	f := byWeekDay{ctx: ctx}
	for _, d := range days {
		f.weekdays = append(f.weekdays, d.Index)
	}
	return f
}

func (f byWeekDay) reject(day int) bool {
	return f.masked(day) || !f.matches(day)
}

// masked reports whether the ordinal weekday mask excludes day. Padding days
// lie outside the mask and are always excluded.
func (f byWeekDay) masked(day int) bool {
	mask, ok := f.ctx.DayOfYearMask().Get()
	if !ok {
		return false
	}
	return day >= len(mask) || !mask[day]
}

func (f byWeekDay) matches(day int) bool {
	return len(f.weekdays) == 0 || slices.Contains(f.weekdays, f.ctx.WeekdayByDayOfYear()[day])
}

type byYearDay struct {
	days []int
	ctx  *Context
}

// reject matches the 1-based day from the start of the year or the negative
// offset from its end. Padding days are looked up as days of the next year.
func (f byYearDay) reject(day int) bool {
	if len(f.days) == 0 {
		return false
	}
	yl := f.ctx.YearLength()
	if day < yl {
		return !slices.Contains(f.days, day+1) && !slices.Contains(f.days, day-yl)
	}
	return !slices.Contains(f.days, day+1-yl) && !slices.Contains(f.days, day-yl-f.ctx.NextYearLength())
}
