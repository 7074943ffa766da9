package rrule

import (
	"slices"
	"time"
)

// generator turns the surviving days of a period into instants.
type generator interface {
	combine(days []int, timeset []TimeOfDay, dst []time.Time) []time.Time
}

func newGenerator(opts *RuleOptions, ctx *Context) generator {
	if positions, ok := opts.BySetPos.Get(); ok {
		return bySetPosition{positions: positions, ctx: ctx}
	}
	return allOccurrences{ctx: ctx}
}

// allOccurrences emits every day at every time of the timeset.
type allOccurrences struct {
	ctx *Context
}

func (g allOccurrences) combine(days []int, timeset []TimeOfDay, dst []time.Time) []time.Time {
	for _, day := range days {
		y, m, d := g.ctx.DateOf(day)
		dst = appendTimes(dst, g.ctx.Zone(), y, m, d, timeset)
	}
	return dst
}

// bySetPosition keeps only the days at the configured positions. Positions
// count from 1 at the front and from -1 at the back; missing ones are dropped.
type bySetPosition struct {
	positions []int
	ctx       *Context
}

func (g bySetPosition) combine(days []int, timeset []TimeOfDay, dst []time.Time) []time.Time {
	for _, day := range g.pick(days) {
		y, m, d := g.ctx.DateOf(day)
		dst = appendTimes(dst, g.ctx.Zone(), y, m, d, timeset)
	}
	return dst
}

// pick returns the chosen days in calendar order without repeats.
func (g bySetPosition) pick(days []int) []int {
	indexes := make([]int, 0, len(g.positions))
	for _, pos := range g.positions {
		i := pos
		switch {
		case pos > 0:
			i = pos - 1
		case pos < 0:
			i = len(days) + pos
		}
		if i < 0 || i >= len(days) {
			continue
		}
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)
	indexes = slices.Compact(indexes)

	out := make([]int, len(indexes))
	for j, i := range indexes {
		out[j] = days[i]
	}
	return out
}

// appendTimes resolves one civil date against every timeset entry. Entries
// keep their order; within one entry times ascend.
func appendTimes(dst []time.Time, zone Zone, year int, month time.Month, day int, timeset []TimeOfDay) []time.Time {
	for _, tod := range timeset {
		for _, h := range tod.Hours {
			for _, mi := range tod.Minutes {
				for _, s := range tod.Seconds {
					dst = append(dst, zone.Date(year, month, day, h, mi, s))
				}
			}
		}
	}
	return dst
}
