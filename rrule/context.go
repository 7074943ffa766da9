package rrule

import (
	"time"

	"github.com/samber/mo"
)

// padding is the number of days each per-day table extends past year end, so
// a week starting in late December can be looked up without bounds checks.
const padding = 7

// Context caches calendar tables for the year being expanded. Tables are
// built on first access and dropped by Rebuild when the year changes.
type Context struct {
	opts     *RuleOptions
	dtstart  time.Time
	zone     Zone
	floating bool

	year      int
	lastYear  int
	lastMonth int
	built     bool

	yearLength       mo.Option[int]
	nextYearLength   mo.Option[int]
	firstDay         mo.Option[time.Time]
	monthByDay       mo.Option[[]int]
	monthDayByDay    mo.Option[[]int]
	negMonthDayByDay mo.Option[[]int]
	weekdayByDay     mo.Option[[]int]
	weekNoByDay      mo.Option[[]int]
	negWeekNoByDay   mo.Option[[]int]
	elapsedDaysByMon mo.Option[[]int]
	dayOfYearMask    mo.Option[[]bool]
}

// NewContext returns a context for one rule evaluation. Call Rebuild before
// reading any table.
func NewContext(opts *RuleOptions, dtstart time.Time, zone Zone) *Context {
	return &Context{opts: opts, dtstart: dtstart, zone: zone}
}

// Rebuild moves the context to year and month. Year tables are reset on a
// year change; the ordinal weekday mask is recomputed on any month change.
func (c *Context) Rebuild(year int, month time.Month) {
	yearChanged := !c.built || year != c.lastYear
	monthChanged := !c.built || int(month) != c.lastMonth

	c.year = year
	if yearChanged {
		c.resetYear()
	}
	if len(c.opts.ByNWeekDay) > 0 && (yearChanged || monthChanged) {
		c.buildMask(month)
	}

	c.lastYear = year
	c.lastMonth = int(month)
	c.built = true
}

func (c *Context) resetYear() {
	c.yearLength = mo.None[int]()
	c.nextYearLength = mo.None[int]()
	c.firstDay = mo.None[time.Time]()
	c.monthByDay = mo.None[[]int]()
	c.monthDayByDay = mo.None[[]int]()
	c.negMonthDayByDay = mo.None[[]int]()
	c.weekdayByDay = mo.None[[]int]()
	c.weekNoByDay = mo.None[[]int]()
	c.negWeekNoByDay = mo.None[[]int]()
	c.elapsedDaysByMon = mo.None[[]int]()
	c.dayOfYearMask = mo.None[[]bool]()
}

// Year is the year the context was last rebuilt for.
func (c *Context) Year() int {
	return c.year
}

func (c *Context) Zone() Zone {
	return c.zone
}

// dateOnly reports whether the rule yields bare dates.
func (c *Context) dateOnly() bool {
	return c.floating
}

func (c *Context) YearLength() int {
	return cached(&c.yearLength, func() int { return yearLength(c.year) })
}

func (c *Context) NextYearLength() int {
	return cached(&c.nextYearLength, func() int { return yearLength(c.year + 1) })
}

// FirstDayOfYear is January 1st at midnight UTC. Only its date is meaningful.
func (c *Context) FirstDayOfYear() time.Time {
	return cached(&c.firstDay, func() time.Time {
		return time.Date(c.year, time.January, 1, 0, 0, 0, 0, time.UTC)
	})
}

func (c *Context) FirstWeekdayOfYear() int {
	return int(c.FirstDayOfYear().Weekday())
}

// DateOf returns the civil date of a day-of-year index, padding included.
func (c *Context) DateOf(day int) (int, time.Month, int) {
	return c.FirstDayOfYear().AddDate(0, 0, day).Date()
}

func (c *Context) MonthByDayOfYear() []int {
	return cached(&c.monthByDay, func() []int {
		return c.perDay(func(d time.Time) int { return int(d.Month()) })
	})
}

func (c *Context) MonthDayByDayOfYear() []int {
	return cached(&c.monthDayByDay, func() []int {
		return c.perDay(func(d time.Time) int { return d.Day() })
	})
}

// NegativeMonthDayByDayOfYear is -1 for the last day of a month, -2 for the
// one before and so on.
func (c *Context) NegativeMonthDayByDayOfYear() []int {
	return cached(&c.negMonthDayByDay, func() []int {
		return c.perDay(func(d time.Time) int {
			return d.Day() - daysIn(d.Year(), d.Month()) - 1
		})
	})
}

func (c *Context) WeekdayByDayOfYear() []int {
	return cached(&c.weekdayByDay, func() []int {
		first := c.FirstWeekdayOfYear()
		out := make([]int, c.YearLength()+padding)
		for i := range out {
			out[i] = (first + i) % 7
		}
		return out
	})
}

// WeekNumberByDayOfYear holds ISO 8601 week numbers.
func (c *Context) WeekNumberByDayOfYear() []int {
	return cached(&c.weekNoByDay, func() []int {
		return c.perDay(func(d time.Time) int {
			_, week := d.ISOWeek()
			return week
		})
	})
}

// NegativeWeekNumberByDayOfYear is -1 for the last ISO week of the week-based
// year, -2 for the one before and so on.
func (c *Context) NegativeWeekNumberByDayOfYear() []int {
	return cached(&c.negWeekNoByDay, func() []int {
		return c.perDay(func(d time.Time) int {
			isoYear, week := d.ISOWeek()
			return week - isoWeeksIn(isoYear) - 1
		})
	})
}

// ElapsedDaysInYearByMonth has 13 entries: 0 followed by the day-of-year
// reached at the end of each month.
func (c *Context) ElapsedDaysInYearByMonth() []int {
	return cached(&c.elapsedDaysByMon, func() []int {
		out := make([]int, 13)
		for m := time.January; m <= time.December; m++ {
			out[m] = out[m-1] + daysIn(c.year, m)
		}
		return out
	})
}

// DayOfYearMask marks the days selected by ordinal weekdays. It is absent
// when the rule has none.
func (c *Context) DayOfYearMask() mo.Option[[]bool] {
	return c.dayOfYearMask
}

func (c *Context) buildMask(month time.Month) {
	elapsed := c.ElapsedDaysInYearByMonth()

	var ranges [][2]int
	switch c.opts.Freq {
	case Yearly:
		if months, ok := c.opts.ByMonth.Get(); ok {
			for _, m := range months {
				if m < 1 || m > 12 {
					continue
				}
				ranges = append(ranges, [2]int{elapsed[m-1], elapsed[m]})
			}
		} else {
			ranges = append(ranges, [2]int{0, c.YearLength()})
		}
	case Monthly:
		ranges = append(ranges, [2]int{elapsed[month-1], elapsed[month]})
	}
	if len(ranges) == 0 {
		return
	}

	mask := make([]bool, c.YearLength())
	for _, r := range ranges {
		start, end := r[0], r[1]-1
		for _, w := range c.opts.ByNWeekDay {
			if day, ok := c.dayOfYearWithinRange(w, start, end); ok {
				mask[day] = true
			}
		}
	}
	c.dayOfYearMask = mo.Some(mask)
}

// dayOfYearWithinRange finds the day matching an ordinal weekday inside
// [start, end]. Positive ordinals count from start, negative ones from end.
func (c *Context) dayOfYearWithinRange(w Weekday, start, end int) (int, bool) {
	weekdays := c.WeekdayByDayOfYear()
	ordinal := w.Ordinal.OrElse(1)

	var day int
	if ordinal < 0 {
		day = end + (ordinal+1)*7
		if day < 0 || day >= len(weekdays) {
			return 0, false
		}
		day -= mod7(weekdays[day] - w.Index)
	} else {
		day = start + (ordinal-1)*7
		if day < 0 || day >= len(weekdays) {
			return 0, false
		}
		day += mod7(7 - weekdays[day] + w.Index)
	}

	if day < start || day > end {
		return 0, false
	}
	return day, true
}

func (c *Context) perDay(fn func(time.Time) int) []int {
	first := c.FirstDayOfYear()
	out := make([]int, c.YearLength()+padding)
	for i := range out {
		out[i] = fn(first.AddDate(0, 0, i))
	}
	return out
}

func cached[T any](slot *mo.Option[T], build func() T) T {
	if v, ok := slot.Get(); ok {
		return v
	}
	v := build()
	*slot = mo.Some(v)
	return v
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func yearLength(year int) int {
	if isLeap(year) {
		return 366
	}
	return 365
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// isoWeeksIn returns 52 or 53. December 28th always falls in the last week.
func isoWeeksIn(isoYear int) int {
	_, week := time.Date(isoYear, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}

func mod7(n int) int {
	return ((n % 7) + 7) % 7
}
