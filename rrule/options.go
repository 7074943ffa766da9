package rrule

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// TimeOfDay is one timeset entry. Each field holds sorted, distinct values.
type TimeOfDay struct {
	Hours   []int
	Minutes []int
	Seconds []int
}

// RuleOptions is the validated form of a rule string. Every optional part
// is an mo.Option so presence checks are explicit.
type RuleOptions struct {
	Freq     Frequency
	Interval int
	Wkst     int

	Count mo.Option[int]
	Until mo.Option[time.Time]

	ByMonth    mo.Option[[]int]
	ByMonthDay mo.Option[[]int]
	ByWeekNo   mo.Option[[]int]
	ByYearDay  mo.Option[[]int]
	ByHour     mo.Option[[]int]
	ByMinute   mo.Option[[]int]
	BySecond   mo.Option[[]int]
	BySetPos   mo.Option[[]int]

	// ByWeekDay holds the BYDAY entries without an ordinal, ByNWeekDay the
	// entries with one. ByWeekDay is present whenever BYDAY was given.
	ByWeekDay  mo.Option[[]Weekday]
	ByNWeekDay []Weekday

	// SimpleWeekly marks a WEEKLY rule whose only day constraint is the
	// anchor's own weekday.
	SimpleWeekly bool

	Timeset []TimeOfDay
}

// HasEndLimit reports whether the rule is bounded by COUNT or UNTIL.
func (o RuleOptions) HasEndLimit() bool {
	return o.Count.IsPresent() || o.Until.IsPresent()
}

func (o RuleOptions) useSimpleWeekly() bool {
	return o.Freq == Weekly && o.SimpleWeekly && o.ByMonth.IsAbsent()
}

// ParseOptions parses raw against a wall-clock anchor in dtstart's location.
func ParseOptions(raw string, dtstart time.Time) (RuleOptions, error) {
	return parseOptions(raw, dtstart, false, ZoneFor(dtstart.Location()))
}

// parseOptions turns a rule string into RuleOptions. dtstart must already be
// in the rule's zone; it seeds the defaults and the timeset.
func parseOptions(raw string, dtstart time.Time, dateOnly bool, zone Zone) (RuleOptions, error) {
	opts := RuleOptions{Interval: 1, Wkst: 1}
	var freq string
	var rawUntil string

	body := strings.TrimPrefix(strings.TrimSpace(raw), "RRULE:")
	for _, part := range strings.Split(body, ";") {
		key, value, _ := strings.Cut(part, "=")
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "FREQ":
			freq = strings.ToUpper(value)
		case "COUNT":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return RuleOptions{}, malformed("COUNT must be a non-negative integer, got %q", value)
			}
			opts.Count = mo.Some(n)
		case "INTERVAL":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return RuleOptions{}, malformed("INTERVAL must be a positive integer, got %q", value)
			}
			opts.Interval = n
		case "UNTIL":
			rawUntil = value
		case "WKST":
			if i := weekdayIndex(strings.ToUpper(value)); i >= 0 {
				opts.Wkst = i
			}
		case "BYMONTH":
			opts.ByMonth = mo.Some(parseIntList(value))
		case "BYMONTHDAY":
			opts.ByMonthDay = mo.Some(parseIntList(value))
		case "BYWEEKNO":
			opts.ByWeekNo = mo.Some(parseIntList(value))
		case "BYYEARDAY":
			opts.ByYearDay = mo.Some(parseIntList(value))
		case "BYHOUR":
			opts.ByHour = mo.Some(parseIntList(value))
		case "BYMINUTE":
			opts.ByMinute = mo.Some(parseIntList(value))
		case "BYSECOND":
			opts.BySecond = mo.Some(parseIntList(value))
		case "BYSETPOS":
			opts.BySetPos = mo.Some(parseIntList(value))
		case "BYDAY":
			opts.ByWeekDay = mo.Some(parseWeekdayList(value))
		}
	}

	f, err := ParseFrequency(freq)
	if err != nil {
		return RuleOptions{}, err
	}
	opts.Freq = f

	if rawUntil != "" {
		if until, ok := parseUntil(rawUntil, dateOnly, zone); ok {
			opts.Until = mo.Some(until)
		}
	}

	applyDefaults(&opts, dtstart)
	splitWeekdays(&opts)
	opts.Timeset = buildTimeset(opts, dtstart, dateOnly)
	return opts, nil
}

// applyDefaults fills in the day constraint implied by the anchor when the
// rule names none.
func applyDefaults(opts *RuleOptions, dtstart time.Time) {
	if opts.ByWeekNo.IsPresent() || opts.ByYearDay.IsPresent() ||
		opts.ByMonthDay.IsPresent() || opts.ByWeekDay.IsPresent() {
		return
	}

	switch opts.Freq {
	case Yearly:
		if opts.ByMonth.IsAbsent() {
			opts.ByMonth = mo.Some([]int{int(dtstart.Month())})
		}
		opts.ByMonthDay = mo.Some([]int{dtstart.Day()})
	case Monthly:
		opts.ByMonthDay = mo.Some([]int{dtstart.Day()})
	case Weekly:
		opts.SimpleWeekly = true
		opts.ByWeekDay = mo.Some([]Weekday{{Index: int(dtstart.Weekday())}})
	}
}

// splitWeekdays moves ordinal weekdays into ByNWeekDay. Ordinals only have a
// meaning inside a month or a year, so other frequencies keep the plain day.
func splitWeekdays(opts *RuleOptions) {
	days, ok := opts.ByWeekDay.Get()
	if !ok {
		return
	}

	plain := make([]Weekday, 0, len(days))
	for _, d := range days {
		if d.Ordinal.IsPresent() {
			if opts.Freq == Yearly || opts.Freq == Monthly {
				opts.ByNWeekDay = append(opts.ByNWeekDay, d)
				continue
			}
			d = Weekday{Index: d.Index}
		}
		if !slices.Contains(plain, d) {
			plain = append(plain, d)
		}
	}
	opts.ByWeekDay = mo.Some(plain)
}

func buildTimeset(opts RuleOptions, dtstart time.Time, dateOnly bool) []TimeOfDay {
	if dateOnly {
		return []TimeOfDay{{Hours: []int{0}, Minutes: []int{0}, Seconds: []int{0}}}
	}
	return []TimeOfDay{{
		Hours:   timeValues(opts.ByHour, dtstart.Hour(), 23),
		Minutes: timeValues(opts.ByMinute, dtstart.Minute(), 59),
		Seconds: timeValues(opts.BySecond, dtstart.Second(), 59),
	}}
}

// timeValues keeps the in-range BY values, falling back to the anchor's own
// field when none are usable.
func timeValues(by mo.Option[[]int], fallback, max int) []int {
	values := slices.DeleteFunc(slices.Clone(by.OrEmpty()), func(v int) bool {
		return v < 0 || v > max
	})
	if len(values) == 0 {
		return []int{fallback}
	}
	slices.Sort(values)
	return slices.Compact(values)
}

func parseIntList(value string) []int {
	var out []int
	for _, item := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func parseWeekdayList(value string) []Weekday {
	out := []Weekday{}
	for _, item := range strings.Split(value, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		w, err := ParseWeekday(item)
		if err != nil {
			continue
		}
		out = append(out, w)
	}
	return out
}

const (
	untilDateTimeUTC = "20060102T150405Z"
	untilDateTime    = "20060102T150405"
	untilDate        = "20060102"
)

// parseUntil reads UNTIL with the value type of DTSTART. A trailing Z means
// UTC; floating values are read in the rule's zone.
func parseUntil(value string, dateOnly bool, zone Zone) (time.Time, bool) {
	if dateOnly {
		if len(value) < len(untilDate) {
			return time.Time{}, false
		}
		d, err := time.Parse(untilDate, value[:len(untilDate)])
		if err != nil {
			return time.Time{}, false
		}
		return d, true
	}

	if t, err := time.Parse(untilDateTimeUTC, value); err == nil {
		return t, true
	}
	for _, layout := range []string{untilDateTime, untilDate} {
		if t, err := time.Parse(layout, value); err == nil {
			return zone.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second()), true
		}
	}
	return time.Time{}, false
}
