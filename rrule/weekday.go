package rrule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/mo"
)

var weekdayCodes = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

var weekdayNames = [7]string{
	"Sunday",
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
}

// Weekday is a day of the week, 0 for Sunday through 6 for Saturday, with an
// optional ordinal such as 3 (third) or -1 (last) within a period.
type Weekday struct {
	Index   int
	Ordinal mo.Option[int]
}

// NthWeekday returns the weekday with the given ordinal. An ordinal of zero
// means no ordinal.
func NthWeekday(index, ordinal int) Weekday {
	if ordinal == 0 {
		return Weekday{Index: index}
	}
	return Weekday{Index: index, Ordinal: mo.Some(ordinal)}
}

// ParseWeekday parses a BYDAY token such as "MO", "3TU", "+2WE" or "-1FR".
func ParseWeekday(token string) (Weekday, error) {
	token = strings.ToUpper(strings.TrimSpace(token))
	if len(token) < 2 {
		return Weekday{}, fmt.Errorf("invalid weekday %q", token)
	}

	code := token[len(token)-2:]
	index := weekdayIndex(code)
	if index < 0 {
		return Weekday{}, fmt.Errorf("invalid weekday %q: unknown day code %q", token, code)
	}

	prefix := token[:len(token)-2]
	if prefix == "" {
		return Weekday{Index: index}, nil
	}
	ordinal, err := strconv.Atoi(prefix)
	if err != nil {
		return Weekday{}, fmt.Errorf("invalid weekday %q: bad ordinal: %w", token, err)
	}
	return NthWeekday(index, ordinal), nil
}

func weekdayIndex(code string) int {
	for i, c := range weekdayCodes {
		if c == code {
			return i
		}
	}
	return -1
}

// String renders the weekday in RRULE form, e.g. "TU" or "-1FR".
func (w Weekday) String() string {
	if n, ok := w.Ordinal.Get(); ok {
		return strconv.Itoa(n) + weekdayCodes[w.Index]
	}
	return weekdayCodes[w.Index]
}

// FullName returns the English day name.
func (w Weekday) FullName() string {
	return weekdayNames[w.Index]
}
