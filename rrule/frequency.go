package rrule

import "fmt"

// Frequency is the FREQ rule part.
type Frequency int

const (
	Yearly Frequency = iota
	Monthly
	Weekly
	Daily
	Hourly
	Minutely
	Secondly
)

var frequencyNames = map[Frequency]string{
	Yearly:   "YEARLY",
	Monthly:  "MONTHLY",
	Weekly:   "WEEKLY",
	Daily:    "DAILY",
	Hourly:   "HOURLY",
	Minutely: "MINUTELY",
	Secondly: "SECONDLY",
}

func (f Frequency) String() string {
	if name, ok := frequencyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

// ParseFrequency maps a FREQ value to its Frequency.
func ParseFrequency(value string) (Frequency, error) {
	for f, name := range frequencyNames {
		if name == value {
			return f, nil
		}
	}
	return 0, malformed("valid FREQ value is required, got %q", value)
}

// subDaily reports whether the period is shorter than a day.
func (f Frequency) subDaily() bool {
	return f == Hourly || f == Minutely || f == Secondly
}
