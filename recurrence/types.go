package recurrence

import (
	"time"

	"github.com/emersion/go-ical"
)

// RecurrenceInfo contains all recurrence-related information for an event
type RecurrenceInfo struct {
	RRULE        string      // The RRULE string, with or without the "RRULE:" prefix
	RDATE        []time.Time // Additional recurrence dates
	EXDATE       []time.Time // Exception instants, matched exactly
	EXDATEDates  []time.Time // DATE-valued exceptions at midnight UTC; each removes its whole calendar day
	RecurrenceID *time.Time  // For exception instances - which occurrence this overrides
	TZID         string      // Zone the rule is expanded in; empty means the master's zone
	DateOnly     bool        // DTSTART is a DATE value; occurrences are midnight UTC
}

// TimeOccurrence represents a single occurrence of an event in time
type TimeOccurrence struct {
	Start        time.Time  // Start time of this occurrence
	End          time.Time  // End time of this occurrence
	IsException  bool       // True if this is an exception/override instance
	RecurrenceID *time.Time // The original occurrence time this instance stands for
}

// Instance is one expanded occurrence of a calendar component.
type Instance struct {
	TimeOccurrence
	UID       string
	Summary   string
	Component *ical.Component // Instance VEVENT with DTSTART, DTEND and RECURRENCE-ID set
}

// ExpansionOptions controls how recurrence expansion behaves
type ExpansionOptions struct {
	MaxOccurrences    int           // Maximum number of occurrences to expand (0 = unlimited)
	MaxTimeSpan       time.Duration // Maximum time span to expand (0 = unlimited)
	IncludeExceptions bool          // Whether overriding components replace the instances they name
}

// DefaultExpansionOptions provides sensible defaults for expansion
var DefaultExpansionOptions = ExpansionOptions{
	MaxOccurrences:    1000,
	MaxTimeSpan:       365 * 24 * time.Hour * 2, // 2 years
	IncludeExceptions: true,
}
