/*
Package rrule expands RFC 5545 recurrence rules into occurrence instants.

# Basic Usage

	rule, err := rrule.New("FREQ=WEEKLY;BYDAY=TU,TH;COUNT=6",
		rrule.WithDTStart(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)),
		rrule.WithTZID("Europe/Berlin"),
	)
	if err != nil {
		log.Fatal(err)
	}
	for t := range rule.Seq() {
		fmt.Println(t)
	}

# Pipeline

Each period of the rule's frequency (a year, month, week, day, hour, minute
or second) produces a list of candidate day-of-year indexes. The BY* filters
drop candidates, the survivors are combined with the time-of-day set and
resolved to instants through a Zone. The rule driver then clips the result
against DTSTART, UNTIL, COUNT and EXDATE.

# Date-only Rules

WithDate anchors a rule on a calendar date. Occurrences are midnight UTC
values and BYHOUR, BYMINUTE and BYSECOND are ignored.

# Floors

IteratorFrom, SeqFrom, From and Between start enumeration at a floor. Rules
with COUNT or an INTERVAL above one always restart at DTSTART because their
periods are counted from the anchor. IteratorFrom and SeqFrom then yield the
results before the floor as well; From and Between drop them.
*/
package rrule
