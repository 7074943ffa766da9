package recurrence

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

const (
	propRecurrenceID = "RECURRENCE-ID"
	paramTZID        = "TZID"
	paramValue       = "VALUE"

	dateFormat        = "20060102"
	dateTimeFormat    = "20060102T150405"
	dateTimeFormatUTC = "20060102T150405Z"
)

// ExtractRecurrenceInfoFromComponent extracts recurrence information from an iCal component
func ExtractRecurrenceInfoFromComponent(comp *ical.Component) RecurrenceInfo {
	info := RecurrenceInfo{}

	loc := time.UTC
	if dtstart := comp.Props.Get(ical.PropDateTimeStart); dtstart != nil {
		info.DateOnly = isDateValue(dtstart.Value, dtstart.Params)
		if tzid := paramString(dtstart.Params, paramTZID); tzid != "" && !info.DateOnly {
			info.TZID = tzid
			if l, err := time.LoadLocation(tzid); err == nil {
				loc = l
			}
		}
	}

	if rruleProp := comp.Props.Get(ical.PropRecurrenceRule); rruleProp != nil && rruleProp.Value != "" {
		info.RRULE = rruleProp.Value
	}

	// RDATE and EXDATE may each appear several times.
	for _, prop := range comp.Props[ical.PropRecurrenceDates] {
		info.RDATE = append(info.RDATE, parseDateList(prop.Value, prop.Params, loc)...)
	}
	for _, prop := range comp.Props[ical.PropExceptionDates] {
		for _, item := range splitDateList(prop.Value) {
			exdate, err := parseDateTime(item, prop.Params, loc)
			if err != nil {
				continue
			}
			if isDateValue(item, prop.Params) {
				info.EXDATEDates = append(info.EXDATEDates, exdate)
			} else {
				info.EXDATE = append(info.EXDATE, exdate)
			}
		}
	}

	if recurrenceIDProp := comp.Props.Get(propRecurrenceID); recurrenceIDProp != nil && recurrenceIDProp.Value != "" {
		if recID, err := parseDateTime(recurrenceIDProp.Value, recurrenceIDProp.Params, loc); err == nil {
			info.RecurrenceID = &recID
		}
	}

	return info
}

// ExtractBasicTimeInfoFromComponent extracts start and end times from an iCal component
func ExtractBasicTimeInfoFromComponent(comp *ical.Component) (start, end time.Time, hasTime bool) {
	if dtstart := comp.Props.Get(ical.PropDateTimeStart); dtstart != nil {
		var err error
		if start, err = parseDateTime(dtstart.Value, dtstart.Params, time.UTC); err == nil {
			hasTime = true
			allDay := isDateValue(dtstart.Value, dtstart.Params)

			if dtend := comp.Props.Get(ical.PropDateTimeEnd); dtend != nil {
				if end, err = parseDateTime(dtend.Value, dtend.Params, start.Location()); err != nil {
					return time.Time{}, time.Time{}, false
				}
				// An all-day event whose DTEND repeats DTSTART lasts one day.
				if allDay && !end.After(start) {
					end = start.AddDate(0, 0, 1)
				}
			} else if durationProp := comp.Props.Get(ical.PropDuration); durationProp != nil {
				duration, err := durationProp.Duration()
				if err != nil {
					return time.Time{}, time.Time{}, false
				}
				end = start.Add(duration)
			} else if allDay {
				end = start.AddDate(0, 0, 1)
			} else {
				end = start
			}
		}
	}

	// For VTODO, also check DUE property
	if comp.Name == ical.CompToDo {
		if dueProp := comp.Props.Get(ical.PropDue); dueProp != nil {
			if due, err := parseDateTime(dueProp.Value, dueProp.Params, time.UTC); err == nil {
				if !hasTime {
					start, end, hasTime = due, due, true
				} else if due.After(end) {
					end = due
				}
			}
		}
	}

	return start, end, hasTime
}

// ExpandComponent expands one master component into instance components
// overlapping [rangeStart, rangeEnd].
func (e *Engine) ExpandComponent(comp *ical.Component, rangeStart, rangeEnd time.Time, opts ExpansionOptions) ([]Instance, error) {
	start, end, ok := ExtractBasicTimeInfoFromComponent(comp)
	if !ok {
		return nil, fmt.Errorf("component %s has no usable DTSTART", comp.Name)
	}
	info := ExtractRecurrenceInfoFromComponent(comp)

	occurrences, err := e.Expand(start, end, info, rangeStart, rangeEnd, opts)
	if err != nil {
		return nil, err
	}

	uid := componentValue(comp, ical.PropUID)
	if uid == "" {
		uid = uuid.New().String()
	}

	instances := make([]Instance, 0, len(occurrences))
	for _, occ := range occurrences {
		instances = append(instances, Instance{
			TimeOccurrence: occ,
			UID:            uid,
			Summary:        componentValue(comp, ical.PropSummary),
			Component:      instanceComponent(comp, uid, occ, info.DateOnly),
		})
	}
	return instances, nil
}

// ExpandCalendar expands every VEVENT of cal. With IncludeExceptions, a
// component carrying RECURRENCE-ID replaces the master instance it names and
// is reported where it was moved to.
func (e *Engine) ExpandCalendar(cal *ical.Calendar, rangeStart, rangeEnd time.Time, opts ExpansionOptions) ([]Instance, error) {
	var masters []*ical.Component
	overridden := make(map[string]map[int64]bool)
	var instances []Instance

	for _, child := range cal.Children {
		if child.Name != ical.CompEvent {
			continue
		}
		if child.Props.Get(propRecurrenceID) == nil {
			masters = append(masters, child)
			continue
		}
		if !opts.IncludeExceptions {
			continue
		}

		info := ExtractRecurrenceInfoFromComponent(child)
		if info.RecurrenceID == nil {
			continue
		}
		uid := componentValue(child, ical.PropUID)
		if overridden[uid] == nil {
			overridden[uid] = make(map[int64]bool)
		}
		overridden[uid][info.RecurrenceID.Unix()] = true

		exceptions, err := e.ExpandComponent(child, rangeStart, rangeEnd, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to expand override of %q: %w", uid, err)
		}
		instances = append(instances, exceptions...)
	}

	for _, master := range masters {
		expanded, err := e.ExpandComponent(master, rangeStart, rangeEnd, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to expand %q: %w", componentValue(master, ical.PropUID), err)
		}
		for _, inst := range expanded {
			// An instance without a RECURRENCE-ID is identified by its start.
			if overridden[inst.UID][SafeTimeDeref(inst.RecurrenceID, inst.Start).Unix()] {
				continue
			}
			instances = append(instances, inst)
		}
	}

	slices.SortStableFunc(instances, func(a, b Instance) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.UID, b.UID)
	})
	if opts.MaxOccurrences > 0 && len(instances) > opts.MaxOccurrences {
		instances = instances[:opts.MaxOccurrences]
	}
	return instances, nil
}

// InstancesToCalendar wraps instance components in a VCALENDAR.
func InstancesToCalendar(instances []Instance) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, "-//github.com/cyp0633/librrule//NONSGML v1.0//EN")
	cal.Props.SetText(ical.PropVersion, "2.0")
	for _, inst := range instances {
		if inst.Component != nil {
			cal.Children = append(cal.Children, inst.Component)
		}
	}
	return cal
}

// instanceComponent copies master without its recurrence properties and
// pins it to occ.
func instanceComponent(master *ical.Component, uid string, occ TimeOccurrence, dateOnly bool) *ical.Component {
	inst := ical.NewComponent(master.Name)
	for name, props := range master.Props {
		switch name {
		case ical.PropRecurrenceRule, ical.PropRecurrenceDates, ical.PropExceptionDates,
			ical.PropDateTimeStart, ical.PropDateTimeEnd, ical.PropDuration, propRecurrenceID:
			continue
		}
		inst.Props[name] = slices.Clone(props)
	}
	inst.Children = master.Children

	setTimeProp(inst, ical.PropDateTimeStart, occ.Start, dateOnly)
	setTimeProp(inst, ical.PropDateTimeEnd, occ.End, dateOnly)
	if occ.RecurrenceID != nil {
		setTimeProp(inst, propRecurrenceID, *occ.RecurrenceID, dateOnly)
	}
	inst.Props.SetText(ical.PropUID, uid)
	return inst
}

func setTimeProp(comp *ical.Component, name string, t time.Time, dateOnly bool) {
	prop := ical.NewProp(name)
	switch {
	case dateOnly:
		prop.Params[paramValue] = []string{"DATE"}
		prop.Value = t.Format(dateFormat)
	case t.Location() == time.UTC:
		prop.Value = t.Format(dateTimeFormatUTC)
	default:
		prop.Params[paramTZID] = []string{t.Location().String()}
		prop.Value = t.Format(dateTimeFormat)
	}
	comp.Props[name] = []ical.Prop{*prop}
}

func componentValue(comp *ical.Component, name string) string {
	if prop := comp.Props.Get(name); prop != nil {
		return prop.Value
	}
	return ""
}

// parseDateList parses a comma separated RDATE value. Entries that fail to
// parse are skipped.
func parseDateList(value string, params map[string][]string, fallback *time.Location) []time.Time {
	var dates []time.Time
	for _, item := range splitDateList(value) {
		if t, err := parseDateTime(item, params, fallback); err == nil {
			dates = append(dates, t)
		}
	}
	return dates
}

func splitDateList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// parseDateTime parses a DATE or DATE-TIME value. Dates become midnight UTC,
// UTC times keep UTC, TZID times are read in that zone and floating times in
// fallback.
func parseDateTime(value string, params map[string][]string, fallback *time.Location) (time.Time, error) {
	if isDateValue(value, params) {
		t, err := time.Parse(dateFormat, value)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	if strings.HasSuffix(value, "Z") {
		return time.Parse(dateTimeFormatUTC, value)
	}

	loc := fallback
	if tzid := paramString(params, paramTZID); tzid != "" {
		l, err := time.LoadLocation(tzid)
		if err != nil {
			return time.Time{}, fmt.Errorf("unknown TZID %q: %w", tzid, err)
		}
		loc = l
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(dateTimeFormat, value, loc)
}

func isDateValue(value string, params map[string][]string) bool {
	return strings.EqualFold(paramString(params, paramValue), "DATE") || len(value) == len(dateFormat)
}

func paramString(params map[string][]string, name string) string {
	if values := params[name]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// SafeTimeDeref returns *t, or fallback when t is nil.
func SafeTimeDeref(t *time.Time, fallback time.Time) time.Time {
	if t == nil {
		return fallback
	}
	return *t
}
