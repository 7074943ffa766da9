package recurrence

import (
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addProp appends a property; params are given as name, value pairs.
func addProp(comp *ical.Component, name, value string, params ...string) {
	prop := ical.NewProp(name)
	prop.Value = value
	for i := 0; i+1 < len(params); i += 2 {
		prop.Params[params[i]] = []string{params[i+1]}
	}
	comp.Props[name] = append(comp.Props[name], *prop)
}

func newTestEvent(uid string) *ical.Component {
	event := ical.NewComponent(ical.CompEvent)
	if uid != "" {
		addProp(event, ical.PropUID, uid)
	}
	return event
}

func TestExtractRecurrenceInfoFromComponent(t *testing.T) {
	t.Run("empty component", func(t *testing.T) {
		info := ExtractRecurrenceInfoFromComponent(newTestEvent(""))
		assert.Equal(t, "", info.RRULE)
		assert.Empty(t, info.RDATE)
		assert.Empty(t, info.EXDATE)
		assert.Empty(t, info.EXDATEDates)
		assert.Nil(t, info.RecurrenceID)
		assert.False(t, info.DateOnly)
	})

	t.Run("zoned master", func(t *testing.T) {
		ny, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)

		event := newTestEvent("weekly")
		addProp(event, ical.PropDateTimeStart, "20240101T090000", "TZID", "America/New_York")
		addProp(event, ical.PropRecurrenceRule, "FREQ=WEEKLY;COUNT=10")
		addProp(event, ical.PropRecurrenceDates, "20240120T090000,20240121T090000")
		addProp(event, ical.PropExceptionDates, "20240108T140000Z")
		addProp(event, ical.PropExceptionDates, "20240115", "VALUE", "DATE")

		info := ExtractRecurrenceInfoFromComponent(event)
		assert.Equal(t, "FREQ=WEEKLY;COUNT=10", info.RRULE)
		assert.Equal(t, "America/New_York", info.TZID)
		assert.False(t, info.DateOnly)

		require.Len(t, info.RDATE, 2)
		assert.True(t, time.Date(2024, 1, 20, 9, 0, 0, 0, ny).Equal(info.RDATE[0]))
		assert.True(t, time.Date(2024, 1, 21, 9, 0, 0, 0, ny).Equal(info.RDATE[1]))

		assert.Equal(t, []time.Time{time.Date(2024, 1, 8, 14, 0, 0, 0, time.UTC)}, info.EXDATE)
		assert.Equal(t, []time.Time{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)}, info.EXDATEDates)
	})

	t.Run("all-day override", func(t *testing.T) {
		event := newTestEvent("holiday")
		addProp(event, ical.PropDateTimeStart, "20240102", "VALUE", "DATE")
		addProp(event, propRecurrenceID, "20240101", "VALUE", "DATE")

		info := ExtractRecurrenceInfoFromComponent(event)
		assert.True(t, info.DateOnly)
		assert.Empty(t, info.TZID)
		require.NotNil(t, info.RecurrenceID)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *info.RecurrenceID)
	})

	t.Run("unparsable dates are skipped", func(t *testing.T) {
		event := newTestEvent("broken")
		addProp(event, ical.PropExceptionDates, "yesterday,20240101T000000Z")
		info := ExtractRecurrenceInfoFromComponent(event)
		assert.Len(t, info.EXDATE, 1)
		assert.Empty(t, info.EXDATEDates, "a midnight date-time stays a single instant")
	})
}

func TestExtractBasicTimeInfoFromComponent(t *testing.T) {
	tests := []struct {
		name      string
		build     func() *ical.Component
		wantStart time.Time
		wantEnd   time.Time
		wantTime  bool
	}{
		{
			name: "DTSTART and DTEND",
			build: func() *ical.Component {
				event := newTestEvent("a")
				addProp(event, ical.PropDateTimeStart, "20240101T090000Z")
				addProp(event, ical.PropDateTimeEnd, "20240101T100000Z")
				return event
			},
			wantStart: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			wantTime:  true,
		},
		{
			name: "DURATION",
			build: func() *ical.Component {
				event := newTestEvent("b")
				addProp(event, ical.PropDateTimeStart, "20240101T090000Z")
				addProp(event, ical.PropDuration, "PT90M")
				return event
			},
			wantStart: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
			wantTime:  true,
		},
		{
			name: "all-day without end",
			build: func() *ical.Component {
				event := newTestEvent("c")
				addProp(event, ical.PropDateTimeStart, "20240101", "VALUE", "DATE")
				return event
			},
			wantStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			wantTime:  true,
		},
		{
			name: "instantaneous",
			build: func() *ical.Component {
				event := newTestEvent("d")
				addProp(event, ical.PropDateTimeStart, "20240101T090000Z")
				return event
			},
			wantStart: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			wantTime:  true,
		},
		{
			name: "todo with only DUE",
			build: func() *ical.Component {
				todo := ical.NewComponent(ical.CompToDo)
				addProp(todo, ical.PropDue, "20240105T170000Z")
				return todo
			},
			wantStart: time.Date(2024, 1, 5, 17, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 5, 17, 0, 0, 0, time.UTC),
			wantTime:  true,
		},
		{
			name:     "no times",
			build:    func() *ical.Component { return newTestEvent("e") },
			wantTime: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, hasTime := ExtractBasicTimeInfoFromComponent(tt.build())
			assert.Equal(t, tt.wantTime, hasTime)
			if tt.wantTime {
				assert.True(t, tt.wantStart.Equal(start), "start %s", start)
				assert.True(t, tt.wantEnd.Equal(end), "end %s", end)
			}
		})
	}
}

func standupCalendar() *ical.Calendar {
	cal := ical.NewCalendar()

	master := newTestEvent("standup")
	addProp(master, ical.PropSummary, "Standup")
	addProp(master, ical.PropDateTimeStart, "20240101T090000Z")
	addProp(master, ical.PropDateTimeEnd, "20240101T100000Z")
	addProp(master, ical.PropRecurrenceRule, "FREQ=DAILY;COUNT=5")

	moved := newTestEvent("standup")
	addProp(moved, ical.PropSummary, "Standup (moved)")
	addProp(moved, propRecurrenceID, "20240103T090000Z")
	addProp(moved, ical.PropDateTimeStart, "20240103T150000Z")
	addProp(moved, ical.PropDateTimeEnd, "20240103T160000Z")

	cal.Children = append(cal.Children, master, moved)
	return cal
}

func TestEngine_ExpandCalendar(t *testing.T) {
	engine := NewEngine()
	rangeStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("override replaces its instance", func(t *testing.T) {
		instances, err := engine.ExpandCalendar(standupCalendar(), rangeStart, rangeEnd, DefaultExpansionOptions)
		require.NoError(t, err)
		require.Len(t, instances, 5)

		moved := instances[2]
		assert.True(t, moved.IsException)
		assert.Equal(t, "Standup (moved)", moved.Summary)
		assert.Equal(t, time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC), moved.Start)
		assert.Equal(t, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), *moved.RecurrenceID)

		for i, inst := range instances {
			assert.Equal(t, "standup", inst.UID)
			if i != 2 {
				assert.False(t, inst.IsException)
				assert.Equal(t, 9, inst.Start.Hour())
			}
		}
	})

	t.Run("overrides ignored without IncludeExceptions", func(t *testing.T) {
		opts := DefaultExpansionOptions
		opts.IncludeExceptions = false

		instances, err := engine.ExpandCalendar(standupCalendar(), rangeStart, rangeEnd, opts)
		require.NoError(t, err)
		require.Len(t, instances, 5)
		for _, inst := range instances {
			assert.False(t, inst.IsException)
			assert.Equal(t, "Standup", inst.Summary)
		}
	})

	t.Run("instance components", func(t *testing.T) {
		instances, err := engine.ExpandCalendar(standupCalendar(), rangeStart, rangeEnd, DefaultExpansionOptions)
		require.NoError(t, err)

		comp := instances[1].Component
		require.NotNil(t, comp)
		assert.Nil(t, comp.Props.Get(ical.PropRecurrenceRule))
		assert.Equal(t, "20240102T090000Z", comp.Props.Get(ical.PropDateTimeStart).Value)
		assert.Equal(t, "20240102T100000Z", comp.Props.Get(ical.PropDateTimeEnd).Value)
		assert.Equal(t, "20240102T090000Z", comp.Props.Get(propRecurrenceID).Value)
		assert.Equal(t, "Standup", comp.Props.Get(ical.PropSummary).Value)

		cal := InstancesToCalendar(instances)
		assert.Len(t, cal.Children, 5)
		assert.Equal(t, "2.0", cal.Props.Get(ical.PropVersion).Value)
	})
}

func TestEngine_ExpandComponent(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)
	rangeStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("missing UID gets a generated one", func(t *testing.T) {
		event := newTestEvent("")
		addProp(event, ical.PropDateTimeStart, "20240101T090000Z")
		addProp(event, ical.PropRecurrenceRule, "FREQ=WEEKLY;COUNT=2")

		instances, err := engine.ExpandComponent(event, rangeStart, rangeEnd, DefaultExpansionOptions)
		require.NoError(t, err)
		require.Len(t, instances, 2)

		_, err = uuid.Parse(instances[0].UID)
		assert.NoError(t, err)
		assert.Equal(t, instances[0].UID, instances[1].UID)
		assert.Equal(t, instances[0].UID, instances[0].Component.Props.Get(ical.PropUID).Value)
	})

	t.Run("zoned times keep TZID", func(t *testing.T) {
		event := newTestEvent("zoned")
		addProp(event, ical.PropDateTimeStart, "20240101T090000", "TZID", "Europe/Berlin")
		addProp(event, ical.PropRecurrenceRule, "FREQ=DAILY;COUNT=2")

		instances, err := engine.ExpandComponent(event, rangeStart, rangeEnd, DefaultExpansionOptions)
		require.NoError(t, err)
		require.Len(t, instances, 2)

		dtstart := instances[1].Component.Props.Get(ical.PropDateTimeStart)
		assert.Equal(t, "20240102T090000", dtstart.Value)
		assert.Equal(t, []string{"Europe/Berlin"}, dtstart.Params["TZID"])
	})

	t.Run("all-day instances", func(t *testing.T) {
		event := newTestEvent("birthday")
		addProp(event, ical.PropDateTimeStart, "20240110", "VALUE", "DATE")
		addProp(event, ical.PropRecurrenceRule, "FREQ=YEARLY")

		instances, err := engine.ExpandComponent(event, rangeStart, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), ExpansionOptions{MaxOccurrences: 10})
		require.NoError(t, err)
		require.Len(t, instances, 3)

		dtstart := instances[2].Component.Props.Get(ical.PropDateTimeStart)
		assert.Equal(t, "20260110", dtstart.Value)
		assert.Equal(t, []string{"DATE"}, dtstart.Params["VALUE"])
		assert.Equal(t, "20260111", instances[2].Component.Props.Get(ical.PropDateTimeEnd).Value)
	})

	t.Run("no DTSTART", func(t *testing.T) {
		_, err := engine.ExpandComponent(newTestEvent("x"), rangeStart, rangeEnd, DefaultExpansionOptions)
		assert.Error(t, err)
	})
}

func TestSafeTimeDeref(t *testing.T) {
	fallback := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	value := fallback.Add(time.Hour)

	assert.Equal(t, fallback, SafeTimeDeref(nil, fallback))
	assert.Equal(t, value, SafeTimeDeref(&value, fallback))
}
