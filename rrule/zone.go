package rrule

import (
	"fmt"
	"time"
)

// Zone turns civil times into instants. Transition handling is up to the
// implementation; the engine never does zone arithmetic itself.
type Zone interface {
	Name() string
	// Date resolves a wall clock time in the zone.
	Date(year int, month time.Month, day, hour, minute, second int) time.Time
	// In converts an instant into the zone.
	In(t time.Time) time.Time
}

// UTC is the zone used by date-only rules.
var UTC Zone = locationZone{loc: time.UTC}

type locationZone struct {
	loc *time.Location
}

// LoadZone resolves an IANA zone name through the time package.
func LoadZone(name string) (Zone, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &Error{
			Kind:    KindUnknownZone,
			Message: fmt.Sprintf("cannot load time zone %q", name),
			Err:     err,
		}
	}
	return locationZone{loc: loc}, nil
}

// ZoneFor wraps an already loaded location.
func ZoneFor(loc *time.Location) Zone {
	if loc == nil {
		return UTC
	}
	return locationZone{loc: loc}
}

func (z locationZone) Name() string {
	return z.loc.String()
}

func (z locationZone) Date(year int, month time.Month, day, hour, minute, second int) time.Time {
	return time.Date(year, month, day, hour, minute, second, 0, z.loc)
}

func (z locationZone) In(t time.Time) time.Time {
	return t.In(z.loc)
}
