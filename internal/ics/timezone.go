package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
)

// addTimezone adds a VTIMEZONE for loc that covers every year from the year
// of from through the year of to. Each offset change inside that window
// becomes its own STANDARD or DAYLIGHT observance with a fixed DTSTART.
func addTimezone(cal *ical.Calendar, tzid string, loc *time.Location, from, to time.Time) {
	tz := cal.AddTimezone(tzid)

	t := time.Date(from.In(loc).Year(), time.January, 1, 0, 0, 0, 0, loc)
	limit := time.Date(to.In(loc).Year()+1, time.January, 1, 0, 0, 0, 0, loc)

	name, offset := t.Zone()
	tz.Components = append(tz.Components, observance(t.IsDST(), name, offset, offset, t))
	for {
		_, next := t.ZoneBounds()
		if next.IsZero() || !next.Before(limit) {
			break
		}
		nextName, nextOffset := next.Zone()
		tz.Components = append(tz.Components, observance(next.IsDST(), nextName, offset, nextOffset, next))
		t, offset = next, nextOffset
	}
}

// observance builds one STANDARD or DAYLIGHT block starting at the instant at.
// DTSTART is the wall clock time under the offset in effect before at.
func observance(dst bool, name string, fromOffset, toOffset int, at time.Time) ical.Component {
	var (
		base *ical.ComponentBase
		c    ical.Component
	)
	if dst {
		d := &ical.Daylight{}
		base, c = &d.ComponentBase, d
	} else {
		s := &ical.Standard{}
		base, c = &s.ComponentBase, s
	}

	wall := at.UTC().Add(time.Duration(fromOffset) * time.Second)
	base.SetProperty(ical.ComponentPropertyDtStart, wall.Format(localTimeLayout))
	base.SetProperty(ical.ComponentProperty(ical.PropertyTzoffsetfrom), formatOffset(fromOffset))
	base.SetProperty(ical.ComponentProperty(ical.PropertyTzoffsetto), formatOffset(toOffset))
	if name != "" {
		base.SetProperty(ical.ComponentProperty(ical.PropertyTzname), name)
	}
	return c
}

// formatOffset renders seconds east of UTC as ±hhmm.
func formatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d%02d", sign, seconds/3600, seconds%3600/60)
}
