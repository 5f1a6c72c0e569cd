package ics

import (
	"errors"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "mealcal/internal/log"
)

// ParsedEvent is a VEVENT read back from a calendar file.
type ParsedEvent struct {
	UID         string
	Summary     string
	Description string

	Start   time.Time
	End     time.Time
	Stamp   time.Time
	StartTZ string
	// Floating is true when DTSTART has neither a TZID nor a trailing Z.
	Floating bool
}

// ParsedCalendar is the result of ReadCalendar.
type ParsedCalendar struct {
	ProductID string
	Version   string
	Events    []ParsedEvent
}

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\,`, `,`, `\;`, `;`, `\n`, "\n", `\N`, "\n")

// ReadCalendar parses an iCalendar stream. Floating times are interpreted in
// loc (time.Local when nil). Events that cannot be read are logged and
// skipped.
func ReadCalendar(r io.Reader, loc *time.Location) (*ParsedCalendar, error) {
	if loc == nil {
		loc = time.Local
	}
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	out := &ParsedCalendar{}
	for _, p := range cal.CalendarProperties {
		switch strings.ToUpper(p.IANAToken) {
		case "PRODID":
			out.ProductID = p.Value
		case "VERSION":
			out.Version = p.Value
		}
	}

	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve, loc)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		out.Events = append(out.Events, ev)
	}

	appLog.Debug("ics parse completed", "event_count", len(out.Events))
	return out, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (ParsedEvent, error) {
	var out ParsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = textUnescaper.Replace(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = textUnescaper.Replace(p.Value)
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, errors.New("missing DTSTART")
	}
	start, tz, err := propertyTime(startProp, loc)
	if err != nil {
		return out, err
	}
	out.Start = start
	out.StartTZ = tz
	out.Floating = tz == "" && !strings.HasSuffix(startProp.Value, "Z")

	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		if end, _, err := propertyTime(p, loc); err == nil {
			out.End = end
		}
	}
	if p := ve.GetProperty("DTSTAMP"); p != nil {
		if stamp, err := parseICSTime(p.Value, time.UTC); err == nil {
			out.Stamp = stamp
		}
	}

	return out, nil
}

// propertyTime parses a DATE-TIME property honoring its TZID parameter.
func propertyTime(p *ical.IANAProperty, loc *time.Location) (time.Time, string, error) {
	tz := ""
	if params := p.ICalParameters; params != nil {
		if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
			tz = tzs[0]
		}
	}
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	t, err := parseICSTime(p.Value, loc)
	return t, tz, err
}

// parseICSTime parses a basic ICS date/date-time string. Values without a
// trailing Z are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation(localTimeLayout, v, loc)
	}

	// Date-only, e.g., 20250101
	return time.ParseInLocation("20060102", v, loc)
}
