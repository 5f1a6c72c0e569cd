package ics

import (
	"bytes"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "mealcal/internal/log"
	"mealcal/internal/model"
)

const (
	// DefaultProductID is the PRODID written when none is configured.
	DefaultProductID = "-//SenPro Meal Scraper//senproscrape.meal//"
	// DefaultUIDDomain is the right-hand side of every event UID.
	DefaultUIDDomain = "senproscrape.meal"
	// Version is the iCalendar VERSION value.
	Version = "2.0"
	// EventDuration is the length of every meal event. Plans carry no duration.
	EventDuration = 30 * time.Minute
	// ContentType is the MIME type of serialized documents.
	ContentType = "text/calendar"

	localTimeLayout = "20060102T150405"
)

// Event is one meal on the calendar. Events are built once and not modified.
type Event struct {
	UID         string
	SectionID   string
	Start       time.Time
	End         time.Time
	Stamp       time.Time
	Summary     string
	Description string
}

// Notice reports a section whose date could not be read from its id; its
// events were placed on the emission day instead.
type Notice struct {
	SectionID string
	Date      time.Time
	Message   string
}

// Document is an ordered set of events plus the calendar identity fields.
type Document struct {
	ProductID string
	Version   string
	// TZID, when set, is attached to DTSTART/DTEND. Otherwise times are
	// written as floating local times.
	TZID    string
	Events  []Event
	Notices []Notice

	loc *time.Location
}

// Emitter turns meal plans into calendar documents. The zero value is usable:
// defaults apply to every empty field. An Emitter holds no per-call state.
type Emitter struct {
	ProductID string
	UIDDomain string
	// Timezone is an IANA zone name. Empty means floating local times.
	Timezone string
	// Now supplies the generation timestamp and the fallback date.
	// Defaults to time.Now.
	Now func() time.Time
}

// NewEvent builds the event for one meal on day. It depends only on its
// arguments: start is the inferred time on day, end is start + EventDuration.
func NewEvent(day time.Time, text, uidDomain string, stamp time.Time) Event {
	start := StartClock(text).On(day)
	return Event{
		UID:         start.Format(localTimeLayout) + "@" + uidDomain,
		Start:       start,
		End:         start.Add(EventDuration),
		Stamp:       stamp,
		Summary:     text,
		Description: text,
	}
}

// Build creates one event per meal, sections in plan order and meals in list
// order. Events are not sorted by start time.
func (e *Emitter) Build(plan model.MealPlan) *Document {
	productID := e.ProductID
	if productID == "" {
		productID = DefaultProductID
	}
	domain := e.UIDDomain
	if domain == "" {
		domain = DefaultUIDDomain
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	loc, tzid := ResolveZone(e.Timezone)

	stamp := now()
	doc := &Document{
		ProductID: productID,
		Version:   Version,
		TZID:      tzid,
		Events:    make([]Event, 0, plan.MealCount()),
		loc:       loc,
	}

	for _, d := range plan.Days {
		day, ok := SectionDate(d.ID, loc)
		if !ok {
			day = midnight(stamp.In(loc))
			doc.Notices = append(doc.Notices, Notice{
				SectionID: d.ID,
				Date:      day,
				Message:   "no DD-MM-YYYY date in section id; using emission date",
			})
			appLog.Warn("section date fallback", "id", d.ID, "date", day.Format("2006-01-02"))
		}
		for _, m := range d.Meals {
			ev := NewEvent(day, m.Canonical(), domain, stamp)
			ev.SectionID = d.ID
			doc.Events = append(doc.Events, ev)
		}
	}

	appLog.Info("calendar built",
		"sections", plan.Len(),
		"events", len(doc.Events),
		"fallback_dates", len(doc.Notices),
	)
	return doc
}

// Serialize writes the document in iCalendar wire format (CRLF line endings,
// folded long lines). A zoned document also carries the VTIMEZONE its TZID
// refers to.
func (d *Document) Serialize() ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetProductId(d.ProductID)
	cal.SetVersion(d.Version)

	if d.TZID != "" && len(d.Events) > 0 {
		loc := d.loc
		if loc == nil {
			var err error
			if loc, err = time.LoadLocation(d.TZID); err != nil {
				return nil, fmt.Errorf("load timezone %s: %w", d.TZID, err)
			}
		}
		from, to := d.span()
		addTimezone(cal, d.TZID, loc, from, to)
	}

	for _, ev := range d.Events {
		ve := cal.AddEvent(ev.UID)
		ve.SetSummary(ev.Summary)
		ve.SetProperty(ical.ComponentPropertyDtStart, ev.Start.Format(localTimeLayout), d.timeParams()...)
		ve.SetProperty(ical.ComponentPropertyDtEnd, ev.End.Format(localTimeLayout), d.timeParams()...)
		ve.SetDtStampTime(ev.Stamp)
		ve.SetDescription(ev.Description)
	}

	var buf bytes.Buffer
	if err := cal.SerializeTo(&buf, ical.WithNewLineWindows); err != nil {
		return nil, fmt.Errorf("serialize calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// span returns the earliest start and the latest end over all events.
func (d *Document) span() (time.Time, time.Time) {
	from, to := d.Events[0].Start, d.Events[0].End
	for _, ev := range d.Events[1:] {
		if ev.Start.Before(from) {
			from = ev.Start
		}
		if ev.End.After(to) {
			to = ev.End
		}
	}
	return from, to
}

func (d *Document) timeParams() []ical.PropertyParameter {
	if d.TZID == "" {
		return nil
	}
	return []ical.PropertyParameter{ical.WithTZID(d.TZID)}
}

// Emit builds and serializes plan in one step.
func (e *Emitter) Emit(plan model.MealPlan) ([]byte, *Document, error) {
	doc := e.Build(plan)
	data, err := doc.Serialize()
	if err != nil {
		return nil, doc, err
	}
	return data, doc, nil
}

// ResolveZone maps a configured zone name to a location and the TZID to
// write. Empty or unknown names give time.Local and no TZID.
func ResolveZone(name string) (*time.Location, string) {
	if name == "" {
		return time.Local, ""
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to floating local time", err, "name", name)
		return time.Local, ""
	}
	return loc, loc.String()
}
