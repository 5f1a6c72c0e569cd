package ics

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	// sectionDatePattern finds a DD-MM-YYYY date anywhere in a section id.
	sectionDatePattern = regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})`)
	// timePrefixPattern finds an H:MM or HH:MM time at the very start of a meal.
	timePrefixPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})`)
)

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
}

// DefaultClock is used for meals without a leading time.
var DefaultClock = Clock{Hour: 12, Minute: 0}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns day at this time of day, in day's location.
func (c Clock) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

// InferTime reads a leading H:MM / HH:MM prefix from meal text. Only the
// prefix counts; a time later in the text is ignored. Values outside a real
// clock (25:00, 9:75) are reported as not found.
func InferTime(text string) (Clock, bool) {
	m := timePrefixPattern.FindStringSubmatch(text)
	if m == nil {
		return Clock{}, false
	}
	h, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if h > 23 || minute > 59 {
		return Clock{}, false
	}
	return Clock{Hour: h, Minute: minute}, true
}

// StartClock is InferTime with the noon default applied.
func StartClock(text string) Clock {
	if c, ok := InferTime(text); ok {
		return c
	}
	return DefaultClock
}

// SectionDate returns midnight (in loc) of the first DD-MM-YYYY date in a
// section id. It reports false when there is no such substring or when it
// does not name a real day.
func SectionDate(id string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	m := sectionDatePattern.FindStringSubmatch(id)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes overflow (31-02 becomes 03-03); reject that.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// midnight truncates t to the start of its day in its own location.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
