// Package schedule holds the pure time arithmetic behind availability:
// working-hours parsing, the fixed slot grid, and interval overlap. Nothing
// here touches storage or the clock; callers pass dates and "now" in.
package schedule

import (
	"strings"
	"time"
)

// Clock is a wall-clock time of day with no date attached.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (24h). The zero minute and hour are fine; out of
// range values are rejected.
func ParseClock(s string) (Clock, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return Clock{}, false
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, true
}

// At anchors the clock time onto the calendar date of d, in d's location.
func (c Clock) At(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, d.Location())
}

func (c Clock) String() string {
	return c.At(time.Now()).Format("15:04")
}

// Window is a same-day working range. End at or before Start means the window
// is empty; overnight shifts are not supported.
type Window struct {
	Start Clock
	End   Clock
}

// ParseWorkingHours parses the legacy "HH:MM-HH:MM" doctor working-hours
// string. ok is false for malformed input, which callers treat as "never
// working" rather than an error.
func ParseWorkingHours(s string) (Window, bool) {
	start, end, found := strings.Cut(s, "-")
	if !found {
		return Window{}, false
	}
	ws, ok := ParseClock(start)
	if !ok {
		return Window{}, false
	}
	we, ok := ParseClock(end)
	if !ok {
		return Window{}, false
	}
	return Window{Start: ws, End: we}, true
}

// On projects the window onto a calendar date, yielding a concrete interval.
func (w Window) On(date time.Time) Interval {
	return Interval{Start: w.Start.At(date), End: w.End.At(date)}
}

// Contains reports whether t falls inside the window on t's own date.
// Both boundaries are inclusive: an appointment may start exactly at opening
// or exactly at closing time.
func (w Window) Contains(t time.Time) bool {
	iv := w.On(t)
	return !t.Before(iv.Start) && !t.After(iv.End)
}

// Weekly maps each weekday to its working windows. The legacy schema stores a
// single daily range, but the type carries per-day windows so richer
// schedules slot in without touching callers.
type Weekly struct {
	days [7][]Window
}

// WeeklyFromLegacy builds a Weekly that applies one "HH:MM-HH:MM" range to
// all seven days, matching how the working_hours column has always behaved.
func WeeklyFromLegacy(s string) (Weekly, bool) {
	w, ok := ParseWorkingHours(s)
	if !ok {
		return Weekly{}, false
	}
	var weekly Weekly
	for d := range weekly.days {
		weekly.days[d] = []Window{w}
	}
	return weekly, true
}

// Set replaces the windows for one weekday.
func (w *Weekly) Set(day time.Weekday, windows []Window) {
	w.days[day] = windows
}

// Windows returns the working windows for the given weekday. Empty means the
// doctor does not work that day.
func (w Weekly) Windows(day time.Weekday) []Window {
	return w.days[day]
}

// WorksAt reports whether t's wall time falls inside any window for t's
// weekday.
func (w Weekly) WorksAt(t time.Time) bool {
	for _, win := range w.days[t.Weekday()] {
		if win.Contains(t) {
			return true
		}
	}
	return false
}
