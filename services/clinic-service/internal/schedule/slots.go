package schedule

import "time"

// SlotDuration is the clinic-wide bookable slot length. Availability is
// always presented on this grid even though stored appointments may have
// other durations.
const SlotDuration = 20 * time.Minute

// Interval is a half-open [Start, End) time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two half-open intervals share any instant.
// Back-to-back intervals (a.End == b.Start) do not overlap.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// Empty reports whether the interval covers no time at all.
func (a Interval) Empty() bool {
	return !a.Start.Before(a.End)
}

// Ticks enumerates the slot grid inside [start, end): consecutive intervals
// of length slot starting at start. A trailing partial slot that would cross
// end is discarded. start >= end yields nil.
func Ticks(start, end time.Time, slot time.Duration) []Interval {
	if slot <= 0 {
		return nil
	}
	var out []Interval
	for cur := start; cur.Before(end); cur = cur.Add(slot) {
		slotEnd := cur.Add(slot)
		if slotEnd.After(end) {
			break
		}
		out = append(out, Interval{Start: cur, End: slotEnd})
	}
	return out
}

// RoundUpToSlot rounds t forward to the next slot boundary within the hour.
// Seconds are dropped before rounding, a minute already on a boundary stays
// put, and a rounded minute of 60 rolls into the next hour.
// 09:07 -> 09:20, 09:45 -> 10:00, 09:20:31 -> 09:20.
func RoundUpToSlot(t time.Time, slot time.Duration) time.Time {
	slotMins := int(slot / time.Minute)
	if slotMins <= 0 {
		return t
	}
	rounded := (t.Minute() + slotMins - 1) / slotMins * slotMins
	base := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	return base.Add(time.Duration(rounded) * time.Minute)
}

// EffectiveStart clamps a day's window start for "today": slots earlier than
// now are gone, and the first offered slot begins on the next grid boundary
// at or after now. For windows entirely in the future it returns windowStart
// unchanged.
func EffectiveStart(windowStart, now time.Time, slot time.Duration) time.Time {
	if !now.After(windowStart) {
		return windowStart
	}
	return RoundUpToSlot(now, slot)
}
