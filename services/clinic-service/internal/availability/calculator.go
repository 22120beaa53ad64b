// Package availability computes bookable slots from working hours, existing
// appointments and restricted zones. It only reads; the booking package owns
// the authoritative re-check inside the transaction.
package availability

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/pawdesk/pawdesk/services/clinic-service/internal/model"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/schedule"
)

// ConflictSource provides busy intervals grouped by doctor. Cancelled
// appointments are never returned: a cancelled slot is bookable again.
type ConflictSource interface {
	ListConflictIntervals(ctx context.Context, doctorIDs []int64, from, to time.Time) (map[int64][]schedule.Interval, error)
	ListZoneIntervals(ctx context.Context, doctorIDs []int64, from, to time.Time) (map[int64][]schedule.Interval, error)
}

type DoctorSource interface {
	GetDoctor(ctx context.Context, id int64) (model.Doctor, error)
	ListDoctors(ctx context.Context) ([]model.Doctor, error)
}

// Slot is one bookable grid cell, wall-clock formatted for API responses.
type Slot struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// DoctorSlots is one doctor's free slots on a given date.
type DoctorSlots struct {
	DoctorID       int64  `json:"doctor_id"`
	DoctorName     string `json:"doctor_name"`
	Specialization string `json:"specialization"`
	Slots          []Slot `json:"available_slots"`
}

// TimeSlotCount says how many doctors are free at one grid tick.
type TimeSlotCount struct {
	Time           string `json:"time"`
	AvailableCount int    `json:"available_count"`
	TotalDoctors   int    `json:"total_doctors"`
}

// DayAvailability is one calendar day with at least one free slot.
type DayAvailability struct {
	Date  string          `json:"date"`
	Slots []TimeSlotCount `json:"slots"`
}

type Calculator struct {
	doctors   DoctorSource
	conflicts ConflictSource
	logger    *slog.Logger
	loc       *time.Location
	now       func() time.Time
}

func NewCalculator(doctors DoctorSource, conflicts ConflictSource, logger *slog.Logger, loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.Local
	}
	return &Calculator{
		doctors:   doctors,
		conflicts: conflicts,
		logger:    logger,
		loc:       loc,
		now:       time.Now,
	}
}

// Location is the clinic's timezone; date-only request parameters are
// interpreted in it.
func (c *Calculator) Location() *time.Location {
	return c.loc
}

// SlotsForDoctorOnDate returns the doctor's free slots on the given calendar
// date. Past dates have none; for today, slots before now are dropped and the
// first offered slot starts on the next grid boundary.
func (c *Calculator) SlotsForDoctorOnDate(ctx context.Context, doctorID int64, date time.Time) ([]Slot, error) {
	doc, err := c.doctors.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	dayStart, dayEnd := dayBounds(date)
	busy, err := c.conflicts.ListConflictIntervals(ctx, []int64{doctorID}, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	zones, err := c.conflicts.ListZoneIntervals(ctx, []int64{doctorID}, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	return c.slotsForDay(doc, date, busy[doctorID], zones[doctorID]), nil
}

// MultiDoctorSlots returns every doctor's free slots on the given date.
// Busy intervals for all doctors are fetched in two queries, not per doctor.
func (c *Calculator) MultiDoctorSlots(ctx context.Context, date time.Time) ([]DoctorSlots, error) {
	doctors, err := c.doctors.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}
	dayStart, dayEnd := dayBounds(date)
	busy, zones, err := c.busyAndZones(ctx, doctors, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	var out []DoctorSlots
	for _, doc := range doctors {
		slots := c.slotsForDay(doc, date, busy[doc.ID], zones[doc.ID])
		if len(slots) == 0 {
			continue
		}
		out = append(out, DoctorSlots{
			DoctorID:       doc.ID,
			DoctorName:     doc.Name,
			Specialization: doc.Specialization,
			Slots:          slots,
		})
	}
	return out, nil
}

// CalendarForDateRange aggregates availability for each day in [from, to]
// (date-only, inclusive): per grid tick, how many doctors are free, against
// the number of doctors with working hours. Days where nothing is free are
// omitted, they are not an error.
func (c *Calculator) CalendarForDateRange(ctx context.Context, from, to time.Time) ([]DayAvailability, error) {
	doctors, err := c.doctors.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}
	rangeStart, _ := dayBounds(from)
	_, rangeEnd := dayBounds(to)
	busy, zones, err := c.busyAndZones(ctx, doctors, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}

	totalDoctors := 0
	for _, doc := range doctors {
		if _, ok := doctorWeekly(doc); ok {
			totalDoctors++
		}
	}

	var days []DayAvailability
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		counts := make(map[string]int)
		for _, doc := range doctors {
			for _, slot := range c.slotsForDay(doc, date, busy[doc.ID], zones[doc.ID]) {
				counts[slot.Start]++
			}
		}
		if len(counts) == 0 {
			continue
		}
		ticks := make([]string, 0, len(counts))
		for t := range counts {
			ticks = append(ticks, t)
		}
		sort.Strings(ticks)

		day := DayAvailability{Date: date.Format("2006-01-02")}
		for _, t := range ticks {
			day.Slots = append(day.Slots, TimeSlotCount{
				Time:           t,
				AvailableCount: counts[t],
				TotalDoctors:   totalDoctors,
			})
		}
		days = append(days, day)
	}
	return days, nil
}

// DoctorsAvailableAt returns the doctors free for the slot starting at the
// given instant: hours covering the whole slot, with no overlapping
// appointment or restricted zone.
func (c *Calculator) DoctorsAvailableAt(ctx context.Context, at time.Time) ([]model.Doctor, error) {
	doctors, err := c.doctors.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}
	slot := schedule.Interval{Start: at, End: at.Add(schedule.SlotDuration)}
	busy, zones, err := c.busyAndZones(ctx, doctors, slot.Start, slot.End)
	if err != nil {
		return nil, err
	}

	var out []model.Doctor
	for _, doc := range doctors {
		weekly, ok := doctorWeekly(doc)
		if !ok || !coversSlot(weekly, slot) {
			continue
		}
		if overlapsAny(slot, busy[doc.ID]) || overlapsAny(slot, zones[doc.ID]) {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *Calculator) busyAndZones(ctx context.Context, doctors []model.Doctor, from, to time.Time) (map[int64][]schedule.Interval, map[int64][]schedule.Interval, error) {
	ids := make([]int64, 0, len(doctors))
	for _, d := range doctors {
		ids = append(ids, d.ID)
	}
	busy, err := c.conflicts.ListConflictIntervals(ctx, ids, from, to)
	if err != nil {
		return nil, nil, err
	}
	zones, err := c.conflicts.ListZoneIntervals(ctx, ids, from, to)
	if err != nil {
		return nil, nil, err
	}
	return busy, zones, nil
}

// slotsForDay walks the doctor's slot grid for one date and keeps the cells
// free of both appointments and zones.
func (c *Calculator) slotsForDay(doc model.Doctor, date time.Time, busy, zones []schedule.Interval) []Slot {
	weekly, ok := doctorWeekly(doc)
	if !ok {
		if doc.WorkingHours != nil {
			c.logger.Warn("doctor has malformed working hours", "doctor_id", doc.ID, "working_hours", *doc.WorkingHours)
		}
		return nil
	}

	now := c.now().In(c.loc)
	today := now.Format("2006-01-02") == date.Format("2006-01-02")
	if !today && date.Before(now) {
		return nil
	}

	var out []Slot
	for _, win := range weekly.Windows(date.Weekday()) {
		iv := win.On(date)
		start := iv.Start
		if today {
			start = schedule.EffectiveStart(start, now, schedule.SlotDuration)
		}
		for _, tick := range schedule.Ticks(start, iv.End, schedule.SlotDuration) {
			if overlapsAny(tick, busy) || overlapsAny(tick, zones) {
				continue
			}
			out = append(out, Slot{
				Start: tick.Start.Format("15:04"),
				End:   tick.End.Format("15:04"),
			})
		}
	}
	return out
}

func doctorWeekly(doc model.Doctor) (schedule.Weekly, bool) {
	if doc.WorkingHours == nil {
		return schedule.Weekly{}, false
	}
	return schedule.WeeklyFromLegacy(*doc.WorkingHours)
}

// coversSlot reports whether some working window contains the whole slot, not
// just its start. A slot that would run past closing is never offered.
func coversSlot(weekly schedule.Weekly, slot schedule.Interval) bool {
	for _, win := range weekly.Windows(slot.Start.Weekday()) {
		iv := win.On(slot.Start)
		if !slot.Start.Before(iv.Start) && !slot.End.After(iv.End) {
			return true
		}
	}
	return false
}

func overlapsAny(slot schedule.Interval, busy []schedule.Interval) bool {
	for _, b := range busy {
		if slot.Overlaps(b) {
			return true
		}
	}
	return false
}

func dayBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 0, 1)
}
