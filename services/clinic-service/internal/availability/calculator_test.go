package availability

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pawdesk/pawdesk/services/clinic-service/internal/model"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/schedule"
)

type fakeSource struct {
	doctors []model.Doctor
	busy    map[int64][]schedule.Interval
	zones   map[int64][]schedule.Interval
}

func (f *fakeSource) GetDoctor(_ context.Context, id int64) (model.Doctor, error) {
	for _, d := range f.doctors {
		if d.ID == id {
			return d, nil
		}
	}
	return model.Doctor{}, context.Canceled
}

func (f *fakeSource) ListDoctors(_ context.Context) ([]model.Doctor, error) {
	return f.doctors, nil
}

func (f *fakeSource) ListConflictIntervals(_ context.Context, _ []int64, _, _ time.Time) (map[int64][]schedule.Interval, error) {
	return f.busy, nil
}

func (f *fakeSource) ListZoneIntervals(_ context.Context, _ []int64, _, _ time.Time) (map[int64][]schedule.Interval, error) {
	return f.zones, nil
}

func testDoctor(id int64, name, hours string) model.Doctor {
	return model.Doctor{ID: id, Name: name, Specialization: "general", WorkingHours: &hours}
}

func newTestCalculator(src *fakeSource, now time.Time) *Calculator {
	c := NewCalculator(src, src, slog.New(slog.NewTextHandler(io.Discard, nil)), time.UTC)
	c.now = func() time.Time { return now }
	return c
}

func date(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		t.Fatalf("bad test date %q: %v", value, err)
	}
	return d
}

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02 15:04", value, time.UTC)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", value, err)
	}
	return d
}

func TestSlotsForDoctorFullDay(t *testing.T) {
	src := &fakeSource{doctors: []model.Doctor{testDoctor(1, "Dr. Ada", "09:00-19:00")}}
	calc := newTestCalculator(src, ts(t, "2026-09-01 08:00"))

	slots, err := calc.SlotsForDoctorOnDate(context.Background(), 1, date(t, "2026-09-07"))
	if err != nil {
		t.Fatalf("SlotsForDoctorOnDate failed: %v", err)
	}
	if len(slots) != 30 {
		t.Fatalf("expected 30 slots for an empty 09:00-19:00 day, got %d", len(slots))
	}
	if slots[0].Start != "09:00" || slots[0].End != "09:20" {
		t.Fatalf("unexpected first slot: %+v", slots[0])
	}
	if slots[29].Start != "18:40" || slots[29].End != "19:00" {
		t.Fatalf("unexpected last slot: %+v", slots[29])
	}
}

func TestBookedSlotIsExcludedExactly(t *testing.T) {
	src := &fakeSource{
		doctors: []model.Doctor{testDoctor(1, "Dr. Ada", "09:00-19:00")},
		busy: map[int64][]schedule.Interval{
			1: {{Start: ts(t, "2026-09-07 10:00"), End: ts(t, "2026-09-07 10:20")}},
		},
	}
	calc := newTestCalculator(src, ts(t, "2026-09-01 08:00"))

	slots, err := calc.SlotsForDoctorOnDate(context.Background(), 1, date(t, "2026-09-07"))
	if err != nil {
		t.Fatalf("SlotsForDoctorOnDate failed: %v", err)
	}
	if len(slots) != 29 {
		t.Fatalf("expected exactly one slot removed, got %d slots", len(slots))
	}
	for _, s := range slots {
		if s.Start == "10:00" {
			t.Fatal("10:00 slot should be gone")
		}
	}
	// back-to-back neighbours survive
	var has0940, has1020 bool
	for _, s := range slots {
		if s.Start == "09:40" {
			has0940 = true
		}
		if s.Start == "10:20" {
			has1020 = true
		}
	}
	if !has0940 || !has1020 {
		t.Fatal("adjacent slots must remain available")
	}
}

func TestOddDurationAppointmentBlocksTouchedSlots(t *testing.T) {
	// a 30-minute appointment at 10:00 covers the 10:00 and 10:20 cells
	src := &fakeSource{
		doctors: []model.Doctor{testDoctor(1, "Dr. Ada", "09:00-19:00")},
		busy: map[int64][]schedule.Interval{
			1: {{Start: ts(t, "2026-09-07 10:00"), End: ts(t, "2026-09-07 10:30")}},
		},
	}
	calc := newTestCalculator(src, ts(t, "2026-09-01 08:00"))

	slots, err := calc.SlotsForDoctorOnDate(context.Background(), 1, date(t, "2026-09-07"))
	if err != nil {
		t.Fatalf("SlotsForDoctorOnDate failed: %v", err)
	}
	if len(slots) != 28 {
		t.Fatalf("expected 28 slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start == "10:00" || s.Start == "10:20" {
			t.Fatalf("slot %s should be blocked", s.Start)
		}
	}
}

func TestRestrictedZoneBlocksSlots(t *testing.T) {
	src := &fakeSource{
		doctors: []model.Doctor{testDoctor(1, "Dr. Ada", "09:00-19:00")},
		zones: map[int64][]schedule.Interval{
			1: {{Start: ts(t, "2026-09-07 13:00"), End: ts(t, "2026-09-07 15:00")}},
		},
	}
	calc := newTestCalculator(src, ts(t, "2026-09-01 08:00"))

	slots, err := calc.SlotsForDoctorOnDate(context.Background(), 1, date(t, "2026-09-07"))
	if err != nil {
		t.Fatalf("SlotsForDoctorOnDate failed: %v", err)
	}
	// 13:00-15:00 covers 6 grid cells
	if len(slots) != 24 {
		t.Fatalf("expected 24 slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start >= "13:00" && s.Start < "15:00" {
			t.Fatalf("slot %s falls inside the restricted zone", s.Start)
		}
	}
}

func TestTodayRoundsForward(t *testing.T) {
	src := &fakeSource{doctors: []model.Doctor{testDoctor(1, "Dr. Ada", "09:00-19:00")}}
	calc := newTestCalculator(src, ts(t, "2026-09-07 09:07"))

	slots, err := calc.SlotsForDoctorOnDate(context.Background(), 1, date(t, "2026-09-07"))
	if err != nil {
		t.Fatalf("SlotsForDoctorOnDate failed: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected remaining slots today")
	}
	if slots[0].Start != "09:20" {
		t.Fatalf("first slot today should be 09:20, got %s", slots[0].Start)
	}
}

func TestPastDateHasNoSlots(t *testing.T) {
	src := &fakeSource{doctors: []model.Doctor{testDoctor(1, "Dr. Ada", "09:00-19:00")}}
	calc := newTestCalculator(src, ts(t, "2026-09-07 09:00"))

	slots, err := calc.SlotsForDoctorOnDate(context.Background(), 1, date(t, "2026-09-01"))
	if err != nil {
		t.Fatalf("SlotsForDoctorOnDate failed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on a past date, got %d", len(slots))
	}
}

func TestMalformedWorkingHoursMeansNoSlots(t *testing.T) {
	src := &fakeSource{doctors: []model.Doctor{
		testDoctor(1, "Dr. Ada", "whenever"),
		{ID: 2, Name: "Dr. Bell"}, // nil working hours
	}}
	calc := newTestCalculator(src, ts(t, "2026-09-01 08:00"))

	for _, id := range []int64{1, 2} {
		slots, err := calc.SlotsForDoctorOnDate(context.Background(), id, date(t, "2026-09-07"))
		if err != nil {
			t.Fatalf("SlotsForDoctorOnDate(%d) failed: %v", id, err)
		}
		if len(slots) != 0 {
			t.Fatalf("doctor %d should have no slots, got %d", id, len(slots))
		}
	}
}

func TestMultiDoctorSlotsMatchesPerDoctor(t *testing.T) {
	src := &fakeSource{
		doctors: []model.Doctor{
			testDoctor(1, "Dr. Ada", "09:00-12:00"),
			testDoctor(2, "Dr. Bell", "10:00-11:00"),
		},
		busy: map[int64][]schedule.Interval{
			2: {{Start: ts(t, "2026-09-07 10:00"), End: ts(t, "2026-09-07 10:20")}},
		},
	}
	calc := newTestCalculator(src, ts(t, "2026-09-01 08:00"))
	day := date(t, "2026-09-07")

	multi, err := calc.MultiDoctorSlots(context.Background(), day)
	if err != nil {
		t.Fatalf("MultiDoctorSlots failed: %v", err)
	}
	if len(multi) != 2 {
		t.Fatalf("expected 2 doctors with availability, got %d", len(multi))
	}
	for _, ds := range multi {
		single, err := calc.SlotsForDoctorOnDate(context.Background(), ds.DoctorID, day)
		if err != nil {
			t.Fatalf("SlotsForDoctorOnDate(%d) failed: %v", ds.DoctorID, err)
		}
		if len(single) != len(ds.Slots) {
			t.Fatalf("doctor %d: multi view has %d slots, single view %d", ds.DoctorID, len(ds.Slots), len(single))
		}
	}
}

func TestCalendarOmitsFullyBookedDays(t *testing.T) {
	// Dr. Ada works one hour; 2026-09-08 is entirely covered by a zone.
	src := &fakeSource{
		doctors: []model.Doctor{testDoctor(1, "Dr. Ada", "10:00-11:00")},
		zones: map[int64][]schedule.Interval{
			1: {{Start: ts(t, "2026-09-08 00:00"), End: ts(t, "2026-09-09 00:00")}},
		},
	}
	calc := newTestCalculator(src, ts(t, "2026-09-01 08:00"))

	days, err := calc.CalendarForDateRange(context.Background(), date(t, "2026-09-07"), date(t, "2026-09-09"))
	if err != nil {
		t.Fatalf("CalendarForDateRange failed: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 days with availability, got %d", len(days))
	}
	for _, d := range days {
		if d.Date == "2026-09-08" {
			t.Fatal("fully blocked day must be omitted")
		}
		if len(d.Slots) != 3 {
			t.Fatalf("day %s: expected 3 ticks in a one-hour window, got %d", d.Date, len(d.Slots))
		}
	}
}

func TestCalendarCountsDoctorsPerTick(t *testing.T) {
	src := &fakeSource{
		doctors: []model.Doctor{
			testDoctor(1, "Dr. Ada", "10:00-11:00"),
			testDoctor(2, "Dr. Bell", "10:00-10:40"),
			{ID: 3, Name: "Dr. Cole"}, // no working hours, not counted
		},
		busy: map[int64][]schedule.Interval{
			2: {{Start: ts(t, "2026-09-07 10:00"), End: ts(t, "2026-09-07 10:20")}},
		},
	}
	calc := newTestCalculator(src, ts(t, "2026-09-01 08:00"))

	days, err := calc.CalendarForDateRange(context.Background(), date(t, "2026-09-07"), date(t, "2026-09-07"))
	if err != nil {
		t.Fatalf("CalendarForDateRange failed: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(days))
	}
	want := map[string]int{"10:00": 1, "10:20": 2, "10:40": 1}
	if len(days[0].Slots) != len(want) {
		t.Fatalf("expected %d ticks, got %+v", len(want), days[0].Slots)
	}
	for _, slot := range days[0].Slots {
		if slot.TotalDoctors != 2 {
			t.Fatalf("tick %s: total_doctors = %d, want 2", slot.Time, slot.TotalDoctors)
		}
		if slot.AvailableCount != want[slot.Time] {
			t.Fatalf("tick %s: available_count = %d, want %d", slot.Time, slot.AvailableCount, want[slot.Time])
		}
	}
}

func TestDoctorsAvailableAt(t *testing.T) {
	src := &fakeSource{
		doctors: []model.Doctor{
			testDoctor(1, "Dr. Ada", "09:00-19:00"),
			testDoctor(2, "Dr. Bell", "09:00-19:00"),
			testDoctor(3, "Dr. Cole", "14:00-19:00"),
		},
		busy: map[int64][]schedule.Interval{
			2: {{Start: ts(t, "2026-09-07 10:00"), End: ts(t, "2026-09-07 10:20")}},
		},
	}
	calc := newTestCalculator(src, ts(t, "2026-09-01 08:00"))

	got, err := calc.DoctorsAvailableAt(context.Background(), ts(t, "2026-09-07 10:00"))
	if err != nil {
		t.Fatalf("DoctorsAvailableAt failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only doctor 1 available at 10:00, got %+v", got)
	}
}

func TestDoctorsAvailableAtClosingBoundary(t *testing.T) {
	src := &fakeSource{doctors: []model.Doctor{testDoctor(1, "Dr. Ada", "09:00-19:00")}}
	calc := newTestCalculator(src, ts(t, "2026-09-01 08:00"))
	ctx := context.Background()

	// 18:40-19:00 is the last full slot of the day
	got, err := calc.DoctorsAvailableAt(ctx, ts(t, "2026-09-07 18:40"))
	if err != nil {
		t.Fatalf("DoctorsAvailableAt failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the last full slot to be available, got %+v", got)
	}

	// 18:50-19:10 runs past closing, 19:00-19:20 starts at closing
	for _, at := range []string{"2026-09-07 18:50", "2026-09-07 19:00"} {
		got, err := calc.DoctorsAvailableAt(ctx, ts(t, at))
		if err != nil {
			t.Fatalf("DoctorsAvailableAt(%s) failed: %v", at, err)
		}
		if len(got) != 0 {
			t.Fatalf("slot at %s extends past closing, got %+v", at, got)
		}
	}
}
