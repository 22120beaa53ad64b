package schedule

import (
	"testing"
	"time"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", value)
	if err != nil {
		t.Fatalf("bad test time %q: %v", value, err)
	}
	return ts
}

func TestTicksFullDay(t *testing.T) {
	start := at(t, "2026-09-07 09:00:00")
	end := at(t, "2026-09-07 19:00:00")

	slots := Ticks(start, end, SlotDuration)
	if len(slots) != 30 {
		t.Fatalf("expected 30 slots for 09:00-19:00, got %d", len(slots))
	}
	if got := slots[0].Start.Format("15:04"); got != "09:00" {
		t.Fatalf("first slot starts at %s, want 09:00", got)
	}
	last := slots[len(slots)-1]
	if got := last.Start.Format("15:04"); got != "18:40" {
		t.Fatalf("last slot starts at %s, want 18:40", got)
	}
	if !last.End.Equal(end) {
		t.Fatalf("last slot ends at %v, want %v", last.End, end)
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].Start.Equal(slots[i-1].End) {
			t.Fatalf("gap between slot %d and %d", i-1, i)
		}
	}
}

func TestTicksDiscardsPartialTrailingSlot(t *testing.T) {
	start := at(t, "2026-09-07 09:00:00")
	end := at(t, "2026-09-07 09:50:00")

	slots := Ticks(start, end, SlotDuration)
	if len(slots) != 2 {
		t.Fatalf("expected 2 full slots in a 50-minute window, got %d", len(slots))
	}
	if got := slots[1].End.Format("15:04"); got != "09:40" {
		t.Fatalf("last full slot ends at %s, want 09:40", got)
	}
}

func TestTicksEmptyWindow(t *testing.T) {
	start := at(t, "2026-09-07 18:00:00")
	for _, end := range []time.Time{start, at(t, "2026-09-07 09:00:00")} {
		if slots := Ticks(start, end, SlotDuration); len(slots) != 0 {
			t.Fatalf("expected no slots for start >= end, got %d", len(slots))
		}
	}
}

func TestOverlaps(t *testing.T) {
	iv := func(from, to string) Interval {
		return Interval{Start: at(t, "2026-09-07 "+from+":00"), End: at(t, "2026-09-07 "+to+":00")}
	}
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", iv("10:00", "10:20"), iv("10:00", "10:20"), true},
		{"contained", iv("10:00", "11:00"), iv("10:20", "10:40"), true},
		{"partial", iv("10:00", "10:30"), iv("10:20", "10:50"), true},
		{"back to back", iv("10:00", "10:20"), iv("10:20", "10:40"), false},
		{"disjoint", iv("10:00", "10:20"), iv("11:00", "11:20"), false},
	}
	for _, tc := range cases {
		if got := tc.a.Overlaps(tc.b); got != tc.want {
			t.Fatalf("%s: Overlaps = %v, want %v", tc.name, got, tc.want)
		}
		if got := tc.b.Overlaps(tc.a); got != tc.want {
			t.Fatalf("%s: Overlaps not symmetric", tc.name)
		}
	}
}

func TestRoundUpToSlot(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"09:07:00", "09:20"},
		{"09:00:00", "09:00"},
		{"09:20:00", "09:20"},
		{"09:20:31", "09:20"},
		{"09:21:00", "09:40"},
		{"09:45:00", "10:00"},
		{"23:45:00", "00:00"}, // rolls into next day
	}
	for _, tc := range cases {
		got := RoundUpToSlot(at(t, "2026-09-07 "+tc.in), SlotDuration)
		if got.Format("15:04") != tc.want {
			t.Fatalf("RoundUpToSlot(%s) = %s, want %s", tc.in, got.Format("15:04"), tc.want)
		}
		if got.Second() != 0 {
			t.Fatalf("RoundUpToSlot(%s) kept seconds: %v", tc.in, got)
		}
	}

	rolled := RoundUpToSlot(at(t, "2026-09-07 23:45:00"), SlotDuration)
	if rolled.Day() != 8 {
		t.Fatalf("expected 23:45 to roll into the next day, got %v", rolled)
	}
}

func TestEffectiveStart(t *testing.T) {
	windowStart := at(t, "2026-09-07 09:00:00")

	if got := EffectiveStart(windowStart, at(t, "2026-09-07 08:00:00"), SlotDuration); !got.Equal(windowStart) {
		t.Fatalf("future window must start unchanged, got %v", got)
	}
	got := EffectiveStart(windowStart, at(t, "2026-09-07 09:07:00"), SlotDuration)
	if got.Format("15:04") != "09:20" {
		t.Fatalf("mid-window now must round forward, got %s", got.Format("15:04"))
	}
}
