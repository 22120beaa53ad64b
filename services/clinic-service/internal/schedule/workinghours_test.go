package schedule

import (
	"testing"
	"time"
)

func TestParseWorkingHours(t *testing.T) {
	w, ok := ParseWorkingHours("09:00-19:00")
	if !ok {
		t.Fatal("expected 09:00-19:00 to parse")
	}
	if w.Start != (Clock{Hour: 9}) || w.End != (Clock{Hour: 19}) {
		t.Fatalf("unexpected window: %+v", w)
	}

	for _, bad := range []string{"", "garbage", "09:00", "9am-5pm", "09:00-25:00", "09:60-10:00", "-09:00"} {
		if _, ok := ParseWorkingHours(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestWindowContainsBoundariesInclusive(t *testing.T) {
	w, _ := ParseWorkingHours("09:00-19:00")
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		clock string
		want  bool
	}{
		{"09:00", true},
		{"19:00", true},
		{"08:59", false},
		{"19:01", false},
		{"13:30", true},
	}
	for _, tc := range cases {
		c, _ := ParseClock(tc.clock)
		if got := w.Contains(c.At(day)); got != tc.want {
			t.Fatalf("Contains(%s) = %v, want %v", tc.clock, got, tc.want)
		}
	}
}

func TestWeeklyFromLegacy(t *testing.T) {
	weekly, ok := WeeklyFromLegacy("09:00-19:00")
	if !ok {
		t.Fatal("expected legacy range to parse")
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if got := weekly.Windows(d); len(got) != 1 {
			t.Fatalf("weekday %v: expected 1 window, got %d", d, len(got))
		}
	}

	if _, ok := WeeklyFromLegacy("nope"); ok {
		t.Fatal("expected malformed legacy range to be rejected")
	}
}

func TestWeeklyWorksAt(t *testing.T) {
	var weekly Weekly
	w, _ := ParseWorkingHours("10:00-14:00")
	weekly.Set(time.Monday, []Window{w})

	monday := time.Date(2026, 9, 7, 11, 0, 0, 0, time.UTC) // a Monday
	tuesday := monday.AddDate(0, 0, 1)

	if !weekly.WorksAt(monday) {
		t.Fatal("expected Monday 11:00 inside window")
	}
	if weekly.WorksAt(tuesday) {
		t.Fatal("expected Tuesday to have no windows")
	}
	if weekly.WorksAt(monday.Add(4 * time.Hour)) {
		t.Fatal("expected Monday 15:00 outside window")
	}
}
