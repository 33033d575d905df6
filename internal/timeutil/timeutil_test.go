package timeutil

import (
	"errors"
	"testing"
	"time"

	"Mansoor88-6/pulse-tracker/internal/apperrors"
)

func TestElapsedMinutesRoundsAndClamps(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		end  time.Time
		want int
	}{
		{"exact", base.Add(100 * time.Minute), 100},
		{"rounds down", base.Add(10*time.Minute + 29*time.Second), 10},
		{"rounds half up", base.Add(10*time.Minute + 30*time.Second), 11},
		{"zero", base, 0},
		{"negative clamps", base.Add(-5 * time.Minute), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ElapsedMinutes(base, tc.end); got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}

func TestCheckedElapsedMinutesRejectsInvertedRange(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if _, err := CheckedElapsedMinutes(base, base.Add(-time.Minute)); !errors.Is(err, apperrors.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	got, err := CheckedElapsedMinutes(base, base.Add(2*time.Hour))
	if err != nil || got != 120 {
		t.Fatalf("got %d, %v", got, err)
	}
}

func TestPeriodBoundsWeekStartsMonday(t *testing.T) {
	// Sunday 2026-03-08 14:30 belongs to the week starting Monday 2026-03-02.
	ref := time.Date(2026, 3, 8, 14, 30, 0, 0, time.UTC)
	start, end, err := PeriodBounds(PeriodWeek, ref, time.UTC)
	if err != nil {
		t.Fatalf("period bounds: %v", err)
	}
	if want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Fatalf("week start %v want %v", start, want)
	}
	if !end.Equal(ref) {
		t.Fatalf("end must be the reference instant")
	}

	// Monday itself starts its own week.
	monday := time.Date(2026, 3, 2, 0, 0, 1, 0, time.UTC)
	start, _, _ = PeriodBounds(PeriodWeek, monday, time.UTC)
	if !start.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("monday week start %v", start)
	}
}

func TestPeriodBoundsOtherPeriods(t *testing.T) {
	ref := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	cases := map[Period]time.Time{
		PeriodToday: time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC),
		PeriodMonth: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		PeriodYear:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for period, want := range cases {
		start, _, err := PeriodBounds(period, ref, time.UTC)
		if err != nil {
			t.Fatalf("%s: %v", period, err)
		}
		if !start.Equal(want) {
			t.Fatalf("%s start %v want %v", period, start, want)
		}
	}
	if _, _, err := PeriodBounds("decade", ref, time.UTC); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPeriodBoundsHonoursLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	// 20:00 UTC on the 14th is already the 15th in UTC+7.
	ref := time.Date(2026, 7, 14, 20, 0, 0, 0, time.UTC)
	start, _, _ := PeriodBounds(PeriodToday, ref, loc)
	if want := time.Date(2026, 7, 15, 0, 0, 0, 0, loc); !start.Equal(want) {
		t.Fatalf("got %v want %v", start, want)
	}
}

func TestPreviousRangeHasEqualLength(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(72 * time.Hour)
	prevStart, prevEnd := PreviousRange(start, end)
	if !prevEnd.Equal(start) || end.Sub(start) != prevEnd.Sub(prevStart) {
		t.Fatalf("unexpected previous range %v..%v", prevStart, prevEnd)
	}
}

func TestFormatDurationRoundTrip(t *testing.T) {
	a := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b := a.Add(125 * time.Minute)

	text := FormatDuration(ElapsedMinutes(a, b))
	if text != "2h 5m" {
		t.Fatalf("got %q", text)
	}
	back, err := ParseDuration(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back != 125 {
		t.Fatalf("round trip gave %d", back)
	}
}

func TestParseDurationForms(t *testing.T) {
	cases := map[string]int{"0h 0m": 0, "2h": 120, "45m": 45, "1h30m": 90}
	for in, want := range cases {
		got, err := ParseDuration(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %d, %v", in, got, err)
		}
	}
	for _, bad := range []string{"", "abc", "5s", "h m"} {
		if _, err := ParseDuration(bad); err == nil {
			t.Fatalf("%q should fail", bad)
		}
	}
}

func TestParsePeriodDefaultsToWeek(t *testing.T) {
	p, err := ParsePeriod("")
	if err != nil || p != PeriodWeek {
		t.Fatalf("got %q, %v", p, err)
	}
	if _, err := ParsePeriod("fortnight"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDecimalHours(t *testing.T) {
	if got := DecimalHours(100); got != 1.67 {
		t.Fatalf("got %v", got)
	}
}
