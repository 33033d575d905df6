package timeutil

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"Mansoor88-6/pulse-tracker/internal/apperrors"
)

// Period is a named analytics range.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod maps a query value to a Period. Empty defaults to week.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return PeriodWeek, nil
	case PeriodToday:
		return PeriodToday, nil
	case PeriodWeek:
		return PeriodWeek, nil
	case PeriodMonth:
		return PeriodMonth, nil
	case PeriodYear:
		return PeriodYear, nil
	}
	return "", apperrors.Validation("unknown period %q (want today, week, month or year)", s)
}

// ElapsedMinutes returns round((end-start) in minutes), never negative.
// Callers that care about inverted ranges check end.Before(start) themselves.
func ElapsedMinutes(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(math.Round(end.Sub(start).Minutes()))
}

// CheckedElapsedMinutes is ElapsedMinutes for callers that must reject an
// inverted range instead of clamping it.
func CheckedElapsedMinutes(start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, apperrors.ErrInvalidRange
	}
	return ElapsedMinutes(start, end), nil
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// StartOfWeek returns midnight of the Monday on or before t.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	day := StartOfDay(t, loc)
	offset := int(day.Weekday())
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, -offset+1)
}

func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

func StartOfYear(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, loc)
}

// PeriodBounds returns [start, ref) for the period containing ref.
func PeriodBounds(period Period, ref time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	var start time.Time
	switch period {
	case PeriodToday:
		start = StartOfDay(ref, loc)
	case PeriodWeek:
		start = StartOfWeek(ref, loc)
	case PeriodMonth:
		start = StartOfMonth(ref, loc)
	case PeriodYear:
		start = StartOfYear(ref, loc)
	default:
		return time.Time{}, time.Time{}, apperrors.Validation("unknown period %q", period)
	}
	return start, ref, nil
}

// PreviousRange returns the range of equal length ending where [start, end) begins.
func PreviousRange(start, end time.Time) (time.Time, time.Time) {
	return start.Add(-end.Sub(start)), start
}

// FormatDuration renders minutes as "2h 5m". Negative input renders as "0h 0m".
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

var durationPattern = regexp.MustCompile(`^\s*(?:(\d+)h)?\s*(?:(\d+)m)?\s*$`)

// ParseDuration is the inverse of FormatDuration. It also accepts "2h" and "45m".
func ParseDuration(s string) (int, error) {
	match := durationPattern.FindStringSubmatch(s)
	if match == nil || (match[1] == "" && match[2] == "") {
		return 0, apperrors.Validation("invalid duration %q", s)
	}
	total := 0
	if match[1] != "" {
		h, err := strconv.Atoi(match[1])
		if err != nil {
			return 0, apperrors.Validation("invalid hours in %q", s)
		}
		total += h * 60
	}
	if match[2] != "" {
		m, err := strconv.Atoi(match[2])
		if err != nil {
			return 0, apperrors.Validation("invalid minutes in %q", s)
		}
		total += m
	}
	return total, nil
}

// DecimalHours converts minutes to hours rounded to two decimals.
func DecimalHours(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}
