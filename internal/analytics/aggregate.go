package analytics

import (
	"math"
	"sort"
	"time"

	"Mansoor88-6/pulse-tracker/internal/models"
	"Mansoor88-6/pulse-tracker/internal/timeutil"
)

const (
	ShortSessionLimit  = 15
	MediumSessionLimit = 60
)

// Totals are the headline figures for a range.
type Totals struct {
	Minutes        int     `json:"total_minutes"`
	Hours          float64 `json:"total_hours"`
	Formatted      string  `json:"formatted"`
	Sessions       int     `json:"total_sessions"`
	AverageMinutes int     `json:"average_session_minutes"`
	Earnings       float64 `json:"total_earnings"`
	FocusScore     float64 `json:"focus_score"`
	WorkingDays    int     `json:"working_days"`
}

type ProjectTotal struct {
	ProjectID string  `json:"project_id"`
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	Minutes   int     `json:"total_minutes"`
	Sessions  int     `json:"sessions"`
	Earnings  float64 `json:"earnings"`
}

type DayTotal struct {
	Date     string  `json:"date"`
	Minutes  int     `json:"total_minutes"`
	Sessions int     `json:"sessions"`
	Earnings float64 `json:"earnings"`
}

type HourTotal struct {
	Hour     int `json:"hour"`
	Minutes  int `json:"total_minutes"`
	Sessions int `json:"sessions"`
}

// WeekdayTotal uses ISO numbering: 1 is Monday, 7 is Sunday.
type WeekdayTotal struct {
	Weekday  int    `json:"weekday"`
	Name     string `json:"name"`
	Minutes  int    `json:"total_minutes"`
	Sessions int    `json:"sessions"`
}

type LengthBuckets struct {
	Short  int `json:"short"`
	Medium int `json:"medium"`
	Long   int `json:"long"`
}

// Summary is the folded view of a user's completed pulses over a range.
type Summary struct {
	Period    timeutil.Period `json:"period,omitempty"`
	Start     time.Time       `json:"start"`
	End       time.Time       `json:"end"`
	Timezone  string          `json:"timezone"`
	ProjectID string          `json:"project_id,omitempty"`
	Totals

	Projects []ProjectTotal `json:"project_breakdown"`
	Daily    []DayTotal     `json:"daily_activity"`
	Hourly   []HourTotal    `json:"hourly_distribution"`
	Weekdays []WeekdayTotal `json:"weekday_distribution"`
	// PeakHour and PeakWeekday are nil when the range holds no pulses.
	PeakHour    *int          `json:"peak_hour,omitempty"`
	PeakWeekday *int          `json:"peak_weekday,omitempty"`
	Lengths     LengthBuckets `json:"session_lengths"`

	Comparison *Comparison `json:"comparison,omitempty"`
}

// Fold aggregates pulses into a Summary. Only completed pulses count.
// projects supplies names and colors; a missing entry leaves them blank.
// Calendar bucketing uses loc.
func Fold(pulses []*models.Pulse, projects map[string]*models.Project, loc *time.Location) *Summary {
	if loc == nil {
		loc = time.UTC
	}

	var (
		s          = &Summary{Timezone: loc.String()}
		byProject  = map[string]*ProjectTotal{}
		byDay      = map[string]*DayTotal{}
		hours      [24]HourTotal
		weekdays   [7]WeekdayTotal
		focusTotal int
	)
	for h := range hours {
		hours[h].Hour = h
	}
	for i := range weekdays {
		weekdays[i].Weekday = i + 1
		weekdays[i].Name = time.Weekday((i + 1) % 7).String()
	}

	for _, p := range pulses {
		if p.Status != models.PulseCompleted {
			continue
		}
		earnings := p.Earnings()
		local := p.StartTime.In(loc)

		s.Minutes += p.Duration
		s.Sessions++
		s.Earnings += earnings
		focusTotal += p.FocusScore()

		pt, ok := byProject[p.ProjectID]
		if !ok {
			pt = &ProjectTotal{ProjectID: p.ProjectID}
			if project := projects[p.ProjectID]; project != nil {
				pt.Name = project.Name
				pt.Color = project.Color
			}
			byProject[p.ProjectID] = pt
		}
		pt.Minutes += p.Duration
		pt.Sessions++
		pt.Earnings += earnings

		key := local.Format(time.DateOnly)
		day, ok := byDay[key]
		if !ok {
			day = &DayTotal{Date: key}
			byDay[key] = day
		}
		day.Minutes += p.Duration
		day.Sessions++
		day.Earnings += earnings

		hours[local.Hour()].Minutes += p.Duration
		hours[local.Hour()].Sessions++
		wd := isoWeekday(local.Weekday())
		weekdays[wd-1].Minutes += p.Duration
		weekdays[wd-1].Sessions++

		switch {
		case p.Duration < ShortSessionLimit:
			s.Lengths.Short++
		case p.Duration < MediumSessionLimit:
			s.Lengths.Medium++
		default:
			s.Lengths.Long++
		}
	}

	s.Hours = timeutil.DecimalHours(s.Minutes)
	s.Formatted = timeutil.FormatDuration(s.Minutes)
	s.Earnings = roundMoney(s.Earnings)
	s.WorkingDays = len(byDay)
	if s.Sessions > 0 {
		s.AverageMinutes = int(math.Round(float64(s.Minutes) / float64(s.Sessions)))
		s.FocusScore = math.Round(float64(focusTotal)/float64(s.Sessions)*100) / 100
	}

	s.Projects = make([]ProjectTotal, 0, len(byProject))
	for _, pt := range byProject {
		pt.Earnings = roundMoney(pt.Earnings)
		s.Projects = append(s.Projects, *pt)
	}
	sort.Slice(s.Projects, func(i, j int) bool {
		a, b := s.Projects[i], s.Projects[j]
		if a.Minutes != b.Minutes {
			return a.Minutes > b.Minutes
		}
		return a.ProjectID < b.ProjectID
	})

	s.Daily = make([]DayTotal, 0, len(byDay))
	for _, day := range byDay {
		day.Earnings = roundMoney(day.Earnings)
		s.Daily = append(s.Daily, *day)
	}
	sort.Slice(s.Daily, func(i, j int) bool { return s.Daily[i].Date < s.Daily[j].Date })

	s.Hourly = hours[:]
	s.Weekdays = weekdays[:]
	if s.Sessions > 0 {
		peakHour := 0
		for h := range hours {
			if hours[h].Minutes > hours[peakHour].Minutes {
				peakHour = h
			}
		}
		peakDay := 0
		for i := range weekdays {
			if weekdays[i].Minutes > weekdays[peakDay].Minutes {
				peakDay = i
			}
		}
		peakWeekday := peakDay + 1
		s.PeakHour = &peakHour
		s.PeakWeekday = &peakWeekday
	}
	return s
}

func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
