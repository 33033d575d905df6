package analytics

import (
	"context"
	"math"
	"time"

	"Mansoor88-6/pulse-tracker/internal/apperrors"
	"Mansoor88-6/pulse-tracker/internal/clock"
	"Mansoor88-6/pulse-tracker/internal/models"
	"Mansoor88-6/pulse-tracker/internal/timeutil"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Comparison holds the preceding range of equal length and percentage
// changes against it.
type Comparison struct {
	PreviousStart     time.Time `json:"previous_start"`
	PreviousEnd       time.Time `json:"previous_end"`
	Previous          Totals    `json:"previous"`
	DurationChange    float64   `json:"duration_change"`
	SessionsChange    float64   `json:"sessions_change"`
	EarningsChange    float64   `json:"earnings_change"`
	WorkingDaysChange float64   `json:"working_days_change"`
}

// PercentChange is (current-previous)/previous×100, rounded to two
// decimals. A zero previous yields 100 when current is positive, else 0.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return math.Round((current-previous)/previous*100*100) / 100
}

func compare(current, previous Totals, prevStart, prevEnd time.Time) *Comparison {
	return &Comparison{
		PreviousStart:     prevStart,
		PreviousEnd:       prevEnd,
		Previous:          previous,
		DurationChange:    PercentChange(float64(current.Minutes), float64(previous.Minutes)),
		SessionsChange:    PercentChange(float64(current.Sessions), float64(previous.Sessions)),
		EarningsChange:    PercentChange(current.Earnings, previous.Earnings),
		WorkingDaysChange: PercentChange(float64(current.WorkingDays), float64(previous.WorkingDays)),
	}
}

// PulseSource lists completed pulses starting in [start, end).
type PulseSource interface {
	ListCompleted(ctx context.Context, userID string, start, end time.Time, projectID string) ([]*models.Pulse, error)
}

type ProjectSource interface {
	List(ctx context.Context, userID string, status models.ProjectStatus) ([]*models.Project, error)
}

// Query selects the range to summarise. Start and End, when both set,
// override Period and form the half-open range [Start, End).
type Query struct {
	Period    timeutil.Period
	Start     *time.Time
	End       *time.Time
	ProjectID string
	Compare   bool
}

type Service struct {
	pulses   PulseSource
	projects ProjectSource
	clock    clock.Clock
	loc      *time.Location
	logger   *zap.Logger
}

func NewService(pulses PulseSource, projects ProjectSource, clk clock.Clock, loc *time.Location, logger *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		pulses:   pulses,
		projects: projects,
		clock:    clk,
		loc:      loc,
		logger:   logger,
	}
}

// Location is the timezone used for calendar bucketing.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Summarize folds the user's completed pulses in the queried range. It only
// reads, so it may run alongside session transitions; a pulse still running
// simply does not count yet.
func (s *Service) Summarize(ctx context.Context, userID string, q Query) (*Summary, error) {
	if q.Period == "" {
		q.Period = timeutil.PeriodWeek
	}
	start, end, err := s.bounds(q)
	if err != nil {
		return nil, err
	}

	prevStart, prevEnd := timeutil.PreviousRange(start, end)

	var (
		current, previous []*models.Pulse
		projects          []*models.Project
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.pulses.ListCompleted(gctx, userID, start, end, q.ProjectID)
		return err
	})
	g.Go(func() error {
		var err error
		projects, err = s.projects.List(gctx, userID, "")
		return err
	})
	if q.Compare {
		g.Go(func() error {
			var err error
			previous, err = s.pulses.ListCompleted(gctx, userID, prevStart, prevEnd, q.ProjectID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}

	summary := Fold(current, byID, s.loc)
	summary.Start = start
	summary.End = end
	summary.ProjectID = q.ProjectID
	if q.Start == nil {
		summary.Period = q.Period
	}
	if q.Compare {
		prev := Fold(previous, byID, s.loc)
		summary.Comparison = compare(summary.Totals, prev.Totals, prevStart, prevEnd)
	}

	s.logger.Debug("Analytics summarised",
		zap.String("user_id", userID),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("sessions", summary.Sessions),
	)
	return summary, nil
}

func (s *Service) bounds(q Query) (time.Time, time.Time, error) {
	if q.Start != nil || q.End != nil {
		if q.Start == nil || q.End == nil {
			return time.Time{}, time.Time{}, apperrors.Validation("start and end dates must be given together")
		}
		if !q.End.After(*q.Start) {
			return time.Time{}, time.Time{}, &apperrors.Error{
				Kind:    apperrors.KindValidation,
				Message: "end date must be after start date",
				Err:     apperrors.ErrInvalidRange,
			}
		}
		return *q.Start, *q.End, nil
	}
	return timeutil.PeriodBounds(q.Period, s.clock.Now(), s.loc)
}
