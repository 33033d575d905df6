package service

import (
	"context"
	"time"

	"Mansoor88-6/pulse-tracker/internal/apperrors"
	"Mansoor88-6/pulse-tracker/internal/clock"
	"Mansoor88-6/pulse-tracker/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PulseStore persists pulses. Update and Complete are guarded by the
// expected version; Complete also credits the project total.
type PulseStore interface {
	Create(ctx context.Context, p *models.Pulse) error
	FindOwned(ctx context.Context, id, userID string) (*models.Pulse, error)
	FindActiveOrPaused(ctx context.Context, userID string) (*models.Pulse, error)
	Update(ctx context.Context, p *models.Pulse, expectedVersion int64) error
	Complete(ctx context.Context, p *models.Pulse, expectedVersion int64) error
	Delete(ctx context.Context, id, userID string, now time.Time) error
	List(ctx context.Context, userID string, filter models.PulseFilter, limit, offset int) ([]*models.Pulse, int, error)
}

// ProjectLookup resolves a project owned by a user.
type ProjectLookup interface {
	FindOwned(ctx context.Context, id, userID string) (*models.Project, error)
}

// PageLimits bounds list queries.
type PageLimits struct {
	Default int
	Max     int
}

type PulseService struct {
	pulses   PulseStore
	projects ProjectLookup
	clock    clock.Clock
	limits   PageLimits
	logger   *zap.Logger
}

func NewPulseService(
	pulses PulseStore,
	projects ProjectLookup,
	clk clock.Clock,
	limits PageLimits,
	logger *zap.Logger,
) *PulseService {
	return &PulseService{
		pulses:   pulses,
		projects: projects,
		clock:    clk,
		limits:   limits,
		logger:   logger,
	}
}

// Start opens a new active pulse on one of the user's projects.
func (s *PulseService) Start(ctx context.Context, userID string, req models.StartPulseRequest) (*models.Pulse, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	project, err := s.projects.FindOwned(ctx, req.ProjectID, userID)
	if err != nil {
		return nil, err
	}

	// The unique index is the real guard; this only gives a friendlier error
	// in the common, non-racing case.
	current, err := s.pulses.FindActiveOrPaused(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return nil, apperrors.ConflictCause(apperrors.ErrActiveSessionExists,
			"you already have an active session (%s), stop it first", current.ID)
	}

	pulse := models.NewPulse(uuid.NewString(), project, req, s.clock.Now())
	if err := s.pulses.Create(ctx, pulse); err != nil {
		return nil, err
	}

	s.logger.Info("Pulse started",
		zap.String("pulse_id", pulse.ID),
		zap.String("project_id", pulse.ProjectID),
		zap.String("user_id", userID),
	)
	return pulse, nil
}

func (s *PulseService) Pause(ctx context.Context, userID, id string) (*models.Pulse, error) {
	return s.transition(ctx, userID, id, "pause", func(p *models.Pulse, now time.Time) error {
		return p.Pause(now)
	})
}

func (s *PulseService) Resume(ctx context.Context, userID, id string) (*models.Pulse, error) {
	return s.transition(ctx, userID, id, "resume", func(p *models.Pulse, now time.Time) error {
		minutes, err := p.Resume(now)
		if err == nil {
			s.logger.Debug("Pause closed", zap.String("pulse_id", id), zap.Int("minutes", minutes))
		}
		return err
	})
}

func (s *PulseService) AddBreak(ctx context.Context, userID, id string, req models.AddBreakRequest) (*models.Pulse, error) {
	return s.transition(ctx, userID, id, "break", func(p *models.Pulse, now time.Time) error {
		return p.AddBreak(now, req)
	})
}

func (s *PulseService) Update(ctx context.Context, userID, id string, req models.UpdatePulseRequest) (*models.Pulse, error) {
	return s.transition(ctx, userID, id, "update", func(p *models.Pulse, now time.Time) error {
		return p.Update(now, req)
	})
}

// Stop completes the pulse and credits its duration to the project in the
// same transaction.
func (s *PulseService) Stop(ctx context.Context, userID, id string, req models.StopPulseRequest) (*models.Pulse, error) {
	p, err := s.pulses.FindOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	now := s.now(p)
	expected := p.Version
	if err := p.Stop(now, req.Notes); err != nil {
		return nil, err
	}
	if err := s.pulses.Complete(ctx, p, expected); err != nil {
		return nil, err
	}

	s.logger.Info("Pulse stopped",
		zap.String("pulse_id", p.ID),
		zap.String("project_id", p.ProjectID),
		zap.Int("duration", p.Duration),
		zap.Int("paused_duration", p.PausedDuration),
	)
	return p, nil
}

// GetActive returns the user's active or paused pulse, or nil.
func (s *PulseService) GetActive(ctx context.Context, userID string) (*models.Pulse, error) {
	return s.pulses.FindActiveOrPaused(ctx, userID)
}

func (s *PulseService) Get(ctx context.Context, userID, id string) (*models.Pulse, error) {
	return s.pulses.FindOwned(ctx, id, userID)
}

func (s *PulseService) Delete(ctx context.Context, userID, id string) error {
	if err := s.pulses.Delete(ctx, id, userID, s.clock.Now()); err != nil {
		return err
	}
	s.logger.Info("Pulse deleted", zap.String("pulse_id", id), zap.String("user_id", userID))
	return nil
}

// List returns one page of the user's pulses. Page starts at 1; limit falls
// back to the default and is capped at the maximum.
func (s *PulseService) List(ctx context.Context, userID string, filter models.PulseFilter, page, limit int) (*models.PulsePage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Validation("invalid status filter %q", filter.Status)
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, apperrors.Validation("end date is before start date")
	}
	page, limit = s.clampPage(page, limit)

	items, total, err := s.pulses.List(ctx, userID, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	return &models.PulsePage{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

func (s *PulseService) clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = s.limits.Default
	}
	if limit > s.limits.Max {
		limit = s.limits.Max
	}
	return page, limit
}

// transition loads the pulse, applies fn and writes it back under the
// version read.
func (s *PulseService) transition(
	ctx context.Context,
	userID, id, op string,
	fn func(p *models.Pulse, now time.Time) error,
) (*models.Pulse, error) {
	p, err := s.pulses.FindOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	now := s.now(p)
	expected := p.Version
	if err := fn(p, now); err != nil {
		return nil, err
	}
	if err := s.pulses.Update(ctx, p, expected); err != nil {
		return nil, err
	}

	s.logger.Info("Pulse updated",
		zap.String("op", op),
		zap.String("pulse_id", p.ID),
		zap.String("status", string(p.Status)),
	)
	return p, nil
}

func (s *PulseService) now(p *models.Pulse) time.Time {
	now := s.clock.Now()
	if p.SkewedAt(now) {
		s.logger.Warn("Clock is behind the pulse's last timestamp, elapsed time clamped to zero",
			zap.String("pulse_id", p.ID),
			zap.Time("now", now),
			zap.Time("start_time", p.StartTime),
		)
	}
	return now
}
