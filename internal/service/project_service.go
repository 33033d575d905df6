package service

import (
	"context"
	"math"
	"time"

	"Mansoor88-6/pulse-tracker/internal/apperrors"
	"Mansoor88-6/pulse-tracker/internal/auth"
	"Mansoor88-6/pulse-tracker/internal/clock"
	"Mansoor88-6/pulse-tracker/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProjectStore interface {
	ProjectLookup
	Create(ctx context.Context, p *models.Project) error
	List(ctx context.Context, userID string, status models.ProjectStatus) ([]*models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	SetActualMinutes(ctx context.Context, id, userID string, minutes int, now time.Time) error
	Delete(ctx context.Context, id, userID string) error
	RecomputeActualMinutes(ctx context.Context, userID string, now time.Time) (int64, error)
	SessionTotals(ctx context.Context, id string) (sessions, minutes int, err error)
}

type ProjectService struct {
	projects ProjectStore
	clock    clock.Clock
	logger   *zap.Logger
}

func NewProjectService(projects ProjectStore, clk clock.Clock, logger *zap.Logger) *ProjectService {
	return &ProjectService{
		projects: projects,
		clock:    clk,
		logger:   logger,
	}
}

func (s *ProjectService) Create(ctx context.Context, userID string, req models.CreateProjectRequest) (*models.Project, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	p := &models.Project{
		ID:             uuid.NewString(),
		UserID:         userID,
		Name:           req.Name,
		Description:    req.Description,
		Color:          req.Color,
		Status:         models.ProjectActive,
		Priority:       req.Priority,
		EstimatedHours: req.EstimatedHours,
		HourlyRate:     req.HourlyRate,
		Deadline:       req.Deadline,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Project created", zap.String("project_id", p.ID), zap.String("user_id", userID))
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, userID, id string) (*models.Project, error) {
	return s.projects.FindOwned(ctx, id, userID)
}

func (s *ProjectService) List(ctx context.Context, userID string, status models.ProjectStatus) ([]*models.Project, error) {
	if status != "" && !status.Valid() {
		return nil, apperrors.Validation("invalid project status %q", status)
	}
	return s.projects.List(ctx, userID, status)
}

// Update edits a project. Overwriting the accumulated minutes needs
// CapEditProjectTotals.
func (s *ProjectService) Update(ctx context.Context, who auth.Identity, id string, req models.UpdateProjectRequest) (*models.Project, error) {
	if req.ActualMinutes != nil {
		if err := who.Require(auth.CapEditProjectTotals); err != nil {
			return nil, err
		}
	}

	p, err := s.projects.FindOwned(ctx, id, who.UserID)
	if err != nil {
		return nil, err
	}
	if err := req.Apply(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.clock.Now()

	if err := s.projects.Update(ctx, p); err != nil {
		return nil, err
	}
	if req.ActualMinutes != nil {
		if err := s.projects.SetActualMinutes(ctx, id, who.UserID, *req.ActualMinutes, p.UpdatedAt); err != nil {
			return nil, err
		}
		s.logger.Warn("Project total overwritten",
			zap.String("project_id", id),
			zap.String("user_id", who.UserID),
			zap.Int("actual_minutes", *req.ActualMinutes),
		)
	}

	s.logger.Info("Project updated", zap.String("project_id", id))
	return s.projects.FindOwned(ctx, id, who.UserID)
}

func (s *ProjectService) UpdateStatus(ctx context.Context, userID, id string, status models.ProjectStatus) (*models.Project, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("invalid project status %q", status)
	}
	p, err := s.projects.FindOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	p.SetStatus(status, now)
	p.UpdatedAt = now
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Project status changed", zap.String("project_id", id), zap.String("status", string(status)))
	return p, nil
}

func (s *ProjectService) Archive(ctx context.Context, userID, id string) (*models.Project, error) {
	return s.UpdateStatus(ctx, userID, id, models.ProjectArchived)
}

// Restore moves an archived project back to active.
func (s *ProjectService) Restore(ctx context.Context, userID, id string) (*models.Project, error) {
	p, err := s.projects.FindOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.ProjectArchived {
		return nil, apperrors.Conflict("cannot restore project %s: status is %s, expected %s", id, p.Status, models.ProjectArchived)
	}
	return s.UpdateStatus(ctx, userID, id, models.ProjectActive)
}

func (s *ProjectService) Delete(ctx context.Context, userID, id string) error {
	if err := s.projects.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.logger.Info("Project deleted", zap.String("project_id", id), zap.String("user_id", userID))
	return nil
}

func (s *ProjectService) Stats(ctx context.Context, userID, id string) (*models.ProjectStats, error) {
	p, err := s.projects.FindOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	sessions, minutes, err := s.projects.SessionTotals(ctx, id)
	if err != nil {
		return nil, err
	}

	var average float64
	if sessions > 0 {
		average = math.Round(float64(minutes)/float64(sessions)*100) / 100
	}
	return &models.ProjectStats{
		Project:              p,
		TotalSessions:        sessions,
		TotalMinutes:         minutes,
		AverageSessionMin:    average,
		CompletionPercentage: p.CompletionPercentage(),
		TimeRemainingHours:   p.TimeRemaining(),
		DeadlineStatus:       p.DeadlineStatus(s.clock.Now()),
	}, nil
}

// RecomputeTotals rebuilds project totals from completed pulses. allUsers
// needs CapRecomputeAllUsers; otherwise only the caller's projects change.
func (s *ProjectService) RecomputeTotals(ctx context.Context, who auth.Identity, allUsers bool) (int64, error) {
	if err := who.Require(auth.CapRecomputeTotals); err != nil {
		return 0, err
	}
	scope := who.UserID
	if allUsers {
		if err := who.Require(auth.CapRecomputeAllUsers); err != nil {
			return 0, err
		}
		scope = ""
	}

	changed, err := s.projects.RecomputeActualMinutes(ctx, scope, s.clock.Now())
	if err != nil {
		return 0, err
	}
	s.logger.Info("Project totals recomputed",
		zap.String("requested_by", who.UserID),
		zap.Bool("all_users", allUsers),
		zap.Int64("changed", changed),
	)
	return changed, nil
}
