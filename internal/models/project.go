package models

import (
	"math"
	"regexp"
	"strings"
	"time"

	"Mansoor88-6/pulse-tracker/internal/apperrors"
)

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
	ProjectOnHold    ProjectStatus = "on-hold"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectArchived, ProjectOnHold:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityUrgent   Priority = "urgent"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent, PriorityCritical:
		return true
	}
	return false
}

const DefaultProjectColor = "#3B82F6"

var hexColor = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

// Project groups pulses. ActualMinutes is the running total of completed
// pulse durations and only moves through session completion, deletion of a
// completed pulse, or an explicit administrative edit.
type Project struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Color          string        `json:"color"`
	Status         ProjectStatus `json:"status"`
	Priority       Priority      `json:"priority"`
	EstimatedHours float64       `json:"estimated_hours"`
	ActualMinutes  int           `json:"actual_minutes"`
	HourlyRate     float64       `json:"hourly_rate"`
	Deadline       *time.Time    `json:"deadline,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (p *Project) ActualHours() float64 {
	return float64(p.ActualMinutes) / 60
}

// CompletionPercentage is actual over estimated hours, capped at 100.
func (p *Project) CompletionPercentage() int {
	if p.EstimatedHours <= 0 {
		return 0
	}
	pct := int(math.Round(p.ActualHours() / p.EstimatedHours * 100))
	if pct > 100 {
		return 100
	}
	return pct
}

// TimeRemaining is the estimated hours not yet spent, never negative.
func (p *Project) TimeRemaining() float64 {
	return math.Max(p.EstimatedHours-p.ActualHours(), 0)
}

const (
	DeadlineNone    = "no-deadline"
	DeadlineOverdue = "overdue"
	DeadlineUrgent  = "urgent"
	DeadlineSoon    = "soon"
	DeadlineNormal  = "normal"
)

func (p *Project) DeadlineStatus(now time.Time) string {
	if p.Deadline == nil {
		return DeadlineNone
	}
	days := int(math.Ceil(p.Deadline.Sub(now).Hours() / 24))
	switch {
	case days < 0:
		return DeadlineOverdue
	case days <= 3:
		return DeadlineUrgent
	case days <= 7:
		return DeadlineSoon
	}
	return DeadlineNormal
}

// SetStatus moves the project to status, stamping or clearing CompletedAt.
func (p *Project) SetStatus(status ProjectStatus, now time.Time) {
	p.Status = status
	if status == ProjectCompleted {
		if p.CompletedAt == nil {
			p.CompletedAt = &now
		}
		return
	}
	p.CompletedAt = nil
}

type CreateProjectRequest struct {
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Color          string     `json:"color,omitempty"`
	Priority       Priority   `json:"priority,omitempty"`
	EstimatedHours float64    `json:"estimated_hours,omitempty"`
	HourlyRate     float64    `json:"hourly_rate,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
}

// Normalize trims input and fills defaults, then validates.
func (r *CreateProjectRequest) Normalize() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	if r.Color == "" {
		r.Color = DefaultProjectColor
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if err := validateProjectName(r.Name); err != nil {
		return err
	}
	return validateProjectFields(r.Description, r.Color, r.Priority, r.EstimatedHours, r.HourlyRate)
}

type UpdateProjectRequest struct {
	Name           *string    `json:"name,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Color          *string    `json:"color,omitempty"`
	Priority       *Priority  `json:"priority,omitempty"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	HourlyRate     *float64   `json:"hourly_rate,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	// ActualMinutes is the administrative edit of the running total.
	ActualMinutes *int `json:"actual_minutes,omitempty"`
}

// Apply validates the request and copies set fields onto p.
func (r *UpdateProjectRequest) Apply(p *Project) error {
	next := *p
	if r.Name != nil {
		next.Name = strings.TrimSpace(*r.Name)
		if err := validateProjectName(next.Name); err != nil {
			return err
		}
	}
	if r.Description != nil {
		next.Description = strings.TrimSpace(*r.Description)
	}
	if r.Color != nil {
		next.Color = *r.Color
	}
	if r.Priority != nil {
		next.Priority = *r.Priority
	}
	if r.EstimatedHours != nil {
		next.EstimatedHours = *r.EstimatedHours
	}
	if r.HourlyRate != nil {
		next.HourlyRate = *r.HourlyRate
	}
	if r.Deadline != nil {
		d := *r.Deadline
		next.Deadline = &d
	}
	if r.ActualMinutes != nil {
		if *r.ActualMinutes < 0 {
			return apperrors.Validation("actual minutes cannot be negative")
		}
		next.ActualMinutes = *r.ActualMinutes
	}
	if err := validateProjectFields(next.Description, next.Color, next.Priority, next.EstimatedHours, next.HourlyRate); err != nil {
		return err
	}
	*p = next
	return nil
}

func validateProjectName(name string) error {
	if name == "" {
		return apperrors.Validation("project name is required")
	}
	if len([]rune(name)) > 100 {
		return apperrors.Validation("project name cannot exceed 100 characters")
	}
	return nil
}

func validateProjectFields(description, color string, priority Priority, estimated, rate float64) error {
	if len([]rune(description)) > 500 {
		return apperrors.Validation("description cannot exceed 500 characters")
	}
	if !hexColor.MatchString(color) {
		return apperrors.Validation("invalid hex color %q", color)
	}
	if !priority.Valid() {
		return apperrors.Validation("invalid priority %q", priority)
	}
	if estimated < 0 {
		return apperrors.Validation("estimated hours cannot be negative")
	}
	if rate < 0 {
		return apperrors.Validation("hourly rate cannot be negative")
	}
	return nil
}

// ProjectStats summarises a project's pulse history.
type ProjectStats struct {
	Project              *Project `json:"project"`
	TotalSessions        int      `json:"total_sessions"`
	TotalMinutes         int      `json:"total_minutes"`
	AverageSessionMin    float64  `json:"average_session_minutes"`
	CompletionPercentage int      `json:"completion_percentage"`
	TimeRemainingHours   float64  `json:"time_remaining_hours"`
	DeadlineStatus       string   `json:"deadline_status"`
}
