package models

import (
	"strings"
	"time"

	"Mansoor88-6/pulse-tracker/internal/apperrors"
	"Mansoor88-6/pulse-tracker/internal/timeutil"
)

type PulseStatus string

const (
	PulseActive    PulseStatus = "active"
	PulsePaused    PulseStatus = "paused"
	PulseCompleted PulseStatus = "completed"
)

func (s PulseStatus) Valid() bool {
	switch s {
	case PulseActive, PulsePaused, PulseCompleted:
		return true
	}
	return false
}

type PulseType string

const (
	PulseWork     PulseType = "work"
	PulseBreak    PulseType = "break"
	PulseMeeting  PulseType = "meeting"
	PulseResearch PulseType = "research"
	PulseOther    PulseType = "other"
)

func (t PulseType) Valid() bool {
	switch t {
	case PulseWork, PulseBreak, PulseMeeting, PulseResearch, PulseOther:
		return true
	}
	return false
}

// PauseEntry is one pause interval. ResumedAt is nil while the pause is open.
type PauseEntry struct {
	PausedAt  time.Time  `json:"paused_at"`
	ResumedAt *time.Time `json:"resumed_at,omitempty"`
	Duration  int        `json:"duration"`
}

func (e PauseEntry) Open() bool {
	return e.ResumedAt == nil
}

// BreakEntry is a manually declared break; it does not suspend the clock.
type BreakEntry struct {
	At       time.Time `json:"at"`
	Reason   string    `json:"reason,omitempty"`
	Duration int       `json:"duration"`
}

// Pulse is a single work session. Duration is the gross wall-clock span in
// minutes and is only set on completion; PausedDuration is tracked separately.
type Pulse struct {
	ID             string       `json:"id"`
	ProjectID      string       `json:"project_id"`
	UserID         string       `json:"user_id"`
	StartTime      time.Time    `json:"start_time"`
	EndTime        *time.Time   `json:"end_time,omitempty"`
	Status         PulseStatus  `json:"status"`
	Duration       int          `json:"duration"`
	PausedDuration int          `json:"paused_duration"`
	PauseHistory   []PauseEntry `json:"pause_history"`
	Breaks         []BreakEntry `json:"breaks"`
	Notes          string       `json:"notes,omitempty"`
	Tags           []string     `json:"tags"`
	Billable       bool         `json:"billable"`
	HourlyRate     float64      `json:"hourly_rate"`
	Type           PulseType    `json:"type"`
	Version        int64        `json:"version"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// IsCurrent reports whether the pulse counts toward the one-per-user limit.
func (p *Pulse) IsCurrent() bool {
	return p.Status == PulseActive || p.Status == PulsePaused
}

// ActualDuration is the net duration: gross minus paused time, never negative.
func (p *Pulse) ActualDuration() int {
	if p.Duration < p.PausedDuration {
		return 0
	}
	return p.Duration - p.PausedDuration
}

// Earnings is duration/60 × hourly rate for billable pulses.
func (p *Pulse) Earnings() float64 {
	if !p.Billable || p.HourlyRate <= 0 {
		return 0
	}
	return float64(p.Duration) / 60 * p.HourlyRate
}

// FocusScore is 100 minus 10 per pause, floored at 0.
func (p *Pulse) FocusScore() int {
	score := 100 - 10*len(p.PauseHistory)
	if score < 0 {
		return 0
	}
	return score
}

func (p *Pulse) FormattedDuration() string {
	return timeutil.FormatDuration(p.ActualDuration())
}

func (p *Pulse) lastPause() *PauseEntry {
	if len(p.PauseHistory) == 0 {
		return nil
	}
	return &p.PauseHistory[len(p.PauseHistory)-1]
}

// StartPulseRequest carries the optional inputs of a start call.
type StartPulseRequest struct {
	ProjectID string    `json:"project_id"`
	Notes     string    `json:"notes,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Type      PulseType `json:"type,omitempty"`
	Billable  *bool     `json:"billable,omitempty"`
}

func (r *StartPulseRequest) Normalize() error {
	r.ProjectID = strings.TrimSpace(r.ProjectID)
	if r.ProjectID == "" {
		return apperrors.Validation("project_id is required")
	}
	if r.Type == "" {
		r.Type = PulseWork
	}
	if !r.Type.Valid() {
		return apperrors.Validation("invalid pulse type %q", r.Type)
	}
	var err error
	if r.Tags, err = normalizeTags(r.Tags); err != nil {
		return err
	}
	return validateNotes(r.Notes)
}

// UpdatePulseRequest edits the free-form fields of a pulse.
type UpdatePulseRequest struct {
	Notes *string  `json:"notes,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

type AddBreakRequest struct {
	Reason   string `json:"reason"`
	Duration int    `json:"duration"`
}

type StopPulseRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// PulseFilter narrows a pulse listing. Zero values mean "no filter";
// StartDate is inclusive and EndDate exclusive.
type PulseFilter struct {
	ProjectID string
	Status    PulseStatus
	StartDate *time.Time
	EndDate   *time.Time
}

type PulsePage struct {
	Items      []*Pulse `json:"items"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalPages int      `json:"total_pages"`
}

func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if len([]rune(tag)) > 30 {
			return nil, apperrors.Validation("tag %q exceeds 30 characters", tag)
		}
		out = append(out, tag)
	}
	return out, nil
}

func validateNotes(notes string) error {
	if len([]rune(notes)) > 1000 {
		return apperrors.Validation("notes cannot exceed 1000 characters")
	}
	return nil
}
