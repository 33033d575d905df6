package models

import (
	"strings"
	"time"

	"Mansoor88-6/pulse-tracker/internal/apperrors"
	"Mansoor88-6/pulse-tracker/internal/timeutil"
)

// The transitions below are pure: they mutate the in-memory pulse and leave
// persistence to the caller, which writes the result with a version guard.
//
//	active --pause--> paused --resume--> active
//	active|paused --stop--> completed (terminal)

// NewPulse builds an active pulse starting at now.
func NewPulse(id string, project *Project, req StartPulseRequest, now time.Time) *Pulse {
	billable := true
	if req.Billable != nil {
		billable = *req.Billable
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	return &Pulse{
		ID:           id,
		ProjectID:    project.ID,
		UserID:       project.UserID,
		StartTime:    now,
		Status:       PulseActive,
		PauseHistory: []PauseEntry{},
		Breaks:       []BreakEntry{},
		Notes:        req.Notes,
		Tags:         tags,
		Billable:     billable,
		HourlyRate:   project.HourlyRate,
		Type:         req.Type,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Pause appends an open pause entry and moves the pulse to paused.
func (p *Pulse) Pause(now time.Time) error {
	if p.Status != PulseActive {
		return apperrors.StateConflict("pause", PulseActive, p.Status)
	}
	p.PauseHistory = append(p.PauseHistory, PauseEntry{PausedAt: now})
	p.Status = PulsePaused
	p.UpdatedAt = now
	return nil
}

// Resume closes the open pause, adds its minutes to PausedDuration and returns them.
func (p *Pulse) Resume(now time.Time) (int, error) {
	if p.Status != PulsePaused {
		return 0, apperrors.StateConflict("resume", PulsePaused, p.Status)
	}
	minutes, err := p.closePause(now)
	if err != nil {
		return 0, err
	}
	p.Status = PulseActive
	p.UpdatedAt = now
	return minutes, nil
}

func (p *Pulse) closePause(now time.Time) (int, error) {
	last := p.lastPause()
	if last == nil || !last.Open() {
		return 0, apperrors.Conflict("no open pause to resume")
	}
	resumed := now
	last.ResumedAt = &resumed
	last.Duration = timeutil.ElapsedMinutes(last.PausedAt, now)
	p.PausedDuration += last.Duration
	return last.Duration, nil
}

// Stop completes the pulse. A paused pulse is resumed at the same instant
// first, so the result equals resume followed by stop.
func (p *Pulse) Stop(now time.Time, notes *string) error {
	if !p.IsCurrent() {
		return apperrors.StateConflict("stop", "active or paused", p.Status)
	}
	if notes != nil {
		if err := validateNotes(*notes); err != nil {
			return err
		}
	}
	if p.Status == PulsePaused {
		if _, err := p.Resume(now); err != nil {
			return err
		}
	}
	end := now
	p.EndTime = &end
	p.Duration = timeutil.ElapsedMinutes(p.StartTime, end)
	if notes != nil {
		p.Notes = *notes
	}
	p.Status = PulseCompleted
	p.UpdatedAt = now
	return nil
}

// AddBreak records a manual break. It adds to PausedDuration without
// touching the status or the pause history.
func (p *Pulse) AddBreak(now time.Time, req AddBreakRequest) error {
	if !p.IsCurrent() {
		return apperrors.StateConflict("add break", "active or paused", p.Status)
	}
	if req.Duration <= 0 {
		return apperrors.Validation("break duration must be positive")
	}
	reason := strings.TrimSpace(req.Reason)
	if len([]rune(reason)) > 200 {
		return apperrors.Validation("break reason cannot exceed 200 characters")
	}
	p.Breaks = append(p.Breaks, BreakEntry{At: now, Reason: reason, Duration: req.Duration})
	p.PausedDuration += req.Duration
	p.UpdatedAt = now
	return nil
}

// Update applies free-form edits. Completed pulses accept notes and tags
// since those do not feed the time accounting.
func (p *Pulse) Update(now time.Time, req UpdatePulseRequest) error {
	if req.Notes != nil {
		if err := validateNotes(*req.Notes); err != nil {
			return err
		}
	}
	if req.Tags != nil {
		tags, err := normalizeTags(req.Tags)
		if err != nil {
			return err
		}
		p.Tags = tags
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}
	p.UpdatedAt = now
	return nil
}

// SkewedAt reports whether now precedes a timestamp the next transition
// measures from; such spans are clamped to zero.
func (p *Pulse) SkewedAt(now time.Time) bool {
	if now.Before(p.StartTime) {
		return true
	}
	if last := p.lastPause(); last != nil && last.Open() && now.Before(last.PausedAt) {
		return true
	}
	return false
}
