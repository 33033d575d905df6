package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"Mansoor88-6/pulse-tracker/internal/apperrors"
	"Mansoor88-6/pulse-tracker/internal/database"
	"Mansoor88-6/pulse-tracker/internal/models"
)

const pulseColumns = `id, project_id, user_id, start_time, end_time, status, duration, paused_duration,
	pause_history, breaks, notes, tags, billable, hourly_rate, type, version, created_at, updated_at`

type PulseRepository struct {
	db *database.DB
}

func NewPulseRepository(db *database.DB) *PulseRepository {
	return &PulseRepository{db: db}
}

// Create inserts a new pulse. The partial unique index on current pulses
// turns a concurrent second start into ErrActiveSessionExists.
func (r *PulseRepository) Create(ctx context.Context, p *models.Pulse) error {
	history, breaks, tags, err := encodePulseLists(p)
	if err != nil {
		return apperrors.Storage("failed to encode pulse", err)
	}
	p.Version = 1

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO pulses (`+pulseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.ProjectID, p.UserID, dbTime(p.StartTime), dbTimePtr(p.EndTime), p.Status,
		p.Duration, p.PausedDuration, history, breaks, p.Notes, tags, p.Billable,
		p.HourlyRate, p.Type, p.Version, dbTime(p.CreatedAt), dbTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ConflictCause(apperrors.ErrActiveSessionExists,
				"you already have an active session, stop it first")
		}
		return apperrors.Storage("failed to create pulse", err)
	}
	return nil
}

// FindOwned returns the pulse only when it belongs to userID. A foreign id
// is indistinguishable from a missing one.
func (r *PulseRepository) FindOwned(ctx context.Context, id, userID string) (*models.Pulse, error) {
	return findOwnedPulse(ctx, r.db, id, userID)
}

func findOwnedPulse(ctx context.Context, q querier, id, userID string) (*models.Pulse, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+pulseColumns+`
		FROM pulses
		WHERE id = ? AND user_id = ?
	`, id, userID)

	p, err := scanPulse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("session %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Storage("failed to get pulse", err)
	}
	return p, nil
}

// FindActiveOrPaused returns the user's current pulse, or nil when none exists.
func (r *PulseRepository) FindActiveOrPaused(ctx context.Context, userID string) (*models.Pulse, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+pulseColumns+`
		FROM pulses
		WHERE user_id = ? AND status IN ('active', 'paused')
	`, userID)

	p, err := scanPulse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage("failed to get current pulse", err)
	}
	return p, nil
}

// Update writes p if the stored version still equals expectedVersion.
func (r *PulseRepository) Update(ctx context.Context, p *models.Pulse, expectedVersion int64) error {
	return updatePulse(ctx, r.db, p, expectedVersion)
}

func updatePulse(ctx context.Context, q querier, p *models.Pulse, expectedVersion int64) error {
	history, breaks, tags, err := encodePulseLists(p)
	if err != nil {
		return apperrors.Storage("failed to encode pulse", err)
	}

	result, err := q.ExecContext(ctx, `
		UPDATE pulses
		SET end_time = ?, status = ?, duration = ?, paused_duration = ?, pause_history = ?,
		    breaks = ?, notes = ?, tags = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND user_id = ? AND version = ?
	`,
		dbTimePtr(p.EndTime), p.Status, p.Duration, p.PausedDuration, history,
		breaks, p.Notes, tags, dbTime(p.UpdatedAt),
		p.ID, p.UserID, expectedVersion,
	)
	if err != nil {
		return apperrors.Storage("failed to update pulse", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Storage("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		if _, err := findOwnedPulse(ctx, q, p.ID, p.UserID); err != nil {
			return err
		}
		return apperrors.ConflictCause(apperrors.ErrConcurrentUpdate, "session %s was modified concurrently, retry", p.ID)
	}

	p.Version = expectedVersion + 1
	return nil
}

// Complete persists a completed pulse and adds its duration to the project
// total in one transaction. The version guard makes a retried stop fail
// instead of counting twice.
func (r *PulseRepository) Complete(ctx context.Context, p *models.Pulse, expectedVersion int64) error {
	if p.Status != models.PulseCompleted {
		return fmt.Errorf("complete called with status %s", p.Status)
	}
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := updatePulse(ctx, tx, p, expectedVersion); err != nil {
			return err
		}
		return addProjectMinutes(ctx, tx, p.ProjectID, p.Duration, p.UpdatedAt)
	})
}

// Delete removes a completed pulse and subtracts its duration from the
// project total. Active or paused pulses cannot be deleted.
func (r *PulseRepository) Delete(ctx context.Context, id, userID string, now time.Time) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		p, err := findOwnedPulse(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		if p.IsCurrent() {
			return apperrors.Conflict("cannot delete session %s while it is %s", id, p.Status)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM pulses WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			return apperrors.Storage("failed to delete pulse", err)
		}
		return addProjectMinutes(ctx, tx, p.ProjectID, -p.Duration, now)
	})
}

// List returns one page of the user's pulses, newest first, plus the total.
func (r *PulseRepository) List(ctx context.Context, userID string, filter models.PulseFilter, limit, offset int) ([]*models.Pulse, int, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}

	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.StartDate != nil {
		where = append(where, "start_time >= ?")
		args = append(args, dbTime(*filter.StartDate))
	}
	if filter.EndDate != nil {
		where = append(where, "start_time < ?")
		args = append(args, dbTime(*filter.EndDate))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pulses WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Storage("failed to count pulses", err)
	}

	pageArgs := append(append([]any{}, args...), limit, offset)
	pulses, err := r.query(ctx, `
		SELECT `+pulseColumns+`
		FROM pulses
		WHERE `+clause+`
		ORDER BY start_time DESC, id ASC
		LIMIT ? OFFSET ?
	`, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	return pulses, total, nil
}

// ListCompleted returns completed pulses whose start falls in [start, end),
// oldest first. An empty projectID means every project.
func (r *PulseRepository) ListCompleted(ctx context.Context, userID string, start, end time.Time, projectID string) ([]*models.Pulse, error) {
	query := `
		SELECT ` + pulseColumns + `
		FROM pulses
		WHERE user_id = ? AND status = 'completed' AND start_time >= ? AND start_time < ?`
	args := []any{userID, dbTime(start), dbTime(end)}
	if projectID != "" {
		query += ` AND project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY start_time ASC, id ASC`

	return r.query(ctx, query, args...)
}

func (r *PulseRepository) query(ctx context.Context, query string, args ...any) ([]*models.Pulse, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Storage("failed to query pulses", err)
	}
	defer rows.Close()

	pulses := []*models.Pulse{}
	for rows.Next() {
		p, err := scanPulse(rows)
		if err != nil {
			return nil, apperrors.Storage("failed to scan pulse", err)
		}
		pulses = append(pulses, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("error iterating pulses", err)
	}
	return pulses, nil
}

func scanPulse(s rowScanner) (*models.Pulse, error) {
	var (
		p                     models.Pulse
		history, breaks, tags string
	)
	err := s.Scan(
		&p.ID,
		&p.ProjectID,
		&p.UserID,
		&p.StartTime,
		&p.EndTime,
		&p.Status,
		&p.Duration,
		&p.PausedDuration,
		&history,
		&breaks,
		&p.Notes,
		&tags,
		&p.Billable,
		&p.HourlyRate,
		&p.Type,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.PauseHistory = []models.PauseEntry{}
	p.Breaks = []models.BreakEntry{}
	p.Tags = []string{}
	if err := unmarshalJSON(history, &p.PauseHistory); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(breaks, &p.Breaks); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(tags, &p.Tags); err != nil {
		return nil, err
	}
	return &p, nil
}

func encodePulseLists(p *models.Pulse) (history, breaks, tags string, err error) {
	pauseHistory := p.PauseHistory
	if pauseHistory == nil {
		pauseHistory = []models.PauseEntry{}
	}
	breakList := p.Breaks
	if breakList == nil {
		breakList = []models.BreakEntry{}
	}
	tagList := p.Tags
	if tagList == nil {
		tagList = []string{}
	}

	if history, err = marshalJSON(pauseHistory); err != nil {
		return "", "", "", err
	}
	if breaks, err = marshalJSON(breakList); err != nil {
		return "", "", "", err
	}
	if tags, err = marshalJSON(tagList); err != nil {
		return "", "", "", err
	}
	return history, breaks, tags, nil
}
