package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"Mansoor88-6/pulse-tracker/internal/apperrors"
	"Mansoor88-6/pulse-tracker/internal/database"
	"Mansoor88-6/pulse-tracker/internal/models"
)

const completedMinutes = `SELECT COALESCE(SUM(duration), 0) FROM pulses
	WHERE pulses.project_id = projects.id AND pulses.status = 'completed'`

const projectColumns = `id, user_id, name, description, color, status, priority, estimated_hours,
	actual_minutes, hourly_rate, deadline, completed_at, created_at, updated_at`

type ProjectRepository struct {
	db *database.DB
}

func NewProjectRepository(db *database.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.UserID, p.Name, p.Description, p.Color, p.Status, p.Priority, p.EstimatedHours,
		p.ActualMinutes, p.HourlyRate, dbTimePtr(p.Deadline), dbTimePtr(p.CompletedAt),
		dbTime(p.CreatedAt), dbTime(p.UpdatedAt),
	)
	if err != nil {
		return apperrors.Storage("failed to create project", err)
	}
	return nil
}

// FindOwned returns the project only when it belongs to userID.
func (r *ProjectRepository) FindOwned(ctx context.Context, id, userID string) (*models.Project, error) {
	return findOwnedProject(ctx, r.db, id, userID)
}

func findOwnedProject(ctx context.Context, q querier, id, userID string) (*models.Project, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE id = ? AND user_id = ?
	`, id, userID)

	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("project %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Storage("failed to get project", err)
	}
	return p, nil
}

// List returns the user's projects, newest first. An empty status lists all.
func (r *ProjectRepository) List(ctx context.Context, userID string, status models.ProjectStatus) ([]*models.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Storage("failed to list projects", err)
	}
	defer rows.Close()

	projects := []*models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, apperrors.Storage("failed to scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("error iterating projects", err)
	}
	return projects, nil
}

// Update writes the editable fields of p. ActualMinutes is left alone so an
// edit never clobbers minutes added by a concurrent stop; see SetActualMinutes.
func (r *ProjectRepository) Update(ctx context.Context, p *models.Project) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET name = ?, description = ?, color = ?, status = ?, priority = ?, estimated_hours = ?,
		    hourly_rate = ?, deadline = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`,
		p.Name, p.Description, p.Color, p.Status, p.Priority, p.EstimatedHours,
		p.HourlyRate, dbTimePtr(p.Deadline), dbTimePtr(p.CompletedAt), dbTime(p.UpdatedAt),
		p.ID, p.UserID,
	)
	if err != nil {
		return apperrors.Storage("failed to update project", err)
	}
	return requireRow(result, "project", p.ID)
}

// SetActualMinutes is the administrative overwrite of a project's total.
func (r *ProjectRepository) SetActualMinutes(ctx context.Context, id, userID string, minutes int, now time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE projects SET actual_minutes = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, minutes, dbTime(now), id, userID)
	if err != nil {
		return apperrors.Storage("failed to set project minutes", err)
	}
	return requireRow(result, "project", id)
}

// AddMinutes adds minutes to the project's running total.
func (r *ProjectRepository) AddMinutes(ctx context.Context, id string, minutes int, now time.Time) error {
	return addProjectMinutes(ctx, r.db, id, minutes, now)
}

func addProjectMinutes(ctx context.Context, q querier, id string, minutes int, now time.Time) error {
	if minutes == 0 {
		return nil
	}
	result, err := q.ExecContext(ctx, `
		UPDATE projects
		SET actual_minutes = MAX(actual_minutes + ?, 0), updated_at = ?
		WHERE id = ?
	`, minutes, dbTime(now), id)
	if err != nil {
		return apperrors.Storage("failed to add project minutes", err)
	}
	return requireRow(result, "project", id)
}

// Delete removes the project and its pulses. It refuses while the project
// has an active or paused pulse.
func (r *ProjectRepository) Delete(ctx context.Context, id, userID string) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := findOwnedProject(ctx, tx, id, userID); err != nil {
			return err
		}

		var current int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM pulses
			WHERE project_id = ? AND status IN ('active', 'paused')
		`, id).Scan(&current)
		if err != nil {
			return apperrors.Storage("failed to count current pulses", err)
		}
		if current > 0 {
			return apperrors.Conflict("cannot delete project %s while a session is running, stop it first", id)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM pulses WHERE project_id = ?`, id); err != nil {
			return apperrors.Storage("failed to delete project pulses", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			return apperrors.Storage("failed to delete project", err)
		}
		return nil
	})
}

// RecomputeActualMinutes resets every project total to the sum of its
// completed pulse durations. An empty userID covers all users. It returns
// the number of projects whose total changed.
func (r *ProjectRepository) RecomputeActualMinutes(ctx context.Context, userID string, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET actual_minutes = (`+completedMinutes+`), updated_at = ?
		WHERE (? = '' OR user_id = ?)
		  AND actual_minutes != (`+completedMinutes+`)
	`, dbTime(now), userID, userID)
	if err != nil {
		return 0, apperrors.Storage("failed to recompute project totals", err)
	}
	changed, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Storage("failed to get rows affected", err)
	}
	return changed, nil
}

// SessionTotals returns the number of completed pulses and their summed
// duration for a project.
func (r *ProjectRepository) SessionTotals(ctx context.Context, id string) (sessions, minutes int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(duration), 0)
		FROM pulses
		WHERE project_id = ? AND status = 'completed'
	`, id).Scan(&sessions, &minutes)
	if err != nil {
		return 0, 0, apperrors.Storage("failed to get project session totals", err)
	}
	return sessions, minutes, nil
}

func scanProject(s rowScanner) (*models.Project, error) {
	var p models.Project
	err := s.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Description,
		&p.Color,
		&p.Status,
		&p.Priority,
		&p.EstimatedHours,
		&p.ActualMinutes,
		&p.HourlyRate,
		&p.Deadline,
		&p.CompletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func requireRow(result sql.Result, entity, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Storage("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NotFound("%s %s not found", entity, id)
	}
	return nil
}
