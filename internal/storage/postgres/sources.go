package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/storage"
)

func (s *Store) AddCommitment(ctx context.Context, c models.Commitment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commitments (id, user_id, title, start_time, end_time, location, anchor_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id, title = EXCLUDED.title, start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time, location = EXCLUDED.location, anchor_type = EXCLUDED.anchor_type`,
		c.ID, c.UserID, c.Title, c.Start.UTC(), c.End.UTC(), c.Location, string(c.AnchorType),
	)
	return err
}

func (s *Store) GetCommitments(ctx context.Context, userID string, from, to time.Time) ([]models.Commitment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, start_time, end_time, location, anchor_type
		FROM commitments
		WHERE user_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time, id`,
		userID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Commitment
	for rows.Next() {
		var c models.Commitment
		var anchorType string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Start, &c.End, &c.Location, &anchorType); err != nil {
			return nil, err
		}
		c.AnchorType = models.AnchorType(anchorType)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCommitment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM commitments WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res, fmt.Errorf("commitment %s: %w", id, apperrors.ErrNotFound))
}

func (s *Store) AddTask(ctx context.Context, task models.Task) error {
	var deadline sql.NullTime
	if task.Deadline != nil {
		deadline = sql.NullTime{Time: task.Deadline.UTC(), Valid: true}
	}
	status := task.Status
	if status == "" {
		status = models.TaskPending
	}
	created := task.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, title, estimated_duration_min, deadline, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, estimated_duration_min = EXCLUDED.estimated_duration_min,
			deadline = EXCLUDED.deadline, status = EXCLUDED.status`,
		task.ID, task.UserID, task.Title, task.EstimatedDurationMin, deadline, string(status), created.UTC(),
	)
	return err
}

func (s *Store) GetPendingTasks(ctx context.Context, userID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, estimated_duration_min, deadline, status, created_at
		FROM tasks
		WHERE user_id = $1 AND status = $2
		ORDER BY id`,
		userID, string(models.TaskPending),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		var t models.Task
		var deadline sql.NullTime
		var status string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.EstimatedDurationMin, &deadline, &status, &t.CreatedAt); err != nil {
			return nil, err
		}
		if deadline.Valid {
			d := deadline.Time
			t.Deadline = &d
		}
		t.Status = models.TaskStatus(status)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	storage.SortTasksByDeadline(out)
	return out, nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	res, err := s.db.ExecContext(ctx, "UPDATE tasks SET status = $1 WHERE id = $2", string(status), id)
	if err != nil {
		return err
	}
	return requireRow(res, fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound))
}

func (s *Store) AddRoutine(ctx context.Context, r models.Routine) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO routines (id, user_id, name, kind, estimated_duration_min, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, kind = EXCLUDED.kind,
			estimated_duration_min = EXCLUDED.estimated_duration_min, active = EXCLUDED.active`,
		r.ID, r.UserID, r.Name, string(r.Kind), r.EstimatedDurationMin, r.Active,
	)
	return err
}

func (s *Store) GetRoutines(ctx context.Context, userID string, activeOnly bool) ([]models.Routine, error) {
	query := "SELECT id, user_id, name, kind, estimated_duration_min, active FROM routines WHERE user_id = $1"
	if activeOnly {
		query += " AND active"
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Routine
	for rows.Next() {
		var r models.Routine
		var kind string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &kind, &r.EstimatedDurationMin, &r.Active); err != nil {
			return nil, err
		}
		r.Kind = models.RoutineKind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
