package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/storage"
)

func (s *Store) AddCommitment(ctx context.Context, c models.Commitment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO commitments (id, user_id, title, start_time, end_time, location, anchor_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Title, storage.FormatTime(c.Start), storage.FormatTime(c.End), c.Location, string(c.AnchorType),
	)
	return err
}

func (s *Store) GetCommitments(ctx context.Context, userID string, from, to time.Time) ([]models.Commitment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, start_time, end_time, location, anchor_type
		FROM commitments
		WHERE user_id = ? AND start_time >= ? AND start_time < ?
		ORDER BY start_time, id`,
		userID, storage.FormatTime(from), storage.FormatTime(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Commitment
	for rows.Next() {
		var c models.Commitment
		var start, end, anchorType string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &start, &end, &c.Location, &anchorType); err != nil {
			return nil, err
		}
		if c.Start, err = storage.ParseTime(start); err != nil {
			return nil, fmt.Errorf("commitment %s start: %w", c.ID, err)
		}
		if c.End, err = storage.ParseTime(end); err != nil {
			return nil, fmt.Errorf("commitment %s end: %w", c.ID, err)
		}
		c.AnchorType = models.AnchorType(anchorType)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCommitment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM commitments WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res, fmt.Errorf("commitment %s: %w", id, errors.ErrNotFound))
}

func (s *Store) AddTask(ctx context.Context, task models.Task) error {
	var deadline sql.NullString
	if task.Deadline != nil {
		deadline = sql.NullString{String: storage.FormatTime(*task.Deadline), Valid: true}
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
		INSERT OR REPLACE INTO tasks (id, user_id, title, estimated_duration_min, deadline, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.Title, task.EstimatedDurationMin, deadline, string(status), storage.FormatTime(created),
	)
	return err
}

func (s *Store) GetPendingTasks(ctx context.Context, userID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, estimated_duration_min, deadline, status, created_at
		FROM tasks
		WHERE user_id = ? AND status = ?
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
		var deadline sql.NullString
		var status, created string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.EstimatedDurationMin, &deadline, &status, &created); err != nil {
			return nil, err
		}
		if deadline.Valid {
			d, err := storage.ParseTime(deadline.String)
			if err != nil {
				return nil, fmt.Errorf("task %s deadline: %w", t.ID, err)
			}
			t.Deadline = &d
		}
		if t.CreatedAt, err = storage.ParseTime(created); err != nil {
			return nil, fmt.Errorf("task %s created_at: %w", t.ID, err)
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
	res, err := s.db.ExecContext(ctx, "UPDATE tasks SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return err
	}
	return requireRow(res, fmt.Errorf("task %s: %w", id, errors.ErrNotFound))
}

func (s *Store) AddRoutine(ctx context.Context, r models.Routine) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO routines (id, user_id, name, kind, estimated_duration_min, active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Name, string(r.Kind), r.EstimatedDurationMin, r.Active,
	)
	return err
}

func (s *Store) GetRoutines(ctx context.Context, userID string, activeOnly bool) ([]models.Routine, error) {
	query := "SELECT id, user_id, name, kind, estimated_duration_min, active FROM routines WHERE user_id = ?"
	if activeOnly {
		query += " AND active = 1"
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

// requireRow returns notFound when res affected no rows.
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
