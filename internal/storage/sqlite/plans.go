package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/storage"
)

var _ storage.Provider = (*Store)(nil)

const planColumns = `id, user_id, date, wake_time, sleep_time, plan_start, energy, status, revision, tail_plan, extras, created_at, updated_at`

func (s *Store) SavePlan(ctx context.Context, plan *models.DailyPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// A regenerated plan takes over the id of the one it replaces.
	var existingID, createdAt string
	var revision int
	err = tx.QueryRowContext(ctx,
		"SELECT id, revision, created_at FROM plans WHERE user_id = ? AND date = ?",
		plan.UserID, plan.Date,
	).Scan(&existingID, &revision, &createdAt)

	now := time.Now().UTC()
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if plan.ID == "" {
			plan.ID = uuid.New().String()
		}
		plan.Revision = 1
		plan.CreatedAt = now
	case err != nil:
		return fmt.Errorf("failed to check existing plan: %w", err)
	default:
		plan.ID = existingID
		plan.Revision = revision + 1
		if plan.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
			return fmt.Errorf("plan %s created_at: %w", existingID, err)
		}
		if err := deleteChildren(ctx, tx, existingID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM plans WHERE id = ?", existingID); err != nil {
			return err
		}
	}
	plan.UpdatedAt = now

	extras, err := storage.EncodeExtras(*plan)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO plans (`+planColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.UserID, plan.Date,
		storage.FormatTime(plan.WakeTime), storage.FormatTime(plan.SleepTime), storage.FormatTime(plan.PlanStart),
		string(plan.Energy), string(plan.Status), plan.Revision, plan.TailPlan, extras,
		storage.FormatTime(plan.CreatedAt), storage.FormatTime(plan.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}

	if err := insertChildren(ctx, tx, plan); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ReplacePlan(ctx context.Context, plan *models.DailyPlan, expectedRevision int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	extras, err := storage.EncodeExtras(*plan)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE plans SET wake_time = ?, sleep_time = ?, plan_start = ?, energy = ?, status = ?,
			revision = revision + 1, tail_plan = ?, extras = ?, updated_at = ?
		WHERE id = ? AND revision = ?`,
		storage.FormatTime(plan.WakeTime), storage.FormatTime(plan.SleepTime), storage.FormatTime(plan.PlanStart),
		string(plan.Energy), string(plan.Status), plan.TailPlan, extras, storage.FormatTime(now),
		plan.ID, expectedRevision,
	)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var current int
		err := tx.QueryRowContext(ctx, "SELECT revision FROM plans WHERE id = ?", plan.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("plan %s: %w", plan.ID, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("plan %s at revision %d, expected %d: %w", plan.ID, current, expectedRevision, errors.ErrRevisionConflict)
	}

	if err := deleteChildren(ctx, tx, plan.ID); err != nil {
		return err
	}
	if err := insertChildren(ctx, tx, plan); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	plan.Revision = expectedRevision + 1
	plan.UpdatedAt = now
	return nil
}

func (s *Store) GetPlan(ctx context.Context, id string) (models.DailyPlan, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+planColumns+" FROM plans WHERE id = ?", id)
	plan, err := s.scanPlan(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DailyPlan{}, fmt.Errorf("plan %s: %w", id, errors.ErrNotFound)
	}
	return plan, err
}

func (s *Store) GetPlanByDate(ctx context.Context, userID, date string) (models.DailyPlan, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+planColumns+" FROM plans WHERE user_id = ? AND date = ?", userID, date)
	plan, err := s.scanPlan(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DailyPlan{}, fmt.Errorf("plan for %s on %s: %w", userID, date, errors.ErrNotFound)
	}
	return plan, err
}

func (s *Store) PatchBlock(ctx context.Context, planID, blockID string, patch storage.BlockPatch) (models.TimeBlock, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.TimeBlock{}, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM plans WHERE id = ?", planID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TimeBlock{}, fmt.Errorf("plan %s: %w", planID, errors.ErrNotFound)
	}
	if err != nil {
		return models.TimeBlock{}, err
	}

	blocks, err := queryBlocks(ctx, tx, "WHERE plan_id = ? AND id = ?", planID, blockID)
	if err != nil {
		return models.TimeBlock{}, err
	}
	if len(blocks) == 0 {
		return models.TimeBlock{}, fmt.Errorf("block %s in plan %s: %w", blockID, planID, errors.ErrStaleReference)
	}

	b := blocks[0]
	patch.Apply(&b)
	meta, err := storage.EncodeMetadata(b.Metadata)
	if err != nil {
		return models.TimeBlock{}, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE time_blocks SET start_time = ?, end_time = ?, sequence_order = ?, status = ?, skip_reason = ?, metadata = ?
		WHERE plan_id = ? AND id = ?`,
		storage.FormatTime(b.Start), storage.FormatTime(b.End), b.SequenceOrder, string(b.Status), b.SkipReason, meta,
		planID, blockID,
	)
	if err != nil {
		return models.TimeBlock{}, fmt.Errorf("failed to update block: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE plans SET revision = revision + 1, updated_at = ? WHERE id = ?",
		storage.FormatTime(time.Now()), planID); err != nil {
		return models.TimeBlock{}, err
	}
	return b, tx.Commit()
}

func (s *Store) scanPlan(ctx context.Context, row *sql.Row) (models.DailyPlan, error) {
	var p models.DailyPlan
	var wake, sleep, start, energy, status, extras, created, updated string
	if err := row.Scan(&p.ID, &p.UserID, &p.Date, &wake, &sleep, &start, &energy, &status,
		&p.Revision, &p.TailPlan, &extras, &created, &updated); err != nil {
		return models.DailyPlan{}, err
	}
	p.Energy = models.EnergyLevel(energy)
	p.Status = models.PlanStatus(status)

	for _, f := range []struct {
		dst *time.Time
		raw string
	}{{&p.WakeTime, wake}, {&p.SleepTime, sleep}, {&p.PlanStart, start}, {&p.CreatedAt, created}, {&p.UpdatedAt, updated}} {
		t, err := storage.ParseTime(f.raw)
		if err != nil {
			return models.DailyPlan{}, fmt.Errorf("plan %s: %w", p.ID, err)
		}
		*f.dst = t
	}
	if err := storage.DecodeExtras(extras, &p); err != nil {
		return models.DailyPlan{}, err
	}

	blocks, err := queryBlocks(ctx, s.db, "WHERE plan_id = ?", p.ID)
	if err != nil {
		return models.DailyPlan{}, err
	}
	p.Blocks = blocks

	exits, err := queryExitTimes(ctx, s.db, p.ID)
	if err != nil {
		return models.DailyPlan{}, err
	}
	p.ExitTimes = exits
	return p, nil
}

func deleteChildren(ctx context.Context, q querier, planID string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM time_blocks WHERE plan_id = ?", planID); err != nil {
		return fmt.Errorf("failed to delete blocks: %w", err)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM exit_times WHERE plan_id = ?", planID); err != nil {
		return fmt.Errorf("failed to delete exit times: %w", err)
	}
	return nil
}

func insertChildren(ctx context.Context, q querier, plan *models.DailyPlan) error {
	for i := range plan.Blocks {
		b := &plan.Blocks[i]
		b.PlanID = plan.ID
		meta, err := storage.EncodeMetadata(b.Metadata)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO time_blocks (id, plan_id, title, start_time, end_time, activity_type, is_fixed, sequence_order, status, skip_reason, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.PlanID, b.Title, storage.FormatTime(b.Start), storage.FormatTime(b.End), string(b.ActivityType),
			b.IsFixed, b.SequenceOrder, string(b.Status), b.SkipReason, meta,
		)
		if err != nil {
			return fmt.Errorf("failed to insert block %s: %w", b.ID, err)
		}
	}

	for _, e := range plan.ExitTimes {
		_, err := q.ExecContext(ctx, `
			INSERT INTO exit_times (plan_id, commitment_id, exit_time, travel_duration_min, preparation_min, travel_method)
			VALUES (?, ?, ?, ?, ?, ?)`,
			plan.ID, e.CommitmentID, storage.FormatTime(e.ExitTime), e.TravelDurationMin, e.PreparationMin, e.TravelMethod,
		)
		if err != nil {
			return fmt.Errorf("failed to insert exit time for %s: %w", e.CommitmentID, err)
		}
	}
	return nil
}

func queryBlocks(ctx context.Context, q querier, where string, args ...any) ([]models.TimeBlock, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, plan_id, title, start_time, end_time, activity_type, is_fixed, sequence_order, status, skip_reason, metadata
		FROM time_blocks `+where+` ORDER BY sequence_order`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TimeBlock
	for rows.Next() {
		var b models.TimeBlock
		var start, end, activity, status string
		var meta sql.NullString
		if err := rows.Scan(&b.ID, &b.PlanID, &b.Title, &start, &end, &activity, &b.IsFixed,
			&b.SequenceOrder, &status, &b.SkipReason, &meta); err != nil {
			return nil, err
		}
		if b.Start, err = storage.ParseTime(start); err != nil {
			return nil, fmt.Errorf("block %s start: %w", b.ID, err)
		}
		if b.End, err = storage.ParseTime(end); err != nil {
			return nil, fmt.Errorf("block %s end: %w", b.ID, err)
		}
		b.ActivityType = models.ActivityType(activity)
		b.Status = models.BlockStatus(status)
		if meta.Valid {
			if b.Metadata, err = models.DecodeMetadata([]byte(meta.String)); err != nil {
				return nil, fmt.Errorf("block %s: %w", b.ID, err)
			}
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func queryExitTimes(ctx context.Context, q querier, planID string) ([]models.ExitTime, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT commitment_id, exit_time, travel_duration_min, preparation_min, travel_method
		FROM exit_times WHERE plan_id = ? ORDER BY exit_time, commitment_id`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ExitTime
	for rows.Next() {
		var e models.ExitTime
		var at string
		if err := rows.Scan(&e.CommitmentID, &at, &e.TravelDurationMin, &e.PreparationMin, &e.TravelMethod); err != nil {
			return nil, err
		}
		if e.ExitTime, err = storage.ParseTime(at); err != nil {
			return nil, fmt.Errorf("exit time for %s: %w", e.CommitmentID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
