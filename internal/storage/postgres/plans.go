package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/storage"
)

const planColumns = `id, user_id, date, wake_time, sleep_time, plan_start, energy, status, revision, tail_plan, extras, created_at, updated_at`

func (s *Store) SavePlan(ctx context.Context, plan *models.DailyPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock the row so concurrent regenerations of the same day serialize.
	var existingID string
	var revision int
	var createdAt time.Time
	err = tx.QueryRowContext(ctx,
		"SELECT id, revision, created_at FROM plans WHERE user_id = $1 AND date = $2 FOR UPDATE",
		plan.UserID, plan.Date,
	).Scan(&existingID, &revision, &createdAt)

	now := time.Now().UTC()
	switch {
	case apperrors.Is(err, sql.ErrNoRows):
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
		plan.CreatedAt = createdAt
		if _, err := tx.ExecContext(ctx, "DELETE FROM plans WHERE id = $1", existingID); err != nil {
			return err
		}
	}
	plan.UpdatedAt = now

	extras, err := storage.EncodeExtras(*plan)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO plans (`+planColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		plan.ID, plan.UserID, plan.Date, plan.WakeTime.UTC(), plan.SleepTime.UTC(), plan.PlanStart.UTC(),
		string(plan.Energy), string(plan.Status), plan.Revision, plan.TailPlan, extras,
		plan.CreatedAt.UTC(), plan.UpdatedAt,
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
		UPDATE plans SET wake_time = $1, sleep_time = $2, plan_start = $3, energy = $4, status = $5,
			revision = revision + 1, tail_plan = $6, extras = $7, updated_at = $8
		WHERE id = $9 AND revision = $10`,
		plan.WakeTime.UTC(), plan.SleepTime.UTC(), plan.PlanStart.UTC(), string(plan.Energy), string(plan.Status),
		plan.TailPlan, extras, now, plan.ID, expectedRevision,
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
		err := tx.QueryRowContext(ctx, "SELECT revision FROM plans WHERE id = $1", plan.ID).Scan(&current)
		if apperrors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("plan %s: %w", plan.ID, apperrors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("plan %s at revision %d, expected %d: %w", plan.ID, current, expectedRevision, apperrors.ErrRevisionConflict)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM time_blocks WHERE plan_id = $1", plan.ID); err != nil {
		return fmt.Errorf("failed to delete blocks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM exit_times WHERE plan_id = $1", plan.ID); err != nil {
		return fmt.Errorf("failed to delete exit times: %w", err)
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
	row := s.db.QueryRowContext(ctx, "SELECT "+planColumns+" FROM plans WHERE id = $1", id)
	plan, err := s.scanPlan(ctx, row)
	if apperrors.Is(err, sql.ErrNoRows) {
		return models.DailyPlan{}, fmt.Errorf("plan %s: %w", id, apperrors.ErrNotFound)
	}
	return plan, err
}

func (s *Store) GetPlanByDate(ctx context.Context, userID, date string) (models.DailyPlan, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+planColumns+" FROM plans WHERE user_id = $1 AND date = $2", userID, date)
	plan, err := s.scanPlan(ctx, row)
	if apperrors.Is(err, sql.ErrNoRows) {
		return models.DailyPlan{}, fmt.Errorf("plan for %s on %s: %w", userID, date, apperrors.ErrNotFound)
	}
	return plan, err
}

func (s *Store) PatchBlock(ctx context.Context, planID, blockID string, patch storage.BlockPatch) (models.TimeBlock, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.TimeBlock{}, err
	}
	defer tx.Rollback()

	var revision int
	err = tx.QueryRowContext(ctx, "SELECT revision FROM plans WHERE id = $1 FOR UPDATE", planID).Scan(&revision)
	if apperrors.Is(err, sql.ErrNoRows) {
		return models.TimeBlock{}, fmt.Errorf("plan %s: %w", planID, apperrors.ErrNotFound)
	}
	if err != nil {
		return models.TimeBlock{}, err
	}

	blocks, err := queryBlocks(ctx, tx, "WHERE plan_id = $1 AND id = $2", planID, blockID)
	if err != nil {
		return models.TimeBlock{}, err
	}
	if len(blocks) == 0 {
		return models.TimeBlock{}, fmt.Errorf("block %s in plan %s: %w", blockID, planID, apperrors.ErrStaleReference)
	}

	b := blocks[0]
	patch.Apply(&b)
	meta, err := storage.EncodeMetadata(b.Metadata)
	if err != nil {
		return models.TimeBlock{}, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE time_blocks SET start_time = $1, end_time = $2, sequence_order = $3, status = $4, skip_reason = $5, metadata = $6
		WHERE plan_id = $7 AND id = $8`,
		b.Start.UTC(), b.End.UTC(), b.SequenceOrder, string(b.Status), b.SkipReason, meta, planID, blockID,
	)
	if err != nil {
		return models.TimeBlock{}, fmt.Errorf("failed to update block: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE plans SET revision = $1, updated_at = $2 WHERE id = $3",
		revision+1, time.Now().UTC(), planID); err != nil {
		return models.TimeBlock{}, err
	}
	return b, tx.Commit()
}

func (s *Store) scanPlan(ctx context.Context, row *sql.Row) (models.DailyPlan, error) {
	var p models.DailyPlan
	var energy, status, extras string
	if err := row.Scan(&p.ID, &p.UserID, &p.Date, &p.WakeTime, &p.SleepTime, &p.PlanStart, &energy, &status,
		&p.Revision, &p.TailPlan, &extras, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return models.DailyPlan{}, err
	}
	p.Energy = models.EnergyLevel(energy)
	p.Status = models.PlanStatus(status)
	if err := storage.DecodeExtras(extras, &p); err != nil {
		return models.DailyPlan{}, err
	}

	blocks, err := queryBlocks(ctx, s.db, "WHERE plan_id = $1", p.ID)
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

// insertChildren writes blocks and exit times. Old rows go with ON DELETE CASCADE or an
// explicit delete by the caller.
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
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			b.ID, b.PlanID, b.Title, b.Start.UTC(), b.End.UTC(), string(b.ActivityType),
			b.IsFixed, b.SequenceOrder, string(b.Status), b.SkipReason, meta,
		)
		if err != nil {
			return fmt.Errorf("failed to insert block %s: %w", b.ID, err)
		}
	}

	for _, e := range plan.ExitTimes {
		_, err := q.ExecContext(ctx, `
			INSERT INTO exit_times (plan_id, commitment_id, exit_time, travel_duration_min, preparation_min, travel_method)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			plan.ID, e.CommitmentID, e.ExitTime.UTC(), e.TravelDurationMin, e.PreparationMin, e.TravelMethod,
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
		var activity, status string
		var meta []byte
		if err := rows.Scan(&b.ID, &b.PlanID, &b.Title, &b.Start, &b.End, &activity, &b.IsFixed,
			&b.SequenceOrder, &status, &b.SkipReason, &meta); err != nil {
			return nil, err
		}
		b.ActivityType = models.ActivityType(activity)
		b.Status = models.BlockStatus(status)
		if b.Metadata, err = models.DecodeMetadata(meta); err != nil {
			return nil, fmt.Errorf("block %s: %w", b.ID, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func queryExitTimes(ctx context.Context, q querier, planID string) ([]models.ExitTime, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT commitment_id, exit_time, travel_duration_min, preparation_min, travel_method
		FROM exit_times WHERE plan_id = $1 ORDER BY exit_time, commitment_id`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ExitTime
	for rows.Next() {
		var e models.ExitTime
		if err := rows.Scan(&e.CommitmentID, &e.ExitTime, &e.TravelDurationMin, &e.PreparationMin, &e.TravelMethod); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
