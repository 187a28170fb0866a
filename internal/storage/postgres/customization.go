package postgres

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
)

func (s *Store) GetStepOverrides(ctx context.Context, userID string) ([]models.StepOverride, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT anchor_type, step_id, name, duration_min, disabled
		FROM step_overrides WHERE user_id = $1
		ORDER BY anchor_type, step_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StepOverride
	for rows.Next() {
		var o models.StepOverride
		var anchorType string
		var name sql.NullString
		var dur sql.NullFloat64
		if err := rows.Scan(&anchorType, &o.StepID, &name, &dur, &o.Disabled); err != nil {
			return nil, err
		}
		o.AnchorType = models.AnchorType(anchorType)
		if name.Valid {
			o.Name = &name.String
		}
		if dur.Valid {
			o.DurationMin = &dur.Float64
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) SaveStepOverride(ctx context.Context, userID string, o models.StepOverride) error {
	var name sql.NullString
	if o.Name != nil {
		name = sql.NullString{String: *o.Name, Valid: true}
	}
	var dur sql.NullFloat64
	if o.DurationMin != nil {
		dur = sql.NullFloat64{Float64: *o.DurationMin, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO step_overrides (user_id, anchor_type, step_id, name, duration_min, disabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, anchor_type, step_id) DO UPDATE SET
			name = EXCLUDED.name, duration_min = EXCLUDED.duration_min, disabled = EXCLUDED.disabled`,
		userID, string(o.AnchorType), o.StepID, name, dur, o.Disabled,
	)
	return err
}

func (s *Store) GetCustomSteps(ctx context.Context, userID string) ([]models.CustomStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, anchor_type, name, duration_min, after_step_id, is_required
		FROM custom_steps WHERE user_id = $1
		ORDER BY position`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CustomStep
	for rows.Next() {
		var c models.CustomStep
		var anchorType string
		if err := rows.Scan(&c.ID, &anchorType, &c.Name, &c.DurationMin, &c.AfterStepID, &c.IsRequired); err != nil {
			return nil, err
		}
		c.AnchorType = models.AnchorType(anchorType)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveCustomStep leaves position untouched on update; the BIGSERIAL default orders inserts.
func (s *Store) SaveCustomStep(ctx context.Context, userID string, c models.CustomStep) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_steps (user_id, id, anchor_type, name, duration_min, after_step_id, is_required)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, id) DO UPDATE SET
			anchor_type = EXCLUDED.anchor_type, name = EXCLUDED.name, duration_min = EXCLUDED.duration_min,
			after_step_id = EXCLUDED.after_step_id, is_required = EXCLUDED.is_required`,
		userID, c.ID, string(c.AnchorType), c.Name, c.DurationMin, c.AfterStepID, c.IsRequired,
	)
	return err
}

func (s *Store) DeleteCustomStep(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM custom_steps WHERE user_id = $1 AND id = $2", userID, id)
	if err != nil {
		return err
	}
	return requireRow(res, fmt.Errorf("custom step %s: %w", id, apperrors.ErrNotFound))
}
