package storage

import (
	"context"
	"time"

	"github.com/julianstephens/daychain/internal/models"
)

// Provider is implemented by the sqlite, postgres and JSON stores. Lookups of missing
// records return errors wrapping errors.ErrNotFound.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error

	// Commitments
	AddCommitment(ctx context.Context, c models.Commitment) error
	// GetCommitments returns the user's commitments starting in [from, to), by start time.
	GetCommitments(ctx context.Context, userID string, from, to time.Time) ([]models.Commitment, error)
	DeleteCommitment(ctx context.Context, id string) error

	// Tasks
	AddTask(ctx context.Context, task models.Task) error
	// GetPendingTasks returns pending tasks by deadline, tasks without one last.
	GetPendingTasks(ctx context.Context, userID string) ([]models.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error

	// Routines
	AddRoutine(ctx context.Context, r models.Routine) error
	GetRoutines(ctx context.Context, userID string, activeOnly bool) ([]models.Routine, error)

	// Chain customization
	GetStepOverrides(ctx context.Context, userID string) ([]models.StepOverride, error)
	SaveStepOverride(ctx context.Context, userID string, o models.StepOverride) error
	// GetCustomSteps returns custom steps in insertion order.
	GetCustomSteps(ctx context.Context, userID string) ([]models.CustomStep, error)
	SaveCustomStep(ctx context.Context, userID string, c models.CustomStep) error
	DeleteCustomStep(ctx context.Context, userID, id string) error

	// Plans
	// SavePlan stores a freshly generated plan, replacing any plan for the same user and
	// date in one transaction. A replaced plan keeps its id, and the revision continues
	// from the old one. plan.ID and plan.Revision are updated in place.
	SavePlan(ctx context.Context, plan *models.DailyPlan) error
	// ReplacePlan rewrites an existing plan with its blocks and exit times if its stored
	// revision still equals expectedRevision. Otherwise it returns errors.ErrRevisionConflict.
	ReplacePlan(ctx context.Context, plan *models.DailyPlan, expectedRevision int) error
	GetPlan(ctx context.Context, id string) (models.DailyPlan, error)
	GetPlanByDate(ctx context.Context, userID, date string) (models.DailyPlan, error)
	// PatchBlock applies a partial update to one block and bumps the plan revision. A
	// missing block in an existing plan returns errors.ErrStaleReference.
	PatchBlock(ctx context.Context, planID, blockID string, patch BlockPatch) (models.TimeBlock, error)

	// Utils
	GetConfigPath() string
}

// BlockPatch is a partial update of a time block. Nil fields are left unchanged.
type BlockPatch struct {
	Status        *models.BlockStatus
	Start         *time.Time
	End           *time.Time
	SequenceOrder *int
	Metadata      models.Metadata
	SkipReason    *string
}

// Apply writes the non-nil fields of p onto b.
func (p BlockPatch) Apply(b *models.TimeBlock) {
	if p.Status != nil {
		b.Status = *p.Status
		if *p.Status != models.BlockSkipped && p.SkipReason == nil {
			b.SkipReason = ""
		}
	}
	if p.Start != nil {
		b.Start = *p.Start
	}
	if p.End != nil {
		b.End = *p.End
	}
	if p.SequenceOrder != nil {
		b.SequenceOrder = *p.SequenceOrder
	}
	if p.Metadata != nil {
		b.Metadata = p.Metadata
	}
	if p.SkipReason != nil {
		b.SkipReason = *p.SkipReason
	}
}
