package planner

import (
	"context"
	"fmt"

	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/logger"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/utils"
)

var essentialTypes = map[models.ActivityType]bool{
	models.ActivityCommitment: true,
	models.ActivityTravel:     true,
	models.ActivityChainStep:  true,
	models.ActivityRoutine:    true,
	models.ActivityMeal:       true,
}

// Essential reports whether a block survives degradation. Chain recovery is kept with
// its chain.
func Essential(b models.TimeBlock) bool {
	if _, ok := b.Metadata.(models.RecoveryMeta); ok {
		return true
	}
	return essentialTypes[b.ActivityType]
}

// Degrade drops every pending non-essential block and rebuilds the transition buffers
// around what is left. Running it again on a degraded plan changes nothing but the
// revision.
func (b *Builder) Degrade(ctx context.Context, planID string, expectedRevision int) (models.DailyPlan, error) {
	plan, err := b.store.GetPlan(ctx, planID)
	if err != nil {
		return models.DailyPlan{}, err
	}
	if expectedRevision == 0 {
		expectedRevision = plan.Revision
	}

	kept := make([]models.TimeBlock, 0, len(plan.Blocks))
	dropped := 0
	for _, blk := range plan.Blocks {
		if blk.IsTransition() {
			continue
		}
		if !Essential(blk) && blk.IsPending() {
			blk.Status = models.BlockSkipped
			blk.SkipReason = constants.SkipDegraded
			dropped++
			b.metrics.Skipped(constants.SkipDegraded)
		}
		kept = append(kept, blk)
	}
	models.SortBlocks(kept)

	out := make([]models.TimeBlock, 0, len(kept)*2)
	for _, blk := range kept {
		out = append(out, blk)
		if !Essential(blk) || blk.Status == models.BlockSkipped {
			continue
		}
		end := blk.End.Add(utils.Minutes(constants.TransitionMin))
		if end.After(plan.SleepTime) {
			continue
		}
		out = append(out, models.TimeBlock{
			ID:           "buf-" + blk.ID,
			PlanID:       plan.ID,
			Title:        constants.TitleTransition,
			Start:        blk.End,
			End:          end,
			ActivityType: models.ActivityBuffer,
			Status:       models.BlockPending,
			Metadata:     models.BufferMeta{AfterBlockID: blk.ID},
		})
	}

	models.Resequence(out)
	plan.Blocks = out
	plan.Status = models.PlanDegraded

	if err := b.store.ReplacePlan(ctx, &plan, expectedRevision); err != nil {
		return models.DailyPlan{}, fmt.Errorf("failed to save degraded plan: %w", err)
	}
	b.metrics.Degraded()
	logger.Info("Plan degraded", "plan", plan.ID, "dropped", dropped, "revision", plan.Revision)
	return plan, nil
}
