package planner

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/julianstephens/daychain/internal/chains"
	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/logger"
	"github.com/julianstephens/daychain/internal/models"
)

// Chain edit operations, as reported in metrics.
const (
	OpAddStep    = "add"
	OpEditStep   = "edit"
	OpDeleteStep = "delete"
)

// maxStepMin bounds a single step at one day.
const maxStepMin = 24 * 60

// NewStep is a step added to one chain of a stored plan. An empty ID is generated. An
// empty AfterStepID inserts before the exit gate.
type NewStep struct {
	ID          string
	Name        string
	DurationMin int
	AfterStepID string
	IsRequired  bool
	// Remember saves the step as a custom step for future plans.
	Remember bool
}

// StepEdit renames and/or re-times a step. Nil fields are unchanged.
type StepEdit struct {
	Name        *string
	DurationMin *float64
	// Remember saves the edit as a step override (or updates the custom step).
	Remember bool
}

// EditResult is the rewritten plan and the chain that was edited.
type EditResult struct {
	Plan  models.DailyPlan
	Chain models.ExecutionChain
}

// AddChainStep inserts a step into a chain and reflows it from its deadline.
// expectedRevision zero means the revision just read.
func (b *Builder) AddChainStep(ctx context.Context, planID, chainID string, step NewStep, expectedRevision int) (EditResult, error) {
	if strings.TrimSpace(step.Name) == "" {
		return b.editFailed(OpAddStep, errors.Validationf("step name is required"))
	}
	if step.DurationMin < 0 || step.DurationMin > maxStepMin {
		return b.editFailed(OpAddStep, errors.Validationf("step duration %d out of range 0-%d", step.DurationMin, maxStepMin))
	}
	if step.ID == "" {
		step.ID = "custom-" + b.newID()
	}

	res, err := b.editChain(ctx, planID, chainID, expectedRevision, func(c *models.ExecutionChain, steps []models.ChainStep) ([]models.ChainStep, error) {
		if slices.ContainsFunc(steps, func(s models.ChainStep) bool { return s.ID == step.ID }) {
			return nil, errors.Validationf("step %s already exists in chain %s", step.ID, chainID)
		}
		return chains.InsertStep(steps, models.ChainStep{
			ID:          step.ID,
			Name:        step.Name,
			DurationMin: step.DurationMin,
			IsRequired:  step.IsRequired,
			Custom:      true,
		}, step.AfterStepID, nil), nil
	})
	if err != nil {
		return b.editFailed(OpAddStep, err)
	}

	if step.Remember {
		b.remember(ctx, res.Plan.UserID, func(ctx context.Context, userID string) error {
			return b.store.SaveCustomStep(ctx, userID, models.CustomStep{
				ID:          step.ID,
				AnchorType:  res.Chain.Anchor.Type,
				Name:        step.Name,
				DurationMin: step.DurationMin,
				AfterStepID: step.AfterStepID,
				IsRequired:  step.IsRequired,
			})
		})
	}
	b.metrics.ChainEdit(OpAddStep, "")
	return res, nil
}

// EditChainStep renames or re-times one step. The leave step is the travel time and
// cannot be edited.
func (b *Builder) EditChainStep(ctx context.Context, planID, chainID, stepID string, edit StepEdit, expectedRevision int) (EditResult, error) {
	if stepID == chains.StepLeave {
		return b.editFailed(OpEditStep, fmt.Errorf("%w: the leave step follows travel time", errors.ErrInvariant))
	}
	if edit.Name == nil && edit.DurationMin == nil {
		return b.editFailed(OpEditStep, errors.Validationf("nothing to change"))
	}
	if edit.Name != nil && strings.TrimSpace(*edit.Name) == "" {
		return b.editFailed(OpEditStep, errors.Validationf("step name cannot be empty"))
	}
	if edit.DurationMin != nil {
		d := chains.CoerceDuration(edit.DurationMin, -1)
		if d < 0 || d > maxStepMin {
			return b.editFailed(OpEditStep, errors.Validationf("step duration %v out of range 0-%d", *edit.DurationMin, maxStepMin))
		}
	}

	var edited models.ChainStep
	res, err := b.editChain(ctx, planID, chainID, expectedRevision, func(c *models.ExecutionChain, steps []models.ChainStep) ([]models.ChainStep, error) {
		i := slices.IndexFunc(steps, func(s models.ChainStep) bool { return s.ID == stepID })
		if i < 0 {
			return nil, fmt.Errorf("step %s in chain %s: %w", stepID, chainID, errors.ErrNotFound)
		}
		if edit.Name != nil {
			steps[i].Name = strings.TrimSpace(*edit.Name)
		}
		steps[i].DurationMin = chains.CoerceDuration(edit.DurationMin, steps[i].DurationMin)
		edited = steps[i]
		return steps, nil
	})
	if err != nil {
		return b.editFailed(OpEditStep, err)
	}

	if edit.Remember && stepID != chains.StepTakeMeds {
		b.remember(ctx, res.Plan.UserID, func(ctx context.Context, userID string) error {
			if edited.Custom {
				return b.updateCustomStep(ctx, userID, edited)
			}
			return b.store.SaveStepOverride(ctx, userID, models.StepOverride{
				AnchorType:  res.Chain.Anchor.Type,
				StepID:      stepID,
				Name:        edit.Name,
				DurationMin: edit.DurationMin,
			})
		})
	}
	b.metrics.ChainEdit(OpEditStep, "")
	return res, nil
}

// DeleteChainStep removes a step. Removing the last step, or the leave step, is rejected
// before anything is written.
func (b *Builder) DeleteChainStep(ctx context.Context, planID, chainID, stepID string, remember bool, expectedRevision int) (EditResult, error) {
	if stepID == chains.StepLeave {
		return b.editFailed(OpDeleteStep, fmt.Errorf("%w: the leave step follows travel time", errors.ErrInvariant))
	}

	var removed models.ChainStep
	res, err := b.editChain(ctx, planID, chainID, expectedRevision, func(c *models.ExecutionChain, steps []models.ChainStep) ([]models.ChainStep, error) {
		i := slices.IndexFunc(steps, func(s models.ChainStep) bool { return s.ID == stepID })
		if i < 0 {
			return nil, fmt.Errorf("step %s in chain %s: %w", stepID, chainID, errors.ErrNotFound)
		}
		removed = steps[i]
		return slices.Delete(steps, i, i+1), nil
	})
	if err != nil {
		return b.editFailed(OpDeleteStep, err)
	}

	if remember && stepID != chains.StepTakeMeds {
		b.remember(ctx, res.Plan.UserID, func(ctx context.Context, userID string) error {
			if removed.Custom {
				err := b.store.DeleteCustomStep(ctx, userID, stepID)
				if errors.Is(err, errors.ErrNotFound) {
					return nil
				}
				return err
			}
			return b.store.SaveStepOverride(ctx, userID, models.StepOverride{
				AnchorType: res.Chain.Anchor.Type,
				StepID:     stepID,
				Disabled:   true,
			})
		})
	}
	b.metrics.ChainEdit(OpDeleteStep, "")
	return res, nil
}

// ResolveChainStep maps a block id to its chain and step. A block that no longer exists
// is a stale reference; the caller should re-read the plan.
func (b *Builder) ResolveChainStep(ctx context.Context, planID, blockID string) (chainID, stepID string, err error) {
	plan, err := b.store.GetPlan(ctx, planID)
	if err != nil {
		return "", "", err
	}
	i := plan.BlockByID(blockID)
	if i < 0 {
		return "", "", fmt.Errorf("block %s in plan %s: %w", blockID, planID, errors.ErrStaleReference)
	}
	meta := plan.Blocks[i].Metadata
	if !models.IsChainStep(meta) {
		return "", "", errors.Validationf("block %s is not a chain step", blockID)
	}
	chainID, stepID, _ = models.ChainLink(meta)
	return chainID, stepID, nil
}

type stepMutation func(c *models.ExecutionChain, steps []models.ChainStep) ([]models.ChainStep, error)

// editChain loads the plan, applies mutate to one chain's step list, reflows the chain
// from its unchanged deadline and writes the whole plan back guarded by its revision.
func (b *Builder) editChain(ctx context.Context, planID, chainID string, expectedRevision int, mutate stepMutation) (EditResult, error) {
	plan, err := b.store.GetPlan(ctx, planID)
	if err != nil {
		return EditResult{}, err
	}
	if expectedRevision == 0 {
		expectedRevision = plan.Revision
	}
	if plan.Revision != expectedRevision {
		return EditResult{}, fmt.Errorf("plan %s at revision %d, expected %d: %w", planID, plan.Revision, expectedRevision, errors.ErrRevisionConflict)
	}

	ci := plan.ChainByID(chainID)
	if ci < 0 {
		return EditResult{}, fmt.Errorf("chain %s in plan %s: %w", chainID, planID, errors.ErrNotFound)
	}
	chain := plan.Chains[ci]
	if chain.Status == models.ChainConflicted {
		return EditResult{}, fmt.Errorf("%w: chain %s overlaps another commitment", errors.ErrInvariant, chainID)
	}

	prior := make(map[string]models.ChainStepInstance, len(chain.Steps))
	steps := make([]models.ChainStep, 0, len(chain.Steps))
	for _, s := range chain.Steps {
		prior[s.Step.ID] = s
		steps = append(steps, s.Step)
	}

	steps, err = mutate(&chain, steps)
	if err != nil {
		return EditResult{}, err
	}
	if len(steps) == 0 {
		return EditResult{}, fmt.Errorf("%w: chain %s must keep at least one step", errors.ErrInvariant, chainID)
	}

	// Reflow keeps the deadline; statuses of surviving steps carry over.
	chain.Steps = chains.ReflowChainSteps(steps, chain.CompletionDeadline)
	for i, s := range chain.Steps {
		if p, ok := prior[s.Step.ID]; ok && p.Status != models.StepPending {
			chain.Steps[i].Status = p.Status
			chain.Steps[i].SkipReason = p.SkipReason
		}
	}
	chains.RefreshEnvelope(&chain)
	plan.Chains[ci] = chain

	// Old step blocks of this chain keep their ids for steps that survive.
	ids := make(map[string]string)
	rest := make([]models.TimeBlock, 0, len(plan.Blocks))
	for _, blk := range plan.Blocks {
		if cid, sid, ok := models.ChainLink(blk.Metadata); ok && cid == chainID && models.IsChainStep(blk.Metadata) {
			ids[sid] = blk.ID
			continue
		}
		rest = append(rest, blk)
	}
	fresh := b.stepBlocks(chain, ids)

	if err := displace(rest, fresh, chainID); err != nil {
		return EditResult{}, err
	}

	blocks := append(rest, fresh...)
	models.Resequence(blocks)
	for i := range blocks {
		blocks[i].PlanID = plan.ID
	}
	plan.Blocks = blocks
	updateExitTimes(plan.ExitTimes, plan.Chains)

	if err := b.store.ReplacePlan(ctx, &plan, expectedRevision); err != nil {
		return EditResult{}, err
	}
	logger.Info("Chain edited", "plan", plan.ID, "chain", chainID, "steps", len(chain.Steps), "revision", plan.Revision)
	return EditResult{Plan: plan, Chain: chain}, nil
}

// displace skips pending flexible blocks that the new step blocks run into. A fixed
// block in the way, such as another chain's anchor, rejects the edit.
func displace(rest, fresh []models.TimeBlock, chainID string) error {
	for _, step := range fresh {
		if step.Status == models.BlockSkipped {
			continue
		}
		for i := range rest {
			blk := &rest[i]
			if blk.Status == models.BlockSkipped || !blk.Overlaps(step) {
				continue
			}
			if cid, _, ok := models.ChainLink(blk.Metadata); ok && cid == chainID {
				continue
			}
			if blk.IsFixed && !blk.IsBuffer() {
				return fmt.Errorf("%w: step %q would overlap %q", errors.ErrInvariant, step.Title, blk.Title)
			}
			if blk.IsPending() {
				blk.Status = models.BlockSkipped
				blk.SkipReason = constants.SkipDisplaced
				logger.Debug("Block displaced by chain edit", "block", blk.ID, "title", blk.Title, "chain", chainID)
			}
		}
	}
	return nil
}

func (b *Builder) updateCustomStep(ctx context.Context, userID string, step models.ChainStep) error {
	custom, err := b.store.GetCustomSteps(ctx, userID)
	if err != nil {
		return err
	}
	for _, c := range custom {
		if c.ID == step.ID {
			c.Name = step.Name
			c.DurationMin = step.DurationMin
			return b.store.SaveCustomStep(ctx, userID, c)
		}
	}
	return nil
}

// remember persists customization after the plan write succeeded. A failure is logged
// and does not undo the edit.
func (b *Builder) remember(ctx context.Context, userID string, save func(context.Context, string) error) {
	if err := save(ctx, userID); err != nil {
		logger.Warn("Failed to remember chain edit", "user", userID, "error", err)
	}
}

func (b *Builder) editFailed(op string, err error) (EditResult, error) {
	b.metrics.ChainEdit(op, errors.Code(err))
	return EditResult{}, err
}
