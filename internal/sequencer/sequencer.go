// Package sequencer answers "what now" and "what next" for a stored plan and records
// block outcomes. It never moves blocks; structure belongs to the planner.
package sequencer

import (
	"context"
	"fmt"
	"sort"

	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/logger"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/storage"
)

// ordered returns the pending blocks by sequence order. Buffers are included; callers
// that only want actionable blocks filter them.
func ordered(blocks []models.TimeBlock) []models.TimeBlock {
	out := make([]models.TimeBlock, 0, len(blocks))
	for _, b := range blocks {
		if b.IsPending() {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SequenceOrder < out[j].SequenceOrder })
	return out
}

// Current returns the first pending block in sequence order.
func Current(blocks []models.TimeBlock) (models.TimeBlock, bool) {
	pending := ordered(blocks)
	if len(pending) == 0 {
		return models.TimeBlock{}, false
	}
	return pending[0], true
}

// Next returns up to n pending blocks after the current one.
func Next(blocks []models.TimeBlock, n int) []models.TimeBlock {
	pending := ordered(blocks)
	if n <= 0 || len(pending) < 2 {
		return nil
	}
	pending = pending[1:]
	if len(pending) > n {
		pending = pending[:n]
	}
	return pending
}

// Invalidator drops cached source lookups for a user. An empty date keeps cached
// commitments.
type Invalidator interface {
	Invalidate(ctx context.Context, userID, date string) error
}

type Service struct {
	Store storage.Provider
	Cache Invalidator
}

// NewService returns a sequencer over store. cache may be nil when source lookups are
// not cached.
func NewService(store storage.Provider, cache Invalidator) *Service {
	return &Service{Store: store, Cache: cache}
}

// MarkComplete completes a block. Completing a task block also completes the task.
func (s *Service) MarkComplete(ctx context.Context, planID, blockID string) (models.TimeBlock, error) {
	status := models.BlockCompleted
	blk, err := s.Store.PatchBlock(ctx, planID, blockID, storage.BlockPatch{Status: &status})
	if err != nil {
		return models.TimeBlock{}, fmt.Errorf("failed to complete block: %w", err)
	}

	if meta, ok := blk.Metadata.(models.TaskMeta); ok && meta.TaskID != "" {
		err := s.Store.UpdateTaskStatus(ctx, meta.TaskID, models.TaskCompleted)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return blk, fmt.Errorf("failed to complete task %s: %w", meta.TaskID, err)
		}
		if err == nil {
			s.invalidateTasks(ctx, planID)
		}
	}
	logger.Debug("Block completed", "plan", planID, "block", blockID, "title", blk.Title)
	return blk, nil
}

// invalidateTasks drops the plan owner's cached task list so the next generation does
// not schedule the completed task again.
func (s *Service) invalidateTasks(ctx context.Context, planID string) {
	if s.Cache == nil {
		return
	}
	plan, err := s.Store.GetPlan(ctx, planID)
	if err == nil {
		err = s.Cache.Invalidate(ctx, plan.UserID, "")
	}
	if err != nil {
		logger.Warn("Cache invalidation failed", "plan", planID, "error", err)
	}
}

// MarkSkipped skips a block with reason.
func (s *Service) MarkSkipped(ctx context.Context, planID, blockID, reason string) (models.TimeBlock, error) {
	if reason == "" {
		reason = "Skipped by user"
	}
	status := models.BlockSkipped
	blk, err := s.Store.PatchBlock(ctx, planID, blockID, storage.BlockPatch{Status: &status, SkipReason: &reason})
	if err != nil {
		return models.TimeBlock{}, fmt.Errorf("failed to skip block: %w", err)
	}
	logger.Debug("Block skipped", "plan", planID, "block", blockID, "reason", reason)
	return blk, nil
}

// Current loads a plan and returns its current block.
func (s *Service) Current(ctx context.Context, planID string) (models.TimeBlock, bool, error) {
	plan, err := s.Store.GetPlan(ctx, planID)
	if err != nil {
		return models.TimeBlock{}, false, err
	}
	blk, ok := Current(plan.Blocks)
	return blk, ok, nil
}

// Next loads a plan and returns up to n blocks after the current one.
func (s *Service) Next(ctx context.Context, planID string, n int) ([]models.TimeBlock, error) {
	plan, err := s.Store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return Next(plan.Blocks, n), nil
}
