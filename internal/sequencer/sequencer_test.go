package sequencer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/julianstephens/daychain/internal/cache"
	apperrors "github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/sources"
	"github.com/julianstephens/daychain/internal/storage"
)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

func blocks() []models.TimeBlock {
	return []models.TimeBlock{
		{ID: "c", Title: "Lunch", SequenceOrder: 3, Start: at(12, 0), End: at(12, 30), Status: models.BlockPending, ActivityType: models.ActivityMeal},
		{ID: "a", Title: "Wake Ramp", SequenceOrder: 1, Start: at(7, 0), End: at(8, 30), Status: models.BlockCompleted, ActivityType: models.ActivityRoutine},
		{ID: "b", Title: "Write report", SequenceOrder: 2, Start: at(9, 0), End: at(10, 0), Status: models.BlockPending,
			ActivityType: models.ActivityTask, Metadata: models.TaskMeta{TaskID: "t1"}},
		{ID: "d", Title: "Walk", SequenceOrder: 4, Start: at(13, 0), End: at(13, 30), Status: models.BlockSkipped, ActivityType: models.ActivityRoutine},
		{ID: "e", Title: "Dinner", SequenceOrder: 5, Start: at(19, 0), End: at(19, 45), Status: models.BlockPending, ActivityType: models.ActivityMeal},
	}
}

func ids(bs []models.TimeBlock) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.ID)
	}
	return out
}

func TestCurrent(t *testing.T) {
	cur, ok := Current(blocks())
	if !ok || cur.ID != "b" {
		t.Errorf("Current() = %q, %v; want b", cur.ID, ok)
	}

	done := blocks()
	for i := range done {
		done[i].Status = models.BlockCompleted
	}
	if _, ok := Current(done); ok {
		t.Error("Current() found a block in a finished plan")
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		n    int
		want []string
	}{
		{0, nil},
		{1, []string{"c"}},
		{2, []string{"c", "e"}},
		{10, []string{"c", "e"}},
	}
	for _, tt := range tests {
		got := ids(Next(blocks(), tt.n))
		if len(got) != len(tt.want) {
			t.Errorf("Next(%d) = %v, want %v", tt.n, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Next(%d) = %v, want %v", tt.n, got, tt.want)
				break
			}
		}
	}
}

func seeded(t *testing.T) (*Service, *storage.JSONStore, string) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.AddTask(ctx, models.Task{ID: "t1", UserID: "u1", Title: "Write report", EstimatedDurationMin: 60}); err != nil {
		t.Fatal(err)
	}
	plan := &models.DailyPlan{UserID: "u1", Date: "2026-03-02", Status: models.PlanActive, Blocks: blocks()}
	if err := store.SavePlan(ctx, plan); err != nil {
		t.Fatal(err)
	}
	return NewService(store, nil), store, plan.ID
}

func TestMarkCompleteCompletesTask(t *testing.T) {
	svc, store, planID := seeded(t)
	ctx := context.Background()

	blk, err := svc.MarkComplete(ctx, planID, "b")
	if err != nil {
		t.Fatalf("MarkComplete() failed: %v", err)
	}
	if blk.Status != models.BlockCompleted {
		t.Errorf("status = %s", blk.Status)
	}
	pending, _ := store.GetPendingTasks(ctx, "u1")
	if len(pending) != 0 {
		t.Errorf("task still pending: %+v", pending)
	}

	cur, ok, err := svc.Current(ctx, planID)
	if err != nil || !ok || cur.ID != "c" {
		t.Errorf("Current() = %q, %v, %v; want c", cur.ID, ok, err)
	}
	plan, _ := store.GetPlan(ctx, planID)
	if plan.Revision != 2 {
		t.Errorf("revision = %d, want 2", plan.Revision)
	}
}

func TestMarkCompleteMissingTask(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	plan := &models.DailyPlan{UserID: "u1", Date: "2026-03-02", Blocks: blocks()}
	if err := store.SavePlan(ctx, plan); err != nil {
		t.Fatal(err)
	}
	if _, err := NewService(store, nil).MarkComplete(ctx, plan.ID, "b"); err != nil {
		t.Errorf("MarkComplete() with a deleted task failed: %v", err)
	}
}

func TestMarkCompleteInvalidatesCachedTasks(t *testing.T) {
	_, store, planID := seeded(t)
	ctx := context.Background()
	src := sources.NewStore(store)
	cached := sources.NewCached(cache.NewMemory(16, time.Hour), src, src, src)

	tasks, err := cached.PendingTasks(ctx, "u1")
	if err != nil || len(tasks) != 1 {
		t.Fatalf("PendingTasks() = %v, %v; want the seeded task", tasks, err)
	}

	if _, err := NewService(store, cached).MarkComplete(ctx, planID, "b"); err != nil {
		t.Fatalf("MarkComplete() failed: %v", err)
	}
	tasks, err = cached.PendingTasks(ctx, "u1")
	if err != nil {
		t.Fatalf("PendingTasks() failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("cached PendingTasks() after completion = %+v, want none", tasks)
	}
}

func TestMarkSkipped(t *testing.T) {
	svc, _, planID := seeded(t)
	ctx := context.Background()

	blk, err := svc.MarkSkipped(ctx, planID, "c", "")
	if err != nil {
		t.Fatalf("MarkSkipped() failed: %v", err)
	}
	if blk.Status != models.BlockSkipped || blk.SkipReason != "Skipped by user" {
		t.Errorf("block = %s (%q)", blk.Status, blk.SkipReason)
	}

	next, err := svc.Next(ctx, planID, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(next); len(got) != 1 || got[0] != "e" {
		t.Errorf("Next() = %v, want [e]", got)
	}
}

func TestMarkStaleBlock(t *testing.T) {
	svc, _, planID := seeded(t)
	_, err := svc.MarkComplete(context.Background(), planID, "gone")
	if !errors.Is(err, apperrors.ErrStaleReference) {
		t.Errorf("MarkComplete() error = %v, want stale reference", err)
	}
	_, err = svc.MarkSkipped(context.Background(), "no-plan", "b", "tired")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("MarkSkipped() error = %v, want not found", err)
	}
}
