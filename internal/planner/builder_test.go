package planner

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/daychain/internal/chains"
	"github.com/julianstephens/daychain/internal/constants"
	apperrors "github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/metrics"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/storage"
	"github.com/julianstephens/daychain/internal/validation"
)

const testDate = "2026-03-02"

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

func input(now time.Time, energy models.EnergyLevel) Input {
	return Input{
		UserID:          "u1",
		Date:            testDate,
		WakeTime:        "07:00",
		SleepTime:       "23:00",
		Timezone:        "UTC",
		Energy:          energy,
		CurrentLocation: "home",
		Now:             now,
	}
}

func newTestBuilder(t *testing.T, opts ...Option) (*Builder, *storage.JSONStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	return NewBuilder(store, opts...), store
}

func addClass(t *testing.T, store storage.Provider, id string, start, end time.Time) {
	t.Helper()
	err := store.AddCommitment(context.Background(), models.Commitment{
		ID: id, UserID: "u1", Title: "Calculus Lecture", Start: start, End: end,
		Location: "Campus", AnchorType: models.AnchorClass,
	})
	if err != nil {
		t.Fatalf("AddCommitment() failed: %v", err)
	}
}

func assertValid(t *testing.T, plan models.DailyPlan) {
	t.Helper()
	res := validation.New().ValidatePlan(plan)
	if res.HasConflicts() {
		t.Errorf("plan has conflicts:\n%s", res.FormatReport())
	}
}

func findBlock(plan models.DailyPlan, title string) (models.TimeBlock, bool) {
	for _, b := range plan.Blocks {
		if b.Title == title {
			return b, true
		}
	}
	return models.TimeBlock{}, false
}

func findStep(c models.ExecutionChain, id string) models.ChainStepInstance {
	return c.Steps[c.StepIndex(id)]
}

func TestGenerateNoAnchors(t *testing.T) {
	b, store := newTestBuilder(t)
	plan, err := b.Generate(context.Background(), input(at(6, 0), models.EnergyMedium))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	assertValid(t, plan)

	if plan.WakeRamp.DurationMin != 90 || !plan.WakeRamp.Start.Equal(at(7, 0)) {
		t.Errorf("wake ramp = %+v, want 90m from 07:00", plan.WakeRamp)
	}
	if plan.Meals[0].Time == nil || !plan.Meals[0].Time.Equal(at(9, 30)) {
		t.Errorf("breakfast = %+v, want 09:30", plan.Meals[0])
	}
	if plan.TailPlan {
		t.Error("unexpected tail plan")
	}

	for _, title := range []string{constants.TitleWakeRamp, constants.TitleMorningRoutine, constants.TitlePrimaryFocus, "Breakfast", "Lunch", "Dinner"} {
		if _, ok := findBlock(plan, title); !ok {
			t.Errorf("missing block %q", title)
		}
	}

	ev, ok := findBlock(plan, constants.TitleEveningRoutine)
	if !ok {
		t.Fatal("missing evening routine")
	}
	if ev.Start.Before(at(18, 0)) {
		t.Errorf("evening routine at %v, want after 18:00", ev.Start)
	}
	for _, blk := range plan.Blocks {
		if !blk.IsBuffer() && blk.Start.After(ev.Start) {
			t.Errorf("%q starts after the evening routine", blk.Title)
		}
	}

	stored, err := store.GetPlanByDate(context.Background(), "u1", testDate)
	if err != nil {
		t.Fatalf("GetPlanByDate() failed: %v", err)
	}
	if stored.ID != plan.ID || len(stored.Blocks) != len(plan.Blocks) {
		t.Errorf("stored plan %s with %d blocks, want %s with %d", stored.ID, len(stored.Blocks), plan.ID, len(plan.Blocks))
	}
}

func TestGenerateClassChain(t *testing.T) {
	b, store := newTestBuilder(t)
	addClass(t, store, "c1", at(10, 0), at(11, 0))

	plan, err := b.Generate(context.Background(), input(at(6, 0), models.EnergyMedium))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	assertValid(t, plan)

	if len(plan.Chains) != 1 {
		t.Fatalf("got %d chains, want 1", len(plan.Chains))
	}
	c := plan.Chains[0]
	if c.ChainID != chains.ChainID("c1") || c.Status != models.ChainPending {
		t.Errorf("chain = %s (%s)", c.ChainID, c.Status)
	}
	leave := findStep(c, chains.StepLeave)
	gate := findStep(c, chains.StepExitGate)
	if !leave.End.Equal(at(10, 0)) || !leave.Start.Equal(at(9, 40)) {
		t.Errorf("leave at %v-%v, want 09:40-10:00", leave.Start, leave.End)
	}
	if !gate.End.Equal(leave.Start) {
		t.Errorf("exit gate ends at %v, leave starts at %v", gate.End, leave.Start)
	}
	if c.StepIndex(chains.StepExitGate) != c.StepIndex(chains.StepLeave)-1 {
		t.Error("exit gate does not immediately precede leave")
	}

	if len(plan.ExitTimes) != 1 || !plan.ExitTimes[0].ExitTime.Equal(at(9, 40)) || plan.ExitTimes[0].PreparationMin != 30 {
		t.Errorf("exit times = %+v", plan.ExitTimes)
	}

	anchor, ok := findBlock(plan, "Calculus Lecture")
	if !ok || !anchor.IsFixed || anchor.ActivityType != models.ActivityCommitment {
		t.Fatalf("anchor block = %+v", anchor)
	}
	if meta, ok := anchor.Metadata.(models.AnchorMeta); !ok || meta.ChainID != c.ChainID {
		t.Errorf("anchor metadata = %#v", anchor.Metadata)
	}

	// Breakfast must be at home, before departure.
	if m := plan.Meals[0]; m.Skipped || m.End().After(at(9, 40)) {
		t.Errorf("breakfast = %+v", m)
	}
}

func TestGenerateRampYieldsToEarlyChain(t *testing.T) {
	b, store := newTestBuilder(t)
	addClass(t, store, "c1", at(10, 0), at(11, 0))

	plan, err := b.Generate(context.Background(), input(at(8, 0), models.EnergyMedium))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	assertValid(t, plan)
	if !plan.WakeRamp.Skipped || plan.WakeRamp.SkipReason != constants.SkipRampConflict || plan.WakeRamp.DurationMin != 0 {
		t.Errorf("wake ramp = %+v, want skipped for conflict", plan.WakeRamp)
	}
}

func TestGenerateRampShrinksBuffer(t *testing.T) {
	b, store := newTestBuilder(t)
	// First step at 09:00.
	addClass(t, store, "c1", at(9, 50), at(11, 0))

	plan, err := b.Generate(context.Background(), input(at(7, 45), models.EnergyMedium))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	r := plan.WakeRamp
	if r.Skipped || r.Components.BufferMin != 0 || !r.End.Equal(at(9, 0)) || r.DurationMin != r.Components.Total() {
		t.Errorf("wake ramp = %+v, want buffer shrunk to end at 09:00", r)
	}
	assertValid(t, plan)
}

func TestGenerateTailPlan(t *testing.T) {
	b, _ := newTestBuilder(t)
	plan, err := b.Generate(context.Background(), input(at(22, 30), models.EnergyMedium))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	assertValid(t, plan)

	if !plan.TailPlan {
		t.Fatal("expected a tail plan")
	}
	var titles []string
	for _, blk := range plan.Blocks {
		if blk.IsPending() {
			titles = append(titles, blk.Title)
		}
	}
	want := []string{constants.TitleResetAdmin, constants.TitleEveningRoutine}
	if len(titles) != len(want) {
		t.Fatalf("tail blocks = %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("tail block %d = %q, want %q", i, titles[i], want[i])
		}
	}
	last := plan.Blocks[len(plan.Blocks)-1]
	if !last.End.Equal(at(23, 0)) {
		t.Errorf("last block ends at %v, want 23:00", last.End)
	}
}

func TestTailPlanKeepsPendingRecovery(t *testing.T) {
	b, _ := newTestBuilder(t)
	recovery := models.TimeBlock{ID: "rec", Title: "Recovery", Start: at(21, 20), End: at(21, 40),
		ActivityType: models.ActivityBuffer, Status: models.BlockPending, Metadata: models.RecoveryMeta{ChainID: "c1"}}
	transition := models.TimeBlock{ID: "buf", Title: constants.TitleTransition, Start: at(21, 40), End: at(21, 45),
		ActivityType: models.ActivityBuffer, Status: models.BlockPending, Metadata: models.BufferMeta{AfterBlockID: "rec"}}
	blocks := []models.TimeBlock{recovery, transition}

	if hasActionable(blocks) {
		t.Fatal("a recovery block alone should not count as actionable")
	}
	kept := settled(blocks)
	if len(kept) != 1 || kept[0].ID != "rec" {
		t.Fatalf("settled() = %v, want only the recovery block", kept)
	}

	out := b.tailPlan(kept, at(21, 30), at(23, 0), models.EnergyLow)
	if len(out) < 2 || out[0].ID != "rec" {
		t.Fatalf("tail plan = %+v, want recovery followed by tail items", out)
	}
	if first := out[1]; first.Title != constants.TitleResetAdmin || !first.Start.Equal(at(21, 40)) {
		t.Errorf("first tail item = %q at %s, want %q at 21:40", first.Title, first.Start.Format("15:04"), constants.TitleResetAdmin)
	}
}

func TestTailItems(t *testing.T) {
	tests := []struct {
		energy models.EnergyLevel
		want   []string
	}{
		{models.EnergyLow, []string{constants.TitleResetAdmin, constants.TitleDinner, constants.TitleEveningRoutine}},
		{models.EnergyHigh, []string{constants.TitleResetAdmin, constants.TitlePrimaryFocus, constants.TitleDinner, constants.TitleEveningRoutine}},
	}
	for _, tt := range tests {
		t.Run(string(tt.energy), func(t *testing.T) {
			items := tailItems(tt.energy)
			if len(items) != len(tt.want) {
				t.Fatalf("got %d items, want %d", len(items), len(tt.want))
			}
			for i := range items {
				if items[i].title != tt.want[i] {
					t.Errorf("item %d = %q, want %q", i, items[i].title, tt.want[i])
				}
			}
		})
	}
}

func TestGenerateTaskLimitByEnergy(t *testing.T) {
	tests := []struct {
		energy models.EnergyLevel
		want   int
	}{
		{models.EnergyLow, 1},
		{models.EnergyMedium, 2},
		{models.EnergyHigh, 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.energy), func(t *testing.T) {
			b, store := newTestBuilder(t)
			ctx := context.Background()
			for _, id := range []string{"t1", "t2", "t3", "t4"} {
				_ = store.AddTask(ctx, models.Task{ID: id, UserID: "u1", Title: "Task " + id, EstimatedDurationMin: 25})
			}

			plan, err := b.Generate(ctx, input(at(6, 0), tt.energy))
			if err != nil {
				t.Fatalf("Generate() failed: %v", err)
			}
			n := 0
			for _, blk := range plan.Blocks {
				if blk.ActivityType == models.ActivityTask {
					n++
				}
			}
			if n != tt.want {
				t.Errorf("scheduled %d tasks, want %d", n, tt.want)
			}
			if _, ok := findBlock(plan, constants.TitlePrimaryFocus); ok {
				t.Error("focus block scheduled alongside tasks")
			}
		})
	}
}

type failingSource struct{}

func (failingSource) Commitments(context.Context, string, time.Time, time.Time) ([]models.Commitment, error) {
	return nil, errors.New("calendar unavailable")
}

func (failingSource) PendingTasks(context.Context, string) ([]models.Task, error) {
	return nil, errors.New("task service unavailable")
}

func (failingSource) ActiveRoutines(context.Context, string) ([]models.Routine, error) {
	return nil, errors.New("routine service unavailable")
}

func TestGenerateCommitmentFailureAborts(t *testing.T) {
	b, store := newTestBuilder(t, WithCommitmentSource(failingSource{}))

	_, err := b.Generate(context.Background(), input(at(6, 0), models.EnergyMedium))
	if err == nil || !strings.Contains(err.Error(), "calendar unavailable") {
		t.Fatalf("Generate() error = %v, want the commitment source failure", err)
	}
	if _, err := store.GetPlanByDate(context.Background(), "u1", "2026-03-02"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("plan stored after failed generation: %v", err)
	}
}

func TestGenerateTaskFailureUsesFocusBlock(t *testing.T) {
	b, store := newTestBuilder(t, WithTaskSource(failingSource{}))
	_ = store.AddTask(context.Background(), models.Task{ID: "t1", UserID: "u1", Title: "Essay", EstimatedDurationMin: 30})

	plan, err := b.Generate(context.Background(), input(at(6, 0), models.EnergyMedium))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if _, ok := findBlock(plan, "Essay"); ok {
		t.Error("task scheduled although the task source failed")
	}
	if _, ok := findBlock(plan, constants.TitlePrimaryFocus); !ok {
		t.Error("no focus block after task source failure")
	}
}

func TestGenerateRoutineFallbacks(t *testing.T) {
	b, _ := newTestBuilder(t, WithRoutineSource(failingSource{}))

	plan, err := b.Generate(context.Background(), input(at(6, 0), models.EnergyMedium))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	morning, ok := findBlock(plan, constants.TitleMorningRoutine)
	if !ok || morning.DurationMin() != 30 {
		t.Errorf("morning routine = %+v", morning)
	}
	evening, ok := findBlock(plan, constants.TitleEveningRoutine)
	if !ok || evening.DurationMin() != 20 {
		t.Errorf("evening routine = %+v", evening)
	}
	if meta, ok := morning.Metadata.(models.RoutineMeta); !ok || !meta.Fallback {
		t.Errorf("morning metadata = %#v", morning.Metadata)
	}
}

func TestGenerateUsesStoredRoutine(t *testing.T) {
	b, store := newTestBuilder(t)
	_ = store.AddRoutine(context.Background(), models.Routine{ID: "r1", UserID: "u1", Name: "Yoga", Kind: models.RoutineMorning, EstimatedDurationMin: 40, Active: true})

	plan, err := b.Generate(context.Background(), input(at(6, 0), models.EnergyMedium))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	yoga, ok := findBlock(plan, "Yoga")
	if !ok || yoga.DurationMin() != 40 {
		t.Errorf("yoga block = %+v", yoga)
	}
}

func TestGenerateSkipsPastBlocks(t *testing.T) {
	b, store := newTestBuilder(t)
	addClass(t, store, "c1", at(9, 0), at(10, 0))

	plan, err := b.Generate(context.Background(), input(at(10, 2), models.EnergyHigh))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if !plan.PlanStart.Equal(at(10, 5)) {
		t.Errorf("plan start = %v, want 10:05", plan.PlanStart)
	}
	anchor, _ := findBlock(plan, "Calculus Lecture")
	if anchor.Status != models.BlockSkipped || anchor.SkipReason != constants.SkipBeforePlanStart {
		t.Errorf("anchor = %s (%q)", anchor.Status, anchor.SkipReason)
	}
	for _, blk := range plan.Blocks {
		if blk.IsPending() && blk.End.Before(plan.PlanStart) {
			t.Errorf("pending block %q ends before plan start", blk.Title)
		}
	}
}

func TestGenerateOverlappingAnchors(t *testing.T) {
	b, store := newTestBuilder(t)
	addClass(t, store, "c1", at(12, 0), at(13, 0))
	addClass(t, store, "c2", at(12, 30), at(13, 30))

	plan, err := b.Generate(context.Background(), input(at(6, 0), models.EnergyMedium))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	assertValid(t, plan)
	if plan.Chains[1].Status != models.ChainConflicted {
		t.Errorf("second chain status = %s, want conflicted", plan.Chains[1].Status)
	}
	for _, blk := range plan.Blocks {
		if cid, _, ok := models.ChainLink(blk.Metadata); ok && cid == chains.ChainID("c2") {
			if blk.Status != models.BlockSkipped || blk.SkipReason != constants.SkipOverlapping {
				t.Errorf("block %q of conflicted chain = %s (%q)", blk.Title, blk.Status, blk.SkipReason)
			}
		}
	}
}

func TestGenerateRegenerationReplacesPlan(t *testing.T) {
	b, store := newTestBuilder(t)
	ctx := context.Background()

	first, err := b.Generate(ctx, input(at(6, 0), models.EnergyMedium))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	second, err := b.Generate(ctx, input(at(6, 0), models.EnergyHigh))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if second.ID != first.ID || second.Revision != first.Revision+1 {
		t.Errorf("regenerated plan %s rev %d, want %s rev %d", second.ID, second.Revision, first.ID, first.Revision+1)
	}
	stored, _ := store.GetPlan(ctx, first.ID)
	if stored.Energy != models.EnergyHigh {
		t.Errorf("stored energy = %s", stored.Energy)
	}
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *Input)
	}{
		{"bad date", func(in *Input) { in.Date = "03/02/2026" }},
		{"bad wake", func(in *Input) { in.WakeTime = "7am" }},
		{"wake after sleep", func(in *Input) { in.WakeTime, in.SleepTime = "23:30", "07:00" }},
		{"bad energy", func(in *Input) { in.Energy = "exhausted" }},
		{"bad timezone", func(in *Input) { in.Timezone = "Mars/Olympus" }},
		{"no user", func(in *Input) { in.UserID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, store := newTestBuilder(t)
			in := input(at(6, 0), models.EnergyMedium)
			tt.mutate(&in)
			_, err := b.Generate(context.Background(), in)
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Fatalf("Generate() error = %v, want validation error", err)
			}
			if _, err := store.GetPlanByDate(context.Background(), in.UserID, in.Date); !errors.Is(err, apperrors.ErrNotFound) {
				t.Errorf("plan written despite validation failure: %v", err)
			}
		})
	}
}

func TestGenerateRecordsMetrics(t *testing.T) {
	m := metrics.New()
	b, _ := newTestBuilder(t, WithMetrics(m))
	if _, err := b.Generate(context.Background(), input(at(22, 30), models.EnergyMedium)); err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if _, err := b.Generate(context.Background(), input(at(6, 0), models.EnergyMedium)); err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`daychain_planner_plans_generated_total{tail_plan="true"} 1`,
		`daychain_planner_plans_generated_total{tail_plan="false"} 1`,
		`daychain_planner_blocks_skipped_total{reason="Past meal window"} 3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestPlanStartRounding(t *testing.T) {
	b, _ := newTestBuilder(t)
	plan, err := b.Generate(context.Background(), input(at(8, 1), models.EnergyHigh))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if !plan.PlanStart.Equal(at(8, 5)) || !plan.WakeRamp.Start.Equal(at(8, 5)) {
		t.Errorf("plan start %v, ramp start %v; want 08:05", plan.PlanStart, plan.WakeRamp.Start)
	}
}
