package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/daychain/internal/models"
)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

func blk(id string, seq int, start, end time.Time, kind models.ActivityType) models.TimeBlock {
	return models.TimeBlock{ID: id, Title: id, SequenceOrder: seq, Start: start, End: end, ActivityType: kind, Status: models.BlockPending}
}

func cleanPlan() models.DailyPlan {
	breakfast := at(9, 30)
	lunch := at(13, 0)
	return models.DailyPlan{
		SleepTime: at(23, 0),
		Blocks: []models.TimeBlock{
			blk("a", 1, at(9, 0), at(9, 30), models.ActivityTask),
			blk("b", 2, at(9, 30), at(9, 45), models.ActivityMeal),
			blk("buf", 3, at(9, 45), at(9, 50), models.ActivityBuffer),
			blk("c", 4, at(9, 45), at(10, 30), models.ActivityFocus),
		},
		Chains: []models.ExecutionChain{{
			ChainID:            "chain-x",
			CompletionDeadline: at(12, 0),
			Status:             models.ChainPending,
			Steps: []models.ChainStepInstance{
				{Step: models.ChainStep{ID: "pack-bag"}, Start: at(11, 30), End: at(11, 40)},
				{Step: models.ChainStep{ID: "exit-gate"}, Start: at(11, 40), End: at(11, 45)},
				{Step: models.ChainStep{ID: "leave"}, Start: at(11, 45), End: at(12, 0)},
			},
		}},
		Meals: []models.MealPlacement{
			{Type: models.MealBreakfast, Time: &breakfast, DurationMin: 15},
			{Type: models.MealLunch, Time: &lunch, DurationMin: 30},
			{Type: models.MealDinner, Skipped: true, SkipReason: "No valid slot"},
		},
		WakeRamp: models.WakeRamp{DurationMin: 90, Components: models.WakeRampComponents{ToiletMin: 20, HygieneMin: 10, ShowerMin: 25, DressMin: 20, BufferMin: 15}},
	}
}

func TestValidatePlanClean(t *testing.T) {
	res := New().ValidatePlan(cleanPlan())
	if res.HasConflicts() {
		t.Errorf("unexpected conflicts:\n%s", res.FormatReport())
	}
	if res.FormatReport() != "No conflicts detected." {
		t.Errorf("FormatReport() = %q", res.FormatReport())
	}
}

func TestValidatePlanConflicts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *models.DailyPlan)
		want   ConflictType
	}{
		{
			name: "overlapping blocks",
			mutate: func(p *models.DailyPlan) {
				p.Blocks[2] = blk("d", 3, at(9, 40), at(10, 0), models.ActivityTask)
			},
			want: ConflictOverlappingBlocks,
		},
		{
			name:   "gap in sequence order",
			mutate: func(p *models.DailyPlan) { p.Blocks[3].SequenceOrder = 7 },
			want:   ConflictSequenceOrder,
		},
		{
			name:   "order disagrees with time",
			mutate: func(p *models.DailyPlan) { p.Blocks[0].SequenceOrder, p.Blocks[1].SequenceOrder = 2, 1 },
			want:   ConflictSequenceOrder,
		},
		{
			name:   "chain misses deadline",
			mutate: func(p *models.DailyPlan) { p.Chains[0].CompletionDeadline = at(12, 5) },
			want:   ConflictChainDeadline,
		},
		{
			name:   "chain steps not contiguous",
			mutate: func(p *models.DailyPlan) { p.Chains[0].Steps[0].End = at(11, 35) },
			want:   ConflictChainOrder,
		},
		{
			name: "meal outside window",
			mutate: func(p *models.DailyPlan) {
				late := at(11, 45)
				p.Meals[0].Time = &late
				later := at(15, 0)
				p.Meals[1].Time = &later
			},
			want: ConflictMealWindow,
		},
		{
			name: "meals too close",
			mutate: func(p *models.DailyPlan) {
				early := at(12, 0)
				p.Meals[1].Time = &early
			},
			want: ConflictMealSpacing,
		},
		{
			name:   "ramp total mismatch",
			mutate: func(p *models.DailyPlan) { p.WakeRamp.DurationMin = 80 },
			want:   ConflictWakeRamp,
		},
		{
			name: "flexible block past sleep",
			mutate: func(p *models.DailyPlan) {
				p.Blocks = append(p.Blocks, blk("late", 5, at(22, 50), at(23, 20), models.ActivityRoutine))
			},
			want: ConflictExceedsSleep,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := cleanPlan()
			tt.mutate(&p)
			res := New().ValidatePlan(p)
			if len(res.Of(tt.want)) == 0 {
				t.Errorf("expected a %s conflict, got:\n%s", tt.want, res.FormatReport())
			}
		})
	}
}

func TestSkippedAndBufferBlocksMayOverlap(t *testing.T) {
	p := cleanPlan()
	skipped := blk("s", 5, at(9, 0), at(10, 0), models.ActivityCommitment)
	skipped.Status = models.BlockSkipped
	p.Blocks = append(p.Blocks, skipped, blk("buf2", 6, at(10, 0), at(10, 5), models.ActivityBuffer))

	res := New().ValidatePlan(p)
	if len(res.Of(ConflictOverlappingBlocks)) != 0 {
		t.Errorf("unexpected overlaps:\n%s", res.FormatReport())
	}
}

func TestRecoveryBlockOverlapIsReported(t *testing.T) {
	p := cleanPlan()
	recovery := blk("rec", 5, at(10, 0), at(10, 20), models.ActivityBuffer)
	recovery.Metadata = models.RecoveryMeta{ChainID: "chain-x"}
	p.Blocks = append(p.Blocks, recovery)

	res := New().ValidatePlan(p)
	overlaps := res.Of(ConflictOverlappingBlocks)
	if len(overlaps) != 1 {
		t.Fatalf("got %d overlaps, want 1:\n%s", len(overlaps), res.FormatReport())
	}
	if ids := overlaps[0].BlockIDs; len(ids) != 2 || ids[0] != "c" || ids[1] != "rec" {
		t.Errorf("overlap blocks = %v, want [c rec]", ids)
	}
}

func TestConflictedChainsAreNotChecked(t *testing.T) {
	p := cleanPlan()
	p.Chains[0].Status = models.ChainConflicted
	p.Chains[0].CompletionDeadline = at(14, 0)
	res := New().ValidatePlan(p)
	if len(res.Of(ConflictChainDeadline)) != 0 {
		t.Errorf("conflicted chain reported:\n%s", res.FormatReport())
	}
}

func TestFormatReportListsConflicts(t *testing.T) {
	p := cleanPlan()
	p.WakeRamp.DurationMin = 1
	report := New().ValidatePlan(p)
	out := report.FormatReport()
	if !strings.HasPrefix(out, "Conflicts detected:\n") || !strings.Contains(out, "Wake ramp") {
		t.Errorf("FormatReport() = %q", out)
	}
}
