package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
)

func TestResolveDate(t *testing.T) {
	now := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name    string
		in      string
		loc     *time.Location
		want    string
		wantErr bool
	}{
		{"empty is today", "", time.UTC, "2026-03-02", false},
		{"today", "today", time.UTC, "2026-03-02", false},
		{"tomorrow", "Tomorrow", time.UTC, "2026-03-03", false},
		{"today in zone ahead of utc", "today", berlin, "2026-03-03", false},
		{"explicit date", "2026-04-01", time.UTC, "2026-04-01", false},
		{"bad date", "04/01/2026", time.UTC, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDate(tt.in, now, tt.loc)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrValidation) {
					t.Fatalf("ResolveDate(%q) error = %v, want validation error", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveDate(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ResolveDate(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func testPlan() models.DailyPlan {
	at := func(h, m int) time.Time { return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC) }
	return models.DailyPlan{
		ID:       "p1",
		Date:     "2026-03-02",
		Revision: 3,
		Energy:   models.EnergyMedium,
		Chains:   []models.ExecutionChain{{ChainID: "chain-c1"}},
		Blocks: []models.TimeBlock{
			{ID: "b1", Title: "Wake Ramp", Start: at(7, 0), End: at(8, 30), SequenceOrder: 1,
				Status: models.BlockCompleted, Metadata: models.RoutineMeta{Kind: models.RoutineWake}},
			{ID: "b2", Title: "Breakfast", Start: at(8, 30), End: at(9, 0), SequenceOrder: 2,
				Status: models.BlockSkipped, SkipReason: "Displaced by chain edit", Metadata: models.MealMeta{MealType: models.MealBreakfast}},
			{ID: "b3", Title: "Pack bag", Start: at(9, 10), End: at(9, 20), SequenceOrder: 3,
				Status: models.BlockPending, Metadata: models.ChainStepMeta{ChainID: "chain-c1", StepID: "pack-bag"}},
			{ID: "b4", Title: "Calculus Lecture", Start: at(10, 0), End: at(11, 0), SequenceOrder: 4, IsFixed: true,
				Status: models.BlockPending, Metadata: models.AnchorMeta{ChainID: "chain-c1", AnchorID: "c1"}},
			{ID: "b5", Title: "Primary Focus Block", Start: at(11, 30), End: at(12, 30), SequenceOrder: 5,
				Status: models.BlockPending, Metadata: models.TaskMeta{Synthetic: true}},
		},
	}
}

func TestResolveBlock(t *testing.T) {
	plan := testPlan()

	tests := []struct {
		name    string
		ref     string
		wantID  string
		wantErr error
	}{
		{"by sequence", "3", "b3", nil},
		{"by id", "b4", "b4", nil},
		{"missing sequence", "9", "", errors.ErrNotFound},
		{"unknown id", "gone", "", errors.ErrStaleReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ResolveBlock(plan, tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveBlock(%q) error = %v, want %v", tt.ref, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveBlock(%q) failed: %v", tt.ref, err)
			}
			if b.ID != tt.wantID {
				t.Errorf("ResolveBlock(%q) = %s, want %s", tt.ref, b.ID, tt.wantID)
			}
		})
	}
}

func TestResolveChain(t *testing.T) {
	plan := testPlan()

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr error
	}{
		{"chain id", "chain-c1", "chain-c1", nil},
		{"step block", "3", "chain-c1", nil},
		{"anchor block", "4", "chain-c1", nil},
		{"block outside chain", "5", "", errors.ErrValidation},
		{"unknown", "chain-zz", "", errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveChain(plan, tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveChain(%q) error = %v, want %v", tt.ref, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveChain(%q) failed: %v", tt.ref, err)
			}
			if got != tt.want {
				t.Errorf("ResolveChain(%q) = %s, want %s", tt.ref, got, tt.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock("2026-03-02", "09:45", time.UTC)
	if err != nil {
		t.Fatalf("ParseClock failed: %v", err)
	}
	if want := time.Date(2026, 3, 2, 9, 45, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("ParseClock = %v, want %v", got, want)
	}
	if _, err := ParseClock("2026-03-02", "9.45", time.UTC); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("ParseClock with bad time error = %v, want validation error", err)
	}
}

func TestRenderPlan(t *testing.T) {
	plan := testPlan()

	out := RenderPlan(plan, time.UTC, false)
	for _, want := range []string{
		"Plan for 2026-03-02 (revision 3, medium energy)",
		"07:00–08:30",
		"Wake Ramp",
		"[chain-c1/pack-bag]",
		"Calculus Lecture",
		"#5",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderPlan output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Breakfast") {
		t.Errorf("RenderPlan listed a skipped block without showSkipped:\n%s", out)
	}

	all := RenderPlan(plan, time.UTC, true)
	if !strings.Contains(all, "Breakfast") || !strings.Contains(all, "Displaced by chain edit") {
		t.Errorf("RenderPlan with showSkipped missing skipped block:\n%s", all)
	}

	plan.Status = models.PlanDegraded
	plan.Blocks = nil
	empty := RenderPlan(plan, time.UTC, false)
	if !strings.Contains(empty, "[degraded]") || !strings.Contains(empty, "Nothing scheduled") {
		t.Errorf("RenderPlan of empty degraded plan = %q", empty)
	}
}
