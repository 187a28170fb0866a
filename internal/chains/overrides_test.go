package chains

import (
	"math"
	"testing"

	"github.com/julianstephens/daychain/internal/models"
)

func ptr[T any](v T) *T { return &v }

func stepIDs(steps []models.ChainStep) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCoerceDuration(t *testing.T) {
	tests := []struct {
		name string
		in   *float64
		want int
	}{
		{"nil keeps original", nil, 10},
		{"rounds down", ptr(12.4), 12},
		{"rounds up", ptr(12.5), 13},
		{"zero allowed", ptr(0.0), 0},
		{"negative keeps original", ptr(-5.0), 10},
		{"NaN keeps original", ptr(math.NaN()), 10},
		{"infinity keeps original", ptr(math.Inf(1)), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoerceDuration(tt.in, 10); got != tt.want {
				t.Errorf("CoerceDuration() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name      string
		overrides []models.StepOverride
		custom    []models.CustomStep
		wantIDs   []string
		check     func(t *testing.T, steps []models.ChainStep)
	}{
		{
			name:    "no changes",
			wantIDs: []string{"pack-bag", "review-notes", StepExitGate, StepLeave},
		},
		{
			name: "rename and re-duration",
			overrides: []models.StepOverride{
				{AnchorType: models.AnchorClass, StepID: "pack-bag", Name: ptr("Pack backpack"), DurationMin: ptr(7.6)},
			},
			wantIDs: []string{"pack-bag", "review-notes", StepExitGate, StepLeave},
			check: func(t *testing.T, steps []models.ChainStep) {
				if steps[0].Name != "Pack backpack" || steps[0].DurationMin != 8 {
					t.Errorf("got %q %dm, want Pack backpack 8m", steps[0].Name, steps[0].DurationMin)
				}
			},
		},
		{
			name: "disable step",
			overrides: []models.StepOverride{
				{AnchorType: models.AnchorClass, StepID: "review-notes", Disabled: true},
			},
			wantIDs: []string{"pack-bag", StepExitGate, StepLeave},
		},
		{
			name: "leave cannot be disabled",
			overrides: []models.StepOverride{
				{StepID: StepLeave, Disabled: true, DurationMin: ptr(40.0)},
			},
			wantIDs: []string{"pack-bag", "review-notes", StepExitGate, StepLeave},
			check: func(t *testing.T, steps []models.ChainStep) {
				if steps[3].DurationMin != 0 {
					t.Errorf("leave duration = %d, want template value", steps[3].DurationMin)
				}
			},
		},
		{
			name: "override for another type ignored",
			overrides: []models.StepOverride{
				{AnchorType: models.AnchorSeminar, StepID: "pack-bag", Disabled: true},
			},
			wantIDs: []string{"pack-bag", "review-notes", StepExitGate, StepLeave},
		},
		{
			name: "custom step defaults before exit gate",
			custom: []models.CustomStep{
				{ID: "water", AnchorType: models.AnchorClass, Name: "Fill bottle", DurationMin: 2},
			},
			wantIDs: []string{"pack-bag", "review-notes", "water", StepExitGate, StepLeave},
		},
		{
			name: "custom steps keep insertion order after a named step",
			custom: []models.CustomStep{
				{ID: "a", AnchorType: models.AnchorClass, AfterStepID: "pack-bag"},
				{ID: "b", AnchorType: models.AnchorClass, AfterStepID: "pack-bag"},
			},
			wantIDs: []string{"pack-bag", "a", "b", "review-notes", StepExitGate, StepLeave},
		},
		{
			name: "unknown after step falls back to exit gate",
			custom: []models.CustomStep{
				{ID: "x", AnchorType: models.AnchorClass, AfterStepID: "missing"},
			},
			wantIDs: []string{"pack-bag", "review-notes", "x", StepExitGate, StepLeave},
		},
		{
			name: "custom step for other type ignored",
			custom: []models.CustomStep{
				{ID: "x", AnchorType: models.AnchorWorkshop},
			},
			wantIDs: []string{"pack-bag", "review-notes", StepExitGate, StepLeave},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyOverrides(GetTemplate(models.AnchorClass), tt.overrides, tt.custom)
			if ids := stepIDs(got.Steps); !equalIDs(ids, tt.wantIDs) {
				t.Fatalf("steps = %v, want %v", ids, tt.wantIDs)
			}
			if tt.check != nil {
				tt.check(t, got.Steps)
			}
		})
	}
}

func TestInsertStepWithoutExitGate(t *testing.T) {
	steps := []models.ChainStep{{ID: "one"}, {ID: "two"}}
	got := InsertStep(steps, models.ChainStep{ID: "new"}, "", nil)
	if ids := stepIDs(got); !equalIDs(ids, []string{"one", "two", "new"}) {
		t.Errorf("steps = %v, want new at the end", ids)
	}
}
