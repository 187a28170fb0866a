package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/daychain/internal/chains"
	"github.com/julianstephens/daychain/internal/meals"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictOverlappingBlocks ConflictType = "overlapping_blocks"
	ConflictSequenceOrder     ConflictType = "sequence_order"
	ConflictChainDeadline     ConflictType = "chain_deadline"
	ConflictChainOrder        ConflictType = "chain_order"
	ConflictMealWindow        ConflictType = "meal_window"
	ConflictMealSpacing       ConflictType = "meal_spacing"
	ConflictWakeRamp          ConflictType = "wake_ramp"
	ConflictExceedsSleep      ConflictType = "exceeds_sleep"
)

// Conflict represents a detected conflict in a plan
type Conflict struct {
	Type        ConflictType
	Description string
	Items       []string // Block titles or chain ids involved
	TimeRange   string   // Human-readable time range (if applicable)
	BlockIDs    []string
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// Of returns the conflicts of one type.
func (vr *ValidationResult) Of(t ConflictType) []Conflict {
	var out []Conflict
	for _, c := range vr.Conflicts {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var sb strings.Builder
	sb.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&sb, "- %s\n", conflict.Description)
	}
	return sb.String()
}

// Validator checks stored or freshly generated plans.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidatePlan runs every plan check. Skipped blocks do not occupy time, and buffers
// may overlap other blocks.
func (v *Validator) ValidatePlan(plan models.DailyPlan) ValidationResult {
	var res ValidationResult
	res.Conflicts = append(res.Conflicts, v.checkSequence(plan.Blocks)...)
	res.Conflicts = append(res.Conflicts, v.checkOverlaps(plan.Blocks)...)
	res.Conflicts = append(res.Conflicts, v.checkSleep(plan)...)
	for _, c := range plan.Chains {
		res.Conflicts = append(res.Conflicts, v.checkChain(c)...)
	}
	res.Conflicts = append(res.Conflicts, v.checkMeals(plan)...)
	res.Conflicts = append(res.Conflicts, v.checkWakeRamp(plan.WakeRamp)...)
	return res
}

func timeRange(b models.TimeBlock) string {
	return fmt.Sprintf("%s-%s", utils.FormatClock(b.Start), utils.FormatClock(b.End))
}

// checkSequence requires a dense 1-based order that agrees with start times.
func (v *Validator) checkSequence(blocks []models.TimeBlock) []Conflict {
	sorted := append([]models.TimeBlock(nil), blocks...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SequenceOrder < sorted[j].SequenceOrder })

	var out []Conflict
	for i, b := range sorted {
		if b.SequenceOrder != i+1 {
			out = append(out, Conflict{
				Type:        ConflictSequenceOrder,
				Description: fmt.Sprintf("Block %q has sequence order %d, expected %d", b.Title, b.SequenceOrder, i+1),
				Items:       []string{b.Title},
				BlockIDs:    []string{b.ID},
			})
		}
		if i > 0 && b.Start.Before(sorted[i-1].Start) {
			prev := sorted[i-1]
			out = append(out, Conflict{
				Type:        ConflictSequenceOrder,
				Description: fmt.Sprintf("Block %q starts before %q but is sequenced after it", b.Title, prev.Title),
				Items:       []string{prev.Title, b.Title},
				TimeRange:   timeRange(b),
				BlockIDs:    []string{prev.ID, b.ID},
			})
		}
	}
	return out
}

func (v *Validator) checkOverlaps(blocks []models.TimeBlock) []Conflict {
	var live []models.TimeBlock
	for _, b := range blocks {
		if b.Status != models.BlockSkipped && !b.IsTransition() && b.End.After(b.Start) {
			live = append(live, b)
		}
	}
	models.SortBlocks(live)

	var out []Conflict
	for i := 0; i < len(live); i++ {
		for j := i + 1; j < len(live) && live[j].Start.Before(live[i].End); j++ {
			a, b := live[i], live[j]
			out = append(out, Conflict{
				Type:        ConflictOverlappingBlocks,
				Description: fmt.Sprintf("%q (%s) overlaps %q (%s)", a.Title, timeRange(a), b.Title, timeRange(b)),
				Items:       []string{a.Title, b.Title},
				TimeRange:   fmt.Sprintf("%s-%s", utils.FormatClock(b.Start), utils.FormatClock(utils.MinTime(a.End, b.End))),
				BlockIDs:    []string{a.ID, b.ID},
			})
		}
	}
	return out
}

// checkSleep flags flexible blocks that run past sleep. Anchors are external and may.
func (v *Validator) checkSleep(plan models.DailyPlan) []Conflict {
	if plan.SleepTime.IsZero() {
		return nil
	}
	var out []Conflict
	for _, b := range plan.Blocks {
		if b.IsFixed || b.Status == models.BlockSkipped || !b.End.After(plan.SleepTime) {
			continue
		}
		out = append(out, Conflict{
			Type:        ConflictExceedsSleep,
			Description: fmt.Sprintf("%q ends after sleep time %s", b.Title, utils.FormatClock(plan.SleepTime)),
			Items:       []string{b.Title},
			TimeRange:   timeRange(b),
			BlockIDs:    []string{b.ID},
		})
	}
	return out
}

// checkChain requires contiguous, ordered steps ending exactly at the deadline.
func (v *Validator) checkChain(c models.ExecutionChain) []Conflict {
	if c.Status == models.ChainConflicted || len(c.Steps) == 0 {
		return nil
	}
	var out []Conflict
	last := c.Steps[len(c.Steps)-1]
	if !last.End.Equal(c.CompletionDeadline) {
		out = append(out, Conflict{
			Type: ConflictChainDeadline,
			Description: fmt.Sprintf("Chain %s ends at %s, deadline is %s",
				c.ChainID, utils.FormatClock(last.End), utils.FormatClock(c.CompletionDeadline)),
			Items: []string{c.ChainID},
		})
	}
	for i := 1; i < len(c.Steps); i++ {
		prev, cur := c.Steps[i-1], c.Steps[i]
		if cur.Start.Before(prev.Start) || !prev.End.Equal(cur.Start) {
			out = append(out, Conflict{
				Type:        ConflictChainOrder,
				Description: fmt.Sprintf("Chain %s step %q does not follow %q", c.ChainID, cur.Step.ID, prev.Step.ID),
				Items:       []string{c.ChainID, prev.Step.ID, cur.Step.ID},
			})
		}
	}
	if i := c.StepIndex(chains.StepLeave); i >= 0 && i != len(c.Steps)-1 {
		out = append(out, Conflict{
			Type:        ConflictChainOrder,
			Description: fmt.Sprintf("Chain %s does not end with the leave step", c.ChainID),
			Items:       []string{c.ChainID},
		})
	}
	return out
}

func (v *Validator) checkMeals(plan models.DailyPlan) []Conflict {
	var out []Conflict
	var prev *models.MealPlacement
	for i := range plan.Meals {
		m := plan.Meals[i]
		if m.Skipped || m.Time == nil {
			continue
		}
		start, end := meals.Window(*m.Time, m.Type)
		if m.Time.Before(start) || m.Time.After(end) {
			out = append(out, Conflict{
				Type: ConflictMealWindow,
				Description: fmt.Sprintf("%s at %s is outside %s-%s",
					m.Type, utils.FormatClock(*m.Time), utils.FormatClock(start), utils.FormatClock(end)),
				Items: []string{string(m.Type)},
			})
		}
		if prev != nil && m.Time.Sub(prev.End()) < meals.MinSpacing {
			out = append(out, Conflict{
				Type:        ConflictMealSpacing,
				Description: fmt.Sprintf("%s starts less than 3 hours after %s", m.Type, prev.Type),
				Items:       []string{string(prev.Type), string(m.Type)},
			})
		}
		prev = &plan.Meals[i]
	}
	return out
}

func (v *Validator) checkWakeRamp(r models.WakeRamp) []Conflict {
	switch {
	case r.DurationMin != r.Components.Total():
		return []Conflict{{
			Type:        ConflictWakeRamp,
			Description: fmt.Sprintf("Wake ramp lasts %dm but its components add up to %dm", r.DurationMin, r.Components.Total()),
		}}
	case r.Skipped && r.DurationMin != 0:
		return []Conflict{{
			Type:        ConflictWakeRamp,
			Description: "Skipped wake ramp has a duration",
		}}
	}
	return nil
}
