package chains

import (
	"math"
	"slices"

	"github.com/julianstephens/daychain/internal/models"
)

// ApplyOverrides returns a copy of tpl with the user's overrides and custom steps applied.
// Overrides and custom steps for other anchor types are ignored; an empty anchor type
// on an override matches every template.
//
// The leave step cannot be disabled or re-timed since its duration is the travel time.
func ApplyOverrides(tpl models.ChainTemplate, overrides []models.StepOverride, custom []models.CustomStep) models.ChainTemplate {
	byStep := make(map[string]models.StepOverride)
	for _, o := range overrides {
		if o.AnchorType != "" && o.AnchorType != tpl.AnchorType {
			continue
		}
		byStep[o.StepID] = o
	}

	steps := make([]models.ChainStep, 0, len(tpl.Steps)+len(custom))
	for _, s := range copySteps(tpl.Steps) {
		o, ok := byStep[s.ID]
		if !ok {
			steps = append(steps, s)
			continue
		}
		if o.Disabled && s.ID != StepLeave {
			continue
		}
		if o.Name != nil && *o.Name != "" {
			s.Name = *o.Name
		}
		if s.ID != StepLeave {
			s.DurationMin = CoerceDuration(o.DurationMin, s.DurationMin)
		}
		steps = append(steps, s)
	}

	// lastAfter tracks the most recent custom step inserted after a given target so that
	// several custom steps aimed at the same step keep their insertion order.
	lastAfter := make(map[string]string)
	for _, c := range custom {
		if c.AnchorType != tpl.AnchorType || c.ID == "" {
			continue
		}
		step := models.ChainStep{
			ID:          c.ID,
			Name:        c.Name,
			DurationMin: max(c.DurationMin, 0),
			IsRequired:  c.IsRequired,
			Custom:      true,
		}
		steps = InsertStep(steps, step, c.AfterStepID, lastAfter)
	}

	return models.ChainTemplate{AnchorType: tpl.AnchorType, Steps: steps}
}

// InsertStep places step after the step with id afterID. When afterID is empty or not
// present the step goes immediately before the exit gate, or at the end when there is no
// exit gate. lastAfter may be nil.
func InsertStep(steps []models.ChainStep, step models.ChainStep, afterID string, lastAfter map[string]string) []models.ChainStep {
	pos := -1
	if afterID != "" && afterID != StepLeave {
		anchor := afterID
		if prev, ok := lastAfter[afterID]; ok {
			anchor = prev
		}
		if i := indexOf(steps, anchor); i >= 0 {
			pos = i + 1
			if lastAfter != nil {
				lastAfter[afterID] = step.ID
			}
		}
	}
	if pos < 0 {
		pos = indexOf(steps, StepExitGate)
		if pos < 0 {
			pos = len(steps)
		}
	}
	return slices.Insert(steps, pos, step)
}

// CoerceDuration turns a requested duration into a non-negative whole number of minutes.
// Nil, negative and non-finite values keep the original.
func CoerceDuration(v *float64, original int) int {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return original
	}
	return int(math.Round(*v))
}

func indexOf(steps []models.ChainStep, id string) int {
	return slices.IndexFunc(steps, func(s models.ChainStep) bool { return s.ID == id })
}
