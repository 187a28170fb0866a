package chains

import (
	"time"

	"github.com/julianstephens/daychain/internal/models"
)

// Step is the minimal input to a reflow.
type Step struct {
	ID          string
	DurationMin int
}

type TimedStep struct {
	Step
	Start time.Time
	End   time.Time
}

// ReflowBackward times steps so that the last one ends exactly at deadline and every
// earlier step ends where its successor begins. Order is preserved. Reflowing the output
// again with the same durations yields identical times.
func ReflowBackward(steps []Step, deadline time.Time) []TimedStep {
	out := make([]TimedStep, len(steps))
	end := deadline
	for i := len(steps) - 1; i >= 0; i-- {
		d := time.Duration(max(steps[i].DurationMin, 0)) * time.Minute
		out[i] = TimedStep{Step: steps[i], Start: end.Add(-d), End: end}
		end = out[i].Start
	}
	return out
}

// Untimed strips times from a reflowed list.
func Untimed(timed []TimedStep) []Step {
	out := make([]Step, len(timed))
	for i, t := range timed {
		out[i] = t.Step
	}
	return out
}

// ReflowChainSteps reflows template steps from deadline into pending instances.
func ReflowChainSteps(steps []models.ChainStep, deadline time.Time) []models.ChainStepInstance {
	in := make([]Step, len(steps))
	for i, s := range steps {
		in[i] = Step{ID: s.ID, DurationMin: s.DurationMin}
	}
	timed := ReflowBackward(in, deadline)

	out := make([]models.ChainStepInstance, len(steps))
	for i, s := range steps {
		out[i] = models.ChainStepInstance{
			Step:   s,
			Start:  timed[i].Start,
			End:    timed[i].End,
			Status: models.StepPending,
			Role:   roleOf(s),
		}
	}
	return out
}

func roleOf(s models.ChainStep) models.StepRole {
	switch s.ID {
	case StepExitGate:
		return models.RoleExitGate
	case StepLeave:
		return models.RoleTravel
	}
	return models.RoleChainStep
}
