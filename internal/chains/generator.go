package chains

import (
	"slices"
	"strings"
	"time"

	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/logger"
	"github.com/julianstephens/daychain/internal/models"
)

// Ids of envelope phases that are not template steps.
const (
	PhasePrep       = "prep"
	PhaseTravelBack = "travel-back"
	PhaseRecovery   = "recovery"
)

// Request is everything the generator needs for one day.
type Request struct {
	Anchors     []models.Anchor
	TravelMin   map[string]int // by anchor id
	Overrides   []models.StepOverride
	CustomSteps []models.CustomStep
	// Floor is the earliest time the first chain may start. Later chains are bounded by
	// the end of the previous anchor.
	Floor             time.Time
	MedicationPending bool
}

type Generator struct {
	Templates func(models.AnchorType) models.ChainTemplate
}

func NewGenerator() *Generator {
	return &Generator{Templates: GetTemplate}
}

// ChainID is deterministic so that a regenerated plan keeps its chain addresses.
func ChainID(anchorID string) string {
	return "chain-" + anchorID
}

// Generate builds one chain per anchor, in start order with ties broken by id.
func (g *Generator) Generate(req Request) []models.ExecutionChain {
	anchors := slices.Clone(req.Anchors)
	slices.SortStableFunc(anchors, func(a, b models.Anchor) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	templates := g.Templates
	if templates == nil {
		templates = GetTemplate
	}

	out := make([]models.ExecutionChain, 0, len(anchors))
	prev := -1
	medsPlaced := false
	for _, a := range anchors {
		travel := max(req.TravelMin[a.ID], 0)
		steps := ApplyOverrides(templates(a.Type), req.Overrides, req.CustomSteps).Steps
		if i := indexOf(steps, StepLeave); i >= 0 {
			steps[i].DurationMin = travel
		}

		conflicted := prev >= 0 && out[prev].Anchor.End.After(a.Start)
		if req.MedicationPending && !medsPlaced && !conflicted && !a.Start.Before(req.Floor) {
			steps = InsertStep(steps, models.ChainStep{
				ID:          StepTakeMeds,
				Name:        "Take medication",
				DurationMin: constants.MedicationStepMin,
				IsRequired:  true,
			}, "", nil)
			medsPlaced = true
		}

		chain := build(a, steps, travel)
		if conflicted {
			markConflicted(&chain)
			logger.Debug("Anchor overlaps an earlier commitment", "chain", chain.ChainID, "anchor", a.Title)
			out = append(out, chain)
			continue
		}

		floor := req.Floor
		if prev >= 0 {
			floor = out[prev].Anchor.End
			trimEnvelopeTail(&out[prev], chain.FirstStart())
		}
		if chain.FirstStart().Before(floor) {
			fitAfter(&chain, floor, prev >= 0)
		}

		out = append(out, chain)
		prev = len(out) - 1
	}
	return out
}

func build(a models.Anchor, steps []models.ChainStep, travel int) models.ExecutionChain {
	chain := models.ExecutionChain{
		ChainID:            ChainID(a.ID),
		Anchor:             a,
		CompletionDeadline: a.Start,
		Steps:              ReflowChainSteps(steps, a.Start),
		Status:             models.ChainPending,
		TravelMin:          travel,
	}

	chain.Envelope.Anchor = models.ChainStepInstance{
		Step:   models.ChainStep{ID: a.ID, Name: a.Title, DurationMin: int(a.End.Sub(a.Start).Minutes()), IsRequired: true},
		Start:  a.Start,
		End:    a.End,
		Status: models.StepPending,
		Role:   models.RoleAnchor,
	}

	end := a.End
	if travel > 0 {
		back := phase(PhaseTravelBack, "Travel back", end, travel, models.RoleTravel)
		chain.Envelope.TravelBack = &back
		end = back.End
	}
	if rec := RecoveryMin(a.Type); rec > 0 {
		r := phase(PhaseRecovery, "Recovery", end, rec, models.RoleRecovery)
		chain.Envelope.Recovery = &r
	}

	RefreshEnvelope(&chain)
	return chain
}

func phase(id, name string, start time.Time, minutes int, role models.StepRole) models.ChainStepInstance {
	return models.ChainStepInstance{
		Step:   models.ChainStep{ID: id, Name: name, DurationMin: minutes, IsRequired: true},
		Start:  start,
		End:    start.Add(time.Duration(minutes) * time.Minute),
		Status: models.StepPending,
		Role:   role,
	}
}

// RefreshEnvelope recomputes the prep and travel-there phases from the chain's steps.
// Travel back and recovery are left alone.
func RefreshEnvelope(c *models.ExecutionChain) {
	c.Envelope.Prep = nil
	c.Envelope.TravelThere = nil

	var prepStart, prepEnd time.Time
	prepMin := 0
	for _, s := range c.Steps {
		if s.Step.ID == StepLeave {
			if s.Step.DurationMin > 0 {
				leg := s
				c.Envelope.TravelThere = &leg
			}
			continue
		}
		if prepStart.IsZero() {
			prepStart = s.Start
		}
		prepEnd = s.End
		prepMin += s.Step.DurationMin
	}
	if !prepStart.IsZero() {
		c.Envelope.Prep = &models.ChainStepInstance{
			Step:   models.ChainStep{ID: PhasePrep, Name: "Preparation", DurationMin: prepMin, IsRequired: true},
			Start:  prepStart,
			End:    prepEnd,
			Status: models.StepPending,
			Role:   models.RoleChainStep,
		}
	}
}

// trimEnvelopeTail drops the recovery and then the return trip of prev while they run
// into next. The user travels on directly.
func trimEnvelopeTail(prev *models.ExecutionChain, next time.Time) {
	if prev.Envelope.Recovery != nil && prev.Envelope.End().After(next) {
		prev.Envelope.Recovery = nil
		prev.DroppedSteps = append(prev.DroppedSteps, PhaseRecovery)
	}
	if prev.Envelope.TravelBack != nil && prev.Envelope.End().After(next) {
		prev.Envelope.TravelBack = nil
		prev.DroppedSteps = append(prev.DroppedSteps, PhaseTravelBack)
	}
}

// fitAfter shortens a chain that would start before floor. Skippable steps go first,
// then other optional steps, earliest first. Required steps that still start before the
// floor are skipped when they collide with a previous anchor and otherwise left in place.
func fitAfter(c *models.ExecutionChain, floor time.Time, afterAnchor bool) {
	c.Status = models.ChainLate
	drop := func(match func(models.ChainStep) bool) {
		for c.FirstStart().Before(floor) {
			i := slices.IndexFunc(c.Steps, func(s models.ChainStepInstance) bool { return match(s.Step) })
			if i < 0 {
				return
			}
			logger.Debug("Dropping chain step", "chain", c.ChainID, "step", c.Steps[i].Step.ID, "reason", constants.SkipWhenLate)
			c.DroppedSteps = append(c.DroppedSteps, c.Steps[i].Step.ID)
			steps := make([]models.ChainStep, 0, len(c.Steps)-1)
			for j, s := range c.Steps {
				if j != i {
					steps = append(steps, s.Step)
				}
			}
			c.Steps = ReflowChainSteps(steps, c.CompletionDeadline)
		}
	}
	drop(func(s models.ChainStep) bool { return s.CanSkipWhenLate && !s.IsRequired })
	drop(func(s models.ChainStep) bool { return !s.IsRequired })

	if afterAnchor {
		for i := range c.Steps {
			if c.Steps[i].Start.Before(floor) {
				c.Steps[i].Status = models.StepSkipped
				c.Steps[i].SkipReason = constants.SkipChainConflict
			}
		}
	}
	RefreshEnvelope(c)
}

func markConflicted(c *models.ExecutionChain) {
	c.Status = models.ChainConflicted
	for i := range c.Steps {
		c.Steps[i].Status = models.StepSkipped
		c.Steps[i].SkipReason = constants.SkipOverlapping
	}
	c.Envelope.Anchor.Status = models.StepSkipped
	c.Envelope.Anchor.SkipReason = constants.SkipOverlapping
	c.Envelope.TravelBack = nil
	c.Envelope.Recovery = nil
	RefreshEnvelope(c)
}
