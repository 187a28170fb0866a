package planner

import (
	"time"

	"github.com/julianstephens/daychain/internal/chains"
	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/utils"
)

func (b *Builder) block(title string, start, end time.Time, t models.ActivityType, fixed bool, meta models.Metadata) models.TimeBlock {
	return models.TimeBlock{
		ID:           b.newID(),
		Title:        title,
		Start:        start,
		End:          end,
		ActivityType: t,
		IsFixed:      fixed,
		Status:       models.BlockPending,
		Metadata:     meta,
	}
}

func (b *Builder) rampBlock(r models.WakeRamp) models.TimeBlock {
	return b.block(constants.TitleWakeRamp, r.Start, r.End, models.ActivityRoutine, true,
		models.RoutineMeta{Kind: models.RoutineWake})
}

var mealTitles = map[models.MealType]string{
	models.MealBreakfast: "Breakfast",
	models.MealLunch:     "Lunch",
	models.MealDinner:    constants.TitleDinner,
}

func (b *Builder) mealBlock(m models.MealPlacement) models.TimeBlock {
	return b.block(mealTitles[m.Type], *m.Time, m.End(), models.ActivityMeal, false,
		models.MealMeta{MealType: m.Type, Desired: m.Desired, AnchorAware: m.AnchorAware})
}

// chainBlocks turns a chain into its step blocks followed by the anchor, return travel
// and recovery. Zero-length steps get no block.
func (b *Builder) chainBlocks(c models.ExecutionChain) []models.TimeBlock {
	out := b.stepBlocks(c, nil)

	a := c.Envelope.Anchor
	anchor := b.block(c.Anchor.Title, a.Start, a.End, models.ActivityCommitment, true, models.AnchorMeta{
		ChainID:    c.ChainID,
		AnchorID:   c.Anchor.ID,
		AnchorType: c.Anchor.Type,
		Location:   c.Anchor.Location,
	})
	applyStepStatus(&anchor, a)
	out = append(out, anchor)

	if tb := c.Envelope.TravelBack; tb != nil {
		blk := b.block(tb.Step.Name, tb.Start, tb.End, models.ActivityTravel, true,
			models.TravelMeta{ChainID: c.ChainID, Direction: models.TravelBack})
		applyStepStatus(&blk, *tb)
		out = append(out, blk)
	}
	if rec := c.Envelope.Recovery; rec != nil {
		blk := b.block(rec.Step.Name, rec.Start, rec.End, models.ActivityBuffer, true,
			models.RecoveryMeta{ChainID: c.ChainID})
		applyStepStatus(&blk, *rec)
		out = append(out, blk)
	}
	return out
}

// stepBlocks builds blocks for the chain's steps. ids maps step ids to existing block
// ids so an edited chain keeps its block addresses.
func (b *Builder) stepBlocks(c models.ExecutionChain, ids map[string]string) []models.TimeBlock {
	out := make([]models.TimeBlock, 0, len(c.Steps))
	for _, s := range c.Steps {
		if !s.End.After(s.Start) {
			continue
		}
		var (
			meta models.Metadata
			kind = models.ActivityChainStep
		)
		switch s.Step.ID {
		case chains.StepExitGate:
			meta = models.ExitGateMeta{ChainID: c.ChainID, StepID: s.Step.ID, Deadline: c.CompletionDeadline, GateTags: s.Step.GateTags}
		case chains.StepLeave:
			kind = models.ActivityTravel
			meta = models.TravelMeta{ChainID: c.ChainID, StepID: s.Step.ID, Direction: models.TravelThere}
		default:
			meta = models.ChainStepMeta{
				ChainID:         c.ChainID,
				StepID:          s.Step.ID,
				Deadline:        c.CompletionDeadline,
				Required:        s.Step.IsRequired,
				CanSkipWhenLate: s.Step.CanSkipWhenLate,
				Custom:          s.Step.Custom,
			}
		}
		blk := b.block(s.Step.Name, s.Start, s.End, kind, true, meta)
		if id, ok := ids[s.Step.ID]; ok {
			blk.ID = id
		}
		applyStepStatus(&blk, s)
		out = append(out, blk)
	}
	return out
}

func applyStepStatus(blk *models.TimeBlock, s models.ChainStepInstance) {
	switch s.Status {
	case models.StepSkipped:
		blk.Status = models.BlockSkipped
		blk.SkipReason = s.SkipReason
	case models.StepCompleted:
		blk.Status = models.BlockCompleted
	}
}

// eveningBlock places the evening routine after every other block and not before 18:00,
// unless sleep itself is earlier.
func (b *Builder) eveningBlock(ev scheduledRoutine, blocks []models.TimeBlock, fillStart, sleep time.Time) (models.TimeBlock, bool) {
	start := fillStart
	for _, blk := range blocks {
		if blk.Status != models.BlockSkipped && blk.End.After(start) {
			start = blk.End
		}
	}
	if floor, err := utils.ClockOn(sleep, constants.EveningRoutineFloor); err == nil && !sleep.Before(floor) {
		start = utils.MaxTime(start, floor)
	}

	end := start.Add(utils.Minutes(ev.durationMin))
	if end.After(sleep) {
		return models.TimeBlock{}, false
	}
	return b.block(ev.name, start, end, models.ActivityRoutine, false, ev.meta), true
}
