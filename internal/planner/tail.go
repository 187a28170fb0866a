package planner

import (
	"time"

	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/logger"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/utils"
)

type tailItem struct {
	title       string
	durationMin int
	kind        models.ActivityType
	meta        models.Metadata
}

// tailItems is the fixed late-day sequence. The focus block is left out at low energy.
func tailItems(energy models.EnergyLevel) []tailItem {
	items := []tailItem{
		{constants.TitleResetAdmin, constants.ResetAdminMin, models.ActivityAdmin, models.TaskMeta{Synthetic: true}},
	}
	if energy != models.EnergyLow {
		items = append(items, tailItem{constants.TitlePrimaryFocus, constants.FocusBlockMin, models.ActivityFocus, models.TaskMeta{Synthetic: true}})
	}
	return append(items,
		tailItem{constants.TitleDinner, constants.TailDinnerMin, models.ActivityMeal, models.MealMeta{MealType: models.MealDinner}},
		tailItem{constants.TitleEveningRoutine, constants.TailEveningMin, models.ActivityRoutine, models.RoutineMeta{Kind: models.RoutineEvening, Fallback: true}},
	)
}

// tailPlan appends the items that still fit before sleep, back to back from start, to
// the blocks already settled. Items start after any settled block still pending. Items
// that do not fit are left out and later ones are still tried.
func (b *Builder) tailPlan(blocks []models.TimeBlock, start, sleep time.Time, energy models.EnergyLevel) []models.TimeBlock {
	cursor := start
	for _, blk := range blocks {
		if blk.IsPending() && blk.End.After(cursor) {
			cursor = blk.End
		}
	}
	for _, it := range tailItems(energy) {
		end := cursor.Add(utils.Minutes(it.durationMin))
		if end.After(sleep) {
			logger.Debug("Tail item does not fit", "title", it.title, "reason", constants.SkipExceedsSleep)
			b.metrics.Skipped(constants.SkipExceedsSleep)
			continue
		}
		blocks = append(blocks, b.block(it.title, cursor, end, it.kind, false, it.meta))
		cursor = end
	}
	return blocks
}
