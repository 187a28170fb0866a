package meals

import (
	"time"

	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/location"
	"github.com/julianstephens/daychain/internal/logger"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/utils"
)

const (
	// MinSpacing is the minimum gap between the end of one meal and the start of the next.
	MinSpacing = 180 * time.Minute

	searchStep   = 5 * time.Minute
	searchRadius = 30 * time.Minute
	anchorOffset = 30 * time.Minute
)

// clock is a wall-clock hour and minute.
type clock struct{ h, m int }

func (c clock) on(day time.Time) time.Time { return utils.At(day, c.h, c.m) }

type window struct {
	start, end clock
}

var mealRules = map[models.MealType]struct {
	durationMin int
	window      window
}{
	models.MealBreakfast: {15, window{clock{6, 30}, clock{11, 30}}},
	models.MealLunch:     {30, window{clock{11, 30}, clock{15, 30}}},
	models.MealDinner:    {45, window{clock{17, 0}, clock{21, 30}}},
}

// Order is the order meals are placed in.
var Order = []models.MealType{models.MealBreakfast, models.MealLunch, models.MealDinner}

// DurationMin returns the fixed duration for mealType.
func DurationMin(mealType models.MealType) int {
	return mealRules[mealType].durationMin
}

// Window returns the permitted start window for mealType on day.
func Window(day time.Time, mealType models.MealType) (time.Time, time.Time) {
	w := mealRules[mealType].window
	return w.start.on(day), w.end.on(day)
}

type Input struct {
	Day   time.Time // any instant on the plan date, in the plan's location
	Wake  time.Time
	Sleep time.Time
	// Now is the earliest a meal may start.
	Now     time.Time
	Anchors []models.Anchor
	// Busy blocks must not overlap a meal. Skipped blocks and transition buffers are
	// ignored; recovery blocks count as busy.
	Busy []models.TimeBlock
	// Home gates placement when non-nil.
	Home []models.HomeInterval
}

// Place runs breakfast, lunch and dinner placement in order. Every meal gets a result; a
// meal that cannot be placed is returned skipped with a reason.
func Place(in Input) []models.MealPlacement {
	out := make([]models.MealPlacement, 0, len(Order))
	var prevEnd *time.Time
	for _, mt := range Order {
		m := placeOne(in, mt, prevEnd)
		if m.Skipped {
			logger.Debug("Meal skipped", "meal", mt, "reason", m.SkipReason)
		} else {
			end := m.End()
			prevEnd = &end
		}
		out = append(out, m)
	}
	return out
}

// Target returns the desired start for mealType and whether it was derived from anchors.
func Target(day, wake time.Time, anchors []models.Anchor, mealType models.MealType) (time.Time, bool) {
	if len(anchors) == 0 {
		switch mealType {
		case models.MealBreakfast:
			if !wake.Before(utils.At(day, 9, 0)) {
				return wake.Add(45 * time.Minute), false
			}
			return utils.At(day, 9, 30), false
		case models.MealLunch:
			return utils.At(day, 13, 0), false
		default:
			return utils.At(day, 19, 0), false
		}
	}

	switch mealType {
	case models.MealBreakfast:
		return wake.Add(45 * time.Minute), true
	case models.MealLunch:
		noon := utils.At(day, 12, 0)
		var last *models.Anchor
		for i := range anchors {
			if anchors[i].Start.Before(noon) && (last == nil || anchors[i].Start.After(last.Start)) {
				last = &anchors[i]
			}
		}
		if last != nil {
			return last.End.Add(anchorOffset), true
		}
		return utils.At(day, 12, 30), false
	default:
		three := utils.At(day, 15, 0)
		var last *models.Anchor
		for i := range anchors {
			if anchors[i].End.After(three) && (last == nil || anchors[i].End.After(last.End)) {
				last = &anchors[i]
			}
		}
		if last != nil {
			return last.End.Add(anchorOffset), true
		}
		return utils.At(day, 19, 0), false
	}
}

func placeOne(in Input, mealType models.MealType, prevEnd *time.Time) models.MealPlacement {
	duration := time.Duration(DurationMin(mealType)) * time.Minute
	target, anchorAware := Target(in.Day, in.Wake, in.Anchors, mealType)
	m := models.MealPlacement{
		Type:        mealType,
		DurationMin: DurationMin(mealType),
		Desired:     target,
		AnchorAware: anchorAware,
	}
	skip := func(reason string) models.MealPlacement {
		m.Skipped = true
		m.SkipReason = reason
		return m
	}

	winStart, winEnd := Window(in.Day, mealType)
	if in.Now.After(winEnd) {
		return skip(constants.SkipPastMealWindow)
	}
	lo := utils.MaxTime(winStart, in.Now)
	clamped := utils.MinTime(utils.MaxTime(target, lo), winEnd)

	if prevEnd != nil && clamped.Before(prevEnd.Add(MinSpacing)) {
		return skip(constants.SkipSpacing)
	}

	valid := func(t time.Time) bool {
		if t.Before(lo) || t.After(winEnd) {
			return false
		}
		if prevEnd != nil && t.Before(prevEnd.Add(MinSpacing)) {
			return false
		}
		return !conflicts(in.Busy, t, t.Add(duration))
	}

	slot, ok := search(clamped, valid)
	if !ok {
		return skip(constants.SkipNoValidSlot)
	}
	if in.Home != nil && !location.Contains(in.Home, slot, slot.Add(duration)) {
		return skip(constants.SkipNoHomeInterval)
	}
	if slot.Add(duration).After(in.Sleep) {
		return skip(constants.SkipExceedsSleep)
	}

	m.Time = &slot
	return m
}

// search tries start, then forward, then backward in fixed steps up to the radius.
func search(start time.Time, valid func(time.Time) bool) (time.Time, bool) {
	if valid(start) {
		return start, true
	}
	for d := searchStep; d <= searchRadius; d += searchStep {
		if t := start.Add(d); valid(t) {
			return t, true
		}
	}
	for d := searchStep; d <= searchRadius; d += searchStep {
		if t := start.Add(-d); valid(t) {
			return t, true
		}
	}
	return time.Time{}, false
}

func conflicts(busy []models.TimeBlock, start, end time.Time) bool {
	for _, b := range busy {
		if b.Status == models.BlockSkipped || b.IsTransition() {
			continue
		}
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}
