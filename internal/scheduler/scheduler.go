// Package scheduler fills the free time between fixed blocks with flexible activities.
package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/utils"
)

// Activity is a flexible item waiting for a free gap.
type Activity struct {
	Title        string
	DurationMin  int
	ActivityType models.ActivityType
	Metadata     models.Metadata
}

// Gap is a free interval [Start, End).
type Gap struct {
	Start time.Time
	End   time.Time
}

func (g Gap) Minutes() int {
	return int(g.End.Sub(g.Start).Minutes())
}

// Scheduler places activities first-fit, each followed by a transition buffer.
type Scheduler struct {
	TransitionMin int
	NewID         func() string
}

func New() *Scheduler {
	return &Scheduler{TransitionMin: constants.TransitionMin, NewID: uuid.NewString}
}

// Result holds the placed blocks in time order and the activities that found no gap.
type Result struct {
	Blocks   []models.TimeBlock
	Unplaced []Activity
}

// Fill walks activities in priority order and puts each in the earliest gap that holds
// the activity plus its transition. A gap is split around the placement so later
// activities can still use what is left on either side.
func (s *Scheduler) Fill(gaps []Gap, activities []Activity) Result {
	free := append([]Gap(nil), gaps...)
	var res Result

	for _, a := range activities {
		need := utils.Minutes(a.DurationMin + s.TransitionMin)
		placed := false
		for i, g := range free {
			if a.DurationMin <= 0 || g.End.Sub(g.Start) < need {
				continue
			}

			block := models.TimeBlock{
				ID:           s.NewID(),
				Title:        a.Title,
				Start:        g.Start,
				End:          g.Start.Add(utils.Minutes(a.DurationMin)),
				ActivityType: a.ActivityType,
				Status:       models.BlockPending,
				Metadata:     a.Metadata,
			}
			buffer := models.TimeBlock{
				ID:           s.NewID(),
				Title:        constants.TitleTransition,
				Start:        block.End,
				End:          block.End.Add(utils.Minutes(s.TransitionMin)),
				ActivityType: models.ActivityBuffer,
				Status:       models.BlockPending,
				Metadata:     models.BufferMeta{AfterBlockID: block.ID},
			}
			res.Blocks = append(res.Blocks, block, buffer)

			rest := Gap{Start: buffer.End, End: g.End}
			if rest.End.After(rest.Start) {
				free[i] = rest
			} else {
				free = append(free[:i], free[i+1:]...)
			}
			placed = true
			break
		}
		if !placed {
			res.Unplaced = append(res.Unplaced, a)
		}
	}

	models.SortBlocks(res.Blocks)
	return res
}

// FreeGaps returns the parts of [start, end) not covered by busy blocks. Skipped blocks
// do not occupy time.
func FreeGaps(start, end time.Time, busy []models.TimeBlock) []Gap {
	occupied := make([]models.TimeBlock, 0, len(busy))
	for _, b := range busy {
		if b.Status != models.BlockSkipped && b.End.After(b.Start) {
			occupied = append(occupied, b)
		}
	}
	models.SortBlocks(occupied)

	var gaps []Gap
	cursor := start
	for _, b := range occupied {
		if !b.End.After(cursor) {
			continue
		}
		if b.Start.After(cursor) {
			gaps = append(gaps, Gap{Start: cursor, End: utils.MinTime(b.Start, end)})
		}
		cursor = b.End
		if !cursor.Before(end) {
			break
		}
	}
	if cursor.Before(end) {
		gaps = append(gaps, Gap{Start: cursor, End: end})
	}

	out := gaps[:0]
	for _, g := range gaps {
		if g.End.After(g.Start) {
			out = append(out, g)
		}
	}
	return out
}
