package location

import (
	"slices"
	"time"

	"github.com/julianstephens/daychain/internal/models"
)

// Periods splits [dayStart, dayEnd) into at-home and away periods. A chain keeps the user
// away from the start of its outbound travel (or the anchor start) until the end of its
// return travel (or the anchor end). When the return trip was dropped because the user
// travels on directly, the away period runs until the next chain departs.
// Conflicted chains are ignored.
func Periods(chains []models.ExecutionChain, dayStart, dayEnd time.Time) []models.LocationPeriod {
	active := make([]models.ExecutionChain, 0, len(chains))
	for _, c := range chains {
		if c.Status != models.ChainConflicted {
			active = append(active, c)
		}
	}
	slices.SortStableFunc(active, func(a, b models.ExecutionChain) int {
		return departure(a).Compare(departure(b))
	})

	var away []models.LocationPeriod
	for i, c := range active {
		start := departure(c)
		end := c.Anchor.End
		if c.Envelope.TravelBack != nil {
			end = c.Envelope.TravelBack.End
		} else if c.TravelMin > 0 && i+1 < len(active) {
			end = departure(active[i+1])
		}

		start, end = clamp(start, dayStart, dayEnd), clamp(end, dayStart, dayEnd)
		if !end.After(start) {
			continue
		}
		if n := len(away); n > 0 && !start.After(away[n-1].End) {
			if end.After(away[n-1].End) {
				away[n-1].End = end
			}
			continue
		}
		away = append(away, models.LocationPeriod{Start: start, End: end, State: models.NotHome, ChainID: c.ChainID})
	}

	var out []models.LocationPeriod
	cursor := dayStart
	for _, p := range away {
		if p.Start.After(cursor) {
			out = append(out, models.LocationPeriod{Start: cursor, End: p.Start, State: models.AtHome})
		}
		out = append(out, p)
		cursor = p.End
	}
	if dayEnd.After(cursor) {
		out = append(out, models.LocationPeriod{Start: cursor, End: dayEnd, State: models.AtHome})
	}
	return out
}

// HomeIntervals extracts the at-home periods.
func HomeIntervals(periods []models.LocationPeriod) []models.HomeInterval {
	out := make([]models.HomeInterval, 0, len(periods))
	for _, p := range periods {
		if p.State == models.AtHome {
			out = append(out, models.HomeInterval{Start: p.Start, End: p.End})
		}
	}
	return out
}

// Contains reports whether [start, end) falls entirely inside one home interval.
func Contains(intervals []models.HomeInterval, start, end time.Time) bool {
	for _, h := range intervals {
		if h.Contains(start, end) {
			return true
		}
	}
	return false
}

func departure(c models.ExecutionChain) time.Time {
	if c.Envelope.TravelThere != nil {
		return c.Envelope.TravelThere.Start
	}
	return c.Anchor.Start
}

func clamp(t, lo, hi time.Time) time.Time {
	if t.Before(lo) {
		return lo
	}
	if t.After(hi) {
		return hi
	}
	return t
}
