package sources

import (
	"context"
	"strings"

	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/utils"
)

// Travel methods reported on exit times.
const (
	MethodNone    = "none"
	MethodDefault = "default"
)

// FixedTravelCalculator assumes the same travel time to every other place.
type FixedTravelCalculator struct {
	DefaultMin int
	// Home is the location treated as home. "home" always is.
	Home string
}

func NewFixedTravelCalculator(defaultMin int, home string) *FixedTravelCalculator {
	if defaultMin <= 0 {
		defaultMin = constants.DefaultTravelMin
	}
	return &FixedTravelCalculator{DefaultMin: defaultMin, Home: home}
}

// TravelMin returns the travel time from current to loc.
func (c *FixedTravelCalculator) TravelMin(loc, current string) int {
	loc = normalize(loc)
	switch loc {
	case "", "home", "online":
		return 0
	}
	if loc == normalize(current) || loc == normalize(c.Home) {
		return 0
	}
	return c.DefaultMin
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Calculate never fails. PreparationMin is left zero; the builder fills it in once the
// chain for each commitment is known.
func (c *FixedTravelCalculator) Calculate(_ context.Context, commitments []models.Commitment, currentLocation string) ([]models.ExitTime, error) {
	out := make([]models.ExitTime, 0, len(commitments))
	for _, cm := range commitments {
		travel := c.TravelMin(cm.Location, currentLocation)
		method := MethodDefault
		if travel == 0 {
			method = MethodNone
		}
		out = append(out, models.ExitTime{
			CommitmentID:      cm.ID,
			ExitTime:          cm.Start.Add(-utils.Minutes(travel)),
			TravelDurationMin: travel,
			TravelMethod:      method,
		})
	}
	return out, nil
}

var _ ExitTimeCalculator = (*FixedTravelCalculator)(nil)
