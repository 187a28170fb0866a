package wakeramp

import (
	"time"

	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/models"
)

// Fixed component durations in minutes.
const (
	ToiletMin  = 20
	HygieneMin = 10
	ShowerMin  = 25
	DressMin   = 20
)

// BufferMin returns the energy-dependent slack added to the ramp.
func BufferMin(energy models.EnergyLevel) int {
	switch energy {
	case models.EnergyLow:
		return 45
	case models.EnergyHigh:
		return 0
	default:
		return 15
	}
}

// ShouldSkip reports whether the user has been awake long enough not to need a ramp.
func ShouldSkip(planStart, wake time.Time) bool {
	return planStart.After(wake.Add(constants.WakeRampSkipAfter))
}

// Generate builds the ramp starting at planStart.
func Generate(planStart, wake time.Time, energy models.EnergyLevel) models.WakeRamp {
	if ShouldSkip(planStart, wake) {
		return Skipped(planStart, constants.SkipAlreadyAwake)
	}
	return withComponents(planStart, models.WakeRampComponents{
		ToiletMin:  ToiletMin,
		HygieneMin: HygieneMin,
		ShowerMin:  ShowerMin,
		DressMin:   DressMin,
		BufferMin:  BufferMin(energy),
	})
}

// Skipped returns a zero-length ramp at start.
func Skipped(start time.Time, reason string) models.WakeRamp {
	return models.WakeRamp{Start: start, End: start, Skipped: true, SkipReason: reason}
}

// FitBefore shrinks the buffer so the ramp ends no later than limit. The second result is
// false when the ramp still runs past limit with no buffer left.
func FitBefore(r models.WakeRamp, limit time.Time) (models.WakeRamp, bool) {
	if r.Skipped || !r.End.After(limit) {
		return r, true
	}
	over := int(r.End.Sub(limit).Minutes())
	if r.End.Sub(limit)%time.Minute != 0 {
		over++
	}
	c := r.Components
	c.BufferMin = max(c.BufferMin-over, 0)
	fitted := withComponents(r.Start, c)
	return fitted, !fitted.End.After(limit)
}

func withComponents(start time.Time, c models.WakeRampComponents) models.WakeRamp {
	total := c.Total()
	return models.WakeRamp{
		Start:       start,
		End:         start.Add(time.Duration(total) * time.Minute),
		DurationMin: total,
		Components:  c,
	}
}
