package models

import (
	"sort"
	"time"
)

type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

// ParseEnergy validates an energy level string.
func ParseEnergy(s string) (EnergyLevel, bool) {
	switch EnergyLevel(s) {
	case EnergyLow, EnergyMedium, EnergyHigh:
		return EnergyLevel(s), true
	}
	return "", false
}

type WakeRampComponents struct {
	ToiletMin  int `json:"toilet_min"`
	HygieneMin int `json:"hygiene_min"`
	ShowerMin  int `json:"shower_min"`
	DressMin   int `json:"dress_min"`
	BufferMin  int `json:"buffer_min"`
}

// Total returns the sum of all components in minutes.
func (c WakeRampComponents) Total() int {
	return c.ToiletMin + c.HygieneMin + c.ShowerMin + c.DressMin + c.BufferMin
}

// WakeRamp is the startup block after waking. DurationMin always equals the component
// total, and a skipped ramp has zero duration.
type WakeRamp struct {
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	DurationMin int                `json:"duration_min"`
	Components  WakeRampComponents `json:"components"`
	Skipped     bool               `json:"skipped"`
	SkipReason  string             `json:"skip_reason,omitempty"`
}

type LocationState string

const (
	AtHome  LocationState = "at_home"
	NotHome LocationState = "not_home"
)

type LocationPeriod struct {
	Start   time.Time     `json:"start"`
	End     time.Time     `json:"end"`
	State   LocationState `json:"state"`
	ChainID string        `json:"chain_id,omitempty"`
}

type HomeInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether [start, end) lies inside the interval.
func (h HomeInterval) Contains(start, end time.Time) bool {
	return !start.Before(h.Start) && !end.After(h.End)
}

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

type MealPlacement struct {
	Type        MealType   `json:"type"`
	Time        *time.Time `json:"time,omitempty"`
	DurationMin int        `json:"duration_min"`
	Skipped     bool       `json:"skipped"`
	SkipReason  string     `json:"skip_reason,omitempty"`
	Desired     time.Time  `json:"desired_time"`
	AnchorAware bool       `json:"anchor_aware"`
}

// End returns the end of a placed meal. It must not be called on a skipped meal.
func (m MealPlacement) End() time.Time {
	return m.Time.Add(time.Duration(m.DurationMin) * time.Minute)
}

type ExitTime struct {
	CommitmentID      string    `json:"commitment_id"`
	ExitTime          time.Time `json:"exit_time"`
	TravelDurationMin int       `json:"travel_duration_min"`
	PreparationMin    int       `json:"preparation_min"`
	TravelMethod      string    `json:"travel_method"`
}

type PlanStatus string

const (
	PlanActive   PlanStatus = "active"
	PlanDegraded PlanStatus = "degraded"
)

// DailyPlan is created once per user per day. Revision is bumped on every structural
// write and guards concurrent edits.
type DailyPlan struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	Date            string           `json:"date"` // YYYY-MM-DD format
	WakeTime        time.Time        `json:"wake_time"`
	SleepTime       time.Time        `json:"sleep_time"`
	PlanStart       time.Time        `json:"plan_start"`
	Energy          EnergyLevel      `json:"energy"`
	Status          PlanStatus       `json:"status"`
	Revision        int              `json:"revision"`
	TailPlan        bool             `json:"tail_plan,omitempty"`
	Blocks          []TimeBlock      `json:"blocks"`
	Chains          []ExecutionChain `json:"chains"`
	WakeRamp        WakeRamp         `json:"wake_ramp"`
	HomeIntervals   []HomeInterval   `json:"home_intervals"`
	LocationPeriods []LocationPeriod `json:"location_periods"`
	Meals           []MealPlacement  `json:"meals"`
	ExitTimes       []ExitTime       `json:"exit_times"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// SortBlocks orders blocks by start, then end, then current sequence order.
func SortBlocks(blocks []TimeBlock) {
	sort.SliceStable(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		return a.SequenceOrder < b.SequenceOrder
	})
}

// Resequence sorts blocks by time and assigns a dense 1-based sequence order.
func Resequence(blocks []TimeBlock) {
	SortBlocks(blocks)
	for i := range blocks {
		blocks[i].SequenceOrder = i + 1
	}
}

// BlockByID returns the index of the block with id, or -1.
func (p DailyPlan) BlockByID(id string) int {
	for i, b := range p.Blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// ChainByID returns the index of the chain with id, or -1.
func (p DailyPlan) ChainByID(id string) int {
	for i, c := range p.Chains {
		if c.ChainID == id {
			return i
		}
	}
	return -1
}
