package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/daychain/internal/models"
)

// planExtras holds the derived plan data that has no table of its own.
type planExtras struct {
	Chains          []models.ExecutionChain `json:"chains"`
	WakeRamp        models.WakeRamp         `json:"wake_ramp"`
	HomeIntervals   []models.HomeInterval   `json:"home_intervals"`
	LocationPeriods []models.LocationPeriod `json:"location_periods"`
	Meals           []models.MealPlacement  `json:"meals"`
}

// EncodeExtras serializes the plan's chains, ramp, location data and meals.
func EncodeExtras(plan models.DailyPlan) (string, error) {
	data, err := json.Marshal(planExtras{
		Chains:          plan.Chains,
		WakeRamp:        plan.WakeRamp,
		HomeIntervals:   plan.HomeIntervals,
		LocationPeriods: plan.LocationPeriods,
		Meals:           plan.Meals,
	})
	if err != nil {
		return "", fmt.Errorf("encoding plan extras: %w", err)
	}
	return string(data), nil
}

// DecodeExtras is the inverse of EncodeExtras.
func DecodeExtras(raw string, plan *models.DailyPlan) error {
	if raw == "" {
		return nil
	}
	var x planExtras
	if err := json.Unmarshal([]byte(raw), &x); err != nil {
		return fmt.Errorf("decoding plan extras: %w", err)
	}
	plan.Chains = x.Chains
	plan.WakeRamp = x.WakeRamp
	plan.HomeIntervals = x.HomeIntervals
	plan.LocationPeriods = x.LocationPeriods
	plan.Meals = x.Meals
	return nil
}

// EncodeMetadata returns the block metadata as a nullable string column value.
func EncodeMetadata(m models.Metadata) (*string, error) {
	raw, err := models.EncodeMetadata(m)
	if err != nil || raw == nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}

// SortTasksByDeadline orders tasks by deadline with undated tasks last, then by creation.
func SortTasksByDeadline(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case a.Deadline != nil && b.Deadline != nil && !a.Deadline.Equal(*b.Deadline):
			return a.Deadline.Before(*b.Deadline)
		case a.Deadline != nil && b.Deadline == nil:
			return true
		case a.Deadline == nil && b.Deadline != nil:
			return false
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// FormatTime and ParseTime define the text encoding of instants in sqlite and JSON.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
