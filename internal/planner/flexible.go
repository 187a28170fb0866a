package planner

import (
	"context"

	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/logger"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/scheduler"
)

// Fallback routine durations in minutes.
const (
	fallbackMorningMin = 30
	fallbackEveningMin = 20
)

// TaskLimit is the number of tasks scheduled per day at an energy level.
func TaskLimit(e models.EnergyLevel) int {
	switch e {
	case models.EnergyLow:
		return 1
	case models.EnergyHigh:
		return 3
	default:
		return 2
	}
}

type scheduledRoutine struct {
	name        string
	durationMin int
	meta        models.RoutineMeta
}

type flexInputs struct {
	// activities are in fill priority order: morning routine, tasks, focus.
	activities []scheduler.Activity
	evening    scheduledRoutine
}

// flexible gathers the activities for gap filling. Source failures fall back to the
// built-in routines and a focus block.
func (b *Builder) flexible(ctx context.Context, r resolved) flexInputs {
	tasks, err := b.tasks.PendingTasks(ctx, r.UserID)
	if err != nil {
		logger.Warn("Task source unavailable, scheduling a focus block", "user", r.UserID, "error", err)
		tasks = nil
	}
	routines, err := b.routines.ActiveRoutines(ctx, r.UserID)
	if err != nil {
		logger.Warn("Routine source unavailable, using default routines", "user", r.UserID, "error", err)
		routines = nil
	}

	morning := pickRoutine(routines, models.RoutineMorning, constants.TitleMorningRoutine, fallbackMorningMin)
	evening := pickRoutine(routines, models.RoutineEvening, constants.TitleEveningRoutine, fallbackEveningMin)

	out := flexInputs{evening: evening}
	out.activities = append(out.activities, scheduler.Activity{
		Title:        morning.name,
		DurationMin:  morning.durationMin,
		ActivityType: models.ActivityRoutine,
		Metadata:     morning.meta,
	})

	if len(tasks) > TaskLimit(r.Energy) {
		tasks = tasks[:TaskLimit(r.Energy)]
	}
	for _, t := range tasks {
		d := t.EstimatedDurationMin
		if d <= 0 {
			d = b.engine.DefaultTaskMin
		}
		if d <= 0 {
			d = constants.DefaultTaskMin
		}
		out.activities = append(out.activities, scheduler.Activity{
			Title:        t.Title,
			DurationMin:  d,
			ActivityType: models.ActivityTask,
			Metadata:     models.TaskMeta{TaskID: t.ID},
		})
	}
	if len(tasks) == 0 {
		out.activities = append(out.activities, scheduler.Activity{
			Title:        constants.TitlePrimaryFocus,
			DurationMin:  constants.FocusBlockMin,
			ActivityType: models.ActivityFocus,
			Metadata:     models.TaskMeta{Synthetic: true},
		})
	}
	return out
}

// pickRoutine returns the first active routine of kind, or the fallback.
func pickRoutine(routines []models.Routine, kind models.RoutineKind, fallbackName string, fallbackMin int) scheduledRoutine {
	for _, r := range routines {
		if r.Kind != kind || !r.Active {
			continue
		}
		d := r.EstimatedDurationMin
		if d <= 0 {
			d = fallbackMin
		}
		return scheduledRoutine{name: r.Name, durationMin: d, meta: models.RoutineMeta{RoutineID: r.ID, Kind: kind}}
	}
	return scheduledRoutine{
		name:        fallbackName,
		durationMin: fallbackMin,
		meta:        models.RoutineMeta{Kind: kind, Fallback: true},
	}
}
