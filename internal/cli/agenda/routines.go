package agenda

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/daychain/internal/cli"
	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
)

type RoutineAddCmd struct {
	Name     string `arg:"" help:"Routine name."`
	Kind     string `help:"Routine kind." enum:"morning,evening" default:"morning"`
	Duration int    `help:"Estimated duration in minutes." required:""`
	Inactive bool   `help:"Store the routine without using it."`
}

func (c *RoutineAddCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	settings, err := ctx.Settings(bg)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return errors.Validationf("name is required")
	}
	if c.Duration <= 0 {
		return errors.Validationf("duration must be positive")
	}

	r := models.Routine{
		ID:                   uuid.NewString(),
		UserID:               settings.UserID,
		Name:                 name,
		Kind:                 models.RoutineKind(c.Kind),
		EstimatedDurationMin: c.Duration,
		Active:               !c.Inactive,
	}
	if err := ctx.Store.AddRoutine(bg, r); err != nil {
		return fmt.Errorf("failed to add routine: %w", err)
	}
	ctx.Invalidate(bg, settings.UserID, "")
	ctx.Printf("Added %s routine: %s, %d min (ID: %s)\n", r.Kind, r.Name, r.EstimatedDurationMin, r.ID)
	return nil
}

type RoutineListCmd struct {
	All bool `help:"Include inactive routines."`
}

func (c *RoutineListCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	settings, err := ctx.Settings(bg)
	if err != nil {
		return err
	}
	routines, err := ctx.Store.GetRoutines(bg, settings.UserID, !c.All)
	if err != nil {
		return fmt.Errorf("failed to list routines: %w", err)
	}
	if len(routines) == 0 {
		ctx.Println("No routines. Plans use the default morning and evening routines.")
		return nil
	}
	for _, r := range routines {
		state := "active"
		if !r.Active {
			state = "inactive"
		}
		ctx.Printf("%-36s  %-8s %-24s %3dm  %s\n", r.ID, r.Kind, r.Name, r.EstimatedDurationMin, state)
	}
	return nil
}
