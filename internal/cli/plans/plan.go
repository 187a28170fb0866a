package plans

import (
	"context"
	"fmt"

	"github.com/julianstephens/daychain/internal/cli"
	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/planner"
	"github.com/julianstephens/daychain/internal/validation"
)

type PlanCmd struct {
	Date       string `arg:"" help:"Date to plan (YYYY-MM-DD, 'today' or 'tomorrow')." default:"today"`
	Energy     string `help:"Energy level for the day (low, medium or high)."`
	Wake       string `help:"Wake time (HH:MM). Defaults to the stored setting."`
	Sleep      string `help:"Sleep time (HH:MM). Defaults to the stored setting."`
	Location   string `help:"Where you are now. Defaults to the home location."`
	Medication bool   `help:"Add a medication step to every chain."`
	At         string `help:"Plan as if it were this time (HH:MM) on the plan date."`
	All        bool   `help:"Also list skipped blocks."`
}

func (c *PlanCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	settings, err := ctx.Settings(bg)
	if err != nil {
		return err
	}
	loc, err := ctx.Location(settings)
	if err != nil {
		return err
	}
	date, err := cli.ResolveDate(c.Date, ctx.CurrentTime(), loc)
	if err != nil {
		return err
	}

	in := planner.InputFromSettings(settings, date)
	if c.Energy != "" {
		in.Energy = models.EnergyLevel(c.Energy)
	}
	if c.Wake != "" {
		in.WakeTime = c.Wake
	}
	if c.Sleep != "" {
		in.SleepTime = c.Sleep
	}
	if c.Location != "" {
		in.CurrentLocation = c.Location
	}
	in.MedicationPending = c.Medication
	if c.At != "" {
		at, err := cli.ParseClock(date, c.At, loc)
		if err != nil {
			return err
		}
		in.Now = at
	}

	existing, err := ctx.Store.GetPlanByDate(bg, settings.UserID, date)
	if err == nil {
		ctx.Printf("Replacing plan for %s (revision %d).\n\n", date, existing.Revision)
	} else if !errors.Is(err, errors.ErrNotFound) {
		return fmt.Errorf("failed to check existing plan: %w", err)
	}

	plan, err := ctx.Builder(settings).Generate(bg, in)
	if err != nil {
		return err
	}

	ctx.Printf("%s", cli.RenderPlan(plan, loc, c.All))

	result := validation.New().ValidatePlan(plan)
	if result.HasConflicts() {
		ctx.Println()
		ctx.Printf("%s", result.FormatReport())
	}
	return nil
}
