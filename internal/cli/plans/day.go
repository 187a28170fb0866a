package plans

import (
	"context"

	"github.com/julianstephens/daychain/internal/cli"
	"github.com/julianstephens/daychain/internal/validation"
)

type DayCmd struct {
	Date string `arg:"" help:"Date to show (YYYY-MM-DD, 'today' or 'tomorrow')." default:"today"`
	All  bool   `help:"Also list skipped blocks."`
}

func (c *DayCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	plan, loc, err := ctx.PlanFor(bg, c.Date)
	if err != nil {
		return err
	}
	ctx.Printf("%s", cli.RenderPlan(plan, loc, c.All))
	return nil
}

// ValidateCmd checks a stored plan, typically after manual edits.
type ValidateCmd struct {
	Date string `arg:"" help:"Date to validate." default:"today"`
}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	plan, _, err := ctx.PlanFor(context.Background(), c.Date)
	if err != nil {
		return err
	}
	result := validation.New().ValidatePlan(plan)
	ctx.Printf("%s", result.FormatReport())
	if !result.HasConflicts() {
		ctx.Println()
	}
	return nil
}
