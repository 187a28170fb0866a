package plans

import (
	"context"
	"fmt"

	"github.com/julianstephens/daychain/internal/cli"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/planner"
	"github.com/julianstephens/daychain/internal/utils"
)

type ChainStepAddCmd struct {
	Chain    string `arg:"" help:"Chain id, or the number of any block in the chain."`
	Name     string `arg:"" help:"Step name."`
	Duration int    `help:"Step duration in minutes." default:"5"`
	After    string `help:"Insert after this step id. Defaults to just before the exit gate."`
	ID       string `help:"Step id. Generated when empty."`
	Required bool   `help:"Keep the step when running late."`
	Remember bool   `help:"Add the step to future plans too."`
	Date     string `help:"Plan date." default:"today"`
	Revision int    `help:"Expected plan revision. Zero uses the current one."`
}

func (c *ChainStepAddCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	b, planID, chainID, err := chainTarget(bg, ctx, c.Date, c.Chain)
	if err != nil {
		return err
	}
	res, err := b.AddChainStep(bg, planID, chainID, planner.NewStep{
		ID:          c.ID,
		Name:        c.Name,
		DurationMin: c.Duration,
		AfterStepID: c.After,
		IsRequired:  c.Required,
		Remember:    c.Remember,
	}, c.Revision)
	if err != nil {
		return err
	}
	return printChain(ctx, res)
}

type ChainStepEditCmd struct {
	Chain    string   `arg:"" help:"Chain id, or the number of any block in the chain."`
	Step     string   `arg:"" help:"Step id."`
	Name     *string  `help:"New step name."`
	Duration *float64 `help:"New duration in minutes. Fractions are rounded."`
	Remember bool     `help:"Apply the change to future plans too."`
	Date     string   `help:"Plan date." default:"today"`
	Revision int      `help:"Expected plan revision. Zero uses the current one."`
}

func (c *ChainStepEditCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	b, planID, chainID, err := chainTarget(bg, ctx, c.Date, c.Chain)
	if err != nil {
		return err
	}
	res, err := b.EditChainStep(bg, planID, chainID, c.Step, planner.StepEdit{
		Name:        c.Name,
		DurationMin: c.Duration,
		Remember:    c.Remember,
	}, c.Revision)
	if err != nil {
		return err
	}
	return printChain(ctx, res)
}

type ChainStepDeleteCmd struct {
	Chain    string `arg:"" help:"Chain id, or the number of any block in the chain."`
	Step     string `arg:"" help:"Step id."`
	Remember bool   `help:"Drop the step from future plans too."`
	Date     string `help:"Plan date." default:"today"`
	Revision int    `help:"Expected plan revision. Zero uses the current one."`
}

func (c *ChainStepDeleteCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	b, planID, chainID, err := chainTarget(bg, ctx, c.Date, c.Chain)
	if err != nil {
		return err
	}
	res, err := b.DeleteChainStep(bg, planID, chainID, c.Step, c.Remember, c.Revision)
	if err != nil {
		return err
	}
	return printChain(ctx, res)
}

// chainTarget resolves a chain reference in the plan for date.
func chainTarget(bg context.Context, ctx *cli.Context, date, ref string) (*planner.Builder, string, string, error) {
	plan, _, err := ctx.PlanFor(bg, date)
	if err != nil {
		return nil, "", "", err
	}
	chainID, err := cli.ResolveChain(plan, ref)
	if err != nil {
		return nil, "", "", err
	}
	settings, err := ctx.Settings(bg)
	if err != nil {
		return nil, "", "", err
	}
	return ctx.Builder(settings), plan.ID, chainID, nil
}

func printChain(ctx *cli.Context, res planner.EditResult) error {
	settings, err := ctx.Settings(context.Background())
	if err != nil {
		return err
	}
	loc, err := ctx.Location(settings)
	if err != nil {
		return err
	}
	ch := res.Chain
	ctx.Printf("Chain %s for %s, revision %d\n", ch.ChainID, ch.Anchor.Title, res.Plan.Revision)
	for _, s := range ch.Steps {
		line := fmt.Sprintf("  %s–%s  %-20s %s",
			utils.FormatClock(s.Start.In(loc)), utils.FormatClock(s.End.In(loc)), s.Step.ID, s.Step.Name)
		if s.Status == models.StepSkipped {
			line += " (skipped: " + s.SkipReason + ")"
		}
		ctx.Println(line)
	}
	return nil
}
