package plans

import (
	"context"

	"github.com/julianstephens/daychain/internal/cli"
)

type DoneCmd struct {
	Block string `arg:"" help:"Block number (as shown by 'day') or block id."`
	Date  string `help:"Plan date." default:"today"`
}

func (c *DoneCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	plan, loc, err := ctx.PlanFor(bg, c.Date)
	if err != nil {
		return err
	}
	blk, err := cli.ResolveBlock(plan, c.Block)
	if err != nil {
		return err
	}
	done, err := ctx.Sequencer().MarkComplete(bg, plan.ID, blk.ID)
	if err != nil {
		return err
	}
	ctx.Println(cli.RenderBlock(done, loc))
	return nil
}

type SkipCmd struct {
	Block  string `arg:"" help:"Block number (as shown by 'day') or block id."`
	Reason string `help:"Why the block was skipped." default:"Skipped by user"`
	Date   string `help:"Plan date." default:"today"`
}

func (c *SkipCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	plan, loc, err := ctx.PlanFor(bg, c.Date)
	if err != nil {
		return err
	}
	blk, err := cli.ResolveBlock(plan, c.Block)
	if err != nil {
		return err
	}
	skipped, err := ctx.Sequencer().MarkSkipped(bg, plan.ID, blk.ID, c.Reason)
	if err != nil {
		return err
	}
	ctx.Println(cli.RenderBlock(skipped, loc))
	return nil
}

// DegradeCmd drops everything but essentials from the rest of the day.
type DegradeCmd struct {
	Date     string `help:"Plan date." default:"today"`
	Revision int    `help:"Expected plan revision. Zero uses the current one."`
}

func (c *DegradeCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	plan, loc, err := ctx.PlanFor(bg, c.Date)
	if err != nil {
		return err
	}
	settings, err := ctx.Settings(bg)
	if err != nil {
		return err
	}
	degraded, err := ctx.Builder(settings).Degrade(bg, plan.ID, c.Revision)
	if err != nil {
		return err
	}
	ctx.Printf("%s", cli.RenderPlan(degraded, loc, false))
	return nil
}
