package plans

import (
	"context"

	"github.com/julianstephens/daychain/internal/cli"
	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/sequencer"
	"github.com/julianstephens/daychain/internal/utils"
)

const maxNext = 50

type NowCmd struct{}

func (c *NowCmd) Run(ctx *cli.Context) error {
	plan, loc, err := ctx.PlanFor(context.Background(), "today")
	if err != nil {
		return err
	}

	now := ctx.CurrentTime().In(loc)
	blk, ok := sequencer.Current(plan.Blocks)
	if !ok {
		ctx.Printf("Now (%s): Nothing left in today's plan\n", utils.FormatClock(now))
		return nil
	}

	ctx.Printf("Now (%s): Up next in your plan:\n\n", utils.FormatClock(now))
	ctx.Println(cli.RenderBlock(blk, loc))
	if blk.Start.After(now) {
		ctx.Printf("\nStarts in %d min\n", int(blk.Start.Sub(now).Minutes()))
	} else if blk.End.Before(now) {
		ctx.Printf("\nRunning %d min behind, consider 'daychain degrade'\n", int(now.Sub(blk.End).Minutes()))
	}
	return nil
}

type NextCmd struct {
	N int `arg:"" help:"How many upcoming blocks to show." default:"3"`
}

func (c *NextCmd) Run(ctx *cli.Context) error {
	if c.N < 1 || c.N > maxNext {
		return errors.Validationf("n must be between 1 and %d", maxNext)
	}
	plan, loc, err := ctx.PlanFor(context.Background(), "today")
	if err != nil {
		return err
	}
	next := sequencer.Next(plan.Blocks, c.N)
	if len(next) == 0 {
		ctx.Println("Nothing after the current block.")
		return nil
	}
	for _, b := range next {
		ctx.Println(cli.RenderBlock(b, loc))
	}
	return nil
}
