package agenda

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/daychain/internal/chains"
	"github.com/julianstephens/daychain/internal/cli"
	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/utils"
)

type CommitmentAddCmd struct {
	Title    string `arg:"" help:"Commitment title, e.g. 'Calculus Lecture'."`
	Start    string `help:"Start time (HH:MM)." required:""`
	End      string `help:"End time (HH:MM)." required:""`
	Date     string `help:"Date (YYYY-MM-DD, 'today' or 'tomorrow')." default:"today"`
	Location string `help:"Where it takes place. Empty or 'online' means no travel."`
	Type     string `help:"Anchor type (class, seminar, workshop, appointment, other). Inferred from the title when empty."`
}

func (c *CommitmentAddCmd) Run(ctx *cli.Context) error {
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
	start, err := cli.ParseClock(date, c.Start, loc)
	if err != nil {
		return err
	}
	end, err := cli.ParseClock(date, c.End, loc)
	if err != nil {
		return err
	}
	if !end.After(start) {
		return errors.Validationf("end %s must be after start %s", c.End, c.Start)
	}

	cm := models.Commitment{
		ID:       uuid.NewString(),
		UserID:   settings.UserID,
		Title:    strings.TrimSpace(c.Title),
		Start:    start,
		End:      end,
		Location: c.Location,
	}
	if cm.Title == "" {
		return errors.Validationf("title is required")
	}
	if c.Type != "" {
		t, ok := models.ParseAnchorType(c.Type)
		if !ok {
			return errors.Validationf("unknown anchor type %q", c.Type)
		}
		cm.AnchorType = t
	}

	if err := ctx.Store.AddCommitment(bg, cm); err != nil {
		return fmt.Errorf("failed to add commitment: %w", err)
	}
	ctx.Invalidate(bg, settings.UserID, date)

	ctx.Printf("Added %s %s–%s %s (%s)\n", date, c.Start, c.End, cm.Title, chains.ClassifyAnchor(cm))
	ctx.Printf("ID: %s\n", cm.ID)
	return nil
}

type CommitmentListCmd struct {
	Date string `arg:"" help:"Date to list." default:"today"`
}

func (c *CommitmentListCmd) Run(ctx *cli.Context) error {
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
	from, err := utils.ParseDateInLocation(date, loc)
	if err != nil {
		return errors.Validationf("invalid date %q", date)
	}

	list, err := ctx.Store.GetCommitments(bg, settings.UserID, from, from.AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("failed to list commitments: %w", err)
	}
	if len(list) == 0 {
		ctx.Printf("No commitments on %s.\n", date)
		return nil
	}
	for _, cm := range list {
		where := cm.Location
		if where == "" {
			where = "-"
		}
		ctx.Printf("%s–%s  %-30s %-12s %-12s %s\n",
			utils.FormatClock(cm.Start.In(loc)), utils.FormatClock(cm.End.In(loc)),
			cm.Title, chains.ClassifyAnchor(cm), where, cm.ID)
	}
	return nil
}

type CommitmentDeleteCmd struct {
	ID string `arg:"" help:"Commitment id."`
}

func (c *CommitmentDeleteCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if err := ctx.Store.DeleteCommitment(bg, c.ID); err != nil {
		return err
	}
	settings, err := ctx.Settings(bg)
	if err != nil {
		return err
	}
	// The deleted commitment's date is not known here. Drop today and tomorrow.
	loc, err := ctx.Location(settings)
	if err != nil {
		return err
	}
	now := ctx.CurrentTime().In(loc)
	ctx.Invalidate(bg, settings.UserID, now.Format(constants.DateFormat))
	ctx.Invalidate(bg, settings.UserID, now.AddDate(0, 0, 1).Format(constants.DateFormat))
	ctx.Println("Commitment deleted.")
	return nil
}
