package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/daychain/internal/cache"
	"github.com/julianstephens/daychain/internal/config"
	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/logger"
	"github.com/julianstephens/daychain/internal/metrics"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/planner"
	"github.com/julianstephens/daychain/internal/sequencer"
	"github.com/julianstephens/daychain/internal/sources"
	"github.com/julianstephens/daychain/internal/storage"
	"github.com/julianstephens/daychain/internal/utils"
)

type Context struct {
	Store   storage.Provider
	Config  config.Config
	Cache   cache.Cache
	Metrics *metrics.Metrics
	// Out receives command output. Nil means stdout.
	Out io.Writer
	// Now replaces time.Now. Tests pin it.
	Now func() time.Time
}

func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.out(), args...)
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// CurrentTime is the command clock.
func (c *Context) CurrentTime() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Context) cache() cache.Cache {
	if c.Cache == nil {
		return cache.Nop{}
	}
	return c.Cache
}

// Builder returns a plan builder for the stored settings: travel is measured from the
// configured home location.
func (c *Context) Builder(settings models.Settings) *planner.Builder {
	travel := sources.NewFixedTravelCalculator(c.Config.Engine.DefaultTravelMin, settings.HomeLocation)
	return planner.NewBuilder(c.Store,
		planner.WithTravelCalculator(travel),
		planner.WithEngineConfig(c.Config.Engine),
		planner.WithCache(c.cache()),
		planner.WithMetrics(c.Metrics),
		planner.WithClock(c.CurrentTime),
	)
}

// Sequencer returns a block sequencer that drops cached task lookups when a task
// block is completed.
func (c *Context) Sequencer() *sequencer.Service {
	return sequencer.NewService(c.Store, sources.NewCached(c.cache(), nil, nil, nil))
}

// Invalidate drops cached source lookups after the CLI changes commitments, tasks or
// routines. A shared redis cache would otherwise serve stale inputs to a running server.
func (c *Context) Invalidate(ctx context.Context, userID, date string) {
	cached := sources.NewCached(c.cache(), nil, nil, nil)
	if err := cached.Invalidate(ctx, userID, date); err != nil {
		logger.Warn("Cache invalidation failed", "user", userID, "date", date, "error", err)
	}
}

// Settings returns the stored settings with the user id defaulted.
func (c *Context) Settings(ctx context.Context) (models.Settings, error) {
	settings, err := c.Store.GetSettings(ctx)
	if err != nil {
		return settings, fmt.Errorf("failed to get settings: %w", err)
	}
	if settings.UserID == "" {
		settings.UserID = constants.DefaultUserID
	}
	return settings, nil
}

// Location returns the settings timezone.
func (c *Context) Location(settings models.Settings) (*time.Location, error) {
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, errors.Validationf("invalid timezone %q", settings.Timezone)
	}
	return loc, nil
}

// ResolveDate accepts YYYY-MM-DD, "today" or "tomorrow", relative to now in loc.
func ResolveDate(s string, now time.Time, loc *time.Location) (string, error) {
	now = now.In(loc)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return now.Format(constants.DateFormat), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(constants.DateFormat), nil
	}
	if _, err := time.ParseInLocation(constants.DateFormat, s, loc); err != nil {
		return "", errors.Validationf("invalid date %q, use YYYY-MM-DD, 'today' or 'tomorrow'", s)
	}
	return s, nil
}

// PlanFor loads the stored plan for a date argument, along with the settings timezone.
func (c *Context) PlanFor(ctx context.Context, date string) (models.DailyPlan, *time.Location, error) {
	settings, err := c.Settings(ctx)
	if err != nil {
		return models.DailyPlan{}, nil, err
	}
	loc, err := c.Location(settings)
	if err != nil {
		return models.DailyPlan{}, nil, err
	}
	day, err := ResolveDate(date, c.CurrentTime(), loc)
	if err != nil {
		return models.DailyPlan{}, nil, err
	}
	plan, err := c.Store.GetPlanByDate(ctx, settings.UserID, day)
	if errors.Is(err, errors.ErrNotFound) {
		return plan, nil, fmt.Errorf("no plan for %s, run 'daychain plan %s' first: %w", day, day, err)
	}
	if err != nil {
		return plan, nil, err
	}
	return plan, loc, nil
}

// ResolveBlock finds a block by its sequence number or id.
func ResolveBlock(plan models.DailyPlan, ref string) (models.TimeBlock, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		for _, b := range plan.Blocks {
			if b.SequenceOrder == n {
				return b, nil
			}
		}
		return models.TimeBlock{}, fmt.Errorf("no block #%d in plan %s: %w", n, plan.Date, errors.ErrNotFound)
	}
	if i := plan.BlockByID(ref); i >= 0 {
		return plan.Blocks[i], nil
	}
	return models.TimeBlock{}, fmt.Errorf("block %s: %w", ref, errors.ErrStaleReference)
}

// ResolveChain accepts a chain id or the sequence number of any block in the chain.
func ResolveChain(plan models.DailyPlan, ref string) (string, error) {
	if plan.ChainByID(ref) >= 0 {
		return ref, nil
	}
	blk, err := ResolveBlock(plan, ref)
	if err != nil {
		return "", fmt.Errorf("no chain %s in plan %s: %w", ref, plan.Date, errors.ErrNotFound)
	}
	chainID, _, ok := models.ChainLink(blk.Metadata)
	if !ok {
		return "", errors.Validationf("block #%d (%s) is not part of a chain", blk.SequenceOrder, blk.Title)
	}
	return chainID, nil
}

// ParseClock combines an HH:MM time with a date in loc.
func ParseClock(date, clock string, loc *time.Location) (time.Time, error) {
	if !utils.ValidateTimeFormat(clock) {
		return time.Time{}, errors.Validationf("invalid time %q, use HH:MM", clock)
	}
	t, err := utils.CombineDateAndTime(date, clock, loc)
	if err != nil {
		return time.Time{}, errors.Validationf("invalid date or time %s %s", date, clock)
	}
	return t, nil
}
