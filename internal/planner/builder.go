// Package planner builds, degrades and edits daily plans. It is the only writer of plan
// structure; the sequencer only flips block status.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/daychain/internal/cache"
	"github.com/julianstephens/daychain/internal/chains"
	"github.com/julianstephens/daychain/internal/config"
	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/location"
	"github.com/julianstephens/daychain/internal/logger"
	"github.com/julianstephens/daychain/internal/meals"
	"github.com/julianstephens/daychain/internal/metrics"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/scheduler"
	"github.com/julianstephens/daychain/internal/sources"
	"github.com/julianstephens/daychain/internal/storage"
	"github.com/julianstephens/daychain/internal/utils"
	"github.com/julianstephens/daychain/internal/wakeramp"
)

type Builder struct {
	store       storage.Provider
	commitments sources.CommitmentSource
	tasks       sources.TaskSource
	routines    sources.RoutineSource
	cache       *sources.Cached
	travel      sources.ExitTimeCalculator
	chains      *chains.Generator
	scheduler   *scheduler.Scheduler
	metrics     *metrics.Metrics
	engine      config.Engine
	now         func() time.Time
	newID       func() string
}

type Option func(*Builder)

// WithCache routes the store-backed commitment, task and routine lookups through c.
func WithCache(c cache.Cache) Option {
	return func(b *Builder) {
		cached := sources.NewCached(c, b.commitments, b.tasks, b.routines)
		b.commitments, b.tasks, b.routines = cached, cached, cached
		b.cache = cached
	}
}

func WithCommitmentSource(s sources.CommitmentSource) Option {
	return func(b *Builder) { b.commitments = s }
}

func WithTaskSource(s sources.TaskSource) Option {
	return func(b *Builder) { b.tasks = s }
}

func WithRoutineSource(s sources.RoutineSource) Option {
	return func(b *Builder) { b.routines = s }
}

func WithTravelCalculator(c sources.ExitTimeCalculator) Option {
	return func(b *Builder) { b.travel = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

func WithEngineConfig(e config.Engine) Option {
	return func(b *Builder) {
		b.engine = e
		if fixed, ok := b.travel.(*sources.FixedTravelCalculator); ok {
			fixed.DefaultMin = e.DefaultTravelMin
		}
	}
}

// WithClock replaces time.Now. Tests pin it.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder reads every source from store unless an option replaces it. Options apply
// in order, so WithCache wraps whatever sources were set before it.
func NewBuilder(store storage.Provider, opts ...Option) *Builder {
	src := sources.NewStore(store)
	b := &Builder{
		store:       store,
		commitments: src,
		tasks:       src,
		routines:    src,
		travel:      sources.NewFixedTravelCalculator(constants.DefaultTravelMin, constants.DefaultHomeLocation),
		chains:      chains.NewGenerator(),
		scheduler:   scheduler.New(),
		engine:      config.Default().Engine,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.scheduler.NewID = b.newID
	return b
}

// Invalidate drops the cached source lookups for a user. It is a no-op without
// WithCache.
func (b *Builder) Invalidate(ctx context.Context, userID, date string) error {
	if b.cache == nil {
		return nil
	}
	return b.cache.Invalidate(ctx, userID, date)
}

// Input describes one generation request. WakeTime and SleepTime are HH:MM on Date in
// Timezone.
type Input struct {
	UserID            string
	Date              string
	WakeTime          string
	SleepTime         string
	Timezone          string
	Energy            models.EnergyLevel
	CurrentLocation   string
	MedicationPending bool
	// Now overrides the builder clock for this request.
	Now time.Time
}

// InputFromSettings fills an input from stored settings for date.
func InputFromSettings(s models.Settings, date string) Input {
	return Input{
		UserID:          s.UserID,
		Date:            date,
		WakeTime:        s.WakeTime,
		SleepTime:       s.SleepTime,
		Timezone:        s.Timezone,
		Energy:          models.EnergyLevel(s.DefaultEnergy),
		CurrentLocation: s.HomeLocation,
	}
}

// resolved is a validated input in absolute time.
type resolved struct {
	Input
	loc   *time.Location
	day   time.Time
	wake  time.Time
	sleep time.Time
	now   time.Time
}

func (b *Builder) resolve(in Input) (resolved, error) {
	r := resolved{Input: in}
	if in.UserID == "" {
		return r, errors.Validationf("user id is required")
	}
	if in.Energy == "" {
		in.Energy = models.EnergyLevel(constants.DefaultEnergy)
		r.Energy = in.Energy
	}
	if _, ok := models.ParseEnergy(string(in.Energy)); !ok {
		return r, errors.Validationf("invalid energy level %q", in.Energy)
	}

	loc, err := utils.LoadLocation(in.Timezone)
	if err != nil {
		return r, errors.Validationf("invalid timezone %q", in.Timezone)
	}
	day, err := utils.ParseDateInLocation(in.Date, loc)
	if err != nil {
		return r, errors.Validationf("invalid date %q, expected YYYY-MM-DD", in.Date)
	}
	wake, err := utils.ClockOn(day, in.WakeTime)
	if err != nil {
		return r, errors.Validationf("invalid wake time %q", in.WakeTime)
	}
	sleep, err := utils.ClockOn(day, in.SleepTime)
	if err != nil {
		return r, errors.Validationf("invalid sleep time %q", in.SleepTime)
	}
	if !wake.Before(sleep) {
		return r, errors.Validationf("wake time %s must be before sleep time %s", in.WakeTime, in.SleepTime)
	}

	now := in.Now
	if now.IsZero() {
		now = b.now()
	}
	r.loc, r.day, r.wake, r.sleep, r.now = loc, day, wake, sleep, now.In(loc)
	return r, nil
}

// Generate builds and stores the plan for one user and day, replacing any earlier plan
// for that day.
func (b *Builder) Generate(ctx context.Context, in Input) (models.DailyPlan, error) {
	r, err := b.resolve(in)
	if err != nil {
		return models.DailyPlan{}, err
	}

	planStart := utils.MaxTime(r.wake, utils.RoundUp(r.now, constants.PlanStartGranularity))
	plan := models.DailyPlan{
		ID:        b.newID(),
		UserID:    r.UserID,
		Date:      r.Date,
		WakeTime:  r.wake,
		SleepTime: r.sleep,
		PlanStart: planStart,
		Energy:    r.Energy,
		Status:    models.PlanActive,
	}
	logger.Debug("Generating plan", "user", r.UserID, "date", r.Date, "plan_start", utils.FormatClock(planStart))

	ramp := wakeramp.Generate(planStart, r.wake, r.Energy)

	commitments, err := b.commitments.Commitments(ctx, r.UserID, r.day, r.day.AddDate(0, 0, 1))
	if err != nil {
		return models.DailyPlan{}, fmt.Errorf("failed to load commitments: %w", err)
	}
	anchors := make([]models.Anchor, 0, len(commitments))
	for _, c := range commitments {
		anchors = append(anchors, chains.ToAnchor(c))
	}

	plan.ExitTimes = b.exitTimes(ctx, commitments, r.CurrentLocation)
	travel := make(map[string]int, len(plan.ExitTimes))
	for _, e := range plan.ExitTimes {
		travel[e.CommitmentID] = e.TravelDurationMin
	}

	overrides, custom := b.customization(ctx, r.UserID)
	plan.Chains = b.chains.Generate(chains.Request{
		Anchors:           anchors,
		TravelMin:         travel,
		Overrides:         overrides,
		CustomSteps:       custom,
		Floor:             planStart,
		MedicationPending: r.MedicationPending,
	})
	updateExitTimes(plan.ExitTimes, plan.Chains)

	ramp = fitRamp(ramp, plan.Chains)
	plan.WakeRamp = ramp

	plan.LocationPeriods = location.Periods(plan.Chains, r.wake, r.sleep)
	plan.HomeIntervals = location.HomeIntervals(plan.LocationPeriods)

	var blocks []models.TimeBlock
	if !ramp.Skipped && ramp.DurationMin > 0 {
		blocks = append(blocks, b.rampBlock(ramp))
	}
	for _, c := range plan.Chains {
		blocks = append(blocks, b.chainBlocks(c)...)
	}

	fillStart := utils.MaxTime(planStart, ramp.End)
	plan.Meals = meals.Place(meals.Input{
		Day:     r.day,
		Wake:    r.wake,
		Sleep:   r.sleep,
		Now:     fillStart,
		Anchors: activeAnchors(plan.Chains),
		Busy:    blocks,
		Home:    plan.HomeIntervals,
	})
	for _, m := range plan.Meals {
		if m.Skipped {
			b.metrics.Skipped(m.SkipReason)
			continue
		}
		blocks = append(blocks, b.mealBlock(m))
	}

	flex := b.flexible(ctx, r)
	gaps := scheduler.FreeGaps(fillStart, r.sleep, blocks)
	filled := b.scheduler.Fill(gaps, flex.activities)
	for _, a := range filled.Unplaced {
		logger.Debug("Flexible activity did not fit", "title", a.Title, "duration", a.DurationMin)
		b.metrics.Skipped(constants.SkipNoFit)
	}
	blocks = append(blocks, filled.Blocks...)

	if ev, ok := b.eveningBlock(flex.evening, blocks, fillStart, r.sleep); ok {
		blocks = append(blocks, ev)
	} else {
		logger.Debug("Evening routine dropped", "reason", constants.SkipExceedsSleep)
		b.metrics.Skipped(constants.SkipExceedsSleep)
	}

	for i := range blocks {
		if blocks[i].Status == models.BlockPending && blocks[i].End.Before(planStart) {
			blocks[i].Status = models.BlockSkipped
			blocks[i].SkipReason = constants.SkipBeforePlanStart
			b.metrics.Skipped(constants.SkipBeforePlanStart)
		}
	}
	for _, blk := range blocks {
		if blk.Status == models.BlockSkipped && blk.SkipReason != constants.SkipBeforePlanStart {
			b.metrics.Skipped(blk.SkipReason)
		}
	}

	if !hasActionable(blocks) {
		logger.Info("No actionable blocks left, using tail plan", "date", r.Date, "plan_start", utils.FormatClock(planStart))
		blocks = b.tailPlan(settled(blocks), planStart, r.sleep, r.Energy)
		plan.TailPlan = true
	}

	models.Resequence(blocks)
	plan.Blocks = blocks

	if err := b.store.SavePlan(ctx, &plan); err != nil {
		return models.DailyPlan{}, fmt.Errorf("failed to save plan: %w", err)
	}
	b.metrics.PlanGenerated(plan.TailPlan)
	logger.Info("Plan generated", "plan", plan.ID, "date", plan.Date, "blocks", len(plan.Blocks), "revision", plan.Revision)
	return plan, nil
}

func (b *Builder) exitTimes(ctx context.Context, commitments []models.Commitment, current string) []models.ExitTime {
	exits, err := b.travel.Calculate(ctx, commitments, current)
	if err == nil {
		return exits
	}
	logger.Warn("Travel calculator failed, using defaults", "error", err)
	fallback := sources.NewFixedTravelCalculator(b.engine.DefaultTravelMin, constants.DefaultHomeLocation)
	exits, _ = fallback.Calculate(ctx, commitments, current)
	return exits
}

func (b *Builder) customization(ctx context.Context, userID string) ([]models.StepOverride, []models.CustomStep) {
	overrides, err := b.store.GetStepOverrides(ctx, userID)
	if err != nil {
		logger.Warn("Failed to load step overrides", "user", userID, "error", err)
		overrides = nil
	}
	custom, err := b.store.GetCustomSteps(ctx, userID)
	if err != nil {
		logger.Warn("Failed to load custom steps", "user", userID, "error", err)
		custom = nil
	}
	return overrides, custom
}

// updateExitTimes sets the departure to the start of each chain's leave step and the
// preparation time to the chain's prep phase.
func updateExitTimes(exits []models.ExitTime, cs []models.ExecutionChain) {
	byAnchor := make(map[string]models.ExecutionChain, len(cs))
	for _, c := range cs {
		byAnchor[c.Anchor.ID] = c
	}
	for i := range exits {
		c, ok := byAnchor[exits[i].CommitmentID]
		if !ok {
			continue
		}
		if j := c.StepIndex(chains.StepLeave); j >= 0 {
			exits[i].ExitTime = c.Steps[j].Start
		}
		exits[i].PreparationMin = 0
		if c.Envelope.Prep != nil {
			exits[i].PreparationMin = c.Envelope.Prep.Step.DurationMin
		}
	}
}

// fitRamp keeps the wake ramp clear of the first active chain. The buffer shrinks first
// and the ramp is skipped when that is not enough.
func fitRamp(ramp models.WakeRamp, cs []models.ExecutionChain) models.WakeRamp {
	if ramp.Skipped {
		return ramp
	}
	for _, c := range cs {
		if c.Status == models.ChainConflicted {
			continue
		}
		first := firstLiveStart(c)
		if !first.Before(ramp.End) {
			return ramp
		}
		fitted, ok := wakeramp.FitBefore(ramp, first)
		if !ok {
			logger.Debug("Wake ramp skipped", "reason", constants.SkipRampConflict, "chain", c.ChainID)
			return wakeramp.Skipped(ramp.Start, constants.SkipRampConflict)
		}
		return fitted
	}
	return ramp
}

func firstLiveStart(c models.ExecutionChain) time.Time {
	for _, s := range c.Steps {
		if s.Status != models.StepSkipped && s.End.After(s.Start) {
			return s.Start
		}
	}
	return c.Anchor.Start
}

func activeAnchors(cs []models.ExecutionChain) []models.Anchor {
	out := make([]models.Anchor, 0, len(cs))
	for _, c := range cs {
		if c.Status != models.ChainConflicted {
			out = append(out, c.Anchor)
		}
	}
	return out
}

// hasActionable reports whether any pending block other than buffers and the evening
// routine is left. An evening routine on its own is not a usable plan; the tail plan
// carries its own.
func hasActionable(blocks []models.TimeBlock) bool {
	for _, b := range blocks {
		if !b.IsPending() || b.IsBuffer() || isEvening(b) {
			continue
		}
		return true
	}
	return false
}

func isEvening(b models.TimeBlock) bool {
	m, ok := b.Metadata.(models.RoutineMeta)
	return ok && m.Kind == models.RoutineEvening
}

// settled drops the pending transitions and evening routine that the tail plan
// replaces. Recovery blocks stay.
func settled(blocks []models.TimeBlock) []models.TimeBlock {
	out := make([]models.TimeBlock, 0, len(blocks))
	for _, b := range blocks {
		if b.IsPending() && (b.IsTransition() || isEvening(b)) {
			continue
		}
		out = append(out, b)
	}
	return out
}
