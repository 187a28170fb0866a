package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/daychain/internal/cli"
	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/utils"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	UserID       *string `help:"User that owns generated plans." name:"user-id"`
	WakeTime     *string `help:"Default wake time (HH:MM)."`
	SleepTime    *string `help:"Default sleep time (HH:MM)."`
	Timezone     *string `help:"IANA timezone name, or 'Local'."`
	Energy       *string `help:"Default energy level (low, medium or high)."`
	HomeLocation *string `help:"Location treated as home when computing travel."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	settings, err := ctx.Store.GetSettings(bg)
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if c.List {
		ctx.Println("Current Settings:")
		ctx.Printf("  User:           %s\n", settings.UserID)
		ctx.Printf("  Wake Time:      %s\n", settings.WakeTime)
		ctx.Printf("  Sleep Time:     %s\n", settings.SleepTime)
		ctx.Printf("  Timezone:       %s\n", settings.Timezone)
		ctx.Printf("  Default Energy: %s\n", settings.DefaultEnergy)
		ctx.Printf("  Home Location:  %s\n", settings.HomeLocation)
		return nil
	}

	updated, err := c.apply(&settings)
	if err != nil {
		return err
	}
	if !updated {
		ctx.Println("No changes specified. Use --list to view settings or flags to update them.")
		return nil
	}
	if err := ctx.Store.SaveSettings(bg, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	ctx.Println("Settings updated successfully.")
	return nil
}

// apply validates and copies the given flags onto s.
func (c *SettingsCmd) apply(s *models.Settings) (bool, error) {
	updated := false
	if c.UserID != nil {
		id := strings.TrimSpace(*c.UserID)
		if id == "" {
			return false, errors.Validationf("user id cannot be empty")
		}
		s.UserID = id
		updated = true
	}
	if c.WakeTime != nil {
		if !utils.ValidateTimeFormat(*c.WakeTime) {
			return false, errors.Validationf("invalid wake time %q, use HH:MM", *c.WakeTime)
		}
		s.WakeTime = *c.WakeTime
		updated = true
	}
	if c.SleepTime != nil {
		if !utils.ValidateTimeFormat(*c.SleepTime) {
			return false, errors.Validationf("invalid sleep time %q, use HH:MM", *c.SleepTime)
		}
		s.SleepTime = *c.SleepTime
		updated = true
	}
	if c.Timezone != nil {
		if !utils.ValidateTimezone(*c.Timezone) {
			return false, errors.Validationf("invalid timezone %q", *c.Timezone)
		}
		s.Timezone = *c.Timezone
		updated = true
	}
	if c.Energy != nil {
		if _, ok := models.ParseEnergy(*c.Energy); !ok {
			return false, errors.Validationf("invalid energy %q, use low, medium or high", *c.Energy)
		}
		s.DefaultEnergy = *c.Energy
		updated = true
	}
	if c.HomeLocation != nil {
		s.HomeLocation = strings.TrimSpace(*c.HomeLocation)
		updated = true
	}

	wake, _ := utils.ParseTime(s.WakeTime)
	sleep, _ := utils.ParseTime(s.SleepTime)
	if updated && !sleep.After(wake) {
		return false, errors.Validationf("sleep time %s must be after wake time %s", s.SleepTime, s.WakeTime)
	}
	return updated, nil
}
