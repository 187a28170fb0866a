package settings

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/julianstephens/daychain/internal/cli"
	"github.com/julianstephens/daychain/internal/config"
	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/storage"
)

func ptr(s string) *string { return &s }

func baseSettings() models.Settings {
	return models.Settings{
		UserID:        "u1",
		WakeTime:      "07:00",
		SleepTime:     "23:00",
		Timezone:      "UTC",
		DefaultEnergy: "medium",
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name        string
		cmd         SettingsCmd
		wantUpdated bool
		wantErr     bool
		check       func(t *testing.T, s models.Settings)
	}{
		{name: "no flags", cmd: SettingsCmd{}},
		{
			name:        "wake and energy",
			cmd:         SettingsCmd{WakeTime: ptr("06:30"), Energy: ptr("high")},
			wantUpdated: true,
			check: func(t *testing.T, s models.Settings) {
				if s.WakeTime != "06:30" || s.DefaultEnergy != "high" {
					t.Errorf("settings = %+v", s)
				}
			},
		},
		{
			name:        "home location trimmed",
			cmd:         SettingsCmd{HomeLocation: ptr("  Dorm  ")},
			wantUpdated: true,
			check: func(t *testing.T, s models.Settings) {
				if s.HomeLocation != "Dorm" {
					t.Errorf("home location = %q, want Dorm", s.HomeLocation)
				}
			},
		},
		{name: "bad wake time", cmd: SettingsCmd{WakeTime: ptr("7am")}, wantErr: true},
		{name: "bad sleep time", cmd: SettingsCmd{SleepTime: ptr("25:00")}, wantErr: true},
		{name: "bad timezone", cmd: SettingsCmd{Timezone: ptr("Mars/Olympus")}, wantErr: true},
		{name: "bad energy", cmd: SettingsCmd{Energy: ptr("extreme")}, wantErr: true},
		{name: "empty user", cmd: SettingsCmd{UserID: ptr("  ")}, wantErr: true},
		{name: "sleep before wake", cmd: SettingsCmd{SleepTime: ptr("06:00")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := baseSettings()
			updated, err := tt.cmd.apply(&s)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrValidation) {
					t.Fatalf("apply error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("apply failed: %v", err)
			}
			if updated != tt.wantUpdated {
				t.Errorf("updated = %v, want %v", updated, tt.wantUpdated)
			}
			if tt.check != nil {
				tt.check(t, s)
			}
		})
	}
}

func TestSettingsCmd(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := store.SaveSettings(context.Background(), baseSettings()); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}
	out := &bytes.Buffer{}
	ctx := &cli.Context{Store: store, Config: config.Default(), Out: out}

	if err := (&SettingsCmd{SleepTime: ptr("22:30")}).Run(ctx); err != nil {
		t.Fatalf("settings update failed: %v", err)
	}
	if !strings.Contains(out.String(), "Settings updated successfully.") {
		t.Errorf("update output = %q", out.String())
	}
	got, err := store.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if got.SleepTime != "22:30" {
		t.Errorf("stored sleep time = %q, want 22:30", got.SleepTime)
	}

	out.Reset()
	if err := (&SettingsCmd{List: true}).Run(ctx); err != nil {
		t.Fatalf("settings list failed: %v", err)
	}
	if !strings.Contains(out.String(), "Sleep Time:     22:30") {
		t.Errorf("list output = %q", out.String())
	}

	out.Reset()
	if err := (&SettingsCmd{}).Run(ctx); err != nil {
		t.Fatalf("settings without flags failed: %v", err)
	}
	if !strings.Contains(out.String(), "No changes specified") {
		t.Errorf("no-op output = %q", out.String())
	}
}
