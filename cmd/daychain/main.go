package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/daychain/internal/cache"
	"github.com/julianstephens/daychain/internal/cli"
	"github.com/julianstephens/daychain/internal/cli/agenda"
	"github.com/julianstephens/daychain/internal/cli/plans"
	"github.com/julianstephens/daychain/internal/cli/settings"
	"github.com/julianstephens/daychain/internal/cli/system"
	"github.com/julianstephens/daychain/internal/config"
	"github.com/julianstephens/daychain/internal/constants"
	apperrors "github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/keyring"
	"github.com/julianstephens/daychain/internal/logger"
)

var CLI struct {
	Version      kong.VersionFlag
	Config       string `help:"Database path (.db for SQLite, .json for a JSON file) or PostgreSQL connection string. PostgreSQL credentials must NOT be embedded; use the environment, .pgpass or the OS keyring." type:"string" default:"~/.config/daychain/daychain.db"`
	EngineConfig string `help:"Engine, cache and server configuration (YAML)." type:"string" default:"~/.config/daychain/engine.yaml" name:"engine-config"`
	Debug        bool   `help:"Log debug output to stderr."`

	Init     system.InitCmd       `cmd:"" help:"Initialize daychain storage."`
	Settings settings.SettingsCmd `cmd:"" help:"Show or change settings."`
	Plan     plans.PlanCmd        `cmd:"" help:"Generate the plan for a day."`
	Day      plans.DayCmd         `cmd:"" help:"Show the plan for a day."`
	Now      plans.NowCmd         `cmd:"" help:"Show the current block." default:"1"`
	Next     plans.NextCmd        `cmd:"" help:"Show the upcoming blocks."`
	Done     plans.DoneCmd        `cmd:"" help:"Mark a block completed."`
	Skip     plans.SkipCmd        `cmd:"" help:"Skip a block."`
	Degrade  plans.DegradeCmd     `cmd:"" help:"Reduce the rest of the day to essentials."`
	Validate plans.ValidateCmd    `cmd:"" help:"Check a stored plan for conflicts."`
	Chain    struct {
		Step struct {
			Add    plans.ChainStepAddCmd    `cmd:"" help:"Add a step to a chain."`
			Edit   plans.ChainStepEditCmd   `cmd:"" help:"Rename or re-time a chain step."`
			Delete plans.ChainStepDeleteCmd `cmd:"" help:"Remove a chain step."`
		} `cmd:"" help:"Edit the steps of a chain."`
	} `cmd:"" help:"Edit preparation chains."`
	Commitment struct {
		Add    agenda.CommitmentAddCmd    `cmd:"" help:"Add a commitment."`
		List   agenda.CommitmentListCmd   `cmd:"" help:"List commitments for a day."`
		Delete agenda.CommitmentDeleteCmd `cmd:"" help:"Delete a commitment."`
	} `cmd:"" help:"Manage commitments."`
	Task struct {
		Add  agenda.TaskAddCmd  `cmd:"" help:"Add a task."`
		List agenda.TaskListCmd `cmd:"" help:"List pending tasks."`
		Done agenda.TaskDoneCmd `cmd:"" help:"Mark a task completed."`
	} `cmd:"" help:"Manage tasks."`
	Routine struct {
		Add  agenda.RoutineAddCmd  `cmd:"" help:"Add a routine."`
		List agenda.RoutineListCmd `cmd:"" help:"List routines."`
	} `cmd:"" help:"Manage routines."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Delete the stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check keyring availability."`
	} `cmd:"" help:"Manage database credentials in the OS keyring."`
	Backup struct {
		Create  system.BackupCreateCmd  `cmd:"" help:"Snapshot the SQLite database."`
		List    system.BackupListCmd    `cmd:"" help:"List snapshots."`
		Restore system.BackupRestoreCmd `cmd:"" help:"Restore the database from a snapshot."`
	} `cmd:"" help:"Manage SQLite database backups."`
	Serve system.ServeCmd `cmd:"" help:"Run the HTTP API."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Chain-based daily plan engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	enginePath := cli.ExpandHome(CLI.EngineConfig)
	cfg, err := config.Load(enginePath)
	if err != nil {
		apperrors.Fatal(err)
	}

	err = logger.Init(logger.Config{
		Dir:        filepath.Dir(enginePath),
		Debug:      CLI.Debug,
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Stderr:     ctx.Command() == "serve",
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}

	// Initialize storage based on config format
	store, err := cli.OpenStore(CLI.Config, keyring.Default(), os.Getenv)
	if errors.Is(err, cli.ErrEmbeddedCredentials) {
		fmt.Fprintf(os.Stderr, "Error: %v.\n%s", err, cli.EmbeddedCredentialsHelp())
		os.Exit(1)
	}
	if err != nil {
		apperrors.Fatal(err)
	}

	c, err := cache.Open(context.Background(), cfg.Cache)
	if err != nil {
		logger.Warn("Cache unavailable, continuing without it", "backend", cfg.Cache.Backend, "error", err)
		c = cache.Nop{}
	}

	appCtx := &cli.Context{
		Store:  store,
		Config: cfg,
		Cache:  c,
	}

	// Load the store before running the command (Init command will handle its own loading)
	if ctx.Selected() != nil && ctx.Selected().Name != "init" {
		if err := store.Load(); err != nil {
			apperrors.Fatal(err)
		}
	}

	err = ctx.Run(appCtx)
	if closer, ok := c.(io.Closer); ok {
		_ = closer.Close()
	}
	if cerr := store.Close(); cerr != nil {
		logger.Warn("Failed to close storage", "error", cerr)
	}
	apperrors.Fatal(err)
}
