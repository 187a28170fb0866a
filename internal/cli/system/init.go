package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/daychain/internal/backup"
	"github.com/julianstephens/daychain/internal/cli"
	"github.com/julianstephens/daychain/internal/storage/postgres"
	"github.com/julianstephens/daychain/internal/storage/sqlite"
)

type InitCmd struct {
	Force bool `help:"Force reset by deleting the existing database before initialization."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	path := ctx.Store.GetConfigPath()
	if _, remote := ctx.Store.(*postgres.Store); c.Force && !remote && path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, local := ctx.Store.(*sqlite.Store); local {
				snap, err := backup.NewManager(path).Create()
				if err != nil {
					return fmt.Errorf("failed to back up existing database: %w", err)
				}
				ctx.Printf("Backed up existing database to: %s\n", snap)
			}
			// Close first to release the file lock.
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			ctx.Printf("Deleted existing database at: %s\n", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized daychain storage at: %s\n", path)
	return nil
}
