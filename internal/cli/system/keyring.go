package system

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/julianstephens/daychain/internal/cli"
	"github.com/julianstephens/daychain/internal/keyring"
	"github.com/julianstephens/daychain/internal/storage/postgres"
)

// KeyringSetCmd stores the database connection string in the OS keyring
type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string to store in the keyring."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	if !strings.HasPrefix(cmd.ConnectionString, "postgres://") &&
		!strings.HasPrefix(cmd.ConnectionString, "postgresql://") &&
		!strings.Contains(cmd.ConnectionString, "host=") {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}

	if _, err := postgres.ValidateConnString(cmd.ConnectionString); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		// The keyring is encrypted, so an embedded password is allowed here.
		ctx.Println("Warning: connection string contains embedded credentials.")
		ctx.Println("  It will be stored as-is in the encrypted OS keyring.")
	}

	if err := keyring.Default().Set(cmd.ConnectionString); err != nil {
		return err
	}
	ctx.Println("Connection string stored in OS keyring.")
	ctx.Println("  daychain will use it when --config is not a PostgreSQL URL.")
	return nil
}

// KeyringGetCmd prints the stored connection string with any password masked
type KeyringGetCmd struct{}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	connStr, err := keyring.Default().Get()
	if errors.Is(err, keyring.ErrNotFound) {
		return errors.New("no connection string found in keyring. Use 'daychain keyring set' to store one")
	}
	if err != nil {
		return err
	}
	ctx.Println(MaskPassword(connStr))
	return nil
}

type KeyringDeleteCmd struct{}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	err := keyring.Default().Delete()
	if errors.Is(err, keyring.ErrNotFound) {
		return errors.New("no connection string found in keyring")
	}
	if err != nil {
		return err
	}
	ctx.Println("Connection string deleted from OS keyring.")
	return nil
}

type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	creds := keyring.Default()
	if !creds.Available() {
		ctx.Println("OS keyring is not available on this system")
		return keyring.ErrKeyringUnavailable
	}
	ctx.Println("OS keyring is available")
	if _, err := creds.Get(); err == nil {
		ctx.Println("Connection string is stored in keyring")
	} else if errors.Is(err, keyring.ErrNotFound) {
		ctx.Println("No connection string stored in keyring")
	}
	return nil
}

// MaskPassword hides the password of a URL or key=value connection string.
func MaskPassword(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil || u.User == nil {
			return connStr
		}
		if _, ok := u.User.Password(); ok {
			// url.UserPassword would escape the mask to %2A.
			u.User = url.User(u.User.Username())
			user := u.User.String() + "@"
			return strings.Replace(u.String(), user, u.User.String()+":****@", 1)
		}
		return connStr
	}

	parts := strings.Fields(connStr)
	for i, p := range parts {
		if strings.HasPrefix(strings.ToLower(p), "password=") {
			parts[i] = "password=****"
		}
	}
	return strings.Join(parts, " ")
}
