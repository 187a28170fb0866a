// Package keyring keeps the PostgreSQL connection string out of config files.
package keyring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/daychain/internal/constants"
)

var (
	// ErrNotFound is returned when no credentials are found in the keyring
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Source names where a connection string came from.
type Source string

const (
	SourceEnv     Source = "env"
	SourceKeyring Source = "keyring"
)

// Credentials addresses one keyring entry.
type Credentials struct {
	Service string
	User    string
}

// Default is the entry used by the CLI.
func Default() Credentials {
	return Credentials{Service: constants.AppName, User: constants.DefaultKeyringUser}
}

// Get returns ErrNotFound if no connection string is stored.
func (c Credentials) Get() (string, error) {
	connStr, err := keyring.Get(c.Service, c.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return connStr, nil
}

func (c Credentials) Set(connStr string) error {
	if strings.TrimSpace(connStr) == "" {
		return errors.New("connection string cannot be empty")
	}
	if err := keyring.Set(c.Service, c.User, connStr); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

func (c Credentials) Delete() error {
	err := keyring.Delete(c.Service, c.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// Available is a best-effort probe: a read that fails with anything but "not found"
// means there is no usable keyring.
func (c Credentials) Available() bool {
	_, err := keyring.Get(c.Service, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

// Resolve returns the connection string from the DAYCHAIN_DB_CONNECTION environment
// variable, falling back to the keyring.
func (c Credentials) Resolve(getenv func(string) string) (string, Source, error) {
	if getenv != nil {
		if v := strings.TrimSpace(getenv(constants.EnvDBConnection)); v != "" {
			return v, SourceEnv, nil
		}
	}
	connStr, err := c.Get()
	if err != nil {
		return "", "", err
	}
	return connStr, SourceKeyring, nil
}
