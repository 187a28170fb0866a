// Package backup keeps rotating snapshots of a SQLite plan database.
package backup

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/daychain/internal/logger"
)

const (
	// DefaultKeep is how many snapshots survive rotation.
	DefaultKeep = 14
	DirName     = "backups"

	filePrefix  = "daychain-"
	fileSuffix  = ".db"
	stampLayout = "20060102-150405"
)

// Snapshot describes one backup file.
type Snapshot struct {
	Path    string
	TakenAt time.Time
	Size    int64
}

type Manager struct {
	dbPath string
	dir    string
	keep   int
	now    func() time.Time
}

// NewManager stores snapshots in a backups directory next to dbPath.
func NewManager(dbPath string) *Manager {
	return &Manager{
		dbPath: dbPath,
		dir:    filepath.Join(filepath.Dir(dbPath), DirName),
		keep:   DefaultKeep,
		now:    time.Now,
	}
}

func (m *Manager) Dir() string { return m.dir }

// Create writes a consistent copy of the database with VACUUM INTO and rotates old
// snapshots.
func (m *Manager) Create() (string, error) {
	path, err := m.snapshot()
	if err != nil {
		return "", err
	}
	if err := m.rotate(); err != nil {
		logger.Warn("Failed to rotate old backups", "dir", m.dir, "error", err)
	}
	return path, nil
}

func (m *Manager) snapshot() (string, error) {
	if _, err := os.Stat(m.dbPath); err != nil {
		return "", fmt.Errorf("database does not exist: %s", m.dbPath)
	}
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	stamp := m.now().UTC().Format(stampLayout)
	dest := filepath.Join(m.dir, filePrefix+stamp+fileSuffix)
	for n := 1; fileExists(dest); n++ {
		if n > 100 {
			return "", fmt.Errorf("failed to generate unique backup filename")
		}
		dest = filepath.Join(m.dir, fmt.Sprintf("%s%s-%d%s", filePrefix, stamp, n, fileSuffix))
	}

	src, err := sql.Open("sqlite", m.dbPath+"?mode=ro")
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer src.Close()
	if err := checkDB(src); err != nil {
		return "", fmt.Errorf("database appears to be corrupted: %w", err)
	}
	if _, err := src.Exec("VACUUM INTO ?", dest); err != nil {
		logger.Debug("VACUUM INTO failed, copying file", "error", err)
		src.Close()
		if err := copyFile(m.dbPath, dest); err != nil {
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	}
	logger.Debug("Backup created", "path", dest)
	return dest, nil
}

// List returns snapshots newest first. Files that do not look like snapshots are
// ignored.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var out []Snapshot
	for _, e := range entries {
		taken, ok := parseName(e.Name())
		if e.IsDir() || !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Snapshot{Path: filepath.Join(m.dir, e.Name()), TakenAt: taken, Size: info.Size()})
	}
	slices.SortFunc(out, func(a, b Snapshot) int {
		if c := b.TakenAt.Compare(a.TakenAt); c != 0 {
			return c
		}
		return strings.Compare(b.Path, a.Path)
	})
	return out, nil
}

func parseName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	if len(stamp) > len(stampLayout) {
		stamp = stamp[:len(stampLayout)]
	}
	t, err := time.Parse(stampLayout, stamp)
	return t, err == nil
}

func (m *Manager) rotate() error {
	snaps, err := m.List()
	if err != nil {
		return err
	}
	for i := m.keep; i < len(snaps); i++ {
		if err := os.Remove(snaps[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", snaps[i].Path, err)
		}
	}
	return nil
}

// Restore replaces the database with a snapshot. The current database is
// snapshotted first and that path is returned. The store must be closed.
func (m *Manager) Restore(path string) (string, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return "", fmt.Errorf("backup file is invalid: %w", err)
	}
	err = checkDB(db)
	db.Close()
	if err != nil {
		return "", fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var previous string
	if fileExists(m.dbPath) {
		if previous, err = m.snapshot(); err != nil {
			return "", fmt.Errorf("failed to back up current database before restore: %w", err)
		}
	}

	tmp := m.dbPath + ".restore.tmp"
	if err := copyFile(path, tmp); err != nil {
		return "", fmt.Errorf("failed to copy backup file: %w", err)
	}
	if err := os.Rename(tmp, m.dbPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to restore database: %w", err)
	}
	return previous, nil
}

func checkDB(db *sql.DB) error {
	var n int
	return db.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&n)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := out.ReadFrom(in); err != nil {
		return err
	}
	return out.Sync()
}
