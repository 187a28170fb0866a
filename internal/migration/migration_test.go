package migration

import (
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/daychain/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestApplyAndStatus(t *testing.T) {
	db := setupTestDB(t)
	files := fstest.MapFS{
		"001_first.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"002_second.sql": {Data: []byte("CREATE TABLE b (id INTEGER);")},
		"README.md":      {Data: []byte("ignored")},
	}
	runner := NewRunner(db, files, DriverSQLite)

	st, err := runner.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.Current != 0 || st.Latest != 2 || len(st.Pending) != 2 {
		t.Errorf("fresh status = %+v", st)
	}

	var lines []string
	n, err := runner.Apply(func(s string) { lines = append(lines, s) })
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if n != 2 {
		t.Errorf("applied %d, want 2", n)
	}
	if len(lines) == 0 {
		t.Error("expected progress messages")
	}

	version, err := runner.CurrentVersion()
	if err != nil || version != 2 {
		t.Errorf("CurrentVersion = %d, %v", version, err)
	}

	n, err = runner.Apply(nil)
	if err != nil || n != 0 {
		t.Errorf("second Apply = %d, %v; want 0, nil", n, err)
	}
}

func TestApplyFailureRollsBack(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, fstest.MapFS{
		"001_ok.sql":     {Data: []byte("CREATE TABLE ok (id INTEGER);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE oops (")},
	}, DriverSQLite)

	n, err := runner.Apply(nil)
	if err == nil {
		t.Fatal("expected an error from the broken migration")
	}
	if n != 1 {
		t.Errorf("applied %d before failure, want 1", n)
	}
	if v, _ := runner.CurrentVersion(); v != 1 {
		t.Errorf("version = %d, want 1", v)
	}
}

func TestMigrationsRejectsBadNames(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
		want  string
	}{
		{"no underscore", fstest.MapFS{"001.sql": {}}, "invalid migration filename"},
		{"not a number", fstest.MapFS{"abc_x.sql": {}}, "invalid version number"},
		{"zero version", fstest.MapFS{"000_x.sql": {}}, "at least 1"},
		{"duplicate", fstest.MapFS{"001_a.sql": {}, "1_b.sql": {}}, "duplicate migration version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(setupTestDB(t), tt.files, DriverSQLite).Migrations()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestValidateNewerDatabase(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, fstest.MapFS{"001_a.sql": {Data: []byte("SELECT 1;")}}, DriverSQLite)
	if _, err := runner.Apply(nil); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 9"); err != nil {
		t.Fatal(err)
	}
	if err := runner.Validate(); err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Errorf("Validate = %v", err)
	}
}

func TestEmbeddedSQLiteMigrationsApply(t *testing.T) {
	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(setupTestDB(t), sub, DriverSQLite)
	if _, err := runner.Apply(nil); err != nil {
		t.Fatalf("embedded migrations failed: %v", err)
	}
}

func TestPlaceholder(t *testing.T) {
	if got := NewRunner(nil, nil, DriverPostgres).placeholder(); got != "$1" {
		t.Errorf("postgres placeholder = %q", got)
	}
	if got := NewRunner(nil, nil, DriverSQLite).placeholder(); got != "?" {
		t.Errorf("sqlite placeholder = %q", got)
	}
}
