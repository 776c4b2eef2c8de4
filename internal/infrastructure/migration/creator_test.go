package migration

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roovies/concert-reservation/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add seats table", "add_seats_table"},
		{"Add-Seats-Table", "add_seats_table"},
		{"ADD_SEATS_TABLE", "add_seats_table"},
		{"add__seats__table", "add_seats_table"},
		{"Add Seats 123", "add_seats_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("-- test"), 0o644))
	}
}

func TestCreateMigration(t *testing.T) {
	t.Run("first migration in empty dir is 000001", func(t *testing.T) {
		dir := t.TempDir()

		mf, err := CreateMigration(dir, "add seat grades", "Seat grade lookup table")
		require.NoError(t, err)

		assert.Equal(t, "000001", mf.Version)
		assert.Equal(t, "add_seat_grades", mf.Name)
		assert.Equal(t, filepath.Join(dir, "000001_add_seat_grades.up.sql"), mf.UpPath)
		assert.Equal(t, filepath.Join(dir, "000001_add_seat_grades.down.sql"), mf.DownPath)

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "add_seat_grades")
		assert.Contains(t, string(up), "Seat grade lookup table")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(down), "-- revert add_seat_grades"))
	})

	t.Run("continues after highest existing version", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir,
			"000001_init.up.sql", "000001_init.down.sql",
			"000007_outbox.up.sql", "000007_outbox.down.sql",
		)

		mf, err := CreateMigration(dir, "coupons", "")
		require.NoError(t, err)
		assert.Equal(t, "000008", mf.Version)
	})

	t.Run("creates missing directory", func(t *testing.T) {
		nested := filepath.Join(t.TempDir(), "nested", "migrations")

		_, err := CreateMigration(nested, "test", "test migration")
		require.NoError(t, err)

		info, err := os.Stat(nested)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects name without usable characters", func(t *testing.T) {
		_, err := CreateMigration(t.TempDir(), "!!!", "")
		require.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("orders by version", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir,
			"000010_ten.up.sql", "000010_ten.down.sql",
			"000002_two.up.sql", "000002_two.down.sql",
			"000001_one.up.sql", "000001_one.down.sql",
		)

		got, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_one", "000002_two", "000010_ten"}, got)
	})

	t.Run("empty directory", func(t *testing.T) {
		got, err := ListMigrations(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("nonexistent directory", func(t *testing.T) {
		got, err := ListMigrations("/nonexistent/path/to/migrations")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("ignores non-migration files and directories", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "000001_init.up.sql", "000001_init.down.sql", "README.md", "embed.go", ".gitkeep")
		require.NoError(t, os.Mkdir(filepath.Join(dir, "000002_dir.up.sql"), 0o755))

		got, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_init"}, got)
	})
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups := map[string]bool{}
	downs := map[string]bool{}
	err := fs.WalkDir(migrations.FS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		m := migrationFile.FindStringSubmatch(d.Name())
		require.NotNil(t, m, "unexpected file %s", d.Name())
		if m[3] == "up" {
			ups[m[1]+"_"+m[2]] = true
		} else {
			downs[m[1]+"_"+m[2]] = true
		}
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}
