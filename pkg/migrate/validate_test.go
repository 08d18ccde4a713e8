package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestCreateSQLMigrationPassesValidation(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateSQLMigration(dir, "Add Coupon Index!")
	require.NoError(t, err)
	assert.Regexp(t, `^\d{14}_add_coupon_index\.sql$`, filepath.Base(path))
	assert.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationBumpsCollidingVersion(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := createSQLMigration(dir, "first", now)
	require.NoError(t, err)
	second, err := createSQLMigration(dir, "second", now)
	require.NoError(t, err)

	assert.Equal(t, "20260301100000_first.sql", filepath.Base(first))
	assert.Equal(t, "20260301100001_second.sql", filepath.Base(second))
	assert.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	_, err := CreateSQLMigration(t.TempDir(), " ?! ")
	assert.ErrorContains(t, err, "no usable characters")

	_, err = CreateSQLMigration("", "name")
	assert.Error(t, err)
}

func TestValidateDirRejectsMissingDown(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_broken.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644))

	assert.ErrorContains(t, ValidateDir(dir), "missing \"-- +goose Down\"")
}

func TestValidateDirRejectsBadName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.sql"), []byte(""), 0o644))

	assert.ErrorContains(t, ValidateDir(dir), "invalid migration filename")
}

func TestValidateDirMissing(t *testing.T) {
	assert.Error(t, ValidateDir(filepath.Join(t.TempDir(), "nope")))
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	ok := "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	migrations := fstest.MapFS{
		"20260101000000_a.sql":          {Data: []byte(ok)},
		"20260101000000_b.sql":          {Data: []byte(ok)},
		"20260102000000_unbalanced.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")},
		"20260103000000_reversed.sql":   {Data: []byte("-- +goose Down\nSELECT 1;\n-- +goose Up\nSELECT 1;\n")},
		"notes.txt":                     {Data: []byte("ignored")},
	}

	err := Validate(migrations)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
	assert.ErrorContains(t, err, "duplicate migration version 20260101000000")
	assert.ErrorContains(t, err, "StatementBegin")
	assert.ErrorContains(t, err, "Down section before Up")
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("20260105120400")
	require.NoError(t, err)
	assert.EqualValues(t, 20260105120400, v)

	for _, raw := range []string{"", "2026", "2026010512040x"} {
		_, err := ParseVersion(raw)
		assert.Error(t, err, raw)
	}
}
