package migrate

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, Validate(Embedded()))
	require.NoError(t, ValidateDir("migrations"))

	names, err := fs.Glob(Embedded(), "*.sql")
	require.NoError(t, err)
	assert.Len(t, names, 5)
}

func TestInventoryMigrationGuardsCounters(t *testing.T) {
	content := readMigration(t, "_create_publications.sql")

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS publication_items",
		"CHECK (amount >= 0)",
		"CHECK (reserved >= 0)",
		"CHECK (reserved <= amount)",
		"DROP TABLE IF EXISTS publication_items",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestTransactionMigrationConstraints(t *testing.T) {
	content := readMigration(t, "_create_transactions.sql")

	for _, sub := range []string{
		"CONSTRAINT ux_transactions_payment_id UNIQUE (payment_id)",
		"CONSTRAINT ux_transactions_coupon_id UNIQUE (coupon_id)",
		"'CREATED', 'REQUESTED', 'CANCELED', 'SUCCEDED', 'FAILED'",
		"ix_transactions_sweep ON transactions (buyer_kind, status, created_at)",
		"price_per_unit      bigint NOT NULL",
	} {
		assert.Contains(t, content, sub)
	}
}

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	migrations := Embedded()
	entries, err := fs.ReadDir(migrations, ".")
	require.NoError(t, err)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			data, err := fs.ReadFile(migrations, e.Name())
			require.NoError(t, err)
			return string(data)
		}
	}
	t.Fatalf("no migration ending in %s", suffix)
	return ""
}
