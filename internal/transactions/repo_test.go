package transactions

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neline/marketplace-backend/pkg/db/dbtest"
	"github.com/neline/marketplace-backend/pkg/enums"
)

func TestLockByPaymentIDRendersRowLock(t *testing.T) {
	conn, stmts := dbtest.DryRunPostgres(t)

	_, err := NewRepository(conn).LockByPaymentID(context.Background(), "pi_123")
	require.NoError(t, err)

	queries := stmts.All()
	require.NotEmpty(t, queries)
	lock := queries[0]
	assert.Contains(t, lock.SQL, "WHERE payment_id = $1")
	assert.True(t, strings.HasSuffix(lock.SQL, "FOR UPDATE"), lock.SQL)
	assert.NotContains(t, lock.SQL, "SKIP LOCKED")
	assert.Equal(t, "pi_123", lock.Vars[0])
}

func TestLockStaleRendersSkipLockedAtOrBeforeCutoff(t *testing.T) {
	conn, stmts := dbtest.DryRunPostgres(t)
	cutoff := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	_, err := NewRepository(conn).LockStale(context.Background(), enums.BuyerKindGuest, cutoff, 25)
	require.NoError(t, err)

	queries := stmts.All()
	require.Len(t, queries, 1)
	q := queries[0]
	assert.Contains(t, q.SQL, "created_at <= $3")
	assert.Contains(t, q.SQL, "ORDER BY created_at ASC")
	assert.True(t, strings.HasSuffix(q.SQL, "FOR UPDATE SKIP LOCKED"), q.SQL)
	require.Len(t, q.Vars, 4)
	assert.Equal(t, cutoff, q.Vars[2])
}
