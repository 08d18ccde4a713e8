package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neline/marketplace-backend/pkg/db/dbtest"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
)

func TestPutListAndRemove(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRepository(conn)
	svc, err := NewService(repo, repo)
	require.NoError(t, err)

	owner := uuid.New()
	line := dbtest.SeedLine(t, conn, 25000, 5, 1)

	require.NoError(t, svc.Put(ctx, owner, line.ID, 2))
	require.NoError(t, svc.Put(ctx, owner, line.ID, 3))

	lines, err := svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(3), lines[0].Amount)
	assert.Equal(t, int64(25000), lines[0].PricePerUnit)
	assert.Equal(t, int64(4), lines[0].Available)

	reqs, err := svc.Requests(ctx, owner)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, line.ID, reqs[0].PublicationItemID)
	assert.Equal(t, int64(3), reqs[0].Quantity)

	require.NoError(t, svc.Remove(ctx, owner, line.ID))
	assert.True(t, pkgerrors.IsCode(svc.Remove(ctx, owner, line.ID), pkgerrors.CodeNotFound))

	_, err = svc.Requests(ctx, owner)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPutRejectsInactivePublication(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRepository(conn)
	svc, err := NewService(repo, repo)
	require.NoError(t, err)

	line := dbtest.SeedLine(t, conn, 1000, 5, 0)
	require.NoError(t, conn.Model(line.Publication).Update("is_active", false).Error)

	err = svc.Put(ctx, uuid.New(), line.ID, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = svc.Put(ctx, uuid.New(), uuid.New(), 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	err = svc.Put(ctx, uuid.New(), line.ID, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestClearOnlyTouchesOwner(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRepository(conn)
	svc, err := NewService(repo, repo)
	require.NoError(t, err)

	line := dbtest.SeedLine(t, conn, 1000, 5, 0)
	alice, bob := uuid.New(), uuid.New()
	require.NoError(t, svc.Put(ctx, alice, line.ID, 1))
	require.NoError(t, svc.Put(ctx, bob, line.ID, 2))

	require.NoError(t, svc.Clear(ctx, alice))

	aliceLines, err := svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, aliceLines)
	bobLines, err := svc.List(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, bobLines, 1)
}
