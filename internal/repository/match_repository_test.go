package repository_test

import (
	"context"
	"testing"

	"github.com/emberly-app/emberly/internal/db"
	"github.com/emberly-app/emberly/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMatchOncePerPair(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	first, created, err := repo.Create(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint64(1), first.UserAID)
	assert.Equal(t, uint64(2), first.UserBID)

	// reversed ordering resolves to the same row
	second, created, err := repo.Create(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetMatchEitherOrdering(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	created, _, err := repo.Create(ctx, 7, 3)
	require.NoError(t, err)

	m, err := repo.Get(ctx, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, created.ID, m.ID)

	m, err = repo.Get(ctx, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, created.ID, m.ID)
}

func TestPartnerIDs(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	_, _, err := repo.Create(ctx, 1, 2)
	require.NoError(t, err)
	_, _, err = repo.Create(ctx, 5, 1)
	require.NoError(t, err)
	_, _, err = repo.Create(ctx, 3, 4) // unrelated pair
	require.NoError(t, err)

	ids, err := repo.PartnerIDs(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 5}, ids)
}
