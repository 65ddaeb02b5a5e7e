package repository_test

import (
	"context"
	"testing"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/deaglo/apigateway/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsRepeatable(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	// NewDB already seeded once; a second run upserts in place.
	require.NoError(t, repository.Seed(ctx, db))

	var statuses, currencies int64
	require.NoError(t, db.Model(&model.TypeStatus{}).Count(&statuses).Error)
	require.NoError(t, db.Model(&model.TypeCurrency{}).Count(&currencies).Error)
	assert.EqualValues(t, 5, statuses)
	assert.EqualValues(t, 8, currencies)

	store := repository.NewStore(db)
	strategies, err := store.ListStrategies(ctx, uuid.New())
	require.NoError(t, err)
	assert.Len(t, strategies, 6)
}

func TestSeedKeepsNullableLegColumns(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	forward, err := store.VisibleStrategy(ctx, uuid.New(), repository.StrategyForwardID)
	require.NoError(t, err)
	require.Len(t, forward.Legs, 1)
	assert.Nil(t, forward.Legs[0].IsCall)
	assert.Nil(t, forward.Legs[0].SortOrder)

	collar, err := store.VisibleStrategy(ctx, uuid.New(), repository.StrategyCollarID)
	require.NoError(t, err)
	require.Len(t, collar.Legs, 2)
	require.NotNil(t, collar.Legs[0].SortOrder)
	assert.Equal(t, 1, *collar.Legs[0].SortOrder)
	require.NotNil(t, collar.Legs[0].IsCall)
	assert.False(t, *collar.Legs[0].IsCall)
}
