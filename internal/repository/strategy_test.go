package repository_test

import (
	"context"
	"testing"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/deaglo/apigateway/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListStrategiesCustomFirst(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	user := testutil.User(t, store, "strat@example.com")
	other := testutil.User(t, store, "strat2@example.com")

	mine := &model.Strategy{
		Name:            "Mine",
		CreatedByUserID: &user.ID,
		Legs:            []model.StrategyLeg{{IsBought: true, Premium: decimal.Zero, Leverage: 1}},
	}
	require.NoError(t, store.CreateStrategy(ctx, mine))
	theirs := &model.Strategy{Name: "Theirs", CreatedByUserID: &other.ID}
	require.NoError(t, store.CreateStrategy(ctx, theirs))

	out, err := store.ListStrategies(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, out, 7)
	assert.Equal(t, "Mine", out[0].Name)
	for _, s := range out[1:] {
		assert.False(t, s.IsCustom())
	}

	_, err = store.VisibleStrategy(ctx, user.ID, theirs.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.VisibleStrategy(ctx, user.ID, repository.StrategySeagullID)
	assert.NoError(t, err)
	_, err = store.CustomStrategy(ctx, user.ID, repository.StrategySeagullID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReplaceStrategyLegsHidesOldLegs(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	user := testutil.User(t, store, "legs@example.com")
	st := &model.Strategy{
		Name:            "Legs",
		CreatedByUserID: &user.ID,
		Legs:            []model.StrategyLeg{{IsBought: true, Premium: decimal.Zero, Leverage: 1}},
	}
	require.NoError(t, store.CreateStrategy(ctx, st))
	oldLeg := st.Legs[0].ID

	st.Name = "Legs v2"
	require.NoError(t, store.ReplaceStrategyLegs(ctx, st, []model.StrategyLeg{
		{IsBought: false, Premium: decimal.NewFromFloat(0.5), Leverage: 0.5},
		{IsBought: true, Premium: decimal.Zero, Leverage: 1},
	}))

	got, err := store.CustomStrategy(ctx, user.ID, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "Legs v2", got.Name)
	require.Len(t, got.Legs, 2)
	for _, l := range got.Legs {
		assert.NotEqual(t, oldLeg, l.ID)
	}

	require.NoError(t, store.SoftDeleteStrategy(ctx, st.ID))
	_, err = store.CustomStrategy(ctx, user.ID, st.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
