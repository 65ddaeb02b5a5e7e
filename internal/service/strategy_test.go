package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/deaglo/apigateway/internal/repository"
	"github.com/deaglo/apigateway/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolp(v bool) *bool { return &v }

func legRequest(premium string) StrategyLegRequest {
	p := decimal.RequireFromString(premium)
	return StrategyLegRequest{IsCall: boolp(true), IsBought: boolp(true), Premium: &p, Leverage: f64(1), Strike: f64(2)}
}

func TestBuildLegs(t *testing.T) {
	_, err := buildLegs(nil)
	requireAppError(t, err, http.StatusBadRequest, "")

	_, err = buildLegs([]StrategyLegRequest{{IsBought: boolp(true)}})
	appErr := requireAppError(t, err, http.StatusBadRequest, "")
	assert.Equal(t, msgFieldRequired, appErr.Detail["legs"])

	_, err = buildLegs([]StrategyLegRequest{legRequest("-1")})
	appErr = requireAppError(t, err, http.StatusBadRequest, "")
	assert.Contains(t, appErr.Detail, "premium")

	legs, err := buildLegs([]StrategyLegRequest{legRequest("12.345")})
	require.NoError(t, err)
	assert.Equal(t, "12.35", legs[0].Premium.StringFixed(2))
}

func TestStrategyLifecycle(t *testing.T) {
	store := testutil.NewStore(t)
	svc := NewStrategyService(store)
	ctx := context.Background()
	user := testutil.User(t, store, "quant@example.com")
	other := testutil.User(t, store, "other@example.com")

	st, err := svc.Create(ctx, user, StrategyRequest{Name: " collar ", Legs: []StrategyLegRequest{legRequest("1"), legRequest("2")}})
	require.NoError(t, err)
	assert.Equal(t, "collar", st.Name)
	assert.Len(t, st.Legs, 2)

	all, err := svc.List(ctx, user)
	require.NoError(t, err)
	require.NotEmpty(t, all)
	assert.Equal(t, st.ID, all[0].ID, "own strategies come before the defaults")

	theirs, err := svc.List(ctx, other)
	require.NoError(t, err)
	for _, s := range theirs {
		assert.NotEqual(t, st.ID, s.ID)
	}
	_, err = svc.Get(ctx, other, st.ID)
	requireAppError(t, err, http.StatusNotFound, "")

	st, err = svc.Update(ctx, user, st.ID, StrategyRequest{Name: "collar v2", Legs: []StrategyLegRequest{legRequest("3")}})
	require.NoError(t, err)
	got, err := svc.Get(ctx, user, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "collar v2", got.Name)
	require.Len(t, got.Legs, 1)
	assert.True(t, got.Legs[0].Premium.Equal(decimal.NewFromInt(3)))

	require.NoError(t, svc.Delete(ctx, user, st.ID))
	_, err = svc.Get(ctx, user, st.ID)
	requireAppError(t, err, http.StatusNotFound, "")
}

func TestDefaultStrategiesAreReadOnly(t *testing.T) {
	store := testutil.NewStore(t)
	svc := NewStrategyService(store)
	ctx := context.Background()
	user := testutil.User(t, store, "quant@example.com")

	call, err := svc.Get(ctx, user, repository.StrategyCallID)
	require.NoError(t, err)
	assert.Equal(t, "Call", call.Name)

	_, err = svc.Update(ctx, user, repository.StrategyCallID, StrategyRequest{Name: "mine now", Legs: []StrategyLegRequest{legRequest("1")}})
	requireAppError(t, err, http.StatusNotFound, "")

	err = svc.Delete(ctx, user, repository.StrategyCallID)
	requireAppError(t, err, http.StatusNotFound, "")
}
