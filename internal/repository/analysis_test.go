package repository_test

import (
	"context"
	"testing"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/deaglo/apigateway/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStrategySimulation(t *testing.T, store *repository.Store, a *model.Analysis) *model.StrategySimulation {
	t.Helper()
	ctx := context.Background()
	env := &model.SimulationEnvironment{Name: "env", Volatility: 0.1}
	require.NoError(t, store.CreateEnvironment(ctx, env))
	sim := &model.StrategySimulation{
		Name:                    "sim",
		AnalysisID:              a.ID,
		SimulationEnvironmentID: env.ID,
		StartDate:               model.NewDate(mustDate(t, "2024-01-01")),
		EndDate:                 model.NewDate(mustDate(t, "2024-06-01")),
		Notional:                decimal.NewFromInt(1000),
	}
	require.NoError(t, store.CreateStrategySimulation(ctx, sim))
	require.NoError(t, store.CreateStrategyInstances(ctx, []model.StrategyInstance{{
		StrategySimulationID: sim.ID,
		StrategyLegID:        uuid.MustParse("211df86b-74f6-4a89-9c01-4ddecc477925"),
		InstanceGroup:        1,
	}}))
	return sim
}

func TestAnalysisOwnership(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	owner := testutil.User(t, store, "owner@example.com")
	other := testutil.User(t, store, "other@example.com")
	a := testutil.Analysis(t, store, owner, "mine")

	got, err := store.AnalysisForUser(ctx, owner.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Name)
	assert.Equal(t, "USD", got.BaseCurrency.Code)

	_, err = store.AnalysisForUser(ctx, other.ID, a.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSoftDeleteAnalysisCascades(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	user := testutil.User(t, store, "cascade@example.com")
	a := testutil.Analysis(t, store, user, "cascade")
	sim := newStrategySimulation(t, store, a)
	margin := &model.MarginSimulation{
		Name:                    "margin",
		AnalysisID:              a.ID,
		StrategySimulationID:    sim.ID,
		MinimumTransferAmount:   decimal.NewFromInt(10),
		InitialMarginPercentage: 0.1,
	}
	require.NoError(t, store.CreateMarginSimulation(ctx, margin))

	require.NoError(t, store.SoftDeleteAnalysis(ctx, a.ID))

	_, err := store.AnalysisForUser(ctx, user.ID, a.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.StrategySimulation(ctx, a.ID, sim.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.MarginSimulation(ctx, a.ID, margin.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	var live int64
	require.NoError(t, store.DB().Model(&model.StrategyInstance{}).
		Where("strategy_simulation_id = ? AND is_deleted = ?", sim.ID, false).
		Count(&live).Error)
	assert.Zero(t, live)

	// rows stay in place
	var total int64
	require.NoError(t, store.DB().Model(&model.Analysis{}).Where("id = ?", a.ID).Count(&total).Error)
	assert.EqualValues(t, 1, total)
}

func TestListAnalysesFiltersAndPages(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	user := testutil.User(t, store, "list@example.com")
	for _, name := range []string{"b", "a", "c"} {
		testutil.Analysis(t, store, user, name)
	}
	gone := testutil.Analysis(t, store, user, "gone")
	require.NoError(t, store.SoftDeleteAnalysis(ctx, gone.ID))

	out, total, err := store.ListAnalyses(ctx, user.ID, repository.AnalysisFilter{OrderBy: "name"}, repository.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Name)
	assert.Equal(t, "b", out[1].Name)

	out, total, err = store.ListAnalyses(ctx, user.ID, repository.AnalysisFilter{BaseCurrencies: []string{"GBP"}}, repository.Page{Number: 1, Size: 6})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, out)
}

func TestWorkspaceHidesDeletedAnalyses(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	user := testutil.User(t, store, "ws@example.com")
	keep := testutil.Analysis(t, store, user, "keep")
	drop := testutil.Analysis(t, store, user, "drop")

	ws := &model.Workspace{UserID: user.ID, Name: "desk", Analyses: []model.Analysis{*keep, *drop}}
	require.NoError(t, store.CreateWorkspace(ctx, ws))
	require.NoError(t, store.SoftDeleteAnalysis(ctx, drop.ID))

	got, err := store.WorkspaceForUser(ctx, user.ID, ws.ID)
	require.NoError(t, err)
	require.Len(t, got.Analyses, 1)
	assert.Equal(t, keep.ID, got.Analyses[0].ID)
}
