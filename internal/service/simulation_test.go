package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/deaglo/apigateway/internal/core"
	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/deaglo/apigateway/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var callLegID = uuid.MustParse("211df86b-74f6-4a89-9c01-4ddecc477925")

type simFixture struct {
	store   *repository.Store
	svc     *SimulationService
	queue   *fakeQueue
	storage *fakeStorage
	user    *model.User
	a       *model.Analysis
}

func newSimFixture(t *testing.T) *simFixture {
	store := testutil.NewStore(t)
	queue := &fakeQueue{}
	storage := &fakeStorage{}
	svc := NewSimulationService(store, queue, storage, fixedSpot(1.08), NewSpotHistoryService(store))
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	user := testutil.User(t, store, "sim@example.com")
	return &simFixture{
		store: store, svc: svc, queue: queue, storage: storage,
		user: user, a: testutil.Analysis(t, store, user, "sims"),
	}
}

func mustParseDate(t *testing.T, s string) *model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return &d
}

func f64(v float64) *float64 { return &v }

func strategyRequest(t *testing.T, name string, strategies ...uuid.UUID) StrategySimulationRequest {
	notional := decimal.NewFromInt(1_000_000)
	req := StrategySimulationRequest{
		Name:                  name,
		SimulationEnvironment: &EnvironmentRequest{Volatility: f64(0.1), Skew: f64(0), AppreciationPercent: f64(0)},
		StartDate:             mustParseDate(t, "2024-07-01"),
		EndDate:               mustParseDate(t, "2025-07-01"),
		Notional:              &notional,
		InitialSpotRate:       f64(1.08),
		InitialForwardRate:    f64(1.09),
	}
	for _, id := range strategies {
		id := id
		req.StrategyInstance = append(req.StrategyInstance, StrategyInstanceRequest{
			StrategyID: &id,
			Legs:       []InstanceLegRequest{{StrategyLegID: &callLegID, StrikeOverride: f64(-4)}},
		})
	}
	return req
}

func TestCreateStrategySimulationEnqueues(t *testing.T) {
	f := newSimFixture(t)
	ctx := context.Background()

	view, err := f.svc.CreateStrategy(ctx, f.user, f.a.ID, strategyRequest(t, "call x2", repository.StrategyCallID, repository.StrategyCallID))
	require.NoError(t, err)
	assert.Equal(t, model.SimulationEnqueued, view.SimulationStatus)
	require.Len(t, view.Instances, 2)
	assert.Nil(t, view.SpotHistory, "future start dates carry no history")

	require.Len(t, f.queue.messages, 1)
	msg := f.queue.messages[0]
	assert.Equal(t, core.TypeStrategy, msg.Type)
	assert.Equal(t, view.ID.String(), msg.GroupID)
	assert.Equal(t, view.ResultID.String(), msg.ResultID)

	groups := core.GroupInstances(view.Instances)
	assert.Len(t, groups, 2)
}

func TestCreateStrategySimulationRollsBackOnEnqueueFailure(t *testing.T) {
	f := newSimFixture(t)
	f.queue.err = errors.New("queue down")
	ctx := context.Background()

	_, err := f.svc.CreateStrategy(ctx, f.user, f.a.ID, strategyRequest(t, "doomed", repository.StrategyCallID))
	require.Error(t, err)

	sims, err := f.store.ListStrategySimulations(ctx, f.a.ID)
	require.NoError(t, err)
	assert.Empty(t, sims)
}

func TestCreateStrategySimulationUnknownStrategy(t *testing.T) {
	f := newSimFixture(t)
	_, err := f.svc.CreateStrategy(context.Background(), f.user, f.a.ID, strategyRequest(t, "bad", uuid.New()))
	requireAppError(t, err, http.StatusNotFound, MsgObjectNotFound)
	assert.Empty(t, f.queue.messages)
}

func TestCreateStrategySimulationForeignAnalysis(t *testing.T) {
	f := newSimFixture(t)
	other := testutil.User(t, f.store, "intruder@example.com")
	_, err := f.svc.CreateStrategy(context.Background(), other, f.a.ID, strategyRequest(t, "x", repository.StrategyCallID))
	requireAppError(t, err, http.StatusNotFound, MsgObjectNotFound)
}

func TestUpdateStrategySimulationRotatesResult(t *testing.T) {
	f := newSimFixture(t)
	ctx := context.Background()
	created, err := f.svc.CreateStrategy(ctx, f.user, f.a.ID, strategyRequest(t, "v1", repository.StrategyCallID))
	require.NoError(t, err)

	updated, err := f.svc.UpdateStrategy(ctx, f.user, f.a.ID, created.ID, strategyRequest(t, "v2", repository.StrategyCallID, repository.StrategyCallID))
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Name)
	assert.NotEqual(t, created.ResultID, updated.ResultID)
	assert.Len(t, updated.Instances, 2)
	require.Len(t, f.queue.messages, 2)
	assert.Equal(t, updated.ResultID.String(), f.queue.messages[1].ResultID)
}

func TestStrategySimulationViewEmbedsHistory(t *testing.T) {
	f := newSimFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.InsertSpotRates(ctx, []model.SpotHistoryData{
		{Date: *mustParseDate(t, "2024-01-15"), Currency: "EUR", Rate: 0.92},
	}))
	req := strategyRequest(t, "past", repository.StrategyCallID)
	req.StartDate = mustParseDate(t, "2024-05-01")

	view, err := f.svc.CreateStrategy(ctx, f.user, f.a.ID, req)
	require.NoError(t, err)
	require.Len(t, view.SpotHistory, 1)
	assert.InDelta(t, 0.92, view.SpotHistory[0].Rate, 1e-9)
}

func TestCreateMarginSimulation(t *testing.T) {
	f := newSimFixture(t)
	ctx := context.Background()
	strategy, err := f.svc.CreateStrategy(ctx, f.user, f.a.ID, strategyRequest(t, "base", repository.StrategyCallID))
	require.NoError(t, err)

	mta := decimal.NewFromInt(50_000)
	req := MarginSimulationRequest{
		Name:                      "margin",
		StrategySimulationID:      &strategy.ID,
		MinimumTransferAmount:     &mta,
		InitialMarginPercentage:   f64(0.1),
		VariationMarginPercentage: f64(0.05),
	}
	m, err := f.svc.CreateMargin(ctx, f.user, f.a.ID, req)
	require.NoError(t, err)
	assert.Equal(t, strategy.ID, m.StrategySimulationID)

	last := f.queue.messages[len(f.queue.messages)-1]
	assert.Equal(t, core.TypeMargin, last.Type)
	assert.Equal(t, strategy.ID.String(), last.GroupID)

	missing := uuid.New()
	req.StrategySimulationID = &missing
	_, err = f.svc.CreateMargin(ctx, f.user, f.a.ID, req)
	requireAppError(t, err, http.StatusNotFound, MsgAnalysisNotFound)
}

func harvest(t *testing.T, pairs ...any) []model.HarvestEntry {
	var out []model.HarvestEntry
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, model.HarvestEntry{Date: *mustParseDate(t, pairs[i].(string)), Amount: pairs[i+1].(float64)})
	}
	return out
}

func TestValidateHarvest(t *testing.T) {
	cases := []struct {
		name    string
		entries []model.HarvestEntry
		msg     string
	}{
		{"single entry", harvest(t, "2024-01-01", -100.0), MsgHarvestShape},
		{"no harvest", harvest(t, "2024-01-01", -100.0, "2024-06-01", -5.0), MsgHarvestShape},
		{"no deployment", harvest(t, "2024-01-01", 100.0, "2024-06-01", 5.0), MsgHarvestShape},
		{"too short", harvest(t, "2024-01-01", -100.0, "2024-01-20", 120.0), MsgHarvestSpan},
		{"valid", harvest(t, "2024-01-01", -100.0, "2024-03-01", 120.0), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateHarvest(tc.entries)
			if tc.msg == "" {
				assert.NoError(t, err)
				return
			}
			requireAppError(t, err, http.StatusBadRequest, tc.msg)
		})
	}
}

func hedgeRequest(t *testing.T) HedgeSimulationRequest {
	return HedgeSimulationRequest{
		Name:                  str("irr"),
		SimulationEnvironment: &EnvironmentRequest{Volatility: f64(0.1), Skew: f64(0), AppreciationPercent: f64(0)},
		Harvest:               harvest(t, "2024-01-01", -1000.0, "2024-12-31", 1200.0),
	}
}

func TestCreateHedgeSimulationUploadsHarvest(t *testing.T) {
	f := newSimFixture(t)
	ctx := context.Background()

	h, err := f.svc.CreateHedge(ctx, f.user, f.a.ID, hedgeRequest(t))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", h.StartDate.String())
	assert.Equal(t, "2024-12-31", h.EndDate.String())

	body, ok := f.storage.uploads[h.FilePath(f.user.ID)]
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(string(body), "date,amount\n2024-01-01,-1000\n"))

	require.Len(t, f.queue.messages, 1)
	assert.Equal(t, core.TypeHedge, f.queue.messages[0].Type)
	assert.Equal(t, h.ResultID.String(), f.queue.messages[0].ResultID)
}

func TestUpdateHedgeRenameKeepsResult(t *testing.T) {
	f := newSimFixture(t)
	ctx := context.Background()
	h, err := f.svc.CreateHedge(ctx, f.user, f.a.ID, hedgeRequest(t))
	require.NoError(t, err)

	renamed, err := f.svc.UpdateHedge(ctx, f.user, f.a.ID, h.ID, HedgeSimulationRequest{Name: str("renamed")}, true)
	require.NoError(t, err)
	assert.Equal(t, "renamed", renamed.Name)
	assert.Equal(t, h.ResultID, renamed.ResultID)
	assert.Len(t, f.queue.messages, 1)

	rerun, err := f.svc.UpdateHedge(ctx, f.user, f.a.ID, h.ID, HedgeSimulationRequest{FwdRates: [][]float64{{1.1, 1.2, 1.3}, {1.1, 1.2, 1.3}, {1.1, 1.2, 1.3}}}, true)
	require.NoError(t, err)
	assert.NotEqual(t, h.ResultID, rerun.ResultID)
	assert.Len(t, f.queue.messages, 2)
}

func TestDeleteHedgeUnknown(t *testing.T) {
	f := newSimFixture(t)
	err := f.svc.DeleteHedge(context.Background(), f.user, f.a.ID, uuid.New())
	requireAppError(t, err, http.StatusNotFound, MsgAnalysisNotFound)
}

func TestStrategySimulationRejectsOutOfRangeInputs(t *testing.T) {
	cases := []struct {
		field string
		edit  func(r *StrategySimulationRequest)
	}{
		{"simulationEnvironment.volatility", func(r *StrategySimulationRequest) { r.SimulationEnvironment.Volatility = f64(1.5) }},
		{"simulationEnvironment.volatility", func(r *StrategySimulationRequest) { r.SimulationEnvironment.Volatility = f64(-0.1) }},
		{"simulationEnvironment.skew", func(r *StrategySimulationRequest) { r.SimulationEnvironment.Skew = f64(0.2) }},
		{"simulationEnvironment.skew", func(r *StrategySimulationRequest) { r.SimulationEnvironment.Skew = f64(-0.11) }},
		{"simulationEnvironment.appreciationPercent", func(r *StrategySimulationRequest) { r.SimulationEnvironment.AppreciationPercent = f64(1.01) }},
		{"spread", func(r *StrategySimulationRequest) { r.Spread = f64(2) }},
		{"spread", func(r *StrategySimulationRequest) { r.Spread = f64(-0.5) }},
		{"notional", func(r *StrategySimulationRequest) { n := decimal.NewFromInt(-1); r.Notional = &n }},
		{"strategyInstance[0].legs[0].premiumOverride", func(r *StrategySimulationRequest) { r.StrategyInstance[0].Legs[0].PremiumOverride = f64(-1) }},
		{"strategyInstance[0].legs[0].leverageOverride", func(r *StrategySimulationRequest) { r.StrategyInstance[0].Legs[0].LeverageOverride = f64(1.2) }},
		{"strategyInstance[0].legs[0].strikeOverride", func(r *StrategySimulationRequest) { r.StrategyInstance[0].Legs[0].StrikeOverride = f64(-101) }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			f := newSimFixture(t)
			req := strategyRequest(t, "bounds", repository.StrategyCallID)
			tc.edit(&req)

			_, err := f.svc.CreateStrategy(context.Background(), f.user, f.a.ID, req)
			appErr := requireAppError(t, err, http.StatusBadRequest, "")
			assert.Contains(t, appErr.Detail, tc.field)
			assert.Empty(t, f.queue.messages)

			sims, err := f.store.ListStrategySimulations(context.Background(), f.a.ID)
			require.NoError(t, err)
			assert.Empty(t, sims)
		})
	}
}

func TestStrategySimulationAcceptsBoundaryInputs(t *testing.T) {
	f := newSimFixture(t)
	req := strategyRequest(t, "edges", repository.StrategyCallID)
	req.SimulationEnvironment = &EnvironmentRequest{Volatility: f64(1), Skew: f64(-0.1), AppreciationPercent: f64(-1)}
	req.Spread = f64(0)
	zero := decimal.Zero
	req.Notional = &zero
	req.StrategyInstance[0].Legs[0].StrikeOverride = f64(100)
	req.StrategyInstance[0].Legs[0].LeverageOverride = f64(1)

	_, err := f.svc.CreateStrategy(context.Background(), f.user, f.a.ID, req)
	require.NoError(t, err)
	assert.Len(t, f.queue.messages, 1)
}

func TestUpdateStrategySimulationRejectsOutOfRangeInputs(t *testing.T) {
	f := newSimFixture(t)
	ctx := context.Background()
	created, err := f.svc.CreateStrategy(ctx, f.user, f.a.ID, strategyRequest(t, "v1", repository.StrategyCallID))
	require.NoError(t, err)

	req := strategyRequest(t, "v2", repository.StrategyCallID)
	req.SimulationEnvironment.Volatility = f64(3)
	_, err = f.svc.UpdateStrategy(ctx, f.user, f.a.ID, created.ID, req)
	appErr := requireAppError(t, err, http.StatusBadRequest, "")
	assert.Contains(t, appErr.Detail, "simulationEnvironment.volatility")
	assert.Len(t, f.queue.messages, 1)
}

func TestMarginSimulationRejectsOutOfRangeInputs(t *testing.T) {
	cases := []struct {
		field string
		edit  func(r *MarginSimulationRequest)
	}{
		{"minimumTransferAmount", func(r *MarginSimulationRequest) { v := decimal.NewFromInt(-10); r.MinimumTransferAmount = &v }},
		{"initialMarginPercentage", func(r *MarginSimulationRequest) { r.InitialMarginPercentage = f64(0) }},
		{"initialMarginPercentage", func(r *MarginSimulationRequest) { r.InitialMarginPercentage = f64(1.5) }},
		{"variationMarginPercentage", func(r *MarginSimulationRequest) { r.VariationMarginPercentage = f64(0.0005) }},
		{"variationMarginPercentage", func(r *MarginSimulationRequest) { r.VariationMarginPercentage = f64(2) }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			f := newSimFixture(t)
			ctx := context.Background()
			strategy, err := f.svc.CreateStrategy(ctx, f.user, f.a.ID, strategyRequest(t, "base", repository.StrategyCallID))
			require.NoError(t, err)

			mta := decimal.NewFromInt(50_000)
			req := MarginSimulationRequest{
				Name:                      "margin",
				StrategySimulationID:      &strategy.ID,
				MinimumTransferAmount:     &mta,
				InitialMarginPercentage:   f64(0.1),
				VariationMarginPercentage: f64(0.05),
			}
			tc.edit(&req)

			_, err = f.svc.CreateMargin(ctx, f.user, f.a.ID, req)
			appErr := requireAppError(t, err, http.StatusBadRequest, "")
			assert.Contains(t, appErr.Detail, tc.field)
			assert.Len(t, f.queue.messages, 1, "only the strategy simulation is queued")
		})
	}
}

func TestHedgeSimulationRejectsOutOfRangeInputs(t *testing.T) {
	row := []float64{1.1, 1.2, 1.3}
	cases := []struct {
		field string
		edit  func(r *HedgeSimulationRequest)
	}{
		{"simulationEnvironment.volatility", func(r *HedgeSimulationRequest) { r.SimulationEnvironment.Volatility = f64(1.01) }},
		{"simulationEnvironment.appreciationPercent", func(r *HedgeSimulationRequest) { r.SimulationEnvironment.AppreciationPercent = f64(-2) }},
		{"fwdRates", func(r *HedgeSimulationRequest) { r.FwdRates = [][]float64{row, row} }},
		{"fwdRates[1]", func(r *HedgeSimulationRequest) { r.FwdRates = [][]float64{row, {1.1}, row} }},
		{"fwdRates[2][0]", func(r *HedgeSimulationRequest) { r.FwdRates = [][]float64{row, row, {10001, 1, 1}} }},
		{"fwdRates[0][2]", func(r *HedgeSimulationRequest) { r.FwdRates = [][]float64{{1, 1, -10001}, row, row} }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			f := newSimFixture(t)
			req := hedgeRequest(t)
			tc.edit(&req)

			_, err := f.svc.CreateHedge(context.Background(), f.user, f.a.ID, req)
			appErr := requireAppError(t, err, http.StatusBadRequest, "")
			assert.Contains(t, appErr.Detail, tc.field)
			assert.Empty(t, f.queue.messages)
			assert.Empty(t, f.storage.uploads)
		})
	}
}

func TestUpdateHedgeRejectsOutOfRangeInputs(t *testing.T) {
	f := newSimFixture(t)
	ctx := context.Background()
	h, err := f.svc.CreateHedge(ctx, f.user, f.a.ID, hedgeRequest(t))
	require.NoError(t, err)

	env := &EnvironmentRequest{Volatility: f64(0.1), Skew: f64(0.5), AppreciationPercent: f64(0)}
	_, err = f.svc.UpdateHedge(ctx, f.user, f.a.ID, h.ID, HedgeSimulationRequest{SimulationEnvironment: env}, true)
	appErr := requireAppError(t, err, http.StatusBadRequest, "")
	assert.Contains(t, appErr.Detail, "simulationEnvironment.skew")

	_, err = f.svc.UpdateHedge(ctx, f.user, f.a.ID, h.ID, HedgeSimulationRequest{FwdRates: [][]float64{{1e6, 0, 0}, {0, 0, 0}, {0, 0, 0}}}, true)
	appErr = requireAppError(t, err, http.StatusBadRequest, "")
	assert.Contains(t, appErr.Detail, "fwdRates[0][0]")

	got, err := f.store.HedgeSimulation(ctx, f.a.ID, h.ID)
	require.NoError(t, err)
	assert.Equal(t, h.ResultID, got.ResultID)
	assert.Len(t, f.queue.messages, 1)
}

func TestCoreMessageMatchesQueuedJob(t *testing.T) {
	f := newSimFixture(t)
	ctx := context.Background()
	strategy, err := f.svc.CreateStrategy(ctx, f.user, f.a.ID, strategyRequest(t, "base", repository.StrategyCallID))
	require.NoError(t, err)
	h, err := f.svc.CreateHedge(ctx, f.user, f.a.ID, hedgeRequest(t))
	require.NoError(t, err)

	msg, err := f.svc.CoreMessage(ctx, f.user, repository.KindStrategy, f.a.ID, strategy.ID)
	require.NoError(t, err)
	assert.Equal(t, f.queue.messages[0], msg)

	msg, err = f.svc.CoreMessage(ctx, f.user, repository.KindHedge, f.a.ID, h.ID)
	require.NoError(t, err)
	assert.Equal(t, f.queue.messages[1], msg)
	assert.Len(t, f.queue.messages, 2)

	_, err = f.svc.CoreMessage(ctx, f.user, repository.KindMargin, f.a.ID, h.ID)
	requireAppError(t, err, http.StatusNotFound, MsgSimulationNotFound)
}
