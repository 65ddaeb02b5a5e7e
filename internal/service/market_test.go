package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/deaglo/apigateway/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMarketUser(t *testing.T) (*repository.Store, *MarketService, *model.User) {
	store := testutil.NewStore(t)
	svc := NewMarketService(store)
	u := testutil.User(t, store, "market@example.com")
	require.NoError(t, svc.InitUser(context.Background(), nil, u.ID))
	return store, svc, u
}

func intPtr(n int) *int { return &n }

func TestDefaultMarketMissing(t *testing.T) {
	store := testutil.NewStore(t)
	u := testutil.User(t, store, "bare@example.com")
	_, err := NewMarketService(store).Default(context.Background(), u.ID)
	requireAppError(t, err, http.StatusNotFound, "Default market not found")
}

func TestDefaultToolsCannotBeDeleted(t *testing.T) {
	_, svc, u := newMarketUser(t)
	ctx := context.Background()
	m, err := svc.Default(ctx, u.ID)
	require.NoError(t, err)

	err = svc.DeleteFwdEfficiency(ctx, u.ID, m.FwdEfficiency.ID)
	requireAppError(t, err, http.StatusBadRequest, "Cannot delete default FWD Efficiency")
	err = svc.DeleteSpotHistory(ctx, u.ID, m.SpotHistory.ID)
	requireAppError(t, err, http.StatusBadRequest, "Cannot delete default Spot History")
	err = svc.DeleteFxMovement(ctx, u.ID, m.FxMovement.ID)
	requireAppError(t, err, http.StatusBadRequest, "Cannot delete default FX Movement")
}

func TestSpotHistoryCreateUpdateDelete(t *testing.T) {
	_, svc, u := newMarketUser(t)
	ctx := context.Background()

	_, err := svc.CreateSpotHistory(ctx, u.ID, PairToolRequest{Name: str("partial")})
	appErr := requireAppError(t, err, http.StatusBadRequest, "")
	assert.Contains(t, appErr.Detail, "baseCurrency")
	assert.Contains(t, appErr.Detail, "durationMonths")

	sh, err := svc.CreateSpotHistory(ctx, u.ID, PairToolRequest{
		Name:            str("GBP watch"),
		BaseCurrency:    &CurrencyRef{Code: "USD", CountryName: "United States"},
		ForeignCurrency: &CurrencyRef{Code: "GBP", CountryName: "United Kingdom"},
		DurationMonths:  intPtr(6),
	})
	require.NoError(t, err)
	assert.Equal(t, "GBP", sh.ForeignCurrency.Code)
	assert.False(t, sh.IsDefault)

	layered := true
	updated, err := svc.UpdateSpotHistory(ctx, u.ID, sh.ID, PairToolRequest{Layered: &layered}, true)
	require.NoError(t, err)
	assert.True(t, updated.Layered)
	assert.Equal(t, 6, updated.Duration)

	_, err = svc.UpdateSpotHistory(ctx, u.ID, sh.ID, PairToolRequest{Layered: &layered}, false)
	requireAppError(t, err, http.StatusBadRequest, "")

	require.NoError(t, svc.DeleteSpotHistory(ctx, u.ID, sh.ID))
	_, err = svc.GetSpotHistory(ctx, u.ID, sh.ID)
	requireAppError(t, err, http.StatusNotFound, "")
}

func TestSpotHistoryUnknownCurrency(t *testing.T) {
	_, svc, u := newMarketUser(t)
	_, err := svc.CreateFwdEfficiency(context.Background(), u.ID, PairToolRequest{
		BaseCurrency:    &CurrencyRef{Code: "USD", CountryName: "United States"},
		ForeignCurrency: &CurrencyRef{Code: "EUR", CountryName: "Atlantis"},
		DurationMonths:  intPtr(3),
	})
	appErr := requireAppError(t, err, http.StatusBadRequest, "")
	assert.Equal(t, "Currency not found.", appErr.Detail["foreignCurrency"])
}

func TestFxMovementReplacesPairs(t *testing.T) {
	_, svc, u := newMarketUser(t)
	ctx := context.Background()
	fm, err := svc.CreateFxMovement(ctx, u.ID, FxMovementRequest{
		Name: str("majors"),
		CurrencyPairs: []CurrencyPairRequest{
			{BaseCurrency: &CurrencyRef{Code: "USD", CountryName: "United States"}, ForeignCurrency: &CurrencyRef{Code: "JPY", CountryName: "Japan"}},
			{BaseCurrency: &CurrencyRef{Code: "USD", CountryName: "United States"}, ForeignCurrency: &CurrencyRef{Code: "CHF", CountryName: "Switzerland"}},
		},
		DurationMonths: intPtr(12),
	})
	require.NoError(t, err)
	require.Len(t, fm.CurrencyPairs, 2)

	_, err = svc.UpdateFxMovement(ctx, u.ID, fm.ID, FxMovementRequest{
		CurrencyPairs: []CurrencyPairRequest{
			{BaseCurrency: &CurrencyRef{Code: "USD", CountryName: "United States"}, ForeignCurrency: &CurrencyRef{Code: "BRL", CountryName: "Brazil"}},
		},
	}, true)
	require.NoError(t, err)

	reloaded, err := svc.GetFxMovement(ctx, u.ID, fm.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.CurrencyPairs, 1)
	assert.Equal(t, "BRL", reloaded.CurrencyPairs[0].ForeignCurrency.Code)
	assert.Equal(t, 12, reloaded.Duration)
}

func TestMarketToolsAreScopedToOwner(t *testing.T) {
	store, svc, u := newMarketUser(t)
	ctx := context.Background()
	other := testutil.User(t, store, "other@example.com")
	m, err := svc.Default(ctx, u.ID)
	require.NoError(t, err)

	_, err = svc.GetFwdEfficiency(ctx, other.ID, m.FwdEfficiency.ID)
	requireAppError(t, err, http.StatusNotFound, "")
	_, err = svc.GetFxMovement(ctx, u.ID, uuid.New())
	requireAppError(t, err, http.StatusNotFound, "")
}

func seedRates(t *testing.T, store *repository.Store, rows map[string]map[string]float64) {
	t.Helper()
	var data []model.SpotHistoryData
	for day, rates := range rows {
		d, err := model.ParseDate(day)
		require.NoError(t, err)
		for code, rate := range rates {
			data = append(data, model.SpotHistoryData{Date: d, Currency: code, Rate: rate})
		}
	}
	require.NoError(t, store.InsertSpotRates(context.Background(), data))
}

func TestSpotHistoryRatesCombinePairs(t *testing.T) {
	store := testutil.NewStore(t)
	seedRates(t, store, map[string]map[string]float64{
		"2024-03-01": {"EUR": 0.9, "GBP": 0.8},
		"2024-03-04": {"EUR": 0.92, "GBP": 0.8},
		"2024-03-05": {"EUR": 0.93},
	})
	svc := NewSpotHistoryService(store)
	ctx := context.Background()
	from, _ := model.ParseDate("2024-03-01")
	to, _ := model.ParseDate("2024-03-31")

	usdEur, err := svc.Rates(ctx, "USD", "EUR", from, to)
	require.NoError(t, err)
	require.Len(t, usdEur, 3)
	assert.Equal(t, "2024-03-05", usdEur[0].Date.String())
	assert.InDelta(t, 0.93, usdEur[0].Rate, 1e-9)

	eurUsd, err := svc.Rates(ctx, "EUR", "USD", from, to)
	require.NoError(t, err)
	require.Len(t, eurUsd, 3)
	assert.InDelta(t, 1/0.93, eurUsd[0].Rate, 1e-9)

	gbpEur, err := svc.Rates(ctx, "GBP", "EUR", from, to)
	require.NoError(t, err)
	require.Len(t, gbpEur, 2, "days without both currencies are dropped")
	assert.InDelta(t, 0.92/0.8, gbpEur[0].Rate, 1e-9)

	sold, err := svc.PairRates(ctx, "USD", "EUR", from, to, true)
	require.NoError(t, err)
	assert.Equal(t, eurUsd, sold)
}

func TestSpotHistoryLastMonths(t *testing.T) {
	store := testutil.NewStore(t)
	seedRates(t, store, map[string]map[string]float64{
		"2024-01-10": {"EUR": 0.91},
		"2024-05-10": {"EUR": 0.95},
	})
	svc := NewSpotHistoryService(store)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	rates, err := svc.LastMonths(context.Background(), "USD", "EUR", 3)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, "2024-05-10", rates[0].Date.String())
}

func TestSpotHistoryQuery(t *testing.T) {
	store := testutil.NewStore(t)
	seedRates(t, store, map[string]map[string]float64{"2024-03-01": {"EUR": 0.9}})
	svc := NewSpotHistoryService(store)
	start, _ := model.ParseDate("2024-02-01")
	end, _ := model.ParseDate("2024-03-31")
	sold := false

	res, err := svc.Query(context.Background(), SpotHistoryRequest{
		BaseCurrency:    &CurrencyRef{Code: "USD", CountryName: "United States"},
		ForeignCurrency: &CurrencyRef{Code: "EUR", CountryName: "European Union"},
		StartDate:       &start,
		EndDate:         &end,
		IsBaseSold:      &sold,
	})
	require.NoError(t, err)
	assert.Equal(t, "EUR", res.ForeignCurrency.Code)
	require.Len(t, res.Rates, 1)
	assert.InDelta(t, 0.9, res.Rates[0].Rate, 1e-9)
}
