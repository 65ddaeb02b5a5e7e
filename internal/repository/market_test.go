package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/deaglo/apigateway/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrencyPairGetOrCreate(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	usd := testutil.Currency(t, store, "USD")
	eur := testutil.Currency(t, store, "EUR")

	first, err := store.CurrencyPair(ctx, usd, eur)
	require.NoError(t, err)
	second, err := store.CurrencyPair(ctx, usd, eur)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	reversed, err := store.CurrencyPair(ctx, eur, usd)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, reversed.ID)
}

func TestDefaultFxMovementWithPairs(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	user := testutil.User(t, store, "fx@example.com")
	pair, err := store.CurrencyPair(ctx, testutil.Currency(t, store, "USD"), testutil.Currency(t, store, "GBP"))
	require.NoError(t, err)

	fm := &model.FxMovement{UserID: user.ID, Duration: 12, IsDefault: true}
	require.NoError(t, store.SaveFxMovement(ctx, fm, []model.FxCurrencyPair{*pair}))

	got, err := store.DefaultFxMovement(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, got.CurrencyPairs, 1)
	assert.Equal(t, "GBP", got.CurrencyPairs[0].ForeignCurrency.Code)

	_, err = store.DefaultSpotHistory(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSpotRatesRange(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	day := func(s string) model.Date { return model.NewDate(mustDate(t, s)) }
	require.NoError(t, store.InsertSpotRates(ctx, []model.SpotHistoryData{
		{Date: day("2024-01-01"), Currency: "EUR", Rate: 0.9},
		{Date: day("2024-01-02"), Currency: "EUR", Rate: 0.91},
		{Date: day("2024-01-02"), Currency: "GBP", Rate: 0.8},
		{Date: day("2024-02-01"), Currency: "EUR", Rate: 0.95},
	}))

	rows, err := store.SpotRates(ctx, []string{"EUR", "GBP"}, day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-01-02", rows[0].Date.String())
}

func TestNextWorkDaySkipsWeekend(t *testing.T) {
	friday := model.NewDate(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-01-08", repository.NextWorkDay(friday).String())
	saturday := model.NewDate(time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-01-08", repository.NextWorkDay(saturday).String())
	monday := model.NewDate(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-01-09", repository.NextWorkDay(monday).String())
}
