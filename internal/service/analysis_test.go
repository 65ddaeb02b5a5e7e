package service

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/deaglo/apigateway/internal/repository"
	"github.com/deaglo/apigateway/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysisQuery(t *testing.T) {
	q, err := ParseAnalysisQuery(url.Values{
		"base_currency":   {"USD,EUR"},
		"foreignCurrency": {"GBP"},
		"withSimulations": {"2"},
		"page":            {"1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"USD", "EUR"}, q.Filter.BaseCurrencies)
	assert.Equal(t, []string{"GBP"}, q.Filter.ForeignCurrencies)
	assert.Equal(t, 2, q.WithSimulations)

	_, err = ParseAnalysisQuery(url.Values{"basecurrency": {"USD"}})
	requireAppError(t, err, http.StatusBadRequest, "Invalid filter parameter: basecurrency")
}

func usdRef() *CurrencyRef { return &CurrencyRef{Code: "USD", CountryName: "United States"} }
func eurRef() *CurrencyRef { return &CurrencyRef{Code: "EUR", CountryName: "European Union"} }
func gbpRef() *CurrencyRef { return &CurrencyRef{Code: "GBP", CountryName: "United Kingdom"} }

func newAnalysisFixture(t *testing.T) (*AnalysisService, *simFixture) {
	f := newSimFixture(t)
	return NewAnalysisService(f.store, NewSimulationListService(f.store)), f
}

func TestAnalysisCreateAndUpdate(t *testing.T) {
	svc, f := newAnalysisFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, f.user, AnalysisRequest{Name: str("x")})
	appErr := requireAppError(t, err, http.StatusBadRequest, "")
	assert.Contains(t, appErr.Detail, "baseCurrency")
	assert.Contains(t, appErr.Detail, "foreignCurrency")

	_, err = svc.Create(ctx, f.user, AnalysisRequest{Name: str("x"), BaseCurrency: usdRef(), ForeignCurrency: usdRef()})
	requireAppError(t, err, http.StatusBadRequest, MsgSameCurrencies)

	_, err = svc.Create(ctx, f.user, AnalysisRequest{
		Name: str("x"), BaseCurrency: usdRef(),
		ForeignCurrency: &CurrencyRef{Code: "EUR", CountryName: "Atlantis"},
	})
	requireAppError(t, err, http.StatusBadRequest, "")

	a, err := svc.Create(ctx, f.user, AnalysisRequest{
		Name: str("  hedging  "), Category: str("Operational fx"),
		BaseCurrency: usdRef(), ForeignCurrency: gbpRef(),
	})
	require.NoError(t, err)
	assert.Equal(t, "hedging", a.Name)
	require.NotNil(t, a.TypeCategory)
	assert.Equal(t, "Operational fx", a.TypeCategory.Name)
	assert.Equal(t, "GBP", a.ForeignCurrency.Code)

	// partial update leaves the currencies alone
	a, err = svc.Update(ctx, f.user, a.ID, AnalysisRequest{Name: str("renamed")}, true)
	require.NoError(t, err)
	assert.Equal(t, "renamed", a.Name)
	assert.Equal(t, "GBP", a.ForeignCurrency.Code)

	_, err = svc.Update(ctx, f.user, a.ID, AnalysisRequest{ForeignCurrency: usdRef()}, true)
	requireAppError(t, err, http.StatusBadRequest, MsgSameCurrencies)

	_, err = svc.Update(ctx, f.user, a.ID, AnalysisRequest{Category: str("Nope")}, true)
	appErr = requireAppError(t, err, http.StatusBadRequest, "")
	assert.Contains(t, appErr.Detail, "category")
}

func TestAnalysisOwnerScopingAndDelete(t *testing.T) {
	svc, f := newAnalysisFixture(t)
	ctx := context.Background()
	other := testutil.User(t, f.store, "other@example.com")

	_, err := svc.Get(ctx, other, f.a.ID)
	requireAppError(t, err, http.StatusNotFound, "")

	require.NoError(t, svc.Delete(ctx, f.user, f.a.ID))
	_, err = svc.Get(ctx, f.user, f.a.ID)
	requireAppError(t, err, http.StatusNotFound, "")

	err = svc.Delete(ctx, f.user, uuid.New())
	requireAppError(t, err, http.StatusNotFound, "")
}

func TestAnalysisListWithSimulations(t *testing.T) {
	svc, f := newAnalysisFixture(t)
	ctx := context.Background()
	seedHedges(t, f, "one", "two", "three")
	testutil.Analysis(t, f.store, f.user, "empty")

	rows, total, err := svc.List(ctx, f.user, AnalysisQuery{WithSimulations: 2}, repository.Page{Number: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 2)
	for _, row := range rows {
		if row.ID == f.a.ID {
			require.Len(t, row.Simulations, 2)
			assert.Equal(t, "three", row.Simulations[0].Name)
		} else {
			assert.Empty(t, row.Simulations)
		}
	}

	rows, _, err = svc.List(ctx, f.user, AnalysisQuery{}, repository.Page{Number: 1})
	require.NoError(t, err)
	for _, row := range rows {
		assert.Nil(t, row.Simulations)
	}
}

func TestWorkspaceMembership(t *testing.T) {
	svc, f := newAnalysisFixture(t)
	ctx := context.Background()

	_, err := svc.CreateWorkspace(ctx, f.user, WorkspaceRequest{})
	requireAppError(t, err, http.StatusBadRequest, "")

	_, err = svc.CreateWorkspace(ctx, f.user, WorkspaceRequest{Name: str("w"), Analysis: []uuid.UUID{uuid.New()}})
	requireAppError(t, err, http.StatusBadRequest, "")

	w, err := svc.CreateWorkspace(ctx, f.user, WorkspaceRequest{Name: str("usd book"), BaseCurrency: usdRef()})
	require.NoError(t, err)
	assert.Empty(t, w.Analyses)

	require.NoError(t, svc.ModifyWorkspace(ctx, f.user, w.ID, f.a.ID, WorkspaceActionAdd))
	w, err = svc.GetWorkspace(ctx, f.user, w.ID)
	require.NoError(t, err)
	require.Len(t, w.Analyses, 1)
	assert.Equal(t, f.a.ID, w.Analyses[0].ID)

	eurBased, err := svc.Create(ctx, f.user, AnalysisRequest{Name: str("eur"), BaseCurrency: eurRef(), ForeignCurrency: usdRef()})
	require.NoError(t, err)
	err = svc.ModifyWorkspace(ctx, f.user, w.ID, eurBased.ID, WorkspaceActionAdd)
	requireAppError(t, err, http.StatusBadRequest, MsgBaseCurrencyMismatch)

	err = svc.ModifyWorkspace(ctx, f.user, w.ID, f.a.ID, "toggle")
	requireAppError(t, err, http.StatusBadRequest, "Invalid action")

	require.NoError(t, svc.ModifyWorkspace(ctx, f.user, w.ID, f.a.ID, WorkspaceActionRemove))
	w, err = svc.GetWorkspace(ctx, f.user, w.ID)
	require.NoError(t, err)
	assert.Empty(t, w.Analyses)

	// a full update replaces the membership
	w, err = svc.UpdateWorkspace(ctx, f.user, w.ID, WorkspaceRequest{Name: str("mixed"), Analysis: []uuid.UUID{f.a.ID, eurBased.ID}}, false)
	require.NoError(t, err)
	assert.Equal(t, "mixed", w.Name)
	assert.Len(t, w.Analyses, 2)

	require.NoError(t, svc.DeleteWorkspace(ctx, f.user, w.ID))
	_, err = svc.GetWorkspace(ctx, f.user, w.ID)
	requireAppError(t, err, http.StatusNotFound, "")
}
