package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/deaglo/apigateway/internal/cloud"
	"github.com/deaglo/apigateway/internal/config"
	"github.com/deaglo/apigateway/internal/core"
	"github.com/deaglo/apigateway/internal/fenics"
	"github.com/deaglo/apigateway/internal/middleware"
	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/deaglo/apigateway/internal/service"
	"github.com/deaglo/apigateway/internal/stream"
	"github.com/deaglo/apigateway/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopMailer struct{}

func (nopMailer) Send(context.Context, cloud.Email) bool { return true }

type memQueue struct {
	mu       sync.Mutex
	messages []core.Message
}

func (q *memQueue) Enqueue(_ context.Context, msg core.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	return nil
}

func (q *memQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

type memStorage struct{}

func (memStorage) Upload(context.Context, string, []byte, string) error { return nil }

type staticPricer struct{}

func (staticPricer) Vanilla(context.Context, fenics.VanillaQuery) (fenics.Fields, error) {
	return fenics.Fields{}, nil
}

func (staticPricer) Barrier(context.Context, fenics.BarrierQuery) (fenics.Fields, error) {
	return fenics.Fields{}, nil
}

type apiFixture struct {
	router *gin.Engine
	store  *repository.Store
	queue  *memQueue
	tokens *service.TokenIssuer
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	RegisterValidation()

	store := testutil.NewStore(t)
	authCfg := config.AuthConfig{SecretKey: "router-test", AccessTTLDays: 1, RefreshTTLDays: 7}
	tokens := service.NewTokenIssuer(authCfg)
	queue := &memQueue{}

	auditSvc, err := service.NewAuditService(t.TempDir(), 16, nil)
	require.NoError(t, err)
	t.Cleanup(auditSvc.Close)

	marketSvc := service.NewMarketService(store)
	otpSvc := service.NewOTPService(store, nopMailer{})
	authSvc := service.NewAuthService(store, tokens, otpSvc, marketSvc, service.NewLinkedInClient(config.LinkedInConfig{}))
	simListSvc := service.NewSimulationListService(store)
	historySvc := service.NewSpotHistoryService(store)
	pricingSvc := service.NewPricingService(staticPricer{})
	simulationSvc := service.NewSimulationService(store, queue, memStorage{}, pricingSvc, historySvc)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.Recovery())
	r.Use(middleware.AuditMiddleware(auditSvc))
	r.Use(middleware.IdentifyUser(authSvc))
	Register(r, Handlers{
		Auth:        NewAuthHandler(authSvc, service.NewUserService(store)),
		Admin:       NewAdminHandler(service.NewAdminService(store, authSvc, otpSvc), 10),
		Audit:       NewAuditHandler(auditSvc),
		Analysis:    NewAnalysisHandler(service.NewAnalysisService(store, simListSvc), simListSvc, 10),
		Simulation:  NewSimulationHandler(simulationSvc),
		Strategy:    NewStrategyHandler(service.NewStrategyService(store)),
		Market:      NewMarketHandler(marketSvc, historySvc),
		Pricing:     NewPricingHandler(pricingSvc),
		Reference:   NewReferenceHandler(service.NewCurrencyService(store), historySvc),
		Stream:      NewStreamHandler(stream.NewStreamer(context.Background(), simListSvc, time.Second)),
		Idempotency: middleware.NewInMemIdempotencyStore(time.Minute),
	})
	return &apiFixture{router: r, store: store, queue: queue, tokens: tokens}
}

func (f *apiFixture) token(t *testing.T, u *model.User) string {
	t.Helper()
	pair, err := f.tokens.Issue(u)
	require.NoError(t, err)
	return pair.Access
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func hedgeBody(name string) map[string]any {
	return map[string]any{
		"name":                  name,
		"simulationEnvironment": map[string]any{"volatility": 0.1, "skew": 0, "appreciationPercent": 0},
		"harvest":               [][]any{{"2024-01-01", -1000}, {"2024-12-31", 1200}},
	}
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, APIPrefix+"/analysis/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body, "error")

	unverified := testutil.User(t, f.store, "new@example.com")
	unverified.IsVerified = false
	require.NoError(t, f.store.SaveUser(context.Background(), unverified))
	rec = f.do(t, http.MethodGet, APIPrefix+"/analysis/", f.token(t, unverified), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAnalysisCreateValidation(t *testing.T) {
	f := newAPIFixture(t)
	user := testutil.User(t, f.store, "a@example.com")
	tok := f.token(t, user)

	rec := f.do(t, http.MethodPost, APIPrefix+"/analysis/", tok, map[string]any{
		"name":            "same",
		"baseCurrency":    map[string]any{"code": "USD", "countryName": "United States"},
		"foreignCurrency": map[string]any{"code": "USD", "countryName": "United States"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.MsgSameCurrencies, decode(t, rec)["error"])

	rec = f.do(t, http.MethodPost, APIPrefix+"/analysis/", tok, map[string]any{
		"name":            "fx book",
		"baseCurrency":    map[string]any{"code": "USD", "countryName": "United States"},
		"foreignCurrency": map[string]any{"code": "EUR", "countryName": "European Union"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "fx book", body["name"])
	assert.NotEmpty(t, body["analysisId"])

	rec = f.do(t, http.MethodGet, APIPrefix+"/analysis/?bogus=1", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid filter parameter: bogus", decode(t, rec)["error"])
}

func TestMalformedIDIsNotFound(t *testing.T) {
	f := newAPIFixture(t)
	user := testutil.User(t, f.store, "a@example.com")
	rec := f.do(t, http.MethodGet, APIPrefix+"/analysis/not-a-uuid/", f.token(t, user), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSimulationListPagesOfThree(t *testing.T) {
	f := newAPIFixture(t)
	user := testutil.User(t, f.store, "a@example.com")
	tok := f.token(t, user)
	a := testutil.Analysis(t, f.store, user, "book")
	base := APIPrefix + "/analysis/" + a.ID.String()

	for _, name := range []string{"h1", "h2", "h3", "h4"} {
		rec := f.do(t, http.MethodPost, base+"/hedge-simulation/", tok, hedgeBody(name))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	assert.Equal(t, 4, f.queue.count())

	rec := f.do(t, http.MethodGet, base+"/simulations", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 4, body["count"])
	assert.Len(t, body["results"], 3)
	assert.NotNil(t, body["next"])
	assert.Nil(t, body["previous"])

	rec = f.do(t, http.MethodGet, base+"/simulations?page=2", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Len(t, body["results"], 1)
	assert.Nil(t, body["next"])

	rec = f.do(t, http.MethodGet, base+"/simulations?page=3", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, MsgInvalidPage, decode(t, rec)["error"])
}

func TestPinRoute(t *testing.T) {
	f := newAPIFixture(t)
	user := testutil.User(t, f.store, "a@example.com")
	tok := f.token(t, user)
	a := testutil.Analysis(t, f.store, user, "book")
	base := APIPrefix + "/analysis/" + a.ID.String()

	rec := f.do(t, http.MethodPost, base+"/hedge-simulation/", tok, hedgeBody("pinned"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["id"].(string)

	rec = f.do(t, http.MethodPatch, APIPrefix+"/analysis/HEDGE/"+id+"/pin", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "success", decode(t, rec)["status"])

	rec = f.do(t, http.MethodGet, base+"/hedge-simulation/"+id, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["pin"])

	rec = f.do(t, http.MethodPatch, APIPrefix+"/analysis/PORTFOLIO/"+id+"/pin", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.MsgSimulationNotFound, decode(t, rec)["error"])
}

func TestSimulationListEmptyIsBareArray(t *testing.T) {
	f := newAPIFixture(t)
	user := testutil.User(t, f.store, "a@example.com")
	a := testutil.Analysis(t, f.store, user, "empty")

	rec := f.do(t, http.MethodGet, APIPrefix+"/analysis/"+a.ID.String()+"/simulations", f.token(t, user), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestPinRouteAcceptsListedType(t *testing.T) {
	f := newAPIFixture(t)
	user := testutil.User(t, f.store, "a@example.com")
	tok := f.token(t, user)
	a := testutil.Analysis(t, f.store, user, "book")
	base := APIPrefix + "/analysis/" + a.ID.String()

	rec := f.do(t, http.MethodPost, base+"/hedge-simulation/", tok, hedgeBody("listed"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, base+"/simulations", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode(t, rec)["results"].([]any)
	require.Len(t, results, 1)
	listed := results[0].(map[string]any)
	assert.Equal(t, "HEDGE", listed["type"])

	rec = f.do(t, http.MethodPatch, APIPrefix+"/analysis/"+listed["type"].(string)+"/"+listed["id"].(string)+"/pin", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, base+"/simulations", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results = decode(t, rec)["results"].([]any)
	assert.Equal(t, true, results[0].(map[string]any)["pin"])
}

func TestHedgeRejectsOutOfRangeEnvironment(t *testing.T) {
	f := newAPIFixture(t)
	user := testutil.User(t, f.store, "a@example.com")
	a := testutil.Analysis(t, f.store, user, "book")
	path := APIPrefix + "/analysis/" + a.ID.String() + "/hedge-simulation/"

	body := hedgeBody("wild")
	body["simulationEnvironment"] = map[string]any{"volatility": 5, "skew": 0, "appreciationPercent": 0}
	rec := f.do(t, http.MethodPost, path, f.token(t, user), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	detail, ok := decode(t, rec)["detail"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	assert.Contains(t, detail, "simulationEnvironment.volatility")

	body = hedgeBody("wild")
	body["fwdRates"] = [][]float64{{1, 2, 3}, {4, 5, 6}}
	rec = f.do(t, http.MethodPost, path, f.token(t, user), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	detail, ok = decode(t, rec)["detail"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	assert.Contains(t, detail, "fwdRates")
	assert.Zero(t, f.queue.count())
}

func TestStrategySimulationPatchNotImplemented(t *testing.T) {
	f := newAPIFixture(t)
	user := testutil.User(t, f.store, "a@example.com")
	a := testutil.Analysis(t, f.store, user, "book")

	path := APIPrefix + "/analysis/" + a.ID.String() + "/strategy-simulation/" + a.ID.String() + "/"
	rec := f.do(t, http.MethodPatch, path, f.token(t, user), map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, MsgPatchNotImplemented, decode(t, rec)["error"])
}

func TestHedgeCreateIsIdempotent(t *testing.T) {
	f := newAPIFixture(t)
	user := testutil.User(t, f.store, "a@example.com")
	tok := f.token(t, user)
	a := testutil.Analysis(t, f.store, user, "book")
	path := APIPrefix + "/analysis/" + a.ID.String() + "/hedge-simulation/"

	first := f.do(t, http.MethodPost, path, tok, hedgeBody("once"), middleware.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, first.Code)
	second := f.do(t, http.MethodPost, path, tok, hedgeBody("once"), middleware.HeaderIdempotencyKey, "k-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, f.queue.count())
}

func TestHedgeValidationShape(t *testing.T) {
	f := newAPIFixture(t)
	user := testutil.User(t, f.store, "a@example.com")
	a := testutil.Analysis(t, f.store, user, "book")

	body := hedgeBody("bad")
	body["harvest"] = [][]any{{"2024-01-01", 10}, {"2024-12-31", 20}}
	rec := f.do(t, http.MethodPost, APIPrefix+"/analysis/"+a.ID.String()+"/hedge-simulation/", f.token(t, user), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.MsgHarvestShape, decode(t, rec)["error"])
}

func TestAdminRoutesAreStaffOnly(t *testing.T) {
	f := newAPIFixture(t)
	user := testutil.User(t, f.store, "a@example.com")
	rec := f.do(t, http.MethodGet, APIPrefix+"/admin/user/", f.token(t, user), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
