package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deaglo/apigateway/internal/config"
	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	users map[string]*model.User
}

func (a stubAuth) Authenticate(_ context.Context, raw string) (*model.User, error) {
	if u, ok := a.users[raw]; ok {
		return u, nil
	}
	return nil, errors.New("bad token")
}

func newTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.Use(mw...)
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequireUser(t *testing.T) {
	verified := &model.User{ID: uuid.New(), IsVerified: true}
	auth := stubAuth{users: map[string]*model.User{"good": verified}}
	r := newTestRouter(IdentifyUser(auth), RequireUser())
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID})
	})

	tests := []struct {
		name    string
		header  string
		query   string
		status  int
		message string
	}{
		{name: "no credentials", status: http.StatusUnauthorized, message: apperrors.MsgNotAuthenticated},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized, message: MsgInvalidToken},
		{name: "bearer", header: "Bearer good", status: http.StatusOK},
		{name: "query token", query: "?token=good", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set(HeaderAuthorization, tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, decodeError(t, w)["error"])
			}
		})
	}
}

func TestRequireVerified(t *testing.T) {
	pending := &model.User{ID: uuid.New()}
	auth := stubAuth{users: map[string]*model.User{"pending": pending}}
	r := newTestRouter(IdentifyUser(auth), RequireUser(), RequireVerified())
	r.GET("/analysis", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/analysis", nil)
	req.Header.Set(HeaderAuthorization, "Bearer pending")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, MsgUnverifiedUser, decodeError(t, w)["error"])
}

func TestStaffOnly(t *testing.T) {
	member := &model.User{ID: uuid.New(), IsVerified: true, TypeUserRoleID: model.UserRoleFreeMemberID}
	admin := &model.User{ID: uuid.New(), IsVerified: true, TypeUserRoleID: model.UserRoleDeagloAdminID}
	auth := stubAuth{users: map[string]*model.User{"member": member, "admin": admin}}
	r := newTestRouter(IdentifyUser(auth), RequireUser(), StaffOnly())
	r.GET("/admin/users", func(c *gin.Context) { c.Status(http.StatusOK) })

	for token, want := range map[string]int{"member": http.StatusForbidden, "admin": http.StatusOK} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.Header.Set(HeaderAuthorization, "Bearer "+token)
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, token)
	}
}

func TestErrorHandlerRendersAppError(t *testing.T) {
	r := newTestRouter()
	r.GET("/fail", func(c *gin.Context) {
		c.Error(apperrors.NewFieldError("name", "This field is required."))
	})
	r.GET("/boom", func(c *gin.Context) {
		c.Error(errors.New("db down"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, apperrors.MsgInvalidInput, body["error"])
	assert.Equal(t, map[string]any{"name": "This field is required."}, body["detail"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.MsgInternal, decodeError(t, w)["error"])
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("unexpected") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.MsgInternal, decodeError(t, w)["error"])
}

func TestReadOnlyMiddleware(t *testing.T) {
	r := newTestRouter(ReadOnlyMiddleware(true))
	r.GET("/api/v2/analysis/", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/v2/analysis/", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/api/v2/auth/signin/", func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/v2/analysis/", http.StatusOK},
		{http.MethodPost, "/api/v2/analysis/", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/v2/auth/signin/", http.StatusOK},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.want, w.Code, tc.method+" "+tc.path)
	}
}

type fakeCounter struct {
	hits map[string]int64
	err  error
}

func (f *fakeCounter) Hit(_ context.Context, key string, _ time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.hits[key]++
	return f.hits[key], nil
}

func TestThrottleSharedCounter(t *testing.T) {
	counter := &fakeCounter{hits: map[string]int64{}}
	th := NewThrottle(config.ThrottleConfig{AnonPerMinute: 2, UserPerMinute: 10}, counter)
	r := newTestRouter(th.Middleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", w.Header().Get("Retry-After"))
			assert.Equal(t, apperrors.MsgThrottled, decodeError(t, w)["error"])
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestThrottleFallsBackToLocalLimiter(t *testing.T) {
	counter := &fakeCounter{err: errors.New("redis gone")}
	th := NewThrottle(config.ThrottleConfig{AnonPerMinute: 1}, counter)
	r := newTestRouter(th.Middleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	th.sweep(time.Now().Add(2 * limiterIdleTTL))
	assert.Empty(t, th.limiters)
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	user := &model.User{ID: uuid.New(), IsVerified: true}
	auth := stubAuth{users: map[string]*model.User{"good": user}}
	store := NewInMemIdempotencyStore(time.Hour)
	r := newTestRouter(IdentifyUser(auth), IdempotencyMiddleware(store))

	calls := 0
	r.POST("/sims", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"n": calls})
	})

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sims", nil)
		req.Header.Set(HeaderAuthorization, "Bearer good")
		req.Header.Set(HeaderIdempotencyKey, "k-1")
		r.ServeHTTP(w, req)
		return w
	}

	first := send()
	second := send()
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotencyInProgress(t *testing.T) {
	user := &model.User{ID: uuid.New()}
	store := NewInMemIdempotencyStore(time.Hour)
	_, hit := store.GetOrLock(user.ID.String() + ":/sims:k-2")
	require.False(t, hit)

	auth := stubAuth{users: map[string]*model.User{"good": user}}
	r := newTestRouter(IdentifyUser(auth), IdempotencyMiddleware(store))
	r.POST("/sims", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sims", nil)
	req.Header.Set(HeaderAuthorization, "Bearer good")
	req.Header.Set(HeaderIdempotencyKey, "k-2")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}
