package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu      sync.Mutex
	entries []*model.ServiceLog
}

func (s *captureSink) Log(entry *model.ServiceLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func TestRedactAuditBodySignin(t *testing.T) {
	body := []byte(`{"email":"a@b.com","password":"hunter2","nested":{"refresh":"r","access":"a"}}`)
	out := redactAuditBody("/api/v2/auth/signin", body)

	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, "a@b.com", data["email"])
	assert.Equal(t, redactedValue, data["password"])
	nested := data["nested"].(map[string]any)
	assert.Equal(t, redactedValue, nested["refresh"])
	assert.Equal(t, redactedValue, nested["access"])
}

func TestRedactAuditBodyNonSensitivePath(t *testing.T) {
	body := []byte(`{"password":"visible"}`)
	assert.Equal(t, string(body), redactAuditBody("/api/v2/analysis", body))
}

func TestRedactAuditBodyInvalidJSON(t *testing.T) {
	assert.Equal(t, "[redacted]", redactAuditBody("/api/v2/auth/signin", []byte("not-json")))
}

func TestAuditMiddlewareKeepsBodyForHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := &captureSink{}
	r := gin.New()
	r.Use(AuditMiddleware(sink))
	r.POST("/api/v2/auth/signin", func(c *gin.Context) {
		var req map[string]string
		require.NoError(t, c.ShouldBindJSON(&req))
		AddAuditContext(c, "email", req["email"])
		c.JSON(http.StatusOK, gin.H{"access": "jwt"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/auth/signin", strings.NewReader(`{"email":"a@b.com","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	require.Len(t, sink.entries, 1)
	entry := sink.entries[0]
	assert.Equal(t, http.StatusOK, entry.StatusCode)
	assert.Equal(t, "a@b.com", entry.Context["email"])
	assert.NotContains(t, entry.RequestBody, `"x"`)
	assert.NotContains(t, entry.ResponseBody, "jwt")
}

func TestAuditMiddlewareReusesValidRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := &captureSink{}
	r := gin.New()
	r.Use(AuditMiddleware(sink))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	id := "0b8f5d8e-4a4b-4c4e-9c61-2d2f8f1a9e10"
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, id)
	r.ServeHTTP(w, req)

	assert.Equal(t, id, w.Header().Get(HeaderRequestID))
	require.Len(t, sink.entries, 1)
	assert.Equal(t, id, sink.entries[0].ID)
}
