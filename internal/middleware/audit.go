package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextAuditLog = "audit_log"
	HeaderRequestID = "X-Request-ID"

	redactedValue = "***"
	maxAuditBody  = 64 << 10
)

// AuditSink receives finished entries. Log must not block.
type AuditSink interface {
	Log(entry *model.ServiceLog)
}

// bodyLogWriter 包装 ResponseWriter 以捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	if w.body.Len() < maxAuditBody {
		w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// AuditMiddleware records every request that reaches the API. Credentials in
// auth and admin bodies are masked before the entry leaves the request.
func AuditMiddleware(sink AuditSink) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.NewString()
		}
		c.Header(HeaderRequestID, reqID)

		// 读取请求体并写回, 后续 Bind 仍可使用
		var reqBody []byte
		if c.Request.Body != nil && !isMultipart(c) {
			reqBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(reqBody))
		}

		entry := &model.ServiceLog{
			ID:        reqID,
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			CreatedAt: start,
			Context:   make(map[string]any),
		}
		c.Set(ContextAuditLog, entry)

		blw := &bodyLogWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		if user := CurrentUser(c); user != nil {
			entry.UserID = user.ID.String()
		}
		entry.RequestBody = redactAuditBody(entry.Path, reqBody)
		entry.StatusCode = c.Writer.Status()
		entry.ResponseBody = redactAuditBody(entry.Path, blw.body.Bytes())
		entry.LatencyMs = time.Since(start).Milliseconds()

		sink.Log(entry)
	}
}

// AddAuditContext 允许 Handler 向审计日志添加业务上下文
func AddAuditContext(c *gin.Context, key string, value any) {
	if val, exists := c.Get(ContextAuditLog); exists {
		if entry, ok := val.(*model.ServiceLog); ok {
			entry.Context[key] = value
		}
	}
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

func redactAuditBody(path string, body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxAuditBody {
		body = body[:maxAuditBody]
	}
	if !isSensitivePath(path) {
		return string(body)
	}
	redacted, ok := redactJSON(body)
	if !ok {
		return "[redacted]"
	}
	return string(redacted)
}

func isSensitivePath(path string) bool {
	switch {
	case strings.HasPrefix(path, "/api/v2/auth"):
		return true
	case strings.HasPrefix(path, "/api/v2/admin"):
		return true
	case strings.HasPrefix(path, "/api/v2/users"):
		return true
	default:
		return false
	}
}

func redactJSON(body []byte) ([]byte, bool) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, false
	}
	redactValue(&data)
	out, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	return out, true
}

func redactValue(v *any) {
	switch raw := (*v).(type) {
	case map[string]any:
		for key, val := range raw {
			if isSensitiveKey(key) {
				raw[key] = redactedValue
				continue
			}
			vv := val
			redactValue(&vv)
			raw[key] = vv
		}
	case []any:
		for i, val := range raw {
			vv := val
			redactValue(&vv)
			raw[i] = vv
		}
	}
}

func isSensitiveKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "password",
		"oldpassword",
		"newpassword",
		"confirmpassword",
		"refresh",
		"access",
		"code",
		"otp",
		"otpcode",
		"token",
		"secret":
		return true
	default:
		return false
	}
}
