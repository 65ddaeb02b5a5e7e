package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

const (
	HeaderIdempotencyKey = "X-Idempotency-Key"
	MsgRequestInProgress = "A request with this idempotency key is in progress"
)

type IdempotencyStore interface {
	// GetOrLock returns (record, true) if exists; (nil,false) if newly locked by caller.
	GetOrLock(key string) (*model.IdempotencyRecord, bool)
	Save(key string, status int, body []byte)
	Unlock(key string)
}

// InMemIdempotencyStore serves single-instance deployments without Redis.
// Records expire after ttl.
type InMemIdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[string]*model.IdempotencyRecord // userID:key
}

func NewInMemIdempotencyStore(ttl time.Duration) *InMemIdempotencyStore {
	return &InMemIdempotencyStore{
		ttl:     ttl,
		records: make(map[string]*model.IdempotencyRecord),
	}
}

func (s *InMemIdempotencyStore) GetOrLock(key string) (*model.IdempotencyRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok {
		if s.ttl <= 0 || time.Since(rec.CreatedAt) < s.ttl {
			return rec, true
		}
	}

	s.records[key] = &model.IdempotencyRecord{
		Processing: true,
		CreatedAt:  time.Now(),
	}
	return nil, false
}

func (s *InMemIdempotencyStore) Save(key string, status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = &model.IdempotencyRecord{
		Status:    status,
		Body:      body,
		CreatedAt: time.Now(),
	}
}

func (s *InMemIdempotencyStore) Unlock(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

// IdempotencyMiddleware replays the first outcome of a simulation submit for
// the same user and key. Server errors are not stored so the client may retry.
func IdempotencyMiddleware(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		idemKey := c.GetHeader(HeaderIdempotencyKey)
		if idemKey == "" || c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
			c.Next()
			return
		}

		user := CurrentUser(c)
		if user == nil {
			c.Next()
			return
		}
		fullKey := user.ID.String() + ":" + c.FullPath() + ":" + idemKey

		record, hit := store.GetOrLock(fullKey)
		if hit {
			if record.Processing {
				c.Error(apperrors.New(apperrors.ErrConflict, MsgRequestInProgress, nil))
				c.Abort()
				return
			}
			c.Data(record.Status, "application/json; charset=utf-8", record.Body)
			c.Abort()
			return
		}

		w := &responseBodyWriter{ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		if c.Writer.Status() < 500 && len(c.Errors) == 0 {
			store.Save(fullKey, c.Writer.Status(), w.body)
		} else {
			store.Unlock(fullKey)
		}
	}
}

type responseBodyWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *responseBodyWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}
