package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/deaglo/apigateway/internal/cloud"
	"github.com/deaglo/apigateway/internal/config"
	"github.com/deaglo/apigateway/internal/core"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []cloud.Email
	fail bool
}

func (m *fakeMailer) Send(ctx context.Context, e cloud.Email) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return false
	}
	m.sent = append(m.sent, e)
	return true
}

type fakeQueue struct {
	mu       sync.Mutex
	messages []core.Message
	err      error
}

func (q *fakeQueue) Enqueue(ctx context.Context, msg core.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.messages = append(q.messages, msg)
	return nil
}

type fakeStorage struct {
	uploads map[string][]byte
}

func (s *fakeStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if s.uploads == nil {
		s.uploads = map[string][]byte{}
	}
	s.uploads[key] = data
	return nil
}

type fixedSpot float64

func (f fixedSpot) SpotRate(ctx context.Context, base, foreign string) float64 { return float64(f) }

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{SecretKey: "test-secret", AccessTTLDays: 1, RefreshTTLDays: 7}
}

// requireAppError asserts err is an AppError with the given status and message.
func requireAppError(t *testing.T, err error, status int, msg string) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	require.Equal(t, status, appErr.HTTPStatus)
	if msg != "" {
		require.Equal(t, msg, appErr.Message)
	}
	return appErr
}
