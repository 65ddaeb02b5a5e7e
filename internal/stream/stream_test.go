package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/deaglo/apigateway/internal/service"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu   sync.Mutex
	sims []service.SimulationSummary
	err  error
}

func (f *fakeSource) Snapshot(ctx context.Context, user *model.User, analysisID uuid.UUID) ([]service.SimulationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.SimulationSummary(nil), f.sims...), f.err
}

func (f *fakeSource) setStatus(i int, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sims[i].SimulationStatus = status
}

func TestChanged(t *testing.T) {
	id := uuid.New()
	seen := map[uuid.UUID]string{}
	sims := []service.SimulationSummary{{ID: id, Kind: repository.KindHedge, SimulationStatus: "Pending", ResultID: uuid.New()}}

	events := changed(seen, sims)
	require.Len(t, events, 1)
	assert.Equal(t, "HEDGE", events[0].Type)

	assert.Empty(t, changed(seen, sims))

	sims[0].ResultID = uuid.New()
	assert.Len(t, changed(seen, sims), 1)
}

func TestServe_PushesStatusChanges(t *testing.T) {
	src := &fakeSource{sims: []service.SimulationSummary{
		{ID: uuid.New(), Kind: repository.KindStrategy, SimulationStatus: "Pending", ResultID: uuid.New()},
	}}
	s := NewStreamer(context.Background(), src, 20*time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.Serve(w, r, &model.User{}, uuid.New())
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "Pending", ev.SimulationStatus)
	assert.Equal(t, "STRATEGY", ev.Type)

	src.setStatus(0, "Complete")
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "Complete", ev.SimulationStatus)
}

func TestServe_UnknownAnalysisDoesNotUpgrade(t *testing.T) {
	src := &fakeSource{err: apperrors.NewNotFound("")}
	s := NewStreamer(context.Background(), src, time.Second)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	err := s.Serve(rec, req, &model.User{}, uuid.New())
	require.Error(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestServe_ClosesOnServerShutdown(t *testing.T) {
	src := &fakeSource{sims: []service.SimulationSummary{
		{ID: uuid.New(), Kind: repository.KindHedge, SimulationStatus: "Pending", ResultID: uuid.New()},
	}}
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	s := NewStreamer(ctx, src, 20*time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.Serve(w, r, &model.User{}, uuid.New())
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))

	stop()
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
