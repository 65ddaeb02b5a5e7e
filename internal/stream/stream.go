// Package stream pushes simulation status changes of an analysis to
// websocket clients.
package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/logger"
	"github.com/deaglo/apigateway/internal/service"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 512
)

// Source lists the simulations of an analysis the user owns.
type Source interface {
	Snapshot(ctx context.Context, user *model.User, analysisID uuid.UUID) ([]service.SimulationSummary, error)
}

// Event is sent whenever a simulation appears or its status changes.
type Event struct {
	ID               uuid.UUID `json:"id"`
	Type             string    `json:"type"`
	SimulationStatus string    `json:"simulationStatus"`
	ResultID         uuid.UUID `json:"resultId"`
}

type Streamer struct {
	base     context.Context
	source   Source
	interval time.Duration
	upgrader websocket.Upgrader
}

// NewStreamer returns a Streamer whose open streams end when ctx is cancelled.
func NewStreamer(ctx context.Context, source Source, interval time.Duration) *Streamer {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Streamer{
		base:     ctx,
		source:   source,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve checks access before upgrading so that unknown analyses still get a
// regular JSON 404.
func (s *Streamer) Serve(w http.ResponseWriter, r *http.Request, user *model.User, analysisID uuid.UUID) error {
	initial, err := s.source.Snapshot(r.Context(), user, analysisID)
	if err != nil {
		return err
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		logger.Warn("⚠️ websocket upgrade failed", "error", err)
		return nil
	}

	ctx, cancel := context.WithCancel(s.base)
	go s.readPump(conn, cancel)
	s.writePump(ctx, conn, user, analysisID, initial)
	return nil
}

// readPump discards client frames and keeps the read deadline alive on pong.
func (s *Streamer) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Streamer) writePump(ctx context.Context, conn *websocket.Conn, user *model.User, analysisID uuid.UUID, initial []service.SimulationSummary) {
	poll := time.NewTicker(s.interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		poll.Stop()
		ping.Stop()
		conn.Close()
	}()

	seen := map[uuid.UUID]string{}
	if !s.push(conn, seen, initial) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			if s.base.Err() != nil {
				s.close(conn, websocket.CloseGoingAway, "server shutting down")
			}
			return
		case <-poll.C:
			sims, err := s.source.Snapshot(ctx, user, analysisID)
			if err != nil {
				logger.Warn("⚠️ simulation stream closed", "analysis_id", analysisID, "error", err)
				s.close(conn, websocket.CloseNormalClosure, "analysis unavailable")
				return
			}
			if !s.push(conn, seen, sims) {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// push writes one event per changed simulation and records what was sent.
func (s *Streamer) push(conn *websocket.Conn, seen map[uuid.UUID]string, sims []service.SimulationSummary) bool {
	for _, sim := range changed(seen, sims) {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(sim); err != nil {
			return false
		}
	}
	return true
}

func (s *Streamer) close(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// changed diffs sims against the last seen status (plus result id, since a
// rerun keeps the status name but replaces the result) and updates seen.
func changed(seen map[uuid.UUID]string, sims []service.SimulationSummary) []Event {
	var out []Event
	for _, sim := range sims {
		key := sim.SimulationStatus + "/" + sim.ResultID.String()
		if seen[sim.ID] == key {
			continue
		}
		seen[sim.ID] = key
		out = append(out, Event{
			ID:               sim.ID,
			Type:             string(sim.Kind),
			SimulationStatus: sim.SimulationStatus,
			ResultID:         sim.ResultID,
		})
	}
	return out
}
