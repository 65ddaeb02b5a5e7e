package handler

import (
	"github.com/deaglo/apigateway/internal/stream"
	"github.com/gin-gonic/gin"
)

type StreamHandler struct {
	streamer *stream.Streamer
}

func NewStreamHandler(streamer *stream.Streamer) *StreamHandler {
	return &StreamHandler{streamer: streamer}
}

// Simulations upgrades to a websocket that follows the analysis simulations.
func (h *StreamHandler) Simulations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.streamer.Serve(c.Writer, c.Request, currentUser(c), id); err != nil {
		c.Error(err)
	}
}
