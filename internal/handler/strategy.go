package handler

import (
	"net/http"

	"github.com/deaglo/apigateway/internal/service"
	"github.com/gin-gonic/gin"
)

type StrategyHandler struct {
	svc *service.StrategyService
}

func NewStrategyHandler(svc *service.StrategyService) *StrategyHandler {
	return &StrategyHandler{svc: svc}
}

func (h *StrategyHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), currentUser(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toStrategyList(items))
}

func (h *StrategyHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	st, err := h.svc.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toStrategyPublic(st))
}

func (h *StrategyHandler) Create(c *gin.Context) {
	var req service.StrategyRequest
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.svc.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, toStrategyPublic(st))
}

func (h *StrategyHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.StrategyRequest
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.svc.Update(c.Request.Context(), currentUser(c), id, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toStrategyPublic(st))
}

func (h *StrategyHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StrategyHandler) Patch(c *gin.Context) {
	patchNotImplemented(c)
}
