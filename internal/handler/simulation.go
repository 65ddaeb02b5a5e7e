package handler

import (
	"net/http"

	"github.com/deaglo/apigateway/internal/middleware"
	"github.com/deaglo/apigateway/internal/service"
	"github.com/gin-gonic/gin"
)

// SimulationHandler serves the strategy, margin and hedge IRR simulations
// nested under an analysis.
type SimulationHandler struct {
	svc *service.SimulationService
}

func NewSimulationHandler(svc *service.SimulationService) *SimulationHandler {
	return &SimulationHandler{svc: svc}
}

func (h *SimulationHandler) ListStrategy(c *gin.Context) {
	aid, ok := pathID(c, "id")
	if !ok {
		return
	}
	views, err := h.svc.ListStrategy(c.Request.Context(), currentUser(c), aid)
	if err != nil {
		c.Error(err)
		return
	}
	out := make([]strategySimulationPublic, 0, len(views))
	for _, v := range views {
		out = append(out, toStrategySimulationPublic(v, true))
	}
	c.JSON(http.StatusOK, out)
}

func (h *SimulationHandler) GetStrategy(c *gin.Context) {
	aid, ok := pathID(c, "id")
	if !ok {
		return
	}
	sid, ok := pathID(c, "sid")
	if !ok {
		return
	}
	v, err := h.svc.GetStrategy(c.Request.Context(), currentUser(c), aid, sid)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toStrategySimulationPublic(v, true))
}

func (h *SimulationHandler) CreateStrategy(c *gin.Context) {
	aid, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.StrategySimulationRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.CreateStrategy(c.Request.Context(), currentUser(c), aid, req)
	if err != nil {
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "resultId", v.ResultID)
	c.JSON(http.StatusCreated, toStrategySimulationPublic(v, false))
}

func (h *SimulationHandler) UpdateStrategy(c *gin.Context) {
	aid, ok := pathID(c, "id")
	if !ok {
		return
	}
	sid, ok := pathID(c, "sid")
	if !ok {
		return
	}
	var req service.StrategySimulationRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.UpdateStrategy(c.Request.Context(), currentUser(c), aid, sid, req)
	if err != nil {
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "resultId", v.ResultID)
	c.JSON(http.StatusOK, toStrategySimulationPublic(v, false))
}

func (h *SimulationHandler) DeleteStrategy(c *gin.Context) {
	aid, ok := pathID(c, "id")
	if !ok {
		return
	}
	sid, ok := pathID(c, "sid")
	if !ok {
		return
	}
	if err := h.svc.DeleteStrategy(c.Request.Context(), currentUser(c), aid, sid); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SimulationHandler) PatchNotImplemented(c *gin.Context) {
	patchNotImplemented(c)
}

func (h *SimulationHandler) ListMargin(c *gin.Context) {
	aid, ok := pathID(c, "id")
	if !ok {
		return
	}
	items, err := h.svc.ListMargin(c.Request.Context(), currentUser(c), aid)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toMarginList(items))
}

func (h *SimulationHandler) GetMargin(c *gin.Context) {
	aid, ok := pathID(c, "id")
	if !ok {
		return
	}
	mid, ok := pathID(c, "mid")
	if !ok {
		return
	}
	m, err := h.svc.GetMargin(c.Request.Context(), currentUser(c), aid, mid)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toMarginSimulationPublic(m))
}

func (h *SimulationHandler) CreateMargin(c *gin.Context) {
	aid, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.MarginSimulationRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.svc.CreateMargin(c.Request.Context(), currentUser(c), aid, req)
	if err != nil {
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "resultId", m.ResultID)
	c.JSON(http.StatusCreated, toMarginSimulationPublic(m))
}

func (h *SimulationHandler) UpdateMargin(c *gin.Context) {
	aid, ok := pathID(c, "id")
	if !ok {
		return
	}
	mid, ok := pathID(c, "mid")
	if !ok {
		return
	}
	var req service.MarginSimulationRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.svc.UpdateMargin(c.Request.Context(), currentUser(c), aid, mid, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toMarginSimulationPublic(m))
}

func (h *SimulationHandler) DeleteMargin(c *gin.Context) {
	aid, ok := pathID(c, "id")
	if !ok {
		return
	}
	mid, ok := pathID(c, "mid")
	if !ok {
		return
	}
	if err := h.svc.DeleteMargin(c.Request.Context(), currentUser(c), aid, mid); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SimulationHandler) ListHedge(c *gin.Context) {
	aid, ok := pathID(c, "id")
	if !ok {
		return
	}
	items, err := h.svc.ListHedge(c.Request.Context(), currentUser(c), aid)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toHedgeList(items))
}

func (h *SimulationHandler) GetHedge(c *gin.Context) {
	aid, ok := pathID(c, "id")
	if !ok {
		return
	}
	hid, ok := pathID(c, "hid")
	if !ok {
		return
	}
	sim, err := h.svc.GetHedge(c.Request.Context(), currentUser(c), aid, hid)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toHedgeSimulationPublic(sim))
}

func (h *SimulationHandler) CreateHedge(c *gin.Context) {
	aid, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.HedgeSimulationRequest
	if !bindJSON(c, &req) {
		return
	}
	sim, err := h.svc.CreateHedge(c.Request.Context(), currentUser(c), aid, req)
	if err != nil {
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "resultId", sim.ResultID)
	c.JSON(http.StatusCreated, toHedgeSimulationPublic(sim))
}

// UpdateHedge serves PUT and PATCH; only PATCH may leave inputs out.
func (h *SimulationHandler) UpdateHedge(c *gin.Context) {
	aid, ok := pathID(c, "id")
	if !ok {
		return
	}
	hid, ok := pathID(c, "hid")
	if !ok {
		return
	}
	var req service.HedgeSimulationRequest
	if !bindJSON(c, &req) {
		return
	}
	sim, err := h.svc.UpdateHedge(c.Request.Context(), currentUser(c), aid, hid, req, c.Request.Method == http.MethodPatch)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toHedgeSimulationPublic(sim))
}

func (h *SimulationHandler) DeleteHedge(c *gin.Context) {
	aid, ok := pathID(c, "id")
	if !ok {
		return
	}
	hid, ok := pathID(c, "hid")
	if !ok {
		return
	}
	if err := h.svc.DeleteHedge(c.Request.Context(), currentUser(c), aid, hid); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
