package handler

import (
	"net/http"

	"github.com/deaglo/apigateway/internal/service"
	"github.com/gin-gonic/gin"
)

type AnalysisHandler struct {
	svc      *service.AnalysisService
	sims     *service.SimulationListService
	pageSize int
}

func NewAnalysisHandler(svc *service.AnalysisService, sims *service.SimulationListService, pageSize int) *AnalysisHandler {
	return &AnalysisHandler{svc: svc, sims: sims, pageSize: pageSize}
}

func (h *AnalysisHandler) List(c *gin.Context) {
	q, err := service.ParseAnalysisQuery(c.Request.URL.Query())
	if err != nil {
		c.Error(err)
		return
	}
	page, ok := pageFromQuery(c, h.pageSize)
	if !ok {
		return
	}
	items, total, err := h.svc.List(c.Request.Context(), currentUser(c), q, page)
	if err != nil {
		c.Error(err)
		return
	}
	respondPage(c, page, total, toAnalysisList(items, q.WithSimulations > 0))
}

func (h *AnalysisHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toAnalysisPublic(a))
}

func (h *AnalysisHandler) Create(c *gin.Context) {
	var req service.AnalysisRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, toAnalysisPublic(a))
}

// Update serves both PUT and PATCH.
func (h *AnalysisHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.AnalysisRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Update(c.Request.Context(), currentUser(c), id, req, c.Request.Method == http.MethodPatch)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toAnalysisPublic(a))
}

func (h *AnalysisHandler) Delete(c *gin.Context) {
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

// Simulations lists every simulation kind of the analysis, three per page
// unless page_size says otherwise.
func (h *AnalysisHandler) Simulations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	q := service.ParseSimulationQuery(c.Request.URL.Query())
	items, total, err := h.sims.List(c.Request.Context(), currentUser(c), id, q)
	if err != nil {
		c.Error(err)
		return
	}
	if total == 0 {
		// an analysis without simulations lists as a bare empty array
		c.JSON(http.StatusOK, []service.SimulationSummary{})
		return
	}
	c.JSON(http.StatusOK, simulationPage(c, q, total, items))
}

func simulationPage(c *gin.Context, q service.SimulationQuery, total int, items []service.SimulationSummary) Paginated {
	out := Paginated{Count: int64(total), Results: items}
	if q.Page*q.PageSize < total {
		out.Next = pageURL(c, q.Page+1)
	}
	if q.Page > 1 {
		out.Previous = pageURL(c, q.Page-1)
	}
	return out
}

// TogglePin flips the pin of a simulation. The first path segment carries the
// simulation kind (STRATEGY, MARGIN or HEDGE); gin requires it to share the
// :id wildcard with the analysis routes.
func (h *AnalysisHandler) TogglePin(c *gin.Context) {
	id, ok := pathID(c, "sid")
	if !ok {
		return
	}
	if err := h.sims.TogglePin(c.Request.Context(), currentUser(c), c.Param("id"), id); err != nil {
		c.Error(err)
		return
	}
	success(c, http.StatusOK)
}

func (h *AnalysisHandler) ListWorkspaces(c *gin.Context) {
	page, ok := pageFromQuery(c, h.pageSize)
	if !ok {
		return
	}
	items, total, err := h.svc.ListWorkspaces(c.Request.Context(), currentUser(c), page)
	if err != nil {
		c.Error(err)
		return
	}
	respondPage(c, page, total, toWorkspaceList(items))
}

func (h *AnalysisHandler) GetWorkspace(c *gin.Context) {
	id, ok := pathID(c, "wid")
	if !ok {
		return
	}
	w, err := h.svc.GetWorkspace(c.Request.Context(), currentUser(c), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toWorkspacePublic(w))
}

func (h *AnalysisHandler) CreateWorkspace(c *gin.Context) {
	var req service.WorkspaceRequest
	if !bindJSON(c, &req) {
		return
	}
	w, err := h.svc.CreateWorkspace(c.Request.Context(), currentUser(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, toWorkspacePublic(w))
}

func (h *AnalysisHandler) UpdateWorkspace(c *gin.Context) {
	id, ok := pathID(c, "wid")
	if !ok {
		return
	}
	var req service.WorkspaceRequest
	if !bindJSON(c, &req) {
		return
	}
	w, err := h.svc.UpdateWorkspace(c.Request.Context(), currentUser(c), id, req, c.Request.Method == http.MethodPatch)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toWorkspacePublic(w))
}

func (h *AnalysisHandler) DeleteWorkspace(c *gin.Context) {
	id, ok := pathID(c, "wid")
	if !ok {
		return
	}
	if err := h.svc.DeleteWorkspace(c.Request.Context(), currentUser(c), id); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AnalysisHandler) ModifyWorkspace(c *gin.Context) {
	wid, ok := pathID(c, "wid")
	if !ok {
		return
	}
	aid, ok := pathID(c, "aid")
	if !ok {
		return
	}
	if err := h.svc.ModifyWorkspace(c.Request.Context(), currentUser(c), wid, aid, c.Param("action")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
