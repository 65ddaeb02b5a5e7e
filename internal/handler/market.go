package handler

import (
	"context"
	"net/http"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/service"
	"github.com/gin-gonic/gin"
)

// MarketHandler serves the per-user market tools. Spot history and FX
// movement responses carry the rates of their configured window.
type MarketHandler struct {
	svc     *service.MarketService
	history *service.SpotHistoryService
}

func NewMarketHandler(svc *service.MarketService, history *service.SpotHistoryService) *MarketHandler {
	return &MarketHandler{svc: svc, history: history}
}

func (h *MarketHandler) spotHistory(ctx context.Context, sh *model.SpotHistory) (pairToolPublic, error) {
	var rates []service.SpotRate
	if sh.BaseCurrency != nil && sh.ForeignCurrency != nil {
		var err error
		rates, err = h.history.LastMonths(ctx, sh.BaseCurrency.Code, sh.ForeignCurrency.Code, sh.Duration)
		if err != nil {
			return pairToolPublic{}, err
		}
	}
	return toSpotHistoryPublic(sh, rates), nil
}

func (h *MarketHandler) fxMovement(ctx context.Context, fm *model.FxMovement) (fxMovementPublic, error) {
	rates := make([][]service.SpotRate, len(fm.CurrencyPairs))
	for i, p := range fm.CurrencyPairs {
		if p.BaseCurrency == nil || p.ForeignCurrency == nil {
			continue
		}
		r, err := h.history.LastMonths(ctx, p.BaseCurrency.Code, p.ForeignCurrency.Code, fm.Duration)
		if err != nil {
			return fxMovementPublic{}, err
		}
		rates[i] = r
	}
	return toFxMovementPublic(fm, rates), nil
}

func (h *MarketHandler) Default(c *gin.Context) {
	ctx := c.Request.Context()
	m, err := h.svc.Default(ctx, currentUser(c).ID)
	if err != nil {
		c.Error(err)
		return
	}
	fm, err := h.fxMovement(ctx, m.FxMovement)
	if err != nil {
		c.Error(err)
		return
	}
	sh, err := h.spotHistory(ctx, m.SpotHistory)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fxMovement":    fm,
		"fwdEfficiency": toFwdEfficiencyPublic(m.FwdEfficiency),
		"spotHistory":   sh,
	})
}

func (h *MarketHandler) ListFwdEfficiencies(c *gin.Context) {
	items, err := h.svc.ListFwdEfficiencies(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		c.Error(err)
		return
	}
	out := make([]pairToolPublic, 0, len(items))
	for i := range items {
		out = append(out, toFwdEfficiencyPublic(&items[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *MarketHandler) GetFwdEfficiency(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	fe, err := h.svc.GetFwdEfficiency(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toFwdEfficiencyPublic(fe))
}

func (h *MarketHandler) CreateFwdEfficiency(c *gin.Context) {
	var req service.PairToolRequest
	if !bindJSON(c, &req) {
		return
	}
	fe, err := h.svc.CreateFwdEfficiency(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, toFwdEfficiencyPublic(fe))
}

func (h *MarketHandler) UpdateFwdEfficiency(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.PairToolRequest
	if !bindJSON(c, &req) {
		return
	}
	fe, err := h.svc.UpdateFwdEfficiency(c.Request.Context(), currentUser(c).ID, id, req, c.Request.Method == http.MethodPatch)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toFwdEfficiencyPublic(fe))
}

func (h *MarketHandler) DeleteFwdEfficiency(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteFwdEfficiency(c.Request.Context(), currentUser(c).ID, id); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MarketHandler) ListSpotHistories(c *gin.Context) {
	ctx := c.Request.Context()
	items, err := h.svc.ListSpotHistories(ctx, currentUser(c).ID)
	if err != nil {
		c.Error(err)
		return
	}
	out := make([]pairToolPublic, 0, len(items))
	for i := range items {
		sh, err := h.spotHistory(ctx, &items[i])
		if err != nil {
			c.Error(err)
			return
		}
		out = append(out, sh)
	}
	c.JSON(http.StatusOK, out)
}

func (h *MarketHandler) GetSpotHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	item, err := h.svc.GetSpotHistory(ctx, currentUser(c).ID, id)
	if err != nil {
		c.Error(err)
		return
	}
	sh, err := h.spotHistory(ctx, item)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sh)
}

func (h *MarketHandler) CreateSpotHistory(c *gin.Context) {
	var req service.PairToolRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	item, err := h.svc.CreateSpotHistory(ctx, currentUser(c).ID, req)
	if err != nil {
		c.Error(err)
		return
	}
	sh, err := h.spotHistory(ctx, item)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, sh)
}

func (h *MarketHandler) UpdateSpotHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.PairToolRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	item, err := h.svc.UpdateSpotHistory(ctx, currentUser(c).ID, id, req, c.Request.Method == http.MethodPatch)
	if err != nil {
		c.Error(err)
		return
	}
	sh, err := h.spotHistory(ctx, item)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sh)
}

func (h *MarketHandler) DeleteSpotHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteSpotHistory(c.Request.Context(), currentUser(c).ID, id); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MarketHandler) ListFxMovements(c *gin.Context) {
	ctx := c.Request.Context()
	items, err := h.svc.ListFxMovements(ctx, currentUser(c).ID)
	if err != nil {
		c.Error(err)
		return
	}
	out := make([]fxMovementPublic, 0, len(items))
	for i := range items {
		fm, err := h.fxMovement(ctx, &items[i])
		if err != nil {
			c.Error(err)
			return
		}
		out = append(out, fm)
	}
	c.JSON(http.StatusOK, out)
}

func (h *MarketHandler) GetFxMovement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	item, err := h.svc.GetFxMovement(ctx, currentUser(c).ID, id)
	if err != nil {
		c.Error(err)
		return
	}
	fm, err := h.fxMovement(ctx, item)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fm)
}

func (h *MarketHandler) CreateFxMovement(c *gin.Context) {
	var req service.FxMovementRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	item, err := h.svc.CreateFxMovement(ctx, currentUser(c).ID, req)
	if err != nil {
		c.Error(err)
		return
	}
	fm, err := h.fxMovement(ctx, item)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, fm)
}

func (h *MarketHandler) UpdateFxMovement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.FxMovementRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	item, err := h.svc.UpdateFxMovement(ctx, currentUser(c).ID, id, req, c.Request.Method == http.MethodPatch)
	if err != nil {
		c.Error(err)
		return
	}
	fm, err := h.fxMovement(ctx, item)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fm)
}

func (h *MarketHandler) DeleteFxMovement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteFxMovement(c.Request.Context(), currentUser(c).ID, id); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
