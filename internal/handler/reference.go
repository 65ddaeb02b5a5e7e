package handler

import (
	"net/http"

	"github.com/deaglo/apigateway/internal/service"
	"github.com/gin-gonic/gin"
)

// PricingHandler proxies quotes from FENICS.
type PricingHandler struct {
	svc *service.PricingService
}

func NewPricingHandler(svc *service.PricingService) *PricingHandler {
	return &PricingHandler{svc: svc}
}

func (h *PricingHandler) Spot(c *gin.Context) {
	var req service.SpotRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Spot(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PricingHandler) Forward(c *gin.Context) {
	var req service.ForwardRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Forward(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PricingHandler) Option(c *gin.Context) {
	var req service.OptionRequest
	if !bindJSON(c, &req) {
		return
	}
	greeks := c.Query("includeGreeks")
	res, err := h.svc.Option(c.Request.Context(), req, greeks == "true" || greeks == "1")
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ReferenceHandler serves currencies and historical spot rates.
type ReferenceHandler struct {
	currencies *service.CurrencyService
	history    *service.SpotHistoryService
}

func NewReferenceHandler(currencies *service.CurrencyService, history *service.SpotHistoryService) *ReferenceHandler {
	return &ReferenceHandler{currencies: currencies, history: history}
}

func (h *ReferenceHandler) Currencies(c *gin.Context) {
	items, err := h.currencies.List(c.Request.Context(), c.Query("ctx"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toCurrencyList(items))
}

func (h *ReferenceHandler) SpotHistory(c *gin.Context) {
	var req service.SpotHistoryRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.history.Query(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	rates := res.Rates
	if rates == nil {
		rates = []service.SpotRate{}
	}
	c.JSON(http.StatusOK, gin.H{
		"baseCurrency":    toCurrencyPublic(res.BaseCurrency),
		"foreignCurrency": toCurrencyPublic(res.ForeignCurrency),
		"startDate":       res.StartDate,
		"endDate":         res.EndDate,
		"isBaseSold":      res.IsBaseSold,
		"spotHistoryData": rates,
	})
}
