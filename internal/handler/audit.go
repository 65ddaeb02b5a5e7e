package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/service"
	"github.com/gin-gonic/gin"
)

const defaultAuditLimit = 100

// AuditHandler lists recorded requests for staff, optionally narrowed to one
// user and a time window.
type AuditHandler struct {
	svc *service.AuditService
}

func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

func (h *AuditHandler) List(c *gin.Context) {
	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	var fromPtr, toPtr *time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			c.Error(apperrors.NewFieldError("from", err.Error()))
			return
		}
		fromPtr = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			c.Error(apperrors.NewFieldError("to", err.Error()))
			return
		}
		toPtr = &t
	}

	records, err := h.svc.List(c.Request.Context(), c.Query("userId"), limit, fromPtr, toPtr)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time format")
}
