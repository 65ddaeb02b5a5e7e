package handler

import (
	"net/http"

	"github.com/deaglo/apigateway/internal/service"
	"github.com/gin-gonic/gin"
)

// AdminHandler serves the staff console. Routes sit behind StaffOnly.
type AdminHandler struct {
	svc      *service.AdminService
	pageSize int
}

func NewAdminHandler(svc *service.AdminService, pageSize int) *AdminHandler {
	return &AdminHandler{svc: svc, pageSize: pageSize}
}

func (h *AdminHandler) ListOrganizations(c *gin.Context) {
	page, ok := pageFromQuery(c, h.pageSize)
	if !ok {
		return
	}
	orgs, total, err := h.svc.ListOrganizations(c.Request.Context(), page)
	if err != nil {
		c.Error(err)
		return
	}
	respondPage(c, page, total, toOrganizationList(orgs))
}

func (h *AdminHandler) GetOrganization(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	org, err := h.svc.GetOrganization(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toOrganizationPublic(org))
}

func (h *AdminHandler) CreateOrganization(c *gin.Context) {
	var req service.OrganizationRequest
	if !bindJSON(c, &req) {
		return
	}
	org, err := h.svc.CreateOrganization(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, toOrganizationPublic(org))
}

func (h *AdminHandler) UpdateOrganization(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.OrganizationRequest
	if !bindJSON(c, &req) {
		return
	}
	org, err := h.svc.UpdateOrganization(c.Request.Context(), id, req, c.Request.Method == http.MethodPatch)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toOrganizationPublic(org))
}

func (h *AdminHandler) DeleteOrganization(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteOrganization(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, ok := pageFromQuery(c, h.pageSize)
	if !ok {
		return
	}
	users, total, err := h.svc.ListUsers(c.Request.Context(), page)
	if err != nil {
		c.Error(err)
		return
	}
	respondPage(c, page, total, toAdminUserList(users))
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, err := h.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toAdminUserPublic(u))
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req service.AdminUserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.svc.CreateUser(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, toAdminUserPublic(u))
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.AdminUserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.svc.UpdateUser(c.Request.Context(), id, req, c.Request.Method == http.MethodPatch)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toAdminUserPublic(u))
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
