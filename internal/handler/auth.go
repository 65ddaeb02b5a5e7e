package handler

import (
	"net/http"

	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/service"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc   *service.AuthService
	users *service.UserService
}

func NewAuthHandler(svc *service.AuthService, users *service.UserService) *AuthHandler {
	return &AuthHandler{svc: svc, users: users}
}

type refreshRequest struct {
	Refresh *string `json:"refresh"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Refresh == nil {
		c.Error(apperrors.NewKeyMissing("refresh"))
		return
	}
	pair, err := h.svc.Refresh(c.Request.Context(), *req.Refresh)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req service.SignInRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.SignIn(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req service.UserRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.svc.SignUp(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, pair)
}

func (h *AuthHandler) GetOTP(c *gin.Context) {
	if err := h.svc.GetOTP(c.Request.Context(), currentUser(c)); err != nil {
		c.Error(err)
		return
	}
	success(c, http.StatusOK)
}

type verifyOTPRequest struct {
	OTPCode *string `json:"otpCode"`
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.VerifyOTP(c.Request.Context(), currentUser(c), req.OTPCode); err != nil {
		c.Error(err)
		return
	}
	success(c, http.StatusOK)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req service.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), currentUser(c), req); err != nil {
		c.Error(err)
		return
	}
	success(c, http.StatusOK)
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req service.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	sent, err := h.svc.ForgotPassword(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	if sent {
		c.JSON(http.StatusCreated, gin.H{"status": "success", "message": "OTP sent"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Password updated"})
}

func (h *AuthHandler) LinkedInURL(c *gin.Context) {
	urlType := c.DefaultQuery("urlType", service.URITypeAuth)
	if urlType != service.URITypeAuth && urlType != service.URITypeLink {
		c.Error(apperrors.NewInvalidRequest("urlType must be auth or link"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": h.svc.LinkedInURL(urlType)})
}

type linkedInSignInRequest struct {
	Code *string `json:"code"`
}

func (h *AuthHandler) LinkedInSignIn(c *gin.Context) {
	var req linkedInSignInRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.LinkedInSignIn(c.Request.Context(), req.Code)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) LinkedInLink(c *gin.Context) {
	var req service.LinkRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.svc.Link(c.Request.Context(), currentUser(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": msg})
}

func (h *AuthHandler) GetUser(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toUserPublic(u))
}

func (h *AuthHandler) UpdateUser(c *gin.Context) {
	var req service.UserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.Get(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		c.Error(err)
		return
	}
	u, err = h.users.Update(c.Request.Context(), u, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toUserPublic(u))
}

func (h *AuthHandler) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), currentUser(c).ID); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
