package handler

import (
	"time"

	"cmsbackend/internal/middleware"
	"cmsbackend/internal/model"
	"cmsbackend/internal/service"
	"cmsbackend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
	platform    model.Platform
	tokenTTL    time.Duration
	secure      bool
}

// NewAuthHandler sets up the login endpoints of one platform
func NewAuthHandler(authService service.AuthService, platform model.Platform, tokenTTL time.Duration, secure bool) *AuthHandler {
	return &AuthHandler{authService: authService, platform: platform, tokenTTL: tokenTTL, secure: secure}
}

// RegisterRoutes binds the endpoints to a group mounted at <prefix>/auth
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/login", h.Login)

	authed := router.Group("", middleware.Authenticate(h.authService, h.platform))
	authed.POST("/logout", h.Logout)
	authed.GET("/me", h.Me)
}

// Login handles POST /<prefix>/auth/login
// @Summary      Login user
// @Description  Authenticates by username or email and returns a platform scoped JWT
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest   true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      401      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /admin/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, response.Validation("Invalid values in parameters, "+err.Error()))
		return
	}

	tokenRes, err := h.authService.Login(c.Request.Context(), h.platform, req)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetTokenCookie(c, h.platform, tokenRes.Token, int(h.tokenTTL.Seconds()), h.secure)
	respond(c, response.Success(tokenRes))
}

// Logout handles POST /<prefix>/auth/logout
// @Summary      Logout user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /admin/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		respond(c, response.Unauthorized("Authorization is missing"))
		return
	}
	if err := h.authService.Logout(c.Request.Context(), principal.Token); err != nil {
		respondError(c, err)
		return
	}
	middleware.ClearTokenCookie(c, h.platform, h.secure)
	respond(c, response.Success(nil))
}

// Me handles GET /<prefix>/auth/me
// @Summary      Get current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=model.User}
// @Failure      401      {object}  response.Response
// @Router       /admin/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		respond(c, response.Unauthorized("Authorization is missing"))
		return
	}
	user, err := h.authService.Me(c.Request.Context(), principal.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, response.Success(user))
}
