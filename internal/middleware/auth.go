package middleware

import (
	"errors"
	"net/http"
	"strings"

	"cmsbackend/internal/apperr"
	"cmsbackend/internal/model"
	"cmsbackend/internal/service"
	"cmsbackend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Context keys set by Authenticate
const (
	ContextUserID    = "userID"
	ContextPlatform  = "platform"
	ContextPrincipal = "principal"
)

// ForbiddenMessage is returned for every authorization deny
const ForbiddenMessage = "You are not authorized to access this resource"

// CookieName is the cookie a platform token is stored in
func CookieName(p model.Platform) string {
	return string(p) + "_access_token"
}

// SetTokenCookie stores the access token as an HttpOnly cookie
func SetTokenCookie(c *gin.Context, p model.Platform, token string, maxAge int, secure bool) {
	// Cross-origin dashboards need SameSite=None, which requires Secure
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(CookieName(p), token, maxAge, "/", "", secure, true)
}

// ClearTokenCookie removes the platform cookie
func ClearTokenCookie(c *gin.Context, p model.Platform, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(CookieName(p), "", -1, "/", "", secure, true)
}

// TokenFromRequest reads the bearer header, falling back to the platform cookie
func TokenFromRequest(c *gin.Context, p model.Platform) (string, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", errors.New("Invalid authorization format. Expected 'Bearer <token>'")
		}
		return parts[1], nil
	}
	if token, err := c.Cookie(CookieName(p)); err == nil && token != "" {
		return token, nil
	}
	return "", errors.New("Authorization is missing")
}

// Authenticate resolves the caller from a token issued for platform
func Authenticate(auth service.AuthService, platform model.Platform) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := TokenFromRequest(c, platform)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized(err.Error()))
			return
		}

		principal, err := auth.ParseToken(c.Request.Context(), platform, tokenString)
		if err != nil {
			if errors.Is(err, apperr.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized(apperr.Message(err)))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.ServerError(err.Error()))
			return
		}

		c.Set(ContextUserID, principal.UserID)
		c.Set(ContextPlatform, principal.Platform)
		c.Set(ContextPrincipal, principal)
		c.Next()
	}
}

// RequireRoutePermission checks the matched route template against the
// caller's roles. Every deny reason gets the same response; the reason is
// only logged.
func RequireRoutePermission(authz service.Authorizer, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Authorization is missing"))
			return
		}

		route := c.FullPath()
		decision, err := authz.Authorize(c.Request.Context(), principal.UserID, c.Request.Method, route)
		if err != nil {
			log.WithError(err).WithField("route", route).Error("authorization check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.ServerError(err.Error()))
			return
		}
		if !decision.Allowed {
			log.WithFields(logrus.Fields{
				"userId": principal.UserID,
				"method": c.Request.Method,
				"route":  route,
				"reason": decision.Reason,
			}).Info("request denied")
			c.AbortWithStatusJSON(http.StatusForbidden, response.Forbidden(ForbiddenMessage))
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal set by Authenticate
func PrincipalFrom(c *gin.Context) (*service.Principal, bool) {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return nil, false
	}
	p, ok := v.(*service.Principal)
	return p, ok && p != nil
}

// ActorFrom returns the caller id for AddedBy/UpdatedBy stamps
func ActorFrom(c *gin.Context) *uuid.UUID {
	p, ok := PrincipalFrom(c)
	if !ok {
		return nil
	}
	id := p.UserID
	return &id
}
