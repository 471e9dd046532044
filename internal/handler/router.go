package handler

import (
	"net/http"
	"time"

	"cmsbackend/internal/metrics"
	"cmsbackend/internal/middleware"
	"cmsbackend/internal/model"
	"cmsbackend/internal/service"
	"cmsbackend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouterDeps is everything the HTTP surface is built from
type RouterDeps struct {
	Auth          service.AuthService
	Authorizer    service.Authorizer
	Catalog       *service.Catalog
	Hub           *websocket.Hub
	Metrics       *metrics.Metrics
	Log           logrus.FieldLogger
	CORSOrigins   []string
	TokenTTL      time.Duration
	SecureCookies bool
}

// AdminEntities are served on the admin platform only
func AdminEntities(cat *service.Catalog) []Registrar {
	return append(PublicEntities(cat),
		NewEntityHandler(cat.Users),
		NewEntityHandler(cat.Roles),
		NewEntityHandler(cat.ProjectRoutes),
		NewEntityHandler(cat.RouteRoles),
		NewEntityHandler(cat.UserRoles),
		NewEntityHandler(cat.UserTokens),
	)
}

// PublicEntities are served on every platform
func PublicEntities(cat *service.Catalog) []Registrar {
	return []Registrar{
		NewEntityHandler(cat.Services),
		NewEntityHandler(cat.Portfolios),
		NewEntityHandler(cat.Partners),
		NewEntityHandler(cat.Contents),
		NewEntityHandler(cat.ContactForms),
		NewEntityHandler(cat.Clients),
		NewEntityHandler(cat.Chats),
		NewEntityHandler(cat.ChatMessages),
		NewEntityHandler(cat.Blogs),
		NewEntityHandler(cat.Langs),
		NewEntityHandler(cat.Enterprises),
		NewEntityHandler(cat.Departments),
	}
}

// MountPlatform registers the auth routes and the permission gated entity
// routes of a platform under its prefix
func MountPlatform(router *gin.Engine, p model.Platform, deps RouterDeps, entities []Registrar) {
	group := router.Group(p.Prefix())
	NewAuthHandler(deps.Auth, p, deps.TokenTTL, deps.SecureCookies).RegisterRoutes(group.Group("/auth"))

	protected := group.Group("",
		middleware.Authenticate(deps.Auth, p),
		middleware.RequireRoutePermission(deps.Authorizer, deps.Log),
	)
	for _, e := range entities {
		e.RegisterRoutes(protected.Group("/" + e.Name()))
	}
}

// NewRouter builds the gin engine with every platform mounted
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(deps.Log, deps.Metrics))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = deps.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	if len(corsConfig.AllowOrigins) > 0 {
		router.Use(cors.New(corsConfig))
	}

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint, dashboards connect with an admin token
	if deps.Hub != nil {
		router.GET("/ws", func(c *gin.Context) {
			websocket.ServeWs(deps.Hub, c, func(c *gin.Context, token string) error {
				_, err := deps.Auth.ParseToken(c.Request.Context(), model.PlatformAdmin, token)
				return err
			})
		})
	}

	MountPlatform(router, model.PlatformAdmin, deps, AdminEntities(deps.Catalog))
	MountPlatform(router, model.PlatformClient, deps, PublicEntities(deps.Catalog))
	MountPlatform(router, model.PlatformDevice, deps, PublicEntities(deps.Catalog))

	return router
}
