package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "cmsbackend/api/swagger" // swagger docs
	"cmsbackend/internal/cache"
	"cmsbackend/internal/config"
	"cmsbackend/internal/database"
	"cmsbackend/internal/discovery"
	"cmsbackend/internal/handler"
	"cmsbackend/internal/logger"
	"cmsbackend/internal/manifest"
	"cmsbackend/internal/metrics"
	"cmsbackend/internal/model"
	"cmsbackend/internal/repository"
	"cmsbackend/internal/service"
	"cmsbackend/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// @title           CMS Backend API
// @version         1.0
// @description     Multi-platform CRUD API gated by route-role permissions.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DSN(), log)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	log.Info("Connected to PostgreSQL successfully.")

	mt, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		log.WithError(err).Fatal("failed to register metrics")
	}

	decisions := decisionCache(cfg, log)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run()
	defer wsHub.Stop()

	// Set up dependencies (Repository -> Service -> Handler)
	stores := service.PermissionStores{
		Users:      repository.NewUserRepository(db),
		Roles:      repository.NewRoleRepository(db),
		Routes:     repository.NewProjectRouteRepository(db),
		RouteRoles: repository.NewRouteRoleRepository(db),
		UserRoles:  repository.NewUserRoleRepository(db),
	}
	authorizer := service.NewAuthorizer(stores, decisions, mt, log)
	authService := service.NewAuthService(stores.Users, repository.NewUserTokenRepository(db), map[model.Platform]string{
		model.PlatformAdmin:  cfg.JWTAdminSecret,
		model.PlatformClient: cfg.JWTClientSecret,
		model.PlatformDevice: cfg.JWTDeviceSecret,
	}, cfg.JWTExpiresIn, service.WithLoginLockout(cfg.LoginRetryLimit, cfg.LoginReactiveTime))
	catalog := service.NewCatalog(db, repository.NewTransactionManager(db), authorizer, wsHub, log)

	router := handler.NewRouter(handler.RouterDeps{
		Auth:          authService,
		Authorizer:    authorizer,
		Catalog:       catalog,
		Hub:           wsHub,
		Metrics:       mt,
		Log:           log,
		CORSOrigins:   cfg.CORSOrigins,
		TokenTTL:      cfg.JWTExpiresIn,
		SecureCookies: cfg.IsProduction(),
	})

	if cfg.SeedOnBoot {
		m, err := manifest.Load(cfg.PermissionManifest)
		if err != nil {
			log.WithError(err).Fatal("failed to load permission manifest")
		}
		lister := discovery.NewGinLister(router, model.PlatformAdmin.Prefix(), model.PlatformClient.Prefix(), model.PlatformDevice.Prefix())
		report := service.NewPermissionSeeder(stores, m, decisions, mt, log).Seed(context.Background(), lister.ListRegisteredRoutes())
		if report.Failed() {
			log.Warn("permission bootstrap finished with errors, serving anyway")
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server stopped")
}

// decisionCache prefers redis so every replica sees the same invalidations
func decisionCache(cfg *config.Config, log *logrus.Logger) cache.DecisionCache {
	if cfg.AuthzCacheTTL <= 0 {
		return cache.Nop{}
	}
	if cfg.RedisAddr == "" {
		return cache.NewMemory(cfg.AuthzCacheTTL)
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unavailable, using in-process authorization cache")
		_ = client.Close()
		return cache.NewMemory(cfg.AuthzCacheTTL)
	}
	return cache.NewRedis(client, cfg.AuthzCacheTTL)
}
