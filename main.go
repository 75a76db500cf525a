package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogotex/backend/content-service/handlers"
	"github.com/gogotex/gogotex/backend/content-service/internal/app"
	"github.com/gogotex/gogotex/backend/content-service/internal/auth"
	"github.com/gogotex/gogotex/backend/content-service/internal/config"
	"github.com/gogotex/gogotex/backend/content-service/internal/content/handler"
	"github.com/gogotex/gogotex/backend/content-service/pkg/logger"
	"github.com/gogotex/gogotex/backend/content-service/pkg/metrics"
	"github.com/gogotex/gogotex/backend/content-service/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer func() { _ = logger.L().Sync() }()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	log := logger.L()
	log.Info("config loaded",
		zap.String("backend", cfg.Content.Backend),
		zap.Bool("redis", cfg.Redis.Addr() != ""),
		zap.Bool("revalidate_webhook", cfg.Revalidate.URL != ""),
		zap.Bool("minio", cfg.MinIO.Endpoint != ""),
		zap.Bool("keycloak", cfg.Keycloak.URL != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		logger.Fatalf("failed to open content store: %v", err)
	}
	defer func() { _ = a.Close(context.Background()) }()

	verifier := a.AdminVerifier(ctx)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// ready only when the store answers and configured dependencies are up
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		deps["store"] = a.StoreReady(c.Request.Context())
		if !deps["store"] {
			ready = false
		}
		if cfg.Redis.Addr() != "" {
			deps["redis"] = a.Redis != nil && a.Redis.Ping(c.Request.Context()).Err() == nil
			if !deps["redis"] {
				ready = false
			}
		}
		if cfg.Keycloak.URL != "" || cfg.JWT.Secret != "" {
			deps["auth"] = verifier != nil
			if !deps["auth"] {
				ready = false
			}
		}

		body := gin.H{"status": "ready", "backend": a.Store.Backend(), "deps": deps, "uptime": time.Since(startTime).String()}
		if !ready {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	})

	var guards []gin.HandlerFunc
	switch {
	case verifier != nil:
		guards = append(guards, middleware.AuthMiddleware(verifier), middleware.RequireRole(auth.AdminRole))
	case cfg.Server.Environment == "production":
		log.Error("no token verifier configured; content writes are disabled")
		guards = append(guards, func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "write authentication is not configured"})
		})
	default:
		log.Warn("no token verifier configured; content writes are unauthenticated")
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && a.Redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			guards = append(guards, middleware.RedisRateLimitMiddleware(a.Redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			guards = append(guards, middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	deps := handler.Dependencies{
		Service:     a.Service,
		History:     a.History(),
		Pipeline:    a.Pipeline,
		Invalidator: a.Invalidator,
		WriteGuards: guards,
		Logger:      log,
	}
	if a.Archive != nil {
		deps.Snapshots = a.Archive
	}
	handler.RegisterContentRoutes(r, deps)
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting content service", zap.String("addr", addr), zap.String("backend", a.Store.Backend()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil {
			logger.Errorf("server failed: %v", err)
		}
	}
}
