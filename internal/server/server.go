// Package server assembles the HTTP server.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smartrecipe/backend/config"
	"github.com/smartrecipe/backend/internal/api"
	"github.com/smartrecipe/backend/internal/database"
	"github.com/smartrecipe/backend/internal/metrics"
	"github.com/smartrecipe/backend/internal/middleware"
)

// Dependencies are the components a Server routes to. Redis and Limiter
// may be nil.
type Dependencies struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Handler   *api.Handler
	Validator middleware.TokenValidator
	Limiter   *middleware.RateLimiter
	Metrics   *metrics.Metrics
}

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *gorm.DB
	redis  *redis.Client
	logger *zap.Logger
}

// New creates a new server instance
func New(cfg *config.Config, deps Dependencies, logger *zap.Logger) *Server {
	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.Recovery(logger),
		middleware.RequestLogger(logger),
		deps.Metrics.HTTPMiddleware(),
		middleware.CORS(cfg.CORSOrigins),
	)

	s := &Server{
		router: router,
		db:     deps.DB,
		redis:  deps.Redis,
		logger: logger,
	}

	router.GET("/health", s.health)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	deps.Handler.RegisterRoutes(router.Group("/api/v1"), deps.Validator, deps.Limiter)

	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router exposes the handler for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"status": "ok", "database": "ok"}
	code := http.StatusOK
	if err := database.HealthCheck(ctx, s.db); err != nil {
		s.logger.Warn("database health check failed", zap.Error(err))
		status["status"], status["database"] = "unavailable", "unavailable"
		code = http.StatusServiceUnavailable
	}
	if s.redis != nil {
		status["redis"] = "ok"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			// reported, not fatal
			s.logger.Warn("redis health check failed", zap.Error(err))
			status["redis"] = "unavailable"
		}
	}
	c.JSON(code, status)
}
