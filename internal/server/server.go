package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/propertindo/pemilu-api/internal/config"
	"github.com/propertindo/pemilu-api/internal/handlers"
	"github.com/propertindo/pemilu-api/internal/logger"
	"github.com/propertindo/pemilu-api/internal/middleware"
	"github.com/propertindo/pemilu-api/internal/scheduler"
	"github.com/propertindo/pemilu-api/internal/storage/postgres"
	"github.com/propertindo/pemilu-api/internal/ws"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	config     *config.Config
	db         *gorm.DB
	driver     *scheduler.Driver
	hub        *ws.Hub
}

// New creates a new server instance
func New(cfg *config.Config, db *gorm.DB, driver *scheduler.Driver, hub *ws.Hub) *Server {
	return &Server{
		config: cfg,
		db:     db,
		driver: driver,
		hub:    hub,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	router := s.setupRouter()

	s.httpServer = &http.Server{
		Addr:    ":" + s.config.Server.Port,
		Handler: router,

		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Get().Info("Starting HTTP server", "port", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	logger.Get().Info("Shutting down HTTP server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// setupRouter configures the HTTP router with middleware and routes
func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(s.config.Server.GinMode)

	router := gin.New()

	router.Use(middleware.RequestLog())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(s.config.CORS.AllowOrigins)
	corsConfig.AllowMethods = splitList(s.config.CORS.AllowMethods)
	corsConfig.AllowHeaders = splitList(s.config.CORS.AllowHeaders)
	if len(corsConfig.AllowOrigins) == 1 && corsConfig.AllowOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowCredentials = true
	}
	router.Use(cors.New(corsConfig))

	turnHandler := handlers.NewTurnHandler(s.driver)
	wsHandler := handlers.NewWSHandler(s.hub)

	// Health check
	router.GET("/ping", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := postgres.HealthCheck(s.db); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"message": "Pemilu API is running",
			"status":  status,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/ws/events/:event_id", wsHandler.Subscribe)

	s.setupAPIRoutes(router, turnHandler)

	return router
}

// setupAPIRoutes configures all API routes
func (s *Server) setupAPIRoutes(router *gin.Engine, turnHandler *handlers.TurnHandler) {
	api := router.Group("/api")
	{
		events := api.Group("/events")
		{
			events.GET("/:event_id/status", turnHandler.GetStatus)
			events.GET("/:event_id/selections", turnHandler.ListSelections)

			authed := events.Group("")
			authed.Use(middleware.AgentAuth(s.config.Auth.JWTSecret))
			{
				authed.POST("/:event_id/register", turnHandler.RegisterParticipant)
				authed.GET("/:event_id/registration", turnHandler.GetRegistration)
				authed.POST("/:event_id/start", turnHandler.StartEvent)
				authed.POST("/:event_id/advance", turnHandler.AdvanceTurn)
				authed.POST("/:event_id/selections", turnHandler.CastSelection)
			}
		}

		internal := api.Group("/internal")
		internal.Use(middleware.CronAuth(s.config.Auth.CronToken))
		{
			internal.POST("/tick", turnHandler.RunTick)
		}
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
