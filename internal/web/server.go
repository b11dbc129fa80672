package web

import (
	"net/http"
	"time"

	"github.com/KNICEX/price-alert/internal/repo"
	"github.com/KNICEX/price-alert/internal/service/monitor"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes alert management and monitoring control over HTTP.
type Server struct {
	Router *gin.Engine

	alerts          repo.AlertRepo
	scheduler       *monitor.Scheduler
	defaultInterval time.Duration
	logger          *zap.Logger
}

func NewServer(alerts repo.AlertRepo, scheduler *monitor.Scheduler, defaultInterval time.Duration, logger *zap.Logger) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(logger))

	if defaultInterval <= 0 {
		defaultInterval = monitor.DefaultInterval
	}
	s := &Server{
		Router:          r,
		alerts:          alerts,
		scheduler:       scheduler,
		defaultInterval: defaultInterval,
		logger:          logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.Router.Group("/api")
	{
		alerts := api.Group("/alerts")
		alerts.POST("", s.createAlert)
		alerts.GET("", s.listAlerts)
		alerts.GET("/stats", s.alertStats)
		alerts.PUT("/:id", s.updateAlert)
		alerts.DELETE("/:id", s.deleteAlert)
		alerts.POST("/:id/check", s.checkAlert)

		monitoring := api.Group("/monitoring")
		monitoring.POST("", s.startMonitoring)
		monitoring.DELETE("", s.stopMonitoring)
		monitoring.GET("", s.monitoringStatus)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"monitoring": s.scheduler.Status().Running,
	})
}
