package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/kamrulhasan12345/brainstormers-server/internal/app"
	"github.com/kamrulhasan12345/brainstormers-server/internal/handlers"
	"github.com/kamrulhasan12345/brainstormers-server/internal/middleware"
	"github.com/kamrulhasan12345/brainstormers-server/internal/realtime"
)

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, broker *realtime.Broker, hub *realtime.Hub, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if broker == nil {
		return nil, fmt.Errorf("realtime broker must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	// Health endpoint (public)
	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
		r.GET("/api/health", handlers.Health())
	}

	notificationHandler, err := handlers.NewNotificationHandler(db, broker, hub)
	if err != nil {
		return nil, err
	}

	scheduleHandler, err := handlers.NewScheduleHandler(db)
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	api.Use(middleware.Identity())

	registerNotificationRoutes(api, notificationHandler)
	registerScheduleRoutes(api, scheduleHandler)

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
