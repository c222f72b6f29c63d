package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kamrulhasan12345/brainstormers-server/internal/api"
	"github.com/kamrulhasan12345/brainstormers-server/internal/app"
	"github.com/kamrulhasan12345/brainstormers-server/internal/app/maintenance"
	"github.com/kamrulhasan12345/brainstormers-server/internal/database"
	"github.com/kamrulhasan12345/brainstormers-server/internal/realtime"
	"github.com/kamrulhasan12345/brainstormers-server/internal/services"
	"github.com/kamrulhasan12345/brainstormers-server/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB            *gorm.DB
	Broker        *realtime.Broker
	Hub           *realtime.Hub
	Bridge        *realtime.Bridge
	Notifications *services.NotificationService
	Cleaner       *maintenance.Cleaner
	Router        *gin.Engine
}

// bootstrapRuntime initialises the database, realtime fan-out, services, and
// the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Broker = realtime.NewBroker()
	stack.Hub = realtime.NewHub()
	stack.Bridge = realtime.NewBridge(stack.Broker, stack.Hub)
	stack.Bridge.Start()

	stack.Notifications, err = services.NewNotificationService(stack.DB, stack.Broker,
		services.WithStoreTimeout(cfg.Notifications.StoreTimeout))
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(stack.Notifications,
		maintenance.WithRetentionDays(cfg.Notifications.RetentionDays),
		maintenance.WithExpirySchedule(cfg.Maintenance.ExpirySchedule),
		maintenance.WithPromotionSchedule(cfg.Maintenance.PromotionSchedule),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(stack.DB, stack.Broker, stack.Hub, cfg)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Bridge != nil {
		s.Bridge.Stop()
	}
	if s.Broker != nil {
		s.Broker.CloseAll()
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
