package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kamrulhasan12345/brainstormers-server/internal/services"
	"github.com/kamrulhasan12345/brainstormers-server/pkg/logger"
)

const (
	defaultRetentionDays = 30
	defaultExpirySpec    = "@daily"
	defaultPromotionSpec = "@every 1m"
)

// Cleaner coordinates background maintenance: sweeping long-expired
// notification rows and promoting scheduled notifications whose delivery time
// has arrived.
type Cleaner struct {
	notifications *services.NotificationService
	cron          *cron.Cron
	now           func() time.Time
	log           *zap.Logger
	retention     int

	expirySchedule    string
	promotionSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithRetentionDays adjusts how long expired notifications are retained
// before the sweep deletes them.
func WithRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithExpirySchedule overrides the cron specification for the expiry sweep.
func WithExpirySchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.expirySchedule = spec
		}
	}
}

// WithPromotionSchedule overrides the cron specification for scheduled
// notification promotion.
func WithPromotionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.promotionSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(notifications *services.NotificationService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		notifications:     notifications,
		now:               time.Now,
		retention:         defaultRetentionDays,
		expirySchedule:    defaultExpirySpec,
		promotionSchedule: defaultPromotionSpec,
		log:               logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the maintenance jobs with the cron scheduler and launches
// it. A nil notification service leaves the scheduler idle.
func (c *Cleaner) Start() error {
	if c.notifications == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.expirySchedule, func() {
		if _, err := c.sweepExpired(context.Background()); err != nil {
			c.log.Warn("expiry sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if _, err := c.cron.AddFunc(c.promotionSchedule, func() {
		if _, err := c.notifications.PromoteScheduled(context.Background(), c.now()); err != nil {
			c.log.Warn("scheduled promotion failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all maintenance routines sequentially. Primarily used in
// tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.notifications == nil {
		return nil
	}

	var errs error

	if _, err := c.sweepExpired(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := c.notifications.PromoteScheduled(ctx, c.now()); err != nil {
		errs = multierr.Append(errs, err)
	}

	return errs
}

// sweepExpired deletes rows whose expiry passed more than the retention
// window ago. Recently expired rows stay queryable for audit.
func (c *Cleaner) sweepExpired(ctx context.Context) (int64, error) {
	cutoff := c.now().UTC().AddDate(0, 0, -c.retention)
	removed, err := c.notifications.CleanupExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		c.log.Info("expired notifications removed", zap.Int64("count", removed))
	}
	return removed, nil
}
