// Package client holds the per-session pieces a mobile frontend drives: the
// cached notification view, the realtime change listener, and the transient
// popup presenter. Everything here is discarded on logout or unmount.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kamrulhasan12345/brainstormers-server/internal/eventbus"
	"github.com/kamrulhasan12345/brainstormers-server/internal/services"
	"github.com/kamrulhasan12345/brainstormers-server/pkg/logger"
)

// CacheStatus tracks where a cache instance is in its load cycle.
type CacheStatus string

const (
	CacheIdle    CacheStatus = "idle"
	CacheLoading CacheStatus = "loading"
	CacheReady   CacheStatus = "ready"
)

// Source is the slice of the notification store the cache consumes.
// *services.NotificationService satisfies it.
type Source interface {
	ListForUser(ctx context.Context, input services.ListNotificationsInput) ([]services.NotificationDTO, error)
	MarkRead(ctx context.Context, userID, notificationID string) (*services.NotificationDTO, error)
}

// Snapshot is an immutable view of the cache handed to the UI.
type Snapshot struct {
	Notifications []services.NotificationDTO
	UnreadCount   int
	Status        CacheStatus
	Err           error
}

const defaultListLimit = 50

// Cache keeps one user's notifications fresh across refresh triggers: the
// initial load, update-bus messages, and an optional polling safety net. A
// failed reload never blanks the view; the last good data stays visible with
// an error flag that clears on the next successful load.
type Cache struct {
	source       Source
	bus          *eventbus.Bus
	userID       string
	pollInterval time.Duration
	listLimit    int
	now          func() time.Time
	log          *zap.Logger

	mu      sync.Mutex
	status  CacheStatus
	items   []services.NotificationDTO
	unread  int
	err     error
	loading bool
	pending bool
	started bool

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	loads       sync.WaitGroup
}

// CacheOption customises a Cache.
type CacheOption func(*Cache)

// WithPollInterval enables the periodic reload safety net.
func WithPollInterval(d time.Duration) CacheOption {
	return func(c *Cache) { c.pollInterval = d }
}

// WithListLimit bounds how many notifications each reload fetches.
func WithListLimit(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.listLimit = n
		}
	}
}

// WithCacheClock overrides the clock, primarily for tests.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache constructs a cache for one user. The bus may be nil when no
// realtime trigger is wired (polling or manual refresh only).
func NewCache(source Source, bus *eventbus.Bus, userID string, opts ...CacheOption) (*Cache, error) {
	if source == nil {
		return nil, errors.New("notification cache: source is required")
	}
	if userID == "" {
		return nil, errors.New("notification cache: user id is required")
	}

	c := &Cache{
		source:    source,
		bus:       bus,
		userID:    userID,
		listLimit: defaultListLimit,
		now:       time.Now,
		status:    CacheIdle,
		log:       logger.WithModule("client.cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start wires the refresh triggers and kicks off the initial load. The
// provided context bounds the cache's lifetime; cancelling it (or calling
// Stop) guarantees no late reload result is applied afterwards.
func (c *Cache) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(ensureContext(ctx))

	if c.bus != nil {
		c.unsubscribe = c.bus.Subscribe(func(event eventbus.Event) {
			if event.UserID == "" || event.UserID == c.userID {
				c.Refresh()
			}
		})
	}
	c.mu.Unlock()

	c.Refresh()

	if c.pollInterval > 0 {
		go c.pollLoop()
	}
}

// Stop tears the cache down: the bus subscription is removed, the poll timer
// stopped, and any in-flight reload result discarded.
func (c *Cache) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	c.status = CacheIdle
	cancel := c.cancel
	unsubscribe := c.unsubscribe
	c.cancel, c.unsubscribe = nil, nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	c.loads.Wait()
}

// Refresh triggers a reload. All triggers converge here; a trigger arriving
// while a load is in flight collapses into one trailing reload instead of
// overlapping requests.
func (c *Cache) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || c.ctx == nil || c.ctx.Err() != nil {
		return
	}
	if c.loading {
		c.pending = true
		return
	}
	c.beginLoadLocked()
}

// MarkRead optimistically flips a notification to read, then persists the
// transition. If the store call fails the optimistic change is rolled back
// and the error flag set, so the view never silently diverges from the
// server.
func (c *Cache) MarkRead(ctx context.Context, id string) error {
	c.mu.Lock()
	idx := -1
	for i := range c.items {
		if c.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 || c.items[idx].IsRead {
		c.mu.Unlock()
		return nil
	}

	prevReadAt := c.items[idx].ReadAt
	readAt := c.now().UTC()
	c.items[idx].IsRead = true
	c.items[idx].ReadAt = &readAt
	c.recomputeUnreadLocked()
	c.mu.Unlock()

	_, err := c.source.MarkRead(ensureContext(ctx), c.userID, id)
	if err == nil {
		return nil
	}

	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].IsRead = false
			c.items[i].ReadAt = prevReadAt
			break
		}
	}
	c.recomputeUnreadLocked()
	c.err = err
	c.mu.Unlock()
	return err
}

// Snapshot returns a copy of the current cache state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]services.NotificationDTO, len(c.items))
	copy(items, c.items)
	return Snapshot{
		Notifications: items,
		UnreadCount:   c.unread,
		Status:        c.status,
		Err:           c.err,
	}
}

// UnreadCount returns the derived unread count.
func (c *Cache) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

func (c *Cache) beginLoadLocked() {
	c.loading = true
	c.status = CacheLoading
	ctx := c.ctx
	c.loads.Add(1)
	go c.load(ctx)
}

func (c *Cache) load(ctx context.Context) {
	defer c.loads.Done()

	items, err := c.source.ListForUser(ctx, services.ListNotificationsInput{
		UserID: c.userID,
		Limit:  c.listLimit,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	// A reload finishing after Stop (or context cancel) must not touch a
	// detached instance.
	if ctx.Err() != nil || !c.started {
		c.loading = false
		c.pending = false
		return
	}

	if err != nil {
		c.err = err
		c.log.Warn("reload failed, keeping last-good data", zap.Error(err))
	} else {
		c.items = items
		c.err = nil
	}
	c.status = CacheReady
	c.recomputeUnreadLocked()

	c.loading = false
	if c.pending {
		c.pending = false
		c.beginLoadLocked()
	}
}

// recomputeUnreadLocked derives the unread count from the current list;
// it is never an independently drifting counter.
func (c *Cache) recomputeUnreadLocked() {
	now := c.now().UTC()
	count := 0
	for i := range c.items {
		if c.items[i].IsRead {
			continue
		}
		if c.items[i].ExpiresAt != nil && !c.items[i].ExpiresAt.After(now) {
			continue
		}
		count++
	}
	c.unread = count
}

func (c *Cache) pollLoop() {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	ctx := c.ctx
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh()
		}
	}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
