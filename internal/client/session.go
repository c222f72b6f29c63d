package client

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kamrulhasan12345/brainstormers-server/internal/eventbus"
	"github.com/kamrulhasan12345/brainstormers-server/internal/realtime"
	"github.com/kamrulhasan12345/brainstormers-server/pkg/logger"
)

// Session ties one signed-in user's cache, listener, and popup together and
// swaps the whole set atomically when the identity changes. Logout (empty
// user id) tears everything down and leaves the session dormant.
type Session struct {
	source Source
	broker *realtime.Broker
	log    *zap.Logger

	cacheOpts []CacheOption
	popupOpts []PopupOption

	mu       sync.Mutex
	userID   string
	bus      *eventbus.Bus
	cache    *Cache
	listener *Listener
	popup    *Popup
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithSessionCacheOptions forwards options to each cache the session builds.
func WithSessionCacheOptions(opts ...CacheOption) SessionOption {
	return func(s *Session) { s.cacheOpts = opts }
}

// WithSessionPopupOptions forwards options to each popup the session builds.
func WithSessionPopupOptions(opts ...PopupOption) SessionOption {
	return func(s *Session) { s.popupOpts = opts }
}

// NewSession constructs a dormant session. Nothing runs until SetUser is
// called with a non-empty identity.
func NewSession(source Source, broker *realtime.Broker, opts ...SessionOption) *Session {
	s := &Session{
		source: source,
		broker: broker,
		log:    logger.WithModule("client.session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetUser switches the session to a new identity. The previous user's
// listener, cache, and popup are fully torn down before anything for the new
// user starts, so no stale subscription or timer outlives the switch.
// Confirming the current identity leaves the set in place but revives the
// change feed if its subscription has dropped in the meantime.
func (s *Session) SetUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID == s.userID {
		if s.listener != nil && !s.listener.Alive() {
			s.listener.Start()
			s.cache.Refresh()
			s.log.Info("realtime subscription restored", zap.String("user_id", userID))
		}
		return nil
	}

	s.teardownLocked()
	s.userID = userID
	if userID == "" {
		return nil
	}

	bus := eventbus.New()
	popup := NewPopup(s.popupOpts...)

	cache, err := NewCache(s.source, bus, userID, s.cacheOpts...)
	if err != nil {
		return err
	}
	listener, err := NewListener(s.broker, bus, popup, userID)
	if err != nil {
		return err
	}

	s.bus = bus
	s.popup = popup
	s.cache = cache
	s.listener = listener

	listener.Start()
	cache.Start(ctx)
	s.log.Info("session established", zap.String("user_id", userID))
	return nil
}

// Stop tears the current identity down. Equivalent to SetUser with an empty
// id.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	s.userID = ""
}

// Cache returns the active user's cache, or nil when signed out.
func (s *Session) Cache() *Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache
}

// Popup returns the active user's popup presenter, or nil when signed out.
func (s *Session) Popup() *Popup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.popup
}

// UserID returns the identity the session is currently bound to.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) teardownLocked() {
	if s.listener != nil {
		s.listener.Stop()
	}
	if s.cache != nil {
		s.cache.Stop()
	}
	if s.popup != nil {
		s.popup.Stop()
	}
	s.listener, s.cache, s.popup, s.bus = nil, nil, nil, nil
}
