package telegram

import (
	"context"
	"sync"
	"time"

	"github.com/bekmuradov/sofra/internal/domain"
)

// settingsTTL bounds how stale the cached notification settings may
// get. Operator edits through this process apply immediately; edits
// from another process show up within the TTL.
const settingsTTL = 5 * time.Minute

// SettingsCache wraps a NotificationSettingsService with a short-lived
// read cache so every outgoing notification does not hit the database.
type SettingsCache struct {
	inner domain.NotificationSettingsService
	ttl   time.Duration

	mu        sync.Mutex
	cached    *domain.NotificationSettings
	fetchedAt time.Time
}

var _ domain.NotificationSettingsService = (*SettingsCache)(nil)

// NewSettingsCache creates a settings cache with the default TTL.
func NewSettingsCache(inner domain.NotificationSettingsService) *SettingsCache {
	return &SettingsCache{
		inner: inner,
		ttl:   settingsTTL,
	}
}

// Get returns the cached settings, refreshing from the inner service
// when the cache is empty or expired.
func (s *SettingsCache) Get(ctx context.Context) (*domain.NotificationSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && time.Since(s.fetchedAt) < s.ttl {
		cp := *s.cached
		return &cp, nil
	}

	settings, err := s.inner.Get(ctx)
	if err != nil {
		return nil, err
	}

	s.cached = settings
	s.fetchedAt = time.Now()

	cp := *settings
	return &cp, nil
}

// Update writes through to the inner service and replaces the cache
// with the returned row, so this process sees the edit immediately.
func (s *SettingsCache) Update(ctx context.Context, params domain.UpdateNotificationSettingsParams) (*domain.NotificationSettings, error) {
	settings, err := s.inner.Update(ctx, params)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cached = settings
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	cp := *settings
	return &cp, nil
}

// Invalidate drops the cached row; the next Get refetches.
func (s *SettingsCache) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}
