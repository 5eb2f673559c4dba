package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rohanmehta-dev/vastrakart/pkg/logger"
)

// AuthChecker reports whether a session holds backend credentials.
type AuthChecker interface {
	Authenticated(ctx context.Context, sessionID string) (bool, error)
}

// SyncMarker records that a session's guest cart was fully migrated, so a
// repeated login callback does not re-run the migration. The marker is
// written only after a complete sync; an interrupted one leaves no marker.
type SyncMarker interface {
	GetOptional(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CartSyncKey(sessionID string) string
}

// Manager hands out the per-session cart containers and drives the
// guest-to-authenticated transition on login.
type Manager struct {
	api      BackendCartAPI
	auth     AuthChecker
	guests   GuestStore
	debounce *Debouncer
	marker   SyncMarker
	logg     *logger.Logger

	mu         sync.Mutex
	containers map[string]*Container
}

// NewManager builds the manager backed by the provided stack.
func NewManager(api BackendCartAPI, auth AuthChecker, guests GuestStore, debounce *Debouncer, marker SyncMarker, logg *logger.Logger) (*Manager, error) {
	if api == nil {
		return nil, fmt.Errorf("backend cart api required")
	}
	if auth == nil {
		return nil, fmt.Errorf("auth checker required")
	}
	if guests == nil {
		return nil, fmt.Errorf("guest store required")
	}
	if debounce == nil {
		debounce = NewDebouncer(0)
	}
	return &Manager{
		api:        api,
		auth:       auth,
		guests:     guests,
		debounce:   debounce,
		marker:     marker,
		logg:       logg,
		containers: map[string]*Container{},
	}, nil
}

// Get returns the session's container, creating and restoring it on first
// use.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Container, error) {
	m.mu.Lock()
	container, ok := m.containers[sessionID]
	m.mu.Unlock()
	if ok {
		return container, nil
	}

	authed, err := m.auth.Authenticated(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	mode := ModeGuest
	if authed {
		mode = ModeAuthenticated
	}

	container, err = NewContainer(sessionID, mode, m.api, m.guests, m.debounce, m.logg)
	if err != nil {
		return nil, err
	}
	if err := container.Restore(ctx); err != nil && m.logg != nil {
		m.logg.Warn(ctx, "cart restore failed, starting from resident state")
	}

	m.mu.Lock()
	if existing, ok := m.containers[sessionID]; ok {
		container = existing
	} else {
		m.containers[sessionID] = container
	}
	m.mu.Unlock()
	return container, nil
}

// OnLogin flips the session's cart to authenticated mode and migrates any
// guest items exactly once per login session. A marker set only after a
// fully successful sync keeps repeated login callbacks from re-running the
// migration, while a partial failure leaves the marker unset so a retry
// can finish the remainder.
func (m *Manager) OnLogin(ctx context.Context, sessionID string) (*Container, error) {
	container, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if m.marker != nil {
		if done, err := m.marker.GetOptional(ctx, m.marker.CartSyncKey(sessionID)); err == nil && done != "" {
			container.setMode(ModeAuthenticated)
			return container, container.Fetch(ctx)
		}
	}

	if err := container.SyncWithServer(ctx); err != nil {
		return container, err
	}

	// Written after the sync so a crash mid-migration cannot leave a
	// marker blocking the retry; the sync itself tolerates re-runs.
	if m.marker != nil {
		if err := m.marker.Set(ctx, m.marker.CartSyncKey(sessionID), "1", 24*time.Hour); err != nil && m.logg != nil {
			m.logg.Warn(ctx, "could not record completed cart sync")
		}
	}
	return container, nil
}

// Evict forgets the session's container, used on logout.
func (m *Manager) Evict(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.containers, sessionID)
}
