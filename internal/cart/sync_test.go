package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

// flakyBackendAPI fails AddCartItem for selected products, used to force
// partial migrations.
type flakyBackendAPI struct {
	stubBackendAPI
	failProducts map[string]bool
}

func (f *flakyBackendAPI) AddCartItem(ctx context.Context, sessionID string, item types.NewCartItem) (*types.CartItem, error) {
	if f.failProducts[item.ProductID] {
		return nil, errors.New("backend rejected item")
	}
	return f.stubBackendAPI.AddCartItem(ctx, sessionID, item)
}

func seedGuestItems(t *testing.T, guests *memoryGuestStore, container *Container, products ...string) {
	t.Helper()
	for _, productID := range products {
		if _, err := container.Add(context.Background(), types.NewCartItem{
			ProductID: productID, Name: productID, UnitPrice: 100, Quantity: 1,
		}); err != nil {
			t.Fatalf("seed %s: %v", productID, err)
		}
	}
}

func TestSyncMigratesAllGuestItems(t *testing.T) {
	t.Parallel()

	api := &stubBackendAPI{}
	guests := newMemoryGuestStore()
	container := newTestContainer(t, ModeGuest, api, guests)
	seedGuestItems(t, guests, container, "p1", "p2", "p3")

	if err := container.SyncWithServer(context.Background()); err != nil {
		t.Fatalf("SyncWithServer: %v", err)
	}

	if container.Mode() != ModeAuthenticated {
		t.Fatal("mode not flipped to authenticated")
	}
	if guests.count("sess-1") != 0 {
		t.Fatalf("guest store still holds %d items", guests.count("sess-1"))
	}
	items := container.Items()
	if len(items) != 3 {
		t.Fatalf("got %d items after sync, want 3", len(items))
	}
	for _, item := range items {
		if IsGuestID(item.ID) {
			t.Fatalf("guest id %q survived the sync", item.ID)
		}
	}
}

func TestSyncRetryDoesNotDuplicate(t *testing.T) {
	t.Parallel()

	api := &flakyBackendAPI{failProducts: map[string]bool{"p2": true}}
	guests := newMemoryGuestStore()
	container := newTestContainer(t, ModeGuest, api, guests)
	seedGuestItems(t, guests, container, "p1", "p2")

	if err := container.SyncWithServer(context.Background()); err == nil {
		t.Fatal("expected partial sync to fail")
	}
	// p1 migrated, p2 stayed behind for the retry.
	if guests.count("sess-1") != 1 {
		t.Fatalf("guest store holds %d items after partial sync, want 1", guests.count("sess-1"))
	}

	api.failProducts = nil
	if err := container.SyncWithServer(context.Background()); err != nil {
		t.Fatalf("retry sync: %v", err)
	}

	if got := len(api.items); got != 2 {
		t.Fatalf("backend holds %d items after retry, want 2 (no duplicates)", got)
	}
	if guests.count("sess-1") != 0 {
		t.Fatal("guest store not drained after full sync")
	}
}

func TestSyncTwiceIsIdempotent(t *testing.T) {
	t.Parallel()

	api := &stubBackendAPI{}
	guests := newMemoryGuestStore()
	container := newTestContainer(t, ModeGuest, api, guests)
	seedGuestItems(t, guests, container, "p1")

	if err := container.SyncWithServer(context.Background()); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if err := container.SyncWithServer(context.Background()); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	if got := len(api.items); got != 1 {
		t.Fatalf("backend holds %d items after double sync, want 1", got)
	}
}

type stubMarker struct {
	mu   sync.Mutex
	keys map[string]string
}

func newStubMarker() *stubMarker {
	return &stubMarker{keys: map[string]string{}}
}

func (m *stubMarker) GetOptional(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *stubMarker) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = fmt.Sprint(value)
	return nil
}

func (m *stubMarker) CartSyncKey(sessionID string) string {
	return "sync:" + sessionID
}

func (m *stubMarker) marked(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key] != ""
}

type stubAuthChecker struct{ authed bool }

func (s *stubAuthChecker) Authenticated(ctx context.Context, sessionID string) (bool, error) {
	return s.authed, nil
}

func TestManagerOnLoginRunsSyncOncePerMarker(t *testing.T) {
	t.Parallel()

	api := &stubBackendAPI{}
	guests := newMemoryGuestStore()
	marker := newStubMarker()
	manager, err := NewManager(api, &stubAuthChecker{}, guests, NewDebouncer(10*time.Millisecond), marker, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	container, err := manager.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	seedGuestItems(t, guests, container, "p1")

	if _, err := manager.OnLogin(context.Background(), "sess-1"); err != nil {
		t.Fatalf("OnLogin: %v", err)
	}
	addsAfterFirst := api.addCalls

	// A repeated login callback hits the marker and skips the migration.
	if _, err := manager.OnLogin(context.Background(), "sess-1"); err != nil {
		t.Fatalf("second OnLogin: %v", err)
	}
	if api.addCalls != addsAfterFirst {
		t.Fatalf("repeated login re-ran the migration: %d -> %d adds", addsAfterFirst, api.addCalls)
	}
}

func TestManagerOnLoginFailureAllowsRetry(t *testing.T) {
	t.Parallel()

	api := &flakyBackendAPI{failProducts: map[string]bool{"p1": true}}
	guests := newMemoryGuestStore()
	marker := newStubMarker()
	manager, err := NewManager(api, &stubAuthChecker{}, guests, NewDebouncer(10*time.Millisecond), marker, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	container, err := manager.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	seedGuestItems(t, guests, container, "p1")

	if _, err := manager.OnLogin(context.Background(), "sess-1"); err == nil {
		t.Fatal("expected failed migration to surface")
	}

	// The marker is written only after a complete sync, so an interrupted
	// migration leaves nothing behind to block the retry.
	if marker.marked(marker.CartSyncKey("sess-1")) {
		t.Fatal("marker set despite incomplete migration")
	}

	api.failProducts = nil
	if _, err := manager.OnLogin(context.Background(), "sess-1"); err != nil {
		t.Fatalf("retry OnLogin: %v", err)
	}
	if guests.count("sess-1") != 0 {
		t.Fatal("guest store not drained after retried login")
	}
}
