package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rohanmehta-dev/vastrakart/pkg/logger"
	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

// Mode selects whether cart operations are local-only or mirrored from the
// backend.
type Mode string

const (
	ModeGuest         Mode = "guest"
	ModeAuthenticated Mode = "authenticated"
)

// BackendCartAPI is the slice of the backend client the container needs.
type BackendCartAPI interface {
	FetchCart(ctx context.Context, sessionID string) ([]types.CartItem, error)
	AddCartItem(ctx context.Context, sessionID string, item types.NewCartItem) (*types.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, sessionID, itemID string, quantity int) error
	RemoveCartItem(ctx context.Context, sessionID, itemID string) error
	ClearCart(ctx context.Context, sessionID string) error
}

// Container is the single source of truth for one session's active cart.
// All writes funnel through its operations; reads get copies. Optimistic
// local mutations are applied synchronously before any network call so the
// UI never lags behind input.
type Container struct {
	sessionID string
	api       BackendCartAPI
	guests    GuestStore
	debounce  *Debouncer
	logg      *logger.Logger

	mu        sync.RWMutex
	mode      Mode
	items     []types.CartItem
	lastError string
}

// NewContainer builds a container for the session in the given mode.
func NewContainer(sessionID string, mode Mode, api BackendCartAPI, guests GuestStore, debounce *Debouncer, logg *logger.Logger) (*Container, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id required")
	}
	if api == nil {
		return nil, fmt.Errorf("backend cart api required")
	}
	if guests == nil {
		return nil, fmt.Errorf("guest store required")
	}
	if debounce == nil {
		debounce = NewDebouncer(0)
	}
	return &Container{
		sessionID: sessionID,
		mode:      mode,
		api:       api,
		guests:    guests,
		debounce:  debounce,
		logg:      logg,
	}, nil
}

// Restore loads resident state: guest items from the durable store, or a
// fresh backend fetch for authenticated sessions.
func (c *Container) Restore(ctx context.Context) error {
	if c.Mode() == ModeGuest {
		items, err := c.guests.Load(ctx, c.sessionID)
		if err != nil {
			c.setError("could not restore saved cart")
			return err
		}
		c.replaceItems(items)
		return nil
	}
	return c.Fetch(ctx)
}

// Mode returns the current cart mode.
func (c *Container) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Items returns a copy of the current line items.
func (c *Container) Items() []types.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// LastError returns the most recent non-fatal error message, if any.
func (c *Container) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// Fetch replaces in-memory items with the server cart. Guest mode is a
// no-op: items are already resident from local persistence. On failure the
// error flag is set and items stay whatever they were; there is no partial
// overwrite.
func (c *Container) Fetch(ctx context.Context) error {
	if c.Mode() == ModeGuest {
		return nil
	}
	items, err := c.api.FetchCart(ctx, c.sessionID)
	if err != nil {
		c.setError("could not load cart")
		return err
	}
	c.replaceItems(items)
	return nil
}

// Add appends a new item. Authenticated mode posts to the backend and
// appends the returned server-backed item; guest mode synthesizes a local
// id and appends immediately with no network call.
func (c *Container) Add(ctx context.Context, item types.NewCartItem) (*types.CartItem, error) {
	item.Quantity = clampQuantity(item.Quantity)

	if c.Mode() == ModeAuthenticated {
		created, err := c.api.AddCartItem(ctx, c.sessionID, item)
		if err != nil {
			c.setError("could not add item to cart")
			return nil, err
		}
		c.appendItem(*created)
		return created, nil
	}

	created := types.CartItem{
		ID:           NewGuestID(),
		ProductID:    item.ProductID,
		Name:         item.Name,
		UnitPrice:    item.UnitPrice,
		ListPrice:    item.ListPrice,
		SellingPrice: item.SellingPrice,
		Image:        item.Image,
		Color:        item.Color,
		Size:         item.Size,
		Quantity:     item.Quantity,
	}
	c.appendItem(created)
	c.persistGuest(ctx, created)
	return &created, nil
}

// UpdateQuantity applies the clamped quantity to in-memory state
// immediately. Server-backed items additionally get a debounced network
// update keyed per item id, so rapid stepper clicks collapse into one call.
func (c *Container) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	quantity = clampQuantity(quantity)

	c.mu.Lock()
	found := false
	var updated types.CartItem
	for i := range c.items {
		if c.items[i].ID == itemID {
			c.items[i].Quantity = quantity
			updated = c.items[i]
			found = true
			break
		}
	}
	mode := c.mode
	c.mu.Unlock()

	if !found {
		return fmt.Errorf("cart item %s not found", itemID)
	}

	if mode == ModeGuest || IsGuestID(itemID) {
		c.persistGuest(ctx, updated)
		return nil
	}

	c.debounce.Trigger(c.debounceKey(itemID), func() {
		callCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.api.UpdateCartItemQuantity(callCtx, c.sessionID, itemID, quantity); err != nil {
			c.setError("could not update item quantity")
			if c.logg != nil {
				c.logg.Error(callCtx, "cart.quantity_update_failed", err)
			}
		}
	})
	return nil
}

// Remove deletes an item. Server-backed items are deleted remotely first
// and dropped locally only on success; guest items are removed locally with
// no network call.
func (c *Container) Remove(ctx context.Context, itemID string) error {
	if c.Mode() == ModeAuthenticated && !IsGuestID(itemID) {
		c.debounce.Cancel(c.debounceKey(itemID))
		if err := c.api.RemoveCartItem(ctx, c.sessionID, itemID); err != nil {
			c.setError("could not remove item from cart")
			return err
		}
		c.dropItem(itemID)
		return nil
	}

	c.dropItem(itemID)
	if err := c.guests.Remove(ctx, c.sessionID, itemID); err != nil {
		c.setError("could not update saved cart")
	}
	return nil
}

// Clear empties the cart, remotely first for authenticated sessions.
func (c *Container) Clear(ctx context.Context) error {
	if c.Mode() == ModeAuthenticated {
		if err := c.api.ClearCart(ctx, c.sessionID); err != nil {
			c.setError("could not clear cart")
			return err
		}
		c.replaceItems(nil)
		return nil
	}

	c.replaceItems(nil)
	if err := c.guests.Clear(ctx, c.sessionID); err != nil {
		c.setError("could not update saved cart")
	}
	return nil
}

func (c *Container) debounceKey(itemID string) string {
	return c.sessionID + ":" + itemID
}

func (c *Container) persistGuest(ctx context.Context, item types.CartItem) {
	if !IsGuestID(item.ID) {
		return
	}
	if err := c.guests.Upsert(ctx, c.sessionID, item); err != nil {
		c.setError("could not update saved cart")
		if c.logg != nil {
			c.logg.Error(ctx, "cart.guest_persist_failed", err)
		}
	}
}

func (c *Container) appendItem(item types.CartItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
}

func (c *Container) dropItem(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0]
	for _, item := range c.items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

func (c *Container) replaceItems(items []types.CartItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.lastError = ""
}

func (c *Container) setError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = msg
}

func (c *Container) setMode(mode Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
}

func clampQuantity(quantity int) int {
	if quantity < 1 {
		return 1
	}
	return quantity
}
