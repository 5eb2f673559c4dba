package backend

import (
	"context"
	"net/http"

	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

type cartResponse struct {
	Items []types.CartItem `json:"items"`
}

// FetchCart returns the server-side cart for an authenticated session.
func (c *Client) FetchCart(ctx context.Context, sessionID string) ([]types.CartItem, error) {
	var resp cartResponse
	if err := c.do(ctx, sessionID, http.MethodGet, "/api/v1/cart", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// AddCartItem posts a new item and returns it with its server-assigned id.
func (c *Client) AddCartItem(ctx context.Context, sessionID string, item types.NewCartItem) (*types.CartItem, error) {
	var created types.CartItem
	if err := c.do(ctx, sessionID, http.MethodPost, "/api/v1/cart/items", item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCartItemQuantity sets the quantity of a server-side item.
func (c *Client) UpdateCartItemQuantity(ctx context.Context, sessionID, itemID string, quantity int) error {
	body := map[string]int{"quantity": quantity}
	return c.do(ctx, sessionID, http.MethodPut, "/api/v1/cart/items/"+itemID, body, nil)
}

// RemoveCartItem deletes a server-side item.
func (c *Client) RemoveCartItem(ctx context.Context, sessionID, itemID string) error {
	return c.do(ctx, sessionID, http.MethodDelete, "/api/v1/cart/items/"+itemID, nil, nil)
}

// ClearCart empties the server-side cart after a successful order.
func (c *Client) ClearCart(ctx context.Context, sessionID string) error {
	return c.do(ctx, sessionID, http.MethodPost, "/api/v1/cart/clear", nil, nil)
}
