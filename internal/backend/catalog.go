package backend

import (
	"context"
	"net/http"

	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

// GetProduct fetches a live product record for checkout-time enrichment.
func (c *Client) GetProduct(ctx context.Context, sessionID, productID string) (*types.Product, error) {
	var product types.Product
	if err := c.do(ctx, sessionID, http.MethodGet, "/api/v1/products/"+productID, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

type addressesResponse struct {
	Addresses []types.Address `json:"addresses"`
}

// ListAddresses returns the user's saved shipping addresses.
func (c *Client) ListAddresses(ctx context.Context, sessionID string) ([]types.Address, error) {
	var resp addressesResponse
	if err := c.do(ctx, sessionID, http.MethodGet, "/api/v1/addresses", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

type couponsResponse struct {
	Coupons []types.Coupon `json:"coupons"`
}

// ListCoupons returns the currently published coupon list.
func (c *Client) ListCoupons(ctx context.Context, sessionID string) ([]types.Coupon, error) {
	var resp couponsResponse
	if err := c.do(ctx, sessionID, http.MethodGet, "/api/v1/coupons", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Coupons, nil
}
