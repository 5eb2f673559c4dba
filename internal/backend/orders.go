package backend

import (
	"context"
	"net/http"

	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

type createOrderResponse struct {
	OrderID string `json:"order_id"`
}

// CreateOrder submits the final order payload and returns the backend's
// order id.
func (c *Client) CreateOrder(ctx context.Context, sessionID string, draft types.OrderDraft) (string, error) {
	var resp createOrderResponse
	if err := c.do(ctx, sessionID, http.MethodPost, "/api/v1/orders", draft, &resp); err != nil {
		return "", err
	}
	return resp.OrderID, nil
}
