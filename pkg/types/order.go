package types

// OrderLineItem is the product snapshot frozen into an order at submission.
type OrderLineItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
	Price     float64 `json:"price"`
}

// OrderDraft is the ephemeral aggregate submitted as the final order. It is
// never persisted as-is; it lives only as the create-order payload (a
// pending-order record keyed by the transaction id covers the retry path).
type OrderDraft struct {
	UserID        string          `json:"user_id"`
	AddressID     string          `json:"address_id"`
	Items         []OrderLineItem `json:"items"`
	CouponID      string          `json:"coupon_id,omitempty"`
	Total         float64         `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	TransactionID string          `json:"transaction_id"`
}
