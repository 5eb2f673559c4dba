package types

// CartItem is one product/variant/quantity combination in a cart. Guest
// items carry a locally synthesized id until they are migrated to the
// backend after login.
type CartItem struct {
	ID           string  `json:"id"`
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	UnitPrice    float64 `json:"unit_price"`
	ListPrice    float64 `json:"list_price"`
	SellingPrice float64 `json:"selling_price"`
	Image        string  `json:"image,omitempty"`
	Color        string  `json:"color,omitempty"`
	Size         string  `json:"size,omitempty"`
	Quantity     int     `json:"quantity"`
}

// NewCartItem is the payload for an add-to-cart call; the id is assigned
// by whichever side owns the item (backend or guest store).
type NewCartItem struct {
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	UnitPrice    float64 `json:"unit_price"`
	ListPrice    float64 `json:"list_price"`
	SellingPrice float64 `json:"selling_price"`
	Image        string  `json:"image,omitempty"`
	Color        string  `json:"color,omitempty"`
	Size         string  `json:"size,omitempty"`
	Quantity     int     `json:"quantity"`
}
