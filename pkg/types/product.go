package types

// Product is the live catalog record used to enrich cart items at checkout.
type Product struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	UnitPrice    float64  `json:"unit_price"`
	ListPrice    float64  `json:"list_price"`
	SellingPrice float64  `json:"selling_price"`
	Images       []string `json:"images,omitempty"`
	WeightKG     *float64 `json:"weight_kg,omitempty"`
}
