package types

// Address identifies a shipping destination. The backend enforces that at
// most one address per user carries the default flag; the gateway only
// reflects it when pre-selecting at checkout.
type Address struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
	IsDefault  bool   `json:"is_default"`
}

// PreselectAddress applies the checkout pre-selection rule: the default
// address when one exists, else the first in list order.
func PreselectAddress(addresses []Address) *Address {
	if len(addresses) == 0 {
		return nil
	}
	for i := range addresses {
		if addresses[i].IsDefault {
			return &addresses[i]
		}
	}
	return &addresses[0]
}
