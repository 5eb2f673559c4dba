package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rohanmehta-dev/vastrakart/api/middleware"
	"github.com/rohanmehta-dev/vastrakart/api/responses"
	"github.com/rohanmehta-dev/vastrakart/api/validators"
	cartsvc "github.com/rohanmehta-dev/vastrakart/internal/cart"
	pkgerrors "github.com/rohanmehta-dev/vastrakart/pkg/errors"
	"github.com/rohanmehta-dev/vastrakart/pkg/logger"
	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

type addCartItemRequest struct {
	ProductID    string  `json:"product_id" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	UnitPrice    float64 `json:"unit_price" validate:"required,gt=0"`
	ListPrice    float64 `json:"list_price" validate:"omitempty,gte=0"`
	SellingPrice float64 `json:"selling_price" validate:"omitempty,gte=0"`
	Image        string  `json:"image,omitempty"`
	Color        string  `json:"color,omitempty"`
	Size         string  `json:"size,omitempty"`
	Quantity     int     `json:"quantity" validate:"required,min=1"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type cartView struct {
	Mode      string           `json:"mode"`
	Items     []types.CartItem `json:"items"`
	LastError string           `json:"last_error,omitempty"`
}

func newCartView(container *cartsvc.Container) cartView {
	return cartView{
		Mode:      string(container.Mode()),
		Items:     container.Items(),
		LastError: container.LastError(),
	}
}

func sessionContainer(r *http.Request, carts *cartsvc.Manager) (*cartsvc.Container, error) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session missing")
	}
	return carts.Get(r.Context(), sessionID)
}

// CartFetch returns the session cart, refreshed from the backend for
// authenticated sessions.
func CartFetch(carts *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		container, err := sessionContainer(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		// Refresh failures keep the resident items; the view carries the
		// advisory instead of a hard error.
		_ = container.Fetch(r.Context())
		responses.WriteSuccess(w, newCartView(container))
	}
}

// CartAdd appends an item to the session cart.
func CartAdd(carts *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		container, err := sessionContainer(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := container.Add(r.Context(), types.NewCartItem{
			ProductID:    payload.ProductID,
			Name:         payload.Name,
			UnitPrice:    payload.UnitPrice,
			ListPrice:    payload.ListPrice,
			SellingPrice: payload.SellingPrice,
			Image:        payload.Image,
			Color:        payload.Color,
			Size:         payload.Size,
			Quantity:     payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// CartUpdateQuantity applies the new quantity immediately; the backend
// write for server items is debounced behind the response.
func CartUpdateQuantity(carts *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemId")
		if itemID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id required"))
			return
		}

		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		container, err := sessionContainer(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := container.UpdateQuantity(r.Context(), itemID, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart item not found"))
			return
		}
		responses.WriteSuccess(w, newCartView(container))
	}
}

// CartRemove deletes one item.
func CartRemove(carts *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemId")
		if itemID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id required"))
			return
		}

		container, err := sessionContainer(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := container.Remove(r.Context(), itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(container))
	}
}

// CartClear empties the cart.
func CartClear(carts *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		container, err := sessionContainer(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := container.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(container))
	}
}
