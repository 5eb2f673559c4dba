package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rohanmehta-dev/vastrakart/api/controllers"
	"github.com/rohanmehta-dev/vastrakart/api/middleware"
	"github.com/rohanmehta-dev/vastrakart/internal/account"
	"github.com/rohanmehta-dev/vastrakart/internal/backend"
	cartsvc "github.com/rohanmehta-dev/vastrakart/internal/cart"
	checkoutsvc "github.com/rohanmehta-dev/vastrakart/internal/checkout"
	"github.com/rohanmehta-dev/vastrakart/pkg/config"
	"github.com/rohanmehta-dev/vastrakart/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	Backend        *backend.Client
	Carts          *cartsvc.Manager
	Checkout       *checkoutsvc.Orchestrator
	Account        *account.Service
	Pingers        map[string]controllers.Pinger
	MetricsHandler http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(logg))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", controllers.AuthLogin(deps.Backend, deps.Carts, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Backend, deps.Carts, logg))
			r.Post("/forgot-password", controllers.AuthForgotPassword(deps.Account, logg))
			r.Post("/reset-password", controllers.AuthResetPassword(deps.Account, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Carts, logg))
			r.Post("/items", controllers.CartAdd(deps.Carts, logg))
			r.Put("/items/{itemId}", controllers.CartUpdateQuantity(deps.Carts, logg))
			r.Delete("/items/{itemId}", controllers.CartRemove(deps.Carts, logg))
			r.Post("/clear", controllers.CartClear(deps.Carts, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.CheckoutBegin(deps.Checkout, logg))
			r.Post("/email", controllers.CheckoutEmail(deps.Checkout, logg))
			r.Post("/address", controllers.CheckoutAddress(deps.Checkout, logg))
			r.Post("/coupon", controllers.CheckoutApplyCoupon(deps.Checkout, logg))
			r.Delete("/coupon", controllers.CheckoutRemoveCoupon(deps.Checkout, logg))
			r.Get("/quote", controllers.CheckoutQuote(deps.Checkout, logg))
			r.Post("/pay", controllers.CheckoutPay(deps.Checkout, logg))
			r.Post("/callback", controllers.CheckoutCallback(deps.Checkout, logg))
			r.Post("/retry", controllers.CheckoutRetry(deps.Checkout, logg))
		})
	})

	return r
}
