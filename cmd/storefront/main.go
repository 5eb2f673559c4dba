package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rohanmehta-dev/vastrakart/api/controllers"
	"github.com/rohanmehta-dev/vastrakart/api/routes"
	"github.com/rohanmehta-dev/vastrakart/internal/account"
	"github.com/rohanmehta-dev/vastrakart/internal/backend"
	cartsvc "github.com/rohanmehta-dev/vastrakart/internal/cart"
	checkoutsvc "github.com/rohanmehta-dev/vastrakart/internal/checkout"
	"github.com/rohanmehta-dev/vastrakart/internal/payment"
	"github.com/rohanmehta-dev/vastrakart/internal/pricing"
	"github.com/rohanmehta-dev/vastrakart/internal/shipping"
	"github.com/rohanmehta-dev/vastrakart/pkg/arcjet"
	"github.com/rohanmehta-dev/vastrakart/pkg/config"
	"github.com/rohanmehta-dev/vastrakart/pkg/db"
	"github.com/rohanmehta-dev/vastrakart/pkg/logger"
	"github.com/rohanmehta-dev/vastrakart/pkg/metrics"
	"github.com/rohanmehta-dev/vastrakart/pkg/paypal"
	"github.com/rohanmehta-dev/vastrakart/pkg/razorpay"
	"github.com/rohanmehta-dev/vastrakart/pkg/redis"
	"github.com/rohanmehta-dev/vastrakart/pkg/shiprocket"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.GuestDB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap guest db", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing guest db", err)
		}
	}()

	if err := dbClient.AutoMigrate(cfg.GuestDB, &cartsvc.GuestCartItem{}, &checkoutsvc.PendingOrder{}); err != nil {
		logg.Error(context.Background(), "failed to migrate guest db", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	tokens := backend.NewRedisTokenStore(redisClient, cfg.Backend.SessionTokenTTL)
	backendClient, err := backend.NewClient(cfg.Backend, tokens, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create backend client", err)
		os.Exit(1)
	}

	guests, err := cartsvc.NewGuestStore(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create guest cart store", err)
		os.Exit(1)
	}

	debouncer := cartsvc.NewDebouncer(cfg.Checkout.QuantityDebounce)
	carts, err := cartsvc.NewManager(backendClient, backendClient, guests, debouncer, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart manager", err)
		os.Exit(1)
	}

	shiprocketClient, err := shiprocket.NewClient(cfg.Shipping.APIKey,
		shiprocket.WithBaseURL(cfg.Shipping.BaseURL),
		shiprocket.WithHTTPClient(&http.Client{Timeout: cfg.Shipping.Timeout}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping client", err)
		os.Exit(1)
	}

	resolver, err := shipping.NewResolver(shiprocketClient, backendClient, cfg.Shipping, checkoutMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery resolver", err)
		os.Exit(1)
	}

	paypalClient, err := paypal.NewClient(cfg.PayPal.ClientID, cfg.PayPal.ClientSecret,
		paypal.WithBaseURL(cfg.PayPal.BaseURL),
		paypal.WithHTTPClient(&http.Client{Timeout: cfg.PayPal.Timeout}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal client", err)
		os.Exit(1)
	}

	razorpayClient, err := razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret,
		razorpay.WithBaseURL(cfg.Razorpay.BaseURL),
		razorpay.WithHTTPClient(&http.Client{Timeout: cfg.Razorpay.Timeout}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay client", err)
		os.Exit(1)
	}

	arcjetClient, err := arcjet.NewClient(cfg.Arcjet.APIKey,
		arcjet.WithBaseURL(cfg.Arcjet.BaseURL),
		arcjet.WithHTTPClient(&http.Client{Timeout: cfg.Arcjet.Timeout}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create arcjet client", err)
		os.Exit(1)
	}

	pendingStore, err := checkoutsvc.NewPendingStore(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create pending order store", err)
		os.Exit(1)
	}

	orchestrator, err := checkoutsvc.NewOrchestrator(checkoutsvc.Params{
		Backend: backendClient,
		Carts:   carts,
		Adapters: []payment.Adapter{
			payment.NewPayPalAdapter(paypalClient),
			payment.NewRazorpayAdapter(razorpayClient),
		},
		Resolver: resolver,
		Fraud:    arcjetClient,
		Guard:    redisClient,
		Pending:  pendingStore,
		Rates:    pricing.RatesFromConfig(cfg.Tax),
		GuardTTL: cfg.Checkout.SubmissionGuardTTL,
		Metrics:  checkoutMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout orchestrator", err)
		os.Exit(1)
	}

	accountService, err := account.NewService(backendClient, redisClient, cfg.Checkout.OTPResendCooldown, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create account service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting storefront gateway")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			Backend:  backendClient,
			Carts:    carts,
			Checkout: orchestrator,
			Account:  accountService,
			Pingers: map[string]controllers.Pinger{
				"guest_db": dbClient,
				"redis":    redisClient,
			},
			MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "storefront gateway stopped unexpectedly", err)
		os.Exit(1)
	}
}
