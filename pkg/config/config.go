package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App      AppConfig
	Backend  BackendConfig
	GuestDB  GuestDBConfig
	Redis    RedisConfig
	Tax      TaxConfig
	Shipping ShippingConfig
	PayPal   PayPalConfig
	Razorpay RazorpayConfig
	Arcjet   ArcjetConfig
	Checkout CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Backend.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"VASTRAKART_APP_ENV" required:"true"`
	Port         string   `envconfig:"VASTRAKART_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"VASTRAKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"VASTRAKART_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"VASTRAKART_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BackendConfig points the gateway at the remote commerce API.
type BackendConfig struct {
	BaseURL         string        `envconfig:"VASTRAKART_BACKEND_BASE_URL" required:"true"`
	Timeout         time.Duration `envconfig:"VASTRAKART_BACKEND_TIMEOUT" default:"15s"`
	RefreshSkew     time.Duration `envconfig:"VASTRAKART_BACKEND_REFRESH_SKEW" default:"30s"`
	SessionTokenTTL time.Duration `envconfig:"VASTRAKART_BACKEND_SESSION_TOKEN_TTL" default:"720h"`
}

func (b BackendConfig) validate() error {
	if !strings.HasPrefix(b.BaseURL, "http://") && !strings.HasPrefix(b.BaseURL, "https://") {
		return fmt.Errorf("backend base url must be http(s): %q", b.BaseURL)
	}
	return nil
}

// GuestDBConfig locates the local sqlite store for guest carts and
// pending-order records.
type GuestDBConfig struct {
	Path        string `envconfig:"VASTRAKART_GUEST_DB_PATH" default:"vastrakart.db"`
	AutoMigrate bool   `envconfig:"VASTRAKART_GUEST_DB_AUTO_MIGRATE" default:"true"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VASTRAKART_REDIS_URL" required:"true"`
	Password     string        `envconfig:"VASTRAKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"VASTRAKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VASTRAKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VASTRAKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VASTRAKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VASTRAKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VASTRAKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// TaxConfig carries the two GST components applied to the subtotal.
type TaxConfig struct {
	CGSTPercent float64 `envconfig:"VASTRAKART_TAX_CGST_PERCENT" default:"2.5"`
	SGSTPercent float64 `envconfig:"VASTRAKART_TAX_SGST_PERCENT" default:"2.5"`
}

type ShippingConfig struct {
	BaseURL           string        `envconfig:"VASTRAKART_SHIPPING_BASE_URL"`
	APIKey            string        `envconfig:"VASTRAKART_SHIPPING_API_KEY"`
	OriginPincode     string        `envconfig:"VASTRAKART_SHIPPING_ORIGIN_PINCODE" default:"110001"`
	DefaultItemWeight float64       `envconfig:"VASTRAKART_SHIPPING_DEFAULT_ITEM_WEIGHT_KG" default:"0.5"`
	Timeout           time.Duration `envconfig:"VASTRAKART_SHIPPING_TIMEOUT" default:"12s"`
}

type PayPalConfig struct {
	BaseURL      string        `envconfig:"VASTRAKART_PAYPAL_BASE_URL" default:"https://api-m.sandbox.paypal.com"`
	ClientID     string        `envconfig:"VASTRAKART_PAYPAL_CLIENT_ID"`
	ClientSecret string        `envconfig:"VASTRAKART_PAYPAL_CLIENT_SECRET"`
	Timeout      time.Duration `envconfig:"VASTRAKART_PAYPAL_TIMEOUT" default:"15s"`
}

type RazorpayConfig struct {
	BaseURL   string        `envconfig:"VASTRAKART_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	KeyID     string        `envconfig:"VASTRAKART_RAZORPAY_KEY_ID"`
	KeySecret string        `envconfig:"VASTRAKART_RAZORPAY_KEY_SECRET"`
	Timeout   time.Duration `envconfig:"VASTRAKART_RAZORPAY_TIMEOUT" default:"15s"`
}

type ArcjetConfig struct {
	BaseURL string        `envconfig:"VASTRAKART_ARCJET_BASE_URL"`
	APIKey  string        `envconfig:"VASTRAKART_ARCJET_API_KEY"`
	Timeout time.Duration `envconfig:"VASTRAKART_ARCJET_TIMEOUT" default:"10s"`
}

// CheckoutConfig tunes the orchestrator guards.
type CheckoutConfig struct {
	SubmissionGuardTTL time.Duration `envconfig:"VASTRAKART_CHECKOUT_GUARD_TTL" default:"168h"`
	QuantityDebounce   time.Duration `envconfig:"VASTRAKART_CART_QUANTITY_DEBOUNCE" default:"400ms"`
	OTPResendCooldown  time.Duration `envconfig:"VASTRAKART_OTP_RESEND_COOLDOWN" default:"60s"`
}
