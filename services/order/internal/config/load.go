package config

import (
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/skincare_shop/pkg/config"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/gateway"
)

type ServiceConfig struct {
	config.Config

	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string
	Currency          string
	GatewayTimeout    time.Duration
	GatewayMaxRetries int
	GatewayBudget     time.Duration
	WriteTimeout      time.Duration

	PayableTolerance decimal.Decimal
	TaxRate          decimal.Decimal

	ReconcileInterval time.Duration
	ReconcileAfter    time.Duration
}

func Load() ServiceConfig {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "order"
	}

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmpty(cfg.AuthHTTPURL, "AUTH_URL")

	sc := ServiceConfig{
		Config: cfg,

		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayBaseURL:   config.EnvDefault("RAZORPAY_BASE_URL", gateway.DefaultBaseURL),
		Currency:          config.EnvDefault("PAYMENT_CURRENCY", "INR"),
		GatewayTimeout:    config.EnvDurationDefault("GATEWAY_TIMEOUT", 10*time.Second),
		GatewayMaxRetries: config.EnvIntDefault("GATEWAY_MAX_RETRIES", 3),
		GatewayBudget:     config.EnvDurationDefault("GATEWAY_BUDGET", 20*time.Second),
		WriteTimeout:      config.EnvDurationDefault("HTTP_WRITE_TIMEOUT", 30*time.Second),

		PayableTolerance: config.EnvDecimalDefault("PAYABLE_TOLERANCE", decimal.RequireFromString("0.01")),
		TaxRate:          config.EnvDecimalDefault("TAX_RATE", decimal.RequireFromString("0.18")),

		ReconcileInterval: config.EnvDurationDefault("RECONCILE_INTERVAL", 5*time.Minute),
		ReconcileAfter:    config.EnvDurationDefault("RECONCILE_AFTER", 30*time.Minute),
	}

	config.MustNonEmpty(sc.RazorpayKeyID, "RAZORPAY_KEY_ID")
	config.MustNonEmpty(sc.RazorpayKeySecret, "RAZORPAY_KEY_SECRET")
	sc.GatewayBudget = GatewayBudget(sc.GatewayBudget, sc.WriteTimeout)

	return sc
}

// responseMargin is reserved after the gateway budget for writing the response.
const responseMargin = 5 * time.Second

// GatewayBudget caps budget so a hung gateway still leaves time to answer before writeTimeout.
func GatewayBudget(budget, writeTimeout time.Duration) time.Duration {
	limit := writeTimeout - responseMargin
	if limit <= 0 {
		limit = writeTimeout / 2
	}
	if budget <= 0 || budget > limit {
		return limit
	}
	return budget
}
