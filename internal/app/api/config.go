package api

import (
	"fmt"
	"os"
	"strings"

	"go.temporal.io/sdk/client"

	"github.com/Apurer/photo-orders/internal/domains/orders/application"
	"github.com/Apurer/photo-orders/internal/domains/orders/domain"
)

// Config carries environment-driven settings for the API process.
type Config struct {
	Port                string
	PostgresDSN         string
	AWSRegion           string
	S3Bucket            string
	StripeSecretKey     string
	StripeWebhookSecret string
	SuccessURL          string
	CancelURL           string
	Prices              application.PriceTable
	TemporalAddress     string
	TemporalNamespace   string
	TemporalDisabled    bool
}

// LoadConfig reads environment variables, applies defaults, and validates the
// settings the intake saga cannot run without. Postgres and S3 are optional:
// the runtime falls back to in-memory adapters when they are absent.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:                envDefault("PORT", "8080"),
		PostgresDSN:         strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		AWSRegion:           envDefault("AWS_REGION", "us-east-1"),
		S3Bucket:            strings.TrimSpace(os.Getenv("S3_BUCKET")),
		StripeSecretKey:     strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		StripeWebhookSecret: strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),
		SuccessURL:          envDefault("SUCCESS_URL", "http://localhost:3000/payment/success"),
		CancelURL:           envDefault("CANCEL_URL", "http://localhost:3000/payment/cancel"),
		Prices: application.PriceTable{
			domain.PackageBasic:    strings.TrimSpace(os.Getenv("STRIPE_PRICE_BASIC")),
			domain.PackageAdvanced: strings.TrimSpace(os.Getenv("STRIPE_PRICE_ADVANCED")),
			domain.PackagePremium:  strings.TrimSpace(os.Getenv("STRIPE_PRICE_PREMIUM")),
		},
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
	}
	if cfg.StripeSecretKey == "" {
		return Config{}, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if cfg.StripeWebhookSecret == "" {
		return Config{}, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	if err := cfg.Prices.Validate(); err != nil {
		return Config{}, fmt.Errorf("incomplete price configuration: %w", err)
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
