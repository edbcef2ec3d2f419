package config

import (
	"os"

	"github.com/Skotchmaster/skincare_shop/pkg/config"
)

type Config struct {
	ListenAddr string
	LogLevel   string

	AuthURL    string
	CatalogURL string
	OrderURL   string
	ContactURL string

	JWTSecret []byte

	// CookieSecure is false only for plain-http local setups.
	CookieSecure bool
}

func Load() *Config {
	cfg := &Config{
		ListenAddr: config.EnvDefault("GATEWAY_ADDR", ":8080"),
		LogLevel:   config.EnvDefault("LOG_LEVEL", "info"),
		AuthURL:    os.Getenv("AUTH_URL"),
		CatalogURL: os.Getenv("CATALOG_URL"),
		OrderURL:   os.Getenv("ORDER_URL"),
		ContactURL: os.Getenv("CONTACT_URL"),
		JWTSecret:  []byte(os.Getenv("JWT_SECRET")),

		CookieSecure: config.EnvDefault("COOKIE_SECURE", "true") != "false",
	}

	config.MustNonEmpty(cfg.AuthURL, "AUTH_URL")
	config.MustNonEmpty(cfg.CatalogURL, "CATALOG_URL")
	config.MustNonEmpty(cfg.OrderURL, "ORDER_URL")
	config.MustNonEmpty(cfg.ContactURL, "CONTACT_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	return cfg
}
