package config

import "github.com/Skotchmaster/skincare_shop/pkg/config"

type ServiceConfig struct {
	config.Config

	// AdminEmail, when set, is promoted to admin at startup.
	AdminEmail string
}

func Load() ServiceConfig {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "auth"
	}

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")

	return ServiceConfig{
		Config:     cfg,
		AdminEmail: config.EnvDefault("ADMIN_EMAIL", ""),
	}
}
