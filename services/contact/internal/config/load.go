package config

import "github.com/Skotchmaster/skincare_shop/pkg/config"

type ServiceConfig struct {
	config.Config

	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

func Load() ServiceConfig {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "contact"
	}

	mongoURI := config.EnvDefault("MONGO_URI", "")
	config.MustNonEmpty(mongoURI, "MONGO_URI")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmpty(cfg.AuthHTTPURL, "AUTH_URL")

	return ServiceConfig{
		Config:          cfg,
		MongoURI:        mongoURI,
		MongoDatabase:   config.EnvDefault("MONGO_DATABASE", "skincare"),
		MongoCollection: config.EnvDefault("MONGO_COLLECTION", "enquiries"),
	}
}
