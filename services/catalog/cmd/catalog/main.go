package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/skincare_shop/pkg/authclient"
	pkgdb "github.com/Skotchmaster/skincare_shop/pkg/db"
	"github.com/Skotchmaster/skincare_shop/pkg/events"
	"github.com/Skotchmaster/skincare_shop/pkg/httpx"
	"github.com/Skotchmaster/skincare_shop/pkg/logging"
	loggingmw "github.com/Skotchmaster/skincare_shop/pkg/middleware/logging"

	"github.com/Skotchmaster/skincare_shop/services/catalog/internal/cache"
	catalogcfg "github.com/Skotchmaster/skincare_shop/services/catalog/internal/config"
	"github.com/Skotchmaster/skincare_shop/services/catalog/internal/httpserver"
	"github.com/Skotchmaster/skincare_shop/services/catalog/internal/models"
	"github.com/Skotchmaster/skincare_shop/services/catalog/internal/repo"
	"github.com/Skotchmaster/skincare_shop/services/catalog/internal/search"
	"github.com/Skotchmaster/skincare_shop/services/catalog/internal/service"
)

func main() {
	if err := godotenv.Load("services/catalog/.env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := catalogcfg.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	producer := events.New(cfg.KafkaBrokers)
	svc := &service.CatalogService{
		Repo:   &repo.GormRepo{DB: db},
		Events: producer,
	}

	if cfg.RedisAddr != "" {
		rdb := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		svc.Cache = cache.NewRedisCache(rdb, cfg.CacheTTL)
	} else {
		logger.Warn("cache_disabled", "reason", "REDIS_ADDR is empty")
	}

	if cfg.ESURL != "" {
		es, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		svc.Index = search.NewIndex(es, cfg.ESIndex)
	} else {
		logger.Warn("search_disabled", "reason", "ES_URL is empty")
	}

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})
	var consumer *events.Consumer
	if len(cfg.KafkaBrokers) > 0 {
		consumer = events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, events.TopicProduct, logger)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(consumerCtx, svc.HandleEvent); err != nil {
				logger.Error("consumer_stopped", "error", err)
			}
		}()
	} else {
		close(consumerDone)
		logger.Warn("stock_sync_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpx.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		CatalogHandler: &httpserver.CatalogHTTP{Svc: svc},
		JWTSecret:      cfg.JWTAccessSecret,
		AuthClient:     authclient.NewClient(cfg.AuthHTTPURL),
		Ready: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		},
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	stopConsumer()
	<-consumerDone
	if consumer != nil {
		_ = consumer.Close()
	}
	_ = producer.Close()
	_ = pkgdb.Close(db)

	logger.Info("catalog stopped")
}
