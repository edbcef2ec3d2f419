package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
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

	ordercfg "github.com/Skotchmaster/skincare_shop/services/order/internal/config"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/gateway"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/httpserver"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/models"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/reconcile"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/repo"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/service"
)

func main() {
	if err := godotenv.Load("services/order/.env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := ordercfg.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := pkgdb.Open(openCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	// products and users are owned by the catalog and auth services
	if err := db.AutoMigrate(&models.PaymentAttempt{}, &models.Order{}, &models.OrderItem{}); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gw := gateway.NewClient(gateway.Config{
		BaseURL:    cfg.RazorpayBaseURL,
		KeyID:      cfg.RazorpayKeyID,
		KeySecret:  cfg.RazorpayKeySecret,
		Timeout:    cfg.GatewayTimeout,
		MaxRetries: cfg.GatewayMaxRetries,
		Budget:     cfg.GatewayBudget,
	})
	producer := events.New(cfg.KafkaBrokers)
	r := &repo.GormRepo{DB: db}

	svc := &service.OrderService{
		Repo:    r,
		Gateway: gw,
		Events:  producer,
		Opts: service.Options{
			KeySecret:        cfg.RazorpayKeySecret,
			Currency:         cfg.Currency,
			PayableTolerance: cfg.PayableTolerance,
			TaxRate:          cfg.TaxRate,
		},
	}

	worker := &reconcile.Worker{
		Repo:     r,
		Gateway:  gw,
		Events:   producer,
		Interval: cfg.ReconcileInterval,
		After:    cfg.ReconcileAfter,
		Logger:   logger,
	}
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(ctx)
	}()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpx.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		OrderHandler: &httpserver.OrderHTTP{Svc: svc},
		JWTSecret:    cfg.JWTAccessSecret,
		AuthClient:   authclient.NewClient(cfg.AuthHTTPURL),
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
		WriteTimeout:      cfg.WriteTimeout,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	<-workerDone
	_ = producer.Close()
	_ = pkgdb.Close(db)

	logger.Info("order stopped")
}
