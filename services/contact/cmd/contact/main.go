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
	"github.com/Skotchmaster/skincare_shop/pkg/events"
	"github.com/Skotchmaster/skincare_shop/pkg/httpx"
	"github.com/Skotchmaster/skincare_shop/pkg/logging"
	loggingmw "github.com/Skotchmaster/skincare_shop/pkg/middleware/logging"

	contactcfg "github.com/Skotchmaster/skincare_shop/services/contact/internal/config"
	"github.com/Skotchmaster/skincare_shop/services/contact/internal/httpserver"
	"github.com/Skotchmaster/skincare_shop/services/contact/internal/repo"
	"github.com/Skotchmaster/skincare_shop/services/contact/internal/service"
)

func main() {
	if err := godotenv.Load("services/contact/.env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := contactcfg.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := repo.NewMongoRepo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	if err == nil {
		err = store.Ping(ctx)
	}
	if err == nil {
		err = store.EnsureIndexes(ctx)
	}
	cancel()
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}

	producer := events.New(cfg.KafkaBrokers)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpx.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.BodyLimit("64K"))

	httpserver.Register(e, &httpserver.Deps{
		ContactHandler: &httpserver.ContactHTTP{Svc: &service.ContactService{Store: store, Events: producer}},
		JWTSecret:      cfg.JWTAccessSecret,
		AuthClient:     authclient.NewClient(cfg.AuthHTTPURL),
		Ready: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(ctx)
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
	_ = producer.Close()
	_ = store.Close(shutdownCtx)

	logger.Info("contact stopped")
}
