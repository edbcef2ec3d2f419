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

	pkgdb "github.com/Skotchmaster/skincare_shop/pkg/db"
	"github.com/Skotchmaster/skincare_shop/pkg/events"
	"github.com/Skotchmaster/skincare_shop/pkg/httpx"
	"github.com/Skotchmaster/skincare_shop/pkg/logging"
	loggingmw "github.com/Skotchmaster/skincare_shop/pkg/middleware/logging"

	authcfg "github.com/Skotchmaster/skincare_shop/services/auth/internal/config"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/httpserver"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/models"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/repo"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/service"
)

func main() {
	if err := godotenv.Load("services/auth/.env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := authcfg.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	producer := events.New(cfg.KafkaBrokers)
	svc := &service.AuthService{
		Repo:          &repo.GormRepo{DB: db},
		JWTSecret:     cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		Events:        producer,
	}

	if cfg.AdminEmail != "" {
		if err := svc.PromoteAdmin(context.Background(), cfg.AdminEmail); err != nil {
			logger.Warn("admin_promotion_skipped", "email", cfg.AdminEmail, "error", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpx.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
		JWTSecret:   cfg.JWTAccessSecret,
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

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	_ = producer.Close()
	_ = pkgdb.Close(db)

	logger.Info("auth stopped")
}
