package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/config"
	"github.com/iliyamo/movie-ticket-booking/internal/database"
	"github.com/iliyamo/movie-ticket-booking/internal/handler"
	"github.com/iliyamo/movie-ticket-booking/internal/middleware"
	"github.com/iliyamo/movie-ticket-booking/internal/payment"
	"github.com/iliyamo/movie-ticket-booking/internal/queue"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
	"github.com/iliyamo/movie-ticket-booking/internal/router"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
	"github.com/iliyamo/movie-ticket-booking/internal/utils"
)

func main() {
	cfg := config.Load()

	logger, err := utils.InitLogger(cfg.App.LogDir, "app", cfg.App.Debug)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.App.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal("migrate schema", zap.Error(err))
		}
		logger.Info("schema migrated")
	}

	rdb := config.NewRedisClient(cfg.Redis, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	publisher := queue.NewPublisher(cfg.RabbitMQ.URL, logger)
	svc := service.NewService(
		repository.NewStore(db),
		payment.NewClient(cfg.Payment),
		publisher,
		service.BookingConfigFrom(cfg.Booking),
		logger,
	)

	if cfg.RabbitMQ.ConsumerEnabled {
		bookingLog, err := utils.InitLogger(cfg.App.LogDir, "booking", cfg.App.Debug)
		if err != nil {
			logger.Fatal("init booking logger", zap.Error(err))
		}
		defer func() { _ = bookingLog.Sync() }()
		consumer := queue.NewConsumer(cfg.RabbitMQ.URL, queue.LogDispatcher{Log: bookingLog}, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover(logger))
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.App.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID},
	}))
	e.Use(echomw.BodyLimit("1M"))

	authH := handler.NewAuthHandler(cfg.JWT, repository.NewUserRepo(db), repository.NewTokenRepo(db), logger)
	bookingH := handler.NewBookingHandler(svc)

	router.RegisterRoutes(e, handler.Health(db))
	router.RegisterAuth(e, authH, cfg.JWT.Secret)
	router.RegisterBooking(e, bookingH, cfg.JWT.Secret, router.BookingMiddleware{
		RateLimit:   middleware.NewTokenBucket(cfg.RateLimit, rdb, logger),
		LayoutCache: middleware.NewRedisCache(cfg.Cache, rdb, logger),
	})
	router.RegisterAdmin(e, bookingH, cfg.JWT.Secret)

	addr := ":" + cfg.App.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.App.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
