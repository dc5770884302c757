package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/categories"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/stores"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/env"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "api server shut down gracefully")
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	handler, err := buildRouter(cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}

	addr := ":" + env.First(cfg.App.Port, "PORT")
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildRouter(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (http.Handler, error) {
	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return nil, err
	}

	usersRepo := users.NewRepository(dbClient.DB())
	authService, err := auth.NewService(auth.ServiceParams{
		Users:     usersRepo,
		Sessions:  sessionManager,
		Passwords: security.NewHasher(cfg.Password),
		JWTConfig: cfg.JWT,
		Logger:    logg,
	})
	if err != nil {
		return nil, err
	}

	storeService, err := stores.NewService(stores.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}

	productRepo := product.NewRepository(dbClient.DB())
	productService, err := product.NewService(productRepo, dbClient, storeService)
	if err != nil {
		return nil, err
	}

	categoryService, err := categories.NewService(categories.NewRepository(dbClient.DB()), dbClient, storeService)
	if err != nil {
		return nil, err
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cartRepo, dbClient, productService)
	if err != nil {
		return nil, err
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	checkoutService, err := checkout.NewService(
		dbClient,
		cartRepo,
		productRepo,
		orderRepo,
		pricing.NewEngine(pricing.PolicyFromConfig(cfg.Pricing)),
		outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		checkout.WithMetrics(metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)),
		checkout.WithLogger(logg),
		checkout.WithOrderNumberAttempts(cfg.Checkout.OrderNumberAttempts),
	)
	if err != nil {
		return nil, err
	}

	orderService, err := orders.NewService(orderRepo)
	if err != nil {
		return nil, err
	}

	return routes.NewRouter(routes.Dependencies{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Authenticator: middleware.NewAuthenticator(cfg.JWT, sessionManager, usersRepo, logg),
		HTTPMetrics:   metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Auth:          authService,
		Stores:        storeService,
		Products:      productService,
		Categories:    categoryService,
		Cart:          cartService,
		Checkout:      checkoutService,
		Orders:        orderService,
	}), nil
}
