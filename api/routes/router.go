package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/categories"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/stores"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type redisStore interface {
	controllers.Pinger
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	Del(context.Context, ...string) error
	IdempotencyKey(scope, id string) string
	CountInWindow(ctx context.Context, scope string, window time.Duration) (int64, time.Duration, error)
}

// Dependencies is everything the HTTP surface is built from.
type Dependencies struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         redisStore
	Authenticator *middleware.Authenticator
	HTTPMetrics   *metrics.HTTPMetrics
	// MetricsHandler serves /metrics; promhttp.Handler() when nil.
	MetricsHandler http.Handler

	Auth       auth.Service
	Stores     stores.Service
	Products   product.Service
	Categories categories.Service
	Cart       cart.Service
	Checkout   checkoutsvc.Service
	Orders     orders.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginThrottle := middleware.ThrottlePolicy{
		Endpoint: "login",
		Window:   cfg.AuthRateLimit.LoginWindow,
		PerIP:    cfg.AuthRateLimit.LoginIPLimit,
		PerEmail: cfg.AuthRateLimit.LoginEmailLimit,
	}
	registerThrottle := middleware.ThrottlePolicy{
		Endpoint: "register",
		Window:   cfg.AuthRateLimit.RegisterWindow,
		PerIP:    cfg.AuthRateLimit.RegisterIPLimit,
	}

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"postgres": deps.DB,
			"redis":    deps.Redis,
		}))
	})
	r.Handle("/metrics", metricsHandler)

	authn := deps.Authenticator

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthThrottle(registerThrottle, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
			r.With(middleware.AuthThrottle(loginThrottle, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
			r.Group(func(r chi.Router) {
				r.Use(authn.Required)
				r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
				r.Get("/me", controllers.AuthMe(deps.Auth, logg))
			})
		})

		r.Get("/stores", controllers.StoreList(deps.Stores, logg))

		r.Route("/stores/{"+middleware.StoreDomainParam+"}", func(r chi.Router) {
			r.Use(middleware.StoreContext(deps.Stores, logg))
			r.Get("/", controllers.StoreProfile(logg))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ProductList(deps.Products, logg))
				r.Get("/{productId}", controllers.ProductDetail(deps.Products, logg))
				r.Group(func(r chi.Router) {
					r.Use(authn.Required, middleware.RequireStoreAdmin(deps.Stores, logg))
					r.Post("/", controllers.ProductCreate(deps.Products, logg))
					r.Patch("/{productId}", controllers.ProductUpdate(deps.Products, logg))
				})
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", controllers.CategoryList(deps.Categories, logg))
				r.Get("/{categoryId}", controllers.CategoryDetail(deps.Categories, logg))
				r.Group(func(r chi.Router) {
					r.Use(authn.Required, middleware.RequireStoreAdmin(deps.Stores, logg))
					r.Post("/", controllers.CategoryCreate(deps.Categories, logg))
					r.Patch("/{categoryId}", controllers.CategoryUpdate(deps.Categories, logg))
					r.Delete("/{categoryId}", controllers.CategoryDelete(deps.Categories, logg))
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(authn.Optional, middleware.Identity(logg))

				r.With(middleware.EnsureSession(logg)).Get("/cart", controllers.CartFetch(deps.Cart, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireIdentity(logg))

					r.Delete("/cart", controllers.CartClear(deps.Cart, logg))
					r.Get("/cart/totals", controllers.CartTotals(deps.Cart, logg))
					r.Post("/cart/validate", controllers.CartValidate(deps.Cart, logg))
					r.Post("/cart/items", controllers.CartAddItem(deps.Cart, logg))
					r.Patch("/cart/items/{itemId}", controllers.CartUpdateItem(deps.Cart, logg))
					r.Delete("/cart/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))

					r.With(middleware.Idempotency("checkout", deps.Redis, cfg.Redis.IdempotencyTTL, logg)).
						Post("/checkout", controllers.Checkout(deps.Checkout, logg))

					r.Get("/orders", controllers.OrderList(deps.Orders, logg))
					r.Get("/orders/{orderId}", controllers.OrderDetail(deps.Orders, logg))
				})
			})
		})
	})

	return r
}
