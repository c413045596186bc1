package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luciamoreno/gemashop-backend/api/controllers"
	"github.com/luciamoreno/gemashop-backend/api/middleware"
	authsvc "github.com/luciamoreno/gemashop-backend/internal/auth"
	"github.com/luciamoreno/gemashop-backend/internal/cart"
	"github.com/luciamoreno/gemashop-backend/internal/catalog"
	checkoutsvc "github.com/luciamoreno/gemashop-backend/internal/checkout"
	ordersvc "github.com/luciamoreno/gemashop-backend/internal/orders"
	usersvc "github.com/luciamoreno/gemashop-backend/internal/users"
	"github.com/luciamoreno/gemashop-backend/pkg/auth/session"
	"github.com/luciamoreno/gemashop-backend/pkg/config"
	"github.com/luciamoreno/gemashop-backend/pkg/enums"
	"github.com/luciamoreno/gemashop-backend/pkg/logger"
	"github.com/luciamoreno/gemashop-backend/pkg/metrics"
	"github.com/luciamoreno/gemashop-backend/pkg/redis"
)

// RouterDeps collects everything the HTTP surface needs.
type RouterDeps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              controllers.Pinger
	Redis           *redis.Client
	SessionChecker  session.AccessSessionChecker
	HTTPMetrics     *metrics.HTTPMetrics
	MetricsGatherer prometheus.Gatherer

	AuthService     authsvc.Service
	ResetService    authsvc.ResetService
	CatalogService  catalog.Service
	CartManager     *cart.Manager
	CheckoutService checkoutsvc.Service
	OrderService    ordersvc.Service
	UserService     usersvc.Service
}

// NewRouter assembles the storefront API surface.
func NewRouter(deps RouterDeps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.Metrics(deps.HTTPMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"reset",
		cfg.AuthRateLimit.ResetWindow,
		cfg.AuthRateLimit.ResetIPLimit,
		cfg.AuthRateLimit.ResetEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.Login(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.Register(deps.AuthService, logg))
		r.Post("/refresh", controllers.Refresh(deps.AuthService, logg))
	})

	r.Route("/api/v1/password", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(resetPolicy, deps.Redis, logg)).Post("/forgot", controllers.ForgotPassword(deps.ResetService, logg))
		r.Post("/verify-code", controllers.VerifyResetCode(deps.ResetService, logg))
		r.Post("/reset", controllers.ResetPassword(deps.ResetService, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(deps.CatalogService, logg))
		r.Get("/{productId}", controllers.GetProduct(deps.CatalogService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Post("/auth/logout", controllers.Logout(deps.AuthService, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(deps.CartManager, logg))
			r.Post("/items", controllers.AddCartItem(deps.CartManager, deps.CatalogService, logg))
			r.Patch("/items/{itemId}", controllers.UpdateCartItem(deps.CartManager, logg))
			r.Delete("/items/{itemId}", controllers.RemoveCartItem(deps.CartManager, logg))
			r.Delete("/", controllers.ClearCart(deps.CartManager, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/payment-intent", controllers.CreatePaymentIntent(deps.CheckoutService, logg))
			r.Post("/confirm", controllers.ConfirmCheckout(deps.CheckoutService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.OrderService, logg))
			r.Get("/{orderId}", controllers.GetOrder(deps.OrderService, logg))
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", controllers.GetProfile(deps.UserService, logg))
			r.Put("/", controllers.UpdateProfile(deps.UserService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(deps.CatalogService, logg))
			r.Patch("/{productId}", controllers.AdminUpdateProduct(deps.CatalogService, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(deps.CatalogService, logg))
		})
	})

	return r
}
