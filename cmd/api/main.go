package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luciamoreno/gemashop-backend/api/routes"
	authsvc "github.com/luciamoreno/gemashop-backend/internal/auth"
	"github.com/luciamoreno/gemashop-backend/internal/cart"
	"github.com/luciamoreno/gemashop-backend/internal/catalog"
	checkoutsvc "github.com/luciamoreno/gemashop-backend/internal/checkout"
	ordersvc "github.com/luciamoreno/gemashop-backend/internal/orders"
	usersvc "github.com/luciamoreno/gemashop-backend/internal/users"
	"github.com/luciamoreno/gemashop-backend/pkg/auth/session"
	"github.com/luciamoreno/gemashop-backend/pkg/config"
	"github.com/luciamoreno/gemashop-backend/pkg/db"
	"github.com/luciamoreno/gemashop-backend/pkg/logger"
	"github.com/luciamoreno/gemashop-backend/pkg/mailer"
	"github.com/luciamoreno/gemashop-backend/pkg/metrics"
	"github.com/luciamoreno/gemashop-backend/pkg/migrate"
	"github.com/luciamoreno/gemashop-backend/pkg/payments"
	"github.com/luciamoreno/gemashop-backend/pkg/redis"
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

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	paymentsClient, err := payments.NewClient(context.Background(), cfg.Payments, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap payments", err)
		os.Exit(1)
	}

	var resetMailer mailer.Mailer
	if cfg.SMTP.Host != "" {
		smtpMailer, err := mailer.NewSMTPMailer(cfg.SMTP)
		if err != nil {
			logg.Error(context.Background(), "failed to configure smtp mailer", err)
			os.Exit(1)
		}
		resetMailer = smtpMailer
	} else {
		logg.Warn(context.Background(), "smtp host not configured, logging reset emails instead")
		resetMailer = mailer.NewLogMailer(logg)
	}

	userRepo := usersvc.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	orderRepo := ordersvc.NewRepository(dbClient.DB())

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	resetService, err := authsvc.NewResetService(authsvc.ResetServiceParams{
		UserRepo:       userRepo,
		Store:          redisClient,
		Keyer:          redisClient,
		Mailer:         resetMailer,
		ResetConfig:    cfg.PasswordReset,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create password reset service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartManager, err := cart.NewManager(cart.ManagerDeps{
		Store:       redisClient,
		Keyer:       redisClient,
		SnapshotTTL: cfg.Cart.SnapshotTTL,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart manager", err)
		os.Exit(1)
	}

	orderService, err := ordersvc.NewService(orderRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	userService, err := usersvc.NewService(userRepo, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		CartManager:  cartManager,
		IntentClient: payments.NewIntentClient(paymentsClient),
		OrderService: orderService,
		StockService: catalogService,
		Currency:     paymentsClient.Currency(),
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": paymentsClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterDeps{
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Redis:           redisClient,
			SessionChecker:  sessionManager,
			HTTPMetrics:     httpMetrics,
			MetricsGatherer: registry,

			AuthService:     authService,
			ResetService:    resetService,
			CatalogService:  catalogService,
			CartManager:     cartManager,
			CheckoutService: checkoutService,
			OrderService:    orderService,
			UserService:     userService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
