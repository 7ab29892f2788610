package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bekmuradov/sofra/internal"
	"github.com/bekmuradov/sofra/internal/cookie"
	"github.com/bekmuradov/sofra/internal/handler/admin"
	"github.com/bekmuradov/sofra/internal/handler/storefront"
	"github.com/bekmuradov/sofra/internal/handler/webhook"
	"github.com/bekmuradov/sofra/internal/middleware"
	"github.com/bekmuradov/sofra/internal/postgres"
	"github.com/bekmuradov/sofra/internal/router"
	"github.com/bekmuradov/sofra/internal/routes"
	"github.com/bekmuradov/sofra/internal/service"
	"github.com/bekmuradov/sofra/internal/telegram"
	"github.com/bekmuradov/sofra/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	// Verify database connection
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Initialize Prometheus metrics
	metrics := middleware.NewMetrics("sofra")
	businessMetrics := telemetry.NewBusinessMetrics("sofra")

	// Initialize stores
	catalogService := postgres.NewCatalogService(pool)
	customerService := postgres.NewCustomerService(pool)
	orderStore := postgres.NewOrderStore(pool)
	sessionStore := postgres.NewSessionStore(pool, logger)
	settingsService := telegram.NewSettingsCache(postgres.NewSettingsService(pool))

	// Initialize notification gateway
	gatewayConfig := telegram.GatewayConfig{
		APIBaseURL:          cfg.Telegram.APIBaseURL,
		RestaurantName:      cfg.Restaurant.Name,
		RestaurantLatitude:  cfg.Restaurant.Latitude,
		RestaurantLongitude: cfg.Restaurant.Longitude,
	}
	gateway := telegram.NewGateway(settingsService, customerService, orderStore, gatewayConfig, logger, businessMetrics)

	// Initialize services
	cartService := service.NewCartService(sessionStore, catalogService, businessMetrics)
	orderService := service.NewOrderService(orderStore, customerService, cartService, gateway, cfg.Restaurant.DeliveryFee, logger, businessMetrics)

	// Session cookies are Secure outside dev so local HTTP still works
	cookies := cookie.NewConfig(cfg.Env != "dev")

	// ==========================================================================
	// Build route dependencies
	// ==========================================================================

	storefrontDeps := routes.StorefrontDeps{
		CatalogHandler:  storefront.NewCatalogHandler(catalogService, businessMetrics),
		CartHandler:     storefront.NewCartHandler(cartService, cookies),
		CheckoutHandler: storefront.NewCheckoutHandler(orderService),
		OrderHandler:    storefront.NewOrderHandler(orderService, cookies),
		AccountHandler:  storefront.NewAccountHandler(customerService, catalogService, gateway, businessMetrics),
	}

	updateHandler := telegram.NewHandler(orderService, customerService, settingsService, gatewayConfig, logger, businessMetrics)
	telegramWebhook := webhook.NewTelegramHandler(updateHandler, cfg.Telegram.WebhookSecret, businessMetrics)
	webhookDeps := routes.WebhookDeps{
		TelegramHandler: telegramWebhook.HandleWebhook,
	}

	adminDeps := routes.AdminDeps{
		SettingsHandler: admin.NewSettingsHandler(settingsService),
	}

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		middleware.MaxBodySize(middleware.SmallMaxBodySize),
		middleware.Timeout(middleware.DefaultTimeout),
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
	)

	// Metrics endpoint (no auth required, but should be protected in production via firewall)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		metrics.Handler().ServeHTTP(w, req)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Register route groups
	routes.RegisterStorefrontRoutes(r, storefrontDeps)
	routes.RegisterWebhookRoutes(r, webhookDeps)
	routes.RegisterAdminRoutes(r, adminDeps, cfg.AdminToken)

	// ==========================================================================
	// Start server
	// ==========================================================================

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("Server stopped")

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
