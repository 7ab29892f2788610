package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bekmuradov/sofra/internal"
	"github.com/bekmuradov/sofra/internal/postgres"
	"github.com/bekmuradov/sofra/internal/service"
	"github.com/bekmuradov/sofra/internal/telegram"
	"github.com/bekmuradov/sofra/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// The bot binary runs the getUpdates poller for deployments without a
// public HTTPS endpoint. With -set-webhook or -delete-webhook it acts
// as a one-shot admin tool instead: it registers (or removes) the
// webhook for the configured bot and exits.
func run() error {
	setWebhookURL := flag.String("set-webhook", "", "register `url` as the bot webhook and exit")
	deleteWebhook := flag.Bool("delete-webhook", false, "remove the bot webhook and exit")
	flag.Parse()

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
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// The bot shares the schema with the server, so keep it migrated
	// no matter which binary starts first.
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	metrics := telemetry.NewBusinessMetrics("sofra_bot")

	settingsService := telegram.NewSettingsCache(postgres.NewSettingsService(pool))

	// The bot is useless without a token, so fail fast instead of
	// polling an unconfigured gateway.
	settings, err := settingsService.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load notification settings: %w", err)
	}
	if settings.BotToken == "" {
		return errors.New("notification gateway has no bot token: set one first")
	}

	client := telegram.NewClient(cfg.Telegram.APIBaseURL, settings.BotToken, metrics)

	switch {
	case *setWebhookURL != "":
		params := telegram.SetWebhookParams{
			URL:            *setWebhookURL,
			SecretToken:    cfg.Telegram.WebhookSecret,
			AllowedUpdates: []string{"message", "callback_query"},
		}
		if err := client.SetWebhook(ctx, params); err != nil {
			return fmt.Errorf("failed to set webhook: %w", err)
		}
		logger.Info("Webhook registered", "url", *setWebhookURL)
		return nil

	case *deleteWebhook:
		if err := client.DeleteWebhook(ctx); err != nil {
			return fmt.Errorf("failed to delete webhook: %w", err)
		}
		logger.Info("Webhook removed")
		return nil
	}

	if !settings.Enabled {
		return errors.New("notification gateway is disabled: enable it before polling")
	}

	// Poller mode. Updates flow through the same dispatcher the
	// webhook uses, so button presses and /start links behave
	// identically in both transports.
	catalogService := postgres.NewCatalogService(pool)
	customerService := postgres.NewCustomerService(pool)
	orderStore := postgres.NewOrderStore(pool)
	sessionStore := postgres.NewSessionStore(pool, logger)

	gatewayConfig := telegram.GatewayConfig{
		APIBaseURL:          cfg.Telegram.APIBaseURL,
		RestaurantName:      cfg.Restaurant.Name,
		RestaurantLatitude:  cfg.Restaurant.Latitude,
		RestaurantLongitude: cfg.Restaurant.Longitude,
	}
	gateway := telegram.NewGateway(settingsService, customerService, orderStore, gatewayConfig, logger, metrics)

	cartService := service.NewCartService(sessionStore, catalogService, metrics)
	orderService := service.NewOrderService(orderStore, customerService, cartService, gateway, cfg.Restaurant.DeliveryFee, logger, metrics)

	handler := telegram.NewHandler(orderService, customerService, settingsService, gatewayConfig, logger, metrics)
	poller := telegram.NewPoller(client, handler, telegram.PollerConfig{}, logger)

	logger.Info("Starting update poller", "env", cfg.Env)
	if err := poller.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("poller failed: %w", err)
	}
	logger.Info("Poller stopped")

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
