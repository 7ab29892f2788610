package routes

import (
	"net/http"

	"github.com/bekmuradov/sofra/internal/handler/admin"
	"github.com/bekmuradov/sofra/internal/handler/storefront"
)

// StorefrontDeps contains dependencies for customer-facing API routes
type StorefrontDeps struct {
	// Catalog (categories, products, search)
	CatalogHandler *storefront.CatalogHandler

	// Cart
	CartHandler *storefront.CartHandler

	// Checkout
	CheckoutHandler *storefront.CheckoutHandler

	// Orders (detail, status, repeat, history by phone)
	OrderHandler *storefront.OrderHandler

	// Account (favorites, saved addresses, bot link)
	AccountHandler *storefront.AccountHandler
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	TelegramHandler http.HandlerFunc
}

// AdminDeps contains dependencies for operator routes
type AdminDeps struct {
	SettingsHandler *admin.SettingsHandler
}
