package routes

import (
	"github.com/bekmuradov/sofra/internal/router"
)

// RegisterStorefrontRoutes registers all customer-facing JSON API routes.
// None of them require authentication: the storefront identifies the
// browser by its session cookie and customers by the phone they type in.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	// Catalog browsing
	r.Get("/api/categories", deps.CatalogHandler.Categories)
	r.Get("/api/products", deps.CatalogHandler.Products)
	r.Get("/api/products/{slug}", deps.CatalogHandler.ProductBySlug)
	r.Get("/api/search", deps.CatalogHandler.Search)

	// Session cart
	r.Get("/api/cart", deps.CartHandler.Summary)
	r.Get("/api/cart/count", deps.CartHandler.Count)
	r.Post("/api/cart/items", deps.CartHandler.Add)
	r.Put("/api/cart/items/{productID}", deps.CartHandler.Update)
	r.Delete("/api/cart/items/{productID}", deps.CartHandler.Remove)
	r.Post("/api/cart/clear", deps.CartHandler.Clear)

	// Checkout
	r.Post("/api/checkout", deps.CheckoutHandler.Checkout)

	// Orders
	r.Get("/api/orders", deps.OrderHandler.ListByPhone)
	r.Get("/api/orders/{id}", deps.OrderHandler.Get)
	r.Get("/api/orders/{id}/status", deps.OrderHandler.Status)
	r.Post("/api/orders/{id}/repeat", deps.OrderHandler.Repeat)

	// Favorites
	r.Get("/api/customers/{id}/favorites", deps.AccountHandler.Favorites)
	r.Post("/api/favorites/toggle", deps.AccountHandler.ToggleFavorite)

	// Saved addresses
	r.Get("/api/customers/{id}/addresses", deps.AccountHandler.Addresses)
	r.Post("/api/customers/{id}/addresses", deps.AccountHandler.SaveAddress)
	r.Delete("/api/customers/{id}/addresses/{addressID}", deps.AccountHandler.DeleteAddress)

	// Bot deep link for order notifications
	r.Get("/api/customers/{id}/telegram-link", deps.AccountHandler.TelegramLink)
}
