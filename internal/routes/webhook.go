package routes

import (
	"github.com/bekmuradov/sofra/internal/middleware"
	"github.com/bekmuradov/sofra/internal/router"
)

// RegisterWebhookRoutes registers inbound webhook routes.
//
// The Telegram route has no session or token middleware. The handler
// verifies the secret token header itself, and the strict rate limiter
// keeps a misbehaving caller from flooding the update dispatcher.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	limiter := middleware.NewRateLimiter(middleware.StrictRateLimiterConfig())

	hooks := r.Group(limiter.Middleware)
	hooks.Post("/webhook/telegram", deps.TelegramHandler)
}
