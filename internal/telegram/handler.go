package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/bekmuradov/sofra/internal/telemetry"
	"github.com/google/uuid"
)

const linkFailedText = "❌ Could not link your account. Open the link from the site and try again."

// Handler processes incoming bot updates: status-change button presses
// from the staff channel and /start messages from customers. The same
// handler serves the webhook endpoint and the long-poll loop, and it
// never returns an error; Telegram retries failed webhooks, so
// processing problems are logged and acknowledged instead.
type Handler struct {
	orders    domain.OrderService
	customers domain.CustomerService
	settings  domain.NotificationSettingsService
	cfg       GatewayConfig
	logger    *slog.Logger
	metrics   *telemetry.BusinessMetrics
}

// NewHandler creates an update handler.
func NewHandler(
	orders domain.OrderService,
	customers domain.CustomerService,
	settings domain.NotificationSettingsService,
	cfg GatewayConfig,
	logger *slog.Logger,
	metrics *telemetry.BusinessMetrics,
) *Handler {
	return &Handler{
		orders:    orders,
		customers: customers,
		settings:  settings,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// HandleUpdate dispatches one update.
func (h *Handler) HandleUpdate(ctx context.Context, update Update) {
	switch {
	case update.CallbackQuery != nil:
		h.metrics.WebhookReceived.WithLabelValues("callback_query").Inc()
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.metrics.WebhookReceived.WithLabelValues("message").Inc()
		h.handleMessage(ctx, update.Message)
	default:
		h.metrics.WebhookReceived.WithLabelValues("other").Inc()
	}
}

// handleCallback applies the status change encoded in a button press
// and acknowledges the press. The order service drives the follow-up
// notifications, so the channel card is already refreshed by the time
// the operator sees the acknowledgement.
func (h *Handler) handleCallback(ctx context.Context, cq *CallbackQuery) {
	client, _, ok := h.clientFromSettings(ctx)
	if !ok {
		return
	}

	orderID, next, err := ParseCallbackToken(cq.Data)
	if err != nil {
		h.answer(ctx, client, cq.ID, "Unknown command", false)
		return
	}

	order, err := h.orders.ApplyTransition(ctx, orderID, next)
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.ENOTFOUND:
			h.answer(ctx, client, cq.ID, "Order not found", false)
		case domain.ECONFLICT:
			// Names the current status so the operator sees why the
			// button did nothing, e.g. after a double tap.
			h.answer(ctx, client, cq.ID, domain.ErrorMessage(err), true)
		case domain.EINVALID:
			h.answer(ctx, client, cq.ID, "Unknown command", false)
		default:
			h.logger.Error("status change from callback failed",
				"order_id", orderID,
				"next", next,
				"error", err,
			)
			h.answer(ctx, client, cq.ID, "Something went wrong, try again", true)
		}
		return
	}

	h.answer(ctx, client, cq.ID, fmt.Sprintf("Order %s: %s", order.OrderNumber, order.Status.Display()), false)
}

// handleMessage reacts to /start, with or without a link deep-link
// parameter. Any other text is ignored.
func (h *Handler) handleMessage(ctx context.Context, msg *Message) {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/start") {
		return
	}

	client, settings, ok := h.clientFromSettings(ctx)
	if !ok {
		return
	}

	fields := strings.Fields(text)
	if len(fields) > 1 {
		if raw, found := strings.CutPrefix(fields[1], "link_"); found {
			h.linkCustomer(ctx, client, settings, msg.Chat.ID, raw)
			return
		}
	}

	h.send(ctx, client, msg.Chat.ID, welcomeText(settings, h.cfg.RestaurantName))
}

// linkCustomer binds the chat to the customer named in the deep link
// and greets them.
func (h *Handler) linkCustomer(ctx context.Context, client *Client, settings *domain.NotificationSettings, chatID int64, raw string) {
	customerID, err := uuid.Parse(raw)
	if err != nil {
		h.send(ctx, client, chatID, linkFailedText)
		return
	}

	if err := h.customers.LinkTelegramChat(ctx, customerID, chatID); err != nil {
		if !domain.IsCode(err, domain.ENOTFOUND) {
			h.logger.Error("chat link failed",
				"customer_id", customerID,
				"chat_id", chatID,
				"error", err,
			)
		}
		h.send(ctx, client, chatID, linkFailedText)
		return
	}

	h.send(ctx, client, chatID,
		"✅ Telegram linked!\n\n"+welcomeText(settings, h.cfg.RestaurantName))
}

// clientFromSettings builds a client for the current bot token. A
// missing token means the bot cannot reply at all, so the update is
// dropped.
func (h *Handler) clientFromSettings(ctx context.Context) (*Client, *domain.NotificationSettings, bool) {
	settings, err := h.settings.Get(ctx)
	if err != nil {
		h.logger.Error("settings lookup failed while handling update", "error", err)
		return nil, nil, false
	}
	if settings.BotToken == "" {
		return nil, nil, false
	}
	return NewClient(h.cfg.APIBaseURL, settings.BotToken, h.metrics), settings, true
}

func (h *Handler) answer(ctx context.Context, client *Client, callbackID, text string, alert bool) {
	err := client.AnswerCallbackQuery(ctx, AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		h.logger.Warn("failed to answer callback", "error", err)
	}
}

func (h *Handler) send(ctx context.Context, client *Client, chatID int64, text string) {
	if _, err := client.SendMessage(ctx, SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		h.logger.Warn("failed to send chat reply", "chat_id", chatID, "error", err)
	}
}

// welcomeText returns the configured greeting, falling back to a
// built-in one naming the restaurant.
func welcomeText(settings *domain.NotificationSettings, restaurant string) string {
	if settings.WelcomeText != "" {
		return settings.WelcomeText
	}
	return fmt.Sprintf("🍽 Welcome to %s!\n\nOrder status updates will arrive here.", restaurant)
}
