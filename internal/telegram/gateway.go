package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/bekmuradov/sofra/internal/telemetry"
	"github.com/google/uuid"
)

const parseModeHTML = "HTML"

// OrderMessageStore records which channel message belongs to an order
// so later status changes edit it in place.
type OrderMessageStore interface {
	SetTelegramMessageID(ctx context.Context, orderID uuid.UUID, messageID int64) error
}

// GatewayConfig carries the deployment-level pieces of the gateway:
// the API endpoint and the restaurant identity used in messages and
// courier links.
type GatewayConfig struct {
	APIBaseURL          string
	RestaurantName      string
	RestaurantLatitude  float64
	RestaurantLongitude float64
}

// Gateway delivers order notifications over the Telegram Bot API: a
// card with action buttons to the staff channel, and plain status
// updates to linked customer chats. All sends read the current
// settings, so a disabled gateway is a clean no-op.
type Gateway struct {
	settings  domain.NotificationSettingsService
	customers domain.CustomerService
	store     OrderMessageStore
	cfg       GatewayConfig
	logger    *slog.Logger
	metrics   *telemetry.BusinessMetrics

	// getMe is cached per token for building t.me deep links.
	mu       sync.Mutex
	botUser  *User
	botToken string
}

var _ domain.OrderNotifier = (*Gateway)(nil)

// NewGateway creates the notification gateway.
func NewGateway(
	settings domain.NotificationSettingsService,
	customers domain.CustomerService,
	store OrderMessageStore,
	cfg GatewayConfig,
	logger *slog.Logger,
	metrics *telemetry.BusinessMetrics,
) *Gateway {
	return &Gateway{
		settings:  settings,
		customers: customers,
		store:     store,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// NotifyOrderCreated posts the order card to the staff channel,
// remembers its message ID, and confirms to the customer's linked
// chat. The customer confirmation is secondary: its failure is logged,
// not returned.
func (g *Gateway) NotifyOrderCreated(ctx context.Context, order *domain.Order) error {
	settings, err := g.settings.Get(ctx)
	if err != nil {
		return err
	}
	if !settings.Configured() {
		return nil
	}

	client := g.client(settings.BotToken)
	msg, err := client.SendMessage(ctx, SendMessageParams{
		ChatID:      settings.ChannelChatID,
		Text:        staffMessage(order),
		ParseMode:   parseModeHTML,
		ReplyMarkup: g.orderKeyboard(order),
	})
	if err != nil {
		g.metrics.NotificationsFailed.WithLabelValues("staff").Inc()
		return err
	}
	g.metrics.NotificationsSent.WithLabelValues("staff").Inc()

	if err := g.store.SetTelegramMessageID(ctx, order.ID, msg.MessageID); err != nil {
		g.logger.Error("failed to record channel message for order",
			"order_id", order.ID,
			"message_id", msg.MessageID,
			"error", err,
		)
	}

	if err := g.sendCustomerText(ctx, settings, order, customerCreatedText(order)); err != nil {
		g.logger.Error("customer order confirmation failed",
			"order_id", order.ID,
			"error", err,
		)
	}
	return nil
}

// NotifyOrderUpdated refreshes the staff-channel card after a status
// change. When the original message cannot be edited a fresh card is
// posted and recorded in its place.
func (g *Gateway) NotifyOrderUpdated(ctx context.Context, order *domain.Order) error {
	settings, err := g.settings.Get(ctx)
	if err != nil {
		return err
	}
	if !settings.Configured() {
		return nil
	}

	client := g.client(settings.BotToken)
	text := staffMessage(order)
	keyboard := g.orderKeyboard(order)

	if order.TelegramMessageID != nil {
		_, err := client.EditMessageText(ctx, EditMessageTextParams{
			ChatID:      settings.ChannelChatID,
			MessageID:   *order.TelegramMessageID,
			Text:        text,
			ParseMode:   parseModeHTML,
			ReplyMarkup: keyboard,
		})
		if err == nil {
			g.metrics.NotificationsSent.WithLabelValues("staff").Inc()
			return nil
		}
		if isNotModified(err) {
			return nil
		}
		g.logger.Warn("channel message edit failed, sending a new card",
			"order_id", order.ID,
			"message_id", *order.TelegramMessageID,
			"error", err,
		)
	}

	msg, err := client.SendMessage(ctx, SendMessageParams{
		ChatID:      settings.ChannelChatID,
		Text:        text,
		ParseMode:   parseModeHTML,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		g.metrics.NotificationsFailed.WithLabelValues("staff").Inc()
		return err
	}
	g.metrics.NotificationsSent.WithLabelValues("staff").Inc()

	if err := g.store.SetTelegramMessageID(ctx, order.ID, msg.MessageID); err != nil {
		g.logger.Error("failed to record channel message for order",
			"order_id", order.ID,
			"message_id", msg.MessageID,
			"error", err,
		)
	}
	return nil
}

// NotifyCustomer sends the canned status message to the customer's
// linked chat. Orders without a linked chat, statuses without a
// customer-facing message, and a disabled customer flag are all clean
// no-ops.
func (g *Gateway) NotifyCustomer(ctx context.Context, order *domain.Order) error {
	settings, err := g.settings.Get(ctx)
	if err != nil {
		return err
	}
	if !settings.Configured() {
		return nil
	}
	return g.sendCustomerText(ctx, settings, order, customerStatusText(order))
}

func (g *Gateway) sendCustomerText(ctx context.Context, settings *domain.NotificationSettings, order *domain.Order, text string) error {
	if !settings.NotifyCustomer || text == "" {
		return nil
	}

	customer, err := g.customers.GetByID(ctx, order.CustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return nil
		}
		return err
	}
	if customer.TelegramChatID == nil {
		return nil
	}

	_, err = g.client(settings.BotToken).SendMessage(ctx, SendMessageParams{
		ChatID: *customer.TelegramChatID,
		Text:   text,
	})
	if err != nil {
		g.metrics.NotificationsFailed.WithLabelValues("customer").Inc()
		return err
	}
	g.metrics.NotificationsSent.WithLabelValues("customer").Inc()
	return nil
}

// LinkURL builds the t.me deep link a customer opens to bind their
// chat to their account. The bot username comes from getMe and is
// cached per token.
func (g *Gateway) LinkURL(ctx context.Context, customerID uuid.UUID) (string, error) {
	settings, err := g.settings.Get(ctx)
	if err != nil {
		return "", err
	}
	if !settings.Configured() {
		return "", domain.Conflict("telegram.link_url", "Telegram notifications are disabled")
	}

	user, err := g.botUserFor(ctx, settings.BotToken)
	if err != nil {
		return "", err
	}
	if user.Username == "" {
		return "", domain.Errorf(domain.EINTERNAL, "telegram.link_url", "bot account has no username")
	}

	return fmt.Sprintf("https://t.me/%s?start=link_%s", user.Username, customerID), nil
}

func (g *Gateway) botUserFor(ctx context.Context, token string) (*User, error) {
	g.mu.Lock()
	if g.botUser != nil && g.botToken == token {
		user := *g.botUser
		g.mu.Unlock()
		return &user, nil
	}
	g.mu.Unlock()

	user, err := g.client(token).GetMe(ctx)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.botUser = user
	g.botToken = token
	g.mu.Unlock()
	return user, nil
}

func (g *Gateway) client(token string) *Client {
	return NewClient(g.cfg.APIBaseURL, token, g.metrics)
}

// isNotModified reports whether an edit failed only because the
// message already has that exact content.
func isNotModified(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified")
}

// =============================================================================
// MESSAGE AND KEYBOARD BUILDING
// =============================================================================

var statusEmoji = map[domain.OrderStatus]string{
	domain.OrderStatusNew:        "🆕",
	domain.OrderStatusConfirmed:  "✅",
	domain.OrderStatusCooking:    "👨‍🍳",
	domain.OrderStatusDelivering: "🚗",
	domain.OrderStatusDelivered:  "✔️",
	domain.OrderStatusCancelled:  "❌",
}

func statusIcon(s domain.OrderStatus) string {
	if icon, ok := statusEmoji[s]; ok {
		return icon
	}
	return "📋"
}

var statusButtonLabels = map[domain.OrderStatus]string{
	domain.OrderStatusConfirmed:  "✅ Confirm",
	domain.OrderStatusCooking:    "👨‍🍳 Cooking",
	domain.OrderStatusDelivering: "🚗 Delivering",
	domain.OrderStatusDelivered:  "✔️ Delivered",
	domain.OrderStatusCancelled:  "❌ Cancel",
}

// staffMessage renders the channel card for an order. Every
// caller-provided value is HTML-escaped because the card is sent with
// HTML parse mode.
func staffMessage(order *domain.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s <b>Order %s</b> (%s)\n\n",
		statusIcon(order.Status), html.EscapeString(order.OrderNumber), order.Status.Display())
	fmt.Fprintf(&b, "👤 <b>Name:</b> %s\n", html.EscapeString(order.CustomerName))
	fmt.Fprintf(&b, "📱 <b>Phone:</b> +%s\n", html.EscapeString(order.CustomerPhone))
	fmt.Fprintf(&b, "📍 <b>Address:</b> %s\n\n", html.EscapeString(order.Address))

	for _, item := range order.Items {
		fmt.Fprintf(&b, "🍽 %s x%d: %s sum\n",
			html.EscapeString(item.ProductName), item.Quantity, formatAmount(item.LineTotal))
	}

	fmt.Fprintf(&b, "\n🧾 <b>Subtotal:</b> %s sum\n", formatAmount(order.Subtotal))
	fmt.Fprintf(&b, "🚚 <b>Delivery:</b> %s sum\n", formatAmount(order.DeliveryFee))
	if order.BonusUsed > 0 {
		fmt.Fprintf(&b, "🎁 <b>Bonus used:</b> -%s sum\n", formatAmount(order.BonusUsed))
	}
	fmt.Fprintf(&b, "💰 <b>Total:</b> %s sum\n", formatAmount(order.Total))

	if order.Comment != nil && *order.Comment != "" {
		fmt.Fprintf(&b, "\n💬 <b>Comment:</b> %s\n", html.EscapeString(*order.Comment))
	}

	fmt.Fprintf(&b, "\n🕐 %s", order.CreatedAt.Format("02.01.2006 15:04"))
	return b.String()
}

// customerStatusText is the canned message for the customer's own
// chat. Empty means the status has no customer-facing message.
func customerStatusText(order *domain.Order) string {
	switch order.Status {
	case domain.OrderStatusConfirmed:
		return fmt.Sprintf("✅ Your order %s is confirmed! We are starting on it now.", order.OrderNumber)
	case domain.OrderStatusCooking:
		return fmt.Sprintf("👨‍🍳 Your order %s is being cooked!", order.OrderNumber)
	case domain.OrderStatusDelivering:
		return fmt.Sprintf("🚗 Your order %s is on the way! The courier will be there soon.", order.OrderNumber)
	case domain.OrderStatusDelivered:
		return fmt.Sprintf("✔️ Order %s delivered. Thank you and enjoy your meal!", order.OrderNumber)
	case domain.OrderStatusCancelled:
		return fmt.Sprintf("❌ Unfortunately order %s was cancelled. Contact us if you have questions.", order.OrderNumber)
	}
	return ""
}

// customerCreatedText confirms a freshly placed order.
func customerCreatedText(order *domain.Order) string {
	return fmt.Sprintf("🧾 Order %s accepted! Total %s sum. We will confirm it shortly.",
		order.OrderNumber, formatAmount(order.Total))
}

// orderKeyboard builds the action keyboard for the channel card: one
// button per allowed next status, plus map links while the order is
// active. Terminal orders get no keyboard.
func (g *Gateway) orderKeyboard(order *domain.Order) *InlineKeyboardMarkup {
	var rows [][]InlineKeyboardButton

	var actions []InlineKeyboardButton
	for _, next := range order.Status.NextStatuses() {
		label, ok := statusButtonLabels[next]
		if !ok {
			label = next.Display()
		}
		actions = append(actions, InlineKeyboardButton{
			Text:         label,
			CallbackData: CallbackToken(order.ID, next),
		})
	}
	if len(actions) > 0 {
		rows = append(rows, actions)
	}

	if !order.Status.Terminal() {
		rows = append(rows, []InlineKeyboardButton{
			{Text: "📍 Map", URL: googleMapsURL(order)},
			{Text: "🗺 Yandex", URL: yandexMapsURL(order)},
			{Text: "🚕 Courier", URL: g.courierRouteURL(order)},
		})
	}

	if len(rows) == 0 {
		return nil
	}
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}

func googleMapsURL(order *domain.Order) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%s,%s",
		coord(order.Latitude), coord(order.Longitude))
}

// yandexMapsURL uses the pt parameter, which takes longitude first.
func yandexMapsURL(order *domain.Order) string {
	return fmt.Sprintf("https://yandex.ru/maps/?pt=%s,%s&z=17",
		coord(order.Longitude), coord(order.Latitude))
}

// courierRouteURL deep-links the courier app with the route from the
// restaurant to the delivery point prefilled.
func (g *Gateway) courierRouteURL(order *domain.Order) string {
	comment := url.QueryEscape(fmt.Sprintf("Order %s, tel: +%s", order.OrderNumber, order.CustomerPhone))
	return fmt.Sprintf(
		"https://3.redirect.appmetrica.yandex.com/route?start-lat=%s&start-lon=%s&end-lat=%s&end-lon=%s&tariffClass=express&comment=%s",
		coord(g.cfg.RestaurantLatitude), coord(g.cfg.RestaurantLongitude),
		coord(order.Latitude), coord(order.Longitude),
		comment,
	)
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatAmount groups digits in threes, e.g. 1250000 -> "1 250 000".
// Amounts are in the smallest currency unit with no decimal part.
func formatAmount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s[i : i+3])
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}
