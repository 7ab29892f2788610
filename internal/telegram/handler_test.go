package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/google/uuid"
)

type mockOrderService struct {
	ApplyTransitionFunc func(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error)
}

func (m *mockOrderService) ApplyTransition(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	if m.ApplyTransitionFunc != nil {
		return m.ApplyTransitionFunc(ctx, orderID, next)
	}
	return nil, errors.New("not implemented in mock")
}

func (m *mockOrderService) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, error) {
	return nil, errors.New("not implemented in mock")
}

func (m *mockOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return nil, domain.ErrOrderNotFound
}

func (m *mockOrderService) ListOrdersByPhone(ctx context.Context, phone string, limit int32) ([]domain.Order, error) {
	return nil, errors.New("not implemented in mock")
}

func (m *mockOrderService) Repeat(ctx context.Context, orderID uuid.UUID, sessionToken string) (*domain.CartSummary, int, error) {
	return nil, 0, errors.New("not implemented in mock")
}

func newTestHandler(apiURL string, orders domain.OrderService, customers domain.CustomerService, settings domain.NotificationSettingsService) *Handler {
	return NewHandler(orders, customers, settings, GatewayConfig{
		APIBaseURL:     apiURL,
		RestaurantName: "Sofra",
	}, testLogger(), testMetrics)
}

func callbackUpdate(data string) Update {
	return Update{
		UpdateID: 1,
		CallbackQuery: &CallbackQuery{
			ID:   "cb1",
			From: User{ID: 99},
			Data: data,
		},
	}
}

func messageUpdate(text string) Update {
	return Update{
		UpdateID: 1,
		Message: &Message{
			MessageID: 10,
			Chat:      Chat{ID: 555, Type: "private"},
			Text:      text,
		},
	}
}

func TestHandler_Callback_AppliesTransition(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)

	var gotOrderID uuid.UUID
	var gotNext domain.OrderStatus
	orders := &mockOrderService{
		ApplyTransitionFunc: func(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
			gotOrderID, gotNext = orderID, next
			return makeChannelOrder(next), nil
		},
	}
	h := newTestHandler(srv.URL, orders, &mockCustomerService{}, staticSettings(enabledSettings()))

	h.HandleUpdate(ctx, callbackUpdate(CallbackToken(testOrderID, domain.OrderStatusConfirmed)))

	if gotOrderID != testOrderID || gotNext != domain.OrderStatusConfirmed {
		t.Errorf("transition called with %s/%s", gotOrderID, gotNext)
	}

	answer, ok := api.lastCall("answerCallbackQuery")
	if !ok {
		t.Fatal("callback must be answered")
	}
	if answer.body["callback_query_id"] != "cb1" {
		t.Errorf("answered wrong callback: %v", answer.body["callback_query_id"])
	}
	if answer.body["text"] != "Order S-1001: Confirmed" {
		t.Errorf("unexpected acknowledgement: %v", answer.body["text"])
	}
	if _, alert := answer.body["show_alert"]; alert {
		t.Error("success acknowledgement must be a toast, not an alert")
	}
}

func TestHandler_Callback_UnknownData(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)

	transitionCalled := false
	orders := &mockOrderService{
		ApplyTransitionFunc: func(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
			transitionCalled = true
			return nil, errors.New("unreachable")
		},
	}
	h := newTestHandler(srv.URL, orders, &mockCustomerService{}, staticSettings(enabledSettings()))

	h.HandleUpdate(ctx, callbackUpdate("subscribe_weekly"))

	if transitionCalled {
		t.Error("unparseable data must not reach the order service")
	}
	answer, ok := api.lastCall("answerCallbackQuery")
	if !ok {
		t.Fatal("callback must still be answered")
	}
	if answer.body["text"] != "Unknown command" {
		t.Errorf("unexpected answer: %v", answer.body["text"])
	}
}

func TestHandler_Callback_IllegalTransition(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)

	orders := &mockOrderService{
		ApplyTransitionFunc: func(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
			return nil, domain.Conflict("order.apply_transition", "Cannot change status from Cooking to Confirmed")
		},
	}
	h := newTestHandler(srv.URL, orders, &mockCustomerService{}, staticSettings(enabledSettings()))

	h.HandleUpdate(ctx, callbackUpdate(CallbackToken(testOrderID, domain.OrderStatusConfirmed)))

	answer, ok := api.lastCall("answerCallbackQuery")
	if !ok {
		t.Fatal("callback must be answered")
	}
	if text, _ := answer.body["text"].(string); !strings.Contains(text, "Cannot change status from Cooking") {
		t.Errorf("answer should explain the rejected transition: %v", answer.body["text"])
	}
	if answer.body["show_alert"] != true {
		t.Error("rejected transitions must pop an alert")
	}
}

func TestHandler_Callback_OrderNotFound(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)

	orders := &mockOrderService{
		ApplyTransitionFunc: func(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
			return nil, domain.ErrOrderNotFound
		},
	}
	h := newTestHandler(srv.URL, orders, &mockCustomerService{}, staticSettings(enabledSettings()))

	h.HandleUpdate(ctx, callbackUpdate(CallbackToken(testOrderID, domain.OrderStatusConfirmed)))

	answer, _ := api.lastCall("answerCallbackQuery")
	if answer.body["text"] != "Order not found" {
		t.Errorf("unexpected answer: %v", answer.body["text"])
	}
}

func TestHandler_Callback_NoBotToken(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)

	settings := enabledSettings()
	settings.BotToken = ""
	h := newTestHandler(srv.URL, &mockOrderService{}, &mockCustomerService{}, staticSettings(settings))

	h.HandleUpdate(ctx, callbackUpdate(CallbackToken(testOrderID, domain.OrderStatusConfirmed)))

	if len(api.calls) != 0 {
		t.Error("without a token the update must be dropped")
	}
}

func TestHandler_Message_StartLink(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)

	var gotCustomer uuid.UUID
	var gotChat int64
	customers := &mockCustomerService{
		LinkTelegramChatFunc: func(ctx context.Context, customerID uuid.UUID, chatID int64) error {
			gotCustomer, gotChat = customerID, chatID
			return nil
		},
	}
	h := newTestHandler(srv.URL, &mockOrderService{}, customers, staticSettings(enabledSettings()))

	h.HandleUpdate(ctx, messageUpdate("/start link_"+testCustomerID.String()))

	if gotCustomer != testCustomerID || gotChat != 555 {
		t.Errorf("link called with %s/%d", gotCustomer, gotChat)
	}

	send, ok := api.lastCall("sendMessage")
	if !ok {
		t.Fatal("expected a linked confirmation")
	}
	text, _ := send.body["text"].(string)
	if !strings.Contains(text, "Telegram linked!") {
		t.Errorf("expected link confirmation, got %q", text)
	}
	if !strings.Contains(text, "Welcome to Sofra") {
		t.Errorf("expected the greeting after linking, got %q", text)
	}
}

func TestHandler_Message_StartLink_BadID(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)

	linkCalled := false
	customers := &mockCustomerService{
		LinkTelegramChatFunc: func(ctx context.Context, customerID uuid.UUID, chatID int64) error {
			linkCalled = true
			return nil
		},
	}
	h := newTestHandler(srv.URL, &mockOrderService{}, customers, staticSettings(enabledSettings()))

	h.HandleUpdate(ctx, messageUpdate("/start link_not-a-uuid"))

	if linkCalled {
		t.Error("malformed ids must not reach the customer service")
	}
	send, _ := api.lastCall("sendMessage")
	if text, _ := send.body["text"].(string); !strings.Contains(text, "Could not link") {
		t.Errorf("expected link failure message, got %q", text)
	}
}

func TestHandler_Message_StartLink_UnknownCustomer(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)

	customers := &mockCustomerService{
		LinkTelegramChatFunc: func(ctx context.Context, customerID uuid.UUID, chatID int64) error {
			return domain.ErrCustomerNotFound
		},
	}
	h := newTestHandler(srv.URL, &mockOrderService{}, customers, staticSettings(enabledSettings()))

	h.HandleUpdate(ctx, messageUpdate("/start link_"+testCustomerID.String()))

	send, _ := api.lastCall("sendMessage")
	if text, _ := send.body["text"].(string); !strings.Contains(text, "Could not link") {
		t.Errorf("expected link failure message, got %q", text)
	}
}

func TestHandler_Message_BareStart(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)

	h := newTestHandler(srv.URL, &mockOrderService{}, &mockCustomerService{}, staticSettings(enabledSettings()))

	h.HandleUpdate(ctx, messageUpdate("/start"))

	send, ok := api.lastCall("sendMessage")
	if !ok {
		t.Fatal("expected a greeting")
	}
	if send.body["chat_id"] != float64(555) {
		t.Errorf("greeting sent to wrong chat: %v", send.body["chat_id"])
	}
	if text, _ := send.body["text"].(string); !strings.Contains(text, "Welcome to Sofra") {
		t.Errorf("expected built-in greeting, got %q", text)
	}
}

func TestHandler_Message_ConfiguredWelcomeText(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)

	settings := enabledSettings()
	settings.WelcomeText = "Assalomu alaykum! Buyurtma holati shu yerda."
	h := newTestHandler(srv.URL, &mockOrderService{}, &mockCustomerService{}, staticSettings(settings))

	h.HandleUpdate(ctx, messageUpdate("/start"))

	send, _ := api.lastCall("sendMessage")
	if send.body["text"] != settings.WelcomeText {
		t.Errorf("expected the configured greeting, got %v", send.body["text"])
	}
}

func TestHandler_Message_IgnoresOtherText(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)

	settings := staticSettings(enabledSettings())
	h := newTestHandler(srv.URL, &mockOrderService{}, &mockCustomerService{}, settings)

	h.HandleUpdate(ctx, messageUpdate("what is in the lagman?"))

	if len(api.calls) != 0 {
		t.Error("free-form messages are ignored")
	}
	if settings.gets != 0 {
		t.Error("ignored messages must not load settings")
	}
}

func TestHandler_Update_Empty(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)

	h := newTestHandler(srv.URL, &mockOrderService{}, &mockCustomerService{}, staticSettings(enabledSettings()))

	h.HandleUpdate(ctx, Update{UpdateID: 7})

	if len(api.calls) != 0 {
		t.Error("empty updates are dropped")
	}
}
