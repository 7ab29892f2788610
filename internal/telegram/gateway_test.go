package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/google/uuid"
)

var (
	testOrderID    = uuid.MustParse("44444444-4444-4444-4444-444444444444")
	testCustomerID = uuid.MustParse("55555555-5555-5555-5555-555555555555")
)

type mockCustomerService struct {
	GetByIDFunc          func(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	LinkTelegramChatFunc func(ctx context.Context, customerID uuid.UUID, chatID int64) error
}

func (m *mockCustomerService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrCustomerNotFound
}

func (m *mockCustomerService) LinkTelegramChat(ctx context.Context, customerID uuid.UUID, chatID int64) error {
	if m.LinkTelegramChatFunc != nil {
		return m.LinkTelegramChatFunc(ctx, customerID, chatID)
	}
	return errors.New("not implemented in mock")
}

func (m *mockCustomerService) FindOrCreateByPhone(ctx context.Context, phone, name string) (*domain.Customer, error) {
	return nil, errors.New("not implemented in mock")
}

func (m *mockCustomerService) GetByTelegramChat(ctx context.Context, chatID int64) (*domain.Customer, error) {
	return nil, domain.ErrChatNotLinked
}

func (m *mockCustomerService) ListAddresses(ctx context.Context, customerID uuid.UUID) ([]domain.SavedAddress, error) {
	return nil, errors.New("not implemented in mock")
}

func (m *mockCustomerService) SaveAddress(ctx context.Context, addr domain.SavedAddress) (*domain.SavedAddress, error) {
	return nil, errors.New("not implemented in mock")
}

func (m *mockCustomerService) DeleteAddress(ctx context.Context, customerID, addressID uuid.UUID) error {
	return errors.New("not implemented in mock")
}

type mockMessageStore struct {
	SetTelegramMessageIDFunc func(ctx context.Context, orderID uuid.UUID, messageID int64) error
}

func (m *mockMessageStore) SetTelegramMessageID(ctx context.Context, orderID uuid.UUID, messageID int64) error {
	if m.SetTelegramMessageIDFunc != nil {
		return m.SetTelegramMessageIDFunc(ctx, orderID, messageID)
	}
	return errors.New("not implemented in mock")
}

// staticSettings serves a fixed settings row.
func staticSettings(s domain.NotificationSettings) *mockSettingsService {
	return &mockSettingsService{
		GetFunc: func(ctx context.Context) (*domain.NotificationSettings, error) {
			cp := s
			return &cp, nil
		},
	}
}

func linkedCustomer(chatID int64) *domain.Customer {
	name := "Aziz"
	return &domain.Customer{
		ID:             testCustomerID,
		Phone:          "998901234567",
		Name:           &name,
		TelegramChatID: &chatID,
	}
}

func makeChannelOrder(status domain.OrderStatus) *domain.Order {
	comment := "No onions please"
	return &domain.Order{
		ID:            testOrderID,
		OrderNumber:   "S-1001",
		CustomerID:    testCustomerID,
		CustomerName:  "Aziz",
		CustomerPhone: "998901234567",
		Address:       "Amir Temur 42, apt 7",
		Latitude:      41.32,
		Longitude:     69.25,
		Comment:       &comment,
		Status:        status,
		Subtotal:      5200,
		DeliveryFee:   10000,
		Total:         15200,
		CreatedAt:     time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC),
		Items: []domain.OrderItem{
			{ProductName: "Lagman", Quantity: 2, UnitPrice: 1500, LineTotal: 3000},
			{ProductName: "Plov", Quantity: 1, UnitPrice: 2200, LineTotal: 2200},
		},
	}
}

func newTestGateway(apiURL string, settings domain.NotificationSettingsService, customers domain.CustomerService, store OrderMessageStore) *Gateway {
	return NewGateway(settings, customers, store, GatewayConfig{
		APIBaseURL:          apiURL,
		RestaurantName:      "Sofra",
		RestaurantLatitude:  41.311081,
		RestaurantLongitude: 69.240562,
	}, testLogger(), testMetrics)
}

// =============================================================================
// MESSAGE BUILDING
// =============================================================================

func TestStaffMessage_RendersCard(t *testing.T) {
	order := makeChannelOrder(domain.OrderStatusNew)
	order.BonusUsed = 1000

	text := staffMessage(order)

	contains := []string{
		"🆕 <b>Order S-1001</b> (New)",
		"👤 <b>Name:</b> Aziz",
		"📱 <b>Phone:</b> +998901234567",
		"📍 <b>Address:</b> Amir Temur 42, apt 7",
		"🍽 Lagman x2: 3 000 sum",
		"🍽 Plov x1: 2 200 sum",
		"🧾 <b>Subtotal:</b> 5 200 sum",
		"🚚 <b>Delivery:</b> 10 000 sum",
		"🎁 <b>Bonus used:</b> -1 000 sum",
		"💰 <b>Total:</b> 15 200 sum",
		"💬 <b>Comment:</b> No onions please",
		"🕐 14.03.2025 12:30",
	}
	for _, want := range contains {
		assert.Contains(t, text, want)
	}
}

func TestStaffMessage_OmitsEmptySections(t *testing.T) {
	order := makeChannelOrder(domain.OrderStatusConfirmed)
	order.Comment = nil
	order.BonusUsed = 0

	text := staffMessage(order)

	assert.NotContains(t, text, "Comment", "card should omit the comment line when there is no comment")
	assert.NotContains(t, text, "Bonus used", "card should omit the bonus line when no bonus was spent")
	assert.Contains(t, text, "✅ <b>Order S-1001</b> (Confirmed)")
}

func TestStaffMessage_EscapesHTML(t *testing.T) {
	order := makeChannelOrder(domain.OrderStatusNew)
	order.CustomerName = "<script>alert(1)</script>"
	order.Items[0].ProductName = "Lagman & Co <spicy>"

	text := staffMessage(order)

	assert.NotContains(t, text, "<script>", "customer name must be HTML-escaped")
	assert.Contains(t, text, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Contains(t, text, "Lagman &amp; Co &lt;spicy&gt;")
}

func TestCustomerStatusText(t *testing.T) {
	tests := []struct {
		status domain.OrderStatus
		want   string
	}{
		{domain.OrderStatusConfirmed, "Your order S-1001 is confirmed"},
		{domain.OrderStatusCooking, "Your order S-1001 is being cooked"},
		{domain.OrderStatusDelivering, "Your order S-1001 is on the way"},
		{domain.OrderStatusDelivered, "Order S-1001 delivered"},
		{domain.OrderStatusCancelled, "order S-1001 was cancelled"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			order := makeChannelOrder(tt.status)
			assert.Contains(t, customerStatusText(order), tt.want)
		})
	}

	assert.Empty(t, customerStatusText(makeChannelOrder(domain.OrderStatusNew)),
		"new orders have no status message")
}

func TestCustomerCreatedText(t *testing.T) {
	text := customerCreatedText(makeChannelOrder(domain.OrderStatusNew))
	assert.Contains(t, text, "Order S-1001 accepted")
	assert.Contains(t, text, "15 200 sum")
}

func TestOrderKeyboard_ActiveOrder(t *testing.T) {
	gw := newTestGateway("", staticSettings(enabledSettings()), &mockCustomerService{}, &mockMessageStore{})
	order := makeChannelOrder(domain.OrderStatusNew)

	kb := gw.orderKeyboard(order)
	require.NotNil(t, kb, "active orders must get a keyboard")
	require.Len(t, kb.InlineKeyboard, 2, "expected action row and map row")

	actions := kb.InlineKeyboard[0]
	require.Len(t, actions, 2, "new orders offer 2 actions")
	assert.Equal(t, "✅ Confirm", actions[0].Text)
	assert.Equal(t, CallbackToken(order.ID, domain.OrderStatusConfirmed), actions[0].CallbackData)
	assert.Equal(t, "❌ Cancel", actions[1].Text)
	assert.Equal(t, CallbackToken(order.ID, domain.OrderStatusCancelled), actions[1].CallbackData)

	links := kb.InlineKeyboard[1]
	require.Len(t, links, 3, "expected 3 map links")
	for _, btn := range links {
		assert.NotEmpty(t, btn.URL, "map row buttons must be pure links")
		assert.Empty(t, btn.CallbackData, "map row buttons must be pure links")
	}
}

func TestOrderKeyboard_TerminalOrder(t *testing.T) {
	gw := newTestGateway("", staticSettings(enabledSettings()), &mockCustomerService{}, &mockMessageStore{})

	for _, status := range []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusCancelled} {
		assert.Nil(t, gw.orderKeyboard(makeChannelOrder(status)), "%s orders must not get a keyboard", status)
	}
}

func TestMapURLs(t *testing.T) {
	gw := newTestGateway("", staticSettings(enabledSettings()), &mockCustomerService{}, &mockMessageStore{})
	order := makeChannelOrder(domain.OrderStatusNew)

	assert.Equal(t, "https://www.google.com/maps?q=41.32,69.25", googleMapsURL(order))

	// Yandex takes longitude before latitude in the pt parameter.
	assert.Equal(t, "https://yandex.ru/maps/?pt=69.25,41.32&z=17", yandexMapsURL(order))

	courier := gw.courierRouteURL(order)
	for _, want := range []string{
		"start-lat=41.311081",
		"start-lon=69.240562",
		"end-lat=41.32",
		"end-lon=69.25",
		"tariffClass=express",
		"comment=Order+S-1001%2C+tel%3A+%2B998901234567",
	} {
		assert.Contains(t, courier, want)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1 000"},
		{15200, "15 200"},
		{1250000, "1 250 000"},
		{-4500, "-4 500"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatAmount(tt.in), "formatAmount(%d)", tt.in)
	}
}

// =============================================================================
// NOTIFICATION DELIVERY
// =============================================================================

func TestGateway_NotifyOrderCreated(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)
	api.setResult("sendMessage", `{"message_id":777,"chat":{"id":-1001234567}}`)

	var recordedOrder uuid.UUID
	var recordedMessage int64
	store := &mockMessageStore{
		SetTelegramMessageIDFunc: func(ctx context.Context, orderID uuid.UUID, messageID int64) error {
			recordedOrder, recordedMessage = orderID, messageID
			return nil
		},
	}
	customers := &mockCustomerService{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
			return linkedCustomer(555), nil
		},
	}
	gw := newTestGateway(srv.URL, staticSettings(enabledSettings()), customers, store)

	require.NoError(t, gw.NotifyOrderCreated(ctx, makeChannelOrder(domain.OrderStatusNew)))

	sends := api.callsTo("sendMessage")
	require.Len(t, sends, 2, "expected channel card and customer confirmation")

	card := sends[0]
	assert.Equal(t, float64(-1001234567), card.body["chat_id"], "card sent to wrong chat")
	assert.Equal(t, "HTML", card.body["parse_mode"])
	assert.Contains(t, card.body, "reply_markup", "card must carry the action keyboard")

	confirm := sends[1]
	assert.Equal(t, float64(555), confirm.body["chat_id"], "confirmation sent to wrong chat")
	text, _ := confirm.body["text"].(string)
	assert.Contains(t, text, "Order S-1001 accepted")

	assert.Equal(t, testOrderID, recordedOrder, "channel message not recorded")
	assert.Equal(t, int64(777), recordedMessage, "channel message not recorded")
}

func TestGateway_NotifyOrderCreated_Disabled(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)

	settings := enabledSettings()
	settings.Enabled = false
	gw := newTestGateway(srv.URL, staticSettings(settings), &mockCustomerService{}, &mockMessageStore{})

	require.NoError(t, gw.NotifyOrderCreated(ctx, makeChannelOrder(domain.OrderStatusNew)),
		"disabled gateway must be a no-op")
	assert.Empty(t, api.callsTo("sendMessage"), "disabled gateway must not call the Bot API")
}

func TestGateway_NotifyOrderCreated_SendFailure(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)
	api.setError("sendMessage", 403, "Forbidden: bot was kicked from the channel")

	storeCalled := false
	store := &mockMessageStore{
		SetTelegramMessageIDFunc: func(ctx context.Context, orderID uuid.UUID, messageID int64) error {
			storeCalled = true
			return nil
		},
	}
	gw := newTestGateway(srv.URL, staticSettings(enabledSettings()), &mockCustomerService{}, store)

	err := gw.NotifyOrderCreated(ctx, makeChannelOrder(domain.OrderStatusNew))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, storeCalled, "failed send must not record a message id")
}

func TestGateway_NotifyOrderCreated_UnlinkedCustomer(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)
	api.setResult("sendMessage", `{"message_id":777,"chat":{"id":-1001234567}}`)

	customers := &mockCustomerService{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
			c := linkedCustomer(0)
			c.TelegramChatID = nil
			return c, nil
		},
	}
	store := &mockMessageStore{
		SetTelegramMessageIDFunc: func(ctx context.Context, orderID uuid.UUID, messageID int64) error {
			return nil
		},
	}
	gw := newTestGateway(srv.URL, staticSettings(enabledSettings()), customers, store)

	require.NoError(t, gw.NotifyOrderCreated(ctx, makeChannelOrder(domain.OrderStatusNew)))
	assert.Len(t, api.callsTo("sendMessage"), 1, "unlinked customers get no confirmation")
}

func TestGateway_NotifyOrderUpdated_EditsInPlace(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)
	api.setResult("editMessageText", `{"message_id":777,"chat":{"id":-1001234567}}`)

	settings := enabledSettings()
	settings.NotifyCustomer = false
	gw := newTestGateway(srv.URL, staticSettings(settings), &mockCustomerService{}, &mockMessageStore{})

	order := makeChannelOrder(domain.OrderStatusConfirmed)
	messageID := int64(777)
	order.TelegramMessageID = &messageID

	require.NoError(t, gw.NotifyOrderUpdated(ctx, order))

	edit, ok := api.lastCall("editMessageText")
	require.True(t, ok, "expected an editMessageText call")
	assert.Equal(t, float64(777), edit.body["message_id"], "edited wrong message")
	text, _ := edit.body["text"].(string)
	assert.Contains(t, text, "(Confirmed)", "edited card should show the new status")
	assert.Empty(t, api.callsTo("sendMessage"), "successful edit must not post a new card")
}

func TestGateway_NotifyOrderUpdated_EditFallsBackToSend(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)
	api.setError("editMessageText", 400, "Bad Request: message to edit not found")
	api.setResult("sendMessage", `{"message_id":900,"chat":{"id":-1001234567}}`)

	var recordedMessage int64
	store := &mockMessageStore{
		SetTelegramMessageIDFunc: func(ctx context.Context, orderID uuid.UUID, messageID int64) error {
			recordedMessage = messageID
			return nil
		},
	}
	settings := enabledSettings()
	settings.NotifyCustomer = false
	gw := newTestGateway(srv.URL, staticSettings(settings), &mockCustomerService{}, store)

	order := makeChannelOrder(domain.OrderStatusConfirmed)
	messageID := int64(777)
	order.TelegramMessageID = &messageID

	require.NoError(t, gw.NotifyOrderUpdated(ctx, order))
	require.Len(t, api.callsTo("sendMessage"), 1, "expected a fresh card after the failed edit")
	assert.Equal(t, int64(900), recordedMessage, "replacement card id not recorded")
}

func TestGateway_NotifyOrderUpdated_NotModifiedIsSuccess(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)
	api.setError("editMessageText", 400, "Bad Request: message is not modified")

	settings := enabledSettings()
	settings.NotifyCustomer = false
	gw := newTestGateway(srv.URL, staticSettings(settings), &mockCustomerService{}, &mockMessageStore{})

	order := makeChannelOrder(domain.OrderStatusConfirmed)
	messageID := int64(777)
	order.TelegramMessageID = &messageID

	require.NoError(t, gw.NotifyOrderUpdated(ctx, order), "unchanged content is not a failure")
	assert.Empty(t, api.callsTo("sendMessage"), "unchanged content must not post a new card")
}

func TestGateway_NotifyOrderUpdated_NoStoredMessage(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)
	api.setResult("sendMessage", `{"message_id":901,"chat":{"id":-1001234567}}`)

	store := &mockMessageStore{
		SetTelegramMessageIDFunc: func(ctx context.Context, orderID uuid.UUID, messageID int64) error {
			return nil
		},
	}
	settings := enabledSettings()
	settings.NotifyCustomer = false
	gw := newTestGateway(srv.URL, staticSettings(settings), &mockCustomerService{}, store)

	order := makeChannelOrder(domain.OrderStatusConfirmed)
	order.TelegramMessageID = nil

	require.NoError(t, gw.NotifyOrderUpdated(ctx, order))
	assert.Empty(t, api.callsTo("editMessageText"), "nothing to edit without a stored message id")
	assert.Len(t, api.callsTo("sendMessage"), 1, "expected a fresh card")
}

func TestGateway_NotifyCustomer(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)

	customers := &mockCustomerService{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
			return linkedCustomer(555), nil
		},
	}
	gw := newTestGateway(srv.URL, staticSettings(enabledSettings()), customers, &mockMessageStore{})

	require.NoError(t, gw.NotifyCustomer(ctx, makeChannelOrder(domain.OrderStatusDelivering)))

	send, ok := api.lastCall("sendMessage")
	require.True(t, ok, "expected a sendMessage call")
	assert.Equal(t, float64(555), send.body["chat_id"], "status sent to wrong chat")
	text, _ := send.body["text"].(string)
	assert.Contains(t, text, "on the way")
}

func TestGateway_NotifyCustomer_NoOps(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		settings  domain.NotificationSettings
		customers *mockCustomerService
		status    domain.OrderStatus
	}{
		{
			name: "customer notifications off",
			settings: func() domain.NotificationSettings {
				s := enabledSettings()
				s.NotifyCustomer = false
				return s
			}(),
			customers: &mockCustomerService{},
			status:    domain.OrderStatusDelivering,
		},
		{
			name:     "customer record gone",
			settings: enabledSettings(),
			customers: &mockCustomerService{
				GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
					return nil, domain.ErrCustomerNotFound
				},
			},
			status: domain.OrderStatusDelivering,
		},
		{
			name:     "chat not linked",
			settings: enabledSettings(),
			customers: &mockCustomerService{
				GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
					c := linkedCustomer(0)
					c.TelegramChatID = nil
					return c, nil
				},
			},
			status: domain.OrderStatusDelivering,
		},
		{
			name:     "status has no customer message",
			settings: enabledSettings(),
			customers: &mockCustomerService{
				GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
					return linkedCustomer(555), nil
				},
			},
			status: domain.OrderStatusNew,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, srv := newFakeBotAPI(t)
			gw := newTestGateway(srv.URL, staticSettings(tt.settings), tt.customers, &mockMessageStore{})

			require.NoError(t, gw.NotifyCustomer(ctx, makeChannelOrder(tt.status)), "expected clean no-op")
			assert.Empty(t, api.callsTo("sendMessage"), "no-op cases must not call the Bot API")
		})
	}
}

func TestGateway_LinkURL(t *testing.T) {
	ctx := context.Background()
	api, srv := newFakeBotAPI(t)
	api.setResult("getMe", `{"id":42,"is_bot":true,"first_name":"Sofra","username":"sofra_bot"}`)

	gw := newTestGateway(srv.URL, staticSettings(enabledSettings()), &mockCustomerService{}, &mockMessageStore{})

	link, err := gw.LinkURL(ctx, testCustomerID)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/sofra_bot?start=link_55555555-5555-5555-5555-555555555555", link)

	// The bot account is cached per token.
	_, err = gw.LinkURL(ctx, testCustomerID)
	require.NoError(t, err)
	assert.Len(t, api.callsTo("getMe"), 1, "expected getMe to be cached")
}

func TestGateway_LinkURL_Disabled(t *testing.T) {
	ctx := context.Background()

	settings := enabledSettings()
	settings.Enabled = false
	gw := newTestGateway("", staticSettings(settings), &mockCustomerService{}, &mockMessageStore{})

	_, err := gw.LinkURL(ctx, testCustomerID)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
}
