package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bekmuradov/sofra/internal/telegram"
	"github.com/bekmuradov/sofra/internal/telemetry"
)

var testMetrics = telemetry.NewBusinessMetrics("sofra_test")

type mockDispatcher struct {
	updates []telegram.Update
}

func (m *mockDispatcher) HandleUpdate(ctx context.Context, update telegram.Update) {
	m.updates = append(m.updates, update)
}

func postWebhook(h *TelegramHandler, body, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
	}
	w := httptest.NewRecorder()
	h.HandleWebhook(w, req)
	return w
}

func TestTelegramHandler_DispatchesCallback(t *testing.T) {
	dispatcher := &mockDispatcher{}
	h := NewTelegramHandler(dispatcher, "", testMetrics)

	body := `{"update_id": 7, "callback_query": {"id": "cb1", "from": {"id": 42}, "data": "order_x_confirmed"}}`
	w := postWebhook(h, body, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Errorf("expected ok acknowledgment, got %s", w.Body.String())
	}
	if len(dispatcher.updates) != 1 {
		t.Fatalf("expected 1 dispatched update, got %d", len(dispatcher.updates))
	}
	cq := dispatcher.updates[0].CallbackQuery
	if cq == nil || cq.Data != "order_x_confirmed" {
		t.Errorf("callback query did not survive decode: %+v", dispatcher.updates[0])
	}
}

func TestTelegramHandler_MalformedJSON(t *testing.T) {
	dispatcher := &mockDispatcher{}
	h := NewTelegramHandler(dispatcher, "", testMetrics)

	w := postWebhook(h, `{"update_id": `, "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", w.Code)
	}
	if len(dispatcher.updates) != 0 {
		t.Errorf("malformed payload must not be dispatched, got %d updates", len(dispatcher.updates))
	}
}

func TestTelegramHandler_SecretToken(t *testing.T) {
	tests := []struct {
		name       string
		presented  string
		wantStatus int
		dispatched int
	}{
		{"matching secret", "hunter2", http.StatusOK, 1},
		{"wrong secret", "nope", http.StatusUnauthorized, 0},
		{"missing secret", "", http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &mockDispatcher{}
			h := NewTelegramHandler(dispatcher, "hunter2", testMetrics)

			w := postWebhook(h, `{"update_id": 1, "message": {"message_id": 1, "chat": {"id": 5}, "text": "/start"}}`, tt.presented)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if len(dispatcher.updates) != tt.dispatched {
				t.Errorf("expected %d dispatched updates, got %d", tt.dispatched, len(dispatcher.updates))
			}
		})
	}
}

func TestTelegramHandler_UnknownUpdateKindStillAcknowledged(t *testing.T) {
	dispatcher := &mockDispatcher{}
	h := NewTelegramHandler(dispatcher, "", testMetrics)

	// An update carrying only fields this app does not read must be
	// acknowledged, otherwise Telegram redelivers it forever.
	w := postWebhook(h, `{"update_id": 9, "edited_message": {"message_id": 3}}`, "")

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if len(dispatcher.updates) != 1 {
		t.Errorf("expected update to reach the dispatcher, got %d", len(dispatcher.updates))
	}
}
