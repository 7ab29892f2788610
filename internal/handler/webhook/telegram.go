package webhook

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/bekmuradov/sofra/internal/handler"
	"github.com/bekmuradov/sofra/internal/telegram"
	"github.com/bekmuradov/sofra/internal/telemetry"
)

// secretTokenHeader is set by Telegram on every webhook call when a
// secret token was registered with setWebhook.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateDispatcher consumes one inbound bot update. It is the same
// dispatch the long-poll worker uses, so webhook and polling
// deployments behave identically.
type UpdateDispatcher interface {
	HandleUpdate(ctx context.Context, update telegram.Update)
}

// TelegramHandler receives Bot API webhook calls. Telegram retries
// any non-2xx response, so only requests that could never succeed
// (bad secret, unparseable body) are rejected; everything else is
// acknowledged after dispatch.
type TelegramHandler struct {
	dispatcher UpdateDispatcher
	metrics    *telemetry.BusinessMetrics

	// secretToken, when non-empty, must match the header Telegram
	// echoes back. It is the only authentication on this route.
	secretToken string
}

// NewTelegramHandler creates a new Telegram webhook handler.
func NewTelegramHandler(dispatcher UpdateDispatcher, secretToken string, metrics *telemetry.BusinessMetrics) *TelegramHandler {
	return &TelegramHandler{
		dispatcher:  dispatcher,
		metrics:     metrics,
		secretToken: secretToken,
	}
}

// HandleWebhook processes POST /webhook/telegram.
func (h *TelegramHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if h.secretToken != "" {
		presented := r.Header.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(h.secretToken)) != 1 {
			h.metrics.WebhookFailed.Inc()
			handler.ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "webhook.telegram", "Invalid webhook secret"))
			return
		}
	}

	var update telegram.Update
	if err := handler.DecodeJSON(r, &update); err != nil {
		h.metrics.WebhookFailed.Inc()
		handler.BadRequestResponse(w, r, "Invalid update payload")
		return
	}

	h.dispatcher.HandleUpdate(r.Context(), update)

	handler.JSON(w, r, http.StatusOK, map[string]bool{"ok": true})
}
