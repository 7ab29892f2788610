package admin

import (
	"net/http"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/bekmuradov/sofra/internal/handler"
)

// SettingsHandler lets the operator inspect and rotate the bot
// configuration over HTTP instead of raw SQL. The routes sit behind
// the admin token middleware; there is no admin UI.
type SettingsHandler struct {
	settings domain.NotificationSettingsService
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings domain.NotificationSettingsService) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
	}
}

// settingsResponse never carries the bot token itself, only whether
// one is present.
type settingsResponse struct {
	Enabled        bool   `json:"enabled"`
	BotTokenSet    bool   `json:"bot_token_set"`
	ChannelChatID  int64  `json:"channel_chat_id"`
	NotifyCustomer bool   `json:"notify_customer"`
	WelcomeText    string `json:"welcome_text"`
	UpdatedAt      string `json:"updated_at"`
}

func toSettingsResponse(ns *domain.NotificationSettings) settingsResponse {
	return settingsResponse{
		Enabled:        ns.Enabled,
		BotTokenSet:    ns.BotToken != "",
		ChannelChatID:  ns.ChannelChatID,
		NotifyCustomer: ns.NotifyCustomer,
		WelcomeText:    ns.WelcomeText,
		UpdatedAt:      ns.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Get handles GET /api/admin/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ns, err := h.settings.Get(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, toSettingsResponse(ns))
}

// Update handles PUT /api/admin/settings. Omitted fields keep their
// stored value; the settings cache is invalidated by the service.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var params domain.UpdateNotificationSettingsParams
	if err := handler.DecodeJSON(r, &params); err != nil {
		handler.BadRequestResponse(w, r, "Invalid request body")
		return
	}

	ns, err := h.settings.Update(r.Context(), params)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, toSettingsResponse(ns))
}
