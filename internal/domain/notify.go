package domain

import (
	"context"
	"time"
)

// =============================================================================
// NOTIFICATION SETTINGS (singleton)
// =============================================================================

// NotificationSettings configures the chat-bot gateway. Exactly one
// row exists; reads go through a short-lived cache that writes
// invalidate.
type NotificationSettings struct {
	// Enabled gates all outbound notifications and the bot worker.
	Enabled bool `json:"enabled"`

	// BotToken authenticates against the Bot API. Never serialized.
	BotToken string `json:"-"`

	// ChannelChatID is the staff channel or group that receives new
	// order announcements.
	ChannelChatID int64 `json:"channel_chat_id"`

	// NotifyCustomer gates status messages to linked customer chats.
	// Staff-channel notifications are unaffected.
	NotifyCustomer bool `json:"notify_customer"`

	// WelcomeText is sent after a successful account link. Empty
	// falls back to a built-in greeting.
	WelcomeText string `json:"welcome_text"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Configured reports whether the gateway has enough settings to send.
func (s *NotificationSettings) Configured() bool {
	return s.Enabled && s.BotToken != "" && s.ChannelChatID != 0
}

// =============================================================================
// SERVICE INTERFACE
// =============================================================================

// NotificationSettingsService reads and updates the settings singleton.
type NotificationSettingsService interface {
	// Get returns the current settings.
	Get(ctx context.Context) (*NotificationSettings, error)

	// Update applies the non-nil fields and returns the new settings.
	// Implementations must invalidate any read cache.
	Update(ctx context.Context, params UpdateNotificationSettingsParams) (*NotificationSettings, error)
}

// UpdateNotificationSettingsParams contains optional settings updates.
// Nil fields are left unchanged.
type UpdateNotificationSettingsParams struct {
	Enabled        *bool   `json:"enabled"`
	BotToken       *string `json:"bot_token"`
	ChannelChatID  *int64  `json:"channel_chat_id"`
	NotifyCustomer *bool   `json:"notify_customer"`
	WelcomeText    *string `json:"welcome_text"`
}

// =============================================================================
// DOMAIN ERRORS
// =============================================================================

var (
	ErrSettingsNotFound = &Error{Code: ENOTFOUND, Message: "Notification settings not found"}

	ErrNotificationsDisabled = &Error{Code: ECONFLICT, Message: "Notifications are disabled"}
)
