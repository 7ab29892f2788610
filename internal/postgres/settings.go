package postgres

import (
	"context"
	"errors"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsService implements domain.NotificationSettingsService using
// PostgreSQL. The settings live in a single row seeded by migration.
type SettingsService struct {
	pool *pgxpool.Pool
}

// Compile-time check that SettingsService implements domain.NotificationSettingsService.
var _ domain.NotificationSettingsService = (*SettingsService)(nil)

// NewSettingsService creates a new PostgreSQL-backed settings service.
func NewSettingsService(pool *pgxpool.Pool) *SettingsService {
	return &SettingsService{
		pool: pool,
	}
}

// Get retrieves the notification settings.
func (s *SettingsService) Get(ctx context.Context) (*domain.NotificationSettings, error) {
	var ns domain.NotificationSettings
	err := s.pool.QueryRow(ctx, `
		SELECT enabled, bot_token, channel_chat_id, notify_customer, welcome_text, updated_at
		FROM notification_settings WHERE id = 1`).
		Scan(&ns.Enabled, &ns.BotToken, &ns.ChannelChatID, &ns.NotifyCustomer, &ns.WelcomeText, &ns.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSettingsNotFound
		}
		return nil, domain.Internal(err, "settings.get", "failed to get notification settings")
	}
	return &ns, nil
}

// Update applies the non-nil fields and returns the new settings.
func (s *SettingsService) Update(ctx context.Context, params domain.UpdateNotificationSettingsParams) (*domain.NotificationSettings, error) {
	var ns domain.NotificationSettings
	err := s.pool.QueryRow(ctx, `
		UPDATE notification_settings
		SET enabled = COALESCE($1, enabled),
		    bot_token = COALESCE($2, bot_token),
		    channel_chat_id = COALESCE($3, channel_chat_id),
		    notify_customer = COALESCE($4, notify_customer),
		    welcome_text = COALESCE($5, welcome_text),
		    updated_at = now()
		WHERE id = 1
		RETURNING enabled, bot_token, channel_chat_id, notify_customer, welcome_text, updated_at`,
		params.Enabled, params.BotToken, params.ChannelChatID, params.NotifyCustomer, params.WelcomeText).
		Scan(&ns.Enabled, &ns.BotToken, &ns.ChannelChatID, &ns.NotifyCustomer, &ns.WelcomeText, &ns.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSettingsNotFound
		}
		return nil, domain.Internal(err, "settings.update", "failed to update notification settings")
	}
	return &ns, nil
}
