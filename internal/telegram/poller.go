package telegram

import (
	"context"
	"log/slog"
	"time"
)

// PollerConfig holds long-poll loop configuration
type PollerConfig struct {
	// PollTimeout is the server-side getUpdates wait.
	PollTimeout time.Duration

	// IdlePause is the pause after an empty poll.
	IdlePause time.Duration

	// ErrorBackoff is the pause after a failed poll.
	ErrorBackoff time.Duration
}

// Poller consumes updates with getUpdates long polling. It exists for
// deployments without a public HTTPS endpoint; production setups use
// the webhook instead. The two are mutually exclusive per bot token,
// so the poller removes any webhook registration before starting.
type Poller struct {
	client  *Client
	handler *Handler
	config  PollerConfig
	logger  *slog.Logger
}

// NewPoller creates a poller for the given client and handler.
func NewPoller(client *Client, handler *Handler, config PollerConfig, logger *slog.Logger) *Poller {
	// Set defaults
	if config.PollTimeout == 0 {
		config.PollTimeout = 30 * time.Second
	}
	if config.IdlePause == 0 {
		config.IdlePause = 1 * time.Second
	}
	if config.ErrorBackoff == 0 {
		config.ErrorBackoff = 5 * time.Second
	}

	return &Poller{
		client:  client,
		handler: handler,
		config:  config,
		logger:  logger,
	}
}

// Start polls for updates until the context is cancelled.
func (p *Poller) Start(ctx context.Context) error {
	p.logger.Info("telegram poller starting",
		"poll_timeout", p.config.PollTimeout,
		"idle_pause", p.config.IdlePause,
	)

	if err := p.client.DeleteWebhook(ctx); err != nil {
		p.logger.Warn("failed to delete webhook before polling", "error", err)
	}

	var offset int64
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("telegram poller shutting down")
			return ctx.Err()
		default:
		}

		updates, err := p.client.GetUpdates(ctx, GetUpdatesParams{
			Offset:         offset,
			Timeout:        int(p.config.PollTimeout.Seconds()),
			AllowedUpdates: allowedUpdates,
		})
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("telegram poller shutting down")
				return ctx.Err()
			}
			p.logger.Error("poll failed", "error", err)
			p.pause(ctx, p.config.ErrorBackoff)
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			p.handler.HandleUpdate(ctx, update)
		}

		if len(updates) == 0 {
			p.pause(ctx, p.config.IdlePause)
		}
	}
}

// pause sleeps for d unless the context ends first.
func (p *Poller) pause(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
