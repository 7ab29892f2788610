package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bekmuradov/sofra/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultAPIBaseURL is the hosted Bot API endpoint.
const DefaultAPIBaseURL = "https://api.telegram.org"

const (
	// sendTimeout bounds ordinary method calls.
	sendTimeout = 10 * time.Second

	// pollMargin is added on top of the long-poll timeout so the HTTP
	// request outlives the server-side wait.
	pollMargin = 5 * time.Second
)

// allowedUpdates limits delivery to the update kinds this bot handles.
var allowedUpdates = []string{"message", "callback_query"}

// APIError is a Bot API rejection (the envelope came back with
// ok=false).
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %s (code %d)", e.Method, e.Description, e.Code)
}

// Client calls the Bot API for a single bot token. It is cheap to
// construct; connection pooling lives in the shared default transport.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	metrics *telemetry.BusinessMetrics
}

// NewClient creates a Bot API client. An empty baseURL selects the
// hosted endpoint; tests point it at a local server.
func NewClient(baseURL, token string, metrics *telemetry.BusinessMetrics) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		// No client-level timeout: getUpdates long polls, so each
		// method sets its own context deadline instead.
		http:    &http.Client{},
		metrics: metrics,
	}
}

// GetMe returns the bot's own account, used to build t.me deep links.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	var user User
	if err := c.call(ctx, "getMe", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SendMessage posts a message and returns it as stored by Telegram,
// including the message_id needed for later edits.
func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) (*Message, error) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	var msg Message
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText rewrites a previously sent message in place.
func (c *Client) EditMessageText(ctx context.Context, params EditMessageTextParams) (*Message, error) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	var msg Message
	if err := c.call(ctx, "editMessageText", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AnswerCallbackQuery acknowledges a button press. Every callback must
// be answered or the client keeps its spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, params AnswerCallbackQueryParams) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	return c.call(ctx, "answerCallbackQuery", params, nil)
}

// GetUpdates long polls for new updates. The HTTP deadline is the poll
// timeout plus a margin so the server can answer an empty poll.
func (c *Client) GetUpdates(ctx context.Context, params GetUpdatesParams) ([]Update, error) {
	wait := time.Duration(params.Timeout)*time.Second + pollMargin
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SetWebhook registers the public webhook URL with Telegram.
func (c *Client) SetWebhook(ctx context.Context, params SetWebhookParams) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if len(params.AllowedUpdates) == 0 {
		params.AllowedUpdates = allowedUpdates
	}
	return c.call(ctx, "setWebhook", params, nil)
}

// DeleteWebhook removes the webhook registration. Required before
// getUpdates polling works.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	return c.call(ctx, "deleteWebhook", nil, nil)
}

// call performs one Bot API method invocation: marshal the payload,
// POST it, decode the envelope, and unmarshal the result.
func (c *Client) call(ctx context.Context, method string, payload, result any) error {
	body := []byte("{}")
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("telegram %s: failed to marshal payload: %w", method, err)
		}
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s: failed to create request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	timer := prometheus.NewTimer(c.metrics.BotAPILatency.WithLabelValues(method))
	resp, err := c.http.Do(req)
	timer.ObserveDuration()
	if err != nil {
		c.metrics.BotAPIRequests.WithLabelValues(method, "transport_error").Inc()
		// Transport errors carry the request URL, which contains the
		// bot token. Scrub it before the error reaches a log line.
		return fmt.Errorf("telegram %s: request failed: %s", method, c.redact(err.Error()))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.BotAPIRequests.WithLabelValues(method, "transport_error").Inc()
		return fmt.Errorf("telegram %s: failed to read response: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.metrics.BotAPIRequests.WithLabelValues(method, "transport_error").Inc()
		return fmt.Errorf("telegram %s: failed to parse response (status %d): %w", method, resp.StatusCode, err)
	}

	if !envelope.OK {
		c.metrics.BotAPIRequests.WithLabelValues(method, "api_error").Inc()
		return &APIError{Method: method, Code: envelope.ErrorCode, Description: envelope.Description}
	}

	c.metrics.BotAPIRequests.WithLabelValues(method, "ok").Inc()

	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("telegram %s: failed to parse result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) redact(s string) string {
	if c.token == "" {
		return s
	}
	return strings.ReplaceAll(s, c.token, "<token>")
}
