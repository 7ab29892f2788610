package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// sessionTTL is the sliding expiry window for cart sessions. Every
// save pushes the expiry forward.
const sessionTTL = 30 * 24 * time.Hour

// SessionStore persists carts as JSON blobs keyed by the opaque
// session token from the storefront cookie.
type SessionStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewSessionStore creates a new PostgreSQL-backed session store.
func NewSessionStore(pool *pgxpool.Pool, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		pool:   pool,
		logger: logger,
	}
}

// sessionData is the JSON shape of the sessions.data column.
type sessionData struct {
	Cart domain.Cart `json:"cart"`
}

// LoadCart returns the cart for a session token. A missing, expired,
// or malformed session yields an empty cart rather than an error; the
// customer just sees an empty basket.
func (s *SessionStore) LoadCart(ctx context.Context, token string) (domain.Cart, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT data FROM sessions
		WHERE token = $1 AND expires_at > now()`, token).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Cart{}, nil
		}
		return domain.Cart{}, domain.Internal(err, "session.load_cart", "failed to load session")
	}

	var data sessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Warn("discarding malformed session data",
			slog.String("token_prefix", tokenPrefix(token)),
			slog.String("error", err.Error()))
		return domain.Cart{}, nil
	}

	return data.Cart, nil
}

// SaveCart upserts the cart and slides the session expiry forward.
func (s *SessionStore) SaveCart(ctx context.Context, token string, cart domain.Cart) error {
	raw, err := json.Marshal(sessionData{Cart: cart})
	if err != nil {
		return domain.Internal(err, "session.save_cart", "failed to encode cart")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (token, data, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE
		SET data = EXCLUDED.data,
		    updated_at = now(),
		    expires_at = EXCLUDED.expires_at`, token, raw, time.Now().Add(sessionTTL))
	if err != nil {
		return domain.Internal(err, "session.save_cart", "failed to save session")
	}

	return nil
}

// DeleteCart removes the session row entirely.
func (s *SessionStore) DeleteCart(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return domain.Internal(err, "session.delete_cart", "failed to delete session")
	}
	return nil
}

// DeleteExpired removes sessions past their expiry and reports how
// many were swept.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, domain.Internal(err, "session.delete_expired", "failed to delete expired sessions")
	}
	return tag.RowsAffected(), nil
}

// tokenPrefix returns enough of a token to correlate log lines without
// logging the whole credential.
func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
