package postgres

import (
	"context"
	"errors"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerService implements domain.CustomerService using PostgreSQL.
type CustomerService struct {
	pool *pgxpool.Pool
}

// Compile-time check that CustomerService implements domain.CustomerService.
var _ domain.CustomerService = (*CustomerService)(nil)

// NewCustomerService creates a new PostgreSQL-backed customer service.
func NewCustomerService(pool *pgxpool.Pool) *CustomerService {
	return &CustomerService{
		pool: pool,
	}
}

const customerColumns = `id, phone, name, telegram_chat_id, bonus_balance, created_at, updated_at`

// FindOrCreateByPhone normalizes the phone and upserts the customer in
// a single round trip. A non-empty name refreshes the stored name.
func (s *CustomerService) FindOrCreateByPhone(ctx context.Context, phone, name string) (*domain.Customer, error) {
	normalized, err := domain.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO customers (phone, name)
		VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (phone) DO UPDATE
		SET name = COALESCE(NULLIF($2, ''), customers.name),
		    updated_at = now()
		RETURNING `+customerColumns, normalized, name)

	c, err := scanCustomer(row)
	if err != nil {
		return nil, domain.Internal(err, "customer.find_or_create", "failed to upsert customer")
	}

	return c, nil
}

// GetByID retrieves a customer.
func (s *CustomerService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)

	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, domain.Internal(err, "customer.get", "failed to get customer")
	}

	return c, nil
}

// GetByTelegramChat retrieves the customer linked to a chat.
func (s *CustomerService) GetByTelegramChat(ctx context.Context, chatID int64) (*domain.Customer, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE telegram_chat_id = $1`, chatID)

	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChatNotLinked
		}
		return nil, domain.Internal(err, "customer.get_by_chat", "failed to get customer by chat")
	}

	return c, nil
}

// LinkTelegramChat binds a chat to a customer. The chat is detached
// from any other customer first so the unique constraint cannot trip
// when someone re-links from a new account.
func (s *CustomerService) LinkTelegramChat(ctx context.Context, customerID uuid.UUID, chatID int64) error {
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE customers SET telegram_chat_id = NULL, updated_at = now()
			WHERE telegram_chat_id = $1 AND id <> $2`, chatID, customerID)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE customers SET telegram_chat_id = $1, updated_at = now()
			WHERE id = $2`, chatID, customerID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrCustomerNotFound
		}
		return nil
	})
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return err
		}
		return domain.Internal(err, "customer.link_chat", "failed to link telegram chat")
	}

	return nil
}

// =============================================================================
// SAVED ADDRESSES
// =============================================================================

const addressColumns = `id, customer_id, label, address, latitude, longitude, is_default, created_at`

// ListAddresses returns the customer's saved addresses, default first.
func (s *CustomerService) ListAddresses(ctx context.Context, customerID uuid.UUID) ([]domain.SavedAddress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+addressColumns+`
		FROM saved_addresses
		WHERE customer_id = $1
		ORDER BY is_default DESC, created_at DESC`, customerID)
	if err != nil {
		return nil, domain.Internal(err, "customer.list_addresses", "failed to list addresses")
	}
	defer rows.Close()

	var addrs []domain.SavedAddress
	for rows.Next() {
		var a domain.SavedAddress
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.Label, &a.Address, &a.Latitude, &a.Longitude, &a.IsDefault, &a.CreatedAt); err != nil {
			return nil, domain.Internal(err, "customer.list_addresses", "failed to scan address")
		}
		addrs = append(addrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "customer.list_addresses", "failed to read addresses")
	}

	return addrs, nil
}

// SaveAddress stores an address. Setting IsDefault clears the flag on
// the customer's other addresses in the same transaction.
func (s *CustomerService) SaveAddress(ctx context.Context, addr domain.SavedAddress) (*domain.SavedAddress, error) {
	var saved domain.SavedAddress

	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if addr.IsDefault {
			_, err := tx.Exec(ctx, `
				UPDATE saved_addresses SET is_default = FALSE
				WHERE customer_id = $1 AND is_default`, addr.CustomerID)
			if err != nil {
				return err
			}
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO saved_addresses (customer_id, label, address, latitude, longitude, is_default)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+addressColumns,
			addr.CustomerID, addr.Label, addr.Address, addr.Latitude, addr.Longitude, addr.IsDefault)

		return row.Scan(&saved.ID, &saved.CustomerID, &saved.Label, &saved.Address,
			&saved.Latitude, &saved.Longitude, &saved.IsDefault, &saved.CreatedAt)
	})
	if err != nil {
		return nil, domain.Internal(err, "customer.save_address", "failed to save address")
	}

	return &saved, nil
}

// DeleteAddress removes a saved address. Scoped by customer so one
// customer cannot delete another's rows.
func (s *CustomerService) DeleteAddress(ctx context.Context, customerID, addressID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM saved_addresses WHERE id = $1 AND customer_id = $2`, addressID, customerID)
	if err != nil {
		return domain.Internal(err, "customer.delete_address", "failed to delete address")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAddressNotFound
	}
	return nil
}

// =============================================================================
// ROW MAPPING
// =============================================================================

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Phone, &c.Name, &c.TelegramChatID, &c.BonusBalance, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
