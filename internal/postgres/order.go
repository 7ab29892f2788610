package postgres

import (
	"context"
	"errors"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderStore persists orders and their immutable item snapshots.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new PostgreSQL-backed order store.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{
		pool: pool,
	}
}

const orderColumns = `id, order_number, customer_id, customer_name, customer_phone, address,
	latitude, longitude, comment, status, subtotal, delivery_fee, bonus_used, total,
	telegram_message_id, created_at, updated_at, confirmed_at, delivered_at`

const orderItemColumns = `id, order_id, product_id, product_name, unit_price, quantity, line_total`

// CreateOrderParams carries everything the checkout transaction writes
// besides the order itself.
type CreateOrderParams struct {
	Order        *domain.Order
	SessionToken string // cart to clear, empty to skip
	SaveAddress  bool
	AddressLabel string
}

// CreateOrder runs the checkout transaction: order plus item snapshots,
// the bonus debit, the optional address save and the cart clear all
// commit or roll back together. The bonus debit is conditional on the
// live balance so a concurrent spend aborts the whole checkout.
func (s *OrderStore) CreateOrder(ctx context.Context, params CreateOrderParams) (*domain.Order, error) {
	order := params.Order
	created := *order

	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO orders (order_number, customer_id, customer_name, customer_phone,
				address, latitude, longitude, comment, status,
				subtotal, delivery_fee, bonus_used, total)
			VALUES ('S-' || nextval('order_number_seq')::text, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, order_number, created_at, updated_at`,
			order.CustomerID, order.CustomerName, order.CustomerPhone,
			order.Address, order.Latitude, order.Longitude, order.Comment, order.Status,
			order.Subtotal, order.DeliveryFee, order.BonusUsed, order.Total)
		if err := row.Scan(&created.ID, &created.OrderNumber, &created.CreatedAt, &created.UpdatedAt); err != nil {
			return err
		}

		created.Items = make([]domain.OrderItem, len(order.Items))
		for i, item := range order.Items {
			item.ID = uuid.New()
			item.OrderID = created.ID
			_, err := tx.Exec(ctx, `
				INSERT INTO order_items (id, order_id, product_id, product_name, unit_price, quantity, line_total)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				item.ID, item.OrderID, item.ProductID, item.ProductName,
				item.UnitPrice, item.Quantity, item.LineTotal)
			if err != nil {
				return err
			}
			created.Items[i] = item
		}

		if order.BonusUsed > 0 {
			tag, err := tx.Exec(ctx, `
				UPDATE customers SET bonus_balance = bonus_balance - $1, updated_at = now()
				WHERE id = $2 AND bonus_balance >= $1`,
				order.BonusUsed, order.CustomerID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return domain.ErrBonusExceedsBalance
			}
		}

		if params.SaveAddress {
			// First saved address becomes the default.
			_, err := tx.Exec(ctx, `
				INSERT INTO saved_addresses (customer_id, label, address, latitude, longitude, is_default)
				VALUES ($1, $2, $3, $4, $5,
					NOT EXISTS (SELECT 1 FROM saved_addresses WHERE customer_id = $1))`,
				order.CustomerID, params.AddressLabel, order.Address, order.Latitude, order.Longitude)
			if err != nil {
				return err
			}
		}

		if params.SessionToken != "" {
			_, err := tx.Exec(ctx, `
				UPDATE sessions SET data = data - 'cart', updated_at = now()
				WHERE token = $1`, params.SessionToken)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if domain.IsCode(err, domain.EINVALID) {
			return nil, err
		}
		return nil, domain.Internal(err, "order.create", "failed to create order")
	}

	return &created, nil
}

// GetOrder retrieves an order with its items.
func (s *OrderStore) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, "order.get", "failed to get order")
	}

	items, err := s.itemsForOrders(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, domain.Internal(err, "order.get", "failed to load order items")
	}
	order.Items = items[id]

	return order, nil
}

// GetOrderStatus retrieves just the current status.
func (s *OrderStore) GetOrderStatus(ctx context.Context, id uuid.UUID) (domain.OrderStatus, error) {
	var status domain.OrderStatus
	err := s.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrOrderNotFound
		}
		return "", domain.Internal(err, "order.get_status", "failed to get order status")
	}
	return status, nil
}

// ListByPhone returns a customer's orders, newest first, items included.
func (s *OrderStore) ListByPhone(ctx context.Context, phone string, limit int32) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE customer_phone = $1
		ORDER BY created_at DESC
		LIMIT $2`, phone, limit)
	if err != nil {
		return nil, domain.Internal(err, "order.list_by_phone", "failed to list orders")
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []uuid.UUID
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, domain.Internal(err, "order.list_by_phone", "failed to scan order")
		}
		orders = append(orders, *order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "order.list_by_phone", "failed to read orders")
	}

	if len(ids) > 0 {
		items, err := s.itemsForOrders(ctx, ids)
		if err != nil {
			return nil, domain.Internal(err, "order.list_by_phone", "failed to load order items")
		}
		for i := range orders {
			orders[i].Items = items[orders[i].ID]
		}
	}

	return orders, nil
}

// TransitionStatus moves an order from one status to another. The
// update is conditional on the current status, so when two operators
// race the first write wins and the second gets ErrInvalidTransition.
func (s *OrderStore) TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus) (*domain.Order, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE orders
		SET status = $1,
		    updated_at = now(),
		    confirmed_at = CASE WHEN $1 = 'confirmed' THEN now() ELSE confirmed_at END,
		    delivered_at = CASE WHEN $1 = 'delivered' THEN now() ELSE delivered_at END
		WHERE id = $2 AND status = $3
		RETURNING `+orderColumns, to, orderID, from)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the order is gone or somebody moved it first.
			var exists bool
			checkErr := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists)
			if checkErr == nil && !exists {
				return nil, domain.ErrOrderNotFound
			}
			return nil, domain.ErrInvalidTransition
		}
		return nil, domain.Internal(err, "order.transition", "failed to update order status")
	}

	items, err := s.itemsForOrders(ctx, []uuid.UUID{orderID})
	if err != nil {
		return nil, domain.Internal(err, "order.transition", "failed to load order items")
	}
	order.Items = items[orderID]

	return order, nil
}

// SetTelegramMessageID remembers the channel message posted for an
// order so later status changes edit it in place.
func (s *OrderStore) SetTelegramMessageID(ctx context.Context, orderID uuid.UUID, messageID int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE orders SET telegram_message_id = $1 WHERE id = $2`, messageID, orderID)
	if err != nil {
		return domain.Internal(err, "order.set_message_id", "failed to store message id")
	}
	return nil
}

// =============================================================================
// ROW MAPPING
// =============================================================================

func (s *OrderStore) itemsForOrders(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderItemColumns+`
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY product_name`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]domain.OrderItem)
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity, &it.LineTotal); err != nil {
			return nil, err
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.CustomerPhone, &o.Address,
		&o.Latitude, &o.Longitude, &o.Comment, &o.Status, &o.Subtotal, &o.DeliveryFee, &o.BonusUsed, &o.Total,
		&o.TelegramMessageID, &o.CreatedAt, &o.UpdatedAt, &o.ConfirmedAt, &o.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
