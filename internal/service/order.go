package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/bekmuradov/sofra/internal/postgres"
	"github.com/bekmuradov/sofra/internal/telemetry"
	"github.com/google/uuid"
)

// OrderStore is the persistence surface for orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, params postgres.CreateOrderParams) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderStatus(ctx context.Context, id uuid.UUID) (domain.OrderStatus, error)
	ListByPhone(ctx context.Context, phone string, limit int32) ([]domain.Order, error)
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus) (*domain.Order, error)
}

const defaultHistoryLimit = 20

type orderService struct {
	store       OrderStore
	customers   domain.CustomerService
	carts       domain.CartService
	notifier    domain.OrderNotifier
	deliveryFee int64
	logger      *slog.Logger
	metrics     *telemetry.BusinessMetrics
}

// NewOrderService creates a new OrderService instance. The notifier is
// called best-effort after commits; its failures are logged and never
// surface to callers.
func NewOrderService(
	store OrderStore,
	customers domain.CustomerService,
	carts domain.CartService,
	notifier domain.OrderNotifier,
	deliveryFee int64,
	logger *slog.Logger,
	metrics *telemetry.BusinessMetrics,
) domain.OrderService {
	return &orderService{
		store:       store,
		customers:   customers,
		carts:       carts,
		notifier:    notifier,
		deliveryFee: deliveryFee,
		logger:      logger,
		metrics:     metrics,
	}
}

// Checkout turns the session cart into an order. The cart is resolved
// first so only live, available products are snapshotted; persistence
// happens in one transaction inside the store.
func (s *orderService) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, error) {
	if req.Latitude == nil || req.Longitude == nil {
		return nil, domain.Invalid("order.checkout", "Delivery coordinates are required")
	}

	summary, err := s.carts.Summary(ctx, req.SessionToken)
	if err != nil {
		return nil, err
	}
	if len(summary.Items) == 0 {
		return nil, domain.ErrCartEmpty
	}

	customer, err := s.customers.FindOrCreateByPhone(ctx, req.CustomerPhone, req.CustomerName)
	if err != nil {
		return nil, err
	}

	// The requested bonus is capped silently at both the live balance
	// and the subtotal; the conditional debit in the store guards the
	// race with a concurrent spend.
	bonus := req.BonusUsed
	if bonus > customer.BonusBalance {
		bonus = customer.BonusBalance
	}
	if bonus > summary.TotalPrice {
		bonus = summary.TotalPrice
	}

	order := &domain.Order{
		CustomerID:    customer.ID,
		CustomerName:  req.CustomerName,
		CustomerPhone: customer.Phone,
		Address:       req.Address,
		Latitude:      *req.Latitude,
		Longitude:     *req.Longitude,
		Status:        domain.OrderStatusNew,
		DeliveryFee:   s.deliveryFee,
		BonusUsed:     bonus,
		Items:         summary.ToOrderItems(),
	}
	if req.Comment != "" {
		comment := req.Comment
		order.Comment = &comment
	}
	order.RecomputeTotals()

	created, err := s.store.CreateOrder(ctx, postgres.CreateOrderParams{
		Order:        order,
		SessionToken: req.SessionToken,
		SaveAddress:  req.SaveAddress,
		AddressLabel: req.AddressLabel,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrdersCreated.Inc()
	s.metrics.OrderValue.Observe(float64(created.Total))
	s.metrics.OrderItemCount.Observe(float64(len(created.Items)))
	if created.BonusUsed > 0 {
		s.metrics.BonusSpent.Add(float64(created.BonusUsed))
	}

	s.notify(ctx, "order created", created, s.notifier.NotifyOrderCreated)

	return created, nil
}

// GetOrder retrieves an order with its items.
func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// ListOrdersByPhone returns a customer's order history, newest first.
func (s *orderService) ListOrdersByPhone(ctx context.Context, phone string, limit int32) ([]domain.Order, error) {
	normalized, err := domain.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = defaultHistoryLimit
	}
	return s.store.ListByPhone(ctx, normalized, limit)
}

// ApplyTransition moves an order along the status table. The rejection
// names the current status so operators see why nothing moved.
func (s *orderService) ApplyTransition(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	if !next.Valid() {
		return nil, domain.Errorf(domain.EINVALID, "order.apply_transition", "unknown order status %q", string(next))
	}

	current, err := s.store.GetOrderStatus(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !current.CanTransitionTo(next) {
		return nil, domain.Errorf(domain.ECONFLICT, "order.apply_transition",
			"Cannot change status from %s to %s", current.Display(), next.Display())
	}

	order, err := s.store.TransitionStatus(ctx, orderID, current, next)
	if err != nil {
		return nil, err
	}

	s.metrics.StatusTransitions.WithLabelValues(string(current), string(next)).Inc()

	s.notify(ctx, "order updated", order, s.notifier.NotifyOrderUpdated)
	s.notify(ctx, "customer status update", order, s.notifier.NotifyCustomer)

	return order, nil
}

// Repeat re-adds a past order's items to the session cart. Products
// that vanished or went unavailable are skipped without error; the
// count of re-added lines is reported alongside the updated summary.
func (s *orderService) Repeat(ctx context.Context, orderID uuid.UUID, sessionToken string) (*domain.CartSummary, int, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, 0, err
	}

	added := 0
	for _, item := range order.Items {
		_, err := s.carts.AddItem(ctx, sessionToken, item.ProductID, item.Quantity, false)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, domain.ErrProductUnavailable) {
				continue
			}
			return nil, 0, err
		}
		added++
	}

	summary, err := s.carts.Summary(ctx, sessionToken)
	if err != nil {
		return nil, 0, err
	}

	return summary, added, nil
}

// notify runs one best-effort notification. The context is detached
// from the request so an early client disconnect cannot abort the
// send; failures are logged and swallowed.
func (s *orderService) notify(ctx context.Context, event string, order *domain.Order, fn func(context.Context, *domain.Order) error) {
	if err := fn(context.WithoutCancel(ctx), order); err != nil {
		s.logger.Error("notification failed",
			"event", event,
			"order_id", order.ID,
			"order_number", order.OrderNumber,
			"error", err,
		)
	}
}
