package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ORDER STATUS STATE MACHINE
// =============================================================================

// OrderStatus is the lifecycle state of an order. Transitions are
// restricted to the table encoded in CanTransitionTo; everything else
// is rejected with ErrInvalidTransition.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusCooking    OrderStatus = "cooking"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// orderTransitions maps each status to the statuses it may move to.
// Terminal statuses have no entries.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusNew:        {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusCooking, OrderStatusCancelled},
	OrderStatusCooking:    {OrderStatusDelivering, OrderStatusCancelled},
	OrderStatusDelivering: {OrderStatusDelivered, OrderStatusCancelled},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusNew, OrderStatusConfirmed, OrderStatusCooking,
		OrderStatusDelivering, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Display returns the human-readable status label.
func (s OrderStatus) Display() string {
	switch s {
	case OrderStatusNew:
		return "New"
	case OrderStatusConfirmed:
		return "Confirmed"
	case OrderStatusCooking:
		return "Cooking"
	case OrderStatusDelivering:
		return "Delivering"
	case OrderStatusDelivered:
		return "Delivered"
	case OrderStatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// Terminal reports whether no further transitions are possible.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s, in the order
// they should be offered to the operator.
func (s OrderStatus) NextStatuses() []OrderStatus {
	return orderTransitions[s]
}

// ParseOrderStatus validates a raw status string, such as one decoded
// from a bot callback token.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", Errorf(EINVALID, "order.parse_status", "unknown order status %q", raw)
	}
	return s, nil
}

// =============================================================================
// ORDER DOMAIN TYPES
// =============================================================================

// Order is a placed order with immutable line snapshots. All amounts
// are in the smallest currency unit.
type Order struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`

	// Contact and delivery details captured at checkout. Coordinates
	// are required so the courier deep link can always be built.
	CustomerName  string  `json:"customer_name"`
	CustomerPhone string  `json:"customer_phone"`
	Address       string  `json:"address"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Comment       *string `json:"comment,omitempty"`

	Status OrderStatus `json:"status"`

	Subtotal    int64 `json:"subtotal"`
	DeliveryFee int64 `json:"delivery_fee"`
	BonusUsed   int64 `json:"bonus_used"`
	Total       int64 `json:"total"`

	// TelegramMessageID is the staff-channel message for this order,
	// set after the first successful notification.
	TelegramMessageID *int64 `json:"-"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	Items []OrderItem `json:"items"`
}

// OrderItem is a line snapshot. Name and unit price are frozen at
// checkout so later menu edits cannot rewrite order history.
type OrderItem struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitPrice   int64     `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	LineTotal   int64     `json:"line_total"`
}

// RecomputeTotals derives Subtotal from the line snapshots and Total
// from subtotal, delivery fee, and bonus. Call after mutating Items,
// DeliveryFee, or BonusUsed.
func (o *Order) RecomputeTotals() {
	var subtotal int64
	for _, item := range o.Items {
		subtotal += item.LineTotal
	}
	o.Subtotal = subtotal
	o.Total = subtotal + o.DeliveryFee - o.BonusUsed
}

// =============================================================================
// SERVICE INTERFACE
// =============================================================================

// OrderService provides business logic for order placement and the
// status lifecycle.
type OrderService interface {
	// Checkout converts the session cart into an order atomically:
	// order row, item snapshots, totals, optional saved address, and
	// bonus debit all commit together, and the cart is cleared.
	Checkout(ctx context.Context, req CheckoutRequest) (*Order, error)

	// GetOrder retrieves an order with its items.
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)

	// ListOrdersByPhone returns a customer's orders, newest first.
	ListOrdersByPhone(ctx context.Context, phone string, limit int32) ([]Order, error)

	// ApplyTransition moves an order to the next status if the
	// transition table allows it, stamping confirmed_at or
	// delivered_at as appropriate.
	ApplyTransition(ctx context.Context, orderID uuid.UUID, next OrderStatus) (*Order, error)

	// Repeat copies a past order's lines back into the session cart,
	// skipping products that vanished or became unavailable, and
	// reports how many lines were re-added along with the updated
	// summary.
	Repeat(ctx context.Context, orderID uuid.UUID, sessionToken string) (*CartSummary, int, error)
}

// OrderNotifier is notified after order mutations commit. Failures are
// logged by callers and never fail the triggering operation.
type OrderNotifier interface {
	// NotifyOrderCreated announces a new order to the staff channel
	// and confirms to the linked customer chat, if any.
	NotifyOrderCreated(ctx context.Context, order *Order) error

	// NotifyOrderUpdated refreshes the staff-channel message after a
	// status change.
	NotifyOrderUpdated(ctx context.Context, order *Order) error

	// NotifyCustomer sends the status update to the customer's linked
	// chat, if any.
	NotifyCustomer(ctx context.Context, order *Order) error
}

// =============================================================================
// PARAMETER TYPES
// =============================================================================

// CheckoutRequest carries everything needed to place an order.
// Validation tags are enforced at the HTTP boundary.
type CheckoutRequest struct {
	SessionToken string `json:"-"`

	CustomerName  string   `json:"customer_name" validate:"required,min=1,max=120"`
	CustomerPhone string   `json:"customer_phone" validate:"required,min=7,max=20"`
	Address       string   `json:"address" validate:"required,min=5,max=500"`
	Latitude      *float64 `json:"latitude" validate:"required,latitude"`
	Longitude     *float64 `json:"longitude" validate:"required,longitude"`
	Comment       string   `json:"comment" validate:"max=1000"`

	BonusUsed int64 `json:"bonus_used" validate:"gte=0"`

	SaveAddress  bool   `json:"save_address"`
	AddressLabel string `json:"address_label" validate:"max=60"`
}

// =============================================================================
// DOMAIN ERRORS
// =============================================================================

// Order-specific errors.
var (
	ErrOrderNotFound = &Error{Code: ENOTFOUND, Message: "Order not found"}

	ErrInvalidTransition = &Error{Code: ECONFLICT, Message: "Status transition not allowed"}

	ErrBonusExceedsBalance = &Error{Code: EINVALID, Message: "Bonus amount exceeds available balance"}
)
