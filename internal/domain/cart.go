package domain

import (
	"context"

	"github.com/google/uuid"
)

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

var (
	ErrCartEmpty        = &Error{Code: EINVALID, Message: "Cart is empty"}
	ErrCartItemNotFound = &Error{Code: ENOTFOUND, Message: "Cart item not found"}
	ErrSessionNotFound  = &Error{Code: ENOTFOUND, Message: "Session not found"}
	ErrInvalidQuantity  = &Error{Code: EINVALID, Message: "Quantity must be between 1 and 99"}
)

// Quantity bounds for a single cart line.
const (
	MinLineQuantity = 1
	MaxLineQuantity = 99
)

// =============================================================================
// CART VALUE OBJECT
// =============================================================================

// CartLine is one product entry in a cart. UnitPrice is the price
// captured when the line was added; it is never re-read from the
// catalog unless the line is explicitly overridden.
type CartLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unit_price"`
}

// Cart is the session-scoped shopping cart. It is a plain value stored
// as JSON in the session row; it knows nothing about product
// availability. Totals are computed by CartSummary after lines are
// resolved against the catalog.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// Add inserts a line or merges into an existing one. When override is
// false the quantity is added to any existing line; when true it
// replaces the quantity and refreshes the price snapshot. A resulting
// quantity of zero or less deletes the line. Quantities above
// MaxLineQuantity are capped.
func (c *Cart) Add(productID uuid.UUID, unitPrice int64, quantity int, override bool) {
	for i, line := range c.Lines {
		if line.ProductID != productID {
			continue
		}
		q := quantity
		if !override {
			q = line.Quantity + quantity
		}
		if q <= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
		if q > MaxLineQuantity {
			q = MaxLineQuantity
		}
		c.Lines[i].Quantity = q
		if override {
			c.Lines[i].UnitPrice = unitPrice
		}
		return
	}

	if quantity <= 0 {
		return
	}
	if quantity > MaxLineQuantity {
		quantity = MaxLineQuantity
	}

	c.Lines = append(c.Lines, CartLine{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	})
}

// Remove deletes the line for a product. Returns false if no such
// line exists.
func (c *Cart) Remove(productID uuid.UUID) bool {
	for i, line := range c.Lines {
		if line.ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes all lines.
func (c *Cart) Clear() {
	c.Lines = nil
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Line returns the line for a product, if present.
func (c *Cart) Line(productID uuid.UUID) (CartLine, bool) {
	for _, line := range c.Lines {
		if line.ProductID == productID {
			return line, true
		}
	}
	return CartLine{}, false
}

// =============================================================================
// RESOLVED CART (lines joined against the catalog)
// =============================================================================

// CartItem is a cart line resolved against the current catalog.
type CartItem struct {
	Product   Product `json:"product"`
	Quantity  int     `json:"quantity"`
	UnitPrice int64   `json:"unit_price"`
	LineTotal int64   `json:"line_total"`
}

// CartSummary is the cart as presented to the customer: only lines
// whose product still exists and is available, with totals.
type CartSummary struct {
	Items      []CartItem `json:"items"`
	ItemCount  int        `json:"item_count"`
	TotalPrice int64      `json:"total_price"`
}

// ToOrderItems converts the resolved cart into order line snapshots.
// Product names and unit prices are frozen at this point.
func (s *CartSummary) ToOrderItems() []OrderItem {
	items := make([]OrderItem, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, OrderItem{
			ProductID:   it.Product.ID,
			ProductName: it.Product.Name,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			LineTotal:   it.LineTotal,
		})
	}
	return items
}

// =============================================================================
// SERVICE INTERFACE
// =============================================================================

// CartService provides business logic for shopping cart operations.
// All operations are keyed by the opaque session token from the
// storefront cookie.
type CartService interface {
	// AddItem adds a product to the cart, then returns the updated
	// summary. When override is false the quantity merges into any
	// existing line; when true it replaces the quantity and refreshes
	// the price snapshot.
	AddItem(ctx context.Context, sessionToken string, productID uuid.UUID, quantity int, override bool) (*CartSummary, error)

	// UpdateItem sets the quantity of an existing line.
	UpdateItem(ctx context.Context, sessionToken string, productID uuid.UUID, quantity int) (*CartSummary, error)

	// RemoveItem deletes a line from the cart.
	RemoveItem(ctx context.Context, sessionToken string, productID uuid.UUID) (*CartSummary, error)

	// ClearCart removes all lines.
	ClearCart(ctx context.Context, sessionToken string) error

	// Summary resolves the cart against the catalog and returns items
	// with totals. Lines whose product vanished or became unavailable
	// are dropped and the stored cart is pruned to match.
	Summary(ctx context.Context, sessionToken string) (*CartSummary, error)
}
