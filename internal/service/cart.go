package service

import (
	"context"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/bekmuradov/sofra/internal/telemetry"
	"github.com/google/uuid"
)

// CartStore loads and saves session carts keyed by the opaque token.
type CartStore interface {
	LoadCart(ctx context.Context, token string) (domain.Cart, error)
	SaveCart(ctx context.Context, token string, cart domain.Cart) error
	DeleteCart(ctx context.Context, token string) error
}

// ProductResolver is the catalog subset the cart needs: live lookups
// for price snapshots and availability checks.
type ProductResolver interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error)
}

type cartService struct {
	store   CartStore
	catalog ProductResolver
	metrics *telemetry.BusinessMetrics
}

// NewCartService creates a new CartService instance
func NewCartService(store CartStore, catalog ProductResolver, metrics *telemetry.BusinessMetrics) domain.CartService {
	return &cartService{
		store:   store,
		catalog: catalog,
		metrics: metrics,
	}
}

// AddItem adds a product to the cart. The product must exist and be
// available. Without override the quantity merges into any existing
// line, which keeps its price snapshot; with override the quantity is
// replaced and the snapshot refreshed.
func (s *cartService) AddItem(ctx context.Context, sessionToken string, productID uuid.UUID, quantity int, override bool) (*domain.CartSummary, error) {
	if quantity < domain.MinLineQuantity || quantity > domain.MaxLineQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsAvailable {
		return nil, domain.ErrProductUnavailable
	}

	cart, err := s.store.LoadCart(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	cart.Add(productID, product.Price, quantity, override)

	summary, err := s.resolve(ctx, &cart)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveCart(ctx, sessionToken, cart); err != nil {
		return nil, err
	}

	s.metrics.CartItemsAdd.WithLabelValues(product.Slug).Inc()

	return summary, nil
}

// UpdateItem sets the quantity of an existing line, refreshing its
// price snapshot to the current catalog price. Quantity zero removes
// the line.
func (s *cartService) UpdateItem(ctx context.Context, sessionToken string, productID uuid.UUID, quantity int) (*domain.CartSummary, error) {
	if quantity == 0 {
		return s.RemoveItem(ctx, sessionToken, productID)
	}
	if quantity < 0 || quantity > domain.MaxLineQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	cart, err := s.store.LoadCart(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if _, ok := cart.Line(productID); !ok {
		return nil, domain.ErrCartItemNotFound
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsAvailable {
		return nil, domain.ErrProductUnavailable
	}

	cart.Add(productID, product.Price, quantity, true)

	summary, err := s.resolve(ctx, &cart)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveCart(ctx, sessionToken, cart); err != nil {
		return nil, err
	}

	s.metrics.CartUpdated.Inc()

	return summary, nil
}

// RemoveItem deletes a line. Removing a line that is not there is a
// no-op, not an error.
func (s *cartService) RemoveItem(ctx context.Context, sessionToken string, productID uuid.UUID) (*domain.CartSummary, error) {
	cart, err := s.store.LoadCart(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	cart.Remove(productID)

	summary, err := s.resolve(ctx, &cart)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveCart(ctx, sessionToken, cart); err != nil {
		return nil, err
	}

	s.metrics.CartUpdated.Inc()

	return summary, nil
}

// ClearCart drops the whole cart from the session.
func (s *cartService) ClearCart(ctx context.Context, sessionToken string) error {
	if err := s.store.DeleteCart(ctx, sessionToken); err != nil {
		return err
	}

	s.metrics.CartCleared.Inc()

	return nil
}

// Summary resolves the cart against the catalog. Lines whose product
// vanished or became unavailable are dropped from the summary and
// pruned from the stored cart so counts and totals always agree.
func (s *cartService) Summary(ctx context.Context, sessionToken string) (*domain.CartSummary, error) {
	cart, err := s.store.LoadCart(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	before := len(cart.Lines)
	summary, err := s.resolve(ctx, &cart)
	if err != nil {
		return nil, err
	}

	if len(cart.Lines) != before {
		if err := s.store.SaveCart(ctx, sessionToken, cart); err != nil {
			return nil, err
		}
	}

	return summary, nil
}

// resolve joins cart lines against the catalog, pruning lines whose
// product no longer resolves or is unavailable. Totals use the stored
// price snapshots, never the live price.
func (s *cartService) resolve(ctx context.Context, cart *domain.Cart) (*domain.CartSummary, error) {
	summary := &domain.CartSummary{Items: []domain.CartItem{}}
	if cart.IsEmpty() {
		return summary, nil
	}

	ids := make([]uuid.UUID, len(cart.Lines))
	for i, line := range cart.Lines {
		ids[i] = line.ProductID
	}

	products, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	kept := cart.Lines[:0]
	for _, line := range cart.Lines {
		product, ok := products[line.ProductID]
		if !ok || !product.IsAvailable {
			continue
		}
		kept = append(kept, line)

		lineTotal := line.UnitPrice * int64(line.Quantity)
		summary.Items = append(summary.Items, domain.CartItem{
			Product:   product,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: lineTotal,
		})
		summary.ItemCount += line.Quantity
		summary.TotalPrice += lineTotal
	}
	cart.Lines = kept

	return summary, nil
}
