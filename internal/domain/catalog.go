package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CATALOG DOMAIN TYPES
// =============================================================================

// Category groups products on the menu (soups, grills, drinks).
type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	ImageURL  *string   `json:"image_url,omitempty"`
	SortOrder int32     `json:"sort_order"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product is a single menu item. Price is in the smallest currency unit.
type Product struct {
	ID          uuid.UUID `json:"id"`
	CategoryID  uuid.UUID `json:"category_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	Price       int64     `json:"price"`
	ImageURL    *string   `json:"image_url,omitempty"`
	IsAvailable bool      `json:"is_available"`
	IsPopular   bool      `json:"is_popular"`
	IsNew       bool      `json:"is_new"`
	SortOrder   int32     `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// =============================================================================
// SERVICE INTERFACE
// =============================================================================

// CatalogService provides read access to the menu.
type CatalogService interface {
	// ListCategories returns active categories in display order.
	ListCategories(ctx context.Context) ([]Category, error)

	// ListProducts returns available products matching the filter,
	// in display order.
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)

	// GetProduct retrieves a product by ID, available or not.
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)

	// GetProductBySlug retrieves a product by its URL slug.
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)

	// GetProductsByIDs resolves a set of product IDs in one round trip.
	// Missing IDs are absent from the result, not an error.
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error)

	// SearchProducts returns available products whose name or
	// description matches the query, case-insensitive.
	SearchProducts(ctx context.Context, query string) ([]Product, error)

	// ListFavorites returns the customer's favorited products.
	ListFavorites(ctx context.Context, customerID uuid.UUID) ([]Product, error)

	// ToggleFavorite flips the favorite mark for a product and reports
	// the new state (true when the product is now favorited).
	ToggleFavorite(ctx context.Context, customerID, productID uuid.UUID) (bool, error)
}

// =============================================================================
// PARAMETER TYPES
// =============================================================================

// ProductFilter contains optional filters for product listing.
// Nil fields mean "no constraint".
type ProductFilter struct {
	CategorySlug *string
	Popular      *bool
	New          *bool
}

// =============================================================================
// DOMAIN ERRORS
// =============================================================================

// Catalog-specific errors.
var (
	ErrCategoryNotFound = &Error{Code: ENOTFOUND, Message: "Category not found"}
	ErrProductNotFound  = &Error{Code: ENOTFOUND, Message: "Product not found"}

	ErrProductUnavailable = &Error{Code: ECONFLICT, Message: "Product is currently unavailable"}
)
