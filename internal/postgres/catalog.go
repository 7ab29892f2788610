package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogService implements domain.CatalogService using PostgreSQL.
type CatalogService struct {
	pool *pgxpool.Pool
}

// Compile-time check that CatalogService implements domain.CatalogService.
var _ domain.CatalogService = (*CatalogService)(nil)

// NewCatalogService creates a new PostgreSQL-backed catalog service.
func NewCatalogService(pool *pgxpool.Pool) *CatalogService {
	return &CatalogService{
		pool: pool,
	}
}

const productColumns = `id, category_id, name, slug, description, price, image_url,
	is_available, is_popular, is_new, sort_order, created_at, updated_at`

// =============================================================================
// CATEGORIES
// =============================================================================

// ListCategories returns active categories in display order.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, slug, image_url, sort_order, is_active, created_at, updated_at
		FROM categories
		WHERE is_active
		ORDER BY sort_order, name`)
	if err != nil {
		return nil, domain.Internal(err, "catalog.list_categories", "failed to list categories")
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.ImageURL, &c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, domain.Internal(err, "catalog.list_categories", "failed to scan category")
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "catalog.list_categories", "failed to read categories")
	}

	return categories, nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

// ListProducts returns available products matching the filter.
func (s *CatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	var (
		conds = []string{"p.is_available"}
		args  []any
	)

	if filter.CategorySlug != nil {
		args = append(args, *filter.CategorySlug)
		conds = append(conds, fmt.Sprintf("c.slug = $%d", len(args)))
	}
	if filter.Popular != nil {
		args = append(args, *filter.Popular)
		conds = append(conds, fmt.Sprintf("p.is_popular = $%d", len(args)))
	}
	if filter.New != nil {
		args = append(args, *filter.New)
		conds = append(conds, fmt.Sprintf("p.is_new = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.category_id, p.name, p.slug, p.description, p.price, p.image_url,
			p.is_available, p.is_popular, p.is_new, p.sort_order, p.created_at, p.updated_at
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE %s
		ORDER BY p.sort_order, p.name`, strings.Join(conds, " AND "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.Internal(err, "catalog.list_products", "failed to list products")
	}
	defer rows.Close()

	return scanProducts(rows, "catalog.list_products")
}

// GetProduct retrieves a product by ID, available or not.
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, domain.Internal(err, "catalog.get_product", "failed to get product")
	}

	return p, nil
}

// GetProductBySlug retrieves a product by its URL slug.
func (s *CatalogService) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, domain.Internal(err, "catalog.get_product_by_slug", "failed to get product")
	}

	return p, nil
}

// GetProductsByIDs resolves a set of product IDs in one round trip.
// Missing IDs are absent from the result.
func (s *CatalogService) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error) {
	result := make(map[uuid.UUID]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, domain.Internal(err, "catalog.get_products_by_ids", "failed to get products")
	}
	defer rows.Close()

	products, err := scanProducts(rows, "catalog.get_products_by_ids")
	if err != nil {
		return nil, err
	}

	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

// SearchProducts returns available products whose name or description
// matches the query, case-insensitive.
func (s *CatalogService) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE is_available
		  AND (name ILIKE $1 OR description ILIKE $1)
		ORDER BY sort_order, name`, pattern)
	if err != nil {
		return nil, domain.Internal(err, "catalog.search_products", "failed to search products")
	}
	defer rows.Close()

	return scanProducts(rows, "catalog.search_products")
}

// =============================================================================
// FAVORITES
// =============================================================================

// ListFavorites returns the customer's favorited products.
func (s *CatalogService) ListFavorites(ctx context.Context, customerID uuid.UUID) ([]domain.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.category_id, p.name, p.slug, p.description, p.price, p.image_url,
			p.is_available, p.is_popular, p.is_new, p.sort_order, p.created_at, p.updated_at
		FROM favorites f
		JOIN products p ON p.id = f.product_id
		WHERE f.customer_id = $1
		ORDER BY f.created_at DESC`, customerID)
	if err != nil {
		return nil, domain.Internal(err, "catalog.list_favorites", "failed to list favorites")
	}
	defer rows.Close()

	return scanProducts(rows, "catalog.list_favorites")
}

// ToggleFavorite flips the favorite mark for a product and reports the
// new state.
func (s *CatalogService) ToggleFavorite(ctx context.Context, customerID, productID uuid.UUID) (bool, error) {
	// The product must exist; favorites carry an FK but we want a
	// clean not-found instead of a constraint violation.
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	if err != nil {
		return false, domain.Internal(err, "catalog.toggle_favorite", "failed to check product")
	}
	if !exists {
		return false, domain.ErrProductNotFound
	}

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM favorites WHERE customer_id = $1 AND product_id = $2`, customerID, productID)
	if err != nil {
		return false, domain.Internal(err, "catalog.toggle_favorite", "failed to remove favorite")
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO favorites (customer_id, product_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, customerID, productID)
	if err != nil {
		return false, domain.Internal(err, "catalog.toggle_favorite", "failed to add favorite")
	}

	return true, nil
}

// =============================================================================
// ROW MAPPING
// =============================================================================

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.ImageURL,
		&p.IsAvailable, &p.IsPopular, &p.IsNew, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProducts(rows pgx.Rows, op string) ([]domain.Product, error) {
	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan product")
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, op, "failed to read products")
	}
	return products, nil
}

// escapeLike escapes LIKE wildcards in user-supplied search text.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
