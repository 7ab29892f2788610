package storefront

import (
	"net/http"
	"strings"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/bekmuradov/sofra/internal/handler"
	"github.com/bekmuradov/sofra/internal/telemetry"
)

// CatalogHandler serves the public menu: categories, products,
// search.
type CatalogHandler struct {
	catalog domain.CatalogService
	metrics *telemetry.BusinessMetrics
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalog domain.CatalogService, metrics *telemetry.BusinessMetrics) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		metrics: metrics,
	}
}

// Categories handles GET /api/categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, map[string]interface{}{
		"categories": categories,
	})
}

// Products handles GET /api/products with optional category, popular,
// and new filters.
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter domain.ProductFilter
	if category := strings.TrimSpace(q.Get("category")); category != "" {
		filter.CategorySlug = &category
	}
	if q.Get("popular") == "1" {
		popular := true
		filter.Popular = &popular
	}
	if q.Get("new") == "1" {
		isNew := true
		filter.New = &isNew
	}

	products, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, map[string]interface{}{
		"products": products,
	})
}

// ProductBySlug handles GET /api/products/{slug}
func (h *CatalogHandler) ProductBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	product, err := h.catalog.GetProductBySlug(r.Context(), slug)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.metrics.ProductViews.WithLabelValues(product.Slug).Inc()

	handler.JSON(w, r, http.StatusOK, product)
}

// Search handles GET /api/search?q=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		handler.BadRequestResponse(w, r, "Search query is required")
		return
	}

	products, err := h.catalog.SearchProducts(r.Context(), query)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.metrics.ProductSearches.Inc()

	handler.JSON(w, r, http.StatusOK, map[string]interface{}{
		"query":    query,
		"products": products,
	})
}
