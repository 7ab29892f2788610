package storefront

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/bekmuradov/sofra/internal/cookie"
	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/bekmuradov/sofra/internal/handler"
	"github.com/google/uuid"
)

// CartHandler handles all cart-related storefront routes.
type CartHandler struct {
	carts   domain.CartService
	cookies *cookie.Config
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(carts domain.CartService, cookies *cookie.Config) *CartHandler {
	return &CartHandler{
		carts:   carts,
		cookies: cookies,
	}
}

type addItemRequest struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  lenientQuantity `json:"quantity"`
	Override  bool            `json:"override"`
}

type updateItemRequest struct {
	Quantity lenientQuantity `json:"quantity"`
}

// lenientQuantity accepts a JSON number or a numeric string. Anything
// else decodes to zero, which the clamp then treats as a single unit.
type lenientQuantity int

func (q *lenientQuantity) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	n, err := strconv.Atoi(s)
	if err != nil {
		*q = 0
		return nil
	}
	*q = lenientQuantity(n)
	return nil
}

// Summary handles GET /api/cart
func (h *CartHandler) Summary(w http.ResponseWriter, r *http.Request) {
	token := GetSessionToken(r)
	if token == "" {
		handler.JSON(w, r, http.StatusOK, emptySummary())
		return
	}

	summary, err := h.carts.Summary(r.Context(), token)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, summary)
}

// Add handles POST /api/cart/items
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.BadRequestResponse(w, r, "Invalid request body")
		return
	}
	if req.ProductID == uuid.Nil {
		handler.BadRequestResponse(w, r, "product_id is required")
		return
	}

	token, err := EnsureSessionToken(w, r, h.cookies)
	if err != nil {
		handler.InternalErrorResponse(w, r, err)
		return
	}

	summary, err := h.carts.AddItem(r.Context(), token, req.ProductID, clampQuantity(int(req.Quantity)), req.Override)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, summary)
}

// Update handles PUT /api/cart/items/{productID}
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(r.PathValue("productID"))
	if err != nil {
		handler.BadRequestResponse(w, r, "Invalid product id")
		return
	}

	var req updateItemRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.BadRequestResponse(w, r, "Invalid request body")
		return
	}

	token := GetSessionToken(r)
	if token == "" {
		handler.ErrorResponse(w, r, domain.ErrCartItemNotFound)
		return
	}

	summary, err := h.carts.UpdateItem(r.Context(), token, productID, int(req.Quantity))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, summary)
}

// Remove handles DELETE /api/cart/items/{productID}
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(r.PathValue("productID"))
	if err != nil {
		handler.BadRequestResponse(w, r, "Invalid product id")
		return
	}

	token := GetSessionToken(r)
	if token == "" {
		handler.JSON(w, r, http.StatusOK, emptySummary())
		return
	}

	summary, err := h.carts.RemoveItem(r.Context(), token, productID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, summary)
}

// Clear handles POST /api/cart/clear
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	token := GetSessionToken(r)
	if token != "" {
		if err := h.carts.ClearCart(r.Context(), token); err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
	}

	handler.JSON(w, r, http.StatusOK, emptySummary())
}

// Count handles GET /api/cart/count
func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	token := GetSessionToken(r)
	if token == "" {
		handler.JSON(w, r, http.StatusOK, map[string]int{"count": 0})
		return
	}

	summary, err := h.carts.Summary(r.Context(), token)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, map[string]int{"count": summary.ItemCount})
}

// clampQuantity forces an add quantity into the allowed line range.
// Missing or nonsense input becomes a single unit rather than an
// error.
func clampQuantity(q int) int {
	if q < domain.MinLineQuantity {
		return domain.MinLineQuantity
	}
	if q > domain.MaxLineQuantity {
		return domain.MaxLineQuantity
	}
	return q
}

// emptySummary is what visitors without a session see. No session row
// is created just to report an empty cart.
func emptySummary() *domain.CartSummary {
	return &domain.CartSummary{Items: []domain.CartItem{}}
}
