package storefront

import (
	"net/http"
	"strconv"

	"github.com/bekmuradov/sofra/internal/cookie"
	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/bekmuradov/sofra/internal/handler"
	"github.com/google/uuid"
)

const defaultOrderHistoryLimit = 20

// OrderHandler serves order detail, status polling, history, and
// reorder.
type OrderHandler struct {
	orders  domain.OrderService
	cookies *cookie.Config
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orders domain.OrderService, cookies *cookie.Config) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		cookies: cookies,
	}
}

// Get handles GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handler.BadRequestResponse(w, r, "Invalid order id")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, order)
}

// Status handles GET /api/orders/{id}/status. The tracking page polls
// this, so the payload stays minimal.
func (h *OrderHandler) Status(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handler.BadRequestResponse(w, r, "Invalid order id")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, map[string]interface{}{
		"status":         order.Status,
		"status_display": order.Status.Display(),
		"updated_at":     order.UpdatedAt,
	})
}

// Repeat handles POST /api/orders/{id}/repeat
func (h *OrderHandler) Repeat(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handler.BadRequestResponse(w, r, "Invalid order id")
		return
	}

	token, err := EnsureSessionToken(w, r, h.cookies)
	if err != nil {
		handler.InternalErrorResponse(w, r, err)
		return
	}

	summary, added, err := h.orders.Repeat(r.Context(), orderID, token)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, map[string]interface{}{
		"items_added": added,
		"cart":        summary,
	})
}

// ListByPhone handles GET /api/orders?phone=
func (h *OrderHandler) ListByPhone(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		handler.BadRequestResponse(w, r, "Phone number is required")
		return
	}

	limit := defaultOrderHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	orders, err := h.orders.ListOrdersByPhone(r.Context(), phone, int32(limit))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, map[string]interface{}{
		"orders": orders,
	})
}
