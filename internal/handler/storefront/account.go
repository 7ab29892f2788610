package storefront

import (
	"context"
	"net/http"
	"strings"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/bekmuradov/sofra/internal/handler"
	"github.com/bekmuradov/sofra/internal/telemetry"
	"github.com/google/uuid"
)

// ChatLinker builds the deep link that binds a bot chat to a customer
// account.
type ChatLinker interface {
	LinkURL(ctx context.Context, customerID uuid.UUID) (string, error)
}

// AccountHandler serves customer-scoped routes: favorites, saved
// addresses, and bot linking.
type AccountHandler struct {
	customers domain.CustomerService
	catalog   domain.CatalogService
	linker    ChatLinker
	metrics   *telemetry.BusinessMetrics
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(customers domain.CustomerService, catalog domain.CatalogService, linker ChatLinker, metrics *telemetry.BusinessMetrics) *AccountHandler {
	return &AccountHandler{
		customers: customers,
		catalog:   catalog,
		linker:    linker,
		metrics:   metrics,
	}
}

type toggleFavoriteRequest struct {
	CustomerID uuid.UUID `json:"customer_id"`
	ProductID  uuid.UUID `json:"product_id"`
}

type saveAddressRequest struct {
	Label     string   `json:"label"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	IsDefault bool     `json:"is_default"`
}

// Favorites handles GET /api/customers/{id}/favorites
func (h *AccountHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handler.BadRequestResponse(w, r, "Invalid customer id")
		return
	}

	products, err := h.catalog.ListFavorites(r.Context(), customerID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, map[string]interface{}{
		"products": products,
	})
}

// ToggleFavorite handles POST /api/favorites/toggle
func (h *AccountHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var req toggleFavoriteRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.BadRequestResponse(w, r, "Invalid request body")
		return
	}
	if req.CustomerID == uuid.Nil || req.ProductID == uuid.Nil {
		handler.BadRequestResponse(w, r, "customer_id and product_id are required")
		return
	}

	favorited, err := h.catalog.ToggleFavorite(r.Context(), req.CustomerID, req.ProductID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	action := "removed"
	if favorited {
		action = "added"
	}
	h.metrics.FavoriteToggles.WithLabelValues(action).Inc()

	handler.JSON(w, r, http.StatusOK, map[string]bool{"favorited": favorited})
}

// Addresses handles GET /api/customers/{id}/addresses
func (h *AccountHandler) Addresses(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handler.BadRequestResponse(w, r, "Invalid customer id")
		return
	}

	addresses, err := h.customers.ListAddresses(r.Context(), customerID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, map[string]interface{}{
		"addresses": addresses,
	})
}

// SaveAddress handles POST /api/customers/{id}/addresses
func (h *AccountHandler) SaveAddress(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handler.BadRequestResponse(w, r, "Invalid customer id")
		return
	}

	var req saveAddressRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.BadRequestResponse(w, r, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Address) == "" {
		handler.BadRequestResponse(w, r, "Address is required")
		return
	}

	saved, err := h.customers.SaveAddress(r.Context(), domain.SavedAddress{
		CustomerID: customerID,
		Label:      strings.TrimSpace(req.Label),
		Address:    strings.TrimSpace(req.Address),
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusCreated, saved)
}

// DeleteAddress handles DELETE /api/customers/{id}/addresses/{addressID}
func (h *AccountHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handler.BadRequestResponse(w, r, "Invalid customer id")
		return
	}
	addressID, err := uuid.Parse(r.PathValue("addressID"))
	if err != nil {
		handler.BadRequestResponse(w, r, "Invalid address id")
		return
	}

	if err := h.customers.DeleteAddress(r.Context(), customerID, addressID); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusNoContent, nil)
}

// TelegramLink handles GET /api/customers/{id}/telegram-link
func (h *AccountHandler) TelegramLink(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handler.BadRequestResponse(w, r, "Invalid customer id")
		return
	}

	// The customer must exist before we hand out a link for them.
	if _, err := h.customers.GetByID(r.Context(), customerID); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	url, err := h.linker.LinkURL(r.Context(), customerID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusOK, map[string]string{"url": url})
}
