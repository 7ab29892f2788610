package storefront

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/bekmuradov/sofra/internal/handler"
	"github.com/go-playground/validator/v10"
)

// CheckoutHandler turns the session cart into an order.
type CheckoutHandler struct {
	orders   domain.OrderService
	validate *validator.Validate
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(orders domain.OrderService) *CheckoutHandler {
	return &CheckoutHandler{
		orders:   orders,
		validate: newCheckoutValidator(),
	}
}

// Checkout handles POST /api/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.BadRequestResponse(w, r, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			handler.InternalErrorResponse(w, r, err)
			return
		}
		var verr error
		for _, fe := range fieldErrs {
			verr = domain.AddFieldError(verr, fe.Field(), fieldMessage(fe))
		}
		handler.ValidationErrorResponse(w, r, verr)
		return
	}

	req.SessionToken = GetSessionToken(r)

	order, err := h.orders.Checkout(r.Context(), req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, r, http.StatusCreated, order)
}

// newCheckoutValidator reports field errors under their json names so
// the frontend can match them to form inputs.
func newCheckoutValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Must be at least " + fe.Param() + " characters"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	case "latitude", "longitude":
		return "Must be a valid coordinate"
	case "gte":
		return "Cannot be negative"
	default:
		return "Invalid value"
	}
}
