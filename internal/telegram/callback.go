package telegram

import (
	"fmt"
	"strings"

	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/google/uuid"
)

// callbackPrefix marks status-change buttons. The full token is
// "order_<uuid>_<status>", 53 bytes at most, safely inside Telegram's
// 64-byte callback data limit.
const callbackPrefix = "order_"

// CallbackToken encodes a status-change action for an inline button.
func CallbackToken(orderID uuid.UUID, next domain.OrderStatus) string {
	return fmt.Sprintf("%s%s_%s", callbackPrefix, orderID, next)
}

// ParseCallbackToken decodes a button press back into an order ID and
// target status. The status is validated against the known set; the
// transition itself is checked later against the order's current
// status.
func ParseCallbackToken(data string) (uuid.UUID, domain.OrderStatus, error) {
	rest, found := strings.CutPrefix(data, callbackPrefix)
	if !found {
		return uuid.Nil, "", domain.Invalid("telegram.parse_callback", "unrecognized callback data")
	}

	// The UUID contains no underscores, so the first one separates it
	// from the status.
	id, status, found := strings.Cut(rest, "_")
	if !found {
		return uuid.Nil, "", domain.Invalid("telegram.parse_callback", "malformed callback data")
	}

	orderID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, "", domain.Invalid("telegram.parse_callback", "malformed order id in callback data")
	}

	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return uuid.Nil, "", err
	}

	return orderID, next, nil
}
