package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CUSTOMER DOMAIN TYPES
// =============================================================================

// Customer is keyed by normalized phone number. TelegramChatID is set
// once the customer links their chat through the bot.
type Customer struct {
	ID             uuid.UUID `json:"id"`
	Phone          string    `json:"phone"`
	Name           *string   `json:"name,omitempty"`
	TelegramChatID *int64    `json:"-"`
	BonusBalance   int64     `json:"bonus_balance"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SavedAddress is a delivery address remembered for reuse at checkout.
// At most one address per customer is the default.
type SavedAddress struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Label      string    `json:"label"`
	Address    string    `json:"address"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

// NormalizePhone reduces a phone number to bare digits, dropping
// spaces, punctuation, and a leading plus. Returns EINVALID when the
// result is not 10 to 15 digits long.
func NormalizePhone(raw string) (string, error) {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		case c == '+' || c == ' ' || c == '-' || c == '(' || c == ')':
			// separators and the leading plus are ignored
		default:
			return "", Errorf(EINVALID, "customer.normalize_phone", "phone contains invalid character %q", string(c))
		}
	}

	if len(digits) < 10 || len(digits) > 15 {
		return "", Invalid("customer.normalize_phone", "phone must contain 10 to 15 digits")
	}

	return string(digits), nil
}

// =============================================================================
// SERVICE INTERFACE
// =============================================================================

// CustomerService manages phone-keyed customer accounts, chat linking,
// and saved addresses.
type CustomerService interface {
	// FindOrCreateByPhone normalizes the phone and returns the
	// matching customer, creating one on first contact. A non-empty
	// name updates the stored name.
	FindOrCreateByPhone(ctx context.Context, phone, name string) (*Customer, error)

	// GetByID retrieves a customer.
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// GetByTelegramChat retrieves the customer linked to a chat.
	GetByTelegramChat(ctx context.Context, chatID int64) (*Customer, error)

	// LinkTelegramChat binds a chat to the customer so status updates
	// reach them. Re-linking moves the chat to the new customer.
	LinkTelegramChat(ctx context.Context, customerID uuid.UUID, chatID int64) error

	// ListAddresses returns the customer's saved addresses, default
	// first.
	ListAddresses(ctx context.Context, customerID uuid.UUID) ([]SavedAddress, error)

	// SaveAddress stores an address. Setting IsDefault clears the flag
	// on the customer's other addresses.
	SaveAddress(ctx context.Context, addr SavedAddress) (*SavedAddress, error)

	// DeleteAddress removes a saved address.
	DeleteAddress(ctx context.Context, customerID, addressID uuid.UUID) error
}

// =============================================================================
// DOMAIN ERRORS
// =============================================================================

// Customer-specific errors.
var (
	ErrCustomerNotFound = &Error{Code: ENOTFOUND, Message: "Customer not found"}
	ErrAddressNotFound  = &Error{Code: ENOTFOUND, Message: "Address not found"}
	ErrChatNotLinked    = &Error{Code: ENOTFOUND, Message: "No customer linked to this chat"}
)
