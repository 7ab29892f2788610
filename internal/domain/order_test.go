package domain

import (
	"testing"

	"github.com/google/uuid"
)

var allOrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusConfirmed,
	OrderStatusCooking,
	OrderStatusDelivering,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	allowed := map[OrderStatus]map[OrderStatus]bool{
		OrderStatusNew:        {OrderStatusConfirmed: true, OrderStatusCancelled: true},
		OrderStatusConfirmed:  {OrderStatusCooking: true, OrderStatusCancelled: true},
		OrderStatusCooking:    {OrderStatusDelivering: true, OrderStatusCancelled: true},
		OrderStatusDelivering: {OrderStatusDelivered: true, OrderStatusCancelled: true},
		OrderStatusDelivered:  {},
		OrderStatusCancelled:  {},
	}

	// Check every (from, to) pair, including self-transitions.
	for _, from := range allOrderStatuses {
		for _, to := range allOrderStatuses {
			want := allowed[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   OrderStatus
		terminal bool
	}{
		{OrderStatusNew, false},
		{OrderStatusConfirmed, false},
		{OrderStatusCooking, false},
		{OrderStatusDelivering, false},
		{OrderStatusDelivered, true},
		{OrderStatusCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("Terminal(%s) = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestOrderStatus_NextStatuses(t *testing.T) {
	t.Run("non-terminal statuses offer exactly two options", func(t *testing.T) {
		for _, s := range allOrderStatuses {
			if s.Terminal() {
				continue
			}
			next := s.NextStatuses()
			if len(next) != 2 {
				t.Errorf("NextStatuses(%s) returned %d options, want 2", s, len(next))
			}
			// Cancel is always the last option offered.
			if next[len(next)-1] != OrderStatusCancelled {
				t.Errorf("NextStatuses(%s) last option = %s, want %s", s, next[len(next)-1], OrderStatusCancelled)
			}
		}
	})

	t.Run("terminal statuses offer nothing", func(t *testing.T) {
		for _, s := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled} {
			if next := s.NextStatuses(); len(next) != 0 {
				t.Errorf("NextStatuses(%s) = %v, want empty", s, next)
			}
		}
	})

	t.Run("every offered status is a valid transition", func(t *testing.T) {
		for _, s := range allOrderStatuses {
			for _, next := range s.NextStatuses() {
				if !s.CanTransitionTo(next) {
					t.Errorf("NextStatuses(%s) offers %s but CanTransitionTo rejects it", s, next)
				}
			}
		}
	})
}

func TestOrderStatus_Valid(t *testing.T) {
	for _, s := range allOrderStatuses {
		if !s.Valid() {
			t.Errorf("Valid(%s) = false, want true", s)
		}
	}

	for _, raw := range []string{"", "pending", "NEW", "shipped"} {
		if OrderStatus(raw).Valid() {
			t.Errorf("Valid(%q) = true, want false", raw)
		}
	}
}

func TestOrderStatus_Display(t *testing.T) {
	tests := []struct {
		status OrderStatus
		want   string
	}{
		{OrderStatusNew, "New"},
		{OrderStatusConfirmed, "Confirmed"},
		{OrderStatusCooking, "Cooking"},
		{OrderStatusDelivering, "Delivering"},
		{OrderStatusDelivered, "Delivered"},
		{OrderStatusCancelled, "Cancelled"},
	}

	for _, tt := range tests {
		if got := tt.status.Display(); got != tt.want {
			t.Errorf("Display(%s) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	t.Run("accepts known statuses", func(t *testing.T) {
		for _, s := range allOrderStatuses {
			got, err := ParseOrderStatus(string(s))
			if err != nil {
				t.Errorf("ParseOrderStatus(%q) returned error: %v", s, err)
			}
			if got != s {
				t.Errorf("ParseOrderStatus(%q) = %q", s, got)
			}
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := ParseOrderStatus("shipped")
		if err == nil {
			t.Fatal("expected error for unknown status")
		}
		if !IsCode(err, EINVALID) {
			t.Errorf("expected EINVALID, got %q", ErrorCode(err))
		}
	})
}

func TestOrder_RecomputeTotals(t *testing.T) {
	t.Run("sums line totals plus delivery minus bonus", func(t *testing.T) {
		order := Order{
			DeliveryFee: 1000,
			BonusUsed:   500,
			Items: []OrderItem{
				{ProductID: uuid.New(), UnitPrice: 1500, Quantity: 2, LineTotal: 3000},
				{ProductID: uuid.New(), UnitPrice: 2200, Quantity: 1, LineTotal: 2200},
			},
		}

		order.RecomputeTotals()

		if order.Subtotal != 5200 {
			t.Errorf("Subtotal = %d, want 5200", order.Subtotal)
		}
		if order.Total != 5700 {
			t.Errorf("Total = %d, want 5700", order.Total)
		}
	})

	t.Run("empty order totals to delivery fee minus bonus", func(t *testing.T) {
		order := Order{DeliveryFee: 1000}
		order.RecomputeTotals()

		if order.Subtotal != 0 {
			t.Errorf("Subtotal = %d, want 0", order.Subtotal)
		}
		if order.Total != 1000 {
			t.Errorf("Total = %d, want 1000", order.Total)
		}
	})

	t.Run("recompute is stable when called twice", func(t *testing.T) {
		order := Order{
			DeliveryFee: 1000,
			Items: []OrderItem{
				{UnitPrice: 900, Quantity: 3, LineTotal: 2700},
			},
		}

		order.RecomputeTotals()
		first := order.Total
		order.RecomputeTotals()

		if order.Total != first {
			t.Errorf("Total changed on second recompute: %d != %d", order.Total, first)
		}
	})
}
