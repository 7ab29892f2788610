package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level observability.
type BusinessMetrics struct {
	// Catalog engagement
	ProductViews    *prometheus.CounterVec
	ProductSearches prometheus.Counter
	FavoriteToggles *prometheus.CounterVec

	// Cart
	CartItemsAdd *prometheus.CounterVec
	CartUpdated  prometheus.Counter
	CartCleared  prometheus.Counter

	// Orders
	OrdersCreated     prometheus.Counter
	OrderValue        prometheus.Histogram
	OrderItemCount    prometheus.Histogram
	StatusTransitions *prometheus.CounterVec
	BonusSpent        prometheus.Counter

	// Notifications
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	BotAPIRequests      *prometheus.CounterVec
	BotAPILatency       *prometheus.HistogramVec

	// Inbound bot traffic
	WebhookReceived *prometheus.CounterVec
	WebhookFailed   prometheus.Counter
}

// NewBusinessMetrics creates and registers all business metrics
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "sofra"
	}

	subsystem := "business"

	m := &BusinessMetrics{
		// =======================================================================
		// Catalog Engagement
		// =======================================================================
		ProductViews: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "product_views_total",
				Help:      "Total product detail views",
			},
			[]string{"product_slug"},
		),
		ProductSearches: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "product_searches_total",
				Help:      "Total catalog searches",
			},
		),
		FavoriteToggles: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "favorite_toggles_total",
				Help:      "Total favorite toggles",
			},
			[]string{"action"}, // action: added, removed
		),

		// =======================================================================
		// Cart
		// =======================================================================
		CartItemsAdd: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items_add_total",
				Help:      "Total add to cart actions",
			},
			[]string{"product_slug"},
		),
		CartUpdated: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_updated_total",
				Help:      "Total cart line updates and removals",
			},
		),
		CartCleared: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_cleared_total",
				Help:      "Total explicit cart clears",
			},
		),

		// =======================================================================
		// Orders
		// =======================================================================
		OrdersCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_created_total",
				Help:      "Total orders created",
			},
		),
		OrderValue: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value",
				Help:      "Order total distribution in the smallest currency unit",
				Buckets:   []float64{25000, 50000, 75000, 100000, 150000, 250000, 500000, 1000000},
			},
		),
		OrderItemCount: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_item_count",
				Help:      "Number of line items per order",
				Buckets:   []float64{1, 2, 3, 5, 8, 12, 20},
			},
		),
		StatusTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_status_transitions_total",
				Help:      "Total order status transitions",
			},
			[]string{"from", "to"},
		),
		BonusSpent: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bonus_spent_total",
				Help:      "Total bonus amount debited at checkout",
			},
		),

		// =======================================================================
		// Notifications
		// =======================================================================
		NotificationsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notifications_sent_total",
				Help:      "Total chat notifications sent",
			},
			[]string{"kind"}, // kind: staff, customer
		),
		NotificationsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notifications_failed_total",
				Help:      "Total chat notifications that failed to send",
			},
			[]string{"kind"},
		),
		BotAPIRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bot_api_requests_total",
				Help:      "Total Bot API calls by method and outcome",
			},
			[]string{"method", "outcome"}, // outcome: ok, api_error, transport_error
		),
		BotAPILatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bot_api_latency_seconds",
				Help:      "Bot API call latency",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),

		// =======================================================================
		// Inbound bot traffic
		// =======================================================================
		WebhookReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bot_updates_received_total",
				Help:      "Total inbound bot updates by kind",
			},
			[]string{"kind"}, // kind: callback_query, message, other
		),
		WebhookFailed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bot_updates_failed_total",
				Help:      "Total inbound bot updates that could not be processed",
			},
		),
	}

	return m
}
