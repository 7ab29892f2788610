package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bekmuradov/sofra/internal"
	"github.com/bekmuradov/sofra/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	testPoolOnce sync.Once
	testPool     *pgxpool.Pool
	testPoolErr  error
)

// testDB connects to TEST_DATABASE_URL with migrations applied, or
// skips the test when no database is configured. The pool is shared
// across the package's tests.
func testDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	testPoolOnce.Do(func() {
		sqlDB, err := sql.Open("pgx", url)
		if err != nil {
			testPoolErr = err
			return
		}
		defer sqlDB.Close()
		if err := internal.RunMigrations(sqlDB); err != nil {
			testPoolErr = err
			return
		}
		testPool, testPoolErr = pgxpool.New(context.Background(), url)
	})
	require.NoError(t, testPoolErr, "test database setup failed")

	return testPool
}

func testStoreLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedCustomer inserts a customer with a unique phone so tests do not
// collide on the phone uniqueness constraint.
func seedCustomer(t *testing.T, pool *pgxpool.Pool, balance int64) *domain.Customer {
	t.Helper()

	phone := fmt.Sprintf("9989%08d", uuid.New().ID()%100000000)
	var c domain.Customer
	err := pool.QueryRow(context.Background(), `
		INSERT INTO customers (phone, name, bonus_balance)
		VALUES ($1, 'Aziz', $2)
		RETURNING id, phone, bonus_balance`, phone, balance).
		Scan(&c.ID, &c.Phone, &c.BonusBalance)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM orders WHERE customer_id = $1`, c.ID)
		pool.Exec(context.Background(), `DELETE FROM customers WHERE id = $1`, c.ID)
	})
	return &c
}

// seedCartSession stores a one-line cart under a fresh session token.
func seedCartSession(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	token := "test-" + uuid.NewString()
	sessions := NewSessionStore(pool, testStoreLogger())
	err := sessions.SaveCart(context.Background(), token, domain.Cart{
		Lines: []domain.CartLine{{ProductID: uuid.New(), Quantity: 2, UnitPrice: 1500}},
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		sessions.DeleteCart(context.Background(), token)
	})
	return token
}

func makeStoreOrder(customer *domain.Customer) *domain.Order {
	order := &domain.Order{
		CustomerID:    customer.ID,
		CustomerName:  "Aziz",
		CustomerPhone: customer.Phone,
		Address:       "Amir Temur 42, apt 7",
		Latitude:      41.32,
		Longitude:     69.25,
		Status:        domain.OrderStatusNew,
		DeliveryFee:   10000,
		Items: []domain.OrderItem{
			{ProductID: uuid.New(), ProductName: "Lagman", UnitPrice: 1500, Quantity: 2, LineTotal: 3000},
			{ProductID: uuid.New(), ProductName: "Plov", UnitPrice: 2200, Quantity: 1, LineTotal: 2200},
		},
	}
	order.RecomputeTotals()
	return order
}

func TestOrderStore_CreateOrder(t *testing.T) {
	pool := testDB(t)
	ctx := context.Background()
	store := NewOrderStore(pool)

	customer := seedCustomer(t, pool, 3000)
	token := seedCartSession(t, pool)

	order := makeStoreOrder(customer)
	order.BonusUsed = 1000
	order.RecomputeTotals()

	created, err := store.CreateOrder(ctx, CreateOrderParams{
		Order:        order,
		SessionToken: token,
		SaveAddress:  true,
		AddressLabel: "Home",
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Regexp(t, `^S-\d+$`, created.OrderNumber)
	require.Len(t, created.Items, 2)
	for _, item := range created.Items {
		assert.Equal(t, created.ID, item.OrderID)
	}

	// The snapshots are readable back with the order.
	loaded, err := store.GetOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Items, 2)
	assert.Equal(t, order.Total, loaded.Total)
	assert.Nil(t, loaded.ConfirmedAt)
	assert.Nil(t, loaded.DeliveredAt)

	// The bonus debit landed.
	var balance int64
	require.NoError(t, pool.QueryRow(ctx, `SELECT bonus_balance FROM customers WHERE id = $1`, customer.ID).Scan(&balance))
	assert.Equal(t, int64(2000), balance)

	// The cart was cleared in the same transaction.
	cart, err := NewSessionStore(pool, testStoreLogger()).LoadCart(ctx, token)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	// The first saved address became the default.
	var isDefault bool
	var label string
	require.NoError(t, pool.QueryRow(ctx, `
		SELECT label, is_default FROM saved_addresses WHERE customer_id = $1`, customer.ID).
		Scan(&label, &isDefault))
	assert.Equal(t, "Home", label)
	assert.True(t, isDefault)
}

func TestOrderStore_CreateOrder_RollsBackOnBonusOverdraft(t *testing.T) {
	pool := testDB(t)
	ctx := context.Background()
	store := NewOrderStore(pool)

	customer := seedCustomer(t, pool, 500)
	token := seedCartSession(t, pool)

	order := makeStoreOrder(customer)
	order.BonusUsed = 1000 // more than the seeded balance
	order.RecomputeTotals()

	_, err := store.CreateOrder(ctx, CreateOrderParams{
		Order:        order,
		SessionToken: token,
		SaveAddress:  true,
		AddressLabel: "Home",
	})
	require.ErrorIs(t, err, domain.ErrBonusExceedsBalance)

	// Nothing from the transaction may survive the rollback.
	var orderCount, itemCount, addressCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE customer_id = $1`, customer.ID).Scan(&orderCount))
	require.NoError(t, pool.QueryRow(ctx, `
		SELECT count(*) FROM order_items
		WHERE order_id IN (SELECT id FROM orders WHERE customer_id = $1)`, customer.ID).Scan(&itemCount))
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM saved_addresses WHERE customer_id = $1`, customer.ID).Scan(&addressCount))
	assert.Zero(t, orderCount, "no order row may remain after rollback")
	assert.Zero(t, itemCount, "no item snapshots may remain after rollback")
	assert.Zero(t, addressCount, "no saved address may remain after rollback")

	var balance int64
	require.NoError(t, pool.QueryRow(ctx, `SELECT bonus_balance FROM customers WHERE id = $1`, customer.ID).Scan(&balance))
	assert.Equal(t, int64(500), balance, "balance must be untouched after rollback")

	cart, err := NewSessionStore(pool, testStoreLogger()).LoadCart(ctx, token)
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1, "cart must be untouched after rollback")
}

func TestOrderStore_TransitionStatus_StampsTimestamps(t *testing.T) {
	pool := testDB(t)
	ctx := context.Background()
	store := NewOrderStore(pool)

	customer := seedCustomer(t, pool, 0)
	created, err := store.CreateOrder(ctx, CreateOrderParams{Order: makeStoreOrder(customer)})
	require.NoError(t, err)

	confirmed, err := store.TransitionStatus(ctx, created.ID, domain.OrderStatusNew, domain.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt, "confirming must stamp confirmed_at")
	assert.Nil(t, confirmed.DeliveredAt)

	_, err = store.TransitionStatus(ctx, created.ID, domain.OrderStatusConfirmed, domain.OrderStatusCooking)
	require.NoError(t, err)
	_, err = store.TransitionStatus(ctx, created.ID, domain.OrderStatusCooking, domain.OrderStatusDelivering)
	require.NoError(t, err)

	delivered, err := store.TransitionStatus(ctx, created.ID, domain.OrderStatusDelivering, domain.OrderStatusDelivered)
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt, "delivering must stamp delivered_at")
	require.NotNil(t, delivered.ConfirmedAt)
	assert.True(t, confirmed.ConfirmedAt.Equal(*delivered.ConfirmedAt),
		"later transitions must not move confirmed_at")
}

func TestOrderStore_TransitionStatus_StaleFrom(t *testing.T) {
	pool := testDB(t)
	ctx := context.Background()
	store := NewOrderStore(pool)

	customer := seedCustomer(t, pool, 0)
	created, err := store.CreateOrder(ctx, CreateOrderParams{Order: makeStoreOrder(customer)})
	require.NoError(t, err)

	// A second operator working from a stale status loses the race.
	_, err = store.TransitionStatus(ctx, created.ID, domain.OrderStatusConfirmed, domain.OrderStatusCooking)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	status, err := store.GetOrderStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusNew, status, "a rejected transition must not move the order")
}

func TestOrderStore_TransitionStatus_MissingOrder(t *testing.T) {
	pool := testDB(t)
	store := NewOrderStore(pool)

	_, err := store.TransitionStatus(context.Background(), uuid.New(), domain.OrderStatusNew, domain.OrderStatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
