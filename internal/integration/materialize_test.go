package integration

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opiegroup/atomictawk-sub002/internal/catalog"
	"github.com/opiegroup/atomictawk-sub002/internal/checkout"
	"github.com/opiegroup/atomictawk-sub002/internal/db"
	"github.com/opiegroup/atomictawk-sub002/internal/order"
	"github.com/opiegroup/atomictawk-sub002/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func truncateTables(t *testing.T, conn *sql.DB) {
	t.Helper()
	_, err := conn.Exec(`TRUNCATE order_items, orders, order_reconciliation, products`)
	require.NoError(t, err)
}

func paidEvent(sessionID string) order.Event {
	return order.Event{
		ID: "evt_" + sessionID,
		Session: order.Session{
			ID: sessionID,
			Metadata: checkout.EncodeMetadata([]catalog.PricedLineItem{
				{ProductID: "p1", Slug: "shirt", Name: "Shirt", Variant: "L", Quantity: 2, UnitPriceMinorUnits: 5000},
			}),
			CustomerEmail: "buyer@example.com",
			AmountTotal:   10500,
			Currency:      "usd",
			PaymentStatus: "paid",
			Shipping:      order.Address{Line1: "1 Main St", City: "Austin", Country: "US"},
		},
	}
}

func TestMaterialize_ConcurrentRedeliveryCreatesOneOrder(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	conn, _ := testutil.StartPostgres(t)
	truncateTables(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	m := order.NewMaterializer(order.NewRepository(conn), discardLogger())
	ev := paidEvent("cs_concurrent")

	const workers = 12
	refs := make([]order.Ref, workers)
	errs := make([]error, workers)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			refs[i], errs[i] = m.Materialize(ctx, ev)
		}(i)
	}
	close(start)
	wg.Wait()

	created := 0
	for i := range refs {
		require.NoError(t, errs[i])
		if refs[i].Created {
			created++
		}
		assert.Equal(t, refs[0].OrderNumber, refs[i].OrderNumber)
	}
	assert.Equal(t, 1, created)

	var orders, items int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE idempotency_key = $1`, "cs_concurrent").Scan(&orders))
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items`).Scan(&items))
	assert.Equal(t, 1, orders)
	assert.Equal(t, 1, items)

	stored, err := order.NewRepository(conn).GetByOrderNumber(ctx, refs[0].OrderNumber)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(10500), stored.TotalMinorUnits)
	assert.Equal(t, "Austin", stored.ShippingAddress.City)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "L", stored.Items[0].Variant)
}

func TestMaterialize_CorruptMetadataRecordedOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	conn, _ := testutil.StartPostgres(t)
	truncateTables(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	m := order.NewMaterializer(order.NewRepository(conn), discardLogger())
	ev := paidEvent("cs_corrupt")
	delete(ev.Session.Metadata, "item_0_price")

	for i := 0; i < 2; i++ {
		_, err := m.Materialize(ctx, ev)
		require.ErrorIs(t, err, checkout.ErrCorruptMetadata)
	}

	var orders, occurrences int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&orders))
	require.NoError(t, conn.QueryRowContext(ctx,
		`SELECT occurrences FROM order_reconciliation WHERE idempotency_key = $1`, "cs_corrupt").Scan(&occurrences))
	assert.Equal(t, 0, orders)
	assert.Equal(t, 2, occurrences)
}

func TestCatalogRepository_GetProduct(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	conn, dsn := testutil.StartPostgres(t)
	truncateTables(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := conn.ExecContext(ctx, `INSERT INTO products (id, slug, name, price_minor_units, stock_qty, in_stock, status, images)
		VALUES ('p1', 'shirt', 'Shirt', 5000, 10, TRUE, 'published', ARRAY['a.jpg','b.jpg'])`)
	require.NoError(t, err)

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	repo := catalog.NewPostgresRepository(pool)
	p, err := repo.GetProduct(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, catalog.StatusPublished, p.Status)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, p.Images)

	missing, err := repo.GetProduct(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	items, err := catalog.NewGateway(repo, checkout.MaxItems, discardLogger()).Validate(ctx, catalog.CheckoutRequest{
		{ProductID: "p1", Quantity: 2, Variant: "L"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), items[0].UnitPriceMinorUnits)
	assert.Equal(t, "a.jpg", items[0].Image)
}
