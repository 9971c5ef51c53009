package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"salespro/internal/model"
	"salespro/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderFilters(status string) repository.OrderFilters {
	return repository.OrderFilters{Status: status}
}

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateOrderNumberSequence(t *testing.T) {
	db := testDB(t)
	svc := newOrderService(db, "")
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")
	rice := seedProduct(t, db, acme.ID, "Rice", "1x48")

	req := CreateOrderRequest{
		CustomerName: "Duka la Mama",
		Lines: []OrderLineRequest{
			{ProductID: rice.ID, Qty: 2, UnitPrice: money("100")},
		},
	}

	day := time.Now().Format("20060102")
	for i := 1; i <= 3; i++ {
		order, err := svc.CreateOrder(ctx, 0, req)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("ORD-%s-%04d", day, i), order.OrderNo)
	}
}

func TestCreateOrderTotalsAndProjection(t *testing.T) {
	db := testDB(t)
	svc := newOrderService(db, "")
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")
	rice := seedProduct(t, db, acme.ID, "Rice", "1x48")
	beans := seedProduct(t, db, acme.ID, "Beans", "1x24")

	view, err := svc.CreateOrder(ctx, 0, CreateOrderRequest{
		CustomerName: "Duka la Mama",
		Currency:     "KES",
		Lines: []OrderLineRequest{
			{ProductID: rice.ID, Qty: 3, UnitPrice: money("120.50")},
			{ProductID: beans.ID, Qty: 2, UnitPrice: money("80")},
		},
	})
	require.NoError(t, err)

	require.Len(t, view.Items, 2)
	assert.True(t, view.Items[0].Amount.Equal(money("361.50")), "amount derives from price times qty")
	assert.True(t, view.Total.Equal(money("521.50")), "total is the rounded line sum")
	assert.Equal(t, "Rice (1x48)", view.Items[0].Label)
	assert.Equal(t, model.OrderStatusPending, view.Status)

	// The legacy header mirrors the first line.
	var stored model.Order
	require.NoError(t, db.First(&stored, view.ID).Error)
	require.NotNil(t, stored.ProductID)
	assert.Equal(t, rice.ID, *stored.ProductID)
	require.NotNil(t, stored.SupplierID)
	assert.Equal(t, acme.ID, *stored.SupplierID)
	assert.Equal(t, 3, stored.Quantity)
}

func TestCreateOrderTotalOverride(t *testing.T) {
	db := testDB(t)
	svc := newOrderService(db, "")
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")
	rice := seedProduct(t, db, acme.ID, "Rice", "1x48")

	view, err := svc.CreateOrder(ctx, 0, CreateOrderRequest{
		TotalOverride: money("999.99"),
		Lines: []OrderLineRequest{
			{ProductID: rice.ID, Qty: 1, UnitPrice: money("100")},
		},
	})
	require.NoError(t, err)
	assert.True(t, view.Total.Equal(money("999.99")), "positive override wins over the computed sum")

	// Line amounts keep their own values; the divergence is preserved.
	assert.True(t, view.Items[0].Amount.Equal(money("100")))
}

func TestCreateOrderDropsInvalidLines(t *testing.T) {
	db := testDB(t)
	svc := newOrderService(db, "")
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")
	rice := seedProduct(t, db, acme.ID, "Rice", "1x48")

	view, err := svc.CreateOrder(ctx, 0, CreateOrderRequest{
		Lines: []OrderLineRequest{
			{ProductID: rice.ID, Qty: 2, UnitPrice: money("50")},
			{ProductID: 0, Qty: 5, UnitPrice: money("10")},        // no product reference
			{ProductID: 99999, Qty: 1, UnitPrice: money("10")},    // unknown product
			{ProductID: rice.ID, Qty: 0, UnitPrice: money("10")},  // no quantity
			{ProductID: rice.ID, Qty: -2, UnitPrice: money("10")}, // negative quantity
		},
	})
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
	assert.True(t, view.Total.Equal(money("100")))
}

func TestCreateOrderAllLinesInvalid(t *testing.T) {
	db := testDB(t)
	svc := newOrderService(db, "")

	_, err := svc.CreateOrder(context.Background(), 0, CreateOrderRequest{
		Lines: []OrderLineRequest{{ProductID: 0, Qty: 1}},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateOrderAttribution(t *testing.T) {
	db := testDB(t)
	svc := newOrderService(db, "")
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")
	rice := seedProduct(t, db, acme.ID, "Rice", "1x48")
	lines := []OrderLineRequest{{ProductID: rice.ID, Qty: 1, UnitPrice: money("10")}}

	var staff, admin model.User
	require.NoError(t, db.First(&staff, "username = ?", "staff").Error)
	require.NoError(t, db.First(&admin, "username = ?", "admin").Error)

	named := model.User{Username: "jkamau", PasswordHash: "x", Role: model.RoleRep, FullName: "James Kamau"}
	require.NoError(t, db.Create(&named).Error)

	t.Run("authenticated caller wins", func(t *testing.T) {
		view, err := svc.CreateOrder(ctx, admin.ID, CreateOrderRequest{SalesRep: "James Kamau", Lines: lines})
		require.NoError(t, err)
		var stored model.Order
		require.NoError(t, db.First(&stored, view.ID).Error)
		require.NotNil(t, stored.RepID)
		assert.Equal(t, admin.ID, *stored.RepID)
	})

	t.Run("named rep resolves by full name", func(t *testing.T) {
		view, err := svc.CreateOrder(ctx, 0, CreateOrderRequest{SalesRep: "james kamau", Lines: lines})
		require.NoError(t, err)
		var stored model.Order
		require.NoError(t, db.First(&stored, view.ID).Error)
		require.NotNil(t, stored.RepID)
		assert.Equal(t, named.ID, *stored.RepID)
	})

	t.Run("unknown name falls back to staff", func(t *testing.T) {
		view, err := svc.CreateOrder(ctx, 0, CreateOrderRequest{SalesRep: "Nobody In Particular", Lines: lines})
		require.NoError(t, err)
		var stored model.Order
		require.NoError(t, db.First(&stored, view.ID).Error)
		require.NotNil(t, stored.RepID)
		assert.Equal(t, staff.ID, *stored.RepID)
	})
}

func TestCreateOrderAttributionExhausted(t *testing.T) {
	db := testDB(t)
	svc := newOrderService(db, "")
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")
	rice := seedProduct(t, db, acme.ID, "Rice", "1x48")

	// Remove every account so no fallback can resolve.
	require.NoError(t, db.Where("1 = 1").Delete(&model.User{}).Error)

	_, err := svc.CreateOrder(ctx, 0, CreateOrderRequest{
		Lines: []OrderLineRequest{{ProductID: rice.ID, Qty: 1, UnitPrice: money("10")}},
	})
	assert.ErrorIs(t, err, ErrAttribution)
}

func TestUpdateStatusStateMachine(t *testing.T) {
	db := testDB(t)
	svc := newOrderService(db, "")
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")
	rice := seedProduct(t, db, acme.ID, "Rice", "1x48")

	created, err := svc.CreateOrder(ctx, 0, CreateOrderRequest{
		Lines: []OrderLineRequest{{ProductID: rice.ID, Qty: 1, UnitPrice: money("10")}},
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, created.ID, "Shipped")
	assert.ErrorIs(t, err, ErrValidation, "unknown status is rejected")

	view, err := svc.UpdateStatus(ctx, created.ID, model.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, view.Status)
	assert.Equal(t, time.Now().Format("2006-01-02"), view.DeliveryDate, "delivery date defaults to today")

	// Terminal: no further transitions.
	_, err = svc.UpdateStatus(ctx, created.ID, model.OrderStatusCancelled)
	assert.ErrorIs(t, err, model.ErrTerminalStatus)

	// Same-status update is a no-op, not a conflict.
	view, err = svc.UpdateStatus(ctx, created.ID, model.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, view.Status)

	_, err = svc.UpdateStatus(ctx, 99999, model.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatusKeepsExplicitDeliveryDate(t *testing.T) {
	db := testDB(t)
	svc := newOrderService(db, "")
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")
	rice := seedProduct(t, db, acme.ID, "Rice", "1x48")

	created, err := svc.CreateOrder(ctx, 0, CreateOrderRequest{
		DeliveryDate: "2026-09-15",
		Lines:        []OrderLineRequest{{ProductID: rice.ID, Qty: 1, UnitPrice: money("10")}},
	})
	require.NoError(t, err)

	view, err := svc.UpdateStatus(ctx, created.ID, model.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-15", view.DeliveryDate, "an already-set delivery date is not overwritten")
}

func TestLegacySingleLineProjection(t *testing.T) {
	db := testDB(t)
	svc := newOrderService(db, "")
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")
	rice := seedProduct(t, db, acme.ID, "Rice", "1x48")

	// A row written before line collections existed: header fields only.
	supplierID, productID := acme.ID, rice.ID
	legacy := model.Order{
		OrderNo:    "ORD-20240101-0001",
		CreatedAt:  time.Now(),
		Status:     model.OrderStatusPending,
		SupplierID: &supplierID,
		ProductID:  &productID,
		Quantity:   4,
		UnitPrice:  money("25"),
		Total:      money("100"),
	}
	require.NoError(t, db.Create(&legacy).Error)

	view, err := svc.GetOrderSheet(ctx, legacy.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1, "legacy rows project exactly one synthesized line")
	assert.Equal(t, rice.ID, view.Items[0].ProductID)
	assert.Equal(t, 4, view.Items[0].Qty)
	assert.True(t, view.Items[0].Amount.Equal(money("100")))
	assert.Equal(t, "Rice (1x48)", view.Items[0].Label)
	assert.True(t, view.Total.Equal(money("100")))
}

func TestListHistoryFiltersAndCSV(t *testing.T) {
	db := testDB(t)
	svc := newOrderService(db, "")
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")
	rice := seedProduct(t, db, acme.ID, "Rice", "1x48")
	beans := seedProduct(t, db, acme.ID, "Beans", "1x24")

	for i := 0; i < 3; i++ {
		_, err := svc.CreateOrder(ctx, 0, CreateOrderRequest{
			CustomerName: "Duka la Mama",
			Lines: []OrderLineRequest{
				{ProductID: rice.ID, Qty: 1, UnitPrice: money("10")},
				{ProductID: beans.ID, Qty: 2, UnitPrice: money("5")},
			},
		})
		require.NoError(t, err)
	}
	delivered, err := svc.CreateOrder(ctx, 0, CreateOrderRequest{
		Lines: []OrderLineRequest{{ProductID: rice.ID, Qty: 1, UnitPrice: money("10")}},
	})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, delivered.ID, model.OrderStatusDelivered)
	require.NoError(t, err)

	views, total, err := svc.ListHistory(ctx, orderFilters(model.OrderStatusPending))
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, views, 3)

	// Newest first.
	require.GreaterOrEqual(t, len(views), 2)
	assert.Greater(t, views[0].ID, views[1].ID)

	rows, err := svc.HistoryCSV(ctx, orderFilters(""))
	require.NoError(t, err)
	// Header plus one row per line item: 3 orders x 2 lines + 1 order x 1 line.
	assert.Len(t, rows, 1+3*2+1)
	assert.Equal(t, "Order No", rows[0][0])
	assert.Equal(t, "Acme", rows[1][2])
}
