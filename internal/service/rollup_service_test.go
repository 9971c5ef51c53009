package service

import (
	"context"
	"testing"

	"salespro/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetEntryValidation(t *testing.T) {
	db := testDB(t)
	svc := newRollupService(db)
	ctx := context.Background()

	tests := []struct {
		name  string
		entry TargetEntry
	}{
		{"missing owner", TargetEntry{OwnerID: 0, Month: 6, Year: 2026, Value: money("100")}},
		{"month too low", TargetEntry{OwnerID: 1, Month: 0, Year: 2026, Value: money("100")}},
		{"month too high", TargetEntry{OwnerID: 1, Month: 13, Year: 2026, Value: money("100")}},
		{"year too low", TargetEntry{OwnerID: 1, Month: 6, Year: 1999, Value: money("100")}},
		{"negative value", TargetEntry{OwnerID: 1, Month: 6, Year: 2026, Value: money("-5")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.SetSupplierTarget(ctx, tt.entry), ErrValidation)
			assert.ErrorIs(t, svc.RecordRepActual(ctx, tt.entry), ErrValidation)
		})
	}
}

func TestTargetUpsertLastWriteWins(t *testing.T) {
	db := testDB(t)
	svc := newRollupService(db)
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")

	require.NoError(t, svc.SetSupplierTarget(ctx, TargetEntry{OwnerID: acme.ID, Month: 6, Year: 2026, Value: money("1000")}))
	require.NoError(t, svc.SetSupplierTarget(ctx, TargetEntry{OwnerID: acme.ID, Month: 6, Year: 2026, Value: money("1500")}))

	var count int64
	require.NoError(t, db.Model(&model.SupplierTarget{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "same period replaces, never duplicates")

	var target model.SupplierTarget
	require.NoError(t, db.First(&target, "supplier_id = ?", acme.ID).Error)
	assert.True(t, target.TargetValue.Equal(money("1500")))

	// A different period is its own row.
	require.NoError(t, svc.SetSupplierTarget(ctx, TargetEntry{OwnerID: acme.ID, Month: 7, Year: 2026, Value: money("2000")}))
	require.NoError(t, db.Model(&model.SupplierTarget{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestSupplierProgress(t *testing.T) {
	db := testDB(t)
	svc := newRollupService(db)
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")

	require.NoError(t, svc.SetSupplierTarget(ctx, TargetEntry{OwnerID: acme.ID, Month: 6, Year: 2026, Value: money("1000")}))
	require.NoError(t, svc.RecordSupplierActual(ctx, TargetEntry{OwnerID: acme.ID, Month: 6, Year: 2026, Value: money("250")}))

	p, err := svc.SupplierProgress(ctx, acme.ID, 6, 2026)
	require.NoError(t, err)
	assert.True(t, p.TargetTotal.Equal(money("1000")))
	assert.True(t, p.ActualTotal.Equal(money("250")))
	assert.InDelta(t, 25.0, p.Ratio, 0.001)
	assert.True(t, p.Remaining.Equal(money("750")))
}

func TestProgressWithoutTarget(t *testing.T) {
	db := testDB(t)
	svc := newRollupService(db)
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")
	require.NoError(t, svc.RecordSupplierActual(ctx, TargetEntry{OwnerID: acme.ID, Month: 6, Year: 2026, Value: money("400")}))

	p, err := svc.SupplierProgress(ctx, acme.ID, 6, 2026)
	require.NoError(t, err)
	assert.Zero(t, p.Ratio, "no target means a zero ratio, not a division error")
	assert.True(t, p.Remaining.Equal(money("0")))
}

func TestProgressOverachievement(t *testing.T) {
	db := testDB(t)
	svc := newRollupService(db)
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")
	require.NoError(t, svc.SetSupplierTarget(ctx, TargetEntry{OwnerID: acme.ID, Month: 6, Year: 2026, Value: money("100")}))
	require.NoError(t, svc.RecordSupplierActual(ctx, TargetEntry{OwnerID: acme.ID, Month: 6, Year: 2026, Value: money("150")}))

	p, err := svc.SupplierProgress(ctx, acme.ID, 6, 2026)
	require.NoError(t, err)
	assert.InDelta(t, 150.0, p.Ratio, 0.001)
	assert.True(t, p.Remaining.Equal(money("0")), "remaining never goes negative")
}

func TestOverview(t *testing.T) {
	db := testDB(t)
	svc := newRollupService(db)
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")
	bravo := seedSupplier(t, db, "Bravo")

	var staff model.User
	require.NoError(t, db.First(&staff, "username = ?", "staff").Error)

	require.NoError(t, svc.SetSupplierTarget(ctx, TargetEntry{OwnerID: acme.ID, Month: 6, Year: 2026, Value: money("1000")}))
	require.NoError(t, svc.RecordSupplierActual(ctx, TargetEntry{OwnerID: acme.ID, Month: 6, Year: 2026, Value: money("300")}))
	// Bravo has an actual but no target; it still appears in the overview.
	require.NoError(t, svc.RecordSupplierActual(ctx, TargetEntry{OwnerID: bravo.ID, Month: 6, Year: 2026, Value: money("200")}))
	require.NoError(t, svc.SetRepTarget(ctx, TargetEntry{OwnerID: staff.ID, Month: 6, Year: 2026, Value: money("500")}))

	overview, err := svc.Overview(ctx, 6, 2026)
	require.NoError(t, err)

	require.Len(t, overview.Suppliers, 2)
	assert.Equal(t, "Acme", overview.Suppliers[0].OwnerName)
	assert.InDelta(t, 30.0, overview.Suppliers[0].Ratio, 0.001)
	assert.Equal(t, "Bravo", overview.Suppliers[1].OwnerName)
	assert.Zero(t, overview.Suppliers[1].Ratio)

	require.Len(t, overview.Reps, 1)
	assert.Equal(t, "Staff", overview.Reps[0].OwnerName)

	assert.True(t, overview.Overall.TargetTotal.Equal(money("1000")))
	assert.True(t, overview.Overall.ActualTotal.Equal(money("500")))
	assert.InDelta(t, 50.0, overview.Overall.Ratio, 0.001)

	// A different period is empty.
	empty, err := svc.Overview(ctx, 7, 2026)
	require.NoError(t, err)
	assert.Empty(t, empty.Suppliers)
	assert.Empty(t, empty.Reps)

	_, err = svc.Overview(ctx, 13, 2026)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDashboard(t *testing.T) {
	db := testDB(t)
	rollup := newRollupService(db)
	orders := newOrderService(db, "")
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")
	rice := seedProduct(t, db, acme.ID, "Rice", "1x48")

	_, err := orders.CreateOrder(ctx, 0, CreateOrderRequest{
		Lines: []OrderLineRequest{{ProductID: rice.ID, Qty: 1, UnitPrice: money("10")}},
	})
	require.NoError(t, err)

	summary, err := rollup.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.OrderCount)
	assert.EqualValues(t, 1, summary.SupplierCount)
}
