package service

import (
	"context"
	"testing"

	"salespro/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSupplierCaseAndSpaceInsensitive(t *testing.T) {
	db := testDB(t)
	svc := newCatalogService(db)
	ctx := context.Background()

	id, err := svc.UpsertSupplier(ctx, "Acme Traders")
	require.NoError(t, err)
	require.NotZero(t, id)

	tests := []struct {
		name    string
		variant string
	}{
		{"exact", "Acme Traders"},
		{"case", "ACME TRADERS"},
		{"padding", "  acme traders  "},
		{"internal spaces", "Acme    Traders"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.UpsertSupplier(ctx, tt.variant)
			require.NoError(t, err)
			assert.Equal(t, id, got, "variant should resolve to the existing supplier")
		})
	}

	// The stored name keeps the first-seen casing.
	var supplier model.Supplier
	require.NoError(t, db.First(&supplier, id).Error)
	assert.Equal(t, "Acme Traders", supplier.Name)
}

func TestUpsertSupplierEmptyNameIsNoop(t *testing.T) {
	db := testDB(t)
	svc := newCatalogService(db)

	id, err := svc.UpsertSupplier(context.Background(), "   ")
	require.NoError(t, err)
	assert.Zero(t, id)

	var count int64
	require.NoError(t, db.Model(&model.Supplier{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestImportProductsDuplicateSuppression(t *testing.T) {
	db := testDB(t)
	svc := newCatalogService(db)
	ctx := context.Background()

	rows := []ImportRow{
		{SupplierName: "Acme", ProductName: "Rice", UnitPackInfo: "1 X 48"},
		// Same product under canonical equivalence: spacing and case.
		{SupplierName: "acme", ProductName: "RICE", UnitPackInfo: "1x48"},
		// Pack folded into the name matches name+pack split.
		{SupplierName: "Acme", ProductName: "Rice 1x48", UnitPackInfo: ""},
		// Distinct pack, new product.
		{SupplierName: "Acme", ProductName: "Rice", UnitPackInfo: "1 X 24"},
		// Missing product name.
		{SupplierName: "Acme", ProductName: "", UnitPackInfo: "1x12"},
	}

	summary, err := svc.ImportProducts(ctx, rows, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 2, summary.Duplicates)
	assert.Equal(t, 1, summary.Invalid)

	// Re-running the same rows inserts nothing: the duplicate cache reseeds
	// from persisted rows.
	summary, err = svc.ImportProducts(ctx, rows, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Inserted)
	assert.Equal(t, 4, summary.Duplicates)
	assert.Equal(t, 1, summary.Invalid)
}

func TestImportProductsUnitSynonyms(t *testing.T) {
	db := testDB(t)
	svc := newCatalogService(db)
	ctx := context.Background()

	summary, err := svc.ImportProducts(ctx, []ImportRow{
		{SupplierName: "Acme", ProductName: "Flour", UnitPackInfo: "12 pkts"},
		{SupplierName: "Acme", ProductName: "Flour", UnitPackInfo: "12 pk"},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Duplicates)
}

func TestImportProductsSameNameDifferentSupplier(t *testing.T) {
	db := testDB(t)
	svc := newCatalogService(db)

	summary, err := svc.ImportProducts(context.Background(), []ImportRow{
		{SupplierName: "Acme", ProductName: "Rice", UnitPackInfo: "1x48"},
		{SupplierName: "Bravo", ProductName: "Rice", UnitPackInfo: "1x48"},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted, "duplicate detection is per supplier")
}

func TestImportProductsSupplierScope(t *testing.T) {
	db := testDB(t)
	svc := newCatalogService(db)
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")

	summary, err := svc.ImportProducts(ctx, []ImportRow{
		{SupplierName: "Acme", ProductName: "Rice", UnitPackInfo: "1x48"},
		{SupplierName: "Bravo", ProductName: "Beans", UnitPackInfo: "1x24"},
	}, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Invalid, "row outside the requested supplier scope")
}

func TestImportSuppliers(t *testing.T) {
	db := testDB(t)
	svc := newCatalogService(db)

	summary, err := svc.ImportSuppliers(context.Background(), []string{
		"Acme", "ACME ", "Bravo", "", "bravo",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 2, summary.Duplicates)
	assert.Equal(t, 1, summary.Invalid)
}

func TestMergeSupplierRenamesWhenCanonicalAbsent(t *testing.T) {
	db := testDB(t)
	svc := newCatalogService(db)
	ctx := context.Background()

	variant := seedSupplier(t, db, "Acme Trdrs")
	seedProduct(t, db, variant.ID, "Rice", "1x48")

	results, err := svc.MergeSupplier(ctx, "Acme Traders", []string{"Acme Trdrs"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, MergeOutcomeRenamed, results[0].Outcome)

	// Same row, new name: product links survive untouched.
	var renamed model.Supplier
	require.NoError(t, db.First(&renamed, variant.ID).Error)
	assert.Equal(t, "Acme Traders", renamed.Name)

	var productCount int64
	require.NoError(t, db.Model(&model.Product{}).Where("supplier_id = ?", variant.ID).Count(&productCount).Error)
	assert.EqualValues(t, 1, productCount)
}

func TestMergeSupplierRelinksAndDeletesVariant(t *testing.T) {
	db := testDB(t)
	svc := newCatalogService(db)
	ctx := context.Background()

	canonical := seedSupplier(t, db, "Acme Traders")
	variant := seedSupplier(t, db, "Acme Trdrs")
	seedProduct(t, db, variant.ID, "Rice", "1x48")
	seedProduct(t, db, variant.ID, "Beans", "1x24")

	results, err := svc.MergeSupplier(ctx, "Acme Traders", []string{"Acme Trdrs", "No Such Supplier", "acme traders"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, MergeOutcomeRelinked, results[0].Outcome)
	assert.Equal(t, MergeOutcomeNotFound, results[1].Outcome)
	assert.Equal(t, MergeOutcomeSelf, results[2].Outcome)

	var moved int64
	require.NoError(t, db.Model(&model.Product{}).Where("supplier_id = ?", canonical.ID).Count(&moved).Error)
	assert.EqualValues(t, 2, moved)

	err = db.First(&model.Supplier{}, variant.ID).Error
	assert.Error(t, err, "variant row should be deleted after re-link")
}

func TestAddProductRejectsDuplicate(t *testing.T) {
	db := testDB(t)
	svc := newCatalogService(db)
	ctx := context.Background()

	product, err := svc.AddProduct(ctx, "Acme", "Rice", "1 X 48")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "Rice", product.ProductName)
	assert.Equal(t, "Rice (1 X 48)", product.Label)

	_, err = svc.AddProduct(ctx, "acme", "RICE", "1x48")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListProductsSearch(t *testing.T) {
	db := testDB(t)
	svc := newCatalogService(db)
	ctx := context.Background()

	acme := seedSupplier(t, db, "Acme")
	bravo := seedSupplier(t, db, "Bravo")
	seedProduct(t, db, acme.ID, "Basmati Rice", "1x48")
	seedProduct(t, db, acme.ID, "Beans", "1x24")
	seedProduct(t, db, bravo.ID, "Rice Flour", "1x12")

	products, err := svc.ListProducts(ctx, "rice", 0)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	products, err = svc.ListProducts(ctx, "rice", acme.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Basmati Rice", products[0].ProductName)
	assert.Equal(t, "Acme", products[0].SupplierName)
}
