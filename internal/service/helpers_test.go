package service

import (
	"fmt"
	"testing"

	"salespro/internal/database"
	"salespro/internal/model"
	"salespro/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB opens an isolated in-memory database with the full schema applied
// and the baseline accounts seeded.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Shared-cache in-memory databases drop when the last connection closes.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Reconcile(db))
	return db
}

func seedSupplier(t *testing.T, db *gorm.DB, name string) model.Supplier {
	t.Helper()
	supplier := model.Supplier{Name: name}
	require.NoError(t, db.Create(&supplier).Error)
	return supplier
}

func seedProduct(t *testing.T, db *gorm.DB, supplierID uint, name, pack string) model.Product {
	t.Helper()
	product := model.Product{
		SupplierID:   supplierID,
		ProductName:  name,
		UnitPackInfo: pack,
		LegacyName:   name,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func newCatalogService(db *gorm.DB) CatalogService {
	return NewCatalogService(
		repository.NewSupplierRepository(db),
		repository.NewProductRepository(db),
		repository.NewTransactionManager(db),
	)
}

func newOrderService(db *gorm.DB, defaultRep string) OrderService {
	return NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		repository.NewSupplierRepository(db),
		repository.NewUserRepository(db),
		repository.NewTransactionManager(db),
		nil,
		defaultRep,
	)
}

func newRollupService(db *gorm.DB) RollupService {
	return NewRollupService(
		repository.NewTargetRepository(db),
		repository.NewSupplierRepository(db),
		repository.NewUserRepository(db),
		repository.NewOrderRepository(db),
	)
}
