package database

import (
	"fmt"

	"salespro/internal/model"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// tableSpec is the schema descriptor for one table: the model giving the
// baseline shape for fresh creation, and the columns added release over
// release that an existing table may still be missing. Resolved once here
// instead of re-checking structure per call site.
type tableSpec struct {
	model   interface{}
	evolved []string
}

// expectedTables in creation order; referenced tables first.
var expectedTables = []tableSpec{
	{model: &model.User{}},
	{model: &model.RefreshToken{}},
	{model: &model.Supplier{}},
	{model: &model.Product{}, evolved: []string{
		"ProductName",
		"UnitPackInfo",
		"SupplierID",
		"LegacyName",
	}},
	{model: &model.Order{}, evolved: []string{
		"OrderNo",
		"CreatedAt",
		"Total",
		"SupplierID",
		"ProductID",
		"Quantity",
		"UnitPrice",
		"PaymentMethod",
		"Status",
		"DeliveryDate",
		"Currency",
		"Notes",
		"CustomerName",
		"CustomerLocation",
		"LineItems",
		"RepID",
		"SalesRepName",
	}},
	{model: &model.OrderDaySequence{}},
	{model: &model.SupplierTarget{}},
	{model: &model.RepTarget{}},
	{model: &model.SupplierActual{}},
	{model: &model.RepActual{}},
}

// Reconcile brings the persisted structure in line with the expected shape
// without destroying data. Safe to invoke on every process start: tables are
// created only if absent, columns only added, and the legacy name backfill
// never overwrites a value already present. Any structural failure aborts the
// whole reconciliation. Baseline account seeding runs after structure
// succeeds and is independent of it.
func Reconcile(db *gorm.DB) error {
	m := db.Migrator()

	for _, spec := range expectedTables {
		if !m.HasTable(spec.model) {
			if err := m.CreateTable(spec.model); err != nil {
				return fmt.Errorf("schema: create table for %T: %w", spec.model, err)
			}
			continue
		}
		for _, field := range spec.evolved {
			if m.HasColumn(spec.model, field) {
				continue
			}
			if err := m.AddColumn(spec.model, field); err != nil {
				return fmt.Errorf("schema: add column %T.%s: %w", spec.model, field, err)
			}
		}
	}

	// Backfill the renamed product name column from its legacy predecessor.
	// Only rows where the new column is still empty; populated values are
	// never touched.
	if err := db.Exec(
		`UPDATE products SET product_name = name
		 WHERE (product_name IS NULL OR product_name = '')
		   AND name IS NOT NULL AND name <> ''`,
	).Error; err != nil {
		return fmt.Errorf("schema: backfill product_name: %w", err)
	}

	seedBaselineUsers(db)
	return nil
}

// seedBaselineUsers inserts the two baseline operator accounts when no
// accounts exist at all. The default credentials are rotated through the
// change-password flow; seeding failures are logged and do not roll back
// structural changes.
func seedBaselineUsers(db *gorm.DB) {
	var count int64
	if err := db.Model(&model.User{}).Count(&count).Error; err != nil {
		zap.L().Warn("schema: count users for seeding", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	baseline := []struct {
		username, password, role, fullName string
	}{
		{"admin", "admin123", model.RoleAdmin, "Administrator"},
		{"staff", "staff123", model.RoleRep, "Staff"},
	}

	for _, acc := range baseline {
		hash, err := bcrypt.GenerateFromPassword([]byte(acc.password), bcrypt.DefaultCost)
		if err != nil {
			zap.L().Warn("schema: hash baseline credential", zap.String("username", acc.username), zap.Error(err))
			continue
		}
		user := model.User{
			Username:     acc.username,
			PasswordHash: string(hash),
			Role:         acc.role,
			FullName:     acc.fullName,
		}
		if err := db.Create(&user).Error; err != nil {
			zap.L().Warn("schema: seed baseline user", zap.String("username", acc.username), zap.Error(err))
		}
	}
}
