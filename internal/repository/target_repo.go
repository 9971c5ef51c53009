package repository

import (
	"context"

	"salespro/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TargetRepository persists monthly targets and month-to-date actuals for
// suppliers and representatives. All writes are last-writer-wins upserts on
// the (owner, month, year) composite key.
type TargetRepository interface {
	UpsertSupplierTarget(ctx context.Context, t *model.SupplierTarget) error
	UpsertRepTarget(ctx context.Context, t *model.RepTarget) error
	UpsertSupplierActual(ctx context.Context, a *model.SupplierActual) error
	UpsertRepActual(ctx context.Context, a *model.RepActual) error

	SupplierTargetTotal(ctx context.Context, supplierID uint, month, year int) (decimal.Decimal, error)
	RepTargetTotal(ctx context.Context, repID uint, month, year int) (decimal.Decimal, error)
	SupplierActualTotal(ctx context.Context, supplierID uint, month, year int) (decimal.Decimal, error)
	RepActualTotal(ctx context.Context, repID uint, month, year int) (decimal.Decimal, error)

	SupplierTargets(ctx context.Context, month, year int) ([]model.SupplierTarget, error)
	RepTargets(ctx context.Context, month, year int) ([]model.RepTarget, error)
	SupplierActuals(ctx context.Context, month, year int) ([]model.SupplierActual, error)
	RepActuals(ctx context.Context, month, year int) ([]model.RepActual, error)

	RecentSupplierTargets(ctx context.Context, limit int) ([]model.SupplierTarget, error)
	RecentRepTargets(ctx context.Context, limit int) ([]model.RepTarget, error)
}

type targetRepository struct {
	db *gorm.DB
}

func NewTargetRepository(db *gorm.DB) TargetRepository {
	return &targetRepository{db: db}
}

func (r *targetRepository) UpsertSupplierTarget(ctx context.Context, t *model.SupplierTarget) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "supplier_id"}, {Name: "month"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{"target_value"}),
	}).Create(t).Error
}

func (r *targetRepository) UpsertRepTarget(ctx context.Context, t *model.RepTarget) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "rep_id"}, {Name: "month"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{"target_value"}),
	}).Create(t).Error
}

func (r *targetRepository) UpsertSupplierActual(ctx context.Context, a *model.SupplierActual) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "supplier_id"}, {Name: "month"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{"mtd_value"}),
	}).Create(a).Error
}

func (r *targetRepository) UpsertRepActual(ctx context.Context, a *model.RepActual) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "rep_id"}, {Name: "month"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{"mtd_value"}),
	}).Create(a).Error
}

// sumColumn aggregates a value column for a period; ownerColumn/ownerID narrow
// to a single owner when ownerID > 0, otherwise the sum spans all owners.
func (r *targetRepository) sumColumn(ctx context.Context, table, valueColumn, ownerColumn string, ownerID uint, month, year int) (decimal.Decimal, error) {
	var out struct {
		Total decimal.Decimal
	}
	db := GetDB(ctx, r.db).Table(table).
		Select("COALESCE(SUM(" + valueColumn + "), 0) AS total").
		Where("month = ? AND year = ?", month, year)
	if ownerID > 0 {
		db = db.Where(ownerColumn+" = ?", ownerID)
	}
	if err := db.Scan(&out).Error; err != nil {
		return decimal.Zero, err
	}
	return out.Total, nil
}

func (r *targetRepository) SupplierTargetTotal(ctx context.Context, supplierID uint, month, year int) (decimal.Decimal, error) {
	return r.sumColumn(ctx, "supplier_targets", "target_value", "supplier_id", supplierID, month, year)
}

func (r *targetRepository) RepTargetTotal(ctx context.Context, repID uint, month, year int) (decimal.Decimal, error) {
	return r.sumColumn(ctx, "rep_targets", "target_value", "rep_id", repID, month, year)
}

func (r *targetRepository) SupplierActualTotal(ctx context.Context, supplierID uint, month, year int) (decimal.Decimal, error) {
	return r.sumColumn(ctx, "supplier_actuals", "mtd_value", "supplier_id", supplierID, month, year)
}

func (r *targetRepository) RepActualTotal(ctx context.Context, repID uint, month, year int) (decimal.Decimal, error) {
	return r.sumColumn(ctx, "rep_actuals", "mtd_value", "rep_id", repID, month, year)
}

func (r *targetRepository) SupplierTargets(ctx context.Context, month, year int) ([]model.SupplierTarget, error) {
	var targets []model.SupplierTarget
	err := GetDB(ctx, r.db).Where("month = ? AND year = ?", month, year).Find(&targets).Error
	return targets, err
}

func (r *targetRepository) RepTargets(ctx context.Context, month, year int) ([]model.RepTarget, error) {
	var targets []model.RepTarget
	err := GetDB(ctx, r.db).Where("month = ? AND year = ?", month, year).Find(&targets).Error
	return targets, err
}

func (r *targetRepository) SupplierActuals(ctx context.Context, month, year int) ([]model.SupplierActual, error) {
	var actuals []model.SupplierActual
	err := GetDB(ctx, r.db).Where("month = ? AND year = ?", month, year).Find(&actuals).Error
	return actuals, err
}

func (r *targetRepository) RepActuals(ctx context.Context, month, year int) ([]model.RepActual, error) {
	var actuals []model.RepActual
	err := GetDB(ctx, r.db).Where("month = ? AND year = ?", month, year).Find(&actuals).Error
	return actuals, err
}

func (r *targetRepository) RecentSupplierTargets(ctx context.Context, limit int) ([]model.SupplierTarget, error) {
	var targets []model.SupplierTarget
	err := GetDB(ctx, r.db).Order("id DESC").Limit(limit).Find(&targets).Error
	return targets, err
}

func (r *targetRepository) RecentRepTargets(ctx context.Context, limit int) ([]model.RepTarget, error) {
	var targets []model.RepTarget
	err := GetDB(ctx, r.db).Order("id DESC").Limit(limit).Find(&targets).Error
	return targets, err
}
