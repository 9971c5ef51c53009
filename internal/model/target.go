package model

import "github.com/shopspring/decimal"

// SupplierTarget is a monthly sales target per supplier, unique on
// (supplier_id, month, year). Last write for a period wins.
type SupplierTarget struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SupplierID  uint            `gorm:"not null;uniqueIndex:idx_supplier_targets_period" json:"supplier_id"`
	Month       int             `gorm:"not null;uniqueIndex:idx_supplier_targets_period" json:"month"`
	Year        int             `gorm:"not null;uniqueIndex:idx_supplier_targets_period" json:"year"`
	TargetValue decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"target_value"`
}

// RepTarget is a monthly sales target per representative.
type RepTarget struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	RepID       uint            `gorm:"not null;uniqueIndex:idx_rep_targets_period" json:"rep_id"`
	Month       int             `gorm:"not null;uniqueIndex:idx_rep_targets_period" json:"month"`
	Year        int             `gorm:"not null;uniqueIndex:idx_rep_targets_period" json:"year"`
	TargetValue decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"target_value"`
}

// SupplierActual is the month-to-date figure reported per supplier. Actuals
// are independently entered, not derived from the order ledger.
type SupplierActual struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	SupplierID uint            `gorm:"not null;uniqueIndex:idx_supplier_actuals_period" json:"supplier_id"`
	Month      int             `gorm:"not null;uniqueIndex:idx_supplier_actuals_period" json:"month"`
	Year       int             `gorm:"not null;uniqueIndex:idx_supplier_actuals_period" json:"year"`
	MTDValue   decimal.Decimal `gorm:"column:mtd_value;type:decimal(18,2);not null;default:0" json:"mtd_value"`
}

// RepActual is the month-to-date figure reported per representative.
type RepActual struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	RepID    uint            `gorm:"not null;uniqueIndex:idx_rep_actuals_period" json:"rep_id"`
	Month    int             `gorm:"not null;uniqueIndex:idx_rep_actuals_period" json:"month"`
	Year     int             `gorm:"not null;uniqueIndex:idx_rep_actuals_period" json:"year"`
	MTDValue decimal.Decimal `gorm:"column:mtd_value;type:decimal(18,2);not null;default:0" json:"mtd_value"`
}

// Progress is the rollup consumed by dashboards: ratio is a percentage, zero
// when no target is set; remaining never goes negative.
type Progress struct {
	TargetTotal decimal.Decimal `json:"target_total"`
	ActualTotal decimal.Decimal `json:"actual_total"`
	Ratio       float64         `json:"progress_ratio"`
	Remaining   decimal.Decimal `json:"remaining"`
}
