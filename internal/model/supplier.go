package model

// Supplier is the owning side of the catalog. Names are free text entered by
// operators; uniqueness is enforced under canonicalization at import/merge
// time, not by a storage constraint.
type Supplier struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(255);not null" json:"name"`
}

// Product belongs to exactly one supplier. ProductName is the current field;
// LegacyName mirrors it for readers written against the pre-rename schema and
// is backfilled the other way by schema reconciliation.
type Product struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	SupplierID   uint     `gorm:"not null;index" json:"supplier_id"`
	Supplier     Supplier `gorm:"foreignKey:SupplierID;constraint:OnDelete:CASCADE" json:"-"`
	ProductName  string   `gorm:"type:varchar(255)" json:"product_name"`
	UnitPackInfo string   `gorm:"type:varchar(255)" json:"unit_pack_info"`
	LegacyName   string   `gorm:"column:name;type:varchar(255)" json:"-"`
}

// Label renders the display form used by order sheets and pickers.
func (p Product) Label() string {
	if p.UnitPackInfo != "" {
		return p.ProductName + " (" + p.UnitPackInfo + ")"
	}
	return p.ProductName
}
