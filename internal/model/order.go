package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus constants. Pending is the only state with outgoing transitions.
const (
	OrderStatusPending   = "Pending"
	OrderStatusDelivered = "Delivered"
	OrderStatusCancelled = "Cancelled"
)

// LineItem is one position of a multi-line order. JSON field names are part
// of the stored format and must not change: historical rows were written with
// these keys.
type LineItem struct {
	SupplierID uint            `json:"supplier_id"`
	ProductID  uint            `json:"product_id"`
	Qty        int             `json:"qty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Amount     decimal.Decimal `json:"amount"`
	Desc       *string         `json:"desc"`
}

// LineItems is the embedded ordered collection attached to an order. It is
// the single serialize/deserialize boundary for line items; consumers never
// parse the raw column themselves.
type LineItems []LineItem

// Value serializes the collection for storage. An empty collection stores as
// NULL so legacy readers keep seeing the single-line projection.
func (li LineItems) Value() (driver.Value, error) {
	if len(li) == 0 {
		return nil, nil
	}
	return json.Marshal(li)
}

// Scan accepts rows written by any schema era: NULL/empty for legacy
// single-line orders, JSON text or bytes otherwise.
func (li *LineItems) Scan(value interface{}) error {
	if value == nil {
		*li = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("line_items: unsupported column type %T", value)
	}
	if len(raw) == 0 {
		*li = nil
		return nil
	}
	return json.Unmarshal(raw, li)
}

// GormDataType keeps the column a plain text blob on every dialect.
func (LineItems) GormDataType() string {
	return "text"
}

// Order is the compatibility ledger record. SupplierID/ProductID/Quantity/
// UnitPrice are the legacy single-line projection mirroring the first line
// item; Total always equals the stored order total, which may be an operator
// override diverging from the line sum.
type Order struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	OrderNo          string          `gorm:"type:varchar(30);uniqueIndex" json:"order_no"`
	CreatedAt        time.Time       `json:"created_at"`
	RepID            *uint           `gorm:"index" json:"rep_id"`
	SalesRepName     string          `gorm:"type:varchar(255)" json:"sales_rep_name"`
	CustomerName     string          `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerLocation string          `gorm:"type:varchar(255)" json:"customer_location"`
	PaymentMethod    string          `gorm:"type:varchar(50)" json:"payment_method"`
	Currency         string          `gorm:"type:varchar(10);default:'KES'" json:"currency"`
	DeliveryDate     *string         `gorm:"type:varchar(20)" json:"delivery_date"`
	Status           string          `gorm:"type:varchar(20);default:'Pending'" json:"status"`
	Notes            string          `gorm:"type:text" json:"notes"`
	Total            decimal.Decimal `gorm:"type:decimal(18,2)" json:"total"`

	// Legacy projection (first line item).
	SupplierID *uint           `gorm:"index" json:"supplier_id"`
	ProductID  *uint           `gorm:"index" json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(18,2)" json:"unit_price"`

	LineItems LineItems `gorm:"column:line_items" json:"line_items"`
}

// Lines returns the stored collection, synthesizing a single line from the
// legacy projection fields when no collection was stored. Callers see a
// uniform shape regardless of which schema era wrote the row.
func (o *Order) Lines() LineItems {
	if len(o.LineItems) > 0 {
		return o.LineItems
	}
	line := LineItem{
		Qty:       o.Quantity,
		UnitPrice: o.UnitPrice,
		Amount:    o.Total,
	}
	if o.SupplierID != nil {
		line.SupplierID = *o.SupplierID
	}
	if o.ProductID != nil {
		line.ProductID = *o.ProductID
	}
	return LineItems{line}
}

// ValidStatus reports whether s is a known order status value.
func ValidStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ErrTerminalStatus is returned when a transition is requested out of
// Delivered or Cancelled.
var ErrTerminalStatus = errors.New("order status is terminal")

// OrderDaySequence backs the per-day ordinal in order numbers. The counter is
// advanced with an atomic upsert so concurrent creations on the same day
// never observe the same ordinal.
type OrderDaySequence struct {
	Day     string `gorm:"primaryKey;type:varchar(10)"`
	Counter int    `gorm:"not null;default:0"`
}
