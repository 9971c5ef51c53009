package repository

import (
	"context"
	"time"

	"salespro/internal/model"

	"gorm.io/gorm"
)

// OrderFilters narrows history queries. Query matches the order number or
// the supplier name of the legacy header supplier.
type OrderFilters struct {
	Query      string
	Status     string
	SupplierID uint
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	UpdateStatus(ctx context.Context, id uint, status string, deliveryDate *string) error
	List(ctx context.Context, filters OrderFilters) ([]model.Order, int64, error)
	Count(ctx context.Context) (int64, error)
	NextSequence(ctx context.Context, day string) (int, error)
	PeekSequence(ctx context.Context, day string) (int, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uint, status string, deliveryDate *string) error {
	updates := map[string]interface{}{"status": status}
	if deliveryDate != nil {
		updates["delivery_date"] = *deliveryDate
	}
	return GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).Updates(updates).Error
}

func (r *orderRepository) applyFilters(db *gorm.DB, filters OrderFilters) *gorm.DB {
	if filters.Query != "" {
		like := "%" + filters.Query + "%"
		db = db.Where(
			"lower(order_no) LIKE lower(?) OR EXISTS (SELECT 1 FROM suppliers s WHERE s.id = orders.supplier_id AND lower(s.name) LIKE lower(?))",
			like, like,
		)
	}
	if filters.Status != "" {
		db = db.Where("status = ?", filters.Status)
	}
	if filters.SupplierID > 0 {
		db = db.Where("supplier_id = ?", filters.SupplierID)
	}
	if filters.From != nil {
		db = db.Where("created_at >= ?", *filters.From)
	}
	if filters.To != nil {
		// To is inclusive of the whole day.
		db = db.Where("created_at < ?", filters.To.AddDate(0, 0, 1))
	}
	return db
}

func (r *orderRepository) List(ctx context.Context, filters OrderFilters) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db)
	if err := r.applyFilters(db.Model(&model.Order{}), filters).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	limit := filters.Limit
	if limit < 1 {
		limit = 50
	}
	offset := (page - 1) * limit

	if err := r.applyFilters(db, filters).
		Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Order{}).Count(&total).Error
	return total, err
}

// NextSequence advances the per-day order counter atomically and returns the
// new ordinal. Counting existing rows would race under concurrent creation;
// the conflict-update form serializes on the counter row instead.
func (r *orderRepository) NextSequence(ctx context.Context, day string) (int, error) {
	var counter int
	err := GetDB(ctx, r.db).Raw(
		`INSERT INTO order_day_sequences (day, counter) VALUES (?, 1)
		 ON CONFLICT (day) DO UPDATE SET counter = order_day_sequences.counter + 1
		 RETURNING counter`,
		day,
	).Scan(&counter).Error
	return counter, err
}

// PeekSequence reads the current per-day counter without advancing it. A day
// with no orders yet reads as zero.
func (r *orderRepository) PeekSequence(ctx context.Context, day string) (int, error) {
	var seq model.OrderDaySequence
	err := GetDB(ctx, r.db).First(&seq, "day = ?", day).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return seq.Counter, nil
}
