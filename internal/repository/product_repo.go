package repository

import (
	"context"

	"salespro/internal/model"

	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Product, error)
	ListBySupplier(ctx context.Context, supplierID uint) ([]model.Product, error)
	List(ctx context.Context, search string, supplierID uint) ([]model.Product, error)
	Relink(ctx context.Context, fromSupplierID, toSupplierID uint) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Product, error) {
	var products []model.Product
	if len(ids) == 0 {
		return products, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ListBySupplier feeds the per-supplier duplicate cache at first touch during
// an import pass.
func (r *productRepository) ListBySupplier(ctx context.Context, supplierID uint) ([]model.Product, error) {
	var products []model.Product
	if err := GetDB(ctx, r.db).Where("supplier_id = ?", supplierID).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) List(ctx context.Context, search string, supplierID uint) ([]model.Product, error) {
	var products []model.Product

	db := GetDB(ctx, r.db).Preload("Supplier")
	if search != "" {
		like := "%" + search + "%"
		db = db.Where("lower(product_name) LIKE lower(?) OR lower(COALESCE(unit_pack_info,'')) LIKE lower(?)", like, like)
	}
	if supplierID > 0 {
		db = db.Where("supplier_id = ?", supplierID)
	}

	if err := db.Order("product_name").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Relink moves every product owned by one supplier to another. Used by
// supplier merges; runs inside the merge transaction so a crash never leaves
// products referencing a deleted supplier.
func (r *productRepository) Relink(ctx context.Context, fromSupplierID, toSupplierID uint) error {
	return GetDB(ctx, r.db).Model(&model.Product{}).
		Where("supplier_id = ?", fromSupplierID).
		Update("supplier_id", toSupplierID).Error
}
