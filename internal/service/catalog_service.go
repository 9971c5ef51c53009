package service

import (
	"context"
	"fmt"
	"strings"

	"salespro/internal/canon"
	"salespro/internal/model"
	"salespro/internal/repository"
)

// ImportRow is one row of a bulk product import: supplier and product names
// are required, the pack descriptor is optional.
type ImportRow struct {
	SupplierName string `json:"supplier_name"`
	ProductName  string `json:"product_name"`
	UnitPackInfo string `json:"unit_pack_info"`
}

// ImportSummary reports the outcome of one import pass. Duplicates are not
// errors; invalid rows (missing supplier or product name, or outside the
// requested supplier scope) are counted separately from duplicate skips.
type ImportSummary struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

// MergeOutcome values for one variant of a supplier merge.
const (
	MergeOutcomeRelinked = "relinked"
	MergeOutcomeRenamed  = "renamed"
	MergeOutcomeSelf     = "self"
	MergeOutcomeNotFound = "not_found"
)

// MergeResult reports what happened to one variant name.
type MergeResult struct {
	Variant string `json:"variant"`
	Outcome string `json:"outcome"`
}

// SupplierResponse is the list/picker projection of a supplier.
type SupplierResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// ProductResponse is the list/picker projection of a product, with its
// supplier resolved and the display label precomputed.
type ProductResponse struct {
	ID           uint   `json:"id"`
	SupplierID   uint   `json:"supplier_id"`
	SupplierName string `json:"supplier_name"`
	ProductName  string `json:"product_name"`
	UnitPackInfo string `json:"unit_pack_info"`
	Label        string `json:"label"`
}

// CatalogService owns supplier and product entities: upsert by normalized
// name, bulk import with duplicate suppression, and supplier merge/re-link.
type CatalogService interface {
	UpsertSupplier(ctx context.Context, name string) (uint, error)
	ImportSuppliers(ctx context.Context, names []string) (ImportSummary, error)
	ImportProducts(ctx context.Context, rows []ImportRow, supplierScope uint) (ImportSummary, error)
	MergeSupplier(ctx context.Context, canonicalName string, variants []string) ([]MergeResult, error)
	ListSuppliers(ctx context.Context) ([]SupplierResponse, error)
	ListProducts(ctx context.Context, search string, supplierID uint) ([]ProductResponse, error)
	AddProduct(ctx context.Context, supplierName, productName, unitPack string) (*ProductResponse, error)
}

type catalogService struct {
	supplierRepo repository.SupplierRepository
	productRepo  repository.ProductRepository
	txManager    repository.TransactionManager
}

func NewCatalogService(
	supplierRepo repository.SupplierRepository,
	productRepo repository.ProductRepository,
	txManager repository.TransactionManager,
) CatalogService {
	return &catalogService{
		supplierRepo: supplierRepo,
		productRepo:  productRepo,
		txManager:    txManager,
	}
}

// findSupplierFolded matches an existing supplier by folded name (trim,
// whitespace collapse, casefold — not the unit pipeline; supplier names carry
// no pack vocabulary).
func (s *catalogService) findSupplierFolded(ctx context.Context, name string) (*model.Supplier, error) {
	folded := canon.Fold(name)
	if folded == "" {
		return nil, nil
	}
	suppliers, err := s.supplierRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range suppliers {
		if canon.Fold(suppliers[i].Name) == folded {
			return &suppliers[i], nil
		}
	}
	return nil, nil
}

// UpsertSupplier resolves a supplier by case/space-insensitive name equality,
// creating it when absent. An empty name is a no-op and returns the zero
// sentinel id.
func (s *catalogService) UpsertSupplier(ctx context.Context, name string) (uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, nil
	}
	existing, err := s.findSupplierFolded(ctx, name)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}
	supplier := model.Supplier{Name: name}
	if err := s.supplierRepo.Create(ctx, &supplier); err != nil {
		return 0, err
	}
	return supplier.ID, nil
}

func (s *catalogService) ImportSuppliers(ctx context.Context, names []string) (ImportSummary, error) {
	var summary ImportSummary
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		seen := make(map[string]bool)
		for _, raw := range names {
			name := strings.TrimSpace(raw)
			folded := canon.Fold(name)
			if folded == "" {
				summary.Invalid++
				continue
			}
			if seen[folded] {
				summary.Duplicates++
				continue
			}
			existing, err := s.findSupplierFolded(txCtx, name)
			if err != nil {
				return err
			}
			seen[folded] = true
			if existing != nil {
				summary.Duplicates++
				continue
			}
			if err := s.supplierRepo.Create(txCtx, &model.Supplier{Name: name}); err != nil {
				return err
			}
			summary.Inserted++
		}
		return nil
	})
	if err != nil {
		return ImportSummary{}, err
	}
	return summary, nil
}

// ImportProducts runs one bulk import pass. Duplicate detection is by
// canonical pair key within the owning supplier, against a cache seeded
// lazily from persisted rows at the first touch of each supplier and extended
// with this pass's own inserts. The cache is scoped to this call; concurrent
// imports do not share it.
func (s *catalogService) ImportProducts(ctx context.Context, rows []ImportRow, supplierScope uint) (ImportSummary, error) {
	var summary ImportSummary

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existingBySupplier := make(map[uint]map[string]bool)

		loadExisting := func(supplierID uint) (map[string]bool, error) {
			if keys, ok := existingBySupplier[supplierID]; ok {
				return keys, nil
			}
			products, err := s.productRepo.ListBySupplier(txCtx, supplierID)
			if err != nil {
				return nil, err
			}
			keys := make(map[string]bool, len(products))
			for _, p := range products {
				name := p.ProductName
				if name == "" {
					name = p.LegacyName
				}
				keys[canon.PairKey(name, p.UnitPackInfo)] = true
			}
			existingBySupplier[supplierID] = keys
			return keys, nil
		}

		for _, row := range rows {
			supplierName := strings.TrimSpace(row.SupplierName)
			productName := strings.TrimSpace(row.ProductName)
			unitPack := strings.TrimSpace(row.UnitPackInfo)

			if supplierName == "" || productName == "" {
				summary.Invalid++
				continue
			}

			supplierID, err := s.UpsertSupplier(txCtx, supplierName)
			if err != nil {
				return err
			}
			if supplierID == 0 || (supplierScope > 0 && supplierID != supplierScope) {
				summary.Invalid++
				continue
			}

			keys, err := loadExisting(supplierID)
			if err != nil {
				return err
			}

			pairKey := canon.PairKey(productName, unitPack)
			if keys[pairKey] {
				summary.Duplicates++
				continue
			}

			product := model.Product{
				SupplierID:   supplierID,
				ProductName:  productName,
				UnitPackInfo: unitPack,
				// Mirror into the legacy column for pre-rename readers.
				LegacyName: productName,
			}
			if err := s.productRepo.Create(txCtx, &product); err != nil {
				return err
			}

			keys[pairKey] = true
			summary.Inserted++
		}
		return nil
	})

	if err != nil {
		return ImportSummary{}, err
	}
	return summary, nil
}

// MergeSupplier consolidates variant supplier names onto a canonical one.
// When the canonical supplier does not exist yet, the first found variant is
// renamed in place, preserving its id and every foreign key. Otherwise each
// variant's products are re-linked to the canonical id and the emptied
// variant row deleted, re-link and delete as one transaction per variant. A
// missing variant is reported, not an error; a variant resolving to the
// canonical row itself is a no-op.
func (s *catalogService) MergeSupplier(ctx context.Context, canonicalName string, variants []string) ([]MergeResult, error) {
	canonicalName = strings.TrimSpace(canonicalName)
	if canon.Fold(canonicalName) == "" {
		return nil, fmt.Errorf("%w: canonical supplier name is required", ErrValidation)
	}

	results := make([]MergeResult, 0, len(variants))
	for _, variant := range variants {
		canonical, err := s.findSupplierFolded(ctx, canonicalName)
		if err != nil {
			return nil, err
		}

		variantRow, err := s.findSupplierFolded(ctx, variant)
		if err != nil {
			return nil, err
		}
		if variantRow == nil {
			results = append(results, MergeResult{Variant: variant, Outcome: MergeOutcomeNotFound})
			continue
		}
		if canonical != nil && variantRow.ID == canonical.ID {
			results = append(results, MergeResult{Variant: variant, Outcome: MergeOutcomeSelf})
			continue
		}

		if canonical == nil {
			// Zero-cost merge: adopt the variant row as the canonical one.
			if err := s.supplierRepo.Rename(ctx, variantRow.ID, canonicalName); err != nil {
				return nil, err
			}
			results = append(results, MergeResult{Variant: variant, Outcome: MergeOutcomeRenamed})
			continue
		}

		err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.productRepo.Relink(txCtx, variantRow.ID, canonical.ID); err != nil {
				return err
			}
			return s.supplierRepo.Delete(txCtx, variantRow.ID)
		})
		if err != nil {
			return nil, err
		}
		results = append(results, MergeResult{Variant: variant, Outcome: MergeOutcomeRelinked})
	}
	return results, nil
}

func (s *catalogService) ListSuppliers(ctx context.Context) ([]SupplierResponse, error) {
	suppliers, err := s.supplierRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]SupplierResponse, 0, len(suppliers))
	for _, sup := range suppliers {
		res = append(res, SupplierResponse{ID: sup.ID, Name: sup.Name})
	}
	return res, nil
}

func (s *catalogService) ListProducts(ctx context.Context, search string, supplierID uint) ([]ProductResponse, error) {
	products, err := s.productRepo.List(ctx, search, supplierID)
	if err != nil {
		return nil, err
	}
	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		name := p.ProductName
		if name == "" {
			name = p.LegacyName
		}
		res = append(res, ProductResponse{
			ID:           p.ID,
			SupplierID:   p.SupplierID,
			SupplierName: p.Supplier.Name,
			ProductName:  name,
			UnitPackInfo: p.UnitPackInfo,
			Label:        p.Label(),
		})
	}
	return res, nil
}

// AddProduct is the ad-hoc single-row variant of import: same duplicate rule,
// same legacy-column mirroring.
func (s *catalogService) AddProduct(ctx context.Context, supplierName, productName, unitPack string) (*ProductResponse, error) {
	rows := []ImportRow{{SupplierName: supplierName, ProductName: productName, UnitPackInfo: unitPack}}
	summary, err := s.ImportProducts(ctx, rows, 0)
	if err != nil {
		return nil, err
	}
	if summary.Invalid > 0 {
		return nil, fmt.Errorf("%w: supplier and product name are required", ErrValidation)
	}
	if summary.Duplicates > 0 {
		return nil, fmt.Errorf("%w: product already exists for this supplier", ErrValidation)
	}

	supplier, err := s.findSupplierFolded(ctx, supplierName)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, ErrNotFound
	}
	products, err := s.productRepo.ListBySupplier(ctx, supplier.ID)
	if err != nil {
		return nil, err
	}
	pairKey := canon.PairKey(productName, unitPack)
	for _, p := range products {
		if canon.PairKey(p.ProductName, p.UnitPackInfo) == pairKey {
			return &ProductResponse{
				ID:           p.ID,
				SupplierID:   p.SupplierID,
				SupplierName: supplier.Name,
				ProductName:  p.ProductName,
				UnitPackInfo: p.UnitPackInfo,
				Label:        p.Label(),
			}, nil
		}
	}
	return nil, ErrNotFound
}
