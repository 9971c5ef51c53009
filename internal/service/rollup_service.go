package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"salespro/internal/model"
	"salespro/internal/repository"

	"github.com/shopspring/decimal"
)

// TargetEntry records or replaces the target for one owner and period.
type TargetEntry struct {
	OwnerID uint            `json:"owner_id"`
	Month   int             `json:"month"`
	Year    int             `json:"year"`
	Value   decimal.Decimal `json:"value"`
}

// ProgressRow is one owner's progress within a period overview.
type ProgressRow struct {
	OwnerID   uint   `json:"owner_id"`
	OwnerName string `json:"owner_name"`
	model.Progress
}

// TargetsOverview is the per-period management view: every owner with a
// target or an actual for the period, the aggregate across all owners, and
// the most recently entered targets for context.
type TargetsOverview struct {
	Month           int                    `json:"month"`
	Year            int                    `json:"year"`
	Suppliers       []ProgressRow          `json:"suppliers"`
	Reps            []ProgressRow          `json:"reps"`
	Overall         model.Progress         `json:"overall"`
	RecentSuppliers []model.SupplierTarget `json:"recent_supplier_targets"`
	RecentReps      []model.RepTarget      `json:"recent_rep_targets"`
}

// DashboardSummary is the landing-page snapshot.
type DashboardSummary struct {
	OrderCount       int64          `json:"order_count"`
	SupplierCount    int64          `json:"supplier_count"`
	SupplierProgress model.Progress `json:"supplier_progress"`
	RepProgress      model.Progress `json:"rep_progress"`
}

// RollupService owns monthly targets, month-to-date actuals and the progress
// rollups derived from them.
type RollupService interface {
	SetSupplierTarget(ctx context.Context, entry TargetEntry) error
	SetRepTarget(ctx context.Context, entry TargetEntry) error
	RecordSupplierActual(ctx context.Context, entry TargetEntry) error
	RecordRepActual(ctx context.Context, entry TargetEntry) error

	SupplierProgress(ctx context.Context, supplierID uint, month, year int) (model.Progress, error)
	RepProgress(ctx context.Context, repID uint, month, year int) (model.Progress, error)

	Overview(ctx context.Context, month, year int) (*TargetsOverview, error)
	Dashboard(ctx context.Context) (*DashboardSummary, error)
}

type rollupService struct {
	targetRepo   repository.TargetRepository
	supplierRepo repository.SupplierRepository
	userRepo     repository.UserRepository
	orderRepo    repository.OrderRepository
}

func NewRollupService(
	targetRepo repository.TargetRepository,
	supplierRepo repository.SupplierRepository,
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
) RollupService {
	return &rollupService{
		targetRepo:   targetRepo,
		supplierRepo: supplierRepo,
		userRepo:     userRepo,
		orderRepo:    orderRepo,
	}
}

func validateEntry(entry TargetEntry) error {
	if entry.OwnerID == 0 {
		return fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	if entry.Month < 1 || entry.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrValidation, entry.Month)
	}
	if entry.Year < 2000 {
		return fmt.Errorf("%w: year %d out of range", ErrValidation, entry.Year)
	}
	if entry.Value.Sign() < 0 {
		return fmt.Errorf("%w: value must not be negative", ErrValidation)
	}
	return nil
}

func (s *rollupService) SetSupplierTarget(ctx context.Context, entry TargetEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	return s.targetRepo.UpsertSupplierTarget(ctx, &model.SupplierTarget{
		SupplierID:  entry.OwnerID,
		Month:       entry.Month,
		Year:        entry.Year,
		TargetValue: entry.Value.Round(2),
	})
}

func (s *rollupService) SetRepTarget(ctx context.Context, entry TargetEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	return s.targetRepo.UpsertRepTarget(ctx, &model.RepTarget{
		RepID:       entry.OwnerID,
		Month:       entry.Month,
		Year:        entry.Year,
		TargetValue: entry.Value.Round(2),
	})
}

func (s *rollupService) RecordSupplierActual(ctx context.Context, entry TargetEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	return s.targetRepo.UpsertSupplierActual(ctx, &model.SupplierActual{
		SupplierID: entry.OwnerID,
		Month:      entry.Month,
		Year:       entry.Year,
		MTDValue:   entry.Value.Round(2),
	})
}

func (s *rollupService) RecordRepActual(ctx context.Context, entry TargetEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	return s.targetRepo.UpsertRepActual(ctx, &model.RepActual{
		RepID:    entry.OwnerID,
		Month:    entry.Month,
		Year:     entry.Year,
		MTDValue: entry.Value.Round(2),
	})
}

// progress derives the rollup from a target and an actual total. The ratio is
// a percentage, zero rather than undefined when no target is set, and the
// remaining amount is floored at zero so overachievement does not read as a
// negative gap.
func progress(target, actual decimal.Decimal) model.Progress {
	p := model.Progress{
		TargetTotal: target,
		ActualTotal: actual,
		Remaining:   decimal.Zero,
	}
	if target.Sign() > 0 {
		ratio, _ := actual.Div(target).Mul(decimal.NewFromInt(100)).Float64()
		p.Ratio = ratio
	}
	if rem := target.Sub(actual); rem.Sign() > 0 {
		p.Remaining = rem
	}
	return p
}

func (s *rollupService) SupplierProgress(ctx context.Context, supplierID uint, month, year int) (model.Progress, error) {
	target, err := s.targetRepo.SupplierTargetTotal(ctx, supplierID, month, year)
	if err != nil {
		return model.Progress{}, err
	}
	actual, err := s.targetRepo.SupplierActualTotal(ctx, supplierID, month, year)
	if err != nil {
		return model.Progress{}, err
	}
	return progress(target, actual), nil
}

func (s *rollupService) RepProgress(ctx context.Context, repID uint, month, year int) (model.Progress, error) {
	target, err := s.targetRepo.RepTargetTotal(ctx, repID, month, year)
	if err != nil {
		return model.Progress{}, err
	}
	actual, err := s.targetRepo.RepActualTotal(ctx, repID, month, year)
	if err != nil {
		return model.Progress{}, err
	}
	return progress(target, actual), nil
}

func (s *rollupService) Overview(ctx context.Context, month, year int) (*TargetsOverview, error) {
	if month < 1 || month > 12 || year < 2000 {
		return nil, fmt.Errorf("%w: invalid period %d/%d", ErrValidation, month, year)
	}

	supplierTargets, err := s.targetRepo.SupplierTargets(ctx, month, year)
	if err != nil {
		return nil, err
	}
	supplierActuals, err := s.targetRepo.SupplierActuals(ctx, month, year)
	if err != nil {
		return nil, err
	}
	repTargets, err := s.targetRepo.RepTargets(ctx, month, year)
	if err != nil {
		return nil, err
	}
	repActuals, err := s.targetRepo.RepActuals(ctx, month, year)
	if err != nil {
		return nil, err
	}

	suppliers, err := s.supplierRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	supplierName := make(map[uint]string, len(suppliers))
	for _, sup := range suppliers {
		supplierName[sup.ID] = sup.Name
	}

	supplierTargetBy := make(map[uint]decimal.Decimal, len(supplierTargets))
	for _, t := range supplierTargets {
		supplierTargetBy[t.SupplierID] = t.TargetValue
	}
	supplierActualBy := make(map[uint]decimal.Decimal, len(supplierActuals))
	for _, a := range supplierActuals {
		supplierActualBy[a.SupplierID] = a.MTDValue
	}

	overview := &TargetsOverview{Month: month, Year: year}
	for _, id := range ownerIDs(supplierTargetBy, supplierActualBy) {
		overview.Suppliers = append(overview.Suppliers, ProgressRow{
			OwnerID:   id,
			OwnerName: supplierName[id],
			Progress:  progress(supplierTargetBy[id], supplierActualBy[id]),
		})
	}

	repTargetBy := make(map[uint]decimal.Decimal, len(repTargets))
	for _, t := range repTargets {
		repTargetBy[t.RepID] = t.TargetValue
	}
	repActualBy := make(map[uint]decimal.Decimal, len(repActuals))
	for _, a := range repActuals {
		repActualBy[a.RepID] = a.MTDValue
	}

	repIDs := ownerIDs(repTargetBy, repActualBy)
	reps, err := s.userRepo.GetByIDs(ctx, repIDs)
	if err != nil {
		return nil, err
	}
	repName := make(map[uint]string, len(reps))
	for _, u := range reps {
		repName[u.ID] = u.DisplayName()
	}
	for _, id := range repIDs {
		overview.Reps = append(overview.Reps, ProgressRow{
			OwnerID:   id,
			OwnerName: repName[id],
			Progress:  progress(repTargetBy[id], repActualBy[id]),
		})
	}

	targetSum, actualSum := decimal.Zero, decimal.Zero
	for _, v := range supplierTargetBy {
		targetSum = targetSum.Add(v)
	}
	for _, v := range supplierActualBy {
		actualSum = actualSum.Add(v)
	}
	overview.Overall = progress(targetSum, actualSum)

	const recentLimit = 5
	if overview.RecentSuppliers, err = s.targetRepo.RecentSupplierTargets(ctx, recentLimit); err != nil {
		return nil, err
	}
	if overview.RecentReps, err = s.targetRepo.RecentRepTargets(ctx, recentLimit); err != nil {
		return nil, err
	}

	return overview, nil
}

func (s *rollupService) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	orderCount, err := s.orderRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	supplierCount, err := s.supplierRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	month, year := int(now.Month()), now.Year()

	supplierProgress, err := s.SupplierProgress(ctx, 0, month, year)
	if err != nil {
		return nil, err
	}
	repProgress, err := s.RepProgress(ctx, 0, month, year)
	if err != nil {
		return nil, err
	}

	return &DashboardSummary{
		OrderCount:       orderCount,
		SupplierCount:    supplierCount,
		SupplierProgress: supplierProgress,
		RepProgress:      repProgress,
	}, nil
}

// ownerIDs unions the keys of both maps in ascending order so the overview is
// stable across calls.
func ownerIDs(a, b map[uint]decimal.Decimal) []uint {
	seen := make(map[uint]bool, len(a)+len(b))
	ids := make([]uint, 0, len(a)+len(b))
	for id := range a {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range b {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
