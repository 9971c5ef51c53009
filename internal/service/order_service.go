package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"salespro/internal/model"
	"salespro/internal/repository"
	ws "salespro/internal/websocket"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderLineRequest is one zipped position of an order submission. Lines with
// a missing product reference or non-positive quantity are dropped, not
// rejected.
type OrderLineRequest struct {
	SupplierID uint            `json:"supplier_id"`
	ProductID  uint            `json:"product_id"`
	Qty        int             `json:"qty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Amount     decimal.Decimal `json:"amount"`
	Desc       string          `json:"desc"`
}

// CreateOrderRequest is the order submission header plus its lines.
type CreateOrderRequest struct {
	CustomerName     string             `json:"customer_name"`
	CustomerLocation string             `json:"customer_location"`
	PaymentMethod    string             `json:"payment_method"`
	Currency         string             `json:"currency"`
	DeliveryDate     string             `json:"delivery_date"`
	Notes            string             `json:"notes"`
	SalesRep         string             `json:"sales_rep"`
	TotalOverride    decimal.Decimal    `json:"total_override"`
	Lines            []OrderLineRequest `json:"lines"`
}

// OrderLineView is the uniform line projection: identical shape whether the
// row stored a line collection or only the legacy single-line fields.
type OrderLineView struct {
	SupplierID uint            `json:"supplier_id"`
	ProductID  uint            `json:"product_id"`
	Label      string          `json:"label"`
	Qty        int             `json:"qty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Amount     decimal.Decimal `json:"amount"`
	Desc       string          `json:"desc,omitempty"`
}

// OrderView is the sheet/history projection of one order.
type OrderView struct {
	ID               uint            `json:"id"`
	OrderNo          string          `json:"order_no"`
	CreatedAt        time.Time       `json:"created_at"`
	CustomerName     string          `json:"customer_name"`
	CustomerLocation string          `json:"customer_location"`
	PaymentMethod    string          `json:"payment_method"`
	Currency         string          `json:"currency"`
	DeliveryDate     string          `json:"delivery_date,omitempty"`
	Status           string          `json:"status"`
	Notes            string          `json:"notes,omitempty"`
	SalesRep         string          `json:"sales_rep"`
	Items            []OrderLineView `json:"items"`
	Total            decimal.Decimal `json:"total"`
}

// OrderService owns the order ledger: creation, the status state machine and
// the uniform read projections.
type OrderService interface {
	CreateOrder(ctx context.Context, callerID uint, req CreateOrderRequest) (*OrderView, error)
	UpdateStatus(ctx context.Context, id uint, status string) (*OrderView, error)
	GetOrderSheet(ctx context.Context, id uint) (*OrderView, error)
	ListHistory(ctx context.Context, filters repository.OrderFilters) ([]OrderView, int64, error)
	HistoryCSV(ctx context.Context, filters repository.OrderFilters) ([][]string, error)
	PreviewOrderNo(ctx context.Context) string
}

type orderService struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	supplierRepo repository.SupplierRepository
	userRepo     repository.UserRepository
	txManager    repository.TransactionManager
	hub          *ws.Hub
	defaultRep   string
}

// NewOrderService wires the order ledger. defaultRep names the operating
// account orders fall back to when no caller identity is available; the
// seeded staff and admin accounts are tried after it.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	supplierRepo repository.SupplierRepository,
	userRepo repository.UserRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
	defaultRep string,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		supplierRepo: supplierRepo,
		userRepo:     userRepo,
		txManager:    txManager,
		hub:          hub,
		defaultRep:   defaultRep,
	}
}

const dayFormat = "2006-01-02"

func (s *orderService) broadcast(event string, order *model.Order) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data": map[string]interface{}{
			"order_id": order.ID,
			"order_no": order.OrderNo,
			"status":   order.Status,
			"total":    order.Total,
		},
	})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}

// resolveRep implements the attribution chain: authenticated caller, then
// the rep named on the submission, then the configured default operating
// account, then the seeded baseline accounts. Failing all of them fails the
// creation; orders are never unattributed.
func (s *orderService) resolveRep(ctx context.Context, callerID uint, salesRepText string) (*model.User, error) {
	if callerID > 0 {
		if user, err := s.userRepo.GetByID(ctx, callerID); err == nil {
			return user, nil
		}
	}
	if text := strings.TrimSpace(salesRepText); text != "" {
		if user, err := s.userRepo.GetByIdentity(ctx, text); err == nil {
			return user, nil
		}
	}
	for _, username := range []string{s.defaultRep, "staff", "admin"} {
		if username == "" {
			continue
		}
		if user, err := s.userRepo.GetByUsername(ctx, username); err == nil {
			return user, nil
		}
	}
	return nil, ErrAttribution
}

func (s *orderService) CreateOrder(ctx context.Context, callerID uint, req CreateOrderRequest) (*OrderView, error) {
	// Resolve every referenced product up front; unknown references drop
	// their line rather than failing the submission.
	ids := make([]uint, 0, len(req.Lines))
	for _, line := range req.Lines {
		if line.ProductID > 0 {
			ids = append(ids, line.ProductID)
		}
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	productByID := make(map[uint]model.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}

	lines := make(model.LineItems, 0, len(req.Lines))
	for _, line := range req.Lines {
		product, ok := productByID[line.ProductID]
		if !ok || line.Qty <= 0 {
			continue
		}
		supplierID := line.SupplierID
		if supplierID == 0 {
			supplierID = product.SupplierID
		}
		amount := line.Amount
		if amount.Sign() <= 0 && line.UnitPrice.Sign() > 0 {
			amount = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty))).Round(2)
		}
		item := model.LineItem{
			SupplierID: supplierID,
			ProductID:  line.ProductID,
			Qty:        line.Qty,
			UnitPrice:  line.UnitPrice,
			Amount:     amount,
		}
		if desc := strings.TrimSpace(line.Desc); desc != "" {
			item.Desc = &desc
		}
		lines = append(lines, item)
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order needs at least one valid line", ErrValidation)
	}

	computed := decimal.Zero
	for _, line := range lines {
		computed = computed.Add(line.Amount)
	}
	computed = computed.Round(2)

	// Operator override takes precedence over the line sum; the divergence
	// is preserved in storage so a corrected total is not lost.
	total := computed
	if req.TotalOverride.Sign() > 0 {
		total = req.TotalOverride.Round(2)
	}

	rep, err := s.resolveRep(ctx, callerID, req.SalesRep)
	if err != nil {
		return nil, err
	}

	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = "COD"
	}
	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = "KES"
	}
	var deliveryDate *string
	if d := strings.TrimSpace(req.DeliveryDate); d != "" {
		deliveryDate = &d
	}

	first := lines[0]
	repID := rep.ID
	order := model.Order{
		CreatedAt:        time.Now(),
		RepID:            &repID,
		SalesRepName:     strings.TrimSpace(req.SalesRep),
		CustomerName:     strings.TrimSpace(req.CustomerName),
		CustomerLocation: strings.TrimSpace(req.CustomerLocation),
		PaymentMethod:    paymentMethod,
		Currency:         currency,
		DeliveryDate:     deliveryDate,
		Status:           model.OrderStatusPending,
		Notes:            strings.TrimSpace(req.Notes),
		Total:            total,
		SupplierID:       &first.SupplierID,
		ProductID:        &first.ProductID,
		Quantity:         first.Qty,
		UnitPrice:        first.UnitPrice,
		LineItems:        lines,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		now := order.CreatedAt
		seq, err := s.orderRepo.NextSequence(txCtx, now.Format(dayFormat))
		if err != nil {
			return err
		}
		order.OrderNo = fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), seq)
		return s.orderRepo.Create(txCtx, &order)
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("order_created", &order)
	return s.project(ctx, &order)
}

// UpdateStatus runs the state machine: Pending to Delivered or Cancelled.
// Delivered sets the delivery date to today when not already set. Delivered
// and Cancelled are terminal; unknown statuses are rejected without touching
// the record.
func (s *orderService) UpdateStatus(ctx context.Context, id uint, status string) (*OrderView, error) {
	if !model.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		return nil, err
	}

	if status == order.Status {
		return s.project(ctx, order)
	}
	if order.Status != model.OrderStatusPending {
		return nil, fmt.Errorf("%w: %s", model.ErrTerminalStatus, order.Status)
	}

	var deliveryDate *string
	if status == model.OrderStatusDelivered && (order.DeliveryDate == nil || *order.DeliveryDate == "") {
		today := time.Now().Format(dayFormat)
		deliveryDate = &today
	}

	if err := s.orderRepo.UpdateStatus(ctx, id, status, deliveryDate); err != nil {
		return nil, err
	}

	order.Status = status
	if deliveryDate != nil {
		order.DeliveryDate = deliveryDate
	}
	s.broadcast("order_status_changed", order)
	return s.project(ctx, order)
}

func (s *orderService) GetOrderSheet(ctx context.Context, id uint) (*OrderView, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		return nil, err
	}
	return s.project(ctx, order)
}

func (s *orderService) ListHistory(ctx context.Context, filters repository.OrderFilters) ([]OrderView, int64, error) {
	orders, total, err := s.orderRepo.List(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		view, err := s.project(ctx, &orders[i])
		if err != nil {
			return nil, 0, err
		}
		views = append(views, *view)
	}
	return views, total, nil
}

// HistoryCSV renders the filtered history as CSV rows, one row per line
// item. Legacy rows with no stored collection still produce exactly one row
// from the projection fields.
func (s *orderService) HistoryCSV(ctx context.Context, filters repository.OrderFilters) ([][]string, error) {
	views, _, err := s.ListHistory(ctx, filters)
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

	rows := [][]string{{
		"Order No", "Date", "Supplier", "Product", "Qty", "Unit Price",
		"Line Total", "Status", "Delivery Date", "Currency",
		"Customer", "Location", "Sales Rep", "Notes",
	}}
	for _, v := range views {
		for _, item := range v.Items {
			rows = append(rows, []string{
				v.OrderNo,
				v.CreatedAt.Format("2006-01-02 15:04:05"),
				supplierName[item.SupplierID],
				item.Label,
				fmt.Sprintf("%d", item.Qty),
				item.UnitPrice.StringFixed(2),
				item.Amount.StringFixed(2),
				v.Status,
				v.DeliveryDate,
				v.Currency,
				v.CustomerName,
				v.CustomerLocation,
				v.SalesRep,
				v.Notes,
			})
		}
	}
	return rows, nil
}

// PreviewOrderNo renders the number the next order of today would likely
// receive. Display only: the real number is allocated atomically at creation
// time, so a concurrent submission can still claim the previewed ordinal.
func (s *orderService) PreviewOrderNo(ctx context.Context) string {
	now := time.Now()
	seq, err := s.orderRepo.PeekSequence(ctx, now.Format(dayFormat))
	if err != nil {
		seq = 0
	}
	return fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), seq+1)
}

// project builds the uniform view for one order, resolving product labels and
// the representative display name.
func (s *orderService) project(ctx context.Context, order *model.Order) (*OrderView, error) {
	lines := order.Lines()

	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		if line.ProductID > 0 {
			ids = append(ids, line.ProductID)
		}
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	labelByID := make(map[uint]string, len(products))
	for _, p := range products {
		labelByID[p.ID] = p.Label()
	}

	items := make([]OrderLineView, 0, len(lines))
	for _, line := range lines {
		label := labelByID[line.ProductID]
		if label == "" {
			if line.Desc != nil && *line.Desc != "" {
				label = *line.Desc
			} else if line.ProductID > 0 {
				label = fmt.Sprintf("Product #%d", line.ProductID)
			} else {
				label = "Product"
			}
		}
		view := OrderLineView{
			SupplierID: line.SupplierID,
			ProductID:  line.ProductID,
			Label:      label,
			Qty:        line.Qty,
			UnitPrice:  line.UnitPrice,
			Amount:     line.Amount,
		}
		if line.Desc != nil {
			view.Desc = *line.Desc
		}
		items = append(items, view)
	}

	repName := strings.TrimSpace(order.SalesRepName)
	if repName == "" && order.RepID != nil {
		if user, err := s.userRepo.GetByID(ctx, *order.RepID); err == nil {
			repName = user.DisplayName()
		}
	}

	total := order.Total
	if total.Sign() == 0 {
		// Legacy rows may predate the stored total.
		sum := decimal.Zero
		for _, item := range items {
			sum = sum.Add(item.Amount)
		}
		total = sum.Round(2)
	}

	view := &OrderView{
		ID:               order.ID,
		OrderNo:          order.OrderNo,
		CreatedAt:        order.CreatedAt,
		CustomerName:     order.CustomerName,
		CustomerLocation: order.CustomerLocation,
		PaymentMethod:    order.PaymentMethod,
		Currency:         order.Currency,
		Status:           order.Status,
		Notes:            order.Notes,
		SalesRep:         repName,
		Items:            items,
		Total:            total,
	}
	if order.DeliveryDate != nil {
		view.DeliveryDate = *order.DeliveryDate
	}
	return view, nil
}
