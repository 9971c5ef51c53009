package handler

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"salespro/internal/metrics"
	"salespro/internal/middleware"
	"salespro/internal/model"
	"salespro/internal/repository"
	"salespro/internal/service"
	"salespro/pkg/pagination"
	"salespro/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleRep)

	orders := router.Group("/api/orders")
	{
		orders.POST("", staff, h.CreateOrder)
		orders.GET("", staff, h.ListHistory)
		orders.GET("/export", staff, h.ExportHistory)
		orders.GET("/next-number", staff, h.NextNumber)
		orders.GET("/:id", staff, h.GetOrderSheet)
		orders.PATCH("/:id/status", staff, h.UpdateStatus)
	}
}

// createOrderRequest is the wire form of an order submission. Line fields
// arrive as parallel arrays zipped by position; ragged tails are padded with
// zero values and dropped by line validation.
type createOrderRequest struct {
	CustomerName     string `json:"customer_name"`
	CustomerLocation string `json:"customer_location"`
	PaymentMethod    string `json:"payment_method"`
	Currency         string `json:"currency"`
	DeliveryDate     string `json:"delivery_date"`
	Notes            string `json:"notes"`
	SalesRep         string `json:"sales_rep"`
	TotalOverride    string `json:"total_override"`

	SupplierIDs []uint   `json:"supplier_ids"`
	ProductIDs  []uint   `json:"product_ids"`
	Qtys        []int    `json:"qtys"`
	UnitPrices  []string `json:"unit_prices"`
	Amounts     []string `json:"amounts"`
	Descs       []string `json:"descs"`
}

func (r createOrderRequest) toService() service.CreateOrderRequest {
	n := len(r.ProductIDs)
	lines := make([]service.OrderLineRequest, 0, n)
	for i := 0; i < n; i++ {
		line := service.OrderLineRequest{ProductID: r.ProductIDs[i]}
		if i < len(r.SupplierIDs) {
			line.SupplierID = r.SupplierIDs[i]
		}
		if i < len(r.Qtys) {
			line.Qty = r.Qtys[i]
		}
		if i < len(r.UnitPrices) {
			line.UnitPrice = parseDecimal(r.UnitPrices[i])
		}
		if i < len(r.Amounts) {
			line.Amount = parseDecimal(r.Amounts[i])
		}
		if i < len(r.Descs) {
			line.Desc = r.Descs[i]
		}
		lines = append(lines, line)
	}

	return service.CreateOrderRequest{
		CustomerName:     r.CustomerName,
		CustomerLocation: r.CustomerLocation,
		PaymentMethod:    r.PaymentMethod,
		Currency:         r.Currency,
		DeliveryDate:     r.DeliveryDate,
		Notes:            r.Notes,
		SalesRep:         r.SalesRep,
		TotalOverride:    parseDecimal(r.TotalOverride),
		Lines:            lines,
	}
}

// parseDecimal treats blank or malformed money fields as zero; the line
// validation downstream decides what that means.
func parseDecimal(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CreateOrder records a multi-line order
// @Summary      Create order
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  createOrderRequest  true  "Order payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), middleware.CallerID(c), req.toService())
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.OrdersCreatedCounter.Inc()
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

func parseOrderFilters(c *gin.Context) repository.OrderFilters {
	params := pagination.Parse(c)
	filters := repository.OrderFilters{
		Query:  c.Query("q"),
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	}
	if raw := c.Query("supplier_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filters.SupplierID = uint(id)
		}
	}
	if raw := c.Query("from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filters.From = &t
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filters.To = &t
		}
	}
	return filters
}

// ListHistory returns the filtered order history, newest first
// @Summary      Order history
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        q            query  string  false  "Match order number or supplier name"
// @Param        status       query  string  false  "Filter by status"
// @Param        supplier_id  query  int     false  "Filter by legacy header supplier"
// @Param        from         query  string  false  "Start date (YYYY-MM-DD)"
// @Param        to           query  string  false  "End date, inclusive (YYYY-MM-DD)"
// @Param        page         query  int     false  "Page number (default: 1)"
// @Param        limit        query  int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/orders [get]
func (h *OrderHandler) ListHistory(c *gin.Context) {
	filters := parseOrderFilters(c)
	orders, total, err := h.orderService.ListHistory(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, orders, filters.Page, filters.Limit, total))
}

// ExportHistory downloads the filtered history as CSV, one row per line item
// @Summary      Export order history CSV
// @Tags         orders
// @Security     BearerAuth
// @Produce      text/csv
// @Success      200  {string}  string  "CSV body"
// @Router       /api/orders/export [get]
func (h *OrderHandler) ExportHistory(c *gin.Context) {
	filters := parseOrderFilters(c)
	filters.Limit = pagination.MaxLimit * 100 // exports are not paginated
	rows, err := h.orderService.HistoryCSV(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="orders.csv"`)
	writer := csv.NewWriter(c.Writer)
	_ = writer.WriteAll(rows)
	writer.Flush()
}

// NextNumber previews the order number the next submission would receive
// @Summary      Preview next order number
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/orders/next-number [get]
func (h *OrderHandler) NextNumber(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"order_no": h.orderService.PreviewOrderNo(c.Request.Context()),
	}))
}

// GetOrderSheet returns the printable sheet projection of one order
// @Summary      Order sheet
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  int  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrderSheet(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid order id"))
		return
	}

	order, err := h.orderService.GetOrderSheet(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus moves an order through the status state machine
// @Summary      Update order status
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  int                  true  "Order ID"
// @Param        payload  body  updateStatusRequest  true  "New status"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid order id"))
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), uint(id), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}
