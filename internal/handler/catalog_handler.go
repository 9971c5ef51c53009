package handler

import (
	"encoding/csv"
	"io"
	"net/http"
	"strconv"
	"strings"

	"salespro/internal/metrics"
	"salespro/internal/middleware"
	"salespro/internal/model"
	"salespro/internal/service"
	"salespro/pkg/response"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleRep)
	admin := middleware.RequireRole(model.RoleAdmin)

	suppliers := router.Group("/api/suppliers")
	{
		suppliers.GET("", staff, h.ListSuppliers)
		suppliers.POST("", staff, h.UpsertSupplier)
		suppliers.POST("/import", admin, h.ImportSuppliers)
		suppliers.POST("/merge", admin, h.MergeSupplier)
	}

	products := router.Group("/api/products")
	{
		products.GET("", staff, h.ListProducts)
		products.POST("", staff, h.AddProduct)
		products.POST("/import", admin, h.ImportProducts)
	}
}

// ListSuppliers returns all suppliers ordered by name
// @Summary      List suppliers
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/suppliers [get]
func (h *CatalogHandler) ListSuppliers(c *gin.Context) {
	suppliers, err := h.catalogService.ListSuppliers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, suppliers))
}

type upsertSupplierRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpsertSupplier creates a supplier or returns the existing one by
// case/space-insensitive name match
// @Summary      Upsert supplier
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  upsertSupplierRequest  true  "Supplier payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/suppliers [post]
func (h *CatalogHandler) UpsertSupplier(c *gin.Context) {
	var req upsertSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	id, err := h.catalogService.UpsertSupplier(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	if id == 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "supplier name is required"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id}))
}

// ImportSuppliers bulk-imports supplier names from an uploaded CSV. The first
// column of every row is taken as the name; a header row named "supplier" or
// "name" is skipped.
// @Summary      Import suppliers from CSV
// @Tags         catalog
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "CSV file"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/suppliers/import [post]
func (h *CatalogHandler) ImportSuppliers(c *gin.Context) {
	records, err := readCSVUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	names := make([]string, 0, len(records))
	for i, record := range records {
		if len(record) == 0 {
			continue
		}
		cell := strings.TrimSpace(record[0])
		if i == 0 && isHeaderCell(cell, "supplier", "supplier_name", "name") {
			continue
		}
		names = append(names, cell)
	}

	summary, err := h.catalogService.ImportSuppliers(c.Request.Context(), names)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// ImportProducts bulk-imports catalog rows from an uploaded CSV. Columns are
// resolved by header name in any order: supplier/supplier_name,
// product_name/product, unit_pack_info/unit/pack. Uploads whose header names
// no supplier or product column are rejected. An optional supplier_id form
// field restricts the import to that supplier; rows resolving elsewhere count
// as invalid.
// @Summary      Import products from CSV
// @Tags         catalog
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file         formData  file  true   "CSV file"
// @Param        supplier_id  formData  int   false  "Restrict rows to this supplier"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/products/import [post]
func (h *CatalogHandler) ImportProducts(c *gin.Context) {
	records, err := readCSVUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	var supplierScope uint
	if raw := c.PostForm("supplier_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid supplier_id"))
			return
		}
		supplierScope = uint(id)
	}

	if len(records) == 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "CSV file is empty"))
		return
	}
	supplierCol, productCol, packCol, ok := importColumnIndexes(records[0])
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest,
			"CSV header must name a supplier and a product_name column"))
		return
	}

	rows := make([]service.ImportRow, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		rows = append(rows, service.ImportRow{
			SupplierName: cellAt(record, supplierCol),
			ProductName:  cellAt(record, productCol),
			UnitPackInfo: cellAt(record, packCol),
		})
	}

	summary, err := h.catalogService.ImportProducts(c.Request.Context(), rows, supplierScope)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordImport(summary.Inserted, summary.Duplicates, summary.Invalid)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

type mergeSupplierRequest struct {
	CanonicalName string   `json:"canonical_name" binding:"required"`
	Variants      []string `json:"variants" binding:"required"`
}

// MergeSupplier consolidates variant supplier names onto one canonical name
// @Summary      Merge supplier name variants
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  mergeSupplierRequest  true  "Merge payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/suppliers/merge [post]
func (h *CatalogHandler) MergeSupplier(c *gin.Context) {
	var req mergeSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	results, err := h.catalogService.MergeSupplier(c.Request.Context(), req.CanonicalName, req.Variants)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, results))
}

// ListProducts returns products with optional search and supplier filter
// @Summary      List products
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        search       query  string  false  "Match against product name or pack"
// @Param        supplier_id  query  int     false  "Filter by supplier"
// @Success      200  {object}  response.Response
// @Router       /api/products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var supplierID uint
	if raw := c.Query("supplier_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid supplier_id"))
			return
		}
		supplierID = uint(id)
	}

	products, err := h.catalogService.ListProducts(c.Request.Context(), c.Query("search"), supplierID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}

type addProductRequest struct {
	SupplierName string `json:"supplier_name" binding:"required"`
	ProductName  string `json:"product_name" binding:"required"`
	UnitPackInfo string `json:"unit_pack_info"`
}

// AddProduct adds a single product, rejecting canonical duplicates
// @Summary      Add product
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  addProductRequest  true  "Product payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/products [post]
func (h *CatalogHandler) AddProduct(c *gin.Context) {
	var req addProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.catalogService.AddProduct(c.Request.Context(), req.SupplierName, req.ProductName, req.UnitPackInfo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// readCSVUpload reads the "file" part of a multipart upload as CSV records.
// Ragged rows are tolerated.
func readCSVUpload(c *gin.Context) ([][]string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func isHeaderCell(cell string, candidates ...string) bool {
	lowered := strings.ToLower(cell)
	for _, candidate := range candidates {
		if lowered == candidate {
			return true
		}
	}
	return false
}

// importColumnIndexes resolves the product import header by name,
// case-insensitively and in any column order, accepting the synonyms
// operators actually type. The first match wins per column. A header naming
// no supplier or product column means the file is not a product sheet.
func importColumnIndexes(header []string) (supplier, product, pack int, ok bool) {
	supplier, product, pack = -1, -1, -1
	for i, cell := range header {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "supplier", "supplier_name":
			if supplier < 0 {
				supplier = i
			}
		case "product_name", "product":
			if product < 0 {
				product = i
			}
		case "unit_pack_info", "unit", "pack":
			if pack < 0 {
				pack = i
			}
		}
	}
	return supplier, product, pack, supplier >= 0 && product >= 0
}

// cellAt reads a column tolerating ragged rows and an absent optional column.
func cellAt(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
