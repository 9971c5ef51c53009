package handler

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"salespro/internal/database"
	"salespro/internal/model"
	"salespro/internal/repository"
	"salespro/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newImportRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Reconcile(db))

	catalogService := service.NewCatalogService(
		repository.NewSupplierRepository(db),
		repository.NewProductRepository(db),
		repository.NewTransactionManager(db),
	)
	h := NewCatalogHandler(catalogService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/products/import", h.ImportProducts)
	router.POST("/api/suppliers/import", h.ImportSuppliers)
	return router, db
}

func csvUpload(t *testing.T, body string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("file", "upload.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

func TestImportProductsResolvesColumnsByHeaderName(t *testing.T) {
	router, db := newImportRouter(t)

	// Columns in an order other than supplier-first; names via synonyms.
	body, contentType := csvUpload(t, "product_name,supplier,unit\nRice,Acme,1x48\n")
	req := httptest.NewRequest(http.MethodPost, "/api/products/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var suppliers []model.Supplier
	require.NoError(t, db.Find(&suppliers).Error)
	require.Len(t, suppliers, 1, "only the named supplier is created, never a header cell")
	assert.Equal(t, "Acme", suppliers[0].Name)

	var product model.Product
	require.NoError(t, db.First(&product).Error)
	assert.Equal(t, "Rice", product.ProductName)
	assert.Equal(t, "1x48", product.UnitPackInfo)
	assert.Equal(t, suppliers[0].ID, product.SupplierID)
}

func TestImportProductsHeaderCaseAndOrderVariants(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"canonical order", "supplier,product_name,unit_pack_info"},
		{"upper case", "SUPPLIER,PRODUCT_NAME,UNIT_PACK_INFO"},
		{"synonyms", "supplier_name,product,pack"},
		{"pack column first", "unit,supplier,product_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, db := newImportRouter(t)

			rows := map[string]string{
				"supplier":       "Acme",
				"supplier_name":  "Acme",
				"product_name":   "Rice",
				"product":        "Rice",
				"unit_pack_info": "1x48",
				"unit":           "1x48",
				"pack":           "1x48",
			}
			line := ""
			for i, col := range splitHeader(tt.header) {
				if i > 0 {
					line += ","
				}
				line += rows[col]
			}

			body, contentType := csvUpload(t, tt.header+"\n"+line+"\n")
			req := httptest.NewRequest(http.MethodPost, "/api/products/import", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var product model.Product
			require.NoError(t, db.First(&product).Error)
			assert.Equal(t, "Rice", product.ProductName)
			assert.Equal(t, "1x48", product.UnitPackInfo)
		})
	}
}

func TestImportProductsRejectsMissingColumns(t *testing.T) {
	router, db := newImportRouter(t)

	// No product column anywhere in the header.
	body, contentType := csvUpload(t, "supplier,quantity\nAcme,10\n")
	req := httptest.NewRequest(http.MethodPost, "/api/products/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var count int64
	require.NoError(t, db.Model(&model.Supplier{}).Count(&count).Error)
	assert.Zero(t, count, "a rejected upload imports nothing")
}

func TestImportProductsPackColumnOptional(t *testing.T) {
	router, db := newImportRouter(t)

	body, contentType := csvUpload(t, "supplier,product_name\nAcme,Rice 1x48\n")
	req := httptest.NewRequest(http.MethodPost, "/api/products/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var product model.Product
	require.NoError(t, db.First(&product).Error)
	assert.Equal(t, "Rice 1x48", product.ProductName)
	assert.Empty(t, product.UnitPackInfo)
}

func splitHeader(header string) []string {
	cols := strings.Split(header, ",")
	for i, c := range cols {
		cols[i] = strings.ToLower(c)
	}
	return cols
}
