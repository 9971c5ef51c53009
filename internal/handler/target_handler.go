package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"salespro/internal/middleware"
	"salespro/internal/model"
	"salespro/internal/service"
	"salespro/pkg/response"

	"github.com/gin-gonic/gin"
)

type TargetHandler struct {
	rollupService service.RollupService
}

func NewTargetHandler(rollupService service.RollupService) *TargetHandler {
	return &TargetHandler{rollupService: rollupService}
}

func (h *TargetHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleRep)
	admin := middleware.RequireRole(model.RoleAdmin)

	targets := router.Group("/api/targets")
	{
		targets.POST("/suppliers", admin, h.SetSupplierTarget)
		targets.POST("/reps", admin, h.SetRepTarget)
		targets.GET("/overview", staff, h.Overview)
	}

	actuals := router.Group("/api/actuals")
	{
		actuals.POST("/suppliers", staff, h.RecordSupplierActual)
		actuals.POST("/reps", staff, h.RecordRepActual)
	}

	router.GET("/api/dashboard", staff, h.Dashboard)
}

// SetSupplierTarget sets or replaces a supplier's monthly target
// @Summary      Set supplier target
// @Tags         targets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.TargetEntry  true  "Target entry"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/targets/suppliers [post]
func (h *TargetHandler) SetSupplierTarget(c *gin.Context) {
	h.upsert(c, h.rollupService.SetSupplierTarget)
}

// SetRepTarget sets or replaces a representative's monthly target
// @Summary      Set rep target
// @Tags         targets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.TargetEntry  true  "Target entry"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/targets/reps [post]
func (h *TargetHandler) SetRepTarget(c *gin.Context) {
	h.upsert(c, h.rollupService.SetRepTarget)
}

// RecordSupplierActual records a supplier's month-to-date figure
// @Summary      Record supplier actual
// @Tags         targets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.TargetEntry  true  "Actual entry"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/actuals/suppliers [post]
func (h *TargetHandler) RecordSupplierActual(c *gin.Context) {
	h.upsert(c, h.rollupService.RecordSupplierActual)
}

// RecordRepActual records a representative's month-to-date figure
// @Summary      Record rep actual
// @Tags         targets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.TargetEntry  true  "Actual entry"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/actuals/reps [post]
func (h *TargetHandler) RecordRepActual(c *gin.Context) {
	h.upsert(c, h.rollupService.RecordRepActual)
}

func (h *TargetHandler) upsert(c *gin.Context, fn func(ctx context.Context, entry service.TargetEntry) error) {
	var entry service.TargetEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	if err := fn(c.Request.Context(), entry); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"saved": true}))
}

// Overview returns per-owner progress for a period plus the aggregate
// @Summary      Targets overview
// @Tags         targets
// @Security     BearerAuth
// @Produce      json
// @Param        month  query  int  false  "Month 1-12 (default: current)"
// @Param        year   query  int  false  "Year (default: current)"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/targets/overview [get]
func (h *TargetHandler) Overview(c *gin.Context) {
	now := time.Now()
	month := int(now.Month())
	year := now.Year()
	if raw := c.Query("month"); raw != "" {
		if m, err := strconv.Atoi(raw); err == nil {
			month = m
		}
	}
	if raw := c.Query("year"); raw != "" {
		if y, err := strconv.Atoi(raw); err == nil {
			year = y
		}
	}

	overview, err := h.rollupService.Overview(c.Request.Context(), month, year)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, overview))
}

// Dashboard returns the landing-page snapshot
// @Summary      Dashboard summary
// @Tags         targets
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/dashboard [get]
func (h *TargetHandler) Dashboard(c *gin.Context) {
	summary, err := h.rollupService.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
