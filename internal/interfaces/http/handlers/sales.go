// internal/interfaces/http/handlers/sales.go
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/domain/analytics"
	"github.com/your-org/shoe-pos/internal/domain/sales"
)

// SalesHandler handles sale commits and sales reporting
type SalesHandler struct {
	salesService     *sales.Service
	analyticsService *analytics.Service
	log              *logrus.Logger
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(salesService *sales.Service, analyticsService *analytics.Service, log *logrus.Logger) *SalesHandler {
	return &SalesHandler{
		salesService:     salesService,
		analyticsService: analyticsService,
		log:              log,
	}
}

// CreateSale handles POST /sales
func (h *SalesHandler) CreateSale(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			err = &sales.InvalidLineQuantityError{Line: -1, Reason: "unreadable request body"}
		}
		respondError(c, h.log, err)
		return
	}

	lines, err := sales.ParseCommitRequest(body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	sale, err := h.salesService.Commit(c.Request.Context(), lines)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// GetSale handles GET /sales/:id
func (h *SalesHandler) GetSale(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	sale, err := h.salesService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// GetSalesReport handles GET /sales/report
func (h *SalesHandler) GetSalesReport(c *gin.Context) {
	order := strings.ToLower(c.Query("order"))

	report, err := h.analyticsService.SalesReport(c.Request.Context(), order)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetDashboardStats handles GET /sales/dashboard-stats
func (h *SalesHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.analyticsService.DashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetSalesAnalytics handles GET /sales/analytics
func (h *SalesHandler) GetSalesAnalytics(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, h.log, analytics.ErrInvalidDays)
			return
		}
		days = n
	}

	result, err := h.analyticsService.SalesAnalytics(c.Request.Context(), days)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
