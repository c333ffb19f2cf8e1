// internal/interfaces/http/handlers/shoe.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/domain/catalog"
	"github.com/your-org/shoe-pos/internal/domain/inventory"
)

// ShoeHandler handles catalog endpoints
type ShoeHandler struct {
	catalogService   *catalog.Service
	inventoryService *inventory.Service
	log              *logrus.Logger
}

// NewShoeHandler creates a new shoe handler
func NewShoeHandler(catalogService *catalog.Service, inventoryService *inventory.Service, log *logrus.Logger) *ShoeHandler {
	return &ShoeHandler{
		catalogService:   catalogService,
		inventoryService: inventoryService,
		log:              log,
	}
}

// GetShoes handles GET /shoes
func (h *ShoeHandler) GetShoes(c *gin.Context) {
	shoes, err := h.catalogService.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, shoes)
}

// GetShoe handles GET /shoes/:id
func (h *ShoeHandler) GetShoe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	shoe, err := h.catalogService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, shoe)
}

// CreateShoe handles POST /shoes
func (h *ShoeHandler) CreateShoe(c *gin.Context) {
	var req catalog.ShoeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.log, err)
		return
	}

	shoe, err := h.catalogService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, shoe)
}

// UpdateShoe handles PUT /shoes/:id
func (h *ShoeHandler) UpdateShoe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req catalog.ShoeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.log, err)
		return
	}

	shoe, err := h.catalogService.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, shoe)
}

// DeleteShoe handles DELETE /shoes/:id
func (h *ShoeHandler) DeleteShoe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AdjustStock handles POST /shoes/:id/stock
func (h *ShoeHandler) AdjustStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req catalog.AdjustStockInput
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.log, err)
		return
	}

	shoe, err := h.catalogService.AdjustStock(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, shoe)
}

// GetMovements handles GET /shoes/:id/movements
func (h *ShoeHandler) GetMovements(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	movements, err := h.inventoryService.Movements(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, movements)
}
