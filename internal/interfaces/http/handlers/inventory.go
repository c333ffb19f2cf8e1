// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/domain/inventory"
)

// InventoryHandler handles stock alert endpoints
type InventoryHandler struct {
	inventoryService *inventory.Service
	log              *logrus.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *inventory.Service, log *logrus.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		log:              log,
	}
}

// GetAlerts handles GET /inventory/alerts
func (h *InventoryHandler) GetAlerts(c *gin.Context) {
	var resolved *bool
	if raw := c.Query("resolved"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "resolved must be true or false", gin.H{"value": raw})
			return
		}
		resolved = &value
	}

	alerts, err := h.inventoryService.Alerts(c.Request.Context(), resolved)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// ResolveAlert handles PUT /inventory/alerts/:id/resolve
func (h *InventoryHandler) ResolveAlert(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	alert, err := h.inventoryService.ResolveAlert(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}
