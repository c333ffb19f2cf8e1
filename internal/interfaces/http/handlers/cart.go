// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/domain/cart"
)

// CartHandler handles session cart endpoints
type CartHandler struct {
	cartService *cart.Service
	log         *logrus.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service, log *logrus.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		log:         log,
	}
}

// AddItemRequest is the body of POST /carts/:session/items. Quantity may
// be a number or a numeric string, as typed into the quantity field.
type AddItemRequest struct {
	ShoeID   uint            `json:"shoeId" binding:"required"`
	Quantity json.RawMessage `json:"quantity"`
}

// UpdateItemRequest is the body of PUT /carts/:session/items/:shoeId
type UpdateItemRequest struct {
	Quantity json.RawMessage `json:"quantity"`
}

// CreateCart handles POST /carts
func (h *CartHandler) CreateCart(c *gin.Context) {
	view, err := h.cartService.Create(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// GetCart handles GET /carts/:session
func (h *CartHandler) GetCart(c *gin.Context) {
	view, err := h.cartService.Get(c.Request.Context(), c.Param("session"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddItem handles POST /carts/:session/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.log, err)
		return
	}

	qty := 1
	if len(req.Quantity) > 0 {
		parsed, err := cart.ParseQuantity(rawQuantity(req.Quantity))
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		qty = parsed
	}

	view, err := h.cartService.AddItem(c.Request.Context(), c.Param("session"), req.ShoeID, qty)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateItem handles PUT /carts/:session/items/:shoeId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	shoeID, ok := parseID(c, "shoeId")
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.log, err)
		return
	}

	qty, err := cart.ParseQuantity(rawQuantity(req.Quantity))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	view, err := h.cartService.SetQuantity(c.Request.Context(), c.Param("session"), shoeID, qty)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RemoveItem handles DELETE /carts/:session/items/:shoeId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	shoeID, ok := parseID(c, "shoeId")
	if !ok {
		return
	}

	view, err := h.cartService.RemoveItem(c.Request.Context(), c.Param("session"), shoeID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ClearCart handles DELETE /carts/:session
func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.cartService.Clear(c.Request.Context(), c.Param("session")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Checkout handles POST /carts/:session/checkout
func (h *CartHandler) Checkout(c *gin.Context) {
	sale, err := h.cartService.Checkout(c.Request.Context(), c.Param("session"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// rawQuantity unwraps a JSON string so "3" and 3 parse the same way
func rawQuantity(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
