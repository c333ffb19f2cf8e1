package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/your-org/shoe-pos/internal/domain/analytics"
	"github.com/your-org/shoe-pos/internal/domain/cart"
	"github.com/your-org/shoe-pos/internal/domain/catalog"
	"github.com/your-org/shoe-pos/internal/domain/inventory"
	"github.com/your-org/shoe-pos/internal/domain/sales"
)

func TestDescribe(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"empty cart", sales.ErrEmptyCart, http.StatusBadRequest, "EmptyCart"},
		{"invalid line", &sales.InvalidLineQuantityError{Line: 2, Reason: "must be positive"}, http.StatusBadRequest, "InvalidLineQuantity"},
		{"unknown item", &sales.UnknownItemError{ShoeIDs: []uint{7}}, http.StatusUnprocessableEntity, "UnknownItem"},
		{"insufficient stock", &sales.InsufficientStockError{Items: []sales.Shortage{{ShoeID: 1}}}, http.StatusConflict, "InsufficientStock"},
		{"persistence", &sales.PersistenceError{Err: errors.New("disk full")}, http.StatusServiceUnavailable, "PersistenceFailure"},
		{"sale not found", sales.ErrSaleNotFound, http.StatusNotFound, "NotFound"},
		{"shoe not found", fmt.Errorf("lookup: %w", catalog.ErrShoeNotFound), http.StatusNotFound, "NotFound"},
		{"catalog validation", &catalog.ValidationError{Field: "price", Message: "must not be negative"}, http.StatusBadRequest, "ValidationError"},
		{"cart quantity", cart.ErrInvalidQuantity, http.StatusBadRequest, "InvalidQuantity"},
		{"cart stock", &cart.StockExceededError{ShoeID: 1, Available: 2, Requested: 3}, http.StatusConflict, "StockExceeded"},
		{"cart conflict", cart.ErrCartConflict, http.StatusConflict, "CartConflict"},
		{"checkout in progress", cart.ErrCheckoutInProgress, http.StatusConflict, "CartConflict"},
		{"cart missing", cart.ErrCartNotFound, http.StatusNotFound, "NotFound"},
		{"line missing", cart.ErrLineNotFound, http.StatusNotFound, "NotFound"},
		{"alert missing", inventory.ErrAlertNotFound, http.StatusNotFound, "NotFound"},
		{"report order", analytics.ErrInvalidOrder, http.StatusBadRequest, "ValidationError"},
		{"analytics days", analytics.ErrInvalidDays, http.StatusBadRequest, "ValidationError"},
		{"body too large", fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 16}), http.StatusRequestEntityTooLarge, "RequestTooLarge"},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, "Timeout"},
		{"anything else", errors.New("boom"), http.StatusInternalServerError, "InternalError"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := describe(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestDescribe_PersistenceHidesCause(t *testing.T) {
	_, body := describe(&sales.PersistenceError{Err: errors.New("pq: password authentication failed")})
	assert.NotContains(t, body.Message, "password")
}

func TestDescribe_UnknownItemDetails(t *testing.T) {
	_, body := describe(&sales.UnknownItemError{MalformedLines: []int{0, 3}})
	details, ok := body.Details.(gin.H)
	if assert.True(t, ok) {
		assert.Equal(t, []int{0, 3}, details["malformedLines"])
		assert.NotContains(t, details, "shoeIds")
	}
}
