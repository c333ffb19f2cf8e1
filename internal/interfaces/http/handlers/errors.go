// internal/interfaces/http/handlers/errors.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/domain/analytics"
	"github.com/your-org/shoe-pos/internal/domain/cart"
	"github.com/your-org/shoe-pos/internal/domain/catalog"
	"github.com/your-org/shoe-pos/internal/domain/inventory"
	"github.com/your-org/shoe-pos/internal/domain/sales"
	"github.com/your-org/shoe-pos/internal/interfaces/http/middleware"
)

const (
	codeValidation = "ValidationError"
	codeNotFound   = "NotFound"
	codeInternal   = "InternalError"
	codeTimeout    = "Timeout"
	codeTooLarge   = "RequestTooLarge"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// respondError maps a domain error to its status and payload
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	status, body := describe(err)

	entry := log.WithError(err).WithFields(logrus.Fields{
		"request_id": middleware.GetRequestID(c),
		"path":       c.Request.URL.Path,
		"code":       body.Error,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func describe(err error) (int, ErrorResponse) {
	var (
		invalidQty *sales.InvalidLineQuantityError
		unknown    *sales.UnknownItemError
		shortage   *sales.InsufficientStockError
		persist    *sales.PersistenceError
		exceeded   *cart.StockExceededError
		invalid    *catalog.ValidationError
		tooLarge   *http.MaxBytesError
	)

	switch {
	case errors.Is(err, sales.ErrEmptyCart):
		return http.StatusBadRequest, ErrorResponse{Error: sales.CodeEmptyCart, Message: err.Error()}
	case errors.As(err, &invalidQty):
		return http.StatusBadRequest, ErrorResponse{
			Error:   sales.CodeInvalidLineQuantity,
			Message: err.Error(),
			Details: gin.H{"line": invalidQty.Line},
		}
	case errors.As(err, &unknown):
		details := gin.H{}
		if len(unknown.ShoeIDs) > 0 {
			details["shoeIds"] = unknown.ShoeIDs
		}
		if len(unknown.MalformedLines) > 0 {
			details["malformedLines"] = unknown.MalformedLines
		}
		return http.StatusUnprocessableEntity, ErrorResponse{Error: sales.CodeUnknownItem, Message: err.Error(), Details: details}
	case errors.As(err, &shortage):
		return http.StatusConflict, ErrorResponse{
			Error:   sales.CodeInsufficientStock,
			Message: err.Error(),
			Details: gin.H{"items": shortage.Items},
		}
	case errors.As(err, &persist):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:   sales.CodePersistenceFailure,
			Message: "The sale could not be saved. Nothing was recorded; please retry.",
		}
	case errors.As(err, &exceeded):
		return http.StatusConflict, ErrorResponse{Error: cart.CodeStockExceeded, Message: err.Error(), Details: exceeded}
	case errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusBadRequest, ErrorResponse{Error: cart.CodeInvalidQuantity, Message: err.Error()}
	case errors.Is(err, cart.ErrCartConflict), errors.Is(err, cart.ErrCheckoutInProgress):
		return http.StatusConflict, ErrorResponse{Error: cart.CodeCartConflict, Message: err.Error()}
	case errors.As(err, &invalid):
		return http.StatusBadRequest, ErrorResponse{
			Error:   codeValidation,
			Message: err.Error(),
			Details: gin.H{"field": invalid.Field},
		}
	case errors.Is(err, analytics.ErrInvalidOrder), errors.Is(err, analytics.ErrInvalidDays):
		return http.StatusBadRequest, ErrorResponse{Error: codeValidation, Message: err.Error()}
	case errors.Is(err, catalog.ErrShoeNotFound),
		errors.Is(err, sales.ErrSaleNotFound),
		errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, inventory.ErrAlertNotFound):
		return http.StatusNotFound, ErrorResponse{Error: codeNotFound, Message: err.Error()}
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   codeTooLarge,
			Message: "Request body too large",
			Details: gin.H{"limit": tooLarge.Limit},
		}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, ErrorResponse{Error: codeTimeout, Message: "The request timed out"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: codeInternal, Message: "Internal server error"}
	}
}

func badRequest(c *gin.Context, message string, details interface{}) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   codeValidation,
		Message: message,
		Details: details,
	})
}

// invalidBody reports a body that could not be bound. A body cut off by
// the size limit is 413, anything else 400.
func invalidBody(c *gin.Context, log *logrus.Logger, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(c, log, err)
		return
	}
	badRequest(c, "Invalid request data", err.Error())
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name, gin.H{"param": name, "value": c.Param(name)})
		return 0, false
	}
	return uint(id), true
}
