// internal/domain/cart/errors.go
package cart

import (
	"fmt"
)

const (
	CodeInvalidQuantity = "InvalidQuantity"
	CodeStockExceeded   = "StockExceeded"
	CodeNotFound        = "NotFound"
	CodeCartConflict    = "CartConflict"
)

type cartError struct {
	code    string
	message string
}

func (e *cartError) Error() string { return e.message }
func (e *cartError) Code() string  { return e.code }

var (
	ErrInvalidQuantity error = &cartError{code: CodeInvalidQuantity, message: "quantity must be a positive whole number"}
	ErrLineNotFound    error = &cartError{code: CodeNotFound, message: "item not found in cart"}
	ErrCartNotFound    error = &cartError{code: CodeNotFound, message: "cart not found or expired"}
	ErrCartConflict    error = &cartError{code: CodeCartConflict, message: "cart was modified concurrently, retry"}

	ErrCheckoutInProgress error = &cartError{code: CodeCartConflict, message: "cart is being checked out"}
)

// StockExceededError reports a cart quantity above the shoe's stock
type StockExceededError struct {
	ShoeID    uint   `json:"shoeId"`
	Brand     string `json:"brand"`
	Model     string `json:"model"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("only %d of %s %s in stock, requested %d", e.Available, e.Brand, e.Model, e.Requested)
}

func (e *StockExceededError) Code() string { return CodeStockExceeded }
