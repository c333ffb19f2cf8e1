// internal/domain/sales/errors.go
package sales

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes returned to clients
const (
	CodeEmptyCart           = "EmptyCart"
	CodeInvalidLineQuantity = "InvalidLineQuantity"
	CodeUnknownItem         = "UnknownItem"
	CodeInsufficientStock   = "InsufficientStock"
	CodePersistenceFailure  = "PersistenceFailure"
	CodeSaleNotFound        = "NotFound"
)

type sentinelError struct {
	code    string
	message string
}

func (e *sentinelError) Error() string { return e.message }
func (e *sentinelError) Code() string  { return e.code }

var (
	ErrEmptyCart    error = &sentinelError{code: CodeEmptyCart, message: "cart has no lines"}
	ErrSaleNotFound error = &sentinelError{code: CodeSaleNotFound, message: "sale not found"}
)

// InvalidLineQuantityError rejects a line whose quantity is missing,
// not an integer, or not positive. Line is zero-based, -1 for the body.
type InvalidLineQuantityError struct {
	Line   int
	Reason string
}

func (e *InvalidLineQuantityError) Error() string {
	if e.Line < 0 {
		return fmt.Sprintf("invalid request: %s", e.Reason)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *InvalidLineQuantityError) Code() string { return CodeInvalidLineQuantity }

// UnknownItemError lists ids that do not resolve to an active shoe and
// lines whose id could not be read at all
type UnknownItemError struct {
	ShoeIDs        []uint
	MalformedLines []int
}

func (e *UnknownItemError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.ShoeIDs) > 0 {
		parts = append(parts, fmt.Sprintf("unknown shoe ids %v", e.ShoeIDs))
	}
	if len(e.MalformedLines) > 0 {
		parts = append(parts, fmt.Sprintf("malformed shoe id on lines %v", e.MalformedLines))
	}
	return strings.Join(parts, "; ")
}

func (e *UnknownItemError) Code() string { return CodeUnknownItem }

// Shortage describes one shoe that cannot cover its requested quantity
type Shortage struct {
	ShoeID    uint   `json:"shoeId"`
	Brand     string `json:"brand,omitempty"`
	Model     string `json:"model,omitempty"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// InsufficientStockError carries every shoe that failed the stock check
type InsufficientStockError struct {
	Items []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Items))
	for i, s := range e.Items {
		parts[i] = fmt.Sprintf("shoe %d (available %d, requested %d)", s.ShoeID, s.Available, s.Requested)
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

func (e *InsufficientStockError) Code() string { return CodeInsufficientStock }

// PersistenceError wraps a storage failure. The transaction was rolled
// back, so nothing was written and the commit may be retried.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist sale: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Code() string { return CodePersistenceFailure }

// IsRejection reports whether err is an expected validation outcome as
// opposed to a storage failure
func IsRejection(err error) bool {
	var (
		invalidQty *InvalidLineQuantityError
		unknown    *UnknownItemError
		shortage   *InsufficientStockError
	)
	return errors.Is(err, ErrEmptyCart) ||
		errors.As(err, &invalidQty) ||
		errors.As(err, &unknown) ||
		errors.As(err, &shortage)
}
