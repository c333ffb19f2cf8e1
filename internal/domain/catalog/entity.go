// internal/domain/catalog/entity.go
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/shoe-pos/internal/pkg/money"
	"gorm.io/gorm"
)

// Shoe is a catalog entry. Rows are soft-deleted so historical sale
// lines keep resolving.
type Shoe struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Brand         string         `gorm:"not null;size:100;index" json:"brand"`
	Model         string         `gorm:"not null;size:150" json:"model"`
	Size          string         `gorm:"size:20" json:"size"`
	Colorway      string         `gorm:"size:100" json:"colorway"`
	Condition     string         `gorm:"size:50" json:"condition"`
	Price         money.Amount   `gorm:"not null;default:0;check:price >= 0" json:"price"`
	PurchasePrice money.Amount   `gorm:"not null;default:0;check:purchase_price >= 0" json:"purchasePrice"`
	CurrentStock  int            `gorm:"not null;default:0;check:current_stock >= 0" json:"currentStock"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// DisplayName returns "Brand Model"
func (s *Shoe) DisplayName() string {
	return strings.TrimSpace(s.Brand + " " + s.Model)
}

// IsOutOfStock checks if the shoe can still be sold
func (s *Shoe) IsOutOfStock() bool {
	return s.CurrentStock <= 0
}

// Upper bounds for catalog values. Any in-range price times any in-range
// quantity fits in an Amount.
const (
	MaxStock = math.MaxInt32
)

var MaxPrice = money.FromCents(100_000_000_00)

// Count is a whole number that also accepts numeric strings, since the
// catalog form posts input values as typed.
type Count int

// UnmarshalJSON implements json.Unmarshaler
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%q is not a whole number", raw)
	}
	*c = Count(n)
	return nil
}

// ShoeInput is the create/update payload
type ShoeInput struct {
	Brand         string       `json:"brand" binding:"required"`
	Model         string       `json:"model" binding:"required"`
	Size          string       `json:"size"`
	Colorway      string       `json:"colorway"`
	Condition     string       `json:"condition"`
	Price         money.Amount `json:"price"`
	PurchasePrice money.Amount `json:"purchasePrice"`
	CurrentStock  Count        `json:"currentStock"`
}

// AdjustStockInput is a relative stock change (restock, return, damage)
type AdjustStockInput struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}
