// internal/domain/sales/entity.go
package sales

import (
	"fmt"
	"math"
	"time"

	"github.com/your-org/shoe-pos/internal/domain/catalog"
	"github.com/your-org/shoe-pos/internal/pkg/money"
)

// Sale is a committed, immutable transaction.
// TotalAmount always equals the sum of its details' subtotals.
type Sale struct {
	ID                  uint         `gorm:"primaryKey" json:"id"`
	SaleNumber          string       `gorm:"size:30;index" json:"saleNumber"`
	TransactionDateTime time.Time    `gorm:"not null;index" json:"transactionDateTime"`
	TotalAmount         money.Amount `gorm:"not null" json:"totalAmount"`
	CreatedAt           time.Time    `json:"createdAt"`

	// Relationships
	Details []SaleDetail `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"details"`
}

// SaleDetail is one line of a sale. PriceAtSale is copied from the catalog
// at commit time and never follows later price edits.
type SaleDetail struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	SaleID      uint         `gorm:"not null;index" json:"saleId"`
	LineNo      int          `gorm:"not null" json:"lineNo"`
	ShoeID      uint         `gorm:"not null;index" json:"shoeId"`
	Brand       string       `gorm:"size:100" json:"brand"`
	Model       string       `gorm:"size:150" json:"model"`
	Quantity    int          `gorm:"not null;check:quantity > 0" json:"quantity"`
	PriceAtSale money.Amount `gorm:"not null" json:"priceAtSale"`
	Subtotal    money.Amount `gorm:"not null" json:"subtotal"`

	// Relationships
	Shoe *catalog.Shoe `gorm:"foreignKey:ShoeID" json:"Shoe,omitempty"`
}

// MaxLineQuantity bounds a single line and the combined quantity of one
// shoe across a sale
const MaxLineQuantity = math.MaxInt32

// LineInput is one requested cart line
type LineInput struct {
	ShoeID   uint `json:"shoeId"`
	Quantity int  `json:"quantity"`
}

// Verify checks the arithmetic invariants of a sale
func (s *Sale) Verify() error {
	var total money.Amount
	for _, d := range s.Details {
		subtotal, err := d.PriceAtSale.MulChecked(d.Quantity)
		if err != nil {
			return fmt.Errorf("line %d: %w", d.LineNo, err)
		}
		if d.Subtotal != subtotal {
			return fmt.Errorf("line %d: subtotal %s != %d x %s", d.LineNo, d.Subtotal, d.Quantity, d.PriceAtSale)
		}
		if total, err = total.AddChecked(d.Subtotal); err != nil {
			return fmt.Errorf("total: %w", err)
		}
	}
	if total != s.TotalAmount {
		return fmt.Errorf("total %s != sum of lines %s", s.TotalAmount, total)
	}
	return nil
}

// ItemCount returns the number of units sold
func (s *Sale) ItemCount() int {
	count := 0
	for _, d := range s.Details {
		count += d.Quantity
	}
	return count
}

func saleNumber(at time.Time, id uint) string {
	// Format: SALE-YYYYMMDD-XXXXX
	return fmt.Sprintf("SALE-%s-%05d", at.Format("20060102"), id)
}
