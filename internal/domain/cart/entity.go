// internal/domain/cart/entity.go
package cart

import (
	"strconv"
	"strings"
	"time"

	"github.com/your-org/shoe-pos/internal/domain/catalog"
	"github.com/your-org/shoe-pos/internal/domain/sales"
	"github.com/your-org/shoe-pos/internal/pkg/money"
)

// Line is one shoe in a cart. UnitPrice, Name and MaxStock are the
// catalog values last observed; the committer re-reads them at checkout.
type Line struct {
	ShoeID    uint         `json:"shoeId"`
	Brand     string       `json:"brand"`
	Model     string       `json:"model"`
	Name      string       `json:"name"`
	UnitPrice money.Amount `json:"unitPrice"`
	Quantity  int          `json:"quantity"`
	MaxStock  int          `json:"maxStock"`
	AddedAt   time.Time    `json:"addedAt"`
}

// Subtotal returns quantity × unit price
func (l *Line) Subtotal() money.Amount {
	return l.UnitPrice.Mul(l.Quantity)
}

func (l *Line) observe(shoe *catalog.Shoe) {
	l.Brand = shoe.Brand
	l.Model = shoe.Model
	l.Name = shoe.DisplayName()
	l.UnitPrice = shoe.Price
	l.MaxStock = shoe.CurrentStock
}

// Cart holds lines in the order they were first added. Each shoe appears
// on at most one line.
type Cart struct {
	SessionID string    `json:"sessionId"`
	Lines     []Line    `json:"lines"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// New returns an empty cart
func New(sessionID string) *Cart {
	now := time.Now().UTC()
	return &Cart{
		SessionID: sessionID,
		Lines:     []Line{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Cart) find(shoeID uint) int {
	for i := range c.Lines {
		if c.Lines[i].ShoeID == shoeID {
			return i
		}
	}
	return -1
}

// Add puts qty units of shoe in the cart, checked against the shoe's
// current stock. On error the cart is unchanged.
func (c *Cart) Add(shoe *catalog.Shoe, qty int) error {
	if qty <= 0 || qty > sales.MaxLineQuantity {
		return ErrInvalidQuantity
	}

	i := c.find(shoe.ID)
	existing := 0
	if i >= 0 {
		existing = c.Lines[i].Quantity
	}
	// Compared by difference so existing+qty is only formed once it fits.
	if qty > shoe.CurrentStock-existing {
		return &StockExceededError{
			ShoeID:    shoe.ID,
			Brand:     shoe.Brand,
			Model:     shoe.Model,
			Available: shoe.CurrentStock,
			Requested: existing + qty,
		}
	}
	requested := existing + qty

	if i < 0 {
		c.Lines = append(c.Lines, Line{ShoeID: shoe.ID, AddedAt: time.Now().UTC()})
		i = len(c.Lines) - 1
	}
	c.Lines[i].Quantity = requested
	c.Lines[i].observe(shoe)
	c.touch()
	return nil
}

// SetQuantity replaces a line's quantity, checked against the stock last
// observed for it.
func (c *Cart) SetQuantity(shoeID uint, qty int) error {
	i := c.find(shoeID)
	if i < 0 {
		return ErrLineNotFound
	}
	if qty <= 0 || qty > sales.MaxLineQuantity {
		return ErrInvalidQuantity
	}
	line := &c.Lines[i]
	if qty > line.MaxStock {
		return &StockExceededError{
			ShoeID:    line.ShoeID,
			Brand:     line.Brand,
			Model:     line.Model,
			Available: line.MaxStock,
			Requested: qty,
		}
	}
	line.Quantity = qty
	c.touch()
	return nil
}

// Remove drops the line for shoeID if there is one
func (c *Cart) Remove(shoeID uint) {
	if i := c.find(shoeID); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		c.touch()
	}
}

// Refresh re-syncs cached prices, names and stock from a fresh catalog
// read. Lines that no longer fit in stock, including shoes that are gone,
// are reported but left as they are.
func (c *Cart) Refresh(shoes []catalog.Shoe) []StockExceededError {
	byID := make(map[uint]*catalog.Shoe, len(shoes))
	for i := range shoes {
		byID[shoes[i].ID] = &shoes[i]
	}

	var conflicts []StockExceededError
	for i := range c.Lines {
		line := &c.Lines[i]
		shoe, ok := byID[line.ShoeID]
		if !ok {
			line.MaxStock = 0
		} else {
			line.observe(shoe)
		}
		if line.Quantity > line.MaxStock {
			conflicts = append(conflicts, StockExceededError{
				ShoeID:    line.ShoeID,
				Brand:     line.Brand,
				Model:     line.Model,
				Available: line.MaxStock,
				Requested: line.Quantity,
			})
		}
	}
	return conflicts
}

// Total returns the exact sum of line subtotals
func (c *Cart) Total() money.Amount {
	var total money.Amount
	for i := range c.Lines {
		total = total.Add(c.Lines[i].Subtotal())
	}
	return total
}

// ItemCount returns the number of units in the cart
func (c *Cart) ItemCount() int {
	count := 0
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// Items returns the lines as committer input, in cart order
func (c *Cart) Items() []sales.LineInput {
	items := make([]sales.LineInput, len(c.Lines))
	for i, line := range c.Lines {
		items[i] = sales.LineInput{ShoeID: line.ShoeID, Quantity: line.Quantity}
	}
	return items
}

// ShoeIDs returns the ids on the cart's lines
func (c *Cart) ShoeIDs() []uint {
	ids := make([]uint, len(c.Lines))
	for i, line := range c.Lines {
		ids[i] = line.ShoeID
	}
	return ids
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}

// ParseQuantity reads a quantity typed by a user. Anything that is not a
// positive whole number is rejected rather than read as zero.
func ParseQuantity(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 || n > sales.MaxLineQuantity {
		return 0, ErrInvalidQuantity
	}
	return n, nil
}
