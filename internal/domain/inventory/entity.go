// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// MovementType represents the direction of a stock movement
type MovementType string

const (
	MovementTypeInbound    MovementType = "inbound"    // Restock, return, initial stock
	MovementTypeOutbound   MovementType = "outbound"   // Sale, damage
	MovementTypeAdjustment MovementType = "adjustment" // Stock set directly from the catalog form
)

// MovementReason represents the reason for a stock movement
type MovementReason string

const (
	ReasonSale         MovementReason = "sale"
	ReasonRestock      MovementReason = "restock"
	ReasonReturn       MovementReason = "return"
	ReasonDamage       MovementReason = "damage"
	ReasonAdjustment   MovementReason = "adjustment"
	ReasonCatalogEdit  MovementReason = "catalog_edit"
	ReasonInitialStock MovementReason = "initial_stock"
)

// AlertType represents the kind of stock alert
type AlertType string

const (
	AlertTypeLowStock   AlertType = "low_stock"
	AlertTypeOutOfStock AlertType = "out_of_stock"
)

// StockMovement is an append-only ledger row written in the same
// transaction as the stock change it describes
type StockMovement struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ShoeID        uint           `gorm:"not null;index" json:"shoeId"`
	MovementType  MovementType   `gorm:"not null;size:20" json:"movementType"`
	Reason        MovementReason `gorm:"not null;size:30" json:"reason"`
	Quantity      int            `gorm:"not null" json:"quantity"`
	PreviousStock int            `gorm:"not null" json:"previousStock"`
	NewStock      int            `gorm:"not null" json:"newStock"`
	ReferenceType string         `gorm:"size:50" json:"referenceType,omitempty"` // "sale"
	ReferenceID   uint           `gorm:"index" json:"referenceId,omitempty"`
	Notes         string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time      `gorm:"index" json:"createdAt"`
}

// StockAlert represents a low or out-of-stock condition for a shoe
type StockAlert struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ShoeID     uint       `gorm:"not null;index" json:"shoeId"`
	AlertType  AlertType  `gorm:"not null;size:20" json:"alertType"`
	Message    string     `gorm:"type:text" json:"message"`
	IsResolved bool       `gorm:"not null;default:false;index" json:"isResolved"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// stockLevel is the slice of a catalog row the alert check needs
type stockLevel struct {
	ID           uint
	Brand        string
	Model        string
	CurrentStock int
}

func (l stockLevel) alertType(threshold int) (AlertType, bool) {
	switch {
	case l.CurrentStock <= 0:
		return AlertTypeOutOfStock, true
	case l.CurrentStock <= threshold:
		return AlertTypeLowStock, true
	default:
		return "", false
	}
}
