// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/config"
	"github.com/your-org/shoe-pos/internal/domain/events"
	"github.com/your-org/shoe-pos/internal/domain/inventory"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles catalog business logic
type Service struct {
	db        *gorm.DB
	config    *config.Config
	inventory *inventory.Service
	publisher events.Publisher
	log       *logrus.Logger
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, cfg *config.Config, inv *inventory.Service, publisher events.Publisher, log *logrus.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		db:        db,
		config:    cfg,
		inventory: inv,
		publisher: publisher,
		log:       log,
	}
}

// List returns every active shoe ordered by id
func (s *Service) List(ctx context.Context) ([]Shoe, error) {
	var shoes []Shoe
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&shoes).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve shoes: %w", err)
	}
	return shoes, nil
}

// Get returns a single active shoe
func (s *Service) Get(ctx context.Context, id uint) (*Shoe, error) {
	var shoe Shoe
	if err := s.db.WithContext(ctx).First(&shoe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShoeNotFound
		}
		return nil, fmt.Errorf("failed to retrieve shoe: %w", err)
	}
	return &shoe, nil
}

// GetMany returns the active shoes among ids, ordered by id. Missing ids
// are simply absent from the result.
func (s *Service) GetMany(ctx context.Context, ids []uint) ([]Shoe, error) {
	shoes := []Shoe{}
	if len(ids) == 0 {
		return shoes, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&shoes).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve shoes: %w", err)
	}
	return shoes, nil
}

// Create adds a shoe to the catalog
func (s *Service) Create(ctx context.Context, input *ShoeInput) (*Shoe, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	shoe := &Shoe{}
	apply(shoe, input)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(shoe).Error; err != nil {
			return fmt.Errorf("failed to create shoe: %w", err)
		}
		if shoe.CurrentStock > 0 {
			_, err := s.inventory.RecordMovement(tx, inventory.MovementInput{
				ShoeID:       shoe.ID,
				MovementType: inventory.MovementTypeInbound,
				Reason:       inventory.ReasonInitialStock,
				Quantity:     shoe.CurrentStock,
				NewStock:     shoe.CurrentStock,
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"shoe_id": shoe.ID, "stock": shoe.CurrentStock}).Info("shoe added to catalog")
	s.inventory.CheckAlerts(ctx, shoe.ID)
	events.Notify(ctx, s.publisher, s.log, events.NewShoeEvent(events.ShoeAdded, shoe.ID, shoe.CurrentStock))

	return shoe, nil
}

// Update replaces a shoe's fields. The row is locked for the duration so
// the edit serializes with concurrent sale commits on the same shoe.
func (s *Service) Update(ctx context.Context, id uint, input *ShoeInput) (*Shoe, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	var shoe Shoe
	var previousStock int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&shoe, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrShoeNotFound
			}
			return fmt.Errorf("failed to retrieve shoe: %w", err)
		}

		previousStock = shoe.CurrentStock
		apply(&shoe, input)

		if err := tx.Save(&shoe).Error; err != nil {
			return fmt.Errorf("failed to update shoe: %w", err)
		}

		if delta := shoe.CurrentStock - previousStock; delta != 0 {
			_, err := s.inventory.RecordMovement(tx, inventory.MovementInput{
				ShoeID:        shoe.ID,
				MovementType:  inventory.MovementTypeAdjustment,
				Reason:        inventory.ReasonCatalogEdit,
				Quantity:      abs(delta),
				PreviousStock: previousStock,
				NewStock:      shoe.CurrentStock,
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	evts := []events.Event{events.NewShoeEvent(events.ShoeUpdated, shoe.ID, shoe.CurrentStock)}
	if shoe.CurrentStock != previousStock {
		evts = append(evts, events.NewStockChanged(shoe.ID, shoe.CurrentStock))
		s.inventory.CheckAlerts(ctx, shoe.ID)
	}
	events.Notify(ctx, s.publisher, s.log, evts...)

	return &shoe, nil
}

// Delete soft-deletes a shoe
func (s *Service) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&Shoe{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete shoe: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrShoeNotFound
	}

	s.log.WithField("shoe_id", id).Info("shoe removed from catalog")
	events.Notify(ctx, s.publisher, s.log, events.NewShoeDeleted(id))
	return nil
}

// AdjustStock applies a relative change and records why
func (s *Service) AdjustStock(ctx context.Context, id uint, input *AdjustStockInput) (*Shoe, error) {
	if input.Delta == 0 {
		return nil, invalid("delta", "must not be zero")
	}
	if input.Delta > MaxStock || input.Delta < -MaxStock {
		return nil, invalid("delta", fmt.Sprintf("must be within ±%d", MaxStock))
	}

	reason, err := adjustmentReason(input)
	if err != nil {
		return nil, err
	}

	var shoe Shoe
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&shoe, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrShoeNotFound
			}
			return fmt.Errorf("failed to retrieve shoe: %w", err)
		}

		previous := shoe.CurrentStock
		next := previous + input.Delta
		if next < 0 || next > MaxStock {
			return invalid("delta", fmt.Sprintf("would leave stock at %d", next))
		}

		if err := tx.Model(&shoe).UpdateColumn("current_stock", next).Error; err != nil {
			return fmt.Errorf("failed to adjust stock: %w", err)
		}
		shoe.CurrentStock = next

		movementType := inventory.MovementTypeInbound
		if input.Delta < 0 {
			movementType = inventory.MovementTypeOutbound
		}
		_, err := s.inventory.RecordMovement(tx, inventory.MovementInput{
			ShoeID:        shoe.ID,
			MovementType:  movementType,
			Reason:        reason,
			Quantity:      abs(input.Delta),
			PreviousStock: previous,
			NewStock:      next,
			Notes:         input.Notes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.inventory.CheckAlerts(ctx, shoe.ID)
	events.Notify(ctx, s.publisher, s.log, events.NewStockChanged(shoe.ID, shoe.CurrentStock))

	return &shoe, nil
}

func validate(input *ShoeInput) error {
	if strings.TrimSpace(input.Brand) == "" {
		return invalid("brand", "is required")
	}
	if strings.TrimSpace(input.Model) == "" {
		return invalid("model", "is required")
	}
	if input.Price.IsNegative() {
		return invalid("price", "must not be negative")
	}
	if input.Price > MaxPrice {
		return invalid("price", "must not exceed "+MaxPrice.String())
	}
	if input.PurchasePrice.IsNegative() {
		return invalid("purchasePrice", "must not be negative")
	}
	if input.PurchasePrice > MaxPrice {
		return invalid("purchasePrice", "must not exceed "+MaxPrice.String())
	}
	if input.CurrentStock < 0 {
		return invalid("currentStock", "must not be negative")
	}
	if input.CurrentStock > MaxStock {
		return invalid("currentStock", fmt.Sprintf("must not exceed %d", MaxStock))
	}
	return nil
}

func apply(shoe *Shoe, input *ShoeInput) {
	shoe.Brand = strings.TrimSpace(input.Brand)
	shoe.Model = strings.TrimSpace(input.Model)
	shoe.Size = strings.TrimSpace(input.Size)
	shoe.Colorway = strings.TrimSpace(input.Colorway)
	shoe.Condition = strings.TrimSpace(input.Condition)
	shoe.Price = input.Price
	shoe.PurchasePrice = input.PurchasePrice
	shoe.CurrentStock = int(input.CurrentStock)
}

func adjustmentReason(input *AdjustStockInput) (inventory.MovementReason, error) {
	if input.Reason == "" {
		if input.Delta > 0 {
			return inventory.ReasonRestock, nil
		}
		return inventory.ReasonAdjustment, nil
	}

	reason := inventory.MovementReason(strings.ToLower(input.Reason))
	switch reason {
	case inventory.ReasonRestock, inventory.ReasonReturn:
		if input.Delta < 0 {
			return "", invalid("reason", fmt.Sprintf("%s requires a positive delta", reason))
		}
	case inventory.ReasonDamage:
		if input.Delta > 0 {
			return "", invalid("reason", "damage requires a negative delta")
		}
	case inventory.ReasonAdjustment:
	default:
		return "", invalid("reason", fmt.Sprintf("unknown reason %q", input.Reason))
	}
	return reason, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
