// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/config"
	"gorm.io/gorm"
)

var ErrAlertNotFound = errors.New("stock alert not found")

// Service handles the stock ledger and low-stock alerts
type Service struct {
	db       *gorm.DB
	config   *config.Config
	log      *logrus.Logger
	notifier AlertNotifier
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		log:    log,
	}
}

// SetNotifier registers a notifier for newly raised alerts
func (s *Service) SetNotifier(n AlertNotifier) {
	s.notifier = n
}

// MovementInput describes a stock change that has already been applied
type MovementInput struct {
	ShoeID        uint
	MovementType  MovementType
	Reason        MovementReason
	Quantity      int
	PreviousStock int
	NewStock      int
	ReferenceType string
	ReferenceID   uint
	Notes         string
}

// RecordMovement appends a ledger row. It must be called with the
// transaction that changed the stock so both commit or neither does.
func (s *Service) RecordMovement(tx *gorm.DB, in MovementInput) (*StockMovement, error) {
	movement := &StockMovement{
		ShoeID:        in.ShoeID,
		MovementType:  in.MovementType,
		Reason:        in.Reason,
		Quantity:      in.Quantity,
		PreviousStock: in.PreviousStock,
		NewStock:      in.NewStock,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		Notes:         in.Notes,
	}

	if err := tx.Create(movement).Error; err != nil {
		return nil, fmt.Errorf("failed to record movement: %w", err)
	}
	return movement, nil
}

// Movements lists the ledger for a shoe, newest first
func (s *Service) Movements(ctx context.Context, shoeID uint, limit int) ([]StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var movements []StockMovement
	err := s.db.WithContext(ctx).
		Where("shoe_id = ?", shoeID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve movements: %w", err)
	}
	return movements, nil
}

// CheckAlerts opens, escalates or resolves alerts for the given shoes
// according to their committed stock. Failures are logged; alerts never
// affect the write that triggered them.
func (s *Service) CheckAlerts(ctx context.Context, shoeIDs ...uint) {
	if len(shoeIDs) == 0 {
		return
	}

	var levels []stockLevel
	err := s.db.WithContext(ctx).Table("shoes").
		Select("id, brand, model, current_stock").
		Where("id IN ? AND deleted_at IS NULL", shoeIDs).
		Find(&levels).Error
	if err != nil {
		s.log.WithError(err).Warn("failed to load stock levels for alert check")
		return
	}

	for _, level := range levels {
		if err := s.checkLevel(ctx, level); err != nil {
			s.log.WithError(err).WithField("shoe_id", level.ID).Warn("failed to update stock alert")
		}
	}
}

func (s *Service) checkLevel(ctx context.Context, level stockLevel) error {
	db := s.db.WithContext(ctx)

	var existing StockAlert
	err := db.Where("shoe_id = ? AND is_resolved = ?", level.ID, false).First(&existing).Error
	hasExisting := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	wanted, needsAlert := level.alertType(s.config.Sales.LowStockThreshold)

	if hasExisting && (!needsAlert || existing.AlertType != wanted) {
		if err := s.resolve(db, &existing); err != nil {
			return err
		}
		hasExisting = false
	}

	if !needsAlert || hasExisting {
		return nil
	}

	alert := StockAlert{
		ShoeID:    level.ID,
		AlertType: wanted,
		Message:   alertMessage(level, wanted, s.config.Sales.LowStockThreshold),
	}
	if err := db.Create(&alert).Error; err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"shoe_id":       level.ID,
		"alert_type":    wanted,
		"current_stock": level.CurrentStock,
	}).Info("stock alert raised")

	s.notify(ctx, AlertNotice{
		Alert:        alert,
		Brand:        level.Brand,
		Model:        level.Model,
		CurrentStock: level.CurrentStock,
		Threshold:    s.config.Sales.LowStockThreshold,
	})
	return nil
}

// notify runs outside the request; a slow mail server must not hold a sale
func (s *Service) notify(ctx context.Context, notice AlertNotice) {
	if s.notifier == nil {
		return
	}

	timeout := s.config.Email.SendTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := s.notifier.NotifyStockAlert(ctx, notice); err != nil {
			s.log.WithError(err).WithField("shoe_id", notice.Alert.ShoeID).Warn("failed to send stock alert notification")
		}
	}()
}

// Alerts lists alerts, optionally filtered by resolution state
func (s *Service) Alerts(ctx context.Context, resolved *bool) ([]StockAlert, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if resolved != nil {
		query = query.Where("is_resolved = ?", *resolved)
	}

	var alerts []StockAlert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve alerts: %w", err)
	}
	return alerts, nil
}

// ResolveAlert marks an alert as handled
func (s *Service) ResolveAlert(ctx context.Context, id uint) (*StockAlert, error) {
	db := s.db.WithContext(ctx)

	var alert StockAlert
	if err := db.First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to retrieve alert: %w", err)
	}

	if !alert.IsResolved {
		if err := s.resolve(db, &alert); err != nil {
			return nil, fmt.Errorf("failed to resolve alert: %w", err)
		}
	}
	return &alert, nil
}

func (s *Service) resolve(db *gorm.DB, alert *StockAlert) error {
	now := time.Now().UTC()
	alert.IsResolved = true
	alert.ResolvedAt = &now
	return db.Model(alert).Updates(map[string]interface{}{
		"is_resolved": true,
		"resolved_at": now,
	}).Error
}

func alertMessage(level stockLevel, t AlertType, threshold int) string {
	if t == AlertTypeOutOfStock {
		return fmt.Sprintf("%s %s is out of stock", level.Brand, level.Model)
	}
	return fmt.Sprintf("%s %s is running low (Available: %d, Threshold: %d)", level.Brand, level.Model, level.CurrentStock, threshold)
}
