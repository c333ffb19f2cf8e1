// internal/domain/sales/service.go
package sales

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/config"
	"github.com/your-org/shoe-pos/internal/domain/catalog"
	"github.com/your-org/shoe-pos/internal/domain/events"
	"github.com/your-org/shoe-pos/internal/domain/inventory"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const detailBatchSize = 500

// Service commits carts into sales
type Service struct {
	db        *gorm.DB
	config    *config.Config
	inventory *inventory.Service
	publisher events.Publisher
	log       *logrus.Logger
}

// NewService creates a new sales service
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

// Commit validates the lines against current stock and, in one
// transaction, persists the sale and decrements stock. Either everything
// is written or nothing is.
func (s *Service) Commit(ctx context.Context, lines []LineInput) (*Sale, error) {
	attempt := newAttempt(s.log, len(lines))

	if err := validateLines(lines); err != nil {
		attempt.reject(err)
		return nil, err
	}

	txCtx := ctx
	if s.config.Sales.CommitTimeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, s.config.Sales.CommitTimeout)
		defer cancel()
	}

	var (
		sale  *Sale
		stock map[uint]int
	)
	err := s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		var err error
		sale, stock, err = s.commitTx(tx, lines, attempt)
		return err
	})
	if err != nil {
		if IsRejection(err) {
			attempt.reject(err)
			return nil, err
		}
		perr := &PersistenceError{Err: err}
		attempt.fail(perr)
		return nil, perr
	}
	attempt.commit(sale.ID)

	// Read back the committed state so the response reflects storage.
	if committed, err := s.Get(ctx, sale.ID); err == nil {
		sale = committed
	} else {
		s.log.WithError(err).WithField("sale_id", sale.ID).Warn("failed to reload committed sale")
	}

	s.afterCommit(ctx, sale, stock)
	return sale, nil
}

func (s *Service) commitTx(tx *gorm.DB, lines []LineInput, attempt *Attempt) (*Sale, map[uint]int, error) {
	ids, requested, err := aggregate(lines)
	if err != nil {
		return nil, nil, err
	}

	// Rows are locked in ascending id order so overlapping carts cannot deadlock.
	var shoes []catalog.Shoe
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&shoes).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to lock shoes: %w", err)
	}

	byID := make(map[uint]*catalog.Shoe, len(shoes))
	for i := range shoes {
		byID[shoes[i].ID] = &shoes[i]
	}

	var missing []uint
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &UnknownItemError{ShoeIDs: missing}
	}

	var shortages []Shortage
	for _, id := range ids {
		shoe := byID[id]
		if requested[id] > shoe.CurrentStock {
			shortages = append(shortages, Shortage{
				ShoeID:    id,
				Brand:     shoe.Brand,
				Model:     shoe.Model,
				Available: shoe.CurrentStock,
				Requested: requested[id],
			})
		}
	}
	if len(shortages) > 0 {
		return nil, nil, &InsufficientStockError{Items: shortages}
	}

	attempt.committing()

	sale := &Sale{TransactionDateTime: time.Now().UTC()}
	details := make([]SaleDetail, len(lines))
	for i, line := range lines {
		shoe := byID[line.ShoeID]
		subtotal, err := shoe.Price.MulChecked(line.Quantity)
		if err != nil {
			return nil, nil, &InvalidLineQuantityError{Line: i, Reason: "line amount is out of range"}
		}
		details[i] = SaleDetail{
			LineNo:      i + 1,
			ShoeID:      shoe.ID,
			Brand:       shoe.Brand,
			Model:       shoe.Model,
			Quantity:    line.Quantity,
			PriceAtSale: shoe.Price,
			Subtotal:    subtotal,
		}
		if sale.TotalAmount, err = sale.TotalAmount.AddChecked(subtotal); err != nil {
			return nil, nil, &InvalidLineQuantityError{Line: i, Reason: "sale total is out of range"}
		}
	}

	if err := tx.Omit(clause.Associations).Create(sale).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create sale: %w", err)
	}
	for i := range details {
		details[i].SaleID = sale.ID
	}
	if err := tx.Omit(clause.Associations).CreateInBatches(details, detailBatchSize).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create sale details: %w", err)
	}
	sale.Details = details

	stock := make(map[uint]int, len(ids))
	for _, id := range ids {
		qty := requested[id]

		// Guarded decrement: never drives stock below zero even if the
		// row lock above is unavailable on the driver.
		result := tx.Model(&catalog.Shoe{}).
			Where("id = ? AND current_stock >= ?", id, qty).
			UpdateColumn("current_stock", gorm.Expr("current_stock - ?", qty))
		if result.Error != nil {
			return nil, nil, fmt.Errorf("failed to decrement stock for shoe %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, nil, &InsufficientStockError{Items: []Shortage{{
				ShoeID:    id,
				Brand:     byID[id].Brand,
				Model:     byID[id].Model,
				Available: byID[id].CurrentStock,
				Requested: qty,
			}}}
		}

		previous := byID[id].CurrentStock
		stock[id] = previous - qty

		_, err := s.inventory.RecordMovement(tx, inventory.MovementInput{
			ShoeID:        id,
			MovementType:  inventory.MovementTypeOutbound,
			Reason:        inventory.ReasonSale,
			Quantity:      qty,
			PreviousStock: previous,
			NewStock:      stock[id],
			ReferenceType: "sale",
			ReferenceID:   sale.ID,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	sale.SaleNumber = saleNumber(sale.TransactionDateTime, sale.ID)
	if err := tx.Model(sale).UpdateColumn("sale_number", sale.SaleNumber).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to assign sale number: %w", err)
	}

	return sale, stock, nil
}

// afterCommit runs advisory side effects. Nothing here can undo or fail
// the sale.
func (s *Service) afterCommit(ctx context.Context, sale *Sale, stock map[uint]int) {
	ids := make([]uint, 0, len(stock))
	for id := range stock {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	s.inventory.CheckAlerts(context.WithoutCancel(ctx), ids...)

	evts := make([]events.Event, 0, len(ids)+1)
	for _, id := range ids {
		evts = append(evts, events.NewStockChanged(id, stock[id]))
	}
	evts = append(evts, events.NewSaleCompleted(sale.ID))
	events.Notify(ctx, s.publisher, s.log, evts...)
}

// Get returns a sale with its lines and their shoes. Deleted shoes still
// resolve.
func (s *Service) Get(ctx context.Context, id uint) (*Sale, error) {
	var sale Sale
	err := s.db.WithContext(ctx).
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Preload("Details.Shoe", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&sale, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to retrieve sale: %w", err)
	}
	return &sale, nil
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return ErrEmptyCart
	}
	for i, line := range lines {
		if line.Quantity <= 0 {
			return &InvalidLineQuantityError{Line: i, Reason: "quantity must be positive"}
		}
		if line.Quantity > MaxLineQuantity {
			return &InvalidLineQuantityError{Line: i, Reason: fmt.Sprintf("quantity must not exceed %d", MaxLineQuantity)}
		}
	}
	var malformed []int
	for i, line := range lines {
		if line.ShoeID == 0 {
			malformed = append(malformed, i)
		}
	}
	if len(malformed) > 0 {
		return &UnknownItemError{MalformedLines: malformed}
	}
	_, _, err := aggregate(lines)
	return err
}

// aggregate returns the distinct ids in ascending order and the total
// quantity requested per id; a shoe listed on several lines is checked
// against its combined quantity, which may not exceed MaxLineQuantity.
func aggregate(lines []LineInput) ([]uint, map[uint]int, error) {
	requested := make(map[uint]int, len(lines))
	ids := make([]uint, 0, len(lines))
	for i, line := range lines {
		sofar, seen := requested[line.ShoeID]
		if !seen {
			ids = append(ids, line.ShoeID)
		}
		if line.Quantity > MaxLineQuantity-sofar {
			return nil, nil, &InvalidLineQuantityError{
				Line:   i,
				Reason: fmt.Sprintf("combined quantity for shoe %d must not exceed %d", line.ShoeID, MaxLineQuantity),
			}
		}
		requested[line.ShoeID] = sofar + line.Quantity
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, requested, nil
}
