// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/config"
	"github.com/your-org/shoe-pos/internal/domain/catalog"
	"github.com/your-org/shoe-pos/internal/domain/sales"
	"github.com/your-org/shoe-pos/internal/pkg/money"
)

// Service manages session carts and hands them to the sale committer
type Service struct {
	store     *Store
	catalog   *catalog.Service
	sales     *sales.Service
	formatter *money.Formatter
	config    *config.Config
	log       *logrus.Logger
}

// NewService creates a new cart service
func NewService(redisClient *redis.Client, cfg *config.Config, catalogService *catalog.Service, salesService *sales.Service, log *logrus.Logger) *Service {
	formatter, err := money.NewFormatter(cfg.Sales.Locale, cfg.Sales.Currency)
	if err != nil {
		log.WithError(err).Warn("falling back to plain amount formatting")
	}
	return &Service{
		store:     NewStore(redisClient, cfg.Sales.CartTTL),
		catalog:   catalogService,
		sales:     salesService,
		formatter: formatter,
		config:    cfg,
		log:       log,
	}
}

// View is a cart with its computed totals
type View struct {
	*Cart
	ItemCount      int                  `json:"itemCount"`
	Total          money.Amount         `json:"total"`
	TotalFormatted string               `json:"totalFormatted"`
	Conflicts      []StockExceededError `json:"conflicts,omitempty"`
}

func (s *Service) view(c *Cart, conflicts []StockExceededError) *View {
	total := c.Total()
	formatted := total.String()
	if s.formatter != nil {
		formatted = s.formatter.Format(total)
	}
	return &View{
		Cart:           c,
		ItemCount:      c.ItemCount(),
		Total:          total,
		TotalFormatted: formatted,
		Conflicts:      conflicts,
	}
}

// Create starts a new empty cart session
func (s *Service) Create(ctx context.Context) (*View, error) {
	c := New(uuid.NewString())
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return s.view(c, nil), nil
}

// Get returns the cart re-synced against the current catalog. Lines that
// no longer fit in stock are listed as conflicts.
func (s *Service) Get(ctx context.Context, sessionID string) (*View, error) {
	if !validSession(sessionID) {
		return nil, ErrCartNotFound
	}
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	shoes, err := s.catalog.GetMany(ctx, c.ShoeIDs())
	if err != nil {
		return nil, err
	}
	return s.view(c, c.Refresh(shoes)), nil
}

// AddItem adds qty units of a shoe, checked against its current stock
func (s *Service) AddItem(ctx context.Context, sessionID string, shoeID uint, qty int) (*View, error) {
	if !validSession(sessionID) {
		return nil, ErrCartNotFound
	}
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	shoe, err := s.catalog.Get(ctx, shoeID)
	if err != nil {
		return nil, err
	}
	c, err := s.store.Update(ctx, sessionID, func(c *Cart) error {
		return c.Add(shoe, qty)
	})
	if err != nil {
		return nil, err
	}
	return s.view(c, nil), nil
}

// SetQuantity replaces a line's quantity, checked against current stock
func (s *Service) SetQuantity(ctx context.Context, sessionID string, shoeID uint, qty int) (*View, error) {
	if !validSession(sessionID) {
		return nil, ErrCartNotFound
	}
	shoe, err := s.catalog.Get(ctx, shoeID)
	if err != nil && !errors.Is(err, catalog.ErrShoeNotFound) {
		return nil, err
	}
	c, err := s.store.Update(ctx, sessionID, func(c *Cart) error {
		if i := c.find(shoeID); i >= 0 {
			if shoe != nil {
				c.Lines[i].observe(shoe)
			} else {
				c.Lines[i].MaxStock = 0
			}
		}
		return c.SetQuantity(shoeID, qty)
	})
	if err != nil {
		return nil, err
	}
	return s.view(c, nil), nil
}

// RemoveItem drops a shoe from the cart
func (s *Service) RemoveItem(ctx context.Context, sessionID string, shoeID uint) (*View, error) {
	if !validSession(sessionID) {
		return nil, ErrCartNotFound
	}
	c, err := s.store.Update(ctx, sessionID, func(c *Cart) error {
		c.Remove(shoeID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(c, nil), nil
}

// Clear discards the cart
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if !validSession(sessionID) {
		return ErrCartNotFound
	}
	return s.store.Delete(ctx, sessionID)
}

// Checkout commits the cart as a sale. The cart is claimed first so a
// second checkout of the same session cannot commit it again. The cart
// survives any failure so the cashier can fix it and retry.
func (s *Service) Checkout(ctx context.Context, sessionID string) (*sales.Sale, error) {
	if !validSession(sessionID) {
		return nil, ErrCartNotFound
	}

	release, err := s.store.Claim(ctx, sessionID, s.claimTTL())
	if err != nil {
		return nil, err
	}
	// The cart is deleted before the claim is released, so a checkout
	// waiting on the claim finds no cart.
	defer release()

	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sale, err := s.sales.Commit(ctx, c.Items())
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(context.WithoutCancel(ctx), sessionID); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"session_id": sessionID,
			"sale_id":    sale.ID,
		}).Warn("failed to clear cart after checkout")
	}
	return sale, nil
}

func (s *Service) claimTTL() time.Duration {
	return s.config.Sales.CommitTimeout + time.Minute
}

func validSession(sessionID string) bool {
	_, err := uuid.Parse(sessionID)
	return err == nil
}
