// internal/domain/events/event.go
package events

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Type identifies an inventory notification
type Type string

const (
	StockChanged  Type = "stock_changed"
	ShoeAdded     Type = "shoe_added"
	ShoeUpdated   Type = "shoe_updated"
	ShoeDeleted   Type = "shoe_deleted"
	SaleCompleted Type = "sale_completed"
)

// Event is an advisory notification emitted after a write has committed.
// Consumers use it to refresh their view; it carries no authority.
type Event struct {
	Type         Type      `json:"type"`
	ShoeID       uint      `json:"shoeId,omitempty"`
	CurrentStock *int      `json:"currentStock,omitempty"`
	SaleID       uint      `json:"saleId,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// NewStockChanged builds a stock_changed event
func NewStockChanged(shoeID uint, currentStock int) Event {
	stock := currentStock
	return Event{Type: StockChanged, ShoeID: shoeID, CurrentStock: &stock, OccurredAt: time.Now().UTC()}
}

// NewShoeEvent builds a shoe_added/updated/deleted event
func NewShoeEvent(t Type, shoeID uint, currentStock int) Event {
	stock := currentStock
	return Event{Type: t, ShoeID: shoeID, CurrentStock: &stock, OccurredAt: time.Now().UTC()}
}

// NewShoeDeleted builds a shoe_deleted event
func NewShoeDeleted(shoeID uint) Event {
	return Event{Type: ShoeDeleted, ShoeID: shoeID, OccurredAt: time.Now().UTC()}
}

// NewSaleCompleted builds a sale_completed event
func NewSaleCompleted(saleID uint) Event {
	return Event{Type: SaleCompleted, SaleID: saleID, OccurredAt: time.Now().UTC()}
}

// Publisher delivers events to some transport
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Nop discards events
type Nop struct{}

// Publish implements Publisher
func (Nop) Publish(context.Context, ...Event) error { return nil }

// Multi fans events out to several publishers. A failing sink does not
// stop delivery to the others.
type Multi struct {
	publishers []Publisher
}

// NewMulti combines publishers, skipping nils
func NewMulti(publishers ...Publisher) *Multi {
	m := &Multi{}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// Publish implements Publisher
func (m *Multi) Publish(ctx context.Context, events ...Event) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const publishTimeout = 3 * time.Second

// Notify publishes after a commit without letting delivery affect the
// caller: the request context may already be done, errors are only logged.
func Notify(ctx context.Context, p Publisher, log *logrus.Logger, evts ...Event) {
	if p == nil || len(evts) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.Publish(ctx, evts...); err != nil {
		log.WithError(err).WithField("events", len(evts)).Warn("failed to publish inventory events")
	}
}
