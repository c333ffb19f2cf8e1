package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/your-org/shoe-pos/internal/pkg/logger"
)

type capture struct {
	got []Event
	err error
}

func (c *capture) Publish(_ context.Context, evts ...Event) error {
	c.got = append(c.got, evts...)
	return c.err
}

func TestMulti_DeliversToAllEvenWhenOneFails(t *testing.T) {
	failing := &capture{err: errors.New("broker down")}
	healthy := &capture{}

	m := NewMulti(failing, nil, healthy)
	err := m.Publish(context.Background(), NewStockChanged(1, 4), NewSaleCompleted(9))

	assert.Error(t, err)
	assert.Len(t, failing.got, 2)
	assert.Len(t, healthy.got, 2)
	assert.Equal(t, StockChanged, healthy.got[0].Type)
	assert.Equal(t, 4, *healthy.got[0].CurrentStock)
	assert.Equal(t, uint(9), healthy.got[1].SaleID)
}

func TestNotify_IgnoresCancelledContextAndErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &capture{err: errors.New("nope")}
	assert.NotPanics(t, func() {
		Notify(ctx, sink, logger.Discard(), NewShoeEvent(ShoeAdded, 3, 10))
	})
	assert.Len(t, sink.got, 1)

	Notify(ctx, nil, logger.Discard(), NewShoeEvent(ShoeAdded, 3, 10))
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), NewSaleCompleted(1)))
}
