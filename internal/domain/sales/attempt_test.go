package sales

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/your-org/shoe-pos/internal/pkg/logger"
)

func TestAttempt_Transitions(t *testing.T) {
	log := logger.Discard()

	t.Run("rejected during validation", func(t *testing.T) {
		a := newAttempt(log, 1)
		a.reject(ErrEmptyCart)
		assert.Equal(t, PhaseRejected, a.Phase)
		assert.True(t, a.Phase.Terminal())
		assert.ErrorIs(t, a.Err, ErrEmptyCart)
	})

	t.Run("committed", func(t *testing.T) {
		a := newAttempt(log, 2)
		a.committing()
		a.commit(12)
		assert.Equal(t, PhaseCommitted, a.Phase)
		assert.Equal(t, uint(12), a.SaleID)
	})

	t.Run("failed while committing", func(t *testing.T) {
		a := newAttempt(log, 1)
		a.committing()
		a.fail(&PersistenceError{Err: errors.New("disk full")})
		assert.Equal(t, PhaseFailed, a.Phase)
	})

	t.Run("terminal phases do not move", func(t *testing.T) {
		a := newAttempt(log, 1)
		a.reject(ErrEmptyCart)
		assert.Error(t, a.transition(PhaseCommitting))
		a.commit(1)
		assert.Equal(t, PhaseRejected, a.Phase)
		assert.Zero(t, a.SaleID)
	})

	t.Run("cannot commit without committing", func(t *testing.T) {
		a := newAttempt(log, 1)
		assert.Error(t, a.transition(PhaseCommitted))
		assert.Equal(t, PhaseValidating, a.Phase)
	})
}

func TestSale_Verify(t *testing.T) {
	sale := &Sale{
		TotalAmount: 30000,
		Details: []SaleDetail{
			{LineNo: 1, Quantity: 2, PriceAtSale: 10000, Subtotal: 20000},
			{LineNo: 2, Quantity: 1, PriceAtSale: 10000, Subtotal: 10000},
		},
	}
	assert.NoError(t, sale.Verify())
	assert.Equal(t, 3, sale.ItemCount())

	sale.TotalAmount = 29999
	assert.Error(t, sale.Verify())
}
