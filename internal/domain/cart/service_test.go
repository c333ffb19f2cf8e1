package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/shoe-pos/internal/config"
	"github.com/your-org/shoe-pos/internal/domain/catalog"
	"github.com/your-org/shoe-pos/internal/domain/events"
	"github.com/your-org/shoe-pos/internal/domain/inventory"
	"github.com/your-org/shoe-pos/internal/domain/sales"
	"github.com/your-org/shoe-pos/internal/infrastructure/database"
	"github.com/your-org/shoe-pos/internal/pkg/logger"
	"github.com/your-org/shoe-pos/internal/pkg/money"
	"gorm.io/gorm"
)

type fixture struct {
	svc *Service
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

func setup(t *testing.T) *fixture {
	cfg := config.Default()
	log := logger.Discard()

	conn, err := database.NewConnection(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db := conn.GetDB()
	require.NoError(t, db.AutoMigrate(
		&catalog.Shoe{},
		&sales.Sale{},
		&sales.SaleDetail{},
		&inventory.StockMovement{},
		&inventory.StockAlert{},
	))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	inv := inventory.NewService(db, cfg, log)
	catalogService := catalog.NewService(db, cfg, inv, events.Nop{}, log)
	salesService := sales.NewService(db, cfg, inv, events.Nop{}, log)

	return &fixture{
		svc: NewService(client, cfg, catalogService, salesService, log),
		db:  db,
		mr:  mr,
	}
}

func (f *fixture) addShoe(t *testing.T, model, price string, stock int) *catalog.Shoe {
	s := &catalog.Shoe{Brand: "Adidas", Model: model, Price: money.MustParse(price), CurrentStock: stock}
	require.NoError(t, f.db.Create(s).Error)
	return s
}

func (f *fixture) setStock(t *testing.T, id uint, stock int) {
	require.NoError(t, f.db.Model(&catalog.Shoe{}).Where("id = ?", id).Update("current_stock", stock).Error)
}

func TestService_CreateStoresWithTTL(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	view, err := f.svc.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, view.SessionID)
	assert.Zero(t, view.ItemCount)

	key := cartKey(view.SessionID)
	assert.True(t, f.mr.Exists(key))
	assert.Equal(t, 24*time.Hour, f.mr.TTL(key))

	f.mr.FastForward(25 * time.Hour)
	_, err = f.svc.Get(ctx, view.SessionID)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestService_AddSetRemove(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	samba := f.addShoe(t, "Samba OG", "120.00", 3)
	spezial := f.addShoe(t, "Handball Spezial", "110.00", 2)

	view, err := f.svc.Create(ctx)
	require.NoError(t, err)
	id := view.SessionID

	view, err = f.svc.AddItem(ctx, id, samba.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("240.00"), view.Total)

	_, err = f.svc.AddItem(ctx, id, samba.ID, 2)
	var exceeded *StockExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, "Samba OG", exceeded.Model)

	view, err = f.svc.AddItem(ctx, id, spezial.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, view.ItemCount)

	view, err = f.svc.SetQuantity(ctx, id, spezial.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("460.00"), view.Total)

	_, err = f.svc.SetQuantity(ctx, id, spezial.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.svc.AddItem(ctx, id, 999, 1)
	assert.ErrorIs(t, err, catalog.ErrShoeNotFound)

	view, err = f.svc.RemoveItem(ctx, id, samba.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, spezial.ID, view.Lines[0].ShoeID)
}

func TestService_SetQuantityUsesFreshStock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	gazelle := f.addShoe(t, "Gazelle", "100.00", 5)

	view, err := f.svc.Create(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, view.SessionID, gazelle.ID, 1)
	require.NoError(t, err)

	f.setStock(t, gazelle.ID, 2)

	_, err = f.svc.SetQuantity(ctx, view.SessionID, gazelle.ID, 3)
	var exceeded *StockExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 2, exceeded.Available)
}

func TestService_GetReportsConflicts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	superstar := f.addShoe(t, "Superstar", "95.00", 4)

	view, err := f.svc.Create(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, view.SessionID, superstar.ID, 3)
	require.NoError(t, err)

	f.setStock(t, superstar.ID, 1)

	view, err = f.svc.Get(ctx, view.SessionID)
	require.NoError(t, err)
	require.Len(t, view.Conflicts, 1)
	assert.Equal(t, 1, view.Conflicts[0].Available)
	assert.Equal(t, 3, view.Conflicts[0].Requested)
}

func TestService_Checkout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	campus := f.addShoe(t, "Campus 00s", "100.00", 3)

	view, err := f.svc.Create(ctx)
	require.NoError(t, err)
	id := view.SessionID
	_, err = f.svc.AddItem(ctx, id, campus.ID, 2)
	require.NoError(t, err)

	sale, err := f.svc.Checkout(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "200.00", sale.TotalAmount.String())
	assert.False(t, f.mr.Exists(cartKey(id)))

	_, err = f.svc.Get(ctx, id)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestService_CheckoutFailureKeepsCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	forum := f.addShoe(t, "Forum Low", "90.00", 3)

	view, err := f.svc.Create(ctx)
	require.NoError(t, err)
	id := view.SessionID
	_, err = f.svc.AddItem(ctx, id, forum.ID, 3)
	require.NoError(t, err)

	// Sold elsewhere while the cart was open.
	f.setStock(t, forum.ID, 1)

	_, err = f.svc.Checkout(ctx, id)
	var shortage *sales.InsufficientStockError
	require.ErrorAs(t, err, &shortage)
	assert.True(t, f.mr.Exists(cartKey(id)))

	empty, err := f.svc.Create(ctx)
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, empty.SessionID)
	assert.ErrorIs(t, err, sales.ErrEmptyCart)
}

func TestService_CheckoutRefusedWhileClaimed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	gazelle := f.addShoe(t, "Gazelle", "100.00", 5)

	view, err := f.svc.Create(ctx)
	require.NoError(t, err)
	id := view.SessionID
	_, err = f.svc.AddItem(ctx, id, gazelle.ID, 1)
	require.NoError(t, err)

	release, err := f.svc.store.Claim(ctx, id, time.Minute)
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, id)
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
	_, err = f.svc.AddItem(ctx, id, gazelle.ID, 1)
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	var sold int64
	require.NoError(t, f.db.Model(&sales.Sale{}).Count(&sold).Error)
	assert.Zero(t, sold)

	release()
	assert.False(t, f.mr.Exists(claimKey(id)))

	sale, err := f.svc.Checkout(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "100.00", sale.TotalAmount.String())
	assert.False(t, f.mr.Exists(claimKey(id)), "claim released after checkout")
}

func TestService_StaleClaimReleaseKeepsNewClaim(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	view, err := f.svc.Create(ctx)
	require.NoError(t, err)

	release, err := f.svc.store.Claim(ctx, view.SessionID, time.Second)
	require.NoError(t, err)
	f.mr.FastForward(2 * time.Second)

	_, err = f.svc.store.Claim(ctx, view.SessionID, time.Minute)
	require.NoError(t, err)

	// The expired holder must not drop the current holder's claim.
	release()
	assert.True(t, f.mr.Exists(claimKey(view.SessionID)))
}

func TestService_ConcurrentCheckoutsCommitOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	superstar := f.addShoe(t, "Superstar", "80.00", 10)

	view, err := f.svc.Create(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, view.SessionID, superstar.ID, 2)
	require.NoError(t, err)

	const attempts = 5
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Checkout(ctx, view.SessionID)
			if err == nil {
				succeeded.Add(1)
				return
			}
			if !errors.Is(err, ErrCheckoutInProgress) {
				assert.ErrorIs(t, err, ErrCartNotFound)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	var sold int64
	require.NoError(t, f.db.Model(&sales.Sale{}).Count(&sold).Error)
	assert.Equal(t, int64(1), sold)

	var stored catalog.Shoe
	require.NoError(t, f.db.First(&stored, superstar.ID).Error)
	assert.Equal(t, 8, stored.CurrentStock)
}

func TestService_ConcurrentAddsAreNotLost(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	shoes := make([]*catalog.Shoe, 8)
	for i := range shoes {
		shoes[i] = f.addShoe(t, "Model", "10.00", 10)
	}

	view, err := f.svc.Create(ctx)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for _, s := range shoes {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			// Lost races surface as ErrCartConflict after retries, never as a silent overwrite.
			_, err := f.svc.AddItem(ctx, view.SessionID, id, 1)
			if err != nil {
				assert.ErrorIs(t, err, ErrCartConflict)
				return
			}
			succeeded.Add(1)
		}(s.ID)
	}
	wg.Wait()

	stored, err := f.svc.Get(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, int(succeeded.Load()))
	assert.Equal(t, len(stored.Lines), stored.ItemCount)
}

func TestService_RejectsMalformedSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrCartNotFound)
	_, err = f.svc.Checkout(ctx, "../../etc")
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.ErrorIs(t, f.svc.Clear(ctx, ""), ErrCartNotFound)
}
