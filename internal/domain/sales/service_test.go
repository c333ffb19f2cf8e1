package sales

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/shoe-pos/internal/config"
	"github.com/your-org/shoe-pos/internal/domain/catalog"
	"github.com/your-org/shoe-pos/internal/domain/events"
	"github.com/your-org/shoe-pos/internal/domain/inventory"
	"github.com/your-org/shoe-pos/internal/infrastructure/database"
	"github.com/your-org/shoe-pos/internal/pkg/logger"
	"github.com/your-org/shoe-pos/internal/pkg/money"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evts ...events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

type fixture struct {
	svc       *Service
	inventory *inventory.Service
	db        *gorm.DB
	published *recordingPublisher
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
		&Sale{},
		&SaleDetail{},
		&inventory.StockMovement{},
		&inventory.StockAlert{},
	))

	inv := inventory.NewService(db, cfg, log)
	pub := &recordingPublisher{}
	return &fixture{
		svc:       NewService(db, cfg, inv, pub, log),
		inventory: inv,
		db:        db,
		published: pub,
	}
}

func (f *fixture) addShoe(t *testing.T, brand, model, price string, stock int) *catalog.Shoe {
	shoe := &catalog.Shoe{Brand: brand, Model: model, Price: money.MustParse(price), CurrentStock: stock}
	require.NoError(t, f.db.Create(shoe).Error)
	return shoe
}

func (f *fixture) stockOf(t *testing.T, id uint) int {
	var shoe catalog.Shoe
	require.NoError(t, f.db.Unscoped().First(&shoe, id).Error)
	return shoe.CurrentStock
}

func (f *fixture) saleCount(t *testing.T) int64 {
	var n int64
	require.NoError(t, f.db.Model(&Sale{}).Count(&n).Error)
	return n
}

func TestCommit_ScenarioSecondCommitExceedsStock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.addShoe(t, "Nike", "Dunk Low", "100.00", 3)

	sale, err := f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, "200.00", sale.TotalAmount.String())
	require.Len(t, sale.Details, 1)
	assert.Equal(t, money.MustParse("100.00"), sale.Details[0].PriceAtSale)
	assert.Equal(t, money.MustParse("200.00"), sale.Details[0].Subtotal)
	require.NotNil(t, sale.Details[0].Shoe)
	assert.Equal(t, "Nike", sale.Details[0].Shoe.Brand)
	assert.Regexp(t, `^SALE-\d{8}-\d{5}$`, sale.SaleNumber)
	assert.Equal(t, 1, f.stockOf(t, a.ID))

	_, err = f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: 2}})
	var shortage *InsufficientStockError
	require.ErrorAs(t, err, &shortage)
	require.Len(t, shortage.Items, 1)
	assert.Equal(t, a.ID, shortage.Items[0].ShoeID)
	assert.Equal(t, 1, shortage.Items[0].Available)
	assert.Equal(t, 2, shortage.Items[0].Requested)
	assert.Equal(t, 1, f.stockOf(t, a.ID))
	assert.Equal(t, int64(1), f.saleCount(t))
}

func TestCommit_Rejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.addShoe(t, "Adidas", "Samba", "120.00", 5)

	_, err := f.svc.Commit(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = f.svc.Commit(ctx, []LineInput{})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: -1}})
	var invalidQty *InvalidLineQuantityError
	require.ErrorAs(t, err, &invalidQty)
	assert.Equal(t, 0, invalidQty.Line)

	_, err = f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: 1}, {ShoeID: a.ID, Quantity: 0}})
	require.ErrorAs(t, err, &invalidQty)
	assert.Equal(t, 1, invalidQty.Line)

	_, err = f.svc.Commit(ctx, []LineInput{{ShoeID: 9999, Quantity: 1}})
	var unknown *UnknownItemError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []uint{9999}, unknown.ShoeIDs)

	_, err = f.svc.Commit(ctx, []LineInput{{ShoeID: 0, Quantity: 1}})
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []int{0}, unknown.MalformedLines)

	assert.Equal(t, 5, f.stockOf(t, a.ID))
	assert.Zero(t, f.saleCount(t))
	assert.Empty(t, f.published.events)
}

func TestCommit_AllOrNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.addShoe(t, "Nike", "Cortez", "90.00", 10)
	b := f.addShoe(t, "Vans", "Old Skool", "75.00", 1)
	c := f.addShoe(t, "Puma", "Suede", "80.00", 0)

	_, err := f.svc.Commit(ctx, []LineInput{
		{ShoeID: a.ID, Quantity: 3},
		{ShoeID: b.ID, Quantity: 2},
		{ShoeID: c.ID, Quantity: 1},
	})
	var shortage *InsufficientStockError
	require.ErrorAs(t, err, &shortage)
	require.Len(t, shortage.Items, 2)
	assert.Equal(t, b.ID, shortage.Items[0].ShoeID)
	assert.Equal(t, c.ID, shortage.Items[1].ShoeID)

	_, err = f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: 1}, {ShoeID: 424242, Quantity: 1}})
	var unknown *UnknownItemError
	require.ErrorAs(t, err, &unknown)

	assert.Equal(t, 10, f.stockOf(t, a.ID))
	assert.Equal(t, 1, f.stockOf(t, b.ID))
	assert.Equal(t, 0, f.stockOf(t, c.ID))
	assert.Zero(t, f.saleCount(t))

	movements, err := f.inventory.Movements(ctx, a.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestCommit_DuplicateLinesCheckedInAggregate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.addShoe(t, "Asics", "Gel-Lyte III", "65.00", 3)

	_, err := f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: 2}, {ShoeID: a.ID, Quantity: 2}})
	var shortage *InsufficientStockError
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, 4, shortage.Items[0].Requested)
	assert.Equal(t, 3, f.stockOf(t, a.ID))

	sale, err := f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: 1}, {ShoeID: a.ID, Quantity: 2}})
	require.NoError(t, err)
	assert.Len(t, sale.Details, 2)
	assert.Equal(t, "195.00", sale.TotalAmount.String())
	assert.Equal(t, 0, f.stockOf(t, a.ID))
}

func TestCommit_OversizedQuantitiesCannotWrapStock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.addShoe(t, "Nike", "Blazer Mid", "100.00", 3)

	huge := 1 << 62
	lines := []LineInput{
		{ShoeID: a.ID, Quantity: huge},
		{ShoeID: a.ID, Quantity: huge},
		{ShoeID: a.ID, Quantity: huge},
		{ShoeID: a.ID, Quantity: huge},
	}
	_, err := f.svc.Commit(ctx, lines)
	var invalidQty *InvalidLineQuantityError
	require.ErrorAs(t, err, &invalidQty)
	assert.Equal(t, 0, invalidQty.Line)

	// Each line is in range but their sum for one shoe is not.
	_, err = f.svc.Commit(ctx, []LineInput{
		{ShoeID: a.ID, Quantity: MaxLineQuantity},
		{ShoeID: a.ID, Quantity: 1},
	})
	require.ErrorAs(t, err, &invalidQty)
	assert.Equal(t, 1, invalidQty.Line)

	_, err = f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: MaxLineQuantity}})
	var shortage *InsufficientStockError
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, MaxLineQuantity, shortage.Items[0].Requested)

	assert.Equal(t, 3, f.stockOf(t, a.ID))
	assert.Zero(t, f.saleCount(t))
}

func TestCommit_AmountOverflowIsRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	// Written straight to storage; catalog validation would refuse these prices.
	a := f.addShoe(t, "Dior", "B23", "90000000000000000.00", 5)
	b := f.addShoe(t, "Dior", "B27", "50000000000000000.00", 5)
	c := f.addShoe(t, "Dior", "B30", "50000000000000000.00", 5)

	_, err := f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: 2}})
	var invalidQty *InvalidLineQuantityError
	require.ErrorAs(t, err, &invalidQty)
	assert.Equal(t, 0, invalidQty.Line)

	_, err = f.svc.Commit(ctx, []LineInput{{ShoeID: b.ID, Quantity: 1}, {ShoeID: c.ID, Quantity: 1}})
	require.ErrorAs(t, err, &invalidQty)
	assert.Equal(t, 1, invalidQty.Line)

	assert.Equal(t, 5, f.stockOf(t, a.ID))
	assert.Equal(t, 5, f.stockOf(t, b.ID))
	assert.Zero(t, f.saleCount(t))
}

func TestSaleVerify_DetectsOverflow(t *testing.T) {
	sale := &Sale{
		TotalAmount: money.FromCents(0),
		Details: []SaleDetail{{
			LineNo:      1,
			Quantity:    2,
			PriceAtSale: money.FromCents(math.MaxInt64/2 + 1),
			Subtotal:    money.FromCents(math.MinInt64),
		}},
	}
	assert.Error(t, sale.Verify())
}

func TestCommit_PriceComesFromCatalog(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.addShoe(t, "New Balance", "550", "110.00", 4)

	sale, err := f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: 1}})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&catalog.Shoe{}).Where("id = ?", a.ID).Update("price", money.MustParse("150.00")).Error)

	reloaded, err := f.svc.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("110.00"), reloaded.Details[0].PriceAtSale)
	assert.Equal(t, money.MustParse("110.00"), reloaded.TotalAmount)
}

func TestCommit_LedgerAlertsAndEvents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.addShoe(t, "Converse", "Chuck 70", "85.00", 6)

	sale, err := f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: 2}})
	require.NoError(t, err)

	movements, err := f.inventory.Movements(ctx, a.ID, 0)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, inventory.ReasonSale, movements[0].Reason)
	assert.Equal(t, 6, movements[0].PreviousStock)
	assert.Equal(t, 4, movements[0].NewStock)
	assert.Equal(t, sale.ID, movements[0].ReferenceID)

	resolved := false
	alerts, err := f.inventory.Alerts(ctx, &resolved)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, inventory.AlertTypeLowStock, alerts[0].AlertType)

	require.Len(t, f.published.events, 2)
	assert.Equal(t, events.StockChanged, f.published.events[0].Type)
	assert.Equal(t, 4, *f.published.events[0].CurrentStock)
	assert.Equal(t, events.SaleCompleted, f.published.events[1].Type)
	assert.Equal(t, sale.ID, f.published.events[1].SaleID)
}

func TestCommit_DeletedShoeIsUnknownButHistoryResolves(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.addShoe(t, "Reebok", "Club C", "70.00", 5)

	sale, err := f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: 1}})
	require.NoError(t, err)

	require.NoError(t, f.db.Delete(&catalog.Shoe{}, a.ID).Error)

	_, err = f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: 1}})
	var unknown *UnknownItemError
	require.ErrorAs(t, err, &unknown)

	reloaded, err := f.svc.Get(ctx, sale.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.Details[0].Shoe)
	assert.Equal(t, "Club C", reloaded.Details[0].Shoe.Model)
	assert.Equal(t, "Club C", reloaded.Details[0].Model)
}

func TestCommit_PersistenceFailureLeavesNoTrace(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.addShoe(t, "Nike", "Blazer", "95.00", 5)

	require.NoError(t, f.db.Migrator().DropTable(&SaleDetail{}))

	_, err := f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: 2}})
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, CodePersistenceFailure, perr.Code())
	assert.False(t, IsRejection(err))

	assert.Equal(t, 5, f.stockOf(t, a.ID))
	assert.Zero(t, f.saleCount(t))
}

func TestCommit_CancelledContextRollsBack(t *testing.T) {
	f := setup(t)
	a := f.addShoe(t, "Nike", "Vomero 5", "160.00", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: 1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, f.stockOf(t, a.ID))
}

func TestCommit_ConcurrentBuyersExhaustStockExactly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.addShoe(t, "Jordan", "1 Retro High", "180.00", 10)

	const buyers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Commit(ctx, []LineInput{{ShoeID: a.ID, Quantity: 1}})
			mu.Lock()
			defer mu.Unlock()
			var shortage *InsufficientStockError
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorAs(t, err, &shortage):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, buyers-10, rejected)
	assert.Equal(t, 0, f.stockOf(t, a.ID))
	assert.Equal(t, int64(10), f.saleCount(t))
}

func TestCommit_TenThousandLinesExactTotals(t *testing.T) {
	if testing.Short() {
		t.Skip("large cart")
	}
	f := setup(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	shoes := make([]*catalog.Shoe, 100)
	for i := range shoes {
		cents := rng.Int63n(999999) + 1
		shoes[i] = &catalog.Shoe{Brand: "Brand", Model: "Model", Price: money.FromCents(cents), CurrentStock: 1000}
	}
	require.NoError(t, f.db.CreateInBatches(shoes, 50).Error)

	lines := make([]LineInput, 10000)
	expected := decimal.Zero
	for i := range lines {
		shoe := shoes[i%len(shoes)]
		qty := rng.Intn(3) + 1
		lines[i] = LineInput{ShoeID: shoe.ID, Quantity: qty}
		expected = expected.Add(shoe.Price.Decimal().Mul(decimal.NewFromInt(int64(qty))))
	}

	sale, err := f.svc.Commit(ctx, lines)
	require.NoError(t, err)
	require.Len(t, sale.Details, 10000)
	require.NoError(t, sale.Verify())
	assert.True(t, expected.Equal(sale.TotalAmount.Decimal()), "expected %s, got %s", expected, sale.TotalAmount)

	for i, d := range sale.Details {
		assert.Equal(t, i+1, d.LineNo)
	}
}

func TestGet_NotFound(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Get(context.Background(), 77)
	assert.ErrorIs(t, err, ErrSaleNotFound)
}
