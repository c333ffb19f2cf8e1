package analytics

import (
	"context"
	"testing"
	"time"

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
	svc   *Service
	sales *sales.Service
	db    *gorm.DB
}

func setup(t *testing.T, mutate ...func(*config.Config)) *fixture {
	cfg := config.Default()
	for _, m := range mutate {
		m(cfg)
	}
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

	inv := inventory.NewService(db, cfg, log)
	return &fixture{
		svc:   NewService(db, cfg, log),
		sales: sales.NewService(db, cfg, inv, events.Nop{}, log),
		db:    db,
	}
}

func (f *fixture) addShoe(t *testing.T, brand, model, price string, stock int) *catalog.Shoe {
	shoe := &catalog.Shoe{Brand: brand, Model: model, Price: money.MustParse(price), CurrentStock: stock}
	require.NoError(t, f.db.Create(shoe).Error)
	return shoe
}

func (f *fixture) sell(t *testing.T, lines ...sales.LineInput) *sales.Sale {
	sale, err := f.sales.Commit(context.Background(), lines)
	require.NoError(t, err)
	return sale
}

func TestDashboardStats_Empty(t *testing.T) {
	f := setup(t)

	stats, err := f.svc.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalSales)
	assert.Zero(t, stats.Revenue)
	assert.Nil(t, stats.TopProduct)
	assert.NotNil(t, stats.RecentTransactions)
	assert.Empty(t, stats.RecentTransactions)
}

func TestDashboardStats_RevenueMatchesCommittedTotals(t *testing.T) {
	f := setup(t)
	a := f.addShoe(t, "Nike", "Dunk Low", "100.00", 50)
	b := f.addShoe(t, "Adidas", "Gazelle", "89.99", 50)

	var expected money.Amount
	for i := 0; i < 7; i++ {
		sale := f.sell(t, sales.LineInput{ShoeID: a.ID, Quantity: 1}, sales.LineInput{ShoeID: b.ID, Quantity: i%3 + 1})
		expected = expected.Add(sale.TotalAmount)
	}

	stats, err := f.svc.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), stats.TotalSales)
	assert.Equal(t, expected, stats.Revenue)
	assert.NotEmpty(t, stats.RevenueFormatted)

	require.NotNil(t, stats.TopProduct)
	assert.Equal(t, b.ID, stats.TopProduct.ShoeID)
	assert.Equal(t, "Gazelle", stats.TopProduct.Model)
	assert.Equal(t, int64(1+2+3+1+2+3+1), stats.TopProduct.TotalSold)
}

func TestDashboardStats_TopProductTieBreak(t *testing.T) {
	f := setup(t)
	a := f.addShoe(t, "Nike", "Air Max 90", "120.00", 10)
	b := f.addShoe(t, "Vans", "Authentic", "60.00", 10)

	// b sells first, then both end on three units.
	f.sell(t, sales.LineInput{ShoeID: b.ID, Quantity: 2})
	f.sell(t, sales.LineInput{ShoeID: a.ID, Quantity: 3})
	f.sell(t, sales.LineInput{ShoeID: b.ID, Quantity: 1})

	stats, err := f.svc.DashboardStats(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stats.TopProduct)
	assert.Equal(t, b.ID, stats.TopProduct.ShoeID)
	assert.Equal(t, int64(3), stats.TopProduct.TotalSold)
	assert.Equal(t, money.MustParse("180.00"), stats.TopProduct.Revenue)
}

func TestDashboardStats_TopProductSurvivesDeletion(t *testing.T) {
	f := setup(t)
	a := f.addShoe(t, "Asics", "Gel-Kayano 14", "150.00", 5)
	f.sell(t, sales.LineInput{ShoeID: a.ID, Quantity: 2})
	require.NoError(t, f.db.Delete(&catalog.Shoe{}, a.ID).Error)

	stats, err := f.svc.DashboardStats(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stats.TopProduct)
	assert.Equal(t, "Asics", stats.TopProduct.Brand)
}

func TestDashboardStats_RecentTransactionsNewestFirst(t *testing.T) {
	f := setup(t, func(cfg *config.Config) { cfg.Sales.RecentLimit = 3 })
	a := f.addShoe(t, "Puma", "Palermo", "95.00", 20)

	var ids []uint
	for i := 0; i < 5; i++ {
		ids = append(ids, f.sell(t, sales.LineInput{ShoeID: a.ID, Quantity: 1}).ID)
	}

	stats, err := f.svc.DashboardStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats.RecentTransactions, 3)
	assert.Equal(t, ids[4], stats.RecentTransactions[0].ID)
	assert.Equal(t, ids[3], stats.RecentTransactions[1].ID)
	assert.Equal(t, ids[2], stats.RecentTransactions[2].ID)
	assert.Len(t, stats.RecentTransactions[0].Details, 1)
}

func TestDashboardStats_StockCounts(t *testing.T) {
	f := setup(t)
	f.addShoe(t, "A", "Out", "10.00", 0)
	f.addShoe(t, "B", "Low", "10.00", 3)
	f.addShoe(t, "C", "Plenty", "10.00", 40)

	stats, err := f.svc.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.OutOfStockProducts)
	assert.Equal(t, int64(1), stats.LowStockProducts)
}

func TestSalesReport_Order(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.addShoe(t, "Reebok", "Classic", "75.00", 10)

	first := f.sell(t, sales.LineInput{ShoeID: a.ID, Quantity: 1})
	second := f.sell(t, sales.LineInput{ShoeID: a.ID, Quantity: 2})

	report, err := f.svc.SalesReport(ctx, "")
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, second.ID, report[0].ID)
	require.Len(t, report[0].Details, 1)
	require.NotNil(t, report[0].Details[0].Shoe)
	assert.Equal(t, "Classic", report[0].Details[0].Shoe.Model)

	report, err = f.svc.SalesReport(ctx, "asc")
	require.NoError(t, err)
	assert.Equal(t, first.ID, report[0].ID)

	_, err = f.svc.SalesReport(ctx, "sideways")
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestSalesReport_ConfiguredDefault(t *testing.T) {
	f := setup(t, func(cfg *config.Config) { cfg.Sales.ReportOrder = "asc" })
	a := f.addShoe(t, "Nike", "Killshot 2", "90.00", 10)

	first := f.sell(t, sales.LineInput{ShoeID: a.ID, Quantity: 1})
	f.sell(t, sales.LineInput{ShoeID: a.ID, Quantity: 1})

	report, err := f.svc.SalesReport(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, report[0].ID)
}

func TestSalesAnalytics(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.addShoe(t, "New Balance", "990v6", "200.00", 10)

	f.sell(t, sales.LineInput{ShoeID: a.ID, Quantity: 1})
	f.sell(t, sales.LineInput{ShoeID: a.ID, Quantity: 2})

	// A sale outside the window.
	old := &sales.Sale{TransactionDateTime: time.Now().UTC().AddDate(0, 0, -40), TotalAmount: money.MustParse("999.00")}
	require.NoError(t, f.db.Omit("Details").Create(old).Error)

	result, err := f.svc.SalesAnalytics(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, result.Days)
	require.Len(t, result.DailyRevenue, 7)
	assert.Equal(t, time.Now().UTC().Format(time.DateOnly), result.To)

	today := result.DailyRevenue[6]
	assert.Equal(t, int64(2), today.Count)
	assert.Equal(t, money.MustParse("600.00"), today.Revenue)
	assert.Equal(t, int64(2), result.TotalSales)
	assert.Equal(t, money.MustParse("600.00"), result.TotalRevenue)
	assert.Equal(t, money.MustParse("300.00"), result.AvgSaleValue)

	_, err = f.svc.SalesAnalytics(ctx, 400)
	assert.ErrorIs(t, err, ErrInvalidDays)
	_, err = f.svc.SalesAnalytics(ctx, -1)
	assert.ErrorIs(t, err, ErrInvalidDays)

	result, err = f.svc.SalesAnalytics(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, result.DailyRevenue, 30)
}
