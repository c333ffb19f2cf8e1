// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/config"
	"github.com/your-org/shoe-pos/internal/domain/catalog"
	"github.com/your-org/shoe-pos/internal/domain/sales"
	"github.com/your-org/shoe-pos/internal/pkg/money"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	defaultAnalyticsDays = 30
	maxAnalyticsDays     = 365
)

var (
	ErrInvalidOrder = errors.New("order must be asc or desc")
	ErrInvalidDays  = fmt.Errorf("days must be between 1 and %d", maxAnalyticsDays)
)

// Service is a read-only projection over committed sales
type Service struct {
	db        *gorm.DB
	config    *config.Config
	formatter *money.Formatter
	log       *logrus.Logger
}

// NewService creates a new analytics service
func NewService(db *gorm.DB, cfg *config.Config, log *logrus.Logger) *Service {
	formatter, err := money.NewFormatter(cfg.Sales.Locale, cfg.Sales.Currency)
	if err != nil {
		log.WithError(err).Warn("falling back to plain amount formatting")
	}
	return &Service{
		db:        db,
		config:    cfg,
		formatter: formatter,
		log:       log,
	}
}

// DashboardStats represents the dashboard summary
type DashboardStats struct {
	TotalSales         int64        `json:"totalSales"`
	Revenue            money.Amount `json:"revenue"`
	RevenueFormatted   string       `json:"revenueFormatted"`
	TopProduct         *TopProduct  `json:"topProduct"`
	RecentTransactions []sales.Sale `json:"recentTransactions"`

	// Inventory metrics
	LowStockProducts   int64 `json:"lowStockProducts"`
	OutOfStockProducts int64 `json:"outOfStockProducts"`
}

// TopProduct is the best-selling shoe by units sold
type TopProduct struct {
	ShoeID    uint         `json:"shoeId"`
	Brand     string       `json:"brand"`
	Model     string       `json:"model"`
	TotalSold int64        `json:"totalSold"`
	Revenue   money.Amount `json:"revenue"`
}

// SalesAnalytics represents revenue over a trailing window of days
type SalesAnalytics struct {
	Days             int           `json:"days"`
	From             string        `json:"from"`
	To               string        `json:"to"`
	DailyRevenue     []DailyBucket `json:"dailyRevenue"`
	TotalSales       int64         `json:"totalSales"`
	TotalRevenue     money.Amount  `json:"totalRevenue"`
	AvgSaleValue     money.Amount  `json:"avgSaleValue"`
	RevenueFormatted string        `json:"revenueFormatted"`
}

// DailyBucket is one day of sales, dated in UTC
type DailyBucket struct {
	Date    string       `json:"date"`
	Revenue money.Amount `json:"revenue"`
	Count   int64        `json:"count"`
}

// DashboardStats retrieves the dashboard summary. Each figure is read
// independently; the whole call fails if any query fails.
func (s *Service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var totals struct {
			Count   int64
			Revenue int64
		}
		err := s.db.WithContext(gctx).Model(&sales.Sale{}).
			Select("COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS revenue").
			Scan(&totals).Error
		if err != nil {
			return fmt.Errorf("failed to get sales totals: %w", err)
		}
		stats.TotalSales = totals.Count
		stats.Revenue = money.FromCents(totals.Revenue)
		return nil
	})

	g.Go(func() error {
		top, err := s.topProduct(gctx)
		if err != nil {
			return err
		}
		stats.TopProduct = top
		return nil
	})

	g.Go(func() error {
		recent, err := s.recentSales(gctx, s.config.Sales.RecentLimit)
		if err != nil {
			return err
		}
		stats.RecentTransactions = recent
		return nil
	})

	g.Go(func() error {
		threshold := s.config.Sales.LowStockThreshold
		db := s.db.WithContext(gctx).Model(&catalog.Shoe{})
		if err := db.Where("current_stock <= 0").Count(&stats.OutOfStockProducts).Error; err != nil {
			return fmt.Errorf("failed to count out of stock shoes: %w", err)
		}
		db = s.db.WithContext(gctx).Model(&catalog.Shoe{})
		if err := db.Where("current_stock > 0 AND current_stock <= ?", threshold).Count(&stats.LowStockProducts).Error; err != nil {
			return fmt.Errorf("failed to count low stock shoes: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.RevenueFormatted = s.format(stats.Revenue)
	return stats, nil
}

// topProduct ranks shoes by units sold. Ties go to the shoe sold first,
// then to the lowest shoe id. Returns nil when nothing has been sold.
func (s *Service) topProduct(ctx context.Context) (*TopProduct, error) {
	var rows []struct {
		ShoeID      uint
		TotalSold   int64
		Revenue     int64
		FirstSaleID uint
	}
	err := s.db.WithContext(ctx).Model(&sales.SaleDetail{}).
		Select("shoe_id, SUM(quantity) AS total_sold, SUM(subtotal) AS revenue, MIN(sale_id) AS first_sale_id").
		Group("shoe_id").
		Order("total_sold DESC, first_sale_id ASC, shoe_id ASC").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get top product: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	top := &TopProduct{
		ShoeID:    rows[0].ShoeID,
		TotalSold: rows[0].TotalSold,
		Revenue:   money.FromCents(rows[0].Revenue),
	}

	// Deleted shoes still name the product they were.
	var shoe catalog.Shoe
	err = s.db.WithContext(ctx).Unscoped().Select("id", "brand", "model").First(&shoe, top.ShoeID).Error
	switch {
	case err == nil:
		top.Brand, top.Model = shoe.Brand, shoe.Model
	case errors.Is(err, gorm.ErrRecordNotFound):
		var detail sales.SaleDetail
		if err := s.db.WithContext(ctx).Where("shoe_id = ?", top.ShoeID).Order("id DESC").First(&detail).Error; err == nil {
			top.Brand, top.Model = detail.Brand, detail.Model
		}
	default:
		return nil, fmt.Errorf("failed to get top product details: %w", err)
	}
	return top, nil
}

func (s *Service) recentSales(ctx context.Context, limit int) ([]sales.Sale, error) {
	recent := []sales.Sale{}
	if limit <= 0 {
		return recent, nil
	}
	err := s.withDetails(s.db.WithContext(ctx)).
		Order("transaction_date_time DESC, id DESC").
		Limit(limit).
		Find(&recent).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent sales: %w", err)
	}
	return recent, nil
}

// SalesReport returns every sale with its lines. An empty order uses the
// configured default.
func (s *Service) SalesReport(ctx context.Context, order string) ([]sales.Sale, error) {
	if order == "" {
		order = s.config.Sales.ReportOrder
	}
	var orderBy string
	switch order {
	case "desc":
		orderBy = "transaction_date_time DESC, id DESC"
	case "asc":
		orderBy = "transaction_date_time ASC, id ASC"
	default:
		return nil, ErrInvalidOrder
	}

	report := []sales.Sale{}
	if err := s.withDetails(s.db.WithContext(ctx)).Order(orderBy).Find(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to get sales report: %w", err)
	}
	return report, nil
}

// SalesAnalytics buckets revenue per UTC day for the last days days,
// today included. Zero means the default window.
func (s *Service) SalesAnalytics(ctx context.Context, days int) (*SalesAnalytics, error) {
	if days == 0 {
		days = defaultAnalyticsDays
	}
	if days < 1 || days > maxAnalyticsDays {
		return nil, ErrInvalidDays
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(days - 1))

	var rows []struct {
		TransactionDateTime time.Time
		TotalAmount         int64
	}
	err := s.db.WithContext(ctx).Model(&sales.Sale{}).
		Select("transaction_date_time, total_amount").
		Where("transaction_date_time >= ?", start).
		Order("transaction_date_time ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get daily revenue: %w", err)
	}

	analytics := &SalesAnalytics{
		Days:         days,
		From:         start.Format(time.DateOnly),
		To:           today.Format(time.DateOnly),
		DailyRevenue: make([]DailyBucket, days),
	}
	index := make(map[string]int, days)
	for i := range analytics.DailyRevenue {
		date := start.AddDate(0, 0, i).Format(time.DateOnly)
		analytics.DailyRevenue[i].Date = date
		index[date] = i
	}

	for _, row := range rows {
		i, ok := index[row.TransactionDateTime.UTC().Format(time.DateOnly)]
		if !ok {
			continue
		}
		amount := money.FromCents(row.TotalAmount)
		analytics.DailyRevenue[i].Revenue = analytics.DailyRevenue[i].Revenue.Add(amount)
		analytics.DailyRevenue[i].Count++
		analytics.TotalRevenue = analytics.TotalRevenue.Add(amount)
		analytics.TotalSales++
	}

	if analytics.TotalSales > 0 {
		avg := analytics.TotalRevenue.Decimal().Div(decimal.NewFromInt(analytics.TotalSales)).Round(2)
		if analytics.AvgSaleValue, err = money.FromDecimal(avg); err != nil {
			return nil, fmt.Errorf("failed to compute average sale: %w", err)
		}
	}
	analytics.RevenueFormatted = s.format(analytics.TotalRevenue)

	return analytics, nil
}

func (s *Service) withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Preload("Details.Shoe", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
}

func (s *Service) format(a money.Amount) string {
	if s.formatter == nil {
		return a.String()
	}
	return s.formatter.Format(a)
}
