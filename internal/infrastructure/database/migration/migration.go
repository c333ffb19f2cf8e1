// internal/infrastructure/database/migration/migration.go
package migration

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/domain/catalog"
	"github.com/your-org/shoe-pos/internal/domain/inventory"
	"github.com/your-org/shoe-pos/internal/domain/sales"
	"github.com/your-org/shoe-pos/internal/pkg/money"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log *logrus.Logger) *Migration {
	return &Migration{
		db:  db,
		log: log,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		// Catalog domain - Base tables
		&catalog.Shoe{},

		// Sales domain - Dependent tables
		&sales.Sale{},
		&sales.SaleDetail{},

		// Inventory domain
		&inventory.StockMovement{},
		&inventory.StockAlert{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.log.Info("🔄 Running database auto-migrations...")

	for _, model := range Models() {
		m.log.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for the reporting queries
func (m *Migration) CreateIndexes() error {
	m.log.Info("🔄 Creating additional database indexes...")

	indexes := []string{
		// Shoe indexes
		"CREATE INDEX IF NOT EXISTS idx_shoes_brand_model ON shoes(brand, model)",
		"CREATE INDEX IF NOT EXISTS idx_shoes_current_stock ON shoes(current_stock)",

		// Sale indexes
		"CREATE INDEX IF NOT EXISTS idx_sales_report ON sales(transaction_date_time DESC, id DESC)",

		// Sale detail indexes
		"CREATE INDEX IF NOT EXISTS idx_sale_details_sale_line ON sale_details(sale_id, line_no)",
		"CREATE INDEX IF NOT EXISTS idx_sale_details_shoe_sale ON sale_details(shoe_id, sale_id)",

		// Stock movement indexes
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_shoe_created ON stock_movements(shoe_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_reference ON stock_movements(reference_type, reference_id)",

		// Stock alert indexes
		"CREATE INDEX IF NOT EXISTS idx_stock_alerts_shoe_resolved ON stock_alerts(shoe_id, is_resolved)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.log.WithError(err).Warn("⚠️ Failed to create index")
			failCount++
		} else {
			successCount++
		}
	}

	m.log.Infof("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData seeds a sample catalog into an empty database
func (m *Migration) SeedInitialData() error {
	m.log.Info("🌱 Seeding initial data...")

	var count int64
	if err := m.db.Model(&catalog.Shoe{}).Unscoped().Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count shoes: %w", err)
	}
	if count > 0 {
		m.log.Info("⏭️ Catalog already has shoes")
		return nil
	}

	shoes := []catalog.Shoe{
		{Brand: "Nike", Model: "Air Jordan 1 Retro High OG", Size: "US 10", Colorway: "Chicago", Condition: "Deadstock", Price: money.MustParse("18500.00"), PurchasePrice: money.MustParse("12000.00"), CurrentStock: 2},
		{Brand: "Nike", Model: "Dunk Low", Size: "US 9", Colorway: "Panda", Condition: "Deadstock", Price: money.MustParse("7500.00"), PurchasePrice: money.MustParse("5600.00"), CurrentStock: 8},
		{Brand: "Adidas", Model: "Samba OG", Size: "US 8.5", Colorway: "Cloud White", Condition: "Deadstock", Price: money.MustParse("6200.00"), PurchasePrice: money.MustParse("4800.00"), CurrentStock: 6},
		{Brand: "New Balance", Model: "550", Size: "US 11", Colorway: "White Green", Condition: "Used - Like New", Price: money.MustParse("4500.00"), PurchasePrice: money.MustParse("2500.00"), CurrentStock: 1},
		{Brand: "Asics", Model: "Gel-Kayano 14", Size: "US 9.5", Colorway: "Cream Black", Condition: "Deadstock", Price: money.MustParse("8900.00"), PurchasePrice: money.MustParse("6500.00"), CurrentStock: 4},
		{Brand: "Yeezy", Model: "Boost 350 V2", Size: "US 10.5", Colorway: "Zebra", Condition: "Used - Good", Price: money.MustParse("11000.00"), PurchasePrice: money.MustParse("7000.00"), CurrentStock: 0},
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		for i := range shoes {
			if err := tx.Create(&shoes[i]).Error; err != nil {
				return fmt.Errorf("failed to create sample shoe %s: %w", shoes[i].DisplayName(), err)
			}
			movement := inventory.StockMovement{
				ShoeID:        shoes[i].ID,
				MovementType:  inventory.MovementTypeInbound,
				Reason:        inventory.ReasonInitialStock,
				Quantity:      shoes[i].CurrentStock,
				PreviousStock: 0,
				NewStock:      shoes[i].CurrentStock,
				Notes:         "sample data",
			}
			if err := tx.Create(&movement).Error; err != nil {
				return fmt.Errorf("failed to record initial stock: %w", err)
			}
			m.log.Debugf("✅ Created sample shoe: %s", shoes[i].DisplayName())
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.log.Infof("✅ Seeded %d sample shoes", len(shoes))
	return nil
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	m.log.Warn("⚠️ WARNING: Dropping all database tables...")

	models := Models()
	// Reverse dependency order
	for i := len(models) - 1; i >= 0; i-- {
		if err := m.db.Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", models[i], err)
		}
	}

	m.log.Info("✅ All tables dropped successfully")
	return nil
}

// TableInfo is a row count for one table
type TableInfo struct {
	Table   string `json:"table"`
	Records int64  `json:"records"`
}

// GetTableInfo returns row counts for every table
func (m *Migration) GetTableInfo() ([]TableInfo, error) {
	tables, err := m.db.Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	info := make([]TableInfo, 0, len(tables))
	var total int64
	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		total += count
		info = append(info, TableInfo{Table: table, Records: count})
		m.log.Debugf("%-25s | %d records", table, count)
	}

	m.log.WithFields(logrus.Fields{"tables": len(tables), "records": total}).Info("📊 Database tables information")
	return info, nil
}
