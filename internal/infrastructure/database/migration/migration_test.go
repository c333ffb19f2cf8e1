package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/shoe-pos/internal/config"
	"github.com/your-org/shoe-pos/internal/domain/catalog"
	"github.com/your-org/shoe-pos/internal/domain/inventory"
	"github.com/your-org/shoe-pos/internal/infrastructure/database"
	"github.com/your-org/shoe-pos/internal/pkg/logger"
)

func setup(t *testing.T) *Migration {
	conn, err := database.NewConnection(config.Default(), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewMigration(conn.GetDB(), logger.Discard())
}

func TestMigration_FullCycle(t *testing.T) {
	m := setup(t)

	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.CreateIndexes())
	require.NoError(t, m.SeedInitialData())

	var shoes int64
	require.NoError(t, m.db.Model(&catalog.Shoe{}).Count(&shoes).Error)
	assert.Equal(t, int64(6), shoes)

	var movements int64
	require.NoError(t, m.db.Model(&inventory.StockMovement{}).Count(&movements).Error)
	assert.Equal(t, shoes, movements)

	// Seeding is idempotent.
	require.NoError(t, m.SeedInitialData())
	require.NoError(t, m.db.Model(&catalog.Shoe{}).Count(&shoes).Error)
	assert.Equal(t, int64(6), shoes)

	info, err := m.GetTableInfo()
	require.NoError(t, err)
	counts := map[string]int64{}
	for _, ti := range info {
		counts[ti.Table] = ti.Records
	}
	assert.Equal(t, int64(6), counts["shoes"])
	assert.Contains(t, counts, "sale_details")

	require.NoError(t, m.DropAllTables())
	assert.False(t, m.db.Migrator().HasTable("shoes"))
}
