package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sellerledger/backend/internal/infrastructure/persistence/models"
)

// setupTestDB opens a private in-memory SQLite database with every table
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is a new database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.SellerAccountModel{},
		&models.OrderModel{},
		&models.OrderLineFeeModel{},
		&models.DailySummaryModel{},
		&models.SyncRunModel{},
		&models.SyncCursorModel{},
		&models.CatalogPriceModel{},
	))
	return db
}
