package testutil

import (
	"os"
	"testing"

	mmysql "checkout-service/internal/infra/mysql"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB connects to MYSQL_TEST_DSN and skips the test when it is unset
// or unreachable.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("skipping MySQL integration tests: MYSQL_TEST_DSN not set")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Skipf("skipping MySQL integration tests: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		t.Skipf("skipping MySQL integration tests: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := mmysql.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TruncateAll(t *testing.T, db *gorm.DB) {
	t.Helper()
	stmts := []string{
		"SET FOREIGN_KEY_CHECKS = 0",
		"TRUNCATE TABLE order_lines",
		"TRUNCATE TABLE orders",
		"TRUNCATE TABLE cart_items",
		"TRUNCATE TABLE menu_items",
		"SET FOREIGN_KEY_CHECKS = 1",
	}
	err := db.Connection(func(conn *gorm.DB) error {
		for _, s := range stmts {
			if err := conn.Exec(s).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}
