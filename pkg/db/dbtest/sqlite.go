// Package dbtest opens throwaway sqlite databases migrated with the marketplace models.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/neline/marketplace-backend/pkg/db/models"
)

// Open returns an isolated in-memory database. The pool is pinned to one
// connection so the shared-cache database lives as long as the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:neline_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// SeedLine inserts an active publication with a single inventory line.
func SeedLine(t testing.TB, conn *gorm.DB, price, amount, reserved int64) models.PublicationItem {
	t.Helper()
	pub := models.Publication{SellerID: uuid.New(), Title: "listing", Price: price, IsActive: true, IsAccepted: true}
	if err := conn.Create(&pub).Error; err != nil {
		t.Fatalf("seed publication: %v", err)
	}
	line := models.PublicationItem{PublicationID: pub.ID, Amount: amount, Reserved: reserved}
	if err := conn.Create(&line).Error; err != nil {
		t.Fatalf("seed publication item: %v", err)
	}
	line.Publication = &pub
	return line
}

// ReloadLine fetches the current counters of a line.
func ReloadLine(t testing.TB, conn *gorm.DB, id uuid.UUID) models.PublicationItem {
	t.Helper()
	var line models.PublicationItem
	if err := conn.First(&line, "id = ?", id).Error; err != nil {
		t.Fatalf("reload line %s: %v", id, err)
	}
	return line
}
