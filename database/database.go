package database

import (
	"log"
	"os"
	"path/filepath"
	"trip-counter-service/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB initializes the database connection
func InitDB(dbPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Verify directory is writable by attempting to create a test file
	testFile := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return err
	}
	os.Remove(testFile) // Clean up test file

	// Open database connection
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	DB = db

	// Run migrations
	if err := models.AutoMigrate(DB); err != nil {
		return err
	}

	// One counter row per region, slot and date. AutoMigrate cannot express
	// a composite unique index over existing data, so create it raw.
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_region_counters_slot ON region_counters(region_id, counter_time, date)")

	log.Println("Database initialized successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
