// Package sqlite provides SQLite database setup for local development and tests
package sqlite

import (
	"fmt"
	"strings"

	gormModels "github.com/recipesimplifier/api/internal/infrastructure/persistence/gorm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupDatabase opens dbPath (in-memory when empty) and migrates the schema.
func SetupDatabase(dbPath string, gormLogger logger.Interface) (*gorm.DB, error) {
	inMemory := dbPath == "" || dbPath == ":memory:"
	if inMemory {
		dbPath = ":memory:"
	}
	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(sqlite.Open(withForeignKeys(dbPath)), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if inMemory {
		// every new connection to :memory: is a fresh empty database
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(gormModels.AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// withForeignKeys enables FK enforcement, which SQLite leaves off per
// connection unless asked.
func withForeignKeys(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}
