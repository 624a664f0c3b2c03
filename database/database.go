// Package database provides database connection management for the
// concept-insight analytics system.
//
// This package includes:
//   - GORM connection management against PostgreSQL
//   - A dedicated lib/pq connection for COPY-based bulk ingest
//   - Schema initialization via AutoMigrate
//
// Data Models:
//
//	All data models (Stock, Concept, TradingRecord, the derived summary,
//	ranking and high-record tables) are defined in the models_pkg package
//	to avoid circular import dependencies.
package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	models "concept-insight/database/models_pkg"
)

// Database holds the GORM database connection and provides access to the
// underlying DB instance. It is the central connection point for all
// repository packages.
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM database instance for direct access when needed.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect establishes database connection using GORM
func Connect(host string, port int, dbname, user, password string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Silent logging for production
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{db: db}, nil
}

// InitSchema creates or updates all tables
func (d *Database) InitSchema() error {
	return WrapDBError("InitSchema", d.db.AutoMigrate(
		&models.Stock{},
		&models.Concept{},
		&models.StockConceptMembership{},
		&models.TradingRecord{},
		&models.ConceptDailySummary{},
		&models.StockConceptRanking{},
		&models.ConceptHighRecord{},
	))
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ============================================================================
// Type Aliases
// ============================================================================

// Core data models - type aliases so callers outside the database packages
// don't need to import models_pkg directly.

type Stock = models.Stock
type Concept = models.Concept
type StockConceptMembership = models.StockConceptMembership
type TradingRecord = models.TradingRecord
type ConceptDailySummary = models.ConceptDailySummary
type StockConceptRanking = models.StockConceptRanking
type ConceptHighRecord = models.ConceptHighRecord
