package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// BulkDB wraps a raw database/sql connection used by the ingest path.
// GORM's postgres driver rides on pgx; Postgres COPY via pq.CopyIn needs a
// lib/pq connection, so bulk loading keeps its own pool.
type BulkDB struct {
	conn *sql.DB
}

// BulkConfig holds connection parameters for the bulk ingest pool
type BulkConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// NewBulkConnection creates the lib/pq connection used for COPY-based imports
func NewBulkConnection(cfg BulkConfig) (*BulkDB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName,
	)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Imports are batch jobs, one date at a time; a small pool is enough
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)
	conn.SetConnMaxIdleTime(2 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Bulk ingest connection established")

	return &BulkDB{conn: conn}, nil
}

// Close closes the bulk connection pool
func (db *BulkDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Ping checks if the connection is alive
func (db *BulkDB) Ping() error {
	return db.conn.Ping()
}

// Conn returns the underlying sql.DB connection
func (db *BulkDB) Conn() *sql.DB {
	return db.conn
}
