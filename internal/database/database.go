package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

func New(databaseURL string) (*Database, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(databaseURL, "sqlite://") {
		// SQLite for development
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	} else {
		// PostgreSQL for production
		db, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Create tables manually with raw SQL, portable across both drivers
	createTablesSQL := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		sku TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		short_description TEXT,
		price DECIMAL(12,2),
		sale_price DECIMAL(12,2),
		stock_quantity INTEGER DEFAULT 0,
		in_stock BOOLEAN DEFAULT true,
		weight DECIMAL(10,3),
		status TEXT DEFAULT 'published',
		category_id TEXT,
		image_id TEXT,
		gallery_ids TEXT,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS attachments (
		id TEXT PRIMARY KEY,
		source_url TEXT UNIQUE NOT NULL,
		file_name TEXT,
		mime_type TEXT,
		path TEXT,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		number TEXT UNIQUE NOT NULL,
		status TEXT DEFAULT 'pending',
		customer_name TEXT,
		customer_phone TEXT,
		customer_email TEXT,
		address TEXT,
		city TEXT,
		district TEXT,
		shipping_total DECIMAL(12,2),
		customer_note TEXT,
		status_note TEXT,
		items TEXT,
		tracking_number TEXT,
		carrier TEXT,
		payment_status TEXT,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS external_links (
		id TEXT PRIMARY KEY,
		entity_kind TEXT NOT NULL,
		local_id TEXT NOT NULL,
		remote_id TEXT NOT NULL,
		last_synced_at TIMESTAMP,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_links_local ON external_links (entity_kind, local_id);
	CREATE INDEX IF NOT EXISTS idx_links_remote ON external_links (entity_kind, remote_id);

	CREATE TABLE IF NOT EXISTS sync_logs (
		id INTEGER PRIMARY KEY,
		time TIMESTAMP,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		message TEXT,
		created_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sync_stats (
		type TEXT PRIMARY KEY,
		last_total INTEGER DEFAULT 0,
		last_synced INTEGER DEFAULT 0,
		last_failed INTEGER DEFAULT 0,
		last_run_at TIMESTAMP,
		all_synced INTEGER DEFAULT 0,
		all_failed INTEGER DEFAULT 0,
		updated_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at TIMESTAMP
	);
	`

	err = db.Exec(createTablesSQL).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
