package database

import (
	"database/sql"
	"fmt"
	"log"
)

// CreateAPISpecsTable creates the api_specs table with its indexes and the
// updated_at trigger.
func CreateAPISpecsTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS api_specs (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) UNIQUE NOT NULL,
		title VARCHAR(500),
		version VARCHAR(100),
		spec_content TEXT NOT NULL,
		endpoint_path VARCHAR(255) UNIQUE NOT NULL,
		file_format VARCHAR(10) DEFAULT 'yaml',
		file_size INTEGER,
		api_key_token VARCHAR(500),
		is_active BOOLEAN DEFAULT true,
		created_at TIMESTAMP(6) DEFAULT NOW(),
		updated_at TIMESTAMP(6) DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_api_specs_endpoint_path ON api_specs(endpoint_path);
	CREATE INDEX IF NOT EXISTS idx_api_specs_is_active ON api_specs(is_active);
	CREATE INDEX IF NOT EXISTS idx_api_specs_name ON api_specs(name);

	CREATE OR REPLACE FUNCTION update_updated_at_column()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ language 'plpgsql';

	DROP TRIGGER IF EXISTS update_api_specs_updated_at ON api_specs;
	CREATE TRIGGER update_api_specs_updated_at
		BEFORE UPDATE ON api_specs
		FOR EACH ROW
		EXECUTE FUNCTION update_updated_at_column();
	`

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create api_specs table: %v", err)
	}

	log.Println("Created api_specs table with indexes and triggers")
	return nil
}

// DropAPISpecsTable drops the api_specs table (useful for testing)
func DropAPISpecsTable(db *sql.DB) error {
	query := `
	DROP TRIGGER IF EXISTS update_api_specs_updated_at ON api_specs;
	DROP FUNCTION IF EXISTS update_updated_at_column();
	DROP TABLE IF EXISTS api_specs CASCADE;
	`

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to drop api_specs table: %v", err)
	}

	log.Println("Dropped api_specs table")
	return nil
}

// RunMigrations runs all database migrations
func RunMigrations(db *sql.DB) error {
	log.Println("Running database migrations...")

	if err := CreateAPISpecsTable(db); err != nil {
		return fmt.Errorf("migration failed: %v", err)
	}

	log.Println("All migrations completed successfully")
	return nil
}
