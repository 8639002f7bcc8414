package db

import (
	"database/sql"
	"fmt"

	"demodrop/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "modernc.org/sqlite"             // embedded SQLite driver, pure Go
)

// Connect opens the shared database handle for the configured driver.
// The caller owns the handle and is responsible for closing it.
func Connect(cfg *config.Config) (*sql.DB, error) {
	switch cfg.DBDriver {
	case "", "sqlite":
		return connectSQLite(cfg.DBPath)
	case "mysql":
		return connectMySQL(cfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

func connectSQLite(path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	// The embedded store serializes writes anyway; a single connection keeps
	// statement ordering predictable across the process.
	database.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := database.Exec(pragma); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping sqlite database %s: %w", path, err)
	}
	return database, nil
}

func connectMySQL(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	database, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return database, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS tracks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		artist TEXT NOT NULL,
		title TEXT NOT NULL,
		file_path TEXT NOT NULL,
		demo_id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tracks_user_id ON tracks(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tracks_file_path ON tracks(file_path)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS tracks (
		id INT AUTO_INCREMENT PRIMARY KEY,
		artist VARCHAR(255) NOT NULL,
		title VARCHAR(255) NOT NULL,
		file_path VARCHAR(767) NOT NULL,
		demo_id VARCHAR(36) NOT NULL UNIQUE,
		user_id VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_tracks_user_id (user_id),
		INDEX idx_tracks_file_path (file_path)
	)`,
}

// InitSchema creates the tracks table if it does not exist.
func InitSchema(database *sql.DB, driver string) error {
	schema := sqliteSchema
	if driver == "mysql" {
		schema = mysqlSchema
	}
	for _, stmt := range schema {
		if _, err := database.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize tracks schema: %w", err)
		}
	}
	return nil
}
