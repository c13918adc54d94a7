package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when inserting a duplicate key
	ErrAlreadyExists = errors.New("already exists")
	// ErrVersionConflict is returned when a record changed since it was read
	ErrVersionConflict = errors.New("record was modified concurrently")
)

// driverNames maps DB_TYPE values to database/sql driver names
var driverNames = map[string]string{
	"sqlite":   "sqlite3",
	"postgres": "postgres",
}

// Connect opens the database and applies the schema.
func Connect(dbType, dsn string) (*sqlx.DB, error) {
	driver, ok := driverNames[dbType]
	if !ok {
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	if dbType == "sqlite" && !isMemory(dsn) {
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dbType == "sqlite" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers
		db.SetMaxIdleConns(1)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:")
}

// Migrate creates the tables if they don't exist.
func Migrate(db *sqlx.DB) error {
	for i, stmt := range schemaFor(db.DriverName()) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

func schemaFor(driver string) []string {
	ts, serial := "TIMESTAMP", "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == "postgres" {
		ts, serial = "TIMESTAMPTZ", "BIGSERIAL PRIMARY KEY"
	}
	r := strings.NewReplacer("{ts}", ts, "{serial}", serial)

	out := make([]string, len(schema))
	for i, s := range schema {
		out[i] = r.Replace(s)
	}
	return out
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		telegram_id BIGINT PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		notification_hour INTEGER NOT NULL DEFAULT 9,
		words_per_day INTEGER NOT NULL DEFAULT 10,
		created_at {ts} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at {ts} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS words (
		id TEXT PRIMARY KEY,
		term TEXT NOT NULL,
		term_key TEXT NOT NULL,
		translation TEXT NOT NULL,
		context TEXT NOT NULL DEFAULT '',
		topic TEXT NOT NULL DEFAULT '',
		difficulty INTEGER NOT NULL DEFAULT 3,
		pronunciation TEXT NOT NULL DEFAULT '',
		created_at {ts} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at {ts} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(term_key, topic)
	)`,
	`CREATE TABLE IF NOT EXISTS review_records (
		user_id BIGINT NOT NULL,
		vocabulary_id TEXT NOT NULL,
		ease DOUBLE PRECISION NOT NULL CHECK (ease >= 1.3),
		interval_days INTEGER NOT NULL CHECK (interval_days >= 1),
		repetitions INTEGER NOT NULL CHECK (repetitions >= 0),
		status TEXT NOT NULL CHECK (status IN ('new', 'learning', 'review', 'mastered')),
		next_review_date {ts} NOT NULL,
		last_review_date {ts},
		total_reviews INTEGER NOT NULL DEFAULT 0,
		correct_count INTEGER NOT NULL DEFAULT 0 CHECK (correct_count <= total_reviews),
		version BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, vocabulary_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_review_records_due ON review_records (user_id, next_review_date)`,
	`CREATE TABLE IF NOT EXISTS review_logs (
		id {serial},
		user_id BIGINT NOT NULL,
		vocabulary_id TEXT NOT NULL,
		quality INTEGER NOT NULL CHECK (quality BETWEEN 0 AND 5),
		reviewed_at {ts} NOT NULL,
		interval_days INTEGER NOT NULL,
		ease DOUBLE PRECISION NOT NULL,
		FOREIGN KEY (user_id, vocabulary_id) REFERENCES review_records (user_id, vocabulary_id)
	)`,
}
