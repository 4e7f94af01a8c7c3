package storage

import (
	"context"
	"fmt"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		category_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		min_value REAL,
		max_value REAL
	)`,
	`CREATE TABLE IF NOT EXISTS measurements (
		measurement_id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users (user_id) ON DELETE CASCADE,
		category_id INTEGER NOT NULL REFERENCES categories (category_id) ON DELETE RESTRICT,
		height REAL NOT NULL,
		height_unit TEXT NOT NULL,
		weight REAL NOT NULL,
		weight_unit TEXT NOT NULL,
		height_m REAL NOT NULL,
		weight_kg REAL NOT NULL,
		bmi REAL NOT NULL,
		notes TEXT,
		recorded_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS measurements_user_recorded_idx ON measurements (user_id, recorded_at)`,
	`CREATE INDEX IF NOT EXISTS measurements_category_idx ON measurements (category_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id BIGSERIAL PRIMARY KEY,
		username VARCHAR(50) NOT NULL UNIQUE,
		email VARCHAR(100) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		category_id BIGSERIAL PRIMARY KEY,
		name VARCHAR(50) NOT NULL UNIQUE,
		min_value DOUBLE PRECISION,
		max_value DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS measurements (
		measurement_id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users (user_id) ON DELETE CASCADE,
		category_id BIGINT NOT NULL REFERENCES categories (category_id) ON DELETE RESTRICT,
		height DOUBLE PRECISION NOT NULL,
		height_unit VARCHAR(8) NOT NULL,
		weight DOUBLE PRECISION NOT NULL,
		weight_unit VARCHAR(8) NOT NULL,
		height_m DOUBLE PRECISION NOT NULL,
		weight_kg DOUBLE PRECISION NOT NULL,
		bmi DOUBLE PRECISION NOT NULL,
		notes TEXT,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS measurements_user_recorded_idx ON measurements (user_id, recorded_at)`,
	`CREATE INDEX IF NOT EXISTS measurements_category_idx ON measurements (category_id)`,
}

// Migrate creates the schema. It is safe to run on every start.
func Migrate(ctx context.Context, db *DB) error {
	schema := sqliteSchema
	if db.Driver == Postgres {
		schema = postgresSchema
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Drop removes every table together with the data.
func Drop(ctx context.Context, db *DB) error {
	for _, table := range []string{"measurements", "categories", "users"} {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	return nil
}
