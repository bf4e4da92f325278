package db

import (
	"context"

	"backend-lanewatch/pkg/e"
)

// created_at columns hold epoch milliseconds.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reports (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		start_lat DOUBLE PRECISION NOT NULL CHECK (start_lat BETWEEN -90 AND 90),
		start_lng DOUBLE PRECISION NOT NULL CHECK (start_lng BETWEEN -180 AND 180),
		end_lat DOUBLE PRECISION NOT NULL CHECK (end_lat BETWEEN -90 AND 90),
		end_lng DOUBLE PRECISION NOT NULL CHECK (end_lng BETWEEN -180 AND 180),
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS reports_user_created_idx ON reports (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS warnings (
		id BIGSERIAL PRIMARY KEY,
		report_id BIGINT NOT NULL REFERENCES reports(id),
		text TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL CHECK (lat BETWEEN -90 AND 90),
		lng DOUBLE PRECISION NOT NULL CHECK (lng BETWEEN -180 AND 180),
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS warnings_report_idx ON warnings (report_id)`,
}

// Migrate creates the tables the services rely on when they are missing.
func Migrate(ctx context.Context, q Querier) error {
	for _, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return e.WrapError(ctx, "db.Migrate", err)
		}
	}
	return nil
}
