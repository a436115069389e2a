// Package db owns the Postgres connection and schema for the clinic queue.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to Postgres and verifies the connection with a short ping.
func Open(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return conn, nil
}

// schema holds the DDL for the queue's durable state. Idempotent so the
// service can run it on every boot.
const schema = `
CREATE SEQUENCE IF NOT EXISTS patient_token_seq START 1;

CREATE TABLE IF NOT EXISTS patients (
	token                INTEGER PRIMARY KEY,
	name                 TEXT NOT NULL DEFAULT '',
	contact              TEXT NOT NULL DEFAULT '',
	symptoms             TEXT NOT NULL DEFAULT '',
	location             TEXT NOT NULL DEFAULT '',
	urgency_category     TEXT NOT NULL DEFAULT '',
	urgency_score        INTEGER NOT NULL DEFAULT 0,
	consult_minutes      INTEGER NOT NULL DEFAULT 15,
	tier                 TEXT NOT NULL DEFAULT 'NORMAL',
	travel_minutes       DOUBLE PRECISION NOT NULL DEFAULT 0,
	waiting_minutes      DOUBLE PRECISION NOT NULL DEFAULT 0,
	arrival_probability  DOUBLE PRECISION NOT NULL DEFAULT 1,
	priority_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
	status               TEXT NOT NULL DEFAULT 'WAITING',
	matched_categories   TEXT[] NOT NULL DEFAULT '{}',
	booking_time         TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_priority_update TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS patients_status_idx ON patients (status);

CREATE TABLE IF NOT EXISTS queue_counters (
	name  TEXT PRIMARY KEY,
	value BIGINT NOT NULL DEFAULT 0
);
`

// EnsureSchema creates the tables and sequence if they do not exist.
func EnsureSchema(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
