package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrationStep is an ordered schema change applied exactly once per database.
type migrationStep struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migrationStep{
	{
		version: 1,
		name:    "base schema",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				display_name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				is_admin INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS rooms (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				capacity INTEGER NOT NULL CHECK (capacity >= 1 AND capacity <= 1000),
				location TEXT NOT NULL,
				description TEXT,
				is_active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS room_amenities (
				room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
				amenity TEXT NOT NULL,
				PRIMARY KEY (room_id, amenity)
			)`,
			`CREATE TABLE IF NOT EXISTS bookings (
				id TEXT PRIMARY KEY,
				room_id TEXT NOT NULL REFERENCES rooms(id),
				user_id TEXT NOT NULL REFERENCES users(id),
				date TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT NOT NULL,
				purpose TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'confirmed'
					CHECK (status IN ('confirmed', 'cancelled', 'completed')),
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				CHECK (end_time > start_time)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_room_window
				ON bookings (room_id, start_time, end_time)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings (user_id, date)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings (status)`,
			`CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id),
				token TEXT NOT NULL UNIQUE,
				expires_at TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				revoked_at TEXT
			)`,
		},
	},
}

// Migrate applies pending schema migrations. Each step runs in its own
// transaction so a failure leaves the database on the last complete version.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := cp.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, step := range migrations {
		if step.version <= current {
			continue
		}
		err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range step.stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d (%s): %w", step.version, step.name, err)
				}
			}
			_, err := tx.Exec(
				"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, datetime('now'))",
				step.version, step.name,
			)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}
