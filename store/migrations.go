package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Migration is one forward/backward schema step.
type Migration struct {
	Version     int
	Description string
	Up          func(*sql.Tx) error
	Down        func(*sql.Tx) error
}

var migrations = []Migration{
	{Version: 1, Description: "Create schema_version table", Up: migration001Up, Down: migration001Down},
	{Version: 2, Description: "Create cards table", Up: migration002Up, Down: migration002Down},
	{Version: 3, Description: "Create captures table", Up: migration003Up, Down: migration003Down},
}

// RunMigrations applies every pending migration in order.
func (db *DB) RunMigrations(ctx context.Context) error {
	current, err := db.Version(ctx)
	if err != nil {
		return fmt.Errorf("store: current version: %w", err)
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		err := db.ExecTx(ctx, func(tx *sql.Tx) error {
			if err := m.Up(tx); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.Version, err)
			}
			_, err := tx.Exec(`INSERT INTO schema_version (version, description, applied_at) VALUES (?, ?, ?)`,
				m.Version, m.Description, time.Now())
			return err
		})
		if err != nil {
			return err
		}
		if db.logger != nil {
			db.logger.Info("migration applied", "version", m.Version, "description", m.Description)
		}
	}
	return nil
}

// Version returns the latest applied schema version, 0 for a fresh database.
func (db *DB) Version(ctx context.Context) (int, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	var version int
	err = db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	return version, err
}

// Rollback reverts migrations down to target, newest first.
func (db *DB) Rollback(ctx context.Context, target int) error {
	current, err := db.Version(ctx)
	if err != nil {
		return err
	}
	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		if m.Version > current || m.Version <= target {
			continue
		}
		err := db.ExecTx(ctx, func(tx *sql.Tx) error {
			if m.Version > 1 {
				if _, err := tx.Exec(`DELETE FROM schema_version WHERE version = ?`, m.Version); err != nil {
					return err
				}
			}
			if err := m.Down(tx); err != nil {
				return fmt.Errorf("rollback %d failed: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func migration001Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL UNIQUE,
			description TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	return err
}

func migration001Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS schema_version`)
	return err
}

func migration002Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE cards (
			id TEXT PRIMARY KEY,
			front_image BLOB,
			back_image BLOB,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`)
	return err
}

func migration002Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS cards`)
	return err
}

func migration003Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE captures (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL UNIQUE,
			card_id TEXT REFERENCES cards(id) ON DELETE SET NULL,
			side TEXT NOT NULL,
			manual BOOLEAN NOT NULL DEFAULT 0,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			image BLOB NOT NULL,
			captured_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX idx_captures_card ON captures(card_id);
		CREATE INDEX idx_captures_created ON captures(created_at);
	`)
	return err
}

func migration003Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS captures`)
	return err
}
