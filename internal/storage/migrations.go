package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// migrate brings an existing database up to the current schema version.
func (ss *SQLiteStorage) migrate() error {
	version, err := ss.schemaVersion()
	if err != nil {
		return err
	}
	if version < 2 {
		if err := ss.MigrateToV2(); err != nil {
			return fmt.Errorf("migrating to v2: %w", err)
		}
	}
	return nil
}

func (ss *SQLiteStorage) schemaVersion() (int, error) {
	var version sql.NullInt64
	err := ss.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("checking migration version: %w", err)
	}
	return int(version.Int64), nil
}

// MigrateToV2 adds the attributes column to networks
func (ss *SQLiteStorage) MigrateToV2() error {
	tx, err := ss.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`ALTER TABLE networks ADD COLUMN attributes TEXT NOT NULL DEFAULT '{}'`)
	if err != nil && !isDuplicateColumnError(err) {
		return fmt.Errorf("adding attributes column: %w", err)
	}

	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_networks_snapshot_state ON networks(snapshot_id, state)`)
	if err != nil {
		return fmt.Errorf("creating state index: %w", err)
	}

	_, err = tx.Exec(`INSERT OR IGNORE INTO schema_migrations (version) VALUES (2)`)
	if err != nil {
		return fmt.Errorf("setting migration version: %w", err)
	}

	return tx.Commit()
}

// isDuplicateColumnError checks if the error is about duplicate column
func isDuplicateColumnError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate column name")
}
