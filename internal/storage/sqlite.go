package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/martinsuchenak/nsotctl/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

// DatabaseFile is the snapshot database name inside the data directory.
const DatabaseFile = "inventory.db"

// SQLiteStorage implements Storage with SQLite backend
type SQLiteStorage struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewSQLiteStorage creates a new SQLite-based storage
func NewSQLiteStorage(dataDir string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ss := &SQLiteStorage{
		db:   db,
		path: dbPath,
	}

	if err := ss.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	if err := ss.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return ss, nil
}

func (ss *SQLiteStorage) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}

	_, err = ss.db.Exec(string(schema))
	return err
}

// Path returns the database file location.
func (ss *SQLiteStorage) Path() string {
	return ss.path
}

// Close closes the database connection
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}

// SaveSnapshot stores networks as a new snapshot of site in one transaction.
func (ss *SQLiteStorage) SaveSnapshot(ctx context.Context, site int, source string, networks []model.Network) (*Snapshot, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	snap := &Snapshot{
		ID:       newSnapshotID(),
		SiteID:   site,
		TakenAt:  time.Now().UTC(),
		Source:   source,
		Networks: len(networks),
	}

	tx, err := ss.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, site_id, taken_at, source) VALUES (?, ?, ?, ?)`,
		snap.ID, snap.SiteID, snap.TakenAt, snap.Source)
	if err != nil {
		return nil, fmt.Errorf("inserting snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO networks (snapshot_id, id, site_id, network_address, prefix_length,
		                      ip_version, is_ip, parent_id, state, attributes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for _, n := range networks {
		attrs, err := encodeAttributes(n.Attributes)
		if err != nil {
			return nil, fmt.Errorf("encoding attributes of network %d: %w", n.ID, err)
		}
		var parent sql.NullInt64
		if n.ParentID != nil {
			parent = sql.NullInt64{Int64: int64(*n.ParentID), Valid: true}
		}
		_, err = stmt.ExecContext(ctx, snap.ID, n.ID, n.SiteID, n.NetworkAddress, n.PrefixLength,
			n.IPVersion, n.IsIP, parent, n.State, attrs)
		if err != nil {
			return nil, fmt.Errorf("inserting network %s: %w", n.CIDR(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return snap, nil
}

// LatestSnapshot returns the newest snapshot of site.
func (ss *SQLiteStorage) LatestSnapshot(ctx context.Context, site int) (*Snapshot, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	row := ss.db.QueryRowContext(ctx, `
		SELECT s.id, s.site_id, s.taken_at, s.source,
		       (SELECT COUNT(*) FROM networks n WHERE n.snapshot_id = s.id)
		FROM snapshots s
		WHERE s.site_id = ?
		ORDER BY s.taken_at DESC, s.id DESC
		LIMIT 1`, site)

	var snap Snapshot
	err := row.Scan(&snap.ID, &snap.SiteID, &snap.TakenAt, &snap.Source, &snap.Networks)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("site %d: %w", site, ErrNoSnapshot)
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	return &snap, nil
}

// ListSnapshots returns the snapshots of site, newest first.
func (ss *SQLiteStorage) ListSnapshots(ctx context.Context, site int) ([]Snapshot, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	rows, err := ss.db.QueryContext(ctx, `
		SELECT s.id, s.site_id, s.taken_at, s.source,
		       (SELECT COUNT(*) FROM networks n WHERE n.snapshot_id = s.id)
		FROM snapshots s
		WHERE s.site_id = ?
		ORDER BY s.taken_at DESC, s.id DESC`, site)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.SiteID, &snap.TakenAt, &snap.Source, &snap.Networks); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// SnapshotNetworks returns the networks stored under one snapshot.
func (ss *SQLiteStorage) SnapshotNetworks(ctx context.Context, snapshotID string) ([]model.Network, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	var exists int
	err := ss.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE id = ?`, snapshotID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%s: %w", snapshotID, ErrSnapshotNotFound)
	}

	rows, err := ss.db.QueryContext(ctx, `
		SELECT id, site_id, network_address, prefix_length, ip_version, is_ip,
		       parent_id, state, attributes
		FROM networks
		WHERE snapshot_id = ?
		ORDER BY id`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("querying networks: %w", err)
	}
	defer rows.Close()

	return scanNetworks(rows)
}

// Networks returns the networks of the latest snapshot of site.
func (ss *SQLiteStorage) Networks(ctx context.Context, site int) ([]model.Network, error) {
	snap, err := ss.LatestSnapshot(ctx, site)
	if err != nil {
		return nil, err
	}
	return ss.SnapshotNetworks(ctx, snap.ID)
}

// PruneSnapshots deletes all but the newest keep snapshots of site and
// returns how many were removed.
func (ss *SQLiteStorage) PruneSnapshots(ctx context.Context, site int, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	res, err := ss.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE site_id = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE site_id = ?
			ORDER BY taken_at DESC, id DESC
			LIMIT ?
		)`, site, site, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func scanNetworks(rows *sql.Rows) ([]model.Network, error) {
	var networks []model.Network
	for rows.Next() {
		var (
			n      model.Network
			parent sql.NullInt64
			attrs  string
		)
		err := rows.Scan(&n.ID, &n.SiteID, &n.NetworkAddress, &n.PrefixLength, &n.IPVersion,
			&n.IsIP, &parent, &n.State, &attrs)
		if err != nil {
			return nil, err
		}
		if parent.Valid {
			p := int(parent.Int64)
			n.ParentID = &p
		}
		if n.Attributes, err = decodeAttributes(attrs); err != nil {
			return nil, fmt.Errorf("decoding attributes of network %d: %w", n.ID, err)
		}
		networks = append(networks, n)
	}
	return networks, rows.Err()
}

// newSnapshotID returns a time-ordered UUID.
func newSnapshotID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
