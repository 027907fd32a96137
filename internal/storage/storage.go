package storage

import (
	"context"
	"errors"
	"time"

	"github.com/martinsuchenak/nsotctl/internal/model"
)

var (
	ErrNoSnapshot       = errors.New("no snapshot for site")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// Snapshot describes one stored copy of a site's networks
type Snapshot struct {
	ID       string    `json:"id" yaml:"id"`
	SiteID   int       `json:"site_id" yaml:"site_id"`
	TakenAt  time.Time `json:"taken_at" yaml:"taken_at"`
	Source   string    `json:"source" yaml:"source"` // API URL the networks came from
	Networks int       `json:"networks" yaml:"networks"`
}

// Storage keeps network snapshots for offline navigation
type Storage interface {
	SaveSnapshot(ctx context.Context, site int, source string, networks []model.Network) (*Snapshot, error)
	LatestSnapshot(ctx context.Context, site int) (*Snapshot, error)
	ListSnapshots(ctx context.Context, site int) ([]Snapshot, error)
	SnapshotNetworks(ctx context.Context, snapshotID string) ([]model.Network, error)
	// Networks returns the networks of the latest snapshot for site.
	Networks(ctx context.Context, site int) ([]model.Network, error)
	PruneSnapshots(ctx context.Context, site int, keep int) (int, error)
	Close() error
}

// NewStorage opens the SQLite snapshot store in dataDir.
func NewStorage(dataDir string) (Storage, error) {
	return NewSQLiteStorage(dataDir)
}
