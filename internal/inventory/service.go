// Package inventory composes key resolution, set queries and network
// navigation on top of an NSoT API client.
package inventory

import (
	"context"
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/martinsuchenak/nsotctl/internal/client"
	"github.com/martinsuchenak/nsotctl/internal/hierarchy"
	"github.com/martinsuchenak/nsotctl/internal/log"
	"github.com/martinsuchenak/nsotctl/internal/model"
	"github.com/martinsuchenak/nsotctl/internal/resolver"
	"github.com/martinsuchenak/nsotctl/internal/setquery"
	"github.com/martinsuchenak/nsotctl/internal/storage"
)

// ErrOffline is returned for operations that need the API when the service
// only has a local snapshot.
var ErrOffline = errors.New("operation requires the API but running offline")

// NetworkSource supplies every network and address of a site.
type NetworkSource interface {
	Networks(ctx context.Context, site int) ([]model.Network, error)
}

// API is the part of the REST client the service drives
type API interface {
	NetworkSource
	LookupByFilter(ctx context.Context, rt model.ResourceType, pred setquery.Predicate) (mapset.Set[int], error)
	Delete(ctx context.Context, ident resolver.Identifier, force bool) error
}

// SnapshotStore persists pulled networks
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, site int, source string, networks []model.Network) (*storage.Snapshot, error)
	PruneSnapshots(ctx context.Context, site int, keep int) (int, error)
}

var (
	_ API           = (*client.Client)(nil)
	_ NetworkSource = (*storage.SQLiteStorage)(nil)
	_ SnapshotStore = (*storage.SQLiteStorage)(nil)
)

// Service is the entry point used by the CLI and the MCP server
type Service struct {
	api      API
	networks NetworkSource
	site     int
	workers  int
}

// Option configures a Service
type Option func(*Service)

// WithSite sets the site identifiers resolve against.
func WithSite(site int) Option {
	return func(s *Service) { s.site = site }
}

// WithWorkers bounds concurrent predicate lookups.
func WithWorkers(n int) Option {
	return func(s *Service) { s.workers = n }
}

// WithNetworkSource replaces the API as the source of networks, for
// example with a local snapshot.
func WithNetworkSource(src NetworkSource) Option {
	return func(s *Service) { s.networks = src }
}

// New creates a service. api may be nil when a network source is given;
// queries and deletes then fail with ErrOffline.
func New(api API, opts ...Option) *Service {
	s := &Service{api: api, workers: 1}
	if api != nil {
		s.networks = api
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Site returns the site the service is bound to.
func (s *Service) Site() int {
	return s.site
}

// Offline reports whether the service has no API.
func (s *Service) Offline() bool {
	return s.api == nil
}

// Resolve turns user input into an identifier of type rt.
func (s *Service) Resolve(rt model.ResourceType, raw string) (resolver.Identifier, error) {
	return resolver.Resolve(rt, raw, s.site)
}

// ParseQuery parses a set query.
func (s *Service) ParseQuery(raw string) (setquery.Expression, error) {
	return setquery.Parse(raw)
}

// Evaluate resolves every predicate of expr against rt resources and folds
// the results in written order.
func (s *Service) Evaluate(ctx context.Context, rt model.ResourceType, expr setquery.Expression) (mapset.Set[int], error) {
	if s.api == nil {
		return nil, ErrOffline
	}
	ev := setquery.Evaluator{
		Workers: s.workers,
		Lookup: func(ctx context.Context, p setquery.Predicate) (mapset.Set[int], error) {
			return s.api.LookupByFilter(ctx, rt, p)
		},
	}
	return ev.Evaluate(ctx, expr)
}

// Query parses and evaluates raw, returning matching IDs in ascending order.
func (s *Service) Query(ctx context.Context, rt model.ResourceType, raw string) ([]int, error) {
	expr, err := s.ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	set, err := s.Evaluate(ctx, rt, expr)
	if err != nil {
		return nil, err
	}
	log.Debug("Set query evaluated", "resource", rt.String(), "query", expr.String(), "matches", set.Cardinality())
	return setquery.Sorted(set), nil
}

// Forest loads the site's networks and builds their hierarchy.
func (s *Service) Forest(ctx context.Context) (*hierarchy.Forest, error) {
	if s.networks == nil {
		return nil, ErrOffline
	}
	networks, err := s.networks.Networks(ctx, s.site)
	if err != nil {
		return nil, err
	}
	return hierarchy.New(networks)
}

// Navigate returns the networks related to the network named by raw, an ID
// or a CIDR. closest_parent also accepts a CIDR that is not in inventory.
func (s *Service) Navigate(ctx context.Context, rel hierarchy.Relationship, raw string, p hierarchy.Params) ([]model.Network, error) {
	target, err := s.Resolve(model.NetworkType, raw)
	if err != nil {
		return nil, err
	}
	forest, err := s.Forest(ctx)
	if err != nil {
		return nil, err
	}
	return forest.Navigate(rel, target, p)
}

// CheckDelete reports whether the network named by raw may be deleted.
func (s *Service) CheckDelete(ctx context.Context, raw string, force bool) (model.Network, error) {
	target, err := s.Resolve(model.NetworkType, raw)
	if err != nil {
		return model.Network{}, err
	}
	forest, err := s.Forest(ctx)
	if err != nil {
		return model.Network{}, err
	}
	n, err := forest.Find(target)
	if err != nil {
		return model.Network{}, err
	}
	if err := forest.CheckDelete(n.ID, force); err != nil {
		return n, err
	}
	return n, nil
}

// DeleteNetwork checks the delete locally then asks the API to delete.
func (s *Service) DeleteNetwork(ctx context.Context, raw string, force bool) error {
	if s.api == nil {
		return ErrOffline
	}
	n, err := s.CheckDelete(ctx, raw, force)
	if err != nil {
		return err
	}
	ident := resolver.Identifier{Type: model.NetworkType, Kind: resolver.ByID, ID: n.ID, Site: s.site}
	if err := s.api.Delete(ctx, ident, force); err != nil {
		return err
	}
	log.Info("Network deleted", "id", n.ID, "cidr", n.CIDR(), "force", force)
	return nil
}

// Delete removes the rt resource named by raw. Networks go through
// DeleteNetwork.
func (s *Service) Delete(ctx context.Context, rt model.ResourceType, raw string, force bool) error {
	if rt == model.NetworkType {
		return s.DeleteNetwork(ctx, raw, force)
	}
	if s.api == nil {
		return ErrOffline
	}
	ident, err := s.Resolve(rt, raw)
	if err != nil {
		return err
	}
	if err := s.api.Delete(ctx, ident, force); err != nil {
		return err
	}
	log.Info("Resource deleted", "type", rt.String(), "ident", ident.String())
	return nil
}

// Pull copies the site's networks from the API into store and prunes it
// to keep snapshots. keep below one keeps everything.
func (s *Service) Pull(ctx context.Context, store SnapshotStore, source string, keep int) (*storage.Snapshot, error) {
	if s.api == nil {
		return nil, ErrOffline
	}
	if s.site == 0 {
		return nil, fmt.Errorf("snapshot: %w", client.ErrSiteRequired)
	}
	networks, err := s.api.Networks(ctx, s.site)
	if err != nil {
		return nil, err
	}
	snap, err := store.SaveSnapshot(ctx, s.site, source, networks)
	if err != nil {
		return nil, err
	}
	log.Info("Snapshot saved", "id", snap.ID, "site", s.site, "networks", snap.Networks)

	if keep > 0 {
		removed, err := store.PruneSnapshots(ctx, s.site, keep)
		if err != nil {
			return snap, err
		}
		if removed > 0 {
			log.Debug("Pruned snapshots", "site", s.site, "removed", removed)
		}
	}
	return snap, nil
}
