package cmdutil

import (
	"github.com/paularlott/cli"

	"github.com/martinsuchenak/nsotctl/internal/client"
	"github.com/martinsuchenak/nsotctl/internal/config"
	"github.com/martinsuchenak/nsotctl/internal/inventory"
	"github.com/martinsuchenak/nsotctl/internal/log"
	"github.com/martinsuchenak/nsotctl/internal/storage"
)

// LoadConfig merges global flags over the environment and dotfile.
func LoadConfig(cmd *cli.Command) (*config.Config, error) {
	return config.Load(&config.Config{
		URL:         cmd.GetString("url"),
		DefaultSite: cmd.GetString("site"),
		DataDir:     cmd.GetString("data-dir"),
		ConfigFile:  cmd.GetString("config"),
	})
}

// NewClient builds an API client from the global flags.
func NewClient(cmd *cli.Command) (*client.Client, *config.Config, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	c, err := client.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("API client ready", "url", cfg.URL, "site", c.Site(), "auth_method", cfg.AuthMethod)
	return c, cfg, nil
}

// NewService builds the inventory service. With --offline networks come
// from the latest snapshot and no API client is created. The returned
// function releases resources and is never nil.
func NewService(cmd *cli.Command) (*inventory.Service, func(), error) {
	noop := func() {}
	workers := cmd.GetInt("workers")

	if cmd.GetBool("offline") {
		store, cfg, err := OpenStore(cmd)
		if err != nil {
			return nil, noop, err
		}
		log.Debug("Using local snapshot", "path", store.Path(), "site", cfg.Site())
		svc := inventory.New(nil,
			inventory.WithSite(cfg.Site()),
			inventory.WithNetworkSource(store),
			inventory.WithWorkers(workers))
		return svc, func() { store.Close() }, nil
	}

	c, _, err := NewClient(cmd)
	if err != nil {
		return nil, noop, err
	}
	svc := inventory.New(c, inventory.WithSite(c.Site()), inventory.WithWorkers(workers))
	return svc, noop, nil
}

// OpenStore opens the snapshot database in the configured data directory.
func OpenStore(cmd *cli.Command) (*storage.SQLiteStorage, *config.Config, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.NewSQLiteStorage(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}
