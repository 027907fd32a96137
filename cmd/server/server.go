// Package server serves the lookup API and the MCP endpoint over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/nsotctl/cmd/snapshot"
	"github.com/martinsuchenak/nsotctl/internal/api"
	"github.com/martinsuchenak/nsotctl/internal/client"
	"github.com/martinsuchenak/nsotctl/internal/cmdutil"
	"github.com/martinsuchenak/nsotctl/internal/inventory"
	"github.com/martinsuchenak/nsotctl/internal/log"
	"github.com/martinsuchenak/nsotctl/internal/mcp"
	"github.com/martinsuchenak/nsotctl/internal/storage"
	"github.com/martinsuchenak/nsotctl/internal/worker"
)

const DefaultListenAddr = ":8991"

// ServerConfig holds what RunServer needs
type ServerConfig struct {
	ListenAddr   string
	APIAuthToken string
	MCPAuthToken string
	Inventory    *inventory.Service
	Scheduler    *worker.Scheduler // optional
}

// NewMux registers the API routes and the MCP endpoint.
func NewMux(cfg *ServerConfig) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewHandler(cfg.Inventory).RegisterRoutes(mux)
	mux.HandleFunc("/mcp", mcp.NewServer(cfg.Inventory, cfg.MCPAuthToken).GetHTTPHandler())
	return mux
}

// Handler wraps the mux in the auth and security header middleware.
func Handler(cfg *ServerConfig) http.Handler {
	var handler http.Handler = NewMux(cfg)
	if cfg.APIAuthToken != "" {
		handler = api.AuthMiddleware(cfg.APIAuthToken, handler)
	}
	return api.SecurityHeadersMiddleware(handler)
}

// RunServer serves until SIGINT or SIGTERM.
func RunServer(cfg *ServerConfig) error {
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           Handler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Scheduler != nil {
		cfg.Scheduler.Start()
		defer func() {
			log.Info("Stopping snapshot scheduler...")
			cfg.Scheduler.Stop()
		}()
	}

	// Handle shutdown gracefully
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Info("Starting nsotctl server", "addr", cfg.ListenAddr, "site", cfg.Inventory.Site(), "offline", cfg.Inventory.Offline())
	log.Info("API available", "url", "http://localhost"+cfg.ListenAddr+"/api/")
	log.Info("MCP available", "url", "http://localhost"+cfg.ListenAddr+"/mcp")
	if cfg.APIAuthToken != "" {
		log.Info("API authentication enabled")
	}

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Server error", "error", err)
		return err
	}

	log.Info("Server stopped")
	return nil
}

func Command() *cli.Command {
	return &cli.Command{
		Name:        "serve",
		Usage:       "Serve the lookup API and MCP endpoint",
		Description: "Serve identifier resolution, set queries and network navigation over HTTP and MCP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "Listen address", DefaultValue: DefaultListenAddr, EnvVars: []string{"NSOT_LISTEN_ADDR"}},
			&cli.StringFlag{Name: "api-token", Usage: "Bearer token for /api/ routes", EnvVars: []string{"NSOT_API_TOKEN"}},
			&cli.StringFlag{Name: "mcp-token", Usage: "Bearer token for /mcp", EnvVars: []string{"NSOT_MCP_TOKEN"}},
			&cli.StringFlag{Name: "snapshot-schedule", Usage: "Also pull snapshots on this cron schedule, e.g. '@every 15m'"},
			&cli.IntFlag{Name: "keep", Usage: "Snapshots to keep per site", DefaultValue: snapshot.DefaultKeep},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg := &ServerConfig{
				ListenAddr:   cmd.GetString("listen"),
				APIAuthToken: cmd.GetString("api-token"),
				MCPAuthToken: cmd.GetString("mcp-token"),
			}

			if cmd.GetBool("offline") {
				svc, done, err := cmdutil.NewService(cmd)
				if err != nil {
					return err
				}
				defer done()
				cfg.Inventory = svc
				return RunServer(cfg)
			}

			c, conf, err := cmdutil.NewClient(cmd)
			if err != nil {
				return err
			}
			cfg.Inventory = inventory.New(c, inventory.WithSite(c.Site()), inventory.WithWorkers(cmd.GetInt("workers")))

			if schedule := cmd.GetString("snapshot-schedule"); schedule != "" {
				sched, store, err := newScheduler(ctx, cfg.Inventory, c, conf.DataDir, schedule, cmd.GetInt("keep"))
				if err != nil {
					return err
				}
				defer store.Close()
				cfg.Scheduler = sched
			}

			return RunServer(cfg)
		},
	}
}

func newScheduler(ctx context.Context, svc *inventory.Service, c *client.Client, dataDir, schedule string, keep int) (*worker.Scheduler, *storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dataDir)
	if err != nil {
		return nil, nil, err
	}
	sched := worker.NewScheduler(ctx)
	if err := snapshot.Schedule(sched, svc, store, c.BaseURL(), schedule, keep); err != nil {
		store.Close()
		return nil, nil, err
	}
	log.Info("Snapshot schedule enabled", "schedule", schedule, "keep", keep, "path", store.Path())
	return sched, store, nil
}
