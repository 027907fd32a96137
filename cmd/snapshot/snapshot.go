// Package snapshot copies a site's networks into the local database so the
// hierarchy commands can run with --offline.
package snapshot

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/nsotctl/internal/client"
	"github.com/martinsuchenak/nsotctl/internal/cmdutil"
	"github.com/martinsuchenak/nsotctl/internal/inventory"
	"github.com/martinsuchenak/nsotctl/internal/log"
	"github.com/martinsuchenak/nsotctl/internal/model"
	"github.com/martinsuchenak/nsotctl/internal/storage"
	"github.com/martinsuchenak/nsotctl/internal/worker"
)

const (
	DefaultSchedule = "@every 15m"
	DefaultKeep     = 5
	pullTaskID      = "snapshot-pull"
)

func Commands() []*cli.Command {
	return []*cli.Command{
		PullCommand(),
		ListCommand(),
		WatchCommand(),
	}
}

func keepFlag() cli.Flag {
	return &cli.IntFlag{Name: "keep", Usage: "Snapshots to keep per site (0 keeps all)", DefaultValue: DefaultKeep}
}

func PullCommand() *cli.Command {
	return &cli.Command{
		Name:        "pull",
		Usage:       "Take a snapshot of the site's networks",
		Description: "Copy every network and address of the site into the local database",
		Flags:       []cli.Flag{keepFlag()},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			c, store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := inventory.New(c, inventory.WithSite(c.Site()))
			snap, err := svc.Pull(ctx, store, c.BaseURL(), cmd.GetInt("keep"))
			if err != nil {
				return cmdutil.Fail(model.NetworkType, err)
			}
			return printSnapshots(cmd, []storage.Snapshot{*snap})
		},
	}
}

func ListCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "List stored snapshots",
		Description: "List the snapshots stored for the site, newest first",
		Run: func(ctx context.Context, cmd *cli.Command) error {
			store, cfg, err := cmdutil.OpenStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if cfg.Site() == 0 {
				return client.ErrSiteRequired
			}
			snaps, err := store.ListSnapshots(ctx, cfg.Site())
			if err != nil {
				return err
			}
			return printSnapshots(cmd, snaps)
		},
	}
}

func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:        "watch",
		Usage:       "Take snapshots on a schedule",
		Description: "Pull a snapshot now and then on a cron schedule until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "schedule", Usage: "Cron expression or @every interval", DefaultValue: DefaultSchedule},
			keepFlag(),
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			c, store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc := inventory.New(c, inventory.WithSite(c.Site()))
			sched := worker.NewScheduler(ctx)
			if err := Schedule(sched, svc, store, c.BaseURL(), cmd.GetString("schedule"), cmd.GetInt("keep")); err != nil {
				return err
			}
			if err := sched.RunNow(pullTaskID); err != nil {
				log.Warn("Initial snapshot failed", "error", err)
			}

			sched.Start()
			for _, t := range sched.Tasks() {
				log.Info("Snapshot schedule started", "schedule", t.Schedule, "next_run", t.NextRun)
			}
			<-ctx.Done()
			log.Info("Stopping snapshot schedule...")
			sched.Stop()
			return nil
		},
	}
}

// Schedule adds a task to sched that pulls a snapshot of svc's site into
// store.
func Schedule(sched *worker.Scheduler, svc *inventory.Service, store inventory.SnapshotStore, source, schedule string, keep int) error {
	return sched.AddTask(pullTaskID, "Network snapshot", schedule, func(ctx context.Context, taskID string) error {
		_, err := svc.Pull(ctx, store, source, keep)
		return err
	})
}

func open(cmd *cli.Command) (*client.Client, *storage.SQLiteStorage, error) {
	if cmd.GetBool("offline") {
		return nil, nil, fmt.Errorf("snapshots are taken from the API: %w", inventory.ErrOffline)
	}
	c, cfg, err := cmdutil.NewClient(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.NewSQLiteStorage(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return c, store, nil
}

func printSnapshots(cmd *cli.Command, snaps []storage.Snapshot) error {
	p := cmdutil.NewPrinter(cmd)
	switch p.Format {
	case cmdutil.FormatJSON, cmdutil.FormatYAML:
		return p.Value(snaps)
	}
	if len(snaps) == 0 {
		p.Message("No snapshots found")
		return nil
	}
	rows := make([][]string, len(snaps))
	for i, s := range snaps {
		rows[i] = []string{s.ID, strconv.Itoa(s.SiteID), s.TakenAt.Local().Format(time.DateTime), strconv.Itoa(s.Networks), s.Source}
	}
	p.Table([]string{"ID", "Site", "Taken At", "Networks", "Source"}, rows)
	return nil
}
