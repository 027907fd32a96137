package main

import (
	"context"
	"fmt"
	"os"

	"github.com/paularlott/cli"
	"github.com/paularlott/cli/env"

	"github.com/martinsuchenak/nsotctl/cmd/dotfile"
	"github.com/martinsuchenak/nsotctl/cmd/network"
	"github.com/martinsuchenak/nsotctl/cmd/resource"
	"github.com/martinsuchenak/nsotctl/cmd/server"
	"github.com/martinsuchenak/nsotctl/cmd/snapshot"
	"github.com/martinsuchenak/nsotctl/internal/cmdutil"
	"github.com/martinsuchenak/nsotctl/internal/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Load .env file if it exists
	env.Load()

	log.Configure("warn", "console")

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:         "log-level",
			Usage:        "Log level (trace, debug, info, warn, error)",
			DefaultValue: "warn",
			EnvVars:      []string{"NSOT_LOG_LEVEL"},
			Global:       true,
		},
		&cli.StringFlag{
			Name:         "log-format",
			Usage:        "Log format (console, json)",
			DefaultValue: "console",
			EnvVars:      []string{"NSOT_LOG_FORMAT"},
			Global:       true,
		},
	}

	rootCmd := &cli.Command{
		Name:        "nsotctl",
		Version:     fmt.Sprintf("%s (%s, %s)", version, commit, date),
		Usage:       "Command-line client for the NSoT network inventory",
		Description: "Manage sites, devices, networks, interfaces, circuits and attributes in NSoT, and navigate the network hierarchy",
		Flags:       append(flags, cmdutil.GlobalFlags()...),
		PreRun: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log.Configure(cmd.GetString("log-level"), cmd.GetString("log-format"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			resource.Command(resource.Sites()),
			resource.Command(resource.Devices()),
			resource.Command(network.Spec()),
			resource.Command(resource.Interfaces()),
			resource.Command(resource.Circuits()),
			resource.Command(resource.Attributes()),
			resource.Command(resource.Protocols()),
			resource.Command(resource.ProtocolTypes()),
			resource.Command(resource.Values()),
			resource.Command(resource.Changes()),
			resource.ResolveCommand(),
			resource.QueryCommand(),
			{
				Name:        "snapshot",
				Usage:       "Local network snapshot commands",
				Description: "Store copies of the site's networks for offline navigation",
				Commands:    snapshot.Commands(),
			},
			{
				Name:        "dotfile",
				Usage:       "Dotfile commands",
				Description: "Create or inspect the ~/.pynsotrc configuration",
				Commands:    dotfile.Commands(),
			},
			server.Command(),
		},
	}

	if err := rootCmd.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, cmdutil.FailureMessage(err))
		os.Exit(1)
	}
}
