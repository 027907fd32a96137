// Package network holds the network commands: the standard resource
// commands plus hierarchy navigation.
package network

import (
	"strings"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/nsotctl/cmd/resource"
	"github.com/martinsuchenak/nsotctl/internal/model"
)

// Spec describes networks for the shared resource commands.
func Spec() resource.Spec {
	return resource.Spec{
		Type:       model.NetworkType,
		Name:       "networks",
		Usage:      "Network management commands",
		Attributes: true,
		Force:      true,
		Fields: []resource.Field{
			{Flag: "cidr", Key: "cidr", Usage: "Network or address in CIDR notation", Required: true, Filter: true},
			{Flag: "state", Key: "state", Usage: "allocated, assigned, orphaned or reserved", Filter: true},
		},
		ListFlags: []cli.Flag{
			&cli.BoolFlag{Name: "include-ips", Usage: "Include host addresses"},
			&cli.BoolFlag{Name: "no-include-networks", Usage: "Leave out networks, e.g. to list only addresses"},
			&cli.StringFlag{Name: "ip-version", Usage: "4 or 6"},
			&cli.BoolFlag{Name: "root-only", Usage: "Only networks without a parent"},
		},
		ListParams: listParams,
		Extra:      Commands(),
	}
}

func listParams(cmd *cli.Command) map[string]string {
	f := model.NetworkFilter{
		IncludeIPs:      cmd.GetBool("include-ips"),
		IncludeNetworks: !cmd.GetBool("no-include-networks"),
		IPVersion:       strings.TrimSpace(cmd.GetString("ip-version")),
		RootOnly:        cmd.GetBool("root-only"),
		State:           cmd.GetString("state"),
	}
	return f.Params()
}

// Commands returns the network-only subcommands.
func Commands() []*cli.Command {
	cmds := relationshipCommands()
	return append(cmds, AssignmentsCommand(), ReservedCommand(), DeleteCheckCommand())
}
