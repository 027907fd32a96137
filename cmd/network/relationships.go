package network

import (
	"context"
	"errors"
	"strings"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/nsotctl/internal/cmdutil"
	"github.com/martinsuchenak/nsotctl/internal/hierarchy"
	"github.com/martinsuchenak/nsotctl/internal/log"
	"github.com/martinsuchenak/nsotctl/internal/model"
	"github.com/martinsuchenak/nsotctl/internal/resolver"
)

var relationshipUsage = map[hierarchy.Relationship]string{
	hierarchy.RelParent:        "Show the parent network",
	hierarchy.RelAncestors:     "List every network above, root first",
	hierarchy.RelChildren:      "List the immediate children",
	hierarchy.RelDescendants:   "List every network below",
	hierarchy.RelSiblings:      "List networks sharing the same parent",
	hierarchy.RelRoot:          "Show the top-level network",
	hierarchy.RelSupernets:     "List containing networks",
	hierarchy.RelSubnets:       "List contained networks",
	hierarchy.RelClosestParent: "Show the smallest network containing a CIDR",
	hierarchy.RelNextAddress:   "List free host addresses",
	hierarchy.RelNextNetwork:   "List free child networks of a prefix length",
}

func relationshipCommands() []*cli.Command {
	cmds := make([]*cli.Command, 0, len(hierarchy.Relationships))
	for _, rel := range hierarchy.Relationships {
		cmds = append(cmds, relationshipCommand(rel))
	}
	return cmds
}

func relationshipCommand(rel hierarchy.Relationship) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "Network ID or CIDR", Required: true},
	}
	switch rel {
	case hierarchy.RelAncestors:
		flags = append(flags, &cli.BoolFlag{Name: "ascending", Usage: "Immediate parent first"})
	case hierarchy.RelSiblings:
		flags = append(flags, &cli.BoolFlag{Name: "include-self", Usage: "Include the network itself"})
	case hierarchy.RelSupernets, hierarchy.RelSubnets:
		flags = append(flags, &cli.BoolFlag{Name: "direct", Usage: "One level only"})
	case hierarchy.RelNextAddress, hierarchy.RelNextNetwork:
		flags = append(flags,
			&cli.IntFlag{Name: "num", Usage: "Number of results", DefaultValue: 1},
			&cli.BoolFlag{Name: "strict", Usage: "Skip space used by any child, not just allocated ones"},
		)
		if rel == hierarchy.RelNextNetwork {
			flags = append(flags, &cli.IntFlag{Name: "prefix-length", Usage: "Prefix length of the networks", Required: true})
		}
	}

	name := strings.ReplaceAll(string(rel), "_", "-")
	return &cli.Command{
		Name:        name,
		Usage:       relationshipUsage[rel],
		Description: relationshipUsage[rel] + ". Works offline from the latest snapshot with --offline.",
		Flags:       flags,
		Run: func(ctx context.Context, cmd *cli.Command) error {
			p := hierarchy.Params{
				IncludeSelf: flagBool(cmd, rel == hierarchy.RelSiblings, "include-self"),
				Ascending:   flagBool(cmd, rel == hierarchy.RelAncestors, "ascending"),
				Direct:      flagBool(cmd, rel == hierarchy.RelSupernets || rel == hierarchy.RelSubnets, "direct"),
			}
			if rel == hierarchy.RelNextAddress || rel == hierarchy.RelNextNetwork {
				p.Num = cmd.GetInt("num")
				p.Strict = cmd.GetBool("strict")
			}
			if rel == hierarchy.RelNextNetwork {
				p.PrefixLength = cmd.GetInt("prefix-length")
			}

			svc, done, err := cmdutil.NewService(cmd)
			if err != nil {
				return err
			}
			defer done()

			networks, err := svc.Navigate(ctx, rel, cmd.GetString("id"), p)
			if err != nil {
				return cmdutil.Fail(model.NetworkType, err)
			}
			log.Debug("Navigated", "relationship", string(rel), "id", cmd.GetString("id"), "results", len(networks))
			return cmdutil.NewPrinter(cmd).Networks(networks)
		},
	}
}

func flagBool(cmd *cli.Command, has bool, name string) bool {
	return has && cmd.GetBool(name)
}

// AssignmentsCommand lists the interface assignments of an address.
func AssignmentsCommand() *cli.Command {
	return &cli.Command{
		Name:        "assignments",
		Usage:       "List interface assignments",
		Description: "List the interfaces a network or address is assigned to",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Network ID or CIDR", Required: true},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			c, _, err := cmdutil.NewClient(cmd)
			if err != nil {
				return err
			}
			ident, err := resolver.Resolve(model.NetworkType, cmd.GetString("id"), c.Site())
			if err != nil {
				return cmdutil.Fail(model.NetworkType, err)
			}
			records, err := c.Detail(ctx, ident, "assignments", nil)
			if err != nil {
				return cmdutil.Fail(model.NetworkType, err)
			}

			values := make([]any, len(records))
			for i, r := range records {
				values[i] = r.Value()
			}
			return cmdutil.NewPrinter(cmd).Value(values)
		},
	}
}

// ReservedCommand lists reserved networks from the local hierarchy.
func ReservedCommand() *cli.Command {
	return &cli.Command{
		Name:        "reserved",
		Usage:       "List reserved networks",
		Description: "List networks in the reserved state",
		Run: func(ctx context.Context, cmd *cli.Command) error {
			svc, done, err := cmdutil.NewService(cmd)
			if err != nil {
				return err
			}
			defer done()

			forest, err := svc.Forest(ctx)
			if err != nil {
				return cmdutil.Fail(model.NetworkType, err)
			}
			return cmdutil.NewPrinter(cmd).Networks(forest.Reserved())
		},
	}
}

// DeleteCheckCommand reports whether remove would be allowed.
func DeleteCheckCommand() *cli.Command {
	return &cli.Command{
		Name:        "delete-check",
		Usage:       "Check whether a network can be removed",
		Description: "Check a network against the delete rules without removing it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Network ID or CIDR", Required: true},
			&cli.BoolFlag{Name: "force", Usage: "Check a forced delete"},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			svc, done, err := cmdutil.NewService(cmd)
			if err != nil {
				return err
			}
			defer done()

			n, err := svc.CheckDelete(ctx, cmd.GetString("id"), cmd.GetBool("force"))
			p := cmdutil.NewPrinter(cmd)
			switch {
			case errors.Is(err, hierarchy.ErrForbiddenDelete), errors.Is(err, hierarchy.ErrForbiddenForceDelete):
				p.Message("%s cannot be removed: %v", n.CIDR(), err)
				return nil
			case err != nil:
				return cmdutil.Fail(model.NetworkType, err)
			}
			p.Message("%s can be removed", n.CIDR())
			return nil
		},
	}
}
