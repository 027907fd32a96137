package resource

import (
	"context"

	"github.com/paularlott/cli"
	"github.com/tidwall/gjson"

	"github.com/martinsuchenak/nsotctl/internal/client"
	"github.com/martinsuchenak/nsotctl/internal/cmdutil"
	"github.com/martinsuchenak/nsotctl/internal/hierarchy"
	"github.com/martinsuchenak/nsotctl/internal/log"
	"github.com/martinsuchenak/nsotctl/internal/model"
	"github.com/martinsuchenak/nsotctl/internal/resolver"
)

// DetailView is a sub-resource listing such as /devices/{id}/interfaces/.
type DetailView struct {
	View  string
	Usage string
	// Out is the type of the returned records. Raw views print as
	// JSON or YAML values.
	Out model.ResourceType
	Raw bool
}

// DetailCommand lists view for the rt object named by --id.
func DetailCommand(rt model.ResourceType, v DetailView) *cli.Command {
	return &cli.Command{
		Name:        v.View,
		Usage:       v.Usage,
		Description: v.Usage + ". --id takes an ID or natural key.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: rt.String() + " ID or natural key", Required: true},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			c, _, err := cmdutil.NewClient(cmd)
			if err != nil {
				return err
			}
			ident, err := resolver.Resolve(rt, cmd.GetString("id"), c.Site())
			if err != nil {
				return cmdutil.Fail(rt, err)
			}
			records, err := c.Detail(ctx, ident, v.View, nil)
			if err != nil {
				return cmdutil.Fail(rt, err)
			}
			log.Debug("Fetched detail view", "type", rt.String(), "id", ident.String(), "view", v.View, "results", len(records))

			p := cmdutil.NewPrinter(cmd)
			if v.Raw {
				values := make([]any, len(records))
				for i, r := range records {
					values[i] = r.Value()
				}
				return p.Value(values)
			}
			return p.Records(v.Out, records)
		},
	}
}

func detailCommands(rt model.ResourceType, views ...DetailView) []*cli.Command {
	cmds := make([]*cli.Command, len(views))
	for i, v := range views {
		cmds[i] = DetailCommand(rt, v)
	}
	return cmds
}

var interfaceRelationshipUsage = map[hierarchy.Relationship]string{
	hierarchy.RelParent:      "Show the parent interface",
	hierarchy.RelAncestors:   "List every parent interface, root first",
	hierarchy.RelChildren:    "List the immediate child interfaces",
	hierarchy.RelDescendants: "List every interface below",
	hierarchy.RelRoot:        "Show the top-level interface",
	hierarchy.RelSiblings:    "List interfaces sharing the same parent on the device",
}

// InterfaceRelationshipCommand navigates the interface tree of the
// device owning --id.
func InterfaceRelationshipCommand(rel hierarchy.Relationship) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "Interface ID or device:name", Required: true},
	}
	switch rel {
	case hierarchy.RelAncestors:
		flags = append(flags, &cli.BoolFlag{Name: "ascending", Usage: "Immediate parent first"})
	case hierarchy.RelSiblings:
		flags = append(flags, &cli.BoolFlag{Name: "include-self", Usage: "Include the interface itself"})
	}

	return &cli.Command{
		Name:        string(rel),
		Usage:       interfaceRelationshipUsage[rel],
		Description: interfaceRelationshipUsage[rel] + ". Parents are limited to interfaces on the same device.",
		Flags:       flags,
		Run: func(ctx context.Context, cmd *cli.Command) error {
			p := hierarchy.Params{
				Ascending:   rel == hierarchy.RelAncestors && cmd.GetBool("ascending"),
				IncludeSelf: rel == hierarchy.RelSiblings && cmd.GetBool("include-self"),
			}

			c, _, err := cmdutil.NewClient(cmd)
			if err != nil {
				return err
			}
			ident, err := resolver.Resolve(model.InterfaceType, cmd.GetString("id"), c.Site())
			if err != nil {
				return cmdutil.Fail(model.InterfaceType, err)
			}
			target, err := c.Get(ctx, ident)
			if err != nil {
				return cmdutil.Fail(model.InterfaceType, err)
			}

			related, err := navigateInterfaces(ctx, c, target, rel, p)
			if err != nil {
				return cmdutil.Fail(model.InterfaceType, err)
			}
			records, err := cmdutil.Encode(related)
			if err != nil {
				return err
			}
			return cmdutil.NewPrinter(cmd).Records(model.InterfaceType, records)
		},
	}
}

// DeviceLister lists the interfaces of one device.
type DeviceLister interface {
	List(ctx context.Context, rt model.ResourceType, params map[string]string) ([]gjson.Result, error)
}

// navigateInterfaces builds the tree of target's device and walks rel.
func navigateInterfaces(ctx context.Context, dl DeviceLister, target gjson.Result, rel hierarchy.Relationship, p hierarchy.Params) ([]model.Interface, error) {
	records, err := dl.List(ctx, model.InterfaceType, map[string]string{"device": target.Get("device").String()})
	if err != nil {
		return nil, err
	}
	ifaces, err := client.Decode[model.Interface](records)
	if err != nil {
		return nil, err
	}
	log.Debug("Built interface tree", "device", target.Get("device").Int(), "interfaces", len(ifaces))
	return hierarchy.NewInterfaceForest(ifaces).Navigate(rel, int(target.Get("id").Int()), p)
}

func interfaceCommands() []*cli.Command {
	cmds := make([]*cli.Command, 0, len(hierarchy.InterfaceRelationships)+3)
	for _, rel := range hierarchy.InterfaceRelationships {
		cmds = append(cmds, InterfaceRelationshipCommand(rel))
	}
	return append(cmds, detailCommands(model.InterfaceType,
		DetailView{View: "addresses", Usage: "List addresses assigned to the interface", Out: model.NetworkType},
		DetailView{View: "assignments", Usage: "List address assignments of the interface", Raw: true},
		DetailView{View: "networks", Usage: "List networks the interface is attached to", Out: model.NetworkType},
	)...)
}
