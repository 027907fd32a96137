package resource

import (
	"context"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/nsotctl/internal/cmdutil"
	"github.com/martinsuchenak/nsotctl/internal/model"
	"github.com/martinsuchenak/nsotctl/internal/resolver"
)

type resolved struct {
	Type        string            `json:"type" yaml:"type"`
	Kind        string            `json:"kind" yaml:"kind"`
	ID          int               `json:"id,omitempty" yaml:"id,omitempty"`
	Key         string            `json:"key,omitempty" yaml:"key,omitempty"`
	Site        int               `json:"site,omitempty" yaml:"site,omitempty"`
	PathSegment string            `json:"path_segment,omitempty" yaml:"path_segment,omitempty"`
	Params      map[string]string `json:"params" yaml:"params"`
}

// ResolveCommand shows how an identifier is interpreted without calling the
// API.
func ResolveCommand() *cli.Command {
	return &cli.Command{
		Name:        "resolve",
		Usage:       "Show how an identifier resolves",
		Description: "Resolve an ID or natural key (hostname, CIDR, device:interface, A_Z circuit, resource:attribute)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "type", Required: true},
			&cli.StringArg{Name: "identifier", Required: true},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := model.ParseResourceType(cmd.GetStringArg("type"))
			if err != nil {
				return err
			}
			ident, err := resolver.Resolve(rt, cmd.GetStringArg("identifier"), cmdutil.SiteFlag(cmd))
			if err != nil {
				return cmdutil.Fail(rt, err)
			}

			out := resolved{
				Type:   rt.Path(),
				Kind:   ident.Kind.String(),
				Site:   ident.Site,
				Params: ident.Params(),
			}
			if ident.Kind == resolver.ByID {
				out.ID = ident.ID
			} else {
				out.Key = ident.Key
			}
			if seg, ok := ident.PathSegment(); ok {
				out.PathSegment = seg
			}
			return cmdutil.NewPrinter(cmd).Value(out)
		},
	}
}

// QueryCommand evaluates a set query and prints the matching IDs.
func QueryCommand() *cli.Command {
	return &cli.Command{
		Name:        "query",
		Usage:       "Evaluate a set query",
		Description: "Evaluate a set query such as 'owner=jathan +metro=lax -vendor=juniper' and print matching IDs",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "type", Required: true},
			&cli.StringArg{Name: "query", Required: true},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := model.ParseResourceType(cmd.GetStringArg("type"))
			if err != nil {
				return err
			}
			svc, done, err := cmdutil.NewService(cmd)
			if err != nil {
				return err
			}
			defer done()

			ids, err := svc.Query(ctx, rt, cmd.GetStringArg("query"))
			if err != nil {
				return cmdutil.Fail(rt, err)
			}
			cmdutil.NewPrinter(cmd).IDs(ids)
			return nil
		},
	}
}
