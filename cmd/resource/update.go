package resource

import (
	"context"
	"strings"

	"github.com/paularlott/cli"
	"github.com/tidwall/gjson"

	"github.com/martinsuchenak/nsotctl/internal/bulk"
	"github.com/martinsuchenak/nsotctl/internal/client"
	"github.com/martinsuchenak/nsotctl/internal/cmdutil"
	"github.com/martinsuchenak/nsotctl/internal/inventory"
	"github.com/martinsuchenak/nsotctl/internal/log"
	"github.com/martinsuchenak/nsotctl/internal/model"
)

// UpdateCommand changes fields and attributes of one object.
func UpdateCommand(spec Spec) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "ID or natural key of the object", Required: true},
	}
	flags = append(flags, fieldFlags(spec.Fields, false)...)
	if spec.Attributes {
		flags = append(flags,
			&cli.StringFlag{Name: "attributes", Usage: "Comma-separated key=value pairs"},
			&cli.StringFlag{Name: "attr-action", Usage: "How to apply attributes: add, delete or replace", DefaultValue: string(bulk.ActionAdd)},
			&cli.BoolFlag{Name: "multi", Usage: "Treat attribute values as lists"},
		)
	}

	return &cli.Command{
		Name:        "update",
		Usage:       "Update " + strings.ToLower(spec.Type.String()),
		Description: "Update fields or attributes of one " + strings.ToLower(spec.Type.String()),
		Flags:       flags,
		Run: func(ctx context.Context, cmd *cli.Command) error {
			c, _, err := cmdutil.NewClient(cmd)
			if err != nil {
				return err
			}
			ident, err := inventory.New(c, inventory.WithSite(c.Site())).Resolve(spec.Type, cmd.GetString("id"))
			if err != nil {
				return cmdutil.Fail(spec.Type, err)
			}

			body, err := setFields(cmd, spec.Fields, client.Body{})
			if err != nil {
				return cmdutil.Fail(spec.Type, err)
			}

			if raw := cmd.GetString("attributes"); spec.Attributes && raw != "" {
				current, err := c.Get(ctx, ident)
				if err != nil {
					return cmdutil.Fail(spec.Type, err)
				}
				attrs, err := mergeAttributes(current, raw, cmd.GetString("attr-action"), cmd.GetBool("multi"))
				if err != nil {
					return cmdutil.Fail(spec.Type, err)
				}
				body = body.Set("attributes", attrs)
			}

			s, err := body.String()
			if err != nil {
				return err
			}
			updated, err := c.Patch(ctx, ident, s)
			if err != nil {
				return cmdutil.Fail(spec.Type, err)
			}
			log.Info("Updated object", "type", spec.Type.String(), "ident", ident.String())

			p := cmdutil.NewPrinter(cmd)
			if p.Format == cmdutil.FormatTable {
				p.Message("[SUCCESS] Updated %s!", strings.ToLower(spec.Type.String()))
				return nil
			}
			return p.Records(spec.Type, []gjson.Result{updated})
		},
	}
}

// mergeAttributes applies the key=value pairs in raw to the attributes of
// current.
func mergeAttributes(current gjson.Result, raw, action string, multi bool) (model.Attributes, error) {
	act, err := bulk.ParseAction(action)
	if err != nil {
		return nil, err
	}
	pairs, err := bulk.ParsePairs(splitList(raw))
	if err != nil {
		return nil, err
	}

	attrs := model.Attributes{}
	if m, ok := current.Get("attributes").Value().(map[string]any); ok {
		for k, v := range m {
			attrs[k] = v
		}
	}
	return bulk.Apply(attrs, pairs, act, multi), nil
}
