package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/nsotctl/internal/bulk"
	"github.com/martinsuchenak/nsotctl/internal/client"
	"github.com/martinsuchenak/nsotctl/internal/cmdutil"
	"github.com/martinsuchenak/nsotctl/internal/log"
)

// AddCommand creates one object from flags or many from a bulk file.
func AddCommand(spec Spec) *cli.Command {
	flags := fieldFlags(spec.Fields, false)
	if spec.Attributes {
		flags = append(flags, &cli.StringFlag{Name: "attributes", Usage: "Comma-separated key=value pairs"})
	}
	flags = append(flags, &cli.StringFlag{Name: "bulk-add", Usage: "Colon-delimited file with a header row"})

	return &cli.Command{
		Name:        "add",
		Usage:       "Add " + spec.Type.Path(),
		Description: "Add one or more " + spec.Type.Path() + " to the inventory",
		Flags:       flags,
		Run: func(ctx context.Context, cmd *cli.Command) error {
			body, count, err := addBody(cmd, spec)
			if err != nil {
				return cmdutil.Fail(spec.Type, err)
			}

			c, _, err := cmdutil.NewClient(cmd)
			if err != nil {
				return err
			}
			created, err := c.Create(ctx, spec.Type, body)
			if err != nil {
				return cmdutil.Fail(spec.Type, err)
			}
			log.Info("Created objects", "type", spec.Type.String(), "count", count)

			p := cmdutil.NewPrinter(cmd)
			if p.Format == cmdutil.FormatTable {
				p.Message("[SUCCESS] Added %s!", strings.ToLower(spec.Type.String()))
				return nil
			}
			return p.Records(spec.Type, created)
		},
	}
}

func addBody(cmd *cli.Command, spec Spec) (string, int, error) {
	if path := cmd.GetString("bulk-add"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return "", 0, err
		}
		defer f.Close()

		records, err := bulk.ReadFile(f, spec.Type, spec.boolFields()...)
		if err != nil {
			return "", 0, fmt.Errorf("%s: %w", path, err)
		}
		b, err := json.Marshal(records)
		if err != nil {
			return "", 0, err
		}
		return string(b), len(records), nil
	}

	if err := missingRequired(cmd, spec.Fields); err != nil {
		return "", 0, err
	}
	body, err := setFields(cmd, spec.Fields, client.Body{})
	if err != nil {
		return "", 0, err
	}
	if spec.Attributes {
		attrs, err := bulk.ParseAttributes(splitList(cmd.GetString("attributes")))
		if err != nil {
			return "", 0, err
		}
		if len(attrs) > 0 {
			body = body.Set("attributes", attrs)
		}
	}
	s, err := body.String()
	return s, 1, err
}
