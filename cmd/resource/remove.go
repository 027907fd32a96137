package resource

import (
	"context"
	"strings"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/nsotctl/internal/cmdutil"
)

// RemoveCommand deletes one object. Networks are checked against the local
// hierarchy before the API is asked.
func RemoveCommand(spec Spec) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "ID or natural key of the object", Required: true},
	}
	if spec.Force {
		flags = append(flags, &cli.BoolFlag{Name: "force", Usage: "Reparent or remove children instead of refusing"})
	}

	return &cli.Command{
		Name:        "remove",
		Usage:       "Remove " + strings.ToLower(spec.Type.String()),
		Description: "Remove one " + strings.ToLower(spec.Type.String()) + " from the inventory",
		Flags:       flags,
		Run: func(ctx context.Context, cmd *cli.Command) error {
			svc, done, err := cmdutil.NewService(cmd)
			if err != nil {
				return err
			}
			defer done()

			id := cmd.GetString("id")
			force := spec.Force && cmd.GetBool("force")
			if err := svc.Delete(ctx, spec.Type, id, force); err != nil {
				return cmdutil.Fail(spec.Type, err)
			}
			cmdutil.NewPrinter(cmd).Message("[SUCCESS] Removed %s %s!", strings.ToLower(spec.Type.String()), id)
			return nil
		},
	}
}
