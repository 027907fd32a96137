// Package resource builds the list, add, update and remove commands shared
// by every NSoT resource type.
package resource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/nsotctl/internal/bulk"
	"github.com/martinsuchenak/nsotctl/internal/client"
	"github.com/martinsuchenak/nsotctl/internal/model"
)

// Kind is how a field flag is encoded in a request body
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindList
	// KindRef is an ID when numeric and a natural key otherwise.
	KindRef
)

// Field maps a command flag to a JSON field of the resource
type Field struct {
	Flag     string
	Key      string
	Usage    string
	Kind     Kind
	Required bool // on add
	Filter   bool // also a list filter

	// ByName is the filter key used when a KindRef value is a natural key
	// rather than an ID, e.g. device_hostname for device.
	ByName string
	// Ref is the resource type a KindRef value names.
	Ref model.ResourceType
}

// Spec describes one resource type's commands
type Spec struct {
	Type   model.ResourceType
	Name   string
	Usage  string
	Fields []Field

	// Attributes enables the --attributes flags.
	Attributes bool
	// ReadOnly resources only get list.
	ReadOnly bool
	// Force adds --force to remove.
	Force bool

	// ListFlags and ListParams add resource-specific list filters.
	ListFlags  []cli.Flag
	ListParams func(cmd *cli.Command) map[string]string

	// Extra subcommands appended after the standard ones.
	Extra []*cli.Command
}

// Command returns the command group for spec.
func Command(spec Spec) *cli.Command {
	return &cli.Command{
		Name:        spec.Name,
		Usage:       spec.Usage,
		Description: fmt.Sprintf("Manage %s in the inventory", spec.Type.Path()),
		Commands:    Commands(spec),
	}
}

// Commands returns the subcommands for spec.
func Commands(spec Spec) []*cli.Command {
	cmds := []*cli.Command{ListCommand(spec)}
	if !spec.ReadOnly {
		cmds = append(cmds, AddCommand(spec), UpdateCommand(spec), RemoveCommand(spec))
	}
	return append(cmds, spec.Extra...)
}

func (s Spec) boolFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Kind == KindBool {
			out = append(out, f.Key)
		}
	}
	return out
}

func fieldFlags(fields []Field, filtersOnly bool) []cli.Flag {
	var flags []cli.Flag
	for _, f := range fields {
		if filtersOnly && !f.Filter {
			continue
		}
		flags = append(flags, &cli.StringFlag{Name: f.Flag, Usage: f.Usage})
	}
	return flags
}

// setFields copies every non-empty field flag into body.
func setFields(cmd *cli.Command, fields []Field, body client.Body) (client.Body, error) {
	for _, f := range fields {
		raw := cmd.GetString(f.Flag)
		if raw == "" {
			continue
		}
		v, err := f.encode(raw)
		if err != nil {
			return body, err
		}
		body = body.Set(f.Key, v)
	}
	return body, nil
}

func (f Field) encode(raw string) (any, error) {
	switch f.Kind {
	case KindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("--%s must be a number, got %q", f.Flag, raw)
		}
		return n, nil
	case KindBool:
		return bulk.ParseBool(raw), nil
	case KindList:
		return splitList(raw), nil
	case KindRef:
		if n, err := strconv.Atoi(raw); err == nil {
			return n, nil
		}
	}
	return raw, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// missingRequired names the first required field that is not set.
func missingRequired(cmd *cli.Command, fields []Field) error {
	for _, f := range fields {
		if f.Required && cmd.GetString(f.Flag) == "" {
			return fmt.Errorf("--%s is required", f.Flag)
		}
	}
	return nil
}
